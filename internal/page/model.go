// Package page composes the raffle page from the wallet session, the read
// view and the entry flow, and renders it as HTML.
package page

import (
	"time"

	"rafflefront/internal/entry"
	"rafflefront/internal/readview"
	"rafflefront/internal/wallet"
)

const (
	MsgConnectPrompt = "Connect your wallet to enter the raffle"
	LabelConnect     = "Connect Wallet"
	LabelConnecting  = "Connecting..."
)

type SessionSource interface {
	Session() wallet.Session
}

type ViewSource interface {
	Snapshot() readview.Snapshot
}

type EntrySource interface {
	State() entry.State
}

// ConnectionControl shows either the connector list or the connected
// account, never both.
type ConnectionControl struct {
	Status       wallet.Status          `json:"status"`
	Account      string                 `json:"account,omitempty"`
	AccountShort string                 `json:"accountShort,omitempty"`
	Connectors   []wallet.ConnectorInfo `json:"connectors,omitempty"`
	Expanded     bool                   `json:"expanded"`
	ConnectLabel string                 `json:"connectLabel,omitempty"`
	Error        string                 `json:"error,omitempty"`
}

type EntryPanel struct {
	Fee     string       `json:"fee,omitempty"`
	Button  entry.Button `json:"button"`
	Status  entry.Status `json:"status"`
	Message string       `json:"message,omitempty"`
	Tone    string       `json:"tone,omitempty"`
	TxHash  string       `json:"txHash,omitempty"`
}

// Model is everything the page shows. Entry is nil and ConnectPrompt set
// while no wallet is connected. FormToken is rendered into every form and
// never serialized.
type Model struct {
	Connection    ConnectionControl `json:"connection"`
	Raffle        readview.Display  `json:"raffle"`
	Entry         *EntryPanel       `json:"entry,omitempty"`
	ConnectPrompt string            `json:"connectPrompt,omitempty"`
	FormToken     string            `json:"-"`
}

type Composer struct {
	Sessions  SessionSource
	View      ViewSource
	Entries   EntrySource
	Formatter readview.Formatter
	Now       func() time.Time
	// FormToken must accompany every form post from the page.
	FormToken string
}

// Compose builds the model. expanded is the connector list toggle and only
// matters while disconnected.
func (c *Composer) Compose(expanded bool) Model {
	session := c.Sessions.Session()
	snap := c.View.Snapshot()

	m := Model{
		Connection: Connection(session, expanded),
		Raffle:     c.Formatter.Render(snap, c.now()),
		FormToken:  c.FormToken,
	}
	if !session.Connected() {
		m.ConnectPrompt = MsgConnectPrompt
		return m
	}

	st := c.Entries.State()
	panel := &EntryPanel{
		Button:  entry.ButtonFor(snap.Open(), st),
		Status:  st.Status,
		Message: st.Message(),
		TxHash:  st.TxHash,
	}
	if panel.Message != "" {
		panel.Tone = st.Tone()
	}
	if fee, ok := snap.Fee(); ok {
		panel.Fee = "Entrance fee: " + c.Formatter.Fee(fee)
	}
	m.Entry = panel
	return m
}

// Connection derives the control purely from the session.
func Connection(s wallet.Session, expanded bool) ConnectionControl {
	cc := ConnectionControl{Status: s.Status}
	if s.Connected() {
		cc.Account = s.Account
		cc.AccountShort = readview.ShortAddress(s.Account)
		return cc
	}

	cc.Connectors = append([]wallet.ConnectorInfo(nil), s.Connectors...)
	cc.Error = s.Error
	cc.ConnectLabel = LabelConnect
	if s.Status == wallet.Connecting {
		cc.ConnectLabel = LabelConnecting
		expanded = false
	}
	cc.Expanded = expanded
	return cc
}

func (c *Composer) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}
