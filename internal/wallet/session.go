package wallet

import (
	"context"
	"io"
	"sync"

	"go.uber.org/zap"

	"rafflefront/internal/metrics"
)

type Status int

const (
	Disconnected Status = iota
	Connecting
	Connected
)

func (s Status) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Session is an immutable view of the wallet session.
type Session struct {
	Status     Status          `json:"status"`
	Account    string          `json:"account,omitempty"`
	Connectors []ConnectorInfo `json:"connectors"`
	Error      string          `json:"error,omitempty"`
}

func (s Session) Connected() bool { return s.Status == Connected }

// Provider holds the single wallet session of the process and notifies
// subscribers on every change.
type Provider struct {
	connectors []Connector
	logger     *zap.Logger
	metrics    *metrics.Registry

	mu      sync.Mutex
	status  Status
	signer  Signer
	lastErr string
	gen     uint64
	subs    map[int]func(Session)
	nextSub int
}

func NewProvider(logger *zap.Logger, m *metrics.Registry, connectors ...Connector) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{
		connectors: connectors,
		logger:     logger,
		metrics:    m,
		subs:       make(map[int]func(Session)),
	}
}

func (p *Provider) Session() Session {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sessionLocked()
}

// Signer returns the connected signer, if any.
func (p *Provider) Signer() (Signer, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.status != Connected || p.signer == nil {
		return nil, false
	}
	return p.signer, true
}

// Connect reaches the wallet through the named connector. The session is
// Connecting for the duration of the call.
func (p *Provider) Connect(ctx context.Context, connectorID string) error {
	connector := p.find(connectorID)
	if connector == nil {
		return ErrUnknownConnector
	}

	p.mu.Lock()
	switch p.status {
	case Connecting:
		p.mu.Unlock()
		return ErrConnectInProgress
	case Connected:
		p.mu.Unlock()
		return ErrAlreadyConnected
	}
	p.status = Connecting
	p.lastErr = ""
	gen := p.gen
	p.mu.Unlock()
	p.notify()

	signer, err := connector.Connect(ctx)

	p.mu.Lock()
	if gen != p.gen {
		p.mu.Unlock()
		closeSigner(signer)
		return ErrConnectAborted
	}
	if err != nil {
		p.status = Disconnected
		p.signer = nil
		p.lastErr = err.Error()
	} else {
		p.status = Connected
		p.signer = signer
	}
	p.mu.Unlock()
	p.notify()

	if err != nil {
		p.logger.Warn("wallet connect failed", zap.String("connector", connectorID), zap.Error(err))
		return err
	}
	p.logger.Info("wallet connected",
		zap.String("connector", connectorID),
		zap.String("account", signer.Address().Hex()))
	return nil
}

// Disconnect always succeeds and drops the account.
func (p *Provider) Disconnect() {
	p.mu.Lock()
	prev := p.signer
	p.status = Disconnected
	p.signer = nil
	p.lastErr = ""
	p.gen++
	p.mu.Unlock()
	closeSigner(prev)
	p.notify()
	p.logger.Info("wallet disconnected")
}

// Subscribe registers fn for session changes and returns its cancel func.
func (p *Provider) Subscribe(fn func(Session)) func() {
	p.mu.Lock()
	id := p.nextSub
	p.nextSub++
	p.subs[id] = fn
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		delete(p.subs, id)
		p.mu.Unlock()
	}
}

// closeSigner releases signers that hold a connection, such as clef's.
func closeSigner(s Signer) {
	if c, ok := s.(io.Closer); ok {
		_ = c.Close()
	}
}

func (p *Provider) find(id string) Connector {
	for _, c := range p.connectors {
		if c.ID() == id {
			return c
		}
	}
	return nil
}

func (p *Provider) sessionLocked() Session {
	infos := make([]ConnectorInfo, 0, len(p.connectors))
	for _, c := range p.connectors {
		infos = append(infos, ConnectorInfo{ID: c.ID(), Name: c.Name()})
	}
	s := Session{
		Status:     p.status,
		Connectors: infos,
		Error:      p.lastErr,
	}
	if p.status == Connected && p.signer != nil {
		s.Account = p.signer.Address().Hex()
	}
	return s
}

func (p *Provider) notify() {
	p.mu.Lock()
	s := p.sessionLocked()
	fns := make([]func(Session), 0, len(p.subs))
	for _, fn := range p.subs {
		fns = append(fns, fn)
	}
	p.mu.Unlock()

	p.metrics.SetWalletConnected(s.Connected())
	for _, fn := range fns {
		fn(s)
	}
}
