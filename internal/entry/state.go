// Package entry drives a single raffle entry attempt from click to inclusion.
package entry

const (
	MsgProcessing = "Processing..."
	MsgConfirming = "Confirming transaction..."
	MsgConfirmed  = "Successfully entered the raffle!"

	LabelEnter  = "Enter Raffle"
	LabelClosed = "Raffle is currently closed"
)

type Status int

const (
	Idle Status = iota
	Submitted
	Pending
	Confirmed
	Failed
)

func (s Status) String() string {
	switch s {
	case Submitted:
		return "submitted"
	case Pending:
		return "pending"
	case Confirmed:
		return "confirmed"
	case Failed:
		return "failed"
	default:
		return "idle"
	}
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// State is the current attempt. Reason is set only when Failed.
type State struct {
	Status Status `json:"status"`
	Reason string `json:"reason,omitempty"`
	TxHash string `json:"txHash,omitempty"`
}

// InFlight reports whether an attempt is between submission and a final outcome.
func (s State) InFlight() bool {
	return s.Status == Submitted || s.Status == Pending
}

// Message is the inline status text, empty while Idle.
func (s State) Message() string {
	switch s.Status {
	case Submitted:
		return MsgProcessing
	case Pending:
		return MsgConfirming
	case Confirmed:
		return MsgConfirmed
	case Failed:
		return "Error: " + s.Reason
	default:
		return ""
	}
}

// Tone classifies Message for styling.
func (s State) Tone() string {
	switch s.Status {
	case Confirmed:
		return "success"
	case Failed:
		return "error"
	default:
		return "info"
	}
}

type Button struct {
	Label    string `json:"label"`
	Disabled bool   `json:"disabled"`
}

// ButtonFor is disabled whenever the raffle is not open or an attempt is in flight.
func ButtonFor(open bool, s State) Button {
	switch {
	case s.InFlight():
		return Button{Label: MsgProcessing, Disabled: true}
	case !open:
		return Button{Label: LabelClosed, Disabled: true}
	default:
		return Button{Label: LabelEnter}
	}
}
