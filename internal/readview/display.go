package readview

import (
	"math/big"
	"time"
)

// Display is the rendered read view.
type Display struct {
	EntryFee      string `json:"entryFee"`
	State         string `json:"state"`
	Open          bool   `json:"open"`
	TimeRemaining string `json:"timeRemaining"`
	RecentWinner  string `json:"recentWinner"`
}

// Formatter renders snapshots for one chain and draw period.
type Formatter struct {
	DrawInterval time.Duration
	Symbol       string
	Decimals     int32
}

func (f Formatter) Fee(fee *big.Int) string {
	return FormatUnits(fee, f.Decimals) + " " + f.Symbol
}

func (f Formatter) Render(s Snapshot, now time.Time) Display {
	d := Display{
		EntryFee:      MsgLoading,
		State:         MsgLoading,
		TimeRemaining: MsgCalculating,
		RecentWinner:  MsgLoading,
		Open:          s.Open(),
	}
	if fee, ok := s.Fee(); ok {
		d.EntryFee = f.Fee(fee)
	}
	if s.State.Known() {
		d.State = s.State.Value.String()
	}
	if s.LastDraw.Known() {
		d.TimeRemaining = NewCountdown(s.LastDraw.Value, f.DrawInterval, now).String()
	}
	if s.Winner.Known() {
		d.RecentWinner = FormatWinner(s.Winner.Value)
	}
	return d
}
