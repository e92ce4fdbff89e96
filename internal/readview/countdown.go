package readview

import (
	"fmt"
	"math"
	"time"
)

const (
	MsgDrawImminent = "Drawing should occur soon!"
	MsgCalculating  = "Calculating..."
)

const (
	secondsPerMinute = 60
	secondsPerHour   = 60 * secondsPerMinute
	secondsPerDay    = 24 * secondsPerHour
)

// Countdown is the time left until the next draw.
type Countdown struct {
	Imminent bool
	Days     int64
	Hours    int64
	Minutes  int64
	Seconds  int64
}

// NewCountdown computes lastDraw + interval - now, in whole seconds.
func NewCountdown(lastDraw uint64, interval time.Duration, now time.Time) Countdown {
	intervalSecs := int64(interval / time.Second)
	if lastDraw > uint64(math.MaxInt64-intervalSecs) {
		lastDraw = uint64(math.MaxInt64 - intervalSecs)
	}
	remaining := int64(lastDraw) + intervalSecs - now.Unix()
	if remaining <= 0 {
		return Countdown{Imminent: true}
	}
	return Countdown{
		Days:    remaining / secondsPerDay,
		Hours:   remaining % secondsPerDay / secondsPerHour,
		Minutes: remaining % secondsPerHour / secondsPerMinute,
		Seconds: remaining % secondsPerMinute,
	}
}

func (c Countdown) String() string {
	if c.Imminent {
		return MsgDrawImminent
	}
	return fmt.Sprintf("%dd %dh %dm %ds", c.Days, c.Hours, c.Minutes, c.Seconds)
}
