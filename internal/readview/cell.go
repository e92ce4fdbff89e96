package readview

import (
	"sync"
	"time"
)

// Result is a point-in-time copy of a Cell.
type Result[T any] struct {
	Value     T
	Err       error
	Loaded    bool
	UpdatedAt time.Time
}

// Known reports whether the latest read succeeded.
func (r Result[T]) Known() bool { return r.Loaded && r.Err == nil }

// Cell holds one independently refreshed field. Writes are last-write-wins.
type Cell[T any] struct {
	mu  sync.RWMutex
	res Result[T]
}

func (c *Cell[T]) Set(v T, at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.res = Result[T]{Value: v, Loaded: true, UpdatedAt: at}
}

// Fail marks the field unknown. The previous value is kept but no longer Known.
func (c *Cell[T]) Fail(err error, at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.res.Err = err
	c.res.UpdatedAt = at
}

func (c *Cell[T]) Get() Result[T] {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.res
}
