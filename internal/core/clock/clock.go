// Package clock provides the monotonically increasing tick the rules measure time in.
package clock

import (
	"sync/atomic"
	"time"
)

type Clock interface {
	// Now returns the current tick. Ticks start at 1 and never decrease.
	Now() uint64
}

// Manual only moves when told to.
type Manual struct {
	tick atomic.Uint64
}

func NewManual(start uint64) *Manual {
	m := &Manual{}
	m.tick.Store(max(start, 1))
	return m
}

func (m *Manual) Now() uint64 { return m.tick.Load() }

func (m *Manual) Advance(ticks uint64) uint64 { return m.tick.Add(ticks) }

// Set moves the clock to tick; it never goes backwards.
func (m *Manual) Set(tick uint64) {
	for {
		cur := m.tick.Load()
		if tick <= cur || m.tick.CompareAndSwap(cur, tick) {
			return
		}
	}
}

// Wall derives ticks from elapsed wall time since genesis.
type Wall struct {
	genesis  time.Time
	interval time.Duration
	now      func() time.Time
}

func NewWall(genesis time.Time, interval time.Duration) *Wall {
	if interval <= 0 {
		interval = time.Second
	}
	return &Wall{genesis: genesis, interval: interval, now: time.Now}
}

func (w *Wall) Now() uint64 {
	elapsed := w.now().Sub(w.genesis)
	if elapsed < 0 {
		return 1
	}
	return uint64(elapsed/w.interval) + 1
}
