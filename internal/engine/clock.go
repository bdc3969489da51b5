// Package engine owns the game state: every player action and the working-day
// countdown run through a Game.
package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Clock drives the working-day countdown. Each tick takes HoursPerTick off
// the day; the loop ends when OnTick reports the day is over, when Stop is
// called, or when the context is cancelled.
type Clock struct {
	Interval     time.Duration // Real time between ticks (default 1 second)
	HoursPerTick float64       // Game hours removed per tick

	// OnTick applies one tick and reports whether time remains.
	OnTick func(hours float64) bool
	// OnExpire runs on its own goroutine once the day has run out.
	OnExpire func()

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	started  bool
	mu       sync.Mutex
}

// NewClock creates a countdown clock.
func NewClock(interval time.Duration, hoursPerTick float64, onTick func(float64) bool) *Clock {
	if interval <= 0 {
		interval = time.Second
	}
	return &Clock{
		Interval:     interval,
		HoursPerTick: hoursPerTick,
		OnTick:       onTick,
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
	}
}

// Start runs the loop on a new goroutine.
func (c *Clock) Start(ctx context.Context) {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.mu.Unlock()

	go c.run(ctx)
}

func (c *Clock) run(ctx context.Context) {
	defer close(c.done)

	ticker := time.NewTicker(c.Interval)
	defer ticker.Stop()

	slog.Debug("day clock started", "interval", c.Interval, "hours_per_tick", c.HoursPerTick)
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stop:
			return
		case <-ticker.C:
			if !c.OnTick(c.HoursPerTick) {
				slog.Debug("day clock ran out")
				if c.OnExpire != nil {
					go c.OnExpire()
				}
				return
			}
		}
	}
}

// Stop halts the loop and waits for it to exit. It is safe to call more
// than once, and on a clock that was never started.
func (c *Clock) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })

	c.mu.Lock()
	started := c.started
	c.mu.Unlock()
	if started {
		<-c.done
	}
}
