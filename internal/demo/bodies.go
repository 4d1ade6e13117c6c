// Package demo holds the task bodies run by the demo binary.
package demo

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/evan-idocoding/rtobj/rt/kernel"
	"github.com/evan-idocoding/rtobj/rt/taskobj"
)

var (
	_ taskobj.Runner = (*Counter)(nil)
	_ taskobj.Runner = (*Heartbeat)(nil)
)

// Counter increments Count every Every ticks.
type Counter struct {
	Every uint64

	count atomic.Uint64
}

// NewCounter returns a Counter. every == 0 means 1.
func NewCounter(every uint64) *Counter {
	return &Counter{Every: max(every, 1)}
}

func (c *Counter) Task(ctx context.Context) {
	for {
		kernel.Delay(ctx, c.Every)
		c.count.Add(1)
	}
}

// Count returns the number of completed periods.
func (c *Counter) Count() uint64 { return c.count.Load() }

// Heartbeat logs a beat every Every ticks.
type Heartbeat struct {
	Every  uint64
	Logger *slog.Logger

	beats atomic.Uint64
}

// NewHeartbeat returns a Heartbeat. every == 0 means 1; a nil logger means slog.Default().
func NewHeartbeat(every uint64, l *slog.Logger) *Heartbeat {
	if l == nil {
		l = slog.Default()
	}
	return &Heartbeat{Every: max(every, 1), Logger: l}
}

func (h *Heartbeat) Task(ctx context.Context) {
	name := ""
	if self, ok := taskobj.Self(ctx); ok {
		name = self.Name()
	}
	for {
		kernel.Delay(ctx, h.Every)
		n := h.beats.Add(1)
		h.Logger.Info("heartbeat", "task", name, "beat", n)
	}
}

// Beats returns the number of beats so far.
func (h *Heartbeat) Beats() uint64 { return h.beats.Load() }
