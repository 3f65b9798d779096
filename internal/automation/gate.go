package automation

import (
	"sync/atomic"
	"time"
)

// DefaultActivityWindow is how recent the last activity must be for a gated
// firing to run.
const DefaultActivityWindow = 5 * time.Minute

// Gate tracks the last observed liveness signal and decides whether a gated
// trigger firing may run. In direct mode it always allows.
type Gate struct {
	gated  bool
	window time.Duration
	now    func() time.Time
	last   atomic.Int64 // unix nanos
}

// GateOption configures a Gate.
type GateOption func(*Gate)

// WithGateClock overrides the gate's time source.
func WithGateClock(now func() time.Time) GateOption {
	return func(g *Gate) { g.now = now }
}

// WithActivityWindow overrides DefaultActivityWindow.
func WithActivityWindow(d time.Duration) GateOption {
	return func(g *Gate) {
		if d > 0 {
			g.window = d
		}
	}
}

// NewGate returns a Gate whose activity signal starts at construction time.
func NewGate(gated bool, opts ...GateOption) *Gate {
	g := &Gate{gated: gated, window: DefaultActivityWindow, now: time.Now}
	for _, opt := range opts {
		opt(g)
	}
	g.RecordActivity()
	return g
}

// RecordActivity sets the activity signal to now.
func (g *Gate) RecordActivity() {
	g.last.Store(g.now().UnixNano())
}

// LastActivity returns the last recorded activity.
func (g *Gate) LastActivity() time.Time {
	return time.Unix(0, g.last.Load())
}

// ShouldRun reports whether a firing should proceed: always in direct mode,
// otherwise only when activity was seen within the window.
func (g *Gate) ShouldRun() bool {
	if !g.gated {
		return true
	}
	return g.now().Sub(g.LastActivity()) < g.window
}

// Gated reports whether the gate is in gated mode.
func (g *Gate) Gated() bool {
	return g.gated
}
