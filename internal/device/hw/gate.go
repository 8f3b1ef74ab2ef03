package hw

import (
	"log/slog"
	"sync"
)

// ClockGate is a reference-counted clock enable. It implements
// engine.Power: the drain loop holds one reference per activation.
type ClockGate struct {
	name string

	mu      sync.Mutex
	refs    int
	enables int
}

// NewClockGate creates a gated-off clock for the named device.
func NewClockGate(name string) *ClockGate {
	return &ClockGate{name: name}
}

// Acquire takes a reference, ungating the clock on the first one.
func (g *ClockGate) Acquire() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.refs++
	if g.refs == 1 {
		g.enables++
		slog.Debug("clock on", "device", g.name)
	}
}

// Release drops a reference, gating the clock when none remain.
func (g *ClockGate) Release() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.refs == 0 {
		slog.Error("clock released while gated", "device", g.name)
		return
	}
	g.refs--
	if g.refs == 0 {
		slog.Debug("clock off", "device", g.name)
	}
}

// On reports whether the clock is ungated.
func (g *ClockGate) On() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.refs > 0
}

// Enables returns how many times the clock has been ungated.
func (g *ClockGate) Enables() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.enables
}
