// Package device selects an accelerator generation by name.
package device

import (
	"fmt"
	"sort"
	"time"

	"github.com/roach88/blitcore/internal/device/g2d4x"
	"github.com/roach88/blitcore/internal/device/hw"
	"github.com/roach88/blitcore/internal/device/soft"
	"github.com/roach88/blitcore/internal/engine"
)

// Device is an operations table plus the controls every generation offers.
type Device interface {
	engine.Ops
	engine.InterruptSource

	// Power returns the clock gate to hand to engine.WithPower.
	Power() engine.Power
	// InjectFault arms f for the command with sequence number seq.
	InjectFault(seq uint64, f hw.Fault)
}

// Config selects and parameterizes a generation.
type Config struct {
	// Latency is the emulated transfer time. Zero keeps the generation's
	// default.
	Latency time.Duration
	// Memory backs the soft generation. Nil allocates a fresh one.
	Memory *soft.Memory
	// Dumps receives register dumps in addition to the log.
	Dumps hw.DumpSink
}

type factory func(Config) Device

var generations = map[string]factory{
	g2d4x.Name: func(c Config) Device {
		var opts []g2d4x.Option
		if c.Latency > 0 {
			opts = append(opts, g2d4x.WithLatency(c.Latency))
		}
		if c.Dumps != nil {
			opts = append(opts, g2d4x.WithDumpSink(c.Dumps))
		}
		return g2d4x.New(opts...)
	},
	soft.Name: func(c Config) Device {
		var opts []soft.Option
		if c.Latency > 0 {
			opts = append(opts, soft.WithLatency(c.Latency))
		}
		if c.Dumps != nil {
			opts = append(opts, soft.WithDumpSink(c.Dumps))
		}
		return soft.New(c.Memory, opts...)
	},
}

// Open creates the named generation.
func Open(name string, cfg Config) (Device, error) {
	f, ok := generations[name]
	if !ok {
		return nil, fmt.Errorf("unknown device generation %q (have %v)", name, Names())
	}
	return f(cfg), nil
}

// Names lists the registered generations.
func Names() []string {
	names := make([]string, 0, len(generations))
	for n := range generations {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
