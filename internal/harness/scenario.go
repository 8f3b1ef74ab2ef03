package harness

import (
	"bytes"
	"fmt"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/blitcore/internal/blit"
	"github.com/roach88/blitcore/internal/device"
	"github.com/roach88/blitcore/internal/engine"
)

// DefaultTimeout is the completion wait used when a scenario sets none.
// It is far below engine.DefaultTimeout so fault scenarios stay fast.
const DefaultTimeout = 50 * time.Millisecond

// Scenario defines one engine run and what it must produce.
type Scenario struct {
	// Name uniquely identifies this scenario. It names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Generation selects the device (see device.Names).
	Generation string `yaml:"generation"`

	// Timeout bounds each completion wait. Default: DefaultTimeout.
	Timeout time.Duration `yaml:"timeout,omitempty"`

	// Latency is the emulated transfer time. Zero keeps the device default.
	Latency time.Duration `yaml:"latency,omitempty"`

	// Faults arms device faults by command index.
	Faults Faults `yaml:"faults,omitempty"`

	// Buffers pre-fills soft memory. Surfaces not listed here are
	// allocated zeroed on first use.
	Buffers []Buffer `yaml:"buffers,omitempty"`

	// Commands are submitted in order.
	Commands []CommandStep `yaml:"commands"`

	// Assertions validate the final trace and state.
	Assertions []Assertion `yaml:"assertions"`
}

// Faults lists command indexes per injected fault.
type Faults struct {
	Hang    []int `yaml:"hang,omitempty"`
	LostIRQ []int `yaml:"lost_irq,omitempty"`
}

// Buffer is an initial soft memory buffer.
type Buffer struct {
	DMA    uint64 `yaml:"dma"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	Fill   uint32 `yaml:"fill"`
}

// CommandStep is one submitted command.
type CommandStep struct {
	// Context names the submission context. Contexts are created in order
	// of first use.
	Context string       `yaml:"context"`
	Op      blit.Op      `yaml:"op"`
	Params  blit.Params  `yaml:"params"`
	Src     blit.Surface `yaml:"src"`
	Msk     blit.Surface `yaml:"msk"`
	Dst     blit.Surface `yaml:"dst"`
}

// UnmarshalYAML defaults global_alpha to 0xff when the step leaves it out.
func (c *CommandStep) UnmarshalYAML(n *yaml.Node) error {
	type plain CommandStep
	p := plain{Params: blit.Params{GlobalAlpha: 0xff}}
	if err := n.Decode(&p); err != nil {
		return err
	}
	*c = CommandStep(p)
	return nil
}

// Command builds the blit command for this step.
func (c CommandStep) Command() *blit.Command {
	return &blit.Command{
		Op:     c.Op,
		Params: c.Params,
		Src:    c.Src,
		Msk:    c.Msk,
		Dst:    c.Dst,
	}
}

// Assertion validates the trace or final state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Command is a command index (outcome, effective_op).
	Command int `yaml:"command,omitempty"`

	// Outcome is an outcome name (outcome, outcome_count).
	Outcome string `yaml:"outcome,omitempty"`

	// Op is an operator name (effective_op).
	Op string `yaml:"op,omitempty"`

	// Count is the expected number (outcome_count, hardware_starts).
	Count int `yaml:"count,omitempty"`

	// Faulted is the expected sticky error (engine_error).
	Faulted bool `yaml:"faulted,omitempty"`

	// Buffer, X, Y and Color address one soft memory pixel (pixel).
	Buffer uint64 `yaml:"buffer,omitempty"`
	X      int    `yaml:"x,omitempty"`
	Y      int    `yaml:"y,omitempty"`
	Color  uint32 `yaml:"color,omitempty"`
}

// Assertion type constants.
const (
	AssertOutcome        = "outcome"
	AssertOutcomeCount   = "outcome_count"
	AssertEffectiveOp    = "effective_op"
	AssertEngineError    = "engine_error"
	AssertHardwareStarts = "hardware_starts"
	AssertPixel          = "pixel"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if !slices.Contains(device.Names(), s.Generation) {
		return fmt.Errorf("unknown generation %q (have %v)", s.Generation, device.Names())
	}

	if s.Timeout < 0 || s.Latency < 0 {
		return fmt.Errorf("timeout and latency must not be negative")
	}

	if len(s.Commands) == 0 {
		return fmt.Errorf("commands list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Commands {
		if step.Context == "" {
			return fmt.Errorf("commands[%d]: context is required", i)
		}
		if !step.Op.Valid() {
			return fmt.Errorf("commands[%d]: undefined operator", i)
		}
	}

	for name, idx := range map[string][]int{"hang": s.Faults.Hang, "lost_irq": s.Faults.LostIRQ} {
		for _, i := range idx {
			if i < 0 || i >= len(s.Commands) {
				return fmt.Errorf("faults.%s: command %d out of range", name, i)
			}
		}
	}

	for i, b := range s.Buffers {
		if b.Width <= 0 || b.Height <= 0 {
			return fmt.Errorf("buffers[%d]: invalid size %dx%d", i, b.Width, b.Height)
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i], len(s.Commands)); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion, commands int) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertOutcome, AssertEffectiveOp:
		if a.Command < 0 || a.Command >= commands {
			return fmt.Errorf("assertions[%d]: command %d out of range", index, a.Command)
		}
		if a.Type == AssertOutcome {
			if _, err := engine.ParseOutcome(a.Outcome); err != nil {
				return fmt.Errorf("assertions[%d]: %w", index, err)
			}
		} else if _, err := blit.ParseOp(a.Op); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
	case AssertOutcomeCount:
		if _, err := engine.ParseOutcome(a.Outcome); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for outcome_count", index)
		}
	case AssertHardwareStarts:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for hardware_starts", index)
		}
	case AssertEngineError, AssertPixel:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
