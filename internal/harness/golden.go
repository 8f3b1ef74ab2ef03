package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"
)

// TraceSnapshot captures what a scenario execution produced.
type TraceSnapshot struct {
	ScenarioName   string
	Generation     string
	Faulted        bool
	HardwareStarts uint64
	Trace          []TraceEvent
}

// NewSnapshot builds the snapshot of result for scenario.
func NewSnapshot(scenario *Scenario, result *Result) TraceSnapshot {
	return TraceSnapshot{
		ScenarioName:   scenario.Name,
		Generation:     scenario.Generation,
		Faulted:        result.Faulted,
		HardwareStarts: result.HardwareStarts,
		Trace:          result.Trace,
	}
}

// toCanonicalMap converts the snapshot for MarshalCanonical. Empty error
// strings and dump lists are left out.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	trace := make([]any, len(s.Trace))
	for i, ev := range s.Trace {
		m := map[string]any{
			"seq":          ev.Seq,
			"context":      ev.Context,
			"op":           ev.Op,
			"effective_op": ev.EffectiveOp,
			"outcome":      ev.Outcome,
			"started":      ev.Started,
		}
		if ev.Error != "" {
			m["error"] = ev.Error
		}
		if len(ev.Dumps) > 0 {
			m["dumps"] = ev.Dumps
		}
		trace[i] = m
	}

	return map[string]any{
		"scenario":        s.ScenarioName,
		"generation":      s.Generation,
		"faulted":         s.Faulted,
		"hardware_starts": s.HardwareStarts,
		"trace":           trace,
	}
}

// Marshal renders the snapshot as canonical JSON.
func (s *TraceSnapshot) Marshal() ([]byte, error) {
	return MarshalCanonical(s.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares the trace against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if trace doesn't match golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}

	if err := AssertGolden(t, scenario, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares the given result's trace against a golden file
// without re-running the scenario.
func AssertGolden(t *testing.T, scenario *Scenario, result *Result) error {
	t.Helper()

	snapshot := NewSnapshot(scenario, result)
	traceJSON, err := snapshot.Marshal()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, traceJSON)

	return nil
}
