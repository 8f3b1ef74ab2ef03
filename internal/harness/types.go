package harness

// TraceEvent is one command as recorded by the trace store.
type TraceEvent struct {
	Seq         uint64   `json:"seq"`
	Context     string   `json:"context"`
	Op          string   `json:"op"`
	EffectiveOp string   `json:"effective_op"`
	Outcome     string   `json:"outcome"`
	Error       string   `json:"error,omitempty"`
	Started     bool     `json:"started"`
	Dumps       []string `json:"dumps,omitempty"` // dump kinds, in write order
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every assertion held.
	Pass bool `json:"pass"`

	// Trace holds one event per submitted command, in seq order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains assertion failure messages.
	Errors []string `json:"errors,omitempty"`

	// Faulted is the sticky engine error after the run.
	Faulted bool `json:"faulted"`

	// HardwareStarts counts device starts.
	HardwareStarts uint64 `json:"hardware_starts"`

	// Base is the highest seq in the store before the run. Command i has
	// seq Base+i+1.
	Base uint64 `json:"base,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Event returns the trace event for the command at index, if any.
func (r *Result) Event(index int) (TraceEvent, bool) {
	seq := r.Base + uint64(index+1)
	for _, ev := range r.Trace {
		if ev.Seq == seq {
			return ev, true
		}
	}
	return TraceEvent{}, false
}
