package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/blitcore/internal/engine"
	"github.com/roach88/blitcore/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Seq      uint64 // optional - show one blit with its dumps
	Context  string // optional - filter to one submission context
	Outcome  string // optional - filter to one outcome
	From     uint64 // optional - lowest seq shown
	To       uint64 // optional - highest seq shown
}

// TraceEntry is one blit in the trace timeline.
type TraceEntry struct {
	Seq         uint64      `json:"seq"`
	Context     string      `json:"context"`
	Op          string      `json:"op"`
	EffectiveOp string      `json:"effective_op"`
	Outcome     string      `json:"outcome"`
	Error       string      `json:"error,omitempty"`
	Started     bool        `json:"started"`
	Dumps       []TraceDump `json:"dumps,omitempty"`
}

// TraceDump is one postmortem dump attached to a blit.
type TraceDump struct {
	Kind string `json:"kind"`
	Body string `json:"body"`
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	Database string         `json:"database"`
	Timeline []TraceEntry   `json:"timeline"`
	Outcomes map[string]int `json:"outcomes"`
	Stats    TraceStats     `json:"stats"`
}

// TraceStats holds summary statistics for the trace.
type TraceStats struct {
	Total    int    `json:"total"`
	Started  int    `json:"started"`
	MaxSeq   uint64 `json:"max_seq"`
	Faulted  bool   `json:"faulted"`
	Complete bool   `json:"complete"` // no row is left in the started state
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Inspect a recorded blit trace",
		Long: `Read back a trace database written by run or bench.

Shows every blit in sequence order with its requested and effective
operator and its outcome. With --seq, shows one blit together with the
command and register dumps recorded for it.

Examples:
  blitctl trace --db ./trace.db
  blitctl trace --db ./trace.db --outcome failed
  blitctl trace --db ./trace.db --context ctx-2 --from 10 --to 20
  blitctl trace --db ./trace.db --seq 7 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().Uint64Var(&opts.Seq, "seq", 0, "show a single blit and its dumps")
	cmd.Flags().StringVar(&opts.Context, "context", "", "filter to a submission context")
	cmd.Flags().StringVar(&opts.Outcome, "outcome", "", "filter to an outcome")
	cmd.Flags().Uint64Var(&opts.From, "from", 0, "lowest seq to show")
	cmd.Flags().Uint64Var(&opts.To, "to", 0, "highest seq to show")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()

	if opts.Outcome != "" {
		if _, err := engine.ParseOutcome(opts.Outcome); err != nil {
			return WrapExitError(ExitCommandError, "invalid outcome filter", err)
		}
	}

	// store.Open would create a missing file.
	if _, err := os.Stat(opts.Database); err != nil {
		return WrapExitError(ExitCommandError, "database not found", err)
	}
	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	var records []store.BlitRecord
	if opts.Seq != 0 {
		rec, ok, err := st.ReadBlit(ctx, opts.Seq)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read blit", err)
		}
		if !ok {
			return NewExitError(ExitFailure, fmt.Sprintf("no blit with seq %d", opts.Seq))
		}
		records = []store.BlitRecord{rec}
	} else {
		records, err = st.SelectBlits(ctx, opts.filter())
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read blits", err)
		}
	}

	counts, err := st.CountOutcomes(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to count outcomes", err)
	}
	maxSeq, err := st.MaxSeq(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read max seq", err)
	}

	result := TraceResult{
		Database: opts.Database,
		Timeline: []TraceEntry{},
		Outcomes: counts,
		Stats: TraceStats{
			MaxSeq:   maxSeq,
			Faulted:  counts[engine.OutcomeFailed.String()] > 0,
			Complete: counts[store.OutcomeStarted] == 0,
		},
	}

	for _, rec := range records {
		entry := TraceEntry{
			Seq:         rec.Seq,
			Context:     rec.ContextID,
			Op:          rec.Op,
			EffectiveOp: rec.EffectiveOp,
			Outcome:     rec.Outcome,
			Error:       rec.Error,
			Started:     rec.Started,
		}
		if opts.Seq != 0 {
			dumps, err := st.ReadDumps(ctx, rec.Seq)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to read dumps", err)
			}
			for _, d := range dumps {
				entry.Dumps = append(entry.Dumps, TraceDump{Kind: d.Kind, Body: d.Body})
			}
		}
		result.Timeline = append(result.Timeline, entry)
		result.Stats.Total++
		if rec.Started {
			result.Stats.Started++
		}
	}

	if opts.Format == "json" {
		return outputTraceJSON(cmd, result)
	}
	return outputTraceText(cmd, result)
}

// filter builds the SQL predicate for the timeline flags.
func (o *TraceOptions) filter() store.Predicate {
	where := store.And{store.SeqRange{From: o.From, To: o.To}}
	if o.Context != "" {
		where = append(where, store.Equals{Column: "context_id", Value: o.Context})
	}
	if o.Outcome != "" {
		where = append(where, store.Equals{Column: "outcome", Value: o.Outcome})
	}
	return where
}

// outputTraceJSON outputs the trace result as JSON.
func outputTraceJSON(cmd *cobra.Command, result TraceResult) error {
	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(CLIResponse{
		Status: "ok",
		Data:   result,
	})
}

// outputTraceText outputs the trace result as human-readable text.
func outputTraceText(cmd *cobra.Command, result TraceResult) error {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Trace: %s\n", result.Database)
	fmt.Fprintln(w, "═══════════════════════════════════════")

	if len(result.Timeline) == 0 {
		fmt.Fprintln(w, "No blits recorded.")
	}

	for _, e := range result.Timeline {
		hw := " "
		if e.Started {
			hw = "*"
		}
		fmt.Fprintf(w, "[%d]%s %-6s %-10s -> %-10s %s\n", e.Seq, hw, e.Context, e.Op, e.EffectiveOp, e.Outcome)
		if e.Error != "" {
			fmt.Fprintf(w, "      %s\n", e.Error)
		}
		for _, d := range e.Dumps {
			fmt.Fprintf(w, "      ── %s dump ──\n", d.Kind)
			for _, line := range strings.Split(strings.TrimRight(d.Body, "\n"), "\n") {
				fmt.Fprintf(w, "      %s\n", line)
			}
		}
	}

	fmt.Fprintln(w, "───────────────────────────────────────")
	fmt.Fprintf(w, "Shown: %d (%d started hardware), max seq %d\n",
		result.Stats.Total, result.Stats.Started, result.Stats.MaxSeq)

	outcomes := make([]string, 0, len(result.Outcomes))
	for o := range result.Outcomes {
		outcomes = append(outcomes, o)
	}
	sort.Strings(outcomes)
	for _, o := range outcomes {
		fmt.Fprintf(w, "  %-10s %d\n", o, result.Outcomes[o])
	}

	if result.Stats.Faulted {
		fmt.Fprintln(w, "✗ Device faulted")
	}
	if !result.Stats.Complete {
		fmt.Fprintln(w, "⚠ Trace has blits that never finished")
	}
	return nil
}
