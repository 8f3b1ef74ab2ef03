package cli

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/blitcore/internal/harness"
	"github.com/roach88/blitcore/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
}

// RunOutput is the JSON payload of the run command.
type RunOutput struct {
	Scenario       string               `json:"scenario"`
	Generation     string               `json:"generation"`
	Database       string               `json:"database"`
	Pass           bool                 `json:"pass"`
	Faulted        bool                 `json:"faulted"`
	HardwareStarts uint64               `json:"hardware_starts"`
	Trace          []harness.TraceEvent `json:"trace"`
	Errors         []string             `json:"errors,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario>",
		Short: "Run one blit scenario and record its trace",
		Long: `Submit every command of a scenario file to the dispatch engine and
print the outcome of each blit.

The trace is written to the SQLite database named by --db, or by the
profile's trace_db. Without either it lives in memory. Sequence numbers
continue after the highest one already recorded, so one database can
collect many runs.

The scenario fixes the device: its generation, timeout and latency are used
as written. A --profile contributes only its trace_db.

Exit codes:
  0 - Scenario ran and every assertion held
  1 - An assertion failed
  2 - Command error (unreadable scenario, database error)

Examples:
  blitctl run ./scenarios/hang.yaml
  blitctl run --db ./trace.db ./scenarios/hang.yaml
  blitctl run --profile ./lab.toml --format json ./scenarios/fill.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarioFile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite trace database (default: profile trace_db, else in-memory)")

	return cmd
}

func runScenarioFile(opts *RunOptions, path string, cmd *cobra.Command) error {
	profile, err := opts.LoadProfile()
	if err != nil {
		return err
	}

	scenario, err := harness.LoadScenario(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}

	dbPath := opts.Database
	if dbPath == "" {
		dbPath = profile.TraceDB
	}
	if dbPath == "" {
		dbPath = ":memory:"
	}

	slog.Debug("opening trace database", "path", dbPath)
	st, err := store.Open(dbPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	result, err := harness.RunInStore(cmd.Context(), st, scenario)
	if err != nil {
		return WrapExitError(ExitCommandError, "scenario execution failed", err)
	}

	out := RunOutput{
		Scenario:       scenario.Name,
		Generation:     scenario.Generation,
		Database:       dbPath,
		Pass:           result.Pass,
		Faulted:        result.Faulted,
		HardwareStarts: result.HardwareStarts,
		Trace:          result.Trace,
		Errors:         result.Errors,
	}

	if opts.Format == "json" {
		if err := outputRunJSON(cmd, out); err != nil {
			return err
		}
	} else {
		outputRunText(cmd, out)
	}

	if !result.Pass {
		return NewExitError(ExitFailure, fmt.Sprintf("scenario %s failed %d assertion(s)", scenario.Name, len(result.Errors)))
	}
	return nil
}

func outputRunJSON(cmd *cobra.Command, out RunOutput) error {
	response := CLIResponse{Status: "ok", Data: out}
	if !out.Pass {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    ErrCodeTestFailed,
			Message: fmt.Sprintf("%d assertion(s) failed", len(out.Errors)),
		}
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(response)
}

func outputRunText(cmd *cobra.Command, out RunOutput) {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Scenario: %s (%s)\n", out.Scenario, out.Generation)
	fmt.Fprintln(w, "───────────────────────────────────────")
	for _, ev := range out.Trace {
		fmt.Fprintf(w, "[%d] %-6s %-10s -> %-10s %s", ev.Seq, ev.Context, ev.Op, ev.EffectiveOp, ev.Outcome)
		if ev.Error != "" {
			fmt.Fprintf(w, ": %s", ev.Error)
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintln(w, "───────────────────────────────────────")
	fmt.Fprintf(w, "Hardware starts: %d\n", out.HardwareStarts)
	if out.Faulted {
		fmt.Fprintln(w, "Engine faulted: yes")
	}

	if out.Pass {
		fmt.Fprintln(w, "✓ All assertions passed")
		return
	}
	fmt.Fprintln(w, "✗ Assertions failed:")
	for _, e := range out.Errors {
		fmt.Fprintf(w, "  %s\n", e)
	}
}
