package cli

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/blitcore/internal/blit"
	"github.com/roach88/blitcore/internal/device"
	"github.com/roach88/blitcore/internal/device/soft"
	"github.com/roach88/blitcore/internal/engine"
	"github.com/roach88/blitcore/internal/store"
)

// BenchOptions holds flags for the bench command.
type BenchOptions struct {
	*RootOptions
	Count    int
	Workers  int
	Size     int
	Database string
	Progress bool
}

// BenchResult is the bench command's report.
type BenchResult struct {
	Generation     string         `json:"generation"`
	Blits          int            `json:"blits"`
	Workers        int            `json:"workers"`
	ElapsedMS      int64          `json:"elapsed_ms"`
	BlitsPerSecond float64        `json:"blits_per_second"`
	HardwareStarts uint64         `json:"hardware_starts"`
	Faulted        bool           `json:"faulted"`
	Outcomes       map[string]int `json:"outcomes"`
}

// benchOps is the operator mix each worker cycles through. DST exercises
// the skip path; SRC from a color source reduces to a solid fill.
var benchOps = []blit.Op{blit.OpSrcOver, blit.OpSrc, blit.OpAdd, blit.OpDst, blit.OpSolidFill}

// NewBenchCommand creates the bench command.
func NewBenchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BenchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Measure dispatch throughput",
		Long: `Submit blits from concurrent contexts and report throughput.

Each worker owns one submission context and its own destination buffer.
The device generation, latency and timeout come from --profile.

Examples:
  blitctl bench --count 1000 --workers 4
  blitctl bench --profile ./soft.cue --size 64 --format json
  blitctl bench --db ./bench.db --count 200`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBench(opts, cmd)
		},
	}

	cmd.Flags().IntVarP(&opts.Count, "count", "n", 500, "total number of blits")
	cmd.Flags().IntVarP(&opts.Workers, "workers", "w", 4, "number of concurrent submission contexts")
	cmd.Flags().IntVar(&opts.Size, "size", 32, "edge length of each square surface in pixels")
	cmd.Flags().StringVar(&opts.Database, "db", "", "record the trace to this SQLite database")
	cmd.Flags().BoolVar(&opts.Progress, "progress", true, "show a progress bar on stderr")

	return cmd
}

// benchTracer counts outcomes and advances the progress bar.
type benchTracer struct {
	mu       sync.Mutex
	outcomes map[engine.Outcome]int
	bar      *progressbar.ProgressBar
}

func (b *benchTracer) BlitStart(*blit.Command) {}

func (b *benchTracer) BlitEnd(rec engine.TraceRecord) {
	b.mu.Lock()
	b.outcomes[rec.Outcome]++
	b.mu.Unlock()
	if b.bar != nil {
		_ = b.bar.Add(1)
	}
}

func (b *benchTracer) counts() map[string]int {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[string]int, len(b.outcomes))
	for o, n := range b.outcomes {
		out[o.String()] = n
	}
	return out
}

func runBench(opts *BenchOptions, cmd *cobra.Command) error {
	if opts.Count <= 0 || opts.Workers <= 0 || opts.Size <= 0 {
		return NewExitError(ExitCommandError, "count, workers and size must be positive")
	}
	if opts.Workers > opts.Count {
		opts.Workers = opts.Count
	}

	profile, err := opts.LoadProfile()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	tracer := &benchTracer{outcomes: make(map[engine.Outcome]int)}
	if opts.Progress && opts.Format != "json" {
		tracer.bar = progressbar.NewOptions64(int64(opts.Count),
			progressbar.OptionSetWriter(cmd.ErrOrStderr()),
			progressbar.OptionSetDescription("blits"),
			progressbar.OptionShowCount(),
			progressbar.OptionThrottle(65*time.Millisecond),
		)
		defer tracer.bar.Close()
	}

	tracers := engine.MultiTracer{tracer}
	devCfg := profile.DeviceConfig()
	devCfg.Memory = soft.NewMemory()

	engOpts := []engine.Option{engine.WithTimeout(profile.Timeout)}

	dbPath := opts.Database
	if dbPath == "" {
		dbPath = profile.TraceDB
	}
	if dbPath != "" {
		st, err := store.Open(dbPath)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer st.Close()
		base, err := st.MaxSeq(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read trace position", err)
		}
		rec := store.NewRecorder(ctx, st)
		devCfg.Dumps = rec
		tracers = append(tracers, rec)
		engOpts = append(engOpts,
			engine.WithDiagnostics(rec),
			engine.WithClock(engine.NewClockAt(base)),
		)
		defer func() {
			if err := rec.Err(); err != nil {
				slog.Error("trace store write failed", "error", err)
			}
		}()
	}

	dev, err := device.Open(profile.Generation, devCfg)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open device", err)
	}
	engOpts = append(engOpts, engine.WithPower(dev.Power()), engine.WithTracer(tracers))
	eng := engine.New(dev, engOpts...)
	defer eng.Close()

	slog.Debug("bench starting",
		"generation", profile.Generation,
		"count", opts.Count,
		"workers", opts.Workers,
	)

	devCfg.Memory.Ensure(benchSource(opts.Size))

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	for w := range opts.Workers {
		n := opts.Count / opts.Workers
		if w < opts.Count%opts.Workers {
			n++
		}
		g.Go(func() error {
			c := eng.NewContext()
			for i := range n {
				if err := eng.Submit(c, benchCommand(w, i, opts.Size, devCfg.Memory)); err != nil {
					return fmt.Errorf("worker %d: %w", w, err)
				}
			}
			return c.Wait(gctx)
		})
	}
	if err := g.Wait(); err != nil {
		return WrapExitError(ExitFailure, "bench failed", err)
	}
	select {
	case <-eng.Idle():
	case <-ctx.Done():
		return WrapExitError(ExitFailure, "bench interrupted", ctx.Err())
	}
	elapsed := time.Since(start)

	result := BenchResult{
		Generation:     profile.Generation,
		Blits:          opts.Count,
		Workers:        opts.Workers,
		ElapsedMS:      elapsed.Milliseconds(),
		BlitsPerSecond: float64(opts.Count) / elapsed.Seconds(),
		HardwareStarts: eng.State().Starts(),
		Faulted:        eng.State().Faulted(),
		Outcomes:       tracer.counts(),
	}

	if opts.Format == "json" {
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(CLIResponse{Status: "ok", Data: result}); err != nil {
			return err
		}
	} else {
		outputBenchText(cmd, result)
	}

	if result.Faulted {
		return NewExitError(ExitFailure, "device faulted during bench")
	}
	return nil
}

// benchSource is the memory source every worker reads.
func benchSource(size int) blit.Surface {
	return blit.Surface{
		Addr:   blit.AddrMemory,
		Format: blit.FormatARGB8888,
		Width:  size,
		Height: size,
		Rect:   blit.Rect{X2: size, Y2: size},
		DMA:    0x1000,
	}
}

// benchCommand builds the i-th command of worker w. Each worker writes its
// own destination buffer.
func benchCommand(w, i, size int, mem *soft.Memory) *blit.Command {
	src := benchSource(size)
	dst := src
	dst.DMA = 0x10000 + uint64(w)*0x1000

	op := benchOps[i%len(benchOps)]
	params := blit.Params{GlobalAlpha: 0xff, SolidColor: 0xff3366cc}
	if op == blit.OpSolidFill {
		op = blit.OpSrc
		src = blit.Surface{Addr: blit.AddrColor, Format: blit.FormatARGB8888}
	}

	mem.Ensure(dst)
	return &blit.Command{Op: op, Params: params, Src: src, Dst: dst}
}

func outputBenchText(cmd *cobra.Command, r BenchResult) {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Bench: %s, %d blits, %d workers\n", r.Generation, r.Blits, r.Workers)
	fmt.Fprintln(w, "───────────────────────────────────────")
	fmt.Fprintf(w, "Elapsed:         %dms\n", r.ElapsedMS)
	fmt.Fprintf(w, "Throughput:      %.1f blits/s\n", r.BlitsPerSecond)
	fmt.Fprintf(w, "Hardware starts: %d\n", r.HardwareStarts)

	outcomes := make([]string, 0, len(r.Outcomes))
	for o := range r.Outcomes {
		outcomes = append(outcomes, o)
	}
	sort.Strings(outcomes)
	for _, o := range outcomes {
		fmt.Fprintf(w, "  %-10s %d\n", o, r.Outcomes[o])
	}

	if r.Faulted {
		fmt.Fprintln(w, "✗ Device faulted")
		return
	}
	fmt.Fprintln(w, "✓ No faults")
}
