package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/blitcore/internal/blit"
)

// ReduceOptions holds flags for the reduce command.
type ReduceOptions struct {
	*RootOptions
	Op          string
	Src         string // source format
	Dst         string // destination format
	SrcAddr     string // memory | color
	GlobalAlpha uint8
	SolidColor  string
	Mask        bool
	All         bool
}

// Reduction is one reducer result.
type Reduction struct {
	Op          string `json:"op"`
	EffectiveOp string `json:"effective_op"`
	Reduced     bool   `json:"reduced"`
}

// NewReduceCommand creates the reduce command.
func NewReduceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReduceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "reduce",
		Short: "Show the operator a blit would execute",
		Long: `Reduce a compositing operator against surface opacity.

Reports the cheapest operator producing the same pixels. DST means the
blit would be skipped without starting the hardware.

Examples:
  blitctl reduce --op SRC_OVER --src XRGB_8888
  blitctl reduce --op SRC --src-addr color --solid-color 0xff00ff00
  blitctl reduce --all --src ARGB_8888 --dst XRGB_8888 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReduce(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Op, "op", "SRC_OVER", "requested operator")
	cmd.Flags().StringVar(&opts.Src, "src", "ARGB_8888", "source pixel format")
	cmd.Flags().StringVar(&opts.Dst, "dst", "ARGB_8888", "destination pixel format")
	cmd.Flags().StringVar(&opts.SrcAddr, "src-addr", "memory", "source addressing (memory|color)")
	cmd.Flags().Uint8Var(&opts.GlobalAlpha, "global-alpha", 0xff, "global alpha (0-255)")
	cmd.Flags().StringVar(&opts.SolidColor, "solid-color", "0xff000000", "ARGB solid color for a color source")
	cmd.Flags().BoolVar(&opts.Mask, "mask", false, "composite through a mask")
	cmd.Flags().BoolVar(&opts.All, "all", false, "reduce every operator")

	return cmd
}

func runReduce(opts *ReduceOptions, cmd *cobra.Command) error {
	src, msk, dst, err := opts.surfaces()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid surface", err)
	}

	color, err := strconv.ParseUint(strings.TrimSpace(opts.SolidColor), 0, 32)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid solid color", err)
	}

	ops := blit.Ops()
	if !opts.All {
		op, err := blit.ParseOp(opts.Op)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid operator", err)
		}
		ops = []blit.Op{op}
	}

	results := make([]Reduction, 0, len(ops))
	for _, op := range ops {
		eff := blit.Reduce(op, src, msk, dst, opts.GlobalAlpha, uint32(color), false)
		results = append(results, Reduction{
			Op:          op.String(),
			EffectiveOp: eff.String(),
			Reduced:     eff != op,
		})
	}

	if opts.Format == "json" {
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(CLIResponse{Status: "ok", Data: results})
	}

	if !opts.All {
		fmt.Fprintln(cmd.OutOrStdout(), results[0].EffectiveOp)
		return nil
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "OP\tEFFECTIVE\t")
	for _, r := range results {
		mark := ""
		if r.Reduced {
			mark = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Op, r.EffectiveOp, mark)
	}
	return tw.Flush()
}

// surfaces builds the three slots the reducer inspects. Geometry is
// irrelevant to reduction, so every memory surface is a 1x1 image.
func (o *ReduceOptions) surfaces() (src, msk, dst blit.Surface, err error) {
	srcFmt, err := blit.ParseFormat(o.Src)
	if err != nil {
		return src, msk, dst, err
	}
	dstFmt, err := blit.ParseFormat(o.Dst)
	if err != nil {
		return src, msk, dst, err
	}
	var addr blit.AddrMode
	if err := addr.UnmarshalText([]byte(o.SrcAddr)); err != nil {
		return src, msk, dst, err
	}
	if addr == blit.AddrNone {
		return src, msk, dst, fmt.Errorf("source address mode must be memory or color")
	}

	unit := blit.Rect{X2: 1, Y2: 1}
	src = blit.Surface{Addr: addr, Format: srcFmt, Width: 1, Height: 1, Rect: unit}
	dst = blit.Surface{Addr: blit.AddrMemory, Format: dstFmt, Width: 1, Height: 1, Rect: unit}
	if o.Mask {
		msk = blit.Surface{Addr: blit.AddrMemory, Format: blit.FormatARGB8888, Width: 1, Height: 1, Rect: unit}
	}
	return src, msk, dst, nil
}
