package cmd

import (
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/signalnine/crosscheck/internal/pricing"
	"github.com/signalnine/crosscheck/internal/result"
	"github.com/signalnine/crosscheck/internal/score"
)

var (
	flagFormat  string
	flagPricing string
	flagDetails bool
)

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report [batch-dir]",
		Short: "Print the per-tool leaderboard for a batch",
		Args:  cobra.MaximumNArgs(1),
		RunE:  reportBatch,
	}
	cmd.Flags().StringVar(&flagFormat, "format", "table", "output format ("+strings.Join(score.Formats, ", ")+")")
	cmd.Flags().StringVar(&flagPricing, "pricing", "", "YAML price table for judge token cost")
	cmd.Flags().BoolVar(&flagDetails, "details", false, "list every verdict, not only errors and unknowns")
	return cmd
}

func reportBatch(cmd *cobra.Command, args []string) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	explicit := ""
	if len(args) > 0 {
		explicit = args[0]
	}
	batchDir, err := e.resolveBatch(explicit)
	if err != nil {
		return err
	}
	snap, err := result.Load(batchDir)
	if err != nil {
		return err
	}

	var table *pricing.Table
	if flagPricing != "" {
		if table, err = pricing.Load(flagPricing); err != nil {
			return err
		}
	}

	r := score.Build(snap, score.BuildOpts{
		SampleIDs: e.sampleIDs(batchDir),
		Pricing:   table,
		Model:     e.cfg.Judge.Model,
	})
	out := cmd.OutOrStdout()
	return score.Render(out, r, score.RenderOpts{
		Format:   flagFormat,
		Decorate: isTerminal(out),
		Details:  flagDetails,
	})
}

func isTerminal(w any) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
