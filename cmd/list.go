package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/signalnine/crosscheck/internal/result"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered tools and known batches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			fmt.Fprintln(out, "Tools:")
			for _, t := range e.cfg.Tools {
				where := "local"
				if t.Image != "" {
					where = "image: " + t.Image
				}
				fmt.Fprintf(out, "  - %s: %s (%s, timeout %s)\n", t.Name, strings.Join(t.Command, " "), where, t.Timeout)
			}

			fmt.Fprintf(out, "\nBatches in %s:\n", e.cfg.Results.Dir)
			dirs, err := result.ListBatches(e.cfg.Results.Dir)
			if err != nil && !errors.Is(err, result.ErrNoBatches) {
				return err
			}
			if len(dirs) == 0 {
				fmt.Fprintln(out, "  (none)")
			}
			for _, dir := range dirs {
				snap, err := result.Load(dir)
				if err != nil {
					fmt.Fprintf(out, "  - %s (%d samples, not run)\n", result.BatchID(dir), len(e.sampleIDs(dir)))
					continue
				}
				fmt.Fprintf(out, "  - %s (%d samples, %d outcomes, %d verdicts)\n",
					snap.ID(), len(snap.Doc.Results), len(snap.Outcomes()), len(snap.Verdicts()))
			}
			return nil
		},
	}
}
