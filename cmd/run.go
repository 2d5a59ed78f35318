package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/signalnine/crosscheck/internal/logging"
	"github.com/signalnine/crosscheck/internal/result"
	"github.com/signalnine/crosscheck/internal/runner"
	"github.com/signalnine/crosscheck/internal/sample"
)

var (
	flagRunBatch    string
	flagRunParallel int
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run every registered tool over the samples of a batch",
		Args:  cobra.NoArgs,
		RunE:  runTools,
	}
	cmd.Flags().StringVar(&flagRunBatch, "batch", "", "batch directory (default: most recent)")
	cmd.Flags().IntVar(&flagRunParallel, "parallel", 0, "max concurrent tool runs (default from config)")
	return cmd
}

func runTools(cmd *cobra.Command, args []string) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	batchDir, err := e.resolveBatch(flagRunBatch)
	if err != nil {
		return err
	}
	samples, err := sample.Discover(batchDir, e.cfg.Samples.Glob)
	if err != nil {
		return err
	}
	store, err := result.OpenStore(batchDir)
	if err != nil {
		return err
	}

	parallel := e.cfg.Run.Parallel
	if flagRunParallel > 0 {
		parallel = flagRunParallel
	}
	log := logging.Category(e.log, "runner")
	log.Infof("running %d tools over %d samples in %s", len(e.cfg.Tools), len(samples), batchDir)

	r := runner.New(log, e.metrics)
	sum, err := r.RunBatch(contextOf(cmd), runner.RunOpts{
		Store:    store,
		Tools:    e.cfg.Tools,
		Samples:  samples,
		Parallel: parallel,
	})
	e.writeMetrics(batchDir)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Recorded %d outcomes in %s\n", sum.Recorded, store.Dir())
	for _, st := range []result.Status{result.StatusSuccess, result.StatusIssuesFound, result.StatusError, result.StatusTimeout, result.StatusNotFound} {
		if n := sum.ByStatus[st]; n > 0 {
			fmt.Fprintf(out, "  %-13s %d\n", st, n)
		}
	}
	return nil
}
