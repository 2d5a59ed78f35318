package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/signalnine/crosscheck/internal/judge"
	"github.com/signalnine/crosscheck/internal/logging"
	"github.com/signalnine/crosscheck/internal/result"
	"github.com/signalnine/crosscheck/internal/runner"
)

var (
	flagJudgeBatch    string
	flagJudgeParallel int
	flagJudgeForce    bool
)

func newJudgeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "judge",
		Short: "Ask the judge model to classify every recorded outcome",
		Long: "Send each recorded tool outcome, with the sample stripped of comments, to the judge model and record its verdict.\n" +
			"Pairs that already have a verdict are skipped unless it is ERROR or --force is given.",
		Args: cobra.NoArgs,
		RunE: judgeOutcomes,
	}
	cmd.Flags().StringVar(&flagJudgeBatch, "batch", "", "batch directory (default: most recent)")
	cmd.Flags().IntVar(&flagJudgeParallel, "parallel", 0, "max concurrent judge calls (default from config)")
	cmd.Flags().BoolVar(&flagJudgeForce, "force", false, "re-judge pairs that already have a verdict")
	return cmd
}

func judgeOutcomes(cmd *cobra.Command, args []string) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	batchDir, err := e.resolveBatch(flagJudgeBatch)
	if err != nil {
		return err
	}
	if _, err := result.Load(batchDir); err != nil {
		return err
	}
	store, err := result.OpenStore(batchDir)
	if err != nil {
		return err
	}

	client, err := judge.New(e.cfg.Judge, os.Getenv(e.cfg.Judge.APIKeyEnv), judge.Options{
		Log:     logging.Category(e.log, "judge"),
		Metrics: e.metrics,
	})
	if err != nil {
		return err
	}

	parallel := e.cfg.Judge.Parallel
	if flagJudgeParallel > 0 {
		parallel = flagJudgeParallel
	}
	log := logging.Category(e.log, "runner")
	log.Infof("judging %s with %s", batchDir, e.cfg.Judge.Model)

	r := runner.New(log, e.metrics)
	sum, err := r.JudgeBatch(contextOf(cmd), runner.JudgeOpts{
		Store:     store,
		Judge:     client,
		Parallel:  parallel,
		Force:     flagJudgeForce,
		SampleIDs: e.sampleIDs(batchDir),
	})
	e.writeMetrics(batchDir)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Judged %d outcomes (%d already judged)\n", sum.Judged, sum.Skipped)
	for _, l := range []result.Label{result.LabelCorrect, result.LabelIncorrect, result.LabelUnknown, result.LabelError} {
		if n := sum.ByLabel[l]; n > 0 {
			fmt.Fprintf(out, "  %-9s %d\n", l, n)
		}
	}
	if len(sum.Pending) > 0 {
		fmt.Fprintf(out, "%d pairs have no outcome yet; run `crosscheck run` first\n", len(sum.Pending))
	}
	return nil
}
