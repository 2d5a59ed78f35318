package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/signalnine/crosscheck/internal/config"
	"github.com/signalnine/crosscheck/internal/logging"
	"github.com/signalnine/crosscheck/internal/metrics"
	"github.com/signalnine/crosscheck/internal/result"
	"github.com/signalnine/crosscheck/internal/sample"
	"github.com/signalnine/crosscheck/internal/secrets"
)

var (
	cfgFile         string
	flagLogLevel    string
	flagMetricsAddr string
)

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "crosscheck",
		Short:         "Differential evaluation harness for static analysis tools",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "crosscheck.yaml", "config file path")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flagMetricsAddr, "metrics-addr", "", "serve prometheus metrics on this address while running")
	root.AddCommand(newRunCmd())
	root.AddCommand(newJudgeCmd())
	root.AddCommand(newReportCmd())
	root.AddCommand(newListCmd())
	root.AddCommand(newIngestCmd())
	return root
}

// env is what every subcommand needs after flag parsing.
type env struct {
	cfg     *config.Config
	log     *logrus.Logger
	metrics *metrics.Metrics
}

func setup(cmd *cobra.Command) (*env, error) {
	cfg, err := config.LoadOrDefault(cfgFile, cmd.Root().PersistentFlags().Changed("config"))
	if err != nil {
		return nil, err
	}
	log, err := logging.New(cmd.ErrOrStderr(), flagLogLevel)
	if err != nil {
		return nil, err
	}

	if cfg.Secrets.EnvFile != "" {
		if _, err := secrets.Apply(cfg.Secrets.EnvFile); err != nil {
			log.Warnf("could not load secrets: %v", err)
		}
	}

	e := &env{cfg: cfg, log: log, metrics: metrics.New()}
	if flagMetricsAddr != "" {
		go func() {
			if err := e.metrics.Serve(contextOf(cmd), flagMetricsAddr); err != nil {
				log.Warnf("metrics endpoint: %v", err)
			}
		}()
	}
	return e, nil
}

// resolveBatch returns the explicit batch directory, or the most recent one
// under the results dir.
func (e *env) resolveBatch(explicit string) (string, error) {
	if explicit == "" {
		return result.LatestBatchDir(e.cfg.Results.Dir)
	}
	info, err := os.Stat(explicit)
	if err != nil {
		return "", fmt.Errorf("batch %s: %w", explicit, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("batch %s: not a directory", explicit)
	}
	return filepath.Abs(explicit)
}

// sampleIDs lists the samples on disk; a batch without samples yields nil.
func (e *env) sampleIDs(batchDir string) []string {
	samples, err := sample.Discover(batchDir, e.cfg.Samples.Glob)
	if err != nil {
		if !errors.Is(err, sample.ErrNoSamples) {
			e.log.Debugf("discovering samples: %v", err)
		}
		return nil
	}
	ids := make([]string, len(samples))
	for i, s := range samples {
		ids[i] = s.ID
	}
	return ids
}

func (e *env) writeMetrics(batchDir string) {
	if err := e.metrics.WriteTextfile(filepath.Join(batchDir, result.MetricsFile)); err != nil {
		e.log.Warnf("%v", err)
	}
}

func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
