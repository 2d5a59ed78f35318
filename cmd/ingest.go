package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/signalnine/crosscheck/internal/result"
	"github.com/signalnine/crosscheck/internal/sample"
)

func newIngestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest [file|-]",
		Short: "Create a new batch from generated text containing code blocks",
		Long: "Extract fenced code blocks from a generator's reply and write them to a new batch's source_files.\n" +
			"A '# id: <name>' line inside a block names the sample file. Reads stdin when no file or '-' is given.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd)
			if err != nil {
				return err
			}

			var data []byte
			if len(args) == 0 || args[0] == "-" {
				data, err = io.ReadAll(cmd.InOrStdin())
			} else {
				data, err = os.ReadFile(args[0])
			}
			if err != nil {
				return fmt.Errorf("reading generated text: %w", err)
			}

			gen := sample.ParseGenerated(string(data))
			if len(gen) == 0 {
				return fmt.Errorf("no code blocks found: %w", sample.ErrNoSamples)
			}

			batchDir, err := result.CreateBatch(e.cfg.Results.Dir, time.Now())
			if err != nil {
				return err
			}
			paths, err := sample.WriteAll(batchDir, sampleExt(e.cfg.Samples.Glob), gen)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created batch %s with %d samples\n", batchDir, len(paths))
			return nil
		},
	}
}

// sampleExt derives the file extension for new samples from the discovery
// glob, so ingested files are found by the next run.
func sampleExt(glob string) string {
	ext := filepath.Ext(glob)
	if ext == "" || strings.ContainsAny(ext, "*?[") {
		return ".py"
	}
	return ext
}
