package cmd

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/redactor/internal/batch"
	"github.com/MeKo-Tech/redactor/internal/config"
	"github.com/MeKo-Tech/redactor/internal/pipeline"
)

// batchCmd represents the batch command for redacting many documents.
var batchCmd = &cobra.Command{
	Use:   "batch <dir|file>...",
	Short: "Redact many PDF documents in parallel",
	Long: `Redact every PDF found in the given files and directories. Documents are
processed concurrently, each with its own result; a failing document does not
stop the others unless --continue-on-error=false.

Examples:
  redactor batch bids/
  redactor batch bids/ --recursive --workers 8 --output-dir redacted
  redactor batch a.pdf b.pdf --format csv --report results.csv`,
	Args:         cobra.MinimumNArgs(1),
	SilenceUsage: true,
	RunE:         runBatchCommand,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().String("output-dir", "", "directory for redacted files (default: next to each input)")
	batchCmd.Flags().String("suffix", "_redacted", "suffix appended to output file names")
	batchCmd.Flags().IntP("workers", "w", 4, "documents processed concurrently")
	batchCmd.Flags().BoolP("recursive", "r", false, "descend into subdirectories")
	batchCmd.Flags().StringSlice("include", batch.DefaultIncludePatterns, "file name patterns to include")
	batchCmd.Flags().StringSlice("exclude", nil, "file name patterns to exclude")
	batchCmd.Flags().Bool("continue-on-error", true, "keep going when a document fails")
	batchCmd.Flags().StringP("format", "f", "text", "report format (text, json, csv)")
	batchCmd.Flags().String("report", "", "write the report to this file instead of stdout")
	batchCmd.Flags().Bool("progress", false, "show a document progress bar on stderr")
	batchCmd.Flags().Bool("stats", false, "print processing statistics on stderr")
	batchCmd.Flags().BoolP("quiet", "q", false, "suppress the report")
	addPipelineFlags(batchCmd)
}

// configToBatchConfig maps centralized configuration to batch.Config.
// CLI flags override config file values.
func configToBatchConfig(cfg *config.Config, cmd *cobra.Command) *batch.Config {
	bc := batch.DefaultConfig()
	bc.Workers = cfg.Batch.Workers
	bc.OutputDir = cfg.Batch.OutputDir
	bc.Suffix = cfg.Batch.Suffix
	bc.Recursive = cfg.Batch.Recursive
	bc.ContinueOnError = cfg.Batch.ContinueOnError

	setIntWithFlag(cmd, "workers", &bc.Workers)
	setStringWithFlag(cmd, "output-dir", &bc.OutputDir)
	setStringWithFlag(cmd, "suffix", &bc.Suffix)
	setBoolWithFlag(cmd, "recursive", &bc.Recursive)
	setBoolWithFlag(cmd, "continue-on-error", &bc.ContinueOnError)
	setStringSliceWithFlag(cmd, "include", &bc.IncludePatterns)
	setStringSliceWithFlag(cmd, "exclude", &bc.ExcludePatterns)
	bc.ShowProgress, _ = cmd.Flags().GetBool("progress")
	bc.Quiet, _ = cmd.Flags().GetBool("quiet")
	return bc
}

func runBatchCommand(cmd *cobra.Command, args []string) error {
	cfg, err := GetConfig()
	if err != nil {
		return err
	}
	applyPipelineFlags(cfg, cmd)
	bc := configToBatchConfig(cfg, cmd)
	format := cfg.Output.Format
	setStringWithFlag(cmd, "format", &format)
	reportFile := cfg.Output.File
	setStringWithFlag(cmd, "report", &reportFile)

	if err := requireRasterizer(cfg); err != nil {
		return err
	}
	p, rec, err := buildPipeline(cfg, nil)
	if err != nil {
		return err
	}

	var progress batch.ProgressCallback
	if bc.ShowProgress && !bc.Quiet {
		progress = pipeline.NewConsoleProgressCallback(cmd.ErrOrStderr(), "").WithUnit("documents")
	}

	res, batchErr := batch.ProcessBatch(cmd.Context(), p, args, bc, progress)
	if err := writeMetrics(rec, cfg.Metrics.File); err != nil && batchErr == nil {
		batchErr = err
	}
	if res == nil {
		return batchErr
	}

	if stats, _ := cmd.Flags().GetBool("stats"); stats {
		res.PrintStats(cmd.ErrOrStderr())
	}
	if !bc.Quiet {
		err := withReportWriter(cmd.OutOrStdout(), reportFile, func(w io.Writer) error {
			out, err := res.FormatResults(format)
			if err != nil {
				return err
			}
			_, err = io.WriteString(w, out)
			return err
		})
		if err != nil {
			return err
		}
	}
	return batchErr
}
