package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/redactor/internal/batch"
	"github.com/MeKo-Tech/redactor/internal/pipeline"
)

// redactCmd represents the redact command.
var redactCmd = &cobra.Command{
	Use:   "redact <input.pdf>",
	Short: "Mask personal data in one PDF and remove section pages",
	Long: `Redact one PDF: detect personal data in the text layer and on rendered
pages, mask every hit outside red seals, remove technical plan, quotation and
financial report pages, and write the result.

The report lists one row per detected item and one row per removed page.

Examples:
  redactor redact bid.pdf
  redactor redact bid.pdf -o clean.pdf --format json
  redactor redact bid.pdf --image-scan=false --fill-color '#000000'
  redactor redact bid.pdf --metrics-file /var/lib/node_exporter/redactor.prom`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE:         runRedact,
}

func init() {
	rootCmd.AddCommand(redactCmd)

	redactCmd.Flags().StringP("output", "o", "", "output PDF (default: <input>_redacted.pdf)")
	redactCmd.Flags().StringP("format", "f", "text", "report format (text, json)")
	redactCmd.Flags().String("report", "", "write the report to this file instead of stdout")
	redactCmd.Flags().Bool("progress", false, "show a page progress bar on stderr")
	addPipelineFlags(redactCmd)
}

func runRedact(cmd *cobra.Command, args []string) error {
	cfg, err := GetConfig()
	if err != nil {
		return err
	}
	applyPipelineFlags(cfg, cmd)
	format := cfg.Output.Format
	setStringWithFlag(cmd, "format", &format)
	reportFile := cfg.Output.File
	setStringWithFlag(cmd, "report", &reportFile)

	in := args[0]
	out, _ := cmd.Flags().GetString("output")
	if out == "" {
		out = batch.OutputPath(in, "", "_redacted")
	}
	if batch.SameFile(in, out) {
		return errors.New("output would overwrite the input document")
	}

	var progress pipeline.ProgressCallback
	if show, _ := cmd.Flags().GetBool("progress"); show {
		progress = pipeline.NewConsoleProgressCallback(cmd.ErrOrStderr(), "")
	}

	if err := requireRasterizer(cfg); err != nil {
		return err
	}
	p, rec, err := buildPipeline(cfg, progress)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	session, err := p.Redact(ctx, in)
	if err != nil {
		_ = writeMetrics(rec, cfg.Metrics.File)
		return err
	}
	defer func() { _ = session.Close() }()

	if err := session.Persist(ctx, out); err != nil {
		_ = writeMetrics(rec, cfg.Metrics.File)
		return fmt.Errorf("failed to write %s: %w", out, err)
	}
	slog.Info("redacted document written", "input", in, "output", out)

	if err := writeMetrics(rec, cfg.Metrics.File); err != nil {
		return err
	}

	return withReportWriter(cmd.OutOrStdout(), reportFile, func(w io.Writer) error {
		return writeRedactReport(w, format, in, out, session.Result())
	})
}

// withReportWriter runs fn against path, or against stdout when path is empty.
func withReportWriter(stdout io.Writer, path string, fn func(io.Writer) error) error {
	if path == "" {
		return fn(stdout)
	}
	f, err := os.Create(path) //nolint:gosec // report path comes from the CLI
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	if err := fn(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
