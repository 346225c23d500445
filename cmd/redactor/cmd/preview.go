package cmd

import (
	"github.com/spf13/cobra"
)

// previewCmd represents the preview command.
var previewCmd = &cobra.Command{
	Use:   "preview <file.pdf>",
	Short: "Show page count, size and a first-page text sample",
	Long: `Open a PDF without modifying it and report its page count, file size and
the first 500 characters of the first page's text.

Examples:
  redactor preview bid.pdf
  redactor preview bid.pdf --format json`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE:         runPreview,
}

func init() {
	rootCmd.AddCommand(previewCmd)
	previewCmd.Flags().StringP("format", "f", "text", "output format (text, json)")
	previewCmd.Flags().StringP("password", "p", "", "user password for encrypted PDFs")
}

func runPreview(cmd *cobra.Command, args []string) error {
	cfg, err := GetConfig()
	if err != nil {
		return err
	}
	setStringWithFlag(cmd, "password", &cfg.Document.UserPassword)
	format := cfg.Output.Format
	setStringWithFlag(cmd, "format", &format)

	// Preview never renders or OCRs pages.
	cfg.ImageScan.Enabled = false
	p, _, err := buildPipeline(cfg, nil)
	if err != nil {
		return err
	}

	pv, err := p.Preview(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	return writePreview(cmd.OutOrStdout(), format, args[0], pv)
}
