package cmd

import (
	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/redactor/internal/config"
)

// addPipelineFlags registers the detection and redaction flags shared by
// redact and batch.
func addPipelineFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Bool("image-scan", true, "scan rendered pages with OCR for names, QR codes and barcodes")
	f.Int("scan-dpi", 150, "render resolution for image scanning")
	f.StringSlice("languages", []string{"chi_sim", "eng"}, "Tesseract languages")
	f.String("tessdata", "", "Tesseract traineddata directory")
	f.StringSlice("barcode-types", nil, "barcode symbologies to decode (qr,code128,code39,ean13,ean8,upca,upce,itf)")
	f.Bool("seal", true, "protect red official seals from masking")
	f.Float64("seal-overlap", 0.5, "overlap ratio above which a mask over a seal is skipped (0..1)")
	f.Bool("sections", true, "remove technical plan, quotation and financial report pages")
	f.String("fill-color", "#ffffff", "mask colour as #rrggbb")
	f.Bool("verify-id-checksum", false, "require a valid check character on ID numbers")
	f.Int("page-workers", 1, "pages processed concurrently per document (0=NumCPU)")
	f.Int("flatten-dpi", 200, "render resolution of pages carrying masks")
	f.StringP("password", "p", "", "user password for encrypted PDFs")
	f.String("owner-password", "", "owner password for encrypted PDFs")
	f.String("metrics-file", "", "write Prometheus metrics to this textfile after the run")
}

// applyPipelineFlags overrides cfg with flags the user set explicitly.
func applyPipelineFlags(cfg *config.Config, cmd *cobra.Command) {
	setBoolWithFlag(cmd, "image-scan", &cfg.ImageScan.Enabled)
	setIntWithFlag(cmd, "scan-dpi", &cfg.ImageScan.DPI)
	setStringSliceWithFlag(cmd, "languages", &cfg.ImageScan.Languages)
	setStringWithFlag(cmd, "tessdata", &cfg.ImageScan.TessdataPrefix)
	setStringSliceWithFlag(cmd, "barcode-types", &cfg.ImageScan.Formats)
	setBoolWithFlag(cmd, "seal", &cfg.Seal.Enabled)
	setFloat64WithFlag(cmd, "seal-overlap", &cfg.Redaction.SealOverlap)
	setBoolWithFlag(cmd, "sections", &cfg.Sections.Enabled)
	setStringWithFlag(cmd, "fill-color", &cfg.Redaction.FillColor)
	setBoolWithFlag(cmd, "verify-id-checksum", &cfg.Privacy.VerifyIDChecksum)
	setIntWithFlag(cmd, "page-workers", &cfg.Pipeline.PageWorkers)
	setIntWithFlag(cmd, "flatten-dpi", &cfg.Document.FlattenDPI)
	setStringWithFlag(cmd, "password", &cfg.Document.UserPassword)
	setStringWithFlag(cmd, "owner-password", &cfg.Document.OwnerPassword)
	setStringWithFlag(cmd, "metrics-file", &cfg.Metrics.File)
}

// CLI flags override config values only when set.

func setStringWithFlag(cmd *cobra.Command, name string, target *string) {
	if cmd.Flags().Changed(name) {
		*target, _ = cmd.Flags().GetString(name)
	}
}

func setStringSliceWithFlag(cmd *cobra.Command, name string, target *[]string) {
	if cmd.Flags().Changed(name) {
		*target, _ = cmd.Flags().GetStringSlice(name)
	}
}

func setIntWithFlag(cmd *cobra.Command, name string, target *int) {
	if cmd.Flags().Changed(name) {
		*target, _ = cmd.Flags().GetInt(name)
	}
}

func setFloat64WithFlag(cmd *cobra.Command, name string, target *float64) {
	if cmd.Flags().Changed(name) {
		*target, _ = cmd.Flags().GetFloat64(name)
	}
}

func setBoolWithFlag(cmd *cobra.Command, name string, target *bool) {
	if cmd.Flags().Changed(name) {
		*target, _ = cmd.Flags().GetBool(name)
	}
}
