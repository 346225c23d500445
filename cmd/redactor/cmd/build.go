package cmd

import (
	"fmt"
	"log/slog"

	"github.com/MeKo-Tech/redactor/internal/barcode"
	"github.com/MeKo-Tech/redactor/internal/config"
	"github.com/MeKo-Tech/redactor/internal/document"
	"github.com/MeKo-Tech/redactor/internal/metrics"
	"github.com/MeKo-Tech/redactor/internal/ocr"
	"github.com/MeKo-Tech/redactor/internal/ocr/tesseract"
	"github.com/MeKo-Tech/redactor/internal/pipeline"
)

// newOpener, newOCREngine and rasterizerAvailable are replaced in tests.
var (
	newOpener = func(cfg *config.Config, logger *slog.Logger) document.Opener {
		return document.NewPDFOpener(cfg.ToDocumentOptions(), cfg.ToRasterizer()).WithLogger(logger)
	}
	newOCREngine = func(cfg *config.Config, logger *slog.Logger) ocr.Engine {
		return tesseract.New(tesseract.Options{
			Languages:      cfg.ImageScan.Languages,
			TessdataPrefix: cfg.ImageScan.TessdataPrefix,
			PageSegMode:    cfg.ImageScan.PageSegMode,
		}).WithLogger(logger)
	}
	rasterizerAvailable = func(cfg *config.Config) bool {
		return cfg.ToRasterizer().Available()
	}
)

// requireRasterizer fails early when pages cannot be rendered, since burning
// in masks, seal detection and image scanning all render pages.
func requireRasterizer(cfg *config.Config) error {
	if rasterizerAvailable(cfg) {
		return nil
	}
	bin := cfg.Document.Pdftoppm
	if bin == "" {
		bin = "pdftoppm"
	}
	return fmt.Errorf("%w: install poppler-utils or set document.pdftoppm (looked for %q)", document.ErrRasterizerMissing, bin)
}

// buildPipeline wires the redaction pipeline from cfg. The returned recorder
// collects run metrics for writeMetrics.
func buildPipeline(cfg *config.Config, progress pipeline.ProgressCallback) (*pipeline.Pipeline, *metrics.Recorder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	pc, err := cfg.ToPipelineConfig()
	if err != nil {
		return nil, nil, err
	}

	logger := slog.Default()
	rec := metrics.NewRecorder()
	b := pipeline.NewBuilder(newOpener(cfg, logger)).
		WithConfig(pc).
		WithLogger(logger).
		WithRecorder(rec)
	if progress != nil {
		b = b.WithProgressCallback(progress)
	}
	if pc.ImageScan {
		b = b.WithOCR(newOCREngine(cfg, logger)).
			WithDecoder(barcode.NewGozxing(cfg.ToBarcodeOptions()).WithLogger(logger))
	}

	p, err := b.Build()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build redaction pipeline: %w", err)
	}
	return p, rec, nil
}

// writeMetrics exports rec when a metrics file is configured.
func writeMetrics(rec *metrics.Recorder, path string) error {
	if path == "" || rec == nil {
		return nil
	}
	if err := rec.WriteTextfile(path); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	slog.Debug("metrics written", "file", path)
	return nil
}
