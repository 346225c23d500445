package config

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/MeKo-Tech/redactor/internal/barcode"
	"github.com/MeKo-Tech/redactor/internal/document"
	"github.com/MeKo-Tech/redactor/internal/pipeline"
	"github.com/MeKo-Tech/redactor/internal/privacy"
	"github.com/MeKo-Tech/redactor/internal/redact"
	"github.com/MeKo-Tech/redactor/internal/seal"
	"github.com/MeKo-Tech/redactor/internal/sections"
)

const infoLevel = "info"

// Config represents the complete configuration for the redactor application.
// It is loaded from configuration files, environment variables and
// command-line flags.
//
//nolint:lll
type Config struct {
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	Document  DocumentConfig  `mapstructure:"document" yaml:"document" json:"document"`
	Privacy   PrivacyConfig   `mapstructure:"privacy" yaml:"privacy" json:"privacy"`
	ImageScan ImageScanConfig `mapstructure:"imagescan" yaml:"imagescan" json:"imagescan"`
	Seal      SealConfig      `mapstructure:"seal" yaml:"seal" json:"seal"`
	Redaction RedactionConfig `mapstructure:"redaction" yaml:"redaction" json:"redaction"`
	Sections  SectionsConfig  `mapstructure:"sections" yaml:"sections" json:"sections"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline" yaml:"pipeline" json:"pipeline"`
	Output    OutputConfig    `mapstructure:"output" yaml:"output" json:"output"`
	Batch     BatchConfig     `mapstructure:"batch" yaml:"batch" json:"batch"`
	Metrics   MetricsConfig   `mapstructure:"metrics" yaml:"metrics" json:"metrics"`
}

// DocumentConfig controls how PDFs are opened, rendered and written.
//
//nolint:lll
type DocumentConfig struct {
	FlattenDPI    int    `mapstructure:"flatten_dpi" yaml:"flatten_dpi" json:"flatten_dpi"`
	UserPassword  string `mapstructure:"user_password" yaml:"user_password" json:"-"`
	OwnerPassword string `mapstructure:"owner_password" yaml:"owner_password" json:"-"`
	TempDir       string `mapstructure:"temp_dir" yaml:"temp_dir" json:"temp_dir"`
	Pdftoppm      string `mapstructure:"pdftoppm" yaml:"pdftoppm" json:"pdftoppm"`
	Compact       bool   `mapstructure:"compact" yaml:"compact" json:"compact"`
	Deflate       bool   `mapstructure:"deflate" yaml:"deflate" json:"deflate"`
}

// PrivacyConfig tunes text detection.
type PrivacyConfig struct {
	VerifyIDChecksum bool `mapstructure:"verify_id_checksum" yaml:"verify_id_checksum" json:"verify_id_checksum"`
}

// ImageScanConfig controls OCR and code scanning of rendered pages.
//
//nolint:lll
type ImageScanConfig struct {
	Enabled        bool     `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	DPI            int      `mapstructure:"dpi" yaml:"dpi" json:"dpi"`
	Languages      []string `mapstructure:"languages" yaml:"languages" json:"languages"`
	TessdataPrefix string   `mapstructure:"tessdata_prefix" yaml:"tessdata_prefix" json:"tessdata_prefix"`
	PageSegMode    int      `mapstructure:"page_seg_mode" yaml:"page_seg_mode" json:"page_seg_mode"`
	Formats        []string `mapstructure:"formats" yaml:"formats" json:"formats"`
	TryHarder      bool     `mapstructure:"try_harder" yaml:"try_harder" json:"try_harder"`
}

// SealConfig tunes red seal detection.
//
//nolint:lll
type SealConfig struct {
	Enabled       bool    `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	DPI           int     `mapstructure:"dpi" yaml:"dpi" json:"dpi"`
	MinSaturation float64 `mapstructure:"min_saturation" yaml:"min_saturation" json:"min_saturation"`
	MinValue      float64 `mapstructure:"min_value" yaml:"min_value" json:"min_value"`
	MedianKernel  int     `mapstructure:"median_kernel" yaml:"median_kernel" json:"median_kernel"`
	MinArea       float64 `mapstructure:"min_area" yaml:"min_area" json:"min_area"`
}

// RedactionConfig controls mask appearance and seal overlap.
type RedactionConfig struct {
	FillColor   string  `mapstructure:"fill_color" yaml:"fill_color" json:"fill_color"`
	SealOverlap float64 `mapstructure:"seal_overlap" yaml:"seal_overlap" json:"seal_overlap"`
}

// SectionsConfig controls section page removal.
type SectionsConfig struct {
	Enabled  bool              `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Keywords sections.Keywords `mapstructure:"keywords" yaml:"keywords" json:"keywords"`
}

// PipelineConfig contains per-document processing settings.
type PipelineConfig struct {
	// PageWorkers is the number of pages processed concurrently; 0 uses
	// every CPU.
	PageWorkers int `mapstructure:"page_workers" yaml:"page_workers" json:"page_workers"`
}

// OutputConfig contains report formatting settings.
type OutputConfig struct {
	Format string `mapstructure:"format" yaml:"format" json:"format"`
	File   string `mapstructure:"file" yaml:"file" json:"file"`
}

// BatchConfig contains batch processing settings.
//
//nolint:lll
type BatchConfig struct {
	Workers         int    `mapstructure:"workers" yaml:"workers" json:"workers"`
	OutputDir       string `mapstructure:"output_dir" yaml:"output_dir" json:"output_dir"`
	Suffix          string `mapstructure:"suffix" yaml:"suffix" json:"suffix"`
	Recursive       bool   `mapstructure:"recursive" yaml:"recursive" json:"recursive"`
	ContinueOnError bool   `mapstructure:"continue_on_error" yaml:"continue_on_error" json:"continue_on_error"`
}

// MetricsConfig selects where run metrics are written.
type MetricsConfig struct {
	// File receives Prometheus text exposition after each run when set.
	File string `mapstructure:"file" yaml:"file" json:"file"`
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() Config {
	sd := seal.DefaultOptions()
	return Config{
		LogLevel: infoLevel,
		Document: DocumentConfig{
			FlattenDPI: document.DefaultOptions().FlattenDPI,
			Compact:    true,
			Deflate:    true,
		},
		ImageScan: ImageScanConfig{
			Enabled:   true,
			DPI:       150,
			Languages: []string{"chi_sim", "eng"},
			Formats:   formatNames(barcode.AllowList),
			TryHarder: barcode.DefaultOptions().TryHarder,
		},
		Seal: SealConfig{
			Enabled:       true,
			DPI:           sd.DPI,
			MinSaturation: sd.MinSaturation,
			MinValue:      sd.MinValue,
			MedianKernel:  sd.MedianKernel,
			MinArea:       sd.MinArea,
		},
		Redaction: RedactionConfig{
			FillColor:   "#ffffff",
			SealOverlap: redact.DefaultSealOverlap,
		},
		Sections: SectionsConfig{
			Enabled:  true,
			Keywords: sections.DefaultKeywords(),
		},
		Pipeline: PipelineConfig{PageWorkers: 1},
		Output:   OutputConfig{Format: "text"},
		Batch: BatchConfig{
			Workers:         4,
			Suffix:          "_redacted",
			ContinueOnError: true,
		},
	}
}

func formatNames(fs []barcode.Format) []string {
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = f.String()
	}
	return out
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	validLogLevels := []string{"debug", infoLevel, "warn", "error"}
	if !contains(validLogLevels, strings.ToLower(c.LogLevel)) {
		return fmt.Errorf("invalid log_level '%s', must be one of: %v", c.LogLevel, validLogLevels)
	}

	validFormats := []string{"text", "json"}
	if c.Output.Format != "" && !contains(validFormats, c.Output.Format) {
		return fmt.Errorf("invalid output.format '%s', must be one of: %v", c.Output.Format, validFormats)
	}

	if c.Document.FlattenDPI <= 0 {
		return fmt.Errorf("document.flatten_dpi must be positive, got %d", c.Document.FlattenDPI)
	}
	if c.ImageScan.Enabled && c.ImageScan.DPI <= 0 {
		return fmt.Errorf("imagescan.dpi must be positive, got %d", c.ImageScan.DPI)
	}
	if _, bad := barcode.ParseFormats(c.ImageScan.Formats); bad != "" {
		return fmt.Errorf("imagescan.formats: unknown format '%s'", bad)
	}
	if c.Seal.DPI < 0 {
		return fmt.Errorf("seal.dpi must not be negative, got %d", c.Seal.DPI)
	}
	if err := validateChannel(c.Seal.MinSaturation, "seal.min_saturation"); err != nil {
		return err
	}
	if err := validateChannel(c.Seal.MinValue, "seal.min_value"); err != nil {
		return err
	}
	if c.Seal.MedianKernel <= 0 {
		return fmt.Errorf("seal.median_kernel must be positive, got %d", c.Seal.MedianKernel)
	}
	if c.Seal.MinArea <= 0 {
		return fmt.Errorf("seal.min_area must be positive, got %f", c.Seal.MinArea)
	}

	if _, err := redact.ParseColor(c.Redaction.FillColor); err != nil {
		return fmt.Errorf("redaction.fill_color: %w", err)
	}
	if c.Redaction.SealOverlap <= 0 || c.Redaction.SealOverlap > 1 {
		return fmt.Errorf("redaction.seal_overlap must be in (0.0, 1.0], got %f", c.Redaction.SealOverlap)
	}

	if c.Pipeline.PageWorkers < 0 {
		return fmt.Errorf("pipeline.page_workers must not be negative, got %d", c.Pipeline.PageWorkers)
	}
	if c.Batch.Workers < 0 {
		return fmt.Errorf("batch.workers must not be negative, got %d", c.Batch.Workers)
	}
	return nil
}

// ToPipelineConfig converts the configuration to a pipeline.Config.
func (c *Config) ToPipelineConfig() (pipeline.Config, error) {
	fill, err := redact.ParseColor(c.Redaction.FillColor)
	if err != nil {
		return pipeline.Config{}, fmt.Errorf("redaction.fill_color: %w", err)
	}
	formats, bad := barcode.ParseFormats(c.ImageScan.Formats)
	if bad != "" {
		return pipeline.Config{}, fmt.Errorf("imagescan.formats: unknown format '%s'", bad)
	}

	text := privacy.TextOptions{VerifyIDChecksum: c.Privacy.VerifyIDChecksum}
	workers := c.Pipeline.PageWorkers
	if workers == 0 {
		workers = runtime.NumCPU()
	}

	cfg := pipeline.DefaultConfig()
	cfg.Text = text
	cfg.ImageScan = c.ImageScan.Enabled
	cfg.ImageScanOptions.DPI = c.ImageScan.DPI
	cfg.ImageScanOptions.TempDir = c.Document.TempDir
	cfg.ImageScanOptions.Formats = formats
	cfg.ImageScanOptions.Text = text
	cfg.SealProtection = c.Seal.Enabled
	cfg.Seal = seal.Options{
		DPI:           c.Seal.DPI,
		MinSaturation: c.Seal.MinSaturation,
		MinValue:      c.Seal.MinValue,
		MedianKernel:  c.Seal.MedianKernel,
		MinArea:       c.Seal.MinArea,
	}
	cfg.Redact = redact.Options{Fill: fill, SealOverlap: c.Redaction.SealOverlap}
	cfg.SectionRemoval = c.Sections.Enabled
	cfg.Sections = c.Sections.Keywords
	cfg.PageWorkers = workers
	cfg.Save = document.SaveOptions{Compact: c.Document.Compact, Deflate: c.Document.Deflate}
	return cfg, nil
}

// ToDocumentOptions returns the PDF opener options.
func (c *Config) ToDocumentOptions() document.Options {
	return document.Options{
		FlattenDPI:    c.Document.FlattenDPI,
		UserPassword:  c.Document.UserPassword,
		OwnerPassword: c.Document.OwnerPassword,
		TempDir:       c.Document.TempDir,
	}
}

// ToRasterizer returns the pdftoppm rasterizer.
func (c *Config) ToRasterizer() document.Pdftoppm {
	return document.Pdftoppm{Binary: c.Document.Pdftoppm, TempDir: c.Document.TempDir}
}

// ToBarcodeOptions returns the code decoder options.
func (c *Config) ToBarcodeOptions() barcode.Options {
	opts := barcode.DefaultOptions()
	opts.TryHarder = c.ImageScan.TryHarder
	return opts
}

// contains checks if a slice contains a string.
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

// validateChannel validates an HSV channel floor on the 0-255 scale. Zero is
// rejected because the detector reads it as unset.
func validateChannel(value float64, name string) error {
	if value <= 0 || value > 255 {
		return fmt.Errorf("%s must be in (0, 255], got %f", name, value)
	}
	return nil
}
