package config

import (
	"image/color"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/redactor/internal/barcode"
	"github.com/MeKo-Tech/redactor/internal/redact"
	"github.com/MeKo-Tech/redactor/internal/sections"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, infoLevel, cfg.LogLevel)
	assert.False(t, cfg.Verbose)
	assert.Equal(t, 200, cfg.Document.FlattenDPI)
	assert.True(t, cfg.Document.Compact)
	assert.True(t, cfg.ImageScan.Enabled)
	assert.Equal(t, 150, cfg.ImageScan.DPI)
	assert.Equal(t, []string{"chi_sim", "eng"}, cfg.ImageScan.Languages)
	assert.Contains(t, cfg.ImageScan.Formats, "qr")
	assert.True(t, cfg.Seal.Enabled)
	assert.Equal(t, 72, cfg.Seal.DPI)
	assert.Equal(t, "#ffffff", cfg.Redaction.FillColor)
	assert.InDelta(t, redact.DefaultSealOverlap, cfg.Redaction.SealOverlap, 1e-9)
	assert.Equal(t, sections.DefaultKeywords(), cfg.Sections.Keywords)
	assert.Equal(t, "text", cfg.Output.Format)
	assert.Equal(t, 4, cfg.Batch.Workers)
	assert.Equal(t, "_redacted", cfg.Batch.Suffix)
	assert.Empty(t, cfg.Metrics.File)

	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"log level", func(c *Config) { c.LogLevel = "loud" }, "log_level"},
		{"upper case log level", func(c *Config) { c.LogLevel = "DEBUG" }, ""},
		{"output format", func(c *Config) { c.Output.Format = "xml" }, "output.format"},
		{"flatten dpi", func(c *Config) { c.Document.FlattenDPI = 0 }, "flatten_dpi"},
		{"scan dpi", func(c *Config) { c.ImageScan.DPI = -1 }, "imagescan.dpi"},
		{"scan dpi ignored when disabled", func(c *Config) {
			c.ImageScan.Enabled = false
			c.ImageScan.DPI = 0
		}, ""},
		{"barcode format", func(c *Config) { c.ImageScan.Formats = []string{"qr", "aztec"} }, "aztec"},
		{"seal dpi", func(c *Config) { c.Seal.DPI = -72 }, "seal.dpi"},
		{"fill color", func(c *Config) { c.Redaction.FillColor = "white" }, "fill_color"},
		{"seal overlap", func(c *Config) { c.Redaction.SealOverlap = 1.5 }, "seal_overlap"},
		{"zero seal overlap", func(c *Config) { c.Redaction.SealOverlap = 0 }, "seal_overlap"},
		{"full seal overlap", func(c *Config) { c.Redaction.SealOverlap = 1 }, ""},
		{"zero saturation", func(c *Config) { c.Seal.MinSaturation = 0 }, "seal.min_saturation"},
		{"value above scale", func(c *Config) { c.Seal.MinValue = 300 }, "seal.min_value"},
		{"median kernel", func(c *Config) { c.Seal.MedianKernel = 0 }, "seal.median_kernel"},
		{"min area", func(c *Config) { c.Seal.MinArea = 0 }, "seal.min_area"},
		{"page workers", func(c *Config) { c.Pipeline.PageWorkers = -2 }, "page_workers"},
		{"batch workers", func(c *Config) { c.Batch.Workers = -1 }, "batch.workers"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestToPipelineConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Privacy.VerifyIDChecksum = true
	cfg.ImageScan.DPI = 300
	cfg.ImageScan.Formats = []string{"qr", "ean13"}
	cfg.Document.TempDir = "/tmp/work"
	cfg.Document.Deflate = false
	cfg.Seal.Enabled = false
	cfg.Redaction.FillColor = "#000"
	cfg.Redaction.SealOverlap = 0.7
	cfg.Sections.Enabled = false
	cfg.Pipeline.PageWorkers = 3

	pc, err := cfg.ToPipelineConfig()
	require.NoError(t, err)

	assert.True(t, pc.Text.VerifyIDChecksum)
	assert.True(t, pc.ImageScanOptions.Text.VerifyIDChecksum)
	assert.True(t, pc.ImageScan)
	assert.Equal(t, 300, pc.ImageScanOptions.DPI)
	assert.Equal(t, "/tmp/work", pc.ImageScanOptions.TempDir)
	assert.Equal(t, []barcode.Format{barcode.FormatQR, barcode.FormatEAN13}, pc.ImageScanOptions.Formats)
	assert.False(t, pc.SealProtection)
	assert.Equal(t, color.RGBA{A: 0xff}, pc.Redact.Fill)
	assert.InDelta(t, 0.7, pc.Redact.SealOverlap, 1e-9)
	assert.False(t, pc.SectionRemoval)
	assert.Equal(t, 3, pc.PageWorkers)
	assert.True(t, pc.Save.Compact)
	assert.False(t, pc.Save.Deflate)
}

func TestToPipelineConfigAllCPUs(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Pipeline.PageWorkers = 0
	pc, err := cfg.ToPipelineConfig()
	require.NoError(t, err)
	assert.Equal(t, runtime.NumCPU(), pc.PageWorkers)
}

func TestToPipelineConfigErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Redaction.FillColor = "#12"
	_, err := cfg.ToPipelineConfig()
	assert.Error(t, err)

	cfg = DefaultConfig()
	cfg.ImageScan.Formats = []string{"pdf417"}
	_, err = cfg.ToPipelineConfig()
	assert.ErrorContains(t, err, "pdf417")
}

func TestComponentOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Document.UserPassword = "secret"
	cfg.Document.TempDir = "/scratch"
	cfg.Document.Pdftoppm = "/opt/poppler/bin/pdftoppm"
	cfg.ImageScan.TryHarder = false

	do := cfg.ToDocumentOptions()
	assert.Equal(t, "secret", do.UserPassword)
	assert.Equal(t, "/scratch", do.TempDir)
	assert.Equal(t, 200, do.FlattenDPI)

	r := cfg.ToRasterizer()
	assert.Equal(t, "/opt/poppler/bin/pdftoppm", r.Binary)
	assert.Equal(t, "/scratch", r.TempDir)

	bo := cfg.ToBarcodeOptions()
	assert.False(t, bo.TryHarder)
	assert.InDelta(t, barcode.DefaultOptions().QRMargin, bo.QRMargin, 1e-9)
}
