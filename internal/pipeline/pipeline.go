// Package pipeline runs privacy redaction over whole documents: per-page text
// and image detection, seal protection, mask burn-in and section removal.
package pipeline

import (
	"errors"
	"image/color"
	"log/slog"
	"runtime"
	"time"

	"github.com/MeKo-Tech/redactor/internal/barcode"
	"github.com/MeKo-Tech/redactor/internal/document"
	"github.com/MeKo-Tech/redactor/internal/imagescan"
	"github.com/MeKo-Tech/redactor/internal/ocr"
	"github.com/MeKo-Tech/redactor/internal/privacy"
	"github.com/MeKo-Tech/redactor/internal/redact"
	"github.com/MeKo-Tech/redactor/internal/seal"
	"github.com/MeKo-Tech/redactor/internal/sections"
)

// PreviewRunes is the length of the first-page text sample.
const PreviewRunes = 500

// Config holds configuration for the redaction pipeline and its components.
type Config struct {
	Text privacy.TextOptions

	ImageScan        bool
	ImageScanOptions imagescan.Options

	SealProtection bool
	Seal           seal.Options

	Redact redact.Options

	SectionRemoval bool
	Sections       sections.Keywords

	// PageWorkers > 1 runs page detection and redaction concurrently.
	PageWorkers int

	Save document.SaveOptions
}

// DefaultConfig enables every stage and saves with compaction and deflate.
func DefaultConfig() Config {
	return Config{
		ImageScan:        true,
		ImageScanOptions: imagescan.DefaultOptions(),
		SealProtection:   true,
		Seal:             seal.DefaultOptions(),
		Redact:           redact.DefaultOptions(),
		SectionRemoval:   true,
		Sections:         sections.DefaultKeywords(),
		PageWorkers:      1,
		Save:             document.SaveOptions{Compact: true, Deflate: true},
	}
}

// Recorder receives run statistics. The metrics package implements it.
type Recorder interface {
	ItemFound(category privacy.Category, source privacy.Source)
	MaskOutcome(status redact.Status)
	PageRemoved(reason sections.Reason)
	DetectionFailed(stage string)
	DocumentDone(elapsed time.Duration, err error)
}

type nopRecorder struct{}

func (nopRecorder) ItemFound(privacy.Category, privacy.Source) {}
func (nopRecorder) MaskOutcome(redact.Status)                  {}
func (nopRecorder) PageRemoved(sections.Reason)                {}
func (nopRecorder) DetectionFailed(string)                     {}
func (nopRecorder) DocumentDone(time.Duration, error)          {}

// Builder constructs a Pipeline with fluent configuration.
type Builder struct {
	cfg      Config
	opener   document.Opener
	engine   ocr.Engine
	decoder  barcode.Decoder
	logger   *slog.Logger
	progress ProgressCallback
	recorder Recorder
}

// NewBuilder creates a builder with defaults reading documents through opener.
func NewBuilder(opener document.Opener) *Builder {
	return &Builder{cfg: DefaultConfig(), opener: opener}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.cfg = cfg
	return b
}

// WithOCR sets the OCR engine used by image scanning.
func (b *Builder) WithOCR(engine ocr.Engine) *Builder {
	b.engine = engine
	return b
}

// WithDecoder sets the QR and barcode decoder.
func (b *Builder) WithDecoder(dec barcode.Decoder) *Builder {
	b.decoder = dec
	return b
}

// WithLogger sets the logger shared by every stage.
func (b *Builder) WithLogger(l *slog.Logger) *Builder {
	b.logger = l
	return b
}

// WithProgressCallback sets page progress reporting.
func (b *Builder) WithProgressCallback(cb ProgressCallback) *Builder {
	b.progress = cb
	return b
}

// WithRecorder sets the statistics recorder.
func (b *Builder) WithRecorder(r Recorder) *Builder {
	b.recorder = r
	return b
}

// WithPageWorkers sets the number of pages processed concurrently.
// Zero or less selects runtime.NumCPU().
func (b *Builder) WithPageWorkers(n int) *Builder {
	if n <= 0 {
		n = runtime.NumCPU()
	}
	b.cfg.PageWorkers = n
	return b
}

// WithImageScan enables or disables OCR and code detection.
func (b *Builder) WithImageScan(enabled bool) *Builder {
	b.cfg.ImageScan = enabled
	return b
}

// WithSealProtection enables or disables seal detection.
func (b *Builder) WithSealProtection(enabled bool) *Builder {
	b.cfg.SealProtection = enabled
	return b
}

// WithSectionRemoval enables or disables section page removal.
func (b *Builder) WithSectionRemoval(enabled bool) *Builder {
	b.cfg.SectionRemoval = enabled
	return b
}

// WithFill sets the mask colour.
func (b *Builder) WithFill(c color.Color) *Builder {
	if c != nil {
		b.cfg.Redact.Fill = c
	}
	return b
}

// WithIDChecksum toggles ID number checksum verification.
func (b *Builder) WithIDChecksum(enabled bool) *Builder {
	b.cfg.Text.VerifyIDChecksum = enabled
	b.cfg.ImageScanOptions.Text.VerifyIDChecksum = enabled
	return b
}

// Config returns a copy of the current config.
func (b *Builder) Config() Config { return b.cfg }

// Validate checks that the configuration can be built.
func (b *Builder) Validate() error {
	if b.opener == nil {
		return errors.New("document opener is nil")
	}
	if b.cfg.ImageScan && b.engine == nil {
		return errors.New("image scanning enabled without an OCR engine")
	}
	if b.cfg.Redact.SealOverlap < 0 || b.cfg.Redact.SealOverlap > 1 {
		return errors.New("seal overlap must be within [0,1]")
	}
	return nil
}

// Build validates the configuration and wires the stages.
func (b *Builder) Build() (*Pipeline, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := b.cfg
	if cfg.PageWorkers <= 0 {
		cfg.PageWorkers = 1
	}

	p := &Pipeline{
		cfg:        cfg,
		opener:     b.opener,
		applicator: redact.New(cfg.Redact).WithLogger(logger),
		planner:    sections.NewPlanner(cfg.Sections).WithLogger(logger),
		logger:     logger,
		progress:   b.progress,
		recorder:   b.recorder,
	}
	if cfg.ImageScan {
		p.scanner = imagescan.New(b.engine, b.decoder, cfg.ImageScanOptions).WithLogger(logger)
	}
	if cfg.SealProtection {
		p.seals = seal.NewDetector(cfg.Seal).WithLogger(logger)
	}
	if p.progress == nil {
		p.progress = NoOpProgressCallback{}
	}
	if p.recorder == nil {
		p.recorder = nopRecorder{}
	}
	return p, nil
}

// Pipeline holds the configured stages. It keeps no per-document state and
// may run several documents concurrently.
type Pipeline struct {
	cfg        Config
	opener     document.Opener
	scanner    *imagescan.Scanner
	seals      *seal.Detector
	applicator *redact.Applicator
	planner    *sections.Planner
	logger     *slog.Logger
	progress   ProgressCallback
	recorder   Recorder
}

// Config returns the configuration the pipeline was built with.
func (p *Pipeline) Config() Config { return p.cfg }
