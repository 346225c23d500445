// Package imagescan finds sensitive content in the rendered pixels of a page:
// ID and phone numbers in OCR output, names next to identity labels, and QR
// codes or barcodes on certificate-like pages.
package imagescan

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"os"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/MeKo-Tech/redactor/internal/barcode"
	"github.com/MeKo-Tech/redactor/internal/document"
	"github.com/MeKo-Tech/redactor/internal/geometry"
	"github.com/MeKo-Tech/redactor/internal/ocr"
	"github.com/MeKo-Tech/redactor/internal/privacy"
)

const (
	// PatternConfidence is the OCR confidence a fragment needs before it is
	// scanned for ID and phone numbers or considered as a name.
	PatternConfidence = 0.5
	// IdentityConfidence is the floor for fragments joined to look for
	// identity labels.
	IdentityConfidence = 0.3
	// CodeConfidence is assigned to decoded QR codes and barcodes.
	CodeConfidence = 0.99
)

// Options configures a Scanner.
type Options struct {
	DPI     int
	TempDir string
	// Formats restricts barcode decoding. Empty means barcode.AllowList.
	Formats []barcode.Format
	Text    privacy.TextOptions
}

// DefaultOptions returns the scanner defaults.
func DefaultOptions() Options {
	return Options{DPI: 150, Formats: barcode.AllowList}
}

// Result is the outcome of scanning one page.
type Result struct {
	Items        []privacy.Item
	RasterWidth  int
	RasterHeight int
	// Err is the first recovered failure, a *DetectionError. Items found
	// before a decoder failure are kept.
	Err error
}

// Scanner runs OCR and code decoding over page rasters.
type Scanner struct {
	engine  ocr.Engine
	decoder barcode.Decoder
	opts    Options
	logger  *slog.Logger
}

// New creates a scanner. A nil decoder disables code detection.
func New(engine ocr.Engine, decoder barcode.Decoder, opts Options) *Scanner {
	if opts.DPI <= 0 {
		opts.DPI = DefaultOptions().DPI
	}
	if len(opts.Formats) == 0 {
		opts.Formats = barcode.AllowList
	}
	return &Scanner{engine: engine, decoder: decoder, opts: opts, logger: slog.Default()}
}

// WithLogger sets the logger.
func (s *Scanner) WithLogger(l *slog.Logger) *Scanner {
	if l != nil {
		s.logger = l
	}
	return s
}

// Scan detects image-borne sensitive content on page. Failures never
// propagate: they are logged and reported in Result.Err.
func (s *Scanner) Scan(ctx context.Context, page document.Page) Result {
	var res Result
	fail := func(stage string, err error) {
		derr := &DetectionError{Page: page.Index(), Stage: stage, Err: err}
		s.logger.Warn("image detection failed", "page", page.Index(), "stage", stage, "error", err)
		if res.Err == nil {
			res.Err = derr
		}
	}

	img, err := page.Rasterize(ctx, s.opts.DPI)
	if err != nil {
		fail(StageRasterize, err)
		return res
	}
	b := img.Bounds()
	res.RasterWidth, res.RasterHeight = b.Dx(), b.Dy()
	if res.RasterWidth == 0 || res.RasterHeight == 0 {
		fail(StageRasterize, fmt.Errorf("empty raster"))
		return res
	}

	frags, err := s.recognize(ctx, img)
	if err != nil {
		fail(StageOCR, err)
		return res
	}
	s.logger.Debug("ocr complete", "page", page.Index(), "fragments", len(frags))

	res.Items = append(res.Items, s.patternItems(frags, res.RasterWidth, res.RasterHeight)...)
	res.Items = append(res.Items, s.nameItems(frags, res.RasterWidth, res.RasterHeight)...)

	if s.decoder != nil && privacy.CodeKeywords.Contains(ocr.JoinText(frags, -1)) {
		codes, errs := s.codeItems(ctx, img)
		res.Items = append(res.Items, codes...)
		for _, e := range errs {
			fail(e.Stage, e.Err)
		}
	}

	for i := range res.Items {
		res.Items[i].Page = page.Index()
	}
	return res
}

// recognize writes img to a temporary PNG for the OCR engine and removes it
// before returning.
func (s *Scanner) recognize(ctx context.Context, img image.Image) ([]ocr.Fragment, error) {
	if s.engine == nil {
		return nil, fmt.Errorf("no OCR engine configured")
	}
	f, err := os.CreateTemp(s.opts.TempDir, "redactor-page-*.png")
	if err != nil {
		return nil, fmt.Errorf("create raster file: %w", err)
	}
	path := f.Name()
	_ = f.Close()
	defer func() {
		if rerr := os.Remove(path); rerr != nil && !os.IsNotExist(rerr) {
			s.logger.Warn("failed to remove raster file", "path", path, "error", rerr)
		}
	}()

	if err := imaging.Save(img, path); err != nil {
		return nil, fmt.Errorf("write raster file: %w", err)
	}
	return s.engine.Recognize(ctx, path)
}

func (s *Scanner) patternItems(frags []ocr.Fragment, w, h int) []privacy.Item {
	var items []privacy.Item
	for _, f := range ocr.Above(frags, PatternConfidence) {
		emit := func(cat privacy.Category, matches []privacy.Match) {
			for _, m := range matches {
				items = append(items, imageItem(cat, m.Value, privacy.OCRRegion(f.Polygon[:], w, h), f.Confidence))
			}
		}
		text := privacy.FoldWidth(f.Text)
		emit(privacy.CategoryIDNumber, privacy.FindIDNumbers(text, s.opts.Text.VerifyIDChecksum))
		emit(privacy.CategoryPhone, privacy.FindPhones(text))
	}
	return items
}

func (s *Scanner) nameItems(frags []ocr.Fragment, w, h int) []privacy.Item {
	if !privacy.IdentityKeywords.Contains(ocr.JoinText(frags, IdentityConfidence)) {
		return nil
	}
	var items []privacy.Item
	for _, f := range ocr.Above(frags, PatternConfidence) {
		if privacy.IsNameCandidate(f.Text) {
			items = append(items, imageItem(privacy.CategoryName, strings.TrimSpace(f.Text),
				privacy.OCRRegion(f.Polygon[:], w, h), f.Confidence))
		}
	}
	return items
}

func (s *Scanner) codeItems(ctx context.Context, img image.Image) ([]privacy.Item, []*DetectionError) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	var (
		items []privacy.Item
		errs  []*DetectionError
	)

	qr, ok, err := s.decoder.DecodeQR(ctx, img)
	switch {
	case err != nil:
		errs = append(errs, &DetectionError{Stage: StageQR, Err: err})
	case ok && qr.Value != "":
		quad := geometry.QuadFromRect(qr.BBox)
		items = append(items, imageItem(privacy.CategoryQRCode, qr.Value, privacy.OCRRegion(quad[:], w, h), CodeConfidence))
	}

	codes, err := s.decoder.Decode(ctx, img, s.opts.Formats)
	if err != nil {
		errs = append(errs, &DetectionError{Stage: StageBarcode, Err: err})
	}
	for _, c := range codes {
		if c.Value == "" {
			continue
		}
		items = append(items, imageItem(privacy.CategoryBarcode, c.Value, privacy.RasterRegion(c.BBox, w, h), CodeConfidence))
	}
	return items, errs
}

func imageItem(cat privacy.Category, value string, region privacy.Region, conf float64) privacy.Item {
	return privacy.Item{
		Category:   cat,
		Value:      value,
		Region:     region,
		Confidence: conf,
		Source:     privacy.SourceImage,
	}
}
