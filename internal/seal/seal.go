// Package seal finds red official seals and stamps on rendered pages so the
// redaction applicator can leave them intact.
package seal

import (
	"context"
	"fmt"
	"image"
	"log/slog"

	"github.com/MeKo-Tech/redactor/internal/document"
	"github.com/MeKo-Tech/redactor/internal/geometry"
)

// Options tunes seal detection. MinArea is measured in pixels at 72 DPI and
// scaled with the render resolution. Zero fields select the defaults.
type Options struct {
	DPI           int
	MinSaturation float64
	MinValue      float64
	MedianKernel  int
	MinArea       float64
}

// DefaultOptions returns the seal detection defaults.
func DefaultOptions() Options {
	return Options{DPI: 72, MinSaturation: 80, MinValue: 80, MedianKernel: 5, MinArea: 500}
}

// Detector finds protected regions on pages.
type Detector struct {
	opts   Options
	logger *slog.Logger
}

// NewDetector constructs a Detector, filling zero options with defaults.
func NewDetector(opts Options) *Detector {
	def := DefaultOptions()
	if opts.DPI <= 0 {
		opts.DPI = def.DPI
	}
	if opts.MedianKernel <= 0 {
		opts.MedianKernel = def.MedianKernel
	}
	if opts.MinArea <= 0 {
		opts.MinArea = def.MinArea
	}
	if opts.MinSaturation <= 0 {
		opts.MinSaturation = def.MinSaturation
	}
	if opts.MinValue <= 0 {
		opts.MinValue = def.MinValue
	}
	return &Detector{opts: opts, logger: slog.Default()}
}

// WithLogger sets the logger used for diagnostics.
func (d *Detector) WithLogger(l *slog.Logger) *Detector {
	if l != nil {
		d.logger = l
	}
	return d
}

// Detect renders the page and returns seal rectangles in page space.
func (d *Detector) Detect(ctx context.Context, page document.Page) ([]geometry.Rect, error) {
	img, err := page.Rasterize(ctx, d.opts.DPI)
	if err != nil {
		return nil, fmt.Errorf("render page %d for seal detection: %w", page.Index(), err)
	}
	rects := d.DetectImage(img, page.Size(), d.opts.DPI)
	d.logger.Debug("seal regions", "page", page.Index(), "count", len(rects))
	return rects, nil
}

// DetectImage finds seal regions on a raster rendered at dpi and scales them
// to a page of the given size.
func (d *Detector) DetectImage(img image.Image, page document.Size, dpi int) []geometry.Rect {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return nil
	}

	mask := colorMask(img, redBands, d.opts.MinSaturation, d.opts.MinValue)
	mask = medianFilter(mask, w, h, d.opts.MedianKernel)
	comps, labels := components(mask, w, h)

	minArea := d.opts.MinArea
	if dpi > 0 {
		s := float64(dpi) / 72
		minArea *= s * s
	}
	sx := page.Width / float64(w)
	sy := page.Height / float64(h)

	var out []geometry.Rect
	for _, c := range comps {
		if float64(filledArea(c, labels, w)) < minArea {
			continue
		}
		r := geometry.NewRect(float64(c.minX), float64(c.minY), float64(c.maxX+1), float64(c.maxY+1))
		out = append(out, r.Scale(sx, sy))
	}
	return out
}
