// Package redact registers and burns in redaction masks for detected items,
// leaving seal-covered items untouched.
package redact

import (
	"context"
	"fmt"
	"image/color"
	"log/slog"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/redactor/internal/document"
	"github.com/MeKo-Tech/redactor/internal/geometry"
	"github.com/MeKo-Tech/redactor/internal/privacy"
	"github.com/MeKo-Tech/redactor/internal/reconcile"
)

// DefaultSealOverlap is the overlap ratio above which a mask is dropped to
// keep a seal intact.
const DefaultSealOverlap = 0.5

// Options configures an Applicator.
type Options struct {
	Fill color.Color
	// SealOverlap is in (0,1]; zero selects DefaultSealOverlap.
	SealOverlap float64
}

// DefaultOptions masks with opaque white.
func DefaultOptions() Options {
	return Options{Fill: color.White, SealOverlap: DefaultSealOverlap}
}

// Applicator turns detection items into committed page masks.
type Applicator struct {
	opts   Options
	logger *slog.Logger
}

// New creates an applicator; zero options fall back to the defaults.
func New(opts Options) *Applicator {
	def := DefaultOptions()
	if opts.Fill == nil {
		opts.Fill = def.Fill
	}
	if opts.SealOverlap <= 0 {
		opts.SealOverlap = def.SealOverlap
	}
	return &Applicator{opts: opts, logger: slog.Default()}
}

// WithLogger sets the logger.
func (a *Applicator) WithLogger(l *slog.Logger) *Applicator {
	if l != nil {
		a.logger = l
	}
	return a
}

// Apply registers masks for items on page, then commits them in one batch.
// Per-item failures are recorded in res and never abort the batch. The
// returned error is non-nil only when the commit fails; every mask of the
// page is then recorded as failed.
func (a *Applicator) Apply(ctx context.Context, page document.Page, items []privacy.Item, protected []geometry.Rect, res *MaskResult) error {
	local := NewMaskResult()
	marked := 0
	for _, item := range items {
		st, masks, err := a.applyItem(page, item, protected)
		switch st {
		case StatusSkipped:
			a.logger.Debug("item covered by seal", "page", page.Index(), "type", item.Category)
		case StatusFailed:
			a.logger.Warn("redaction failed", "page", page.Index(), "type", item.Category, "error", err)
			local.addFailure(item, page.Index(), err)
		default:
			marked += masks
			local.addSuccess(item, page.Index(), masks)
		}
	}

	var commitErr error
	if marked > 0 {
		if err := page.CommitRedactions(ctx); err != nil {
			commitErr = &ApplyError{Page: page.Index(), Err: fmt.Errorf("commit: %w", err)}
			a.logger.Error("failed to burn in redactions", "page", page.Index(), "error", err)
			failCommitted(local, commitErr)
		}
	}
	res.Merge(local)
	return commitErr
}

func (a *Applicator) applyItem(page document.Page, item privacy.Item, protected []geometry.Rect) (Status, int, error) {
	rects, err := reconcile.PageRects(page, item)
	if err != nil {
		return StatusFailed, 0, err
	}

	var keep []geometry.Rect
	for _, r := range rects {
		if !a.sealCovered(r, protected) {
			keep = append(keep, r)
		}
	}
	if len(keep) == 0 {
		return StatusSkipped, 0, nil
	}

	for _, r := range keep {
		if err := page.MarkRedaction(r, a.opts.Fill); err != nil {
			return StatusFailed, 0, &ApplyError{Page: page.Index(), Category: item.Category, Err: err}
		}
	}
	return StatusSuccess, len(keep), nil
}

func (a *Applicator) sealCovered(r geometry.Rect, protected []geometry.Rect) bool {
	for _, p := range protected {
		if geometry.OverlapRatio(r, p) > a.opts.SealOverlap {
			return true
		}
	}
	return false
}

// failCommitted turns every success in res into a failure.
func failCommitted(res *MaskResult, err error) {
	for i := range res.Details {
		if res.Details[i].Status == StatusSuccess {
			res.Details[i].Status = StatusFailed
			res.Details[i].Error = err.Error()
			res.SuccessfulMasks--
			res.FailedMasks++
		}
	}
}

// ParseColor parses "#rrggbb", "rrggbb" or "#rgb" into an opaque colour.
func ParseColor(s string) (color.RGBA, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) != 6 {
		return color.RGBA{}, fmt.Errorf("invalid colour %q", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid colour %q: %w", s, err)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}
