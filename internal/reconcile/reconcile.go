// Package reconcile maps detection regions from their native coordinate
// space onto page coordinates.
package reconcile

import (
	"errors"
	"fmt"

	"github.com/MeKo-Tech/redactor/internal/document"
	"github.com/MeKo-Tech/redactor/internal/geometry"
	"github.com/MeKo-Tech/redactor/internal/privacy"
)

// ErrNoOccurrence is returned when a text item's value cannot be found on its page.
var ErrNoOccurrence = errors.New("text not found on page")

// RegionFormatError reports a region that cannot be mapped to page space.
type RegionFormatError struct {
	Space  privacy.Space
	Reason string
}

func (e *RegionFormatError) Error() string {
	return fmt.Sprintf("invalid %s region: %s", e.Space, e.Reason)
}

func formatErr(s privacy.Space, format string, args ...any) error {
	return &RegionFormatError{Space: s, Reason: fmt.Sprintf(format, args...)}
}

// PageRects resolves an item's region to one or more page rectangles,
// clipped to the page. Text regions yield one rectangle per occurrence of
// the item value.
func PageRects(page document.Page, item privacy.Item) ([]geometry.Rect, error) {
	size := page.Size()
	if size.Width <= 0 || size.Height <= 0 {
		return nil, fmt.Errorf("page %d has no size", page.Index())
	}
	reg := item.Region

	switch reg.Space {
	case privacy.SpaceText:
		return textRects(page, item)

	case privacy.SpacePage:
		if !reg.Rect.Finite() {
			return nil, formatErr(reg.Space, "non-finite coordinates")
		}
		return clipOne(reg.Space, geometry.NewRect(reg.Rect.MinX, reg.Rect.MinY, reg.Rect.MaxX, reg.Rect.MaxY), size)

	case privacy.SpaceRaster:
		if reg.RasterWidth <= 0 || reg.RasterHeight <= 0 {
			return nil, formatErr(reg.Space, "missing raster size")
		}
		if !reg.Rect.Finite() {
			return nil, formatErr(reg.Space, "non-finite coordinates")
		}
		r := geometry.NewRect(reg.Rect.MinX, reg.Rect.MinY, reg.Rect.MaxX, reg.Rect.MaxY)
		return clipOne(reg.Space, scale(r, reg, size), size)

	case privacy.SpaceOCR:
		if reg.RasterWidth <= 0 || reg.RasterHeight <= 0 {
			return nil, formatErr(reg.Space, "missing raster size")
		}
		if len(reg.Polygon) != 4 {
			return nil, formatErr(reg.Space, "expected 4 points, got %d", len(reg.Polygon))
		}
		r := geometry.BoundingBox(reg.Polygon)
		if !r.Finite() {
			return nil, formatErr(reg.Space, "non-finite coordinates")
		}
		return clipOne(reg.Space, scale(r, reg, size), size)

	default:
		return nil, formatErr(reg.Space, "unknown coordinate space")
	}
}

func textRects(page document.Page, item privacy.Item) ([]geometry.Rect, error) {
	if item.Value == "" {
		return nil, formatErr(privacy.SpaceText, "empty value")
	}
	found, err := page.SearchText(item.Value)
	if err != nil {
		return nil, fmt.Errorf("search page %d: %w", page.Index(), err)
	}
	size := page.Size()
	out := make([]geometry.Rect, 0, len(found))
	for _, r := range found {
		if !r.Finite() {
			continue
		}
		if c := r.Clip(size.Width, size.Height); !c.Empty() {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return nil, ErrNoOccurrence
	}
	return out, nil
}

func scale(r geometry.Rect, reg privacy.Region, size document.Size) geometry.Rect {
	return r.Scale(size.Width/float64(reg.RasterWidth), size.Height/float64(reg.RasterHeight))
}

func clipOne(s privacy.Space, r geometry.Rect, size document.Size) ([]geometry.Rect, error) {
	if r.Empty() {
		return nil, formatErr(s, "zero area")
	}
	c := r.Clip(size.Width, size.Height)
	if c.Empty() {
		return nil, formatErr(s, "outside page bounds")
	}
	return []geometry.Rect{c}, nil
}
