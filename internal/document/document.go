// Package document is the PDF substrate used by the redaction pipeline: page
// text, rasters, literal text search, redaction marks and page deletion.
package document

import (
	"context"
	"image"
	"image/color"

	"github.com/MeKo-Tech/redactor/internal/geometry"
)

// Size is a page size in points.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Bounds returns the page rectangle.
func (s Size) Bounds() geometry.Rect {
	return geometry.Rect{MaxX: s.Width, MaxY: s.Height}
}

// SaveOptions control how the final document is written.
type SaveOptions struct {
	// Compact drops unreferenced objects and duplicate resources.
	Compact bool
	// Deflate writes compressed object and cross-reference streams.
	Deflate bool
}

// Page is one page of an open Document. Coordinates are points with the
// origin at the top-left corner.
type Page interface {
	// Index is the page's 0-based position in the document as opened.
	Index() int
	Size() Size
	// ExtractText returns the page text as it was when the document was
	// opened. It is computed once and cached.
	ExtractText() (string, error)
	Rasterize(ctx context.Context, dpi int) (image.Image, error)
	// SearchText returns one or more rectangles per occurrence of literal.
	SearchText(literal string) ([]geometry.Rect, error)
	// MarkRedaction registers an opaque mask to be burned in by CommitRedactions.
	MarkRedaction(r geometry.Rect, fill color.Color) error
	// CommitRedactions irreversibly applies all registered masks. It is a
	// no-op when none are registered.
	CommitRedactions(ctx context.Context) error
}

// Document is an open, mutable document exclusively owned by one run.
type Document interface {
	PageCount() int
	// Page returns the page at the current position i.
	Page(i int) (Page, error)
	// DeletePage removes the page at the current position i.
	DeletePage(i int) error
	Save(ctx context.Context, path string, opts SaveOptions) error
	Close() error
}

// Opener opens documents.
type Opener interface {
	Open(ctx context.Context, path string) (Document, error)
}

// OpenerFunc adapts a function to the Opener interface.
type OpenerFunc func(ctx context.Context, path string) (Document, error)

// Open calls f.
func (f OpenerFunc) Open(ctx context.Context, path string) (Document, error) {
	return f(ctx, path)
}
