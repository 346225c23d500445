package testutil

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"os"
	"sync"

	"github.com/MeKo-Tech/redactor/internal/document"
	"github.com/MeKo-Tech/redactor/internal/geometry"
)

// A4 is the page size used by fake pages unless overridden.
var A4 = document.Size{Width: 595, Height: 842}

// FakePage is an in-memory document.Page.
type FakePage struct {
	mu sync.Mutex

	Idx      int
	PageSize document.Size
	Text     string
	TextErr  error

	// Raster is returned by Rasterize at any DPI.
	Raster    image.Image
	RasterErr error

	// Occurrences maps literals to the rectangles SearchText reports.
	Occurrences map[string][]geometry.Rect
	SearchErr   error

	MarkErr   error
	CommitErr error

	Pending     []document.Mask
	Committed   []document.Mask
	Commits     int
	RasterCalls int
}

// NewFakePage returns an A4 page with the given text.
func NewFakePage(idx int, text string) *FakePage {
	return &FakePage{Idx: idx, PageSize: A4, Text: text, Occurrences: map[string][]geometry.Rect{}}
}

// WithOccurrence registers rectangles reported for literal.
func (p *FakePage) WithOccurrence(literal string, rects ...geometry.Rect) *FakePage {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Occurrences[literal] = append(p.Occurrences[literal], rects...)
	return p
}

// WithRaster sets the raster returned by Rasterize.
func (p *FakePage) WithRaster(img image.Image) *FakePage {
	p.Raster = img
	return p
}

func (p *FakePage) Index() int          { return p.Idx }
func (p *FakePage) Size() document.Size { return p.PageSize }

func (p *FakePage) ExtractText() (string, error) {
	if p.TextErr != nil {
		return "", p.TextErr
	}
	return p.Text, nil
}

func (p *FakePage) Rasterize(ctx context.Context, _ int) (image.Image, error) {
	p.mu.Lock()
	p.RasterCalls++
	p.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.RasterErr != nil {
		return nil, p.RasterErr
	}
	if p.Raster == nil {
		return BlankPage(int(p.PageSize.Width), int(p.PageSize.Height)), nil
	}
	return p.Raster, nil
}

func (p *FakePage) SearchText(literal string) ([]geometry.Rect, error) {
	if p.SearchErr != nil {
		return nil, p.SearchErr
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]geometry.Rect(nil), p.Occurrences[literal]...), nil
}

func (p *FakePage) MarkRedaction(r geometry.Rect, fill color.Color) error {
	if p.MarkErr != nil {
		return p.MarkErr
	}
	if r.Empty() {
		return document.ErrInvalidRect
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Pending = append(p.Pending, document.Mask{Rect: r, Fill: fill})
	return nil
}

func (p *FakePage) CommitRedactions(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.Pending) == 0 {
		return nil
	}
	if p.CommitErr != nil {
		return p.CommitErr
	}
	p.Commits++
	p.Committed = append(p.Committed, p.Pending...)
	p.Pending = nil
	return nil
}

// FakeDocument is an in-memory document.Document.
type FakeDocument struct {
	mu sync.Mutex

	Pages []*FakePage
	// Deleted records the positions passed to DeletePage, in call order.
	Deleted []int
	// Removed records the original indices of deleted pages, in call order.
	Removed []int

	SaveErr   error
	SavedTo   string
	SavedWith document.SaveOptions
	Closed    bool
}

// NewFakeDocument builds a document with one page per text.
func NewFakeDocument(texts ...string) *FakeDocument {
	d := &FakeDocument{}
	for i, t := range texts {
		d.Pages = append(d.Pages, NewFakePage(i, t))
	}
	return d
}

// Indices returns the original indices of the remaining pages in order.
func (d *FakeDocument) Indices() []int {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]int, len(d.Pages))
	for i, p := range d.Pages {
		out[i] = p.Idx
	}
	return out
}

func (d *FakeDocument) PageCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.Pages)
}

func (d *FakeDocument) Page(i int) (document.Page, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if i < 0 || i >= len(d.Pages) {
		return nil, fmt.Errorf("%w: %d", document.ErrPageRange, i)
	}
	return d.Pages[i], nil
}

func (d *FakeDocument) DeletePage(i int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if i < 0 || i >= len(d.Pages) {
		return fmt.Errorf("%w: %d", document.ErrPageRange, i)
	}
	d.Deleted = append(d.Deleted, i)
	d.Removed = append(d.Removed, d.Pages[i].Idx)
	d.Pages = append(d.Pages[:i], d.Pages[i+1:]...)
	return nil
}

// Save records the call and writes a marker file to path.
func (d *FakeDocument) Save(_ context.Context, path string, opts document.SaveOptions) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.SaveErr != nil {
		return &document.PersistError{Path: path, Err: d.SaveErr}
	}
	if err := os.WriteFile(path, []byte("%PDF-fake\n"), 0o600); err != nil {
		return &document.PersistError{Path: path, Err: err}
	}
	d.SavedTo = path
	d.SavedWith = opts
	return nil
}

func (d *FakeDocument) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Closed = true
	return nil
}

// FakeOpener serves FakeDocuments by path.
type FakeOpener struct {
	mu   sync.Mutex
	Docs map[string]*FakeDocument
}

// NewFakeOpener returns an opener with no documents.
func NewFakeOpener() *FakeOpener {
	return &FakeOpener{Docs: map[string]*FakeDocument{}}
}

// Add registers doc under path.
func (o *FakeOpener) Add(path string, doc *FakeDocument) *FakeOpener {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.Docs[path] = doc
	return o
}

// Open implements document.Opener.
func (o *FakeOpener) Open(_ context.Context, path string) (document.Document, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	doc, ok := o.Docs[path]
	if !ok {
		return nil, &document.OpenError{Path: path, Err: errors.New("no such fake document")}
	}
	return doc, nil
}
