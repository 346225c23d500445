package document

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/dslipak/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/MeKo-Tech/redactor/internal/geometry"
)

// Options configures the PDF opener.
type Options struct {
	// FlattenDPI is the resolution at which pages carrying redactions are
	// re-rendered before the masks are burned in.
	FlattenDPI int
	// UserPassword and OwnerPassword are used to decrypt protected inputs.
	UserPassword  string
	OwnerPassword string
	// TempDir is the parent of the per-document working directory.
	TempDir string
}

// DefaultOptions returns the opener defaults.
func DefaultOptions() Options {
	return Options{FlattenDPI: 200}
}

// PDFOpener opens PDF files with pdfcpu for structure and dslipak/pdf for
// text, rendering pages through a Rasterizer.
type PDFOpener struct {
	opts       Options
	rasterizer Rasterizer
	logger     *slog.Logger
}

// NewPDFOpener constructs an opener. A nil rasterizer defaults to pdftoppm.
func NewPDFOpener(opts Options, r Rasterizer) *PDFOpener {
	if opts.FlattenDPI <= 0 {
		opts.FlattenDPI = DefaultOptions().FlattenDPI
	}
	if r == nil {
		r = Pdftoppm{TempDir: opts.TempDir}
	}
	return &PDFOpener{opts: opts, rasterizer: r, logger: slog.Default()}
}

// WithLogger sets the logger passed to opened documents.
func (o *PDFOpener) WithLogger(l *slog.Logger) *PDFOpener {
	if l != nil {
		o.logger = l
	}
	return o
}

func (o *PDFOpener) configuration() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	if o.opts.UserPassword != "" {
		conf.UserPW = o.opts.UserPassword
	}
	if o.opts.OwnerPassword != "" {
		conf.OwnerPW = o.opts.OwnerPassword
	}
	return conf
}

// Open implements Opener. Any failure is returned as *OpenError.
func (o *PDFOpener) Open(ctx context.Context, path string) (Document, error) {
	doc, err := o.open(ctx, path)
	if err != nil {
		return nil, &OpenError{Path: path, Err: err}
	}
	return doc, nil
}

func (o *PDFOpener) open(ctx context.Context, path string) (*PDF, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}

	workDir, err := os.MkdirTemp(o.opts.TempDir, "redactor-doc-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create work dir: %w", err)
	}
	cleanup := func() { _ = os.RemoveAll(workDir) }

	conf := o.configuration()
	source := path
	if _, err := api.PageCountFile(path); err != nil {
		if !isEncryptionError(err) {
			cleanup()
			return nil, fmt.Errorf("read page count: %w", err)
		}
		if o.opts.UserPassword == "" && o.opts.OwnerPassword == "" {
			cleanup()
			return nil, ErrEncrypted
		}
		source = filepath.Join(workDir, "decrypted.pdf")
		if err := api.DecryptFile(path, source, conf); err != nil {
			cleanup()
			return nil, fmt.Errorf("%w: %w", ErrEncrypted, err)
		}
	}

	dims, err := api.PageDimsFile(source)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("read page dimensions: %w", err)
	}
	if len(dims) == 0 {
		cleanup()
		return nil, errors.New("document has no pages")
	}

	f, err := os.Open(source) //nolint:gosec // G304: caller-provided document path
	if err != nil {
		cleanup()
		return nil, err
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		cleanup()
		return nil, err
	}
	reader, err := pdf.NewReader(f, st.Size())
	if err != nil {
		_ = f.Close()
		cleanup()
		return nil, fmt.Errorf("parse document: %w", err)
	}

	d := &PDF{
		source:     source,
		workDir:    workDir,
		file:       f,
		reader:     reader,
		conf:       conf,
		rasterizer: o.rasterizer,
		flattenDPI: o.opts.FlattenDPI,
		logger:     o.logger.With("document", filepath.Base(path)),
	}
	d.pages = make([]*pdfPage, len(dims))
	for i, dim := range dims {
		d.pages[i] = &pdfPage{doc: d, index: i, size: Size{Width: dim.Width, Height: dim.Height}}
	}
	d.logger.Debug("document opened", "pages", len(dims))
	return d, nil
}

func isEncryptionError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "encrypted") ||
		strings.Contains(msg, "password") ||
		strings.Contains(msg, "decrypt")
}

// PDF is a Document backed by a file on disk. Mutations are recorded and
// only materialized by Save.
type PDF struct {
	mu sync.Mutex
	// readMu serializes access to the text reader, which is not safe for
	// concurrent use.
	readMu     sync.Mutex
	source     string
	workDir    string
	file       *os.File
	reader     *pdf.Reader
	conf       *model.Configuration
	rasterizer Rasterizer
	flattenDPI int
	logger     *slog.Logger
	pages      []*pdfPage
	closed     bool
}

// PageCount implements Document.
func (d *PDF) PageCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pages)
}

// Page implements Document.
func (d *PDF) Page(i int) (Page, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, ErrClosed
	}
	if i < 0 || i >= len(d.pages) {
		return nil, fmt.Errorf("%w: %d of %d", ErrPageRange, i, len(d.pages))
	}
	return d.pages[i], nil
}

// DeletePage implements Document.
func (d *PDF) DeletePage(i int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	if i < 0 || i >= len(d.pages) {
		return fmt.Errorf("%w: %d of %d", ErrPageRange, i, len(d.pages))
	}
	d.pages = append(d.pages[:i], d.pages[i+1:]...)
	return nil
}

// Save implements Document. Every remaining page is written, flattened pages
// replacing their originals, and the result is optimized when Compact is set.
// Failures are returned as *PersistError.
func (d *PDF) Save(ctx context.Context, path string, opts SaveOptions) error {
	if err := d.save(ctx, path, opts); err != nil {
		return &PersistError{Path: path, Err: err}
	}
	return nil
}

func (d *PDF) save(ctx context.Context, path string, opts SaveOptions) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	if len(d.pages) == 0 {
		return errors.New("no pages left to save")
	}

	files := make([]string, 0, len(d.pages))
	for _, p := range d.pages {
		if err := ctx.Err(); err != nil {
			return err
		}
		f, err := d.pageFile(p)
		if err != nil {
			return err
		}
		files = append(files, f)
	}

	conf := d.writeConfiguration(opts)
	merged := filepath.Join(d.workDir, "merged.pdf")
	if err := api.MergeCreateFile(files, merged, false, conf); err != nil {
		return fmt.Errorf("assemble pages: %w", err)
	}

	final := merged
	if opts.Compact {
		final = filepath.Join(d.workDir, "optimized.pdf")
		if err := api.OptimizeFile(merged, final, conf); err != nil {
			return fmt.Errorf("optimize: %w", err)
		}
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return err
		}
	}
	if err := copyFile(final, path); err != nil {
		return err
	}
	d.logger.Info("document saved", "path", path, "pages", len(d.pages))
	return nil
}

func (d *PDF) writeConfiguration(opts SaveOptions) *model.Configuration {
	conf := *d.conf
	conf.WriteObjectStream = opts.Deflate
	conf.WriteXRefStream = opts.Deflate
	return &conf
}

// pageFile returns a single-page PDF holding the current content of p.
func (d *PDF) pageFile(p *pdfPage) (string, error) {
	if p.flattened != "" {
		return p.flattened, nil
	}
	dir := filepath.Join(d.workDir, "page-"+strconv.Itoa(p.index+1))
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", err
	}
	conf := *d.conf
	if err := api.ExtractPagesFile(d.source, dir, []string{strconv.Itoa(p.index + 1)}, &conf); err != nil {
		return "", fmt.Errorf("extract page %d: %w", p.index+1, err)
	}
	matches, err := filepath.Glob(filepath.Join(dir, "*.pdf"))
	if err != nil || len(matches) != 1 {
		return "", fmt.Errorf("extract page %d: expected one file, found %d", p.index+1, len(matches))
	}
	return matches[0], nil
}

// Close implements Document and removes the working directory.
func (d *PDF) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	err := d.file.Close()
	if rmErr := os.RemoveAll(d.workDir); rmErr != nil && err == nil {
		err = rmErr
	}
	return err
}

type pdfPage struct {
	doc   *PDF
	index int
	size  Size

	textOnce sync.Once
	layout   *Layout
	textErr  error

	pending   []Mask
	flattened string
}

func (p *pdfPage) Index() int { return p.index }
func (p *pdfPage) Size() Size { return p.size }

// ExtractText implements Page.
func (p *pdfPage) ExtractText() (string, error) {
	l, err := p.loadLayout()
	if err != nil {
		return "", err
	}
	return l.Text(), nil
}

func (p *pdfPage) loadLayout() (*Layout, error) {
	p.textOnce.Do(func() {
		p.layout, p.textErr = p.readLayout()
		if p.textErr != nil {
			p.layout = NewLayout(nil)
		}
	})
	return p.layout, p.textErr
}

func (p *pdfPage) readLayout() (l *Layout, err error) {
	// dslipak/pdf panics on malformed content streams.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("extract text page %d: %v", p.index+1, r)
		}
	}()

	p.doc.readMu.Lock()
	defer p.doc.readMu.Unlock()
	page := p.doc.reader.Page(p.index + 1)
	if page.V.IsNull() {
		return nil, fmt.Errorf("page %d is null", p.index+1)
	}

	ox, oy := mediaBoxOrigin(page)
	texts := placeGlyphs(page.Content().Text, pageFaces(page))
	glyphs := make([]Glyph, 0, len(texts))
	for _, t := range texts {
		glyphs = append(glyphs, Glyph{
			S:    t.S,
			Rect: glyphRect(t.X-ox, t.Y-oy, t.W, t.FontSize, p.size.Height, t.S),
		})
	}
	return NewLayout(glyphs), nil
}

func mediaBoxOrigin(page pdf.Page) (float64, float64) {
	box := page.V.Key("MediaBox")
	if box.Len() < 4 {
		return 0, 0
	}
	x0, y0 := box.Index(0).Float64(), box.Index(1).Float64()
	x1, y1 := box.Index(2).Float64(), box.Index(3).Float64()
	return min(x0, x1), min(y0, y1)
}

// SearchText implements Page. Occurrences are clipped to the page.
func (p *pdfPage) SearchText(literal string) ([]geometry.Rect, error) {
	l, err := p.loadLayout()
	if err != nil {
		return nil, err
	}
	found := l.Search(literal)
	out := make([]geometry.Rect, 0, len(found))
	for _, r := range found {
		if c := r.Clip(p.size.Width, p.size.Height); !c.Empty() {
			out = append(out, c)
		}
	}
	return out, nil
}

// Rasterize implements Page. Flattened pages render their flattened content.
func (p *pdfPage) Rasterize(ctx context.Context, dpi int) (image.Image, error) {
	file, nr := p.doc.source, p.index+1
	if p.flattened != "" {
		file, nr = p.flattened, 1
	}
	return p.doc.rasterizer.RasterizePage(ctx, file, nr, dpi)
}

// MarkRedaction implements Page.
func (p *pdfPage) MarkRedaction(r geometry.Rect, fill color.Color) error {
	if !r.Finite() || r.Empty() {
		return fmt.Errorf("%w: %+v", ErrInvalidRect, r)
	}
	clipped := r.Clip(p.size.Width, p.size.Height)
	if clipped.Empty() {
		return fmt.Errorf("%w: %+v outside page %.1fx%.1f", ErrInvalidRect, r, p.size.Width, p.size.Height)
	}
	p.pending = append(p.pending, Mask{Rect: clipped, Fill: fill})
	return nil
}

// CommitRedactions implements Page. The page is rendered, the masks are
// painted and the page content is replaced by the painted image, so nothing
// under a mask survives in the output.
func (p *pdfPage) CommitRedactions(ctx context.Context) error {
	if len(p.pending) == 0 {
		return nil
	}
	img, err := p.Rasterize(ctx, p.doc.flattenDPI)
	if err != nil {
		return fmt.Errorf("render page %d for flattening: %w", p.index+1, err)
	}
	painted := PaintMasks(img, p.size, p.pending)

	base := filepath.Join(p.doc.workDir, fmt.Sprintf("flat-%d-%d", p.index+1, len(p.pending)))
	pngPath := base + ".png"
	if err := writePNG(pngPath, painted); err != nil {
		return err
	}
	defer func() { _ = os.Remove(pngPath) }()

	imp := pdfcpu.DefaultImportConfig()
	imp.PageDim = &types.Dim{Width: p.size.Width, Height: p.size.Height}
	imp.UserDim = true
	imp.Pos = types.Full
	pdfPath := base + ".pdf"
	conf := *p.doc.conf
	if err := api.ImportImagesFile([]string{pngPath}, pdfPath, imp, &conf); err != nil {
		return fmt.Errorf("import flattened page %d: %w", p.index+1, err)
	}

	if p.flattened != "" {
		_ = os.Remove(p.flattened)
	}
	p.flattened = pdfPath
	p.doc.logger.Debug("page flattened", "page", p.index, "masks", len(p.pending))
	p.pending = nil
	return nil
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path) //nolint:gosec // G304: path inside work dir
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}

func copyFile(src, dst string) error {
	in, err := os.Open(src) //nolint:gosec // G304: path inside work dir
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	tmp := dst + ".tmp"
	out, err := os.Create(tmp) //nolint:gosec // G304: caller-provided output path
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dst)
}
