package document

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/png" // pdftoppm output
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// Rasterizer renders a single page of a PDF file.
type Rasterizer interface {
	// RasterizePage renders the 1-based page pageNr of the file at pdfPath.
	RasterizePage(ctx context.Context, pdfPath string, pageNr, dpi int) (image.Image, error)
}

// ErrRasterizerMissing is returned when the rendering tool is not installed.
var ErrRasterizerMissing = errors.New("pdftoppm not found in PATH")

// Pdftoppm renders pages with poppler's pdftoppm.
type Pdftoppm struct {
	// Binary is the executable name or path; defaults to "pdftoppm".
	Binary string
	// TempDir receives intermediate PNG files; defaults to os.TempDir().
	TempDir string
}

func (p Pdftoppm) binary() string {
	if p.Binary != "" {
		return p.Binary
	}
	return "pdftoppm"
}

// Available reports whether the binary can be found.
func (p Pdftoppm) Available() bool {
	_, err := exec.LookPath(p.binary())
	return err == nil
}

// RasterizePage implements Rasterizer.
func (p Pdftoppm) RasterizePage(ctx context.Context, pdfPath string, pageNr, dpi int) (image.Image, error) {
	if pageNr < 1 {
		return nil, fmt.Errorf("rasterize: %w: page %d", ErrPageRange, pageNr)
	}
	if dpi <= 0 {
		return nil, fmt.Errorf("rasterize: invalid dpi %d", dpi)
	}
	bin, err := exec.LookPath(p.binary())
	if err != nil {
		return nil, ErrRasterizerMissing
	}

	dir, err := os.MkdirTemp(p.TempDir, "redactor-raster-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create raster dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(dir) }()

	prefix := filepath.Join(dir, "page")
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, pdftoppmArgs(pdfPath, prefix, pageNr, dpi)...) //nolint:gosec // G204: fixed tool, file path argument
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("pdftoppm page %d: %w: %s", pageNr, err, strings.TrimSpace(stderr.String()))
	}

	out := prefix + ".png"
	f, err := os.Open(out) //nolint:gosec // G304: file created above
	if err != nil {
		return nil, fmt.Errorf("open rendered page: %w", err)
	}
	defer func() { _ = f.Close() }()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode rendered page: %w", err)
	}
	return img, nil
}

func pdftoppmArgs(pdfPath, prefix string, pageNr, dpi int) []string {
	n := strconv.Itoa(pageNr)
	return []string{
		"-png", "-singlefile",
		"-f", n, "-l", n,
		"-r", strconv.Itoa(dpi),
		pdfPath, prefix,
	}
}

// RasterizerFunc adapts a function to the Rasterizer interface.
type RasterizerFunc func(ctx context.Context, pdfPath string, pageNr, dpi int) (image.Image, error)

// RasterizePage calls f.
func (f RasterizerFunc) RasterizePage(ctx context.Context, pdfPath string, pageNr, dpi int) (image.Image, error) {
	return f(ctx, pdfPath, pageNr, dpi)
}
