package document

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/redactor/internal/geometry"
)

const helveticaFont = "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>"

const phoneContent = `BT /F1 12 Tf 1 0 0 1 100 700 Tm (Tel 18612345678) Tj ET
BT /F1 12 Tf 1 0 0 1 100 600 Tm (18612345678) Tj ET`

// compositeFont holds objects 5 to 8: a Type0 font over an Identity-H CID
// font whose ToUnicode maps 0001/0002 to 电话 and 0010..0019 to digits.
var compositeFont = []string{
	"<< /Type /Font /Subtype /Type0 /BaseFont /ABCDEF+SimSun /Encoding /Identity-H /DescendantFonts [6 0 R] /ToUnicode 7 0 R >>",
	"<< /Type /Font /Subtype /CIDFontType2 /BaseFont /ABCDEF+SimSun /CIDSystemInfo << /Registry (Adobe) /Ordering (Identity) /Supplement 0 >> /FontDescriptor 8 0 R /DW 1000 >>",
	stream(`begincmap
1 begincodespacerange
<0000> <FFFF>
endcodespacerange
2 beginbfchar
<0001> <7535>
<0002> <8BDD>
endbfchar
1 beginbfrange
<0010> <0019> <0030>
endbfrange
endcmap`),
	"<< /Type /FontDescriptor /FontName /ABCDEF+SimSun /Flags 4 /FontBBox [0 -140 1000 880] /ItalicAngle 0 /Ascent 880 /Descent -120 /CapHeight 700 /StemV 80 >>",
}

func stream(data string) string {
	return fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(data), data)
}

// textPDF writes a one-page A4 PDF showing content with fonts[0] as /F1.
// Further fonts entries become objects 6, 7 and so on.
func textPDF(t *testing.T, content string, fonts ...string) string {
	t.Helper()
	objs := append([]string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 595 842] /Resources << /Font << /F1 5 0 R >> >> /Contents 4 0 R >>",
		stream(content),
	}, fonts...)

	var b bytes.Buffer
	b.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objs))
	for i, o := range objs {
		offsets[i] = b.Len()
		fmt.Fprintf(&b, "%d 0 obj\n%s\nendobj\n", i+1, o)
	}
	xref := b.Len()
	fmt.Fprintf(&b, "xref\n0 %d\n0000000000 65535 f \n", len(objs)+1)
	for _, off := range offsets {
		fmt.Fprintf(&b, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&b, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objs)+1, xref)

	path := filepath.Join(t.TempDir(), "text.pdf")
	require.NoError(t, os.WriteFile(path, b.Bytes(), 0o600))
	return path
}

func openPage(t *testing.T, path string, r Rasterizer) (Document, Page) {
	t.Helper()
	doc, err := NewPDFOpener(Options{TempDir: t.TempDir(), FlattenDPI: 144}, r).Open(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = doc.Close() })
	p, err := doc.Page(0)
	require.NoError(t, err)
	return doc, p
}

func TestPDF_SearchTextStandardFont(t *testing.T) {
	_, p := openPage(t, textPDF(t, phoneContent, helveticaFont), nil)

	text, err := p.ExtractText()
	require.NoError(t, err)
	assert.Equal(t, "Tel 18612345678\n18612345678", text)

	rects, err := p.SearchText("18612345678")
	require.NoError(t, err)
	require.Len(t, rects, 2)

	// "Tel " is 1.667 em and each digit 0.556 em at 12pt.
	assert.InDelta(t, 120.0, rects[0].MinX, 0.5)
	assert.InDelta(t, 193.4, rects[0].MaxX, 0.5)
	assert.InDelta(t, 131.2, rects[0].MinY, 0.5)
	assert.InDelta(t, 144.4, rects[0].MaxY, 0.5)

	assert.InDelta(t, 100.0, rects[1].MinX, 0.5)
	assert.InDelta(t, 173.4, rects[1].MaxX, 0.5)
	assert.InDelta(t, 231.2, rects[1].MinY, 0.5)
}

func TestPDF_SearchTextCompositeFont(t *testing.T) {
	content := "BT /F1 12 Tf 1 0 0 1 100 500 Tm <0001000200110018001600110012001300140015001600170018> Tj ET"
	_, p := openPage(t, textPDF(t, content, compositeFont...), nil)

	text, err := p.ExtractText()
	require.NoError(t, err)
	assert.Equal(t, "电话18612345678", text)

	rects, err := p.SearchText("18612345678")
	require.NoError(t, err)
	require.Len(t, rects, 1)
	// No /W array: every glyph advances by /DW.
	assert.InDelta(t, 124.0, rects[0].MinX, 0.5)
	assert.InDelta(t, 256.0, rects[0].MaxX, 0.5)
	assert.InDelta(t, 331.2, rects[0].MinY, 0.5)

	label, err := p.SearchText("电话")
	require.NoError(t, err)
	require.Len(t, label, 1)
	assert.InDelta(t, 100.0, label[0].MinX, 0.5)
	assert.InDelta(t, 124.0, label[0].MaxX, 0.5)
}

// darkPixels counts pixels darker than mid grey inside r, given in points.
func darkPixels(img image.Image, r geometry.Rect, dpi int) int {
	s := float64(dpi) / 72
	box := r.Scale(s, s).ToImageRect(img.Bounds())
	n := 0
	for y := box.Min.Y; y < box.Max.Y; y++ {
		for x := box.Min.X; x < box.Max.X; x++ {
			if color.GrayModel.Convert(img.At(x, y)).(color.Gray).Y < 128 {
				n++
			}
		}
	}
	return n
}

func TestPDF_RedactedTextIsPainted(t *testing.T) {
	raster := Pdftoppm{TempDir: t.TempDir()}
	if !raster.Available() {
		t.Skip("pdftoppm not installed")
	}
	ctx := context.Background()
	src := textPDF(t, phoneContent, helveticaFont)
	doc, p := openPage(t, src, raster)

	rects, err := p.SearchText("18612345678")
	require.NoError(t, err)
	require.Len(t, rects, 2)

	const dpi = 144
	before, err := raster.RasterizePage(ctx, src, 1, dpi)
	require.NoError(t, err)
	// Everything right of the label on the first line belongs to the number.
	band := geometry.NewRect(rects[0].MinX+1, rects[0].MinY, 595, rects[0].MaxY)
	label := geometry.NewRect(90, rects[0].MinY, rects[0].MinX-1, rects[0].MaxY)
	require.Positive(t, darkPixels(before, band, dpi))
	require.Positive(t, darkPixels(before, label, dpi))

	for _, r := range rects {
		require.NoError(t, p.MarkRedaction(r, color.White))
	}
	require.NoError(t, p.CommitRedactions(ctx))
	out := filepath.Join(t.TempDir(), "redacted.pdf")
	require.NoError(t, doc.Save(ctx, out, SaveOptions{}))

	after, err := raster.RasterizePage(ctx, out, 1, dpi)
	require.NoError(t, err)
	assert.Zero(t, darkPixels(after, band, dpi), "number ink left on the first line")
	assert.Zero(t, darkPixels(after, geometry.NewRect(rects[1].MinX, rects[1].MinY, 595, rects[1].MaxY), dpi))
	assert.Positive(t, darkPixels(after, label, dpi), "label must survive")
}
