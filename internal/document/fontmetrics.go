package document

import (
	"math"
	"strings"

	"github.com/dslipak/pdf"
	"golang.org/x/text/width"
)

// Advances below are in glyph space units, 1000 to the em.

// helveticaWidths and timesWidths hold the standard-14 widths for ASCII 32..126.
var helveticaWidths = [95]float64{
	278, 278, 355, 556, 556, 889, 667, 191, 333, 333, 389, 584, 278, 333, 278, 278,
	556, 556, 556, 556, 556, 556, 556, 556, 556, 556, 278, 278, 584, 584, 584, 556,
	1015, 667, 667, 722, 722, 667, 611, 778, 722, 278, 500, 667, 556, 833, 722, 778,
	667, 778, 722, 667, 611, 722, 667, 944, 667, 667, 611, 278, 278, 278, 469, 556,
	333, 556, 556, 500, 556, 556, 278, 556, 556, 222, 222, 500, 222, 833, 556, 556,
	556, 556, 333, 500, 278, 556, 500, 722, 500, 500, 500, 334, 260, 334, 584,
}

var timesWidths = [95]float64{
	250, 333, 408, 500, 500, 833, 778, 180, 333, 333, 500, 564, 250, 333, 250, 278,
	500, 500, 500, 500, 500, 500, 500, 500, 500, 500, 278, 278, 564, 564, 564, 444,
	921, 722, 667, 667, 722, 611, 556, 722, 722, 333, 389, 722, 611, 889, 722, 722,
	556, 722, 667, 556, 611, 722, 722, 944, 722, 722, 611, 333, 278, 333, 469, 500,
	333, 444, 500, 444, 500, 444, 333, 500, 500, 278, 278, 500, 278, 778, 500, 500,
	500, 500, 333, 389, 278, 500, 500, 722, 500, 500, 444, 480, 200, 480, 541,
}

// fontFace is what the layout knows about a page font when the reader
// reports no glyph widths for it.
type fontFace struct {
	composite bool
	// defaultWidth is a composite font's /DW.
	defaultWidth float64
	// uniform is set when the composite font has no /W array, so every
	// glyph is defaultWidth wide.
	uniform bool
}

// pageFaces indexes the page's fonts by base name without the subset tag,
// the same key dslipak puts in pdf.Text.Font.
func pageFaces(page pdf.Page) map[string]fontFace {
	faces := make(map[string]fontFace)
	for _, key := range page.Fonts() {
		f := page.Font(key)
		var face fontFace
		if f.V.Key("Subtype").Name() == "Type0" {
			cid := f.V.Key("DescendantFonts").Index(0)
			face = fontFace{composite: true, defaultWidth: 1000, uniform: cid.Key("W").Len() == 0}
			dw := cid.Key("DW")
			if k := dw.Kind(); (k == pdf.Integer || k == pdf.Real) && dw.Float64() > 0 {
				face.defaultWidth = dw.Float64()
			}
		}
		faces[baseName(f.BaseFont())] = face
	}
	return faces
}

func baseName(font string) string {
	if i := strings.Index(font, "+"); i >= 0 {
		return font[i+1:]
	}
	return font
}

// advance estimates the width of s shown in font.
func (f fontFace) advance(font, s string) float64 {
	var total float64
	for _, r := range s {
		total += f.runeAdvance(font, r)
	}
	return total
}

func (f fontFace) runeAdvance(font string, r rune) float64 {
	if f.uniform {
		return f.defaultWidth
	}
	if isWide(r) {
		if f.composite {
			return f.defaultWidth
		}
		return 1000
	}
	if f.composite {
		return 500
	}
	name := strings.ToLower(font)
	if strings.Contains(name, "courier") {
		return 600
	}
	table := &helveticaWidths
	if strings.Contains(name, "times") {
		table = &timesWidths
	}
	if r >= 32 && r < 127 {
		return table[r-32]
	}
	return 556
}

func isWide(r rune) bool {
	switch width.LookupRune(r).Kind() {
	case width.EastAsianWide, width.EastAsianFullwidth:
		return true
	}
	return false
}

// placeGlyphs fills in the advance of glyphs read with zero width and moves
// the rest of their run right by the distance the reader never advanced.
// dslipak only reads /FirstChar and /Widths, so standard-14 fonts without
// widths and every composite font put each glyph of a string at one x.
func placeGlyphs(texts []pdf.Text, faces map[string]fontFace) []pdf.Text {
	out := make([]pdf.Text, len(texts))
	var shift float64
	for i, t := range texts {
		if i > 0 && !sameRun(texts[i-1], t) {
			shift = 0
		}
		reported := math.Max(t.W, 0)
		w := reported
		if w == 0 {
			w = faces[t.Font].advance(t.Font, t.S) / 1000 * math.Abs(t.FontSize)
		}
		out[i] = t
		out[i].X = t.X + shift
		out[i].W = w
		shift += w - reported
	}
	return out
}

// sameRun reports whether next was shown straight after prev on the same
// baseline: the reader's pen moved at most one em from the end of prev.
func sameRun(prev, next pdf.Text) bool {
	size := math.Max(math.Abs(prev.FontSize), math.Abs(next.FontSize))
	if size == 0 {
		size = 1
	}
	if math.Abs(next.Y-prev.Y) > 0.01*size {
		return false
	}
	gap := next.X - (prev.X + math.Max(prev.W, 0))
	return math.Abs(gap) <= size
}
