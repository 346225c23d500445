package document

import (
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/MeKo-Tech/redactor/internal/geometry"
)

// Glyph is a positioned run of text, usually a single character, in page
// coordinates.
type Glyph struct {
	S    string
	Rect geometry.Rect
}

// Layout is the reading-order text of a page together with the glyph that
// produced every byte, so literal matches can be mapped back to rectangles.
type Layout struct {
	text   string
	owner  []int // glyph index per byte of text, -1 for inserted separators
	row    []int // row per glyph
	glyphs []Glyph
}

// NewLayout orders glyphs into rows (top to bottom) and columns (left to
// right). Rows are joined with newlines; a space is inserted where the gap
// between neighbouring glyphs is wider than half their height.
func NewLayout(glyphs []Glyph) *Layout {
	gs := make([]Glyph, 0, len(glyphs))
	for _, g := range glyphs {
		if g.S == "" || !g.Rect.Finite() {
			continue
		}
		gs = append(gs, g)
	}
	sort.SliceStable(gs, func(i, j int) bool { return gs[i].Rect.MaxY < gs[j].Rect.MaxY })

	var rows [][]Glyph
	var baseline, height float64
	for _, g := range gs {
		h := g.Rect.Height()
		if len(rows) > 0 && math.Abs(g.Rect.MaxY-baseline) <= 0.4*math.Max(height, h) {
			rows[len(rows)-1] = append(rows[len(rows)-1], g)
			continue
		}
		rows = append(rows, []Glyph{g})
		baseline, height = g.Rect.MaxY, h
	}

	l := &Layout{}
	var b strings.Builder
	for ri, row := range rows {
		sort.SliceStable(row, func(i, j int) bool { return row[i].Rect.MinX < row[j].Rect.MinX })
		if ri > 0 {
			b.WriteByte('\n')
			l.owner = append(l.owner, -1)
		}
		for gi, g := range row {
			if gi > 0 {
				prev := row[gi-1]
				if g.Rect.MinX-prev.Rect.MaxX > 0.5*math.Max(g.Rect.Height(), prev.Rect.Height()) {
					b.WriteByte(' ')
					l.owner = append(l.owner, -1)
				}
			}
			idx := len(l.glyphs)
			l.glyphs = append(l.glyphs, g)
			l.row = append(l.row, ri)
			b.WriteString(g.S)
			for i := 0; i < len(g.S); i++ {
				l.owner = append(l.owner, idx)
			}
		}
	}
	l.text = b.String()
	return l
}

// Text returns the page text in reading order.
func (l *Layout) Text() string { return l.text }

// Search returns the rectangles covering every non-overlapping occurrence of
// literal. An occurrence spanning several rows yields one rectangle per row.
func (l *Layout) Search(literal string) []geometry.Rect {
	if literal == "" || !utf8.ValidString(literal) {
		return nil
	}
	var out []geometry.Rect
	for from := 0; from < len(l.text); {
		i := strings.Index(l.text[from:], literal)
		if i < 0 {
			break
		}
		start := from + i
		end := start + len(literal)
		out = append(out, l.cover(start, end)...)
		from = end
	}
	return out
}

func (l *Layout) cover(start, end int) []geometry.Rect {
	byRow := make(map[int]geometry.Rect)
	var order []int
	last := -1
	for i := start; i < end; i++ {
		g := l.owner[i]
		if g < 0 || g == last {
			continue
		}
		last = g
		r := l.row[g]
		if _, ok := byRow[r]; !ok {
			order = append(order, r)
		}
		byRow[r] = byRow[r].Union(l.glyphs[g].Rect)
	}
	out := make([]geometry.Rect, 0, len(order))
	for _, r := range order {
		out = append(out, byRow[r])
	}
	return out
}

// glyphRect converts a text-space glyph (baseline origin, y up) to a
// top-left-origin rectangle on a page of height pageH.
func glyphRect(x, y, w, fontSize, pageH float64, text string) geometry.Rect {
	if fontSize <= 0 {
		fontSize = 1
	}
	if w <= 0 {
		w = 0.5 * fontSize * float64(utf8.RuneCountInString(text))
	}
	top := pageH - (y + 0.9*fontSize)
	bottom := pageH - (y - 0.2*fontSize)
	return geometry.NewRect(x, top, x+w, bottom)
}
