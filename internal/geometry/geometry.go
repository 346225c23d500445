// Package geometry holds the small set of planar types shared by the
// detectors, the coordinate reconciler and the redaction applicator.
package geometry

import (
	"image"
	"math"
)

// Point represents a 2D coordinate in float space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Quad is a four-point polygon as returned by OCR engines and QR decoders.
// Points are not required to be axis aligned or in any particular winding.
type Quad [4]Point

// Rect is an axis-aligned rectangle. Page-space rectangles use points with the
// origin at the top-left corner of the page and y growing downwards.
type Rect struct {
	MinX float64 `json:"x0"`
	MinY float64 `json:"y0"`
	MaxX float64 `json:"x1"`
	MaxY float64 `json:"y1"`
}

// NewRect constructs a Rect from two corners ensuring ordering.
func NewRect(x1, y1, x2, y2 float64) Rect {
	if x1 > x2 {
		x1, x2 = x2, x1
	}
	if y1 > y2 {
		y1, y2 = y2, y1
	}
	return Rect{MinX: x1, MinY: y1, MaxX: x2, MaxY: y2}
}

// FromImageRect converts an integer pixel rectangle.
func FromImageRect(r image.Rectangle) Rect {
	return NewRect(float64(r.Min.X), float64(r.Min.Y), float64(r.Max.X), float64(r.Max.Y))
}

// Width returns the rectangle width.
func (r Rect) Width() float64 { return r.MaxX - r.MinX }

// Height returns the rectangle height.
func (r Rect) Height() float64 { return r.MaxY - r.MinY }

// Area returns the rectangle area, or 0 for empty and inverted rectangles.
func (r Rect) Area() float64 {
	if r.Empty() {
		return 0
	}
	return r.Width() * r.Height()
}

// Empty reports whether the rectangle has no positive area.
func (r Rect) Empty() bool {
	return !(r.MaxX > r.MinX) || !(r.MaxY > r.MinY)
}

// Finite reports whether every coordinate is a finite number.
func (r Rect) Finite() bool {
	for _, v := range [...]float64{r.MinX, r.MinY, r.MaxX, r.MaxY} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Intersect returns the overlapping part of r and o. The result is empty
// when they do not overlap.
func (r Rect) Intersect(o Rect) Rect {
	out := Rect{
		MinX: math.Max(r.MinX, o.MinX),
		MinY: math.Max(r.MinY, o.MinY),
		MaxX: math.Min(r.MaxX, o.MaxX),
		MaxY: math.Min(r.MaxY, o.MaxY),
	}
	if out.Empty() {
		return Rect{}
	}
	return out
}

// Union returns the smallest rectangle containing both r and o.
// An empty operand is ignored.
func (r Rect) Union(o Rect) Rect {
	if r.Empty() {
		return o
	}
	if o.Empty() {
		return r
	}
	return Rect{
		MinX: math.Min(r.MinX, o.MinX),
		MinY: math.Min(r.MinY, o.MinY),
		MaxX: math.Max(r.MaxX, o.MaxX),
		MaxY: math.Max(r.MaxY, o.MaxY),
	}
}

// Scale multiplies x coordinates by sx and y coordinates by sy.
func (r Rect) Scale(sx, sy float64) Rect {
	return NewRect(r.MinX*sx, r.MinY*sy, r.MaxX*sx, r.MaxY*sy)
}

// Clip restricts the rectangle to [0,w]x[0,h].
func (r Rect) Clip(w, h float64) Rect {
	return r.Intersect(Rect{MaxX: w, MaxY: h})
}

// ToImageRect converts to integer pixels, rounding outwards and clamping to bounds.
func (r Rect) ToImageRect(bounds image.Rectangle) image.Rectangle {
	x1 := clampInt(int(math.Floor(r.MinX)), bounds.Min.X, bounds.Max.X)
	y1 := clampInt(int(math.Floor(r.MinY)), bounds.Min.Y, bounds.Max.Y)
	x2 := clampInt(int(math.Ceil(r.MaxX)), bounds.Min.X, bounds.Max.X)
	y2 := clampInt(int(math.Ceil(r.MaxY)), bounds.Min.Y, bounds.Max.Y)
	if x2 < x1 {
		x2 = x1
	}
	if y2 < y1 {
		y2 = y1
	}
	return image.Rect(x1, y1, x2, y2)
}

// OverlapRatio returns area(r ∩ o) / area(r). It is 0 when r is empty.
func OverlapRatio(r, o Rect) float64 {
	a := r.Area()
	if a == 0 {
		return 0
	}
	return r.Intersect(o).Area() / a
}

// BoundingBox returns the axis-aligned bounding box for a set of points.
func BoundingBox(pts []Point) Rect {
	if len(pts) == 0 {
		return Rect{}
	}
	minX, minY := pts[0].X, pts[0].Y
	maxX, maxY := pts[0].X, pts[0].Y
	for _, p := range pts[1:] {
		if p.X < minX {
			minX = p.X
		}
		if p.Y < minY {
			minY = p.Y
		}
		if p.X > maxX {
			maxX = p.X
		}
		if p.Y > maxY {
			maxY = p.Y
		}
	}
	return Rect{MinX: minX, MinY: minY, MaxX: maxX, MaxY: maxY}
}

// Bounds returns the axis-aligned bounding box of the quad.
func (q Quad) Bounds() Rect { return BoundingBox(q[:]) }

// QuadFromRect returns the four corners of r in clockwise order from top-left.
func QuadFromRect(r Rect) Quad {
	return Quad{
		{X: r.MinX, Y: r.MinY},
		{X: r.MaxX, Y: r.MinY},
		{X: r.MaxX, Y: r.MaxY},
		{X: r.MinX, Y: r.MaxY},
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
