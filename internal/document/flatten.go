package document

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/disintegration/imaging"

	"github.com/MeKo-Tech/redactor/internal/geometry"
)

// Mask is a registered opaque redaction over a page rectangle.
type Mask struct {
	Rect geometry.Rect
	Fill color.Color
}

// PaintMasks returns a copy of the page raster with every mask painted over
// it. Mask rectangles are in page points and are scaled to the raster.
func PaintMasks(img image.Image, page Size, masks []Mask) *image.NRGBA {
	dst := imaging.Clone(img)
	if page.Width <= 0 || page.Height <= 0 {
		return dst
	}
	b := dst.Bounds()
	sx := float64(b.Dx()) / page.Width
	sy := float64(b.Dy()) / page.Height
	for _, m := range masks {
		fill := m.Fill
		if fill == nil {
			fill = color.White
		}
		r := m.Rect.Scale(sx, sy).ToImageRect(b)
		if r.Empty() {
			continue
		}
		draw.Draw(dst, r, image.NewUniform(opaque(fill)), image.Point{}, draw.Src)
	}
	return dst
}

func opaque(c color.Color) color.Color {
	r, g, b, _ := c.RGBA()
	return color.NRGBA64{R: uint16(r), G: uint16(g), B: uint16(b), A: 0xffff} //nolint:gosec // G115: 16-bit channels
}
