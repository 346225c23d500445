package document

import (
	"image"
	"image/color"
	"image/draw"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/MeKo-Tech/redactor/internal/geometry"
)

func solid(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	return img
}

func TestPaintMasks_ScalesToRaster(t *testing.T) {
	img := solid(200, 100, color.Black)
	// Raster is twice the page size in both directions.
	out := PaintMasks(img, Size{Width: 100, Height: 50}, []Mask{
		{Rect: geometry.NewRect(10, 10, 20, 20), Fill: color.White},
	})

	assert.Equal(t, color.NRGBA{R: 255, G: 255, B: 255, A: 255}, out.NRGBAAt(20, 20))
	assert.Equal(t, color.NRGBA{R: 255, G: 255, B: 255, A: 255}, out.NRGBAAt(39, 39))
	assert.Equal(t, color.NRGBA{A: 255}, out.NRGBAAt(40, 40))
	assert.Equal(t, color.NRGBA{A: 255}, out.NRGBAAt(19, 19))

	// Source raster is untouched.
	assert.Equal(t, color.RGBA{A: 255}, img.RGBAAt(20, 20))
}

func TestPaintMasks_TranslucentFillBecomesOpaque(t *testing.T) {
	img := solid(10, 10, color.White)
	out := PaintMasks(img, Size{Width: 10, Height: 10}, []Mask{
		{Rect: geometry.NewRect(0, 0, 10, 10), Fill: color.NRGBA{A: 10}},
	})
	assert.Equal(t, color.NRGBA{A: 255}, out.NRGBAAt(5, 5))
}

func TestPaintMasks_NoMasks(t *testing.T) {
	img := solid(4, 4, color.Black)
	out := PaintMasks(img, Size{Width: 4, Height: 4}, nil)
	assert.Equal(t, color.NRGBA{A: 255}, out.NRGBAAt(1, 1))
}
