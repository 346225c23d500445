package testutil

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	gozxing "github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/oned"
	"github.com/makiuchi-d/gozxing/qrcode"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// SealRed is the ink colour used for synthetic seals.
var SealRed = color.RGBA{R: 220, G: 30, B: 40, A: 255}

// BlankPage returns a white RGBA image.
func BlankPage(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	return img
}

// DrawText renders ASCII text with the basic 7x13 face with its baseline at (x, y).
func DrawText(img draw.Image, text string, x, y int, c color.Color) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}

// TextBounds returns the pixel rectangle DrawText covers for text at (x, y).
func TextBounds(text string, x, y int) image.Rectangle {
	w := font.MeasureString(basicfont.Face7x13, text).Ceil()
	m := basicfont.Face7x13.Metrics()
	return image.Rect(x, y-m.Ascent.Ceil(), x+w, y+m.Descent.Ceil())
}

// DrawRing paints a red seal-like ring centred at (cx, cy).
func DrawRing(img draw.Image, cx, cy, outer, inner int, c color.Color) {
	for y := cy - outer; y <= cy+outer; y++ {
		for x := cx - outer; x <= cx+outer; x++ {
			d2 := (x-cx)*(x-cx) + (y-cy)*(y-cy)
			if d2 <= outer*outer && d2 >= inner*inner {
				img.Set(x, y, c)
			}
		}
	}
}

// FillRect paints r with c.
func FillRect(img draw.Image, r image.Rectangle, c color.Color) {
	draw.Draw(img, r, image.NewUniform(c), image.Point{}, draw.Src)
}

// QRCode encodes payload as a size x size QR symbol.
func QRCode(t *testing.T, payload string, size int) image.Image {
	t.Helper()
	m, err := qrcode.NewQRCodeWriter().Encode(payload, gozxing.BarcodeFormat_QR_CODE, size, size, nil)
	require.NoError(t, err)
	return m
}

// Code128 encodes payload as a width x height Code 128 symbol.
func Code128(t *testing.T, payload string, width, height int) image.Image {
	t.Helper()
	m, err := oned.NewCode128Writer().Encode(payload, gozxing.BarcodeFormat_CODE_128, width, height, nil)
	require.NoError(t, err)
	return m
}

// Paste draws src onto dst with its top-left corner at at.
func Paste(dst draw.Image, src image.Image, at image.Point) {
	b := src.Bounds()
	draw.Draw(dst, image.Rectangle{Min: at, Max: at.Add(b.Size())}, src, b.Min, draw.Src)
}

// SaveImage saves an image as PNG to the specified path.
func SaveImage(t *testing.T, img image.Image, path string) {
	t.Helper()

	require.NoError(t, EnsureDir(filepath.Dir(path)))
	file, err := os.Create(path) //nolint:gosec // G304: Test file creation with controlled path
	require.NoError(t, err, "Failed to create file %s", path)
	defer func() {
		require.NoError(t, file.Close())
	}()
	require.NoError(t, png.Encode(file, img), "Failed to encode PNG image")
}

// LoadImageFile loads an image from the specified path.
func LoadImageFile(path string) (image.Image, error) {
	file, err := os.Open(path) //nolint:gosec // G304: Opening test image file
	if err != nil {
		return nil, fmt.Errorf("failed to open image file %s: %w", path, err)
	}
	defer func() { _ = file.Close() }()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}
