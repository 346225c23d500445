package seal

import (
	"image"
	"math"
)

// HueBand is an inclusive range on the 0-180 hue scale.
type HueBand struct {
	Min, Max float64
}

// redBands are the two hue ranges red wraps across.
var redBands = []HueBand{{Min: 0, Max: 10}, {Min: 160, Max: 180}}

// hsv converts 8-bit RGB to hue in [0,180), saturation and value in [0,255].
func hsv(r, g, b uint8) (h, s, v float64) {
	rf, gf, bf := float64(r), float64(g), float64(b)
	maxC := math.Max(rf, math.Max(gf, bf))
	minC := math.Min(rf, math.Min(gf, bf))
	v = maxC
	delta := maxC - minC
	if maxC == 0 || delta == 0 {
		return 0, 0, v
	}
	s = delta / maxC * 255

	switch maxC {
	case rf:
		h = 60 * (gf - bf) / delta
	case gf:
		h = 120 + 60*(bf-rf)/delta
	default:
		h = 240 + 60*(rf-gf)/delta
	}
	if h < 0 {
		h += 360
	}
	return math.Round(h / 2), math.Round(s), v
}

// colorMask marks pixels whose hue falls in any band with saturation and
// value at or above the floors.
func colorMask(img image.Image, bands []HueBand, minSat, minVal float64) []bool {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	mask := make([]bool, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			hh, s, v := hsv(uint8(r>>8), uint8(g>>8), uint8(bl>>8)) //nolint:gosec // G115: 16-bit to 8-bit channel
			if s < minSat || v < minVal {
				continue
			}
			for _, band := range bands {
				if hh >= band.Min && hh <= band.Max {
					mask[y*w+x] = true
					break
				}
			}
		}
	}
	return mask
}
