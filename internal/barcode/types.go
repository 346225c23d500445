// Package barcode decodes QR codes and linear barcodes found on page rasters.
package barcode

import (
	"context"
	"image"
	"strings"

	"github.com/MeKo-Tech/redactor/internal/geometry"
)

// Format represents a barcode symbology.
type Format int

const (
	FormatUnknown Format = iota
	FormatQR
	FormatCode128
	FormatCode39
	FormatEAN8
	FormatEAN13
	FormatUPCA
	FormatUPCE
	FormatITF
)

// AllowList is the set of symbologies searched during privacy scanning.
var AllowList = []Format{
	FormatQR, FormatCode128, FormatCode39, FormatEAN13, FormatEAN8, FormatUPCA, FormatUPCE, FormatITF,
}

// ParseFormat maps a configuration name to a Format.
func ParseFormat(s string) (Format, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "qr", "qrcode":
		return FormatQR, true
	case "code128", "code-128":
		return FormatCode128, true
	case "code39", "code-39":
		return FormatCode39, true
	case "ean8", "ean-8":
		return FormatEAN8, true
	case "ean13", "ean-13":
		return FormatEAN13, true
	case "upca", "upc-a":
		return FormatUPCA, true
	case "upce", "upc-e":
		return FormatUPCE, true
	case "itf", "interleaved2of5", "i2/5":
		return FormatITF, true
	default:
		return FormatUnknown, false
	}
}

// ParseFormats maps configuration names to formats, reporting the first
// unknown name.
func ParseFormats(names []string) ([]Format, string) {
	out := make([]Format, 0, len(names))
	for _, n := range names {
		f, ok := ParseFormat(n)
		if !ok {
			return nil, n
		}
		out = append(out, f)
	}
	return out, ""
}

func (f Format) String() string {
	switch f {
	case FormatQR:
		return "qr"
	case FormatCode128:
		return "code128"
	case FormatCode39:
		return "code39"
	case FormatEAN8:
		return "ean8"
	case FormatEAN13:
		return "ean13"
	case FormatUPCA:
		return "upca"
	case FormatUPCE:
		return "upce"
	case FormatITF:
		return "itf"
	default:
		return "unknown"
	}
}

// Linear reports whether the symbology is one-dimensional.
func (f Format) Linear() bool {
	return f != FormatQR && f != FormatUnknown
}

// Result is a decoded symbol.
type Result struct {
	Format Format
	Value  string
	// Points are the corner or finder points reported by the decoder, in
	// raster pixel coordinates.
	Points []geometry.Point
	// BBox is the symbol bounding box in raster pixel coordinates.
	BBox geometry.Rect
}

// Decoder is the 2D code capability consumed by the image scanner.
type Decoder interface {
	// DecodeQR looks for a single QR code. ok is false when none is found.
	DecodeQR(ctx context.Context, img image.Image) (res Result, ok bool, err error)
	// Decode searches for symbols restricted to formats.
	Decode(ctx context.Context, img image.Image, formats []Format) ([]Result, error)
}
