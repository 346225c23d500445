// Package ocr defines the optical character recognition capability consumed
// by the image privacy scanner.
package ocr

import (
	"context"
	"strings"

	"github.com/MeKo-Tech/redactor/internal/geometry"
)

// Fragment is one recognized piece of text on a raster image.
type Fragment struct {
	// Polygon is the fragment outline in raster pixel coordinates.
	Polygon geometry.Quad `json:"polygon"`
	Text    string        `json:"text"`
	// Confidence is normalized to [0,1].
	Confidence float64 `json:"confidence"`
}

// Engine recognizes text in an image file.
type Engine interface {
	Recognize(ctx context.Context, imagePath string) ([]Fragment, error)
}

// EngineFunc adapts a function to the Engine interface.
type EngineFunc func(ctx context.Context, imagePath string) ([]Fragment, error)

// Recognize calls f.
func (f EngineFunc) Recognize(ctx context.Context, imagePath string) ([]Fragment, error) {
	return f(ctx, imagePath)
}

// JoinText joins the text of every fragment whose confidence is strictly
// above minConfidence with single spaces, so keywords never form across a
// fragment boundary. A negative floor keeps every fragment.
func JoinText(frags []Fragment, minConfidence float64) string {
	var b strings.Builder
	for _, f := range frags {
		if f.Confidence <= minConfidence {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(f.Text)
	}
	return b.String()
}

// Above returns the fragments whose confidence is strictly above min.
func Above(frags []Fragment, min float64) []Fragment {
	out := make([]Fragment, 0, len(frags))
	for _, f := range frags {
		if f.Confidence > min {
			out = append(out, f)
		}
	}
	return out
}
