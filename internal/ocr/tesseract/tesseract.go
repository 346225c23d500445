// Package tesseract implements ocr.Engine on top of the Tesseract library via
// gosseract. Building it requires the tesseract and leptonica headers.
package tesseract

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"unicode"

	"github.com/otiai10/gosseract/v2"

	"github.com/MeKo-Tech/redactor/internal/geometry"
	"github.com/MeKo-Tech/redactor/internal/ocr"
)

// Options configures the Tesseract client.
type Options struct {
	// Languages are Tesseract traineddata names, e.g. chi_sim and eng.
	Languages []string
	// TessdataPrefix overrides the traineddata directory when set.
	TessdataPrefix string
	// PageSegMode is passed through to Tesseract; 0 keeps the library default.
	PageSegMode int
	// PhraseGap is the widest horizontal gap between two words, relative to
	// their height, that still joins them into one fragment.
	PhraseGap float64
}

// DefaultOptions recognizes simplified Chinese and English.
func DefaultOptions() Options {
	return Options{Languages: []string{"chi_sim", "eng"}, PhraseGap: 0.4}
}

// Engine recognizes text lines with a fresh gosseract client per call.
type Engine struct {
	opts          Options
	clientFactory func() *gosseract.Client
	logger        *slog.Logger
}

// New constructs a Tesseract-backed engine.
func New(opts Options) *Engine {
	if len(opts.Languages) == 0 {
		opts.Languages = DefaultOptions().Languages
	}
	if opts.PhraseGap <= 0 {
		opts.PhraseGap = DefaultOptions().PhraseGap
	}
	return &Engine{opts: opts, clientFactory: gosseract.NewClient, logger: slog.Default()}
}

// WithLogger sets the logger used for diagnostics.
func (e *Engine) WithLogger(l *slog.Logger) *Engine {
	if l != nil {
		e.logger = l
	}
	return e
}

// Recognize runs OCR on the image at imagePath and returns one fragment per
// phrase: words on the same line separated by less than PhraseGap.
func (e *Engine) Recognize(ctx context.Context, imagePath string) ([]ocr.Fragment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c := e.clientFactory()
	defer func() {
		if err := c.Close(); err != nil {
			e.logger.Warn("closing tesseract client", "error", err)
		}
	}()

	if e.opts.TessdataPrefix != "" {
		if err := c.SetTessdataPrefix(e.opts.TessdataPrefix); err != nil {
			return nil, fmt.Errorf("set tessdata prefix: %w", err)
		}
	}
	if err := c.SetLanguage(e.opts.Languages...); err != nil {
		return nil, fmt.Errorf("set languages: %w", err)
	}
	if e.opts.PageSegMode > 0 {
		if err := c.SetPageSegMode(gosseract.PageSegMode(e.opts.PageSegMode)); err != nil {
			return nil, fmt.Errorf("set page segmentation mode: %w", err)
		}
	}
	if err := c.SetImage(imagePath); err != nil {
		return nil, fmt.Errorf("set image %s: %w", imagePath, err)
	}

	boxes, err := c.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, fmt.Errorf("recognize %s: %w", imagePath, err)
	}
	frags := groupPhrases(fragmentsFromBoxes(boxes), e.opts.PhraseGap)
	e.logger.Debug("tesseract recognized phrases", "image", imagePath, "words", len(boxes), "phrases", len(frags))
	return frags, nil
}

func fragmentsFromBoxes(boxes []gosseract.BoundingBox) []ocr.Fragment {
	out := make([]ocr.Fragment, 0, len(boxes))
	for _, b := range boxes {
		text := strings.TrimSpace(b.Word)
		if text == "" || b.Box.Empty() {
			continue
		}
		conf := b.Confidence / 100.0
		if conf < 0 {
			conf = 0
		} else if conf > 1 {
			conf = 1
		}
		out = append(out, ocr.Fragment{
			Polygon:    geometry.QuadFromRect(geometry.FromImageRect(b.Box)),
			Text:       text,
			Confidence: conf,
		})
	}
	return out
}

// groupPhrases merges consecutive word fragments that sit on the same line
// with a gap narrower than gap times their height. Tesseract emits Chinese
// text as one word per ideograph, while a label and its value are usually
// set apart by a visible gap. The merged confidence is the mean.
func groupPhrases(words []ocr.Fragment, gap float64) []ocr.Fragment {
	var (
		out   []ocr.Fragment
		cur   ocr.Fragment
		box   geometry.Rect
		sum   float64
		count int
	)
	flush := func() {
		if count == 0 {
			return
		}
		cur.Polygon = geometry.QuadFromRect(box)
		cur.Confidence = sum / float64(count)
		out = append(out, cur)
		count = 0
	}
	for _, w := range words {
		r := w.Polygon.Bounds()
		h := math.Max(box.Height(), r.Height())
		if count > 0 && sameLine(box, r) && r.MinX-box.MaxX <= gap*h {
			cur.Text = joinWords(cur.Text, w.Text, r.MinX-box.MaxX > wordSpace*h)
			box = box.Union(r)
			sum += w.Confidence
			count++
			continue
		}
		flush()
		cur, box, sum, count = w, r, w.Confidence, 1
	}
	flush()
	return out
}

// sameLine reports whether a and b overlap vertically by at least half the
// smaller height.
func sameLine(a, b geometry.Rect) bool {
	overlap := math.Min(a.MaxY, b.MaxY) - math.Max(a.MinY, b.MinY)
	return overlap >= 0.5*math.Min(a.Height(), b.Height())
}

// wordSpace is the gap, relative to the word height, above which two latin
// words are joined with a space.
const wordSpace = 0.2

// joinWords runs ideographs together and separates spaced latin words.
func joinWords(a, b string, spaced bool) string {
	last := []rune(a)
	first := []rune(b)
	if !spaced || len(last) == 0 || len(first) == 0 {
		return a + b
	}
	if unicode.Is(unicode.Han, last[len(last)-1]) || unicode.Is(unicode.Han, first[0]) {
		return a + b
	}
	return a + " " + b
}
