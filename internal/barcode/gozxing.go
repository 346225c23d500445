package barcode

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"math"

	"github.com/disintegration/imaging"
	gozxing "github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/oned"
	"github.com/makiuchi-d/gozxing/qrcode"

	"github.com/MeKo-Tech/redactor/internal/geometry"
)

// Options tunes the gozxing decoder.
type Options struct {
	// TryHarder enables the slower exhaustive search.
	TryHarder bool
	// LinearPadding is added above and below linear barcode results, whose
	// reported points lie on a single scan line.
	LinearPadding float64
	// QRMargin widens QR results by this fraction of their size on every
	// side; QR result points are finder pattern centres, not symbol corners.
	QRMargin float64
	// UpscaleBelow retries decoding on a 2x upscaled copy when the image's
	// larger side is shorter than this many pixels. 0 disables the retry.
	UpscaleBelow int
}

// DefaultOptions returns the decoder defaults.
func DefaultOptions() Options {
	return Options{TryHarder: true, LinearPadding: 16, QRMargin: 0.3, UpscaleBelow: 1000}
}

// Gozxing decodes symbols with the pure Go ZXing port.
type Gozxing struct {
	opts   Options
	logger *slog.Logger
}

// NewGozxing constructs a gozxing-backed Decoder.
func NewGozxing(opts Options) *Gozxing {
	return &Gozxing{opts: opts, logger: slog.Default()}
}

// WithLogger sets the logger used for diagnostics.
func (g *Gozxing) WithLogger(l *slog.Logger) *Gozxing {
	if l != nil {
		g.logger = l
	}
	return g
}

// DecodeQR implements Decoder.
func (g *Gozxing) DecodeQR(ctx context.Context, img image.Image) (Result, bool, error) {
	rs, err := g.Decode(ctx, img, []Format{FormatQR})
	if err != nil || len(rs) == 0 {
		return Result{}, false, err
	}
	return rs[0], true, nil
}

// Decode implements Decoder. Each format is tried once; a format that finds
// nothing is not an error.
func (g *Gozxing) Decode(ctx context.Context, img image.Image, formats []Format) ([]Result, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, fmt.Errorf("decode barcode: empty image")
	}
	out, err := g.decodeAt(ctx, img, formats, 1)
	if err != nil || len(out) > 0 {
		return out, err
	}

	b := img.Bounds()
	if g.opts.UpscaleBelow > 0 && max(b.Dx(), b.Dy()) < g.opts.UpscaleBelow {
		up := imaging.Resize(img, b.Dx()*2, b.Dy()*2, imaging.Lanczos)
		return g.decodeAt(ctx, up, formats, 2)
	}
	return nil, nil
}

func (g *Gozxing) decodeAt(ctx context.Context, img image.Image, formats []Format, scale float64) ([]Result, error) {
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return nil, fmt.Errorf("binarize image: %w", err)
	}
	hints := map[gozxing.DecodeHintType]interface{}{}
	if g.opts.TryHarder {
		hints[gozxing.DecodeHintType_TRY_HARDER] = true
	}

	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	var out []Result
	for _, f := range formats {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		reader := newReader(f)
		if reader == nil {
			continue
		}
		r, err := reader.Decode(bmp, hints)
		if err != nil || r == nil || r.GetText() == "" {
			// gozxing reports "not found" as an error
			continue
		}
		res := toResult(f, r, scale)
		if f.Linear() {
			res.BBox = geometry.NewRect(
				res.BBox.MinX, res.BBox.MinY-g.opts.LinearPadding,
				res.BBox.MaxX, res.BBox.MaxY+g.opts.LinearPadding,
			)
		} else {
			m := g.opts.QRMargin * math.Max(res.BBox.Width(), res.BBox.Height())
			res.BBox = geometry.NewRect(res.BBox.MinX-m, res.BBox.MinY-m, res.BBox.MaxX+m, res.BBox.MaxY+m)
		}
		res.BBox = res.BBox.Clip(float64(w)/scale, float64(h)/scale)
		g.logger.Debug("barcode decoded", "format", f.String(), "bbox", res.BBox)
		out = append(out, res)
	}
	return out, nil
}

func newReader(f Format) gozxing.Reader {
	switch f {
	case FormatQR:
		return qrcode.NewQRCodeReader()
	case FormatCode128:
		return oned.NewCode128Reader()
	case FormatCode39:
		return oned.NewCode39Reader()
	case FormatEAN8:
		return oned.NewEAN8Reader()
	case FormatEAN13:
		return oned.NewEAN13Reader()
	case FormatUPCA:
		return oned.NewUPCAReader()
	case FormatUPCE:
		return oned.NewUPCEReader()
	case FormatITF:
		return oned.NewITFReader()
	default:
		return nil
	}
}

func toResult(f Format, r *gozxing.Result, scale float64) Result {
	pts := r.GetResultPoints()
	points := make([]geometry.Point, 0, len(pts))
	for _, p := range pts {
		if p == nil {
			continue
		}
		x, y := p.GetX()/scale, p.GetY()/scale
		if math.IsNaN(x) || math.IsNaN(y) {
			continue
		}
		points = append(points, geometry.Point{X: x, Y: y})
	}
	return Result{Format: f, Value: r.GetText(), Points: points, BBox: geometry.BoundingBox(points)}
}
