package imagescan

import (
	"errors"
	"fmt"
)

// ErrDetection marks a recovered image detection failure.
var ErrDetection = errors.New("image detection failed")

// Detection stages reported in DetectionError.
const (
	StageRasterize = "rasterize"
	StageOCR       = "ocr"
	StageQR        = "qr"
	StageBarcode   = "barcode"
)

// DetectionError reports a failed image detection stage on a page.
type DetectionError struct {
	Page  int
	Stage string
	Err   error
}

func (e *DetectionError) Error() string {
	return fmt.Sprintf("page %d: %s: %v", e.Page, e.Stage, e.Err)
}

func (e *DetectionError) Unwrap() []error { return []error{ErrDetection, e.Err} }
