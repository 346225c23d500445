package privacy

import (
	"fmt"

	"github.com/MeKo-Tech/redactor/internal/geometry"
)

// Category identifies the kind of sensitive content an Item represents.
type Category string

const (
	CategoryIDNumber       Category = "id_number"
	CategoryPhone          Category = "phone"
	CategoryAddress        Category = "address"
	CategorySocialSecurity Category = "social_security"
	CategoryBarcodeNumber  Category = "barcode_number"
	CategoryName           Category = "name"
	CategoryQRCode         Category = "qr_code"
	CategoryBarcode        Category = "barcode"
)

// Label returns the human-facing label used in audit reports.
func (c Category) Label() string {
	switch c {
	case CategoryIDNumber:
		return "身份证号码"
	case CategoryPhone:
		return "手机号码"
	case CategoryAddress:
		return "身份证地址"
	case CategorySocialSecurity:
		return "社保/个人编号"
	case CategoryBarcodeNumber:
		return "条形码号"
	case CategoryName:
		return "姓名"
	case CategoryQRCode:
		return "二维码"
	case CategoryBarcode:
		return "条形码/二维码"
	default:
		return string(c)
	}
}

// Source records which detector produced an Item.
type Source string

const (
	SourceText  Source = "text"
	SourceImage Source = "image"
)

// Space tags the coordinate space a Region is expressed in.
type Space int

const (
	SpaceUnknown Space = iota
	// SpaceText is a [Start, End) byte range into the page text.
	SpaceText
	// SpacePage is a rectangle in page coordinates.
	SpacePage
	// SpaceRaster is a rectangle in raster pixel coordinates.
	SpaceRaster
	// SpaceOCR is a polygon in raster pixel coordinates as reported by OCR or a QR decoder.
	SpaceOCR
)

func (s Space) String() string {
	switch s {
	case SpaceText:
		return "text"
	case SpacePage:
		return "page"
	case SpaceRaster:
		return "raster"
	case SpaceOCR:
		return "ocr"
	default:
		return "unknown"
	}
}

// Region locates an Item. Which fields are meaningful depends on Space.
type Region struct {
	Space Space `json:"space"`

	Start int `json:"start,omitempty"`
	End   int `json:"end,omitempty"`

	Rect    geometry.Rect    `json:"rect,omitempty"`
	Polygon []geometry.Point `json:"polygon,omitempty"`

	// RasterWidth and RasterHeight are the pixel dimensions of the image the
	// Rect or Polygon was measured on.
	RasterWidth  int `json:"raster_width,omitempty"`
	RasterHeight int `json:"raster_height,omitempty"`
}

// TextRegion returns a text-space region.
func TextRegion(start, end int) Region {
	return Region{Space: SpaceText, Start: start, End: end}
}

// PageRegion returns a page-space region.
func PageRegion(r geometry.Rect) Region {
	return Region{Space: SpacePage, Rect: r}
}

// RasterRegion returns a raster-space rectangle measured on a w x h image.
func RasterRegion(r geometry.Rect, w, h int) Region {
	return Region{Space: SpaceRaster, Rect: r, RasterWidth: w, RasterHeight: h}
}

// OCRRegion returns an OCR polygon measured on a w x h image.
func OCRRegion(pts []geometry.Point, w, h int) Region {
	poly := append([]geometry.Point(nil), pts...)
	return Region{Space: SpaceOCR, Polygon: poly, RasterWidth: w, RasterHeight: h}
}

// Item is a single detected instance of sensitive content.
type Item struct {
	Category   Category `json:"type"`
	Value      string   `json:"value"`
	Region     Region   `json:"region"`
	Confidence float64  `json:"confidence"`
	Source     Source   `json:"source"`
	Page       int      `json:"page"`
}

// OnPage returns a copy of the item bound to the given page index.
func (it Item) OnPage(page int) Item {
	it.Page = page
	return it
}

func (it Item) String() string {
	return fmt.Sprintf("%s(%s) %q page=%d space=%s", it.Category, it.Source, it.Value, it.Page, it.Region.Space)
}

// ItemsOnPage binds every item to the given page index.
func ItemsOnPage(items []Item, page int) []Item {
	out := make([]Item, len(items))
	for i, it := range items {
		out[i] = it.OnPage(page)
	}
	return out
}
