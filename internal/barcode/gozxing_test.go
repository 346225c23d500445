package barcode

import (
	"context"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/redactor/internal/testutil"
)

func TestGozxing_DecodeQR(t *testing.T) {
	page := testutil.BlankPage(600, 600)
	testutil.Paste(page, testutil.QRCode(t, "https://verify.example.cn/cert/20240001", 200), image.Pt(150, 250))

	d := NewGozxing(DefaultOptions())
	res, ok, err := d.DecodeQR(context.Background(), page)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "https://verify.example.cn/cert/20240001", res.Value)
	assert.Equal(t, FormatQR, res.Format)
	assert.NotEmpty(t, res.Points)

	// The widened box covers the symbol centre and stays on the image.
	assert.True(t, res.BBox.MinX <= 250 && res.BBox.MaxX >= 250)
	assert.True(t, res.BBox.MinY <= 350 && res.BBox.MaxY >= 350)
	assert.GreaterOrEqual(t, res.BBox.MinX, 0.0)
	assert.LessOrEqual(t, res.BBox.MaxX, 600.0)
}

func TestGozxing_DecodeQR_NotFound(t *testing.T) {
	d := NewGozxing(DefaultOptions())
	_, ok, err := d.DecodeQR(context.Background(), testutil.BlankPage(300, 300))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGozxing_DecodeLinear(t *testing.T) {
	page := testutil.BlankPage(800, 300)
	testutil.Paste(page, testutil.Code128(t, "SN2024000123", 400, 80), image.Pt(200, 100))

	d := NewGozxing(DefaultOptions())
	rs, err := d.Decode(context.Background(), page, []Format{FormatCode128})
	require.NoError(t, err)
	require.Len(t, rs, 1)
	assert.Equal(t, "SN2024000123", rs[0].Value)
	// Linear results are padded to a non-degenerate box.
	assert.Greater(t, rs[0].BBox.Height(), 0.0)
	assert.Greater(t, rs[0].BBox.Width(), 100.0)
}

func TestGozxing_DecodeEmptyImage(t *testing.T) {
	_, err := NewGozxing(DefaultOptions()).Decode(context.Background(), image.NewRGBA(image.Rect(0, 0, 0, 0)), AllowList)
	assert.Error(t, err)
}

func TestGozxing_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewGozxing(DefaultOptions()).Decode(ctx, testutil.BlankPage(50, 50), AllowList)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseFormats(t *testing.T) {
	fs, bad := ParseFormats([]string{"qr", "Code-128", "ean13", "itf"})
	assert.Empty(t, bad)
	assert.Equal(t, []Format{FormatQR, FormatCode128, FormatEAN13, FormatITF}, fs)

	_, bad = ParseFormats([]string{"qr", "aztec"})
	assert.Equal(t, "aztec", bad)

	for _, f := range AllowList {
		got, ok := ParseFormat(f.String())
		assert.True(t, ok)
		assert.Equal(t, f, got)
	}
	assert.False(t, FormatQR.Linear())
	assert.True(t, FormatEAN8.Linear())
}
