package redaction

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/digimosa/content-moderation/internal/models"
)

func whiteImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newRedactor(t *testing.T) *Redactor {
	r, err := New(zaptest.NewLogger(t))
	require.NoError(t, err)
	return r
}

func TestRedact_NoDetectionsReturnsInput(t *testing.T) {
	r := newRedactor(t)
	in := encodePNG(t, whiteImage(64, 64))

	out, err := r.Redact(in, nil)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestRedact_ZeroRectIsSkipped(t *testing.T) {
	r := newRedactor(t)
	in := encodePNG(t, whiteImage(64, 64))
	dets := []models.PIIDetection{{Type: models.PIIEmail, Text: "a@b.co", Confidence: 0.95}}

	out, err := r.Redact(in, dets)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestRedactImage_FillsBoxOnly(t *testing.T) {
	r := newRedactor(t)
	src := whiteImage(200, 100)
	dets := []models.PIIDetection{{
		Type:     models.PIIPhoneNumber,
		Location: models.Rect{X: 20, Y: 10, Width: 120, Height: 40},
	}}

	out := r.RedactImage(src, dets)

	require.Equal(t, src.Bounds(), out.Bounds())
	// corner of the box is fill, away from the centered label
	c := out.RGBAAt(21, 11)
	assert.Less(t, c.R, uint8(60))
	assert.Equal(t, color.RGBA{255, 255, 255, 255}, out.RGBAAt(5, 5))
	assert.Equal(t, color.RGBA{255, 255, 255, 255}, out.RGBAAt(150, 80))
	// source untouched
	assert.Equal(t, color.RGBA{255, 255, 255, 255}, src.RGBAAt(21, 11))
}

func TestRedactImage_LabelIsDrawn(t *testing.T) {
	r := newRedactor(t)
	out := r.RedactImage(whiteImage(300, 100), []models.PIIDetection{{
		Location: models.Rect{X: 0, Y: 0, Width: 300, Height: 40},
	}})

	light := 0
	for y := 0; y < 40; y++ {
		for x := 0; x < 300; x++ {
			if out.RGBAAt(x, y).R > 128 {
				light++
			}
		}
	}
	assert.Greater(t, light, 0, "label glyphs should be visible on the fill")
}

func TestRedactImage_BoxClippedToBounds(t *testing.T) {
	r := newRedactor(t)
	out := r.RedactImage(whiteImage(50, 50), []models.PIIDetection{{
		Location: models.Rect{X: 40, Y: 40, Width: 100, Height: 100},
	}})
	assert.Less(t, out.RGBAAt(45, 45).R, uint8(60))
	assert.Equal(t, uint8(255), out.RGBAAt(10, 10).R)
}

func TestRedact_KeepsJPEG(t *testing.T) {
	r := newRedactor(t)
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, whiteImage(80, 80), nil))

	out, err := r.Redact(buf.Bytes(), []models.PIIDetection{{Location: models.Rect{X: 10, Y: 10, Width: 30, Height: 20}}})
	require.NoError(t, err)
	_, format, err := image.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
}

func TestRedact_UndecodableInput(t *testing.T) {
	r := newRedactor(t)
	_, err := r.Redact([]byte("nope"), []models.PIIDetection{{Location: models.Rect{Width: 5, Height: 5}}})
	assert.Error(t, err)
}
