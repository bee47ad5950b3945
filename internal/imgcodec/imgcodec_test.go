package imgcodec

import (
	"bytes"
	"image"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInspect(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 320, 40))))

	info, err := Inspect(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, Info{Width: 320, Height: 40, Format: "png"}, info)

	img, format, err := Decode(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, 320, img.Bounds().Dx())
}

func TestInspect_BadInput(t *testing.T) {
	_, err := Inspect(nil)
	assert.ErrorIs(t, err, ErrEmptyImage)

	_, err = Inspect([]byte("definitely not an image"))
	assert.ErrorIs(t, err, ErrUndecodableImage)

	_, _, err = Decode([]byte{0x89, 'P', 'N', 'G'})
	assert.ErrorIs(t, err, ErrUndecodableImage)
}
