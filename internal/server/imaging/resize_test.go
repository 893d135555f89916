package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestNormalize_SquareOutput(t *testing.T) {
	r := NewResizer(AvatarSize)

	out, err := r.Normalize(encodePNG(t, 500, 300))
	require.NoError(t, err)

	img, err := jpeg.Decode(bytes.NewReader(out))
	require.NoError(t, err)

	assert.Equal(t, AvatarSize, img.Bounds().Dx())
	assert.Equal(t, AvatarSize, img.Bounds().Dy())
}

func TestNormalize_UpscalesSmallImages(t *testing.T) {
	r := NewResizer(64)

	out, err := r.Normalize(encodePNG(t, 10, 20))
	require.NoError(t, err)

	img, err := jpeg.Decode(bytes.NewReader(out))
	require.NoError(t, err)

	assert.Equal(t, 64, img.Bounds().Dx())
	assert.Equal(t, 64, img.Bounds().Dy())
}

func TestNormalize_RejectsGarbage(t *testing.T) {
	r := NewResizer(0)

	_, err := r.Normalize([]byte("definitely not an image"))
	assert.Error(t, err)
}

func TestNewResizer_FallbackSize(t *testing.T) {
	assert.Equal(t, AvatarSize, NewResizer(-5).Size)
}
