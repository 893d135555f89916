// Package imaging implements the avatar pipeline: decode, square-crop and
// scale uploaded images to a fixed dimension.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
)

// AvatarSize is the side length, in pixels, of a normalized avatar.
const AvatarSize = 250

// Resizer normalizes avatar images to a Size x Size square.
type Resizer struct {
	Size int
}

// NewResizer returns a Resizer producing size x size images; non-positive
// sizes fall back to AvatarSize.
func NewResizer(size int) *Resizer {
	if size <= 0 {
		size = AvatarSize
	}
	return &Resizer{Size: size}
}

// Normalize decodes data (JPEG, PNG or GIF), crops the central square and
// scales it to the configured dimension, returning the result as JPEG bytes.
func (r *Resizer) Normalize(data []byte) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	square := centerSquare(src.Bounds())
	dst := image.NewRGBA(image.Rect(0, 0, r.Size, r.Size))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, square, draw.Src, nil)

	var out bytes.Buffer
	if err := jpeg.Encode(&out, dst, &jpeg.Options{Quality: 90}); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	return out.Bytes(), nil
}

// centerSquare returns the largest centered square inside b.
func centerSquare(b image.Rectangle) image.Rectangle {
	w, h := b.Dx(), b.Dy()
	side := w
	if h < side {
		side = h
	}
	x0 := b.Min.X + (w-side)/2
	y0 := b.Min.Y + (h-side)/2
	return image.Rect(x0, y0, x0+side, y0+side)
}
