// Package media decodes, downsamples and compares images, and transcodes
// short video clips through ffmpeg.
package media

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	"image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // register WebP decoder

	"github.com/lueurxax/repost-bot/internal/core/errors"
)

// Channels is the number of bytes per pixel in a reduced buffer (RGBA).
const Channels = 4

// DefaultMaxSourcePixels caps the declared width×height of an image before
// it is decoded.
const DefaultMaxSourcePixels = 40_000_000

// Reducer turns encoded image bytes into a fixed-size pixel buffer.
type Reducer interface {
	Reduce(data []byte, size int) (Reduced, error)
}

// Reduced is a downsampled image as raw non-premultiplied RGBA bytes.
type Reduced struct {
	Pixels   []byte
	Width    int
	Height   int
	Channels int
}

// SameShape reports whether two buffers can be compared pixel by pixel.
func (r Reduced) SameShape(other Reduced) bool {
	return r.Width == other.Width && r.Height == other.Height && r.Channels == other.Channels
}

// Image wraps the buffer as an image.NRGBA without copying.
func (r Reduced) Image() *image.NRGBA {
	return &image.NRGBA{
		Pix:    r.Pixels,
		Stride: r.Width * r.Channels,
		Rect:   image.Rect(0, 0, r.Width, r.Height),
	}
}

// PNG encodes the buffer for use as a thumbnail.
func (r Reduced) PNG() ([]byte, error) {
	if r.Channels != Channels || len(r.Pixels) != r.Width*r.Height*r.Channels {
		return nil, fmt.Errorf("encode thumbnail: %w", errors.ErrShapeMismatch)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, r.Image()); err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}

	return buf.Bytes(), nil
}

// ImageReducer decodes JPEG, PNG, GIF and WebP and scales bilinearly.
type ImageReducer struct {
	scaler    draw.Scaler
	maxPixels int
}

// NewImageReducer returns a reducer using draw.ApproxBiLinear.
func NewImageReducer() *ImageReducer {
	return &ImageReducer{scaler: draw.ApproxBiLinear, maxPixels: DefaultMaxSourcePixels}
}

// WithMaxPixels sets the source pixel cap. Values <= 0 keep the default.
func (r *ImageReducer) WithMaxPixels(n int) *ImageReducer {
	if n > 0 {
		r.maxPixels = n
	}

	return r
}

// Reduce decodes data and scales it to size×size, ignoring aspect ratio.
func (r *ImageReducer) Reduce(data []byte, size int) (Reduced, error) {
	if size <= 0 {
		return Reduced{}, errors.ErrInvalidResolution
	}

	if len(data) == 0 {
		return Reduced{}, fmt.Errorf("decode image: %w", errors.ErrUnsupportedImage)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Reduced{}, fmt.Errorf("decode image header: %w: %w", errors.ErrUnsupportedImage, err)
	}

	if cfg.Width <= 0 || cfg.Height <= 0 {
		return Reduced{}, fmt.Errorf("decode image header: %w: %dx%d", errors.ErrUnsupportedImage, cfg.Width, cfg.Height)
	}

	if int64(cfg.Width)*int64(cfg.Height) > int64(r.maxPixels) {
		return Reduced{}, fmt.Errorf("%w: %dx%d exceeds %d pixels", errors.ErrImageTooLarge, cfg.Width, cfg.Height, r.maxPixels)
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Reduced{}, fmt.Errorf("decode image: %w: %w", errors.ErrUnsupportedImage, err)
	}

	dst := image.NewNRGBA(image.Rect(0, 0, size, size))
	r.scaler.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	return Reduced{
		Pixels:   dst.Pix,
		Width:    size,
		Height:   size,
		Channels: Channels,
	}, nil
}
