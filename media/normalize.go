package media

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"io"
	"math"

	"github.com/disintegration/imaging"
)

// Decode reads an uploaded photo, applying any EXIF orientation so the
// letterbox sees the image the way the camera held it.
func Decode(r io.Reader) (image.Image, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode: %v", ErrInvalidImage, err)
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, fmt.Errorf("%w: zero dimension %dx%d", ErrInvalidImage, b.Dx(), b.Dy())
	}
	return img, nil
}

// DecodeBytes is Decode over an in-memory upload
func DecodeBytes(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrInvalidImage)
	}
	return Decode(bytes.NewReader(data))
}

// Letterbox fits img inside a size x size black canvas without distorting it.
// The scaled content is centered with integer offsets.
func Letterbox(img image.Image, size int) (*image.NRGBA, error) {
	if img == nil {
		return nil, fmt.Errorf("%w: nil image", ErrInvalidImage)
	}
	if size <= 0 {
		return nil, fmt.Errorf("%w: target size must be positive, got %d", ErrInvalidImage, size)
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: zero dimension %dx%d", ErrInvalidImage, w, h)
	}

	if w == size && h == size {
		return imaging.Clone(img), nil
	}

	newW, newH := FitSize(w, h, size)
	resized := imaging.Resize(img, newW, newH, imaging.Linear)

	canvas := imaging.New(size, size, color.Black)
	left := (size - newW) / 2
	top := (size - newH) / 2

	// Overlay composites translucent pixels onto the black background
	return imaging.Overlay(canvas, resized, image.Pt(left, top), 1.0), nil
}

// FitSize returns the dimensions of a w x h image scaled by
// min(size/w, size/h), rounded and kept within [1, size].
func FitSize(w, h, size int) (int, int) {
	scale := math.Min(float64(size)/float64(w), float64(size)/float64(h))
	newW := clampInt(int(math.Round(float64(w)*scale)), 1, size)
	newH := clampInt(int(math.Round(float64(h)*scale)), 1, size)
	return newW, newH
}
