package video

import (
	"fmt"
	"image"
	"image/draw"
)

// subImager is implemented by every concrete image type in the standard
// library that supports windowed access onto a shared pixel buffer.
type subImager interface {
	SubImage(r image.Rectangle) image.Image
}

// Splitter cuts a stacked source frame into its color and mask regions.
type Splitter struct{}

// Split returns the top (color) and bottom (mask) halves of img.
//
// When img supports SubImage the halves alias its buffer and nothing is
// copied. Otherwise each half is copied into an *image.NRGBA.
//
// The height must be even and non-zero. A frame that breaks this is a caller
// bug, so Split panics with an error wrapping ErrRegionInvariant; callers that
// accept untrusted frames validate first (see Pipeline.ProcessFrame).
func (Splitter) Split(img image.Image) (color, mask image.Image) {
	if img == nil {
		panic(fmt.Errorf("%w: nil image", ErrRegionInvariant))
	}

	b := img.Bounds()
	if b.Dy() <= 0 || b.Dy()%2 != 0 || b.Dx() <= 0 {
		panic(fmt.Errorf("%w: bounds %v", ErrRegionInvariant, b))
	}

	half := b.Dy() / 2
	top := image.Rect(b.Min.X, b.Min.Y, b.Max.X, b.Min.Y+half)
	bottom := image.Rect(b.Min.X, b.Min.Y+half, b.Max.X, b.Max.Y)

	if s, ok := img.(subImager); ok {
		return s.SubImage(top), s.SubImage(bottom)
	}

	return copyRegion(img, top), copyRegion(img, bottom)
}

// copyRegion copies r out of img into a fresh NRGBA anchored at the origin.
func copyRegion(img image.Image, r image.Rectangle) *image.NRGBA {
	dst := image.NewNRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(dst, dst.Bounds(), img, r.Min, draw.Src)
	return dst
}
