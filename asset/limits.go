package asset

import (
	"errors"
	"fmt"
	"image"
)

const (
	// MaxFrameDimension bounds either side of a stacked frame. Larger
	// frames are refused before any pixel data is decoded.
	MaxFrameDimension = 16384

	// MaxFramePixels bounds the area of a stacked frame (8K UHD, stacked).
	MaxFramePixels = 7680 * 4320 * 2
)

// ErrFrameTooLarge indicates a frame beyond MaxFrameDimension or
// MaxFramePixels.
var ErrFrameTooLarge = errors.New("frame too large")

// ValidateFrameSize checks a whole stacked frame size against the limits.
func ValidateFrameSize(size image.Point) error {
	if size.X <= 0 || size.Y <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, size.X, size.Y)
	}
	if size.X > MaxFrameDimension || size.Y > MaxFrameDimension {
		return fmt.Errorf("%w: %dx%d exceeds %d per side", ErrFrameTooLarge, size.X, size.Y, MaxFrameDimension)
	}
	if size.X*size.Y > MaxFramePixels {
		return fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrFrameTooLarge, size.X, size.Y, MaxFramePixels)
	}
	return nil
}
