package video

import (
	"fmt"
	"image"
	"time"
)

// SourceFrame is one decoded frame of a stacked alpha asset.
//
// The image is W x 2H: rows [0,H) hold the color payload and rows [H,2H)
// hold the grayscale mask. The pipeline does not retain it past a call.
type SourceFrame struct {
	Image image.Image
	// PresentationSize is the declared display size of the whole stacked
	// frame. The zero value means "same as the pixel size".
	PresentationSize image.Point
	Timestamp        time.Duration
	Index            int
}

// PlanarFrame is a stacked frame held as 4:2:0 planes, the layout most
// hardware decoders hand out. Image aliases the planes instead of
// converting them.
type PlanarFrame struct {
	Width, Height int

	Y, Cb, Cr []byte
	// LumaStride and ChromaStride are row lengths in bytes. Both chroma
	// planes share one stride, as image.YCbCr requires.
	LumaStride   int
	ChromaStride int
}

// NewPlanarFrame allocates a tightly packed frame. Both dimensions must be
// even.
func NewPlanarFrame(width, height int) (*PlanarFrame, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, width, height)
	}
	if width%2 != 0 || height%2 != 0 {
		return nil, fmt.Errorf("planar frame %dx%d: dimensions must be even", width, height)
	}

	cw, ch := width/2, height/2
	return &PlanarFrame{
		Width:        width,
		Height:       height,
		Y:            make([]byte, width*height),
		Cb:           make([]byte, cw*ch),
		Cr:           make([]byte, cw*ch),
		LumaStride:   width,
		ChromaStride: cw,
	}, nil
}

// Validate checks plane lengths against the dimensions and strides.
func (f *PlanarFrame) Validate() error {
	if f == nil {
		return errNilFrame
	}
	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, f.Width, f.Height)
	}

	cw, ch := (f.Width+1)/2, (f.Height+1)/2
	if f.LumaStride < f.Width || f.ChromaStride < cw {
		return fmt.Errorf("planar frame: strides %d/%d too short for width %d",
			f.LumaStride, f.ChromaStride, f.Width)
	}

	planes := []struct {
		name string
		got  int
		want int
	}{
		{"luma", len(f.Y), f.LumaStride * f.Height},
		{"cb", len(f.Cb), f.ChromaStride * ch},
		{"cr", len(f.Cr), f.ChromaStride * ch},
	}
	for _, p := range planes {
		if p.got < p.want {
			return fmt.Errorf("planar frame: %s plane has %d bytes, need %d", p.name, p.got, p.want)
		}
	}
	return nil
}

// Image returns an *image.YCbCr sharing the frame's planes.
func (f *PlanarFrame) Image() (*image.YCbCr, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &image.YCbCr{
		Y:              f.Y,
		Cb:             f.Cb,
		Cr:             f.Cr,
		YStride:        f.LumaStride,
		CStride:        f.ChromaStride,
		SubsampleRatio: image.YCbCrSubsampleRatio420,
		Rect:           image.Rect(0, 0, f.Width, f.Height),
	}, nil
}

// SourceFrame wraps the frame for the composition pipeline.
func (f *PlanarFrame) SourceFrame(index int, ts time.Duration) (SourceFrame, error) {
	img, err := f.Image()
	if err != nil {
		return SourceFrame{}, err
	}
	return SourceFrame{Image: img, Timestamp: ts, Index: index}, nil
}
