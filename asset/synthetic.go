package asset

import (
	"fmt"
	"image"
	"strconv"
	"time"

	"github.com/opd-ai/alphavideo/video"
)

// Synthetic generates stacked frames in memory. The color half is a
// gradient whose blue channel advances with the frame index; the mask half
// is a horizontal luminance ramp that scrolls one pixel per frame.
type Synthetic struct {
	name     string
	width    int
	height   int
	frames   int
	rate     float64
	identity string
}

// NewSynthetic creates a source of frames frames, each width×2·height.
func NewSynthetic(name string, width, height, frames int, frameRate float64) (*Synthetic, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, width, height)
	}
	if err := ValidateFrameSize(image.Pt(width, 2*height)); err != nil {
		return nil, err
	}
	if frames <= 0 {
		return nil, ErrNoFrames
	}
	if err := validateRate(frameRate); err != nil {
		return nil, err
	}

	return &Synthetic{
		name:   name,
		width:  width,
		height: height,
		frames: frames,
		rate:   frameRate,
		identity: Fingerprint("synthetic", name,
			strconv.Itoa(width), strconv.Itoa(height), strconv.Itoa(frames),
			strconv.FormatFloat(frameRate, 'g', -1, 64)),
	}, nil
}

func (s *Synthetic) Identity() string        { return s.identity }
func (s *Synthetic) Name() string            { return s.name }
func (s *Synthetic) FrameRate() float64      { return s.rate }
func (s *Synthetic) FrameCount() int         { return s.frames }
func (s *Synthetic) Size() image.Point       { return image.Pt(s.width, 2*s.height) }
func (s *Synthetic) Duration() time.Duration { return durationOf(s.frames, s.rate) }

// MaskAt returns the mask luminance of column x in frame index.
func (s *Synthetic) MaskAt(x, index int) uint8 {
	if s.width == 1 {
		return 255
	}
	return uint8(((x + index) % s.width) * 255 / (s.width - 1))
}

// Frame renders frame index.
func (s *Synthetic) Frame(index int) (video.SourceFrame, error) {
	if index < 0 || index >= s.frames {
		return video.SourceFrame{}, fmt.Errorf("%w: %d of %d", ErrFrameOutOfRange, index, s.frames)
	}

	img := image.NewNRGBA(image.Rect(0, 0, s.width, 2*s.height))
	blue := uint8(index * 255 / max(s.frames-1, 1))

	for y := 0; y < s.height; y++ {
		top := img.Pix[y*img.Stride:]
		bottom := img.Pix[(y+s.height)*img.Stride:]
		green := uint8(y * 255 / max(s.height-1, 1))
		for x := 0; x < s.width; x++ {
			i := x * 4
			top[i+0] = uint8(x * 255 / max(s.width-1, 1))
			top[i+1] = green
			top[i+2] = blue
			top[i+3] = 0xff

			l := s.MaskAt(x, index)
			bottom[i+0] = l
			bottom[i+1] = l
			bottom[i+2] = l
			bottom[i+3] = 0xff
		}
	}

	return video.SourceFrame{
		Image:     img,
		Timestamp: FrameTimestamp(index, s.rate),
		Index:     index,
	}, nil
}
