package video

import (
	"errors"
	"fmt"
	"image"
	"image/color"
)

// LuminanceMode selects how a mask pixel is reduced to an alpha value.
type LuminanceMode int

const (
	// LuminanceRed reads the red channel directly. Mask assets are authored
	// as true grayscale (R=G=B), so red is an exact proxy for them.
	// Y'CbCr masks use the luma plane in every mode, so chroma noise from
	// compression never leaks into alpha.
	LuminanceRed LuminanceMode = iota
	// LuminanceRec601 applies BT.601 luma weights, for masks that are not
	// guaranteed to be neutral gray.
	LuminanceRec601
)

// String returns the configuration name of the mode.
func (m LuminanceMode) String() string {
	switch m {
	case LuminanceRed:
		return "red"
	case LuminanceRec601:
		return "rec601"
	default:
		return fmt.Sprintf("LuminanceMode(%d)", int(m))
	}
}

// ParseLuminanceMode maps a configuration name to a mode.
func ParseLuminanceMode(name string) (LuminanceMode, error) {
	switch name {
	case "", "red":
		return LuminanceRed, nil
	case "rec601", "luma":
		return LuminanceRec601, nil
	default:
		return LuminanceRed, fmt.Errorf("unknown luminance mode %q", name)
	}
}

func (m LuminanceMode) luma(r, g, b uint8) uint8 {
	if m == LuminanceRec601 {
		return uint8((299*uint32(r) + 587*uint32(g) + 114*uint32(b) + 500) / 1000)
	}
	return r
}

// Compositor merges a color region and a mask region into one NRGBA frame.
//
// Per pixel: rgb comes from the color region (or from the tint applied to
// the mask luminance when a tint is given) and alpha is the mask luminance.
// A Compositor holds no mutable state and is safe for concurrent use.
type Compositor struct {
	mode LuminanceMode
}

// NewCompositor creates a compositor using the given luminance mode.
func NewCompositor(mode LuminanceMode) *Compositor {
	return &Compositor{mode: mode}
}

// Mode returns the luminance mode in use.
func (c *Compositor) Mode() LuminanceMode {
	return c.mode
}

// Composite builds a fresh W x H frame from the two regions.
//
// The regions may be windows into a larger buffer; they are addressed from
// their own Bounds().Min. Differently sized regions yield ErrSizeMismatch.
// Nil or empty regions, and any fault while reading pixels, yield
// ErrProcessingFailed.
func (c *Compositor) Composite(colorRegion, maskRegion image.Image, tint *Tint) (out *image.NRGBA, err error) {
	if colorRegion == nil || maskRegion == nil {
		return nil, processingFailed(errors.New("nil region"))
	}

	cb := colorRegion.Bounds()
	mb := maskRegion.Bounds()
	if cb.Empty() || mb.Empty() {
		return nil, processingFailed(fmt.Errorf("empty region: color %v, mask %v", cb, mb))
	}
	if cb.Dx() != mb.Dx() || cb.Dy() != mb.Dy() {
		return nil, sizeMismatch("color %dx%d, mask %dx%d", cb.Dx(), cb.Dy(), mb.Dx(), mb.Dy())
	}

	// Short pixel buffers surface as index panics; report them per frame.
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = processingFailed(fmt.Errorf("pixel access: %v", r))
		}
	}()

	maskAt := c.newLumaSampler(maskRegion)
	var colorAt rgbSampler
	if tint == nil {
		colorAt = newRGBSampler(colorRegion)
	}

	w, h := cb.Dx(), cb.Dy()
	out = image.NewNRGBA(image.Rect(0, 0, w, h))

	for y := 0; y < h; y++ {
		row := out.Pix[y*out.Stride : y*out.Stride+w*4]
		for x := 0; x < w; x++ {
			l := maskAt(mb.Min.X+x, mb.Min.Y+y)

			var r, g, b uint8
			if tint != nil {
				r, g, b = tint.Apply(l)
			} else {
				r, g, b = colorAt(cb.Min.X+x, cb.Min.Y+y)
			}

			p := row[x*4 : x*4+4 : x*4+4]
			p[0] = r
			p[1] = g
			p[2] = b
			p[3] = l
		}
	}

	return out, nil
}

// newLumaSampler reads mask luminance at absolute coordinates. Gray and
// Y'CbCr masks carry luminance in a plane of their own.
func (c *Compositor) newLumaSampler(img image.Image) func(x, y int) uint8 {
	switch src := img.(type) {
	case *image.Gray:
		return func(x, y int) uint8 { return src.Pix[src.PixOffset(x, y)] }
	case *image.YCbCr:
		return func(x, y int) uint8 { return src.Y[src.YOffset(x, y)] }
	}
	rgbAt := newRGBSampler(img)
	return func(x, y int) uint8 {
		return c.mode.luma(rgbAt(x, y))
	}
}

// rgbSampler returns the non-premultiplied color at absolute coordinates.
type rgbSampler func(x, y int) (r, g, b uint8)

// newRGBSampler picks a direct buffer reader for the common decoder output
// types and falls back to the color model conversion for everything else.
func newRGBSampler(img image.Image) rgbSampler {
	switch src := img.(type) {
	case *image.NRGBA:
		return func(x, y int) (uint8, uint8, uint8) {
			i := src.PixOffset(x, y)
			p := src.Pix[i : i+3 : i+3]
			return p[0], p[1], p[2]
		}
	case *image.RGBA:
		return func(x, y int) (uint8, uint8, uint8) {
			i := src.PixOffset(x, y)
			p := src.Pix[i : i+4 : i+4]
			switch a := p[3]; a {
			case 0xff:
				return p[0], p[1], p[2]
			case 0:
				return 0, 0, 0
			default:
				return unpremultiply(p[0], a), unpremultiply(p[1], a), unpremultiply(p[2], a)
			}
		}
	case *image.Gray:
		return func(x, y int) (uint8, uint8, uint8) {
			v := src.Pix[src.PixOffset(x, y)]
			return v, v, v
		}
	case *image.YCbCr:
		return func(x, y int) (uint8, uint8, uint8) {
			yi := src.YOffset(x, y)
			ci := src.COffset(x, y)
			return color.YCbCrToRGB(src.Y[yi], src.Cb[ci], src.Cr[ci])
		}
	default:
		return func(x, y int) (uint8, uint8, uint8) {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			return c.R, c.G, c.B
		}
	}
}

func unpremultiply(c, a uint8) uint8 {
	v := (uint32(c)*0xff + uint32(a)/2) / uint32(a)
	if v > 0xff {
		v = 0xff
	}
	return uint8(v)
}
