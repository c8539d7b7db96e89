package video

import (
	"fmt"
	"image"
	"image/color"
	"strconv"
	"strings"
)

// Tint recolors mask luminance into a single hue.
//
// It models a monochrome filter at full intensity: each output channel is
// the luminance scaled by the tint channel, so white reproduces the mask as
// gray and any other color gives a one-color silhouette.
type Tint struct {
	Color color.NRGBA
}

// NewTint creates a tint from 8-bit channel values.
func NewTint(r, g, b uint8) *Tint {
	return &Tint{Color: color.NRGBA{R: r, G: g, B: b, A: 0xff}}
}

// ParseTint parses "#rrggbb" or "rrggbb". An empty string means no tint.
func ParseTint(s string) (*Tint, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if s == "" {
		return nil, nil
	}
	if len(s) != 6 {
		return nil, fmt.Errorf("tint %q: want 6 hex digits", s)
	}

	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return nil, fmt.Errorf("tint %q: %w", s, err)
	}

	return NewTint(uint8(v>>16), uint8(v>>8), uint8(v)), nil
}

// Apply maps a luminance value to the tinted color.
func (t *Tint) Apply(l uint8) (r, g, b uint8) {
	return scale8(l, t.Color.R), scale8(l, t.Color.G), scale8(l, t.Color.B)
}

// String formats the tint as "#rrggbb".
func (t *Tint) String() string {
	return fmt.Sprintf("#%02x%02x%02x", t.Color.R, t.Color.G, t.Color.B)
}

// scale8 returns round(a*b/255).
func scale8(a, b uint8) uint8 {
	v := uint32(a)*uint32(b) + 0x80
	return uint8((v + v>>8) >> 8)
}

// Effect post-processes a composited frame in place.
//
// The frame is freshly allocated by the compositor and referenced by nobody
// else. Effects must leave the alpha channel untouched.
type Effect interface {
	Name() string
	Apply(frame *image.NRGBA) error
}

// ToneCurve maps each color channel through a 256-entry lookup table.
type ToneCurve struct {
	name string
	lut  [256]uint8
}

// Name describes the curve.
func (c *ToneCurve) Name() string { return c.name }

// Apply rewrites the color channels of frame.
func (c *ToneCurve) Apply(frame *image.NRGBA) error {
	if frame == nil {
		return errNilFrame
	}
	b := frame.Bounds()
	w := b.Dx()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		i := frame.PixOffset(b.Min.X, y)
		row := frame.Pix[i : i+w*4]
		for x := 0; x < len(row); x += 4 {
			row[x] = c.lut[row[x]]
			row[x+1] = c.lut[row[x+1]]
			row[x+2] = c.lut[row[x+2]]
		}
	}
	return nil
}

// Then returns a curve equivalent to applying c and then next.
func (c *ToneCurve) Then(next *ToneCurve) *ToneCurve {
	out := &ToneCurve{name: c.name + "+" + next.name}
	for i := range out.lut {
		out.lut[i] = next.lut[c.lut[i]]
	}
	return out
}

// Brightness shifts every color channel by delta, clamped to ±255.
func Brightness(delta int) *ToneCurve {
	delta = max(-255, min(255, delta))
	c := &ToneCurve{name: fmt.Sprintf("brightness(%+d)", delta)}
	for i := range c.lut {
		c.lut[i] = clamp8(i + delta)
	}
	return c
}

// Contrast stretches color channels around mid-gray. A factor of 0 gives
// flat gray and 1 is the identity; factors are clamped to [0, 3].
func Contrast(factor float64) *ToneCurve {
	factor = max(0, min(3, factor))
	c := &ToneCurve{name: fmt.Sprintf("contrast(%.2f)", factor)}
	const mid = 128.0
	for i := range c.lut {
		c.lut[i] = clamp8(int(mid + (float64(i)-mid)*factor + 0.5))
	}
	return c
}

func clamp8(v int) uint8 {
	return uint8(max(0, min(255, v)))
}

// Grayscale replaces color with its Rec. 601 luma.
type Grayscale struct{}

// Name describes the effect.
func (Grayscale) Name() string { return "grayscale" }

// Apply converts frame in place.
func (Grayscale) Apply(frame *image.NRGBA) error {
	if frame == nil {
		return errNilFrame
	}
	b := frame.Bounds()
	w := b.Dx()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		i := frame.PixOffset(b.Min.X, y)
		row := frame.Pix[i : i+w*4]
		for x := 0; x < len(row); x += 4 {
			l := LuminanceRec601.luma(row[x], row[x+1], row[x+2])
			row[x], row[x+1], row[x+2] = l, l, l
		}
	}
	return nil
}

// fuseEffects merges runs of adjacent tone curves into one table so the
// frame is walked once per run.
func fuseEffects(effects []Effect) []Effect {
	out := make([]Effect, 0, len(effects))
	for _, e := range effects {
		if e == nil {
			continue
		}
		if c, ok := e.(*ToneCurve); ok && len(out) > 0 {
			if prev, ok := out[len(out)-1].(*ToneCurve); ok {
				out[len(out)-1] = prev.Then(c)
				continue
			}
		}
		out = append(out, e)
	}
	return out
}

func applyEffects(frame *image.NRGBA, effects []Effect) error {
	for _, e := range effects {
		if err := e.Apply(frame); err != nil {
			return fmt.Errorf("effect %s: %w", e.Name(), err)
		}
	}
	return nil
}

func effectNames(effects []Effect) []string {
	names := make([]string, 0, len(effects))
	for _, e := range effects {
		if e != nil {
			names = append(names, e.Name())
		}
	}
	return names
}
