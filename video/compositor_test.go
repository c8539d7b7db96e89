package video

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createStackedFrame builds a W x 2H frame with a color gradient on top and
// a uniform mask of luminance l below.
func createStackedFrame(width, height int, l uint8) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height*2))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(x * 255 / width),
				G: uint8(y * 255 / height),
				B: uint8((x + y) % 256),
				A: 0xff,
			})
			img.SetNRGBA(x, y+height, color.NRGBA{R: l, G: l, B: l, A: 0xff})
		}
	}
	return img
}

func TestCompositor_OutputSize(t *testing.T) {
	tests := []struct {
		name   string
		width  int
		height int
	}{
		{name: "square", width: 16, height: 16},
		{name: "wide", width: 64, height: 8},
		{name: "single_pixel", width: 1, height: 1},
		{name: "odd_width", width: 33, height: 7},
	}

	c := NewCompositor(LuminanceRed)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := createStackedFrame(tt.width, tt.height, 200)
			colorRegion, maskRegion := Splitter{}.Split(src)

			out, err := c.Composite(colorRegion, maskRegion, nil)
			require.NoError(t, err)
			assert.Equal(t, image.Rect(0, 0, tt.width, tt.height), out.Bounds())
		})
	}
}

func TestCompositor_AlphaFromUniformMask(t *testing.T) {
	for _, l := range []uint8{0, 1, 127, 128, 254, 255} {
		src := createStackedFrame(12, 10, l)
		colorRegion, maskRegion := Splitter{}.Split(src)

		out, err := NewCompositor(LuminanceRed).Composite(colorRegion, maskRegion, nil)
		require.NoError(t, err)

		for y := 0; y < 10; y++ {
			for x := 0; x < 12; x++ {
				got := out.NRGBAAt(x, y)
				want := src.NRGBAAt(x, y)
				assert.Equal(t, l, got.A, "alpha at %d,%d", x, y)
				assert.Equal(t, want.R, got.R)
				assert.Equal(t, want.G, got.G)
				assert.Equal(t, want.B, got.B)
			}
		}
	}
}

func TestCompositor_AlphaIndependentOfColor(t *testing.T) {
	a := createStackedFrame(8, 8, 90)
	b := createStackedFrame(8, 8, 90)
	// Scramble b's color half.
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			b.SetNRGBA(x, y, color.NRGBA{R: 255 - uint8(x), G: 3, B: 250, A: 0xff})
		}
	}

	c := NewCompositor(LuminanceRed)
	ca, ma := Splitter{}.Split(a)
	cb, mb := Splitter{}.Split(b)
	outA, err := c.Composite(ca, ma, nil)
	require.NoError(t, err)
	outB, err := c.Composite(cb, mb, nil)
	require.NoError(t, err)

	for i := 3; i < len(outA.Pix); i += 4 {
		assert.Equal(t, outA.Pix[i], outB.Pix[i])
	}
}

func TestCompositor_LuminanceModes(t *testing.T) {
	colorRegion := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	maskRegion := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	maskRegion.SetNRGBA(0, 0, color.NRGBA{R: 200, G: 100, B: 50, A: 0xff})

	red, err := NewCompositor(LuminanceRed).Composite(colorRegion, maskRegion, nil)
	require.NoError(t, err)
	assert.Equal(t, uint8(200), red.Pix[3])

	luma, err := NewCompositor(LuminanceRec601).Composite(colorRegion, maskRegion, nil)
	require.NoError(t, err)
	// (299*200 + 587*100 + 114*50 + 500) / 1000 = 124
	assert.Equal(t, uint8(124), luma.Pix[3])
}

func TestCompositor_TintReplacesColor(t *testing.T) {
	src := createStackedFrame(6, 4, 255)
	colorRegion, maskRegion := Splitter{}.Split(src)
	tint := NewTint(255, 0, 128)

	out, err := NewCompositor(LuminanceRed).Composite(colorRegion, maskRegion, tint)
	require.NoError(t, err)

	for y := 0; y < 4; y++ {
		for x := 0; x < 6; x++ {
			assert.Equal(t, color.NRGBA{R: 255, G: 0, B: 128, A: 255}, out.NRGBAAt(x, y))
		}
	}
}

func TestCompositor_TintDeterministic(t *testing.T) {
	src := createStackedFrame(20, 10, 0)
	for y := 10; y < 20; y++ {
		for x := 0; x < 20; x++ {
			v := uint8(x*12 + y)
			src.SetNRGBA(x, y, color.NRGBA{R: v, G: v, B: v, A: 0xff})
		}
	}
	colorRegion, maskRegion := Splitter{}.Split(src)
	c := NewCompositor(LuminanceRed)
	tint := NewTint(10, 200, 90)

	first, err := c.Composite(colorRegion, maskRegion, tint)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := c.Composite(colorRegion, maskRegion, tint)
		require.NoError(t, err)
		assert.Equal(t, first.Pix, again.Pix)
	}
}

func TestCompositor_SizeMismatch(t *testing.T) {
	colorRegion := image.NewNRGBA(image.Rect(0, 0, 10, 10))
	maskRegion := image.NewNRGBA(image.Rect(0, 0, 10, 9))

	out, err := NewCompositor(LuminanceRed).Composite(colorRegion, maskRegion, nil)
	assert.Nil(t, out)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSizeMismatch))

	var ce *CompositionError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, ErrSizeMismatch, ce.Kind)
}

func TestCompositor_ProcessingFailed(t *testing.T) {
	c := NewCompositor(LuminanceRed)

	_, err := c.Composite(nil, image.NewNRGBA(image.Rect(0, 0, 1, 1)), nil)
	assert.ErrorIs(t, err, ErrProcessingFailed)

	_, err = c.Composite(image.NewNRGBA(image.Rect(0, 0, 0, 0)), image.NewNRGBA(image.Rect(0, 0, 0, 0)), nil)
	assert.ErrorIs(t, err, ErrProcessingFailed)

	// A buffer shorter than its bounds claim is an unreadable pixel buffer.
	broken := &image.NRGBA{Pix: make([]uint8, 8), Stride: 16, Rect: image.Rect(0, 0, 4, 4)}
	_, err = c.Composite(broken, image.NewNRGBA(image.Rect(0, 0, 4, 4)), nil)
	assert.ErrorIs(t, err, ErrProcessingFailed)
}

func TestCompositor_SamplersAgree(t *testing.T) {
	src := createStackedFrame(9, 6, 77)

	rgba := image.NewRGBA(src.Bounds())
	copy(rgba.Pix, src.Pix) // opaque, so premultiplied == straight

	paletted := image.NewPaletted(src.Bounds(), nil)
	paletted.Palette = make(color.Palette, 0, 256)
	seen := map[color.NRGBA]uint8{}
	for y := 0; y < 12; y++ {
		for x := 0; x < 9; x++ {
			c := src.NRGBAAt(x, y)
			idx, ok := seen[c]
			if !ok {
				idx = uint8(len(paletted.Palette))
				seen[c] = idx
				paletted.Palette = append(paletted.Palette, c)
			}
			paletted.SetColorIndex(x, y, idx)
		}
	}

	c := NewCompositor(LuminanceRed)
	sc, sm := Splitter{}.Split(src)
	want, err := c.Composite(sc, sm, nil)
	require.NoError(t, err)

	for name, img := range map[string]image.Image{"rgba": rgba, "paletted": paletted} {
		cr, mr := Splitter{}.Split(img)
		got, err := c.Composite(cr, mr, nil)
		require.NoError(t, err, name)
		assert.Equal(t, want.Pix, got.Pix, name)
	}
}

func TestCompositor_GrayMask(t *testing.T) {
	colorRegion := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	maskRegion := image.NewGray(image.Rect(0, 0, 2, 1))
	maskRegion.SetGray(0, 0, color.Gray{Y: 10})
	maskRegion.SetGray(1, 0, color.Gray{Y: 240})

	out, err := NewCompositor(LuminanceRec601).Composite(colorRegion, maskRegion, nil)
	require.NoError(t, err)
	assert.Equal(t, uint8(10), out.NRGBAAt(0, 0).A)
	assert.Equal(t, uint8(240), out.NRGBAAt(1, 0).A)
}

func TestCompositor_YCbCrMaskIgnoresChroma(t *testing.T) {
	colorRegion := image.NewNRGBA(image.Rect(0, 0, 4, 2))
	maskRegion := image.NewYCbCr(image.Rect(0, 0, 4, 2), image.YCbCrSubsampleRatio420)
	for i := range maskRegion.Y {
		maskRegion.Y[i] = 100
	}
	for i := range maskRegion.Cb {
		maskRegion.Cb[i] = 110
		maskRegion.Cr[i] = 200
	}

	for _, mode := range []LuminanceMode{LuminanceRed, LuminanceRec601} {
		out, err := NewCompositor(mode).Composite(colorRegion, maskRegion, nil)
		require.NoError(t, err, mode.String())
		for y := 0; y < 2; y++ {
			for x := 0; x < 4; x++ {
				assert.Equal(t, uint8(100), out.NRGBAAt(x, y).A, "%s at %d,%d", mode, x, y)
			}
		}
	}
}

func TestUnpremultiply(t *testing.T) {
	assert.Equal(t, uint8(255), unpremultiply(128, 128))
	assert.Equal(t, uint8(128), unpremultiply(64, 128))
	assert.Equal(t, uint8(255), unpremultiply(200, 100))
}

func TestParseLuminanceMode(t *testing.T) {
	m, err := ParseLuminanceMode("rec601")
	require.NoError(t, err)
	assert.Equal(t, LuminanceRec601, m)

	m, err = ParseLuminanceMode("")
	require.NoError(t, err)
	assert.Equal(t, LuminanceRed, m)

	_, err = ParseLuminanceMode("bt709")
	assert.Error(t, err)
}
