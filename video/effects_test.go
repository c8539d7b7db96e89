package video

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createTestFrame returns a composited-looking frame with a ramp in every
// channel and alpha set to 200.
func createTestFrame(width, height int) *image.NRGBA {
	frame := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			frame.SetNRGBA(x, y, color.NRGBA{
				R: uint8((x * 7) % 256),
				G: uint8((y * 11) % 256),
				B: uint8((x + y) % 256),
				A: 200,
			})
		}
	}
	return frame
}

func alphaOf(frame *image.NRGBA) []uint8 {
	out := make([]uint8, 0, len(frame.Pix)/4)
	for i := 3; i < len(frame.Pix); i += 4 {
		out = append(out, frame.Pix[i])
	}
	return out
}

func TestParseTint(t *testing.T) {
	tests := []struct {
		input     string
		expected  *Tint
		expectErr bool
	}{
		{input: "#ff8000", expected: NewTint(0xff, 0x80, 0x00)},
		{input: "00ff7f", expected: NewTint(0x00, 0xff, 0x7f)},
		{input: "", expected: nil},
		{input: "  ", expected: nil},
		{input: "#fff", expectErr: true},
		{input: "zzzzzz", expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			tint, err := ParseTint(tt.input)
			if tt.expectErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, tint)
		})
	}
}

func TestTint_Apply(t *testing.T) {
	white := NewTint(255, 255, 255)
	for _, l := range []uint8{0, 1, 64, 128, 254, 255} {
		r, g, b := white.Apply(l)
		assert.Equal(t, []uint8{l, l, l}, []uint8{r, g, b})
	}

	orange := NewTint(255, 128, 0)
	r, g, b := orange.Apply(128)
	assert.Equal(t, uint8(128), r)
	assert.Equal(t, uint8(64), g)
	assert.Equal(t, uint8(0), b)
	assert.Equal(t, "#ff8000", orange.String())
}

func TestScale8MatchesRoundedDivision(t *testing.T) {
	for a := 0; a < 256; a += 5 {
		for b := 0; b < 256; b += 3 {
			want := uint8((a*b + 127) / 255)
			assert.Equal(t, want, scale8(uint8(a), uint8(b)), "%d*%d", a, b)
		}
	}
}

func TestBrightness(t *testing.T) {
	tests := []struct {
		name  string
		delta int
		want  string
	}{
		{name: "brighten", delta: 40, want: "brightness(+40)"},
		{name: "darken", delta: -40, want: "brightness(-40)"},
		{name: "clamped_high", delta: 999, want: "brightness(+255)"},
		{name: "clamped_low", delta: -999, want: "brightness(-255)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			curve := Brightness(tt.delta)
			frame := createTestFrame(32, 16)
			original := append([]uint8(nil), frame.Pix...)

			require.NoError(t, curve.Apply(frame))
			assert.Equal(t, tt.want, curve.Name())

			delta := max(-255, min(255, tt.delta))
			for i := 0; i < len(frame.Pix); i += 4 {
				assert.Equal(t, clamp8(int(original[i])+delta), frame.Pix[i])
				assert.Equal(t, original[i+3], frame.Pix[i+3])
			}
		})
	}
}

func TestContrast(t *testing.T) {
	assert.Equal(t, "contrast(3.00)", Contrast(10).Name())
	assert.Equal(t, "contrast(0.00)", Contrast(-1).Name())

	frame := createTestFrame(8, 8)
	require.NoError(t, Contrast(0).Apply(frame))
	for i := 0; i < len(frame.Pix); i += 4 {
		assert.Equal(t, uint8(128), frame.Pix[i])
		assert.Equal(t, uint8(200), frame.Pix[i+3])
	}

	frame = createTestFrame(8, 8)
	want := append([]uint8(nil), frame.Pix...)
	require.NoError(t, Contrast(1).Apply(frame))
	assert.Equal(t, want, frame.Pix)
}

func TestGrayscale(t *testing.T) {
	frame := createTestFrame(10, 10)
	require.NoError(t, Grayscale{}.Apply(frame))

	for i := 0; i < len(frame.Pix); i += 4 {
		assert.Equal(t, frame.Pix[i], frame.Pix[i+1])
		assert.Equal(t, frame.Pix[i], frame.Pix[i+2])
		assert.Equal(t, uint8(200), frame.Pix[i+3])
	}
}

func TestEffects_NilFrame(t *testing.T) {
	for _, effect := range []Effect{Brightness(1), Contrast(1), Grayscale{}} {
		assert.ErrorIs(t, effect.Apply(nil), errNilFrame, effect.Name())
	}
}

func TestEffects_SubImageWindow(t *testing.T) {
	frame := createTestFrame(8, 8)
	window := frame.SubImage(image.Rect(2, 2, 4, 4)).(*image.NRGBA)

	require.NoError(t, Brightness(-255).Apply(window))

	assert.Equal(t, uint8(0), frame.NRGBAAt(3, 3).R)
	assert.NotEqual(t, uint8(0), frame.NRGBAAt(5, 5).G)
}

func TestToneCurve_Then(t *testing.T) {
	fused := Brightness(20).Then(Contrast(2))
	assert.Equal(t, "brightness(+20)+contrast(2.00)", fused.Name())

	a := createTestFrame(16, 16)
	b := createTestFrame(16, 16)
	require.NoError(t, Brightness(20).Apply(a))
	require.NoError(t, Contrast(2).Apply(a))
	require.NoError(t, fused.Apply(b))
	assert.Equal(t, a.Pix, b.Pix)
}

func TestFuseEffects(t *testing.T) {
	effects := fuseEffects([]Effect{
		Brightness(10), nil, Contrast(1.5), Grayscale{}, Brightness(-5),
	})
	require.Len(t, effects, 3)
	assert.Equal(t, []string{"brightness(+10)+contrast(1.50)", "grayscale", "brightness(-5)"}, effectNames(effects))
	assert.Empty(t, fuseEffects(nil))
}

type failingEffect struct{}

func (failingEffect) Name() string { return "failing" }

func (failingEffect) Apply(*image.NRGBA) error { return assert.AnError }

func TestApplyEffects_StopsOnFailure(t *testing.T) {
	frame := createTestFrame(2, 2)
	before := append([]uint8(nil), frame.Pix...)

	err := applyEffects(frame, []Effect{failingEffect{}, Brightness(-255)})
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, err.Error(), "effect failing")
	assert.Equal(t, before, frame.Pix)
}
