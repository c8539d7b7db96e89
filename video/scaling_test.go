package video

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewScaler(t *testing.T) {
	scaler := NewScaler(InterpolationCatmullRom)
	assert.NotNil(t, scaler)
	assert.Equal(t, InterpolationCatmullRom, scaler.Interpolation())
}

func TestScaler_IsScalingRequired(t *testing.T) {
	scaler := NewScaler(InterpolationBilinear)

	tests := []struct {
		name     string
		src, dst image.Point
		expected bool
	}{
		{name: "same_dimensions", src: image.Pt(640, 480), dst: image.Pt(640, 480), expected: false},
		{name: "different_width", src: image.Pt(640, 480), dst: image.Pt(320, 480), expected: true},
		{name: "different_height", src: image.Pt(640, 480), dst: image.Pt(640, 240), expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, scaler.IsScalingRequired(tt.src, tt.dst))
		})
	}
}

func TestScaler_Scale(t *testing.T) {
	tests := []struct {
		name          string
		interpolation Interpolation
		width         int
		height        int
	}{
		{name: "bilinear_down", interpolation: InterpolationBilinear, width: 16, height: 8},
		{name: "nearest_up", interpolation: InterpolationNearest, width: 128, height: 64},
		{name: "catmullrom_up", interpolation: InterpolationCatmullRom, width: 96, height: 40},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame := image.NewNRGBA(image.Rect(0, 0, 32, 16))
			for i := 0; i < len(frame.Pix); i += 4 {
				frame.Pix[i] = 200
				frame.Pix[i+3] = 255
			}

			scaled, err := NewScaler(tt.interpolation).Scale(frame, tt.width, tt.height)
			require.NoError(t, err)
			assert.Equal(t, image.Rect(0, 0, tt.width, tt.height), scaled.Bounds())

			// A flat opaque frame stays flat and opaque under every kernel.
			c := scaled.NRGBAAt(tt.width/2, tt.height/2)
			assert.InDelta(t, 200, int(c.R), 1)
			assert.Equal(t, uint8(0), c.G)
			assert.InDelta(t, 255, int(c.A), 1)
		})
	}
}

func TestScaler_SameSizeReturnsInput(t *testing.T) {
	frame := image.NewNRGBA(image.Rect(0, 0, 10, 10))
	scaled, err := NewScaler(InterpolationBilinear).Scale(frame, 10, 10)
	require.NoError(t, err)
	assert.Same(t, frame, scaled)
}

func TestScaler_InvalidInput(t *testing.T) {
	scaler := NewScaler(InterpolationBilinear)

	_, err := scaler.Scale(nil, 10, 10)
	assert.Error(t, err)

	_, err = scaler.Scale(image.NewNRGBA(image.Rect(0, 0, 4, 4)), 0, 10)
	assert.ErrorIs(t, err, ErrInvalidDimensions)

	_, err = scaler.Scale(image.NewNRGBA(image.Rect(0, 0, 0, 0)), 4, 4)
	assert.ErrorIs(t, err, ErrInvalidDimensions)
}

func TestParseInterpolation(t *testing.T) {
	for name, want := range map[string]Interpolation{
		"":           InterpolationBilinear,
		"bilinear":   InterpolationBilinear,
		"nearest":    InterpolationNearest,
		"catmullrom": InterpolationCatmullRom,
	} {
		got, err := ParseInterpolation(name)
		require.NoError(t, err)
		assert.Equal(t, want, got)
		if name != "" {
			assert.Equal(t, name, got.String())
		}
	}

	_, err := ParseInterpolation("lanczos")
	assert.Error(t, err)
}
