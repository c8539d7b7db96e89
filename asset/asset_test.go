package asset

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"github.com/opd-ai/alphavideo/video"
)

func TestFingerprint(t *testing.T) {
	a := Fingerprint("clip", "a")
	assert.Len(t, a, 64)
	assert.Equal(t, a, Fingerprint("clip", "a"))
	assert.NotEqual(t, Fingerprint("ab", "c"), Fingerprint("a", "bc"))
	assert.NotEqual(t, a, Fingerprint("clip", "b"))
}

func TestNewSynthetic(t *testing.T) {
	tests := []struct {
		name      string
		w, h, n   int
		rate      float64
		expectErr error
	}{
		{name: "valid", w: 320, h: 240, n: 100, rate: 25},
		{name: "zero_width", w: 0, h: 240, n: 100, rate: 25, expectErr: ErrInvalidDimensions},
		{name: "no_frames", w: 4, h: 4, n: 0, rate: 25, expectErr: ErrNoFrames},
		{name: "zero_rate", w: 4, h: 4, n: 1, rate: 0, expectErr: ErrInvalidFrameRate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewSynthetic("clip", tt.w, tt.h, tt.n, tt.rate)
			if tt.expectErr != nil {
				assert.ErrorIs(t, err, tt.expectErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, image.Pt(320, 480), s.Size())
			assert.Equal(t, 4*time.Second, s.Duration())
			assert.Equal(t, 100, s.FrameCount())
		})
	}
}

func TestSynthetic_Frame(t *testing.T) {
	s, err := NewSynthetic("clip", 8, 4, 10, 10)
	require.NoError(t, err)

	f, err := s.Frame(3)
	require.NoError(t, err)
	assert.Equal(t, 3, f.Index)
	assert.Equal(t, 300*time.Millisecond, f.Timestamp)

	img := f.Image.(*image.NRGBA)
	assert.Equal(t, image.Rect(0, 0, 8, 8), img.Bounds())
	for x := 0; x < 8; x++ {
		l := s.MaskAt(x, 3)
		assert.Equal(t, color.NRGBA{R: l, G: l, B: l, A: 255}, img.NRGBAAt(x, 6))
	}
	assert.Equal(t, uint8(255), s.MaskAt(4, 3))
	assert.Equal(t, uint8(0), s.MaskAt(5, 3))

	_, err = s.Frame(10)
	assert.ErrorIs(t, err, ErrFrameOutOfRange)
	_, err = s.Frame(-1)
	assert.ErrorIs(t, err, ErrFrameOutOfRange)
}

func TestSynthetic_IdentityIsStable(t *testing.T) {
	a, err := NewSynthetic("clip", 8, 4, 10, 10)
	require.NoError(t, err)
	b, err := NewSynthetic("clip", 8, 4, 10, 10)
	require.NoError(t, err)
	c, err := NewSynthetic("clip", 8, 4, 11, 10)
	require.NoError(t, err)

	assert.Equal(t, a.Identity(), b.Identity())
	assert.NotEqual(t, a.Identity(), c.Identity())
}

func TestSynthetic_CompositesThroughPipeline(t *testing.T) {
	s, err := NewSynthetic("clip", 16, 8, 4, 30)
	require.NoError(t, err)
	p := video.NewPipeline(video.Settings{})

	for i := 0; i < s.FrameCount(); i++ {
		f, err := s.Frame(i)
		require.NoError(t, err)
		res := p.ProcessFrame(video.FrameRequest{Source: f})
		require.NoError(t, res.Err)
		assert.Equal(t, s.MaskAt(5, i), res.Frame.NRGBAAt(5, 2).A)
	}
}

func TestFrameIndex(t *testing.T) {
	s, err := NewSynthetic("clip", 2, 2, 30, 30)
	require.NoError(t, err)

	assert.Equal(t, 0, FrameIndex(s, -time.Second))
	assert.Equal(t, 0, FrameIndex(s, 0))
	assert.Equal(t, 15, FrameIndex(s, 500*time.Millisecond))
	assert.Equal(t, 29, FrameIndex(s, time.Hour))
	assert.Equal(t, 3, FrameIndex(s, FrameTimestamp(3, 30)))
}

func TestDescribe(t *testing.T) {
	s, err := NewSynthetic("clip", 320, 240, 100, 25)
	require.NoError(t, err)

	info := Describe(s)
	assert.Equal(t, image.Pt(320, 240), info.RenderSize)
	assert.Equal(t, 100, info.Frames)
	assert.Equal(t, s.Identity(), info.Identity)
}

func TestValidatePath(t *testing.T) {
	tests := []struct {
		in        string
		want      string
		expectErr bool
	}{
		{in: "frames/", want: "frames"},
		{in: "/tmp/a/../b", want: "/tmp/b"},
		{in: "../frames", expectErr: true},
		{in: "a/../../b", expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ValidatePath(tt.in)
			if tt.expectErr {
				assert.ErrorIs(t, err, ErrDirectoryTraversal)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, filepath.FromSlash(tt.want), got)
		})
	}
}

func writeFrame(t *testing.T, path string, img image.Image) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	switch filepath.Ext(path) {
	case ".bmp":
		require.NoError(t, bmp.Encode(f, img))
	case ".tif":
		require.NoError(t, tiff.Encode(f, img, nil))
	default:
		require.NoError(t, png.Encode(f, img))
	}
}

func TestOpenSequence(t *testing.T) {
	dir := t.TempDir()
	synth, err := NewSynthetic("clip", 6, 3, 3, 30)
	require.NoError(t, err)

	for i, name := range []string{"f000.png", "f001.bmp", "f002.tif"} {
		f, err := synth.Frame(i)
		require.NoError(t, err)
		writeFrame(t, filepath.Join(dir, name), f.Image)
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	seq, err := OpenSequence(dir, SequenceOptions{FrameRate: 30, PresentationSize: image.Pt(12, 12)})
	require.NoError(t, err)
	assert.Equal(t, 3, seq.FrameCount())
	assert.Equal(t, filepath.Clean(dir), seq.Dir())
	assert.Equal(t, image.Pt(6, 6), seq.Size())
	assert.Equal(t, 100*time.Millisecond, seq.Duration())

	for i := 0; i < 3; i++ {
		f, err := seq.Frame(i)
		require.NoError(t, err, "frame %d", i)
		assert.Equal(t, image.Pt(12, 12), f.PresentationSize)
		assert.Equal(t, i, f.Index)

		r, _, _, _ := f.Image.At(2, 4).RGBA()
		assert.Equal(t, uint32(synth.MaskAt(2, i)), r>>8)
	}

	again, err := OpenSequence(dir, SequenceOptions{FrameRate: 30})
	require.NoError(t, err)
	assert.Equal(t, seq.Identity(), again.Identity())

	other, err := OpenSequence(dir, SequenceOptions{FrameRate: 24})
	require.NoError(t, err)
	assert.NotEqual(t, seq.Identity(), other.Identity())
}

func TestOpenSequence_Errors(t *testing.T) {
	_, err := OpenSequence(t.TempDir(), SequenceOptions{FrameRate: 30})
	assert.ErrorIs(t, err, ErrNoFrames)

	_, err = OpenSequence(t.TempDir(), SequenceOptions{})
	assert.ErrorIs(t, err, ErrInvalidFrameRate)

	_, err = OpenSequence("../outside", SequenceOptions{FrameRate: 30})
	assert.ErrorIs(t, err, ErrDirectoryTraversal)

	_, err = OpenSequence(filepath.Join(t.TempDir(), "missing"), SequenceOptions{FrameRate: 30})
	assert.Error(t, err)
}

func TestSequence_CorruptFrame(t *testing.T) {
	dir := t.TempDir()
	writeFrame(t, filepath.Join(dir, "a.png"), image.NewNRGBA(image.Rect(0, 0, 2, 2)))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.png"), []byte("not a png"), 0o644))

	seq, err := OpenSequence(dir, SequenceOptions{FrameRate: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, seq.FrameCount())

	_, err = seq.Frame(0)
	require.NoError(t, err)
	_, err = seq.Frame(1)
	assert.ErrorContains(t, err, "b.png")
	_, err = seq.Frame(2)
	assert.ErrorIs(t, err, ErrFrameOutOfRange)
}

func TestSequence_OversizedLaterFrame(t *testing.T) {
	dir := t.TempDir()
	writeFrame(t, filepath.Join(dir, "f0.png"), image.NewNRGBA(image.Rect(0, 0, 4, 4)))
	writeFrame(t, filepath.Join(dir, "f1.png"), image.NewGray(image.Rect(0, 0, MaxFrameDimension+100, 2)))

	seq, err := OpenSequence(dir, SequenceOptions{FrameRate: 30})
	require.NoError(t, err)

	_, err = seq.Frame(0)
	require.NoError(t, err)

	f, err := seq.Frame(1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFrameTooLarge)
	assert.ErrorContains(t, err, "f1.png")
	assert.Nil(t, f.Image)
}

func TestValidateFrameSize(t *testing.T) {
	tests := []struct {
		name string
		size image.Point
		want error
	}{
		{"hd", image.Pt(1920, 2160), nil},
		{"8k stacked", image.Pt(7680, 8640), nil},
		{"zero", image.Pt(0, 10), ErrInvalidDimensions},
		{"too wide", image.Pt(MaxFrameDimension+1, 2), ErrFrameTooLarge},
		{"too many pixels", image.Pt(16000, 16000), ErrFrameTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFrameSize(tt.size)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err := NewSynthetic("huge", 10, MaxFrameDimension, 1, 30)
	assert.ErrorIs(t, err, ErrFrameTooLarge)
}
