package asset

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/opd-ai/alphavideo/video"
)

// frameExtensions lists the image formats registered with image.Decode.
var frameExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".bmp":  true,
	".tif":  true,
	".tiff": true,
	".webp": true,
}

// SequenceOptions configures OpenSequence.
type SequenceOptions struct {
	FrameRate float64
	// PresentationSize is the declared display size of a whole stacked
	// frame. Zero means the pixel size.
	PresentationSize image.Point
}

// Sequence is a directory of stacked frames ordered by file name.
// Frames are decoded on demand.
type Sequence struct {
	dir          string
	files        []string
	rate         float64
	size         image.Point
	presentation image.Point
	identity     string
}

// ValidatePath cleans path and rejects ".." components.
func ValidatePath(path string) (string, error) {
	cleaned := filepath.Clean(path)
	for _, part := range strings.Split(filepath.ToSlash(cleaned), "/") {
		if part == ".." {
			return "", ErrDirectoryTraversal
		}
	}
	return cleaned, nil
}

// OpenSequence scans dir for frame images. Only the first frame's header is
// read here; Frame checks every other header when it is decoded.
func OpenSequence(dir string, opts SequenceOptions) (*Sequence, error) {
	logrus.WithFields(logrus.Fields{
		"function": "OpenSequence",
		"dir":      dir,
	}).Debug("Opening frame sequence")

	if err := validateRate(opts.FrameRate); err != nil {
		return nil, err
	}
	dir, err := ValidatePath(dir)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read sequence dir: %w", err)
	}

	seq := &Sequence{
		dir:          dir,
		rate:         opts.FrameRate,
		presentation: opts.PresentationSize,
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve sequence dir: %w", err)
	}
	parts := []string{"sequence", abs, strconv.FormatFloat(opts.FrameRate, 'g', -1, 64)}
	for _, e := range entries {
		if e.IsDir() || !frameExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", e.Name(), err)
		}
		seq.files = append(seq.files, e.Name())
		parts = append(parts, e.Name(), strconv.FormatInt(info.Size(), 10))
	}
	if len(seq.files) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoFrames, dir)
	}
	// os.ReadDir sorts by name already; keep the order explicit.
	sort.Strings(seq.files)

	cfg, err := decodeConfig(filepath.Join(dir, seq.files[0]))
	if err != nil {
		return nil, err
	}
	seq.size = image.Pt(cfg.Width, cfg.Height)
	if err := ValidateFrameSize(seq.size); err != nil {
		return nil, fmt.Errorf("%s: %w", seq.files[0], err)
	}
	seq.identity = Fingerprint(parts...)

	logrus.WithFields(logrus.Fields{
		"function": "OpenSequence",
		"dir":      dir,
		"frames":   len(seq.files),
		"width":    cfg.Width,
		"height":   cfg.Height,
	}).Info("Frame sequence opened")

	return seq, nil
}

func decodeConfig(path string) (image.Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return image.Config{}, fmt.Errorf("open frame: %w", err)
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return image.Config{}, fmt.Errorf("decode header %s: %w", filepath.Base(path), err)
	}
	return cfg, nil
}

func (s *Sequence) Identity() string        { return s.identity }
func (s *Sequence) FrameRate() float64      { return s.rate }
func (s *Sequence) FrameCount() int         { return len(s.files) }
func (s *Sequence) Size() image.Point       { return s.size }
func (s *Sequence) Duration() time.Duration { return durationOf(len(s.files), s.rate) }

// Dir returns the cleaned directory path.
func (s *Sequence) Dir() string { return s.dir }

// Frame decodes frame index. The header is checked against the frame limits
// before any pixel data is read.
func (s *Sequence) Frame(index int) (video.SourceFrame, error) {
	if index < 0 || index >= len(s.files) {
		return video.SourceFrame{}, fmt.Errorf("%w: %d of %d", ErrFrameOutOfRange, index, len(s.files))
	}

	f, err := os.Open(filepath.Join(s.dir, s.files[index]))
	if err != nil {
		return video.SourceFrame{}, fmt.Errorf("open frame %d: %w", index, err)
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return video.SourceFrame{}, fmt.Errorf("decode header %d (%s): %w", index, s.files[index], err)
	}
	if err := ValidateFrameSize(image.Pt(cfg.Width, cfg.Height)); err != nil {
		return video.SourceFrame{}, fmt.Errorf("frame %d (%s): %w", index, s.files[index], err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return video.SourceFrame{}, fmt.Errorf("rewind frame %d: %w", index, err)
	}

	img, _, err := image.Decode(f)
	if err != nil {
		return video.SourceFrame{}, fmt.Errorf("decode frame %d (%s): %w", index, s.files[index], err)
	}

	return video.SourceFrame{
		Image:            img,
		PresentationSize: s.presentation,
		Timestamp:        FrameTimestamp(index, s.rate),
		Index:            index,
	}, nil
}
