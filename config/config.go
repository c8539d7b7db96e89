// Package config loads alphaplay settings from TOML.
//
// Values are resolved in three passes: Default supplies every field, the
// file (if present) overrides them, then normalize tidies strings and paths
// before Validate checks ranges and enum names.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/sirupsen/logrus"

	"github.com/opd-ai/alphavideo/player"
	"github.com/opd-ai/alphavideo/video"
)

// DefaultPath is the file Load reads when no path is given.
const DefaultPath = "alphaplay.toml"

// Playback contains controller settings.
type Playback struct {
	Transparent    bool    `toml:"transparent"`
	Repeat         string  `toml:"repeat"`
	AutoPlay       bool    `toml:"auto_play"`
	StartSeconds   float64 `toml:"start_seconds"`
	EndSeconds     float64 `toml:"end_seconds"` // 0 plays to the end of the asset
	Loops          int     `toml:"loops"`       // loop restarts before a render stops
	PauseAt        float64 `toml:"pause_at"`    // negative disables
	Rate           float64 `toml:"rate"`
	MaxSeekRetries int     `toml:"max_seek_retries"`
}

// Composition contains per-frame processing settings.
type Composition struct {
	Tint          string  `toml:"tint"`
	Luminance     string  `toml:"luminance"`
	Interpolation string  `toml:"interpolation"`
	Brightness    int     `toml:"brightness"`
	Contrast      float64 `toml:"contrast"`
	Grayscale     bool    `toml:"grayscale"`
}

// Render contains offline render settings.
type Render struct {
	OutputDir string  `toml:"output_dir"`
	FrameRate float64 `toml:"frame_rate"`
	QueueSize int     `toml:"queue_size"`
	Workers   int     `toml:"workers"`
	Speed     float64 `toml:"speed"` // 0 renders as fast as possible
}

// Logging contains configuration for log output.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Config encapsulates all configuration values for alphaplay.
type Config struct {
	Playback    Playback    `toml:"playback"`
	Composition Composition `toml:"composition"`
	Render      Render      `toml:"render"`
	Logging     Logging     `toml:"logging"`
}

// Load parses the file at path over the defaults, then normalizes and
// validates the result. A missing file is not an error; exists reports
// whether one was read.
func Load(path string) (cfg *Config, exists bool, err error) {
	c := Default()
	if path == "" {
		path = DefaultPath
	}

	file, err := os.Open(path)
	switch {
	case err == nil:
		defer file.Close()
		decoder := toml.NewDecoder(file).DisallowUnknownFields()
		if err := decoder.Decode(&c); err != nil {
			return nil, false, fmt.Errorf("parse config: %w", err)
		}
		exists = true
	case errors.Is(err, fs.ErrNotExist):
		logrus.WithFields(logrus.Fields{
			"function": "config.Load",
			"path":     path,
		}).Debug("Config file not found, using defaults")
	default:
		return nil, false, fmt.Errorf("open config: %w", err)
	}

	if err := c.normalize(); err != nil {
		return nil, false, err
	}
	if err := c.Validate(); err != nil {
		return nil, false, err
	}
	return &c, exists, nil
}

// Encode writes c as TOML.
func (c *Config) Encode(w io.Writer) error {
	if err := toml.NewEncoder(w).Encode(c); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return nil
}

// WriteSample writes the default configuration to path.
func WriteSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	defer f.Close()

	cfg := Default()
	return cfg.Encode(f)
}

// RepeatMode returns the parsed playback.repeat value.
func (c *Config) RepeatMode() player.RepeatMode {
	mode, _ := player.ParseRepeatMode(c.Playback.Repeat)
	return mode
}

// Segment returns the configured play range. A zero end means the asset
// duration.
func (c *Config) Segment() (start, end time.Duration) {
	return seconds(c.Playback.StartSeconds), seconds(c.Playback.EndSeconds)
}

// Tint returns the parsed composition.tint, or nil when unset.
func (c *Config) Tint() (*video.Tint, error) {
	return video.ParseTint(c.Composition.Tint)
}

// PipelineSettings builds composition settings from the config.
func (c *Config) PipelineSettings() (video.Settings, error) {
	tint, err := c.Tint()
	if err != nil {
		return video.Settings{}, fmt.Errorf("composition.tint: %w", err)
	}
	lum, err := video.ParseLuminanceMode(c.Composition.Luminance)
	if err != nil {
		return video.Settings{}, fmt.Errorf("composition.luminance: %w", err)
	}
	interp, err := video.ParseInterpolation(c.Composition.Interpolation)
	if err != nil {
		return video.Settings{}, fmt.Errorf("composition.interpolation: %w", err)
	}

	settings := video.Settings{Tint: tint, Luminance: lum, Interpolation: interp}
	if c.Composition.Brightness != 0 {
		settings.Effects = append(settings.Effects, video.Brightness(c.Composition.Brightness))
	}
	if c.Composition.Contrast != 1 {
		settings.Effects = append(settings.Effects, video.Contrast(c.Composition.Contrast))
	}
	if c.Composition.Grayscale {
		settings.Effects = append(settings.Effects, video.Grayscale{})
	}
	return settings, nil
}

// PlayerOptions returns controller options bound to pipeline.
func (c *Config) PlayerOptions(pipeline *video.Pipeline) player.Options {
	return player.Options{
		Rate:           c.Playback.Rate,
		MaxSeekRetries: c.Playback.MaxSeekRetries,
		Pipeline:       pipeline,
	}
}

// LogLevel returns the parsed logging.level.
func (c *Config) LogLevel() logrus.Level {
	level, err := logrus.ParseLevel(c.Logging.Level)
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	return filepath.Clean(pathValue), nil
}
