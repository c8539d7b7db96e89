package config

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/alphavideo/player"
	"github.com/opd-ai/alphavideo/video"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePlayback(); err != nil {
		return err
	}
	if err := c.validateComposition(); err != nil {
		return err
	}
	if err := c.validateRender(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePlayback() error {
	p := c.Playback
	if _, err := player.ParseRepeatMode(p.Repeat); err != nil {
		return fmt.Errorf("playback.repeat: %w", err)
	}
	if p.StartSeconds < 0 {
		return errors.New("playback.start_seconds must not be negative")
	}
	if p.EndSeconds < 0 {
		return errors.New("playback.end_seconds must not be negative")
	}
	if p.EndSeconds != 0 && p.EndSeconds <= p.StartSeconds {
		return errors.New("playback.end_seconds must be greater than start_seconds")
	}
	if p.Loops < 1 {
		return errors.New("playback.loops must be at least 1")
	}
	if p.PauseAt > 1 {
		return errors.New("playback.pause_at must be at most 1 (negative disables)")
	}
	if p.Rate <= 0 || p.Rate > maxPlaybackRate {
		return fmt.Errorf("playback.rate must be in (0, %g]", maxPlaybackRate)
	}
	if p.MaxSeekRetries < 0 {
		return errors.New("playback.max_seek_retries must not be negative")
	}
	return nil
}

func (c *Config) validateComposition() error {
	comp := c.Composition
	if _, err := video.ParseTint(comp.Tint); err != nil {
		return fmt.Errorf("composition.tint: %w", err)
	}
	if _, err := video.ParseLuminanceMode(comp.Luminance); err != nil {
		return fmt.Errorf("composition.luminance: %w", err)
	}
	if _, err := video.ParseInterpolation(comp.Interpolation); err != nil {
		return fmt.Errorf("composition.interpolation: %w", err)
	}
	if comp.Brightness < -maxBrightness || comp.Brightness > maxBrightness {
		return fmt.Errorf("composition.brightness must be within ±%d", maxBrightness)
	}
	if comp.Contrast < 0 || comp.Contrast > maxContrast {
		return fmt.Errorf("composition.contrast must be within [0, %g]", maxContrast)
	}
	return nil
}

func (c *Config) validateRender() error {
	r := c.Render
	if r.FrameRate <= 0 {
		return errors.New("render.frame_rate must be positive")
	}
	if r.QueueSize < 1 {
		return errors.New("render.queue_size must be at least 1")
	}
	if r.Workers < 1 {
		return errors.New("render.workers must be at least 1")
	}
	if r.Speed < 0 {
		return errors.New("render.speed must not be negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	if _, err := logrus.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	switch c.Logging.Format {
	case "text", "json":
		return nil
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}
}
