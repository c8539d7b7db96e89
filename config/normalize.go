package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	c.normalizePlayback()
	c.normalizeComposition()
	if err := c.normalizeRender(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePlayback() {
	c.Playback.Repeat = lower(c.Playback.Repeat)
	if c.Playback.Repeat == "" {
		c.Playback.Repeat = defaultRepeat
	}
	if c.Playback.Rate == 0 {
		c.Playback.Rate = defaultRate
	}
}

func (c *Config) normalizeComposition() {
	c.Composition.Tint = lower(c.Composition.Tint)
	c.Composition.Luminance = lower(c.Composition.Luminance)
	if c.Composition.Luminance == "" {
		c.Composition.Luminance = defaultLuminance
	}
	c.Composition.Interpolation = lower(c.Composition.Interpolation)
	if c.Composition.Interpolation == "" {
		c.Composition.Interpolation = defaultInterpolation
	}
}

func (c *Config) normalizeRender() error {
	if strings.TrimSpace(c.Render.OutputDir) == "" {
		c.Render.OutputDir = defaultOutputDir
	}
	var err error
	if c.Render.OutputDir, err = expandPath(strings.TrimSpace(c.Render.OutputDir)); err != nil {
		return fmt.Errorf("render.output_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Level = lower(c.Logging.Level)
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	c.Logging.Format = lower(c.Logging.Format)
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
}

func lower(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
