package config

const (
	defaultRepeat         = "once"
	defaultRate           = 1.0
	defaultLoops          = 1
	defaultPauseAt        = -1.0
	defaultLuminance      = "red"
	defaultInterpolation  = "bilinear"
	defaultContrast       = 1.0
	defaultOutputDir      = "frames_out"
	defaultFrameRate      = 30.0
	defaultQueueSize      = 8
	defaultWorkers        = 2
	defaultLogLevel       = "info"
	defaultLogFormat      = "text"
	maxBrightness         = 255
	maxContrast           = 3.0
	maxPlaybackRate       = 16.0
	defaultMaxSeekRetries = 0
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Playback: Playback{
			Transparent:    true,
			Repeat:         defaultRepeat,
			AutoPlay:       true,
			Loops:          defaultLoops,
			PauseAt:        defaultPauseAt,
			Rate:           defaultRate,
			MaxSeekRetries: defaultMaxSeekRetries,
		},
		Composition: Composition{
			Luminance:     defaultLuminance,
			Interpolation: defaultInterpolation,
			Contrast:      defaultContrast,
		},
		Render: Render{
			OutputDir: defaultOutputDir,
			FrameRate: defaultFrameRate,
			QueueSize: defaultQueueSize,
			Workers:   defaultWorkers,
		},
		Logging: Logging{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
	}
}
