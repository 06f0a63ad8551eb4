package config

const (
	defaultSourceDir         = "sequence"
	defaultCacheDir          = "segments"
	defaultOutput            = "slideshow.mp4"
	defaultLogDir            = "~/.local/share/slidecast/logs"
	defaultCanvasWidth       = 1920
	defaultCanvasHeight      = 1080
	defaultFPS               = 30
	defaultDurationImage     = 2.0
	defaultDurationOverlay   = 6.0
	defaultDurationText      = 6.0
	defaultWorkers           = 2
	defaultTitleFontSize     = 72
	defaultBodyFontSize      = 56
	defaultIndentWidth       = 48
	defaultLineSpacing       = 18
	defaultCrossfadeSeconds  = 1.0
	defaultPollInterval      = 2
	defaultRebuildsPerMinute = 12
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			SourceDir: defaultSourceDir,
			CacheDir:  defaultCacheDir,
			Output:    defaultOutput,
			LogDir:    defaultLogDir,
		},
		Render: Render{
			CanvasWidth:     defaultCanvasWidth,
			CanvasHeight:    defaultCanvasHeight,
			FPS:             defaultFPS,
			DurationImage:   defaultDurationImage,
			DurationOverlay: defaultDurationOverlay,
			DurationText:    defaultDurationText,
			Workers:         defaultWorkers,
			ChunkIndex:      1,
		},
		Text: Text{
			TitleFontSize: defaultTitleFontSize,
			BodyFontSize:  defaultBodyFontSize,
			IndentWidth:   defaultIndentWidth,
			LineSpacing:   defaultLineSpacing,
		},
		Audio: Audio{
			CrossfadeSeconds: defaultCrossfadeSeconds,
		},
		Watch: Watch{
			PollInterval:      defaultPollInterval,
			RebuildsPerMinute: defaultRebuildsPerMinute,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
