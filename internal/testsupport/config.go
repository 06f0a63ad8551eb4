// Package testsupport provides shared helpers for package tests: config
// builders seeded with per-test temp directories and source-tree fixtures.
package testsupport

import (
	"path/filepath"
	"testing"

	"slidecast/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.SourceDir = filepath.Join(base, "sequence")
	cfgVal.Paths.CacheDir = filepath.Join(base, "segments")
	cfgVal.Paths.Output = filepath.Join(base, "out", "slideshow.mp4")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Render.Workers = 1

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithWorkers overrides the render worker count on the test config.
func WithWorkers(workers int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Render.Workers = workers
	}
}

// WithChunking enables chunked assembly on the test config. A zero index
// assembles every chunk.
func WithChunking(size, index int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Render.ChunkSize = size
		b.cfg.Render.ChunkIndex = index
	}
}

// WithCrossfade overrides the audio crossfade window on the test config.
func WithCrossfade(seconds float64) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Audio.CrossfadeSeconds = seconds
	}
}
