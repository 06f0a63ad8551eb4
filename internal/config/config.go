package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	SourceDir string `toml:"source_dir"`
	CacheDir  string `toml:"cache_dir"`
	Output    string `toml:"output"`
	LogDir    string `toml:"log_dir"`
}

// Render contains canvas and timing settings for segment rendering.
type Render struct {
	CanvasWidth     int     `toml:"canvas_width"`
	CanvasHeight    int     `toml:"canvas_height"`
	FPS             int     `toml:"fps"`
	DurationImage   float64 `toml:"duration_image"`
	DurationOverlay float64 `toml:"duration_overlay"`
	DurationText    float64 `toml:"duration_text"`
	MaxVideoSeconds float64 `toml:"max_video_seconds"`
	Workers         int     `toml:"workers"`
	ChunkSize       int     `toml:"chunk_size"`
	ChunkIndex      int     `toml:"chunk_index"`
	LabelYear       bool    `toml:"label_year"`
	DebugFilename   bool    `toml:"debug_filename"`
}

// Text contains overlay typography settings.
type Text struct {
	TitleFontSize    int    `toml:"title_font_size"`
	BodyFontSize     int    `toml:"body_font_size"`
	LabelFont        string `toml:"label_font"`
	IndentWidth      int    `toml:"indent_width"`
	LineSpacing      int    `toml:"line_spacing"`
	StrictDirectives bool   `toml:"strict_directives"`
}

// Audio contains soundtrack and crossfade settings.
type Audio struct {
	Tracks           []string `toml:"tracks"`
	CrossfadeSeconds float64  `toml:"crossfade_seconds"`
}

// Watch contains settings for the incremental watch loop.
type Watch struct {
	PollInterval      int `toml:"poll_interval"`
	RebuildsPerMinute int `toml:"rebuilds_per_minute"`
}

// Logging contains log output settings.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for slidecast.
//
// Sections by subsystem:
//   - Paths: source directory, segment cache, output file, logs
//   - Render: canvas size, frame rate, per-kind slide durations, workers
//   - Text: overlay fonts and layout metrics
//   - Audio: global soundtrack files and cue crossfade window
//   - Watch: change polling and rebuild throttling
//   - Logging: log format and level
type Config struct {
	Paths   Paths   `toml:"paths"`
	Render  Render  `toml:"render"`
	Text    Text    `toml:"text"`
	Audio   Audio   `toml:"audio"`
	Watch   Watch   `toml:"watch"`
	Logging Logging `toml:"logging"`
}

// DefaultConfigPath returns the absolute path of the default config location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/slidecast/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. Unrecognized keys in
// the file are ignored.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("slidecast.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates the cache, log, and output directories.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.CacheDir, c.Paths.LogDir}
	if c.Paths.Output != "" {
		dirs = append(dirs, filepath.Dir(c.Paths.Output))
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable name.
func (c *Config) FFmpegBinary() string { return "ffmpeg" }

// FFprobeBinary returns the ffprobe executable name.
func (c *Config) FFprobeBinary() string { return "ffprobe" }

// RenderVersion returns a deterministic fingerprint of every setting that
// affects rendered pixels. It participates in segment cache keys so config
// edits invalidate exactly the artifacts they change.
func (c *Config) RenderVersion() string {
	return fmt.Sprintf("v1:%dx%d@%d:i%.3f:o%.3f:t%.3f:max%.3f:tf%d:bf%d:iw%d:ls%d:font=%s:year=%t:dbg=%t",
		c.Render.CanvasWidth, c.Render.CanvasHeight, c.Render.FPS,
		c.Render.DurationImage, c.Render.DurationOverlay, c.Render.DurationText,
		c.Render.MaxVideoSeconds,
		c.Text.TitleFontSize, c.Text.BodyFontSize, c.Text.IndentWidth, c.Text.LineSpacing,
		c.Text.LabelFont, c.Render.LabelYear, c.Render.DebugFilename,
	)
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
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
