package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	var err error
	if c.Paths.SourceDir, err = expandPath(c.Paths.SourceDir); err != nil {
		return err
	}
	if c.Paths.CacheDir, err = expandPath(c.Paths.CacheDir); err != nil {
		return err
	}
	if c.Paths.Output, err = expandPath(c.Paths.Output); err != nil {
		return err
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return err
	}

	if !strings.Contains(c.Paths.Output, ".") {
		c.Paths.Output += ".mp4"
	}

	if font := strings.TrimSpace(c.Text.LabelFont); font != "" {
		expanded, err := expandPath(font)
		if err != nil {
			return err
		}
		c.Text.LabelFont = expanded
	}

	tracks := make([]string, 0, len(c.Audio.Tracks))
	for _, track := range c.Audio.Tracks {
		trimmed := strings.TrimSpace(track)
		if trimmed == "" {
			continue
		}
		expanded, err := expandPath(trimmed)
		if err != nil {
			return err
		}
		tracks = append(tracks, expanded)
	}
	c.Audio.Tracks = tracks

	return nil
}

// Validate checks configuration invariants that would otherwise surface as
// confusing failures deep inside a render.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Paths.SourceDir) == "" {
		return fmt.Errorf("paths.source_dir must be set")
	}
	if strings.TrimSpace(c.Paths.CacheDir) == "" {
		return fmt.Errorf("paths.cache_dir must be set")
	}
	if c.Render.CanvasWidth <= 0 || c.Render.CanvasHeight <= 0 {
		return fmt.Errorf("render.canvas_width and render.canvas_height must be positive")
	}
	if c.Render.FPS <= 0 {
		return fmt.Errorf("render.fps must be positive")
	}
	for name, value := range map[string]float64{
		"render.duration_image":   c.Render.DurationImage,
		"render.duration_overlay": c.Render.DurationOverlay,
		"render.duration_text":    c.Render.DurationText,
	} {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	if c.Render.MaxVideoSeconds < 0 {
		return fmt.Errorf("render.max_video_seconds must not be negative")
	}
	if c.Render.Workers <= 0 {
		return fmt.Errorf("render.workers must be positive")
	}
	if c.Render.ChunkSize < 0 {
		return fmt.Errorf("render.chunk_size must not be negative")
	}
	if c.Render.ChunkIndex < 0 {
		return fmt.Errorf("render.chunk_index must not be negative (zero assembles every chunk)")
	}
	if c.Audio.CrossfadeSeconds < 0 {
		return fmt.Errorf("audio.crossfade_seconds must not be negative")
	}
	if c.Watch.PollInterval <= 0 {
		return fmt.Errorf("watch.poll_interval must be positive")
	}
	if c.Watch.RebuildsPerMinute <= 0 {
		return fmt.Errorf("watch.rebuilds_per_minute must be positive")
	}
	if font := strings.TrimSpace(c.Text.LabelFont); font != "" {
		if info, err := os.Stat(font); err != nil || info.IsDir() {
			return fmt.Errorf("text.label_font %q is not a readable file", font)
		}
	}
	return nil
}
