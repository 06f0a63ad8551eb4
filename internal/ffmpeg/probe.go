package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Prober answers duration and dimension questions via ffprobe. Results are
// memoized per path+mtime so repeated runs over an unchanged directory probe
// each file once.
type Prober struct {
	runner Runner
	binary string
	memo   *gocache.Cache
}

// NewProber builds a Prober using the given runner and ffprobe binary name.
func NewProber(runner Runner, binary string) *Prober {
	return &Prober{
		runner: runner,
		binary: binary,
		memo:   gocache.New(30*time.Minute, 10*time.Minute),
	}
}

func (p *Prober) cacheKey(path, question string) string {
	mtime := int64(0)
	if info, err := os.Stat(path); err == nil {
		mtime = info.ModTime().UnixNano()
	}
	return fmt.Sprintf("%s:%d:%s", path, mtime, question)
}

// Duration returns the media duration of path in seconds.
func (p *Prober) Duration(ctx context.Context, path string) (float64, error) {
	key := p.cacheKey(path, "duration")
	if cached, ok := p.memo.Get(key); ok {
		return cached.(float64), nil
	}

	out, err := p.runner.Run(ctx, p.binary,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	if err != nil {
		return 0, fmt.Errorf("probe duration of %s: %w", path, err)
	}
	seconds, err := strconv.ParseFloat(strings.TrimSpace(out), 64)
	if err != nil || seconds <= 0 {
		return 0, fmt.Errorf("probe duration of %s: unparseable output %q", path, out)
	}

	p.memo.Set(key, seconds, gocache.DefaultExpiration)
	return seconds, nil
}

// Dimensions returns the pixel width and height of the first video stream.
func (p *Prober) Dimensions(ctx context.Context, path string) (int, int, error) {
	key := p.cacheKey(path, "dimensions")
	if cached, ok := p.memo.Get(key); ok {
		dims := cached.([2]int)
		return dims[0], dims[1], nil
	}

	out, err := p.runner.Run(ctx, p.binary,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height",
		"-of", "csv=s=x:p=0",
		path,
	)
	if err != nil {
		return 0, 0, fmt.Errorf("probe dimensions of %s: %w", path, err)
	}

	parts := strings.Split(strings.TrimSpace(out), "x")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("probe dimensions of %s: unparseable output %q", path, out)
	}
	width, werr := strconv.Atoi(strings.TrimSpace(parts[0]))
	height, herr := strconv.Atoi(strings.TrimSpace(parts[1]))
	if werr != nil || herr != nil || width <= 0 || height <= 0 {
		return 0, 0, fmt.Errorf("probe dimensions of %s: unparseable output %q", path, out)
	}

	p.memo.Set(key, [2]int{width, height}, gocache.DefaultExpiration)
	return width, height, nil
}
