// Package assemble concatenates rendered segments into the final outputs:
// a video-only file, an optional audio track, and a muxed result. Outputs
// are versioned rather than overwritten, and a chunked mode slices the
// segment list into fixed windows assembled independently.
package assemble

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"slidecast/internal/config"
	"slidecast/internal/faults"
	"slidecast/internal/ffmpeg"
	"slidecast/internal/logging"
	"slidecast/internal/resolve"
	"slidecast/internal/segment"
	"slidecast/internal/timeline"
)

// Result describes one assembled output.
type Result struct {
	// Chunk is the 1-based chunk number, or zero for an unchunked run.
	Chunk     int
	VideoPath string
	// AudioPath is empty when the window had no cues and no global tracks.
	AudioPath string
	FinalPath string
	Segments  int
	Duration  float64
}

// Assembler builds final outputs from cached segments.
type Assembler struct {
	cfg     *config.Config
	encoder ffmpeg.Encoder
	prober  *ffmpeg.Prober
	logger  *slog.Logger
}

// NewAssembler builds an Assembler over the given encoder and prober.
func NewAssembler(cfg *config.Config, encoder ffmpeg.Encoder, prober *ffmpeg.Prober, logger *slog.Logger) *Assembler {
	return &Assembler{
		cfg:     cfg,
		encoder: encoder,
		prober:  prober,
		logger:  logging.NewComponentLogger(logger, "assembler"),
	}
}

// Assemble produces one output per chunk window, or a single output when
// chunking is disabled. Any failure here is fatal for the run; segments
// already cached stay valid for the next attempt.
func (a *Assembler) Assemble(ctx context.Context, slides []resolve.Slide, segments []segment.Segment) ([]Result, error) {
	if len(segments) == 0 {
		return nil, faults.Wrap(faults.ErrAssembly, "assembler", "no segments to assemble", nil)
	}

	windows := chunkWindows(segments, a.cfg.Render.ChunkSize, a.cfg.Render.ChunkIndex)
	results := make([]Result, 0, len(windows))
	for _, window := range windows {
		result, err := a.assembleWindow(ctx, slides, window.segments, window.chunk)
		if err != nil {
			return results, err
		}
		results = append(results, result)
	}
	return results, nil
}

type window struct {
	chunk    int
	segments []segment.Segment
}

// chunkWindows slices segments into fixed-size windows. A zero size yields
// one unchunked window; a positive index selects a single window.
func chunkWindows(segments []segment.Segment, size, index int) []window {
	if size <= 0 {
		return []window{{segments: segments}}
	}
	var windows []window
	for start := 0; start < len(segments); start += size {
		end := min(start+size, len(segments))
		windows = append(windows, window{chunk: len(windows) + 1, segments: segments[start:end]})
	}
	if index > 0 {
		if index > len(windows) {
			return nil
		}
		return windows[index-1 : index]
	}
	return windows
}

func (a *Assembler) assembleWindow(ctx context.Context, slides []resolve.Slide, segments []segment.Segment, chunk int) (Result, error) {
	finalPath := nextVersionedPath(outputBase(a.cfg.Paths.Output, chunk))
	videoPath := derivedPath(finalPath, "video", ".mp4")

	listPath := filepath.Join(a.cfg.Paths.CacheDir, "concat.txt")
	if err := writeConcatList(listPath, segments); err != nil {
		return Result{}, faults.Wrap(faults.ErrAssembly, "assembler", "write concat list", err)
	}
	defer os.Remove(listPath)

	if err := a.encoder.Concat(ctx, listPath, videoPath); err != nil {
		return Result{}, faults.Wrap(faults.ErrAssembly, "assembler", "concatenate segments", err)
	}
	duration := timeline.TotalDuration(segments)

	entries, err := a.audioEntries(ctx, slides, segments)
	if err != nil {
		return Result{}, err
	}
	result := Result{
		Chunk:     chunk,
		VideoPath: videoPath,
		FinalPath: finalPath,
		Segments:  len(segments),
		Duration:  duration,
	}

	if len(entries) == 0 {
		if err := os.Rename(videoPath, finalPath); err != nil {
			return Result{}, faults.Wrap(faults.ErrAssembly, "assembler", "install video output", err)
		}
		result.VideoPath = finalPath
		a.logger.Info("output assembled",
			logging.String("output", finalPath),
			logging.Int("segments", len(segments)),
			logging.Float64("duration", duration),
		)
		return result, nil
	}

	audioPath := derivedPath(finalPath, "audio", ".mp3")
	if err := a.encoder.RenderAudioMix(ctx, timeline.Spans(entries), audioPath, duration); err != nil {
		return Result{}, faults.Wrap(faults.ErrAssembly, "assembler", "render audio track", err)
	}
	if err := a.encoder.Mux(ctx, videoPath, audioPath, finalPath); err != nil {
		return Result{}, faults.Wrap(faults.ErrAssembly, "assembler", "mux output", err)
	}
	result.AudioPath = audioPath

	a.logger.Info("output assembled",
		logging.String("output", finalPath),
		logging.Int("segments", len(segments)),
		logging.Float64("duration", duration),
		logging.Bool("audio", true),
	)
	return result, nil
}

// audioEntries builds the window's audio timeline: per-slide cues when any
// exist, else the configured global tracks, else nothing.
func (a *Assembler) audioEntries(ctx context.Context, slides []resolve.Slide, segments []segment.Segment) ([]timeline.Entry, error) {
	if entries := timeline.FromCues(slides, segments, a.cfg.Audio.CrossfadeSeconds); len(entries) > 0 {
		return entries, nil
	}

	tracks := make([]string, 0, len(a.cfg.Audio.Tracks))
	for _, track := range a.cfg.Audio.Tracks {
		if _, err := os.Stat(track); err != nil {
			a.logger.Warn("audio track missing; skipping", logging.String("track", track))
			continue
		}
		tracks = append(tracks, track)
	}
	if len(tracks) == 0 {
		return nil, nil
	}

	entries, err := timeline.FromTracks(ctx, a.prober, tracks)
	if err != nil {
		return nil, faults.Wrap(faults.ErrAssembly, "assembler", "probe audio tracks", err)
	}
	return entries, nil
}

func writeConcatList(listPath string, segments []segment.Segment) error {
	var builder strings.Builder
	for _, seg := range segments {
		fmt.Fprintf(&builder, "file '%s'\n", filepath.ToSlash(seg.Path))
	}
	return os.WriteFile(listPath, []byte(builder.String()), 0o644)
}

// outputBase appends the chunk suffix to the configured output name:
// slideshow.mp4 with chunk 2 becomes slideshow-c2.mp4.
func outputBase(output string, chunk int) string {
	if chunk == 0 {
		return output
	}
	ext := filepath.Ext(output)
	return strings.TrimSuffix(output, ext) + "-c" + strconv.Itoa(chunk) + ext
}

// derivedPath inserts a role marker before the extension, replacing it:
// slideshow-001.mp4 with role "audio" becomes slideshow-001.audio.mp3.
func derivedPath(finalPath, role, ext string) string {
	base := strings.TrimSuffix(finalPath, filepath.Ext(finalPath))
	return base + "." + role + ext
}

// nextVersionedPath picks the next free slideshow-NNN.mp4 style name next
// to base, scanning existing versions so reruns never overwrite output.
func nextVersionedPath(base string) string {
	dir := filepath.Dir(base)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(filepath.Base(base), ext)

	pattern := regexp.MustCompile("^" + regexp.QuoteMeta(stem) + `-(\d+)` + regexp.QuoteMeta(ext) + "$")
	maxIndex := 0
	if matches, err := filepath.Glob(filepath.Join(dir, stem+"-*"+ext)); err == nil {
		for _, candidate := range matches {
			if match := pattern.FindStringSubmatch(filepath.Base(candidate)); match != nil {
				if value, err := strconv.Atoi(match[1]); err == nil && value > maxIndex {
					maxIndex = value
				}
			}
		}
	}
	return filepath.Join(dir, fmt.Sprintf("%s-%03d%s", stem, maxIndex+1, ext))
}
