package segment

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"slidecast/internal/collage"
	"slidecast/internal/config"
	"slidecast/internal/faults"
	"slidecast/internal/ffmpeg"
	"slidecast/internal/logging"
	"slidecast/internal/media"
	"slidecast/internal/resolve"
)

// Failure records one slide the encoder could not render. Full-batch runs
// collect failures and keep going.
type Failure struct {
	Ordinal int
	Sources []string
	Err     error
}

func (f Failure) String() string {
	return fmt.Sprintf("slide %d (%s): %v", f.Ordinal, strings.Join(f.Sources, ", "), f.Err)
}

// Renderer turns resolved slides into cached segments.
type Renderer struct {
	cfg     *config.Config
	encoder ffmpeg.Encoder
	prober  *ffmpeg.Prober
	logger  *slog.Logger
}

// NewRenderer builds a Renderer over the given encoder and prober.
func NewRenderer(cfg *config.Config, encoder ffmpeg.Encoder, prober *ffmpeg.Prober, logger *slog.Logger) *Renderer {
	return &Renderer{
		cfg:     cfg,
		encoder: encoder,
		prober:  prober,
		logger:  logging.NewComponentLogger(logger, "renderer"),
	}
}

// RenderAll renders every slide, reusing fresh cache entries, bounded by the
// configured worker count. Per-slide encoder failures are collected, not
// fatal; the returned segments cover only the slides that succeeded, in
// ordinal order.
func (r *Renderer) RenderAll(ctx context.Context, slides []resolve.Slide, force bool) ([]Segment, []Failure, error) {
	results := make([]*Segment, len(slides))
	var mu sync.Mutex
	var failures []Failure

	group, groupCtx := errgroup.WithContext(ctx)
	workers := r.cfg.Render.Workers
	if workers < 1 {
		workers = 1
	}
	group.SetLimit(workers)

	for idx := range slides {
		group.Go(func() error {
			rendered, err := r.RenderOne(groupCtx, &slides[idx], force)
			if err != nil {
				if groupCtx.Err() != nil {
					return groupCtx.Err()
				}
				mu.Lock()
				failures = append(failures, Failure{
					Ordinal: slides[idx].Ordinal,
					Sources: slides[idx].SourceNames(),
					Err:     err,
				})
				mu.Unlock()
				r.logger.Error("slide render failed",
					logging.Int(logging.FieldSlide, slides[idx].Ordinal),
					logging.Error(err),
				)
				return nil
			}
			results[idx] = rendered
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, failures, err
	}

	segments := make([]Segment, 0, len(results))
	for _, rendered := range results {
		if rendered != nil {
			segments = append(segments, *rendered)
		}
	}
	sort.Slice(segments, func(i, j int) bool { return segments[i].Ordinal < segments[j].Ordinal })
	sort.Slice(failures, func(i, j int) bool { return failures[i].Ordinal < failures[j].Ordinal })
	return segments, failures, nil
}

// RenderOne renders a single slide, reusing the cache unless force is set.
// The error, when non-nil, propagates directly; single-slide callers see
// encoder failures rather than a partial-success summary.
func (r *Renderer) RenderOne(ctx context.Context, slide *resolve.Slide, force bool) (*Segment, error) {
	key := Key(slide, r.cfg.RenderVersion())
	artifactPath := ArtifactPath(r.cfg.Paths.CacheDir, slide.Ordinal)

	if !force && fresh(artifactPath, key) {
		duration, err := r.segmentDuration(ctx, slide, artifactPath)
		if err != nil {
			// Artifact exists but cannot be read back; treat as corrupt
			// and fall through to a re-render.
			r.logger.Warn("cached segment unreadable; re-rendering",
				logging.Int(logging.FieldSlide, slide.Ordinal),
				logging.Error(faults.Wrap(faults.ErrCacheCorruption, "renderer", "probe cached segment", err)),
			)
		} else {
			r.logger.Debug("segment reused",
				logging.Int(logging.FieldSlide, slide.Ordinal),
				logging.String("key", key[:12]),
			)
			return &Segment{Ordinal: slide.Ordinal, Path: artifactPath, Key: key, Duration: duration, Reused: true}, nil
		}
	}

	temp, err := os.CreateTemp(r.cfg.Paths.CacheDir, fmt.Sprintf("segment_%04d_*.mp4", slide.Ordinal))
	if err != nil {
		return nil, fmt.Errorf("create temporary segment: %w", err)
	}
	tempPath := temp.Name()
	temp.Close()
	defer os.Remove(tempPath)

	if err := r.encode(ctx, slide, tempPath); err != nil {
		return nil, err
	}
	if err := commit(tempPath, artifactPath, key); err != nil {
		return nil, err
	}

	duration, err := r.segmentDuration(ctx, slide, artifactPath)
	if err != nil {
		return nil, faults.Wrap(faults.ErrEncoding, "renderer", "probe rendered segment", err)
	}

	r.logger.Info("segment rendered",
		logging.Int(logging.FieldSlide, slide.Ordinal),
		logging.String("kind", string(slide.Kind)),
		logging.Float64("duration", duration),
	)
	return &Segment{Ordinal: slide.Ordinal, Path: artifactPath, Key: key, Duration: duration}, nil
}

func (r *Renderer) encode(ctx context.Context, slide *resolve.Slide, output string) error {
	switch {
	case slide.Kind == media.KindText:
		return r.encoder.EncodeTextCard(ctx, ffmpeg.CardSpec{
			Output:    output,
			Overlay:   slide.Overlay,
			Duration:  slide.Duration,
			DebugText: r.debugText(slide),
		})
	case slide.Kind == media.KindVideo:
		return r.encoder.EncodeClip(ctx, ffmpeg.ClipSpec{
			Source:      slide.Members[0].Path,
			Output:      output,
			MaxSeconds:  r.cfg.Render.MaxVideoSeconds,
			OverlayText: r.overlayText(slide),
			LabelText:   r.labelText(slide),
			DebugText:   r.debugText(slide),
		})
	case slide.IsCollage():
		return r.encodeCollage(ctx, slide, output)
	default:
		return r.encoder.EncodeStill(ctx, r.stillSpec(slide, slide.Members[0].Path, output))
	}
}

// encodeCollage composes the member grid into a temporary frame, then
// encodes that frame as a still.
func (r *Renderer) encodeCollage(ctx context.Context, slide *resolve.Slide, output string) error {
	orientations := make([]collage.Orientation, 0, len(slide.Members))
	for _, member := range slide.Members {
		width, height, err := r.prober.Dimensions(ctx, member.Path)
		if err != nil {
			orientations = append(orientations, collage.Unknown)
			continue
		}
		orientations = append(orientations, collage.Classify(width, height))
	}

	plan, err := collage.PlanGrid(len(slide.Members), r.cfg.Render.CanvasWidth, r.cfg.Render.CanvasHeight, orientations)
	if err != nil {
		return faults.Wrap(faults.ErrEncoding, "renderer", "plan collage", err)
	}

	composite := filepath.Join(r.cfg.Paths.CacheDir, fmt.Sprintf("collage_%04d.png", slide.Ordinal))
	defer os.Remove(composite)

	sources := make([]string, 0, len(slide.Members))
	for _, member := range slide.Members {
		sources = append(sources, member.Path)
	}
	if err := r.encoder.ComposeCollage(ctx, ffmpeg.CollageSpec{Sources: sources, Output: composite, Plan: plan}); err != nil {
		return err
	}
	return r.encoder.EncodeStill(ctx, r.stillSpec(slide, composite, output))
}

func (r *Renderer) stillSpec(slide *resolve.Slide, source, output string) ffmpeg.StillSpec {
	return ffmpeg.StillSpec{
		Source:      source,
		Output:      output,
		Duration:    slide.Duration,
		OverlayText: r.overlayText(slide),
		LabelText:   r.labelText(slide),
		DebugText:   r.debugText(slide),
	}
}

func (r *Renderer) overlayText(slide *resolve.Slide) string {
	if slide.Overlay == nil {
		return ""
	}
	return slide.Overlay.FlatText()
}

func (r *Renderer) labelText(slide *resolve.Slide) string {
	if !r.cfg.Render.LabelYear {
		return ""
	}
	return slide.YearLabel
}

func (r *Renderer) debugText(slide *resolve.Slide) string {
	if !r.cfg.Render.DebugFilename {
		return ""
	}
	return slide.Members[0].Name()
}

// segmentDuration returns the slide's timeline duration: the resolved value
// for stills and cards, the probed artifact duration for videos.
func (r *Renderer) segmentDuration(ctx context.Context, slide *resolve.Slide, artifactPath string) (float64, error) {
	if slide.Kind != media.KindVideo {
		return slide.Duration, nil
	}
	return r.prober.Duration(ctx, artifactPath)
}
