package ffmpeg

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"slidecast/internal/collage"
	"slidecast/internal/config"
	"slidecast/internal/overlay"
)

// StillSpec describes one still-image segment render.
type StillSpec struct {
	Source      string
	Output      string
	Duration    float64
	OverlayText string
	LabelText   string
	DebugText   string
}

// ClipSpec describes one video segment render. MaxSeconds of zero means no
// trimming.
type ClipSpec struct {
	Source      string
	Output      string
	MaxSeconds  float64
	OverlayText string
	LabelText   string
	DebugText   string
}

// CardSpec describes one standalone text card render.
type CardSpec struct {
	Output    string
	Overlay   *overlay.Overlay
	Duration  float64
	DebugText string
}

// CollageSpec describes one composite frame built from multiple images.
type CollageSpec struct {
	Sources []string
	Output  string
	Plan    collage.Plan
}

// AudioSpan is one placed cue in the rendered audio mix. Start and Duration
// are seconds on the final timeline; fades are applied inside the span.
type AudioSpan struct {
	Path     string
	Start    float64
	Duration float64
	FadeIn   float64
	FadeOut  float64
}

// Encoder is the external rendering capability. Every method maps a
// descriptor to an artifact on disk or a failure; the pipeline owns all
// sequencing and caching decisions.
type Encoder interface {
	EncodeStill(ctx context.Context, spec StillSpec) error
	EncodeClip(ctx context.Context, spec ClipSpec) error
	EncodeTextCard(ctx context.Context, spec CardSpec) error
	ComposeCollage(ctx context.Context, spec CollageSpec) error
	Concat(ctx context.Context, listPath, output string) error
	RenderAudioMix(ctx context.Context, spans []AudioSpan, output string, targetDuration float64) error
	Mux(ctx context.Context, video, audio, output string) error
}

// Transcoder implements Encoder by shelling out to ffmpeg.
type Transcoder struct {
	runner Runner
	cfg    *config.Config
}

// NewTranscoder builds a Transcoder bound to the configured canvas and
// typography settings.
func NewTranscoder(runner Runner, cfg *config.Config) *Transcoder {
	return &Transcoder{runner: runner, cfg: cfg}
}

func (t *Transcoder) style() textStyle {
	return textStyle{
		fontPath:      t.cfg.Text.LabelFont,
		titleFontSize: t.cfg.Text.TitleFontSize,
		bodyFontSize:  t.cfg.Text.BodyFontSize,
		lineSpacing:   t.cfg.Text.LineSpacing,
		indentWidth:   t.cfg.Text.IndentWidth,
	}
}

// EncodeStill loops a single frame for the requested duration with a silent
// stereo bed so every segment carries an audio stream for concatenation.
func (t *Transcoder) EncodeStill(ctx context.Context, spec StillSpec) error {
	graph, out := buildMediaFilterGraph(
		t.cfg.Render.CanvasWidth, t.cfg.Render.CanvasHeight,
		spec.OverlayText, spec.LabelText, spec.DebugText, t.style(),
	)
	fps := strconv.Itoa(t.cfg.Render.FPS)
	duration := formatSeconds(spec.Duration)

	args := []string{
		"-hide_banner", "-loglevel", "error", "-y",
		"-loop", "1", "-framerate", fps, "-t", duration, "-i", spec.Source,
		"-f", "lavfi", "-t", duration, "-i", "anullsrc=channel_layout=stereo:sample_rate=48000",
		"-shortest",
		"-filter_complex", graph,
		"-map", "[" + out + "]",
		"-map", "1:a:0",
		"-c:v", "libx264", "-pix_fmt", "yuv420p", "-r", fps,
		"-c:a", "aac", "-b:a", "192k",
		"-movflags", "+faststart",
		spec.Output,
	}
	if _, err := t.runner.Run(ctx, t.cfg.FFmpegBinary(), args...); err != nil {
		return wrapEncoding(fmt.Sprintf("encode still %s", spec.Source), err)
	}
	return nil
}

// EncodeClip re-encodes a video onto the pipeline canvas, preserving its
// own audio when present and trimming to MaxSeconds when set.
func (t *Transcoder) EncodeClip(ctx context.Context, spec ClipSpec) error {
	graph, out := buildMediaFilterGraph(
		t.cfg.Render.CanvasWidth, t.cfg.Render.CanvasHeight,
		spec.OverlayText, spec.LabelText, spec.DebugText, t.style(),
	)

	args := []string{"-hide_banner", "-loglevel", "error", "-y"}
	if spec.MaxSeconds > 0 {
		args = append(args, "-t", formatSeconds(spec.MaxSeconds))
	}
	args = append(args,
		"-i", spec.Source,
		"-filter_complex", graph,
		"-map", "["+out+"]",
		"-map", "0:a?",
		"-r", strconv.Itoa(t.cfg.Render.FPS),
		"-c:v", "libx264", "-pix_fmt", "yuv420p",
		"-c:a", "aac", "-b:a", "192k",
		"-movflags", "+faststart",
		spec.Output,
	)
	if _, err := t.runner.Run(ctx, t.cfg.FFmpegBinary(), args...); err != nil {
		return wrapEncoding(fmt.Sprintf("encode clip %s", spec.Source), err)
	}
	return nil
}

// EncodeTextCard renders a parsed overlay onto a dark card.
func (t *Transcoder) EncodeTextCard(ctx context.Context, spec CardSpec) error {
	graph, out := buildTextFilterGraph(
		t.cfg.Render.CanvasWidth, t.cfg.Render.CanvasHeight,
		spec.Overlay, spec.DebugText, t.style(),
	)
	fps := strconv.Itoa(t.cfg.Render.FPS)
	duration := formatSeconds(spec.Duration)
	base := fmt.Sprintf("color=color=0x101010:size=%dx%d", t.cfg.Render.CanvasWidth, t.cfg.Render.CanvasHeight)

	args := []string{
		"-hide_banner", "-loglevel", "error", "-y",
		"-f", "lavfi", "-t", duration, "-i", base,
		"-f", "lavfi", "-t", duration, "-i", "anullsrc=channel_layout=stereo:sample_rate=48000",
		"-shortest",
		"-filter_complex", graph,
		"-map", "[" + out + "]",
		"-map", "1:a:0",
		"-c:v", "libx264", "-pix_fmt", "yuv420p", "-r", fps,
		"-c:a", "aac", "-b:a", "192k",
		"-movflags", "+faststart",
		spec.Output,
	}
	if _, err := t.runner.Run(ctx, t.cfg.FFmpegBinary(), args...); err != nil {
		return wrapEncoding("encode text card", err)
	}
	return nil
}

// ComposeCollage stacks the member images into a single composite frame.
func (t *Transcoder) ComposeCollage(ctx context.Context, spec CollageSpec) error {
	args := []string{"-hide_banner", "-loglevel", "error", "-y"}
	for _, source := range spec.Sources {
		args = append(args, "-i", source)
	}
	args = append(args,
		"-filter_complex", buildCollageFilterGraph(spec.Plan, len(spec.Sources)),
		"-map", "[out]",
		"-frames:v", "1",
		spec.Output,
	)
	if _, err := t.runner.Run(ctx, t.cfg.FFmpegBinary(), args...); err != nil {
		return wrapEncoding("compose collage", err)
	}
	return nil
}

// Concat joins segments via the concat demuxer, copying streams.
func (t *Transcoder) Concat(ctx context.Context, listPath, output string) error {
	args := []string{
		"-hide_banner", "-loglevel", "error", "-y",
		"-f", "concat", "-safe", "0",
		"-i", listPath,
		"-c", "copy",
		output,
	}
	if _, err := t.runner.Run(ctx, t.cfg.FFmpegBinary(), args...); err != nil {
		return wrapEncoding("concatenate segments", err)
	}
	return nil
}

// RenderAudioMix places each span on the timeline with adelay, applies its
// fades, and sums the result with amix. A positive targetDuration trims the
// mix to the video length with a short tail fade.
func (t *Transcoder) RenderAudioMix(ctx context.Context, spans []AudioSpan, output string, targetDuration float64) error {
	if len(spans) == 0 {
		return wrapEncoding("render audio mix", fmt.Errorf("no audio spans"))
	}

	var args []string
	var parts []string
	var mixInputs []string
	args = append(args, "-hide_banner", "-loglevel", "error")

	input := 0
	for _, span := range spans {
		if span.Duration <= 0 {
			continue
		}
		args = append(args, "-i", span.Path)
		label := fmt.Sprintf("aud%d", input)
		startMS := int(span.Start*1000 + 0.5)
		if startMS < 0 {
			startMS = 0
		}

		expr := fmt.Sprintf("[%d:a]atrim=0:%.6f,asetpts=PTS-STARTPTS", input, span.Duration)
		if span.FadeIn > 0 {
			expr += fmt.Sprintf(",afade=t=in:st=0:d=%.6f", span.FadeIn)
		}
		if span.FadeOut > 0 && span.Duration > span.FadeOut {
			expr += fmt.Sprintf(",afade=t=out:st=%.6f:d=%.6f", span.Duration-span.FadeOut, span.FadeOut)
		}
		expr += fmt.Sprintf(",adelay=%d|%d[%s]", startMS, startMS, label)
		parts = append(parts, expr)
		mixInputs = append(mixInputs, "["+label+"]")
		input++
	}
	if len(parts) == 0 {
		return wrapEncoding("render audio mix", fmt.Errorf("no usable audio spans"))
	}

	parts = append(parts, fmt.Sprintf(
		"%samix=inputs=%d:dropout_transition=0,aformat=sample_fmts=s16:sample_rates=44100:channel_layouts=stereo[mix]",
		strings.Join(mixInputs, ""), len(mixInputs),
	))

	finalLabel := "[mix]"
	if targetDuration > 0 {
		fade := min(1.0, targetDuration/10.0)
		trim := fmt.Sprintf("[mix]atrim=0:%.6f,asetpts=PTS-STARTPTS", targetDuration)
		if fade > 0 {
			trim += fmt.Sprintf(",afade=t=out:st=%.6f:d=%.6f", max(0, targetDuration-fade), fade)
		}
		trim += "[trimmed]"
		parts = append(parts, trim)
		finalLabel = "[trimmed]"
	}

	args = append(args,
		"-filter_complex", strings.Join(parts, ";"),
		"-map", finalLabel,
		"-c:a", "libmp3lame", "-ar", "44100", "-b:a", "192k",
		"-y", output,
	)
	if _, err := t.runner.Run(ctx, t.cfg.FFmpegBinary(), args...); err != nil {
		return wrapEncoding("render audio mix", err)
	}
	return nil
}

// Mux combines the video-only output with the rendered audio track.
func (t *Transcoder) Mux(ctx context.Context, video, audio, output string) error {
	args := []string{
		"-hide_banner", "-loglevel", "error", "-y",
		"-i", video,
		"-i", audio,
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-c:v", "copy",
		"-c:a", "aac",
		"-shortest",
		output,
	}
	if _, err := t.runner.Run(ctx, t.cfg.FFmpegBinary(), args...); err != nil {
		return wrapEncoding("mux video and audio", err)
	}
	return nil
}

func formatSeconds(seconds float64) string {
	return strconv.FormatFloat(seconds, 'f', -1, 64)
}
