package segment

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"

	"slidecast/internal/config"
	"slidecast/internal/ffmpeg"
	"slidecast/internal/logging"
	"slidecast/internal/resolve"
	"slidecast/internal/testsupport"
)

type fakeRunner struct {
	out string
	err error
}

func (f *fakeRunner) Run(ctx context.Context, binary string, args ...string) (string, error) {
	return f.out, f.err
}

// fakeEncoder writes a small artifact for every render and counts encoder
// invocations.
type fakeEncoder struct {
	mu         sync.Mutex
	stills     int
	clips      int
	cards      int
	collages   int
	failSource string
	lastClip   ffmpeg.ClipSpec
}

func (f *fakeEncoder) bump(counter *int) {
	f.mu.Lock()
	*counter++
	f.mu.Unlock()
}

func (f *fakeEncoder) write(output string) error {
	return os.WriteFile(output, []byte("artifact"), 0o644)
}

func (f *fakeEncoder) EncodeStill(ctx context.Context, spec ffmpeg.StillSpec) error {
	if f.failSource != "" && strings.Contains(spec.Source, f.failSource) {
		return fmt.Errorf("synthetic encoder failure for %s", spec.Source)
	}
	f.bump(&f.stills)
	return f.write(spec.Output)
}

func (f *fakeEncoder) EncodeClip(ctx context.Context, spec ffmpeg.ClipSpec) error {
	f.bump(&f.clips)
	f.mu.Lock()
	f.lastClip = spec
	f.mu.Unlock()
	return f.write(spec.Output)
}

func (f *fakeEncoder) EncodeTextCard(ctx context.Context, spec ffmpeg.CardSpec) error {
	f.bump(&f.cards)
	return f.write(spec.Output)
}

func (f *fakeEncoder) ComposeCollage(ctx context.Context, spec ffmpeg.CollageSpec) error {
	f.bump(&f.collages)
	return f.write(spec.Output)
}

func (f *fakeEncoder) Concat(ctx context.Context, listPath, output string) error {
	return f.write(output)
}

func (f *fakeEncoder) RenderAudioMix(ctx context.Context, spans []ffmpeg.AudioSpan, output string, targetDuration float64) error {
	return f.write(output)
}

func (f *fakeEncoder) Mux(ctx context.Context, video, audio, output string) error {
	return f.write(output)
}

func (f *fakeEncoder) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stills + f.clips + f.cards + f.collages
}

func newTestRenderer(t *testing.T, cfg *config.Config, enc *fakeEncoder) *Renderer {
	t.Helper()
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	prober := ffmpeg.NewProber(&fakeRunner{out: "1.0"}, "ffprobe")
	return NewRenderer(cfg, enc, prober, logging.NewNop())
}

func resolveSlides(t *testing.T, cfg *config.Config, dir string) []resolve.Slide {
	t.Helper()
	slides, err := resolve.Resolve(dir, cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	return slides
}

func TestRenderAllIsIdempotent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	dir := testsupport.SourceDir(t, map[string]string{
		"1978-0001.jpg": "a",
		"1978-0002.jpg": "b",
	})
	cfg.Paths.SourceDir = dir
	enc := &fakeEncoder{}
	renderer := newTestRenderer(t, cfg, enc)

	slides := resolveSlides(t, cfg, dir)
	segments, failures, err := renderer.RenderAll(context.Background(), slides, false)
	if err != nil || len(failures) != 0 {
		t.Fatalf("first render: err=%v failures=%v", err, failures)
	}
	if len(segments) != 2 || enc.totalCalls() != 2 {
		t.Fatalf("first render: %d segments, %d encoder calls", len(segments), enc.totalCalls())
	}

	slides = resolveSlides(t, cfg, dir)
	segments, failures, err = renderer.RenderAll(context.Background(), slides, false)
	if err != nil || len(failures) != 0 {
		t.Fatalf("second render: err=%v failures=%v", err, failures)
	}
	if enc.totalCalls() != 2 {
		t.Fatalf("unchanged source re-invoked the encoder: %d calls", enc.totalCalls())
	}
	for _, seg := range segments {
		if !seg.Reused {
			t.Fatalf("segment %d was not reused", seg.Ordinal)
		}
	}
}

func TestRenderAllInvalidatesSelectively(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	dir := testsupport.SourceDir(t, map[string]string{
		"1978-0001.jpg": "a",
		"1978-0002.jpg": "b",
	})
	enc := &fakeEncoder{}
	renderer := newTestRenderer(t, cfg, enc)

	slides := resolveSlides(t, cfg, dir)
	if _, _, err := renderer.RenderAll(context.Background(), slides, false); err != nil {
		t.Fatalf("initial render: %v", err)
	}

	untouchedKey, err := os.ReadFile(keyPath(ArtifactPath(cfg.Paths.CacheDir, 2)))
	if err != nil {
		t.Fatalf("read key sidecar: %v", err)
	}

	testsupport.TouchLater(t, slides[0].Members[0].Path)
	slides = resolveSlides(t, cfg, dir)
	segments, failures, err := renderer.RenderAll(context.Background(), slides, false)
	if err != nil || len(failures) != 0 {
		t.Fatalf("re-render: err=%v failures=%v", err, failures)
	}

	if enc.totalCalls() != 3 {
		t.Fatalf("expected exactly one re-render, got %d total encoder calls", enc.totalCalls())
	}
	if segments[0].Reused || !segments[1].Reused {
		t.Fatalf("wrong segment re-rendered: %+v", segments)
	}

	afterKey, err := os.ReadFile(keyPath(ArtifactPath(cfg.Paths.CacheDir, 2)))
	if err != nil {
		t.Fatalf("read key sidecar: %v", err)
	}
	if string(untouchedKey) != string(afterKey) {
		t.Fatalf("untouched slide's cache key changed")
	}
}

func TestRenderAllTreatsCorruptArtifactAsMiss(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	dir := testsupport.SourceDir(t, map[string]string{"pic.jpg": "a"})
	enc := &fakeEncoder{}
	renderer := newTestRenderer(t, cfg, enc)

	slides := resolveSlides(t, cfg, dir)
	if _, _, err := renderer.RenderAll(context.Background(), slides, false); err != nil {
		t.Fatalf("initial render: %v", err)
	}

	// Truncate the artifact; the sidecar key still matches.
	if err := os.WriteFile(ArtifactPath(cfg.Paths.CacheDir, 1), nil, 0o644); err != nil {
		t.Fatalf("truncate artifact: %v", err)
	}

	if _, _, err := renderer.RenderAll(context.Background(), slides, false); err != nil {
		t.Fatalf("re-render: %v", err)
	}
	if enc.totalCalls() != 2 {
		t.Fatalf("corrupt artifact should re-render, got %d encoder calls", enc.totalCalls())
	}
}

func TestRenderAllCollectsFailuresAndContinues(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	dir := testsupport.SourceDir(t, map[string]string{
		"1978-0001.jpg": "a",
		"1978-0002.jpg": "b",
		"1978-0003.jpg": "c",
	})
	enc := &fakeEncoder{failSource: "1978-0002"}
	renderer := newTestRenderer(t, cfg, enc)

	slides := resolveSlides(t, cfg, dir)
	segments, failures, err := renderer.RenderAll(context.Background(), slides, false)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if len(segments) != 2 {
		t.Fatalf("segments = %d, want the two healthy slides", len(segments))
	}
	if len(failures) != 1 || failures[0].Ordinal != 2 {
		t.Fatalf("failures = %v, want one for ordinal 2", failures)
	}
	if len(failures[0].Sources) != 1 || failures[0].Sources[0] != "1978-0002.jpg" {
		t.Fatalf("failure sources = %v", failures[0].Sources)
	}
}

func TestRenderOneForceBypassesCache(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	dir := testsupport.SourceDir(t, map[string]string{"pic.jpg": "a"})
	enc := &fakeEncoder{}
	renderer := newTestRenderer(t, cfg, enc)

	slides := resolveSlides(t, cfg, dir)
	if _, err := renderer.RenderOne(context.Background(), &slides[0], false); err != nil {
		t.Fatalf("render: %v", err)
	}
	if _, err := renderer.RenderOne(context.Background(), &slides[0], true); err != nil {
		t.Fatalf("forced render: %v", err)
	}
	if enc.totalCalls() != 2 {
		t.Fatalf("force should bypass the cache, got %d encoder calls", enc.totalCalls())
	}
}

func TestRenderOneDrawsOverlayOnClip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	dir := testsupport.SourceDir(t, map[string]string{
		"clip.mp4": "video",
		"clip.txt": "Remember this day",
	})
	enc := &fakeEncoder{}
	renderer := newTestRenderer(t, cfg, enc)

	slides := resolveSlides(t, cfg, dir)
	if len(slides) != 1 || slides[0].Overlay == nil {
		t.Fatalf("expected one video slide with an attached overlay, got %+v", slides)
	}
	if _, err := renderer.RenderOne(context.Background(), &slides[0], false); err != nil {
		t.Fatalf("render: %v", err)
	}
	if enc.clips != 1 {
		t.Fatalf("encoder clip calls = %d, want 1", enc.clips)
	}
	if !strings.Contains(enc.lastClip.OverlayText, "Remember this day") {
		t.Fatalf("overlay text missing from clip spec: %+v", enc.lastClip)
	}
}

func TestRenderOneSurfacesEncoderFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	dir := testsupport.SourceDir(t, map[string]string{"pic.jpg": "a"})
	enc := &fakeEncoder{failSource: "pic.jpg"}
	renderer := newTestRenderer(t, cfg, enc)

	slides := resolveSlides(t, cfg, dir)
	if _, err := renderer.RenderOne(context.Background(), &slides[0], false); err == nil {
		t.Fatalf("expected encoder failure to propagate")
	}
}

func TestKeyChangesWithRenderConfig(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	dir := testsupport.SourceDir(t, map[string]string{"pic.jpg": "a"})
	slides := resolveSlides(t, cfg, dir)

	before := Key(&slides[0], cfg.RenderVersion())
	cfg.Render.CanvasWidth = 1280
	after := Key(&slides[0], cfg.RenderVersion())
	if before == after {
		t.Fatalf("canvas change should invalidate the cache key")
	}
}

func TestKeyIgnoresUnrelatedSlides(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	dir := testsupport.SourceDir(t, map[string]string{
		"a.jpg": "a",
		"b.jpg": "b",
	})
	slides := resolveSlides(t, cfg, dir)

	keyB := Key(&slides[1], cfg.RenderVersion())
	testsupport.TouchLater(t, slides[0].Members[0].Path)
	refreshed := resolveSlides(t, cfg, dir)
	if Key(&refreshed[1], cfg.RenderVersion()) != keyB {
		t.Fatalf("touching one slide changed another slide's key")
	}
	if Key(&refreshed[0], cfg.RenderVersion()) == Key(&slides[0], cfg.RenderVersion()) {
		t.Fatalf("touched slide's key did not change")
	}
}

var _ ffmpeg.Encoder = (*fakeEncoder)(nil)
