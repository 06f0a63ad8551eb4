package resolve

import (
	"errors"
	"path/filepath"
	"testing"

	"slidecast/internal/faults"
	"slidecast/internal/logging"
	"slidecast/internal/media"
	"slidecast/internal/testsupport"
)

func TestResolveCollageGrouping(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	dir := testsupport.SourceDir(t, map[string]string{
		"1978-0001.jpg":   "a",
		"1978-0001_2.jpg": "b",
		"1978-0002.jpg":   "c",
	})

	slides, err := Resolve(dir, cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(slides) != 2 {
		t.Fatalf("slides = %d, want 2", len(slides))
	}
	if !slides[0].IsCollage() || len(slides[0].Members) != 2 {
		t.Fatalf("first slide should be a 2-member collage, got %d members", len(slides[0].Members))
	}
	if slides[0].Stem() != "1978-0001" {
		t.Fatalf("first stem = %q", slides[0].Stem())
	}
	if slides[1].IsCollage() || len(slides[1].Members) != 1 {
		t.Fatalf("second slide should be a single image")
	}
	if slides[0].Ordinal != 1 || slides[1].Ordinal != 2 {
		t.Fatalf("ordinals = %d, %d", slides[0].Ordinal, slides[1].Ordinal)
	}
}

func TestResolveNumericOrdering(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	dir := testsupport.SourceDir(t, map[string]string{
		"10.jpg": "a",
		"2.jpg":  "b",
	})

	slides, err := Resolve(dir, cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if slides[0].Members[0].Stem != "2" || slides[1].Members[0].Stem != "10" {
		t.Fatalf("numeric ordering violated: %q then %q",
			slides[0].Members[0].Stem, slides[1].Members[0].Stem)
	}
}

func TestResolveOverlayAttachment(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	dir := testsupport.SourceDir(t, map[string]string{
		"1980-0001.jpg": "a",
		"1980-0001.txt": "@duration: 8\n# Summer\n- beach",
	})

	slides, err := Resolve(dir, cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(slides) != 1 {
		t.Fatalf("slides = %d, want 1 (overlay must not become a card)", len(slides))
	}
	slide := slides[0]
	if slide.Overlay == nil || slide.Overlay.Title != "Summer" {
		t.Fatalf("overlay not attached: %+v", slide.Overlay)
	}
	if slide.Duration != 8 {
		t.Fatalf("duration = %v, want directive override 8", slide.Duration)
	}
	if slide.YearLabel != "1980" {
		t.Fatalf("year = %q, want 1980", slide.YearLabel)
	}
}

func TestResolveOverlayAttachesByExactStem(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	dir := testsupport.SourceDir(t, map[string]string{
		"photo.jpg":   "a",
		"photo_2.jpg": "b",
		"photo.txt":   "# Group caption",
		"photo_2.txt": "# Standalone",
	})

	slides, err := Resolve(dir, cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(slides) != 2 {
		t.Fatalf("slides = %d, want the collage plus a card", len(slides))
	}
	if !slides[0].IsCollage() || slides[0].Overlay == nil || slides[0].Overlay.Title != "Group caption" {
		t.Fatalf("collage should carry only its exact-stem overlay: %+v", slides[0].Overlay)
	}
	if slides[1].Kind != media.KindText || slides[1].Overlay == nil || slides[1].Overlay.Title != "Standalone" {
		t.Fatalf("photo_2.txt should become a standalone card, got %+v", slides[1])
	}
}

func TestResolveAudioCueMatchesExactStem(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	dir := testsupport.SourceDir(t, map[string]string{
		"photo.jpg":   "a",
		"photo_2.jpg": "b",
		"photo_2.mp3": "audio",
	})

	slides, err := Resolve(dir, cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(slides) != 1 {
		t.Fatalf("slides = %d, want one collage", len(slides))
	}
	if slides[0].AudioCue != nil {
		t.Fatalf("cue for photo_2 must not attach to the photo group: %+v", slides[0].AudioCue)
	}
}

func TestResolveOverlayDefaultDuration(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	dir := testsupport.SourceDir(t, map[string]string{
		"pic.jpg": "a",
		"pic.txt": "# Caption",
	})

	slides, err := Resolve(dir, cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if slides[0].Duration != cfg.Render.DurationOverlay {
		t.Fatalf("duration = %v, want overlay default %v", slides[0].Duration, cfg.Render.DurationOverlay)
	}
}

func TestResolveStandaloneTextCard(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	dir := testsupport.SourceDir(t, map[string]string{
		"00-intro.txt": "# Welcome",
		"01-first.jpg": "a",
	})

	slides, err := Resolve(dir, cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(slides) != 2 {
		t.Fatalf("slides = %d, want 2", len(slides))
	}
	if slides[0].Kind != media.KindText {
		t.Fatalf("first slide kind = %q, want text card", slides[0].Kind)
	}
	if slides[0].Duration != cfg.Render.DurationText {
		t.Fatalf("card duration = %v, want %v", slides[0].Duration, cfg.Render.DurationText)
	}
}

func TestResolveAudioCueAttachment(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	dir := testsupport.SourceDir(t, map[string]string{
		"1985-0001.jpg": "a",
		"1985-0001.mp3": "audio",
		"1985-0002.jpg": "b",
	})

	slides, err := Resolve(dir, cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if slides[0].AudioCue == nil {
		t.Fatalf("first slide should carry the audio cue")
	}
	if got := filepath.Base(slides[0].AudioCue.Path); got != "1985-0001.mp3" {
		t.Fatalf("cue = %q", got)
	}
	if slides[1].AudioCue != nil {
		t.Fatalf("second slide should not carry a cue")
	}
}

func TestResolveBadDirectiveRecovers(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	dir := testsupport.SourceDir(t, map[string]string{
		"pic.jpg": "a",
		"pic.txt": "@duration: abc\nhello",
	})

	slides, err := Resolve(dir, cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("resolve should recover: %v", err)
	}
	slide := slides[0]
	if slide.DirectiveErr == nil || !errors.Is(slide.DirectiveErr, faults.ErrDirective) {
		t.Fatalf("expected recorded directive error, got %v", slide.DirectiveErr)
	}
	if slide.Duration != cfg.Render.DurationOverlay {
		t.Fatalf("duration = %v, want configured default %v", slide.Duration, cfg.Render.DurationOverlay)
	}
}

func TestResolveVideoNeverJoinsCollage(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	dir := testsupport.SourceDir(t, map[string]string{
		"trip.mp4":   "v",
		"trip_2.jpg": "a",
	})

	slides, err := Resolve(dir, cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(slides) != 2 {
		t.Fatalf("slides = %d, want 2 (video must not group with images)", len(slides))
	}
}

func TestResolveMissingDirectory(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	_, err := Resolve(filepath.Join(t.TempDir(), "missing"), cfg, logging.NewNop())
	if !errors.Is(err, faults.ErrResolution) {
		t.Fatalf("expected resolution error, got %v", err)
	}
}

func TestResolveEmptyDirectory(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	_, err := Resolve(t.TempDir(), cfg, logging.NewNop())
	if !errors.Is(err, faults.ErrResolution) {
		t.Fatalf("expected resolution error for empty directory, got %v", err)
	}
}
