package timeline

import (
	"math"
	"testing"

	"slidecast/internal/media"
	"slidecast/internal/resolve"
	"slidecast/internal/segment"
)

func cueSlide(ordinal int, cuePath string) resolve.Slide {
	slide := resolve.Slide{Ordinal: ordinal, Kind: media.KindImage}
	if cuePath != "" {
		slide.AudioCue = &media.Entry{Path: cuePath}
	}
	return slide
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestFromCuesNoCues(t *testing.T) {
	slides := []resolve.Slide{cueSlide(1, ""), cueSlide(2, "")}
	segments := []segment.Segment{{Ordinal: 1, Duration: 5}, {Ordinal: 2, Duration: 5}}
	if entries := FromCues(slides, segments, 1); entries != nil {
		t.Fatalf("expected no entries, got %v", entries)
	}
}

func TestFromCuesCrossfadeWindow(t *testing.T) {
	slides := []resolve.Slide{cueSlide(1, "a.mp3"), cueSlide(2, "b.mp3")}
	segments := []segment.Segment{
		{Ordinal: 1, Duration: 10},
		{Ordinal: 2, Duration: 8},
	}

	entries := FromCues(slides, segments, 1)
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}

	first, second := entries[0], entries[1]
	if !approx(first.Start, 0) || !approx(first.End, 10) {
		t.Fatalf("first span = [%v, %v], want [0, 10]", first.Start, first.End)
	}
	if !approx(first.FadeOut, 1) {
		t.Fatalf("first fade out = %v, want 1", first.FadeOut)
	}
	// The second cue starts one second early so the fades overlap and the
	// summed gain stays continuous across the boundary.
	if !approx(second.Start, 9) || !approx(second.FadeIn, 1) {
		t.Fatalf("second start/fadeIn = %v/%v, want 9/1", second.Start, second.FadeIn)
	}
	if !approx(second.End, 18) {
		t.Fatalf("timeline end = %v, want 18", second.End)
	}
}

func TestFromCuesClampsShortSpans(t *testing.T) {
	slides := []resolve.Slide{cueSlide(1, "a.mp3"), cueSlide(2, "b.mp3")}
	segments := []segment.Segment{
		{Ordinal: 1, Duration: 0.5},
		{Ordinal: 2, Duration: 20},
	}

	entries := FromCues(slides, segments, 2)
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	// The overlap can never exceed the shorter span's length.
	if entries[0].FadeOut > 0.5 {
		t.Fatalf("fade %v exceeds the 0.5s span", entries[0].FadeOut)
	}
	if entries[1].Start < 0 {
		t.Fatalf("second entry start went negative: %v", entries[1].Start)
	}
}

func TestFromCuesLastCueRunsToTimelineEnd(t *testing.T) {
	slides := []resolve.Slide{cueSlide(1, "a.mp3"), cueSlide(2, ""), cueSlide(3, "")}
	segments := []segment.Segment{
		{Ordinal: 1, Duration: 3},
		{Ordinal: 2, Duration: 4},
		{Ordinal: 3, Duration: 5},
	}

	entries := FromCues(slides, segments, 1)
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	if !approx(entries[0].End, 12) {
		t.Fatalf("end = %v, want full timeline 12", entries[0].End)
	}
}

func TestFromCuesMidTimelineCue(t *testing.T) {
	slides := []resolve.Slide{cueSlide(1, ""), cueSlide(2, "b.mp3")}
	segments := []segment.Segment{
		{Ordinal: 1, Duration: 6},
		{Ordinal: 2, Duration: 4},
	}

	entries := FromCues(slides, segments, 1)
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	if !approx(entries[0].Start, 6) || !approx(entries[0].End, 10) {
		t.Fatalf("span = [%v, %v], want [6, 10]", entries[0].Start, entries[0].End)
	}
}

func TestSpans(t *testing.T) {
	entries := []Entry{{Path: "a.mp3", Start: 2, End: 7, FadeIn: 0.5, FadeOut: 1}}
	spans := Spans(entries)
	if len(spans) != 1 {
		t.Fatalf("spans = %d, want 1", len(spans))
	}
	span := spans[0]
	if span.Path != "a.mp3" || !approx(span.Start, 2) || !approx(span.Duration, 5) {
		t.Fatalf("unexpected span: %+v", span)
	}
	if !approx(span.FadeIn, 0.5) || !approx(span.FadeOut, 1) {
		t.Fatalf("fades lost in conversion: %+v", span)
	}
}

func TestTotalDuration(t *testing.T) {
	segments := []segment.Segment{{Duration: 1.5}, {Duration: 2.5}}
	if got := TotalDuration(segments); !approx(got, 4) {
		t.Fatalf("total = %v, want 4", got)
	}
}
