// Package timeline derives the audio track from rendered segments. Cues are
// recomputed every run from the resolved slides and the actual segment
// durations; nothing about the audio timeline is persisted.
package timeline

import (
	"context"
	"fmt"

	"slidecast/internal/ffmpeg"
	"slidecast/internal/resolve"
	"slidecast/internal/segment"
)

// Entry is one cue placed on the final timeline. Fades are seconds inside
// the entry's own span.
type Entry struct {
	Path    string
	Start   float64
	End     float64
	FadeIn  float64
	FadeOut float64
}

// Duration returns the entry's span length in seconds.
func (e Entry) Duration() float64 { return e.End - e.Start }

// TotalDuration sums the rendered segment durations.
func TotalDuration(segments []segment.Segment) float64 {
	total := 0.0
	for _, seg := range segments {
		total += seg.Duration
	}
	return total
}

// FromCues places each slide's audio cue at the start of its segment,
// running until the next cue or the end of the timeline, then blends
// adjacent entries over the crossfade window. The overlap is clamped so a
// short cue is never faded beyond its own length.
func FromCues(slides []resolve.Slide, segments []segment.Segment, crossfade float64) []Entry {
	cueBySlide := make(map[int]string, len(slides))
	for idx := range slides {
		if slides[idx].AudioCue != nil {
			cueBySlide[slides[idx].Ordinal] = slides[idx].AudioCue.Path
		}
	}
	if len(cueBySlide) == 0 {
		return nil
	}

	var entries []Entry
	elapsed := 0.0
	for _, seg := range segments {
		if path, ok := cueBySlide[seg.Ordinal]; ok {
			if count := len(entries); count > 0 {
				entries[count-1].End = elapsed
			}
			entries = append(entries, Entry{Path: path, Start: elapsed})
		}
		elapsed += seg.Duration
	}
	if len(entries) == 0 {
		return nil
	}
	entries[len(entries)-1].End = elapsed

	filtered := entries[:0]
	for _, entry := range entries {
		if entry.End > entry.Start {
			filtered = append(filtered, entry)
		}
	}
	entries = filtered

	for idx := 0; idx < len(entries)-1; idx++ {
		current := entries[idx]
		next := entries[idx+1]
		fade := min(crossfade, current.Duration(), next.Duration())
		fade = min(fade, next.Start)
		if fade <= 0 {
			continue
		}
		entries[idx].FadeOut = fade
		newStart := max(0, next.Start-fade)
		entries[idx+1].FadeIn = next.Start - newStart
		entries[idx+1].Start = newStart
	}
	return entries
}

// FromTracks lays the configured global soundtrack files end to end,
// probing each for its duration. The caller trims the mix to the video
// length when rendering.
func FromTracks(ctx context.Context, prober *ffmpeg.Prober, tracks []string) ([]Entry, error) {
	var entries []Entry
	elapsed := 0.0
	for _, track := range tracks {
		duration, err := prober.Duration(ctx, track)
		if err != nil {
			return nil, fmt.Errorf("probe audio track %s: %w", track, err)
		}
		entries = append(entries, Entry{Path: track, Start: elapsed, End: elapsed + duration})
		elapsed += duration
	}
	return entries, nil
}

// Spans converts entries into the encoder's mix descriptors.
func Spans(entries []Entry) []ffmpeg.AudioSpan {
	spans := make([]ffmpeg.AudioSpan, 0, len(entries))
	for _, entry := range entries {
		spans = append(spans, ffmpeg.AudioSpan{
			Path:     entry.Path,
			Start:    entry.Start,
			Duration: entry.Duration(),
			FadeIn:   entry.FadeIn,
			FadeOut:  entry.FadeOut,
		})
	}
	return spans
}
