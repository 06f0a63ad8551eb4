// Package resolve scans a source directory and produces the ordered slide
// sequence the renderer consumes. Resolution is a pure read: it never moves,
// converts, or mutates source files, and the resulting order depends only on
// directory contents.
package resolve

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"slidecast/internal/config"
	"slidecast/internal/faults"
	"slidecast/internal/logging"
	"slidecast/internal/media"
	"slidecast/internal/overlay"
)

// Slide is the atomic unit of the timeline: a single image or video, a
// collage of same-prefix images, or a standalone text card.
type Slide struct {
	// Ordinal is the 1-based position in the timeline.
	Ordinal int
	Kind    media.Kind
	// Members holds the visual entries (1..N; N>1 only for collages).
	// For text cards it holds the text entry itself.
	Members []media.Entry
	// OverlaySources are the sibling text files merged into Overlay.
	OverlaySources []media.Entry
	Overlay        *overlay.Overlay
	// AudioCue, when set, starts playing at this slide and runs until the
	// next cue or the end of the timeline.
	AudioCue *media.Entry
	// Duration is the resolved still/card duration in seconds. Zero for
	// video slides, whose true duration is known only after rendering.
	Duration float64
	// YearLabel is the four-digit year inferred from the filename, if any.
	YearLabel string
	// DirectiveErr records a recovered overlay directive problem. The slide
	// fell back to configured defaults; the run continues.
	DirectiveErr error
}

// Stem returns the slide's base stem (shared prefix for collages).
func (s *Slide) Stem() string {
	if len(s.Members) == 0 {
		return ""
	}
	return media.BaseStem(s.Members[0].Stem)
}

// IsCollage reports whether the slide composites multiple images.
func (s *Slide) IsCollage() bool {
	return s.Kind == media.KindImage && len(s.Members) > 1
}

// SourceNames lists the member filenames, for failure reports.
func (s *Slide) SourceNames() []string {
	names := make([]string, 0, len(s.Members))
	for _, member := range s.Members {
		names = append(names, member.Name())
	}
	return names
}

// Resolve scans sourceDir and builds the slide sequence. It fails with
// faults.ErrResolution when the directory is missing or contains nothing
// renderable. Recovered per-slide problems are logged and recorded on the
// slide, never fatal.
func Resolve(sourceDir string, cfg *config.Config, logger *slog.Logger) ([]Slide, error) {
	log := logging.NewComponentLogger(logger, "resolver")

	info, err := os.Stat(sourceDir)
	if err != nil || !info.IsDir() {
		return nil, faults.Wrap(faults.ErrResolution, "resolver", fmt.Sprintf("source directory %s is missing or not a directory", sourceDir), err)
	}

	entries, err := media.Scan(sourceDir)
	if err != nil {
		return nil, faults.Wrap(faults.ErrResolution, "resolver", "scan source directory", err)
	}

	visualStems := make(map[string]struct{})
	for _, entry := range entries {
		if entry.Kind == media.KindImage || entry.Kind == media.KindVideo {
			visualStems[media.BaseStem(entry.Stem)] = struct{}{}
		}
	}

	// Overlays and cues attach by exact stem only: photo.txt belongs to the
	// photo group, photo_2.txt does not.
	overlaysByStem := make(map[string][]media.Entry)
	audioByStem := make(map[string]media.Entry)
	for _, entry := range entries {
		switch entry.Kind {
		case media.KindText:
			if _, ok := visualStems[entry.Stem]; ok {
				overlaysByStem[entry.Stem] = append(overlaysByStem[entry.Stem], entry)
			}
		case media.KindAudio:
			if _, exists := audioByStem[entry.Stem]; exists {
				log.Warn("duplicate audio cue for stem; keeping first",
					logging.String("stem", entry.Stem),
					logging.String("file", entry.Name()),
				)
				continue
			}
			audioByStem[entry.Stem] = entry
		}
	}

	var slides []Slide
	var group []media.Entry

	flush := func() {
		if len(group) == 0 {
			return
		}
		slides = append(slides, buildVisualSlide(group, overlaysByStem, audioByStem, cfg, log))
		group = nil
	}

	for _, entry := range entries {
		switch entry.Kind {
		case media.KindImage, media.KindVideo:
			base := media.BaseStem(entry.Stem)
			if len(group) > 0 && media.BaseStem(group[0].Stem) == base && groupable(group, entry) {
				group = append(group, entry)
				continue
			}
			flush()
			group = append(group, entry)
		case media.KindText:
			if _, attached := visualStems[entry.Stem]; attached {
				continue
			}
			flush()
			slides = append(slides, buildCardSlide(entry, audioByStem, cfg, log))
		case media.KindAudio:
			// Attached via audioByStem.
		default:
			log.Debug("skipping unsupported file", logging.String("file", entry.Name()))
		}
	}
	flush()

	if len(slides) == 0 {
		return nil, faults.Wrap(faults.ErrResolution, "resolver", fmt.Sprintf("no renderable entries in %s", sourceDir), nil)
	}

	for idx := range slides {
		slides[idx].Ordinal = idx + 1
	}

	for stem, cue := range audioByStem {
		if !cueAttached(slides, cue) {
			log.Warn("audio cue has no matching slide; ignoring",
				logging.String("stem", stem),
				logging.String("file", cue.Name()),
			)
		}
	}

	return slides, nil
}

// groupable keeps collage membership image-only: a video never joins a
// group, and an image never joins a video.
func groupable(group []media.Entry, next media.Entry) bool {
	return group[0].Kind == media.KindImage && next.Kind == media.KindImage
}

func buildVisualSlide(group []media.Entry, overlays map[string][]media.Entry, audio map[string]media.Entry, cfg *config.Config, log *slog.Logger) Slide {
	base := media.BaseStem(group[0].Stem)
	slide := Slide{
		Kind:      group[0].Kind,
		Members:   append([]media.Entry{}, group...),
		YearLabel: media.InferYear(base),
	}
	if cue, ok := audio[base]; ok {
		slide.AudioCue = &cue
	}

	slide.OverlaySources = overlays[base]
	if len(slide.OverlaySources) > 0 {
		slide.Overlay, slide.DirectiveErr = loadOverlay(slide.OverlaySources, base, cfg, log)
		if slide.Overlay != nil && slide.Overlay.Empty() {
			slide.Overlay = nil
		}
	}

	if slide.Kind == media.KindImage {
		slide.Duration = cfg.Render.DurationImage
		if slide.Overlay != nil {
			slide.Duration = cfg.Render.DurationOverlay
		}
		if slide.Overlay != nil && slide.Overlay.Directives.Duration > 0 {
			slide.Duration = slide.Overlay.Directives.Duration
		}
	}
	return slide
}

func buildCardSlide(entry media.Entry, audio map[string]media.Entry, cfg *config.Config, log *slog.Logger) Slide {
	slide := Slide{
		Kind:      media.KindText,
		Members:   []media.Entry{entry},
		YearLabel: media.InferYear(entry.Stem),
	}
	if cue, ok := audio[entry.Stem]; ok {
		slide.AudioCue = &cue
	}

	slide.Overlay, slide.DirectiveErr = loadOverlay([]media.Entry{entry}, entry.Stem, cfg, log)

	slide.Duration = cfg.Render.DurationText
	if slide.Overlay != nil && slide.Overlay.Directives.Duration > 0 {
		slide.Duration = slide.Overlay.Directives.Duration
	}
	return slide
}

// loadOverlay reads and merges the overlay sources for one slide. Multiple
// files sharing the prefix are concatenated in sorted order before parsing.
func loadOverlay(sources []media.Entry, fallbackTitle string, cfg *config.Config, log *slog.Logger) (*overlay.Overlay, error) {
	var parts []string
	for _, source := range sources {
		raw, err := os.ReadFile(source.Path)
		if err != nil {
			log.Warn("overlay file unreadable; skipping",
				logging.String("file", source.Name()),
				logging.Error(err),
			)
			continue
		}
		parts = append(parts, string(raw))
	}

	parsed, warnings, err := overlay.Parse(strings.Join(parts, "\n"), fallbackTitle, cfg.Text.StrictDirectives)
	for _, warning := range warnings {
		log.Warn("overlay directive ignored",
			logging.String("key", warning.Key),
			logging.String("value", warning.Value),
			logging.String("reason", warning.Message),
		)
	}
	if err != nil {
		log.Warn("overlay directive invalid; using configured duration",
			logging.String("stem", fallbackTitle),
			logging.Error(err),
		)
	}
	return parsed, err
}

func cueAttached(slides []Slide, cue media.Entry) bool {
	for idx := range slides {
		if slides[idx].AudioCue != nil && slides[idx].AudioCue.Path == cue.Path {
			return true
		}
	}
	return false
}
