package overlay

import (
	"strings"
)

// Align positions a line on the rendered canvas.
type Align string

const (
	AlignLeft   Align = "left"
	AlignRight  Align = "right"
	AlignCenter Align = "center"
	AlignTop    Align = "top"
)

// LineKind distinguishes layout line types.
type LineKind string

const (
	LineBlank  LineKind = "blank"
	LineBullet LineKind = "bullet"
	LineText   LineKind = "text"
	LineTop    LineKind = "top"
)

// Line is one positioned run of overlay text.
type Line struct {
	Kind    LineKind
	Level   int
	Text    string
	Display string
	Align   Align
}

// Overlay is the parsed form of a slide text file.
type Overlay struct {
	Title      string
	Lines      []Line
	Directives Directives
	// Body is the markup after the directive header, exactly as read.
	// Segment cache keys hash it, so any visible edit re-renders the slide.
	Body string
}

var bulletMarkers = []string{"•", "-", "*"}

// Parse reads an overlay file's content. fallbackTitle (usually the file
// stem) is used when the file carries no displayable text, so an empty
// marker file still renders a card. The returned error, when non-nil, is a
// recoverable faults.ErrDirective; the overlay remains usable.
func Parse(raw, fallbackTitle string, strict bool) (*Overlay, []Warning, error) {
	directives, body, warnings, dirErr := parseDirectives(raw, strict)

	parsed := &Overlay{Directives: directives, Body: body}
	contentStarted := false

	for _, rawLine := range strings.Split(body, "\n") {
		stripped := strings.TrimSpace(rawLine)
		if stripped == "" {
			if contentStarted {
				parsed.Lines = append(parsed.Lines, Line{Kind: LineBlank, Align: AlignRight})
			}
			continue
		}
		contentStarted = true

		if strings.HasPrefix(stripped, "#") {
			token := strings.TrimSpace(strings.TrimLeft(stripped, "#"))
			if parsed.Title == "" && token != "" {
				parsed.Title = token
				continue
			}
			if token != "" {
				parsed.Lines = append(parsed.Lines, Line{Kind: LineTop, Text: token, Display: token, Align: AlignTop})
			}
			continue
		}

		level := indentLevel(rawLine)
		if isBullet, text := extractBullet(stripped); isBullet {
			if text == "" {
				text = "-"
			}
			align := lineAlignment(text)
			display := "• " + text
			if align == AlignRight {
				display = text + " •"
			}
			parsed.Lines = append(parsed.Lines, Line{Kind: LineBullet, Level: level, Text: text, Display: display, Align: align})
			continue
		}
		parsed.Lines = append(parsed.Lines, Line{Kind: LineText, Level: level, Text: stripped, Display: stripped, Align: lineAlignment(stripped)})
	}

	if parsed.Title == "" && !parsed.hasText() {
		parsed.Title = fallbackTitle
		parsed.Lines = nil
	}

	return parsed, warnings, dirErr
}

func (o *Overlay) hasText() bool {
	for _, line := range o.Lines {
		if line.Kind != LineBlank && strings.TrimSpace(line.Text) != "" {
			return true
		}
	}
	return false
}

// Empty reports whether the overlay carries no displayable content at all.
func (o *Overlay) Empty() bool {
	return o == nil || (o.Title == "" && !o.hasText())
}

// FlatText renders the overlay as plain text for compositing onto an image
// slide (title, blank line, body lines).
func (o *Overlay) FlatText() string {
	var parts []string
	if o.Title != "" {
		parts = append(parts, o.Title)
	}
	var body []string
	for _, line := range o.Lines {
		if line.Kind == LineBlank {
			continue
		}
		if text := strings.TrimSpace(line.Display); text != "" {
			body = append(body, text)
		}
	}
	if joined := strings.Join(body, "\n"); joined != "" {
		parts = append(parts, joined)
	}
	return strings.Join(parts, "\n\n")
}

// Preview returns a short identifying string for progress output.
func (o *Overlay) Preview() string {
	if o.Title != "" {
		return strings.TrimSpace(o.Title)
	}
	for _, line := range o.Lines {
		if text := strings.TrimSpace(line.Text); text != "" {
			return text
		}
	}
	return ""
}

// indentLevel maps leading whitespace to a bullet nesting depth: tabs count
// as two spaces, and every two spaces is one level.
func indentLevel(rawLine string) int {
	normalized := strings.ReplaceAll(rawLine, "\t", "  ")
	leading := len(normalized) - len(strings.TrimLeft(normalized, " "))
	return leading / 2
}

func extractBullet(stripped string) (bool, string) {
	for _, marker := range bulletMarkers {
		if strings.HasPrefix(stripped, marker) {
			return true, strings.TrimSpace(strings.TrimPrefix(stripped, marker))
		}
	}
	return false, stripped
}

// lineAlignment right-aligns lines containing Hebrew codepoints so RTL text
// reads naturally; everything else is left-aligned.
func lineAlignment(text string) Align {
	for _, r := range text {
		if r >= 0x0590 && r <= 0x05FF {
			return AlignRight
		}
	}
	return AlignLeft
}
