// Package overlay parses slide text files: a leading block of
// "@key: value" directives followed by markup (headline, bullets, body
// text) that the renderer turns into positioned drawtext runs.
package overlay

import (
	"fmt"
	"strconv"
	"strings"

	"slidecast/internal/faults"
)

// Directives holds the typed values parsed from an overlay header.
// Unrecognized keys are preserved verbatim for forward compatibility.
type Directives struct {
	// Duration overrides the configured slide duration, in seconds.
	// Zero means unset.
	Duration float64
	// Unknown carries pass-through keys that no validator recognized.
	Unknown map[string]string
}

// Warning reports a directive the parser accepted but could not interpret.
type Warning struct {
	Key     string
	Value   string
	Message string
}

// parseDirectives consumes "@key: value" lines from the top of the file and
// returns the remaining content. Parsing stops at the first non-directive,
// non-blank line. A malformed value for a recognized key yields a
// faults.ErrDirective; the caller falls back to configured defaults.
func parseDirectives(raw string, strict bool) (Directives, string, []Warning, error) {
	directives := Directives{}
	var warnings []Warning
	var firstErr error

	lines := strings.Split(raw, "\n")
	consumed := 0
	for _, line := range lines {
		stripped := strings.TrimSpace(line)
		if stripped == "" {
			consumed++
			continue
		}
		if !strings.HasPrefix(stripped, "@") || !strings.Contains(stripped, ":") {
			break
		}
		consumed++

		key, value, _ := strings.Cut(stripped, ":")
		key = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(key, "@")))
		value = strings.TrimSpace(value)
		if key == "" {
			continue
		}

		switch key {
		case "duration":
			seconds, err := strconv.ParseFloat(value, 64)
			if err != nil || seconds <= 0 {
				if firstErr == nil {
					firstErr = faults.Wrap(faults.ErrDirective, "overlay", fmt.Sprintf("duration %q is not a positive number of seconds", value), nil)
				}
				continue
			}
			directives.Duration = seconds
		default:
			if strict {
				if firstErr == nil {
					firstErr = faults.Wrap(faults.ErrDirective, "overlay", fmt.Sprintf("unknown directive %q", key), nil)
				}
				continue
			}
			if directives.Unknown == nil {
				directives.Unknown = make(map[string]string)
			}
			directives.Unknown[key] = value
			warnings = append(warnings, Warning{
				Key:     key,
				Value:   value,
				Message: "unknown directive ignored",
			})
		}
	}

	remaining := strings.Join(lines[consumed:], "\n")
	return directives, remaining, warnings, firstErr
}
