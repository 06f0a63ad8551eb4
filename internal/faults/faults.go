// Package faults defines the error taxonomy shared across the render
// pipeline. Components tag failures with a sentinel marker so callers can
// decide between aborting a run, recovering per slide, or retrying later.
package faults

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrResolution marks a bad or empty source directory. Fatal before any
	// rendering starts.
	ErrResolution = errors.New("resolution error")
	// ErrDirective marks a malformed overlay directive value. Recovered per
	// slide with configured defaults.
	ErrDirective = errors.New("directive error")
	// ErrEncoding marks an external encoder failure for a single slide.
	ErrEncoding = errors.New("encoding error")
	// ErrCacheCorruption marks a cache artifact that exists but cannot be
	// validated. Treated as a miss.
	ErrCacheCorruption = errors.New("cache corruption")
	// ErrAssembly marks a concatenation or mux failure. Fatal for the run;
	// cached segments remain valid.
	ErrAssembly = errors.New("assembly error")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification.
func Wrap(marker error, component, operation string, err error) error {
	detail := buildDetail(component, operation)
	if marker == nil {
		marker = ErrEncoding
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Fatal reports whether an error should abort the entire run rather than be
// recorded against a single slide.
func Fatal(err error) bool {
	return errors.Is(err, ErrResolution) || errors.Is(err, ErrAssembly)
}

func buildDetail(component, operation string) string {
	parts := make([]string, 0, 2)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if len(parts) == 0 {
		return "pipeline failure"
	}
	return strings.Join(parts, ": ")
}
