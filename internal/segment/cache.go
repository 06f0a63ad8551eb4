// Package segment renders slides into cached MP4 artifacts. The cache's
// ground truth is file presence plus a recomputed content key, never mtimes
// alone; artifacts appear atomically via rename so a crash mid-render cannot
// leave a half-written file that passes validation.
package segment

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"slidecast/internal/resolve"
)

// Segment is the rendered artifact for one slide.
type Segment struct {
	Ordinal int
	Path    string
	Key     string
	// Duration is the actual rendered duration in seconds, probed for
	// video slides.
	Duration float64
	// Reused is true when the cached artifact was fresh and the encoder
	// was not invoked.
	Reused bool
}

// Key computes the cache key for a slide: member content signatures in
// order, overlay body, resolved duration, and the render-config version.
// Any change in these re-renders exactly this slide.
func Key(slide *resolve.Slide, renderVersion string) string {
	hasher := sha256.New()
	fmt.Fprintf(hasher, "render=%s\n", renderVersion)
	fmt.Fprintf(hasher, "kind=%s\n", slide.Kind)
	fmt.Fprintf(hasher, "duration=%.6f\n", slide.Duration)
	for _, member := range slide.Members {
		fmt.Fprintf(hasher, "member=%s:%s\n", member.Name(), member.Signature())
	}
	if slide.Overlay != nil {
		fmt.Fprintf(hasher, "overlay=%s\n", slide.Overlay.Body)
		fmt.Fprintf(hasher, "title=%s\n", slide.Overlay.Title)
	}
	return hex.EncodeToString(hasher.Sum(nil))
}

// ArtifactPath returns the fixed cache slot for a slide ordinal.
func ArtifactPath(cacheDir string, ordinal int) string {
	return filepath.Join(cacheDir, fmt.Sprintf("segment_%04d.mp4", ordinal))
}

func keyPath(artifactPath string) string {
	return strings.TrimSuffix(artifactPath, filepath.Ext(artifactPath)) + ".key"
}

// fresh reports whether the artifact at path exists, is non-empty, and its
// sidecar key matches want. Any validation failure is a cache miss.
func fresh(path, want string) bool {
	info, err := os.Stat(path)
	if err != nil || info.Size() == 0 {
		return false
	}
	stored, err := os.ReadFile(keyPath(path))
	if err != nil {
		return false
	}
	return strings.TrimSpace(string(stored)) == want
}

// commit moves a finished render into its cache slot and records its key.
// The rename is atomic; the key file is written after, so an interrupted
// commit reads as stale and re-renders.
func commit(tempPath, artifactPath, key string) error {
	if err := os.Rename(tempPath, artifactPath); err != nil {
		return fmt.Errorf("install segment: %w", err)
	}
	if err := os.WriteFile(keyPath(artifactPath), []byte(key+"\n"), 0o644); err != nil {
		return fmt.Errorf("record segment key: %w", err)
	}
	return nil
}

// Clean removes all cached segments and key sidecars from cacheDir.
func Clean(cacheDir string) (int, error) {
	matches, err := filepath.Glob(filepath.Join(cacheDir, "segment_*"))
	if err != nil {
		return 0, fmt.Errorf("list cache artifacts: %w", err)
	}
	removed := 0
	for _, match := range matches {
		if err := os.Remove(match); err != nil {
			return removed, fmt.Errorf("remove %s: %w", match, err)
		}
		removed++
	}
	return removed, nil
}
