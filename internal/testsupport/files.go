package testsupport

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// WriteSource creates a file under dir with the given name and content and
// returns its path.
func WriteSource(t testing.TB, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// SourceDir creates a source directory populated with the given filename to
// content mapping and returns its path.
func SourceDir(t testing.TB, files map[string]string) string {
	t.Helper()

	dir := t.TempDir()
	for name, content := range files {
		WriteSource(t, dir, name, content)
	}
	return dir
}

// TouchLater bumps a file's modification time forward so content-signature
// comparisons see it as changed even within filesystem timestamp
// granularity.
func TouchLater(t testing.TB, path string) {
	t.Helper()

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat %s: %v", path, err)
	}
	later := info.ModTime().Add(2 * time.Second)
	if err := os.Chtimes(path, later, later); err != nil {
		t.Fatalf("chtimes %s: %v", path, err)
	}
}
