// Package media classifies and orders the files discovered in a source
// directory. An Entry is an immutable snapshot of one file taken at resolve
// time; ordering is deterministic regardless of filesystem listing order.
package media

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Kind classifies an entry by its extension.
type Kind string

const (
	KindImage   Kind = "image"
	KindVideo   Kind = "video"
	KindText    Kind = "text"
	KindAudio   Kind = "audio"
	KindUnknown Kind = "unknown"
)

var imageExtensions = map[string]struct{}{
	".jpg": {}, ".jpeg": {}, ".png": {}, ".webp": {}, ".bmp": {}, ".heic": {}, ".heif": {},
}

var videoExtensions = map[string]struct{}{
	".mp4": {}, ".mov": {}, ".m4v": {}, ".avi": {}, ".mkv": {}, ".hevc": {}, ".mpg": {}, ".mpeg": {}, ".wmv": {},
}

var audioExtensions = map[string]struct{}{
	".mp3": {}, ".m4a": {}, ".aac": {}, ".wav": {}, ".flac": {}, ".ogg": {},
}

var textExtensions = map[string]struct{}{
	".txt": {}, ".pug": {},
}

// Entry is one file discovered in the source directory.
type Entry struct {
	Path     string
	Stem     string
	Ext      string
	Kind     Kind
	Size     int64
	Modified time.Time
}

// Signature returns a cheap content fingerprint (size + mtime). Segment cache
// keys hash these, so a copied file with a fresh mtime re-renders its slide.
func (e Entry) Signature() string {
	return fmt.Sprintf("%d:%d", e.Size, e.Modified.UnixNano())
}

// Name returns the entry's base filename including extension.
func (e Entry) Name() string {
	return filepath.Base(e.Path)
}

// Classify maps a file extension (with leading dot) to a Kind.
func Classify(ext string) Kind {
	ext = strings.ToLower(ext)
	switch {
	case hasKey(imageExtensions, ext):
		return KindImage
	case hasKey(videoExtensions, ext):
		return KindVideo
	case hasKey(audioExtensions, ext):
		return KindAudio
	case hasKey(textExtensions, ext):
		return KindText
	default:
		return KindUnknown
	}
}

func hasKey(set map[string]struct{}, key string) bool {
	_, ok := set[key]
	return ok
}

// Scan lists the files in dir and returns classified, sorted entries.
// Unknown extensions are returned with KindUnknown so the caller can log and
// skip them. Subdirectories are not descended.
func Scan(dir string) ([]Entry, error) {
	listing, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read source directory: %w", err)
	}

	entries := make([]Entry, 0, len(listing))
	for _, item := range listing {
		if item.IsDir() {
			continue
		}
		info, err := item.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", item.Name(), err)
		}
		ext := strings.ToLower(filepath.Ext(item.Name()))
		entries = append(entries, Entry{
			Path:     filepath.Join(dir, item.Name()),
			Stem:     strings.TrimSuffix(item.Name(), filepath.Ext(item.Name())),
			Ext:      ext,
			Kind:     Classify(ext),
			Size:     info.Size(),
			Modified: info.ModTime(),
		})
	}

	Sort(entries)
	return entries, nil
}

// Sort orders entries by filename, treating embedded digit runs numerically
// so 2.jpg precedes 10.jpg.
func Sort(entries []Entry) {
	collator := newCollator()
	sort.SliceStable(entries, func(i, j int) bool {
		if cmp := collator.CompareString(entries[i].Stem, entries[j].Stem); cmp != 0 {
			return cmp < 0
		}
		return collator.CompareString(entries[i].Ext, entries[j].Ext) < 0
	})
}

// Compare orders two names with the same numeric-run comparator used by Sort.
func Compare(a, b string) int {
	return newCollator().CompareString(a, b)
}

func newCollator() *collate.Collator {
	return collate.New(language.Und, collate.Numeric)
}

var groupSuffix = regexp.MustCompile(`^(.+)_(\d+)$`)

// BaseStem strips an optional _<n> collage-member suffix from a stem.
// "1978-0001_2" and "1978-0001" share the base stem "1978-0001".
func BaseStem(stem string) string {
	if match := groupSuffix.FindStringSubmatch(stem); match != nil {
		return match[1]
	}
	return stem
}

var yearPattern = regexp.MustCompile(`(19|20)\d{2}`)

// InferYear extracts a plausible four-digit year from a stem, or "".
func InferYear(stem string) string {
	return yearPattern.FindString(stem)
}
