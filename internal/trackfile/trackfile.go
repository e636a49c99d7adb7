// Package trackfile builds safe file names for downloaded side tracks.
package trackfile

import (
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/shahradelahi/aniwatch/types"
)

const (
	// MaxNameLength is the maximum length of each name part.
	MaxNameLength = 120
	// DefaultExt is used when neither the URL nor the MIME type names a known format.
	DefaultExt = ExtVTT
	// DefaultName replaces an empty title.
	DefaultName = "episode"
	// DefaultLabel replaces a track with neither label nor kind.
	DefaultLabel = "track"

	ExtVTT = "vtt"
	ExtSRT = "srt"
	ExtASS = "ass"

	MimeTextVTT    = "text/vtt"
	MimeSubRip     = "application/x-subrip"
	MimeTextSubRip = "text/srt"
	MimeTextSSA    = "text/x-ssa"
)

var unsafeChars = regexp.MustCompile(`[\\/:*?"<>|\x00-\x1f]+`)

var knownExt = map[string]bool{ExtVTT: true, ExtSRT: true, ExtASS: true}

// Safe returns name with path separators and reserved characters replaced.
// An empty result becomes fallback.
func Safe(name, fallback string) string {
	name = unsafeChars.ReplaceAllString(strings.TrimSpace(name), "_")
	name = strings.Trim(name, ". ")
	if len(name) > MaxNameLength {
		name = name[:MaxNameLength]
	}
	if name == "" {
		return fallback
	}
	return name
}

// ExtFromURL returns the subtitle extension of the URL path, if it is one we know.
func ExtFromURL(raw string) (string, bool) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(u.Path)), ".")
	return ext, knownExt[ext]
}

// ExtFromMime returns the subtitle extension for a Content-Type value.
func ExtFromMime(mime string) (string, bool) {
	base := strings.ToLower(strings.TrimSpace(mime))
	if i := strings.Index(base, ";"); i >= 0 {
		base = strings.TrimSpace(base[:i])
	}
	switch base {
	case MimeTextVTT:
		return ExtVTT, true
	case MimeSubRip, MimeTextSubRip:
		return ExtSRT, true
	case MimeTextSSA:
		return ExtASS, true
	}
	return "", false
}

// Ext returns the extension for track derived from its URL, or DefaultExt.
func Ext(track types.Track) string {
	if ext, ok := ExtFromURL(track.File); ok {
		return ext
	}
	return DefaultExt
}

// Name returns "{title}.{label}.{ext}" for track.
func Name(title string, track types.Track) string {
	return NameWithExt(title, track, Ext(track))
}

// NameWithExt is Name with an explicit extension.
func NameWithExt(title string, track types.Track, ext string) string {
	label := track.Label
	if strings.TrimSpace(label) == "" {
		label = track.Kind
	}
	ext = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ext)), ".")
	if ext == "" {
		ext = DefaultExt
	}
	return filepath.Clean(Safe(title, DefaultName) + "." + Safe(label, DefaultLabel) + "." + ext)
}

// Namer hands out distinct names within one batch. A name that is already
// taken gets a numeric suffix before its extension: "ep.English-2.vtt".
// Names are compared case-insensitively. The zero value is ready to use.
type Namer struct {
	taken map[string]bool
}

// Claim returns name, or the first free suffixed variant of it, and marks
// the result as taken.
func (n *Namer) Claim(name string) string {
	if n.taken == nil {
		n.taken = make(map[string]bool)
	}
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	candidate := name
	for i := 2; n.taken[strings.ToLower(candidate)]; i++ {
		candidate = fmt.Sprintf("%s-%d%s", base, i, ext)
	}
	n.taken[strings.ToLower(candidate)] = true
	return candidate
}
