package trackfile

import (
	"strings"
	"testing"

	"github.com/shahradelahi/aniwatch/types"
)

func TestName(t *testing.T) {
	tests := []struct {
		name  string
		title string
		track types.Track
		want  string
	}{
		{
			name:  "vtt url",
			title: "Steins;Gate 3",
			track: types.Track{File: "https://cdn/subs/eng-2.vtt", Kind: "captions", Label: "English"},
			want:  "Steins;Gate 3.English.vtt",
		},
		{
			name:  "srt with query",
			title: "ep",
			track: types.Track{File: "https://cdn/a/b.SRT?token=1", Kind: "captions", Label: "Spanish"},
			want:  "ep.Spanish.srt",
		},
		{
			name:  "unknown ext",
			title: "ep",
			track: types.Track{File: "https://cdn/subs/eng", Kind: "captions", Label: "English"},
			want:  "ep.English.vtt",
		},
		{
			name:  "unsafe characters",
			title: `a/b:c*d?`,
			track: types.Track{File: "x.ass", Label: `Eng<lish>|`},
			want:  "a_b_c_d_.Eng_lish_.ass",
		},
		{
			name:  "label falls back to kind",
			title: "",
			track: types.Track{File: "x.vtt", Kind: "captions"},
			want:  "episode.captions.vtt",
		},
		{
			name:  "no label or kind",
			title: "  ",
			track: types.Track{File: "x.vtt"},
			want:  "episode.track.vtt",
		},
		{
			name:  "traversal",
			title: "../..",
			track: types.Track{File: "x.vtt", Label: ".."},
			want:  "_.track.vtt",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Name(tt.title, tt.track); got != tt.want {
				t.Errorf("Name() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNameLength(t *testing.T) {
	got := Name(strings.Repeat("a", 300), types.Track{File: "x.vtt", Label: "en"})
	if got != strings.Repeat("a", MaxNameLength)+".en.vtt" {
		t.Errorf("Name() = %q", got)
	}
}

func TestExtFromMime(t *testing.T) {
	tests := []struct {
		mime string
		want string
		ok   bool
	}{
		{"text/vtt", ExtVTT, true},
		{"text/vtt; charset=utf-8", ExtVTT, true},
		{"application/x-subrip", ExtSRT, true},
		{"TEXT/X-SSA", ExtASS, true},
		{"text/plain", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := ExtFromMime(tt.mime)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ExtFromMime(%q) = %q, %v, want %q, %v", tt.mime, got, ok, tt.want, tt.ok)
		}
	}
}

func TestNamerClaim(t *testing.T) {
	var n Namer
	claims := []struct {
		in   string
		want string
	}{
		{"ep.English.vtt", "ep.English.vtt"},
		{"ep.English.vtt", "ep.English-2.vtt"},
		{"ep.english.VTT", "ep.english-3.VTT"},
		{"ep.track.vtt", "ep.track.vtt"},
		{"ep.English-2.vtt", "ep.English-2-2.vtt"},
		{"ep.English.srt", "ep.English.srt"},
	}

	for _, c := range claims {
		if got := n.Claim(c.in); got != c.want {
			t.Errorf("Claim(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
