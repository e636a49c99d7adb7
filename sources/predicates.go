package sources

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/shahradelahi/aniwatch/types"
)

var heightRe = regexp.MustCompile(`([0-9]{3,4})p`)

func parseHeight(label string) int {
	m := heightRe.FindStringSubmatch(label)
	if len(m) >= 2 {
		if v, err := strconv.Atoi(m[1]); err == nil {
			return v
		}
	}
	return 0
}

// typeEquals checks the source type case-insensitively. An empty want matches.
func typeEquals(s types.Source, want string) bool {
	want = strings.ToLower(strings.TrimSpace(want))
	if want == "" {
		return true
	}
	return strings.ToLower(s.Type) == want
}

// qualityContains checks that the quality label contains want, case-insensitive.
// An empty want matches.
func qualityContains(s types.Source, want string) bool {
	want = strings.ToLower(strings.TrimSpace(want))
	if want == "" {
		return true
	}
	return strings.Contains(strings.ToLower(s.Quality), want)
}

// withinHeight checks the label height against [minHeight, maxHeight]. A zero
// bound is ignored. Sources without a height only pass when both are zero.
func withinHeight(s types.Source, minHeight, maxHeight int) bool {
	if minHeight <= 0 && maxHeight <= 0 {
		return true
	}
	h := parseHeight(s.Quality)
	if h == 0 {
		return false
	}
	if minHeight > 0 && h < minHeight {
		return false
	}
	if maxHeight > 0 && h > maxHeight {
		return false
	}
	return true
}
