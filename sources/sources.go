// Package sources picks a single rendition out of an extraction result.
package sources

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shahradelahi/aniwatch/errs"
	"github.com/shahradelahi/aniwatch/types"
)

// Selector is a parsed selection expression.
type Selector struct {
	Type      string
	Quality   string
	MinHeight int
	MaxHeight int
}

// ParseSelector parses a selection expression.
// Supported forms:
//   - "" or best: the first hls source, else the first source
//   - type=T: first source of type T (hls, mp4)
//   - quality=Q: first source whose quality label contains Q, case-insensitive
//   - height<=N, height>=N: first source whose label height is within bounds
func ParseSelector(expr string) (Selector, error) {
	expr = strings.ToLower(strings.TrimSpace(expr))
	switch {
	case expr == "" || expr == "best":
		return Selector{}, nil
	case strings.HasPrefix(expr, "type="):
		return Selector{Type: strings.TrimPrefix(expr, "type=")}, nil
	case strings.HasPrefix(expr, "quality="):
		return Selector{Quality: strings.TrimPrefix(expr, "quality=")}, nil
	case strings.HasPrefix(expr, "height<="):
		n, err := strconv.Atoi(strings.TrimPrefix(expr, "height<="))
		if err != nil || n <= 0 {
			return Selector{}, fmt.Errorf("%w: bad height in %q", errs.ErrInvalidInput, expr)
		}
		return Selector{MaxHeight: n}, nil
	case strings.HasPrefix(expr, "height>="):
		n, err := strconv.Atoi(strings.TrimPrefix(expr, "height>="))
		if err != nil || n <= 0 {
			return Selector{}, fmt.Errorf("%w: bad height in %q", errs.ErrInvalidInput, expr)
		}
		return Selector{MinHeight: n}, nil
	default:
		return Selector{}, fmt.Errorf("%w: unknown selector %q", errs.ErrInvalidInput, expr)
	}
}

// Match reports whether s satisfies the selector.
func (sel Selector) Match(s types.Source) bool {
	return typeEquals(s, sel.Type) &&
		qualityContains(s, sel.Quality) &&
		withinHeight(s, sel.MinHeight, sel.MaxHeight)
}

func (sel Selector) isBest() bool {
	return sel == Selector{}
}

// Select returns the first source matching expr, or nil when nothing matches
// or expr does not parse.
func Select(list []types.Source, expr string) *types.Source {
	sel, err := ParseSelector(expr)
	if err != nil {
		return nil
	}
	return sel.Pick(list)
}

// Pick returns the first source matching the selector, or nil.
func (sel Selector) Pick(list []types.Source) *types.Source {
	if len(list) == 0 {
		return nil
	}
	if sel.isBest() {
		for i := range list {
			if typeEquals(list[i], "hls") {
				return &list[i]
			}
		}
		return &list[0]
	}
	for i := range list {
		if sel.Match(list[i]) {
			return &list[i]
		}
	}
	return nil
}
