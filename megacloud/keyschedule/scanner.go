package keyschedule

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/shahradelahi/aniwatch/errs"
)

const (
	// DefaultPassphraseIdent is the variable the current obfuscator assigns the passphrase to.
	DefaultPassphraseIdent = "partKey"
	// DefaultMaxDepth bounds alias chains followed while resolving an identifier.
	DefaultMaxDepth = 8
)

var (
	caseRe    = regexp.MustCompile(`case\s*(?:0[xX][0-9a-fA-F]+|\d+)\s*:\s*([\w$]+)\s*=\s*([\w$]+)\s*,\s*([\w$]+)\s*=\s*([\w$]+)\s*;`)
	bindingRe = regexp.MustCompile(`,\s*([A-Za-z_$][\w$]*)\s*=\s*([^,;=>\s][^,;]*)`)
)

// Pair is one skip/take step of a schedule.
type Pair struct {
	Skip int
	Take int
}

// Schedule is an ordered list of pairs. Order is significant.
type Schedule []Pair

// Total returns the sum of all take lengths.
func (s Schedule) Total() int {
	n := 0
	for _, p := range s {
		n += p.Take
	}
	return n
}

// Evaluator evaluates a constant arithmetic expression to an integer.
type Evaluator interface {
	Eval(expr string) (int, error)
}

// Scanner extracts a Schedule from player script text.
// The zero value is usable and applies the defaults.
type Scanner struct {
	// PassphraseIdent names the decoy case to skip. Empty means DefaultPassphraseIdent.
	PassphraseIdent string
	// MaxDepth bounds identifier resolution. Zero means DefaultMaxDepth.
	MaxDepth int
	// Evaluator, when set, resolves bindings that are arithmetic expressions.
	Evaluator Evaluator
}

// NewScanner returns a scanner with the default settings.
func NewScanner() *Scanner {
	return &Scanner{
		PassphraseIdent: DefaultPassphraseIdent,
		MaxDepth:        DefaultMaxDepth,
	}
}

// Scan is a convenience wrapper around a default Scanner.
func Scan(script string) (Schedule, error) {
	return NewScanner().Scan(script)
}

// Scan returns the schedule encoded in script, in discovery order.
func (s *Scanner) Scan(script string) (Schedule, error) {
	passIdent := s.PassphraseIdent
	if passIdent == "" {
		passIdent = DefaultPassphraseIdent
	}

	cases := caseRe.FindAllStringSubmatch(script, -1)
	if len(cases) == 0 {
		return nil, fmt.Errorf("%w: no case assignments found", errs.ErrSchemaMismatch)
	}

	r := s.newResolver(script)
	var schedule Schedule
	considered := 0
	for _, m := range cases {
		if isDecoy(m[1:], passIdent) {
			continue
		}
		considered++
		skip, ok := r.resolve(m[2])
		if !ok {
			continue
		}
		take, ok := r.resolve(m[4])
		if !ok {
			continue
		}
		schedule = append(schedule, Pair{Skip: skip, Take: take})
	}

	if len(schedule) == 0 {
		return nil, fmt.Errorf("%w: none of %d case assignments resolved", errs.ErrSchemaMismatch, considered)
	}
	return schedule, nil
}

func isDecoy(idents []string, passIdent string) bool {
	for _, id := range idents {
		if id == passIdent {
			return true
		}
	}
	return false
}

// resolver maps each identifier to its usable bindings in script order.
// A usable binding is a literal, an identifier, or a constant expression when
// an evaluator is set. Other bindings only count when nothing usable exists
// and they start with a literal.
type resolver struct {
	bindings map[string][]string
	fallback map[string]string
	maxDepth int
	eval     Evaluator
}

func (s *Scanner) newResolver(script string) *resolver {
	r := &resolver{
		bindings: make(map[string][]string),
		fallback: make(map[string]string),
		maxDepth: s.MaxDepth,
		eval:     s.Evaluator,
	}
	if r.maxDepth <= 0 {
		r.maxDepth = DefaultMaxDepth
	}
	for _, m := range bindingRe.FindAllStringSubmatch(script, -1) {
		ident, rhs := m[1], strings.TrimSpace(m[2])
		switch {
		case r.usable(rhs):
			r.bindings[ident] = append(r.bindings[ident], rhs)
		case literalPrefixRe.MatchString(rhs):
			if _, seen := r.fallback[ident]; !seen {
				r.fallback[ident] = rhs
			}
		}
	}
	return r
}

func (r *resolver) usable(rhs string) bool {
	if _, ok := parseLiteral(rhs); ok {
		return true
	}
	if identRe.MatchString(rhs) {
		return true
	}
	return r.eval != nil && constExprRe.MatchString(rhs)
}

// resolve follows expr to an integer. The bool is false when expr is unresolved.
func (r *resolver) resolve(expr string) (int, bool) {
	return r.walk(expr, 0, make(map[string]bool))
}

func (r *resolver) walk(expr string, depth int, visited map[string]bool) (int, bool) {
	if v, ok := parseLiteral(expr); ok {
		return v, true
	}
	if identRe.MatchString(expr) {
		if depth >= r.maxDepth || visited[expr] {
			return 0, false
		}
		candidates := r.bindings[expr]
		if len(candidates) == 0 {
			rhs, ok := r.fallback[expr]
			if !ok {
				return 0, false
			}
			candidates = []string{rhs}
		}
		visited[expr] = true
		defer delete(visited, expr)
		for _, rhs := range candidates {
			if v, ok := r.walk(rhs, depth+1, visited); ok {
				return v, true
			}
		}
		return 0, false
	}
	if r.eval != nil && constExprRe.MatchString(expr) {
		if v, err := r.eval.Eval(expr); err == nil {
			return v, true
		}
	}
	if m := literalPrefixRe.FindString(expr); m != "" {
		return parseLiteral(m)
	}
	return 0, false
}

var (
	identRe         = regexp.MustCompile(`^[A-Za-z_$][\w$]*$`)
	hexRe           = regexp.MustCompile(`^0[xX][0-9a-fA-F]+$`)
	decRe           = regexp.MustCompile(`^\d+$`)
	literalPrefixRe = regexp.MustCompile(`^(?:0[xX][0-9a-fA-F]+|\d+)`)
	constExprRe     = regexp.MustCompile(`^(?:\s*(?:0[xX][0-9a-fA-F]+|\d+|[-+*/%()]))+\s*$`)
)

// parseLiteral parses hex when prefixed with 0x, decimal otherwise.
// Values are limited to 32 bits so cursor arithmetic cannot overflow.
func parseLiteral(s string) (int, bool) {
	var (
		v   int64
		err error
	)
	switch {
	case hexRe.MatchString(s):
		v, err = strconv.ParseInt(s[2:], 16, 32)
	case decRe.MatchString(s):
		v, err = strconv.ParseInt(s, 10, 32)
	default:
		return 0, false
	}
	if err != nil {
		return 0, false
	}
	return int(v), true
}
