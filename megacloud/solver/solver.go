// Package solver provides an optional, script-driven source of key schedules
// for when the built-in scanner no longer understands the player script.
package solver

import (
	"context"
	"fmt"
	"strings"

	"github.com/shahradelahi/aniwatch/megacloud/keyschedule"
)

// Mode defines how the solver is used.
type Mode int

const (
	// Off disables the solver entirely.
	Off Mode = iota
	// Auto runs the solver only after the scanner reports a schema mismatch.
	Auto
	// Force always uses the solver instead of the scanner.
	Force
)

// String returns the lower-case mode name.
func (m Mode) String() string {
	switch m {
	case Off:
		return "off"
	case Auto:
		return "auto"
	case Force:
		return "force"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode parses "off", "auto" or "force".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "off":
		return Off, nil
	case "auto":
		return Auto, nil
	case "force":
		return Force, nil
	default:
		return Off, fmt.Errorf("unknown solver mode %q", s)
	}
}

// Input carries what a solver may inspect.
type Input struct {
	Script        string `json:"script"`
	PayloadLength int    `json:"payloadLength"`
}

// Output is the schedule produced by a solver.
type Output struct {
	Schedule keyschedule.Schedule
}

// Solver produces key schedules from player scripts.
type Solver interface {
	Solve(ctx context.Context, input Input) (Output, error)
}

// Func adapts a plain function to the Solver interface.
type Func func(ctx context.Context, input Input) (Output, error)

// Solve calls f.
func (f Func) Solve(ctx context.Context, input Input) (Output, error) {
	return f(ctx, input)
}
