package solver

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dop251/goja"

	"github.com/shahradelahi/aniwatch/megacloud/keyschedule"
)

// GojaSolver executes a user-provided JS file to produce key schedules.
// The script must define a global function `solveSchedule(input)` returning an
// array of [skip, take] pairs or {skip, take} objects. input has the fields
// script and payloadLength.
type GojaSolver struct {
	scriptPath string
}

// NewGojaSolver returns a solver backed by the script at scriptPath.
func NewGojaSolver(scriptPath string) *GojaSolver {
	return &GojaSolver{scriptPath: scriptPath}
}

// Solve runs the script in a fresh VM. Cancelling ctx interrupts it.
func (s *GojaSolver) Solve(ctx context.Context, input Input) (Output, error) {
	if s == nil || s.scriptPath == "" {
		return Output{}, errors.New("goja solver: script path not set")
	}
	script, err := os.ReadFile(s.scriptPath)
	if err != nil {
		return Output{}, fmt.Errorf("read script: %w", err)
	}
	vm := goja.New()

	stop := context.AfterFunc(ctx, func() {
		vm.Interrupt(ctx.Err())
	})
	defer stop()

	// Provide a minimal console.log
	_ = vm.Set("console", map[string]any{
		"log": func(...any) {},
	})
	_ = vm.Set("__solverInput", map[string]any{
		"script":        input.Script,
		"payloadLength": input.PayloadLength,
	})

	if _, err := vm.RunScript(s.scriptPath, string(script)); err != nil {
		return Output{}, fmt.Errorf("run script: %w", err)
	}

	fn, ok := goja.AssertFunction(vm.Get("solveSchedule"))
	if !ok {
		return Output{}, errors.New("solveSchedule function not found in script")
	}
	res, err := fn(goja.Undefined(), vm.Get("__solverInput"))
	if err != nil {
		return Output{}, fmt.Errorf("solveSchedule error: %w", err)
	}
	if goja.IsUndefined(res) || goja.IsNull(res) {
		return Output{}, errors.New("solveSchedule returned undefined/null")
	}

	items, ok := res.Export().([]any)
	if !ok {
		return Output{}, errors.New("solveSchedule must return an array")
	}
	schedule := make(keyschedule.Schedule, 0, len(items))
	for i, item := range items {
		p, err := toPair(item)
		if err != nil {
			return Output{}, fmt.Errorf("pair %d: %w", i, err)
		}
		schedule = append(schedule, p)
	}
	return Output{Schedule: schedule}, nil
}

func toPair(v any) (keyschedule.Pair, error) {
	switch x := v.(type) {
	case []any:
		if len(x) != 2 {
			return keyschedule.Pair{}, fmt.Errorf("expected 2 elements, got %d", len(x))
		}
		skip, ok1 := toInt(x[0])
		take, ok2 := toInt(x[1])
		if !ok1 || !ok2 {
			return keyschedule.Pair{}, errors.New("elements must be integers")
		}
		return keyschedule.Pair{Skip: skip, Take: take}, nil
	case map[string]any:
		skip, ok1 := toInt(x["skip"])
		take, ok2 := toInt(x["take"])
		if !ok1 || !ok2 {
			return keyschedule.Pair{}, errors.New("skip and take must be integers")
		}
		return keyschedule.Pair{Skip: skip, Take: take}, nil
	default:
		return keyschedule.Pair{}, fmt.Errorf("unexpected type %T", v)
	}
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int64:
		return int(n), true
	case float64:
		if n != float64(int64(n)) {
			return 0, false
		}
		return int(n), true
	case int:
		return n, true
	default:
		return 0, false
	}
}
