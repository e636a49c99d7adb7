package keyschedule

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/robertkrimen/otto"
)

// DefaultEvalTimeout bounds a single expression evaluation.
const DefaultEvalTimeout = 100 * time.Millisecond

var errEvalTimeout = errors.New("expression evaluation timed out")

// OttoEvaluator evaluates constant expressions with otto.
// Each call runs in a fresh VM, so it is safe for concurrent use.
type OttoEvaluator struct {
	Timeout time.Duration
}

// NewOttoEvaluator returns an evaluator using DefaultEvalTimeout.
func NewOttoEvaluator() *OttoEvaluator {
	return &OttoEvaluator{Timeout: DefaultEvalTimeout}
}

// Eval evaluates expr and returns it as an integer.
func (e *OttoEvaluator) Eval(expr string) (result int, err error) {
	if !constExprRe.MatchString(expr) {
		return 0, fmt.Errorf("not a constant expression: %q", expr)
	}

	timeout := e.Timeout
	if timeout <= 0 {
		timeout = DefaultEvalTimeout
	}

	vm := otto.New()
	vm.Interrupt = make(chan func(), 1)
	timer := time.AfterFunc(timeout, func() {
		vm.Interrupt <- func() { panic(errEvalTimeout) }
	})
	defer timer.Stop()

	defer func() {
		if caught := recover(); caught != nil {
			if caught == errEvalTimeout {
				result, err = 0, errEvalTimeout
				return
			}
			panic(caught)
		}
	}()

	value, err := vm.Run("(" + expr + ")")
	if err != nil {
		return 0, fmt.Errorf("failed to evaluate %q: %v", expr, err)
	}
	f, err := value.ToFloat()
	if err != nil {
		return 0, fmt.Errorf("expression %q is not numeric: %v", expr, err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, fmt.Errorf("expression %q is not a 32-bit integer: %v", expr, f)
	}
	return int(f), nil
}
