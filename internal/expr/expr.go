// Package expr compiles priority expressions written in JavaScript into
// scheduler scorers. An expression sees the candidate features as the
// variables PT, RO, MW, TQ, WIP, RPT, NOW and ARR, plus the helper functions
// add, sub, mul, protected_div, neg, min and max used by evolved rules.
package expr

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/dop251/goja"

	"github.com/me/dfjss/internal/scheduler"
)

// Variables lists the feature names an expression may reference.
var Variables = []string{"PT", "RO", "MW", "TQ", "WIP", "RPT", "NOW", "ARR"}

// Functions lists the helpers defined by the prelude.
var Functions = []string{"add", "sub", "mul", "protected_div", "neg", "min", "max"}

// prelude defines the helper functions. protected_div returns the dividend
// unchanged when the divisor is (nearly) zero.
const prelude = `
function add(a, b) { return a + b; }
function sub(a, b) { return a - b; }
function mul(a, b) { return a * b; }
function protected_div(a, b) { return Math.abs(b) <= 1e-9 ? a : a / b; }
function neg(a) { return -a; }
function min(a, b) { return Math.min(a, b); }
function max(a, b) { return Math.max(a, b); }
`

var preludeProgram = goja.MustCompile("prelude", prelude, true)

// Program is a compiled expression. It is immutable and may be shared;
// each scorer created from it owns its own JavaScript runtime.
type Program struct {
	source string
	prog   *goja.Program
}

// Compile parses src and checks that it evaluates to a number for a
// neutral set of features.
func Compile(src string) (*Program, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return nil, errors.New("compile expression: empty source")
	}
	prog, err := goja.Compile("expression", src, true)
	if err != nil {
		return nil, fmt.Errorf("compile expression: %w", err)
	}
	p := &Program{source: src, prog: prog}

	s, err := p.NewScorer()
	if err != nil {
		return nil, err
	}
	if _, err := s.Score(scheduler.Features{PT: 1, RO: 1, RPT: 1, MinPT: 1}); err != nil {
		return nil, fmt.Errorf("compile expression: %w", err)
	}
	return p, nil
}

// Source returns the expression text.
func (p *Program) Source() string { return p.source }

// String implements fmt.Stringer.
func (p *Program) String() string { return p.source }

// Scorer evaluates a Program against candidate features.
// It is not safe for concurrent use.
type Scorer struct {
	program *Program
	vm      *goja.Runtime
}

// NewScorer returns a scorer with a fresh runtime.
func (p *Program) NewScorer() (*Scorer, error) {
	vm := goja.New()
	if _, err := vm.RunProgram(preludeProgram); err != nil {
		return nil, fmt.Errorf("load prelude: %w", err)
	}
	return &Scorer{program: p, vm: vm}, nil
}

// Score implements scheduler.Scorer. Exceptions and non-numeric results
// are returned as errors.
func (s *Scorer) Score(f scheduler.Features) (float64, error) {
	vars := [...]struct {
		name  string
		value int
	}{
		{"PT", f.PT}, {"RO", f.RO}, {"MW", f.MW}, {"TQ", f.TQ},
		{"WIP", f.WIP}, {"RPT", f.RPT}, {"NOW", f.Now}, {"ARR", f.Arrival},
	}
	for _, v := range vars {
		if err := s.vm.Set(v.name, v.value); err != nil {
			return 0, fmt.Errorf("set %s: %w", v.name, err)
		}
	}

	v, err := s.vm.RunProgram(s.program.prog)
	if err != nil {
		return 0, fmt.Errorf("evaluate %q: %w", s.program.source, err)
	}
	return toFloat(v)
}

// Interrupt aborts the evaluation in progress, if any. The next Score call
// fails with the given reason. Safe to call from another goroutine.
func (s *Scorer) Interrupt(reason string) {
	s.vm.Interrupt(reason)
}

func toFloat(v goja.Value) (float64, error) {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return 0, errors.New("expression produced no value")
	}
	switch x := v.Export().(type) {
	case int64:
		return float64(x), nil
	case float64:
		if math.IsNaN(x) {
			return 0, errors.New("expression produced NaN")
		}
		return x, nil
	default:
		return 0, fmt.Errorf("expression produced %s, want a number", v.ExportType())
	}
}
