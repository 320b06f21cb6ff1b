// Package simulation runs one instance under a named rule or an expression
// and packages the outcome for display or storage. The CLI and the HTTP API
// both go through it.
package simulation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/me/dfjss/internal/expr"
	"github.com/me/dfjss/internal/metrics"
	"github.com/me/dfjss/internal/rules"
	"github.com/me/dfjss/internal/scheduler"
	"github.com/me/dfjss/pkg/model"
)

// Request selects the instance and the scorer. Exactly one of Rule and
// Expression must be set.
type Request struct {
	Instance   *model.Instance
	Rule       string
	Expression string
	Seed       uint64
}

// Outcome is a finished simulation.
type Outcome struct {
	Scorer   string
	Instance *model.Instance
	Result   *scheduler.Result
	Metrics  metrics.Summary
	Elapsed  time.Duration
}

// Scorer resolves the scorer named by req and the label it is reported under.
func (req Request) Scorer() (string, scheduler.Scorer, error) {
	rule := strings.TrimSpace(req.Rule)
	src := strings.TrimSpace(req.Expression)
	switch {
	case rule != "" && src != "":
		return "", nil, model.NewValidationError("rule and expression are mutually exclusive",
			model.FieldError{Field: "expression", Message: "set either rule or expression"})
	case rule != "":
		sc, err := rules.Lookup(rule, req.Seed)
		if err != nil {
			return "", nil, model.NewValidationError(err.Error(),
				model.FieldError{Field: "rule", Message: "one of " + strings.Join(rules.Names(), ", ")})
		}
		return canonical(rule), sc, nil
	case src != "":
		prog, err := expr.Compile(src)
		if err != nil {
			return "", nil, model.NewValidationError("invalid expression",
				model.FieldError{Field: "expression", Message: err.Error()})
		}
		sc, err := prog.NewScorer()
		if err != nil {
			return "", nil, err
		}
		return "expr:" + prog.String(), sc, nil
	default:
		return "", nil, model.NewValidationError("missing scorer",
			model.FieldError{Field: "rule", Message: "rule or expression is required"})
	}
}

func canonical(rule string) string {
	for _, n := range rules.Names() {
		if strings.EqualFold(n, rule) {
			return n
		}
	}
	return rule
}

// Run simulates req. Cancelling ctx aborts the run before its next tick and
// interrupts a running expression; Run then returns the context error.
func Run(ctx context.Context, req Request, opts ...scheduler.Option) (*Outcome, error) {
	if req.Instance == nil {
		return nil, model.NewValidationError("missing instance", model.FieldError{Field: "instance", Message: "instance is required"})
	}
	if verr := req.Instance.Validate(); verr != nil {
		return nil, verr
	}
	name, sc, err := req.Scorer()
	if err != nil {
		return nil, err
	}

	if js, ok := sc.(*expr.Scorer); ok {
		stop := context.AfterFunc(ctx, func() { js.Interrupt("simulation cancelled") })
		defer stop()
	}
	opts = append(opts[:len(opts):len(opts)], scheduler.WithStop(ctx.Err))

	start := time.Now()
	res, err := scheduler.Simulate(req.Instance, sc, opts...)
	elapsed := time.Since(start)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("simulate %s: %w", req.Instance.Name, err)
	}
	return &Outcome{
		Scorer:   name,
		Instance: req.Instance,
		Result:   res,
		Metrics:  metrics.Summarize(req.Instance, res),
		Elapsed:  elapsed,
	}, nil
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return "run_" + uuid.New().String()
}

// Record converts the outcome into a persistable run with a new ID.
func (o *Outcome) Record() *model.Run {
	state := model.RunStateCompleted
	if o.Result.Capped {
		state = model.RunStateCapped
	}
	return &model.Run{
		ID:         NewRunID(),
		Instance:   o.Instance.Name,
		Scorer:     o.Scorer,
		State:      state,
		Makespan:   o.Result.Makespan,
		Diagnostic: o.Result.Diagnostic,
		Ticks:      o.Result.Ticks,
		Jobs:       o.Result.Jobs,
		Cancelled:  o.Result.Cancelled,
		Metrics:    o.Metrics.Map(),
		Schedule:   o.Result.Schedule,
		Elapsed:    o.Elapsed,
		CreatedAt:  time.Now().UTC(),
	}
}

// Failed builds the run recorded when a simulation could not start.
func Failed(instance, scorer string, err error) *model.Run {
	return &model.Run{
		ID:         NewRunID(),
		Instance:   instance,
		Scorer:     scorer,
		State:      model.RunStateFailed,
		Diagnostic: err.Error(),
		Metrics:    map[string]float64{},
		CreatedAt:  time.Now().UTC(),
	}
}
