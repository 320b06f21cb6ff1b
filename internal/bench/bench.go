// Package bench evaluates scorers over sets of instances.
package bench

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/me/dfjss/internal/expr"
	"github.com/me/dfjss/internal/logging"
	"github.com/me/dfjss/internal/metrics"
	"github.com/me/dfjss/internal/rules"
	"github.com/me/dfjss/internal/scheduler"
	"github.com/me/dfjss/internal/workpool"
	"github.com/me/dfjss/pkg/model"
)

// Contender names a scorer and builds a fresh instance of it per run, since
// stateful scorers (Random, expressions) must not be shared between goroutines.
type Contender struct {
	Name string
	New  func() (scheduler.Scorer, error)
}

// Rules returns contenders for the named rules. Every run of the Random
// rule starts from the same seed.
func Rules(names []string, seed uint64) ([]Contender, error) {
	out := make([]Contender, 0, len(names))
	for _, name := range names {
		if _, err := rules.Lookup(name, seed); err != nil {
			return nil, err
		}
		out = append(out, Contender{Name: name, New: func() (scheduler.Scorer, error) {
			return rules.Lookup(name, seed)
		}})
	}
	return out, nil
}

// Expression returns a contender evaluating a compiled expression.
func Expression(name, src string) (Contender, error) {
	prog, err := expr.Compile(src)
	if err != nil {
		return Contender{}, err
	}
	return Contender{Name: name, New: func() (scheduler.Scorer, error) {
		return prog.NewScorer()
	}}, nil
}

// Record is the outcome of one scorer on one instance.
type Record struct {
	Scorer   string
	Instance string
	Makespan int
	Capped   bool
	Metrics  metrics.Summary
	Elapsed  time.Duration
	Err      error
}

// Runner evaluates contenders concurrently.
type Runner struct {
	Workers int
	Options []scheduler.Option
	Logger  *slog.Logger
}

// Run simulates every contender on every instance. Records are ordered by
// contender, then instance, whatever the completion order. A failing
// simulation is reported in its record and does not stop the others.
func (r Runner) Run(ctx context.Context, instances []*model.Instance, contenders []Contender) ([]Record, error) {
	logger := r.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	logger = logger.With("component", "bench")

	records := make([]Record, len(contenders)*len(instances))
	err := workpool.Run(ctx, r.Workers, len(records), func(i int) {
		c, inst := contenders[i/len(instances)], instances[i%len(instances)]
		rec := r.one(ctx, c, inst)
		records[i] = rec
		if rec.Err != nil {
			logger.Warn("simulation failed", "scorer", c.Name, "instance", inst.Name, "error", rec.Err)
			return
		}
		logger.Debug("simulation done", "scorer", c.Name, "instance", inst.Name,
			"makespan", rec.Makespan, "capped", rec.Capped, "elapsed", rec.Elapsed)
	})
	if err != nil {
		return nil, fmt.Errorf("bench: %w", err)
	}
	return records, nil
}

func (r Runner) one(ctx context.Context, c Contender, inst *model.Instance) Record {
	rec := Record{Scorer: c.Name, Instance: inst.Name}
	scorer, err := c.New()
	if err != nil {
		rec.Err = err
		return rec
	}
	start := time.Now()
	opts := append(r.Options[:len(r.Options):len(r.Options)], scheduler.WithStop(ctx.Err))
	res, err := scheduler.Simulate(inst, scorer, opts...)
	rec.Elapsed = time.Since(start)
	if err != nil {
		rec.Err = err
		return rec
	}
	rec.Makespan = res.Makespan
	rec.Capped = res.Capped
	rec.Metrics = metrics.Summarize(inst, res)
	return rec
}

// Aggregate summarizes the records of one contender.
type Aggregate struct {
	Scorer   string
	Runs     int
	Failed   int
	Capped   int
	Makespan metrics.IntStats
	IdleAvg  metrics.FloatStats
	WaitAvg  metrics.FloatStats
	TimeMs   metrics.FloatStats
}

// Summarize groups records by contender in first-seen order. Failed runs
// are counted but excluded from the statistics.
func Summarize(records []Record) []Aggregate {
	type acc struct {
		agg              Aggregate
		ms               []int
		idle, wait, time []float64
	}
	var order []string
	byName := make(map[string]*acc)
	for _, rec := range records {
		a, ok := byName[rec.Scorer]
		if !ok {
			a = &acc{agg: Aggregate{Scorer: rec.Scorer}}
			byName[rec.Scorer] = a
			order = append(order, rec.Scorer)
		}
		a.agg.Runs++
		if rec.Err != nil {
			a.agg.Failed++
			continue
		}
		if rec.Capped {
			a.agg.Capped++
		}
		a.ms = append(a.ms, rec.Makespan)
		a.idle = append(a.idle, rec.Metrics.IdleAvg)
		a.wait = append(a.wait, rec.Metrics.WaitAvg)
		a.time = append(a.time, float64(rec.Elapsed.Microseconds())/1000.0)
	}

	out := make([]Aggregate, 0, len(order))
	for _, name := range order {
		a := byName[name]
		a.agg.Makespan = metrics.CalcIntStats(a.ms)
		a.agg.IdleAvg = metrics.CalcFloatStats(a.idle)
		a.agg.WaitAvg = metrics.CalcFloatStats(a.wait)
		a.agg.TimeMs = metrics.CalcFloatStats(a.time)
		out = append(out, a.agg)
	}
	return out
}
