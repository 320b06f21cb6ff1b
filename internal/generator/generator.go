// Package generator derives dynamic instances from static ones by adding
// machine breakdowns, job cancellations, new jobs and ETPC constraints.
package generator

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"slices"

	"github.com/me/dfjss/internal/logging"
	"github.com/me/dfjss/internal/rules"
	"github.com/me/dfjss/internal/scheduler"
	"github.com/me/dfjss/pkg/model"
)

// Params controls how many events are generated. Probabilities are per
// candidate event; Max* fractions scale the number of candidates by the
// number of jobs (or, for MaxBreakdownTime, the horizon).
type Params struct {
	BreakdownProb    float64
	CancelProb       float64
	CreateProb       float64
	MaxBreakdowns    float64
	MaxBreakdownTime float64
	MaxAddedJobs     float64
	ETPCConstraints  float64
	Seed             uint64
}

// DefaultParams returns moderate dynamics.
func DefaultParams() Params {
	return Params{
		BreakdownProb:    0.2,
		CancelProb:       0.1,
		CreateProb:       0.3,
		MaxBreakdowns:    0.2,
		MaxBreakdownTime: 0.05,
		MaxAddedJobs:     0.2,
		Seed:             1,
	}
}

// Validate checks that probabilities lie in [0,1] and fractions are non-negative.
func (p Params) Validate() error {
	var errs []error
	for name, v := range map[string]float64{
		"breakdown probability": p.BreakdownProb,
		"cancel probability":    p.CancelProb,
		"create probability":    p.CreateProb,
	} {
		if v < 0 || v > 1 {
			errs = append(errs, fmt.Errorf("%s must be in [0,1] (got %g)", name, v))
		}
	}
	for name, v := range map[string]float64{
		"max breakdowns":     p.MaxBreakdowns,
		"max breakdown time": p.MaxBreakdownTime,
		"max added jobs":     p.MaxAddedJobs,
		"etpc constraints":   p.ETPCConstraints,
	} {
		if v < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative (got %g)", name, v))
		}
	}
	return errors.Join(errs...)
}

// Generator produces dynamic variants of static instances.
type Generator struct {
	params Params
	rng    *rand.Rand
	logger *slog.Logger
}

// New creates a Generator. Variants drawn from the same seed are identical.
func New(params Params, logger *slog.Logger) (*Generator, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("generator params: %w", err)
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Generator{
		params: params,
		rng:    rand.New(rand.NewPCG(params.Seed, params.Seed^0x5eed)),
		logger: logger.With("component", "generator"),
	}, nil
}

// machineStats holds per-machine processing time figures over every alternative.
type machineStats struct {
	avg      float64
	min, max int
}

// Horizon returns the SPT makespan of the static part of inst scaled by 1.2.
// Event times are drawn relative to it.
func Horizon(inst *model.Instance) (int, error) {
	static := inst.Clone()
	static.Events = model.Events{}
	spt, err := rules.Lookup("SPT", 0)
	if err != nil {
		return 0, err
	}
	res, err := scheduler.Simulate(static, spt)
	if err != nil {
		return 0, fmt.Errorf("horizon of %s: %w", inst.Name, err)
	}
	return int(1.2 * float64(res.Makespan)), nil
}

// Generate returns a copy of static whose events are replaced by generated ones.
func (g *Generator) Generate(static *model.Instance, name string) (*model.Instance, error) {
	if verr := static.Validate(); verr != nil {
		return nil, fmt.Errorf("static instance %s: %w", static.Name, verr)
	}
	if len(static.Jobs) == 0 {
		return nil, fmt.Errorf("static instance %s has no initial jobs", static.Name)
	}
	horizon, err := Horizon(static)
	if err != nil {
		return nil, err
	}

	out := static.Clone()
	out.Name = name
	out.Events = model.Events{}
	stats := g.machineStats(static)

	out.Events.Breakdowns = g.breakdowns(static, stats, horizon)
	out.Events.Cancellations = g.cancellations(len(static.Jobs), horizon)
	out.Events.Arrivals = g.arrivals(static, stats, horizon)
	out.Events.ETPC = g.etpc(static, stats)

	if verr := out.Validate(); verr != nil {
		return nil, fmt.Errorf("generated instance %s: %w", name, verr)
	}
	g.logger.Debug("instance generated", "name", name, "horizon", horizon,
		"breakdowns", len(out.Events.Breakdowns), "arrivals", len(out.Events.Arrivals),
		"cancellations", len(out.Events.Cancellations), "etpc", len(out.Events.ETPC))
	return out, nil
}

func (g *Generator) machineStats(inst *model.Instance) []machineStats {
	sum := make([]int, inst.Machines)
	count := make([]int, inst.Machines)
	stats := make([]machineStats, inst.Machines)
	globalMin, globalMax := math.MaxInt, 0
	for _, j := range inst.Jobs {
		for _, op := range j.Operations {
			for _, a := range op.Alternatives {
				if a.Duration <= 0 {
					continue
				}
				m := a.Machine
				if count[m] == 0 {
					stats[m].min, stats[m].max = a.Duration, a.Duration
				}
				stats[m].min = min(stats[m].min, a.Duration)
				stats[m].max = max(stats[m].max, a.Duration)
				sum[m] += a.Duration
				count[m]++
				globalMin = min(globalMin, a.Duration)
				globalMax = max(globalMax, a.Duration)
			}
		}
	}
	for m := range stats {
		if count[m] == 0 {
			stats[m].min, stats[m].max = globalMin, globalMax
			continue
		}
		stats[m].avg = float64(sum[m]) / float64(count[m])
	}
	return stats
}

// between draws uniformly from [lo, hi], returning lo when the range is empty.
func (g *Generator) between(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + g.rng.IntN(hi-lo+1)
}

func (g *Generator) chance(p float64) bool {
	return g.rng.Float64() < p
}

// breakdowns places each machine's breakdowns in distinct segments of the
// horizon, spaced apart and bounded by a total downtime budget.
func (g *Generator) breakdowns(inst *model.Instance, stats []machineStats, horizon int) []model.Breakdown {
	var out []model.Breakdown
	jobs := len(inst.Jobs)
	maxDuration := max(1, int(float64(horizon)*g.params.MaxBreakdownTime))
	candidates := int(g.params.MaxBreakdowns * float64(jobs))

	for m := range inst.Machines {
		avg := stats[m].avg
		occurring := 0
		for range candidates {
			if g.chance(g.params.BreakdownProb) {
				occurring++
			}
		}
		segment := max(1, int(4*avg))
		segments := g.rng.Perm(int(math.Ceil(float64(horizon) / float64(segment))))

		var placed []model.Breakdown
		total, lastEnd := 0, 0
		for i := 0; i < occurring && len(segments) > 0; i++ {
			seg := segments[len(segments)-1]
			segments = segments[:len(segments)-1]

			lower := seg * segment
			upper := min((seg+1)*segment, horizon)
			if lastEnd > 0 {
				lower = max(lower, lastEnd+int(0.1*float64(jobs)*avg))
			}
			if lower >= upper {
				continue
			}
			if total >= maxDuration {
				break
			}
			start := g.between(lower, upper)
			duration := max(1, min(maxDuration, g.between(int(4*avg), int(10*avg))))
			placed = append(placed, model.Breakdown{Machine: m, Start: start, End: start + duration})
			total += duration
			lastEnd = start + duration
		}
		slices.SortFunc(placed, func(a, b model.Breakdown) int { return a.Start - b.Start })
		out = append(out, placed...)
	}
	return out
}

func (g *Generator) cancellations(jobs, horizon int) []model.JobCancellation {
	var out []model.JobCancellation
	for j := range jobs {
		if g.chance(g.params.CancelProb) {
			out = append(out, model.JobCancellation{Time: g.between(0, int(0.65*float64(horizon))), Job: j})
		}
	}
	return out
}

// arrivals creates new jobs shaped like the existing ones: operation and
// alternative counts within the observed ranges, times within each machine's range.
func (g *Generator) arrivals(inst *model.Instance, stats []machineStats, horizon int) []model.JobArrival {
	minOps, maxOps := math.MaxInt, 0
	minAlts, maxAlts := math.MaxInt, 0
	for _, j := range inst.Jobs {
		minOps, maxOps = min(minOps, len(j.Operations)), max(maxOps, len(j.Operations))
		for _, op := range j.Operations {
			minAlts, maxAlts = min(minAlts, len(op.Alternatives)), max(maxAlts, len(op.Alternatives))
		}
	}
	maxAlts = min(maxAlts, inst.Machines)
	minAlts = min(minAlts, maxAlts)

	var out []model.JobArrival
	candidates := int(g.params.MaxAddedJobs * float64(len(inst.Jobs)))
	for range candidates {
		if !g.chance(g.params.CreateProb) {
			continue
		}
		at := g.between(int(0.05*float64(horizon)), int(0.4*float64(horizon)))
		ops := make([]model.Operation, g.between(minOps, maxOps))
		for k := range ops {
			machines := g.rng.Perm(inst.Machines)[:g.between(minAlts, maxAlts)]
			alts := make([]model.Alternative, len(machines))
			for i, m := range machines {
				alts[i] = model.Alternative{Machine: m, Duration: max(1, g.between(stats[m].min, stats[m].max))}
			}
			ops[k].Alternatives = alts
		}
		out = append(out, model.JobArrival{Time: at, Operations: ops})
	}
	return out
}

// etpc links random operations of lower-indexed jobs to operations of
// higher-indexed jobs, which keeps the precedence graph acyclic.
func (g *Generator) etpc(inst *model.Instance, stats []machineStats) []model.ETPCConstraint {
	jobs := len(inst.Jobs)
	if jobs < 2 {
		return nil
	}
	avg := 0.0
	for _, s := range stats {
		avg += s.avg
	}
	avg /= float64(len(stats))

	var out []model.ETPCConstraint
	seen := make(map[[2]model.OpRef]bool)
	for range int(g.params.ETPCConstraints * float64(jobs)) {
		fore := g.rng.IntN(jobs - 1)
		hind := g.between(fore+1, jobs-1)
		c := model.ETPCConstraint{
			ForeJob: fore,
			ForeOp:  g.rng.IntN(len(inst.Jobs[fore].Operations)),
			HindJob: hind,
			HindOp:  g.rng.IntN(len(inst.Jobs[hind].Operations)),
			Lapse:   g.between(0, int(avg)),
		}
		key := [2]model.OpRef{{Job: c.ForeJob, Op: c.ForeOp}, {Job: c.HindJob, Op: c.HindOp}}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, c)
	}
	return out
}
