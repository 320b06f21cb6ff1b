package gp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/me/dfjss/internal/logging"
	"github.com/me/dfjss/internal/scheduler"
	"github.com/me/dfjss/internal/workpool"
	"github.com/me/dfjss/pkg/model"
)

// Individual is a tree with its fitness, the mean makespan over the training set.
type Individual struct {
	Tree    Tree
	Fitness float64
}

// Generation summarizes one generation.
type Generation struct {
	Index       int
	Best        float64
	Mean        float64
	Evaluations int
}

// Result is the outcome of Evolve.
type Result struct {
	Best        Individual
	HallOfFame  []Individual
	History     []Generation
	Evaluations int
	Duration    time.Duration
}

// Evolver searches for a tree that minimizes mean makespan.
type Evolver struct {
	cfg       Config
	instances []*model.Instance
	simOpts   []scheduler.Option
	logger    *slog.Logger
	rng       *rand.Rand

	cache map[string]float64
}

// New validates cfg and prepares an evolver over the training instances.
// simOpts are applied to every simulation used for fitness.
func New(cfg Config, instances []*model.Instance, logger *slog.Logger, simOpts ...scheduler.Option) (*Evolver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("gp config: %w", err)
	}
	if len(instances) == 0 {
		return nil, errors.New("gp: no training instances")
	}
	for _, inst := range instances {
		if verr := inst.Validate(); verr != nil {
			return nil, fmt.Errorf("training instance %s: %w", inst.Name, verr)
		}
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Evolver{
		cfg:       cfg,
		instances: instances,
		simOpts:   simOpts,
		logger:    logger.With("component", "gp"),
		rng:       rand.New(rand.NewPCG(cfg.Seed, cfg.Seed+1)),
		cache:     make(map[string]float64),
	}, nil
}

// Fitness returns the mean makespan of t over the training instances.
func (e *Evolver) Fitness(t Tree) (float64, error) {
	return e.fitness(t, e.simOpts)
}

func (e *Evolver) fitness(t Tree, opts []scheduler.Option) (float64, error) {
	total := 0
	for _, inst := range e.instances {
		res, err := scheduler.Simulate(inst, t, opts...)
		if err != nil {
			return 0, fmt.Errorf("simulate %s: %w", inst.Name, err)
		}
		total += res.Makespan
	}
	return float64(total) / float64(len(e.instances)), nil
}

// Evolve runs the configured number of generations. On cancellation it returns
// the best individual found so far together with the context error.
func (e *Evolver) Evolve(ctx context.Context) (*Result, error) {
	start := time.Now()
	res := &Result{}

	pop := make([]Individual, e.cfg.Population)
	for i := range pop {
		if i%2 == 0 {
			pop[i].Tree = Full(e.rng, e.cfg.MinDepth, e.cfg.MaxDepth)
		} else {
			pop[i].Tree = Grow(e.rng, e.cfg.MinDepth, e.cfg.MaxDepth)
		}
	}

	for gen := 0; ; gen++ {
		evals, err := e.evaluate(ctx, pop)
		res.Evaluations += evals
		if err != nil {
			res.Duration = time.Since(start)
			return res, err
		}
		res.HallOfFame = e.updateHallOfFame(res.HallOfFame, pop)
		res.Best = res.HallOfFame[0]

		g := summarize(gen, pop, evals)
		res.History = append(res.History, g)
		e.logger.Info("generation evaluated", "gen", gen, "best", g.Best, "mean", g.Mean,
			"evaluations", evals, "hof_best", res.Best.Fitness)

		if gen == e.cfg.Generations {
			break
		}
		if err := ctx.Err(); err != nil {
			res.Duration = time.Since(start)
			return res, err
		}
		pop = e.breed(pop)
	}

	res.Duration = time.Since(start)
	e.logger.Info("evolution finished", "best", res.Best.Tree.String(), "fitness", res.Best.Fitness,
		"evaluations", res.Evaluations, "duration", res.Duration)
	return res, nil
}

// evaluate fills in fitness for individuals whose tree has not been seen.
func (e *Evolver) evaluate(ctx context.Context, pop []Individual) (int, error) {
	var pending []int
	keys := make([]string, len(pop))
	queued := make(map[string]bool)
	for i := range pop {
		keys[i] = pop[i].Tree.String()
		if _, ok := e.cache[keys[i]]; !ok && !queued[keys[i]] {
			queued[keys[i]] = true
			pending = append(pending, i)
		}
	}

	fitness := make([]float64, len(pending))
	errs := make([]error, len(pending))
	opts := append(e.simOpts[:len(e.simOpts):len(e.simOpts)], scheduler.WithStop(ctx.Err))
	if err := workpool.Run(ctx, e.cfg.Workers, len(pending), func(k int) {
		fitness[k], errs[k] = e.fitness(pop[pending[k]].Tree, opts)
	}); err != nil {
		return 0, err
	}
	if err := errors.Join(errs...); err != nil {
		return 0, err
	}
	for k, i := range pending {
		e.cache[keys[i]] = fitness[k]
	}
	for i := range pop {
		pop[i].Fitness = e.cache[keys[i]]
	}
	return len(pending), nil
}

// breed produces the next generation: elites first, then tournament
// winners varied by crossover and mutation.
func (e *Evolver) breed(pop []Individual) []Individual {
	fitness := make([]float64, len(pop))
	for i := range pop {
		fitness[i] = pop[i].Fitness
	}
	next := make([]Individual, 0, len(pop))
	for _, ind := range sortedByFitness(pop)[:e.cfg.Elite] {
		next = append(next, Individual{Tree: ind.Tree.Clone(), Fitness: ind.Fitness})
	}

	for len(next) < len(pop) {
		a := pop[tournamentSelect(fitness, e.cfg.TournamentSize, e.rng)].Tree
		b := pop[tournamentSelect(fitness, e.cfg.TournamentSize, e.rng)].Tree
		ca, cb := a, b
		if e.rng.Float64() < e.cfg.CrossoverRate {
			ca, cb = crossover(a, b, e.rng)
		}
		if e.rng.Float64() < e.cfg.MutationRate {
			ca = mutate(ca, e.rng, e.cfg.MinDepth, e.cfg.MaxDepth)
		}
		if e.rng.Float64() < e.cfg.MutationRate {
			cb = mutate(cb, e.rng, e.cfg.MinDepth, e.cfg.MaxDepth)
		}
		if ca.Height() > e.cfg.MaxTreeDepth {
			ca = a
		}
		if cb.Height() > e.cfg.MaxTreeDepth {
			cb = b
		}
		next = append(next, Individual{Tree: ca.Clone()})
		if len(next) < len(pop) {
			next = append(next, Individual{Tree: cb.Clone()})
		}
	}
	return next
}

// updateHallOfFame merges pop into hof, keeping the best distinct trees.
func (e *Evolver) updateHallOfFame(hof, pop []Individual) []Individual {
	seen := make(map[string]bool)
	merged := make([]Individual, 0, len(hof)+len(pop))
	for _, ind := range slices.Concat(hof, sortedByFitness(pop)) {
		key := ind.Tree.String()
		if seen[key] {
			continue
		}
		seen[key] = true
		merged = append(merged, ind)
	}
	merged = sortedByFitness(merged)
	return merged[:min(len(merged), e.cfg.HallOfFame)]
}

func sortedByFitness(pop []Individual) []Individual {
	out := slices.Clone(pop)
	slices.SortStableFunc(out, func(a, b Individual) int {
		switch {
		case a.Fitness < b.Fitness:
			return -1
		case a.Fitness > b.Fitness:
			return 1
		}
		return 0
	})
	return out
}

func summarize(gen int, pop []Individual, evals int) Generation {
	g := Generation{Index: gen, Best: pop[0].Fitness, Evaluations: evals}
	sum := 0.0
	for _, ind := range pop {
		g.Best = min(g.Best, ind.Fitness)
		sum += ind.Fitness
	}
	g.Mean = sum / float64(len(pop))
	return g
}
