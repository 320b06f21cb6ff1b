// Package rules provides the classic dispatching rules as scheduler scorers.
package rules

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"

	"github.com/me/dfjss/internal/scheduler"
)

// Rule is a named, stateless priority function. Lower values are dispatched first.
type Rule struct {
	Name        string
	Description string
	priority    func(f scheduler.Features) float64
}

// Score implements scheduler.Scorer.
func (r Rule) Score(f scheduler.Features) (float64, error) {
	return r.priority(f), nil
}

var builtin = []Rule{
	{"SPT", "shortest processing time on this machine", func(f scheduler.Features) float64 {
		return float64(f.PT)
	}},
	{"LPT", "longest processing time on this machine", func(f scheduler.Features) float64 {
		return -float64(f.PT)
	}},
	{"FIFO", "earliest job arrival first", func(f scheduler.Features) float64 {
		return float64(f.Arrival)
	}},
	{"LIFO", "latest job arrival first", func(f scheduler.Features) float64 {
		return -float64(f.Arrival)
	}},
	{"SRPT", "shortest remaining processing time of the job", func(f scheduler.Features) float64 {
		return float64(f.RPT)
	}},
	{"LRPT", "longest remaining processing time of the job", func(f scheduler.Features) float64 {
		return -float64(f.RPT)
	}},
	{"OPR", "fewest operations remaining, this one included", func(f scheduler.Features) float64 {
		return float64(f.RO + 1)
	}},
	{"ECT", "earliest estimated job completion time", func(f scheduler.Features) float64 {
		return float64(f.Now + f.PT + f.RPT - f.MinPT)
	}},
	{"LLM", "least loaded machine: time the machine still owes its running operation", func(f scheduler.Features) float64 {
		return float64(f.Load)
	}},
}

// RandomName is the name of the seeded random rule.
const RandomName = "Random"

// random draws a uniform priority for every candidate.
type random struct {
	rng *rand.Rand
}

func (r *random) Score(scheduler.Features) (float64, error) {
	return r.rng.Float64(), nil
}

// Lookup returns the scorer registered under name (case-insensitive).
// seed only affects the Random rule. The returned scorer must not be shared
// between concurrent simulations when it is Random.
func Lookup(name string, seed uint64) (scheduler.Scorer, error) {
	if strings.EqualFold(name, RandomName) {
		return &random{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}, nil
	}
	for _, r := range builtin {
		if strings.EqualFold(r.Name, name) {
			return r, nil
		}
	}
	return nil, fmt.Errorf("unknown rule %q (known: %s)", name, strings.Join(Names(), ", "))
}

// Names returns every rule name in registration order, Random last.
func Names() []string {
	names := make([]string, 0, len(builtin)+1)
	for _, r := range builtin {
		names = append(names, r.Name)
	}
	return append(names, RandomName)
}

// All returns the deterministic rules.
func All() []Rule {
	return slices.Clone(builtin)
}
