package rules

import (
	"strings"
	"testing"

	"github.com/me/dfjss/internal/scheduler"
	"github.com/me/dfjss/pkg/model"
)

func TestRule_Priorities(t *testing.T) {
	f := scheduler.Features{PT: 4, RO: 2, RPT: 10, MinPT: 3, Now: 7, Arrival: 5, Load: 6}
	tests := []struct {
		name string
		want float64
	}{
		{"SPT", 4},
		{"LPT", -4},
		{"FIFO", 5},
		{"LIFO", -5},
		{"SRPT", 10},
		{"LRPT", -10},
		{"OPR", 3},
		{"ECT", 7 + 4 + 10 - 3},
		{"LLM", 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Lookup(tt.name, 0)
			if err != nil {
				t.Fatalf("Lookup: %v", err)
			}
			got, err := s.Score(f)
			if err != nil {
				t.Fatalf("Score: %v", err)
			}
			if got != tt.want {
				t.Errorf("Score = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLookup(t *testing.T) {
	if _, err := Lookup("spt", 0); err != nil {
		t.Errorf("Lookup is case-insensitive, got %v", err)
	}
	_, err := Lookup("EDD", 0)
	if err == nil || !strings.Contains(err.Error(), "unknown rule") {
		t.Errorf("Lookup(EDD) error = %v", err)
	}
}

func TestRandom_SeedIsReproducible(t *testing.T) {
	a, _ := Lookup(RandomName, 42)
	b, _ := Lookup(RandomName, 42)
	for i := range 5 {
		x, _ := a.Score(scheduler.Features{})
		y, _ := b.Score(scheduler.Features{})
		if x != y {
			t.Fatalf("draw %d differs: %v vs %v", i, x, y)
		}
		if x < 0 || x >= 1 {
			t.Fatalf("draw %d out of [0,1): %v", i, x)
		}
	}
}

func TestNames(t *testing.T) {
	names := Names()
	if names[0] != "SPT" || names[len(names)-1] != RandomName {
		t.Errorf("Names() = %v", names)
	}
	if len(All()) != len(names)-1 {
		t.Errorf("All() has %d rules, want %d", len(All()), len(names)-1)
	}
}

func TestRules_DriveSimulation(t *testing.T) {
	inst := &model.Instance{
		Machines: 1,
		Jobs: []model.JobSpec{
			{Operations: []model.Operation{{Alternatives: []model.Alternative{{Machine: 0, Duration: 6}}}}},
			{Operations: []model.Operation{{Alternatives: []model.Alternative{{Machine: 0, Duration: 2}}}}},
		},
	}
	tests := []struct {
		rule     string
		firstJob int
	}{
		{"SPT", 1},
		{"LPT", 0},
		{"LLM", 0}, // the dispatching machine is idle, so every candidate ties
	}
	for _, tt := range tests {
		s, _ := Lookup(tt.rule, 0)
		res, err := scheduler.Simulate(inst, s)
		if err != nil {
			t.Fatalf("%s: %v", tt.rule, err)
		}
		if res.Schedule[0].Job != tt.firstJob {
			t.Errorf("%s: first job = %d, want %d", tt.rule, res.Schedule[0].Job, tt.firstJob)
		}
		if res.Makespan != 8 {
			t.Errorf("%s: makespan = %d, want 8", tt.rule, res.Makespan)
		}
	}
}
