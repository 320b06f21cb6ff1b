package gp

import (
	"context"
	"strings"
	"testing"

	"github.com/me/dfjss/pkg/model"
)

func trainingInstance() *model.Instance {
	a := func(m, d int) model.Alternative { return model.Alternative{Machine: m, Duration: d} }
	op := func(alts ...model.Alternative) model.Operation { return model.Operation{Alternatives: alts} }
	return &model.Instance{
		Name:     "train",
		Machines: 2,
		Jobs: []model.JobSpec{
			{Operations: []model.Operation{op(a(0, 3), a(1, 5)), op(a(1, 2))}},
			{Operations: []model.Operation{op(a(0, 6)), op(a(0, 1), a(1, 4))}},
			{Operations: []model.Operation{op(a(1, 4))}},
		},
		Events: model.Events{
			Breakdowns: []model.Breakdown{{Machine: 1, Start: 3, End: 6}},
		},
	}
}

func smallConfig() Config {
	cfg := DefaultConfig()
	cfg.Population = 12
	cfg.Generations = 3
	cfg.Workers = 2
	cfg.HallOfFame = 3
	return cfg
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"default", func(c *Config) {}, ""},
		{"tiny population", func(c *Config) { c.Population = 1 }, "population"},
		{"elite too large", func(c *Config) { c.Elite = c.Population }, "elite"},
		{"rate out of range", func(c *Config) { c.MutationRate = 1.5 }, "mutation rate"},
		{"depth inverted", func(c *Config) { c.MinDepth, c.MaxDepth = 4, 2 }, "depth range"},
		{"tree limit too small", func(c *Config) { c.MaxTreeDepth = 1 }, "max tree depth"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestNew_RejectsBadInput(t *testing.T) {
	if _, err := New(smallConfig(), nil, nil); err == nil {
		t.Error("New accepted an empty training set")
	}
	bad := trainingInstance()
	bad.Machines = 0
	if _, err := New(smallConfig(), []*model.Instance{bad}, nil); err == nil {
		t.Error("New accepted an invalid instance")
	}
}

func TestEvolve(t *testing.T) {
	e, err := New(smallConfig(), []*model.Instance{trainingInstance(), trainingInstance()}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, err := e.Evolve(context.Background())
	if err != nil {
		t.Fatalf("Evolve: %v", err)
	}
	if len(res.History) != 4 {
		t.Errorf("History has %d generations, want 4", len(res.History))
	}
	if len(res.HallOfFame) == 0 || len(res.HallOfFame) > 3 {
		t.Fatalf("HallOfFame size %d", len(res.HallOfFame))
	}
	for i := 1; i < len(res.HallOfFame); i++ {
		if res.HallOfFame[i].Fitness < res.HallOfFame[i-1].Fitness {
			t.Errorf("hall of fame not sorted: %v", res.HallOfFame)
		}
	}
	want, err := e.Fitness(res.Best.Tree)
	if err != nil {
		t.Fatal(err)
	}
	if res.Best.Fitness != want {
		t.Errorf("best fitness %v, recomputed %v", res.Best.Fitness, want)
	}
	for _, g := range res.History {
		if g.Best < res.Best.Fitness {
			t.Errorf("generation %d best %v beats the hall of fame %v", g.Index, g.Best, res.Best.Fitness)
		}
	}
}

func TestEvolve_SameSeedSameResult(t *testing.T) {
	run := func() string {
		e, err := New(smallConfig(), []*model.Instance{trainingInstance()}, nil)
		if err != nil {
			t.Fatal(err)
		}
		res, err := e.Evolve(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		return res.Best.Tree.String()
	}
	if a, b := run(), run(); a != b {
		t.Errorf("same seed gave %s and %s", a, b)
	}
}

func TestEvolve_Cancelled(t *testing.T) {
	e, err := New(smallConfig(), []*model.Instance{trainingInstance()}, nil)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := e.Evolve(ctx); err != context.Canceled {
		t.Errorf("Evolve error = %v, want context.Canceled", err)
	}
}
