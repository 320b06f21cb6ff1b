package expr

import (
	"strings"
	"testing"
	"time"

	"github.com/me/dfjss/internal/scheduler"
)

func TestCompile(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		wantErr string
	}{
		{"terminal", "PT", ""},
		{"nested helpers", "add(mul(PT, RO), protected_div(MW, TQ))", ""},
		{"plain javascript", "PT * 2 + (WIP > 1 ? RPT : NOW)", ""},
		{"empty", "  ", "empty source"},
		{"syntax error", "add(PT,", "compile expression"},
		{"unknown identifier", "FOO + 1", "FOO"},
		{"string result", "'fast'", "want a number"},
		{"undefined result", "undefined", "no value"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Compile(tt.src)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Compile(%q) = %v", tt.src, err)
				}
				if p.Source() != strings.TrimSpace(tt.src) {
					t.Errorf("Source() = %q", p.Source())
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Compile(%q) error = %v, want containing %q", tt.src, err, tt.wantErr)
			}
		})
	}
}

func TestScorer_Score(t *testing.T) {
	f := scheduler.Features{PT: 4, RO: 2, MW: 3, TQ: 0, WIP: 1, RPT: 9, Now: 12, Arrival: 5}
	tests := []struct {
		src  string
		want float64
	}{
		{"PT", 4},
		{"neg(RPT)", -9},
		{"sub(NOW, ARR)", 7},
		{"protected_div(MW, TQ)", 3},
		{"protected_div(PT, RO)", 2},
		{"max(PT, min(MW, WIP))", 4},
		{"add(PT, mul(RO, 0.5))", 5},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			p, err := Compile(tt.src)
			if err != nil {
				t.Fatalf("Compile: %v", err)
			}
			s, err := p.NewScorer()
			if err != nil {
				t.Fatalf("NewScorer: %v", err)
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

func TestScorer_NaNIsError(t *testing.T) {
	p, err := Compile("PT === 1 ? 0 : NaN")
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	s, _ := p.NewScorer()
	if _, err := s.Score(scheduler.Features{PT: 2}); err == nil {
		t.Error("Score returned no error for NaN")
	}
}

func TestScorer_Interrupt(t *testing.T) {
	p, err := Compile("PT === 1 ? 0 : (function() { while (true) {} })()")
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	s, _ := p.NewScorer()
	timer := time.AfterFunc(20*time.Millisecond, func() { s.Interrupt("deadline") })
	defer timer.Stop()
	_, err = s.Score(scheduler.Features{PT: 3})
	if err == nil || !strings.Contains(err.Error(), "deadline") {
		t.Errorf("Score error = %v, want interrupt", err)
	}
}

func TestScorer_DrivesSimulation(t *testing.T) {
	p, err := Compile("PT")
	if err != nil {
		t.Fatal(err)
	}
	s, _ := p.NewScorer()
	inst := testInstance()
	res, err := scheduler.Simulate(inst, s)
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	if res.Makespan != 8 || res.Schedule[0].Job != 1 {
		t.Errorf("makespan %d first job %d, want 8 and 1", res.Makespan, res.Schedule[0].Job)
	}
	if res.ScoringErrors != 0 {
		t.Errorf("ScoringErrors = %d", res.ScoringErrors)
	}
}

func TestFunctions_AreDefined(t *testing.T) {
	for _, fn := range Functions {
		if _, err := Compile(fn + "(PT, 1)"); err != nil {
			t.Errorf("%s: %v", fn, err)
		}
	}
}
