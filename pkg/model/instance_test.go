package model

import (
	"strings"
	"testing"
)

func ops(alts ...[]Alternative) []Operation {
	out := make([]Operation, len(alts))
	for i, a := range alts {
		out[i] = Operation{Alternatives: a}
	}
	return out
}

func validInstance() *Instance {
	return &Instance{
		Name:     "small",
		Machines: 2,
		Jobs: []JobSpec{
			{Operations: ops([]Alternative{{0, 3}, {1, 5}}, []Alternative{{1, 2}})},
			{Operations: ops([]Alternative{{1, 4}})},
		},
	}
}

func TestOperation_DurationOn(t *testing.T) {
	op := Operation{Alternatives: []Alternative{{0, 7}, {1, 3}, {0, 5}}}
	if d, ok := op.DurationOn(0); !ok || d != 5 {
		t.Errorf("DurationOn(0) = (%d, %v), want (5, true)", d, ok)
	}
	if _, ok := op.DurationOn(2); ok {
		t.Error("DurationOn(2) reported an alternative that does not exist")
	}
	zero := Operation{Alternatives: []Alternative{{0, 0}}}
	if _, ok := zero.DurationOn(0); ok {
		t.Error("DurationOn(0) offered a zero-length alternative")
	}
}

func TestOperation_MinDuration(t *testing.T) {
	tests := []struct {
		name string
		alts []Alternative
		want int
	}{
		{"mixed", []Alternative{{0, 4}, {1, 2}, {2, 9}}, 2},
		{"zero ignored", []Alternative{{0, 0}, {1, 6}}, 6},
		{"all zero", []Alternative{{0, 0}}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := (Operation{Alternatives: tt.alts}).MinDuration(); got != tt.want {
				t.Errorf("MinDuration() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestInstance_Validate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(in *Instance)
		wantField string
	}{
		{"valid", func(in *Instance) {}, ""},
		{"no machines", func(in *Instance) { in.Machines = 0 }, "machines"},
		{"machine out of range", func(in *Instance) {
			in.Jobs[0].Operations[0].Alternatives[0].Machine = 5
		}, "jobs[0].operations[0][0].machine"},
		{"negative duration", func(in *Instance) {
			in.Jobs[1].Operations[0].Alternatives[0].Duration = -1
		}, "jobs[1].operations[0][0].time"},
		{"empty job", func(in *Instance) { in.Jobs[1].Operations = nil }, "jobs[1].operations"},
		{"only zero durations", func(in *Instance) {
			in.Jobs[1].Operations[0].Alternatives[0].Duration = 0
		}, "jobs[1].operations[0]"},
		{"breakdown end before start", func(in *Instance) {
			in.Events.Breakdowns = []Breakdown{{Machine: 0, Start: 5, End: 5}}
		}, "events.breakdowns[0].end"},
		{"cancel unknown job", func(in *Instance) {
			in.Events.Cancellations = []JobCancellation{{Time: 1, Job: 2}}
		}, "events.cancelled_jobs[0].job"},
		{"cancel arriving job", func(in *Instance) {
			in.Events.Arrivals = []JobArrival{{Time: 4, Operations: ops([]Alternative{{0, 1}})}}
			in.Events.Cancellations = []JobCancellation{{Time: 6, Job: 2}}
		}, ""},
		{"negative lapse", func(in *Instance) {
			in.Events.ETPC = []ETPCConstraint{{ForeJob: 0, ForeOp: 0, HindJob: 1, HindOp: 0, Lapse: -2}}
		}, "events.etpc_constraints[0].time_lapse"},
		{"etpc cycle", func(in *Instance) {
			in.Events.ETPC = []ETPCConstraint{{ForeJob: 0, ForeOp: 1, HindJob: 1, HindOp: 0}, {ForeJob: 1, ForeOp: 0, HindJob: 0, HindOp: 0}}
		}, "events.etpc_constraints"},
		{"etpc against own order", func(in *Instance) {
			in.Events.ETPC = []ETPCConstraint{{ForeJob: 0, ForeOp: 1, HindJob: 0, HindOp: 0}}
		}, "events.etpc_constraints"},
		{"etpc unknown op is not a validation error", func(in *Instance) {
			in.Events.ETPC = []ETPCConstraint{{ForeJob: 0, ForeOp: 9, HindJob: 1, HindOp: 0}}
		}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInstance()
			tt.mutate(in)
			err := in.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() = nil, want error on %s", tt.wantField)
			}
			if err.Code != ErrValidation {
				t.Errorf("Code = %q, want %q", err.Code, ErrValidation)
			}
			found := false
			for _, d := range err.Details {
				if d.Field == tt.wantField {
					found = true
				}
			}
			if !found {
				t.Errorf("Details = %+v, want a detail for %s", err.Details, tt.wantField)
			}
		})
	}
}

func TestInstance_CycleMessageNamesOperations(t *testing.T) {
	in := validInstance()
	in.Events.ETPC = []ETPCConstraint{{ForeJob: 0, ForeOp: 1, HindJob: 1, HindOp: 0}, {ForeJob: 1, ForeOp: 0, HindJob: 0, HindOp: 0}}
	err := in.Validate()
	if err == nil {
		t.Fatal("expected cycle error")
	}
	if !strings.Contains(err.Details[0].Message, "0.0") || !strings.Contains(err.Details[0].Message, "1.0") {
		t.Errorf("message %q does not list the cycle", err.Details[0].Message)
	}
}

func TestInstance_CloneIsDeep(t *testing.T) {
	in := validInstance()
	in.Events.Arrivals = []JobArrival{{Time: 3, Operations: ops([]Alternative{{0, 2}})}}
	cp := in.Clone()
	cp.Jobs[0].Operations[0].Alternatives[0].Duration = 99
	cp.Events.Arrivals[0].Operations[0].Alternatives[0].Machine = 1
	if in.Jobs[0].Operations[0].Alternatives[0].Duration != 3 {
		t.Error("Clone shares job alternatives with the original")
	}
	if in.Events.Arrivals[0].Operations[0].Alternatives[0].Machine != 0 {
		t.Error("Clone shares arrival alternatives with the original")
	}
}

func TestInstance_OperationCountFollowsArrivalOrder(t *testing.T) {
	in := validInstance()
	in.Events.Arrivals = []JobArrival{
		{Time: 9, Operations: ops([]Alternative{{0, 1}})},
		{Time: 2, Operations: ops([]Alternative{{0, 1}}, []Alternative{{0, 1}}, []Alternative{{1, 1}})},
	}
	if got := in.OperationCount(2); got != 3 {
		t.Errorf("OperationCount(2) = %d, want 3 (earliest arrival gets the first new index)", got)
	}
	if got := in.OperationCount(3); got != 1 {
		t.Errorf("OperationCount(3) = %d, want 1", got)
	}
	if got := in.OperationCount(4); got != -1 {
		t.Errorf("OperationCount(4) = %d, want -1", got)
	}
}
