package scheduler

import (
	"slices"

	"github.com/me/dfjss/pkg/model"
)

// Result is the outcome of one simulation.
type Result struct {
	// Makespan is the latest end over jobs that were not cancelled, or the
	// limit that was reached when Capped is set.
	Makespan int
	Schedule []model.ScheduledOperation

	Capped     bool
	Diagnostic string

	EndTime       int // clock value when the run stopped
	Ticks         int // ticks actually evaluated
	Jobs          int // job indices used, arrivals included
	Cancelled     []int
	Preemptions   int
	ScoringErrors int
	// Dropped lists ETPC constraints naming operations that never exist.
	Dropped []model.ETPCConstraint
}

// IsCancelled reports whether job was cancelled during the run.
func (r *Result) IsCancelled(job int) bool {
	_, found := slices.BinarySearch(r.Cancelled, job)
	return found
}

// JobOperations returns the completed operations of job in execution order.
func (r *Result) JobOperations(job int) []model.ScheduledOperation {
	var out []model.ScheduledOperation
	for _, s := range r.Schedule {
		if s.Job == job {
			out = append(out, s)
		}
	}
	return out
}

// MachineOperations returns the operations run on machine m in start order.
func (r *Result) MachineOperations(m int) []model.ScheduledOperation {
	var out []model.ScheduledOperation
	for _, s := range r.Schedule {
		if s.Machine == m {
			out = append(out, s)
		}
	}
	slices.SortFunc(out, func(a, b model.ScheduledOperation) int { return a.Start - b.Start })
	return out
}
