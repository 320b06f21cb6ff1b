package model

import (
	"fmt"
	"math"
)

// Alternative is one way to process an operation: a machine and how long it takes there.
type Alternative struct {
	Machine  int `json:"machine"`
	Duration int `json:"time"`
}

// Operation is one step of a job. It may run on any of its alternatives.
type Operation struct {
	Alternatives []Alternative `json:"alternatives"`
}

// DurationOn returns the processing time of the operation on machine m.
// Zero-length alternatives are never usable; when the machine is listed more
// than once, the shortest positive entry wins.
func (o Operation) DurationOn(m int) (int, bool) {
	best, found := 0, false
	for _, a := range o.Alternatives {
		if a.Machine != m || a.Duration <= 0 {
			continue
		}
		if !found || a.Duration < best {
			best, found = a.Duration, true
		}
	}
	return best, found
}

// MinDuration returns the shortest positive processing time among the alternatives,
// or 0 when no alternative has a positive duration.
func (o Operation) MinDuration() int {
	best := math.MaxInt
	for _, a := range o.Alternatives {
		if a.Duration > 0 && a.Duration < best {
			best = a.Duration
		}
	}
	if best == math.MaxInt {
		return 0
	}
	return best
}

// Dispatchable reports whether at least one alternative has a positive duration.
func (o Operation) Dispatchable() bool {
	return o.MinDuration() > 0
}

// JobSpec is an input job: an ordered list of operations and the time it becomes available.
type JobSpec struct {
	Arrival    int         `json:"arrival"`
	Operations []Operation `json:"operations"`
}

// Instance is a complete problem: machines, initial jobs and the dynamic events
// that will be applied while the schedule runs.
type Instance struct {
	Name     string    `json:"name"`
	Machines int       `json:"machines"`
	Jobs     []JobSpec `json:"jobs"`
	Events   Events    `json:"events"`
}

// JobCount returns the number of job indices the instance can ever use:
// initial jobs plus one per arrival event.
func (in *Instance) JobCount() int {
	return len(in.Jobs) + len(in.Events.Arrivals)
}

// OperationCount returns the number of operations of the job with the given index,
// counting arrivals in time order after the initial jobs. It returns -1 for an
// index that can never exist.
func (in *Instance) OperationCount(job int) int {
	if job < 0 {
		return -1
	}
	if job < len(in.Jobs) {
		return len(in.Jobs[job].Operations)
	}
	arrivals := in.Events.OrderedArrivals()
	k := job - len(in.Jobs)
	if k >= len(arrivals) {
		return -1
	}
	return len(arrivals[k].Operations)
}

// Clone returns a deep copy of the instance.
func (in *Instance) Clone() *Instance {
	out := &Instance{
		Name:     in.Name,
		Machines: in.Machines,
		Jobs:     make([]JobSpec, len(in.Jobs)),
		Events:   in.Events.clone(),
	}
	for i, j := range in.Jobs {
		out.Jobs[i] = JobSpec{Arrival: j.Arrival, Operations: cloneOperations(j.Operations)}
	}
	return out
}

func cloneOperations(ops []Operation) []Operation {
	out := make([]Operation, len(ops))
	for i, op := range ops {
		out[i] = Operation{Alternatives: append([]Alternative(nil), op.Alternatives...)}
	}
	return out
}

// Validate checks the instance for structural errors.
// Returns nil if valid, or an *APIError with FieldError details.
func (in *Instance) Validate() *APIError {
	var errs []FieldError

	if in.Machines <= 0 {
		errs = append(errs, FieldError{Field: "machines", Message: "must be at least 1"})
	}
	if len(in.Jobs) == 0 && len(in.Events.Arrivals) == 0 {
		errs = append(errs, FieldError{Field: "jobs", Message: "instance has no jobs"})
	}
	for i, j := range in.Jobs {
		field := fmt.Sprintf("jobs[%d]", i)
		if j.Arrival < 0 {
			errs = append(errs, FieldError{Field: field + ".arrival", Message: "must not be negative"})
		}
		errs = append(errs, validateOperations(field, j.Operations, in.Machines)...)
	}
	errs = append(errs, in.Events.validate(in.Machines, in.JobCount())...)

	if len(errs) == 0 {
		if err := checkPrecedence(in); err != nil {
			errs = append(errs, FieldError{Field: "events.etpc_constraints", Message: err.Error()})
		}
	}

	if len(errs) > 0 {
		return NewValidationError("invalid instance", errs...)
	}
	return nil
}

func validateOperations(field string, ops []Operation, machines int) []FieldError {
	var errs []FieldError
	if len(ops) == 0 {
		return []FieldError{{Field: field + ".operations", Message: "job must have at least one operation"}}
	}
	for k, op := range ops {
		opField := fmt.Sprintf("%s.operations[%d]", field, k)
		if len(op.Alternatives) == 0 {
			errs = append(errs, FieldError{Field: opField, Message: "operation must have at least one alternative"})
			continue
		}
		for a, alt := range op.Alternatives {
			altField := fmt.Sprintf("%s[%d]", opField, a)
			if alt.Machine < 0 || alt.Machine >= machines {
				errs = append(errs, FieldError{
					Field:   altField + ".machine",
					Message: fmt.Sprintf("machine %d out of range [0, %d)", alt.Machine, machines),
				})
			}
			if alt.Duration < 0 {
				errs = append(errs, FieldError{Field: altField + ".time", Message: "must not be negative"})
			}
		}
		if !op.Dispatchable() {
			errs = append(errs, FieldError{Field: opField, Message: "operation has no alternative with a positive processing time"})
		}
	}
	return errs
}
