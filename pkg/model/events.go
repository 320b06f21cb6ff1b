package model

import (
	"cmp"
	"fmt"
	"slices"
)

// Breakdown takes a machine out of service over [Start, End).
type Breakdown struct {
	Machine int `json:"machine"`
	Start   int `json:"start"`
	End     int `json:"end"`
}

// JobArrival injects a new job at Time. The job receives the next unused job index.
type JobArrival struct {
	Time       int         `json:"time"`
	Operations []Operation `json:"operations"`
}

// JobCancellation removes a job from consideration at Time.
type JobCancellation struct {
	Time int `json:"time"`
	Job  int `json:"job"`
}

// ETPCConstraint requires the hind operation to start no earlier than
// Lapse time units after the fore operation ends.
type ETPCConstraint struct {
	ForeJob int `json:"fore_job"`
	ForeOp  int `json:"fore_op_idx"`
	HindJob int `json:"hind_job"`
	HindOp  int `json:"hind_op_idx"`
	Lapse   int `json:"time_lapse"`
}

func (c ETPCConstraint) String() string {
	return fmt.Sprintf("(%d,%d)->(%d,%d)+%d", c.ForeJob, c.ForeOp, c.HindJob, c.HindOp, c.Lapse)
}

// Events groups the dynamic events of an instance.
type Events struct {
	Breakdowns    []Breakdown       `json:"breakdowns,omitempty"`
	Arrivals      []JobArrival      `json:"added_jobs,omitempty"`
	Cancellations []JobCancellation `json:"cancelled_jobs,omitempty"`
	ETPC          []ETPCConstraint  `json:"etpc_constraints,omitempty"`
}

// Empty reports whether there are no dynamic events at all.
func (e Events) Empty() bool {
	return len(e.Breakdowns) == 0 && len(e.Arrivals) == 0 &&
		len(e.Cancellations) == 0 && len(e.ETPC) == 0
}

// OrderedArrivals returns the arrivals sorted by time, keeping declaration
// order among equal times. This is the order in which job indices are assigned.
func (e Events) OrderedArrivals() []JobArrival {
	out := slices.Clone(e.Arrivals)
	slices.SortStableFunc(out, func(a, b JobArrival) int { return cmp.Compare(a.Time, b.Time) })
	return out
}

func (e Events) clone() Events {
	out := Events{
		Breakdowns:    slices.Clone(e.Breakdowns),
		Cancellations: slices.Clone(e.Cancellations),
		ETPC:          slices.Clone(e.ETPC),
	}
	if e.Arrivals != nil {
		out.Arrivals = make([]JobArrival, len(e.Arrivals))
		for i, a := range e.Arrivals {
			out.Arrivals[i] = JobArrival{Time: a.Time, Operations: cloneOperations(a.Operations)}
		}
	}
	return out
}

func (e Events) validate(machines, jobCount int) []FieldError {
	var errs []FieldError
	for i, b := range e.Breakdowns {
		field := fmt.Sprintf("events.breakdowns[%d]", i)
		if b.Machine < 0 || b.Machine >= machines {
			errs = append(errs, FieldError{
				Field:   field + ".machine",
				Message: fmt.Sprintf("machine %d out of range [0, %d)", b.Machine, machines),
			})
		}
		if b.Start < 0 {
			errs = append(errs, FieldError{Field: field + ".start", Message: "must not be negative"})
		}
		if b.End <= b.Start {
			errs = append(errs, FieldError{Field: field + ".end", Message: "must be after start"})
		}
	}
	for i, a := range e.Arrivals {
		field := fmt.Sprintf("events.added_jobs[%d]", i)
		if a.Time < 0 {
			errs = append(errs, FieldError{Field: field + ".time", Message: "must not be negative"})
		}
		errs = append(errs, validateOperations(field, a.Operations, machines)...)
	}
	for i, c := range e.Cancellations {
		field := fmt.Sprintf("events.cancelled_jobs[%d]", i)
		if c.Time < 0 {
			errs = append(errs, FieldError{Field: field + ".time", Message: "must not be negative"})
		}
		if c.Job < 0 || c.Job >= jobCount {
			errs = append(errs, FieldError{
				Field:   field + ".job",
				Message: fmt.Sprintf("job %d can never exist (instance has %d job indices)", c.Job, jobCount),
			})
		}
	}
	for i, c := range e.ETPC {
		field := fmt.Sprintf("events.etpc_constraints[%d]", i)
		if c.ForeJob < 0 || c.ForeOp < 0 || c.HindJob < 0 || c.HindOp < 0 {
			errs = append(errs, FieldError{Field: field, Message: "job and operation indices must not be negative"})
		}
		if c.Lapse < 0 {
			errs = append(errs, FieldError{Field: field + ".time_lapse", Message: "must not be negative"})
		}
	}
	return errs
}
