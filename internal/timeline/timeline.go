// Package timeline merges the dynamic events of an instance into a single
// time-ordered sequence and hands them out as the clock advances.
package timeline

import (
	"cmp"
	"log/slog"
	"slices"

	"github.com/me/dfjss/pkg/model"
)

// Kind identifies the type of a dynamic event. Lower kinds are applied first
// when several events share the same time.
type Kind int

const (
	KindBreakdown Kind = iota
	KindArrival
	KindCancellation
)

func (k Kind) String() string {
	switch k {
	case KindBreakdown:
		return "breakdown"
	case KindArrival:
		return "arrival"
	case KindCancellation:
		return "cancellation"
	}
	return "unknown"
}

// Event is one entry of the timeline. Exactly one of Breakdown, Arrival or
// Cancellation is meaningful, selected by Kind.
type Event struct {
	Kind Kind
	Time int
	// Seq is the declaration order of the event within its kind.
	Seq int
	// Job is the job index assigned to an arrival, or the target of a cancellation.
	Job int

	Breakdown    model.Breakdown
	Arrival      model.JobArrival
	Cancellation model.JobCancellation
}

// Timeline hands out events in (time, kind, declaration order).
type Timeline struct {
	events []Event
	next   int
	logger *slog.Logger
}

// New validates the instance and builds its timeline. Arrivals are numbered
// after the initial jobs in the order they will be applied.
func New(inst *model.Instance, logger *slog.Logger) (*Timeline, error) {
	if apiErr := inst.Validate(); apiErr != nil {
		return nil, apiErr
	}

	ev := inst.Events
	events := make([]Event, 0, len(ev.Breakdowns)+len(ev.Arrivals)+len(ev.Cancellations))
	for i, b := range ev.Breakdowns {
		events = append(events, Event{Kind: KindBreakdown, Time: b.Start, Seq: i, Breakdown: b})
	}
	for i, a := range ev.Arrivals {
		events = append(events, Event{Kind: KindArrival, Time: a.Time, Seq: i, Arrival: a})
	}
	for i, c := range ev.Cancellations {
		events = append(events, Event{Kind: KindCancellation, Time: c.Time, Seq: i, Job: c.Job, Cancellation: c})
	}
	slices.SortFunc(events, compare)

	nextJob := len(inst.Jobs)
	for i := range events {
		if events[i].Kind == KindArrival {
			events[i].Job = nextJob
			nextJob++
		}
	}

	return &Timeline{events: events, logger: logger}, nil
}

func compare(a, b Event) int {
	if c := cmp.Compare(a.Time, b.Time); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Kind, b.Kind); c != 0 {
		return c
	}
	return cmp.Compare(a.Seq, b.Seq)
}

// PopDue removes and returns every event with Time <= t, in timeline order.
// An event whose time has already passed is still returned, with a warning.
func (tl *Timeline) PopDue(t int) []Event {
	start := tl.next
	for tl.next < len(tl.events) && tl.events[tl.next].Time <= t {
		if e := tl.events[tl.next]; e.Time < t {
			tl.logger.Warn("late event applied", "kind", e.Kind.String(), "event_time", e.Time, "t", t)
		}
		tl.next++
	}
	return tl.events[start:tl.next]
}

// NextTime returns the time of the next pending event.
func (tl *Timeline) NextTime() (int, bool) {
	if tl.next >= len(tl.events) {
		return 0, false
	}
	return tl.events[tl.next].Time, true
}

// Len returns the number of pending events.
func (tl *Timeline) Len() int {
	return len(tl.events) - tl.next
}

// Exhausted reports whether every event has been handed out.
func (tl *Timeline) Exhausted() bool {
	return tl.next >= len(tl.events)
}
