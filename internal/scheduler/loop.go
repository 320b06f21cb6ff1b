package scheduler

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/me/dfjss/internal/logging"
	"github.com/me/dfjss/internal/timeline"
	"github.com/me/dfjss/pkg/model"
)

// engine holds the state of one simulation. It is not safe for concurrent use;
// run independent simulations in separate goroutines instead.
type engine struct {
	name     string
	scorer   Scorer
	opts     options
	logger   *slog.Logger
	timeline *timeline.Timeline
	prec     *precedence

	machines []*machine
	jobs     []*job
	ready    readySet
	busy     int
	live     int

	schedule    []model.ScheduledOperation
	cancelled   []int
	dropped     []model.ETPCConstraint
	preemptions int
	scoreErrors int
	ticks       int
}

// Simulate runs inst to completion under scorer and returns the schedule.
//
// The instance is copied and never modified. Invalid instances are rejected
// with a *model.APIError before the clock starts. A run that reaches the max
// time or the safety ceiling is not an error: the result is marked Capped and
// its makespan is the limit that was hit.
func Simulate(inst *model.Instance, scorer Scorer, opts ...Option) (*Result, error) {
	if scorer == nil {
		return nil, errors.New("simulate: nil scorer")
	}
	o := options{maxTime: DefaultMaxTime, ceiling: DefaultTimeCeiling, fastForward: true}
	for _, opt := range opts {
		opt(&o)
	}
	if o.maxTime <= 0 || o.ceiling <= 0 {
		return nil, fmt.Errorf("simulate: max time (%d) and time ceiling (%d) must be positive", o.maxTime, o.ceiling)
	}
	if o.logger == nil {
		o.logger = logging.Discard()
	}

	inst = inst.Clone()
	logger := o.logger.With("component", "scheduler", "instance", inst.Name)
	tl, err := timeline.New(inst, logger)
	if err != nil {
		return nil, fmt.Errorf("simulate %s: %w", inst.Name, err)
	}

	e := &engine{
		name:     inst.Name,
		scorer:   scorer,
		opts:     o,
		logger:   logger,
		timeline: tl,
		machines: make([]*machine, inst.Machines),
		jobs:     make([]*job, 0, inst.JobCount()),
	}
	e.prec, e.dropped = newPrecedence(inst, logger)
	for i := range e.machines {
		e.machines[i] = &machine{index: i, job: -1, op: -1}
	}
	for i, spec := range inst.Jobs {
		e.addJob(i, spec.Arrival, spec.Arrival, spec.Operations)
	}

	logger.Debug("simulation started", "machines", inst.Machines, "jobs", len(inst.Jobs), "events", tl.Len())
	res, err := e.run()
	if err != nil {
		return nil, fmt.Errorf("simulate %s: %w", inst.Name, err)
	}
	return res, nil
}

// run advances the clock until every live job is done or a limit is reached.
//
// Phases of a tick:
//  1. settle operations finishing at t
//  2. apply due events (breakdowns, arrivals, cancellations)
//  3. return repaired machines to service
//  4. dispatch idle machines
//
// The stop check, when set, runs before every tick.
func (e *engine) run() (*Result, error) {
	limit, limitName := e.opts.maxTime, "max time"
	if e.opts.ceiling < limit {
		limit, limitName = e.opts.ceiling, "time ceiling"
	}

	t := 0
	for {
		if e.opts.stop != nil {
			if err := e.opts.stop(); err != nil {
				e.logger.Debug("simulation stopped", "t", t, "error", err)
				return nil, err
			}
		}
		e.ticks++

		// Phase 1: completions.
		e.complete(t)

		// Phase 2: dynamic events.
		for _, ev := range e.timeline.PopDue(t) {
			switch ev.Kind {
			case timeline.KindBreakdown:
				e.breakdown(ev.Breakdown, t)
			case timeline.KindArrival:
				e.addJob(ev.Job, ev.Arrival.Time, t, ev.Arrival.Operations)
				e.logger.Debug("job arrived", "t", t, "job", ev.Job, "operations", len(ev.Arrival.Operations))
			case timeline.KindCancellation:
				e.cancel(ev.Job, t)
			}
		}

		// Phase 3: repairs.
		for _, m := range e.machines {
			if m.repair(t) {
				e.logger.Debug("machine repaired", "t", t, "machine", m.index)
			}
		}

		if e.done() {
			return e.result(t, false, ""), nil
		}
		if t >= limit {
			diag := fmt.Sprintf("%s %d reached with %d unfinished jobs", limitName, limit, e.live)
			e.logger.Warn("simulation capped", "t", t, "limit", limitName, "unfinished_jobs", e.live)
			return e.result(limit, true, diag), nil
		}

		// Phase 4: dispatch.
		scored := e.dispatch(t)

		next := t + 1
		if e.opts.fastForward && scored == 0 {
			next = e.nextEventful(t, limit)
		}
		t = next
	}
}

func (e *engine) addJob(index, arrival, readyAt int, ops []model.Operation) {
	j := newJob(index, arrival, ops)
	j.readyAt = readyAt
	e.jobs = append(e.jobs, j)
	e.ready.insert(index)
	e.live++
}

// complete settles every operation whose finish time has come.
func (e *engine) complete(t int) {
	for _, m := range e.machines {
		if !m.busy || m.finishAt > t {
			continue
		}
		j := e.jobs[m.job]
		end := m.finishAt
		e.schedule = append(e.schedule, model.ScheduledOperation{
			Job: m.job, Op: m.op, Machine: m.index, Start: m.start, End: end,
		})
		e.prec.finish(model.OpRef{Job: m.job, Op: m.op}, end)
		m.release(end)
		e.busy--

		j.running = false
		j.lastEnd = end
		j.cursor++
		if j.finished() {
			e.live--
			e.logger.Debug("job finished", "t", t, "job", j.index)
			continue
		}
		j.readyAt = end
		e.ready.insert(j.index)
	}
}

func (e *engine) breakdown(b model.Breakdown, t int) {
	m := e.machines[b.Machine]
	jobIdx, opIdx, lost := m.job, m.op, t-m.start
	if !m.breakDown(b.End, t) {
		e.logger.Debug("machine broke down", "t", t, "machine", m.index, "until", m.brokenUntil)
		return
	}
	e.busy--
	e.preemptions++
	j := e.jobs[jobIdx]
	j.running = false
	j.readyAt = t
	e.ready.insert(j.index)
	e.logger.Debug("machine broke down, operation preempted", "t", t, "machine", m.index,
		"until", m.brokenUntil, "job", jobIdx, "op", opIdx, "lost", lost)
}

func (e *engine) cancel(index, t int) {
	if index >= len(e.jobs) {
		e.logger.Warn("cancellation of a job that has not arrived; ignored", "t", t, "job", index)
		return
	}
	j := e.jobs[index]
	if j.cancelled {
		e.logger.Debug("job already cancelled", "t", t, "job", index)
		return
	}
	if j.finished() {
		e.logger.Debug("cancellation of a finished job; ignored", "t", t, "job", index)
		return
	}

	j.cancelled = true
	e.live--
	e.cancelled = append(e.cancelled, index)
	if j.running {
		for _, m := range e.machines {
			if m.busy && m.job == index {
				m.release(t)
				e.busy--
				break
			}
		}
		j.running = false
	}
	e.ready.remove(index)
	for k := j.cursor; k < len(j.ops); k++ {
		e.prec.release(model.OpRef{Job: index, Op: k})
	}
	e.logger.Debug("job cancelled", "t", t, "job", index, "completed_ops", j.cursor)
}

// done reports whether nothing is left to do: every live job has finished,
// no machine is busy and no event is pending.
func (e *engine) done() bool {
	return e.live == 0 && e.busy == 0 && len(e.ready) == 0 && e.timeline.Exhausted()
}

// nextEventful returns the earliest instant after t at which the state can
// change: a completion, an event, a repair or a ready time. Ticks in between
// would score no candidate.
func (e *engine) nextEventful(t, limit int) int {
	next := limit
	consider := func(at int) {
		if at > t && at < next {
			next = at
		}
	}
	for _, m := range e.machines {
		if m.busy {
			consider(m.finishAt)
		}
		if m.brokenUntil > 0 {
			consider(m.brokenUntil)
		}
	}
	if at, ok := e.timeline.NextTime(); ok {
		consider(at)
	}
	for _, idx := range e.ready {
		j := e.jobs[idx]
		if !e.prec.held(j.current()) {
			consider(e.prec.effectiveReady(j))
		}
	}
	if next <= t {
		return t + 1
	}
	return next
}

func (e *engine) result(t int, capped bool, diagnostic string) *Result {
	r := &Result{
		Schedule:      e.schedule,
		Capped:        capped,
		Diagnostic:    diagnostic,
		EndTime:       t,
		Ticks:         e.ticks,
		Jobs:          len(e.jobs),
		Cancelled:     slices.Sorted(slices.Values(e.cancelled)),
		Preemptions:   e.preemptions,
		ScoringErrors: e.scoreErrors,
		Dropped:       e.dropped,
	}
	if capped {
		r.Makespan = t
	} else {
		for _, j := range e.jobs {
			if !j.cancelled {
				r.Makespan = max(r.Makespan, j.lastEnd)
			}
		}
	}
	e.logger.Debug("simulation finished", "makespan", r.Makespan, "capped", capped, "ticks", e.ticks,
		"operations", len(e.schedule), "preemptions", e.preemptions)
	return r
}
