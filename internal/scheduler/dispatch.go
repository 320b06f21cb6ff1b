package scheduler

import (
	"fmt"
	"math"
)

// dispatch lets every available machine, in index order, start the ready
// operation with the lowest finite score. Ties go to the lowest job index.
// Candidates scoring +Inf stay ready and are scored again next tick. It
// returns the number of candidates scored.
func (e *engine) dispatch(t int) int {
	scored := 0
	for _, m := range e.machines {
		if !m.available(t) {
			continue
		}

		var best *job
		bestScore, bestPT := math.Inf(1), 0
		load := m.load(t)
		for _, idx := range e.ready {
			j := e.jobs[idx]
			ref := j.current()
			if e.prec.held(ref) {
				continue
			}
			readyAt := e.prec.effectiveReady(j)
			if readyAt > t {
				continue
			}
			pt, ok := j.ops[j.cursor].DurationOn(m.index)
			if !ok {
				continue
			}

			s := e.score(Features{
				Job:          j.index,
				Op:           j.cursor,
				Machine:      m.index,
				PT:           pt,
				RO:           len(j.ops) - j.cursor - 1,
				MW:           t - m.idleSince,
				TQ:           t - readyAt,
				WIP:          e.busy,
				Load:         load,
				RPT:          j.rpt[j.cursor],
				MinPT:        j.rpt[j.cursor] - j.rpt[j.cursor+1],
				Now:          t,
				Arrival:      j.arrival,
				Alternatives: len(j.ops[j.cursor].Alternatives),
			})
			scored++
			if s < bestScore {
				best, bestScore, bestPT = j, s, pt
			}
		}
		if best == nil {
			continue
		}

		e.ready.remove(best.index)
		best.running = true
		m.assign(best, bestPT, t)
		e.busy++
		e.logger.Debug("dispatch", "t", t, "machine", m.index, "job", best.index, "op", best.cursor,
			"pt", bestPT, "score", bestScore)
	}
	return scored
}

// score evaluates one candidate. Errors, panics and NaN give +Inf and are
// counted as scoring errors.
func (e *engine) score(f Features) (s float64) {
	defer func() {
		if r := recover(); r != nil {
			e.scoreErrors++
			e.logger.Debug("scorer panicked", "job", f.Job, "op", f.Op, "machine", f.Machine, "panic", fmt.Sprint(r))
			s = math.Inf(1)
		}
	}()

	v, err := e.scorer.Score(f)
	if err != nil {
		e.scoreErrors++
		e.logger.Debug("scorer failed", "job", f.Job, "op", f.Op, "machine", f.Machine, "error", err)
		return math.Inf(1)
	}
	if math.IsNaN(v) {
		e.scoreErrors++
		e.logger.Debug("scorer returned NaN", "job", f.Job, "op", f.Op, "machine", f.Machine)
		return math.Inf(1)
	}
	return v
}
