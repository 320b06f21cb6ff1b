package scheduler

import (
	"log/slog"

	"github.com/me/dfjss/pkg/model"
)

// precedence tracks ETPC constraints: a hind operation may not start until
// every fore operation bound to it has finished and the lapse has elapsed.
type precedence struct {
	byFore   map[model.OpRef][]model.ETPCConstraint
	pending  map[model.OpRef]int // unfinished fore operations per hind
	minStart map[model.OpRef]int
}

// newPrecedence indexes the constraints of inst. Constraints naming an
// operation that can never exist are dropped and returned.
func newPrecedence(inst *model.Instance, logger *slog.Logger) (*precedence, []model.ETPCConstraint) {
	p := &precedence{
		byFore:   make(map[model.OpRef][]model.ETPCConstraint),
		pending:  make(map[model.OpRef]int),
		minStart: make(map[model.OpRef]int),
	}
	known, unknown := inst.KnownETPC()
	for _, c := range unknown {
		logger.Warn("etpc constraint references a missing operation; ignored", "constraint", c.String())
	}
	for _, c := range known {
		fore := model.OpRef{Job: c.ForeJob, Op: c.ForeOp}
		hind := model.OpRef{Job: c.HindJob, Op: c.HindOp}
		p.byFore[fore] = append(p.byFore[fore], c)
		p.pending[hind]++
	}
	return p, unknown
}

// held reports whether ref still waits for a fore operation to finish.
func (p *precedence) held(ref model.OpRef) bool {
	return p.pending[ref] > 0
}

// earliest returns the lower bound ETPC puts on the start of ref.
func (p *precedence) earliest(ref model.OpRef) int {
	return p.minStart[ref]
}

// finish propagates the completion of fore at time end to its hind operations.
func (p *precedence) finish(fore model.OpRef, end int) {
	for _, c := range p.byFore[fore] {
		hind := model.OpRef{Job: c.HindJob, Op: c.HindOp}
		p.minStart[hind] = max(p.minStart[hind], end+c.Lapse)
		p.pending[hind]--
	}
	delete(p.byFore, fore)
}

// release drops the constraints of a fore operation that will never finish.
func (p *precedence) release(fore model.OpRef) {
	for _, c := range p.byFore[fore] {
		p.pending[model.OpRef{Job: c.HindJob, Op: c.HindOp}]--
	}
	delete(p.byFore, fore)
}

// effectiveReady returns when the current operation of j may start.
func (p *precedence) effectiveReady(j *job) int {
	return max(j.readyAt, p.earliest(j.current()))
}
