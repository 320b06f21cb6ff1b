package scheduler

import "github.com/me/dfjss/pkg/model"

// job is the engine's private record of one job. Jobs are appended when they
// arrive and never removed; cancellation only sets a flag.
type job struct {
	index   int
	arrival int
	ops     []model.Operation
	rpt     []int // rpt[k] = sum of minimal durations of ops[k:]

	cursor    int  // next operation to complete; len(ops) once finished
	readyAt   int  // when ops[cursor] became ready within the job
	running   bool // ops[cursor] is on a machine
	cancelled bool
	lastEnd   int // end of the latest completed operation
}

func newJob(index, arrival int, ops []model.Operation) *job {
	rpt := make([]int, len(ops)+1)
	for k := len(ops) - 1; k >= 0; k-- {
		rpt[k] = rpt[k+1] + ops[k].MinDuration()
	}
	return &job{
		index:   index,
		arrival: arrival,
		ops:     ops,
		rpt:     rpt,
		readyAt: arrival,
	}
}

func (j *job) finished() bool {
	return j.cursor >= len(j.ops)
}

// live reports whether the job still has work the shop must do.
func (j *job) live() bool {
	return !j.cancelled && !j.finished()
}

func (j *job) current() model.OpRef {
	return model.OpRef{Job: j.index, Op: j.cursor}
}
