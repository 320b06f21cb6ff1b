// Package metrics derives schedule quality measures from a simulation result.
package metrics

import (
	"slices"

	"github.com/me/dfjss/internal/scheduler"
	"github.com/me/dfjss/pkg/model"
)

// Summary holds the derived measures of one run.
type Summary struct {
	Makespan    int     `json:"makespan"`
	IdleTotal   int     `json:"idle_total"`
	IdleAvg     float64 `json:"idle_avg"`
	WaitTotal   int     `json:"wait_total"`
	WaitAvg     float64 `json:"wait_avg"`
	Utilization float64 `json:"utilization"`
}

// Summarize computes the summary of res, produced by simulating inst.
// Idle time is averaged over machines; wait time over jobs that were not cancelled.
func Summarize(inst *model.Instance, res *scheduler.Result) Summary {
	s := Summary{Makespan: res.Makespan}

	idle := MachineIdle(inst.Machines, res)
	busy := 0
	for m, v := range idle {
		s.IdleTotal += v
		for _, op := range res.MachineOperations(m) {
			busy += op.Duration()
		}
	}
	if inst.Machines > 0 {
		s.IdleAvg = float64(s.IdleTotal) / float64(inst.Machines)
		if res.Makespan > 0 {
			s.Utilization = float64(busy) / float64(inst.Machines*res.Makespan)
		}
	}

	wait := JobWait(inst, res)
	counted := 0
	for j, v := range wait {
		if res.IsCancelled(j) {
			continue
		}
		s.WaitTotal += v
		counted++
	}
	if counted > 0 {
		s.WaitAvg = float64(s.WaitTotal) / float64(counted)
	}
	return s
}

// Map flattens the summary for storage.
func (s Summary) Map() map[string]float64 {
	return map[string]float64{
		"makespan":    float64(s.Makespan),
		"idle_total":  float64(s.IdleTotal),
		"idle_avg":    s.IdleAvg,
		"wait_total":  float64(s.WaitTotal),
		"wait_avg":    s.WaitAvg,
		"utilization": s.Utilization,
	}
}

// MachineIdle returns, per machine, the time it spent not processing between
// 0 and the makespan: the leading gap, the gaps between operations and the
// gap from its last operation to the makespan. Breakdowns count as idle.
func MachineIdle(machines int, res *scheduler.Result) []int {
	idle := make([]int, machines)
	for m := range idle {
		clock := 0
		for _, op := range res.MachineOperations(m) {
			if op.Start > clock {
				idle[m] += op.Start - clock
			}
			clock = max(clock, op.End)
		}
		if res.Makespan > clock {
			idle[m] += res.Makespan - clock
		}
	}
	return idle
}

// JobWait returns, per job index, the time the job spent between its arrival
// and its last completed operation without being processed.
func JobWait(inst *model.Instance, res *scheduler.Result) []int {
	arrivals := Arrivals(inst)
	wait := make([]int, res.Jobs)
	for j := range wait {
		clock := 0
		if j < len(arrivals) {
			clock = arrivals[j]
		}
		for _, op := range res.JobOperations(j) {
			if op.Start > clock {
				wait[j] += op.Start - clock
			}
			clock = max(clock, op.End)
		}
	}
	return wait
}

// Arrivals returns the arrival time of every job index the instance can use.
func Arrivals(inst *model.Instance) []int {
	out := make([]int, 0, inst.JobCount())
	for _, j := range inst.Jobs {
		out = append(out, j.Arrival)
	}
	for _, a := range inst.Events.OrderedArrivals() {
		out = append(out, a.Time)
	}
	return slices.Clip(out)
}
