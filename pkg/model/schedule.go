package model

import "time"

// ScheduledOperation records one completed execution of an operation.
// Preempted or cancelled executions never produce a record.
type ScheduledOperation struct {
	Job     int `json:"job"`
	Op      int `json:"op"`
	Machine int `json:"machine"`
	Start   int `json:"start"`
	End     int `json:"end"`
}

// Duration returns End - Start.
func (s ScheduledOperation) Duration() int {
	return s.End - s.Start
}

// Run is a persisted simulation: which instance and scorer were used and what came out.
type Run struct {
	ID         string               `json:"id"`
	Instance   string               `json:"instance"`
	Scorer     string               `json:"scorer"`
	State      RunState             `json:"state"`
	Makespan   int                  `json:"makespan"`
	Diagnostic string               `json:"diagnostic,omitempty"`
	Ticks      int                  `json:"ticks"`
	Jobs       int                  `json:"jobs"`
	Cancelled  []int                `json:"cancelled"`
	Metrics    map[string]float64   `json:"metrics"`
	Schedule   []ScheduledOperation `json:"schedule,omitempty"`
	Elapsed    time.Duration        `json:"elapsed_ns"`
	CreatedAt  time.Time            `json:"created_at"`
}
