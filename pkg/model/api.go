package model

import "time"

// Response is the envelope of every API reply. Exactly one of Data and
// Error is set.
type Response struct {
	Status     string      `json:"status"`
	RequestID  string      `json:"request_id"`
	Timestamp  time.Time   `json:"timestamp"`
	Data       any         `json:"data"`
	Pagination *Pagination `json:"pagination,omitempty"`
	Error      *APIError   `json:"error"`
}

// Pagination describes the window a run listing returned.
type Pagination struct {
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
}

const (
	defaultRunLimit = 20
	maxRunLimit     = 100
)

// RunQuery selects stored runs. Zero State and Instance match everything.
type RunQuery struct {
	Limit    int
	Offset   int
	State    RunState
	Instance string
}

// DefaultRunQuery returns the first page of all runs.
func DefaultRunQuery() RunQuery {
	return RunQuery{Limit: defaultRunLimit}
}

// Clamp brings Limit into [1,100] and Offset to at least 0.
func (q *RunQuery) Clamp() {
	switch {
	case q.Limit <= 0:
		q.Limit = defaultRunLimit
	case q.Limit > maxRunLimit:
		q.Limit = maxRunLimit
	}
	q.Offset = max(q.Offset, 0)
}

// Page reports where the query's window sits among total matching runs.
func (q RunQuery) Page(total int) *Pagination {
	return &Pagination{
		Total:   total,
		Limit:   q.Limit,
		Offset:  q.Offset,
		HasMore: q.Offset+q.Limit < total,
	}
}
