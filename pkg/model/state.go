package model

// RunState is the outcome of a persisted simulation run.
type RunState string

const (
	// RunStateCompleted means every live job finished before any time limit.
	RunStateCompleted RunState = "COMPLETED"
	// RunStateCapped means the run hit the caller's max time or the safety ceiling.
	RunStateCapped RunState = "CAPPED"
	// RunStateFailed means the run never started, usually because the instance was invalid.
	RunStateFailed RunState = "FAILED"
)

// String returns the string representation of the run state.
func (s RunState) String() string {
	return string(s)
}

// IsValid reports whether s is one of the known run states.
func (s RunState) IsValid() bool {
	switch s {
	case RunStateCompleted, RunStateCapped, RunStateFailed:
		return true
	}
	return false
}

// ParseRunState converts a case-sensitive state name. Unknown names return ("", false).
func ParseRunState(s string) (RunState, bool) {
	st := RunState(s)
	if !st.IsValid() {
		return "", false
	}
	return st, true
}
