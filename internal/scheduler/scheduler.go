// Package scheduler simulates a dynamic flexible job shop on an integer clock.
//
// Each tick settles finished operations, applies the dynamic events that are
// due (breakdowns, job arrivals, cancellations), brings repaired machines back
// and then lets every idle machine pick one ready operation. The choice is made
// by a caller-supplied Scorer: the candidate with the lowest score wins.
package scheduler

import (
	"log/slog"
)

// Features describe one (operation, machine) candidate at dispatch time.
type Features struct {
	Job     int
	Op      int
	Machine int

	PT    int // processing time of the operation on this machine
	RO    int // operations remaining in the job after this one
	MW    int // how long the machine has been idle
	TQ    int // how long the operation has been waiting since it became ready
	WIP   int // machines busy at this instant
	RPT   int // sum of minimal processing times over the job's remaining operations, this one included
	MinPT int // minimal processing time of the operation over all its alternatives
	Load  int // time the machine still owes to the operation it is running; 0 when idle

	Now          int // current clock value
	Arrival      int // time the job entered the shop
	Alternatives int // number of alternatives the operation offers
}

// Scorer ranks dispatch candidates. Lower is better. An error, a panic, a NaN
// or +Inf excludes the candidate for the current tick; it is scored again on
// the next one. A scorer that fails everywhere leaves the run capped.
type Scorer interface {
	Score(f Features) (float64, error)
}

// ScorerFunc adapts a plain function to the Scorer interface.
type ScorerFunc func(f Features) (float64, error)

// Score calls fn(f).
func (fn ScorerFunc) Score(f Features) (float64, error) {
	return fn(f)
}

const (
	// DefaultMaxTime is the clock limit used when the caller sets none.
	DefaultMaxTime = 999_999
	// DefaultTimeCeiling is the hard safety ceiling, independent of the max time.
	DefaultTimeCeiling = 200_000
)

type options struct {
	logger      *slog.Logger
	maxTime     int
	ceiling     int
	fastForward bool
	stop        func() error
}

// Option configures a simulation.
type Option func(*options)

// WithLogger sets the logger used for diagnostics. Simulations are silent by default.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMaxTime bounds the clock. A run that reaches it is reported as capped.
func WithMaxTime(t int) Option {
	return func(o *options) {
		o.maxTime = t
	}
}

// WithTimeCeiling overrides the hard safety ceiling.
func WithTimeCeiling(t int) Option {
	return func(o *options) {
		o.ceiling = t
	}
}

// WithStepping disables skipping over ticks in which nothing can happen, so
// the clock advances one unit at a time. The result is identical either way.
func WithStepping() Option {
	return func(o *options) {
		o.fastForward = false
	}
}

// WithStop installs a check consulted once per tick. A non-nil error aborts
// the run and is returned by Simulate; no result is produced.
func WithStop(check func() error) Option {
	return func(o *options) {
		o.stop = check
	}
}
