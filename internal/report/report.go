// Package report renders benchmark results and schedules.
package report

import (
	"cmp"
	"encoding/csv"
	"fmt"
	"io"
	"slices"
	"strconv"

	"github.com/me/dfjss/internal/bench"
	"github.com/me/dfjss/pkg/model"
)

// WriteText writes one block per instance, one line per scorer, followed by
// the per-scorer averages:
//
//	=== Instance: mk01.txt (jobs=10, machines=6) ===
//	SPT => MS=42, Idle_avg=3.50, Wait_avg=7.10, T=0.002s
func WriteText(w io.Writer, instances []*model.Instance, records []bench.Record) error {
	ew := &errWriter{w: w}
	for _, inst := range instances {
		ew.printf("\n=== Instance: %s (jobs=%d, machines=%d) ===\n", inst.Name, inst.JobCount(), inst.Machines)
		for _, rec := range records {
			if rec.Instance != inst.Name {
				continue
			}
			ew.printf("%s\n", Line(rec))
		}
	}

	ew.printf("\n=== Average per rule ===\n")
	for _, a := range bench.Summarize(records) {
		ew.printf("%s: MS=%.2f (best=%d, std=%.2f), Idle=%.2f, Wait=%.2f, T=%.3fs",
			a.Scorer, a.Makespan.Mean, a.Makespan.Best, a.Makespan.Std,
			a.IdleAvg.Mean, a.WaitAvg.Mean, a.TimeMs.Mean/1000)
		if a.Capped > 0 {
			ew.printf(", capped=%d", a.Capped)
		}
		if a.Failed > 0 {
			ew.printf(", failed=%d", a.Failed)
		}
		ew.printf("\n")
	}
	return ew.err
}

// Line formats one record the way WriteText lists it.
func Line(rec bench.Record) string {
	if rec.Err != nil {
		return fmt.Sprintf("%s => error: %v", rec.Scorer, rec.Err)
	}
	capped := ""
	if rec.Capped {
		capped = " [capped]"
	}
	return fmt.Sprintf("%s => MS=%d, Idle_avg=%.2f, Wait_avg=%.2f, T=%.3fs%s",
		rec.Scorer, rec.Makespan, rec.Metrics.IdleAvg, rec.Metrics.WaitAvg, rec.Elapsed.Seconds(), capped)
}

// WriteSchedule lists completed operations by start time, then machine.
func WriteSchedule(w io.Writer, schedule []model.ScheduledOperation) error {
	ops := slices.Clone(schedule)
	slices.SortStableFunc(ops, func(a, b model.ScheduledOperation) int {
		if c := cmp.Compare(a.Start, b.Start); c != 0 {
			return c
		}
		return cmp.Compare(a.Machine, b.Machine)
	})
	ew := &errWriter{w: w}
	ew.printf("%5s %4s %8s %7s %7s\n", "JOB", "OP", "MACHINE", "START", "END")
	for _, op := range ops {
		ew.printf("%5d %4d %8d %7d %7d\n", op.Job, op.Op, op.Machine, op.Start, op.End)
	}
	return ew.err
}

type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}

// WriteCSV writes one row per record.
func WriteCSV(w io.Writer, records []bench.Record) error {
	cw := csv.NewWriter(w)
	header := []string{
		"scorer", "instance", "makespan", "capped",
		"idle_avg", "wait_avg", "utilization", "time_ms", "error",
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range records {
		errText := ""
		if r.Err != nil {
			errText = r.Err.Error()
		}
		row := []string{
			r.Scorer,
			r.Instance,
			strconv.Itoa(r.Makespan),
			strconv.FormatBool(r.Capped),
			ftoa(r.Metrics.IdleAvg),
			ftoa(r.Metrics.WaitAvg),
			ftoa(r.Metrics.Utilization),
			ftoa(float64(r.Elapsed.Microseconds()) / 1000.0),
			errText,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteSummaryCSV writes one row per scorer aggregate.
func WriteSummaryCSV(w io.Writer, aggregates []bench.Aggregate) error {
	cw := csv.NewWriter(w)
	header := []string{
		"scorer", "runs", "failed", "capped",
		"makespan_best", "makespan_mean", "makespan_std",
		"idle_mean", "wait_mean", "time_mean_ms", "time_std_ms",
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, a := range aggregates {
		row := []string{
			a.Scorer,
			strconv.Itoa(a.Runs),
			strconv.Itoa(a.Failed),
			strconv.Itoa(a.Capped),
			strconv.Itoa(a.Makespan.Best),
			ftoa(a.Makespan.Mean),
			ftoa(a.Makespan.Std),
			ftoa(a.IdleAvg.Mean),
			ftoa(a.WaitAvg.Mean),
			ftoa(a.TimeMs.Mean),
			ftoa(a.TimeMs.Std),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}
