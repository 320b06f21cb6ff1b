package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/me/dfjss/internal/scheduler"
	"github.com/me/dfjss/pkg/model"
)

const jobSymbols = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// Gantt draws the schedule as one text row per machine, at most width
// columns wide. Each column covers an equal slice of [0, makespan) and shows
// the job running at the start of that slice, '#' while the machine is
// broken and '.' while it idles. Job symbols repeat after 62 jobs.
func Gantt(w io.Writer, inst *model.Instance, res *scheduler.Result, width int) error {
	if width <= 0 {
		width = 80
	}
	span := res.Makespan
	if span <= 0 {
		_, err := fmt.Fprintln(w, "(empty schedule)")
		return err
	}
	scale := (span + width - 1) / width
	cols := (span + scale - 1) / scale

	label := len(fmt.Sprintf("M%d", inst.Machines-1))
	var b strings.Builder
	fmt.Fprintf(&b, "%*s  0%*d  (1 column = %d time units)\n", label, "", cols-1, span, scale)
	for m := range inst.Machines {
		row := []byte(strings.Repeat(".", cols))
		for _, bd := range inst.Events.Breakdowns {
			if bd.Machine == m {
				paint(row, bd.Start, bd.End, scale, '#')
			}
		}
		for _, op := range res.MachineOperations(m) {
			paint(row, op.Start, op.End, scale, jobSymbols[op.Job%len(jobSymbols)])
		}
		fmt.Fprintf(&b, "%-*s |%s|\n", label, fmt.Sprintf("M%d", m), row)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// paint marks the columns whose start instant falls in [start, end).
func paint(row []byte, start, end, scale int, c byte) {
	for col := (start + scale - 1) / scale; col < len(row) && col*scale < end; col++ {
		row[col] = c
	}
}
