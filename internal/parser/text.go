package parser

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/me/dfjss/pkg/model"
)

type section int

const (
	sectionJobs section = iota
	sectionEvents
	sectionBreakdowns
	sectionAdded
	sectionCancelled
	sectionETPC
)

// Section headers. A line containing one of these switches sections, so
// annotated headers such as "Machine Breakdowns (machine start end):" work.
const (
	headerEvents     = "Dynamic Events"
	headerBreakdowns = "Machine Breakdowns"
	headerAdded      = "Added Jobs"
	headerCancelled  = "Cancelled Jobs"
	headerETPC       = "ETPC Constraints"
)

// ParseText decodes the text format:
//
//	<jobs> <machines> [average alternatives, ignored]
//	<nops> {<nalts> {<machine> <time>}...}...     one line per job
//	Dynamic Events
//	Machine Breakdowns
//	<machine> <start> <end>
//	Added Jobs
//	<time>: <nops> {<nalts> {<machine> <time>}...}...
//	Cancelled Jobs
//	<time> <job>
//	ETPC Constraints
//	<fore_job> <fore_op> <hind_job> <hind_op> <lapse>
//
// Blank lines and lines starting with # are ignored. The result is not validated.
func (p *Parser) ParseText(data []byte, name string) (*model.Instance, error) {
	inst := &model.Instance{Name: name}
	declaredJobs := -1
	sec := sectionJobs

	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		wrap := func(err error) error {
			return fmt.Errorf("%s: line %d: %w", name, lineNo, err)
		}

		if declaredJobs < 0 {
			fields := strings.Fields(line)
			if len(fields) < 2 {
				return nil, wrap(errors.New("header must hold the job and machine counts"))
			}
			nums, err := ints(strings.Join(fields[:2], " "))
			if err != nil {
				return nil, wrap(err)
			}
			declaredJobs, inst.Machines = nums[0], nums[1]
			continue
		}

		switch {
		case strings.HasPrefix(line, headerEvents):
			sec = sectionEvents
			continue
		case strings.Contains(line, headerBreakdowns):
			sec = sectionBreakdowns
			continue
		case strings.Contains(line, headerAdded):
			sec = sectionAdded
			continue
		case strings.Contains(line, headerCancelled):
			sec = sectionCancelled
			continue
		case strings.Contains(line, headerETPC):
			sec = sectionETPC
			continue
		}

		var err error
		switch sec {
		case sectionJobs:
			var ops []model.Operation
			ops, err = p.operations(line)
			inst.Jobs = append(inst.Jobs, model.JobSpec{Operations: ops})
		case sectionEvents:
			err = fmt.Errorf("event line %q before any event section header", line)
		case sectionBreakdowns:
			err = p.breakdown(inst, line)
		case sectionAdded:
			err = p.addedJob(inst, line)
		case sectionCancelled:
			err = cancellation(inst, line)
		case sectionETPC:
			err = etpc(inst, line)
		}
		if err != nil {
			return nil, wrap(err)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if declaredJobs < 0 {
		return nil, fmt.Errorf("%s: missing header line", name)
	}
	if declaredJobs != len(inst.Jobs) {
		return nil, fmt.Errorf("%s: header declares %d jobs, found %d job lines", name, declaredJobs, len(inst.Jobs))
	}
	return inst, nil
}

func ints(line string) ([]int, error) {
	fields := strings.Fields(line)
	out := make([]int, len(fields))
	for i, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q", f)
		}
		out[i] = v
	}
	return out, nil
}

func (p *Parser) machine(m int) int {
	if p.oneBased {
		return m - 1
	}
	return m
}

func (p *Parser) operations(line string) ([]model.Operation, error) {
	nums, err := ints(line)
	if err != nil {
		return nil, err
	}
	next := func(what string) (int, error) {
		if len(nums) == 0 {
			return 0, fmt.Errorf("line ends before %s", what)
		}
		v := nums[0]
		nums = nums[1:]
		return v, nil
	}

	nops, err := next("the operation count")
	if err != nil {
		return nil, err
	}
	if nops < 0 {
		return nil, fmt.Errorf("negative operation count %d", nops)
	}
	ops := make([]model.Operation, nops)
	for k := range ops {
		nalts, err := next(fmt.Sprintf("the alternative count of operation %d", k))
		if err != nil {
			return nil, err
		}
		if nalts < 0 {
			return nil, fmt.Errorf("operation %d: negative alternative count %d", k, nalts)
		}
		alts := make([]model.Alternative, nalts)
		for a := range alts {
			m, err := next(fmt.Sprintf("machine of operation %d alternative %d", k, a))
			if err != nil {
				return nil, err
			}
			d, err := next(fmt.Sprintf("time of operation %d alternative %d", k, a))
			if err != nil {
				return nil, err
			}
			alts[a] = model.Alternative{Machine: p.machine(m), Duration: d}
		}
		ops[k].Alternatives = alts
	}
	if len(nums) > 0 {
		return nil, fmt.Errorf("%d unexpected trailing values", len(nums))
	}
	return ops, nil
}

func fixed(line string, n int, what string) ([]int, error) {
	nums, err := ints(line)
	if err != nil {
		return nil, err
	}
	if len(nums) != n {
		return nil, fmt.Errorf("%s needs %d values, got %d", what, n, len(nums))
	}
	return nums, nil
}

func (p *Parser) breakdown(inst *model.Instance, line string) error {
	v, err := fixed(line, 3, "breakdown")
	if err != nil {
		return err
	}
	inst.Events.Breakdowns = append(inst.Events.Breakdowns, model.Breakdown{
		Machine: p.machine(v[0]), Start: v[1], End: v[2],
	})
	return nil
}

func (p *Parser) addedJob(inst *model.Instance, line string) error {
	timePart, jobPart, ok := strings.Cut(line, ":")
	if !ok {
		return errors.New(`added job needs "<time>: <operations>"`)
	}
	at, err := strconv.Atoi(strings.TrimSpace(timePart))
	if err != nil {
		return fmt.Errorf("invalid arrival time %q", strings.TrimSpace(timePart))
	}
	ops, err := p.operations(jobPart)
	if err != nil {
		return err
	}
	inst.Events.Arrivals = append(inst.Events.Arrivals, model.JobArrival{Time: at, Operations: ops})
	return nil
}

func cancellation(inst *model.Instance, line string) error {
	v, err := fixed(line, 2, "cancellation")
	if err != nil {
		return err
	}
	inst.Events.Cancellations = append(inst.Events.Cancellations, model.JobCancellation{Time: v[0], Job: v[1]})
	return nil
}

func etpc(inst *model.Instance, line string) error {
	v, err := fixed(line, 5, "ETPC constraint")
	if err != nil {
		return err
	}
	inst.Events.ETPC = append(inst.Events.ETPC, model.ETPCConstraint{
		ForeJob: v[0], ForeOp: v[1], HindJob: v[2], HindOp: v[3], Lapse: v[4],
	})
	return nil
}

// WriteText encodes inst in the text format. Initial jobs must arrive at 0,
// since the format has no arrival column for them.
func (p *Parser) WriteText(w io.Writer, inst *model.Instance) error {
	for i, j := range inst.Jobs {
		if j.Arrival != 0 {
			return fmt.Errorf("job %d arrives at %d; the text format only holds arrivals as added jobs", i, j.Arrival)
		}
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%d %d\n", len(inst.Jobs), inst.Machines)
	for _, j := range inst.Jobs {
		bw.WriteString(p.formatOperations(j.Operations))
		bw.WriteByte('\n')
	}

	ev := inst.Events
	if !ev.Empty() {
		fmt.Fprintf(bw, "\n%s\n", headerEvents)
		if len(ev.Breakdowns) > 0 {
			fmt.Fprintf(bw, "%s (machine start end):\n", headerBreakdowns)
			for _, b := range ev.Breakdowns {
				fmt.Fprintf(bw, "%d %d %d\n", p.writeMachine(b.Machine), b.Start, b.End)
			}
		}
		if len(ev.Arrivals) > 0 {
			fmt.Fprintf(bw, "%s (time: operations):\n", headerAdded)
			for _, a := range ev.Arrivals {
				fmt.Fprintf(bw, "%d: %s\n", a.Time, p.formatOperations(a.Operations))
			}
		}
		if len(ev.Cancellations) > 0 {
			fmt.Fprintf(bw, "%s (time job):\n", headerCancelled)
			for _, c := range ev.Cancellations {
				fmt.Fprintf(bw, "%d %d\n", c.Time, c.Job)
			}
		}
		if len(ev.ETPC) > 0 {
			fmt.Fprintf(bw, "%s (fore_job fore_op hind_job hind_op lapse):\n", headerETPC)
			for _, c := range ev.ETPC {
				fmt.Fprintf(bw, "%d %d %d %d %d\n", c.ForeJob, c.ForeOp, c.HindJob, c.HindOp, c.Lapse)
			}
		}
	}
	return bw.Flush()
}

func (p *Parser) writeMachine(m int) int {
	if p.oneBased {
		return m + 1
	}
	return m
}

func (p *Parser) formatOperations(ops []model.Operation) string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(len(ops)))
	for _, op := range ops {
		fmt.Fprintf(&b, " %d", len(op.Alternatives))
		for _, a := range op.Alternatives {
			fmt.Fprintf(&b, " %d %d", p.writeMachine(a.Machine), a.Duration)
		}
	}
	return b.String()
}
