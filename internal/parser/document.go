package parser

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/me/dfjss/pkg/model"
)

// Document is the YAML/JSON form of an instance. Each operation is the list
// of its alternatives.
type Document struct {
	Name     string     `yaml:"name,omitempty" json:"name,omitempty"`
	Machines int        `yaml:"machines" json:"machines"`
	Jobs     []JobDoc   `yaml:"jobs" json:"jobs"`
	Events   *EventsDoc `yaml:"events,omitempty" json:"events,omitempty"`
}

// JobDoc is one initial job.
type JobDoc struct {
	Arrival    int        `yaml:"arrival,omitempty" json:"arrival,omitempty"`
	Operations [][]AltDoc `yaml:"operations" json:"operations"`
}

// AltDoc is one alternative of an operation.
type AltDoc struct {
	Machine int `yaml:"machine" json:"machine"`
	Time    int `yaml:"time" json:"time"`
}

// EventsDoc holds the dynamic events.
type EventsDoc struct {
	Breakdowns    []BreakdownDoc `yaml:"breakdowns,omitempty" json:"breakdowns,omitempty"`
	AddedJobs     []AddedJobDoc  `yaml:"added_jobs,omitempty" json:"added_jobs,omitempty"`
	CancelledJobs []CancelDoc    `yaml:"cancelled_jobs,omitempty" json:"cancelled_jobs,omitempty"`
	ETPC          []ETPCDoc      `yaml:"etpc_constraints,omitempty" json:"etpc_constraints,omitempty"`
}

type BreakdownDoc struct {
	Machine int `yaml:"machine" json:"machine"`
	Start   int `yaml:"start" json:"start"`
	End     int `yaml:"end" json:"end"`
}

type AddedJobDoc struct {
	Time       int        `yaml:"time" json:"time"`
	Operations [][]AltDoc `yaml:"operations" json:"operations"`
}

type CancelDoc struct {
	Time int `yaml:"time" json:"time"`
	Job  int `yaml:"job" json:"job"`
}

type ETPCDoc struct {
	ForeJob int `yaml:"fore_job" json:"fore_job"`
	ForeOp  int `yaml:"fore_op_idx" json:"fore_op_idx"`
	HindJob int `yaml:"hind_job" json:"hind_job"`
	HindOp  int `yaml:"hind_op_idx" json:"hind_op_idx"`
	Lapse   int `yaml:"time_lapse" json:"time_lapse"`
}

// DecodeDocument decodes a YAML or JSON document. Unknown fields are errors.
func DecodeDocument(r io.Reader) (*Document, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var doc Document
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty document")
		}
		return nil, fmt.Errorf("YAML parse error: %w", err)
	}
	return &doc, nil
}

// ParseDocument decodes data as a Document and converts it. The result is not validated.
func (p *Parser) ParseDocument(data []byte, name string) (*model.Instance, error) {
	doc, err := DecodeDocument(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	inst := doc.Instance()
	if inst.Name == "" {
		inst.Name = name
	}
	return inst, nil
}

// Instance converts the document to the model.
func (d *Document) Instance() *model.Instance {
	inst := &model.Instance{Name: d.Name, Machines: d.Machines, Jobs: make([]model.JobSpec, len(d.Jobs))}
	for i, j := range d.Jobs {
		inst.Jobs[i] = model.JobSpec{Arrival: j.Arrival, Operations: toOperations(j.Operations)}
	}
	if d.Events == nil {
		return inst
	}
	ev := &inst.Events
	for _, b := range d.Events.Breakdowns {
		ev.Breakdowns = append(ev.Breakdowns, model.Breakdown{Machine: b.Machine, Start: b.Start, End: b.End})
	}
	for _, a := range d.Events.AddedJobs {
		ev.Arrivals = append(ev.Arrivals, model.JobArrival{Time: a.Time, Operations: toOperations(a.Operations)})
	}
	for _, c := range d.Events.CancelledJobs {
		ev.Cancellations = append(ev.Cancellations, model.JobCancellation{Time: c.Time, Job: c.Job})
	}
	for _, c := range d.Events.ETPC {
		ev.ETPC = append(ev.ETPC, model.ETPCConstraint{
			ForeJob: c.ForeJob, ForeOp: c.ForeOp, HindJob: c.HindJob, HindOp: c.HindOp, Lapse: c.Lapse,
		})
	}
	return inst
}

// NewDocument converts an instance to its document form.
func NewDocument(inst *model.Instance) *Document {
	d := &Document{Name: inst.Name, Machines: inst.Machines, Jobs: make([]JobDoc, len(inst.Jobs))}
	for i, j := range inst.Jobs {
		d.Jobs[i] = JobDoc{Arrival: j.Arrival, Operations: fromOperations(j.Operations)}
	}
	if inst.Events.Empty() {
		return d
	}
	ev := &EventsDoc{}
	for _, b := range inst.Events.Breakdowns {
		ev.Breakdowns = append(ev.Breakdowns, BreakdownDoc{Machine: b.Machine, Start: b.Start, End: b.End})
	}
	for _, a := range inst.Events.Arrivals {
		ev.AddedJobs = append(ev.AddedJobs, AddedJobDoc{Time: a.Time, Operations: fromOperations(a.Operations)})
	}
	for _, c := range inst.Events.Cancellations {
		ev.CancelledJobs = append(ev.CancelledJobs, CancelDoc{Time: c.Time, Job: c.Job})
	}
	for _, c := range inst.Events.ETPC {
		ev.ETPC = append(ev.ETPC, ETPCDoc{ForeJob: c.ForeJob, ForeOp: c.ForeOp, HindJob: c.HindJob, HindOp: c.HindOp, Lapse: c.Lapse})
	}
	d.Events = ev
	return d
}

// WriteDocument encodes inst as YAML.
func (p *Parser) WriteDocument(w io.Writer, inst *model.Instance) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(NewDocument(inst)); err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	return enc.Close()
}

func toOperations(ops [][]AltDoc) []model.Operation {
	out := make([]model.Operation, len(ops))
	for k, alts := range ops {
		out[k].Alternatives = make([]model.Alternative, len(alts))
		for a, alt := range alts {
			out[k].Alternatives[a] = model.Alternative{Machine: alt.Machine, Duration: alt.Time}
		}
	}
	return out
}

func fromOperations(ops []model.Operation) [][]AltDoc {
	out := make([][]AltDoc, len(ops))
	for k, op := range ops {
		out[k] = make([]AltDoc, len(op.Alternatives))
		for a, alt := range op.Alternatives {
			out[k][a] = AltDoc{Machine: alt.Machine, Time: alt.Duration}
		}
	}
	return out
}
