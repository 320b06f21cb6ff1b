package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/me/dfjss/internal/metrics"
	"github.com/me/dfjss/internal/parser"
	"github.com/me/dfjss/internal/report"
	"github.com/me/dfjss/internal/scheduler"
	"github.com/me/dfjss/internal/simulation"
	"github.com/me/dfjss/pkg/model"
)

// simulateRequest carries the instance either as a document (YAML/JSON
// object) or in the plain text format.
type simulateRequest struct {
	Instance     json.RawMessage `json:"instance"`
	InstanceText string          `json:"instance_text"`
	Name         string          `json:"name"`
	Rule         string          `json:"rule"`
	Expression   string          `json:"expression"`
	Seed         uint64          `json:"seed"`
	MaxTime      int             `json:"max_time"`
	Persist      *bool           `json:"persist"`
}

type simulateResponse struct {
	RunID         string                     `json:"run_id,omitempty"`
	Instance      string                     `json:"instance"`
	Scorer        string                     `json:"scorer"`
	State         model.RunState             `json:"state"`
	Makespan      int                        `json:"makespan"`
	Diagnostic    string                     `json:"diagnostic,omitempty"`
	Ticks         int                        `json:"ticks"`
	Jobs          int                        `json:"jobs"`
	Cancelled     []int                      `json:"cancelled"`
	Preemptions   int                        `json:"preemptions"`
	ScoringErrors int                        `json:"scoring_errors"`
	Dropped       []model.ETPCConstraint     `json:"dropped_constraints,omitempty"`
	Metrics       metrics.Summary            `json:"metrics"`
	Schedule      []model.ScheduledOperation `json:"schedule"`
	ElapsedMs     float64                    `json:"elapsed_ms"`
	Gantt         string                     `json:"gantt,omitempty"`
}

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	var req simulateRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		respondError(w, reqID, &model.APIError{
			Code:    model.ErrValidation,
			Message: "Invalid JSON body: " + err.Error(),
		})
		return
	}
	if req.MaxTime < 0 {
		respondError(w, reqID, model.NewValidationError("invalid max_time",
			model.FieldError{Field: "max_time", Message: "must not be negative"}))
		return
	}

	inst, apiErr := s.instanceFromRequest(req.Instance, req.InstanceText, req.Name)
	if apiErr != nil {
		respondError(w, reqID, apiErr)
		return
	}

	ctx := r.Context()
	if s.config.SimulateTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.SimulateTimeout)
		defer cancel()
	}
	opts := s.simOpts
	if req.MaxTime > 0 {
		opts = append(opts[:len(opts):len(opts)], scheduler.WithMaxTime(req.MaxTime))
	}

	persist := s.store != nil && (req.Persist == nil || *req.Persist)
	out, err := simulation.Run(ctx, simulation.Request{
		Instance:   inst,
		Rule:       req.Rule,
		Expression: req.Expression,
		Seed:       req.Seed,
	}, opts...)
	if err != nil {
		var verr *model.APIError
		switch {
		case errors.As(err, &verr):
			if persist && verr.Code == model.ErrValidation && inst.Name != "" {
				s.saveRun(ctx, simulation.Failed(inst.Name, scorerLabel(req), verr))
			}
			respondError(w, reqID, verr)
		case errors.Is(err, context.DeadlineExceeded):
			respondError(w, reqID, &model.APIError{
				Code:    model.ErrTimeout,
				Message: "simulation exceeded " + s.config.SimulateTimeout.String(),
			})
		default:
			respondInternal(w, reqID, err)
		}
		return
	}

	s.simulations.Add(1)
	run := out.Record()
	resp := simulateResponse{
		Instance:      inst.Name,
		Scorer:        out.Scorer,
		State:         run.State,
		Makespan:      out.Result.Makespan,
		Diagnostic:    out.Result.Diagnostic,
		Ticks:         out.Result.Ticks,
		Jobs:          out.Result.Jobs,
		Cancelled:     nonNilInts(out.Result.Cancelled),
		Preemptions:   out.Result.Preemptions,
		ScoringErrors: out.Result.ScoringErrors,
		Dropped:       out.Result.Dropped,
		Metrics:       out.Metrics,
		Schedule:      out.Result.Schedule,
		ElapsedMs:     float64(out.Elapsed.Microseconds()) / 1000,
	}
	if r.URL.Query().Get("gantt") == "true" {
		var b strings.Builder
		if err := report.Gantt(&b, inst, out.Result, 100); err == nil {
			resp.Gantt = b.String()
		}
	}
	if persist {
		if err := s.store.CreateRun(ctx, run); err != nil {
			respondInternal(w, reqID, err)
			return
		}
		resp.RunID = run.ID
		s.logger.Info("run created", "id", run.ID, "instance", run.Instance, "scorer", run.Scorer,
			"state", run.State, "makespan", run.Makespan)
		respondCreated(w, reqID, resp)
		return
	}
	respondOK(w, reqID, resp)
}

type validateResponse struct {
	Name          string `json:"name"`
	Machines      int    `json:"machines"`
	Jobs          int    `json:"jobs"`
	Operations    int    `json:"operations"`
	Breakdowns    int    `json:"breakdowns"`
	Arrivals      int    `json:"arrivals"`
	Cancellations int    `json:"cancellations"`
	Constraints   int    `json:"etpc_constraints"`
	Unresolved    int    `json:"unresolved_constraints"`
}

func (s *Server) handleValidateInstance(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	var req simulateRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		respondError(w, reqID, &model.APIError{
			Code:    model.ErrValidation,
			Message: "Invalid JSON body: " + err.Error(),
		})
		return
	}
	inst, apiErr := s.instanceFromRequest(req.Instance, req.InstanceText, req.Name)
	if apiErr != nil {
		respondError(w, reqID, apiErr)
		return
	}
	if verr := inst.Validate(); verr != nil {
		respondError(w, reqID, verr)
		return
	}

	_, unknown := inst.KnownETPC()
	resp := validateResponse{
		Name:          inst.Name,
		Machines:      inst.Machines,
		Jobs:          inst.JobCount(),
		Breakdowns:    len(inst.Events.Breakdowns),
		Arrivals:      len(inst.Events.Arrivals),
		Cancellations: len(inst.Events.Cancellations),
		Constraints:   len(inst.Events.ETPC),
		Unresolved:    len(unknown),
	}
	for j := range resp.Jobs {
		resp.Operations += inst.OperationCount(j)
	}
	respondOK(w, reqID, resp)
}

// decodeJSON reads a JSON body bounded by the configured size limit.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	body := r.Body
	if s.config.MaxBodyBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, s.config.MaxBodyBytes)
	}
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// instanceFromRequest converts the instance carried by a request. The
// result is not validated yet.
func (s *Server) instanceFromRequest(doc json.RawMessage, text, name string) (*model.Instance, *model.APIError) {
	hasDoc := len(bytes.TrimSpace(doc)) > 0 && !bytes.Equal(bytes.TrimSpace(doc), []byte("null"))
	switch {
	case hasDoc && text != "":
		return nil, model.NewValidationError("instance and instance_text are mutually exclusive",
			model.FieldError{Field: "instance_text", Message: "send the instance once"})
	case text != "":
		if name == "" {
			name = "request"
		}
		inst, err := s.parser.ParseText([]byte(text), name)
		if err != nil {
			return nil, model.NewValidationError("invalid instance",
				model.FieldError{Field: "instance_text", Message: err.Error()})
		}
		return inst, nil
	case hasDoc:
		d, err := parser.DecodeDocument(bytes.NewReader(doc))
		if err != nil {
			return nil, model.NewValidationError("invalid instance",
				model.FieldError{Field: "instance", Message: err.Error()})
		}
		inst := d.Instance()
		if name != "" {
			inst.Name = name
		}
		if inst.Name == "" {
			inst.Name = "request"
		}
		return inst, nil
	default:
		return nil, model.NewValidationError("missing instance",
			model.FieldError{Field: "instance", Message: "instance or instance_text is required"})
	}
}

func (s *Server) saveRun(ctx context.Context, run *model.Run) {
	if err := s.store.CreateRun(ctx, run); err != nil {
		s.logger.Error("persist run", "id", run.ID, "error", err)
	}
}

func scorerLabel(req simulateRequest) string {
	if req.Expression != "" {
		return "expr:" + strings.TrimSpace(req.Expression)
	}
	return req.Rule
}

func nonNilInts(v []int) []int {
	if v == nil {
		return []int{}
	}
	return v
}
