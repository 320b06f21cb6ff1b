package server

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/me/dfjss/pkg/model"
)

func (s *Server) requireStore(w http.ResponseWriter, reqID string) bool {
	if s.store != nil {
		return true
	}
	respondError(w, reqID, &model.APIError{
		Code:    model.ErrUnavailable,
		Message: "run storage is not configured",
	})
	return false
}

// runQuery reads limit, offset, state and instance from the query string.
func runQuery(r *http.Request) (model.RunQuery, *model.APIError) {
	q := r.URL.Query()
	opts := model.DefaultRunQuery()
	var details []model.FieldError
	for _, p := range []struct {
		name string
		dst  *int
	}{{"limit", &opts.Limit}, {"offset", &opts.Offset}} {
		raw := q.Get(p.name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			details = append(details, model.FieldError{Field: p.name, Message: "must be an integer"})
			continue
		}
		*p.dst = n
	}
	if state := q.Get("state"); state != "" {
		rs, ok := model.ParseRunState(state)
		if !ok {
			details = append(details, model.FieldError{Field: "state", Message: "one of COMPLETED, CAPPED, FAILED"})
		}
		opts.State = rs
	}
	opts.Instance = q.Get("instance")
	if len(details) > 0 {
		return opts, model.NewValidationError("invalid query", details...)
	}
	opts.Clamp()
	return opts, nil
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	if !s.requireStore(w, reqID) {
		return
	}

	opts, apiErr := runQuery(r)
	if apiErr != nil {
		respondError(w, reqID, apiErr)
		return
	}

	runs, total, err := s.store.ListRuns(r.Context(), opts)
	if err != nil {
		respondInternal(w, reqID, err)
		return
	}
	if runs == nil {
		runs = []*model.Run{}
	}

	respondList(w, reqID, runs, opts.Page(total))
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	if !s.requireStore(w, reqID) {
		return
	}
	id := chi.URLParam(r, "id")

	run, err := s.store.GetRun(r.Context(), id)
	if err != nil {
		respondInternal(w, reqID, err)
		return
	}
	if run == nil {
		respondError(w, reqID, model.NewNotFoundError("run", id))
		return
	}
	respondOK(w, reqID, run)
}

func (s *Server) handleDeleteRun(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	if !s.requireStore(w, reqID) {
		return
	}
	id := chi.URLParam(r, "id")

	deleted, err := s.store.DeleteRun(r.Context(), id)
	if err != nil {
		respondInternal(w, reqID, err)
		return
	}
	if !deleted {
		respondError(w, reqID, model.NewNotFoundError("run", id))
		return
	}
	s.logger.Info("run deleted", "id", id)
	respondOK(w, reqID, map[string]string{"id": id, "deleted": "true"})
}
