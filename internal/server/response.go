package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/me/dfjss/pkg/model"
)

// requestID generates a short request identifier.
func requestID() string {
	return "req_" + uuid.New().String()[:8]
}

// statusFor maps an error code to its HTTP status.
var statusFor = map[model.ErrorCode]int{
	model.ErrValidation:  http.StatusBadRequest,
	model.ErrNotFound:    http.StatusNotFound,
	model.ErrTimeout:     http.StatusGatewayTimeout,
	model.ErrUnavailable: http.StatusServiceUnavailable,
	model.ErrInternal:    http.StatusInternalServerError,
}

func respondOK(w http.ResponseWriter, reqID string, data any) {
	respondJSON(w, http.StatusOK, reqID, data, nil, nil)
}

func respondCreated(w http.ResponseWriter, reqID string, data any) {
	respondJSON(w, http.StatusCreated, reqID, data, nil, nil)
}

func respondList(w http.ResponseWriter, reqID string, data any, pg *model.Pagination) {
	respondJSON(w, http.StatusOK, reqID, data, pg, nil)
}

// respondInternal reports an unexpected failure; err's text is passed through.
func respondInternal(w http.ResponseWriter, reqID string, err error) {
	respondError(w, reqID, &model.APIError{Code: model.ErrInternal, Message: err.Error()})
}

// respondError writes apiErr with the status its code maps to.
func respondError(w http.ResponseWriter, reqID string, apiErr *model.APIError) {
	status, ok := statusFor[apiErr.Code]
	if !ok {
		status = http.StatusInternalServerError
	}
	respondJSON(w, status, reqID, nil, nil, apiErr)
}

func respondJSON(w http.ResponseWriter, status int, reqID string, data any, pg *model.Pagination, apiErr *model.APIError) {
	resp := model.Response{
		Status:     "ok",
		RequestID:  reqID,
		Timestamp:  time.Now().UTC(),
		Data:       data,
		Pagination: pg,
		Error:      apiErr,
	}
	if apiErr != nil {
		resp.Status = "error"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}
