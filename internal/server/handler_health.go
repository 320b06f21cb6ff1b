package server

import (
	"net/http"
	"runtime"
	"time"
)

// Version is reported by /health.
const Version = "0.1.0"

type healthResponse struct {
	Status      string `json:"status"`
	Version     string `json:"version"`
	GoVersion   string `json:"go_version"`
	Uptime      string `json:"uptime"`
	Store       string `json:"store"`
	Simulations uint64 `json:"simulations"`
}

// handleHealth answers liveness checks; it never touches the store.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	h := healthResponse{
		Status:      "healthy",
		Version:     Version,
		GoVersion:   runtime.Version(),
		Uptime:      time.Since(s.startTime).Round(time.Second).String(),
		Store:       "disabled",
		Simulations: s.simulations.Load(),
	}
	if s.store != nil {
		h.Store = "sqlite"
	}
	respondOK(w, RequestIDFromContext(r.Context()), h)
}
