package server

import "net/http"

type endpointInfo struct {
	Path        string   `json:"path"`
	Methods     []string `json:"methods"`
	Description string   `json:"description"`
}

type discoveryResponse struct {
	Name        string         `json:"name"`
	Version     string         `json:"version"`
	Description string         `json:"description"`
	Endpoints   []endpointInfo `json:"endpoints"`
}

func (s *Server) handleDiscovery(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	respondOK(w, reqID, discoveryResponse{
		Name:        "dfjss API",
		Version:     "v1",
		Description: "Dynamic flexible job-shop simulation with pluggable dispatching rules",
		Endpoints: []endpointInfo{
			{"/api/v1/rules", []string{"GET"}, "Built-in dispatching rules and expression variables"},
			{"/api/v1/simulate", []string{"POST"}, "Simulate an instance document under a rule or expression. ?gantt=true adds a text chart"},
			{"/api/v1/instances/validate", []string{"POST"}, "Validate an instance document without simulating it"},
			{"/api/v1/runs", []string{"GET"}, "Persisted runs, newest first. Filters: state, instance; paging: limit, offset"},
			{"/api/v1/runs/{id}", []string{"GET", "DELETE"}, "Single run with its schedule"},
			{"/api/v1/health", []string{"GET"}, "Server health and version"},
		},
	})
}
