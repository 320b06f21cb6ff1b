package server

import (
	"net/http"

	"github.com/me/dfjss/internal/expr"
	"github.com/me/dfjss/internal/rules"
)

type ruleInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type rulesResponse struct {
	Rules     []ruleInfo `json:"rules"`
	Variables []string   `json:"variables"`
	Functions []string   `json:"functions"`
}

func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	resp := rulesResponse{
		Variables: expr.Variables,
		Functions: expr.Functions,
	}
	for _, rule := range rules.All() {
		resp.Rules = append(resp.Rules, ruleInfo{Name: rule.Name, Description: rule.Description})
	}
	resp.Rules = append(resp.Rules, ruleInfo{
		Name:        rules.RandomName,
		Description: "uniform random priority, reproducible from the request seed",
	})
	respondOK(w, reqID, resp)
}
