package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/me/dfjss/internal/config"
	"github.com/me/dfjss/internal/logging"
	"github.com/me/dfjss/internal/store"
	"github.com/me/dfjss/pkg/model"
)

const twoJobsDoc = `{"name":"two-jobs","machines":1,"jobs":[` +
	`{"operations":[[{"machine":0,"time":6}]]},` +
	`{"operations":[[{"machine":0,"time":2}]]}]}`

func testServer() *Server {
	return New(config.Default().Server, logging.Discard())
}

func testServerWithStore(t *testing.T) *Server {
	t.Helper()
	st, err := store.NewSQLiteStore(":memory:", logging.Discard())
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	if err := st.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate test store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return New(config.Default().Server, logging.Discard(), WithStore(st))
}

// envelope is used to decode the standard response envelope.
type envelope struct {
	Status     string            `json:"status"`
	RequestID  string            `json:"request_id"`
	Timestamp  string            `json:"timestamp"`
	Data       json.RawMessage   `json:"data"`
	Pagination *model.Pagination `json:"pagination"`
	Error      *model.APIError   `json:"error"`
}

func do(t *testing.T, srv *Server, method, path, body string, wantStatus int) envelope {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if w.Code != wantStatus {
		t.Fatalf("%s %s: status=%d, want %d, body=%s", method, path, w.Code, wantStatus, w.Body.String())
	}
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("%s %s: invalid JSON: %v", method, path, err)
	}
	return env
}

func doGet(t *testing.T, srv *Server, path string) envelope {
	t.Helper()
	return do(t, srv, "GET", path, "", http.StatusOK)
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		t.Fatalf("decode data: %v (%s)", err, raw)
	}
	return v
}

func TestDiscovery(t *testing.T) {
	srv := testServer()
	env := doGet(t, srv, "/api/v1/")
	if env.Status != "ok" {
		t.Errorf("status = %q, want ok", env.Status)
	}
	if !strings.HasPrefix(env.RequestID, "req_") {
		t.Errorf("request_id = %q, want req_ prefix", env.RequestID)
	}

	data := decode[discoveryResponse](t, env.Data)
	if data.Name != "dfjss API" {
		t.Errorf("name = %q, want dfjss API", data.Name)
	}
	if len(data.Endpoints) < 5 {
		t.Errorf("endpoints count = %d, want >= 5", len(data.Endpoints))
	}
}

func TestHealth(t *testing.T) {
	for _, path := range []string{"/health", "/api/v1/health"} {
		t.Run(path, func(t *testing.T) {
			data := decode[healthResponse](t, doGet(t, testServer(), path).Data)
			if data.Status != "healthy" {
				t.Errorf("health status = %q, want healthy", data.Status)
			}
			if data.Version != Version {
				t.Errorf("version = %q, want %s", data.Version, Version)
			}
			if data.Store != "disabled" {
				t.Errorf("store = %q, want disabled", data.Store)
			}
		})
	}
}

func TestRequestID_FromClient(t *testing.T) {
	srv := testServer()
	req := httptest.NewRequest("GET", "/api/v1/health", nil)
	req.Header.Set("X-Request-ID", "trace-42")
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if got := w.Header().Get("X-Request-ID"); got != "trace-42" {
		t.Errorf("X-Request-ID = %q, want trace-42", got)
	}

	req = httptest.NewRequest("GET", "/api/v1/health", nil)
	req.Header.Set("X-Request-ID", "has spaces")
	w = httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if got := w.Header().Get("X-Request-ID"); !strings.HasPrefix(got, "req_") {
		t.Errorf("X-Request-ID = %q, want a generated id", got)
	}
}

func TestListRules(t *testing.T) {
	data := decode[rulesResponse](t, doGet(t, testServer(), "/api/v1/rules").Data)
	names := map[string]bool{}
	for _, r := range data.Rules {
		names[r.Name] = true
		if r.Description == "" {
			t.Errorf("rule %s has no description", r.Name)
		}
	}
	for _, want := range []string{"SPT", "LPT", "FIFO", "ECT", "LLM", "Random"} {
		if !names[want] {
			t.Errorf("rule %s missing from %v", want, names)
		}
	}
	if len(data.Variables) == 0 || len(data.Functions) == 0 {
		t.Errorf("variables %v functions %v", data.Variables, data.Functions)
	}
}

func TestSimulate_WithoutStore(t *testing.T) {
	srv := testServer()
	body := `{"instance":` + twoJobsDoc + `,"rule":"spt"}`
	env := do(t, srv, "POST", "/api/v1/simulate", body, http.StatusOK)

	data := decode[simulateResponse](t, env.Data)
	if data.RunID != "" {
		t.Errorf("run_id = %q, want none without a store", data.RunID)
	}
	if data.Scorer != "SPT" || data.Makespan != 8 || data.State != model.RunStateCompleted {
		t.Errorf("response = %+v", data)
	}
	if len(data.Schedule) != 2 || data.Schedule[0].Job != 1 {
		t.Errorf("schedule = %+v, want the short job first", data.Schedule)
	}
	if data.Metrics.WaitAvg != 1 {
		t.Errorf("wait avg = %v, want 1", data.Metrics.WaitAvg)
	}
	if data.Gantt != "" {
		t.Error("gantt rendered without ?gantt=true")
	}

	health := decode[healthResponse](t, doGet(t, srv, "/health").Data)
	if health.Simulations != 1 {
		t.Errorf("health simulations = %d, want 1", health.Simulations)
	}
}

func TestSimulate_Persists(t *testing.T) {
	srv := testServerWithStore(t)
	body := `{"instance":` + twoJobsDoc + `,"expression":"neg(PT)"}`
	env := do(t, srv, "POST", "/api/v1/simulate?gantt=true", body, http.StatusCreated)

	data := decode[simulateResponse](t, env.Data)
	if !strings.HasPrefix(data.RunID, "run_") {
		t.Fatalf("run_id = %q, want run_ prefix", data.RunID)
	}
	if data.Scorer != "expr:neg(PT)" || data.Metrics.WaitAvg != 3 {
		t.Errorf("response = %+v", data)
	}
	if !strings.Contains(data.Gantt, "M0 |") {
		t.Errorf("gantt = %q", data.Gantt)
	}

	run := decode[model.Run](t, doGet(t, srv, "/api/v1/runs/"+data.RunID).Data)
	if run.Instance != "two-jobs" || run.Makespan != 8 || len(run.Schedule) != 2 {
		t.Errorf("stored run = %+v", run)
	}

	list := doGet(t, srv, "/api/v1/runs/?instance=two-jobs")
	if list.Pagination == nil || list.Pagination.Total != 1 {
		t.Fatalf("pagination = %+v, want total 1", list.Pagination)
	}
	runs := decode[[]model.Run](t, list.Data)
	if len(runs) != 1 || runs[0].ID != data.RunID {
		t.Errorf("listed runs = %+v", runs)
	}
}

func TestSimulate_PersistOptOut(t *testing.T) {
	srv := testServerWithStore(t)
	body := `{"instance":` + twoJobsDoc + `,"rule":"FIFO","persist":false}`
	env := do(t, srv, "POST", "/api/v1/simulate", body, http.StatusOK)
	if data := decode[simulateResponse](t, env.Data); data.RunID != "" {
		t.Errorf("run_id = %q, want none", data.RunID)
	}
	if list := doGet(t, srv, "/api/v1/runs/"); list.Pagination.Total != 0 {
		t.Errorf("total = %d, want 0", list.Pagination.Total)
	}
}

func TestSimulate_TextInstance(t *testing.T) {
	srv := testServer()
	body := `{"instance_text":"2 1\n1 1 0 6\n1 1 0 2\n","name":"txt","rule":"LPT"}`
	data := decode[simulateResponse](t, do(t, srv, "POST", "/api/v1/simulate", body, http.StatusOK).Data)
	if data.Instance != "txt" || data.Makespan != 8 || data.Schedule[0].Job != 0 {
		t.Errorf("response = %+v", data)
	}
}

func TestSimulate_MaxTime(t *testing.T) {
	srv := testServer()
	body := `{"instance":` + twoJobsDoc + `,"rule":"SPT","max_time":5}`
	data := decode[simulateResponse](t, do(t, srv, "POST", "/api/v1/simulate", body, http.StatusOK).Data)
	if data.State != model.RunStateCapped || data.Makespan != 5 || data.Diagnostic == "" {
		t.Errorf("response = %+v, want capped at 5", data)
	}
}

func TestSimulate_BadRequests(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantField string
	}{
		{"not json", `not json`, ""},
		{"unknown field", `{"instance":` + twoJobsDoc + `,"rule":"SPT","color":"red"}`, ""},
		{"missing instance", `{"rule":"SPT"}`, "instance"},
		{"missing scorer", `{"instance":` + twoJobsDoc + `}`, "rule"},
		{"unknown rule", `{"instance":` + twoJobsDoc + `,"rule":"EDD"}`, "rule"},
		{"both scorers", `{"instance":` + twoJobsDoc + `,"rule":"SPT","expression":"PT"}`, "expression"},
		{"bad expression", `{"instance":` + twoJobsDoc + `,"expression":"add(PT,"}`, "expression"},
		{"negative max time", `{"instance":` + twoJobsDoc + `,"rule":"SPT","max_time":-1}`, "max_time"},
		{"both instances", `{"instance":` + twoJobsDoc + `,"instance_text":"1 1\n1 1 0 1\n","rule":"SPT"}`, "instance_text"},
		{"bad text", `{"instance_text":"x y","rule":"SPT"}`, "instance_text"},
		{"unknown document field", `{"instance":{"machines":1,"jobz":[]},"rule":"SPT"}`, "instance"},
		{"invalid instance", `{"instance":{"machines":1,"jobs":[{"operations":[[{"machine":3,"time":1}]]}]},"rule":"SPT"}`,
			"jobs[0].operations[0][0].machine"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := do(t, testServer(), "POST", "/api/v1/simulate", tt.body, http.StatusBadRequest)
			if env.Status != "error" {
				t.Errorf("status = %q, want error", env.Status)
			}
			if env.Error == nil || env.Error.Code != model.ErrValidation {
				t.Fatalf("error = %+v, want VALIDATION_ERROR", env.Error)
			}
			if tt.wantField == "" {
				return
			}
			for _, d := range env.Error.Details {
				if d.Field == tt.wantField {
					return
				}
			}
			t.Errorf("details = %+v, want one on %s", env.Error.Details, tt.wantField)
		})
	}
}

func TestSimulate_InvalidInstanceRecordedAsFailed(t *testing.T) {
	srv := testServerWithStore(t)
	body := `{"instance":{"name":"broken","machines":0,"jobs":[{"operations":[[{"machine":0,"time":1}]]}]},"rule":"SPT"}`
	do(t, srv, "POST", "/api/v1/simulate", body, http.StatusBadRequest)

	list := doGet(t, srv, "/api/v1/runs/?state=FAILED")
	runs := decode[[]model.Run](t, list.Data)
	if len(runs) != 1 || runs[0].Instance != "broken" || runs[0].Diagnostic == "" {
		t.Errorf("failed runs = %+v", runs)
	}
}

func TestValidateInstance(t *testing.T) {
	srv := testServer()
	doc := `{"machines":2,"jobs":[{"operations":[[{"machine":0,"time":1}],[{"machine":1,"time":2}]]}],` +
		`"events":{"added_jobs":[{"time":3,"operations":[[{"machine":1,"time":1}]]}],` +
		`"etpc_constraints":[{"fore_job":0,"fore_op_idx":1,"hind_job":1,"hind_op_idx":0,"time_lapse":2},` +
		`{"fore_job":0,"fore_op_idx":7,"hind_job":1,"hind_op_idx":0,"time_lapse":0}]}}`
	data := decode[validateResponse](t, do(t, srv, "POST", "/api/v1/instances/validate", `{"instance":`+doc+`}`, http.StatusOK).Data)
	want := validateResponse{Name: "request", Machines: 2, Jobs: 2, Operations: 3, Arrivals: 1, Constraints: 2, Unresolved: 1}
	if data != want {
		t.Errorf("validate = %+v, want %+v", data, want)
	}

	env := do(t, srv, "POST", "/api/v1/instances/validate", `{"instance":{"machines":0,"jobs":[]}}`, http.StatusBadRequest)
	if env.Error == nil || len(env.Error.Details) == 0 {
		t.Errorf("error = %+v, want field details", env.Error)
	}
}

func TestRuns_WithoutStore(t *testing.T) {
	srv := testServer()
	env := do(t, srv, "GET", "/api/v1/runs/", "", http.StatusServiceUnavailable)
	if env.Error == nil || env.Error.Code != model.ErrUnavailable {
		t.Errorf("error = %+v, want UNAVAILABLE", env.Error)
	}
}

func TestRuns_GetAndDelete(t *testing.T) {
	srv := testServerWithStore(t)
	created := decode[simulateResponse](t, do(t, srv, "POST", "/api/v1/simulate",
		`{"instance":`+twoJobsDoc+`,"rule":"SPT"}`, http.StatusCreated).Data)

	env := do(t, srv, "GET", "/api/v1/runs/run_missing", "", http.StatusNotFound)
	if env.Error == nil || env.Error.Code != model.ErrNotFound {
		t.Errorf("error = %+v, want NOT_FOUND", env.Error)
	}

	do(t, srv, "DELETE", "/api/v1/runs/"+created.RunID, "", http.StatusOK)
	do(t, srv, "GET", "/api/v1/runs/"+created.RunID, "", http.StatusNotFound)
	do(t, srv, "DELETE", "/api/v1/runs/"+created.RunID, "", http.StatusNotFound)
}

func TestListRuns_Query(t *testing.T) {
	srv := testServerWithStore(t)
	for _, rule := range []string{"SPT", "LPT", "FIFO"} {
		do(t, srv, "POST", "/api/v1/simulate", `{"instance":`+twoJobsDoc+`,"rule":"`+rule+`"}`, http.StatusCreated)
	}

	env := doGet(t, srv, "/api/v1/runs/?limit=2")
	if pg := env.Pagination; pg.Total != 3 || pg.Limit != 2 || !pg.HasMore {
		t.Errorf("pagination = %+v", pg)
	}
	if runs := decode[[]model.Run](t, env.Data); len(runs) != 2 {
		t.Errorf("got %d runs, want 2", len(runs))
	}

	env = doGet(t, srv, "/api/v1/runs/?limit=2&offset=2")
	if env.Pagination.HasMore {
		t.Error("has_more on the last page")
	}

	for _, q := range []string{"limit=x", "offset=1.5", "state=RUNNING"} {
		env := do(t, srv, "GET", "/api/v1/runs/?"+q, "", http.StatusBadRequest)
		if env.Error == nil || env.Error.Code != model.ErrValidation {
			t.Errorf("%s: error = %+v", q, env.Error)
		}
	}
}
