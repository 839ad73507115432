package server

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/me/schedsim/internal/config"
	"github.com/me/schedsim/internal/sched"
	"github.com/me/schedsim/internal/store"
	"github.com/me/schedsim/pkg/model"
)

const inversionYAML = `name: inversion
resources:
  - {id: 0, name: disk}
processes:
  - name: low
    lifespan: 6
    priority: 10
    actions: [{at: 1, acquire: 0, hold: 3}]
  - name: high
    arrival: 2
    lifespan: 3
    priority: 1
    actions: [{at: 0, acquire: 0, hold: 2}]
  - {name: mid, arrival: 3, lifespan: 4, priority: 5}
`

func testServer(t *testing.T) *Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelError}))
	st, err := store.NewSQLiteStore(":memory:", logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := st.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	cfg := config.DefaultServerConfig()
	cfg.DBPath = ":memory:"
	cfg.MaxTicks = 200
	return New(cfg, st, sched.NewDefaultRegistry(logger), logger)
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
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if w.Code != wantStatus {
		t.Fatalf("%s %s: status=%d, want %d, body=%s", method, path, w.Code, wantStatus, w.Body.String())
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Errorf("%s %s: missing X-Request-ID", method, path)
	}
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("%s %s: invalid JSON: %v", method, path, err)
	}
	return env
}

func simulate(t *testing.T, srv *Server, query string) model.Run {
	t.Helper()
	env := do(t, srv, "POST", "/api/v1/simulations/"+query, inversionYAML, http.StatusCreated)
	var run model.Run
	if err := json.Unmarshal(env.Data, &run); err != nil {
		t.Fatalf("decode run: %v", err)
	}
	return run
}

func TestDiscovery(t *testing.T) {
	srv := testServer(t)
	env := do(t, srv, "GET", "/api/v1/", "", http.StatusOK)
	if env.Status != "ok" || env.RequestID == "" {
		t.Errorf("envelope = %+v", env)
	}
	var data discoveryResponse
	json.Unmarshal(env.Data, &data)
	if data.Name != "schedsim API" || len(data.Endpoints) != 5 {
		t.Fatalf("discovery = %+v", data)
	}
	for _, ep := range data.Endpoints {
		if ep.Path == "/api/v1/simulations" && strings.Join(ep.Methods, ",") != "GET,POST" {
			t.Errorf("simulations methods = %v", ep.Methods)
		}
		if ep.Description == "" {
			t.Errorf("%s has no description", ep.Path)
		}
	}
}

func TestHealth(t *testing.T) {
	srv := testServer(t)
	env := do(t, srv, "GET", "/api/v1/health", "", http.StatusOK)
	var data healthResponse
	json.Unmarshal(env.Data, &data)
	if data.Status != "healthy" || data.Version != Version || data.Store != "ok" {
		t.Errorf("health = %+v", data)
	}
	if data.Policies != 9 {
		t.Errorf("policies = %d, want 9", data.Policies)
	}
}

func TestListPolicies(t *testing.T) {
	srv := testServer(t)
	env := do(t, srv, "GET", "/api/v1/policies", "", http.StatusOK)
	var data []policyInfo
	json.Unmarshal(env.Data, &data)
	if len(data) != 9 {
		t.Fatalf("got %d policies, want 9", len(data))
	}
	if data[0].Name != "fcfs" || data[0].Description != "FIFO" {
		t.Errorf("first policy = %+v", data[0])
	}
	if data[8].Name != "script" || data[8].Params == "" {
		t.Errorf("last policy = %+v", data[8])
	}
}

func TestCreateSimulation(t *testing.T) {
	srv := testServer(t)
	run := simulate(t, srv, "?policy=PIP")

	if !strings.HasPrefix(run.ID, "run_") {
		t.Errorf("id = %q, want run_ prefix", run.ID)
	}
	if run.Policy != "pip" || !run.Completed || run.Ticks != 14 {
		t.Errorf("run = %+v", run)
	}
	if len(run.Timeline) != 14 || len(run.Processes) != 3 {
		t.Errorf("timeline=%d processes=%d", len(run.Timeline), len(run.Processes))
	}
	if run.Processes[1].Finish != 7 {
		t.Errorf("high finished at %d, want 7", run.Processes[1].Finish)
	}

	env := do(t, srv, "GET", "/api/v1/simulations/"+run.ID, "", http.StatusOK)
	var stored model.Run
	json.Unmarshal(env.Data, &stored)
	if stored.ID != run.ID || len(stored.Timeline) != 14 || stored.Source != inversionYAML {
		t.Errorf("stored run = %+v", stored)
	}
}

func TestCreateSimulation_Script(t *testing.T) {
	srv := testServer(t)
	run := simulate(t, srv, "?policy=script&script=p.remaining")
	if run.Policy != "script" || !run.Completed {
		t.Errorf("run = %+v", run)
	}
}

func TestCreateSimulation_TickLimitIsStored(t *testing.T) {
	srv := testServer(t)
	run := simulate(t, srv, "?policy=rr&max_ticks=5")
	if run.Completed || run.Ticks != 5 || !strings.Contains(run.Error, "tick limit") {
		t.Errorf("run = %+v", run)
	}
	do(t, srv, "GET", "/api/v1/simulations/"+run.ID, "", http.StatusOK)
}

func TestCreateSimulation_Errors(t *testing.T) {
	tests := []struct {
		name   string
		query  string
		body   string
		status int
		field  string
	}{
		{"unknown policy", "?policy=lottery", inversionYAML, http.StatusBadRequest, "policy"},
		{"bad script", "?policy=script&script=(", inversionYAML, http.StatusBadRequest, "script"},
		{"empty script", "?policy=script", inversionYAML, http.StatusBadRequest, "script"},
		{"bad max_ticks", "?max_ticks=abc", inversionYAML, http.StatusBadRequest, "max_ticks"},
		{"max_ticks above server limit", "?max_ticks=100000", inversionYAML, http.StatusBadRequest, "max_ticks"},
		{"invalid workload", "", "processes:\n  - lifespan: 0\n", http.StatusBadRequest, "processes[0].lifespan"},
		{"malformed YAML", "", "processes: [", http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := testServer(t)
			env := do(t, srv, "POST", "/api/v1/simulations/"+tt.query, tt.body, tt.status)
			if env.Status != "error" || env.Error == nil || env.Error.Code != model.ErrValidation {
				t.Fatalf("envelope = %+v", env)
			}
			if tt.field == "" {
				return
			}
			found := false
			for _, d := range env.Error.Details {
				if d.Field == tt.field {
					found = true
				}
			}
			if !found {
				t.Errorf("details %+v missing field %q", env.Error.Details, tt.field)
			}
		})
	}
}

func TestListSimulations(t *testing.T) {
	srv := testServer(t)
	simulate(t, srv, "?policy=pip")
	simulate(t, srv, "?policy=pcp")
	simulate(t, srv, "?policy=pip")

	env := do(t, srv, "GET", "/api/v1/simulations/?policy=pip&limit=1", "", http.StatusOK)
	if env.Pagination == nil || env.Pagination.Total != 2 || !env.Pagination.HasMore {
		t.Fatalf("pagination = %+v", env.Pagination)
	}
	var runs []model.Run
	json.Unmarshal(env.Data, &runs)
	if len(runs) != 1 || runs[0].Policy != "pip" {
		t.Errorf("runs = %+v", runs)
	}

	env = do(t, srv, "GET", "/api/v1/simulations/?policy=fcfs", "", http.StatusOK)
	if string(env.Data) != "[]" {
		t.Errorf("empty list data = %s, want []", env.Data)
	}
}

func TestGetSimulation_NotFound(t *testing.T) {
	srv := testServer(t)
	env := do(t, srv, "GET", "/api/v1/simulations/run_nope", "", http.StatusNotFound)
	if env.Error == nil || env.Error.Code != model.ErrNotFound {
		t.Errorf("error = %+v", env.Error)
	}
}

func TestDeleteSimulation(t *testing.T) {
	srv := testServer(t)
	run := simulate(t, srv, "")
	do(t, srv, "DELETE", "/api/v1/simulations/"+run.ID, "", http.StatusOK)
	do(t, srv, "GET", "/api/v1/simulations/"+run.ID, "", http.StatusNotFound)
	do(t, srv, "DELETE", "/api/v1/simulations/"+run.ID, "", http.StatusNotFound)
}
