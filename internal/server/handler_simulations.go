package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/me/schedsim/internal/sched"
	"github.com/me/schedsim/internal/sim"
	"github.com/me/schedsim/internal/workload"
	"github.com/me/schedsim/pkg/model"
)

const scriptPolicy = "script"

// simulationParams are the query parameters of POST /simulations.
type simulationParams struct {
	policyName string
	policy     sched.Scheduler
	maxTicks   int
}

// parseSimulationParams resolves the policy and tick limit of a request.
// The script policy is compiled per request.
func (s *Server) parseSimulationParams(q url.Values) (simulationParams, *model.APIError) {
	p := simulationParams{policyName: strings.ToLower(q.Get("policy")), maxTicks: s.config.MaxTicks}
	if p.policyName == "" {
		p.policyName = "fcfs"
	}

	if p.policyName == scriptPolicy {
		script, err := sched.NewScript(q.Get("script"))
		if err != nil {
			return p, model.NewValidationError("invalid script policy", model.FieldError{Field: "script", Message: err.Error()})
		}
		p.policy = script
	} else {
		policy, err := s.registry.Get(p.policyName)
		if err != nil {
			return p, model.NewValidationError(err.Error(), model.FieldError{Field: "policy", Message: "unknown policy"})
		}
		p.policy = policy
	}

	if v := q.Get("max_ticks"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > s.config.MaxTicks {
			return p, model.NewValidationError("invalid max_ticks",
				model.FieldError{Field: "max_ticks", Message: "must be an integer in [1, " + strconv.Itoa(s.config.MaxTicks) + "]"})
		}
		p.maxTicks = n
	}
	return p, nil
}

func (s *Server) handleCreateSimulation(w http.ResponseWriter, r *http.Request) {
	params, apiErr := s.parseSimulationParams(r.URL.Query())
	if apiErr != nil {
		replyError(w, r, http.StatusBadRequest, apiErr)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWorkloadBytes))
	if err != nil {
		replyError(w, r, http.StatusRequestEntityTooLarge, &model.APIError{
			Code:    model.ErrValidation,
			Message: "workload body too large or unreadable: " + err.Error(),
		})
		return
	}
	wl, err := workload.Parse(body)
	if err != nil {
		var ve *workload.ValidationError
		if errors.As(err, &ve) {
			replyError(w, r, http.StatusBadRequest, ve.APIError())
			return
		}
		replyError(w, r, http.StatusBadRequest, &model.APIError{Code: model.ErrValidation, Message: err.Error()})
		return
	}
	if wl.Name == "" {
		wl.Name = "unnamed"
	}

	reqID := RequestIDFromContext(r.Context())
	cfg := sim.DefaultConfig()
	cfg.Policy = params.policyName
	cfg.MaxTicks = params.maxTicks
	simulator, err := sim.New(wl, params.policy, cfg, s.logger.With("request_id", reqID))
	if err != nil {
		replyError(w, r, http.StatusBadRequest, &model.APIError{Code: model.ErrValidation, Message: err.Error()})
		return
	}

	run, err := simulator.Run(r.Context())
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		s.logger.Warn("simulation cancelled", "request_id", reqID, "error", err)
		replyError(w, r, http.StatusServiceUnavailable, &model.APIError{Code: model.ErrInternal, Message: "simulation cancelled"})
		return
	}
	// Tick limits and protocol violations are outcomes worth keeping; the
	// run carries the error.
	run.Source = string(body)
	if err := s.store.CreateRun(r.Context(), run); err != nil {
		s.fail(w, r, "store run", err, "run_id", run.ID)
		return
	}
	reply(w, r, http.StatusCreated, run)
}

func (s *Server) handleListSimulations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	opts := model.DefaultListOptions()
	if v, err := strconv.Atoi(q.Get("limit")); err == nil {
		opts.Limit = v
	}
	if v, err := strconv.Atoi(q.Get("offset")); err == nil {
		opts.Offset = v
	}
	opts.Policy = strings.ToLower(q.Get("policy"))
	opts.Clamp()

	runs, total, err := s.store.ListRuns(r.Context(), opts)
	if err != nil {
		s.fail(w, r, "list runs", err)
		return
	}
	if runs == nil {
		runs = []*model.Run{}
	}
	replyPage(w, r, runs, opts.Page(len(runs), total))
}

func (s *Server) handleGetSimulation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	run, err := s.store.GetRun(r.Context(), id)
	if err != nil {
		s.fail(w, r, "get run", err, "run_id", id)
		return
	}
	if run == nil {
		replyError(w, r, http.StatusNotFound, model.NewNotFoundError("run", id))
		return
	}
	reply(w, r, http.StatusOK, run)
}

func (s *Server) handleDeleteSimulation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.store.DeleteRun(r.Context(), id); err != nil {
		var apiErr *model.APIError
		if errors.As(err, &apiErr) && apiErr.Code == model.ErrNotFound {
			replyError(w, r, http.StatusNotFound, apiErr)
			return
		}
		s.fail(w, r, "delete run", err, "run_id", id)
		return
	}
	reply(w, r, http.StatusOK, map[string]any{"deleted": true, "id": id})
}
