package sched

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/me/schedsim/pkg/model"
)

// Registry maps policy names to their Scheduler implementations.
// Registration happens at startup before the run begins, so no mutex is needed.
type Registry struct {
	schedulers map[string]Scheduler
	logger     *slog.Logger
}

// NewRegistry creates an empty Registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		schedulers: make(map[string]Scheduler),
		logger:     logger.With("component", "policy-registry"),
	}
}

// NewDefaultRegistry creates a Registry holding every built-in policy.
func NewDefaultRegistry(logger *slog.Logger) *Registry {
	r := NewRegistry(logger)
	r.Register("fcfs", FCFS{})
	r.Register("fifo", FCFS{})
	r.Register("sjf", SJF{})
	r.Register("srtf", SRTF{})
	r.Register("rr", RoundRobin{})
	r.Register("prio", Priority{})
	r.Register("pcp", PCP{})
	r.Register("pip", PIP{})
	return r
}

// Register adds s under name. Names are case-insensitive.
func (r *Registry) Register(name string, s Scheduler) {
	key := strings.ToLower(name)
	r.schedulers[key] = s
	r.logger.Debug("policy registered", "name", key, "policy", s.Name())
}

// Get returns the Scheduler registered under name.
func (r *Registry) Get(name string) (Scheduler, error) {
	s, ok := r.schedulers[strings.ToLower(name)]
	if !ok {
		return nil, &model.UnknownPolicyError{Name: name, Known: r.Names()}
	}
	return s, nil
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.schedulers))
	for n := range r.schedulers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
