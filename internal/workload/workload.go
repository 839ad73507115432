// Package workload loads simulation inputs from YAML: the resource set and
// the processes with their scripted acquire/release actions.
package workload

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/me/schedsim/internal/sched"
	"github.com/me/schedsim/pkg/model"
)

// Workload is the decoded form of a workload file.
type Workload struct {
	Name      string         `yaml:"name" json:"name"`
	Resources []ResourceSpec `yaml:"resources" json:"resources"`
	Processes []ProcessSpec  `yaml:"processes" json:"processes"`
}

// ResourceSpec declares one resource. A nil Ceiling is derived from the
// processes that use the resource.
type ResourceSpec struct {
	ID      int    `yaml:"id" json:"id"`
	Name    string `yaml:"name" json:"name,omitempty"`
	Ceiling *int   `yaml:"ceiling" json:"ceiling,omitempty"`
}

// ProcessSpec declares one process. PIDs follow declaration order.
type ProcessSpec struct {
	Name     string       `yaml:"name" json:"name,omitempty"`
	Arrival  int          `yaml:"arrival" json:"arrival"`
	Lifespan int          `yaml:"lifespan" json:"lifespan"`
	Priority int          `yaml:"priority" json:"priority"`
	Actions  []ActionSpec `yaml:"actions" json:"actions,omitempty"`
}

// ActionSpec acquires resource Acquire at age At and holds it for Hold ticks.
type ActionSpec struct {
	At      int `yaml:"at" json:"at"`
	Acquire int `yaml:"acquire" json:"acquire"`
	Hold    int `yaml:"hold" json:"hold"`
}

// ValidationError lists every problem found in a workload.
type ValidationError struct {
	Details []model.FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Details))
	for i, d := range e.Details {
		msgs[i] = d.Field + ": " + d.Message
	}
	return "invalid workload: " + strings.Join(msgs, "; ")
}

// APIError converts e for the HTTP envelope.
func (e *ValidationError) APIError() *model.APIError {
	return model.NewValidationError("workload validation failed", e.Details...)
}

// Parse decodes and validates a workload document. Unknown keys are errors.
func Parse(data []byte) (*Workload, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var wl Workload
	if err := dec.Decode(&wl); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &ValidationError{Details: []model.FieldError{{Message: "workload is empty"}}}
		}
		return nil, fmt.Errorf("YAML parse error: %w", err)
	}
	if err := wl.Validate(); err != nil {
		return nil, err
	}
	return &wl, nil
}

// Load reads and parses the workload file at path. A missing name defaults
// to the file's base name.
func Load(path string) (*Workload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read workload: %w", err)
	}
	wl, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if wl.Name == "" {
		base := filepath.Base(path)
		wl.Name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return wl, nil
}

// Validate checks the workload and returns a *ValidationError, or nil.
func (w *Workload) Validate() error {
	var errs []model.FieldError
	add := func(field, format string, args ...any) {
		errs = append(errs, model.FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	n := len(w.Resources)
	seen := make(map[int]bool, n)
	for i, r := range w.Resources {
		field := fmt.Sprintf("resources[%d]", i)
		switch {
		case r.ID < 0 || r.ID >= n:
			add(field+".id", "id %d out of range [0, %d)", r.ID, n)
		case seen[r.ID]:
			add(field+".id", "duplicate resource id %d", r.ID)
		default:
			seen[r.ID] = true
		}
		if r.Ceiling != nil && *r.Ceiling < model.PriorityHighest {
			add(field+".ceiling", "ceiling %d is below %d", *r.Ceiling, model.PriorityHighest)
		}
	}

	if len(w.Processes) == 0 {
		add("processes", "at least one process is required")
	}
	names := make(map[string]int)
	for i, p := range w.Processes {
		field := fmt.Sprintf("processes[%d]", i)
		if p.Name != "" {
			if prev, dup := names[p.Name]; dup {
				add(field+".name", "name %q already used by processes[%d]", p.Name, prev)
			}
			names[p.Name] = i
		}
		if p.Arrival < 0 {
			add(field+".arrival", "arrival must be >= 0, got %d", p.Arrival)
		}
		if p.Lifespan <= 0 {
			add(field+".lifespan", "lifespan must be > 0, got %d", p.Lifespan)
		}
		if p.Priority < model.PriorityHighest {
			add(field+".priority", "priority must be >= %d, got %d", model.PriorityHighest, p.Priority)
		}
		for j, a := range p.Actions {
			af := fmt.Sprintf("%s.actions[%d]", field, j)
			if !seen[a.Acquire] {
				add(af+".acquire", "unknown resource %d", a.Acquire)
			}
			if a.At < 0 || a.At >= p.Lifespan {
				add(af+".at", "at %d outside lifespan %d", a.At, p.Lifespan)
			}
			if a.Hold <= 0 {
				add(af+".hold", "hold must be > 0, got %d", a.Hold)
			} else if a.At+a.Hold > p.Lifespan {
				add(af+".hold", "release at age %d is past lifespan %d", a.At+a.Hold, p.Lifespan)
			}
			for k, b := range p.Actions[:j] {
				if b.Acquire == a.Acquire && a.At < b.At+b.Hold && b.At < a.At+a.Hold {
					add(af, "overlaps actions[%d] on resource %d", k, a.Acquire)
				}
			}
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return &ValidationError{Details: errs}
}

// Ceilings returns the ceiling of each resource of a validated workload,
// indexed by id. Undeclared
// ceilings take the most urgent base priority of the processes that acquire
// the resource, or model.PriorityHighest when nobody does.
func (w *Workload) Ceilings() []int {
	ceilings := make([]int, len(w.Resources))
	derived := make([]bool, len(w.Resources))
	for _, r := range w.Resources {
		if r.Ceiling != nil {
			ceilings[r.ID] = *r.Ceiling
			continue
		}
		ceilings[r.ID] = model.PriorityHighest
		derived[r.ID] = true
	}

	used := make([]bool, len(w.Resources))
	for _, p := range w.Processes {
		for _, a := range p.Actions {
			rid := a.Acquire
			if !derived[rid] {
				continue
			}
			if !used[rid] || p.Priority < ceilings[rid] {
				ceilings[rid] = p.Priority
			}
			used[rid] = true
		}
	}
	return ceilings
}

// Build instantiates fresh processes and resources for one run. Processes
// are returned in PID order; each process's actions are sorted by age.
func (w *Workload) Build() ([]*model.Process, *sched.ResourceTable, error) {
	if err := w.Validate(); err != nil {
		return nil, nil, err
	}
	ceilings := w.Ceilings()
	resources := make([]*model.Resource, len(w.Resources))
	for i, r := range w.Resources {
		resources[i] = model.NewResource(r.ID, r.Name, ceilings[r.ID])
	}
	table, err := sched.NewResourceTable(resources...)
	if err != nil {
		return nil, nil, fmt.Errorf("build resources: %w", err)
	}

	procs := make([]*model.Process, len(w.Processes))
	for i, ps := range w.Processes {
		p := model.NewProcess(i+1, ps.Name, ps.Arrival, ps.Lifespan, ps.Priority)
		for _, a := range ps.Actions {
			p.Actions = append(p.Actions, model.Action{At: a.At, Resource: a.Acquire, Hold: a.Hold})
		}
		sort.SliceStable(p.Actions, func(a, b int) bool { return p.Actions[a].At < p.Actions[b].At })
		procs[i] = p
	}
	return procs, table, nil
}
