// Package sched implements the scheduling core: pluggable scheduling
// policies, the resource acquisition protocols they use, and the registry the
// driver selects a policy from.
//
// All state lives in an explicit Context owned by the driver. Nothing in this
// package is safe for concurrent use; the driver calls into it from a single
// goroutine, one tick at a time.
package sched

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/me/schedsim/pkg/model"
)

// Scheduler is one scheduling policy together with its acquisition protocol.
type Scheduler interface {
	// Name returns the human-readable policy name.
	Name() string

	// Initialize is called once before the first tick.
	Initialize(c *Context) error

	// Finalize is called once after the last tick.
	Finalize(c *Context)

	// Schedule picks the process to run this tick. It returns nil for an
	// idle tick. A non-nil error is a protocol violation and is fatal.
	Schedule(c *Context) (*model.Process, error)

	// Acquire requests resourceID for the current process. False means the
	// caller is now WAITING and must be scheduled out for this tick.
	Acquire(c *Context, resourceID int) (bool, error)

	// Release gives resourceID back on behalf of the current process.
	Release(c *Context, resourceID int) error
}

// Context is the simulation state the core reads and mutates.
type Context struct {
	// Current is the process that ran during the previous tick, or nil.
	Current   *model.Process
	Ready     *model.Queue
	Resources *ResourceTable
	// Tick is read-only to the core.
	Tick   int
	Logger *slog.Logger
}

// NewContext creates a context with an empty ready queue over the given resources.
func NewContext(resources *ResourceTable, logger *slog.Logger) *Context {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Context{
		Ready:     model.NewReadyQueue(),
		Resources: resources,
		Logger:    logger,
	}
}

func (c *Context) log() *slog.Logger {
	if c.Logger == nil {
		c.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return c.Logger
}

// caller resolves the current process and the resource an operation targets.
func (c *Context) caller(op string, rid int) (*model.Process, *model.Resource, error) {
	if c.Current == nil {
		return nil, nil, &model.ProtocolViolationError{Op: op, ResourceID: rid, Reason: "no current process"}
	}
	r, err := c.Resources.Get(rid)
	if err != nil {
		return nil, nil, err
	}
	return c.Current, r, nil
}

// ResourceTable is the fixed set of resources of a run, indexed by ID.
type ResourceTable struct {
	items []*model.Resource
}

// NewResourceTable builds a table from resources whose IDs must be exactly 0..len-1.
func NewResourceTable(resources ...*model.Resource) (*ResourceTable, error) {
	items := make([]*model.Resource, len(resources))
	for _, r := range resources {
		if r.ID < 0 || r.ID >= len(resources) {
			return nil, fmt.Errorf("resource id %d out of range [0, %d)", r.ID, len(resources))
		}
		if items[r.ID] != nil {
			return nil, fmt.Errorf("duplicate resource id %d", r.ID)
		}
		items[r.ID] = r
	}
	return &ResourceTable{items: items}, nil
}

// Len returns the number of resources.
func (t *ResourceTable) Len() int {
	return len(t.items)
}

// Get returns resource rid. An unknown rid is a protocol violation.
func (t *ResourceTable) Get(rid int) (*model.Resource, error) {
	if rid < 0 || rid >= len(t.items) {
		return nil, &model.ProtocolViolationError{
			Op:         "lookup",
			ResourceID: rid,
			Reason:     fmt.Sprintf("unknown resource (table has %d)", len(t.items)),
		}
	}
	return t.items[rid], nil
}

// All returns the resources in ID order.
func (t *ResourceTable) All() []*model.Resource {
	out := make([]*model.Resource, len(t.items))
	copy(out, t.items)
	return out
}
