package sched

import (
	"cmp"

	"github.com/me/schedsim/pkg/model"
)

// lifecycle provides no-op Initialize and Finalize for stateless policies.
type lifecycle struct{}

func (lifecycle) Initialize(*Context) error { return nil }
func (lifecycle) Finalize(*Context)         {}

// continuable reports whether the previous current process may keep running:
// it still has lifespan left and was not moved out of RUNNING last tick.
func continuable(c *Context) bool {
	cur := c.Current
	return cur != nil && cur.Status == model.StatusRunning && !cur.Finished()
}

// dispatch unlinks next from the ready queue and marks it RUNNING.
func dispatch(c *Context, next *model.Process) (*model.Process, error) {
	if !c.Ready.Remove(next) {
		return nil, &model.ProtocolViolationError{
			Op:         "dispatch",
			PID:        next.ID,
			ResourceID: model.NoResource,
			Reason:     "process is not in the ready queue",
		}
	}
	if err := next.SetStatus(model.StatusRunning); err != nil {
		return nil, err
	}
	if next.StartTick < 0 {
		next.StartTick = c.Tick
	}
	return next, nil
}

// preempt puts the current process back at the tail of the ready queue.
func preempt(c *Context) error {
	cur := c.Current
	if err := cur.SetStatus(model.StatusReady); err != nil {
		return err
	}
	return c.Ready.PushBack(cur)
}

// pickMin runs the candidate with the smallest key among the ready queue and
// the continuable current process. The current process wins ties; among
// ready processes the first one in queue order wins.
func pickMin[K cmp.Ordered](c *Context, key func(*model.Process) K) (*model.Process, error) {
	var (
		best    *model.Process
		bestKey K
	)
	keep := continuable(c)
	if keep {
		best, bestKey = c.Current, key(c.Current)
	}
	for _, p := range c.Ready.Items() {
		k := key(p)
		if best == nil || k < bestKey {
			best, bestKey = p, k
		}
	}
	if best == nil {
		return nil, nil
	}
	if keep {
		if best == c.Current {
			return best, nil
		}
		if err := preempt(c); err != nil {
			return nil, err
		}
	}
	return dispatch(c, best)
}

// FCFS runs processes in arrival order, each until it exits or blocks.
type FCFS struct {
	lifecycle
	FIFOProtocol
}

func (FCFS) Name() string { return "FIFO" }

func (FCFS) Schedule(c *Context) (*model.Process, error) {
	if continuable(c) {
		return c.Current, nil
	}
	next := c.Ready.Front()
	if next == nil {
		return nil, nil
	}
	return dispatch(c, next)
}

// SJF runs the ready process with the shortest declared lifespan. Once
// started, a process keeps running until it exits or blocks.
type SJF struct {
	lifecycle
	FIFOProtocol
}

func (SJF) Name() string { return "Shortest-Job First" }

func (SJF) Schedule(c *Context) (*model.Process, error) {
	if continuable(c) {
		return c.Current, nil
	}
	return pickMin(c, func(p *model.Process) int { return p.Lifespan })
}

// SRTF re-evaluates every tick and runs the process with the least remaining work.
type SRTF struct {
	lifecycle
	FIFOProtocol
}

func (SRTF) Name() string { return "Shortest Remaining Time First" }

func (SRTF) Schedule(c *Context) (*model.Process, error) {
	return pickMin(c, (*model.Process).Remaining)
}

// RoundRobin time-slices one tick at a time: the current process goes to the
// tail and the new head runs.
type RoundRobin struct {
	lifecycle
	FIFOProtocol
}

func (RoundRobin) Name() string { return "Round-Robin" }

func (RoundRobin) Schedule(c *Context) (*model.Process, error) {
	if continuable(c) {
		if err := preempt(c); err != nil {
			return nil, err
		}
	}
	next := c.Ready.Front()
	if next == nil {
		return nil, nil
	}
	return dispatch(c, next)
}

func effectivePriority(p *model.Process) int { return p.Priority }

// Priority runs the most urgent (numerically smallest) effective priority.
type Priority struct {
	lifecycle
	FIFOProtocol
}

func (Priority) Name() string { return "Priority" }

func (Priority) Schedule(c *Context) (*model.Process, error) {
	return pickMin(c, effectivePriority)
}

// PCP is the priority policy with the priority ceiling protocol.
type PCP struct {
	lifecycle
	CeilingProtocol
}

func (PCP) Name() string { return "Priority + Priority Ceiling Protocol" }

// Initialize logs the ceiling table the run uses.
func (PCP) Initialize(c *Context) error {
	for _, r := range c.Resources.All() {
		c.log().Debug("resource ceiling", "resource", r.ID, "name", r.Name, "ceiling", r.Ceiling)
	}
	return nil
}

func (PCP) Schedule(c *Context) (*model.Process, error) {
	return pickMin(c, effectivePriority)
}

// PIP is the priority policy with the priority inheritance protocol.
type PIP struct {
	lifecycle
	InheritanceProtocol
}

func (PIP) Name() string { return "Priority + Priority Inheritance Protocol" }

func (PIP) Schedule(c *Context) (*model.Process, error) {
	return pickMin(c, effectivePriority)
}
