package sched

import (
	"fmt"

	"github.com/me/schedsim/pkg/model"
)

// FIFOProtocol is the default acquisition protocol. Waiters are served in
// request order without regard to priority.
type FIFOProtocol struct{}

// Acquire grants rid to the current process if it is free, otherwise parks
// the caller at the tail of the resource's wait queue.
func (FIFOProtocol) Acquire(c *Context, rid int) (bool, error) {
	cur, r, err := c.caller("acquire", rid)
	if err != nil {
		return false, err
	}
	if r.Owner == cur {
		return false, &model.ProtocolViolationError{Op: "acquire", PID: cur.ID, ResourceID: rid, Reason: "resource is not reentrant"}
	}

	if r.Owner == nil {
		r.Owner = cur
		cur.Holds = append(cur.Holds, rid)
		c.log().Debug("resource granted", "tick", c.Tick, "pid", cur.ID, "resource", rid)
		return true, nil
	}

	if err := cur.SetStatus(model.StatusWaiting); err != nil {
		return false, err
	}
	if err := r.Waiters.PushBack(cur); err != nil {
		return false, err
	}
	c.log().Debug("resource busy", "tick", c.Tick, "pid", cur.ID, "resource", rid, "owner", r.Owner.ID, "waiters", r.Waiters.Len())
	return false, nil
}

// Release gives rid back and wakes the earliest waiter, if any.
func (FIFOProtocol) Release(c *Context, rid int) error {
	_, err := releaseFIFO(c, rid)
	return err
}

// releaseFIFO clears ownership of rid and moves the head waiter to the ready
// queue. It returns the woken process, or nil.
func releaseFIFO(c *Context, rid int) (*model.Process, error) {
	cur, r, err := c.caller("release", rid)
	if err != nil {
		return nil, err
	}
	if r.Owner == nil {
		return nil, &model.ProtocolViolationError{Op: "release", PID: cur.ID, ResourceID: rid, Reason: "resource is not owned"}
	}
	if r.Owner != cur {
		return nil, &model.ProtocolViolationError{
			Op:         "release",
			PID:        cur.ID,
			ResourceID: rid,
			Reason:     fmt.Sprintf("caller is not the owner (owner pid %d)", r.Owner.ID),
		}
	}

	r.Owner = nil
	cur.DropHold(rid)

	waiter := r.Waiters.PopFront()
	if waiter == nil {
		c.log().Debug("resource released", "tick", c.Tick, "pid", cur.ID, "resource", rid)
		return nil, nil
	}
	if waiter.Status != model.StatusWaiting {
		return nil, &model.ProtocolViolationError{
			Op:         "wake",
			PID:        waiter.ID,
			ResourceID: rid,
			Reason:     "waiter is " + waiter.Status.String() + ", not WAITING",
		}
	}
	if err := waiter.SetStatus(model.StatusReady); err != nil {
		return nil, err
	}
	if err := c.Ready.PushBack(waiter); err != nil {
		return nil, err
	}
	c.log().Debug("waiter woken", "tick", c.Tick, "pid", cur.ID, "resource", rid, "woken", waiter.ID)
	return waiter, nil
}
