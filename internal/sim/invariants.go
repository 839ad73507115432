package sim

import (
	"fmt"

	"github.com/me/schedsim/internal/sched"
	"github.com/me/schedsim/pkg/model"
)

// InvariantError reports scheduling state that no correct protocol can
// produce.
type InvariantError struct {
	PID    int
	Reason string
}

func (e *InvariantError) Error() string {
	if e.PID == 0 {
		return "invariant violated: " + e.Reason
	}
	return fmt.Sprintf("invariant violated by pid %d: %s", e.PID, e.Reason)
}

func violation(pid int, format string, args ...any) error {
	return &InvariantError{PID: pid, Reason: fmt.Sprintf(format, args...)}
}

// CheckInvariants verifies the state between ticks:
//   - every resource has at most one owner, which lists it in Holds and is
//     not in the resource's own wait queue;
//   - every queued process is linked into exactly one queue, and its
//     membership tag names that queue;
//   - WAITING processes are exactly the members of wait queues and READY
//     admitted processes are exactly the ready queue;
//   - no effective priority is less urgent than its base priority.
func CheckInvariants(c *sched.Context, procs []*model.Process) error {
	linked := make(map[int]string)
	link := func(p *model.Process, where string) error {
		if prev, dup := linked[p.ID]; dup {
			return violation(p.ID, "linked into %s and %s", prev, where)
		}
		linked[p.ID] = where
		return nil
	}

	for _, p := range c.Ready.Items() {
		if err := link(p, "ready queue"); err != nil {
			return err
		}
		if p.Status != model.StatusReady {
			return violation(p.ID, "in ready queue with status %s", p.Status)
		}
		if p.Membership.Queue != model.QueueReady {
			return violation(p.ID, "in ready queue but tagged %q", p.Membership.Queue)
		}
	}

	for _, r := range c.Resources.All() {
		if owner := r.Owner; owner != nil {
			if !owner.Holding(r.ID) {
				return violation(owner.ID, "owns resource %d without holding it", r.ID)
			}
			if owner.Status == model.StatusExited {
				return violation(owner.ID, "exited while owning resource %d", r.ID)
			}
			if r.Waiters.Contains(owner) {
				return violation(owner.ID, "waits on resource %d that it owns", r.ID)
			}
		}
		// A release wakes only the head waiter, so the rest stay parked on
		// a free resource until it acquires again.
		for _, w := range r.Waiters.Items() {
			if err := link(w, fmt.Sprintf("wait queue %d", r.ID)); err != nil {
				return err
			}
			if w.Status != model.StatusWaiting {
				return violation(w.ID, "in wait queue %d with status %s", r.ID, w.Status)
			}
			if w.Membership != (model.Membership{Queue: model.QueueWait, Resource: r.ID}) {
				return violation(w.ID, "in wait queue %d but tagged %+v", r.ID, w.Membership)
			}
		}
	}

	for _, p := range procs {
		for _, rid := range p.Holds {
			r, err := c.Resources.Get(rid)
			if err != nil {
				return err
			}
			if r.Owner != p {
				return violation(p.ID, "holds resource %d owned by pid %d", rid, r.OwnerID())
			}
		}
		_, queued := linked[p.ID]
		switch p.Status {
		case model.StatusWaiting:
			if !queued {
				return violation(p.ID, "WAITING outside any wait queue")
			}
		case model.StatusReady:
			if p.Membership.Queue != model.QueueNone && !queued {
				return violation(p.ID, "tagged %q but not linked", p.Membership.Queue)
			}
			if p.ArrivalTick <= c.Tick && !queued {
				return violation(p.ID, "READY after arrival but not in the ready queue")
			}
		case model.StatusRunning:
			if p != c.Current {
				return violation(p.ID, "RUNNING but not current")
			}
			if queued {
				return violation(p.ID, "RUNNING while linked into %s", linked[p.ID])
			}
		}
		if p.Priority > p.BasePriority {
			return violation(p.ID, "effective priority %d less urgent than base %d", p.Priority, p.BasePriority)
		}
	}
	return nil
}
