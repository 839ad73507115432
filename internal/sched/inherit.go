package sched

import "github.com/me/schedsim/pkg/model"

// InheritanceProtocol is the priority inheritance protocol. A blocked process
// donates its priority to the owner of the resource it waits on, and along
// the chain of owners that are themselves waiting.
type InheritanceProtocol struct{}

// Acquire performs the FIFO acquire and, when the caller blocks, donates its
// priority along the chain of blockers.
func (InheritanceProtocol) Acquire(c *Context, rid int) (bool, error) {
	ok, err := FIFOProtocol{}.Acquire(c, rid)
	if err != nil || ok {
		return ok, err
	}
	r, err := c.Resources.Get(rid)
	if err != nil {
		return false, err
	}
	donate(c, r.Owner)
	return false, nil
}

// Release performs the FIFO release, then recomputes the releaser and the
// woken waiter from their remaining holds.
func (InheritanceProtocol) Release(c *Context, rid int) error {
	cur := c.Current
	woken, err := releaseFIFO(c, rid)
	if err != nil {
		return err
	}
	inherit(c, cur)
	if woken != nil {
		inherit(c, woken)
	}
	return nil
}

// donate recomputes owner and follows the wait-for chain while priorities
// keep rising. Deadlock cycles end the walk.
func donate(c *Context, owner *model.Process) {
	seen := make(map[int]bool)
	for owner != nil && !seen[owner.ID] {
		seen[owner.ID] = true
		if !inherit(c, owner) {
			return
		}
		if owner.Status != model.StatusWaiting || owner.Membership.Queue != model.QueueWait {
			return
		}
		next, err := c.Resources.Get(owner.Membership.Resource)
		if err != nil {
			return
		}
		owner = next.Owner
	}
}

// inherit sets p's effective priority to the most urgent of its base priority
// and every waiter on every resource it holds. It reports whether the value
// changed.
func inherit(c *Context, p *model.Process) bool {
	prio := p.BasePriority
	for _, rid := range p.Holds {
		r, err := c.Resources.Get(rid)
		if err != nil {
			continue
		}
		for _, w := range r.Waiters.Items() {
			if w.Priority < prio {
				prio = w.Priority
			}
		}
	}
	if prio == p.Priority {
		return false
	}
	c.log().Debug("priority changed", "tick", c.Tick, "pid", p.ID, "from", p.Priority, "to", prio, "protocol", "inheritance")
	p.Priority = prio
	return true
}
