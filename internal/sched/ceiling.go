package sched

import "github.com/me/schedsim/pkg/model"

// CeilingProtocol is the priority ceiling protocol. While a process holds
// resources its effective priority is the most urgent of its base priority
// and the static ceilings of everything it holds.
type CeilingProtocol struct{}

// Acquire performs the FIFO acquire and, on success, raises the caller to
// the resource ceiling.
func (CeilingProtocol) Acquire(c *Context, rid int) (bool, error) {
	ok, err := FIFOProtocol{}.Acquire(c, rid)
	if err != nil || !ok {
		return ok, err
	}
	applyCeiling(c, c.Current)
	return true, nil
}

// Release performs the FIFO release and recomputes the caller's priority
// from what it still holds.
func (CeilingProtocol) Release(c *Context, rid int) error {
	cur := c.Current
	if _, err := releaseFIFO(c, rid); err != nil {
		return err
	}
	applyCeiling(c, cur)
	return nil
}

func applyCeiling(c *Context, p *model.Process) {
	prio := p.BasePriority
	for _, rid := range p.Holds {
		r, err := c.Resources.Get(rid)
		if err != nil {
			continue
		}
		if r.Ceiling < prio {
			prio = r.Ceiling
		}
	}
	if prio != p.Priority {
		c.log().Debug("priority changed", "tick", c.Tick, "pid", p.ID, "from", p.Priority, "to", prio, "protocol", "ceiling")
		p.Priority = prio
	}
}
