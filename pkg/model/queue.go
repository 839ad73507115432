package model

// Queue is an ordered collection of processes. A process may be linked into
// at most one Queue at a time; the membership tag on the process enforces it.
type Queue struct {
	kind     QueueKind
	resource int
	items    []*Process
}

// NewReadyQueue creates the ready queue.
func NewReadyQueue() *Queue {
	return &Queue{kind: QueueReady, resource: NoResource}
}

// NewWaitQueue creates the wait queue of resource rid.
func NewWaitQueue(rid int) *Queue {
	return &Queue{kind: QueueWait, resource: rid}
}

// Kind returns which kind of queue this is.
func (q *Queue) Kind() QueueKind {
	return q.kind
}

// Len returns the number of linked processes.
func (q *Queue) Len() int {
	return len(q.items)
}

// Front returns the head without unlinking it, or nil when empty.
func (q *Queue) Front() *Process {
	if len(q.items) == 0 {
		return nil
	}
	return q.items[0]
}

// Items returns a snapshot of the queue in order.
func (q *Queue) Items() []*Process {
	out := make([]*Process, len(q.items))
	copy(out, q.items)
	return out
}

// PushBack links p at the tail. Linking a process that is already a member
// of some queue is a protocol violation.
func (q *Queue) PushBack(p *Process) error {
	if p.Membership.Queue != QueueNone {
		return &ProtocolViolationError{
			Op:         "enqueue",
			PID:        p.ID,
			ResourceID: q.resource,
			Reason:     "process is already linked into the " + string(p.Membership.Queue) + " queue",
		}
	}
	p.Membership = Membership{Queue: q.kind, Resource: q.resource}
	q.items = append(q.items, p)
	return nil
}

// PopFront unlinks and returns the head, or nil when empty.
func (q *Queue) PopFront() *Process {
	if len(q.items) == 0 {
		return nil
	}
	p := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	p.Membership = Membership{}
	return p
}

// Remove unlinks p wherever it sits. It returns false if p is not a member.
func (q *Queue) Remove(p *Process) bool {
	for i, it := range q.items {
		if it == p {
			q.items = append(q.items[:i], q.items[i+1:]...)
			p.Membership = Membership{}
			return true
		}
	}
	return false
}

// Contains reports whether p is linked into q.
func (q *Queue) Contains(p *Process) bool {
	for _, it := range q.items {
		if it == p {
			return true
		}
	}
	return false
}

// IDs returns the PIDs in queue order.
func (q *Queue) IDs() []int {
	ids := make([]int, len(q.items))
	for i, p := range q.items {
		ids[i] = p.ID
	}
	return ids
}
