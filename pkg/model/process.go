package model

import "strconv"

// PriorityHighest is the most urgent priority value. Lower numbers run first.
const PriorityHighest = 0

// NoResource marks fields that do not refer to any resource.
const NoResource = -1

// Action is a scripted resource request issued by a Process while it runs.
// The acquire is issued when the process reaches age At and the matching
// release when it reaches age At+Hold.
type Action struct {
	At       int `json:"at" yaml:"at"`
	Resource int `json:"resource" yaml:"resource"`
	Hold     int `json:"hold" yaml:"hold"`
}

// ReleaseAt returns the age at which the resource is given back.
func (a Action) ReleaseAt() int {
	return a.At + a.Hold
}

// Membership records which queue, if any, currently links a Process.
// Resource is only meaningful for QueueWait.
type Membership struct {
	Queue    QueueKind `json:"queue,omitempty"`
	Resource int       `json:"resource,omitempty"`
}

// Process is one simulated task.
type Process struct {
	ID          int           `json:"pid"`
	Name        string        `json:"name"`
	Status      ProcessStatus `json:"status"`
	ArrivalTick int           `json:"arrival"`
	Lifespan    int           `json:"lifespan"`
	Age         int           `json:"age"`

	// BasePriority is the declared priority and never changes during a run.
	BasePriority int `json:"base_priority"`
	// Priority is the effective priority. Protocols derive it from
	// BasePriority and the resources the process currently holds.
	Priority int `json:"priority"`

	Membership Membership `json:"membership"`
	Holds      []int      `json:"holds,omitempty"`
	Actions    []Action   `json:"actions,omitempty"`

	StartTick  int `json:"start_tick"`
	FinishTick int `json:"finish_tick"`
	ReadyTicks int `json:"ready_ticks"`
	WaitTicks  int `json:"wait_ticks"`
}

// NewProcess creates a READY process that is not linked into any queue.
func NewProcess(id int, name string, arrival, lifespan, priority int) *Process {
	if name == "" {
		name = "p" + strconv.Itoa(id)
	}
	return &Process{
		ID:           id,
		Name:         name,
		Status:       StatusReady,
		ArrivalTick:  arrival,
		Lifespan:     lifespan,
		BasePriority: priority,
		Priority:     priority,
		StartTick:    -1,
		FinishTick:   -1,
	}
}

// Remaining returns the ticks of work left.
func (p *Process) Remaining() int {
	return p.Lifespan - p.Age
}

// Finished reports whether the process has consumed its whole lifespan.
func (p *Process) Finished() bool {
	return p.Age >= p.Lifespan
}

// Elevated reports whether a protocol has raised the effective priority.
func (p *Process) Elevated() bool {
	return p.Priority != p.BasePriority
}

// SetStatus moves the process to next, rejecting transitions that are not
// listed in ValidStatusTransitions.
func (p *Process) SetStatus(next ProcessStatus) error {
	if !p.Status.CanTransitionTo(next) {
		return &InvalidTransitionError{
			Entity: "Process",
			ID:     strconv.Itoa(p.ID),
			From:   p.Status.String(),
			To:     next.String(),
		}
	}
	p.Status = next
	return nil
}

// Holding reports whether the process owns resource rid.
func (p *Process) Holding(rid int) bool {
	for _, h := range p.Holds {
		if h == rid {
			return true
		}
	}
	return false
}

// DropHold removes rid from the held set, preserving acquisition order.
func (p *Process) DropHold(rid int) {
	for i, h := range p.Holds {
		if h == rid {
			p.Holds = append(p.Holds[:i], p.Holds[i+1:]...)
			return
		}
	}
}

// DueAcquires returns the actions whose acquire falls at the current age.
func (p *Process) DueAcquires() []Action {
	var due []Action
	for _, a := range p.Actions {
		if a.At == p.Age {
			due = append(due, a)
		}
	}
	return due
}

// DueReleases returns the actions whose release falls at the current age
// and whose resource is still held.
func (p *Process) DueReleases() []Action {
	var due []Action
	for _, a := range p.Actions {
		if a.ReleaseAt() == p.Age && p.Holding(a.Resource) {
			due = append(due, a)
		}
	}
	return due
}
