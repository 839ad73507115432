package model

// ProcessStatus represents the lifecycle state of a simulated Process.
type ProcessStatus string

const (
	StatusReady   ProcessStatus = "READY"
	StatusRunning ProcessStatus = "RUNNING"
	StatusWaiting ProcessStatus = "WAITING"
	StatusBlocked ProcessStatus = "BLOCKED"
	StatusExited  ProcessStatus = "EXITED"
)

// String returns the string representation of the process status.
func (s ProcessStatus) String() string {
	return string(s)
}

// IsTerminal returns true if the process has exited.
func (s ProcessStatus) IsTerminal() bool {
	return s == StatusExited
}

// ValidStatusTransitions defines the allowed state transitions for Processes.
// BLOCKED is only entered and left by the driver; the scheduling core never
// produces it.
var ValidStatusTransitions = map[ProcessStatus][]ProcessStatus{
	StatusReady:   {StatusRunning},
	StatusRunning: {StatusReady, StatusWaiting, StatusBlocked, StatusExited},
	StatusWaiting: {StatusReady},
	StatusBlocked: {StatusReady},
}

// CanTransitionTo returns true if moving from the current status to next is valid.
func (s ProcessStatus) CanTransitionTo(next ProcessStatus) bool {
	for _, allowed := range ValidStatusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// QueueKind identifies the container a Process is currently linked into.
type QueueKind string

const (
	QueueNone  QueueKind = ""
	QueueReady QueueKind = "ready"
	QueueWait  QueueKind = "wait"
)
