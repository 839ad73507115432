package model

import "time"

// TickEvent classifies what happened during one tick.
type TickEvent string

const (
	EventRun     TickEvent = "run"
	EventIdle    TickEvent = "idle"
	EventBlocked TickEvent = "blocked" // acquire failed, tick consumed without work
	EventExit    TickEvent = "exit"    // ran its last tick
)

// TickRecord is one entry of a run's timeline.
type TickRecord struct {
	Tick  int       `json:"tick"`
	PID   int       `json:"pid"` // 0 when idle
	Event TickEvent `json:"event"`
	Note  string    `json:"note,omitempty"`
}

// ProcessStats summarizes one process after a run.
type ProcessStats struct {
	PID          int    `json:"pid"`
	Name         string `json:"name"`
	Arrival      int    `json:"arrival"`
	Lifespan     int    `json:"lifespan"`
	BasePriority int    `json:"base_priority"`
	Start        int    `json:"start"`  // -1 if it never ran
	Finish       int    `json:"finish"` // -1 if it never exited
	Turnaround   int    `json:"turnaround"`
	Response     int    `json:"response"`
	ReadyTicks   int    `json:"ready_ticks"`
	WaitTicks    int    `json:"wait_ticks"`
}

// Run is the outcome of one simulation.
type Run struct {
	ID              string         `json:"id"`
	Workload        string         `json:"workload"`
	Policy          string         `json:"policy"`      // registry key, e.g. "pip"
	PolicyName      string         `json:"policy_name"` // descriptor name
	MaxTicks        int            `json:"max_ticks,omitempty"`
	Ticks           int            `json:"ticks"`
	IdleTicks       int            `json:"idle_ticks"`
	ContextSwitches int            `json:"context_switches"`
	Completed       bool           `json:"completed"`
	Error           string         `json:"error,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	Timeline        []TickRecord   `json:"timeline,omitempty"`
	Processes       []ProcessStats `json:"processes,omitempty"`
	Source          string         `json:"source,omitempty"` // workload YAML, when kept
}

// StatsFor builds the summary of p.
func StatsFor(p *Process) ProcessStats {
	st := ProcessStats{
		PID:          p.ID,
		Name:         p.Name,
		Arrival:      p.ArrivalTick,
		Lifespan:     p.Lifespan,
		BasePriority: p.BasePriority,
		Start:        p.StartTick,
		Finish:       p.FinishTick,
		ReadyTicks:   p.ReadyTicks,
		WaitTicks:    p.WaitTicks,
		Turnaround:   -1,
		Response:     -1,
	}
	if p.FinishTick >= 0 {
		st.Turnaround = p.FinishTick - p.ArrivalTick + 1
	}
	if p.StartTick >= 0 {
		st.Response = p.StartTick - p.ArrivalTick
	}
	return st
}

// AverageTurnaround returns the mean turnaround over finished processes.
func (r *Run) AverageTurnaround() float64 {
	var sum, n int
	for _, p := range r.Processes {
		if p.Turnaround >= 0 {
			sum += p.Turnaround
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return float64(sum) / float64(n)
}

// AverageWaiting returns the mean ticks spent ready or waiting.
func (r *Run) AverageWaiting() float64 {
	if len(r.Processes) == 0 {
		return 0
	}
	var sum int
	for _, p := range r.Processes {
		sum += p.ReadyTicks + p.WaitTicks
	}
	return float64(sum) / float64(len(r.Processes))
}
