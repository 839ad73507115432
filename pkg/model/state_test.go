package model

import "testing"

func TestProcessStatus_IsTerminal(t *testing.T) {
	tests := []struct {
		status   ProcessStatus
		terminal bool
	}{
		{StatusReady, false},
		{StatusRunning, false},
		{StatusWaiting, false},
		{StatusBlocked, false},
		{StatusExited, true},
	}
	for _, tt := range tests {
		if got := tt.status.IsTerminal(); got != tt.terminal {
			t.Errorf("ProcessStatus(%q).IsTerminal() = %v, want %v", tt.status, got, tt.terminal)
		}
	}
}

func TestProcessStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from  ProcessStatus
		to    ProcessStatus
		valid bool
	}{
		// Valid transitions
		{StatusReady, StatusRunning, true},
		{StatusRunning, StatusReady, true},
		{StatusRunning, StatusWaiting, true},
		{StatusRunning, StatusBlocked, true},
		{StatusRunning, StatusExited, true},
		{StatusWaiting, StatusReady, true},
		{StatusBlocked, StatusReady, true},

		// Invalid transitions
		{StatusReady, StatusWaiting, false},
		{StatusReady, StatusExited, false},
		{StatusWaiting, StatusRunning, false},
		{StatusBlocked, StatusRunning, false},
		{StatusExited, StatusReady, false},
		{StatusExited, StatusRunning, false},
	}
	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.valid {
			t.Errorf("ProcessStatus(%q).CanTransitionTo(%q) = %v, want %v", tt.from, tt.to, got, tt.valid)
		}
	}
}
