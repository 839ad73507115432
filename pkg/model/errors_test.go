package model

import "testing"

func TestAPIError_Error(t *testing.T) {
	err := &APIError{Code: ErrNotFound, Message: "Run 'run_123' not found"}
	want := "NOT_FOUND: Run 'run_123' not found"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestNewNotFoundError(t *testing.T) {
	err := NewNotFoundError("Run", "run_abc")
	if err.Code != ErrNotFound {
		t.Errorf("Code = %q, want %q", err.Code, ErrNotFound)
	}
	if err.Message != "Run 'run_abc' not found" {
		t.Errorf("Message = %q, want %q", err.Message, "Run 'run_abc' not found")
	}
}

func TestNewValidationError(t *testing.T) {
	err := NewValidationError("Invalid workload",
		FieldError{Field: "processes[0].lifespan", Message: "must be > 0"},
		FieldError{Field: "resources[1].id", Message: "duplicate"},
	)
	if err.Code != ErrValidation {
		t.Errorf("Code = %q, want %q", err.Code, ErrValidation)
	}
	if len(err.Details) != 2 {
		t.Errorf("Details length = %d, want 2", len(err.Details))
	}
}

func TestInvalidTransitionError(t *testing.T) {
	err := &InvalidTransitionError{
		Entity: "Process",
		ID:     "3",
		From:   "EXITED",
		To:     "READY",
	}
	want := "invalid Process state transition: EXITED → READY (entity 3)"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestProtocolViolationError(t *testing.T) {
	tests := []struct {
		name string
		err  *ProtocolViolationError
		want string
	}{
		{
			"with pid and resource",
			&ProtocolViolationError{Op: "release", PID: 2, ResourceID: 0, Reason: "caller is not the owner"},
			"protocol violation: release by pid 2 on resource 0: caller is not the owner",
		},
		{
			"no resource",
			&ProtocolViolationError{Op: "enqueue", PID: 4, ResourceID: NoResource, Reason: "already linked"},
			"protocol violation: enqueue by pid 4: already linked",
		},
		{
			"no caller",
			&ProtocolViolationError{Op: "acquire", ResourceID: 1, Reason: "no current process"},
			"protocol violation: acquire on resource 1: no current process",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUnknownPolicyError(t *testing.T) {
	err := &UnknownPolicyError{Name: "lottery", Known: []string{"fcfs", "rr"}}
	want := `unknown scheduling policy "lottery" (known: fcfs, rr)`
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
