package sched

import (
	"strings"
	"testing"
)

func newScript(t *testing.T, expr string, c *Context) *Script {
	t.Helper()
	s, err := NewScript(expr)
	if err != nil {
		t.Fatalf("NewScript(%q): %v", expr, err)
	}
	if err := s.Initialize(c); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	t.Cleanup(func() { s.Finalize(c) })
	return s
}

func TestNewScript_Errors(t *testing.T) {
	tests := []struct {
		name string
		expr string
		want string
	}{
		{"empty", "   ", "empty key expression"},
		{"syntax", "p.remaining +", "compile"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewScript(tt.expr)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want substring %q", err, tt.want)
			}
		})
	}
}

func TestScript_ScheduleBeforeInitialize(t *testing.T) {
	s, err := NewScript("p.remaining")
	if err != nil {
		t.Fatalf("NewScript: %v", err)
	}
	if _, err := s.Schedule(testContext(t, 0)); err == nil {
		t.Fatal("expected error scheduling an uninitialized script")
	}
}

func TestScript_Ordering(t *testing.T) {
	tests := []struct {
		name string
		expr string
		want int
	}{
		{"shortest remaining", "p.remaining", 2},
		{"highest pid", "-p.pid", 3},
		{"priority", "p.priority", 1},
		{"combined", "p.remaining * 10 + p.priority", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := testContext(t, 0)
			admit(t, c, proc(1, 5, 0), proc(2, 2, 4), proc(3, 8, 6))
			s := newScript(t, tt.expr, c)
			if got := step(t, s, c); pid(got) != tt.want {
				t.Errorf("%s picked pid %d, want %d", tt.expr, pid(got), tt.want)
			}
		})
	}
}

func TestScript_PreemptsLikeSRTF(t *testing.T) {
	c := testContext(t, 0)
	long := proc(1, 6, 0)
	admit(t, c, long)
	s := newScript(t, "p.remaining", c)
	step(t, s, c)
	work(c)

	short := proc(2, 1, 0)
	admit(t, c, short)
	if got := step(t, s, c); got != short {
		t.Errorf("ran pid %d, want shorter arrival", pid(got))
	}
	assertReady(t, c, 1)
}

func TestScript_BadKeysRankLast(t *testing.T) {
	tests := []struct {
		name string
		expr string
	}{
		{"throws for pid 1", `p.pid === 1 ? (function () { throw new Error("boom") })() : p.pid`},
		{"string for pid 1", `p.pid === 1 ? "x" : p.pid`},
		{"NaN for pid 1", `p.pid === 1 ? NaN : p.pid`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := testContext(t, 0)
			admit(t, c, proc(1, 3, 0), proc(2, 3, 0))
			s := newScript(t, tt.expr, c)
			if got := step(t, s, c); pid(got) != 2 {
				t.Errorf("picked pid %d, want 2", pid(got))
			}
		})
	}
}

func TestScript_SeesTick(t *testing.T) {
	c := testContext(t, 0)
	admit(t, c, proc(1, 3, 0), proc(2, 3, 0))
	c.Tick = 7
	// Before tick 5 the lower pid is preferred, after it the higher one.
	s := newScript(t, "p.tick >= 5 ? -p.pid : p.pid", c)
	if got := step(t, s, c); pid(got) != 2 {
		t.Errorf("picked pid %d, want 2", pid(got))
	}
}
