package sched

import (
	"errors"
	"testing"

	"github.com/me/schedsim/pkg/model"
)

func TestFIFOProtocol_AcquireFree(t *testing.T) {
	c := testContext(t, 1)
	a := proc(1, 5, 0)
	admit(t, c, a)
	step(t, FCFS{}, c)

	ok, err := FIFOProtocol{}.Acquire(c, 0)
	if err != nil || !ok {
		t.Fatalf("Acquire = %v, %v; want true, nil", ok, err)
	}
	r, _ := c.Resources.Get(0)
	if r.Owner != a {
		t.Errorf("owner = %v, want pid 1", pid(r.Owner))
	}
	if a.Status != model.StatusRunning {
		t.Errorf("status = %q, want RUNNING", a.Status)
	}
	if !a.Holding(0) {
		t.Error("Holds does not include resource 0")
	}
}

func TestFIFOProtocol_AcquireBusyParksCaller(t *testing.T) {
	c := testContext(t, 1)
	a, b := proc(1, 5, 0), proc(2, 5, 0)
	admit(t, c, a, b)
	step(t, RoundRobin{}, c)
	if _, err := (FIFOProtocol{}).Acquire(c, 0); err != nil {
		t.Fatal(err)
	}
	if got := step(t, RoundRobin{}, c); got != b {
		t.Fatalf("second tick ran pid %d, want 2", pid(got))
	}

	ok, err := FIFOProtocol{}.Acquire(c, 0)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if ok {
		t.Fatal("Acquire on owned resource returned true")
	}
	r, _ := c.Resources.Get(0)
	if b.Status != model.StatusWaiting {
		t.Errorf("status = %q, want WAITING", b.Status)
	}
	if !r.Waiters.Contains(b) || c.Ready.Contains(b) {
		t.Errorf("pid 2 should be in the wait queue only; membership=%+v", b.Membership)
	}
	if r.Owner != a {
		t.Errorf("owner changed to pid %d", pid(r.Owner))
	}
}

func TestFIFOProtocol_Violations(t *testing.T) {
	tests := []struct {
		name string
		run  func(c *Context) error
	}{
		{"release unowned", func(c *Context) error {
			return FIFOProtocol{}.Release(c, 0)
		}},
		{"release twice", func(c *Context) error {
			if _, err := (FIFOProtocol{}).Acquire(c, 0); err != nil {
				return err
			}
			if err := (FIFOProtocol{}).Release(c, 0); err != nil {
				return err
			}
			return FIFOProtocol{}.Release(c, 0)
		}},
		{"reentrant acquire", func(c *Context) error {
			if _, err := (FIFOProtocol{}).Acquire(c, 0); err != nil {
				return err
			}
			_, err := FIFOProtocol{}.Acquire(c, 0)
			return err
		}},
		{"unknown resource", func(c *Context) error {
			_, err := FIFOProtocol{}.Acquire(c, 9)
			return err
		}},
		{"no current process", func(c *Context) error {
			c.Current = nil
			_, err := FIFOProtocol{}.Acquire(c, 0)
			return err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := testContext(t, 1)
			admit(t, c, proc(1, 5, 0))
			step(t, FCFS{}, c)

			err := tt.run(c)
			var pv *model.ProtocolViolationError
			if !errors.As(err, &pv) {
				t.Fatalf("err = %v, want ProtocolViolationError", err)
			}
		})
	}
}

func TestFIFOProtocol_ReleaseByNonOwner(t *testing.T) {
	c := testContext(t, 1)
	a, b := proc(1, 5, 0), proc(2, 5, 0)
	admit(t, c, a, b)
	step(t, RoundRobin{}, c)
	acquire(t, FIFOProtocol{}, c, 0)
	step(t, RoundRobin{}, c)

	err := FIFOProtocol{}.Release(c, 0)
	var pv *model.ProtocolViolationError
	if !errors.As(err, &pv) {
		t.Fatalf("err = %v, want ProtocolViolationError", err)
	}
	if pv.PID != 2 || pv.ResourceID != 0 {
		t.Errorf("violation = %+v, want pid 2 resource 0", pv)
	}
	r, _ := c.Resources.Get(0)
	if r.Owner != a {
		t.Error("failed release must not change ownership")
	}
}

// TestFIFOProtocol_NoLostWakeup checks that a release with waiters moves
// exactly one of them to READY and into the ready queue.
func TestFIFOProtocol_NoLostWakeup(t *testing.T) {
	c := testContext(t, 1)
	owner, w1, w2 := proc(1, 9, 0), proc(2, 9, 0), proc(3, 9, 0)
	admit(t, c, owner, w1, w2)

	step(t, RoundRobin{}, c) // owner
	if !acquire(t, FIFOProtocol{}, c, 0) {
		t.Fatal("owner was not granted the free resource")
	}
	step(t, RoundRobin{}, c) // w1
	if acquire(t, FIFOProtocol{}, c, 0) {
		t.Fatal("w1 acquired an owned resource")
	}
	step(t, RoundRobin{}, c) // w2
	if acquire(t, FIFOProtocol{}, c, 0) {
		t.Fatal("w2 acquired an owned resource")
	}
	assertReady(t, c, 1)

	step(t, RoundRobin{}, c) // owner again
	if c.Current != owner {
		t.Fatalf("current = pid %d, want 1", pid(c.Current))
	}
	if err := (FIFOProtocol{}).Release(c, 0); err != nil {
		t.Fatalf("Release: %v", err)
	}

	r, _ := c.Resources.Get(0)
	if r.Owned() {
		t.Errorf("resource still owned by pid %d", r.OwnerID())
	}
	if w1.Status != model.StatusReady || !c.Ready.Contains(w1) {
		t.Errorf("w1 status=%q in ready=%v, want READY in ready queue", w1.Status, c.Ready.Contains(w1))
	}
	if w2.Status != model.StatusWaiting || r.Waiters.Len() != 1 {
		t.Errorf("w2 status=%q waiters=%d, want WAITING with one waiter", w2.Status, r.Waiters.Len())
	}
	assertReady(t, c, 2)
}

// TestFIFOProtocol_Fairness checks that A, blocked before B, is granted first.
func TestFIFOProtocol_Fairness(t *testing.T) {
	c := testContext(t, 1)
	owner, a, b := proc(1, 9, 0), proc(2, 9, 0), proc(3, 9, 0)
	admit(t, c, owner, a, b)
	rr := RoundRobin{}

	step(t, rr, c)
	if !acquire(t, rr, c, 0) {
		t.Fatal("owner was not granted the free resource")
	}
	step(t, rr, c)
	if acquire(t, rr, c, 0) {
		t.Fatal("a acquired an owned resource")
	}
	step(t, rr, c)
	if acquire(t, rr, c, 0) {
		t.Fatal("b acquired an owned resource")
	}
	step(t, rr, c) // owner
	release(t, rr, c, 0)

	if got := step(t, rr, c); got != a {
		t.Fatalf("after first release ran pid %d, want a (2)", pid(got))
	}
	if !acquire(t, rr, c, 0) {
		t.Fatal("a could not take the released resource")
	}
	release(t, rr, c, 0)
	if b.Status != model.StatusReady {
		t.Errorf("b status = %q after second release, want READY", b.Status)
	}
}
