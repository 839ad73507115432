package sched

import (
	"io"
	"log/slog"
	"reflect"
	"testing"

	"github.com/me/schedsim/pkg/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testContext creates a context with n resources whose ceilings are given
// (missing ceilings default to PriorityHighest).
func testContext(t *testing.T, n int, ceilings ...int) *Context {
	t.Helper()
	rs := make([]*model.Resource, n)
	for i := range n {
		ceiling := model.PriorityHighest
		if i < len(ceilings) {
			ceiling = ceilings[i]
		}
		rs[i] = model.NewResource(i, "", ceiling)
	}
	table, err := NewResourceTable(rs...)
	if err != nil {
		t.Fatalf("NewResourceTable: %v", err)
	}
	return NewContext(table, testLogger())
}

// admit links processes into the ready queue in order.
func admit(t *testing.T, c *Context, procs ...*model.Process) {
	t.Helper()
	for _, p := range procs {
		if err := c.Ready.PushBack(p); err != nil {
			t.Fatalf("admit pid %d: %v", p.ID, err)
		}
	}
}

// step runs one scheduling decision and makes the result current, the way
// the driver does.
func step(t *testing.T, s Scheduler, c *Context) *model.Process {
	t.Helper()
	next, err := s.Schedule(c)
	if err != nil {
		t.Fatalf("Schedule at tick %d: %v", c.Tick, err)
	}
	c.Current = next
	c.Tick++
	return next
}

// lockProtocol is the acquire/release half shared by protocols and policies.
type lockProtocol interface {
	Acquire(c *Context, rid int) (bool, error)
	Release(c *Context, rid int) error
}

// acquire requests rid for the current process and fails the test on a
// protocol violation. It reports whether the resource was granted.
func acquire(t *testing.T, p lockProtocol, c *Context, rid int) bool {
	t.Helper()
	ok, err := p.Acquire(c, rid)
	if err != nil {
		t.Fatalf("Acquire r%d by pid %d: %v", rid, pid(c.Current), err)
	}
	return ok
}

// release gives rid back for the current process and fails the test on a
// protocol violation.
func release(t *testing.T, p lockProtocol, c *Context, rid int) {
	t.Helper()
	if err := p.Release(c, rid); err != nil {
		t.Fatalf("Release r%d by pid %d: %v", rid, pid(c.Current), err)
	}
}

// work advances the current process by one tick of age.
func work(c *Context) {
	if c.Current != nil && c.Current.Status == model.StatusRunning {
		c.Current.Age++
	}
}

func proc(id, lifespan, priority int) *model.Process {
	return model.NewProcess(id, "", 0, lifespan, priority)
}

func pid(p *model.Process) int {
	if p == nil {
		return 0
	}
	return p.ID
}

func assertReady(t *testing.T, c *Context, want ...int) {
	t.Helper()
	got := c.Ready.IDs()
	if len(want) == 0 {
		want = []int{}
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ready queue = %v, want %v", got, want)
	}
}
