package sim

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/me/schedsim/internal/sched"
	"github.com/me/schedsim/pkg/model"
)

// Dump writes a human-readable status of c: the tick, the current process,
// the ready queue and every resource with its owner and waiters.
func Dump(w io.Writer, c *sched.Context) error {
	var b strings.Builder
	fmt.Fprintf(&b, "tick %d\n", c.Tick)
	fmt.Fprintf(&b, "  current: %s\n", describe(c.Current))
	fmt.Fprintf(&b, "  ready:   %s\n", queueString(c.Ready))
	for _, r := range c.Resources.All() {
		name := ""
		if r.Name != "" {
			name = " (" + r.Name + ")"
		}
		owner := "-"
		if r.Owner != nil {
			owner = strconv.Itoa(r.Owner.ID)
		}
		fmt.Fprintf(&b, "  r%d%s: ceiling %d, owner %s, waiters %s\n", r.ID, name, r.Ceiling, owner, queueString(r.Waiters))
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func describe(p *model.Process) string {
	if p == nil {
		return "none"
	}
	s := fmt.Sprintf("%d %s %s age %d/%d prio %d", p.ID, p.Name, p.Status, p.Age, p.Lifespan, p.Priority)
	if p.Elevated() {
		s += fmt.Sprintf(" (base %d)", p.BasePriority)
	}
	if len(p.Holds) > 0 {
		s += fmt.Sprintf(" holds %v", p.Holds)
	}
	return s
}

func queueString(q *model.Queue) string {
	ids := q.IDs()
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return "[" + strings.Join(parts, " ") + "]"
}
