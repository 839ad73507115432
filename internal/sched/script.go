package sched

import (
	"fmt"
	"math"
	"strings"

	"github.com/dop251/goja"
	"github.com/me/schedsim/pkg/model"
)

// Script is a preemptive policy whose ordering key is a JavaScript
// expression. The expression sees the candidate as `p` and must evaluate to
// a number; the smallest key runs. It uses the FIFO protocol.
//
//	p.remaining * 2 + p.priority
type Script struct {
	FIFOProtocol

	source  string
	program *goja.Program
	vm      *goja.Runtime
	keyFn   goja.Callable
}

// NewScript compiles expr into a policy.
func NewScript(expr string) (*Script, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, fmt.Errorf("script policy: empty key expression")
	}
	prog, err := goja.Compile("policy", "(function (p) { return ("+expr+"); })", true)
	if err != nil {
		return nil, fmt.Errorf("script policy: compile %q: %w", expr, err)
	}
	return &Script{source: expr, program: prog}, nil
}

func (s *Script) Name() string { return "Script (" + s.source + ")" }

// Initialize creates the JavaScript runtime for the run.
func (s *Script) Initialize(c *Context) error {
	vm := goja.New()
	v, err := vm.RunProgram(s.program)
	if err != nil {
		return fmt.Errorf("script policy: %w", err)
	}
	fn, ok := goja.AssertFunction(v)
	if !ok {
		return fmt.Errorf("script policy: key expression did not compile to a function")
	}
	s.vm, s.keyFn = vm, fn
	c.log().Debug("script policy ready", "expr", s.source)
	return nil
}

// Finalize drops the runtime.
func (s *Script) Finalize(*Context) {
	s.vm, s.keyFn = nil, nil
}

func (s *Script) Schedule(c *Context) (*model.Process, error) {
	if s.keyFn == nil {
		return nil, fmt.Errorf("script policy: Schedule called before Initialize")
	}
	return pickMin(c, func(p *model.Process) float64 { return s.key(c, p) })
}

// key evaluates the expression for p. Failures rank p least urgent.
func (s *Script) key(c *Context, p *model.Process) float64 {
	arg := s.vm.ToValue(map[string]any{
		"pid":          p.ID,
		"name":         p.Name,
		"arrival":      p.ArrivalTick,
		"lifespan":     p.Lifespan,
		"age":          p.Age,
		"remaining":    p.Remaining(),
		"priority":     p.Priority,
		"basePriority": p.BasePriority,
		"tick":         c.Tick,
	})
	res, err := s.keyFn(goja.Undefined(), arg)
	if err != nil {
		c.log().Warn("script key failed", "tick", c.Tick, "pid", p.ID, "error", err)
		return math.Inf(1)
	}
	switch v := res.Export().(type) {
	case int64:
		return float64(v)
	case float64:
		if math.IsNaN(v) {
			break
		}
		return v
	}
	c.log().Warn("script key is not a number", "tick", c.Tick, "pid", p.ID, "value", res.String())
	return math.Inf(1)
}
