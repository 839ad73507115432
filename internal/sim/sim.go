// Package sim drives a scheduling policy over a workload one tick at a time
// and records what happened.
package sim

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/me/schedsim/internal/sched"
	"github.com/me/schedsim/internal/tracing"
	"github.com/me/schedsim/internal/workload"
	"github.com/me/schedsim/pkg/model"
)

// ErrTickLimit is returned when a run reaches Config.MaxTicks before every
// process exited. A deadlocked workload ends this way.
var ErrTickLimit = errors.New("tick limit reached")

// Config holds simulator configuration.
type Config struct {
	Policy          string // registry key recorded on the run
	MaxTicks        int
	CheckInvariants bool
	// Observer, when set, is called after every tick with the tick's record
	// and the state at the end of the tick.
	Observer func(rec model.TickRecord, c *sched.Context)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{MaxTicks: 10000, CheckInvariants: true}
}

// Simulator owns the processes and resources of one run.
type Simulator struct {
	workload string
	policy   sched.Scheduler
	config   Config
	logger   *slog.Logger

	ctx     *sched.Context
	procs   []*model.Process
	pending []*model.Process // not yet arrived, in arrival then PID order
	exited  int

	prevRun  *model.Process
	idle     int
	switches int
	timeline []model.TickRecord
	span     *tracing.Span
}

// New builds a fresh process and resource set from wl.
func New(wl *workload.Workload, policy sched.Scheduler, cfg Config, logger *slog.Logger) (*Simulator, error) {
	if cfg.MaxTicks <= 0 {
		cfg.MaxTicks = DefaultConfig().MaxTicks
	}
	procs, table, err := wl.Build()
	if err != nil {
		return nil, err
	}
	logger = logger.With("component", "simulator", "policy", policy.Name())
	s := &Simulator{
		workload: wl.Name,
		policy:   policy,
		config:   cfg,
		logger:   logger,
		ctx:      sched.NewContext(table, logger),
		procs:    procs,
	}
	s.pending = make([]*model.Process, len(procs))
	copy(s.pending, procs)
	sortByArrival(s.pending)
	return s, nil
}

// Context exposes the scheduling state, e.g. for Dump.
func (s *Simulator) Context() *sched.Context {
	return s.ctx
}

// Processes returns every process in PID order.
func (s *Simulator) Processes() []*model.Process {
	return s.procs
}

// Done reports whether every process has exited.
func (s *Simulator) Done() bool {
	return s.exited == len(s.procs)
}

// Run initializes the policy and steps until every process has exited, the
// tick limit is hit, a violation occurs or ctx is cancelled. The returned
// Run is always non-nil and describes the state reached.
func (s *Simulator) Run(ctx context.Context) (*model.Run, error) {
	ctx, s.span = tracing.StartSpan(ctx, "simulation.run", "INTERNAL")
	s.span.WithAttributes(map[string]string{"workload": s.workload, "policy": s.policy.Name()})

	err := s.run(ctx)
	run := s.Result(err)

	s.span.SetInt("ticks", run.Ticks).SetInt("idle_ticks", run.IdleTicks).SetInt("context_switches", run.ContextSwitches)
	tracing.EndSpan(s.span, err)
	s.span = nil

	if err != nil {
		s.logger.Error("simulation aborted", "tick", s.ctx.Tick, "error", err)
	} else {
		s.logger.Info("simulation complete",
			"ticks", run.Ticks,
			"idle", run.IdleTicks,
			"context_switches", run.ContextSwitches,
			"avg_turnaround", run.AverageTurnaround(),
		)
	}
	return run, err
}

func (s *Simulator) run(ctx context.Context) error {
	if err := s.policy.Initialize(s.ctx); err != nil {
		return fmt.Errorf("initialize %s: %w", s.policy.Name(), err)
	}
	defer s.policy.Finalize(s.ctx)

	s.logger.Info("simulation started", "workload", s.workload, "processes", len(s.procs), "resources", s.ctx.Resources.Len())
	warned := false
	for !s.Done() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if s.ctx.Tick >= s.config.MaxTicks {
			return fmt.Errorf("%w: %d ticks, %d of %d processes exited", ErrTickLimit, s.ctx.Tick, s.exited, len(s.procs))
		}
		if err := s.Step(); err != nil {
			return err
		}
		if !warned && s.stalled() {
			s.logger.Warn("every live process is waiting", "tick", s.ctx.Tick)
			warned = true
		}
	}
	return nil
}

// Step runs one tick.
func (s *Simulator) Step() error {
	c := s.ctx
	tick := c.Tick

	// Phase 1: admit arrivals.
	if err := s.admit(tick); err != nil {
		return fmt.Errorf("tick %d (admit): %w", tick, err)
	}

	// Phase 2: pick the process to run.
	next, err := s.policy.Schedule(c)
	if err != nil {
		return fmt.Errorf("tick %d (schedule): %w", tick, err)
	}
	c.Current = next

	rec := model.TickRecord{Tick: tick, Event: model.EventIdle}
	if next == nil {
		s.idle++
		s.logger.Debug("idle tick", "tick", tick)
	} else {
		if s.prevRun != nil && s.prevRun != next {
			s.switches++
		}
		s.prevRun = next
		rec.PID = next.ID

		// Phase 3: run it.
		event, notes, err := s.execute(next)
		if err != nil {
			return fmt.Errorf("tick %d (execute): %w", tick, err)
		}
		rec.Event, rec.Note = event, strings.Join(notes, ", ")
		s.logger.Debug("tick", "tick", tick, "pid", next.ID, "event", event, "age", next.Age, "priority", next.Priority)
	}

	// Phase 4: accounting for everyone who did not run.
	for _, p := range s.procs {
		switch p.Status {
		case model.StatusReady:
			if p.Membership.Queue == model.QueueReady {
				p.ReadyTicks++
			}
		case model.StatusWaiting:
			p.WaitTicks++
		}
	}

	// Phase 5: consistency.
	if s.config.CheckInvariants {
		if err := CheckInvariants(c, s.procs); err != nil {
			return fmt.Errorf("tick %d (invariants): %w", tick, err)
		}
	}

	s.timeline = append(s.timeline, rec)
	if s.config.Observer != nil {
		s.config.Observer(rec, c)
	}
	c.Tick++
	return nil
}

// admit links every process arriving at or before tick into the ready queue.
func (s *Simulator) admit(tick int) error {
	for len(s.pending) > 0 && s.pending[0].ArrivalTick <= tick {
		p := s.pending[0]
		s.pending = s.pending[1:]
		if err := s.ctx.Ready.PushBack(p); err != nil {
			return err
		}
		s.logger.Debug("process arrived", "tick", tick, "pid", p.ID, "name", p.Name)
	}
	return nil
}

// execute performs the chosen process's tick: due releases, then due
// acquires, then one unit of work. A failed acquire consumes the tick. After
// a wake-up the process re-issues the acquire it blocked on; resources it
// already holds are skipped.
func (s *Simulator) execute(p *model.Process) (model.TickEvent, []string, error) {
	var notes []string
	for _, a := range p.DueReleases() {
		if err := s.policy.Release(s.ctx, a.Resource); err != nil {
			return "", nil, err
		}
		notes = append(notes, fmt.Sprintf("release r%d", a.Resource))
	}
	for _, a := range p.DueAcquires() {
		if p.Holding(a.Resource) {
			continue
		}
		ok, err := s.policy.Acquire(s.ctx, a.Resource)
		if err != nil {
			return "", nil, err
		}
		if !ok {
			s.span.Event("resource.block", map[string]int{"tick": s.ctx.Tick, "pid": p.ID, "resource": a.Resource})
			return model.EventBlocked, append(notes, fmt.Sprintf("wait r%d", a.Resource)), nil
		}
		notes = append(notes, fmt.Sprintf("acquire r%d", a.Resource))
	}

	p.Age++
	for _, a := range p.DueReleases() {
		if err := s.policy.Release(s.ctx, a.Resource); err != nil {
			return "", nil, err
		}
		notes = append(notes, fmt.Sprintf("release r%d", a.Resource))
	}
	if !p.Finished() {
		return model.EventRun, notes, nil
	}

	for _, rid := range slices.Clone(p.Holds) {
		if err := s.policy.Release(s.ctx, rid); err != nil {
			return "", nil, err
		}
		notes = append(notes, fmt.Sprintf("release r%d", rid))
	}
	if len(p.Holds) > 0 {
		return "", nil, &model.ProtocolViolationError{
			Op:         "exit",
			PID:        p.ID,
			ResourceID: p.Holds[0],
			Reason:     "resource still held after release",
		}
	}
	if err := p.SetStatus(model.StatusExited); err != nil {
		return "", nil, err
	}
	p.FinishTick = s.ctx.Tick
	s.ctx.Current = nil
	s.exited++
	s.logger.Debug("process exited", "tick", s.ctx.Tick, "pid", p.ID, "name", p.Name)
	return model.EventExit, notes, nil
}

// stalled reports whether live processes exist but none can make progress
// and nobody else will arrive.
func (s *Simulator) stalled() bool {
	if s.Done() || len(s.pending) > 0 || s.ctx.Ready.Len() > 0 {
		return false
	}
	cur := s.ctx.Current
	return cur == nil || cur.Status != model.StatusRunning
}

// Result summarizes the run so far. err, when non-nil, is recorded as the
// run's error.
func (s *Simulator) Result(err error) *model.Run {
	run := &model.Run{
		ID:              "run_" + uuid.New().String(),
		Workload:        s.workload,
		Policy:          s.config.Policy,
		PolicyName:      s.policy.Name(),
		MaxTicks:        s.config.MaxTicks,
		Ticks:           s.ctx.Tick,
		IdleTicks:       s.idle,
		ContextSwitches: s.switches,
		Completed:       err == nil && s.Done(),
		CreatedAt:       time.Now().UTC(),
		Timeline:        append([]model.TickRecord(nil), s.timeline...),
		Processes:       make([]model.ProcessStats, len(s.procs)),
	}
	if err != nil {
		run.Error = err.Error()
	}
	for i, p := range s.procs {
		run.Processes[i] = model.StatsFor(p)
	}
	return run
}

func sortByArrival(ps []*model.Process) {
	slices.SortStableFunc(ps, func(a, b *model.Process) int {
		return cmp.Compare(a.ArrivalTick, b.ArrivalTick)
	})
}
