// Package scheduler is the host-owned main loop. Everything that mutates a
// world runs on the goroutine that calls Step (directly or through Run).
package scheduler

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

type taskState int32

const (
	statePending taskState = iota
	stateRan
	stateCancelled
)

// Task is a handle to delayed work.
type Task struct {
	id    uint64
	due   uint64
	fn    func()
	state atomic.Int32
}

// Cancel stops a pending task. It reports false if the task already ran or
// was cancelled before.
func (t *Task) Cancel() bool {
	if t == nil {
		return false
	}
	return t.state.CompareAndSwap(int32(statePending), int32(stateCancelled))
}

func (t *Task) Done() bool      { return t != nil && taskState(t.state.Load()) == stateRan }
func (t *Task) Cancelled() bool { return t != nil && taskState(t.state.Load()) == stateCancelled }
func (t *Task) Due() uint64     { return t.due }

type Scheduler struct {
	log        zerolog.Logger
	tickRateHz int

	tick   atomic.Uint64
	nextID atomic.Uint64
	stop   chan struct{}
	once   sync.Once

	mu        sync.Mutex
	delayed   []*Task
	submitted []func()
	hooks     []func(tick uint64)
}

func New(tickRateHz int, logger zerolog.Logger) *Scheduler {
	if tickRateHz <= 0 {
		tickRateHz = 20
	}
	return &Scheduler{
		log:        logger.With().Str("component", "scheduler").Logger(),
		tickRateHz: tickRateHz,
		stop:       make(chan struct{}),
	}
}

func (s *Scheduler) CurrentTick() uint64 { return s.tick.Load() }
func (s *Scheduler) TickRateHz() int     { return s.tickRateHz }

// After runs fn on the scheduler goroutine delay ticks from now. A delay of
// zero or less runs on the next tick.
func (s *Scheduler) After(delay int, fn func()) *Task {
	if delay < 1 {
		delay = 1
	}
	t := &Task{
		id:  s.nextID.Add(1),
		due: s.tick.Load() + uint64(delay),
		fn:  fn,
	}
	s.mu.Lock()
	s.delayed = append(s.delayed, t)
	s.mu.Unlock()
	return t
}

// Submit hands fn to the scheduler goroutine for the next tick.
func (s *Scheduler) Submit(fn func()) {
	s.mu.Lock()
	s.submitted = append(s.submitted, fn)
	s.mu.Unlock()
}

// OnTick registers a hook that runs every tick after submitted work.
func (s *Scheduler) OnTick(fn func(tick uint64)) {
	s.mu.Lock()
	s.hooks = append(s.hooks, fn)
	s.mu.Unlock()
}

// Pending counts delayed tasks that have neither run nor been cancelled.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.delayed {
		if taskState(t.state.Load()) == statePending {
			n++
		}
	}
	return n
}

// Step advances one tick: submitted work, tick hooks, then due tasks in
// scheduling order.
func (s *Scheduler) Step() uint64 {
	now := s.tick.Add(1)

	s.mu.Lock()
	submitted := s.submitted
	s.submitted = nil
	hooks := append([]func(uint64){}, s.hooks...)
	var due, keep []*Task
	for _, t := range s.delayed {
		switch {
		case taskState(t.state.Load()) != statePending:
		case t.due <= now:
			due = append(due, t)
		default:
			keep = append(keep, t)
		}
	}
	s.delayed = keep
	s.mu.Unlock()

	for _, fn := range submitted {
		s.safeRun(now, fn)
	}
	for _, h := range hooks {
		s.safeRun(now, func() { h(now) })
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].due != due[j].due {
			return due[i].due < due[j].due
		}
		return due[i].id < due[j].id
	})
	for _, t := range due {
		if !t.state.CompareAndSwap(int32(statePending), int32(stateRan)) {
			continue
		}
		s.safeRun(now, t.fn)
	}
	return now
}

func (s *Scheduler) safeRun(tick uint64, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Uint64("tick", tick).Interface("panic", r).Msg("scheduled task panicked")
		}
	}()
	fn()
}

// Run steps at the configured tick rate until ctx is done or Stop is called.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(time.Second / time.Duration(s.tickRateHz))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stop:
			return nil
		case <-ticker.C:
			s.Step()
		}
	}
}

func (s *Scheduler) Stop() { s.once.Do(func() { close(s.stop) }) }

// CancelAll cancels every pending delayed task and returns how many it stopped.
func (s *Scheduler) CancelAll() int {
	s.mu.Lock()
	tasks := s.delayed
	s.delayed = nil
	s.mu.Unlock()
	n := 0
	for _, t := range tasks {
		if t.Cancel() {
			n++
		}
	}
	return n
}
