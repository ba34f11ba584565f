// Package missile is the placement boundary: it turns a placement request
// into a transformed, recolored paste plus a delayed sentinel cleanup.
package missile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/RedstoneFuture/missilewars-sub001/internal/metrics"
	"github.com/RedstoneFuture/missilewars-sub001/internal/protocol"
	"github.com/RedstoneFuture/missilewars-sub001/internal/sim/blockworld"
	"github.com/RedstoneFuture/missilewars-sub001/internal/sim/facing"
	"github.com/RedstoneFuture/missilewars-sub001/internal/sim/filter"
	"github.com/RedstoneFuture/missilewars-sub001/internal/sim/geom"
	"github.com/RedstoneFuture/missilewars-sub001/internal/sim/paste"
	"github.com/RedstoneFuture/missilewars-sub001/internal/sim/placement"
	"github.com/RedstoneFuture/missilewars-sub001/internal/sim/scheduler"
	"github.com/RedstoneFuture/missilewars-sub001/internal/sim/sentinel"
	"github.com/RedstoneFuture/missilewars-sub001/internal/sim/structure"
	"github.com/RedstoneFuture/missilewars-sub001/internal/sim/tuning"
)

// Deps are the collaborators a Service is built from. Metrics, Sink and
// Notifier are optional.
type Deps struct {
	Tuning    tuning.Tuning
	Worlds    *blockworld.Registry
	Library   *structure.Library
	Engine    paste.Engine
	Scheduler *scheduler.Scheduler
	Metrics   *metrics.Metrics
	Sink      EventSink
	Notifier  Notifier
	Logger    zerolog.Logger
}

type Service struct {
	cfg      tuning.Tuning
	sentinel sentinel.Spec
	worlds   *blockworld.Registry
	library  *structure.Library
	engine   paste.Engine
	sched    *scheduler.Scheduler
	metrics  *metrics.Metrics
	sink     EventSink
	notifier Notifier
	resolver *facing.Resolver
	log      zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	closed   bool
	cleanups map[string]pendingCleanup
}

type pendingCleanup struct {
	arena string
	c     *sentinel.Cleanup
}

func New(d Deps) (*Service, error) {
	if d.Worlds == nil || d.Library == nil || d.Engine == nil || d.Scheduler == nil {
		return nil, errors.New("missile: worlds, library, engine and scheduler are required")
	}
	spec, err := d.Tuning.SentinelSpec()
	if err != nil {
		return nil, err
	}
	if d.Notifier == nil {
		d.Notifier = LogNotifier(d.Logger)
	}
	if d.Sink == nil {
		d.Sink = Sinks(nil)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		cfg:      d.Tuning,
		sentinel: spec,
		worlds:   d.Worlds,
		library:  d.Library,
		engine:   d.Engine,
		sched:    d.Scheduler,
		metrics:  d.Metrics,
		sink:     d.Sink,
		notifier: d.Notifier,
		resolver: facing.NewResolver(d.Logger),
		log:      d.Logger.With().Str("component", "missile").Logger(),
		ctx:      ctx,
		cancel:   cancel,
		cleanups: map[string]pendingCleanup{},
	}, nil
}

// Throw places a configured missile for a player looking at req.Yaw.
func (s *Service) Throw(req ThrowRequest) (string, error) {
	arena, ok := s.cfg.Arena(req.Arena)
	if !ok {
		return "", s.reject(req.PlayerID, protocol.ErrUnknownArena, fmt.Errorf("unknown arena %q", req.Arena))
	}
	m, ok := s.cfg.Missile(req.Missile)
	if !ok {
		return "", s.reject(req.PlayerID, protocol.ErrUnknownMissile, fmt.Errorf("unknown missile %q", req.Missile))
	}
	color, ok := s.cfg.TeamColor(req.Team)
	if !ok {
		s.count(metrics.ResultBadConfig)
		return "", s.reject(req.PlayerID, protocol.ErrBadColor, fmt.Errorf("team %q has no configured color", req.Team))
	}
	f := s.resolver.FromYaw(req.Yaw, arena.FacingSet())
	return s.PlaceStructure(Request{
		Structure:   m.Schematic,
		DisplayName: m.DisplayName,
		World:       arena.World,
		Anchor:      req.Anchor,
		Facing:      f,
		Drop:        m.Down,
		Distance:    m.Dist,
		Color:       color,
		Arena:       arena.Name,
		PlayerID:    req.PlayerID,
	})
}

// PlaceStructure validates req and dispatches the paste. It returns the
// placement id once the paste is queued; load and paste failures after that
// are logged and reported to the event sink, never to the caller.
func (s *Service) PlaceStructure(req Request) (string, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return "", &PlaceError{Code: protocol.ErrShutdown, Err: ErrShutdown}
	}

	w, err := s.worlds.Get(req.World)
	if err != nil {
		return "", s.reject(req.PlayerID, protocol.ErrWorldNotFound, err)
	}

	f := req.Facing
	if req.Rotation != nil {
		if *req.Rotation%90 != 0 {
			return "", s.reject(req.PlayerID, protocol.ErrBadRequest, fmt.Errorf("rotation %d is not a multiple of 90", *req.Rotation))
		}
		f = placement.FacingOf(*req.Rotation)
	}
	tr, ok := placement.Compute(req.Anchor, f, req.Drop, req.Distance)
	if !ok {
		s.count(metrics.ResultNoFacing)
		s.notifier.Notify(req.PlayerID, fmt.Sprintf("Could not determine a direction for %s. Look towards the enemy base and try again.", req.name()))
		return "", &PlaceError{Code: protocol.ErrNoFacing, Err: errors.New("facing is undefined")}
	}

	var cf *filter.ColorFilter
	if req.Color != "" {
		if cf, err = filter.NewColorFilter(req.Color); err != nil {
			s.count(metrics.ResultBadConfig)
			s.log.Error().Err(err).Str("structure", req.name()).Msg("team color is not configured correctly; paste aborted")
			return "", &PlaceError{Code: protocol.ErrBadColor, Err: err}
		}
	}

	p := &placementRun{
		id:     uuid.NewString(),
		req:    req,
		world:  w,
		facing: f,
		tr:     tr,
		filter: cf,
		start:  time.Now(),
	}
	async := s.cfg.AsyncPaste && s.engine.ThreadSafe()
	// Shutdown may have started since the check above. The closed check and
	// wg.Add share one critical section so Shutdown's wg.Wait covers every
	// accepted async paste.
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return "", &PlaceError{Code: protocol.ErrShutdown, Err: ErrShutdown}
	}
	if async {
		s.wg.Add(1)
	}
	s.mu.Unlock()

	if async {
		go func() {
			defer s.wg.Done()
			s.run(p)
		}()
	} else {
		s.sched.Submit(func() { s.run(p) })
	}
	return p.id, nil
}

type placementRun struct {
	id     string
	req    Request
	world  blockworld.World
	facing facing.Facing
	tr     placement.Transform
	filter *filter.ColorFilter
	start  time.Time
}

func (p *placementRun) event(tick uint64, engine string) protocol.PlacementEvent {
	ev := protocol.PlacementEvent{
		Type:        protocol.TypePlacement,
		PlacementID: p.id,
		Tick:        tick,
		Arena:       p.req.Arena,
		World:       p.world.Name(),
		Structure:   p.req.Structure,
		DisplayName: p.req.DisplayName,
		PlayerID:    p.req.PlayerID,
		Origin:      [3]int{p.tr.Origin.X, p.tr.Origin.Y, p.tr.Origin.Z},
		Rotation:    p.tr.Rotation,
		Facing:      p.facing.String(),
		Engine:      engine,
	}
	if p.filter != nil {
		ev.Color = string(p.filter.Color())
	}
	return ev
}

// run loads and pastes one placement. Any failure, including a panic, means
// the placement did not happen.
func (s *Service) run(p *placementRun) {
	lg := s.log.With().Str("placement", p.id).Str("structure", p.req.name()).Str("world", p.world.Name()).Logger()
	defer func() {
		if r := recover(); r != nil {
			lg.Error().Interface("panic", r).Msg("could not paste structure")
			s.fail(p, protocol.ErrInternal, fmt.Errorf("panic: %v", r))
		}
	}()

	st, err := s.library.Get(p.req.Structure)
	if err != nil {
		code := protocol.ErrLoad
		if errors.Is(err, structure.ErrNotFound) {
			code = protocol.ErrUnknownStructure
		}
		lg.Error().Err(err).Msg("could not load structure")
		s.count(metrics.ResultLoadError)
		s.fail(p, code, err)
		return
	}

	var src paste.Source = st
	if p.filter != nil {
		src = filter.Wrap(st, p.filter)
	}

	if s.cfg.Sentinel.Enabled && s.sentinel.Plant {
		s.onMain(func() {
			if err := sentinel.Plant(p.world, p.req.Anchor, s.sentinel); err != nil {
				lg.Debug().Err(err).Msg("could not plant sentinel")
			}
		})
	}

	_, err = s.engine.Paste(s.ctx, paste.Job{
		ID:       p.id,
		Name:     p.req.name(),
		Source:   src,
		Origin:   p.tr.Origin,
		Rotation: p.tr.Rotation,
		World:    p.world,
		OnApplied: func(res paste.Result) {
			if s.metrics != nil {
				s.metrics.Applied(s.engine.Name(), res.Placed, time.Since(p.start))
			}
			ev := p.event(s.sched.CurrentTick(), s.engine.Name())
			ev.Placed, ev.Skipped = res.Placed, res.Skipped
			s.sink.Placement(ev)
			lg.Debug().Int("placed", res.Placed).Int("rotation", p.tr.Rotation).Stringer("origin", p.tr.Origin).Msg("structure placed")
		},
	})
	if err != nil {
		code := protocol.ErrPaste
		if errors.Is(err, blockworld.ErrWorldUnloaded) {
			code = protocol.ErrWorldUnloaded
		}
		lg.Error().Err(err).Msg("could not paste structure")
		s.count(metrics.ResultFailed)
		s.fail(p, code, err)
		return
	}
	s.count(metrics.ResultOK)

	if s.cfg.Sentinel.Enabled {
		s.scheduleCleanup(p)
	}
}

func (s *Service) scheduleCleanup(p *placementRun) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	anchor := p.req.Anchor
	c := sentinel.Schedule(s.sched, p.world, anchor, s.sentinel, s.log, func(rep sentinel.Report) {
		outcome := "done"
		switch {
		case rep.Skipped:
			outcome = "skipped"
		case rep.Err != nil:
			outcome = "failed"
		}
		s.finishCleanup(p, anchor, outcome, rep.Cleared)
	})
	s.cleanups[p.id] = pendingCleanup{arena: p.req.Arena, c: c}
	if s.metrics != nil {
		s.metrics.CleanupScheduled()
	}
}

func (s *Service) finishCleanup(p *placementRun, anchor geom.Vec3i, outcome string, cleared int) {
	s.mu.Lock()
	delete(s.cleanups, p.id)
	s.mu.Unlock()
	if s.metrics != nil {
		s.metrics.CleanupFinished(outcome, cleared)
	}
	s.sink.Cleanup(protocol.CleanupEvent{
		Type:        protocol.TypeCleanup,
		PlacementID: p.id,
		Tick:        s.sched.CurrentTick(),
		Arena:       p.req.Arena,
		World:       p.world.Name(),
		Anchor:      [3]int{anchor.X, anchor.Y, anchor.Z},
		Outcome:     outcome,
		Cleared:     cleared,
	})
}

// CancelArena cancels the pending sentinel cleanups of an arena, for example
// when it resets. It returns how many were cancelled.
func (s *Service) CancelArena(arena string) int {
	s.mu.Lock()
	var victims []pendingCleanup
	for id, pc := range s.cleanups {
		if pc.arena == arena && pc.c.Cancel() {
			victims = append(victims, pc)
			delete(s.cleanups, id)
		}
	}
	s.mu.Unlock()
	if s.metrics != nil {
		for range victims {
			s.metrics.CleanupFinished("cancelled", 0)
		}
	}
	return len(victims)
}

// Pending counts sentinel cleanups that have not fired yet.
func (s *Service) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cleanups)
}

// Shutdown rejects new placements, cancels pending cleanups and waits for
// in-flight async pastes until ctx ends.
func (s *Service) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	n := 0
	for id, pc := range s.cleanups {
		if pc.c.Cancel() {
			n++
		}
		delete(s.cleanups, id)
	}
	s.mu.Unlock()
	s.cancel()
	if s.metrics != nil {
		for i := 0; i < n; i++ {
			s.metrics.CleanupFinished("cancelled", 0)
		}
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		s.log.Info().Int("cancelled_cleanups", n).Msg("missile service stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) onMain(fn func()) {
	if s.cfg.AsyncPaste && s.engine.ThreadSafe() {
		s.sched.Submit(fn)
		return
	}
	fn()
}

func (s *Service) reject(playerID, code string, err error) error {
	s.log.Warn().Err(err).Str("code", code).Str("player", playerID).Msg("placement rejected")
	return &PlaceError{Code: code, Err: err}
}

func (s *Service) fail(p *placementRun, code string, err error) {
	ev := p.event(s.sched.CurrentTick(), s.engine.Name())
	ev.Code = code
	ev.Message = err.Error()
	s.sink.Placement(ev)
	s.notifier.Notify(p.req.PlayerID, fmt.Sprintf("%s could not be placed.", p.req.name()))
}

func (s *Service) count(result string) {
	if s.metrics != nil {
		s.metrics.Paste(result)
	}
}
