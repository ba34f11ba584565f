package missile

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"testing/fstest"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RedstoneFuture/missilewars-sub001/internal/metrics"
	"github.com/RedstoneFuture/missilewars-sub001/internal/protocol"
	"github.com/RedstoneFuture/missilewars-sub001/internal/sim/block"
	"github.com/RedstoneFuture/missilewars-sub001/internal/sim/blockworld"
	"github.com/RedstoneFuture/missilewars-sub001/internal/sim/facing"
	"github.com/RedstoneFuture/missilewars-sub001/internal/sim/geom"
	"github.com/RedstoneFuture/missilewars-sub001/internal/sim/paste"
	"github.com/RedstoneFuture/missilewars-sub001/internal/sim/scheduler"
	"github.com/RedstoneFuture/missilewars-sub001/internal/sim/structure"
	"github.com/RedstoneFuture/missilewars-sub001/internal/sim/tuning"
)

// rocket points north: glass at the origin, slime one block ahead.
const rocketJSON = `{"id":"rocket","blocks":[
	{"pos":[0,0,0],"block":"minecraft:glass"},
	{"pos":[0,0,-1],"block":"minecraft:slime_block"},
	{"pos":[0,1,0],"block":"minecraft:piston[facing=north]"}
]}`

type recordingSink struct {
	mu         sync.Mutex
	placements []protocol.PlacementEvent
	cleanups   []protocol.CleanupEvent
}

func (r *recordingSink) Placement(ev protocol.PlacementEvent) {
	r.mu.Lock()
	r.placements = append(r.placements, ev)
	r.mu.Unlock()
}

func (r *recordingSink) Cleanup(ev protocol.CleanupEvent) {
	r.mu.Lock()
	r.cleanups = append(r.cleanups, ev)
	r.mu.Unlock()
}

func (r *recordingSink) snapshot() ([]protocol.PlacementEvent, []protocol.CleanupEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]protocol.PlacementEvent(nil), r.placements...), append([]protocol.CleanupEvent(nil), r.cleanups...)
}

type harness struct {
	svc    *Service
	sched  *scheduler.Scheduler
	world  *blockworld.MemWorld
	sink   *recordingSink
	notes  []string
	notesM sync.Mutex
}

func (h *harness) messages() []string {
	h.notesM.Lock()
	defer h.notesM.Unlock()
	return append([]string(nil), h.notes...)
}

func testTuning() tuning.Tuning {
	cfg := tuning.Defaults()
	cfg.Arenas = []tuning.ArenaSpec{{Name: "classic", World: "mw", Facings: []string{"NORTH", "SOUTH"}}}
	cfg.Missiles = []tuning.MissileSpec{{Name: "rocket", DisplayName: "Rocket", Schematic: "rocket.json", Down: 2, Dist: 3}}
	return cfg
}

func newHarness(t *testing.T, cfg tuning.Tuning, engine func(*scheduler.Scheduler) paste.Engine) *harness {
	t.Helper()
	sched := scheduler.New(20, zerolog.Nop())
	w := blockworld.NewMemWorld("mw", -64, 319)
	reg := blockworld.NewRegistry()
	reg.Add(w)
	lib := structure.NewLibrary(structure.NewLoader(fstest.MapFS{"rocket.json": {Data: []byte(rocketJSON)}}, structure.ModeAuto), zerolog.Nop())

	h := &harness{sched: sched, world: w, sink: &recordingSink{}}
	if engine == nil {
		engine = func(*scheduler.Scheduler) paste.Engine { return paste.NewSyncEngine(zerolog.Nop()) }
	}
	svc, err := New(Deps{
		Tuning:    cfg,
		Worlds:    reg,
		Library:   lib,
		Engine:    engine(sched),
		Scheduler: sched,
		Metrics:   metrics.New(nil),
		Sink:      h.sink,
		Notifier: NotifierFunc(func(_, msg string) {
			h.notesM.Lock()
			h.notes = append(h.notes, msg)
			h.notesM.Unlock()
		}),
		Logger: zerolog.Nop(),
	})
	require.NoError(t, err)
	h.svc = svc
	return h
}

func (h *harness) at(t *testing.T, x, y, z int) block.State {
	t.Helper()
	st, err := h.world.BlockAt(geom.V(x, y, z))
	require.NoError(t, err)
	return st
}

func TestThrow_PlacesRotatedRecoloredMissile(t *testing.T) {
	h := newHarness(t, testTuning(), nil)
	jukebox := block.MustParse("jukebox")
	require.NoError(t, h.world.SetBlock(geom.V(101, 64, 100), jukebox, false))

	// Yaw 0 looks south; heading 45 is inside SOUTH's primary interval.
	id, err := h.svc.Throw(ThrowRequest{Arena: "classic", Missile: "rocket", Team: "red", PlayerID: "p", Anchor: geom.V(100, 64, 100), Yaw: 0})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	h.sched.Step()
	assert.Equal(t, "red_stained_glass", h.at(t, 100, 62, 103).Path())
	assert.Equal(t, "slime_block", h.at(t, 100, 62, 104).Path(), "nose points south after 180 degrees")
	piston := h.at(t, 100, 63, 103)
	dir, _ := piston.Prop("facing")
	assert.Equal(t, "south", dir)

	placements, _ := h.sink.snapshot()
	require.Len(t, placements, 1)
	ev := placements[0]
	assert.Equal(t, id, ev.PlacementID)
	assert.Equal(t, [3]int{100, 62, 103}, ev.Origin)
	assert.Equal(t, 180, ev.Rotation)
	assert.Equal(t, "SOUTH", ev.Facing)
	assert.Equal(t, "red", ev.Color)
	assert.Equal(t, 3, ev.Placed)
	assert.Empty(t, ev.Code)
	assert.Equal(t, 1, h.svc.Pending())

	h.sched.Step()
	h.sched.Step()
	assert.True(t, h.at(t, 101, 64, 100).IsAir(), "sentinel cleanup clears the trigger block")
	_, cleanups := h.sink.snapshot()
	require.Len(t, cleanups, 1)
	assert.Equal(t, "done", cleanups[0].Outcome)
	assert.Equal(t, 1, cleanups[0].Cleared)
	assert.Zero(t, h.svc.Pending())
}

func TestPlaceStructure_UndefinedFacingNotifiesPlayer(t *testing.T) {
	h := newHarness(t, testTuning(), nil)
	_, err := h.svc.PlaceStructure(Request{Structure: "rocket.json", DisplayName: "Rocket", World: "mw", Anchor: geom.V(0, 64, 0), Facing: facing.None, PlayerID: "p"})
	assert.Equal(t, protocol.ErrNoFacing, CodeOf(err))
	h.sched.Step()
	assert.Zero(t, h.world.Writes())
	require.Len(t, h.messages(), 1)
	assert.Contains(t, h.messages()[0], "Rocket")
}

func TestPlaceStructure_BadColorAborts(t *testing.T) {
	h := newHarness(t, testTuning(), nil)
	_, err := h.svc.PlaceStructure(Request{Structure: "rocket.json", World: "mw", Facing: facing.North, Color: "§z"})
	assert.Equal(t, protocol.ErrBadColor, CodeOf(err))
	h.sched.Step()
	assert.Zero(t, h.world.Writes())
}

func TestThrow_EmptyTeamRejected(t *testing.T) {
	h := newHarness(t, testTuning(), nil)
	_, err := h.svc.Throw(ThrowRequest{Arena: "classic", Missile: "rocket", PlayerID: "p", Anchor: geom.V(0, 64, 0), Yaw: 0})
	assert.Equal(t, protocol.ErrBadColor, CodeOf(err))
	h.sched.Step()
	assert.Zero(t, h.world.Writes())
	placements, _ := h.sink.snapshot()
	assert.Empty(t, placements)
}

func TestThrow_UnknownTeamRejected(t *testing.T) {
	h := newHarness(t, testTuning(), nil)
	for _, team := range []string{"green", "white", "&e"} {
		_, err := h.svc.Throw(ThrowRequest{Arena: "classic", Missile: "rocket", Team: team, PlayerID: "p", Anchor: geom.V(0, 64, 0), Yaw: 0})
		assert.Equal(t, protocol.ErrBadColor, CodeOf(err), team)
	}
	h.sched.Step()
	assert.Zero(t, h.world.Writes())

	_, err := h.svc.Throw(ThrowRequest{Arena: "classic", Missile: "rocket", Team: "BLUE", PlayerID: "p", Anchor: geom.V(0, 64, 0), Yaw: 0})
	require.NoError(t, err, "team names match case-insensitively")
	h.sched.Step()
	assert.Equal(t, "light_blue_stained_glass", h.at(t, 0, 62, 3).Path())
}

func TestPlaceStructure_Rejections(t *testing.T) {
	h := newHarness(t, testTuning(), nil)
	_, err := h.svc.PlaceStructure(Request{Structure: "rocket.json", World: "nether", Facing: facing.North})
	assert.Equal(t, protocol.ErrWorldNotFound, CodeOf(err))

	rot := 45
	_, err = h.svc.PlaceStructure(Request{Structure: "rocket.json", World: "mw", Rotation: &rot})
	assert.Equal(t, protocol.ErrBadRequest, CodeOf(err))

	_, err = h.svc.Throw(ThrowRequest{Arena: "nope", Missile: "rocket"})
	assert.Equal(t, protocol.ErrUnknownArena, CodeOf(err))
	_, err = h.svc.Throw(ThrowRequest{Arena: "classic", Missile: "nope"})
	assert.Equal(t, protocol.ErrUnknownMissile, CodeOf(err))
}

func TestPlaceStructure_ExplicitRotation(t *testing.T) {
	h := newHarness(t, testTuning(), nil)
	rot := 90
	_, err := h.svc.PlaceStructure(Request{Structure: "rocket.json", World: "mw", Anchor: geom.V(0, 64, 0), Rotation: &rot, Distance: 2})
	require.NoError(t, err)
	h.sched.Step()
	// 90 degrees faces west: origin moves -x and the nose points west.
	assert.Equal(t, "glass", h.at(t, -2, 64, 0).Path())
	assert.Equal(t, "slime_block", h.at(t, -3, 64, 0).Path())
}

func TestPlaceStructure_MissingStructureIsContained(t *testing.T) {
	h := newHarness(t, testTuning(), nil)
	id, err := h.svc.PlaceStructure(Request{Structure: "ghost.schem", DisplayName: "Ghost", World: "mw", Facing: facing.North, PlayerID: "p"})
	require.NoError(t, err)
	assert.NotPanics(t, func() { h.sched.Step() })

	placements, _ := h.sink.snapshot()
	require.Len(t, placements, 1)
	assert.Equal(t, id, placements[0].PlacementID)
	assert.Equal(t, protocol.ErrUnknownStructure, placements[0].Code)
	assert.Zero(t, h.svc.Pending(), "no cleanup for a paste that never happened")
	assert.Len(t, h.messages(), 1)
}

type panicEngine struct{}

func (panicEngine) Name() string     { return "panic" }
func (panicEngine) ThreadSafe() bool { return false }
func (panicEngine) Paste(context.Context, paste.Job) (paste.Result, error) {
	panic("engine exploded")
}

func TestPlaceStructure_RecoversEnginePanic(t *testing.T) {
	h := newHarness(t, testTuning(), func(*scheduler.Scheduler) paste.Engine { return panicEngine{} })
	_, err := h.svc.PlaceStructure(Request{Structure: "rocket.json", World: "mw", Facing: facing.North})
	require.NoError(t, err)
	h.sched.Step()
	placements, _ := h.sink.snapshot()
	require.Len(t, placements, 1)
	assert.Equal(t, protocol.ErrInternal, placements[0].Code)
	assert.Zero(t, h.svc.Pending())
}

type failingEngine struct{ err error }

func (e failingEngine) Name() string     { return "failing" }
func (e failingEngine) ThreadSafe() bool { return false }
func (e failingEngine) Paste(context.Context, paste.Job) (paste.Result, error) {
	return paste.Result{}, e.err
}

func TestPlaceStructure_EngineErrorIsContained(t *testing.T) {
	h := newHarness(t, testTuning(), func(*scheduler.Scheduler) paste.Engine {
		return failingEngine{err: errors.New("disk on fire")}
	})
	_, err := h.svc.PlaceStructure(Request{Structure: "rocket.json", World: "mw", Facing: facing.North})
	require.NoError(t, err)
	h.sched.Step()
	placements, _ := h.sink.snapshot()
	require.Len(t, placements, 1)
	assert.Equal(t, protocol.ErrPaste, placements[0].Code)
}

func TestPlaceStructure_AsyncBatched(t *testing.T) {
	cfg := testTuning()
	cfg.AsyncPaste = true
	h := newHarness(t, cfg, func(s *scheduler.Scheduler) paste.Engine {
		return paste.NewBatchEngine(s, 1, zerolog.Nop())
	})
	_, err := h.svc.PlaceStructure(Request{Structure: "rocket.json", World: "mw", Anchor: geom.V(0, 64, 0), Facing: facing.North})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		h.sched.Step()
		placements, _ := h.sink.snapshot()
		return len(placements) == 1
	}, 2*time.Second, time.Millisecond)
	placements, _ := h.sink.snapshot()
	assert.Equal(t, 3, placements[0].Placed)
	assert.Equal(t, "batched", placements[0].Engine)
	assert.Equal(t, "slime_block", h.at(t, 0, 64, -1).Path())
	require.NoError(t, h.svc.Shutdown(context.Background()))
}

func TestCancelArena(t *testing.T) {
	h := newHarness(t, testTuning(), nil)
	require.NoError(t, h.world.SetBlock(geom.V(0, 64, 1), block.MustParse("jukebox"), false))
	_, err := h.svc.Throw(ThrowRequest{Arena: "classic", Missile: "rocket", Team: "blue", Anchor: geom.V(0, 64, 0), Yaw: 180})
	require.NoError(t, err)
	h.sched.Step()
	require.Equal(t, 1, h.svc.Pending())

	assert.Equal(t, 1, h.svc.CancelArena("classic"))
	assert.Zero(t, h.svc.CancelArena("classic"))
	for i := 0; i < 4; i++ {
		h.sched.Step()
	}
	assert.Equal(t, "jukebox", h.at(t, 0, 64, 1).Path())
	_, cleanups := h.sink.snapshot()
	assert.Empty(t, cleanups)
}

func TestShutdown_RejectsNewPlacements(t *testing.T) {
	h := newHarness(t, testTuning(), nil)
	_, err := h.svc.Throw(ThrowRequest{Arena: "classic", Missile: "rocket", Team: "red", Anchor: geom.V(0, 64, 0)})
	require.NoError(t, err)
	h.sched.Step()
	require.Equal(t, 1, h.svc.Pending())

	require.NoError(t, h.svc.Shutdown(context.Background()))
	assert.Zero(t, h.svc.Pending())
	_, err = h.svc.Throw(ThrowRequest{Arena: "classic", Missile: "rocket", Team: "red"})
	assert.ErrorIs(t, err, ErrShutdown)
	assert.Equal(t, protocol.ErrShutdown, CodeOf(err))
}

// countingEngine records every paste that reached the engine.
type countingEngine struct{ n atomic.Int64 }

func (e *countingEngine) Name() string     { return "counting" }
func (e *countingEngine) ThreadSafe() bool { return true }
func (e *countingEngine) Paste(context.Context, paste.Job) (paste.Result, error) {
	e.n.Add(1)
	return paste.Result{}, nil
}

func TestShutdown_WaitsForEveryAcceptedAsyncPaste(t *testing.T) {
	cfg := testTuning()
	cfg.AsyncPaste = true
	eng := &countingEngine{}
	h := newHarness(t, cfg, func(*scheduler.Scheduler) paste.Engine { return eng })

	var accepted atomic.Int64
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			for j := 0; j < 50; j++ {
				if _, err := h.svc.PlaceStructure(Request{Structure: "rocket.json", World: "mw", Facing: facing.North}); err == nil {
					accepted.Add(1)
				} else {
					assert.Equal(t, protocol.ErrShutdown, CodeOf(err))
				}
			}
		}()
	}
	close(start)
	require.NoError(t, h.svc.Shutdown(context.Background()))
	// Once Shutdown returns, nothing accepted may still be running and
	// nothing new may be accepted.
	afterShutdown := eng.n.Load()
	wg.Wait()
	assert.Equal(t, afterShutdown, eng.n.Load())
	assert.Equal(t, accepted.Load(), eng.n.Load())
}

func TestSentinelPlantAndClear(t *testing.T) {
	cfg := testTuning()
	cfg.Sentinel.Plant = true
	h := newHarness(t, cfg, nil)
	_, err := h.svc.PlaceStructure(Request{Structure: "rocket.json", World: "mw", Anchor: geom.V(0, 70, 0), Facing: facing.North, Distance: 5})
	require.NoError(t, err)
	h.sched.Step()
	assert.Equal(t, "jukebox", h.at(t, 0, 70, 0).Path())
	h.sched.Step()
	h.sched.Step()
	assert.True(t, h.at(t, 0, 70, 0).IsAir())
}
