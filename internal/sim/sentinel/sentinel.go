// Package sentinel plants and later clears trigger blocks around a paste
// anchor. Clearing them with physics forces deferred paste engines to
// finalize the region and emit neighbour updates.
package sentinel

import (
	"errors"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/RedstoneFuture/missilewars-sub001/internal/sim/block"
	"github.com/RedstoneFuture/missilewars-sub001/internal/sim/blockworld"
	"github.com/RedstoneFuture/missilewars-sub001/internal/sim/geom"
	"github.com/RedstoneFuture/missilewars-sub001/internal/sim/scheduler"
)

type Spec struct {
	Material    block.State
	ReplaceWith block.State // zero value means air
	Radius      int
	DelayTicks  int
	Plant       bool // place Material at the anchor when the paste starts
}

func DefaultSpec() Spec {
	return Spec{
		Material:    block.MustParse("jukebox"),
		ReplaceWith: block.Air,
		Radius:      2,
		DelayTicks:  2,
	}
}

func (s Spec) Replacement() block.State {
	if s.ReplaceWith.Name == "" {
		return block.Air
	}
	return s.ReplaceWith
}

type State int32

const (
	Scheduled State = iota
	Fired
	Done
	Cancelled
)

func (s State) String() string {
	switch s {
	case Scheduled:
		return "scheduled"
	case Fired:
		return "fired"
	case Done:
		return "done"
	case Cancelled:
		return "cancelled"
	}
	return "unknown"
}

// Report describes a finished cleanup.
type Report struct {
	World   string
	Anchor  geom.Vec3i
	Cleared int
	Skipped bool // world was gone when the cleanup fired
	Err     error
}

// Cleanup is a one-shot handle for a scheduled sweep.
type Cleanup struct {
	world  blockworld.World
	anchor geom.Vec3i
	spec   Spec
	log    zerolog.Logger
	onDone func(Report)

	task  *scheduler.Task
	state atomic.Int32
}

// Plant places the trigger material at the anchor. It must run on the scheduler.
func Plant(w blockworld.World, anchor geom.Vec3i, spec Spec) error {
	return w.SetBlock(anchor, spec.Material, false)
}

// Schedule arms a cleanup that fires DelayTicks ticks from now on the
// scheduler goroutine. onDone may be nil.
func Schedule(sched *scheduler.Scheduler, w blockworld.World, anchor geom.Vec3i, spec Spec, logger zerolog.Logger, onDone func(Report)) *Cleanup {
	c := &Cleanup{
		world:  w,
		anchor: anchor,
		spec:   spec,
		log:    logger.With().Str("component", "sentinel").Str("world", w.Name()).Stringer("anchor", anchor).Logger(),
		onDone: onDone,
	}
	c.task = sched.After(spec.DelayTicks, c.Fire)
	return c
}

func (c *Cleanup) State() State { return State(c.state.Load()) }

// Cancel stops a cleanup that has not fired yet. It returns false otherwise.
func (c *Cleanup) Cancel() bool {
	if !c.state.CompareAndSwap(int32(Scheduled), int32(Cancelled)) {
		return false
	}
	c.task.Cancel()
	return true
}

// Fire runs the sweep once. Later calls and calls after Cancel do nothing.
func (c *Cleanup) Fire() {
	if !c.state.CompareAndSwap(int32(Scheduled), int32(Fired)) {
		return
	}
	rep := Report{World: c.world.Name(), Anchor: c.anchor}
	if !c.world.Loaded() {
		rep.Skipped = true
		c.log.Debug().Msg("world unloaded; sentinel cleanup skipped")
	} else {
		rep.Cleared, rep.Err = Sweep(c.world, geom.Around(c.anchor, c.spec.Radius), c.spec.Material, c.spec.Replacement())
		switch {
		case errors.Is(rep.Err, blockworld.ErrWorldUnloaded):
			rep.Skipped, rep.Err = true, nil
			c.log.Debug().Int("cleared", rep.Cleared).Msg("world unloaded during sentinel cleanup")
		case rep.Err != nil:
			c.log.Warn().Err(rep.Err).Int("cleared", rep.Cleared).Msg("sentinel cleanup incomplete")
		default:
			c.log.Debug().Int("cleared", rep.Cleared).Msg("sentinel cleanup done")
		}
	}
	c.state.Store(int32(Done))
	if c.onDone != nil {
		c.onDone(rep)
	}
}

// Sweep replaces every block of material's kind inside region, with physics.
// Out-of-bounds cells are ignored.
func Sweep(w blockworld.World, region geom.Cuboid, material, replaceWith block.State) (int, error) {
	cleared := 0
	var err error
	region.Each(func(p geom.Vec3i) bool {
		st, e := w.BlockAt(p)
		if errors.Is(e, blockworld.ErrOutOfBounds) {
			return true
		}
		if e != nil {
			err = e
			return false
		}
		if !st.SameKind(material) {
			return true
		}
		if e := w.SetBlock(p, replaceWith, true); e != nil {
			err = e
			return false
		}
		cleared++
		return true
	})
	return cleared, err
}
