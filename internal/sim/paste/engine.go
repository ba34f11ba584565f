package paste

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/RedstoneFuture/missilewars-sub001/internal/sim/blockworld"
	"github.com/RedstoneFuture/missilewars-sub001/internal/sim/geom"
	"github.com/RedstoneFuture/missilewars-sub001/internal/sim/scheduler"
)

// Job is one structure paste.
type Job struct {
	ID       string
	Name     string
	Source   Source
	Origin   geom.Vec3i
	Rotation int
	World    blockworld.World

	// OnApplied runs on the scheduler goroutine once every write is in the
	// world. Engines that write immediately call it before Paste returns.
	OnApplied func(Result)
}

type Result struct {
	Placed   int  `json:"placed"`
	Skipped  int  `json:"skipped"`
	Deferred bool `json:"deferred"`
}

// Engine is the adapter over whatever actually mutates the world. One engine
// is chosen at startup and shared by every paste.
type Engine interface {
	Name() string
	// ThreadSafe reports whether Paste may be called off the scheduler goroutine.
	ThreadSafe() bool
	Paste(ctx context.Context, job Job) (Result, error)
}

const (
	KindSync    = "sync"
	KindBatched = "batched"
)

// Select builds the configured engine.
func Select(kind string, sched *scheduler.Scheduler, blocksPerTick int, logger zerolog.Logger) (Engine, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", KindSync:
		return NewSyncEngine(logger), nil
	case KindBatched:
		if sched == nil {
			return nil, fmt.Errorf("paste engine %q needs a scheduler", kind)
		}
		return NewBatchEngine(sched, blocksPerTick, logger), nil
	}
	return nil, fmt.Errorf("unknown paste engine %q", kind)
}
