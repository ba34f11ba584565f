package paste

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/RedstoneFuture/missilewars-sub001/internal/sim/blockworld"
	"github.com/RedstoneFuture/missilewars-sub001/internal/sim/scheduler"
)

const defaultBlocksPerTick = 4096

// BatchEngine plans on the caller's goroutine and trickles the writes into
// the world from the scheduler, a bounded number per tick and without
// neighbour updates. Pasted blocks therefore appear over several ticks and
// stay visually stale until something else updates their chunk.
type BatchEngine struct {
	log           zerolog.Logger
	blocksPerTick int

	mu    sync.Mutex
	queue []*pending
}

type pending struct {
	job  Job
	plan Plan
	next int

	placed, outside int
}

func NewBatchEngine(sched *scheduler.Scheduler, blocksPerTick int, logger zerolog.Logger) *BatchEngine {
	if blocksPerTick <= 0 {
		blocksPerTick = defaultBlocksPerTick
	}
	e := &BatchEngine{
		log:           logger.With().Str("component", "paste").Str("engine", KindBatched).Logger(),
		blocksPerTick: blocksPerTick,
	}
	sched.OnTick(e.Flush)
	return e
}

func (e *BatchEngine) Name() string     { return KindBatched }
func (e *BatchEngine) ThreadSafe() bool { return true }

func (e *BatchEngine) Paste(ctx context.Context, job Job) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if job.World == nil || job.Source == nil {
		return Result{}, fmt.Errorf("paste %s: missing world or source", job.Name)
	}
	plan := Build(job.Source, job.Origin, job.Rotation)
	e.mu.Lock()
	e.queue = append(e.queue, &pending{job: job, plan: plan})
	e.mu.Unlock()
	return Result{Skipped: plan.Skipped, Deferred: true}, nil
}

// Pending counts blocks still waiting to be written.
func (e *BatchEngine) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, p := range e.queue {
		n += len(p.plan.Writes) - p.next
	}
	return n
}

// Flush writes up to blocksPerTick queued blocks. It runs on the scheduler.
func (e *BatchEngine) Flush(tick uint64) {
	budget := e.blocksPerTick
	for budget > 0 {
		e.mu.Lock()
		if len(e.queue) == 0 {
			e.mu.Unlock()
			return
		}
		p := e.queue[0]
		e.mu.Unlock()

		done, failed := e.flushOne(p, &budget, tick)
		if !done && !failed {
			return
		}
		e.mu.Lock()
		e.queue = e.queue[1:]
		e.mu.Unlock()
		if done && p.job.OnApplied != nil {
			p.job.OnApplied(Result{Placed: p.placed, Skipped: p.plan.Skipped + p.outside, Deferred: true})
		}
	}
}

func (e *BatchEngine) flushOne(p *pending, budget *int, tick uint64) (done, failed bool) {
	if !p.job.World.Loaded() {
		e.log.Warn().Str("job", p.job.ID).Str("structure", p.job.Name).Uint64("tick", tick).
			Msg("world unloaded before paste finished; dropping remaining writes")
		return false, true
	}
	for p.next < len(p.plan.Writes) && *budget > 0 {
		w := p.plan.Writes[p.next]
		err := p.job.World.SetBlock(w.Pos, w.State, false)
		switch {
		case errors.Is(err, blockworld.ErrOutOfBounds):
			p.outside++
		case err != nil:
			e.log.Error().Err(err).Str("job", p.job.ID).Str("structure", p.job.Name).Msg("batched write failed")
			return false, true
		default:
			p.placed++
		}
		p.next++
		*budget--
	}
	return p.next == len(p.plan.Writes), false
}
