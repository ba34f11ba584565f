package paste

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/RedstoneFuture/missilewars-sub001/internal/sim/blockworld"
)

// SyncEngine writes every block immediately with neighbour updates. It must
// be called on the scheduler goroutine. Cells outside the world's height
// range are counted as skipped.
type SyncEngine struct {
	log zerolog.Logger
}

func NewSyncEngine(logger zerolog.Logger) *SyncEngine {
	return &SyncEngine{log: logger.With().Str("component", "paste").Str("engine", KindSync).Logger()}
}

func (e *SyncEngine) Name() string     { return KindSync }
func (e *SyncEngine) ThreadSafe() bool { return false }

func (e *SyncEngine) Paste(ctx context.Context, job Job) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if job.World == nil || job.Source == nil {
		return Result{}, fmt.Errorf("paste %s: missing world or source", job.Name)
	}
	plan := Build(job.Source, job.Origin, job.Rotation)
	res := Result{Skipped: plan.Skipped}
	for _, w := range plan.Writes {
		err := job.World.SetBlock(w.Pos, w.State, true)
		switch {
		case errors.Is(err, blockworld.ErrOutOfBounds):
			res.Skipped++
			continue
		case err != nil:
			return res, fmt.Errorf("paste %s at %v: %w", job.Name, w.Pos, err)
		}
		res.Placed++
	}
	e.log.Debug().Str("job", job.ID).Str("structure", job.Name).Int("placed", res.Placed).Msg("pasted")
	if job.OnApplied != nil {
		job.OnApplied(res)
	}
	return res, nil
}
