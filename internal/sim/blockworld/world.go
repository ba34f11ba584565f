// Package blockworld is the boundary between placement code and the host
// world, plus an in-memory world used by the server and tests.
package blockworld

import (
	"errors"

	"github.com/RedstoneFuture/missilewars-sub001/internal/sim/block"
	"github.com/RedstoneFuture/missilewars-sub001/internal/sim/geom"
)

var (
	ErrWorldUnloaded = errors.New("world unloaded")
	ErrUnknownWorld  = errors.New("unknown world")
	ErrOutOfBounds   = errors.New("position out of world bounds")
)

// World is the host world as seen by the placement core. Writes are only
// legal on the scheduler goroutine.
type World interface {
	Name() string
	// Loaded reports whether the world can still be read and written.
	Loaded() bool
	BlockAt(p geom.Vec3i) (block.State, error)
	// SetBlock writes a block. physics=false skips neighbour updates, which is
	// what lazy paste engines do.
	SetBlock(p geom.Vec3i, st block.State, physics bool) error
}
