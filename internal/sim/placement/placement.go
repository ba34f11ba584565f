// Package placement turns a facing and configured offsets into the paste
// origin and rotation of a structure.
package placement

import (
	"github.com/RedstoneFuture/missilewars-sub001/internal/sim/facing"
	"github.com/RedstoneFuture/missilewars-sub001/internal/sim/geom"
)

// Transform is where and how a structure is pasted. Rotation is in degrees
// and always one of 0, 90, 180, 270.
type Transform struct {
	Origin   geom.Vec3i `json:"origin"`
	Rotation int        `json:"rotation"`
}

// QuarterTurns returns Rotation as a quarter-turn count for geom.Vec3i.Turned.
func (t Transform) QuarterTurns() int { return geom.QuarterTurns(t.Rotation) }

// Compute derives the paste transform for anchor. It reports false for an
// undefined facing; callers must not paste in that case.
func Compute(anchor geom.Vec3i, f facing.Facing, drop, distance int) (Transform, bool) {
	rot, ok := RotationOf(f)
	if !ok {
		return Transform{}, false
	}
	dx, dz := offsetOf(f, distance)
	return Transform{
		Origin:   geom.Vec3i{X: anchor.X + dx, Y: anchor.Y - drop, Z: anchor.Z + dz},
		Rotation: rot,
	}, true
}

// RotationOf returns the structure rotation for a facing. Structures are
// authored pointing north.
func RotationOf(f facing.Facing) (int, bool) {
	switch f {
	case facing.North:
		return 0, true
	case facing.West:
		return 90, true
	case facing.South:
		return 180, true
	case facing.East:
		return 270, true
	}
	return 0, false
}

// FacingOf is the inverse of RotationOf for explicit rotations.
func FacingOf(rotation int) facing.Facing {
	switch geom.QuarterTurns(rotation) {
	case 0:
		return facing.North
	case 1:
		return facing.West
	case 2:
		return facing.South
	default:
		return facing.East
	}
}

func offsetOf(f facing.Facing, d int) (dx, dz int) {
	switch f {
	case facing.North:
		return 0, -d
	case facing.South:
		return 0, d
	case facing.East:
		return d, 0
	case facing.West:
		return -d, 0
	}
	return 0, 0
}
