package missile

import (
	"errors"
	"fmt"

	"github.com/RedstoneFuture/missilewars-sub001/internal/sim/facing"
	"github.com/RedstoneFuture/missilewars-sub001/internal/sim/geom"
)

// Request is one structure placement. Rotation, when set, overrides Facing;
// the horizontal offset then follows the facing the rotation points to.
type Request struct {
	Structure   string // library handle, e.g. "tomahawk.schem"
	DisplayName string
	World       string
	Anchor      geom.Vec3i
	Facing      facing.Facing
	Rotation    *int
	Drop        int
	Distance    int
	Color       string // team color code; empty pastes the structure uncolored
	Arena       string
	PlayerID    string
}

func (r Request) name() string {
	if r.DisplayName != "" {
		return r.DisplayName
	}
	return r.Structure
}

// ThrowRequest is a player launching a configured missile while looking at Yaw.
type ThrowRequest struct {
	Arena    string
	Missile  string
	Team     string
	PlayerID string
	Anchor   geom.Vec3i
	Yaw      float64
}

var ErrShutdown = errors.New("missile service is shut down")

// PlaceError rejects a request before anything is written. Code is one of
// the protocol error codes.
type PlaceError struct {
	Code string
	Err  error
}

func (e *PlaceError) Error() string { return fmt.Sprintf("%s: %v", e.Code, e.Err) }
func (e *PlaceError) Unwrap() error { return e.Err }

// CodeOf returns the protocol code carried by err, or "" if none.
func CodeOf(err error) string {
	var pe *PlaceError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ""
}
