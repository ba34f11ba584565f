// Package facing maps player headings onto the four cardinal placement
// directions a structure can be pasted in.
package facing

import (
	"fmt"
	"strings"
)

// Facing is a cardinal placement direction. The zero value None means
// "undefined" and never comes out of Resolve.
type Facing uint8

const (
	None Facing = iota
	North
	East
	South
	West
)

// Order is the fixed scan order used by Resolve.
var Order = [4]Facing{North, East, South, West}

func (f Facing) String() string {
	switch f {
	case North:
		return "NORTH"
	case East:
		return "EAST"
	case South:
		return "SOUTH"
	case West:
		return "WEST"
	default:
		return "NONE"
	}
}

func (f Facing) Valid() bool { return f >= North && f <= West }

// Parse accepts facing names case-insensitively.
func Parse(s string) (Facing, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "NORTH", "N":
		return North, nil
	case "EAST", "E":
		return East, nil
	case "SOUTH", "S":
		return South, nil
	case "WEST", "W":
		return West, nil
	}
	return None, fmt.Errorf("unknown facing %q", s)
}

func (f Facing) MarshalText() ([]byte, error) {
	if !f.Valid() {
		return nil, fmt.Errorf("facing: cannot marshal %d", uint8(f))
	}
	return []byte(f.String()), nil
}

func (f *Facing) UnmarshalText(b []byte) error {
	v, err := Parse(string(b))
	if err != nil {
		return err
	}
	*f = v
	return nil
}

// Interval is a closed range of degrees.
type Interval struct {
	Min float64
	Max float64
}

// Contains is inclusive on both ends.
func (i Interval) Contains(v float64) bool { return v >= i.Min && v <= i.Max }

type intervals struct {
	primary   Interval
	secondary []Interval
}

// Headings are measured after the yaw bias of FromYaw: SOUTH covers a player
// looking along +z. Primary buckets tile the circle; secondaries widen a
// facing when its neighbours are disabled.
var table = map[Facing]intervals{
	North: {primary: Interval{180, 270}, secondary: []Interval{{135, 315}}},
	East:  {primary: Interval{270, 360}, secondary: []Interval{{225, 360}, {0, 45}}},
	South: {primary: Interval{0, 90}, secondary: []Interval{{0, 135}, {315, 360}}},
	West:  {primary: Interval{90, 180}, secondary: []Interval{{45, 225}}},
}

// Primary returns the primary heading interval of f.
func (f Facing) Primary() (Interval, bool) {
	iv, ok := table[f]
	return iv.primary, ok
}

// Secondary returns a copy of the fallback intervals of f in match order.
func (f Facing) Secondary() []Interval {
	iv, ok := table[f]
	if !ok {
		return nil
	}
	return append([]Interval(nil), iv.secondary...)
}
