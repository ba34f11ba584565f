// Package structure loads prefabricated block structures (schematics) into
// immutable, reusable buffers.
package structure

import (
	"fmt"

	"github.com/RedstoneFuture/missilewars-sub001/internal/sim/block"
	"github.com/RedstoneFuture/missilewars-sub001/internal/sim/geom"
)

type Format string

const (
	FormatSponge Format = "sponge" // .schem, versions 2 and 3
	FormatMCEdit Format = "mcedit" // legacy .schematic
	FormatJSON   Format = "json"   // blueprint json
)

// Structure is a dense 3-D block buffer. It is never mutated after load and
// is shared by every paste of the same file.
type Structure struct {
	Name        string
	Format      Format
	DataVersion int

	size    geom.Vec3i
	offset  geom.Vec3i
	palette []block.State
	cells   []uint16 // x fastest, then z, then y
}

// MaxCells bounds the volume of a loaded structure. Missiles are a few
// thousand blocks; the cap only stops hostile headers from sizing buffers.
const MaxCells = 1 << 22

// checkVolume rejects empty sizes and volumes above MaxCells without
// overflowing on huge dimensions.
func checkVolume(size geom.Vec3i) error {
	if size.X <= 0 || size.Y <= 0 || size.Z <= 0 {
		return fmt.Errorf("invalid size %v", size)
	}
	v := 1
	for _, d := range [3]int{size.X, size.Y, size.Z} {
		if d > MaxCells {
			return fmt.Errorf("size %v: %w", size, ErrTooLarge)
		}
		v *= d
		if v > MaxCells {
			return fmt.Errorf("size %v: %w", size, ErrTooLarge)
		}
	}
	return nil
}

// New validates and wraps a decoded buffer. offset is the position of cell
// (0,0,0) relative to the paste origin.
func New(name string, format Format, size, offset geom.Vec3i, palette []block.State, cells []uint16) (*Structure, error) {
	if err := checkVolume(size); err != nil {
		return nil, fmt.Errorf("structure %s: %w", name, err)
	}
	if want := size.X * size.Y * size.Z; len(cells) != want {
		return nil, fmt.Errorf("structure %s: %d cells, want %d", name, len(cells), want)
	}
	for i, c := range cells {
		if int(c) >= len(palette) {
			return nil, fmt.Errorf("structure %s: cell %d references palette id %d of %d", name, i, c, len(palette))
		}
	}
	return &Structure{
		Name:    name,
		Format:  format,
		size:    size,
		offset:  offset,
		palette: append([]block.State(nil), palette...),
		cells:   cells,
	}, nil
}

func (s *Structure) Size() geom.Vec3i   { return s.size }
func (s *Structure) Offset() geom.Vec3i { return s.offset }

// Region is the bounding box relative to the paste origin.
func (s *Structure) Region() geom.Cuboid {
	return geom.Cuboid{Min: s.offset, Max: s.offset.Add(s.size).Sub(geom.V(1, 1, 1))}
}

func (s *Structure) Palette() []block.State {
	return append([]block.State(nil), s.palette...)
}

func (s *Structure) index(x, y, z int) int { return x + z*s.size.X + y*s.size.X*s.size.Z }

// At returns the state at a position relative to the paste origin.
func (s *Structure) At(rel geom.Vec3i) (block.State, bool) {
	p := rel.Sub(s.offset)
	if p.X < 0 || p.Y < 0 || p.Z < 0 || p.X >= s.size.X || p.Y >= s.size.Y || p.Z >= s.size.Z {
		return block.State{}, false
	}
	return s.palette[s.cells[s.index(p.X, p.Y, p.Z)]], true
}

// Each yields every cell, air included, with its position relative to the
// paste origin. Each may be called any number of times.
func (s *Structure) Each(fn func(rel geom.Vec3i, st block.State) bool) {
	i := 0
	for y := 0; y < s.size.Y; y++ {
		for z := 0; z < s.size.Z; z++ {
			for x := 0; x < s.size.X; x++ {
				rel := geom.Vec3i{X: x + s.offset.X, Y: y + s.offset.Y, Z: z + s.offset.Z}
				if !fn(rel, s.palette[s.cells[i]]) {
					return
				}
				i++
			}
		}
	}
}

// Solid counts non-air cells.
func (s *Structure) Solid() int {
	n := 0
	for _, c := range s.cells {
		if !s.palette[c].IsAir() {
			n++
		}
	}
	return n
}

// Count returns how many cells hold a state of the given kind.
func (s *Structure) Count(kind block.State) int {
	n := 0
	for _, c := range s.cells {
		if s.palette[c].SameKind(kind) {
			n++
		}
	}
	return n
}
