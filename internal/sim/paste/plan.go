// Package paste writes structures into a world. The geometry lives in Build;
// engines only decide when and how the planned writes reach the world.
package paste

import (
	"github.com/RedstoneFuture/missilewars-sub001/internal/sim/block"
	"github.com/RedstoneFuture/missilewars-sub001/internal/sim/geom"
)

// Source is a restartable stream of structure cells relative to the paste origin.
type Source interface {
	Each(fn func(rel geom.Vec3i, st block.State) bool)
}

type Write struct {
	Pos   geom.Vec3i
	State block.State
}

// Plan is the ordered list of world writes for one paste.
type Plan struct {
	Writes  []Write
	Skipped int // air cells left untouched
	Bounds  geom.Cuboid
}

// Build rotates every cell around the origin by rotation degrees (a multiple
// of 90), translates it and drops air cells so existing terrain survives.
func Build(src Source, origin geom.Vec3i, rotation int) Plan {
	rot := geom.QuarterTurns(rotation)
	var p Plan
	first := true
	src.Each(func(rel geom.Vec3i, st block.State) bool {
		if st.IsAir() {
			p.Skipped++
			return true
		}
		pos := origin.Add(rel.Turned(rot))
		p.Writes = append(p.Writes, Write{Pos: pos, State: st.Rotate(rot)})
		if first {
			p.Bounds = geom.Cuboid{Min: pos, Max: pos}
			first = false
		} else {
			p.Bounds = geom.Cuboid{Min: geom.Span(p.Bounds.Min, pos).Min, Max: geom.Span(p.Bounds.Max, pos).Max}
		}
		return true
	})
	return p
}
