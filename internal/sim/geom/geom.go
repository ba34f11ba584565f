package geom

import "fmt"

// Vec3i is an integer block position.
type Vec3i struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

func V(x, y, z int) Vec3i { return Vec3i{X: x, Y: y, Z: z} }

func (v Vec3i) Add(o Vec3i) Vec3i { return Vec3i{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z} }
func (v Vec3i) Sub(o Vec3i) Vec3i { return Vec3i{X: v.X - o.X, Y: v.Y - o.Y, Z: v.Z - o.Z} }

func (v Vec3i) String() string { return fmt.Sprintf("(%d,%d,%d)", v.X, v.Y, v.Z) }

// Cuboid is an inclusive axis-aligned box.
type Cuboid struct {
	Min Vec3i `json:"min"`
	Max Vec3i `json:"max"`
}

// Around returns the cuboid center±radius on every axis.
func Around(center Vec3i, radius int) Cuboid {
	if radius < 0 {
		radius = 0
	}
	r := Vec3i{X: radius, Y: radius, Z: radius}
	return Cuboid{Min: center.Sub(r), Max: center.Add(r)}
}

// Span builds the cuboid covering both corners regardless of their order.
func Span(a, b Vec3i) Cuboid {
	return Cuboid{
		Min: Vec3i{X: min(a.X, b.X), Y: min(a.Y, b.Y), Z: min(a.Z, b.Z)},
		Max: Vec3i{X: max(a.X, b.X), Y: max(a.Y, b.Y), Z: max(a.Z, b.Z)},
	}
}

func (c Cuboid) Contains(p Vec3i) bool {
	return p.X >= c.Min.X && p.X <= c.Max.X &&
		p.Y >= c.Min.Y && p.Y <= c.Max.Y &&
		p.Z >= c.Min.Z && p.Z <= c.Max.Z
}

func (c Cuboid) Volume() int {
	return (c.Max.X - c.Min.X + 1) * (c.Max.Y - c.Min.Y + 1) * (c.Max.Z - c.Min.Z + 1)
}

// Each visits every position y-major, then z, then x. Returning false stops the walk.
func (c Cuboid) Each(fn func(p Vec3i) bool) {
	for y := c.Min.Y; y <= c.Max.Y; y++ {
		for z := c.Min.Z; z <= c.Max.Z; z++ {
			for x := c.Min.X; x <= c.Max.X; x++ {
				if !fn(Vec3i{X: x, Y: y, Z: z}) {
					return
				}
			}
		}
	}
}
