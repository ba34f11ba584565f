package blockworld

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/RedstoneFuture/missilewars-sub001/internal/sim/geom"
)

const chunkSize = 16

type ChunkKey struct {
	CX int
	CZ int
}

func chunkKeyOf(p geom.Vec3i) ChunkKey {
	return ChunkKey{CX: floorDiv(p.X, chunkSize), CZ: floorDiv(p.Z, chunkSize)}
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// Chunk is a 16x16 column of palette ids. Columns grow upward on demand.
type Chunk struct {
	CX, CZ int
	minY   int
	Blocks []uint16 // x fastest, then z, then y

	// Updates counts neighbour updates applied to this chunk.
	Updates int

	dirty bool
	hash  [32]byte
}

func newChunk(k ChunkKey, minY int) *Chunk {
	return &Chunk{CX: k.CX, CZ: k.CZ, minY: minY}
}

func (c *Chunk) index(x, y, z int) int {
	return x + z*chunkSize + (y-c.minY)*chunkSize*chunkSize
}

func (c *Chunk) Get(x, y, z int) uint16 {
	i := c.index(x, y, z)
	if i < 0 || i >= len(c.Blocks) {
		return 0
	}
	return c.Blocks[i]
}

func (c *Chunk) Set(x, y, z int, b uint16) {
	i := c.index(x, y, z)
	if i >= len(c.Blocks) {
		if b == 0 {
			return
		}
		grown := make([]uint16, (y-c.minY+1)*chunkSize*chunkSize)
		copy(grown, c.Blocks)
		c.Blocks = grown
	}
	if c.Blocks[i] == b {
		return
	}
	c.Blocks[i] = b
	c.dirty = true
}

func (c *Chunk) Digest() [32]byte {
	if c.dirty || c.hash == ([32]byte{}) {
		h := sha256.New()
		var tmp [2]byte
		for _, v := range c.Blocks {
			binary.LittleEndian.PutUint16(tmp[:], v)
			h.Write(tmp[:])
		}
		copy(c.hash[:], h.Sum(nil))
		c.dirty = false
	}
	return c.hash
}
