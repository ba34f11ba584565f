package blockworld

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/RedstoneFuture/missilewars-sub001/internal/sim/block"
	"github.com/RedstoneFuture/missilewars-sub001/internal/sim/geom"
)

// MemWorld is a chunked in-memory world with a shared block palette.
type MemWorld struct {
	name       string
	minY, maxY int

	loaded atomic.Bool
	writes atomic.Int64

	mu      sync.RWMutex
	palette []block.State
	index   map[block.State]uint16
	chunks  map[ChunkKey]*Chunk
}

func NewMemWorld(name string, minY, maxY int) *MemWorld {
	w := &MemWorld{
		name:    name,
		minY:    minY,
		maxY:    maxY,
		palette: []block.State{block.Air},
		index:   map[block.State]uint16{block.Air: 0},
		chunks:  map[ChunkKey]*Chunk{},
	}
	w.loaded.Store(true)
	return w
}

func (w *MemWorld) Name() string { return w.name }
func (w *MemWorld) Loaded() bool { return w.loaded.Load() }

// Unload makes every later read or write fail with ErrWorldUnloaded.
func (w *MemWorld) Unload() { w.loaded.Store(false) }

// Writes counts successful block changes.
func (w *MemWorld) Writes() int64 { return w.writes.Load() }

func (w *MemWorld) check(p geom.Vec3i) error {
	if !w.loaded.Load() {
		return fmt.Errorf("%s: %w", w.name, ErrWorldUnloaded)
	}
	if p.Y < w.minY || p.Y > w.maxY {
		return fmt.Errorf("%s %v: %w", w.name, p, ErrOutOfBounds)
	}
	return nil
}

func (w *MemWorld) BlockAt(p geom.Vec3i) (block.State, error) {
	if err := w.check(p); err != nil {
		return block.State{}, err
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	c := w.chunks[chunkKeyOf(p)]
	if c == nil {
		return block.Air, nil
	}
	lx, lz := p.X-c.CX*chunkSize, p.Z-c.CZ*chunkSize
	return w.palette[c.Get(lx, p.Y, lz)], nil
}

func (w *MemWorld) SetBlock(p geom.Vec3i, st block.State, physics bool) error {
	if err := w.check(p); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	id, ok := w.index[st]
	if !ok {
		id = uint16(len(w.palette))
		w.palette = append(w.palette, st)
		w.index[st] = id
	}
	k := chunkKeyOf(p)
	c := w.chunks[k]
	if c == nil {
		c = newChunk(k, w.minY)
		w.chunks[k] = c
	}
	lx, lz := p.X-c.CX*chunkSize, p.Z-c.CZ*chunkSize
	if c.Get(lx, p.Y, lz) == id {
		return nil
	}
	c.Set(lx, p.Y, lz, id)
	w.writes.Add(1)
	if physics {
		w.updateNeighboursLocked(p)
	}
	return nil
}

var neighbourOffsets = [6]geom.Vec3i{{X: 1}, {X: -1}, {Y: 1}, {Y: -1}, {Z: 1}, {Z: -1}}

func (w *MemWorld) updateNeighboursLocked(p geom.Vec3i) {
	for _, d := range neighbourOffsets {
		k := chunkKeyOf(p.Add(d))
		if c := w.chunks[k]; c != nil {
			c.Updates++
		}
	}
}

// Updates returns the neighbour updates applied to the chunk containing p.
func (w *MemWorld) Updates(p geom.Vec3i) int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if c := w.chunks[chunkKeyOf(p)]; c != nil {
		return c.Updates
	}
	return 0
}

// Digest hashes every chunk in key order.
func (w *MemWorld) Digest() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	keys := make([]ChunkKey, 0, len(w.chunks))
	for k := range w.chunks {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].CX != keys[j].CX {
			return keys[i].CX < keys[j].CX
		}
		return keys[i].CZ < keys[j].CZ
	})
	h := sha256.New()
	for _, k := range keys {
		d := w.chunks[k].Digest()
		fmt.Fprintf(h, "%d,%d:", k.CX, k.CZ)
		h.Write(d[:])
	}
	return hex.EncodeToString(h.Sum(nil))
}
