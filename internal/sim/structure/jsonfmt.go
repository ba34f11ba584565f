package structure

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/RedstoneFuture/missilewars-sub001/internal/sim/block"
	"github.com/RedstoneFuture/missilewars-sub001/internal/sim/geom"
)

//go:embed structure.schema.json
var blueprintSchemaJSON string

var (
	blueprintSchemaOnce sync.Once
	blueprintSchema     *jsonschema.Schema
	blueprintSchemaErr  error
)

func compiledBlueprintSchema() (*jsonschema.Schema, error) {
	blueprintSchemaOnce.Do(func() {
		blueprintSchema, blueprintSchemaErr = jsonschema.CompileString("structure.schema.json", blueprintSchemaJSON)
	})
	return blueprintSchema, blueprintSchemaErr
}

// BlueprintDef is the hand-authored JSON structure format. Positions are
// relative to the paste origin; unlisted cells are air.
type BlueprintDef struct {
	ID      string    `json:"id"`
	Author  string    `json:"author,omitempty"`
	Version string    `json:"version,omitempty"`
	AABB    [2][3]int `json:"aabb,omitempty"`
	Blocks  []BPBlock `json:"blocks"`
}

type BPBlock struct {
	Pos   [3]int `json:"pos"`
	Block string `json:"block"`
}

func decodeJSON(name string, raw []byte) (*Structure, error) {
	schema, err := compiledBlueprintSchema()
	if err != nil {
		return nil, fmt.Errorf("compile blueprint schema: %w", err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	if err := schema.Validate(doc); err != nil {
		return nil, err
	}
	var def BlueprintDef
	if err := json.Unmarshal(raw, &def); err != nil {
		return nil, err
	}
	return FromBlueprint(name, def)
}

// FromBlueprint builds a dense structure from sparse blueprint blocks.
func FromBlueprint(name string, def BlueprintDef) (*Structure, error) {
	if len(def.Blocks) == 0 {
		return nil, fmt.Errorf("blueprint %s: no blocks", def.ID)
	}
	lo, hi := toVec(def.Blocks[0].Pos), toVec(def.Blocks[0].Pos)
	for _, b := range def.Blocks[1:] {
		p := toVec(b.Pos)
		lo = geom.Vec3i{X: min(lo.X, p.X), Y: min(lo.Y, p.Y), Z: min(lo.Z, p.Z)}
		hi = geom.Vec3i{X: max(hi.X, p.X), Y: max(hi.Y, p.Y), Z: max(hi.Z, p.Z)}
	}
	box := geom.Cuboid{Min: lo, Max: hi}
	if err := checkVolume(box.Max.Sub(box.Min).Add(geom.V(1, 1, 1))); err != nil {
		return nil, fmt.Errorf("blueprint %s: %w", def.ID, err)
	}
	if def.AABB != ([2][3]int{}) {
		declared := geom.Span(toVec(def.AABB[0]), toVec(def.AABB[1]))
		if err := checkVolume(declared.Max.Sub(declared.Min).Add(geom.V(1, 1, 1))); err != nil {
			return nil, fmt.Errorf("blueprint %s aabb: %w", def.ID, err)
		}
		if !declared.Contains(box.Min) || !declared.Contains(box.Max) {
			return nil, fmt.Errorf("blueprint %s: blocks exceed declared aabb", def.ID)
		}
		box = declared
	}
	size := box.Max.Sub(box.Min).Add(geom.V(1, 1, 1))

	palette := []block.State{block.Air}
	index := map[block.State]uint16{block.Air: 0}
	cells := make([]uint16, size.X*size.Y*size.Z)
	for _, b := range def.Blocks {
		st, err := block.ParseState(b.Block)
		if err != nil {
			return nil, fmt.Errorf("blueprint %s: %w", def.ID, err)
		}
		id, ok := index[st]
		if !ok {
			id = uint16(len(palette))
			palette = append(palette, st)
			index[st] = id
		}
		p := toVec(b.Pos).Sub(box.Min)
		cells[p.X+p.Z*size.X+p.Y*size.X*size.Z] = id
	}
	return New(name, FormatJSON, size, box.Min, palette, cells)
}

func toVec(p [3]int) geom.Vec3i { return geom.V(p[0], p[1], p[2]) }
