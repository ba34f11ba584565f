package structure

import (
	"encoding/binary"
	"fmt"

	"github.com/Tnze/go-mc/nbt"

	"github.com/RedstoneFuture/missilewars-sub001/internal/sim/block"
	"github.com/RedstoneFuture/missilewars-sub001/internal/sim/geom"
)

// weMetadata is where WorldEdit keeps the clipboard origin.
type weMetadata struct {
	WEOffsetX int32 `nbt:"WEOffsetX"`
	WEOffsetY int32 `nbt:"WEOffsetY"`
	WEOffsetZ int32 `nbt:"WEOffsetZ"`
}

type spongeBlocks struct {
	Palette map[string]int32 `nbt:"Palette"`
	Data    []byte           `nbt:"Data"`
}

// spongeBody covers both version 2 (flat) and version 3 (Blocks container).
type spongeBody struct {
	Version     int32            `nbt:"Version"`
	DataVersion int32            `nbt:"DataVersion"`
	Width       int16            `nbt:"Width"`
	Height      int16            `nbt:"Height"`
	Length      int16            `nbt:"Length"`
	Palette     map[string]int32 `nbt:"Palette"`
	BlockData   []byte           `nbt:"BlockData"`
	Blocks      spongeBlocks     `nbt:"Blocks"`
	Metadata    weMetadata       `nbt:"Metadata"`
}

// spongeV3Root wraps the body under a "Schematic" compound.
type spongeV3Root struct {
	Schematic spongeBody `nbt:"Schematic"`
}

// formatHeader is decoded to tell Sponge and MCEdit files apart.
type formatHeader struct {
	Version   int32  `nbt:"Version"`
	Materials string `nbt:"Materials"`
	Schematic struct {
		Version int32 `nbt:"Version"`
	} `nbt:"Schematic"`
}

func sniffNBT(raw []byte) (Format, error) {
	var p formatHeader
	if err := nbt.Unmarshal(raw, &p); err != nil {
		return "", err
	}
	switch {
	case p.Version > 0 || p.Schematic.Version > 0:
		return FormatSponge, nil
	case p.Materials != "":
		return FormatMCEdit, nil
	}
	return "", ErrUnknownFormat
}

func decodeSponge(name string, raw []byte) (*Structure, error) {
	var body spongeBody
	if err := nbt.Unmarshal(raw, &body); err != nil {
		return nil, err
	}
	if body.Version == 0 {
		var root spongeV3Root
		if err := nbt.Unmarshal(raw, &root); err != nil {
			return nil, err
		}
		body = root.Schematic
	}

	paletteTag, data := body.Palette, body.BlockData
	switch body.Version {
	case 1, 2:
	case 3:
		paletteTag, data = body.Blocks.Palette, body.Blocks.Data
	default:
		return nil, fmt.Errorf("unsupported sponge schematic version %d", body.Version)
	}

	size := geom.V(int(uint16(body.Width)), int(uint16(body.Height)), int(uint16(body.Length)))
	if err := checkVolume(size); err != nil {
		return nil, err
	}
	palette := make([]block.State, len(paletteTag))
	seen := make([]bool, len(paletteTag))
	for key, id := range paletteTag {
		if id < 0 || int(id) >= len(palette) {
			return nil, fmt.Errorf("palette id %d for %q out of range", id, key)
		}
		st, err := block.ParseState(key)
		if err != nil {
			return nil, err
		}
		palette[id] = st
		seen[id] = true
	}
	for id, ok := range seen {
		if !ok {
			return nil, fmt.Errorf("palette id %d unused by any state", id)
		}
	}

	cells := make([]uint16, 0, min(len(data), size.X*size.Y*size.Z))
	for i := 0; i < len(data); {
		v, n := binary.Uvarint(data[i:])
		if n <= 0 {
			return nil, fmt.Errorf("bad varint at %d", i)
		}
		if v > 0xFFFF {
			return nil, fmt.Errorf("palette index too large: %d", v)
		}
		cells = append(cells, uint16(v))
		i += n
	}

	offset := geom.V(int(body.Metadata.WEOffsetX), int(body.Metadata.WEOffsetY), int(body.Metadata.WEOffsetZ))
	s, err := New(name, FormatSponge, size, offset, palette, cells)
	if err != nil {
		return nil, err
	}
	s.DataVersion = int(body.DataVersion)
	return s, nil
}
