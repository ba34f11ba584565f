package structure

import (
	"fmt"

	"github.com/Tnze/go-mc/nbt"

	"github.com/RedstoneFuture/missilewars-sub001/internal/sim/block"
	"github.com/RedstoneFuture/missilewars-sub001/internal/sim/geom"
)

type mceditFile struct {
	Width     int16  `nbt:"Width"`
	Height    int16  `nbt:"Height"`
	Length    int16  `nbt:"Length"`
	Materials string `nbt:"Materials"`
	Blocks    []byte `nbt:"Blocks"`
	AddBlocks []byte `nbt:"AddBlocks"`
	Data      []byte `nbt:"Data"`
	WEOffsetX int32  `nbt:"WEOffsetX"`
	WEOffsetY int32  `nbt:"WEOffsetY"`
	WEOffsetZ int32  `nbt:"WEOffsetZ"`
}

func decodeMCEdit(name string, raw []byte) (*Structure, error) {
	var f mceditFile
	if err := nbt.Unmarshal(raw, &f); err != nil {
		return nil, err
	}
	if f.Materials != "" && f.Materials != "Alpha" {
		return nil, fmt.Errorf("unsupported materials %q", f.Materials)
	}
	size := geom.V(int(uint16(f.Width)), int(uint16(f.Height)), int(uint16(f.Length)))
	if err := checkVolume(size); err != nil {
		return nil, err
	}
	total := size.X * size.Y * size.Z
	if len(f.Blocks) != total || len(f.Data) != total {
		return nil, fmt.Errorf("blocks/data length %d/%d, want %d", len(f.Blocks), len(f.Data), total)
	}

	// Legacy ids are converted once; the palette keeps the buffer compact.
	var palette []block.State
	index := map[block.State]uint16{}
	cells := make([]uint16, total)
	for i := 0; i < total; i++ {
		id := int(f.Blocks[i])
		if j := i >> 1; j < len(f.AddBlocks) {
			if i&1 == 0 {
				id |= int(f.AddBlocks[j]&0x0F) << 8
			} else {
				id |= int(f.AddBlocks[j]&0xF0) << 4
			}
		}
		st := block.Legacy(id, f.Data[i])
		p, ok := index[st]
		if !ok {
			p = uint16(len(palette))
			palette = append(palette, st)
			index[st] = p
		}
		cells[i] = p
	}

	return New(name, FormatMCEdit, size, geom.V(int(f.WEOffsetX), int(f.WEOffsetY), int(f.WEOffsetZ)), palette, cells)
}
