package block

import "strconv"

// Legacy converts a pre-flattening numeric id and data value into a state.
// Unknown ids keep their numbers so they stay distinguishable.
func Legacy(id int, data byte) State {
	data &= 0x0F
	switch id {
	case 0:
		return Air
	case 20:
		return State{Name: Namespace + ":glass"}
	case 102:
		return State{Name: Namespace + ":glass_pane"}
	case 95:
		return State{Name: Namespace + ":" + string(Colors[data]) + "_stained_glass"}
	case 160:
		return State{Name: Namespace + ":" + string(Colors[data]) + "_stained_glass_pane"}
	case 35:
		return State{Name: Namespace + ":" + string(Colors[data]) + "_wool"}
	case 159:
		return State{Name: Namespace + ":" + string(Colors[data]) + "_terracotta"}
	case 29, 33:
		name := "piston"
		if id == 29 {
			name = "sticky_piston"
		}
		return New(name, map[string]string{"facing": pistonFacing(data), "extended": strconv.FormatBool(data&8 != 0)})
	case 34:
		kind := "normal"
		if data&8 != 0 {
			kind = "sticky"
		}
		return New("piston_head", map[string]string{"facing": pistonFacing(data), "type": kind})
	case 218:
		return New("observer", map[string]string{"facing": pistonFacing(data)})
	}
	if name, ok := legacySimple[id]; ok {
		return State{Name: Namespace + ":" + name}
	}
	return New("legacy_"+strconv.Itoa(id), map[string]string{"data": strconv.Itoa(int(data))})
}

func pistonFacing(data byte) string {
	switch data & 7 {
	case 0:
		return "down"
	case 1:
		return "up"
	case 2:
		return "north"
	case 3:
		return "south"
	case 4:
		return "west"
	default:
		return "east"
	}
}

var legacySimple = map[int]string{
	1:   "stone",
	2:   "grass_block",
	3:   "dirt",
	4:   "cobblestone",
	5:   "oak_planks",
	7:   "bedrock",
	12:  "sand",
	13:  "gravel",
	41:  "gold_block",
	42:  "iron_block",
	46:  "tnt",
	49:  "obsidian",
	55:  "redstone_wire",
	57:  "diamond_block",
	84:  "jukebox",
	89:  "glowstone",
	133: "emerald_block",
	152: "redstone_block",
	165: "slime_block",
	173: "coal_block",
}
