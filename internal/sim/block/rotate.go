package block

import "strconv"

var horizontal = [4]string{"north", "west", "south", "east"} // one quarter turn apart

func rotateDir(d string, rot int) string {
	for i, h := range horizontal {
		if h == d {
			return horizontal[(i+rot)&3]
		}
	}
	return d
}

// Rotate turns directional properties by rot quarter turns, matching
// geom.TurnXZ: one quarter turn maps north onto west.
func (s State) Rotate(rot int) State {
	rot &= 3
	if rot == 0 || s.props == "" {
		return s
	}
	in := s.Props()
	out := make(map[string]string, len(in))
	for k, v := range in {
		switch k {
		case "facing", "horizontal_facing":
			out[k] = rotateDir(v, rot)
		case "axis":
			if rot%2 == 1 && (v == "x" || v == "z") {
				if v == "x" {
					v = "z"
				} else {
					v = "x"
				}
			}
			out[k] = v
		case "rotation":
			// Sign/banner rotation: 16 steps clockwise starting at south.
			if n, err := strconv.Atoi(v); err == nil {
				out[k] = strconv.Itoa(((n-4*rot)%16 + 16) % 16)
			} else {
				out[k] = v
			}
		case "north", "east", "south", "west":
			out[rotateDir(k, rot)] = v
		default:
			out[k] = v
		}
	}
	return s.WithProps(out)
}
