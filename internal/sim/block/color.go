package block

import (
	"fmt"
	"strings"
)

// Color is one of the sixteen dye colors.
type Color string

const (
	White     Color = "white"
	Orange    Color = "orange"
	Magenta   Color = "magenta"
	LightBlue Color = "light_blue"
	Yellow    Color = "yellow"
	Lime      Color = "lime"
	Pink      Color = "pink"
	Gray      Color = "gray"
	LightGray Color = "light_gray"
	Cyan      Color = "cyan"
	Purple    Color = "purple"
	Blue      Color = "blue"
	Brown     Color = "brown"
	Green     Color = "green"
	Red       Color = "red"
	Black     Color = "black"
)

// Colors is ordered by legacy data value.
var Colors = [16]Color{
	White, Orange, Magenta, LightBlue, Yellow, Lime, Pink, Gray,
	LightGray, Cyan, Purple, Blue, Brown, Green, Red, Black,
}

// chat formatting code -> dye
var chatCodes = map[byte]Color{
	'0': Black,
	'1': Blue,
	'2': Green,
	'3': Cyan,
	'4': Red,
	'5': Purple,
	'6': Orange,
	'7': LightGray,
	'8': Gray,
	'9': LightBlue,
	'a': Lime,
	'b': LightBlue,
	'c': Red,
	'd': Pink,
	'e': Yellow,
	'f': White,
}

// ColorFromCode maps a team color code to a dye. Accepted forms are "§c",
// "&c", "c" and dye names such as "light_blue".
func ColorFromCode(code string) (Color, error) {
	c := strings.ToLower(strings.TrimSpace(code))
	c = strings.TrimPrefix(c, "§")
	c = strings.TrimPrefix(c, "&")
	if len(c) == 1 {
		if col, ok := chatCodes[c[0]]; ok {
			return col, nil
		}
	}
	for _, col := range Colors {
		if string(col) == c {
			return col, nil
		}
	}
	return "", fmt.Errorf("unknown team color code %q", code)
}

// ColorOf extracts the dye prefix of a colored block path such as
// "red_stained_glass".
func ColorOf(path string) (Color, string, bool) {
	// Check two-word colors first so "light_blue_x" does not match "blue".
	for _, col := range []Color{LightBlue, LightGray} {
		if rest, ok := strings.CutPrefix(path, string(col)+"_"); ok {
			return col, rest, true
		}
	}
	for _, col := range Colors {
		if rest, ok := strings.CutPrefix(path, string(col)+"_"); ok {
			return col, rest, true
		}
	}
	return "", path, false
}
