package block

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseState_RoundTripsCanonicalForm(t *testing.T) {
	st, err := ParseState("glass_pane[west=true,east=false]")
	require.NoError(t, err)
	assert.Equal(t, "minecraft:glass_pane", st.Name)
	assert.Equal(t, "minecraft:glass_pane[east=false,west=true]", st.String())
	v, ok := st.Prop("west")
	assert.True(t, ok)
	assert.Equal(t, "true", v)

	_, err = ParseState("minecraft:stone[facing")
	require.Error(t, err)
	_, err = ParseState("")
	require.Error(t, err)
}

func TestState_IsAir(t *testing.T) {
	assert.True(t, Air.IsAir())
	assert.True(t, MustParse("cave_air").IsAir())
	assert.False(t, MustParse("glass").IsAir())
}

func TestColorFromCode(t *testing.T) {
	for code, want := range map[string]Color{
		"§c": Red, "&9": LightBlue, "a": Lime, "light_gray": LightGray, " &F ": White,
	} {
		got, err := ColorFromCode(code)
		require.NoErrorf(t, err, "code %q", code)
		assert.Equalf(t, want, got, "code %q", code)
	}
	_, err := ColorFromCode("&z")
	require.Error(t, err)
	_, err = ColorFromCode("")
	require.Error(t, err)
}

func TestColorOf_PrefersTwoWordColors(t *testing.T) {
	col, rest, ok := ColorOf("light_blue_stained_glass")
	require.True(t, ok)
	assert.Equal(t, LightBlue, col)
	assert.Equal(t, "stained_glass", rest)

	_, _, ok = ColorOf("glass_pane")
	assert.False(t, ok)
}

func TestRotate_DirectionalProperties(t *testing.T) {
	piston := MustParse("piston[facing=north,extended=false]")
	assert.Equal(t, "west", mustProp(t, piston.Rotate(1), "facing"))
	assert.Equal(t, "south", mustProp(t, piston.Rotate(2), "facing"))
	assert.Equal(t, "east", mustProp(t, piston.Rotate(3), "facing"))
	assert.Equal(t, "up", mustProp(t, MustParse("observer[facing=up]").Rotate(1), "facing"))

	pane := MustParse("glass_pane[north=true,east=false,south=false,west=false]")
	r := pane.Rotate(1)
	assert.Equal(t, "true", mustProp(t, r, "west"))
	assert.Equal(t, "false", mustProp(t, r, "north"))

	assert.Equal(t, "z", mustProp(t, MustParse("oak_log[axis=x]").Rotate(1), "axis"))
	assert.Equal(t, "y", mustProp(t, MustParse("oak_log[axis=y]").Rotate(1), "axis"))
	assert.Equal(t, "12", mustProp(t, MustParse("oak_sign[rotation=0]").Rotate(1), "rotation"))
	assert.Equal(t, piston, piston.Rotate(4))
}

func TestLegacy(t *testing.T) {
	assert.Equal(t, Air, Legacy(0, 0))
	assert.Equal(t, "minecraft:red_stained_glass_pane", Legacy(160, 14).String())
	assert.Equal(t, "minecraft:white_stained_glass", Legacy(95, 0).String())
	assert.Equal(t, "minecraft:sticky_piston[extended=false,facing=south]", Legacy(29, 3).String())
	assert.Equal(t, "minecraft:slime_block", Legacy(165, 0).String())
	assert.Equal(t, "minecraft:legacy_250[data=2]", Legacy(250, 2).String())
}

func mustProp(t *testing.T, s State, key string) string {
	t.Helper()
	v, ok := s.Prop(key)
	require.Truef(t, ok, "%s has no %s", s, key)
	return v
}
