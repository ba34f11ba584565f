package geom

// Rotations turn about the Y axis in quarter turns. One turn is
// counter-clockwise seen from above, so north (-z) lands on west (-x).

// turnRows holds the x row and z row of the rotation matrix per quarter turn.
var turnRows = [4][4]int{
	{1, 0, 0, 1},
	{0, 1, -1, 0},
	{-1, 0, 0, -1},
	{0, -1, 1, 0},
}

// QuarterTurns maps a rotation in degrees onto 0..3. Angles between multiples
// of 90 round down.
func QuarterTurns(degrees int) int {
	q := degrees / 90
	if degrees%90 != 0 && degrees < 0 {
		q--
	}
	return ((q % 4) + 4) % 4
}

// TurnXZ applies q quarter turns to an (x, z) pair. Only q's low two bits count.
func TurnXZ(x, z, q int) (int, int) {
	m := turnRows[q&3]
	return m[0]*x + m[1]*z, m[2]*x + m[3]*z
}

// Turned is v after q quarter turns; Y is unchanged.
func (v Vec3i) Turned(q int) Vec3i {
	v.X, v.Z = TurnXZ(v.X, v.Z, q)
	return v
}
