package facing

import (
	"fmt"
	"strings"
)

// Set is a subset of the four facings.
type Set uint8

const All = Set(1<<North | 1<<East | 1<<South | 1<<West)

func SetOf(fs ...Facing) Set {
	var s Set
	for _, f := range fs {
		if f.Valid() {
			s |= 1 << f
		}
	}
	return s
}

func (s Set) Has(f Facing) bool { return f.Valid() && s&(1<<f) != 0 }
func (s Set) Empty() bool      { return s&All == 0 }

// Facings lists the members in scan order.
func (s Set) Facings() []Facing {
	out := make([]Facing, 0, 4)
	for _, f := range Order {
		if s.Has(f) {
			out = append(out, f)
		}
	}
	return out
}

func (s Set) String() string {
	names := make([]string, 0, 4)
	for _, f := range s.Facings() {
		names = append(names, f.String())
	}
	return "[" + strings.Join(names, ",") + "]"
}

// ParseSet parses facing names. An empty list yields an empty set; callers
// decide whether that means "all" (Resolve does).
func ParseSet(names []string) (Set, error) {
	var s Set
	for _, n := range names {
		f, err := Parse(n)
		if err != nil {
			return 0, fmt.Errorf("facing set: %w", err)
		}
		s |= SetOf(f)
	}
	return s, nil
}
