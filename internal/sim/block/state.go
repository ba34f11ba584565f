// Package block models namespaced block states ("minecraft:glass_pane[east=true]").
package block

import (
	"fmt"
	"sort"
	"strings"
)

const Namespace = "minecraft"

// State is an immutable block kind plus its properties.
type State struct {
	Name  string
	props string // canonical "k=v,k=v" sorted by key; empty when none
}

var Air = State{Name: Namespace + ":air"}

// New builds a state from a name and a property map.
func New(name string, props map[string]string) State {
	return State{Name: qualify(name), props: encodeProps(props)}
}

// ParseState parses the palette notation used by schematics.
func ParseState(s string) (State, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return State{}, fmt.Errorf("block: empty state")
	}
	name, rest, hasProps := strings.Cut(s, "[")
	if !hasProps {
		return State{Name: qualify(name)}, nil
	}
	if !strings.HasSuffix(rest, "]") {
		return State{}, fmt.Errorf("block: unterminated properties in %q", s)
	}
	rest = strings.TrimSuffix(rest, "]")
	props := map[string]string{}
	if rest != "" {
		for _, kv := range strings.Split(rest, ",") {
			k, v, ok := strings.Cut(kv, "=")
			if !ok || k == "" {
				return State{}, fmt.Errorf("block: bad property %q in %q", kv, s)
			}
			props[strings.TrimSpace(k)] = strings.TrimSpace(v)
		}
	}
	return New(name, props), nil
}

func MustParse(s string) State {
	st, err := ParseState(s)
	if err != nil {
		panic(err)
	}
	return st
}

func (s State) String() string {
	if s.props == "" {
		return s.Name
	}
	return s.Name + "[" + s.props + "]"
}

// Path returns the name without its namespace.
func (s State) Path() string {
	_, p, ok := strings.Cut(s.Name, ":")
	if !ok {
		return s.Name
	}
	return p
}

func (s State) IsAir() bool {
	switch s.Name {
	case "", Namespace + ":air", Namespace + ":cave_air", Namespace + ":void_air":
		return true
	}
	return false
}

// SameKind compares names, ignoring properties.
func (s State) SameKind(o State) bool { return s.Name == o.Name }

func (s State) Props() map[string]string {
	out := map[string]string{}
	if s.props == "" {
		return out
	}
	for _, kv := range strings.Split(s.props, ",") {
		k, v, _ := strings.Cut(kv, "=")
		out[k] = v
	}
	return out
}

func (s State) Prop(key string) (string, bool) {
	v, ok := s.Props()[key]
	return v, ok
}

// WithName swaps the kind and keeps the properties.
func (s State) WithName(name string) State {
	return State{Name: qualify(name), props: s.props}
}

func (s State) WithProps(props map[string]string) State {
	return State{Name: s.Name, props: encodeProps(props)}
}

func qualify(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return ""
	}
	if !strings.Contains(name, ":") {
		return Namespace + ":" + name
	}
	return name
}

func encodeProps(props map[string]string) string {
	if len(props) == 0 {
		return ""
	}
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(props[k])
	}
	return b.String()
}
