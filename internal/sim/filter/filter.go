// Package filter recolors placeholder glass in a structure to a team color
// while the structure is streamed into the world.
package filter

import (
	"fmt"

	"github.com/RedstoneFuture/missilewars-sub001/internal/sim/block"
	"github.com/RedstoneFuture/missilewars-sub001/internal/sim/geom"
)

// ConfigError reports a team color that has no dye mapping.
type ConfigError struct {
	Code string
	Err  error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("color filter: team color %q: %v", e.Code, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Source is a restartable stream of structure cells.
type Source interface {
	Each(fn func(rel geom.Vec3i, st block.State) bool)
}

// ColorFilter rewrites glass and glass panes to one dye color.
type ColorFilter struct {
	color block.Color
}

// NewColorFilter fails fast on unmapped codes: a wrong default would show the
// wrong team color on the missile.
func NewColorFilter(code string) (*ColorFilter, error) {
	c, err := block.ColorFromCode(code)
	if err != nil {
		return nil, &ConfigError{Code: code, Err: err}
	}
	return &ColorFilter{color: c}, nil
}

func (f *ColorFilter) Color() block.Color { return f.color }

// Apply recolors whitelisted kinds and passes everything else through.
func (f *ColorFilter) Apply(st block.State) block.State {
	if f == nil {
		return st
	}
	kind, ok := glassKind(st.Path())
	if !ok {
		return st
	}
	return st.WithName(block.Namespace + ":" + string(f.color) + "_" + kind)
}

// glassKind reports "stained_glass" or "stained_glass_pane" for the whitelist.
func glassKind(path string) (string, bool) {
	switch path {
	case "glass":
		return "stained_glass", true
	case "glass_pane":
		return "stained_glass_pane", true
	}
	if _, rest, ok := block.ColorOf(path); ok {
		switch rest {
		case "stained_glass", "stained_glass_pane":
			return rest, true
		}
	}
	return "", false
}

// Wrap returns src with f applied to every emitted state. Positions are not
// touched, so the filter composes with any spatial transform.
func Wrap(src Source, f *ColorFilter) Source {
	if f == nil {
		return src
	}
	return filtered{src: src, f: f}
}

type filtered struct {
	src Source
	f   *ColorFilter
}

func (w filtered) Each(fn func(rel geom.Vec3i, st block.State) bool) {
	w.src.Each(func(rel geom.Vec3i, st block.State) bool {
		return fn(rel, w.f.Apply(st))
	})
}
