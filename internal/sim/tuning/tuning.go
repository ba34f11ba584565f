// Package tuning loads missilewars.yaml.
package tuning

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/RedstoneFuture/missilewars-sub001/internal/sim/block"
	"github.com/RedstoneFuture/missilewars-sub001/internal/sim/facing"
	"github.com/RedstoneFuture/missilewars-sub001/internal/sim/filter"
	"github.com/RedstoneFuture/missilewars-sub001/internal/sim/paste"
	"github.com/RedstoneFuture/missilewars-sub001/internal/sim/sentinel"
	"github.com/RedstoneFuture/missilewars-sub001/internal/sim/structure"
)

type Tuning struct {
	TickRateHz        int    `yaml:"tick_rate_hz"`
	Engine            string `yaml:"engine"`
	BlocksPerTick     int    `yaml:"blocks_per_tick"`
	AsyncPaste        bool   `yaml:"async_paste"`
	StructuresDir     string `yaml:"structures_dir"`
	CompatibilityMode string `yaml:"compatibility_mode"`

	World    WorldSpec      `yaml:"world"`
	Sentinel SentinelConfig `yaml:"sentinel"`
	Arenas   []ArenaSpec    `yaml:"arenas"`
	Missiles []MissileSpec  `yaml:"missiles"`
	Teams    []TeamSpec     `yaml:"teams"`
}

type WorldSpec struct {
	MinY int `yaml:"min_y"`
	MaxY int `yaml:"max_y"`
}

type SentinelConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Material    string `yaml:"material"`
	ReplaceWith string `yaml:"replace_with"`
	Radius      int    `yaml:"radius"`
	DelayTicks  int    `yaml:"delay_ticks"`
	Plant       bool   `yaml:"plant"`
}

type ArenaSpec struct {
	Name    string   `yaml:"name"`
	World   string   `yaml:"world"`
	Facings []string `yaml:"facings"` // empty means all four
}

// MissileSpec names a structure file and how it is placed relative to the
// thrower: Down blocks below the anchor and Dist blocks ahead of it.
type MissileSpec struct {
	Name        string `yaml:"name"`
	DisplayName string `yaml:"display_name"`
	Schematic   string `yaml:"schematic"`
	Down        int    `yaml:"down"`
	Dist        int    `yaml:"dist"`
}

type TeamSpec struct {
	Name  string `yaml:"name"`
	Color string `yaml:"color"`
}

// ConfigError reports an invalid setting.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string { return fmt.Sprintf("missilewars.yaml: %s: %v", e.Field, e.Err) }
func (e *ConfigError) Unwrap() error { return e.Err }

func invalid(field, format string, args ...any) error {
	return &ConfigError{Field: field, Err: fmt.Errorf(format, args...)}
}

func Defaults() Tuning {
	return Tuning{
		TickRateHz:        20,
		Engine:            paste.KindSync,
		BlocksPerTick:     4096,
		StructuresDir:     "missiles",
		CompatibilityMode: string(structure.ModeAuto),
		World:             WorldSpec{MinY: -64, MaxY: 319},
		Sentinel: SentinelConfig{
			Enabled:    true,
			Material:   "minecraft:jukebox",
			Radius:     2,
			DelayTicks: 2,
		},
		Teams: []TeamSpec{
			{Name: "red", Color: "§c"},
			{Name: "blue", Color: "§9"},
		},
	}
}

// Load reads path over Defaults. An empty path returns the defaults.
func Load(path string) (Tuning, error) {
	t := Defaults()
	if strings.TrimSpace(path) == "" {
		t.Normalize()
		return t, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("missilewars.yaml: %w", err)
	}
	t.Normalize()
	if err := t.Validate(); err != nil {
		return t, err
	}
	return t, nil
}

// Normalize fills zero values left by a partial file.
func (t *Tuning) Normalize() {
	d := Defaults()
	if t.TickRateHz <= 0 {
		t.TickRateHz = d.TickRateHz
	}
	if strings.TrimSpace(t.Engine) == "" {
		t.Engine = d.Engine
	}
	if t.BlocksPerTick <= 0 {
		t.BlocksPerTick = d.BlocksPerTick
	}
	if strings.TrimSpace(t.CompatibilityMode) == "" {
		t.CompatibilityMode = d.CompatibilityMode
	}
	if t.World.MinY == 0 && t.World.MaxY == 0 {
		t.World = d.World
	}
	if strings.TrimSpace(t.Sentinel.Material) == "" {
		t.Sentinel.Material = d.Sentinel.Material
	}
	if t.Sentinel.DelayTicks <= 0 {
		t.Sentinel.DelayTicks = d.Sentinel.DelayTicks
	}
	for i := range t.Missiles {
		if strings.TrimSpace(t.Missiles[i].DisplayName) == "" {
			t.Missiles[i].DisplayName = t.Missiles[i].Name
		}
	}
}

func (t Tuning) Validate() error {
	if t.TickRateHz <= 0 {
		return invalid("tick_rate_hz", "must be > 0")
	}
	switch strings.ToLower(strings.TrimSpace(t.Engine)) {
	case paste.KindSync, paste.KindBatched:
	default:
		return invalid("engine", "unknown engine %q", t.Engine)
	}
	if t.BlocksPerTick <= 0 {
		return invalid("blocks_per_tick", "must be > 0")
	}
	if _, err := structure.ParseMode(t.CompatibilityMode); err != nil {
		return &ConfigError{Field: "compatibility_mode", Err: err}
	}
	if t.World.MinY >= t.World.MaxY {
		return invalid("world", "min_y must be below max_y")
	}
	if _, err := t.SentinelSpec(); err != nil {
		return err
	}

	arenas := map[string]bool{}
	for i, a := range t.Arenas {
		if strings.TrimSpace(a.Name) == "" {
			return invalid(fmt.Sprintf("arenas[%d].name", i), "must not be empty")
		}
		if arenas[a.Name] {
			return invalid("arenas", "duplicate arena %q", a.Name)
		}
		arenas[a.Name] = true
		if strings.TrimSpace(a.World) == "" {
			return invalid(fmt.Sprintf("arenas[%d].world", i), "must not be empty")
		}
		if _, err := facing.ParseSet(a.Facings); err != nil {
			return &ConfigError{Field: fmt.Sprintf("arenas[%d].facings", i), Err: err}
		}
	}

	missiles := map[string]bool{}
	for i, m := range t.Missiles {
		if strings.TrimSpace(m.Name) == "" || strings.TrimSpace(m.Schematic) == "" {
			return invalid(fmt.Sprintf("missiles[%d]", i), "name and schematic are required")
		}
		if missiles[m.Name] {
			return invalid("missiles", "duplicate missile %q", m.Name)
		}
		missiles[m.Name] = true
		if m.Dist < 0 {
			return invalid(fmt.Sprintf("missiles[%d].dist", i), "must be >= 0")
		}
	}

	teams := map[string]bool{}
	for i, tm := range t.Teams {
		if teams[tm.Name] {
			return invalid("teams", "duplicate team %q", tm.Name)
		}
		teams[tm.Name] = true
		if _, err := filter.NewColorFilter(tm.Color); err != nil {
			return &ConfigError{Field: fmt.Sprintf("teams[%d].color", i), Err: err}
		}
	}
	return nil
}

// MaxSentinelRadius bounds the cleanup cube. Radius 16 already sweeps 33^3
// blocks in one tick.
const MaxSentinelRadius = 16

// SentinelSpec converts the sentinel section. Enabled is not part of the
// spec; callers check it themselves.
func (t Tuning) SentinelSpec() (sentinel.Spec, error) {
	c := t.Sentinel
	if c.Radius < 0 || c.Radius > MaxSentinelRadius {
		return sentinel.Spec{}, invalid("sentinel.radius", "must be between 0 and %d", MaxSentinelRadius)
	}
	mat, err := block.ParseState(c.Material)
	if err != nil {
		return sentinel.Spec{}, &ConfigError{Field: "sentinel.material", Err: err}
	}
	if mat.IsAir() {
		return sentinel.Spec{}, invalid("sentinel.material", "must not be air")
	}
	repl := block.Air
	if strings.TrimSpace(c.ReplaceWith) != "" {
		if repl, err = block.ParseState(c.ReplaceWith); err != nil {
			return sentinel.Spec{}, &ConfigError{Field: "sentinel.replace_with", Err: err}
		}
	}
	if repl.SameKind(mat) {
		return sentinel.Spec{}, invalid("sentinel.replace_with", "must differ from material")
	}
	return sentinel.Spec{
		Material:    mat,
		ReplaceWith: repl,
		Radius:      c.Radius,
		DelayTicks:  c.DelayTicks,
		Plant:       c.Plant,
	}, nil
}

func (t Tuning) Arena(name string) (ArenaSpec, bool) {
	for _, a := range t.Arenas {
		if a.Name == name {
			return a, true
		}
	}
	return ArenaSpec{}, false
}

// FacingSet returns the arena's enabled facing set. Unparseable entries were
// rejected by Validate, so errors here yield the empty set.
func (a ArenaSpec) FacingSet() facing.Set {
	s, err := facing.ParseSet(a.Facings)
	if err != nil {
		return 0
	}
	return s
}

func (t Tuning) Missile(name string) (MissileSpec, bool) {
	for _, m := range t.Missiles {
		if m.Name == name {
			return m, true
		}
	}
	return MissileSpec{}, false
}

// TeamColor returns the color code of a configured team. Names match
// case-insensitively; unknown and empty names report false.
func (t Tuning) TeamColor(name string) (string, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", false
	}
	for _, tm := range t.Teams {
		if strings.EqualFold(tm.Name, name) {
			return tm.Color, true
		}
	}
	return "", false
}

// IsConfigError reports whether err came from an invalid setting.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
