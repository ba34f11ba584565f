package facing

import (
	"math"

	"github.com/rs/zerolog"
)

// YawBias aligns the player's look direction with the facing buckets.
const YawBias = 45.0

// Normalize wraps any heading into [0,360).
func Normalize(h float64) float64 {
	if math.IsNaN(h) || math.IsInf(h, 0) {
		return 0
	}
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	return h
}

// HeadingFromYaw turns a raw player yaw into the heading Resolve expects.
func HeadingFromYaw(yaw float64) float64 {
	h := Normalize(yaw) + YawBias
	if h > 360 {
		h -= 360
	}
	return h
}

// Resolver resolves headings against a facing set and reports degraded
// resolutions through its logger.
type Resolver struct {
	log zerolog.Logger
}

func NewResolver(logger zerolog.Logger) *Resolver {
	return &Resolver{log: logger.With().Str("component", "facing").Logger()}
}

// Resolve returns the facing for heading among enabled. It never returns None.
func (r *Resolver) Resolve(heading float64, enabled Set) Facing {
	f, how := resolve(Normalize(heading), enabled)
	return r.report(heading, enabled, f, how)
}

// FromYaw resolves a raw player yaw.
func (r *Resolver) FromYaw(yaw float64, enabled Set) Facing {
	h := HeadingFromYaw(yaw)
	f, how := resolve(h, enabled)
	return r.report(h, enabled, f, how)
}

func (r *Resolver) report(heading float64, enabled Set, f Facing, how outcome) Facing {
	switch how {
	case outcomeEmptySet:
		r.log.Warn().Float64("heading", heading).Msg("no facings enabled; falling back to all facings")
	case outcomeDefaulted:
		r.log.Warn().Float64("heading", heading).Str("enabled", enabled.String()).Str("facing", f.String()).
			Msg("heading matched no facing interval; using default")
	}
	return f
}

// Resolve is the logger-free form of Resolver.Resolve.
func Resolve(heading float64, enabled Set) Facing {
	f, _ := resolve(Normalize(heading), enabled)
	return f
}

// FromYaw is the logger-free form of Resolver.FromYaw.
func FromYaw(yaw float64, enabled Set) Facing {
	f, _ := resolve(HeadingFromYaw(yaw), enabled)
	return f
}

type outcome int

const (
	outcomePrimary outcome = iota
	outcomeSecondary
	outcomeEmptySet
	outcomeDefaulted
)

// resolve scans the interval table for h, which is already in [0,360]. Only
// HeadingFromYaw produces 360.
func resolve(h float64, enabled Set) (Facing, outcome) {
	empty := false
	if enabled.Empty() {
		enabled = All
		empty = true
	}
	candidates := enabled.Facings()

	found, how := None, outcomePrimary
	for _, f := range candidates {
		if table[f].primary.Contains(h) {
			found = f
			break
		}
	}
	if found == None {
		how = outcomeSecondary
	scan:
		for _, f := range candidates {
			for _, iv := range table[f].secondary {
				if iv.Contains(h) {
					found = f
					break scan
				}
			}
		}
	}
	if found == None {
		found, how = fallback(enabled), outcomeDefaulted
	}
	if empty {
		how = outcomeEmptySet
	}
	return found, how
}

func fallback(enabled Set) Facing {
	if enabled.Has(North) {
		return North
	}
	return enabled.Facings()[0]
}
