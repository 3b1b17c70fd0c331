// Package constraints is the Constraint Manager. It owns two
// responsibilities: merging table defaults with configuration
// overrides into a concrete per-round parameter view (this file), and
// validating a candidate allocation against every enabled constraint
// family (validators.go, aggregate.go).
//
// The bounds resolution follows a table→override fallback chain: a
// round's price and volume bounds come from the round-constraint table
// unless the configuration supplies an explicit override.
package constraints

import (
	"github.com/cigdist/huoyuan-allocator/internal/config"
	"github.com/cigdist/huoyuan-allocator/internal/facade"
)

// RoundParams is the merged, ready-to-use per-round parameter record:
// table defaults with configuration overrides composed on top, plus the
// tolerance-derived volume bounds.
type RoundParams struct {
	PriceUpper   float64
	PriceLower   float64
	VolumeTarget float64
	VolumeUpper  float64
	VolumeLower  float64
}

// Params is the merged view across every round, keyed by round label.
type Params struct {
	Rounds []string
	ByRound map[string]RoundParams
}

// MergeParameters is the single deterministic entrypoint from (table,
// configuration) to merged per-round parameters. There is exactly one
// path here — no secondary partial-update variant exists anywhere in
// this package.
func MergeParameters(ds *facade.Dataset, cfg config.Constraints) (*Params, error) {
	rounds := ds.Rounds()
	tolerance := cfg.VolumeTolerance

	out := &Params{Rounds: rounds, ByRound: make(map[string]RoundParams, len(rounds))}
	for _, r := range rounds {
		table, _ := ds.RoundConstraint(r)

		priceUpper := table.PriceUpper.InexactFloat64()
		if v, ok := cfg.PriceUpperLimits[r]; ok {
			priceUpper = v
		}
		priceLower := table.PriceLower.InexactFloat64()
		if v, ok := cfg.PriceLowerLimits[r]; ok {
			priceLower = v
		}
		volumeTarget := table.VolumeTarget.InexactFloat64()
		if v, ok := cfg.VolumeLimits[r]; ok {
			volumeTarget = v
		}

		out.ByRound[r] = RoundParams{
			PriceUpper:   priceUpper,
			PriceLower:   priceLower,
			VolumeTarget: volumeTarget,
			VolumeUpper:  volumeTarget * (1 + tolerance),
			VolumeLower:  volumeTarget * (1 - tolerance),
		}
	}
	return out, nil
}
