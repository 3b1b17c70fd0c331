// Package config defines the allocation configuration record and its
// defaults: a plain struct populated by a GetDefault*-style factory,
// with every magic number named and documented instead of scattered
// through the model-building code.
package config

// ObjectiveWeights holds the five weighted terms that compose the
// MILP's minimization objective.
type ObjectiveWeights struct {
	MaximizeAllocation float64 `yaml:"maximize_allocation_weight"` // default 1000
	RoundBalance       float64 `yaml:"round_balance_weight"`       // default 800
	RoundVariance      float64 `yaml:"round_variance_weight"`      // default 400
	ProductBalance     float64 `yaml:"product_balance_weight"`     // default 100
	SmoothTransition   float64 `yaml:"smooth_transition_weight"`   // default 300
}

// DefaultObjectiveWeights returns the standard weighting scheme.
func DefaultObjectiveWeights() ObjectiveWeights {
	return ObjectiveWeights{
		MaximizeAllocation: 1000.0,
		RoundBalance:       800.0,
		RoundVariance:      400.0,
		ProductBalance:     100.0,
		SmoothTransition:   300.0,
	}
}

// Constraints holds every toggle and tunable ratio/cap governing the
// constraint families the allocator builds. Demand satisfaction, fixed
// cells, and the first-round supply cap have no enable flag here —
// they are always on and never skippable, so there is nothing for a
// flag to gate.
type Constraints struct {
	EnableVolume      bool `yaml:"enable_volume"`
	EnablePrice       bool `yaml:"enable_price"`
	EnableCType       bool `yaml:"enable_c_type"`
	EnableBalance     bool `yaml:"enable_balance"`
	EnableDemandSplit bool `yaml:"enable_demand_split"`
	EnableDemandBased bool `yaml:"enable_demand_based"`
	EnablePriceBased  bool `yaml:"enable_price_based"`

	VolumeTolerance float64 `yaml:"volume_tolerance"` // default 0.005, symmetric fraction around volume_target

	// Overrides. Nil means "fall back to the round-constraint table."
	PriceUpperLimits map[string]float64 `yaml:"price_upper_limits"`
	PriceLowerLimits map[string]float64 `yaml:"price_lower_limits"`
	VolumeLimits     map[string]float64 `yaml:"volume_limits"`

	PriceBasedRatio float64 `yaml:"price_based_ratio"` // default 0.30

	CTypeRatio       float64 `yaml:"c_type_ratio"`        // default 0.40
	CTypeVolumeLimit float64 `yaml:"c_type_volume_limit"` // default 4900, 0 means "no cap"

	ChangTypeRatio       float64 `yaml:"chang_type_ratio"`        // default 0.20
	ChangTypeVolumeLimit float64 `yaml:"chang_type_volume_limit"` // default 1000
	XiTypeRatio          float64 `yaml:"xi_type_ratio"`           // default 0.60
	XiTypeVolumeLimit    float64 `yaml:"xi_type_volume_limit"`    // default 3000
}

// DefaultConstraints returns the standard defaults used when no
// operator override is supplied.
func DefaultConstraints() Constraints {
	return Constraints{
		EnableVolume:      true,
		EnablePrice:       true,
		EnableCType:       true,
		EnableBalance:     true,
		EnableDemandSplit: true,
		EnableDemandBased: true,
		EnablePriceBased:  true,

		VolumeTolerance: 0.005,

		PriceBasedRatio: 0.30,

		CTypeRatio:       0.40,
		CTypeVolumeLimit: 4900,

		ChangTypeRatio:       0.20,
		ChangTypeVolumeLimit: 1000,
		XiTypeRatio:          0.60,
		XiTypeVolumeLimit:    3000,
	}
}

// SolveOptions bounds the MILP solver invocation.
type SolveOptions struct {
	TimeLimitSeconds float64 `yaml:"solve_time_limit"` // default 300
}

// DefaultSolveOptions returns the standard solver time budget.
func DefaultSolveOptions() SolveOptions {
	return SolveOptions{TimeLimitSeconds: 300}
}

// Config bundles everything the constraint manager and MILP allocator
// need for a single solve.
type Config struct {
	Constraints Constraints      `yaml:"constraints"`
	Objective   ObjectiveWeights `yaml:"objective"`
	Solve       SolveOptions     `yaml:",inline"`
}

// Default returns a fully populated Config using every default above.
func Default() Config {
	return Config{
		Constraints: DefaultConstraints(),
		Objective:   DefaultObjectiveWeights(),
		Solve:       DefaultSolveOptions(),
	}
}

// Numeric tuning constants that recur across the allocator and are
// worth naming once rather than inlining. These are not part of the
// configuration record — they are modeling conventions, not business
// policy — but follow the same "name every magic number" discipline.
const (
	// BigM bounds the activation-indicator couplings (x <= M*y). 10^6
	// boxes safely dominates any realistic per-SKU allocation.
	BigM = 1_000_000.0

	// EpsilonPricePriority is the "meaningful commercial presence"
	// threshold used in the price-priority activation indicator.
	EpsilonPricePriority = 1.0

	// EpsilonRoundUsage is the "any positive activation" threshold used
	// when counting rounds-used for the demand-split bands.
	EpsilonRoundUsage = 0.01

	// EpsilonBalanceIndicator is the "split-round threshold" used by the
	// product-balance activation indicators.
	EpsilonBalanceIndicator = 0.1

	// SmallAllocationThreshold is the post-processing coalescing
	// threshold.
	SmallAllocationThreshold = 0.1

	// TinyDemandResidueThreshold is the post-processing absorption
	// threshold.
	TinyDemandResidueThreshold = 0.01
)
