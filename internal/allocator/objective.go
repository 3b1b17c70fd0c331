package allocator

import (
	"math"

	"github.com/cigdist/huoyuan-allocator/internal/config"
	"github.com/cigdist/huoyuan-allocator/internal/facade"
	"github.com/nextmv-io/sdk/mip"
)

// perSkuTransitionDemandFloor is the demand threshold above which the
// smooth-transition term gets its per-SKU refinement.
const perSkuTransitionDemandFloor = 30.0

// perSkuTransitionWeightFraction scales the smooth-transition weight
// down for the per-SKU refinement term; the round-level diff weight is
// fixed by configuration but the per-SKU refinement's relative weight
// is an implementation choice and is not configurable.
const perSkuTransitionWeightFraction = 0.1

// balanceSoftPenaltyWeight is the fixed per-adjacent-pair weight on the
// balance-smoothness slack variables (500*(delta+ + delta-) per pair).
const balanceSoftPenaltyWeight = 500.0

// productBalanceShortageWeight and the concentration-slack weights are
// the fixed multipliers in the product-balance objective term.
const (
	productBalanceShortageWeight = 1.5
	concentrationWeight60        = 3.0
	concentrationWeight80        = 5.0
	concentrationWeight90        = 10.0
)

// productBalanceIndicatorDemandFloor gates the dedicated product-balance
// activation indicators; shortagePenaltyDemandFloor gates the
// more-rounds-used shortage penalty built on top of them.
const (
	productBalanceIndicatorDemandFloor = 50.0
	shortagePenaltyDemandFloor         = 100.0
)

// buildObjective assembles the five weighted terms of the minimization
// objective plus the two unconditional-when-enabled penalties
// (demand-priority late rounds, balance soft penalty).
func buildObjective(m mip.Model, ds *facade.Dataset, rounds []string, cfg config.Config, x map[string]map[string]mip.Float) {
	obj := m.Objective()
	obj.SetMinimize()
	w := cfg.Objective

	// Maximize allocation: -w * Sum x_{p,r}.
	for _, p := range ds.ProductTable() {
		for _, r := range rounds {
			obj.NewTerm(-w.MaximizeAllocation, x[p.Code][r])
		}
	}

	// Round balance + round variance share the same per-round totals,
	// so compute V_r as an explicit variable once.
	v := make(map[string]mip.Float, len(rounds))
	for _, r := range rounds {
		vr := m.NewFloat(0, math.Inf(1))
		def := m.NewConstraint(mip.Equal, 0)
		def.NewTerm(1, vr)
		for _, p := range ds.ProductTable() {
			def.NewTerm(-1, x[p.Code][r])
		}
		v[r] = vr
	}

	maxRound := m.NewFloat(0, math.Inf(1))
	minRound := m.NewFloat(0, math.Inf(1))
	for _, r := range rounds {
		upper := m.NewConstraint(mip.LessThanOrEqual, 0)
		upper.NewTerm(1, v[r])
		upper.NewTerm(-1, maxRound)
		lower := m.NewConstraint(mip.GreaterThanOrEqual, 0)
		lower.NewTerm(1, v[r])
		lower.NewTerm(-1, minRound)
	}
	obj.NewTerm(w.RoundBalance, maxRound)
	obj.NewTerm(-w.RoundBalance, minRound)

	meanRound := m.NewFloat(0, math.Inf(1))
	meanDef := m.NewConstraint(mip.Equal, 0)
	meanDef.NewTerm(float64(len(rounds)), meanRound)
	for _, r := range rounds {
		meanDef.NewTerm(-1, v[r])
	}
	for _, r := range rounds {
		ePlus := m.NewFloat(0, math.Inf(1))
		eMinus := m.NewFloat(0, math.Inf(1))
		dev := m.NewConstraint(mip.Equal, 0)
		dev.NewTerm(1, v[r])
		dev.NewTerm(-1, meanRound)
		dev.NewTerm(-1, ePlus)
		dev.NewTerm(1, eMinus)
		obj.NewTerm(w.RoundVariance, ePlus)
		obj.NewTerm(w.RoundVariance, eMinus)
	}

	buildProductBalanceTerm(m, obj, ds, rounds, w.ProductBalance, x)
	buildSmoothTransitionTerm(m, obj, ds, rounds, w.SmoothTransition, x, v)

	if cfg.Constraints.EnableDemandBased {
		buildDemandPriorityPenalty(obj, ds, rounds, x)
	}
	if cfg.Constraints.EnableBalance {
		buildBalanceSoftPenalty(m, obj, rounds, v)
	}
}

// buildProductBalanceTerm is the product-balance objective component:
// per-SKU (pmax-pmin) spread, concentration-threshold slacks, and the
// more-rounds-used shortage penalty for demand>=100 SKUs. The shortage
// penalty carries its own activation indicators at the 0.1 split-round
// threshold, distinct from the demand-split 0.01 round-usage
// indicators.
func buildProductBalanceTerm(m mip.Model, obj mip.Objective, ds *facade.Dataset, rounds []string, weight float64, x map[string]map[string]mip.Float) {
	if len(rounds) < 2 {
		return
	}
	for _, p := range ds.ProductTable() {
		if len(p.Fixed) > 0 {
			continue
		}
		demand := p.Demand.InexactFloat64()
		if demand <= 0 {
			continue
		}

		pmax := m.NewFloat(0, math.Inf(1))
		pmin := m.NewFloat(0, math.Inf(1))
		for _, r := range rounds {
			upper := m.NewConstraint(mip.LessThanOrEqual, 0)
			upper.NewTerm(1, x[p.Code][r])
			upper.NewTerm(-1, pmax)
			lower := m.NewConstraint(mip.GreaterThanOrEqual, 0)
			lower.NewTerm(1, x[p.Code][r])
			lower.NewTerm(-1, pmin)
		}
		obj.NewTerm(weight, pmax)
		obj.NewTerm(-weight, pmin)

		for _, r := range rounds {
			for _, band := range []struct {
				frac   float64
				weight float64
			}{
				{0.6, concentrationWeight60},
				{0.8, concentrationWeight80},
				{0.9, concentrationWeight90},
			} {
				slack := m.NewFloat(0, math.Inf(1))
				c := m.NewConstraint(mip.GreaterThanOrEqual, -band.frac*demand)
				c.NewTerm(1, slack)
				c.NewTerm(-1, x[p.Code][r])
				obj.NewTerm(weight*band.weight, slack)
			}
		}

		if demand >= productBalanceIndicatorDemandFloor {
			var indicators []mip.Bool
			for _, r := range rounds {
				b := m.NewBool()
				indicators = append(indicators, b)
				activeUpper := m.NewConstraint(mip.LessThanOrEqual, 0)
				activeUpper.NewTerm(1, x[p.Code][r])
				activeUpper.NewTerm(-config.BigM, b)
				activeLower := m.NewConstraint(mip.LessThanOrEqual, 0)
				activeLower.NewTerm(config.EpsilonBalanceIndicator, b)
				activeLower.NewTerm(-1, x[p.Code][r])
			}
			if demand >= shortagePenaltyDemandFloor {
				shortage := m.NewFloat(0, math.Inf(1))
				c := m.NewConstraint(mip.GreaterThanOrEqual, 2)
				c.NewTerm(1, shortage)
				for _, b := range indicators {
					c.NewTerm(1, b)
				}
				obj.NewTerm(weight*productBalanceShortageWeight, shortage)
			}
		}
	}
}

// buildSmoothTransitionTerm is the smooth-transition objective
// component: |V_ri - V_r(i+1)| at the round-total level (always),
// refined with a smaller per-SKU |x_{p,ri} - x_{p,r(i+1)}| term for
// SKUs with demand>=30.
func buildSmoothTransitionTerm(m mip.Model, obj mip.Objective, ds *facade.Dataset, rounds []string, weight float64, x map[string]map[string]mip.Float, v map[string]mip.Float) {
	for i := 0; i+1 < len(rounds); i++ {
		r, rNext := rounds[i], rounds[i+1]
		diff := m.NewFloat(0, math.Inf(1))
		up := m.NewConstraint(mip.GreaterThanOrEqual, 0)
		up.NewTerm(1, diff)
		up.NewTerm(-1, v[r])
		up.NewTerm(1, v[rNext])
		down := m.NewConstraint(mip.GreaterThanOrEqual, 0)
		down.NewTerm(1, diff)
		down.NewTerm(1, v[r])
		down.NewTerm(-1, v[rNext])
		obj.NewTerm(weight, diff)

		for _, p := range ds.ProductTable() {
			if p.Demand.InexactFloat64() < perSkuTransitionDemandFloor {
				continue
			}
			pdiff := m.NewFloat(0, math.Inf(1))
			pup := m.NewConstraint(mip.GreaterThanOrEqual, 0)
			pup.NewTerm(1, pdiff)
			pup.NewTerm(-1, x[p.Code][r])
			pup.NewTerm(1, x[p.Code][rNext])
			pdown := m.NewConstraint(mip.GreaterThanOrEqual, 0)
			pdown.NewTerm(1, pdiff)
			pdown.NewTerm(1, x[p.Code][r])
			pdown.NewTerm(-1, x[p.Code][rNext])
			obj.NewTerm(weight*perSkuTransitionWeightFraction, pdiff)
		}
	}
}

// buildDemandPriorityPenalty is the demand-priority soft penalty:
// late-round allocation by demand-tagged SKUs is penalized with weight
// 50*2^(i-3) for round index i>=3 (1-based). The "q_{p,r} = x_{p,r}"
// auxiliary is elided as a pure alias — introducing a separate variable
// fixed equal to x_{p,r} would add no algebra.
func buildDemandPriorityPenalty(obj mip.Objective, ds *facade.Dataset, rounds []string, x map[string]map[string]mip.Float) {
	for i, r := range rounds {
		roundIndex := i + 1
		if roundIndex < 3 {
			continue
		}
		weight := 50.0 * math.Pow(2, float64(roundIndex-3))
		for _, p := range ds.ProductTable() {
			if !p.IsDemandTag {
				continue
			}
			obj.NewTerm(weight, x[p.Code][r])
		}
	}
}

// buildBalanceSoftPenalty is the balance soft penalty: each round's volume
// should stay within [0.8, 1.2] of the next round's, with excursions
// past either edge of the band absorbed by deviation slacks weighted
// at 500 per pair.
func buildBalanceSoftPenalty(m mip.Model, obj mip.Objective, rounds []string, v map[string]mip.Float) {
	for i := 0; i+1 < len(rounds); i++ {
		r, rNext := rounds[i], rounds[i+1]
		dPlus := m.NewFloat(0, math.Inf(1))
		dMinus := m.NewFloat(0, math.Inf(1))
		// V_r - 1.2*V_next <= dPlus
		over := m.NewConstraint(mip.LessThanOrEqual, 0)
		over.NewTerm(1, v[r])
		over.NewTerm(-1.2, v[rNext])
		over.NewTerm(-1, dPlus)
		// V_r - 0.8*V_next >= -dMinus
		under := m.NewConstraint(mip.GreaterThanOrEqual, 0)
		under.NewTerm(1, v[r])
		under.NewTerm(-0.8, v[rNext])
		under.NewTerm(1, dMinus)
		obj.NewTerm(balanceSoftPenaltyWeight, dPlus)
		obj.NewTerm(balanceSoftPenaltyWeight, dMinus)
	}
}
