package allocator

import (
	"math"

	"github.com/cigdist/huoyuan-allocator/internal/allocerr"
	"github.com/cigdist/huoyuan-allocator/internal/config"
	"github.com/cigdist/huoyuan-allocator/internal/constraints"
	"github.com/cigdist/huoyuan-allocator/internal/facade"
	"github.com/nextmv-io/sdk/mip"
)

// built bundles the constructed model with every variable the
// extraction and post-processing steps need to read back. Variables,
// constraints, and the objective are always assembled in that order,
// all before solve.
type built struct {
	model mip.Model
	x     map[string]map[string]mip.Float // product code -> round -> allocation variable
}

// Build constructs the full MILP: decision variables, the linearized
// constraint families gated by cfg.Constraints' enable flags, and the
// weighted objective.
func Build(ds *facade.Dataset, params *constraints.Params, cfg config.Config) (*built, error) {
	if err := checkFixedCellConsistency(ds); err != nil {
		return nil, err
	}

	m := mip.NewModel()
	rounds := ds.Rounds()
	firstRound := ds.FirstRound()
	products := ds.ProductTable()

	x := make(map[string]map[string]mip.Float, len(products))
	for _, p := range products {
		x[p.Code] = make(map[string]mip.Float, len(rounds))
		demand := p.Demand.InexactFloat64()
		supply := p.AvailableSupply.InexactFloat64()
		for _, r := range rounds {
			if fixed, ok := p.Fixed[r]; ok {
				v := fixed.InexactFloat64()
				x[p.Code][r] = m.NewFloat(v, v)
				continue
			}
			upper := demand
			if r == firstRound {
				upper = math.Min(demand, supply)
			}
			if upper < 0 {
				upper = 0
			}
			x[p.Code][r] = m.NewFloat(0, upper)
		}
	}

	b := &built{model: m, x: x}

	// Demand satisfaction is always on, never behind an enable flag.
	buildDemandConstraints(m, ds, x)

	if cfg.Constraints.EnablePrice {
		buildPriceConstraints(m, ds, params, x)
	}
	if cfg.Constraints.EnableVolume {
		buildVolumeConstraints(m, ds, params, x)
	}

	if cfg.Constraints.EnableDemandSplit {
		buildDemandSplitConstraints(m, ds, x)
	}

	if cfg.Constraints.EnablePriceBased {
		buildPricePriorityConstraints(m, ds, cfg.Constraints, x)
	}

	if cfg.Constraints.EnableCType {
		buildCTypeConstraints(m, ds, cfg.Constraints, x)
	}

	buildObjective(m, ds, rounds, cfg, x)

	return b, nil
}

// checkFixedCellConsistency rejects fixed cells whose sum exceeds
// demand, and first-round fixed cells that exceed available supply.
// These are structural errors reported before the model is built, not
// solver-time infeasibilities.
func checkFixedCellConsistency(ds *facade.Dataset) error {
	r1 := ds.FirstRound()
	for _, p := range ds.ProductTable() {
		sum := 0.0
		for _, v := range p.Fixed {
			sum += v.InexactFloat64()
		}
		demand := p.Demand.InexactFloat64()
		if sum > demand+1e-6 {
			return allocerr.NewModelError("Build", "fixed cells for "+p.Code+" exceed demand")
		}
		if v, ok := p.Fixed[r1]; ok && v.InexactFloat64() > p.AvailableSupply.InexactFloat64()+1e-6 {
			return allocerr.NewModelError("Build", "first-round fixed cell for "+p.Code+" exceeds available supply")
		}
	}
	return nil
}

// buildDemandConstraints: every SKU with positive demand must have its
// allocation across rounds sum to exactly that demand.
func buildDemandConstraints(m mip.Model, ds *facade.Dataset, x map[string]map[string]mip.Float) {
	for _, p := range ds.ProductTable() {
		demand := p.Demand.InexactFloat64()
		if demand <= 0 {
			continue
		}
		c := m.NewConstraint(mip.Equal, demand)
		for _, r := range ds.Rounds() {
			c.NewTerm(1, x[p.Code][r])
		}
	}
}

// buildPriceConstraints is the per-round average box price bound,
// linearized as S_r <= priceUpper*V_r and S_r >= priceLower*V_r, folded
// into Sum_p x_{p,r}*(unitBoxPrice[p] - bound) <=/>= 0 so each bound is
// a single constraint with no division introduced.
func buildPriceConstraints(m mip.Model, ds *facade.Dataset, params *constraints.Params, x map[string]map[string]mip.Float) {
	for _, r := range ds.Rounds() {
		rp := params.ByRound[r]
		upper := m.NewConstraint(mip.LessThanOrEqual, 0)
		lower := m.NewConstraint(mip.GreaterThanOrEqual, 0)
		for _, p := range ds.ProductTable() {
			price := p.UnitBoxPrice.InexactFloat64()
			upper.NewTerm(price-rp.PriceUpper, x[p.Code][r])
			lower.NewTerm(price-rp.PriceLower, x[p.Code][r])
		}
	}
}

// buildVolumeConstraints bounds each round's total volume:
// volume_lower(r) <= V_r <= volume_upper(r).
func buildVolumeConstraints(m mip.Model, ds *facade.Dataset, params *constraints.Params, x map[string]map[string]mip.Float) {
	for _, r := range ds.Rounds() {
		rp := params.ByRound[r]
		upper := m.NewConstraint(mip.LessThanOrEqual, rp.VolumeUpper)
		lower := m.NewConstraint(mip.GreaterThanOrEqual, rp.VolumeLower)
		for _, p := range ds.ProductTable() {
			upper.NewTerm(1, x[p.Code][r])
			lower.NewTerm(1, x[p.Code][r])
		}
	}
}

// buildDemandSplitConstraints enforces the demand-band round-usage
// preference. It introduces the ε=0.01 round-usage activation
// indicator for every non-fixed SKU and round, then caps or floors the
// indicator sum per the demand band.
func buildDemandSplitConstraints(m mip.Model, ds *facade.Dataset, x map[string]map[string]mip.Float) {
	for _, p := range ds.ProductTable() {
		if len(p.Fixed) > 0 {
			continue
		}
		demand := p.Demand.InexactFloat64()
		if demand <= 0 {
			continue
		}
		var bandConstraint mip.Constraint
		switch {
		case demand <= 100:
			bandConstraint = m.NewConstraint(mip.LessThanOrEqual, 2)
		case demand > 100 && demand <= 250:
			bandConstraint = m.NewConstraint(mip.GreaterThanOrEqual, 2)
		}
		if bandConstraint == nil {
			continue
		}
		for _, r := range ds.Rounds() {
			b := m.NewBool()
			activeUpper := m.NewConstraint(mip.LessThanOrEqual, 0)
			activeUpper.NewTerm(1, x[p.Code][r])
			activeUpper.NewTerm(-config.BigM, b)
			activeLower := m.NewConstraint(mip.LessThanOrEqual, 0)
			activeLower.NewTerm(config.EpsilonRoundUsage, b)
			activeLower.NewTerm(-1, x[p.Code][r])
			bandConstraint.NewTerm(1, b)
		}
	}
}

// buildPricePriorityConstraints introduces the ε=1.0 "meaningful
// commercial presence" activation indicator per (SKU, round), then
// requires the price-tagged share of active indicators to meet
// price_based_ratio, linearized as
// Sum_p (priceTag(p) - ratio) * y_{p,r} >= 0. When no SKU carries the
// price tag at all the family is skipped outright, since the ratio
// row would otherwise force every indicator to zero.
func buildPricePriorityConstraints(m mip.Model, ds *facade.Dataset, cfg config.Constraints, x map[string]map[string]mip.Float) {
	anyTagged := false
	for _, p := range ds.ProductTable() {
		if p.IsPriceTag {
			anyTagged = true
			break
		}
	}
	if !anyTagged {
		return
	}

	for _, r := range ds.Rounds() {
		ratioConstraint := m.NewConstraint(mip.GreaterThanOrEqual, 0)
		for _, p := range ds.ProductTable() {
			b := m.NewBool()
			activeUpper := m.NewConstraint(mip.LessThanOrEqual, 0)
			activeUpper.NewTerm(1, x[p.Code][r])
			activeUpper.NewTerm(-config.BigM, b)
			activeLower := m.NewConstraint(mip.LessThanOrEqual, 0)
			activeLower.NewTerm(config.EpsilonPricePriority, b)
			activeLower.NewTerm(-1, x[p.Code][r])

			coef := -cfg.PriceBasedRatio
			if p.IsPriceTag {
				coef = 1 - cfg.PriceBasedRatio
			}
			ratioConstraint.NewTerm(coef, b)
		}
	}
}

// buildCTypeConstraints adds the C-type/长/细 ratio-and-absolute caps
// plus the 方-subtype single-round concentration selector.
func buildCTypeConstraints(m mip.Model, ds *facade.Dataset, cfg config.Constraints, x map[string]map[string]mip.Float) {
	for _, r := range ds.Rounds() {
		cTypeRatioC := m.NewConstraint(mip.LessThanOrEqual, 0)
		var cTypeAbs, changAbs, xiAbs mip.Constraint
		if cfg.CTypeVolumeLimit > 0 {
			cTypeAbs = m.NewConstraint(mip.LessThanOrEqual, cfg.CTypeVolumeLimit)
		}
		if cfg.ChangTypeVolumeLimit > 0 {
			changAbs = m.NewConstraint(mip.LessThanOrEqual, cfg.ChangTypeVolumeLimit)
		}
		if cfg.XiTypeVolumeLimit > 0 {
			xiAbs = m.NewConstraint(mip.LessThanOrEqual, cfg.XiTypeVolumeLimit)
		}
		changRatioC := m.NewConstraint(mip.LessThanOrEqual, 0)
		xiRatioC := m.NewConstraint(mip.LessThanOrEqual, 0)

		for _, p := range ds.ProductTable() {
			v := x[p.Code][r]
			isC := 0.0
			if p.IsCType {
				isC = 1.0
			}
			cTypeRatioC.NewTerm(isC-cfg.CTypeRatio, v)
			if p.IsCType && cTypeAbs != nil {
				cTypeAbs.NewTerm(1, v)
			}
			switch p.Subtype {
			case facade.CSubtypeChang:
				changRatioC.NewTerm(1, v)
				if changAbs != nil {
					changAbs.NewTerm(1, v)
				}
			case facade.CSubtypeXi:
				xiRatioC.NewTerm(1, v)
				if xiAbs != nil {
					xiAbs.NewTerm(1, v)
				}
			}
			if p.IsCType {
				changRatioC.NewTerm(-cfg.ChangTypeRatio, v)
				xiRatioC.NewTerm(-cfg.XiTypeRatio, v)
			}
		}
	}

	// 方-subtype single-round concentration: one shared selector per
	// round over the aggregate F_r of every non-fixed 方 SKU. Exactly one
	// z_r is 1, and F_r <= M*z_r zeroes every other round.
	var fang []*facade.Product
	for _, p := range ds.ProductTable() {
		if p.Subtype == facade.CSubtypeFang && len(p.Fixed) == 0 {
			fang = append(fang, p)
		}
	}
	if len(fang) == 0 {
		return
	}
	selector := m.NewConstraint(mip.Equal, 1)
	for _, r := range ds.Rounds() {
		z := m.NewBool()
		selector.NewTerm(1, z)
		coupling := m.NewConstraint(mip.LessThanOrEqual, 0)
		for _, p := range fang {
			coupling.NewTerm(1, x[p.Code][r])
		}
		coupling.NewTerm(-config.BigM, z)
	}
}
