package constraints

import (
	"fmt"

	"github.com/cigdist/huoyuan-allocator/internal/config"
	"github.com/cigdist/huoyuan-allocator/internal/facade"
)

// Slack tolerances, named once instead of inlined at every comparison
// site.
const (
	slackDemand    = 1e-3
	slackPrice     = 1e-2
	slackVolume    = 1e-3
	slackFixed     = 1e-3
	slackSupplyCap = 1e-3
)

// Family name constants, used both as Report keys and as Violation.Family.
const (
	FamilyDemand         = "demand_satisfaction"
	FamilyPrice          = "round_price"
	FamilyVolume         = "round_volume"
	FamilyFixedCells     = "fixed_cells"
	FamilySupplyCap      = "first_round_supply"
	FamilyDemandSplit    = "demand_split"
	FamilyDemandPriority = "demand_priority"
	FamilyPricePriority  = "price_priority"
	FamilyCType          = "c_type"
	FamilyBalance        = "balance_smoothness"
)

// EvaluateDemand checks demand satisfaction: every SKU with positive
// demand must have its allocation sum to (approximately) its demand.
func EvaluateDemand(ds *facade.Dataset, alloc facade.Allocation) FamilyResult {
	res := ok(FamilyDemand)
	for _, p := range ds.ProductTable() {
		demand := p.Demand.InexactFloat64()
		if demand <= 0 {
			continue
		}
		total := alloc.ProductTotal(p.Code)
		if diff := total - demand; diff > slackDemand || diff < -slackDemand {
			res = res.fail(Violation{
				Family:      FamilyDemand,
				ProductCode: p.Code,
				Detail:      fmt.Sprintf("allocated %.3f, demand %.3f", total, demand),
			})
		}
	}
	return res
}

// EvaluatePrice checks that each round's average box price falls within
// [price_lower, price_upper], linearized as S_r vs V_r in the MILP but
// checked here as the true ratio since this is a re-check, not a model.
func EvaluatePrice(ds *facade.Dataset, params *Params, alloc facade.Allocation) FamilyResult {
	res := ok(FamilyPrice)
	for _, r := range ds.Rounds() {
		v := alloc.RoundTotal(r)
		if v <= 0 {
			continue
		}
		s := 0.0
		for _, p := range ds.ProductTable() {
			s += alloc.Get(p.Code, r) * p.UnitBoxPrice.InexactFloat64()
		}
		avg := s / v
		rp := params.ByRound[r]
		if avg < rp.PriceLower-slackPrice || avg > rp.PriceUpper+slackPrice {
			res = res.fail(Violation{
				Family: FamilyPrice,
				Round:  r,
				Detail: fmt.Sprintf("average box price %.2f outside [%.2f, %.2f]", avg, rp.PriceLower, rp.PriceUpper),
			})
		}
	}
	return res
}

// EvaluateVolume checks that each round's total volume falls within the
// tolerance band around volume_target.
func EvaluateVolume(ds *facade.Dataset, params *Params, alloc facade.Allocation) FamilyResult {
	res := ok(FamilyVolume)
	for _, r := range ds.Rounds() {
		v := alloc.RoundTotal(r)
		rp := params.ByRound[r]
		if v < rp.VolumeLower-slackVolume || v > rp.VolumeUpper+slackVolume {
			res = res.fail(Violation{
				Family: FamilyVolume,
				Round:  r,
				Detail: fmt.Sprintf("round volume %.3f outside [%.3f, %.3f]", v, rp.VolumeLower, rp.VolumeUpper),
			})
		}
	}
	return res
}

// EvaluateFixedCells checks that every pre-existing fixed allocation is
// preserved exactly (within slack) in the candidate.
func EvaluateFixedCells(ds *facade.Dataset, alloc facade.Allocation) FamilyResult {
	res := ok(FamilyFixedCells)
	for _, p := range ds.ProductTable() {
		for r, v := range p.Fixed {
			want := v.InexactFloat64()
			got := alloc.Get(p.Code, r)
			if d := got - want; d > slackFixed || d < -slackFixed {
				res = res.fail(Violation{
					Family:      FamilyFixedCells,
					ProductCode: p.Code,
					Round:       r,
					Detail:      fmt.Sprintf("fixed cell wants %.3f, got %.3f", want, got),
				})
			}
		}
	}
	return res
}

// EvaluateSupplyCap checks that first-round allocation does not exceed
// available_supply.
func EvaluateSupplyCap(ds *facade.Dataset, alloc facade.Allocation) FamilyResult {
	res := ok(FamilySupplyCap)
	r1 := ds.FirstRound()
	for _, p := range ds.ProductTable() {
		supply := p.AvailableSupply.InexactFloat64()
		got := alloc.Get(p.Code, r1)
		if got-supply > slackSupplyCap {
			res = res.fail(Violation{
				Family:      FamilySupplyCap,
				ProductCode: p.Code,
				Round:       r1,
				Detail:      fmt.Sprintf("first-round allocation %.3f exceeds available supply %.3f", got, supply),
			})
		}
	}
	return res
}

// EvaluateDemandSplit checks the demand-band round-usage rule. The
// sub-50 and 50-100 demand bands deliberately share the same hard
// rounds-used<=2 cap; SKUs with demand in (100,250] must use at least
// two rounds, and demand above 250 is unconstrained.
func EvaluateDemandSplit(ds *facade.Dataset, alloc facade.Allocation) FamilyResult {
	res := ok(FamilyDemandSplit)
	for _, p := range ds.ProductTable() {
		if len(p.Fixed) > 0 {
			continue
		}
		d := p.Demand.InexactFloat64()
		used := alloc.RoundsUsed(p.Code)
		switch {
		case d <= 100:
			if used > 2 {
				res = res.fail(Violation{
					Family:      FamilyDemandSplit,
					ProductCode: p.Code,
					Detail:      fmt.Sprintf("demand %.3f <= 100 but used %d rounds (want <=2)", d, used),
				})
			}
		case d > 100 && d <= 250:
			if used < 2 {
				res = res.fail(Violation{
					Family:      FamilyDemandSplit,
					ProductCode: p.Code,
					Detail:      fmt.Sprintf("demand %.3f in (100,250] but used %d rounds (want >=2)", d, used),
				})
			}
		}
	}
	return res
}

// EvaluateDemandPriority checks the hard form of the demand-priority
// rule: demand-tagged SKUs must have their entire allocation land in
// the first two rounds. The MILP encodes the same preference as a soft
// late-round penalty, so a solve can trade it off; validation reports
// any remainder.
func EvaluateDemandPriority(ds *facade.Dataset, alloc facade.Allocation) FamilyResult {
	res := ok(FamilyDemandPriority)
	rounds := ds.Rounds()
	firstTwo := rounds
	if len(rounds) > 2 {
		firstTwo = rounds[:2]
	}
	for _, p := range ds.ProductTable() {
		if !p.IsDemandTag {
			continue
		}
		total := alloc.ProductTotal(p.Code)
		if total <= 0 {
			continue
		}
		early := 0.0
		for _, r := range firstTwo {
			early += alloc.Get(p.Code, r)
		}
		if total-early > slackDemand {
			res = res.fail(Violation{
				Family:      FamilyDemandPriority,
				ProductCode: p.Code,
				Detail:      fmt.Sprintf("%.3f of %.3f allocated outside the first two rounds", total-early, total),
			})
		}
	}
	return res
}

// EvaluatePricePriority checks that, among active SKUs in a round, the
// fraction tagged price-priority must meet the configured ratio.
func EvaluatePricePriority(ds *facade.Dataset, cfg config.Constraints, alloc facade.Allocation) FamilyResult {
	res := ok(FamilyPricePriority)
	for _, r := range ds.Rounds() {
		active, priceTagged := 0, 0
		for _, p := range ds.ProductTable() {
			if alloc.Get(p.Code, r) > 0 {
				active++
				if p.IsPriceTag {
					priceTagged++
				}
			}
		}
		if active == 0 {
			continue
		}
		fraction := float64(priceTagged) / float64(active)
		if fraction < cfg.PriceBasedRatio-1e-9 {
			res = res.fail(Violation{
				Family: FamilyPricePriority,
				Round:  r,
				Detail: fmt.Sprintf("price-priority fraction %.3f below ratio %.3f (%d/%d)", fraction, cfg.PriceBasedRatio, priceTagged, active),
			})
		}
	}
	return res
}

// cTypeTotals accumulates one round's C-type composite sums.
type cTypeTotals struct {
	cType, chang, xi, fang, total float64
}

func computeCTypeTotals(ds *facade.Dataset, round string, alloc facade.Allocation) cTypeTotals {
	var t cTypeTotals
	for _, p := range ds.ProductTable() {
		v := alloc.Get(p.Code, round)
		t.total += v
		if !p.IsCType {
			continue
		}
		t.cType += v
		switch p.Subtype {
		case facade.CSubtypeChang:
			t.chang += v
		case facade.CSubtypeXi:
			t.xi += v
		case facade.CSubtypeFang:
			t.fang += v
		}
	}
	return t
}

// EvaluateCType checks the C-type/长/细 ratio-and-absolute caps, plus
// the 方-subtype single-round concentration rule.
func EvaluateCType(ds *facade.Dataset, cfg config.Constraints, alloc facade.Allocation) FamilyResult {
	res := ok(FamilyCType)
	for _, r := range ds.Rounds() {
		t := computeCTypeTotals(ds, r, alloc)

		if t.cType > cfg.CTypeRatio*t.total+slackVolume {
			res = res.fail(Violation{Family: FamilyCType, Round: r, Detail: fmt.Sprintf("C-type %.3f exceeds ratio cap of total %.3f", t.cType, t.total)})
		}
		if cfg.CTypeVolumeLimit > 0 && t.cType > cfg.CTypeVolumeLimit+slackVolume {
			res = res.fail(Violation{Family: FamilyCType, Round: r, Detail: fmt.Sprintf("C-type %.3f exceeds absolute cap %.3f", t.cType, cfg.CTypeVolumeLimit)})
		}
		if t.chang > cfg.ChangTypeRatio*t.cType+slackVolume {
			res = res.fail(Violation{Family: FamilyCType, Round: r, Detail: fmt.Sprintf("长-subtype %.3f exceeds ratio cap of C-type %.3f", t.chang, t.cType)})
		}
		if cfg.ChangTypeVolumeLimit > 0 && t.chang > cfg.ChangTypeVolumeLimit+slackVolume {
			res = res.fail(Violation{Family: FamilyCType, Round: r, Detail: fmt.Sprintf("长-subtype %.3f exceeds absolute cap %.3f", t.chang, cfg.ChangTypeVolumeLimit)})
		}
		if t.xi > cfg.XiTypeRatio*t.cType+slackVolume {
			res = res.fail(Violation{Family: FamilyCType, Round: r, Detail: fmt.Sprintf("细-subtype %.3f exceeds ratio cap of C-type %.3f", t.xi, t.cType)})
		}
		if cfg.XiTypeVolumeLimit > 0 && t.xi > cfg.XiTypeVolumeLimit+slackVolume {
			res = res.fail(Violation{Family: FamilyCType, Round: r, Detail: fmt.Sprintf("细-subtype %.3f exceeds absolute cap %.3f", t.xi, cfg.XiTypeVolumeLimit)})
		}
	}

	for _, p := range ds.ProductTable() {
		if p.Subtype != facade.CSubtypeFang || len(p.Fixed) > 0 {
			continue
		}
		if used := alloc.RoundsUsed(p.Code); used > 1 {
			res = res.fail(Violation{
				Family:      FamilyCType,
				ProductCode: p.Code,
				Detail:      fmt.Sprintf("方-subtype SKU spread across %d rounds, must concentrate in one", used),
			})
		}
	}
	return res
}

// EvaluateBalance checks the soft balance rule: consecutive round
// volumes should stay within a 0.8x-1.2x band of each other.
// Violations here are reported for visibility, not as hard failures
// the caller must fix.
func EvaluateBalance(ds *facade.Dataset, alloc facade.Allocation) FamilyResult {
	res := ok(FamilyBalance)
	rounds := ds.Rounds()
	for i := 0; i+1 < len(rounds); i++ {
		vi := alloc.RoundTotal(rounds[i])
		vNext := alloc.RoundTotal(rounds[i+1])
		if vNext <= 0 {
			continue
		}
		lower, upper := 0.8*vNext, 1.2*vNext
		if vi < lower || vi > upper {
			res = res.fail(Violation{
				Family: FamilyBalance,
				Round:  rounds[i],
				Detail: fmt.Sprintf("round volume %.3f outside [%.3f, %.3f] of next round %.3f", vi, lower, upper, vNext),
			})
		}
	}
	return res
}
