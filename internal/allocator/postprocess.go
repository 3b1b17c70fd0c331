package allocator

import (
	"github.com/cigdist/huoyuan-allocator/internal/config"
	"github.com/cigdist/huoyuan-allocator/internal/facade"
)

// Adjustment records one cell mutation made by a post-processing pass,
// for logging and for audit of small-allocation coalescing.
type Adjustment struct {
	Pass        string
	ProductCode string
	Round       string
	Before      float64
	After       float64
}

// toleranceScale scales the two post-processing thresholds relative to
// the default 0.005 volume tolerance, so a tighter configured tolerance
// tightens the post-processing thresholds symmetrically.
func toleranceScale(volumeTolerance float64) float64 {
	const reference = 0.005
	if volumeTolerance <= 0 {
		return 1
	}
	return volumeTolerance / reference
}

// PostProcess applies, in order, the small-allocation coalescing pass
// and the tiny unmet-demand absorption pass, mutating alloc in place
// and returning every cell change made.
func PostProcess(ds *facade.Dataset, alloc facade.Allocation, volumeTolerance float64) []Adjustment {
	scale := toleranceScale(volumeTolerance)
	smallThreshold := config.SmallAllocationThreshold * scale
	tinyThreshold := config.TinyDemandResidueThreshold * scale

	var adjustments []Adjustment
	adjustments = append(adjustments, coalesceSmallAllocations(ds, alloc, smallThreshold)...)
	adjustments = append(adjustments, absorbTinyUnmetDemand(ds, alloc, tinyThreshold)...)
	return adjustments
}

func coalesceSmallAllocations(ds *facade.Dataset, alloc facade.Allocation, threshold float64) []Adjustment {
	var adjustments []Adjustment
	rounds := ds.Rounds()

	for _, p := range ds.ProductTable() {
		row, ok := alloc[p.Code]
		if !ok {
			continue
		}

		var subRounds []string
		subSum := 0.0
		bestSuperRound := ""
		bestSuperValue := -1.0
		for _, r := range rounds {
			v := row[r]
			if v <= 0 {
				continue
			}
			if v >= threshold {
				if v > bestSuperValue {
					bestSuperValue = v
					bestSuperRound = r
				}
			} else {
				subRounds = append(subRounds, r)
				subSum += v
			}
		}
		if len(subRounds) == 0 {
			continue
		}

		if bestSuperRound != "" {
			for _, r := range subRounds {
				before := row[r]
				row[r] = 0
				adjustments = append(adjustments, Adjustment{Pass: "coalesce", ProductCode: p.Code, Round: r, Before: before, After: 0})
			}
			before := row[bestSuperRound]
			row[bestSuperRound] = before + subSum
			adjustments = append(adjustments, Adjustment{Pass: "coalesce", ProductCode: p.Code, Round: bestSuperRound, Before: before, After: row[bestSuperRound]})
			continue
		}

		target := subRounds[0]
		if subSum >= threshold {
			for _, r := range subRounds[1:] {
				before := row[r]
				row[r] = 0
				adjustments = append(adjustments, Adjustment{Pass: "coalesce", ProductCode: p.Code, Round: r, Before: before, After: 0})
			}
			before := row[target]
			row[target] = subSum
			adjustments = append(adjustments, Adjustment{Pass: "coalesce", ProductCode: p.Code, Round: target, Before: before, After: row[target]})
		} else {
			for _, r := range subRounds {
				before := row[r]
				row[r] = 0
				adjustments = append(adjustments, Adjustment{Pass: "coalesce", ProductCode: p.Code, Round: r, Before: before, After: 0})
			}
		}
	}
	return adjustments
}

func absorbTinyUnmetDemand(ds *facade.Dataset, alloc facade.Allocation, threshold float64) []Adjustment {
	var adjustments []Adjustment
	r1 := ds.FirstRound()

	for _, p := range ds.ProductTable() {
		demand := p.Demand.InexactFloat64()
		total := alloc.ProductTotal(p.Code)
		residue := demand - total
		if residue <= 0 || residue > threshold {
			continue
		}

		target := r1
		best := 0.0
		for _, r := range ds.Rounds() {
			if v := alloc.Get(p.Code, r); v > best {
				best = v
				target = r
			}
		}
		before := alloc.Get(p.Code, target)
		alloc.Set(p.Code, target, before+residue)
		adjustments = append(adjustments, Adjustment{Pass: "absorb", ProductCode: p.Code, Round: target, Before: before, After: before + residue})
	}
	return adjustments
}
