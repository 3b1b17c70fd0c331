package constraints

import (
	"github.com/cigdist/huoyuan-allocator/internal/config"
	"github.com/cigdist/huoyuan-allocator/internal/facade"
)

// Validate walks every constraint family enabled in cfg plus the three
// families that can never be disabled (demand satisfaction, fixed
// cells, first-round supply), and returns the aggregate report.
func Validate(ds *facade.Dataset, params *Params, cfg config.Constraints, alloc facade.Allocation) *Report {
	report := &Report{Families: make(map[string]FamilyResult)}
	overall := true

	always := []FamilyResult{
		EvaluateDemand(ds, alloc),
		EvaluateFixedCells(ds, alloc),
		EvaluateSupplyCap(ds, alloc),
	}
	for _, fr := range always {
		report.Families[fr.Family] = fr
		overall = overall && fr.OK
	}

	type elective struct {
		name    string
		enabled bool
		run     func() FamilyResult
	}
	electives := []elective{
		{FamilyPrice, cfg.EnablePrice, func() FamilyResult { return EvaluatePrice(ds, params, alloc) }},
		{FamilyVolume, cfg.EnableVolume, func() FamilyResult { return EvaluateVolume(ds, params, alloc) }},
		{FamilyDemandSplit, cfg.EnableDemandSplit, func() FamilyResult { return EvaluateDemandSplit(ds, alloc) }},
		{FamilyDemandPriority, cfg.EnableDemandBased, func() FamilyResult { return EvaluateDemandPriority(ds, alloc) }},
		{FamilyPricePriority, cfg.EnablePriceBased, func() FamilyResult { return EvaluatePricePriority(ds, cfg, alloc) }},
		{FamilyCType, cfg.EnableCType, func() FamilyResult { return EvaluateCType(ds, cfg, alloc) }},
		{FamilyBalance, cfg.EnableBalance, func() FamilyResult { return EvaluateBalance(ds, alloc) }},
	}

	for _, e := range electives {
		if !e.enabled {
			report.Skipped = append(report.Skipped, e.name)
			continue
		}
		fr := e.run()
		report.Families[fr.Family] = fr
		overall = overall && fr.OK
	}

	report.OverallValid = overall
	return report
}
