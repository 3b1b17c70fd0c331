// Package allocator builds and solves the release-round allocation
// MILP: it constructs decision variables and linearized constraints
// onto a github.com/nextmv-io/sdk/mip model, invokes the "highs"
// solver, extracts the allocation matrix, and applies the two
// post-processing passes.
package allocator

import (
	"time"

	"github.com/cigdist/huoyuan-allocator/internal/allocerr"
	"github.com/cigdist/huoyuan-allocator/internal/config"
	"github.com/cigdist/huoyuan-allocator/internal/constraints"
	"github.com/cigdist/huoyuan-allocator/internal/facade"
	"github.com/cigdist/huoyuan-allocator/internal/obslog"
)

// Status is the solver's reported terminal state.
type Status string

const (
	StatusOptimal     Status = "OPTIMAL"
	StatusTimeLimit   Status = "TIME_LIMIT"
	StatusInfeasible  Status = "INFEASIBLE"
	StatusUnbounded   Status = "UNBOUNDED"
	StatusSolverError Status = "ERROR"
)

// ProductSummary is one row of the derived output columns: 总分配量
// (row sum over rounds) and 分配率 (row sum / demand, or 1 when
// demand is zero). Recomputed from the post-processed matrix, never
// carried over from the raw solver output.
type ProductSummary struct {
	Code           string  `json:"code"`
	TotalAllocated float64 `json:"total_allocated"`
	FulfilmentRate float64 `json:"fulfilment_rate"`
}

// Result is what a single Allocate call returns: the post-processed
// allocation, solver metadata, and the re-validation report produced by
// re-running the Constraint Manager against the final matrix.
type Result struct {
	Allocation      facade.Allocation
	Summary         []ProductSummary
	Status          Status
	ObjectiveValue  float64
	SolveDuration   time.Duration
	Report          *constraints.Report
	Adjustments     []Adjustment
}

// Allocate runs the full pipeline in strict order: build -> solve ->
// extract -> post-process -> validate. ds and params must already
// reflect the merged configuration (internal/constraints.MergeParameters).
func Allocate(ds *facade.Dataset, params *constraints.Params, cfg config.Config, log *obslog.Logger) (*Result, error) {
	if log == nil {
		log = obslog.NewNop()
	}

	built, err := Build(ds, params, cfg)
	if err != nil {
		return nil, err
	}

	solution, duration, err := solve(built.model, cfg.Solve)
	if err != nil {
		return nil, allocerr.NewSolverError("Allocate", "solver invocation failed", err)
	}

	status := classify(solution, duration, cfg.Solve)
	if status == StatusInfeasible {
		return nil, allocerr.NewInfeasibleError("Allocate", enabledFamilies(cfg.Constraints))
	}
	if status == StatusUnbounded || status == StatusSolverError {
		return nil, allocerr.NewSolverError("Allocate", "solver reported "+string(status), nil)
	}

	raw := extract(built, ds, solution)
	adjustments := PostProcess(ds, raw, cfg.Constraints.VolumeTolerance)
	roundValues(raw)
	summary := Summarize(ds, raw)

	report := constraints.Validate(ds, params, cfg.Constraints, raw)

	log.SolveEventLogger(string(status), solution.ObjectiveValue(), duration.Seconds(), len(ds.ProductTable()), len(ds.Rounds()))
	for _, adj := range adjustments {
		log.PostProcessLogger(adj.Pass, adj.ProductCode, adj.Round, adj.Before, adj.After)
	}
	for _, v := range violationsOf(report) {
		log.ConstraintViolationLogger(v.Family, v.ProductCode, v.Round, v.Detail)
	}

	return &Result{
		Allocation:     raw,
		Summary:        summary,
		Status:         status,
		ObjectiveValue: solution.ObjectiveValue(),
		SolveDuration:  duration,
		Report:         report,
		Adjustments:    adjustments,
	}, nil
}

func violationsOf(r *constraints.Report) []constraints.Violation {
	var out []constraints.Violation
	for _, fr := range r.Families {
		out = append(out, fr.Violations...)
	}
	return out
}

func enabledFamilies(c config.Constraints) []string {
	names := []string{constraints.FamilyDemand, constraints.FamilyFixedCells, constraints.FamilySupplyCap}
	if c.EnablePrice {
		names = append(names, constraints.FamilyPrice)
	}
	if c.EnableVolume {
		names = append(names, constraints.FamilyVolume)
	}
	if c.EnableDemandSplit {
		names = append(names, constraints.FamilyDemandSplit)
	}
	if c.EnableDemandBased {
		names = append(names, constraints.FamilyDemandPriority)
	}
	if c.EnablePriceBased {
		names = append(names, constraints.FamilyPricePriority)
	}
	if c.EnableCType {
		names = append(names, constraints.FamilyCType)
	}
	if c.EnableBalance {
		names = append(names, constraints.FamilyBalance)
	}
	return names
}

// Summarize recomputes the derived per-product output columns from a
// (post-processed) allocation matrix, in product-table order.
func Summarize(ds *facade.Dataset, a facade.Allocation) []ProductSummary {
	out := make([]ProductSummary, 0, len(ds.ProductTable()))
	for _, p := range ds.ProductTable() {
		total := roundTo3(a.ProductTotal(p.Code))
		demand := p.Demand.InexactFloat64()
		rate := 1.0
		if demand > 0 {
			rate = roundTo3(total / demand)
		}
		out = append(out, ProductSummary{Code: p.Code, TotalAllocated: total, FulfilmentRate: rate})
	}
	return out
}

// roundValues rounds every allocated cell to three decimals, the final
// step of post-processing.
func roundValues(a facade.Allocation) {
	for _, row := range a {
		for r, v := range row {
			row[r] = roundTo3(v)
		}
	}
}

func roundTo3(v float64) float64 {
	return float64(int64(v*1000+sign(v)*0.5)) / 1000
}

func sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}
