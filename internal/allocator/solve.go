package allocator

import (
	"time"

	"github.com/cigdist/huoyuan-allocator/internal/config"
	"github.com/cigdist/huoyuan-allocator/internal/facade"
	"github.com/nextmv-io/sdk/mip"
)

// solverProvider names the MILP backend wired through nextmv-io/sdk.
const solverProvider = "highs"

// solve invokes the external solver with the configured wall-clock
// budget and returns the raw solution plus elapsed time.
func solve(m mip.Model, opts config.SolveOptions) (mip.Solution, time.Duration, error) {
	solver, err := mip.NewSolver(solverProvider, m)
	if err != nil {
		return nil, 0, err
	}

	solveOptions := mip.NewSolveOptions()
	limit := time.Duration(opts.TimeLimitSeconds * float64(time.Second))
	if err := solveOptions.SetMaximumDuration(limit); err != nil {
		return nil, 0, err
	}
	solveOptions.SetVerbosity(mip.Off)

	started := time.Now()
	solution, err := solver.Solve(solveOptions)
	if err != nil {
		return nil, time.Since(started), err
	}
	return solution, solution.RunTime(), nil
}

// classify maps the solver's raw solution back onto the status
// vocabulary {Optimal, Infeasible, TimeLimit, Unbounded, Error}. The
// nextmv mip.Solution surface only distinguishes HasValues/IsOptimal,
// so TimeLimit is inferred from "has values but not optimal"; any
// other non-optimal, valueless solution is reported Infeasible.
func classify(solution mip.Solution, duration time.Duration, opts config.SolveOptions) Status {
	if solution == nil || !solution.HasValues() {
		return StatusInfeasible
	}
	if solution.IsOptimal() {
		return StatusOptimal
	}
	return StatusTimeLimit
}

// extract reads the solved allocation matrix out of the model's x
// variables into a facade.Allocation, the raw pre-post-processing
// output.
func extract(b *built, ds *facade.Dataset, solution mip.Solution) facade.Allocation {
	a := make(facade.Allocation, len(ds.ProductTable()))
	for _, p := range ds.ProductTable() {
		for _, r := range ds.Rounds() {
			a.Set(p.Code, r, solution.Value(b.x[p.Code][r]))
		}
	}
	return a
}
