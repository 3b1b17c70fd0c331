// Command allocate is the flag-based CLI entrypoint: load a
// product/round-constraint workbook, apply an optional YAML
// configuration override, run one solve, and print or save the
// allocation result. Unlike cmd/huoyuan-allocator (the Gin HTTP
// surface), this invokes the core pipeline directly — one batch solve
// per invocation, no session, no persistence, no long-running process.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/cigdist/huoyuan-allocator/internal/allocator"
	"github.com/cigdist/huoyuan-allocator/internal/allocerr"
	"github.com/cigdist/huoyuan-allocator/internal/config"
	"github.com/cigdist/huoyuan-allocator/internal/constraints"
	"github.com/cigdist/huoyuan-allocator/internal/export"
	"github.com/cigdist/huoyuan-allocator/internal/facade"
	"github.com/cigdist/huoyuan-allocator/internal/obslog"
)

// cliResult is the JSON shape printed to -output (or stdout): the
// allocation matrix, the derived per-product summary, solver metadata,
// and the re-validation report.
type cliResult struct {
	Status         allocator.Status           `json:"status"`
	ObjectiveValue float64                    `json:"objective_value"`
	SolveSeconds   float64                    `json:"solve_seconds"`
	Allocation     facade.Allocation          `json:"allocation"`
	Summary        []allocator.ProductSummary `json:"summary"`
	OverallValid   bool                       `json:"overall_valid"`
	Report         *constraints.Report        `json:"report"`
}

func main() {
	inputPath := flag.String("input", "", "path to the product/round-constraint workbook (.xlsx)")
	configPath := flag.String("config", "", "optional YAML configuration override file")
	outputPath := flag.String("output", "", "optional path to write the JSON result (default: stdout)")
	exportPath := flag.String("export", "", "optional path to write the result table (.xlsx or .csv, by extension)")
	logLevel := flag.String("log-level", "info", "log level for the CLI's console logger")
	flag.Parse()

	log := obslog.New(obslog.Config{Level: *logLevel, ServiceName: "allocate", Format: "console"})
	defer log.Sync()

	if *inputPath == "" {
		log.Fatal("missing required -input flag")
	}

	if err := run(*inputPath, *configPath, *outputPath, *exportPath, log); err != nil {
		reportFailure(err, log)
		os.Exit(1)
	}
}

func run(inputPath, configPath, outputPath, exportPath string, log *obslog.Logger) error {
	ds, err := facade.Load(inputPath)
	if err != nil {
		return err
	}

	cfg := config.Default()
	if configPath != "" {
		cfg, err = config.LoadYAMLFile(configPath)
		if err != nil {
			return err
		}
	}

	params, err := constraints.MergeParameters(ds, cfg.Constraints)
	if err != nil {
		return err
	}

	result, err := allocator.Allocate(ds, params, cfg, log)
	if err != nil {
		return err
	}

	if exportPath != "" {
		if err := writeExport(ds, result, exportPath); err != nil {
			return err
		}
	}

	return writeResult(result, outputPath)
}

func writeExport(ds *facade.Dataset, result *allocator.Result, path string) error {
	if strings.HasSuffix(path, ".csv") {
		return export.WriteCSV(path, ds, result)
	}
	return export.WriteWorkbook(path, ds, result)
}

func writeResult(result *allocator.Result, outputPath string) error {
	out := cliResult{
		Status:         result.Status,
		ObjectiveValue: result.ObjectiveValue,
		SolveSeconds:   result.SolveDuration.Seconds(),
		Allocation:     result.Allocation,
		Summary:        result.Summary,
		OverallValid:   result.Report.OverallValid,
		Report:         result.Report,
	}

	encoded, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return allocerr.NewSolverError("writeResult", "failed to encode result", err)
	}

	if outputPath == "" {
		fmt.Println(string(encoded))
		return nil
	}
	return os.WriteFile(outputPath, encoded, 0o644)
}

// reportFailure prints a structured error the way the caller can branch
// on (Kind) without losing the human-readable message, and logs it.
func reportFailure(err error, log *obslog.Logger) {
	if ae, ok := err.(*allocerr.Error); ok {
		log.WithFields(map[string]interface{}{
			"kind": string(ae.Kind),
			"code": ae.Code,
		}).Error(ae.Message)
		return
	}
	log.Error(err.Error())
}
