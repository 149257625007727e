package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"incdriver/internal/buildjob"
	"incdriver/internal/buildrecord"
	"incdriver/internal/driver"
	"incdriver/internal/imdg"
	"incdriver/internal/logging"
	"incdriver/internal/mdg"
	"incdriver/internal/mdgstore"
	"incdriver/internal/modulebuild"
	"incdriver/internal/outputmap"
	"incdriver/internal/planner"
	"incdriver/internal/report"
	"incdriver/internal/scanner"
)

var (
	planOutputFileMap string
	planBuildRecord   string
	planMDGPriors     string
	planRepoRoot      string
	planScannerDir    string
	planArgs          []string
	planFormat        string
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show the jobs the first wave would run, without compiling anything",
	Long: `plan loads the previous build record and MDG priors, runs the
incremental planner's pre-flight gates and first-wave classification, and
prints the resulting job list — the same list a real build's first wave
would emit — without invoking the compiler frontend. Per §4.I's null-build
compatibility contract, this list is never empty: jobs the planner judged
unnecessary are printed with Skip = true.`,
	RunE: runPlan,
}

func init() {
	planCmd.Flags().StringVar(&planOutputFileMap, "output-file-map", "", "path to the output-file-map")
	planCmd.Flags().StringVar(&planBuildRecord, "build-record", "", "path to the previous build record")
	planCmd.Flags().StringVar(&planMDGPriors, "mdg-priors", "", "path to the MDG priors store")
	planCmd.Flags().StringVar(&planRepoRoot, "repo-root", ".", "repository root to load configuration from")
	planCmd.Flags().StringVar(&planScannerDir, "scanner-dir", "", "directory of reference-scanner fixtures (enables explicit module build)")
	planCmd.Flags().StringArrayVar(&planArgs, "arg", nil, "a compiler argument, repeatable (affects args-hash)")
	planCmd.Flags().StringVar(&planFormat, "format", "human", "output format: human, json, or yaml")
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, paths []string) error {
	cfg, err := resolveConfig(planRepoRoot)
	if err != nil {
		return err
	}
	logger := loggerFromConfig(cfg)
	rep := report.New(logger)

	inputs, err := loadInputs(paths)
	if err != nil {
		return err
	}

	outMap, err := loadOutputMapOrNil(planOutputFileMap)
	if err != nil {
		logger.Warn("could not load output file map", map[string]interface{}{"error": err.Error()})
	}
	prevRecord, err := loadBuildRecordOrNil(planBuildRecord)
	if err != nil {
		logger.Warn("could not load build record", map[string]interface{}{"error": err.Error()})
	}
	graph, store := loadPriorsOrCold(planMDGPriors, logger, rep)
	if store != nil {
		defer store.Close()
	}

	argsHash := planner.ArgsHash(planArgs)
	pcfg := planner.Config{
		WholeModuleOptimization: cfg.Driver.WholeModuleOptimization,
		ExplicitModuleBuild:     cfg.Driver.ExplicitModuleBuild || planScannerDir != "",
		AlwaysRebuildDependents: cfg.Driver.AlwaysRebuildDependents,
		CachingEnabled:          cfg.Cache.Enabled,
		Deterministic:           cfg.Driver.EnableDeterministicCheck,
		PrefixMap:               cfg.Scanner.PrefixMap,
	}
	p := planner.New(inputs, outMap, prevRecord, graph, argsHash, pcfg, rep)

	var moduleGraph *imdg.Graph
	if pcfg.ExplicitModuleBuild && planScannerDir != "" {
		moduleGraph, err = scanner.NewDirScanner(planScannerDir).Scan(cmd.Context(), nil)
		if err != nil {
			return fmt.Errorf("scanning %s: %w", planScannerDir, err)
		}
	}

	jobs, err := p.FirstWave(moduleGraph, modulebuild.CacheKeys{})
	if err != nil {
		return err
	}

	return renderPlan(planFormat, jobs, p)
}

func loadOutputMapOrNil(path string) (*outputmap.Map, error) {
	if path == "" {
		return nil, nil
	}
	return outputmap.Load(path)
}

func loadBuildRecordOrNil(path string) (*buildrecord.BuildRecord, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return buildrecord.Parse(data)
}

func loadPriorsOrCold(path string, logger *logging.Logger, rep *report.Reporter) (*mdg.Graph, *mdgstore.Store) {
	if path == "" {
		return mdg.New(), nil
	}
	store, err := mdgstore.Open(path, logger)
	if err != nil {
		return mdg.New(), nil
	}
	snapshot, compilerVersion, ok, err := store.Read()
	if err != nil || !ok {
		return mdg.New(), store
	}
	if compilerVersion != driver.CompilerVersion {
		rep.DiscardingPriors("compiler version mismatch: priors were written by " + compilerVersion)
		return mdg.New(), store
	}
	return mdg.FromSnapshot(snapshot), store
}

func renderPlan(format string, jobs []*buildjob.Job, p *planner.Planner) error {
	switch format {
	case "json":
		return printJSON(jobs)
	case "yaml":
		return printYAML(jobs)
	default:
		for _, line := range jobLines(jobs) {
			fmt.Println(line)
		}
		if p.Disabled() {
			fmt.Println("incremental disabled:", p.DisabledReason())
		}
		return nil
	}
}

func jobLines(jobs []*buildjob.Job) []string {
	var out []string
	for _, j := range jobs {
		status := "scheduled"
		if j.Skip {
			status = "skipped"
		}
		switch j.Kind {
		case buildjob.Compile:
			out = append(out, fmt.Sprintf("%-9s %-18s %s", status, j.Kind, j.Input))
		case buildjob.ModuleBuild:
			out = append(out, fmt.Sprintf("%-9s %-18s %s", status, j.Kind, j.Module))
		default:
			out = append(out, fmt.Sprintf("%-9s %-18s", status, j.Kind))
		}
	}
	return out
}
