package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"incdriver/internal/driver"
	"incdriver/internal/outputmap"
	"incdriver/internal/scanner"
)

var (
	buildOutputFileMap string
	buildBuildRecord   string
	buildMDGPriors     string
	buildRepoRoot      string
	buildScannerDir    string
	buildFrontend      string
	buildArgs          []string
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Run one incremental build to completion",
	Long: `build runs the full data flow described in §2: it loads the previous
build record and MDG priors, runs the incremental planner's pre-flight
gates, emits and runs the first wave by invoking the compiler frontend,
integrates each compile's SFDG as it completes, schedules further waves,
and persists the new build record and MDG priors on success.`,
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().StringVar(&buildOutputFileMap, "output-file-map", "", "path to the output-file-map (required for incremental mode)")
	buildCmd.Flags().StringVar(&buildBuildRecord, "build-record", "", "path to read/write the build record")
	buildCmd.Flags().StringVar(&buildMDGPriors, "mdg-priors", "", "path to read/write the MDG priors store")
	buildCmd.Flags().StringVar(&buildRepoRoot, "repo-root", ".", "repository root to load configuration from")
	buildCmd.Flags().StringVar(&buildScannerDir, "scanner-dir", "", "directory of reference-scanner fixtures (enables explicit module build)")
	buildCmd.Flags().StringVar(&buildFrontend, "frontend", "", "path to the compiler frontend executable")
	buildCmd.Flags().StringArrayVar(&buildArgs, "arg", nil, "a compiler argument, repeatable (affects args-hash, forwarded to the frontend)")
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, paths []string) error {
	cfg, err := resolveConfig(buildRepoRoot)
	if err != nil {
		return err
	}
	logger := loggerFromConfig(cfg)

	inputs, err := loadInputs(paths)
	if err != nil {
		return err
	}

	var sc driver.Scanner
	if buildScannerDir != "" {
		cfg.Driver.ExplicitModuleBuild = true
		sc = scanner.NewDirScanner(buildScannerDir)
	}

	var compiler driver.Compiler
	if buildFrontend != "" {
		outMap, err := outputmap.Load(buildOutputFileMap)
		if err != nil {
			return fmt.Errorf("loading output file map: %w", err)
		}
		compiler = &FrontendCompiler{FrontendPath: buildFrontend, Arguments: buildArgs, OutputMap: outMap}
	}

	result, err := driver.Run(cmd.Context(), inputs, buildArgs, driverPaths(buildOutputFileMap, buildBuildRecord, buildMDGPriors), cfg, sc, compiler, logger)
	if err != nil {
		return err
	}

	if cfg.Driver.ShowJobLifecycle {
		for _, line := range driver.OrderedJobDescriptions(result.Jobs) {
			fmt.Println(line)
		}
	}
	if result.Planner.Disabled() {
		fmt.Println("incremental disabled:", result.Planner.DisabledReason())
	}
	return nil
}
