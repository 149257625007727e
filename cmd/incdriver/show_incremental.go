package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"incdriver/internal/driver"
	"incdriver/internal/outputmap"
	"incdriver/internal/scanner"
)

var (
	showOutputFileMap string
	showBuildRecord   string
	showMDGPriors     string
	showRepoRoot      string
	showScannerDir    string
	showFrontend      string
	showArgs          []string
)

var showIncrementalCmd = &cobra.Command{
	Use:   "show-incremental",
	Short: "Run a build and print every remark from the structured remark stream",
	Long: `show-incremental runs the same build as "incdriver build" but, per the
-driver-show-incremental option (§6), prints every remark the planner and
MDG integrator emitted: scheduling-new, queuing-initial, skipping,
reading-deps, fingerprint-changed, invalidated-externally, and the rest
of §4.K's event vocabulary, in emission order.`,
	RunE: runShowIncremental,
}

func init() {
	showIncrementalCmd.Flags().StringVar(&showOutputFileMap, "output-file-map", "", "path to the output-file-map")
	showIncrementalCmd.Flags().StringVar(&showBuildRecord, "build-record", "", "path to read/write the build record")
	showIncrementalCmd.Flags().StringVar(&showMDGPriors, "mdg-priors", "", "path to read/write the MDG priors store")
	showIncrementalCmd.Flags().StringVar(&showRepoRoot, "repo-root", ".", "repository root to load configuration from")
	showIncrementalCmd.Flags().StringVar(&showScannerDir, "scanner-dir", "", "directory of reference-scanner fixtures (enables explicit module build)")
	showIncrementalCmd.Flags().StringVar(&showFrontend, "frontend", "", "path to the compiler frontend executable")
	showIncrementalCmd.Flags().StringArrayVar(&showArgs, "arg", nil, "a compiler argument, repeatable")
	rootCmd.AddCommand(showIncrementalCmd)
}

func runShowIncremental(cmd *cobra.Command, paths []string) error {
	cfg, err := resolveConfig(showRepoRoot)
	if err != nil {
		return err
	}
	cfg.Driver.ShowIncremental = true
	logger := loggerFromConfig(cfg)

	inputs, err := loadInputs(paths)
	if err != nil {
		return err
	}

	var sc driver.Scanner
	if showScannerDir != "" {
		cfg.Driver.ExplicitModuleBuild = true
		sc = scanner.NewDirScanner(showScannerDir)
	}

	var compiler driver.Compiler
	if showFrontend != "" {
		outMap, err := outputmap.Load(showOutputFileMap)
		if err != nil {
			return fmt.Errorf("loading output file map: %w", err)
		}
		compiler = &FrontendCompiler{FrontendPath: showFrontend, Arguments: showArgs, OutputMap: outMap}
	}

	result, err := driver.Run(cmd.Context(), inputs, showArgs, driverPaths(showOutputFileMap, showBuildRecord, showMDGPriors), cfg, sc, compiler, logger)
	if err != nil {
		return err
	}

	for _, r := range result.Planner.Remarks() {
		if r.Reason != "" {
			fmt.Printf("%s: %s (%s)\n", r.Event, r.Source, r.Reason)
		} else {
			fmt.Printf("%s: %s\n", r.Event, r.Source)
		}
	}
	return nil
}
