package main

import (
	"encoding/json"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"incdriver/internal/config"
	"incdriver/internal/driver"
	"incdriver/internal/logging"
	"incdriver/internal/planner"
	"incdriver/internal/vpath"
)

// loadInputs stats every named path and returns a sorted planner.Input
// list, failing per §7's "Missing-input error" policy if any path cannot
// be stat'd.
func loadInputs(paths []string) ([]planner.Input, error) {
	inputs := make([]planner.Input, 0, len(paths))
	for _, p := range paths {
		vp := vpath.NewAbsolute(p)
		modTime, err := vp.ModTime("")
		if err != nil {
			return nil, fmt.Errorf("missing input %s: %w", p, err)
		}
		inputs = append(inputs, planner.Input{VPath: vp, ModTime: modTime})
	}
	sort.Slice(inputs, func(i, j int) bool { return inputs[i].Path() < inputs[j].Path() })
	return inputs, nil
}

func loggerFromConfig(cfg *config.Config) *logging.Logger {
	return logging.NewLogger(logging.Config{
		Format:         logging.Format(cfg.Logging.Format),
		Level:          logging.LogLevel(cfg.Logging.Level),
		RemarksEnabled: cfg.Driver.ShowIncremental,
	})
}

func resolveConfig(repoRoot string) (*config.Config, error) {
	return config.LoadConfig(repoRoot)
}

func driverPaths(outputFileMap, buildRecord, mdgPriors string) driver.Paths {
	return driver.Paths{
		OutputFileMap: outputFileMap,
		BuildRecord:   buildRecord,
		MDGPriors:     mdgPriors,
	}
}

// printJSON renders v as canonical JSON, matching the output-file-map's
// own JSON document shape (§6).
func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

// printYAML renders v as YAML, for `plan --format=yaml`'s human-review
// rendering of the classification result (SPEC_FULL's domain-stack
// rationale for carrying gopkg.in/yaml.v3 forward from the teacher).
func printYAML(v interface{}) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return err
	}
	fmt.Print(string(data))
	return nil
}
