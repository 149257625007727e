package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"incdriver/internal/buildjob"
	"incdriver/internal/outputmap"
	"incdriver/internal/sfdg"
)

// FrontendCompiler is the real driver.Compiler implementation: it shells
// out to the compiler frontend (an external process, per §1's non-goals)
// and reads back the per-input SFDG it wrote to the output-file-map's
// "swift-dependencies" path for that input.
type FrontendCompiler struct {
	FrontendPath string
	Arguments    []string
	OutputMap    *outputmap.Map
}

// Compile implements driver.Compiler.
func (c *FrontendCompiler) Compile(ctx context.Context, job *buildjob.Job) (*sfdg.Graph, error) {
	depsPath, ok := c.OutputMap.Lookup(job.Input, outputmap.SwiftDependencies)
	if !ok {
		return nil, fmt.Errorf("no swift-dependencies entry for input %s", job.Input)
	}

	args := append([]string{"-c", job.Input}, c.Arguments...)
	args = append(args, "-emit-dependencies-path", depsPath)
	cmd := exec.CommandContext(ctx, c.FrontendPath, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("compiling %s: %w", job.Input, err)
	}

	f, err := os.Open(depsPath)
	if err != nil {
		return nil, fmt.Errorf("reading dependency file for %s: %w", job.Input, err)
	}
	defer f.Close()

	return sfdg.Read(f)
}
