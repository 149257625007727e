// Package driver wires together the components named in §2's data flow
// into one build: it loads the previous build record (F) and MDG priors
// (E), runs the incremental planner's pre-flight gates (I), asks the
// scanner for an IMDG when explicit module build is enabled (G), emits
// and runs the first wave, integrates each compile's SFDG as it
// completes, and persists the new build record and MDG snapshot at the
// end.
package driver

import (
	"context"
	"os"
	"sort"
	"time"

	"incdriver/internal/buildjob"
	"incdriver/internal/buildrecord"
	"incdriver/internal/config"
	"incdriver/internal/errdefs"
	"incdriver/internal/imdg"
	"incdriver/internal/logging"
	"incdriver/internal/mdg"
	"incdriver/internal/mdgstore"
	"incdriver/internal/modulebuild"
	"incdriver/internal/outputmap"
	"incdriver/internal/planner"
	"incdriver/internal/report"
	"incdriver/internal/sfdg"
	"incdriver/internal/vpath"
)

// CompilerVersion is stamped into every build record and MDG priors file
// this driver writes, and checked against the previous build's value.
const CompilerVersion = "incdriver-1.0"

// Scanner is the dependency scanner boundary (component G): given the
// current set of inputs, it returns the inter-module dependency graph a
// build needs for explicit module build planning. Production wiring is
// internal/scanner; tests and the cold-build path may supply a stub.
type Scanner interface {
	Scan(ctx context.Context, inputs []string) (*imdg.Graph, error)
}

// Compiler is the executor boundary: given a compile job, it runs the
// frontend and returns the SFDG it produced for that input. A real
// driver shells out to a compiler frontend; tests supply an in-memory
// stub.
type Compiler interface {
	Compile(ctx context.Context, job *buildjob.Job) (*sfdg.Graph, error)
}

// Paths names every on-disk artifact this driver reads or writes, beyond
// the output-file-map entries themselves.
type Paths struct {
	OutputFileMap string
	BuildRecord   string
	MDGPriors     string
}

// Build runs one build to completion and returns the jobs that were run
// (for a caller that wants to show its work) plus the final Planner
// state, primarily so callers/tests can inspect DisabledReason() and
// Remarks() after the fact.
type Build struct {
	Jobs    []*buildjob.Job
	Planner *planner.Planner
}

// Run executes one build for the given inputs and arguments, per §2's
// data flow end to end.
func Run(ctx context.Context, inputs []planner.Input, args []string, paths Paths, cfg *config.Config, scanner Scanner, compiler Compiler, logger *logging.Logger) (*Build, error) {
	rep := report.New(logger)

	outMap, err := loadOutputMap(paths.OutputFileMap)
	if err != nil {
		warn(logger, "could not load output file map", err)
	}

	prevRecord, err := loadBuildRecord(paths.BuildRecord)
	if err != nil {
		warn(logger, "could not load build record", err)
	}

	store, graph, err := loadPriors(paths.MDGPriors, logger, rep)
	if err != nil {
		return nil, err
	}
	if store != nil {
		defer store.Close()
	}

	argsHash := planner.ArgsHash(args)

	pcfg := planner.Config{
		WholeModuleOptimization: cfg.Driver.WholeModuleOptimization,
		ExplicitModuleBuild:     cfg.Driver.ExplicitModuleBuild,
		AlwaysRebuildDependents: cfg.Driver.AlwaysRebuildDependents,
		CachingEnabled:          cfg.Cache.Enabled,
		Deterministic:           cfg.Driver.EnableDeterministicCheck,
		PrefixMap:               cfg.Scanner.PrefixMap,
	}
	p := planner.New(inputs, outMap, prevRecord, graph, argsHash, pcfg, rep)

	start := time.Now()

	var moduleGraph *imdg.Graph
	if cfg.Driver.ExplicitModuleBuild && scanner != nil {
		paths := make([]string, 0, len(inputs))
		for _, in := range inputs {
			paths = append(paths, in.Path())
		}
		moduleGraph, err = scanner.Scan(ctx, paths)
		if err != nil {
			return nil, errdefs.Wrap(errdefs.ErrScannerFailure, "querying dependency scanner", err)
		}
	}

	build := &Build{Planner: p}

	firstWave, err := p.FirstWave(moduleGraph, modulebuild.CacheKeys{})
	if err != nil {
		return nil, err
	}
	build.Jobs = append(build.Jobs, firstWave...)

	queue := firstWave
	for len(queue) > 0 {
		job := queue[0]
		queue = queue[1:]
		if job.Kind != buildjob.Compile || job.Skip {
			continue
		}

		var g *sfdg.Graph
		ok := false
		if compiler != nil {
			var cerr error
			g, cerr = compiler.Compile(ctx, job)
			ok = cerr == nil && g != nil
		}

		more := p.AfterCompile(job.Input, g, ok)
		build.Jobs = append(build.Jobs, more...)
		queue = append(queue, more...)
	}

	linkOutputsExist := linkOutputsPresent(outMap)
	build.Jobs = append(build.Jobs, p.Finalize(linkOutputsExist)...)

	if err := persistBuildRecord(paths.BuildRecord, p, argsHash, start); err != nil {
		warn(logger, "could not persist build record", err)
	}
	if store != nil {
		if err := persistPriors(store, p); err != nil {
			warn(logger, "could not persist MDG priors", err)
		}
	}

	return build, nil
}

func warn(logger *logging.Logger, message string, err error) {
	if logger == nil {
		return
	}
	logger.Warn(message, map[string]interface{}{"error": err.Error()})
}

func loadOutputMap(path string) (*outputmap.Map, error) {
	if path == "" {
		return nil, nil
	}
	return outputmap.Load(path)
}

func loadBuildRecord(path string) (*buildrecord.BuildRecord, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return buildrecord.Parse(data)
}

// loadPriors opens the MDG priors store and reads its snapshot, applying
// gate 6 (§4.E "a version mismatch ... causes the prior to be discarded"):
// on a compiler-version mismatch or an empty store, the planner receives
// a fresh, cold mdg.Graph instead.
func loadPriors(path string, logger *logging.Logger, rep *report.Reporter) (*mdgstore.Store, *mdg.Graph, error) {
	if path == "" {
		return nil, mdg.New(), nil
	}
	store, err := mdgstore.Open(path, logger)
	if err != nil {
		return nil, nil, errdefs.Wrap(errdefs.ErrGraphParse, "opening MDG priors store", err)
	}

	snapshot, compilerVersion, ok, err := store.Read()
	if err != nil {
		store.Close()
		return nil, nil, errdefs.Wrap(errdefs.ErrGraphParse, "reading MDG priors", err)
	}
	if !ok {
		return store, mdg.New(), nil
	}
	if compilerVersion != CompilerVersion {
		rep.DiscardingPriors("compiler version mismatch: priors were written by " + compilerVersion)
		return store, mdg.New(), nil
	}
	return store, mdg.FromSnapshot(snapshot), nil
}

func persistPriors(store *mdgstore.Store, p *planner.Planner) error {
	return store.Write(p.Snapshot(), CompilerVersion)
}

func persistBuildRecord(path string, p *planner.Planner, argsHash string, start time.Time) error {
	if path == "" {
		return nil
	}
	record := p.Record(CompilerVersion, argsHash, start, time.Now())
	return os.WriteFile(path, record.Emit(), 0o644)
}

func linkOutputsPresent(outMap *outputmap.Map) bool {
	if outMap == nil {
		return false
	}
	for _, input := range outMap.Inputs() {
		if out, ok := outMap.Lookup(input, outputmap.Object); ok {
			if !vpath.NewAbsolute(out).Exists("") {
				return false
			}
		}
	}
	return true
}

// OrderedJobDescriptions returns a short human-readable line per job,
// sorted alphabetically rather than in the order the jobs were run, for
// "--driver-show-job-lifecycle"-style output.
func OrderedJobDescriptions(jobs []*buildjob.Job) []string {
	out := make([]string, 0, len(jobs))
	for _, j := range jobs {
		switch j.Kind {
		case buildjob.Compile:
			out = append(out, string(j.Kind)+" "+j.Input)
		case buildjob.ModuleBuild:
			out = append(out, string(j.Kind)+" "+j.Module)
		default:
			out = append(out, string(j.Kind))
		}
	}
	sort.Strings(out)
	return out
}
