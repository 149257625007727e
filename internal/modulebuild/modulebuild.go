// Package modulebuild implements the explicit module build planner (§4.G/H):
// given an IMDG, it emits one module-build job per non-main module, with
// the flags, cache keys, and module-map arguments the frontend needs to
// build that module's artifact explicitly rather than discovering it via
// implicit module search.
package modulebuild

import (
	"fmt"
	"sort"

	"incdriver/internal/buildjob"
	"incdriver/internal/errdefs"
	"incdriver/internal/imdg"
)

// Options controls cross-cutting flags applied to every emitted job.
type Options struct {
	// CachingEnabled mirrors "-cache-compile-job": when true, cache-key
	// flags are added to downstream consumers' command lines and jobs
	// carry per-output cache-key entries.
	CachingEnabled bool
	// Deterministic mirrors "-enable-deterministic-check": adds
	// -enable-deterministic-check, -always-compile-output-files,
	// -cache-disable-replay to every cache-supporting compile.
	Deterministic bool
	// PrefixMap is the "-scanner-prefix-map from=to" rewrite table (§4.G).
	PrefixMap map[string]string
}

// CacheKeys supplies the CAS cache key for a module, when known (populated
// by a previous build or a CAS query); modules absent from this map get no
// cache-key flags even when CachingEnabled is set.
type CacheKeys map[imdg.ModuleId]string

// Plan computes one job per non-main module reachable from graph's main
// module, in dependency order (a module's job never references a
// transitive dependency's job that hasn't been emitted yet), per §4.H.
// Reaching a SwiftPlaceholder module is treated as a bug per §9's open
// question and returns an error rather than silently skipping it.
func Plan(graph *imdg.Graph, opts Options, keys CacheKeys) ([]*buildjob.Job, error) {
	if graph.HasPlaceholder() {
		return nil, errdefs.New(errdefs.ErrInvariantViolation, "IMDG placeholder module reached the explicit module build planner")
	}

	closure, err := graph.Closure()
	if err != nil {
		return nil, err
	}

	order, err := topoOrder(graph, closure)
	if err != nil {
		return nil, err
	}

	var jobs []*buildjob.Job
	for _, id := range order {
		if id == graph.MainModuleID {
			continue
		}
		info := graph.Modules[id]
		if info == nil {
			continue
		}
		job, err := planOne(graph, info, opts, keys)
		if err != nil {
			return nil, err
		}
		if job != nil {
			jobs = append(jobs, job)
		}
	}
	return jobs, nil
}

// topoOrder returns every module reachable from the main module in an
// order where each module appears after every module in its direct
// dependency set: modules are sorted by closure size (a module's closure
// is larger than that of any module it depends on), with ModuleId order
// as the tie-break so the result is deterministic across calls with the
// same graph.
func topoOrder(graph *imdg.Graph, closure map[imdg.ModuleId]map[imdg.ModuleId]bool) ([]imdg.ModuleId, error) {
	reachable := closure[graph.MainModuleID]
	ids := make([]imdg.ModuleId, 0, len(reachable)+1)
	ids = append(ids, graph.MainModuleID)
	for id := range reachable {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		di, dj := len(closure[ids[i]]), len(closure[ids[j]])
		if di != dj {
			return di < dj
		}
		return ids[i].Less(ids[j])
	})
	return ids, nil
}

func planOne(graph *imdg.Graph, info *imdg.ModuleInfo, opts Options, keys CacheKeys) (*buildjob.Job, error) {
	switch info.ID.Kind {
	case imdg.Swift:
		return planSwiftInterface(graph, info, opts, keys)
	case imdg.Clang:
		return planClangModuleMap(graph, info, opts, keys)
	case imdg.SwiftPrebuiltExternal:
		return planPrebuilt(info, opts, keys)
	default:
		return nil, errdefs.New(errdefs.ErrInvariantViolation, fmt.Sprintf("unexpected module kind %v for %s", info.ID.Kind, info.ID.Name))
	}
}

// planSwiftInterface emits a "compile-module-from-interface" job: the
// interface path, every candidate compiled module as a flag-argument, and
// each transitive dependency as a module-file=Name=Path mapping. Implicit
// module search is disabled explicitly, per §4.H.
func planSwiftInterface(graph *imdg.Graph, info *imdg.ModuleInfo, opts Options, keys CacheKeys) (*buildjob.Job, error) {
	args := []string{"-compile-module-from-interface", remapPath(info.Details.Swift.InterfacePath, opts.PrefixMap)}
	for _, candidate := range info.Details.Swift.CompiledCandidates {
		args = append(args, "-candidate-module-file", remapPath(candidate, opts.PrefixMap))
	}
	args = append(args, "-disable-implicit-swift-modules")

	depArgs, err := dependencyFileArgs(graph, info, opts, keys, "-module-file=")
	if err != nil {
		return nil, err
	}
	args = append(args, depArgs...)

	if opts.Deterministic {
		args = append(args, "-enable-deterministic-check", "-always-compile-output-files", "-cache-disable-replay")
	}
	args = append(args, info.Details.Swift.CommandLine...)

	job := buildjob.NewModuleBuild(info.ID.Name, args)
	if opts.CachingEnabled {
		if key, ok := keys[info.ID]; ok {
			job.WithOutputCacheKey(remapPath(info.ModulePath, opts.PrefixMap), key)
		}
	}
	return job, nil
}

// planClangModuleMap emits a "generate-pcm" job: the module-map path,
// -fno-implicit-modules, and a -fmodule-file=Name=Path /
// -fmodule-map-file=Path pair for each transitive dependency.
func planClangModuleMap(graph *imdg.Graph, info *imdg.ModuleInfo, opts Options, keys CacheKeys) (*buildjob.Job, error) {
	args := []string{"-generate-pcm", "-fmodule-map-file=" + remapPath(info.Details.Clang.ModuleMapPath, opts.PrefixMap), "-fno-implicit-modules"}

	depArgs, err := dependencyFileArgs(graph, info, opts, keys, "-fmodule-file=")
	if err != nil {
		return nil, err
	}
	args = append(args, depArgs...)

	job := buildjob.NewModuleBuild(info.ID.Name, args)
	if opts.CachingEnabled {
		if key, ok := keys[info.ID]; ok {
			job.WithOutputCacheKey(remapPath(info.ModulePath, opts.PrefixMap), key)
		}
	}
	return job, nil
}

// planPrebuilt surfaces an already-compiled swiftmodule as an input to
// consumers; it produces no compile command, only the cache-key metadata a
// consumer's command line needs.
func planPrebuilt(info *imdg.ModuleInfo, opts Options, keys CacheKeys) (*buildjob.Job, error) {
	job := buildjob.NewModuleBuild(info.ID.Name, nil)
	if opts.CachingEnabled {
		if key, ok := keys[info.ID]; ok {
			job.WithOutputCacheKey(remapPath(info.ModulePath, opts.PrefixMap), key)
		}
	}
	return job, nil
}

// dependencyFileArgs builds the per-dependency mapping flags shared by the
// Swift-interface and Clang-module-map job kinds, one group per transitive
// dependency, in sorted dependency-name order for determinism.
func dependencyFileArgs(graph *imdg.Graph, info *imdg.ModuleInfo, opts Options, keys CacheKeys, flagPrefix string) ([]string, error) {
	closure, err := graph.Closure()
	if err != nil {
		return nil, err
	}
	deps := make([]imdg.ModuleId, 0, len(closure[info.ID]))
	for dep := range closure[info.ID] {
		deps = append(deps, dep)
	}
	sort.Slice(deps, func(i, j int) bool { return deps[i].Less(deps[j]) })

	var args []string
	for _, dep := range deps {
		depInfo, ok := graph.Modules[dep]
		if !ok {
			return nil, errdefs.New(errdefs.ErrInvariantViolation, "dependency module not present in IMDG: "+dep.Name)
		}
		path := remapPath(depInfo.ModulePath, opts.PrefixMap)
		args = append(args, fmt.Sprintf("%s%s=%s", flagPrefix, dep.Name, path))
		if flagPrefix == "-fmodule-file=" && dep.Kind == imdg.Clang {
			args = append(args, "-fmodule-map-file="+remapPath(depInfo.Details.Clang.ModuleMapPath, opts.PrefixMap))
		}
		if opts.CachingEnabled {
			if key, ok := keys[dep]; ok {
				cacheFlag := "-fmodule-file-cache-key"
				if dep.Kind == imdg.Swift {
					cacheFlag = "-swift-module-file-cache-key"
				}
				args = append(args, cacheFlag, fmt.Sprintf("%s=%s", dep.Name, key))
			}
		}
	}
	return args, nil
}

// casStorageRootWhitelist is the one path prefix exempt from the "no path
// starting with a mapped root leaks unmapped" verification in §4.G/H; the
// CAS storage root is allowed to appear unmapped in any job's arguments.
const casStorageRootWhitelist = "/cas-storage"

func remapPath(path string, prefixMap map[string]string) string {
	for from, to := range prefixMap {
		if from == "" {
			continue
		}
		if len(path) >= len(from) && path[:len(from)] == from {
			return to + path[len(from):]
		}
	}
	return path
}

// VerifyNoUnmappedPaths checks that no argument across jobs starts with a
// mapped prefix-map root without having been rewritten, except the CAS
// storage root. It's intended to run after Plan, against the configured
// prefix map, as the planner's own self-check rather than trusting that
// every call site in this package remapped correctly.
func VerifyNoUnmappedPaths(jobs []*buildjob.Job, prefixMap map[string]string) error {
	for _, job := range jobs {
		for _, arg := range job.Arguments {
			for from := range prefixMap {
				if from == "" {
					continue
				}
				if len(arg) >= len(from) && arg[:len(from)] == from && arg != casStorageRootWhitelist {
					return errdefs.New(errdefs.ErrInvariantViolation, "unmapped path leaked into job arguments: "+arg)
				}
			}
		}
	}
	return nil
}
