// Package planner implements the incremental planner (§4.I): the
// component that decides, at the start of a build, which inputs must be
// compiled in the first wave, and then — as each compile's SFDG comes
// back — which further inputs the resulting MDG integration invalidates.
// It is deliberately conservative: every gate failure falls back to
// compiling everything, and every ambiguous integration outcome falls
// back to compiling everything still outstanding, never to compiling
// less than is safe.
package planner

import (
	"sort"
	"time"

	"incdriver/internal/buildjob"
	"incdriver/internal/buildrecord"
	"incdriver/internal/imdg"
	"incdriver/internal/mdg"
	"incdriver/internal/modulebuild"
	"incdriver/internal/outputmap"
	"incdriver/internal/report"
	"incdriver/internal/sfdg"
	"incdriver/internal/vpath"
)

// Input is one compile input the planner must classify and, if needed,
// schedule: its virtual path (component B) and on-disk modification time.
type Input struct {
	VPath   vpath.VirtualPath
	ModTime time.Time
}

// NewInput wraps path as an absolute VirtualPath, paired with the
// modification time a caller already resolved for it (typically via
// vpath.Stat or vpath.VirtualPath.ModTime against the real filesystem).
func NewInput(path string, modTime time.Time) Input {
	return Input{VPath: vpath.NewAbsolute(path), ModTime: modTime}
}

// Path returns the input's canonical source name, the same designator
// name the MDG uses for its SourceFileProvide nodes.
func (in Input) Path() string { return vpath.CanonicalName(in.VPath) }

// Config carries the subset of driver options (§6) that change the
// planner's gate and scheduling decisions.
type Config struct {
	// WholeModuleOptimization disables incremental mode outright
	// (pre-flight gate #2).
	WholeModuleOptimization bool
	// ExplicitModuleBuild enables the explicit module build planner (H)
	// as part of the first wave.
	ExplicitModuleBuild bool
	// AlwaysRebuildDependents mirrors "-driver-always-rebuild-dependents"
	// (§6): eagerly extend the first wave along the MDG rather than
	// waiting for a dependent compile's own SFDG to surface the need.
	AlwaysRebuildDependents bool
	CachingEnabled          bool
	Deterministic           bool
	PrefixMap               map[string]string
}

// Planner holds the state threaded through one build: the MDG being
// integrated into, which sources have been scheduled or already
// compiled, and whether a pre-flight gate or a mid-build failure has
// disabled incremental mode for the remainder of the build.
type Planner struct {
	cfg       Config
	g         *mdg.Graph
	outputMap *outputmap.Map
	prev      *buildrecord.BuildRecord
	inputs    []Input
	rep       *report.Reporter

	disabled     bool
	disableWhy   string
	scheduled    map[string]bool
	compiled     map[string]bool
	needsCascade map[string]bool
}

// New runs the six pre-flight gates of §4.I and returns a Planner ready
// to produce the first wave. graph is the MDG to integrate into: either
// the previous build's priors, or a fresh mdg.New() if none were
// available or they failed their own version check (that decision is the
// caller's, made while loading priors — by the time a graph reaches
// here, "no priors" and "cold graph" are the same thing). prevRecord is
// nil when no build record could be read at all.
func New(inputs []Input, outputMap *outputmap.Map, prevRecord *buildrecord.BuildRecord, graph *mdg.Graph, argsHash string, cfg Config, rep *report.Reporter) *Planner {
	p := &Planner{
		cfg:          cfg,
		g:            graph,
		outputMap:    outputMap,
		prev:         prevRecord,
		inputs:       inputs,
		rep:          rep,
		scheduled:    make(map[string]bool),
		compiled:     make(map[string]bool),
		needsCascade: make(map[string]bool),
	}

	// Gate 1: no output-file map, or no module-wide entry in it.
	if outputMap == nil || !outputMap.HasModuleWideEntry() {
		p.disable("no output file map, or no module-wide swift-dependencies entry")
		return p
	}
	// Gate 2: whole module optimization.
	if cfg.WholeModuleOptimization {
		p.disable("whole module optimization is enabled")
		return p
	}
	// Gate 4 ahead of 3 here: there is no args_hash to compare against
	// without a build record to read it from.
	if prevRecord == nil {
		p.disable("no build record from a previous build")
		return p
	}
	// Gate 3: this build's normalized arguments hash differently than
	// the previous one's.
	if prevRecord.ArgsHash != argsHash {
		p.disable("different arguments were passed than in the previous build")
		return p
	}
	// Gate 5: an input the previous build knew about is missing now.
	known := make(map[string]bool, len(inputs))
	for _, in := range inputs {
		known[in.Path()] = true
	}
	for path := range prevRecord.Inputs {
		if !known[path] {
			p.disable("an input present in the previous build is no longer present: " + path)
			return p
		}
	}
	return p
}

func (p *Planner) disable(reason string) {
	p.disabled = true
	p.disableWhy = reason
	p.rep.DisablingIncremental(reason)
}

// Disabled reports whether incremental mode is off for this build,
// whether from a pre-flight gate or a mid-build integration failure.
func (p *Planner) Disabled() bool { return p.disabled }

// DisabledReason returns the human-readable reason incremental mode was
// disabled, or "" if it was not.
func (p *Planner) DisabledReason() string { return p.disableWhy }

// Remarks returns every remark recorded on this planner's Reporter during
// the build, in emission order, for "show-incremental"-style output (§6).
func (p *Planner) Remarks() []report.Remark { return p.rep.Remarks() }

// FirstWave computes the jobs to run before any compile has completed:
// the explicit module build jobs (if enabled), then one compile job per
// input, with Skip set on each input not classified as needing a build.
// moduleGraph may be nil when
// explicit module build is not in use.
func (p *Planner) FirstWave(moduleGraph *imdg.Graph, cacheKeys modulebuild.CacheKeys) ([]*buildjob.Job, error) {
	var jobs []*buildjob.Job

	if p.cfg.ExplicitModuleBuild && moduleGraph != nil {
		opts := modulebuild.Options{
			CachingEnabled: p.cfg.CachingEnabled,
			Deterministic:  p.cfg.Deterministic,
			PrefixMap:      p.cfg.PrefixMap,
		}
		moduleJobs, err := modulebuild.Plan(moduleGraph, opts, cacheKeys)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, moduleJobs...)
		for _, id := range moduleGraph.SortedIDs() {
			if id != moduleGraph.MainModuleID {
				p.rep.ModuleRebuild(id.Name, "explicit module build")
			}
		}
	}

	schedule := p.classifyFirstWave()

	if p.cfg.AlwaysRebuildDependents && !p.disabled && len(schedule) > 0 {
		seeds := make([]string, 0, len(schedule))
		for path := range schedule {
			seeds = append(seeds, path)
		}
		for _, dependent := range p.g.Dependents(seeds) {
			if !schedule[dependent] {
				schedule[dependent] = true
				p.rep.QueuingInitial(dependent, "depends on an input already scheduled")
			}
		}
	}

	// Per "Null-build compatibility" (§4.I): the planner always returns one
	// compile job per input, even when nothing needs to run — skipped jobs
	// are included with Skip set, and an executor decides whether to
	// actually invoke them against its own up-to-date check. This keeps
	// "planBuild never returns an empty compile list" true while still
	// letting callers that only care about real work filter on Skip.
	paths := make([]string, 0, len(p.inputs))
	for _, in := range p.inputs {
		paths = append(paths, in.Path())
	}
	sort.Strings(paths)

	for _, path := range paths {
		job := buildjob.NewCompile(path, nil)
		if schedule[path] {
			p.scheduled[path] = true
		} else {
			job.Skip = true
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// classifyFirstWave implements the NewlyAdded/PossiblyChanged/Unchanged
// classification and the "additional triggers" of §4.I, returning the set
// of inputs the first wave must compile. When incremental mode has been
// disabled by a pre-flight gate, every input is scheduled.
//
// The PossiblyChanged/Unchanged split compares each input's mtime against
// the build record's single start_time, not against any per-input
// recorded value: "every input's mtime is earlier than the build record's
// start_time" is what the null-build guarantee is defined in terms of.
func (p *Planner) classifyFirstWave() map[string]bool {
	schedule := make(map[string]bool)

	if p.disabled {
		for _, in := range p.inputs {
			schedule[in.Path()] = true
		}
		return schedule
	}

	for _, in := range p.inputs {
		info, known := p.prev.Inputs[in.Path()]
		switch {
		case !known:
			schedule[in.Path()] = true
			p.rep.SchedulingNew(in.Path())
		case !FromTime(in.ModTime).Before(p.prev.StartTime):
			schedule[in.Path()] = true
			p.rep.QueuingInitial(in.Path(), "modified since the previous build's start time")
		case info.Status == buildrecord.NeedsCascadingBuild:
			schedule[in.Path()] = true
			p.rep.QueuingInitial(in.Path(), "marked needs-cascading-build in the previous build")
		case info.Status == buildrecord.NeedsNonCascadingBuild:
			schedule[in.Path()] = true
			p.rep.QueuingInitial(in.Path(), "marked needs-non-cascading-build in the previous build")
		case p.anyOutputMissing(in.Path()):
			schedule[in.Path()] = true
			p.rep.QueuingInitial(in.Path(), "a recorded output is missing on disk")
		default:
			p.rep.Skipping(in.Path())
		}
	}
	return schedule
}

func (p *Planner) anyOutputMissing(input string) bool {
	for _, kind := range []outputmap.ArtifactKind{outputmap.Object, outputmap.SwiftModule, outputmap.SwiftDependencies} {
		out, ok := p.outputMap.Lookup(input, kind)
		if !ok {
			continue
		}
		if !vpath.NewAbsolute(out).Exists("") {
			return true
		}
	}
	return false
}

// AfterCompile integrates a just-completed compile's SFDG into the MDG
// and returns the further compile jobs the integration requires. A
// sfdgOK=false call (the compile's SFDG could not be read at all) and an
// Integrate failure are both treated per §4.I's failure-mode rule: the
// compile is assumed to have invalidated everything, and incremental
// mode is disabled for the remainder of this build.
func (p *Planner) AfterCompile(source string, graph *sfdg.Graph, sfdgOK bool) []*buildjob.Job {
	p.compiled[source] = true
	p.rep.ReadingDeps(source)

	if !sfdgOK {
		p.needsCascade[source] = true
		return p.scheduleEverythingElse("could not read dependency summary for " + source)
	}

	result, err := p.g.Integrate(graph, source)
	if err != nil {
		p.needsCascade[source] = true
		return p.scheduleEverythingElse("dependency graph invariant violated integrating " + source)
	}
	p.needsCascade[source] = result.NeedsCascadingBuild
	for _, key := range result.Changed {
		p.rep.FingerprintChanged(source, key.Format(p.g.Strings))
	}
	for _, key := range result.Added {
		p.rep.FingerprintChanged(source, key.Format(p.g.Strings))
	}

	var jobs []*buildjob.Job
	for _, dep := range result.InvalidatedSources {
		if p.scheduled[dep] {
			continue
		}
		p.scheduled[dep] = true
		p.rep.QueuingInitial(dep, "invalidated by integrating "+source)
		jobs = append(jobs, buildjob.NewCompile(dep, nil))
	}
	return jobs
}

// InvalidateExternal applies an external-dependency fingerprint change to
// the MDG mid-build (e.g. a header discovered stale by a later scan) and
// schedules whatever it invalidates, the same way AfterCompile does for a
// source-defined change.
func (p *Planner) InvalidateExternal(path, newFingerprint string, hasNewFingerprint, newerThanRecorded bool) []*buildjob.Job {
	change := p.g.InvalidateExternal(path, newFingerprint, hasNewFingerprint, newerThanRecorded)
	if !change.Changed {
		return nil
	}
	p.rep.InvalidatedExternally(path)

	var jobs []*buildjob.Job
	for _, dep := range change.Sources {
		if p.scheduled[dep] {
			continue
		}
		p.scheduled[dep] = true
		p.rep.QueuingInitial(dep, "external dependency changed: "+path)
		jobs = append(jobs, buildjob.NewCompile(dep, nil))
	}
	return jobs
}

// scheduleEverythingElse disables incremental mode for the rest of this
// build and returns a compile job for every input not yet compiled or
// already scheduled, per §4.I's conservative failure mode: "treat the
// compile as though it rewrote the world."
func (p *Planner) scheduleEverythingElse(reason string) []*buildjob.Job {
	p.disable(reason)
	var jobs []*buildjob.Job
	paths := make([]string, 0, len(p.inputs))
	for _, in := range p.inputs {
		paths = append(paths, in.Path())
	}
	sort.Strings(paths)
	for _, path := range paths {
		if p.compiled[path] || p.scheduled[path] {
			continue
		}
		p.scheduled[path] = true
		jobs = append(jobs, buildjob.NewCompile(path, nil))
	}
	return jobs
}

// Finalize decides the post-compile link/autolink-extract step, per
// §4.I's "Post-compile" rule: skip it only when every input in the build
// was skipped (nothing was ever compiled) and every output the link step
// would consume is already present.
func (p *Planner) Finalize(linkOutputsExist bool) []*buildjob.Job {
	if len(p.compiled) == 0 && linkOutputsExist {
		p.rep.OldestOutputCurrent()
		return nil
	}
	return []*buildjob.Job{buildjob.NewLink(nil), buildjob.NewAutolinkExtract(nil)}
}

// Record builds the build record to persist at the end of this build.
// A compiled input defaults to UpToDate unless its integration could not
// isolate a changed interface-aspect fingerprint, in which case it is
// marked NeedsCascadingBuild so the next build schedules it
// unconditionally. An input that was skipped this run carries its status
// forward unchanged, since nothing happened to it that could revise that
// judgment.
func (p *Planner) Record(compilerVersion, argsHash string, start, end time.Time) *buildrecord.BuildRecord {
	r := buildrecord.New(compilerVersion, argsHash)
	r.StartTime = FromTime(start)
	r.EndTime = FromTime(end)
	for _, in := range p.inputs {
		status := buildrecord.UpToDate
		switch {
		case p.compiled[in.Path()]:
			if p.needsCascade[in.Path()] {
				status = buildrecord.NeedsCascadingBuild
			}
		case p.prev != nil:
			if prevInfo, ok := p.prev.Inputs[in.Path()]; ok {
				status = prevInfo.Status
			}
		}
		r.Inputs[in.Path()] = buildrecord.InputInfo{
			Status:          status,
			PreviousModTime: FromTime(in.ModTime),
		}
	}
	return r
}

// Snapshot returns the post-integration MDG, ready for a caller to
// persist as the next build's priors.
func (p *Planner) Snapshot() mdg.Snapshot { return p.g.Snapshot() }

// FromTime converts a time.Time to the build record's wire TimePoint,
// exported here so driver code building an Input never needs to import
// buildrecord just to construct one.
func FromTime(t time.Time) buildrecord.TimePoint { return buildrecord.FromTime(t) }
