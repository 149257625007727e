package planner

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"incdriver/internal/buildrecord"
	"incdriver/internal/depkey"
	"incdriver/internal/mdg"
	"incdriver/internal/outputmap"
	"incdriver/internal/report"
	"incdriver/internal/sfdg"
)

func moduleWideMap() *outputmap.Map {
	m := outputmap.New()
	m.Set("", outputmap.SwiftDependencies, "/out/module.swiftdeps")
	return m
}

func TestNewDisablesWithoutModuleWideEntry(t *testing.T) {
	p := New(nil, outputmap.New(), nil, mdg.New(), "hash", Config{}, report.New(nil))
	if !p.Disabled() {
		t.Fatal("expected a missing module-wide entry to disable incremental mode")
	}
}

func TestNewDisablesOnWholeModuleOptimization(t *testing.T) {
	p := New(nil, moduleWideMap(), buildrecord.New("v1", "hash"), mdg.New(), "hash", Config{WholeModuleOptimization: true}, report.New(nil))
	if !p.Disabled() {
		t.Fatal("expected whole module optimization to disable incremental mode")
	}
}

func TestNewDisablesOnMissingBuildRecord(t *testing.T) {
	p := New(nil, moduleWideMap(), nil, mdg.New(), "hash", Config{}, report.New(nil))
	if !p.Disabled() {
		t.Fatal("expected a missing build record to disable incremental mode")
	}
}

func TestNewDisablesOnArgsHashMismatch(t *testing.T) {
	prev := buildrecord.New("v1", "old-hash")
	p := New(nil, moduleWideMap(), prev, mdg.New(), "new-hash", Config{}, report.New(nil))
	if !p.Disabled() {
		t.Fatal("expected a changed args hash to disable incremental mode")
	}
}

func TestNewDisablesOnRemovedInput(t *testing.T) {
	prev := buildrecord.New("v1", "hash")
	prev.Inputs["gone.swift"] = buildrecord.InputInfo{Status: buildrecord.UpToDate}
	p := New([]Input{NewInput("main.swift", time.Time{})}, moduleWideMap(), prev, mdg.New(), "hash", Config{}, report.New(nil))
	if !p.Disabled() {
		t.Fatal("expected an input present in the previous build but missing now to disable incremental mode")
	}
}

// TestColdBuildSchedulesEveryInput models scenario 1 (§8): with no previous
// build record, every input lands in the first wave.
func TestColdBuildSchedulesEveryInput(t *testing.T) {
	inputs := []Input{NewInput("main.swift", time.Time{}), NewInput("other.swift", time.Time{})}
	p := New(inputs, moduleWideMap(), nil, mdg.New(), "hash", Config{}, report.New(nil))

	jobs, err := p.FirstWave(nil, nil)
	if err != nil {
		t.Fatalf("FirstWave: %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("expected 2 compile jobs on a cold build, got %d", len(jobs))
	}
}

// TestNullBuildSchedulesNothing models scenario 2: every input is
// unchanged (mtime earlier than the build record's start_time), up to
// date, and its recorded outputs already exist, so no real work is
// required. The first wave still returns one job per input, per the
// null-build compatibility contract, but it is marked Skip.
func TestNullBuildSchedulesNothing(t *testing.T) {
	dir := t.TempDir()
	objPath := filepath.Join(dir, "main.o")
	writeFile(t, objPath, "object")

	om := moduleWideMap()
	om.Set("main.swift", outputmap.Object, objPath)

	startTime := time.Unix(1000, 0)
	prev := buildrecord.New("v1", "hash")
	prev.StartTime = FromTime(startTime)
	prev.Inputs["main.swift"] = buildrecord.InputInfo{Status: buildrecord.UpToDate, PreviousModTime: FromTime(startTime.Add(-2 * time.Second))}

	inputs := []Input{NewInput("main.swift", startTime.Add(-time.Second))}
	p := New(inputs, om, prev, mdg.New(), "hash", Config{}, report.New(nil))
	if p.Disabled() {
		t.Fatalf("expected incremental mode to stay enabled, got disabled: %s", p.DisabledReason())
	}

	jobs, err := p.FirstWave(nil, nil)
	if err != nil {
		t.Fatalf("FirstWave: %v", err)
	}
	if len(jobs) != 1 || !jobs[0].Skip {
		t.Fatalf("expected one skip-marked compile job on a null build, got %v", jobs)
	}

	final := p.Finalize(true)
	if final != nil {
		t.Fatalf("expected Finalize to skip link/autolink on a null build, got %v", final)
	}
}

// TestTouchedInputGetsScheduled models scenario 3: an input whose mtime
// moved forward past the build record's start_time is scheduled even
// though its recorded status was UpToDate.
func TestTouchedInputGetsScheduled(t *testing.T) {
	startTime := time.Unix(1000, 0)
	prev := buildrecord.New("v1", "hash")
	prev.StartTime = FromTime(startTime)
	prev.Inputs["main.swift"] = buildrecord.InputInfo{Status: buildrecord.UpToDate, PreviousModTime: FromTime(startTime.Add(-time.Second))}

	inputs := []Input{NewInput("main.swift", startTime.Add(time.Second))}
	p := New(inputs, moduleWideMap(), prev, mdg.New(), "hash", Config{}, report.New(nil))

	jobs, err := p.FirstWave(nil, nil)
	if err != nil {
		t.Fatalf("FirstWave: %v", err)
	}
	if len(jobs) != 1 || jobs[0].Skip {
		t.Fatalf("expected the touched input to be scheduled (not skipped), got %v", jobs)
	}
}

func sfdgFor(source, defines, fp string) *sfdg.Graph {
	g := sfdg.NewGraph(source)
	g.SetSourceFingerprint("fp-" + source)
	sym := g.Strings.Intern(defines)
	g.AddDefinition(depkey.DependencyKey{Aspect: depkey.Interface, Designator: depkey.TopLevel(sym)}, fp, true)
	g.AddDefinition(depkey.DependencyKey{Aspect: depkey.Implementation, Designator: depkey.TopLevel(sym)}, fp, true)
	g.Resolve()
	return g
}

func sfdgUsing(source, defines, uses string) *sfdg.Graph {
	g := sfdg.NewGraph(source)
	g.SetSourceFingerprint("fp-" + source)
	bar := g.Strings.Intern(defines)
	foo := g.Strings.Intern(uses)
	g.AddDefinition(depkey.DependencyKey{Aspect: depkey.Interface, Designator: depkey.TopLevel(bar)}, "fp-bar-v1", true)
	g.AddDefinition(depkey.DependencyKey{Aspect: depkey.Implementation, Designator: depkey.TopLevel(bar)}, "fp-bar-v1", true)
	g.AddUse(depkey.DependencyKey{Aspect: depkey.Interface, Designator: depkey.TopLevel(foo)})
	g.AddUse(depkey.DependencyKey{Aspect: depkey.Implementation, Designator: depkey.TopLevel(foo)})
	g.Resolve()
	return g
}

// TestAfterCompileSchedulesDependent models scenario 4: main.swift's
// symbol changes, and AfterCompile must schedule other.swift (which uses
// it) as a follow-up compile.
func TestAfterCompileSchedulesDependent(t *testing.T) {
	g := mdg.New()
	if _, err := g.Integrate(sfdgFor("main.swift", "foo", "fp-foo-v1"), "main.swift"); err != nil {
		t.Fatalf("seed main.swift: %v", err)
	}
	if _, err := g.Integrate(sfdgUsing("other.swift", "bar", "foo"), "other.swift"); err != nil {
		t.Fatalf("seed other.swift: %v", err)
	}

	prev := buildrecord.New("v1", "hash")
	inputs := []Input{NewInput("main.swift", time.Time{}), NewInput("other.swift", time.Time{})}
	p := New(inputs, moduleWideMap(), prev, g, "hash", Config{}, report.New(nil))

	jobs := p.AfterCompile("main.swift", sfdgFor("main.swift", "foo", "fp-foo-v2"), true)
	if len(jobs) != 1 || jobs[0].Input != "other.swift" {
		t.Fatalf("expected other.swift to be scheduled, got %v", jobs)
	}
}

// TestAfterCompileSFDGReadFailureDisablesIncremental models the
// conservative failure mode in §4.I: an unreadable SFDG forces every
// remaining input to be (re)compiled.
func TestAfterCompileSFDGReadFailureDisablesIncremental(t *testing.T) {
	g := mdg.New()
	prev := buildrecord.New("v1", "hash")
	inputs := []Input{NewInput("main.swift", time.Time{}), NewInput("other.swift", time.Time{})}
	p := New(inputs, moduleWideMap(), prev, g, "hash", Config{}, report.New(nil))

	jobs := p.AfterCompile("main.swift", nil, false)
	if !p.Disabled() {
		t.Fatal("expected an SFDG read failure to disable incremental mode")
	}
	if len(jobs) != 1 || jobs[0].Input != "other.swift" {
		t.Fatalf("expected every other outstanding input to be scheduled, got %v", jobs)
	}
}

func TestFinalizeRunsLinkWhenSomethingCompiled(t *testing.T) {
	prev := buildrecord.New("v1", "hash")
	p := New([]Input{NewInput("main.swift", time.Time{})}, moduleWideMap(), prev, mdg.New(), "hash", Config{}, report.New(nil))
	p.compiled["main.swift"] = true

	jobs := p.Finalize(true)
	if len(jobs) != 2 {
		t.Fatalf("expected link + autolink-extract jobs, got %v", jobs)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing fixture file: %v", err)
	}
}
