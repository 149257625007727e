package outputmap

import (
	"path/filepath"
	"testing"
)

func TestParseAndModuleWideEntry(t *testing.T) {
	doc := []byte(`{
		"main.swift": {"object": "main.o", "swiftmodule": "main.swiftmodule"},
		"": {"swift-dependencies": "main-build.swiftdeps"}
	}`)

	m, err := Parse(doc)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !m.HasModuleWideEntry() {
		t.Fatalf("expected module-wide entry to be present")
	}
	path, ok := m.ModuleWideDependenciesPath()
	if !ok || path != "main-build.swiftdeps" {
		t.Fatalf("ModuleWideDependenciesPath() = %q, %v", path, ok)
	}
	obj, ok := m.Lookup("main.swift", Object)
	if !ok || obj != "main.o" {
		t.Fatalf("Lookup(main.swift, object) = %q, %v", obj, ok)
	}
}

func TestMissingModuleWideEntryGate(t *testing.T) {
	m, err := Parse([]byte(`{"main.swift": {"object": "main.o"}}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if m.HasModuleWideEntry() {
		t.Fatalf("expected no module-wide entry")
	}
}

func TestInputsSorted(t *testing.T) {
	m := New()
	m.Set("b.swift", Object, "b.o")
	m.Set("a.swift", Object, "a.o")
	m.Set(ModuleWideKey, SwiftDependencies, "whole.swiftdeps")

	inputs := m.Inputs()
	if len(inputs) != 2 || inputs[0] != "a.swift" || inputs[1] != "b.swift" {
		t.Fatalf("Inputs() = %v", inputs)
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	m := New()
	m.Set("main.swift", Object, "main.o")
	m.Set(ModuleWideKey, SwiftDependencies, "whole.swiftdeps")

	data, err := m.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	reparsed, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse(Marshal()): %v", err)
	}
	if !reparsed.HasModuleWideEntry() {
		t.Fatalf("round-tripped map lost module-wide entry")
	}
	obj, ok := reparsed.Lookup("main.swift", Object)
	if !ok || obj != "main.o" {
		t.Fatalf("round-tripped map lost main.swift entry: %q %v", obj, ok)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatalf("expected error loading a missing output file map")
	}
}
