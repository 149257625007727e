// Package outputmap implements the output-file-map: a mapping from
// (input, artifact-kind) to output path, with a distinguished module-wide
// entry keyed by the empty string. Its presence (and the presence of the
// module-wide entry specifically) is the first pre-flight gate for
// incremental mode.
package outputmap

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// ArtifactKind names one of the recognized output-file-map artifact kinds.
type ArtifactKind string

const (
	Object            ArtifactKind = "object"
	SwiftModule        ArtifactKind = "swiftmodule"
	SwiftInterface     ArtifactKind = "swiftinterface"
	SwiftDependencies  ArtifactKind = "swift-dependencies"
	Dependencies       ArtifactKind = "dependencies"
	PCH                ArtifactKind = "pch"
)

// ModuleWideKey is the distinguished empty-string input key whose
// "swift-dependencies" entry is the module-wide dependencies path.
const ModuleWideKey = ""

// Map is an output-file-map: input path -> artifact kind -> output path.
type Map struct {
	entries map[string]map[ArtifactKind]string
}

// New returns an empty Map.
func New() *Map {
	return &Map{entries: make(map[string]map[ArtifactKind]string)}
}

// Set records the output path for (input, kind).
func (m *Map) Set(input string, kind ArtifactKind, output string) {
	if m.entries[input] == nil {
		m.entries[input] = make(map[ArtifactKind]string)
	}
	m.entries[input][kind] = output
}

// Lookup returns the output path for (input, kind).
func (m *Map) Lookup(input string, kind ArtifactKind) (string, bool) {
	kinds, ok := m.entries[input]
	if !ok {
		return "", false
	}
	out, ok := kinds[kind]
	return out, ok
}

// HasModuleWideEntry reports whether the distinguished module-wide entry
// (empty-string input, "swift-dependencies" kind) is present. Its absence
// is pre-flight gate #1: disable incremental mode entirely.
func (m *Map) HasModuleWideEntry() bool {
	_, ok := m.Lookup(ModuleWideKey, SwiftDependencies)
	return ok
}

// ModuleWideDependenciesPath returns the module-wide dependencies path, if
// present.
func (m *Map) ModuleWideDependenciesPath() (string, bool) {
	return m.Lookup(ModuleWideKey, SwiftDependencies)
}

// Inputs returns every input key present in the map, sorted, excluding the
// module-wide empty-string key.
func (m *Map) Inputs() []string {
	out := make([]string, 0, len(m.entries))
	for k := range m.entries {
		if k == ModuleWideKey {
			continue
		}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// rawDoc mirrors the on-disk JSON-like shape:
// { "<input path>": { "<artifact kind>": "<output path>", ... }, "": {...} }
type rawDoc map[string]map[string]string

// Parse decodes an output-file-map document from JSON bytes.
func Parse(data []byte) (*Map, error) {
	var raw rawDoc
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing output file map: %w", err)
	}
	m := New()
	for input, kinds := range raw {
		for kind, output := range kinds {
			m.Set(input, ArtifactKind(kind), output)
		}
	}
	return m, nil
}

// Load reads and parses an output-file-map from path. A missing or
// unreadable file is reported to the caller so the planner can disable
// incremental mode with the appropriate remark rather than treating it as
// a fatal driver error.
func Load(path string) (*Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Marshal renders the map back to its canonical JSON form, with sorted
// input keys so output is byte-stable across runs.
func (m *Map) Marshal() ([]byte, error) {
	raw := make(rawDoc, len(m.entries))
	for input, kinds := range m.entries {
		kindMap := make(map[string]string, len(kinds))
		for kind, out := range kinds {
			kindMap[string(kind)] = out
		}
		raw[input] = kindMap
	}
	return json.MarshalIndent(raw, "", "  ")
}
