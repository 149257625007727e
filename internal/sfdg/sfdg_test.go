package sfdg

import (
	"testing"

	"incdriver/internal/depkey"
)

// buildMainGraph models `main.swift` containing `let foo = 1`: it provides
// a top-level symbol `foo` in both aspects.
func buildMainGraph() *Graph {
	g := NewGraph("main.swift")
	foo := g.Strings.Intern("foo")
	g.AddDefinition(depkey.DependencyKey{Aspect: depkey.Interface, Designator: depkey.TopLevel(foo)}, "fp-foo-v1", true)
	g.AddDefinition(depkey.DependencyKey{Aspect: depkey.Implementation, Designator: depkey.TopLevel(foo)}, "fp-foo-v1", true)
	g.Resolve()
	return g
}

// buildOtherGraph models `other.swift` containing `let bar = foo`: it
// provides `bar` and uses `foo` in both aspects. foo is defined in
// main.swift, and Resolve only links uses to definitions in the same
// graph, so these two uses are left with no DependsOn here.
func buildOtherGraph() *Graph {
	g := NewGraph("other.swift")
	bar := g.Strings.Intern("bar")
	foo := g.Strings.Intern("foo")
	g.AddDefinition(depkey.DependencyKey{Aspect: depkey.Interface, Designator: depkey.TopLevel(bar)}, "fp-bar-v1", true)
	g.AddDefinition(depkey.DependencyKey{Aspect: depkey.Implementation, Designator: depkey.TopLevel(bar)}, "fp-bar-v1", true)
	g.AddUse(depkey.DependencyKey{Aspect: depkey.Interface, Designator: depkey.TopLevel(foo)})
	g.AddUse(depkey.DependencyKey{Aspect: depkey.Implementation, Designator: depkey.TopLevel(foo)})
	g.Resolve()
	return g
}

func TestRoundTrip(t *testing.T) {
	for name, build := range map[string]func() *Graph{
		"main":  buildMainGraph,
		"other": buildOtherGraph,
	} {
		t.Run(name, func(t *testing.T) {
			g := build()
			data, err := Marshal(g, "test-compiler-1.0")
			if err != nil {
				t.Fatalf("Marshal: %v", err)
			}
			got, err := Unmarshal(data)
			if err != nil {
				t.Fatalf("Unmarshal: %v", err)
			}
			if !Equal(g, got) {
				t.Fatalf("round-tripped graph is not isomorphic to the original")
			}
		})
	}
}

func TestResolveLinksUseToOppositeAspectDefinition(t *testing.T) {
	// Give other.swift its own definitions of foo so its uses have
	// same-graph, opposite-aspect definitions to resolve against.
	g := buildOtherGraph()
	foo := g.Strings.Intern("foo")
	g.AddDefinition(depkey.DependencyKey{Aspect: depkey.Interface, Designator: depkey.TopLevel(foo)}, "fp-foo-v1", true)
	g.AddDefinition(depkey.DependencyKey{Aspect: depkey.Implementation, Designator: depkey.TopLevel(foo)}, "fp-foo-v1", true)
	g.Resolve()
	var useIfc, useImpl *Node
	for i := range g.Nodes {
		n := &g.Nodes[i]
		if n.Role != depkey.Use || n.Key.Designator.Tag != depkey.TagTopLevel {
			continue
		}
		if n.Key.Aspect == depkey.Interface {
			useIfc = n
		} else {
			useImpl = n
		}
	}
	if useIfc == nil || useImpl == nil {
		t.Fatalf("expected two use nodes for foo")
	}
	if len(useIfc.DependsOn) == 0 {
		t.Fatalf("expected interface-aspect use of foo to depend on something")
	}
	if len(useImpl.DependsOn) == 0 {
		t.Fatalf("expected implementation-aspect use of foo to depend on something")
	}
}

func TestRejectsWrongMajorVersion(t *testing.T) {
	g := buildMainGraph()
	data, err := Marshal(g, "test-compiler-1.0")
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	// Corrupt the major version field (bytes 1..4, little-endian, right
	// after the METADATA record code).
	data[1] = 9

	if _, err := Unmarshal(data); err == nil {
		t.Fatalf("expected error reading a graph with an unsupported major version")
	}
}

func TestRejectsTruncatedStream(t *testing.T) {
	g := buildMainGraph()
	data, err := Marshal(g, "test-compiler-1.0")
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	truncated := data[:len(data)-20]
	if _, err := Unmarshal(truncated); err == nil {
		t.Fatalf("expected truncated stream to fail to parse")
	}
}

func TestInvariantViolationMissingImplementationPair(t *testing.T) {
	g := NewGraph("bad.swift")
	foo := g.Strings.Intern("foo")
	// Only an interface-aspect provider, no implementation pair: should
	// fail verify() on read.
	g.AddDefinition(depkey.DependencyKey{Aspect: depkey.Interface, Designator: depkey.TopLevel(foo)}, "", false)
	g.Resolve()

	data, err := Marshal(g, "test-compiler-1.0")
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if _, err := Unmarshal(data); err == nil {
		t.Fatalf("expected invariant violation for unmatched interface provider")
	}
}

func TestStandaloneFingerprintRecordAttaches(t *testing.T) {
	g := buildMainGraph()
	data, err := Marshal(g, "test-compiler-1.0")
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	// Append a standalone FINGERPRINT_NODE record (code, then a
	// length-prefixed blob); the reader attaches it to the last node.
	data = append(data, codeFingerprint, 11, 0, 0, 0)
	data = append(data, "fp-override"...)
	got, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	for _, n := range got.Nodes {
		if n.Key.Designator.Tag == depkey.TagTopLevel && n.Role == depkey.Definition {
			if !n.HasFingerprint {
				t.Fatalf("expected TopLevel definition to carry a fingerprint")
			}
		}
	}
	last := got.Nodes[len(got.Nodes)-1]
	if !last.HasFingerprint || got.Strings.Lookup(last.Fingerprint) != "fp-override" {
		t.Fatalf("expected the standalone record's fingerprint on the last node")
	}
}
