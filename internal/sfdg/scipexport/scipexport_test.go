package scipexport

import (
	"testing"

	"incdriver/internal/depkey"
	"incdriver/internal/mdg"
	"incdriver/internal/sfdg"
)

// graphFor builds an SFDG the way main.swift ("let foo = 1") would produce
// one, mirroring the fixture mdg's own tests use.
func graphFor(source, name, fingerprint string) *sfdg.Graph {
	g := sfdg.NewGraph(source)
	g.SetSourceFingerprint("fp-" + source)
	sym := g.Strings.Intern(name)
	g.AddDefinition(depkey.DependencyKey{Aspect: depkey.Interface, Designator: depkey.TopLevel(sym)}, fingerprint, true)
	g.AddDefinition(depkey.DependencyKey{Aspect: depkey.Implementation, Designator: depkey.TopLevel(sym)}, fingerprint, true)
	g.Resolve()
	return g
}

func TestExportOneDocumentPerSource(t *testing.T) {
	m := mdg.New()
	if _, err := m.Integrate(graphFor("main.swift", "foo", "fp-foo-v1"), "main.swift"); err != nil {
		t.Fatalf("integrate main.swift: %v", err)
	}

	index := Export(m, "/repo")
	if index.Metadata.ProjectRoot != "/repo" {
		t.Fatalf("expected project root /repo, got %q", index.Metadata.ProjectRoot)
	}
	if index.Metadata.ToolInfo.Name != ToolName {
		t.Fatalf("expected tool name %q, got %q", ToolName, index.Metadata.ToolInfo.Name)
	}
	if len(index.Documents) != 1 {
		t.Fatalf("expected 1 document, got %d", len(index.Documents))
	}
	doc := index.Documents[0]
	if doc.RelativePath != "main.swift" {
		t.Fatalf("expected document for main.swift, got %q", doc.RelativePath)
	}
	// foo's interface + implementation definitions, plus the source file's
	// own PROVIDES_SOURCE_FILE pair, matches graphFor's 4-node yield.
	if len(doc.Occurrences) != 4 {
		t.Fatalf("expected 4 occurrences, got %d", len(doc.Occurrences))
	}
	if len(doc.Symbols) != len(doc.Occurrences) {
		t.Fatalf("expected one symbol per occurrence, got %d symbols for %d occurrences", len(doc.Symbols), len(doc.Occurrences))
	}
}

func TestExportSkipsExpatNodes(t *testing.T) {
	m := mdg.New()
	// other.swift uses foo before any source ever defines it. The
	// unresolved use leaves an expat (HasSource = false) node for foo
	// itself, plus a HasSource = true use-marker node attributed back to
	// other.swift alongside its two PROVIDES_SOURCE_FILE nodes.
	g := sfdg.NewGraph("other.swift")
	g.SetSourceFingerprint("fp-other.swift")
	foo := g.Strings.Intern("foo")
	g.AddUse(depkey.DependencyKey{Aspect: depkey.Interface, Designator: depkey.TopLevel(foo)})
	g.Resolve()
	if _, err := m.Integrate(g, "other.swift"); err != nil {
		t.Fatalf("integrate other.swift: %v", err)
	}

	index := Export(m, "/repo")
	if len(index.Documents) != 1 {
		t.Fatalf("expected 1 document, got %d", len(index.Documents))
	}
	// The expat node for foo has no owning source and contributes no
	// document; other.swift's own occurrences are its 2 source-file
	// nodes plus its 1 use-marker node for foo.
	if len(index.Documents[0].Occurrences) != 3 {
		t.Fatalf("expected 3 occurrences, got %d", len(index.Documents[0].Occurrences))
	}
}

func TestExportOrdersDocumentsBySourcePath(t *testing.T) {
	m := mdg.New()
	if _, err := m.Integrate(graphFor("zeta.swift", "z", "fp-z-v1"), "zeta.swift"); err != nil {
		t.Fatalf("integrate zeta.swift: %v", err)
	}
	if _, err := m.Integrate(graphFor("alpha.swift", "a", "fp-a-v1"), "alpha.swift"); err != nil {
		t.Fatalf("integrate alpha.swift: %v", err)
	}

	index := Export(m, "/repo")
	if len(index.Documents) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(index.Documents))
	}
	if index.Documents[0].RelativePath != "alpha.swift" || index.Documents[1].RelativePath != "zeta.swift" {
		t.Fatalf("expected documents sorted by path, got [%s, %s]", index.Documents[0].RelativePath, index.Documents[1].RelativePath)
	}
}

func TestMarshalRoundTrips(t *testing.T) {
	m := mdg.New()
	if _, err := m.Integrate(graphFor("main.swift", "foo", "fp-foo-v1"), "main.swift"); err != nil {
		t.Fatalf("integrate main.swift: %v", err)
	}
	data, err := Marshal(Export(m, "/repo"))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("expected non-empty marshaled index")
	}
}
