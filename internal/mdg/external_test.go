package mdg

import (
	"testing"

	"incdriver/internal/depkey"
	"incdriver/internal/sfdg"
)

func graphUsingExternal(source, path string) *sfdg.Graph {
	g := sfdg.NewGraph(source)
	g.SetSourceFingerprint("fp-" + source)
	p := g.Strings.Intern(path)
	g.AddUse(depkey.DependencyKey{Aspect: depkey.Interface, Designator: depkey.ExternalDepend(p)})
	g.Resolve()
	return g
}

func TestInvalidateExternalFirstProbeNoPriorNode(t *testing.T) {
	g := New()
	change := g.InvalidateExternal("Foundation.swiftmodule", "hash-1", true, false)
	if change.Changed {
		t.Fatal("expected no change for a path with no existing MDG node")
	}
}

func TestInvalidateExternalChangedFingerprintInvalidatesUses(t *testing.T) {
	g := New()
	sfg := graphUsingExternal("main.swift", "Foundation.swiftmodule")
	if _, err := g.Integrate(sfg, "main.swift"); err != nil {
		t.Fatalf("Integrate: %v", err)
	}

	change := g.InvalidateExternal("Foundation.swiftmodule", "hash-2", true, false)
	if !change.Changed {
		t.Fatal("expected a fingerprint change to be detected")
	}
	if len(change.Sources) != 1 || change.Sources[0] != "main.swift" {
		t.Fatalf("expected main.swift to be invalidated, got %v", change.Sources)
	}

	// Re-probing with the same fingerprint now reports no change.
	change2 := g.InvalidateExternal("Foundation.swiftmodule", "hash-2", true, false)
	if change2.Changed {
		t.Fatal("expected stable fingerprint to report no change on second probe")
	}
}

func TestInvalidateExternalConservativeNoFingerprint(t *testing.T) {
	g := New()
	sfg := graphUsingExternal("main.swift", "legacy.swiftmodule")
	if _, err := g.Integrate(sfg, "main.swift"); err != nil {
		t.Fatalf("Integrate: %v", err)
	}

	noChange := g.InvalidateExternal("legacy.swiftmodule", "", false, false)
	if noChange.Changed {
		t.Fatal("expected no invalidation when mtime is not newer")
	}

	change := g.InvalidateExternal("legacy.swiftmodule", "", false, true)
	if !change.Changed {
		t.Fatal("expected conservative rule to invalidate on newer mtime with no fingerprint")
	}
}
