package imdg

import "testing"

func mkModule(id ModuleId, deps ...ModuleId) *ModuleInfo {
	m := &ModuleInfo{ID: id, DirectDependencies: make(map[ModuleId]bool)}
	for _, d := range deps {
		m.DirectDependencies[d] = true
	}
	return m
}

func TestClosureTransitiveAndNonReflexive(t *testing.T) {
	main := ModuleId{Kind: Swift, Name: "Main"}
	g := ModuleId{Kind: Swift, Name: "G"}
	h := ModuleId{Kind: Swift, Name: "H"}
	j := ModuleId{Kind: Swift, Name: "J"}

	graph := New(main)
	graph.AddModule(mkModule(main, h))
	graph.AddModule(mkModule(h, j))
	graph.AddModule(mkModule(j, g))
	graph.AddModule(mkModule(g))

	closure, err := graph.Closure()
	if err != nil {
		t.Fatalf("Closure: %v", err)
	}

	for _, id := range []ModuleId{main, h, j, g} {
		if closure[id][id] {
			t.Fatalf("module %v is in its own closure", id)
		}
	}

	mainClosure := closure[main]
	for _, want := range []ModuleId{h, j, g} {
		if !mainClosure[want] {
			t.Fatalf("expected %v in main's closure", want)
		}
	}
}

func TestClosureSupersetOfDirect(t *testing.T) {
	a := ModuleId{Kind: Swift, Name: "A"}
	b := ModuleId{Kind: Swift, Name: "B"}
	c := ModuleId{Kind: Swift, Name: "C"}

	graph := New(a)
	graph.AddModule(mkModule(a, b))
	graph.AddModule(mkModule(b, c))
	graph.AddModule(mkModule(c))

	closure, err := graph.Closure()
	if err != nil {
		t.Fatalf("Closure: %v", err)
	}
	for id, info := range graph.Modules {
		for dep := range info.DirectDependencies {
			if !closure[id][dep] {
				t.Fatalf("closure(%v) does not contain direct dep %v", id, dep)
			}
		}
	}
}

func TestClosureDetectsCycle(t *testing.T) {
	a := ModuleId{Kind: Swift, Name: "A"}
	b := ModuleId{Kind: Swift, Name: "B"}
	graph := New(a)
	graph.AddModule(mkModule(a, b))
	graph.AddModule(mkModule(b, a))

	if _, err := graph.Closure(); err == nil {
		t.Fatal("expected error on cyclic direct_dependencies")
	}
}

func TestHasPlaceholder(t *testing.T) {
	main := ModuleId{Kind: Swift, Name: "Main"}
	graph := New(main)
	graph.AddModule(mkModule(main))
	if graph.HasPlaceholder() {
		t.Fatal("unexpected placeholder")
	}
	graph.AddModule(mkModule(ModuleId{Kind: SwiftPlaceholder, Name: "P"}))
	if !graph.HasPlaceholder() {
		t.Fatal("expected placeholder to be detected")
	}
}
