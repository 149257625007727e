package modulebuild

import (
	"testing"

	"incdriver/internal/imdg"
)

func buildScenario6() *imdg.Graph {
	main := imdg.ModuleId{Kind: imdg.Swift, Name: "Main"}
	g := imdg.ModuleId{Kind: imdg.Swift, Name: "G"}
	h := imdg.ModuleId{Kind: imdg.Swift, Name: "H"}
	j := imdg.ModuleId{Kind: imdg.Swift, Name: "J"}
	tm := imdg.ModuleId{Kind: imdg.Swift, Name: "T"}
	y := imdg.ModuleId{Kind: imdg.Swift, Name: "Y"}

	graph := imdg.New(main)
	mk := func(id imdg.ModuleId, iface string, deps ...imdg.ModuleId) *imdg.ModuleInfo {
		m := &imdg.ModuleInfo{
			ID:                 id,
			ModulePath:         "/build/" + id.Name + ".swiftmodule",
			DirectDependencies: make(map[imdg.ModuleId]bool),
			Details:            imdg.Details{Swift: imdg.SwiftDetails{InterfacePath: iface}},
		}
		for _, d := range deps {
			m.DirectDependencies[d] = true
		}
		return m
	}
	graph.AddModule(mk(main, "", h, tm, y))
	graph.AddModule(mk(h, "/src/H.swiftinterface", j))
	graph.AddModule(mk(j, "/src/J.swiftinterface", g))
	graph.AddModule(mk(tm, "/src/T.swiftinterface", g))
	graph.AddModule(mk(y, "/src/Y.swiftinterface", g))
	graph.AddModule(mk(g, "/src/G.swiftinterface"))
	return graph
}

func TestPlanEmitsOneJobPerNonMainModule(t *testing.T) {
	graph := buildScenario6()
	jobs, err := Plan(graph, Options{}, nil)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(jobs) != 5 {
		t.Fatalf("expected 5 module-build jobs (G,H,J,T,Y), got %d", len(jobs))
	}
}

func TestPlanRejectsPlaceholder(t *testing.T) {
	main := imdg.ModuleId{Kind: imdg.Swift, Name: "Main"}
	graph := imdg.New(main)
	graph.AddModule(&imdg.ModuleInfo{ID: main, DirectDependencies: map[imdg.ModuleId]bool{}})
	graph.AddModule(&imdg.ModuleInfo{ID: imdg.ModuleId{Kind: imdg.SwiftPlaceholder, Name: "P"}, DirectDependencies: map[imdg.ModuleId]bool{}})

	if _, err := Plan(graph, Options{}, nil); err == nil {
		t.Fatal("expected error for placeholder module")
	}
}

func TestPlanDisablesImplicitModules(t *testing.T) {
	graph := buildScenario6()
	jobs, err := Plan(graph, Options{}, nil)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	for _, job := range jobs {
		found := false
		for _, arg := range job.Arguments {
			if arg == "-disable-implicit-swift-modules" {
				found = true
			}
		}
		if !found {
			t.Fatalf("job for %s missing -disable-implicit-swift-modules: %v", job.Module, job.Arguments)
		}
	}
}

func TestPlanAddsCacheKeyFlags(t *testing.T) {
	graph := buildScenario6()
	keys := CacheKeys{
		{Kind: imdg.Swift, Name: "G"}: "key-g",
	}
	jobs, err := Plan(graph, Options{CachingEnabled: true}, keys)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	foundCacheKeyFlag := false
	for _, job := range jobs {
		for i, arg := range job.Arguments {
			if arg == "-swift-module-file-cache-key" && i+1 < len(job.Arguments) && job.Arguments[i+1] == "G=key-g" {
				foundCacheKeyFlag = true
			}
		}
	}
	if !foundCacheKeyFlag {
		t.Fatal("expected a downstream consumer to carry G's cache key flag")
	}
}
