package scanner

import (
	"context"
	"testing"

	"incdriver/internal/imdg"
)

func TestScanDir_ModuleChain(t *testing.T) {
	s := New()
	g, err := s.ScanDir(context.Background(), "testdata/chain")
	if err != nil {
		t.Fatalf("ScanDir: %v", err)
	}

	want := []string{"G", "H", "J", "T", "Y"}
	for _, name := range want {
		if _, ok := g.Modules[imdg.ModuleId{Kind: imdg.Swift, Name: name}]; !ok {
			t.Errorf("missing module %s in scanned graph", name)
		}
	}

	reachable, err := g.ReachableFromMain()
	if err != nil {
		t.Fatalf("ReachableFromMain: %v", err)
	}
	if !reachable[imdg.ModuleId{Kind: imdg.Swift, Name: "G"}] {
		t.Errorf("expected G reachable from main via the chain, got %+v", reachable)
	}
}

func TestScanDir_MainOtherPair(t *testing.T) {
	s := New()
	g, err := s.ScanDir(context.Background(), "testdata/mainother")
	if err != nil {
		t.Fatalf("ScanDir: %v", err)
	}
	if g.MainModuleID.Name != "main" {
		t.Fatalf("expected main module id 'main', got %q", g.MainModuleID.Name)
	}
	other, ok := g.Modules[imdg.ModuleId{Kind: imdg.Swift, Name: "other"}]
	if !ok {
		t.Fatalf("expected 'other' module in graph")
	}
	if len(other.SourceFiles) != 1 {
		t.Errorf("expected one source file for other, got %d", len(other.SourceFiles))
	}
}

func TestDirScanner_ImplementsDriverInterface(t *testing.T) {
	ds := NewDirScanner("testdata/mainother")
	g, err := ds.Scan(context.Background(), nil)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(g.Modules) == 0 {
		t.Fatalf("expected modules from directory scan")
	}
}
