package mdgstore

import (
	"path/filepath"
	"testing"

	"incdriver/internal/depkey"
	"incdriver/internal/mdg"
)

func TestWriteReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "priors.db")

	store, err := Open(path, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	snapshot := mdg.Snapshot{
		Nodes: []mdg.SnapshotNode{
			{Aspect: depkey.Interface, Tag: depkey.TagTopLevel, Name: "foo", HasSource: true, Source: "main.swift", HasFingerprint: true, Fingerprint: "abc"},
			{Aspect: depkey.Interface, Tag: depkey.TagTopLevel, Name: "bar", HasSource: true, Source: "other.swift"},
		},
		Edges: []mdg.SnapshotEdge{{Def: 0, Use: 1}},
	}

	if err := store.Write(snapshot, "swift-driver-1.0"); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, compilerVersion, ok, err := store.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !ok {
		t.Fatal("expected priors to be present")
	}
	if compilerVersion != "swift-driver-1.0" {
		t.Fatalf("unexpected compiler version: %s", compilerVersion)
	}
	if len(got.Nodes) != 2 || len(got.Edges) != 1 {
		t.Fatalf("unexpected snapshot shape: %+v", got)
	}
	if got.Nodes[0].Fingerprint != "abc" {
		t.Fatalf("unexpected fingerprint: %+v", got.Nodes[0])
	}
}

func TestReadEmptyStoreReportsAbsent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "priors.db")
	store, err := Open(path, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	_, _, ok, err := store.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if ok {
		t.Fatal("expected no priors in a fresh store")
	}
}
