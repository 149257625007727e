package mdg

import "testing"

func TestSnapshotRoundTrip(t *testing.T) {
	m := New()
	if _, err := m.Integrate(graphFor("main.swift", "foo", "fp-foo-v1"), "main.swift"); err != nil {
		t.Fatalf("integrate main.swift: %v", err)
	}
	if _, err := m.Integrate(otherGraphUsing("other.swift", "bar", "foo"), "other.swift"); err != nil {
		t.Fatalf("integrate other.swift: %v", err)
	}

	snap := m.Snapshot()
	restored := FromSnapshot(snap)

	if restored.NodeCount() != len(snap.Nodes) {
		t.Fatalf("expected %d nodes after restore, got %d", len(snap.Nodes), restored.NodeCount())
	}

	restoredSnap := restored.Snapshot()
	if len(restoredSnap.Nodes) != len(snap.Nodes) {
		t.Fatalf("re-snapshot node count mismatch: %d vs %d", len(restoredSnap.Nodes), len(snap.Nodes))
	}
	if len(restoredSnap.Edges) != len(snap.Edges) {
		t.Fatalf("re-snapshot edge count mismatch: %d vs %d", len(restoredSnap.Edges), len(snap.Edges))
	}

	seen := make(map[SnapshotNode]int)
	for _, n := range snap.Nodes {
		seen[n]++
	}
	for _, n := range restoredSnap.Nodes {
		seen[n]--
	}
	for n, count := range seen {
		if count != 0 {
			t.Fatalf("node multiset mismatch after round trip: %+v count %d", n, count)
		}
	}
}
