package mdg

import (
	"incdriver/internal/depkey"
	"incdriver/internal/ids"
)

// Snapshot is a string-resolved, NodeId-independent view of a Graph,
// suitable for handing to a persistence layer that must not depend on
// mdg's internal representation. NodeIds are never persisted (per the
// doc comment on NodeId); Snapshot re-expresses edges as indices into its
// own Nodes slice instead.
type Snapshot struct {
	Nodes []SnapshotNode
	Edges []SnapshotEdge
}

// SnapshotNode is one MDG node with every field resolved to plain strings.
type SnapshotNode struct {
	Aspect         depkey.Aspect
	Tag            depkey.DesignatorTag
	Context        string
	Name           string
	HasSource      bool
	Source         string
	HasFingerprint bool
	Fingerprint    string
}

// SnapshotEdge is a def -> use edge, referencing positions in Snapshot.Nodes.
type SnapshotEdge struct {
	Def int
	Use int
}

// Snapshot exports the graph's live nodes and edges in a form with no
// dependency on NodeId or the interned string table.
func (g *Graph) Snapshot() Snapshot {
	live := g.Live()
	position := make(map[NodeId]int, len(live))
	for i, id := range live {
		position[id] = i
	}

	out := Snapshot{Nodes: make([]SnapshotNode, len(live))}
	for i, id := range live {
		n := g.nodes[id]
		sn := SnapshotNode{
			Aspect: n.Key.Aspect,
			Tag:    n.Key.Designator.Tag,
		}
		if s, ok := g.Strings.TryLookup(n.Key.Designator.Context); ok {
			sn.Context = s
		}
		if s, ok := g.Strings.TryLookup(n.Key.Designator.Name); ok {
			sn.Name = s
		}
		if n.HasSource {
			sn.HasSource = true
			sn.Source = g.Strings.Lookup(n.Source)
		}
		if n.HasFingerprint {
			sn.HasFingerprint = true
			sn.Fingerprint = g.Strings.Lookup(n.Fingerprint)
		}
		out.Nodes[i] = sn
	}

	for _, id := range live {
		for _, use := range g.usesOf[id] {
			if g.nodes[use].Removed {
				continue
			}
			out.Edges = append(out.Edges, SnapshotEdge{Def: position[id], Use: position[use]})
		}
	}
	return out
}

// FromSnapshot rebuilds a Graph from a Snapshot, interning every string
// into a fresh table. The resulting graph's definersByKey index is rebuilt
// before returning so findDefiner works immediately.
func FromSnapshot(s Snapshot) *Graph {
	g := New()
	nodeIds := make([]NodeId, len(s.Nodes))
	for i, sn := range s.Nodes {
		context := g.Strings.Intern(sn.Context)
		name := g.Strings.Intern(sn.Name)
		key := depkey.DependencyKey{Aspect: sn.Aspect, Designator: depkey.RawDesignator(sn.Tag, context, name)}
		var source ids.StringId
		if sn.HasSource {
			source = g.Strings.Intern(sn.Source)
		}
		id := g.getOrCreate(key, source, sn.HasSource)
		n := &g.nodes[id]
		if sn.HasFingerprint {
			n.HasFingerprint = true
			n.Fingerprint = g.Strings.Intern(sn.Fingerprint)
		}
		nodeIds[i] = id
	}
	for _, e := range s.Edges {
		g.addEdge(nodeIds[e.Def], nodeIds[e.Use])
	}
	g.recomputeDefiners()
	return g
}
