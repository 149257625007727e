// Package mdg implements the module dependency graph: the process-wide,
// fine-grained graph composed from per-source dependency summaries (SFDG),
// its invalidation engine, and its on-disk "priors" representation.
//
// Per the design notes, cyclic graph structure is stored as a flat node
// slice plus id-keyed adjacency maps rather than heap-allocated,
// mutually-referencing node objects.
package mdg

import (
	"sort"

	"incdriver/internal/depkey"
	"incdriver/internal/ids"
)

// NodeId is a dense identifier into Graph.nodes. Unlike ids.StringId, a
// NodeId is stable only for the lifetime of the in-memory Graph — it is
// never persisted; priors serialize nodes by (source, key) instead.
type NodeId uint32

// Node is one vertex of the MDG: a DependencyKey, an optional fingerprint,
// and the source that declared it, if any. A Node with no defining source
// is an "expat" node: a use that no currently-known source provides.
type Node struct {
	Key            depkey.DependencyKey
	Fingerprint    ids.StringId
	HasFingerprint bool
	Source         ids.StringId
	HasSource      bool
	Removed        bool
}

type nodeIdentity struct {
	hasSource bool
	source    ids.StringId
	key       depkey.DependencyKey
}

// Graph is the in-memory module dependency graph.
type Graph struct {
	Strings *ids.Table

	nodes  []Node
	index  map[nodeIdentity]NodeId
	usesOf map[NodeId][]NodeId // def -> uses
	defsOf map[NodeId][]NodeId // use -> defs

	// definersByKey indexes, for each canonical (string-resolved) key,
	// every source that currently provides a Definition node for it, in
	// sorted (deterministic) order — used by the integration algorithm's
	// "search all sources" step.
	definersByKey map[canonKey][]ids.StringId
}

// canonKey is a string-resolved form of DependencyKey used for
// cross-source definer lookup, since two sources' local designators must
// compare by content, not by per-call StringId (StringIds are always
// drawn from the same Graph.Strings table here, so in practice comparing
// depkey.DependencyKey directly would also work; canonKey exists to make
// that assumption explicit and survive a future change to per-source
// tables).
type canonKey struct {
	aspect  depkey.Aspect
	tag     depkey.DesignatorTag
	context string
	name    string
}

func (g *Graph) canon(k depkey.DependencyKey) canonKey {
	ctx, _ := g.Strings.TryLookup(k.Designator.Context)
	name, _ := g.Strings.TryLookup(k.Designator.Name)
	return canonKey{aspect: k.Aspect, tag: k.Designator.Tag, context: ctx, name: name}
}

// New returns an empty MDG with a fresh interned string table.
func New() *Graph {
	return &Graph{
		Strings:       ids.New(),
		index:         make(map[nodeIdentity]NodeId),
		usesOf:        make(map[NodeId][]NodeId),
		defsOf:        make(map[NodeId][]NodeId),
		definersByKey: make(map[canonKey][]ids.StringId),
	}
}

// Node returns the node for id. Callers must not retain indices across a
// call to a mutating method without re-validating Removed.
func (g *Graph) Node(id NodeId) Node { return g.nodes[id] }

// NodeCount returns the number of node slots, including removed ones
// (tombstones are kept so historical NodeIds remain meaningful within a
// single integration pass).
func (g *Graph) NodeCount() int { return len(g.nodes) }

// Uses returns the NodeIds that depend on def (edges def -> use).
func (g *Graph) Uses(def NodeId) []NodeId { return g.usesOf[def] }

// Defs returns the NodeIds that def depends on (reverse index; edges
// def -> use, looked up from the use side).
func (g *Graph) Defs(use NodeId) []NodeId { return g.defsOf[use] }

// getOrCreate returns the NodeId for (source, hasSource, key), creating a
// fresh node if none exists yet.
func (g *Graph) getOrCreate(key depkey.DependencyKey, source ids.StringId, hasSource bool) NodeId {
	var srcKey ids.StringId
	if hasSource {
		srcKey = source
	}
	identity := nodeIdentity{hasSource: hasSource, source: srcKey, key: key}
	if id, ok := g.index[identity]; ok {
		if g.nodes[id].Removed {
			g.nodes[id].Removed = false
		}
		return id
	}
	id := NodeId(len(g.nodes))
	g.nodes = append(g.nodes, Node{Key: key, Source: srcKey, HasSource: hasSource})
	g.index[identity] = id
	return id
}

func (g *Graph) addEdge(def, use NodeId) {
	for _, existing := range g.usesOf[def] {
		if existing == use {
			return
		}
	}
	g.usesOf[def] = append(g.usesOf[def], use)
	g.defsOf[use] = append(g.defsOf[use], def)
}

func (g *Graph) removeNode(id NodeId) {
	n := &g.nodes[id]
	n.Removed = true
	identity := nodeIdentity{hasSource: n.HasSource, source: n.Source, key: n.Key}
	delete(g.index, identity)
	if n.HasSource {
		// definersByKey is rebuilt lazily by recomputeDefiners after each
		// integration pass rather than incrementally maintained here, to
		// keep removal O(1) and avoid a second index invalidation path.
	}
	for _, use := range g.usesOf[id] {
		defs := g.defsOf[use]
		removeFromSlice(&defs, id)
		g.defsOf[use] = defs
	}
	delete(g.usesOf, id)
	for _, def := range g.defsOf[id] {
		uses := g.usesOf[def]
		removeFromSlice(&uses, id)
		g.usesOf[def] = uses
	}
	delete(g.defsOf, id)
}

func removeFromSlice(s *[]NodeId, v NodeId) {
	out := (*s)[:0]
	for _, x := range *s {
		if x != v {
			out = append(out, x)
		}
	}
	*s = out
}

func (g *Graph) recomputeDefiners() {
	g.definersByKey = make(map[canonKey][]ids.StringId)
	for _, n := range g.nodes {
		if n.Removed || !n.HasSource {
			continue
		}
		ck := g.canon(n.Key)
		g.definersByKey[ck] = append(g.definersByKey[ck], n.Source)
	}
	for k := range g.definersByKey {
		sort.Slice(g.definersByKey[k], func(i, j int) bool {
			return g.Strings.Lookup(g.definersByKey[k][i]) < g.Strings.Lookup(g.definersByKey[k][j])
		})
	}
}

// SourcesWithNodes returns every source currently known to the graph
// (i.e. that has at least one non-removed node), sorted.
func (g *Graph) SourcesWithNodes() []string {
	seen := make(map[string]bool)
	for _, n := range g.nodes {
		if n.Removed || !n.HasSource {
			continue
		}
		seen[g.Strings.Lookup(n.Source)] = true
	}
	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Live returns every non-removed node id, sorted by (aspect, designator)
// for deterministic iteration.
func (g *Graph) Live() []NodeId {
	var out []NodeId
	for i, n := range g.nodes {
		if !n.Removed {
			out = append(out, NodeId(i))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return g.nodes[out[i]].Key.Less(g.nodes[out[j]].Key)
	})
	return out
}
