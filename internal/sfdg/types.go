// Package sfdg implements the source-file dependency graph: the per-
// compilation-unit node/edge graph produced by the frontend for a single
// input, together with its binary reader and writer.
package sfdg

import (
	"sort"

	"incdriver/internal/depkey"
	"incdriver/internal/ids"
)

// Node is one record of a Graph: a sequence number, its DependencyKey, an
// optional fingerprint, its role (definition or use), and — once resolved
// — the sequence numbers of the definitions it depends on.
type Node struct {
	Sequence       uint32
	Key            depkey.DependencyKey
	Fingerprint    ids.StringId
	HasFingerprint bool
	Role           depkey.Role
	DependsOn      []uint32
}

// Graph is one source file's dependency summary: an ordered list of nodes
// sharing a single interned string table. Sequence numbers 0 and 1 are
// always the interface and implementation aspects of the file's own
// SourceFileProvide node.
type Graph struct {
	Strings   *ids.Table
	SourceName string
	Nodes     []Node
}

// NewGraph starts an empty graph for the compilation unit named
// sourceName, pre-populating nodes 0 and 1 with its SourceFileProvide
// aspects as the invariant in §3 requires.
func NewGraph(sourceName string) *Graph {
	tbl := ids.New()
	name := tbl.Intern(sourceName)
	g := &Graph{Strings: tbl, SourceName: sourceName}
	g.Nodes = append(g.Nodes,
		Node{Sequence: 0, Key: depkey.DependencyKey{Aspect: depkey.Interface, Designator: depkey.SourceFileProvide(name)}, Role: depkey.Definition},
		Node{Sequence: 1, Key: depkey.DependencyKey{Aspect: depkey.Implementation, Designator: depkey.SourceFileProvide(name)}, Role: depkey.Definition},
	)
	return g
}

// SetSourceFingerprint backfills the interface and implementation
// SourceFileProvide nodes (sequence 0 and 1) with the whole-file fingerprint
// the frontend computed for this compilation unit. Without it, those nodes
// are treated as unfingerprinted and, per the absence-of-fingerprint rule,
// always counted as changed on every integration.
func (g *Graph) SetSourceFingerprint(fingerprint string) {
	id := g.Strings.Intern(fingerprint)
	g.Nodes[0].Fingerprint = id
	g.Nodes[0].HasFingerprint = true
	g.Nodes[1].Fingerprint = id
	g.Nodes[1].HasFingerprint = true
}

// AddDefinition appends a Definition-role node for key, with an optional
// fingerprint (fingerprint == "" and hasFingerprint == false means the
// definition cannot be fingerprinted precisely).
func (g *Graph) AddDefinition(key depkey.DependencyKey, fingerprint string, hasFingerprint bool) uint32 {
	return g.addNode(key, fingerprint, hasFingerprint, depkey.Definition)
}

// AddUse appends a Use-role node for key. Uses never carry a fingerprint of
// their own; DependsOn is populated later, by Resolve.
func (g *Graph) AddUse(key depkey.DependencyKey) uint32 {
	return g.addNode(key, "", false, depkey.Use)
}

func (g *Graph) addNode(key depkey.DependencyKey, fingerprint string, hasFingerprint bool, role depkey.Role) uint32 {
	seq := uint32(len(g.Nodes))
	n := Node{Sequence: seq, Key: key, Role: role}
	if hasFingerprint {
		n.Fingerprint = g.Strings.Intern(fingerprint)
		n.HasFingerprint = true
	}
	g.Nodes = append(g.Nodes, n)
	return seq
}

// Resolve computes DependsOn for every Use node: per the reader
// specification, a Use node with (aspect A, designator D) depends on every
// Definition node with the same designator D and the opposite aspect.
// Call once after all nodes have been added (the writer and reader both
// call it — the writer to validate, the reader to materialize edges after
// EOF).
func (g *Graph) Resolve() {
	type defKey struct {
		aspect depkey.Aspect
		d      depkey.Designator
	}
	defsByKey := make(map[defKey][]uint32)
	for _, n := range g.Nodes {
		if n.Role == depkey.Definition {
			k := defKey{aspect: n.Key.Aspect, d: n.Key.Designator}
			defsByKey[k] = append(defsByKey[k], n.Sequence)
		}
	}
	for i := range g.Nodes {
		n := &g.Nodes[i]
		if n.Role != depkey.Use {
			continue
		}
		k := defKey{aspect: depkey.OppositeAspect(n.Key.Aspect), d: n.Key.Designator}
		matches := defsByKey[k]
		if len(matches) == 0 {
			n.DependsOn = nil
			continue
		}
		out := make([]uint32, len(matches))
		copy(out, matches)
		sort.Slice(out, func(a, b int) bool { return out[a] < out[b] })
		n.DependsOn = out
	}
}

// NodesByRole returns the nodes with the given role, in sequence order.
func (g *Graph) NodesByRole(role depkey.Role) []Node {
	var out []Node
	for _, n := range g.Nodes {
		if n.Role == role {
			out = append(out, n)
		}
	}
	return out
}

// Equal reports whether two graphs describe the same node multiset:
// same (aspect, designator, role, fingerprint) nodes, irrespective of
// sequence-number renumbering, per the round-trip law in the
// testable-properties section. DependsOn edges are not compared; Resolve
// derives them from the node set.
func Equal(a, b *Graph) bool {
	if len(a.Nodes) != len(b.Nodes) {
		return false
	}
	af := canonicalNodeSet(a)
	bf := canonicalNodeSet(b)
	if len(af) != len(bf) {
		return false
	}
	for k, av := range af {
		bv, ok := bf[k]
		if !ok || av != bv {
			return false
		}
	}
	return true
}

type canonNode struct {
	aspect      depkey.Aspect
	tag         depkey.DesignatorTag
	context     string
	name        string
	role        depkey.Role
	fingerprint string
	hasFp       bool
}

func canonicalNodeSet(g *Graph) map[canonNode]int {
	out := make(map[canonNode]int, len(g.Nodes))
	for _, n := range g.Nodes {
		cn := canonNode{
			aspect: n.Key.Aspect,
			tag:    n.Key.Designator.Tag,
			role:   n.Role,
			hasFp:  n.HasFingerprint,
		}
		if s, ok := g.Strings.TryLookup(n.Key.Designator.Context); ok {
			cn.context = s
		}
		if s, ok := g.Strings.TryLookup(n.Key.Designator.Name); ok {
			cn.name = s
		}
		if n.HasFingerprint {
			if s, ok := g.Strings.TryLookup(n.Fingerprint); ok {
				cn.fingerprint = s
			}
		}
		out[cn]++
	}
	return out
}
