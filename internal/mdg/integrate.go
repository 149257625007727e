package mdg

import (
	"sort"

	"incdriver/internal/depkey"
	"incdriver/internal/errdefs"
	"incdriver/internal/ids"
	"incdriver/internal/sfdg"
)

// IntegrationResult is what Integrate returns: the designators that
// disappeared, changed, or were newly added for the integrated source (for
// diagnostics/remarks), and the set of other sources whose SFDGs must now
// be (re)compiled because something they depend on changed.
type IntegrationResult struct {
	Disappeared       []depkey.DependencyKey
	Changed           []depkey.DependencyKey
	Added             []depkey.DependencyKey
	InvalidatedSources []string

	// NeedsCascadingBuild reports whether this integration saw a changed
	// or newly-added interface-aspect definition with no fingerprint —
	// the case that can't be isolated from its siblings (§4.E). The
	// build record should mark this source's status accordingly so the
	// next build's classification schedules it unconditionally rather
	// than trusting its mtime.
	NeedsCascadingBuild bool
}

// Integrate implements §4.E's integration algorithm: it folds the new SFDG
// for source into the graph and returns the sources (other than source
// itself) that must be recompiled as a result.
func (g *Graph) Integrate(graph *sfdg.Graph, source string) (IntegrationResult, error) {
	srcId := g.Strings.Intern(source)
	result := IntegrationResult{}
	frontier := make(map[NodeId]bool)

	translated := make([]translatedNode, len(graph.Nodes))
	for i, n := range graph.Nodes {
		translated[i] = g.translate(graph, n)
	}

	// Step 1: remove nodes this source used to define that no longer
	// appear as Definitions in the new SFDG. Their dependents are pulled
	// into the frontier before the node itself is torn down.
	newDefKeys := make(map[depkey.DependencyKey]bool)
	for _, tn := range translated {
		if tn.role == depkey.Definition {
			newDefKeys[tn.key] = true
		}
	}
	var disappearedIds []NodeId
	for i, n := range g.nodes {
		if n.Removed || !n.HasSource || n.Source != srcId {
			continue
		}
		if !newDefKeys[n.Key] {
			disappearedIds = append(disappearedIds, NodeId(i))
			result.Disappeared = append(result.Disappeared, n.Key)
		}
	}
	for _, id := range disappearedIds {
		for _, use := range g.usesOf[id] {
			frontier[use] = true
		}
	}
	for _, id := range disappearedIds {
		g.removeNode(id)
	}

	// Step 2: definitions — add or update. A node's prior state must be
	// read before getOrCreate touches it, since getOrCreate both creates
	// new nodes and resurrects tombstoned ones.
	changedInterfaceNoFP := false
	for _, tn := range translated {
		if tn.role != depkey.Definition {
			continue
		}
		identity := nodeIdentity{hasSource: true, source: srcId, key: tn.key}
		_, existed := g.index[identity]

		id := g.getOrCreate(tn.key, srcId, true)
		n := &g.nodes[id]

		if !existed {
			result.Added = append(result.Added, tn.key)
			n.HasFingerprint = tn.hasFP
			n.Fingerprint = tn.fp
			frontier[id] = true
			if tn.key.Aspect == depkey.Interface && !tn.hasFP {
				changedInterfaceNoFP = true
			}
			continue
		}

		changed := !n.HasFingerprint || !tn.hasFP || n.Fingerprint != tn.fp
		n.HasFingerprint = tn.hasFP
		n.Fingerprint = tn.fp
		if changed {
			result.Changed = append(result.Changed, tn.key)
			frontier[id] = true
			if tn.key.Aspect == depkey.Interface && !tn.hasFP {
				changedInterfaceNoFP = true
			}
		}
	}

	g.recomputeDefiners()

	// Step 3: uses — wire the edge from the matching definition (search
	// order: this source, then any other known definer, then an expat
	// node with no source), then ensure a use-node exists. findDefiner
	// must run before getOrCreate creates the use-node: its own-source
	// check matches on (hasSource, source, key) identity, and if the
	// use-node existed first it would always match itself instead of a
	// genuine self-defined symbol.
	for _, tn := range translated {
		if tn.role != depkey.Use {
			continue
		}
		defId := g.findDefiner(tn.key, srcId)
		useId := g.getOrCreate(tn.key, srcId, true)
		g.addEdge(defId, useId)
	}

	// A changed or newly-added interface-aspect definition with no
	// fingerprint can't be isolated from its siblings: per §4.E, every
	// other interface-aspect node this source defines is conservatively
	// added to the frontier too.
	if changedInterfaceNoFP {
		for i, n := range g.nodes {
			if n.Removed || !n.HasSource || n.Source != srcId {
				continue
			}
			if n.Key.Aspect == depkey.Interface {
				frontier[NodeId(i)] = true
			}
		}
	}

	reached := g.propagateFrontier(frontier)

	invalidatedSet := make(map[string]bool)
	for id := range reached {
		n := g.nodes[id]
		if !n.HasSource {
			continue
		}
		srcName := g.Strings.Lookup(n.Source)
		if srcName == source {
			continue
		}
		invalidatedSet[srcName] = true
	}
	for s := range invalidatedSet {
		result.InvalidatedSources = append(result.InvalidatedSources, s)
	}
	sort.Strings(result.InvalidatedSources)
	result.NeedsCascadingBuild = changedInterfaceNoFP

	if err := g.verify(); err != nil {
		return result, err
	}
	return result, nil
}

// propagateFrontier runs the fixpoint BFS described in §4.E step 4:
// interface-aspect nodes propagate onward to their uses; implementation-
// aspect nodes are reached themselves but neither mark nor propagate to
// their uses, matching "do not cross implementation-aspect edges out of the
// defining source."
func (g *Graph) propagateFrontier(seed map[NodeId]bool) map[NodeId]bool {
	reached := make(map[NodeId]bool, len(seed))
	queue := make([]NodeId, 0, len(seed))
	for id := range seed {
		queue = append(queue, id)
	}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if reached[id] {
			continue
		}
		reached[id] = true
		n := g.nodes[id]
		if n.Key.Aspect == depkey.Interface {
			for _, use := range g.usesOf[id] {
				if !reached[use] {
					queue = append(queue, use)
				}
			}
		}
	}
	return reached
}

type translatedNode struct {
	key   depkey.DependencyKey
	fp    ids.StringId
	hasFP bool
	role  depkey.Role
}

// translate re-interns a source-local SFDG node's strings into this
// Graph's own table, producing a DependencyKey comparable across sources.
func (g *Graph) translate(src *sfdg.Graph, n sfdg.Node) translatedNode {
	d := n.Key.Designator
	var context, name ids.StringId
	if s, ok := src.Strings.TryLookup(d.Context); ok {
		context = g.Strings.Intern(s)
	}
	if s, ok := src.Strings.TryLookup(d.Name); ok {
		name = g.Strings.Intern(s)
	}
	key := depkey.DependencyKey{
		Aspect:     n.Key.Aspect,
		Designator: depkey.Designator{Tag: d.Tag, Context: context, Name: name},
	}
	tn := translatedNode{key: key, role: n.Role}
	if n.HasFingerprint {
		if s, ok := src.Strings.TryLookup(n.Fingerprint); ok {
			tn.fp = g.Strings.Intern(s)
			tn.hasFP = true
		}
	}
	return tn
}

// findDefiner implements the def-node search order from §4.E step 3:
// first the current source, then any other known definer (lexicographically
// smallest source name first, for determinism), then an expat node.
func (g *Graph) findDefiner(useKey depkey.DependencyKey, currentSource ids.StringId) NodeId {
	if id, ok := g.index[nodeIdentity{hasSource: true, source: currentSource, key: useKey}]; ok {
		if !g.nodes[id].Removed {
			return id
		}
	}
	ck := g.canon(useKey)
	for _, candidate := range g.definersByKey[ck] {
		if id, ok := g.index[nodeIdentity{hasSource: true, source: candidate, key: useKey}]; ok {
			if !g.nodes[id].Removed {
				return id
			}
		}
	}
	return g.getOrCreate(useKey, 0, false)
}

// verify checks the MDG-level invariants named in §3: at most one live
// node per (defining_source, key) pair, and every expat (sourceless) node
// actually being an external-dependency placeholder.
func (g *Graph) verify() error {
	seen := make(map[nodeIdentity]bool)
	for i, n := range g.nodes {
		if n.Removed {
			continue
		}
		identity := nodeIdentity{hasSource: n.HasSource, source: n.Source, key: n.Key}
		if seen[identity] {
			return errdefs.New(errdefs.ErrInvariantViolation, "duplicate (defining_source, key) pair in MDG")
		}
		seen[identity] = true

		if !n.HasSource && n.Key.Designator.Tag != depkey.TagExternalDepend && len(g.defsOf[NodeId(i)]) == 0 && len(g.usesOf[NodeId(i)]) == 0 {
			return errdefs.New(errdefs.ErrInvariantViolation, "unreferenced expat node with no defining source")
		}
	}
	return nil
}
