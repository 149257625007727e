package mdg

import "sort"

// Dependents returns every source (other than one of the given sources)
// reachable via interface-aspect def -> use edges from a node defined by
// one of sources, without requiring a new SFDG integration. This backs the
// incremental planner's "-driver-always-rebuild-dependents" eager
// extension (§4.I, first wave step 3: "immediately extend the set by
// following the MDG ... do not speculate" otherwise), which must use the
// graph as it stands, before any of this wave's compiles have run.
func (g *Graph) Dependents(sources []string) []string {
	sourceSet := make(map[string]bool, len(sources))
	for _, s := range sources {
		sourceSet[s] = true
	}

	seed := make(map[NodeId]bool)
	for i, n := range g.nodes {
		if n.Removed || !n.HasSource {
			continue
		}
		if sourceSet[g.Strings.Lookup(n.Source)] {
			seed[NodeId(i)] = true
		}
	}
	reached := g.propagateFrontier(seed)

	result := make(map[string]bool)
	for id := range reached {
		n := g.nodes[id]
		if !n.HasSource {
			continue
		}
		s := g.Strings.Lookup(n.Source)
		if sourceSet[s] {
			continue
		}
		result[s] = true
	}

	out := make([]string, 0, len(result))
	for s := range result {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
