package mdg

import (
	"sort"

	"incdriver/internal/depkey"
)

// ExternalChange is the result of probing one ExternalDepend node against
// its current on-disk state, per §4.E "External-change invalidation".
type ExternalChange struct {
	Path      string
	Changed   bool
	Sources   []string // defining sources of every use-node reached
	NoPriorFP bool      // the node had no previously recorded fingerprint
}

// InvalidateExternal implements the first-pass re-probe described in §4.E:
// given the current fingerprint for an ExternalDepend(path) node (as
// computed by the caller — path + mtime, or a content hash when
// available), it compares against the node's previously recorded
// fingerprint and, on a mismatch, adds every node in its immediate use-set
// to the invalidation result. When the node carries no fingerprint at all
// (legacy/no-hash), the conservative rule in §4.E applies: any call with
// newerThanRecorded=true invalidates every successor in the same source,
// which for an expat ExternalDepend node (no defining_source) means every
// direct use.
func (g *Graph) InvalidateExternal(path string, newFingerprint string, hasNewFingerprint bool, newerThanRecorded bool) ExternalChange {
	pathId := g.Strings.Intern(path)
	key := depkey.DependencyKey{Aspect: depkey.Interface, Designator: depkey.ExternalDepend(pathId)}
	identity := nodeIdentity{hasSource: false, key: key}

	id, ok := g.index[identity]
	if !ok {
		// No prior node: nothing to invalidate yet. A subsequent
		// integration that adds a use of this ExternalDepend will create
		// it fresh with the current fingerprint, which is correct — there
		// is no "prior" to have been stale relative to.
		return ExternalChange{Path: path}
	}

	n := &g.nodes[id]
	changed := false
	switch {
	case !n.HasFingerprint && !hasNewFingerprint:
		changed = newerThanRecorded
	case !n.HasFingerprint || !hasNewFingerprint:
		changed = true
	default:
		changed = n.Fingerprint != g.Strings.Intern(newFingerprint)
	}

	result := ExternalChange{Path: path, Changed: changed, NoPriorFP: !n.HasFingerprint}
	if !changed {
		return result
	}

	if hasNewFingerprint {
		n.HasFingerprint = true
		n.Fingerprint = g.Strings.Intern(newFingerprint)
	}

	sources := make(map[string]bool)
	for _, use := range g.usesOf[id] {
		un := g.nodes[use]
		if un.HasSource {
			sources[g.Strings.Lookup(un.Source)] = true
		}
	}
	for s := range sources {
		result.Sources = append(result.Sources, s)
	}
	sort.Strings(result.Sources)
	return result
}

// ExternalDependPaths returns the path of every ExternalDepend node
// currently known to the graph, sorted, for the planner's first-pass
// re-probe loop (§4.E: "On the first pass of a build, every ExternalDepend
// node is re-probed").
func (g *Graph) ExternalDependPaths() []string {
	seen := make(map[string]bool)
	for _, n := range g.nodes {
		if n.Removed {
			continue
		}
		if n.Key.Designator.Tag != depkey.TagExternalDepend {
			continue
		}
		if s, ok := g.Strings.TryLookup(n.Key.Designator.Name); ok {
			seen[s] = true
		}
	}
	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
