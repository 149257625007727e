package sfdg

import (
	"fmt"

	"incdriver/internal/depkey"
	"incdriver/internal/errdefs"
)

// canonDesignatorKey is a string-resolved, order-independent identity for
// a designator, used to compare providers across aspects without relying
// on StringId equality (which only holds within a single table).
type canonDesignatorKey struct {
	tag     depkey.DesignatorTag
	context string
	name    string
}

func canonDesignator(g *Graph, d depkey.Designator) canonDesignatorKey {
	ctx, _ := g.Strings.TryLookup(d.Context)
	name, _ := g.Strings.TryLookup(d.Name)
	return canonDesignatorKey{tag: d.Tag, context: ctx, name: name}
}

// verify checks every SFDG invariant named in §3 and returns an
// ErrInvariantViolation DriverError describing the first one that fails.
func verify(g *Graph) error {
	if len(g.Nodes) < 2 {
		return errdefs.New(errdefs.ErrInvariantViolation, "graph must declare at least the two SourceFileProvide aspect nodes")
	}

	n0, n1 := g.Nodes[0], g.Nodes[1]
	if n0.Key.Designator.Tag != depkey.TagSourceFileProvide || n1.Key.Designator.Tag != depkey.TagSourceFileProvide {
		return errdefs.New(errdefs.ErrInvariantViolation, "sequence 0 and 1 must be SourceFileProvide nodes")
	}
	if n0.Key.Designator.Name != n1.Key.Designator.Name {
		return errdefs.New(errdefs.ErrInvariantViolation, "the two SourceFileProvide aspect nodes must share the same name")
	}
	aspects := map[depkey.Aspect]bool{n0.Key.Aspect: true, n1.Key.Aspect: true}
	if !aspects[depkey.Interface] || !aspects[depkey.Implementation] {
		return errdefs.New(errdefs.ErrInvariantViolation, "sequence 0 and 1 must cover both interface and implementation aspects")
	}

	// For any interface-aspect provider P, an implementation-aspect
	// provider with the same designator must also exist in this source.
	implProviders := make(map[canonDesignatorKey]bool)
	for _, n := range g.Nodes {
		if n.Role != depkey.Definition || n.Key.Aspect != depkey.Implementation {
			continue
		}
		implProviders[canonDesignator(g, n.Key.Designator)] = true
	}
	for _, n := range g.Nodes {
		if n.Role != depkey.Definition || n.Key.Aspect != depkey.Interface {
			continue
		}
		if n.Key.Designator.Tag == depkey.TagSourceFileProvide {
			continue // the pairing above already enforces this for the file node itself
		}
		key := canonDesignator(g, n.Key.Designator)
		if !implProviders[key] {
			return errdefs.New(errdefs.ErrInvariantViolation,
				fmt.Sprintf("interface-aspect provider %s has no matching implementation-aspect provider", n.Key.Format(g.Strings))).
				WithDrilldown("sequence", n.Sequence)
		}
	}

	// Every DependsOn index must be a valid sequence.
	for _, n := range g.Nodes {
		for _, d := range n.DependsOn {
			if int(d) >= len(g.Nodes) {
				return errdefs.New(errdefs.ErrInvariantViolation,
					fmt.Sprintf("node %d depends on out-of-range sequence %d", n.Sequence, d)).
					WithDrilldown("sequence", n.Sequence)
			}
		}
	}

	return nil
}
