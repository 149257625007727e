// Package imdg implements the inter-module dependency graph: the
// snapshot of cross-module dependencies (Swift, Clang, and prebuilt
// external module variants) obtained from the dependency scanner, as
// described in §3/§4.G.
package imdg

import (
	"sort"

	"incdriver/internal/errdefs"
)

// ModuleKind is the tagged-variant discriminant of ModuleId, matching the
// sum-type design note in §9 ("dynamic dispatch on module/detail kinds:
// sum types with exhaustive match").
type ModuleKind uint8

const (
	Swift ModuleKind = iota
	Clang
	SwiftPrebuiltExternal
	SwiftPlaceholder
)

func (k ModuleKind) String() string {
	switch k {
	case Swift:
		return "swift"
	case Clang:
		return "clang"
	case SwiftPrebuiltExternal:
		return "swiftPrebuiltExternal"
	case SwiftPlaceholder:
		return "swiftPlaceholder"
	default:
		return "unknown"
	}
}

// ModuleId identifies one node of the IMDG by kind and name. Two modules
// of different kinds with the same name are distinct nodes — a module can
// appear as both a Swift interface and, transiently during a scan, a
// placeholder for the same name.
type ModuleId struct {
	Kind ModuleKind
	Name string
}

func (m ModuleId) Less(other ModuleId) bool {
	if m.Kind != other.Kind {
		return m.Kind < other.Kind
	}
	return m.Name < other.Name
}

// SwiftDetails carries the fields specific to a Swift textual-interface
// module.
type SwiftDetails struct {
	InterfacePath      string
	CompiledCandidates []string
	ModuleCacheKey     string
	HasModuleCacheKey  bool
	CommandLine        []string
}

// ClangDetails carries the fields specific to a Clang module-map module.
type ClangDetails struct {
	ModuleMapPath     string
	ModuleCacheKey    string
	HasModuleCacheKey bool
}

// PrebuiltDetails carries the fields specific to an already-compiled
// swiftmodule surfaced as an input to consumers.
type PrebuiltDetails struct {
	IsFramework       bool
	ModuleCacheKey    string
	HasModuleCacheKey bool
}

// Details is the per-kind detail payload. Exactly one of Swift, Clang,
// Prebuilt is meaningful, selected by the owning ModuleInfo's ModuleId.Kind;
// SwiftPlaceholder carries no payload at all — per §9's open question, any
// Placeholder reaching the planner is a bug, so Details for a placeholder
// module is always the zero value and callers must not dereference its
// sub-fields.
type Details struct {
	Swift    SwiftDetails
	Clang    ClangDetails
	Prebuilt PrebuiltDetails
}

// ModuleInfo is one node of the IMDG.
type ModuleInfo struct {
	ID                 ModuleId
	ModulePath         string
	SourceFiles        []string
	DirectDependencies map[ModuleId]bool
	Details            Details
}

// Graph is the inter-module dependency graph: a main module id plus every
// reachable module's info, exactly as returned by a scanner query. The
// planner treats a Graph as read-only (§3 "Lifetimes & ownership").
type Graph struct {
	MainModuleID ModuleId
	Modules      map[ModuleId]*ModuleInfo
}

// New returns an empty Graph rooted at mainModuleID.
func New(mainModuleID ModuleId) *Graph {
	return &Graph{MainModuleID: mainModuleID, Modules: make(map[ModuleId]*ModuleInfo)}
}

// AddModule registers info under its own ID, overwriting any previous
// entry for the same ID.
func (g *Graph) AddModule(info *ModuleInfo) {
	g.Modules[info.ID] = info
}

// SortedIDs returns every module id in the graph in a deterministic total
// order (by kind, then name), matching the "keys are totally ordered for
// stable iteration" requirement carried over from DependencyKey.
func (g *Graph) SortedIDs() []ModuleId {
	out := make([]ModuleId, 0, len(g.Modules))
	for id := range g.Modules {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// Closure computes, for every module in the graph, its transitive
// dependency set under DirectDependencies. The result satisfies the two
// properties named in §8: no module is in its own closure (symmetric-free
// under the non-reflexive assumption that DirectDependencies never
// contains self-edges), and closure(m) ⊇ direct(m).
func (g *Graph) Closure() (map[ModuleId]map[ModuleId]bool, error) {
	result := make(map[ModuleId]map[ModuleId]bool, len(g.Modules))
	inProgress := make(map[ModuleId]bool)

	var visit func(id ModuleId) (map[ModuleId]bool, error)
	visit = func(id ModuleId) (map[ModuleId]bool, error) {
		if c, ok := result[id]; ok {
			return c, nil
		}
		if inProgress[id] {
			return nil, errdefs.New(errdefs.ErrInvariantViolation, "cycle detected in IMDG direct_dependencies for "+id.Name)
		}
		inProgress[id] = true
		defer delete(inProgress, id)

		info, ok := g.Modules[id]
		closure := make(map[ModuleId]bool)
		if ok {
			for dep := range info.DirectDependencies {
				closure[dep] = true
				depClosure, err := visit(dep)
				if err != nil {
					return nil, err
				}
				for d := range depClosure {
					closure[d] = true
				}
			}
		}
		result[id] = closure
		return closure, nil
	}

	for id := range g.Modules {
		if _, err := visit(id); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// ReachableFromMain returns every module transitively reachable from the
// main module, inclusive of direct dependencies but excluding the main
// module itself (matching "no module is in its own direct set").
func (g *Graph) ReachableFromMain() (map[ModuleId]bool, error) {
	closure, err := g.Closure()
	if err != nil {
		return nil, err
	}
	reachable := closure[g.MainModuleID]
	if reachable == nil {
		return map[ModuleId]bool{}, nil
	}
	return reachable, nil
}

// HasPlaceholder reports whether any module in the graph is a
// SwiftPlaceholder. Per §9, this should never be true of a graph reaching
// the planner; the driver treats it as a bug, not a recoverable condition.
func (g *Graph) HasPlaceholder() bool {
	for id := range g.Modules {
		if id.Kind == SwiftPlaceholder {
			return true
		}
	}
	return false
}
