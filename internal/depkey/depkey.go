// Package depkey defines DependencyKey, the (aspect, designator) pair that
// identifies every node in both the per-source dependency graph and the
// process-wide module dependency graph. It is the one vocabulary shared by
// the SFDG reader/writer and the MDG integrator.
package depkey

import (
	"fmt"

	"incdriver/internal/ids"
)

// Aspect distinguishes interface-aspect nodes, whose changes propagate
// across compilation-unit boundaries, from implementation-aspect nodes,
// whose changes do not.
type Aspect uint8

const (
	Interface Aspect = iota
	Implementation
)

func (a Aspect) String() string {
	if a == Interface {
		return "interface"
	}
	return "implementation"
}

// DesignatorTag is the tagged-variant discriminant for Designator.
type DesignatorTag uint8

const (
	TagSourceFileProvide DesignatorTag = iota
	TagTopLevel
	TagNominal
	TagPotentialMember
	TagMember
	TagDynamicLookup
	TagExternalDepend
)

func (t DesignatorTag) String() string {
	switch t {
	case TagSourceFileProvide:
		return "SourceFileProvide"
	case TagTopLevel:
		return "TopLevel"
	case TagNominal:
		return "Nominal"
	case TagPotentialMember:
		return "PotentialMember"
	case TagMember:
		return "Member"
	case TagDynamicLookup:
		return "DynamicLookup"
	case TagExternalDepend:
		return "ExternalDepend"
	default:
		return "Unknown"
	}
}

// Designator is the tagged-variant payload of a DependencyKey. Depending on
// Tag, only a subset of the fields is meaningful:
//
//	SourceFileProvide { Name }
//	TopLevel          { Name }
//	Nominal           { Context }
//	PotentialMember   { Context }
//	Member            { Context, Name }
//	DynamicLookup     { Name }
//	ExternalDepend    { Path (stored in Name) }
type Designator struct {
	Tag     DesignatorTag
	Context ids.StringId
	Name    ids.StringId
}

// SourceFileProvide builds a SourceFileProvide designator.
func SourceFileProvide(name ids.StringId) Designator {
	return Designator{Tag: TagSourceFileProvide, Name: name}
}

// TopLevel builds a TopLevel designator.
func TopLevel(name ids.StringId) Designator {
	return Designator{Tag: TagTopLevel, Name: name}
}

// Nominal builds a Nominal designator.
func Nominal(context ids.StringId) Designator {
	return Designator{Tag: TagNominal, Context: context}
}

// PotentialMember builds a PotentialMember designator.
func PotentialMember(context ids.StringId) Designator {
	return Designator{Tag: TagPotentialMember, Context: context}
}

// Member builds a Member designator.
func Member(context, name ids.StringId) Designator {
	return Designator{Tag: TagMember, Context: context, Name: name}
}

// DynamicLookup builds a DynamicLookup designator.
func DynamicLookup(name ids.StringId) Designator {
	return Designator{Tag: TagDynamicLookup, Name: name}
}

// ExternalDepend builds an ExternalDepend designator; path is stored in
// Name to avoid a third field used by exactly one tag.
func ExternalDepend(path ids.StringId) Designator {
	return Designator{Tag: TagExternalDepend, Name: path}
}

// RawDesignator reconstructs a Designator from its tag and raw fields,
// bypassing the tag-specific constructors above. Used by priors storage,
// which persists (tag, context, name) without knowing which constructor
// originally produced the value.
func RawDesignator(tag DesignatorTag, context, name ids.StringId) Designator {
	return Designator{Tag: tag, Context: context, Name: name}
}

// Path returns the path StringId of an ExternalDepend designator.
func (d Designator) Path() ids.StringId { return d.Name }

// Less provides a total order over designators: first by tag, then by
// context, then by name. Used to make DependencyKey totally ordered for
// stable, deterministic iteration (the spec requires sorted-key iteration
// order throughout the integration algorithm).
func (d Designator) Less(o Designator) bool {
	if d.Tag != o.Tag {
		return d.Tag < o.Tag
	}
	if d.Context != o.Context {
		return d.Context < o.Context
	}
	return d.Name < o.Name
}

// DependencyKey identifies a graph node: an aspect plus a tagged
// designator. Two keys are equal iff both fields are equal.
type DependencyKey struct {
	Aspect     Aspect
	Designator Designator
}

// Less provides a total order over keys: aspect first, then designator.
func (k DependencyKey) Less(o DependencyKey) bool {
	if k.Aspect != o.Aspect {
		return k.Aspect < o.Aspect
	}
	return k.Designator.Less(o.Designator)
}

// Format renders the key using tbl to resolve interned strings, for
// debugging and remark output; never used for equality or ordering.
func (k DependencyKey) Format(tbl *ids.Table) string {
	d := k.Designator
	switch d.Tag {
	case TagSourceFileProvide, TagTopLevel, TagDynamicLookup:
		return fmt.Sprintf("%s %s(%s)", k.Aspect, d.Tag, tbl.Lookup(d.Name))
	case TagNominal, TagPotentialMember:
		return fmt.Sprintf("%s %s(%s)", k.Aspect, d.Tag, tbl.Lookup(d.Context))
	case TagMember:
		return fmt.Sprintf("%s %s(%s::%s)", k.Aspect, d.Tag, tbl.Lookup(d.Context), tbl.Lookup(d.Name))
	case TagExternalDepend:
		return fmt.Sprintf("%s %s(%s)", k.Aspect, d.Tag, tbl.Lookup(d.Path()))
	default:
		return fmt.Sprintf("%s %s", k.Aspect, d.Tag)
	}
}

// OppositeAspect returns the paired aspect: Interface <-> Implementation.
func OppositeAspect(a Aspect) Aspect {
	if a == Interface {
		return Implementation
	}
	return Interface
}

// Role distinguishes whether a node is a definition or a use.
type Role uint8

const (
	Definition Role = iota
	Use
)

func (r Role) String() string {
	if r == Definition {
		return "definition"
	}
	return "use"
}
