// Package scipexport renders an integrated module dependency graph as a
// SCIP Index protobuf document, for external tooling (no CLI command
// calls it). It is a read-only debug projection, not part of the
// planning path: the authoritative SFDG wire format stays the tagged
// binary stream in internal/sfdg, per §4.D.
//
// Grounded on the teacher's internal/backends/scip loader (same protobuf
// types, same tool-info/document/occurrence shape), run in reverse: the
// teacher reads a scip.Index produced by an external indexer; this
// package writes one from the driver's own in-memory graph.
package scipexport

import (
	"fmt"
	"sort"

	scippb "github.com/sourcegraph/scip/bindings/go/scip"
	"google.golang.org/protobuf/proto"

	"incdriver/internal/depkey"
	"incdriver/internal/ids"
	"incdriver/internal/mdg"
)

// ToolName is stamped into the exported index's Metadata.ToolInfo, the
// same slot the teacher's loader reads back out via extractCommitFromToolInfo.
const ToolName = "incdriver"

// ToolVersion is stamped alongside ToolName.
const ToolVersion = "1.0"

// Export renders every live node of g that has an owning source into a
// scip.Index: one scip.Document per owning source, one scip.Occurrence
// per node (every occurrence carries the Definition role, use markers
// included), and one scip.SymbolInformation per occurrence so downstream
// SCIP tooling can resolve symbol -> documentation.
func Export(g *mdg.Graph, projectRoot string) *scippb.Index {
	index := &scippb.Index{
		Metadata: &scippb.Metadata{
			ToolInfo:    &scippb.ToolInfo{Name: ToolName, Version: ToolVersion},
			ProjectRoot: projectRoot,
		},
	}

	docs := make(map[string]*scippb.Document)
	var docOrder []string

	for _, id := range g.Live() {
		n := g.Node(id)
		if !n.HasSource {
			continue // expat/external nodes have no owning document
		}
		source := g.Strings.Lookup(n.Source)
		doc, ok := docs[source]
		if !ok {
			doc = &scippb.Document{RelativePath: source, Language: "swift"}
			docs[source] = doc
			docOrder = append(docOrder, source)
		}

		// A HasSource node is either a true definition or a per-consumer
		// use marker (the MDG records both as vertices attributed to
		// their owning source, so invalidation can read the source back
		// off a reached node). This exporter does not distinguish them
		// and reports every one as a Definition occurrence.
		symbol := symbolID(g.Strings, n.Key)
		doc.Occurrences = append(doc.Occurrences, &scippb.Occurrence{
			Symbol:      symbol,
			SymbolRoles: int32(scippb.SymbolRole_Definition),
		})
		doc.Symbols = append(doc.Symbols, &scippb.SymbolInformation{
			Symbol:        symbol,
			Documentation: []string{n.Key.Format(g.Strings)},
		})
	}

	sort.Strings(docOrder)
	for _, path := range docOrder {
		index.Documents = append(index.Documents, docs[path])
	}
	return index
}

// Marshal serializes an Index to its canonical protobuf wire form, the
// same encoding LoadSCIPIndex on the consuming side expects.
func Marshal(index *scippb.Index) ([]byte, error) {
	return proto.Marshal(index)
}

// symbolID renders a DependencyKey as a SCIP symbol string. SCIP symbols
// are opaque identifiers to the protocol; this format is stable within
// one export but is not the upstream language-server symbol scheme.
func symbolID(tbl *ids.Table, k depkey.DependencyKey) string {
	d := k.Designator
	switch d.Tag {
	case depkey.TagSourceFileProvide, depkey.TagTopLevel, depkey.TagDynamicLookup:
		return fmt.Sprintf("incdriver %s %s %s.", k.Aspect, d.Tag, tbl.Lookup(d.Name))
	case depkey.TagNominal, depkey.TagPotentialMember:
		return fmt.Sprintf("incdriver %s %s %s#", k.Aspect, d.Tag, tbl.Lookup(d.Context))
	case depkey.TagMember:
		return fmt.Sprintf("incdriver %s %s %s#%s.", k.Aspect, d.Tag, tbl.Lookup(d.Context), tbl.Lookup(d.Name))
	case depkey.TagExternalDepend:
		return fmt.Sprintf("incdriver %s %s %s.", k.Aspect, d.Tag, tbl.Lookup(d.Path()))
	default:
		return fmt.Sprintf("incdriver %s %s.", k.Aspect, d.Tag)
	}
}
