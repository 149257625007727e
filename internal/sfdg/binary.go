package sfdg

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"incdriver/internal/depkey"
	"incdriver/internal/errdefs"
	"incdriver/internal/ids"
)

// Record codes. The exact values are this module's own external contract
// (§9 open question #1: the upstream frontend's tag values are not
// reproduced here; this is a structurally equivalent, self-consistent
// format against which our own writer and reader agree).
const (
	codeMetadata       byte = 0x01
	codeSourceFileNode byte = 0x02
	codeFingerprint    byte = 0x30
	codeIdentifier     byte = 0x31

	// codeProvidesBase + DesignatorTag (1..6) identifies a PROVIDES_*
	// record for that designator tag. codeDependsBase is the DEPENDS_*
	// analogue. "Provides" implies role = Definition; "Depends" implies
	// role = Use.
	codeProvidesBase byte = 0x10
	codeDependsBase  byte = 0x20
)

// FormatMajorVersion is the major version this reader accepts. The reader
// rejects any other value outright, per the boundary behavior in §8.
const FormatMajorVersion = 1

// FormatMinorVersion is written by this package's writer.
const FormatMinorVersion = 0

// Write serializes g to w in the tagged-record binary format described in
// §4.D: METADATA, then the string pool as IDENTIFIER records, then one
// record per node in sequence order.
func Write(w io.Writer, g *Graph, compilerVersion string) error {
	bw := bufio.NewWriter(w)

	if err := writeMetadata(bw, compilerVersion); err != nil {
		return err
	}
	// Pool index 0 is the implicit empty string; emit every other
	// interned string as an IDENTIFIER record, in id order, so the
	// reader's growing pool lines up with g.Strings by construction.
	pool := g.Strings.Strings()
	for i := 1; i < len(pool); i++ {
		if err := writeIdentifier(bw, pool[i]); err != nil {
			return err
		}
	}
	for _, n := range g.Nodes {
		if err := writeNode(bw, n); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func writeMetadata(w *bufio.Writer, versionStr string) error {
	if err := w.WriteByte(codeMetadata); err != nil {
		return err
	}
	if err := writeUint32(w, FormatMajorVersion); err != nil {
		return err
	}
	if err := writeUint32(w, FormatMinorVersion); err != nil {
		return err
	}
	return writeBlob(w, []byte(versionStr))
}

func writeIdentifier(w *bufio.Writer, s string) error {
	if err := w.WriteByte(codeIdentifier); err != nil {
		return err
	}
	return writeBlob(w, []byte(s))
}

func writeNode(w *bufio.Writer, n Node) error {
	tag := n.Key.Designator.Tag
	if tag == depkey.TagSourceFileProvide {
		if err := w.WriteByte(codeSourceFileNode); err != nil {
			return err
		}
	} else {
		base := codeProvidesBase
		if n.Role == depkey.Use {
			base = codeDependsBase
		}
		if err := w.WriteByte(base + byte(tag)); err != nil {
			return err
		}
	}

	if err := w.WriteByte(byte(n.Key.Aspect)); err != nil {
		return err
	}
	if err := writeUint32(w, uint32(n.Key.Designator.Context)); err != nil {
		return err
	}
	if err := writeUint32(w, uint32(n.Key.Designator.Name)); err != nil {
		return err
	}
	if n.HasFingerprint {
		if err := w.WriteByte(1); err != nil {
			return err
		}
		if err := writeUint32(w, uint32(n.Fingerprint)); err != nil {
			return err
		}
	} else {
		if err := w.WriteByte(0); err != nil {
			return err
		}
	}
	if tag == depkey.TagSourceFileProvide {
		if err := w.WriteByte(byte(n.Role)); err != nil {
			return err
		}
	}
	return nil
}

func writeUint32(w *bufio.Writer, v uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func writeBlob(w *bufio.Writer, data []byte) error {
	if err := writeUint32(w, uint32(len(data))); err != nil {
		return err
	}
	_, err := w.Write(data)
	return err
}

// Read parses a Graph from r, resolving DependsOn edges and verifying
// every invariant named in §3 once the node list is complete.
func Read(r io.Reader) (*Graph, error) {
	br := bufio.NewReader(r)

	code, err := br.ReadByte()
	if err != nil {
		return nil, errdefs.Wrap(errdefs.ErrGraphParse, "empty or truncated SFDG stream", err)
	}
	if code != codeMetadata {
		return nil, errdefs.New(errdefs.ErrGraphParse, "first record must be METADATA")
	}
	major, minor, _, err := readMetadataBody(br)
	if err != nil {
		return nil, errdefs.Wrap(errdefs.ErrGraphParse, "reading METADATA", err)
	}
	if major != FormatMajorVersion {
		return nil, errdefs.New(errdefs.ErrGraphParse, fmt.Sprintf("unsupported SFDG major version %d", major)).
			WithDrilldown("major", major).WithDrilldown("minor", minor)
	}

	tbl := ids.New()
	g := &Graph{Strings: tbl}

	for {
		code, err := br.ReadByte()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errdefs.Wrap(errdefs.ErrGraphParse, "reading record code", err)
		}

		switch {
		case code == codeIdentifier:
			s, err := readBlob(br)
			if err != nil {
				return nil, errdefs.Wrap(errdefs.ErrGraphParse, "reading IDENTIFIER", err)
			}
			tbl.Intern(string(s))
		case code == codeSourceFileNode:
			n, err := readSourceFileNode(br, tbl, uint32(len(g.Nodes)))
			if err != nil {
				return nil, err
			}
			g.Nodes = append(g.Nodes, n)
		case code >= codeProvidesBase && code < codeProvidesBase+7:
			n, err := readProvidesOrDepends(br, tbl, uint32(len(g.Nodes)), depkey.DesignatorTag(code-codeProvidesBase), depkey.Definition)
			if err != nil {
				return nil, err
			}
			g.Nodes = append(g.Nodes, n)
		case code >= codeDependsBase && code < codeDependsBase+7:
			n, err := readProvidesOrDepends(br, tbl, uint32(len(g.Nodes)), depkey.DesignatorTag(code-codeDependsBase), depkey.Use)
			if err != nil {
				return nil, err
			}
			g.Nodes = append(g.Nodes, n)
		case code == codeFingerprint:
			s, err := readBlob(br)
			if err != nil {
				return nil, errdefs.Wrap(errdefs.ErrGraphParse, "reading FINGERPRINT_NODE", err)
			}
			if len(g.Nodes) == 0 {
				return nil, errdefs.New(errdefs.ErrGraphParse, "FINGERPRINT_NODE with no preceding node record")
			}
			last := &g.Nodes[len(g.Nodes)-1]
			last.Fingerprint = tbl.Intern(string(s))
			last.HasFingerprint = true
		default:
			return nil, errdefs.New(errdefs.ErrGraphParse, fmt.Sprintf("unknown mandatory record code 0x%02x", code))
		}
	}

	if len(g.Nodes) >= 2 {
		g.SourceName = sourceFileProvideName(g, tbl)
	}

	g.Resolve()

	if err := verify(g); err != nil {
		return nil, err
	}

	return g, nil
}

func sourceFileProvideName(g *Graph, tbl *ids.Table) string {
	n := g.Nodes[0]
	if n.Key.Designator.Tag == depkey.TagSourceFileProvide {
		return tbl.Lookup(n.Key.Designator.Name)
	}
	return ""
}

func readMetadataBody(r *bufio.Reader) (major, minor uint32, versionStr string, err error) {
	major, err = readUint32(r)
	if err != nil {
		return 0, 0, "", err
	}
	minor, err = readUint32(r)
	if err != nil {
		return 0, 0, "", err
	}
	blob, err := readBlob(r)
	if err != nil {
		return 0, 0, "", err
	}
	return major, minor, string(blob), nil
}

func readSourceFileNode(r *bufio.Reader, tbl *ids.Table, seq uint32) (Node, error) {
	aspectByte, err := r.ReadByte()
	if err != nil {
		return Node{}, errdefs.Wrap(errdefs.ErrGraphParse, "reading SOURCE_FILE_NODE aspect", err)
	}
	_, err = readUint32(r) // context, unused for SourceFileProvide
	if err != nil {
		return Node{}, errdefs.Wrap(errdefs.ErrGraphParse, "reading SOURCE_FILE_NODE context", err)
	}
	name, err := readUint32(r)
	if err != nil {
		return Node{}, errdefs.Wrap(errdefs.ErrGraphParse, "reading SOURCE_FILE_NODE name", err)
	}
	fp, hasFp, err := readOptionalFingerprint(r)
	if err != nil {
		return Node{}, err
	}
	roleByte, err := r.ReadByte()
	if err != nil {
		return Node{}, errdefs.Wrap(errdefs.ErrGraphParse, "reading SOURCE_FILE_NODE role", err)
	}
	nameId, err := resolvePoolIndex(tbl, name)
	if err != nil {
		return Node{}, err
	}
	n := Node{
		Sequence: seq,
		Key: depkey.DependencyKey{
			Aspect:     depkey.Aspect(aspectByte),
			Designator: depkey.SourceFileProvide(nameId),
		},
		Role: depkey.Role(roleByte),
	}
	if hasFp {
		fpId, err := resolvePoolIndex(tbl, fp)
		if err != nil {
			return Node{}, err
		}
		n.Fingerprint = fpId
		n.HasFingerprint = true
	}
	return n, nil
}

func readProvidesOrDepends(r *bufio.Reader, tbl *ids.Table, seq uint32, tag depkey.DesignatorTag, role depkey.Role) (Node, error) {
	aspectByte, err := r.ReadByte()
	if err != nil {
		return Node{}, errdefs.Wrap(errdefs.ErrGraphParse, "reading node aspect", err)
	}
	context, err := readUint32(r)
	if err != nil {
		return Node{}, errdefs.Wrap(errdefs.ErrGraphParse, "reading node context", err)
	}
	name, err := readUint32(r)
	if err != nil {
		return Node{}, errdefs.Wrap(errdefs.ErrGraphParse, "reading node name", err)
	}
	fp, hasFp, err := readOptionalFingerprint(r)
	if err != nil {
		return Node{}, err
	}

	contextId, err := resolvePoolIndex(tbl, context)
	if err != nil {
		return Node{}, err
	}
	nameId, err := resolvePoolIndex(tbl, name)
	if err != nil {
		return Node{}, err
	}

	var designator depkey.Designator
	switch tag {
	case depkey.TagTopLevel:
		designator = depkey.TopLevel(nameId)
	case depkey.TagNominal:
		designator = depkey.Nominal(contextId)
	case depkey.TagPotentialMember:
		designator = depkey.PotentialMember(contextId)
	case depkey.TagMember:
		designator = depkey.Member(contextId, nameId)
	case depkey.TagDynamicLookup:
		designator = depkey.DynamicLookup(nameId)
	case depkey.TagExternalDepend:
		designator = depkey.ExternalDepend(nameId)
	default:
		return Node{}, errdefs.New(errdefs.ErrGraphParse, fmt.Sprintf("unrecognized designator tag %d", tag))
	}

	n := Node{
		Sequence: seq,
		Key:      depkey.DependencyKey{Aspect: depkey.Aspect(aspectByte), Designator: designator},
		Role:     role,
	}
	if hasFp {
		fpId, err := resolvePoolIndex(tbl, fp)
		if err != nil {
			return Node{}, err
		}
		n.Fingerprint = fpId
		n.HasFingerprint = true
	}
	return n, nil
}

func readOptionalFingerprint(r *bufio.Reader) (poolIndex uint32, has bool, err error) {
	flag, err := r.ReadByte()
	if err != nil {
		return 0, false, errdefs.Wrap(errdefs.ErrGraphParse, "reading fingerprint flag", err)
	}
	if flag == 0 {
		return 0, false, nil
	}
	idx, err := readUint32(r)
	if err != nil {
		return 0, false, errdefs.Wrap(errdefs.ErrGraphParse, "reading fingerprint pool index", err)
	}
	return idx, true, nil
}

func resolvePoolIndex(tbl *ids.Table, idx uint32) (ids.StringId, error) {
	if int(idx) >= tbl.Len() {
		return 0, errdefs.New(errdefs.ErrGraphParse, fmt.Sprintf("out-of-range string-pool index %d", idx)).
			WithDrilldown("poolSize", tbl.Len())
	}
	return ids.StringId(idx), nil
}

func readUint32(r *bufio.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

func readBlob(r *bufio.Reader) ([]byte, error) {
	n, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// Marshal is a convenience wrapper over Write for callers that want bytes
// rather than a writer (e.g. handing a payload to the CAS client adapter).
func Marshal(g *Graph, compilerVersion string) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, g, compilerVersion); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal is a convenience wrapper over Read for in-memory byte slices.
func Unmarshal(data []byte) (*Graph, error) {
	return Read(bytes.NewReader(data))
}
