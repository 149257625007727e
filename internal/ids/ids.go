// Package ids implements the interned string table shared by every graph in
// the driver: the SFDG, the MDG, and the IMDG all refer to names,
// path-as-names, and fingerprints through small dense integers rather than
// raw strings, so node equality and map lookups are O(1) and graphs compare
// cheaply by id rather than by string content.
package ids

import "sort"

// StringId is a dense, process-private identifier for an interned string.
// Equality on StringId is equality on the underlying string; ids are stable
// only within the Table that produced them — a StringId obtained from one
// Table means nothing to another and must never be compared across tables.
type StringId uint32

// Empty is the StringId of the empty string, interned as pool index 0 by
// every fresh Table so on-disk formats with an implicit "index 0 == empty
// string" convention never need a sentinel value.
const Empty StringId = 0

// Table is a bidirectional string <-> StringId mapping. The zero value is
// not usable; construct with New.
type Table struct {
	strings []string
	ids     map[string]StringId
}

// New returns a Table with the empty string pre-interned at id Empty.
func New() *Table {
	t := &Table{
		strings: make([]string, 0, 64),
		ids:     make(map[string]StringId, 64),
	}
	t.strings = append(t.strings, "")
	t.ids[""] = Empty
	return t
}

// Intern returns the StringId for s, assigning a new dense id the first
// time s is seen.
func (t *Table) Intern(s string) StringId {
	if id, ok := t.ids[s]; ok {
		return id
	}
	id := StringId(len(t.strings))
	t.strings = append(t.strings, s)
	t.ids[s] = id
	return id
}

// Lookup returns the string for id. It panics on an out-of-range id, since
// a StringId the Table itself did not hand out is always a programming
// error, never a recoverable input condition.
func (t *Table) Lookup(id StringId) string {
	return t.strings[id]
}

// TryLookup is the non-panicking form of Lookup, for callers validating an
// id that crossed a serialization boundary.
func (t *Table) TryLookup(id StringId) (string, bool) {
	if int(id) < 0 || int(id) >= len(t.strings) {
		return "", false
	}
	return t.strings[id], true
}

// Len returns the number of interned strings, including the empty string.
func (t *Table) Len() int {
	return len(t.strings)
}

// Strings returns the interned strings in id order (index i is the string
// for StringId(i)). The returned slice must not be mutated.
func (t *Table) Strings() []string {
	return t.strings
}

// Clone returns an independent copy of the table; mutating the clone never
// affects the receiver.
func (t *Table) Clone() *Table {
	out := &Table{
		strings: make([]string, len(t.strings)),
		ids:     make(map[string]StringId, len(t.ids)),
	}
	copy(out.strings, t.strings)
	for k, v := range t.ids {
		out.ids[k] = v
	}
	return out
}

// FromStrings rebuilds a Table from a pool in id order, as produced by a
// deserializer that has already read the string pool section of a graph
// file. strings[0] must be the empty string.
func FromStrings(strings []string) (*Table, error) {
	t := &Table{
		strings: make([]string, len(strings)),
		ids:     make(map[string]StringId, len(strings)),
	}
	copy(t.strings, strings)
	for i, s := range strings {
		// Later duplicates (which should not occur in a well-formed pool,
		// but an adversarial file may contain them) keep the first id so
		// Intern after reconstruction stays consistent with the file.
		if _, exists := t.ids[s]; !exists {
			t.ids[s] = StringId(i)
		}
	}
	if len(t.strings) == 0 || t.strings[0] != "" {
		return nil, errEmptyStringNotFirst
	}
	return t, nil
}

var errEmptyStringNotFirst = tableError("string pool index 0 must be the empty string")

type tableError string

func (e tableError) Error() string { return string(e) }

// SortedIds returns every interned id in ascending order, used wherever the
// spec requires deterministic, sorted-key iteration.
func (t *Table) SortedIds() []StringId {
	out := make([]StringId, len(t.strings))
	for i := range out {
		out[i] = StringId(i)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
