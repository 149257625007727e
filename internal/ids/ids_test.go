package ids

import "testing"

func TestInternDedup(t *testing.T) {
	tbl := New()
	a := tbl.Intern("foo")
	b := tbl.Intern("bar")
	c := tbl.Intern("foo")

	if a != c {
		t.Fatalf("expected interning the same string twice to return the same id, got %d and %d", a, c)
	}
	if a == b {
		t.Fatalf("expected distinct strings to get distinct ids")
	}
	if tbl.Lookup(a) != "foo" || tbl.Lookup(b) != "bar" {
		t.Fatalf("lookup did not round-trip: %q %q", tbl.Lookup(a), tbl.Lookup(b))
	}
}

func TestEmptyStringIsIndexZero(t *testing.T) {
	tbl := New()
	if id := tbl.Intern(""); id != Empty {
		t.Fatalf("expected empty string to intern as Empty (0), got %d", id)
	}
	if tbl.Lookup(Empty) != "" {
		t.Fatalf("expected Empty to look up to empty string")
	}
}

func TestFromStringsRoundTrip(t *testing.T) {
	tbl := New()
	a := tbl.Intern("alpha")
	b := tbl.Intern("beta")

	rebuilt, err := FromStrings(tbl.Strings())
	if err != nil {
		t.Fatalf("FromStrings: %v", err)
	}
	if rebuilt.Lookup(a) != "alpha" || rebuilt.Lookup(b) != "beta" {
		t.Fatalf("rebuilt table does not match original")
	}
	if rebuilt.Intern("alpha") != a {
		t.Fatalf("expected re-interning a known string to reuse its original id")
	}
}

func TestFromStringsRejectsMissingEmptyFirst(t *testing.T) {
	if _, err := FromStrings([]string{"not-empty"}); err == nil {
		t.Fatalf("expected error when pool index 0 is not the empty string")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	tbl := New()
	tbl.Intern("shared")
	clone := tbl.Clone()
	clone.Intern("only-in-clone")

	if tbl.Len() == clone.Len() {
		t.Fatalf("expected clone mutation not to affect original table")
	}
}

func TestTryLookupOutOfRange(t *testing.T) {
	tbl := New()
	if _, ok := tbl.TryLookup(StringId(999)); ok {
		t.Fatalf("expected out-of-range lookup to fail")
	}
}
