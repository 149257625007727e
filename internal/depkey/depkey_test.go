package depkey

import (
	"testing"

	"incdriver/internal/ids"
)

func TestKeyEquality(t *testing.T) {
	tbl := ids.New()
	name := tbl.Intern("foo")

	a := DependencyKey{Aspect: Interface, Designator: TopLevel(name)}
	b := DependencyKey{Aspect: Interface, Designator: TopLevel(name)}
	c := DependencyKey{Aspect: Implementation, Designator: TopLevel(name)}

	if a != b {
		t.Fatalf("expected identical keys to compare equal")
	}
	if a == c {
		t.Fatalf("expected different aspects to compare unequal")
	}
}

func TestOppositeAspect(t *testing.T) {
	if OppositeAspect(Interface) != Implementation {
		t.Fatalf("expected opposite of Interface to be Implementation")
	}
	if OppositeAspect(Implementation) != Interface {
		t.Fatalf("expected opposite of Implementation to be Interface")
	}
}

func TestTotalOrder(t *testing.T) {
	tbl := ids.New()
	n1 := tbl.Intern("a")
	n2 := tbl.Intern("b")

	k1 := DependencyKey{Aspect: Interface, Designator: TopLevel(n1)}
	k2 := DependencyKey{Aspect: Interface, Designator: TopLevel(n2)}

	if !k1.Less(k2) {
		t.Fatalf("expected k1 < k2 under sorted string ids")
	}
	if k2.Less(k1) {
		t.Fatalf("ordering is not antisymmetric")
	}
}

func TestMemberDesignatorFields(t *testing.T) {
	tbl := ids.New()
	ctx := tbl.Intern("MyClass")
	name := tbl.Intern("method")

	d := Member(ctx, name)
	if d.Tag != TagMember || d.Context != ctx || d.Name != name {
		t.Fatalf("Member() produced unexpected designator: %+v", d)
	}
}
