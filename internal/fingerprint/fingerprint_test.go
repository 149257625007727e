package fingerprint

import (
	"testing"
	"time"
)

func TestOfIsDeterministic(t *testing.T) {
	a := Of([]byte("let foo = 1"))
	b := Of([]byte("let foo = 1"))
	if a != b {
		t.Fatal("expected identical content to hash identically")
	}
	c := Of([]byte("let foo = 2"))
	if a == c {
		t.Fatal("expected different content to hash differently")
	}
}

func TestOfExternalStableAcrossRepeatedProbes(t *testing.T) {
	mt := time.Unix(1000, 0)
	a := OfExternal("Foundation.swiftmodule", mt)
	b := OfExternal("Foundation.swiftmodule", mt)
	if a != b {
		t.Fatal("expected stable fingerprint for unchanged path+mtime")
	}
	c := OfExternal("Foundation.swiftmodule", mt.Add(time.Second))
	if a == c {
		t.Fatal("expected a newer mtime to change the fingerprint")
	}
}
