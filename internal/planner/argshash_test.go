package planner

import "testing"

func TestArgsHashIgnoresNonSemanticFlags(t *testing.T) {
	a := ArgsHash([]string{"-c", "main.swift", "-driver-show-incremental"})
	b := ArgsHash([]string{"-c", "main.swift"})
	if a != b {
		t.Fatal("expected a non-semantic flag to leave the hash unchanged")
	}
}

func TestArgsHashIgnoresCommutativeFlagOrder(t *testing.T) {
	a := ArgsHash([]string{"-module-alias", "A=B", "-module-alias", "C=D"})
	b := ArgsHash([]string{"-module-alias", "C=D", "-module-alias", "A=B"})
	if a != b {
		t.Fatal("expected reordering a commutative flag's repeated occurrences to leave the hash unchanged")
	}
}

func TestArgsHashChangesOnPositionalReorder(t *testing.T) {
	// Scenario 5 (§8): reordering "-Ifoo -Ibar" to "-Ibar -Ifoo" must
	// change the hash, since "-I" is not named in commutativeFlags.
	a := ArgsHash([]string{"-Ifoo", "-Ibar"})
	b := ArgsHash([]string{"-Ibar", "-Ifoo"})
	if a == b {
		t.Fatal("expected reordering an unlisted positional flag to change the hash")
	}
}

func TestArgsHashChangesOnNewValue(t *testing.T) {
	a := ArgsHash([]string{"-c", "main.swift"})
	b := ArgsHash([]string{"-c", "other.swift"})
	if a == b {
		t.Fatal("expected a genuinely different argument vector to hash differently")
	}
}
