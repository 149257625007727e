package planner

import (
	"sort"
	"strings"

	"incdriver/internal/fingerprint"
)

// nonSemanticFlags never affect whether this build is incremental-
// compatible with the last one: reordering them, or changing their value,
// must never change ArgsHash. Taken verbatim from the driver option table
// in §6.
var nonSemanticFlags = map[string]bool{
	"-driver-show-incremental":    true,
	"-driver-show-job-lifecycle":  true,
	"-driver-emit-fine-grained-dependency-dot-file-after-every-import": true,
	"-driver-verify-fine-grained-dependency-graph-after-every-import":  true,
}

// commutativeFlags take a value and are explicitly repeatable per §6 ("
// -scanner-prefix-map from=to (repeatable)", "-module-alias A=B"); their
// *values* are semantic but their relative order is not, so they are
// sorted before hashing rather than dropped or left positional.
var commutativeFlags = map[string]bool{
	"-scanner-prefix-map": true,
	"-module-alias":       true,
}

// NormalizeArgs drops non-semantic options and sorts commutative-flag
// value groups, leaving every other option's relative position untouched.
// This is deliberately conservative: an option this table does not name
// (e.g. "-I") is treated as positional and semantic by default, matching
// scenario 5 in §8 where reordering "-Ifoo -Ibar" to "-Ibar -Ifoo" must
// still change the hash.
func NormalizeArgs(args []string) []string {
	var positional []string
	grouped := make(map[string][]string)

	i := 0
	for i < len(args) {
		tok := args[i]
		flag, inlineVal, hasInline := splitFlagValue(tok)

		if nonSemanticFlags[flag] {
			i++
			continue
		}
		if commutativeFlags[flag] {
			value := inlineVal
			consumed := 1
			if !hasInline && i+1 < len(args) {
				value = args[i+1]
				consumed = 2
			}
			grouped[flag] = append(grouped[flag], value)
			i += consumed
			continue
		}
		positional = append(positional, tok)
		i++
	}

	flagNames := make([]string, 0, len(grouped))
	for f := range grouped {
		flagNames = append(flagNames, f)
	}
	sort.Strings(flagNames)

	out := make([]string, 0, len(positional)+len(grouped)*2)
	out = append(out, positional...)
	for _, f := range flagNames {
		values := append([]string(nil), grouped[f]...)
		sort.Strings(values)
		for _, v := range values {
			out = append(out, f, v)
		}
	}
	return out
}

func splitFlagValue(tok string) (flag, value string, hasInline bool) {
	if idx := strings.Index(tok, "="); idx >= 0 && strings.HasPrefix(tok, "-") {
		return tok[:idx], tok[idx+1:], true
	}
	return tok, "", false
}

// ArgsHash computes the hash stored as BuildRecord.ArgsHash: a hash of the
// normalized argument vector, so a semantic change (new value, new
// options, or reordering a positional option) produces a different hash
// while a non-semantic change never does (§4.I "Option-change handling").
func ArgsHash(args []string) string {
	return fingerprint.Of([]byte(strings.Join(NormalizeArgs(args), "\x00")))
}
