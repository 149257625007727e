// Package fingerprint computes the stable content hashes §3 calls
// "Fingerprint": a hash of a definition's salient content, or of an
// external dependency's (path, mtime) pair when no content hash is
// available. It uses blake2b rather than crypto/sha256, mirroring the
// teacher corpus's direct dependency on golang.org/x/crypto for content
// hashing.
package fingerprint

import (
	"encoding/hex"
	"fmt"
	"time"

	"golang.org/x/crypto/blake2b"
)

// Of returns the hex-encoded blake2b-256 digest of data.
func Of(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// OfExternal returns the fingerprint for an ExternalDepend node with no
// available content hash: a hash of path and modTime, per §4.E "External-
// change invalidation" ("a fingerprint derived from path + modification
// time"). Two probes of the same path at the same mtime always produce the
// same fingerprint, so InvalidateExternal's comparison is stable across
// repeated runs against an unchanged file.
func OfExternal(path string, modTime time.Time) string {
	return Of([]byte(fmt.Sprintf("%s@%d", path, modTime.UnixNano())))
}
