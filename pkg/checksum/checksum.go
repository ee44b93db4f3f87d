// Package checksum provides integrity digests for stored records.
package checksum

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
)

// Size is the length of an encoded digest.
var Size = base64.StdEncoding.EncodedLen(sha256.Size)

// Sum computes the SHA-256 digest of data.
//
// The returned digest is base64 encoded for storage.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return base64.StdEncoding.EncodeToString(h[:])
}

// Verify verifies data against an expected digest.
//
// Uses constant-time comparison to prevent timing attacks.
func Verify(data []byte, expected string) bool {
	actual := Sum(data)
	return subtle.ConstantTimeCompare([]byte(actual), []byte(expected)) == 1
}
