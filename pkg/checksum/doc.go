// Package checksum provides integrity digests for stored records.
//
// Digest Format:
//
//   - SHA-256 over the exact stored bytes
//   - Standard base64 encoding (44 characters)
//
// Verification uses constant-time comparison.
package checksum
