// Package adaptive provides authenticated encryption for tokvault records.
//
// This package implements a cipher abstraction over the AEAD constructions
// tokvault supports. The nonce is kept separate from the ciphertext so that
// callers can persist it next to the payload (the record's iv field).
//
// Supported Algorithms:
//
//   - AES-256-GCM: default, hardware accelerated on amd64/arm64
//   - ChaCha20-Poly1305: fallback for systems without AES instructions
//
// Usage:
//
//	c, err := adaptive.NewWithType(key, adaptive.CipherAESGCM)
//	nonce, err := c.NewNonce()
//	sealed, err := c.Seal(nonce, plaintext, aad)
//	plaintext, err := c.Open(nonce, sealed, aad)
package adaptive
