// Package keymgr manages the symmetric keys used to seal stored records.
//
// A Manager holds exactly one master key and a cache of auxiliary keys
// registered under caller-chosen IDs. Keys are never persisted; only the
// salt and KDF parameters used to derive a passphrase key are, by the
// caller. A missing key is always reported as domain.ErrKeyUnavailable,
// never substituted.
package keymgr
