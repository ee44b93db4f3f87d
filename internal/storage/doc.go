// Package storage provides the raw dictionary and the expiring record store.
//
// Layers:
//
//   - Dict: ordered string-keyed dictionary with atomic single-key
//     operations (BadgerDict here, memory.Dict in the memory package)
//   - Store: namespaced records encoded by codec.Codec, with TTL expiry,
//     self-healing reads and single-flight sweeps
//   - Sweeper: periodic SweepExpired on an injected clock
//
// Key layout inside a namespace ns:
//
//	ns:rec:<name>   one encoded record per name
//	ns:salt         key-derivation salt entry (never touched by Clear)
package storage
