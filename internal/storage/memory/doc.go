// Package memory provides an in-memory raw dictionary.
//
// Dict keeps values in a sharded concurrent map. It is used when no
// persistent engine is configured and by tests that exercise the
// record store without touching disk.
//
// Thread Safety:
//
// All operations are thread-safe through per-shard locking.
// DeleteIf holds the key's shard lock while evaluating its predicate.
package memory
