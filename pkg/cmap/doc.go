// Package cmap provides a string-keyed concurrent map split into
// independently locked shards.
//
// Shards are selected with murmur3. Conditional deletes run their
// predicate under the shard lock, which the in-memory dictionary relies
// on for compare-and-delete during expiry sweeps.
//
//	m := cmap.New[[]byte]()
//	m.Set("tokvault:rec:auth_token", raw)
//	raw, ok := m.Get("tokvault:rec:auth_token")
package cmap
