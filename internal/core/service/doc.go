// Package service provides the named-store facade of tokvault.
//
// SecureStore maps well-known names (auth token, session data, user
// preferences, cached queries, sensitive settings) onto storage policies
// (encryption, compression, TTL) and owns the master key lifecycle:
// deriving it from a passphrase with a persisted salt, or generating a
// session key when no passphrase is given.
//
// The facade defines interfaces for its storage and key dependencies so
// that tests can substitute them.
package service
