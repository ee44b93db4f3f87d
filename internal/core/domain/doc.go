// Package domain defines the core domain models for tokvault.
//
// Domain models are pure value objects without any IO dependencies
// or framework coupling. This package contains:
//
//   - Record: the persisted unit of storage and its JSON wire form
//   - Errors: domain-specific error definitions
package domain
