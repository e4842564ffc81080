// Package storage defines the persistence contracts of the issue tracker.
//
// # Overview
//
// The auth layer never talks to a database directly. It depends on the
// CredentialStore interface declared here, and the concrete backends live in
// sub-packages:
//
//   - postgres: database/sql over lib/pq, the production backend
//   - memory: map-backed stores for local runs and tests
//   - cache: a read-through user cache (Redis or in-process LRU) that wraps
//     any CredentialStore
//
// # Errors
//
// Backends report absence with ErrNotFound and uniqueness violations with
// ErrConflict. Callers match them with errors.Is. Any other error is a
// backend failure and is passed through wrapped.
//
// # User records
//
// User is the stored credential record. Its password hash and reset fields are
// excluded from JSON so a record can be written to a response as-is.
package storage
