// Package repositories provides the persistence layer.
//
// [LocalStorage] is a string key/value table in SQLite, the durable equivalent of a browser's localStorage.
// [VerifierStore] wraps one key of it ("verifier") to hand the PKCE code verifier across the
// authorization redirect, which may span two processes.
package repositories
