// Package session is the store of record for live tokens.
//
// Each entry maps (kind, subject, client context) to the one token currently
// accepted for that key, with a TTL equal to the token's remaining lifetime.
// Writing a key replaces its previous token; that replacement is what revokes
// a rotated token. Entries are plain Redis strings under
// "{kind}:{subject}:{clientContext}", optionally namespaced by a prefix.
//
// # Architecture boundaries
//
// This package owns the [Store] (Redis operations) and the [Key] model. It does
// NOT verify signatures, look up principals, or decide authentication outcomes;
// those belong to the Engine.
//
// # Failure model
//
// Absence is reported as [ErrNotFound]. Any transport failure, script failure
// or timeout is wrapped in [ErrStoreUnavailable]. The two are never conflated.
package session
