// Package goToken issues, verifies, rotates and revokes short-lived JWT
// access/refresh pairs, with Redis as the store of record that makes them
// revocable.
//
// Every token is bound to a subject and a client context (a digest of the
// client's User-Agent and address, or an opaque server-generated id). The
// live token for each (kind, subject, clientContext) is stored under
// "{kind}:{subject}:{clientContext}"; a token verifies only while it is that
// stored value. Issuing or rotating a pair overwrites the previous one, so at
// most one pair per subject and client context is ever live.
//
// Engine methods are safe to call from multiple goroutines after
// initialization through [Builder.Build].
//
// # Architecture boundaries
//
// goToken is the public surface: [Engine], [Builder], [Config], the error
// taxonomy and value types. Flow orchestration and audit dispatch live under
// internal/. The token codec ([jwt]) and the Redis store ([session]) are
// public leaf packages with no dependency on this one.
//
// # Failure model
//
// Store failures are fail-closed: every operation that cannot reach Redis
// returns [ErrStoreUnavailable], never a pass and never
// [ErrSessionInvalidated]. [FailureOf] and [HTTPStatus] classify any
// returned error.
package goToken
