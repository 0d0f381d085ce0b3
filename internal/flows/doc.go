// Package flows contains the orchestration behind every Engine operation.
//
// Each flow function (RunIssuePair, RunVerify, RunRotate, RunAuthenticate,
// RunLogin, the revoke flows) accepts a typed dependency struct and returns a
// result carrying a failure kind. The root package maps failure kinds onto its
// public error taxonomy, metrics and audit events.
//
// # Architecture boundaries
//
// Flows coordinate the token codec, the session store and the principal
// lookups the Engine hands them. They do NOT own any of these resources.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import goToken (to avoid import cycles).
//   - Perform I/O directly. All I/O goes through dependency interfaces.
package flows
