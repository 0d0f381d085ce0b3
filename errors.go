package goToken

import (
	"errors"
	"net/http"
)

var (
	// ErrTokenMissing is returned when no token was presented.
	ErrTokenMissing = errors.New("token missing")
	// ErrTokenMalformed covers bad structure, bad signature, wrong algorithm
	// and missing or unknown claims.
	ErrTokenMalformed = errors.New("token malformed")
	// ErrTokenExpired is returned for an authentic token whose exp has passed.
	ErrTokenExpired = errors.New("token expired")
	// ErrKindMismatch is returned when an access token is presented where a
	// refresh token is expected, or the other way round.
	ErrKindMismatch = errors.New("token kind mismatch")
	// ErrSessionInvalidated is returned when the token is not the live entry
	// for its subject and client context (revoked, rotated or wrong context).
	ErrSessionInvalidated = errors.New("session invalidated")
	// ErrPrincipalNotFound is returned when a verified subject no longer resolves.
	ErrPrincipalNotFound = errors.New("principal not found")
	// ErrForbidden is returned when the principal's rank is below the threshold.
	ErrForbidden = errors.New("forbidden")
	// ErrStoreUnavailable is returned whenever the session store cannot answer.
	// Callers must treat it as a denial, never as a pass.
	ErrStoreUnavailable = errors.New("session store unavailable")
	// ErrInvalidCredentials is returned by Login for an unknown username or a
	// wrong secret. Both cases share the error.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrEngineNotReady is returned by methods of a nil or unbuilt Engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// Failure is the tagged classification of an error returned by the Engine.
type Failure uint8

const (
	FailureNone Failure = iota
	FailureTokenMissing
	FailureTokenMalformed
	FailureTokenExpired
	FailureKindMismatch
	FailureSessionInvalidated
	FailurePrincipalNotFound
	FailureForbidden
	FailureStoreUnavailable
	FailureInvalidCredentials
	FailureInternal
)

var failureNames = [...]string{
	FailureNone:               "none",
	FailureTokenMissing:       "token_missing",
	FailureTokenMalformed:     "token_malformed",
	FailureTokenExpired:       "token_expired",
	FailureKindMismatch:       "kind_mismatch",
	FailureSessionInvalidated: "session_invalidated",
	FailurePrincipalNotFound:  "principal_not_found",
	FailureForbidden:          "forbidden",
	FailureStoreUnavailable:   "store_unavailable",
	FailureInvalidCredentials: "invalid_credentials",
	FailureInternal:           "internal",
}

func (f Failure) String() string {
	if int(f) < len(failureNames) {
		return failureNames[f]
	}
	return "unknown"
}

// FailureOf classifies err. A nil error is FailureNone; anything outside the
// taxonomy is FailureInternal.
func FailureOf(err error) Failure {
	switch {
	case err == nil:
		return FailureNone
	case errors.Is(err, ErrStoreUnavailable):
		return FailureStoreUnavailable
	case errors.Is(err, ErrTokenMissing):
		return FailureTokenMissing
	case errors.Is(err, ErrTokenMalformed):
		return FailureTokenMalformed
	case errors.Is(err, ErrTokenExpired):
		return FailureTokenExpired
	case errors.Is(err, ErrKindMismatch):
		return FailureKindMismatch
	case errors.Is(err, ErrSessionInvalidated):
		return FailureSessionInvalidated
	case errors.Is(err, ErrPrincipalNotFound):
		return FailurePrincipalNotFound
	case errors.Is(err, ErrForbidden):
		return FailureForbidden
	case errors.Is(err, ErrInvalidCredentials):
		return FailureInvalidCredentials
	default:
		return FailureInternal
	}
}

// HTTPStatus maps err to the status code a transport layer should answer with.
func HTTPStatus(err error) int {
	switch FailureOf(err) {
	case FailureNone:
		return http.StatusOK
	case FailureTokenMissing,
		FailureTokenMalformed,
		FailureTokenExpired,
		FailureKindMismatch,
		FailureSessionInvalidated,
		FailurePrincipalNotFound,
		FailureInvalidCredentials:
		return http.StatusUnauthorized
	case FailureForbidden:
		return http.StatusForbidden
	case FailureStoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
