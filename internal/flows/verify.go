package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/goToken/jwt"
	"github.com/MrEthical07/goToken/session"
)

// VerifyFailureKind classifies verification failures for root-level mapping.
type VerifyFailureKind int

const (
	VerifyFailureNone VerifyFailureKind = iota
	VerifyFailureMissing
	VerifyFailureMalformed
	VerifyFailureExpired
	VerifyFailureKindMismatch
	VerifyFailureSessionInvalidated
	VerifyFailureStore
)

// VerifyResult returns either the verified claims or a classified failure.
type VerifyResult struct {
	Failure VerifyFailureKind
	Err     error
	Claims  *jwt.Claims
}

type VerifySessionStore interface {
	Matches(ctx context.Context, key session.Key, token string) (bool, error)
}

// VerifyDeps captures verification dependencies.
type VerifyDeps struct {
	Now          func() time.Time
	Leeway       time.Duration
	Decode       func(string) (*jwt.Claims, error)
	SessionStore VerifySessionStore
}

// RunVerify checks token in order: signature and structure, kind, expiry
// against deps.Now, then liveness in the store under (kind, subject,
// clientContext). It never writes.
func RunVerify(ctx context.Context, token string, expected jwt.Kind, clientContext string, deps VerifyDeps) VerifyResult {
	if token == "" {
		return VerifyResult{Failure: VerifyFailureMissing}
	}

	claims, err := deps.Decode(token)
	if err != nil {
		if errors.Is(err, jwt.ErrExpired) {
			return VerifyResult{Failure: VerifyFailureExpired, Err: err, Claims: claims}
		}
		return VerifyResult{Failure: VerifyFailureMalformed, Err: err}
	}

	if claims.Kind != expected {
		return VerifyResult{Failure: VerifyFailureKindMismatch, Claims: claims}
	}

	// The codec's clock may differ from ours; exp is re-checked here.
	if claims.ExpiredAt(deps.Now().Add(-deps.Leeway)) {
		return VerifyResult{Failure: VerifyFailureExpired, Claims: claims}
	}

	key := session.Key{Kind: expected, Subject: claims.Subject, ClientContext: clientContext}
	if err := key.Validate(); err != nil {
		// No entry can exist under a malformed context.
		return VerifyResult{Failure: VerifyFailureSessionInvalidated, Err: err, Claims: claims}
	}

	ok, err := deps.SessionStore.Matches(ctx, key, token)
	if err != nil {
		return VerifyResult{Failure: VerifyFailureStore, Err: err, Claims: claims}
	}
	if !ok {
		return VerifyResult{Failure: VerifyFailureSessionInvalidated, Claims: claims}
	}

	return VerifyResult{Failure: VerifyFailureNone, Claims: claims}
}
