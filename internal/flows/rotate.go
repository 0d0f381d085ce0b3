package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/goToken/jwt"
	"github.com/MrEthical07/goToken/session"
)

// RotateFailureKind classifies rotation failures for root-level mapping.
type RotateFailureKind int

const (
	RotateFailureNone RotateFailureKind = iota
	RotateFailureVerify
	RotateFailureSign
	RotateFailureConflict
	RotateFailureStore
)

// RotateResult carries either the replacement pair or failure metadata.
// VerifyFailure is set when Failure is RotateFailureVerify.
type RotateResult struct {
	Failure       RotateFailureKind
	VerifyFailure VerifyFailureKind
	Err           error
	Subject       string
	Pair          MintedPair
}

type RotateSessionStore interface {
	VerifySessionStore
	RotatePair(
		ctx context.Context,
		refreshKey session.Key, presentedRefresh string,
		accessKey session.Key, nextAccess string, accessTTL time.Duration,
		nextRefresh string, refreshTTL time.Duration,
	) error
}

// RotateDeps captures rotation dependencies.
type RotateDeps struct {
	Verify       VerifyDeps
	Mint         MintDeps
	SessionStore RotateSessionStore
}

// RunRotate verifies refreshToken as a live refresh token for clientContext
// and swaps in a new pair. The swap is conditional on the stored refresh
// value still being refreshToken, so of two concurrent rotations of the same
// token only one can succeed.
func RunRotate(ctx context.Context, refreshToken, clientContext string, deps RotateDeps) RotateResult {
	verified := RunVerify(ctx, refreshToken, jwt.KindRefresh, clientContext, deps.Verify)
	if verified.Failure != VerifyFailureNone {
		return RotateResult{
			Failure:       RotateFailureVerify,
			VerifyFailure: verified.Failure,
			Err:           verified.Err,
		}
	}
	subject := verified.Claims.Subject

	pair, err := MintPair(subject, deps.Mint)
	if err != nil {
		return RotateResult{Failure: RotateFailureSign, Err: err, Subject: subject}
	}

	accessKey, refreshKey := session.PairKeys(subject, clientContext)
	err = deps.SessionStore.RotatePair(
		ctx,
		refreshKey, refreshToken,
		accessKey, pair.AccessToken, pair.AccessTTL,
		pair.RefreshToken, pair.RefreshTTL,
	)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrRotationConflict), errors.Is(err, session.ErrNotFound):
			return RotateResult{Failure: RotateFailureConflict, Err: err, Subject: subject}
		default:
			return RotateResult{Failure: RotateFailureStore, Err: err, Subject: subject}
		}
	}

	return RotateResult{Failure: RotateFailureNone, Subject: subject, Pair: pair}
}
