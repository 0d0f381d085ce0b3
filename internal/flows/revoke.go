package flows

import (
	"context"

	"github.com/MrEthical07/goToken/jwt"
	"github.com/MrEthical07/goToken/session"
)

type RevokeSessionStore interface {
	DeletePair(ctx context.Context, accessKey, refreshKey session.Key) error
	DeleteAllForSubject(ctx context.Context, subject string) (int, error)
}

// RevokeDeps captures revocation dependencies.
type RevokeDeps struct {
	Verify       VerifyDeps
	SessionStore RevokeSessionStore
}

// RevokeByAccessResult reports the outcome of a logout by access token.
type RevokeByAccessResult struct {
	VerifyFailure VerifyFailureKind
	Subject       string
	Err           error
}

// RunRevokePair deletes both entries for (subject, clientContext). Revoking
// an absent pair succeeds.
func RunRevokePair(ctx context.Context, subject, clientContext string, deps RevokeDeps) error {
	accessKey, refreshKey := session.PairKeys(subject, clientContext)
	if err := refreshKey.Validate(); err != nil {
		return err
	}
	return deps.SessionStore.DeletePair(ctx, accessKey, refreshKey)
}

// RunRevokeAll deletes every entry for subject across all client contexts
// and returns how many keys were removed.
func RunRevokeAll(ctx context.Context, subject string, deps RevokeDeps) (int, error) {
	return deps.SessionStore.DeleteAllForSubject(ctx, subject)
}

// RunRevokeByAccessToken verifies accessToken for clientContext and revokes
// the pair it belongs to. A token that does not verify revokes nothing.
func RunRevokeByAccessToken(ctx context.Context, accessToken, clientContext string, deps RevokeDeps) RevokeByAccessResult {
	verified := RunVerify(ctx, accessToken, jwt.KindAccess, clientContext, deps.Verify)
	if verified.Failure != VerifyFailureNone {
		return RevokeByAccessResult{VerifyFailure: verified.Failure, Err: verified.Err}
	}

	subject := verified.Claims.Subject
	if err := RunRevokePair(ctx, subject, clientContext, deps); err != nil {
		return RevokeByAccessResult{Subject: subject, Err: err}
	}
	return RevokeByAccessResult{Subject: subject}
}
