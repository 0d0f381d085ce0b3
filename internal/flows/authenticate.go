package flows

import (
	"context"

	"github.com/MrEthical07/goToken/jwt"
)

// PrincipalRecord is a flow-local principal model.
type PrincipalRecord struct {
	Subject      string
	Username     string
	RoleRank     int
	PasswordHash string
}

// AuthenticateFailureKind classifies gate failures for root-level mapping.
type AuthenticateFailureKind int

const (
	AuthenticateFailureNone AuthenticateFailureKind = iota
	AuthenticateFailureVerify
	AuthenticateFailurePrincipalNotFound
	AuthenticateFailurePrincipalLookup
	AuthenticateFailureForbidden
)

// AuthenticateResult carries the resolved principal or failure metadata.
// VerifyFailure is set when Failure is AuthenticateFailureVerify.
type AuthenticateResult struct {
	Failure       AuthenticateFailureKind
	VerifyFailure VerifyFailureKind
	Err           error
	Subject       string
	Principal     *PrincipalRecord
}

// AuthenticateDeps captures gate dependencies. FindPrincipal returns
// (nil, nil) for an absent subject.
type AuthenticateDeps struct {
	Verify        VerifyDeps
	FindPrincipal func(context.Context, string) (*PrincipalRecord, error)
}

// RunAuthenticate verifies accessToken, resolves its subject and, when
// minRank is positive, requires the principal's rank to reach it.
func RunAuthenticate(ctx context.Context, accessToken, clientContext string, minRank int, deps AuthenticateDeps) AuthenticateResult {
	verified := RunVerify(ctx, accessToken, jwt.KindAccess, clientContext, deps.Verify)
	if verified.Failure != VerifyFailureNone {
		return AuthenticateResult{
			Failure:       AuthenticateFailureVerify,
			VerifyFailure: verified.Failure,
			Err:           verified.Err,
		}
	}
	subject := verified.Claims.Subject

	principal, err := deps.FindPrincipal(ctx, subject)
	if err != nil {
		return AuthenticateResult{Failure: AuthenticateFailurePrincipalLookup, Err: err, Subject: subject}
	}
	if principal == nil {
		return AuthenticateResult{Failure: AuthenticateFailurePrincipalNotFound, Subject: subject}
	}

	if minRank > 0 && principal.RoleRank < minRank {
		return AuthenticateResult{Failure: AuthenticateFailureForbidden, Subject: subject, Principal: principal}
	}

	return AuthenticateResult{Failure: AuthenticateFailureNone, Subject: subject, Principal: principal}
}
