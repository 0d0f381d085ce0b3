package goToken

import (
	"context"
	"time"

	"github.com/MrEthical07/goToken/jwt"
)

// TokenKind is the role of a token: access or refresh.
type TokenKind = jwt.Kind

const (
	KindAccess  TokenKind = jwt.KindAccess
	KindRefresh TokenKind = jwt.KindRefresh
)

// Principal is the authenticated identity as known to the host application.
// Higher RoleRank means more privilege.
type Principal struct {
	Subject      string
	Username     string
	RoleRank     int
	PasswordHash string
}

// PrincipalProvider resolves principals from the host's user records.
//
// An absent principal is reported either as (nil, nil) or as
// [ErrPrincipalNotFound]; any other error is a lookup failure.
type PrincipalProvider interface {
	FindPrincipalBySubject(ctx context.Context, subject string) (*Principal, error)
	FindPrincipalByUsername(ctx context.Context, username string) (*Principal, error)
}

// CredentialVerifier decides whether secret proves the principal's identity.
type CredentialVerifier interface {
	VerifyCredential(ctx context.Context, principal *Principal, secret string) (bool, error)
}

// CredentialVerifierFunc adapts a function to [CredentialVerifier].
type CredentialVerifierFunc func(ctx context.Context, principal *Principal, secret string) (bool, error)

// VerifyCredential calls f.
func (f CredentialVerifierFunc) VerifyCredential(ctx context.Context, principal *Principal, secret string) (bool, error) {
	return f(ctx, principal, secret)
}

// TokenPair is the result of a successful issue or rotation. Both tokens are
// bound to Subject and ClientContext.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
	Subject          string
	ClientContext    string
}

// AuthResult is returned by [Engine.Authenticate].
type AuthResult struct {
	Subject       string
	ClientContext string
	Principal     *Principal
}
