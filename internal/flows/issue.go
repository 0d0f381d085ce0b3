package flows

import (
	"context"
	"time"

	"github.com/MrEthical07/goToken/jwt"
	"github.com/MrEthical07/goToken/session"
)

// IssueFailureKind classifies issue flow failures for root-level mapping.
type IssueFailureKind int

const (
	IssueFailureNone IssueFailureKind = iota
	IssueFailureInvalidInput
	IssueFailureSign
	IssueFailureStore
)

// IssueResult carries either the minted pair or failure metadata.
type IssueResult struct {
	Failure IssueFailureKind
	Err     error
	Pair    MintedPair
}

// MintedPair is a signed access/refresh pair and the instants it expires.
type MintedPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
	AccessTTL        time.Duration
	RefreshTTL       time.Duration
}

type IssueSessionStore interface {
	PutPair(
		ctx context.Context,
		accessKey session.Key, accessToken string, accessTTL time.Duration,
		refreshKey session.Key, refreshToken string, refreshTTL time.Duration,
	) error
	DeletePair(ctx context.Context, accessKey, refreshKey session.Key) error
}

// MintDeps captures what is needed to sign a fresh pair.
type MintDeps struct {
	Now        func() time.Time
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	NewTokenID func() (string, error)
	Encode     func(jwt.Claims) (string, error)
}

// IssueDeps captures issue flow dependencies.
type IssueDeps struct {
	Mint           MintDeps
	SessionStore   IssueSessionStore
	CleanupTimeout time.Duration
	Warn           func(string, ...any)
}

// MintPair signs an access and a refresh token for subject from a single
// clock reading. Expiry instants are truncated to the token's second
// precision so a store TTL derived from them never outlives the token.
func MintPair(subject string, deps MintDeps) (MintedPair, error) {
	now := deps.Now()
	accessExp := now.Add(deps.AccessTTL).Truncate(time.Second)
	refreshExp := now.Add(deps.RefreshTTL).Truncate(time.Second)

	pair := MintedPair{
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
		AccessTTL:        accessExp.Sub(now),
		RefreshTTL:       refreshExp.Sub(now),
	}
	if pair.AccessTTL < time.Millisecond || pair.RefreshTTL < time.Millisecond {
		return MintedPair{}, session.ErrInvalidTTL
	}

	issuedAt := now.Truncate(time.Second)
	access, err := mintOne(subject, jwt.KindAccess, accessExp, issuedAt, deps)
	if err != nil {
		return MintedPair{}, err
	}
	refresh, err := mintOne(subject, jwt.KindRefresh, refreshExp, issuedAt, deps)
	if err != nil {
		return MintedPair{}, err
	}

	pair.AccessToken = access
	pair.RefreshToken = refresh
	return pair, nil
}

func mintOne(subject string, kind jwt.Kind, expiresAt, issuedAt time.Time, deps MintDeps) (string, error) {
	id, err := deps.NewTokenID()
	if err != nil {
		return "", err
	}
	return deps.Encode(jwt.Claims{
		Subject:   subject,
		Kind:      kind,
		ExpiresAt: expiresAt,
		IssuedAt:  issuedAt,
		ID:        id,
	})
}

// RunIssuePair mints a pair for subject and clientContext and records both
// halves in one store transaction. When the write fails the pair's keys are
// deleted on a detached context so no half-written session survives.
func RunIssuePair(ctx context.Context, subject, clientContext string, deps IssueDeps) IssueResult {
	if deps.Warn == nil {
		deps.Warn = func(string, ...any) {}
	}
	if deps.CleanupTimeout <= 0 {
		deps.CleanupTimeout = session.DefaultOpTimeout
	}

	accessKey, refreshKey := session.PairKeys(subject, clientContext)
	if err := refreshKey.Validate(); err != nil {
		return IssueResult{Failure: IssueFailureInvalidInput, Err: err}
	}

	pair, err := MintPair(subject, deps.Mint)
	if err != nil {
		return IssueResult{Failure: IssueFailureSign, Err: err}
	}

	err = deps.SessionStore.PutPair(
		ctx,
		accessKey, pair.AccessToken, pair.AccessTTL,
		refreshKey, pair.RefreshToken, pair.RefreshTTL,
	)
	if err != nil {
		cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), deps.CleanupTimeout)
		defer cancel()
		if delErr := deps.SessionStore.DeletePair(cleanupCtx, accessKey, refreshKey); delErr != nil {
			deps.Warn("goToken: compensating delete after failed issue",
				"subject", subject,
				"error", delErr,
			)
		}
		return IssueResult{Failure: IssueFailureStore, Err: err}
	}

	return IssueResult{Failure: IssueFailureNone, Pair: pair}
}
