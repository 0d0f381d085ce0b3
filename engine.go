package goToken

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goToken/internal"
	internalaudit "github.com/MrEthical07/goToken/internal/audit"
	"github.com/MrEthical07/goToken/internal/flows"
	"github.com/MrEthical07/goToken/jwt"
	"github.com/MrEthical07/goToken/session"
	"go.uber.org/zap"
)

// Engine issues, verifies, rotates and revokes token pairs. It is safe for
// concurrent use once built.
type Engine struct {
	config     Config
	codec      *jwt.Codec
	store      *session.Store
	principals PrincipalProvider
	verifier   CredentialVerifier
	logger     *zap.Logger
	now        func() time.Time
	metrics    *Metrics
	audit      *internalaudit.Dispatcher
	flow       flows.Service
}

func (e *Engine) buildFlowService() flows.Service {
	verify := flows.VerifyDeps{
		Now:          e.now,
		Leeway:       e.config.JWT.Leeway,
		Decode:       e.codec.Decode,
		SessionStore: e.store,
	}
	mint := flows.MintDeps{
		Now:        e.now,
		AccessTTL:  e.config.JWT.AccessTTL,
		RefreshTTL: e.config.JWT.RefreshTTL,
		NewTokenID: internal.NewTokenID,
		Encode:     e.codec.Encode,
	}
	issue := flows.IssueDeps{
		Mint:           mint,
		SessionStore:   e.store,
		CleanupTimeout: e.config.Store.OpTimeout,
		Warn:           e.logger.Sugar().Warnw,
	}

	return flows.New(flows.Deps{
		Issue:  issue,
		Verify: verify,
		Rotate: flows.RotateDeps{
			Verify:       verify,
			Mint:         mint,
			SessionStore: e.store,
		},
		Revoke: flows.RevokeDeps{
			Verify:       verify,
			SessionStore: e.store,
		},
		Authenticate: flows.AuthenticateDeps{
			Verify:        verify,
			FindPrincipal: e.findPrincipalBySubject,
		},
		Login: flows.LoginDeps{
			FindByUsername:   e.findPrincipalByUsername,
			VerifyCredential: e.verifyCredential,
			Issue:            issue,
		},
	})
}

func (e *Engine) ready() bool {
	return e != nil && e.flow.Initialized()
}

// Close stops the audit dispatcher after flushing queued events. It does
// not close the Redis client, which the caller owns.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.audit.Close()
}

// Cookies returns the configured token cookie names.
func (e *Engine) Cookies() CookieConfig {
	if e == nil {
		return DefaultConfig().Cookie
	}
	return e.config.Cookie
}

// MetricsSnapshot returns the current counter values.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// Health pings the session store and reports its latency.
func (e *Engine) Health(ctx context.Context) (bool, time.Duration) {
	if !e.ready() {
		return false, 0
	}
	latency, err := e.store.Ping(ctx)
	if err != nil {
		e.logger.Warn("session store ping failed", zap.Error(err))
		return false, latency
	}
	return true, latency
}

// IssuePair signs a fresh access/refresh pair for subject bound to
// clientContext and makes it the live pair, replacing any earlier pair for
// the same (subject, clientContext). Both entries are written or neither is.
//
//	Performance: 1 MULTI/EXEC round trip.
func (e *Engine) IssuePair(ctx context.Context, subject, clientContext string) (*TokenPair, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	res := e.flow.IssuePair(ctx, subject, clientContext)
	if res.Failure != flows.IssueFailureNone {
		err := e.issueError(res.Failure, res.Err)
		e.metricInc(MetricIssueFailure)
		e.emitAudit(ctx, auditEventIssue, false, subject, clientContext, err, nil)
		return nil, err
	}

	e.metricInc(MetricIssueSuccess)
	e.emitAudit(ctx, auditEventIssue, true, subject, clientContext, nil, nil)
	return newTokenPair(res.Pair, subject, clientContext), nil
}

// Verify checks that token is authentic, unexpired, of kind expected and
// still the live token for its subject under clientContext. It returns the
// token's subject. Verify never writes to the store.
//
//	Performance: 1 GET.
func (e *Engine) Verify(ctx context.Context, token string, expected TokenKind, clientContext string) (string, error) {
	if !e.ready() {
		return "", ErrEngineNotReady
	}

	start := time.Now()
	res := e.flow.Verify(ctx, token, expected, clientContext)
	if e.metrics.LatencyEnabled() {
		e.metrics.Observe(MetricVerifyLatency, time.Since(start))
	}

	if res.Failure != flows.VerifyFailureNone {
		return "", e.verifyError(res.Failure, res.Err)
	}
	e.metricInc(MetricVerifySuccess)
	return res.Claims.Subject, nil
}

// RotatePair exchanges a live refresh token for a new pair under the same
// subject and clientContext. The presented refresh token and its sibling
// access token stop verifying. Of concurrent rotations of the same refresh
// token exactly one succeeds; the others get ErrSessionInvalidated.
//
//	Performance: 1 GET + 1 EVALSHA.
func (e *Engine) RotatePair(ctx context.Context, refreshToken, clientContext string) (*TokenPair, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	res := e.flow.Rotate(ctx, refreshToken, clientContext)
	if res.Failure != flows.RotateFailureNone {
		var err error
		switch res.Failure {
		case flows.RotateFailureVerify:
			err = e.verifyError(res.VerifyFailure, res.Err)
		case flows.RotateFailureConflict:
			e.metricInc(MetricRotateConflict)
			e.emitAudit(ctx, auditEventRotateConflict, false, res.Subject, clientContext, ErrSessionInvalidated, nil)
			err = ErrSessionInvalidated
		case flows.RotateFailureStore:
			err = e.storeError("rotate", res.Err)
		default:
			err = fmt.Errorf("rotate pair: %w", res.Err)
		}
		e.metricInc(MetricRotateFailure)
		return nil, err
	}

	e.metricInc(MetricRotateSuccess)
	e.emitAudit(ctx, auditEventRotate, true, res.Subject, clientContext, nil, nil)
	return newTokenPair(res.Pair, res.Subject, clientContext), nil
}

// RevokePair deletes the live pair for (subject, clientContext). Revoking a
// pair that does not exist succeeds.
//
//	Performance: 1 DEL.
func (e *Engine) RevokePair(ctx context.Context, subject, clientContext string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}

	if err := e.flow.RevokePair(ctx, subject, clientContext); err != nil {
		err = e.revokeError(err)
		e.emitAudit(ctx, auditEventRevokePair, false, subject, clientContext, err, nil)
		return err
	}

	e.metricInc(MetricRevokePair)
	e.emitAudit(ctx, auditEventRevokePair, true, subject, clientContext, nil, nil)
	return nil
}

// RevokeAll deletes every pair for subject across all client contexts.
//
// It is a SCAN followed by DELs and is not atomic: a pair issued while it
// runs may survive.
func (e *Engine) RevokeAll(ctx context.Context, subject string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}

	n, err := e.flow.RevokeAll(ctx, subject)
	if err != nil {
		err = e.revokeError(err)
		e.emitAudit(ctx, auditEventRevokeAll, false, subject, "", err, nil)
		return err
	}

	e.metricInc(MetricRevokeAll)
	e.emitAudit(ctx, auditEventRevokeAll, true, subject, "", nil, func() map[string]string {
		return map[string]string{"deleted_keys": fmt.Sprint(n)}
	})
	return nil
}

// RevokeByAccessToken verifies accessToken for clientContext and revokes its
// pair. It is the logout operation; a token that fails verification revokes
// nothing and returns the verification error.
func (e *Engine) RevokeByAccessToken(ctx context.Context, accessToken, clientContext string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}

	res := e.flow.RevokeByAccessToken(ctx, accessToken, clientContext)
	if res.VerifyFailure != flows.VerifyFailureNone {
		return e.verifyError(res.VerifyFailure, res.Err)
	}
	if res.Err != nil {
		err := e.revokeError(res.Err)
		e.emitAudit(ctx, auditEventRevokePair, false, res.Subject, clientContext, err, nil)
		return err
	}

	e.metricInc(MetricRevokePair)
	e.emitAudit(ctx, auditEventRevokePair, true, res.Subject, clientContext, nil, func() map[string]string {
		return map[string]string{"via": "access_token"}
	})
	return nil
}

// Authenticate verifies accessToken, resolves its principal and, when
// minRank is positive, requires principal.RoleRank >= minRank. It never
// writes to the store.
func (e *Engine) Authenticate(ctx context.Context, accessToken, clientContext string, minRank int) (*AuthResult, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	res := e.flow.Authenticate(ctx, accessToken, clientContext, minRank)
	if res.Failure != flows.AuthenticateFailureNone {
		var err error
		switch res.Failure {
		case flows.AuthenticateFailureVerify:
			err = e.verifyError(res.VerifyFailure, res.Err)
		case flows.AuthenticateFailurePrincipalNotFound:
			err = ErrPrincipalNotFound
		case flows.AuthenticateFailureForbidden:
			e.metricInc(MetricForbidden)
			err = ErrForbidden
		default:
			err = fmt.Errorf("principal lookup: %w", res.Err)
			e.logger.Error("principal lookup failed", zap.String("subject", res.Subject), zap.Error(res.Err))
		}
		e.metricInc(MetricAuthenticateFailure)
		if res.Subject != "" {
			e.emitAudit(ctx, auditEventAuthenticateDeny, false, res.Subject, clientContext, err, func() map[string]string {
				return map[string]string{"min_rank": fmt.Sprint(minRank)}
			})
		}
		return nil, err
	}

	e.metricInc(MetricAuthenticateSuccess)
	return &AuthResult{
		Subject:       res.Subject,
		ClientContext: clientContext,
		Principal:     fromRecord(res.Principal),
	}, nil
}

// Login checks username and secret and issues a pair bound to clientContext.
// Unknown usernames and wrong secrets both return ErrInvalidCredentials.
func (e *Engine) Login(ctx context.Context, username, secret, clientContext string) (*TokenPair, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	res := e.flow.Login(ctx, username, secret, clientContext)
	if res.Failure != flows.LoginFailureNone {
		var err error
		switch res.Failure {
		case flows.LoginFailureInvalidCredentials:
			err = ErrInvalidCredentials
		case flows.LoginFailureIssue:
			err = e.issueError(res.IssueFailure, res.Err)
		case flows.LoginFailureLookup:
			err = fmt.Errorf("principal lookup: %w", res.Err)
			e.logger.Error("principal lookup failed", zap.Error(res.Err))
		default:
			err = fmt.Errorf("credential verification: %w", res.Err)
			e.logger.Error("credential verification failed", zap.String("subject", res.Subject), zap.Error(res.Err))
		}
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, res.Subject, clientContext, err, nil)
		return nil, err
	}

	e.metricInc(MetricLoginSuccess)
	e.metricInc(MetricIssueSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, res.Subject, clientContext, nil, nil)
	return newTokenPair(res.Pair, res.Subject, clientContext), nil
}

func newTokenPair(p flows.MintedPair, subject, clientContext string) *TokenPair {
	return &TokenPair{
		AccessToken:      p.AccessToken,
		RefreshToken:     p.RefreshToken,
		AccessExpiresAt:  p.AccessExpiresAt,
		RefreshExpiresAt: p.RefreshExpiresAt,
		Subject:          subject,
		ClientContext:    clientContext,
	}
}

func (e *Engine) verifyError(kind flows.VerifyFailureKind, cause error) error {
	e.metricInc(MetricVerifyFailure)

	switch kind {
	case flows.VerifyFailureMissing:
		return ErrTokenMissing
	case flows.VerifyFailureMalformed:
		e.logger.Debug("token rejected", zap.Error(cause))
		return withCause(ErrTokenMalformed, cause)
	case flows.VerifyFailureExpired:
		e.metricInc(MetricVerifyExpired)
		return ErrTokenExpired
	case flows.VerifyFailureKindMismatch:
		return ErrKindMismatch
	case flows.VerifyFailureSessionInvalidated:
		e.metricInc(MetricVerifyInvalidated)
		return ErrSessionInvalidated
	case flows.VerifyFailureStore:
		return e.storeError("verify", cause)
	default:
		return withCause(ErrTokenMalformed, cause)
	}
}

func (e *Engine) issueError(kind flows.IssueFailureKind, cause error) error {
	switch kind {
	case flows.IssueFailureStore:
		return e.storeError("issue", cause)
	default:
		return fmt.Errorf("issue pair: %w", cause)
	}
}

func (e *Engine) revokeError(cause error) error {
	if errors.Is(cause, session.ErrStoreUnavailable) {
		return e.storeError("revoke", cause)
	}
	return fmt.Errorf("revoke: %w", cause)
}

func (e *Engine) storeError(op string, cause error) error {
	e.metricInc(MetricStoreUnavailable)
	e.logger.Warn("session store unavailable", zap.String("op", op), zap.Error(cause))
	return withCause(ErrStoreUnavailable, cause)
}

func withCause(sentinel, cause error) error {
	if cause == nil {
		return sentinel
	}
	return fmt.Errorf("%w: %v", sentinel, cause)
}

func (e *Engine) findPrincipalBySubject(ctx context.Context, subject string) (*flows.PrincipalRecord, error) {
	return toRecord(e.principals.FindPrincipalBySubject(ctx, subject))
}

func (e *Engine) findPrincipalByUsername(ctx context.Context, username string) (*flows.PrincipalRecord, error) {
	return toRecord(e.principals.FindPrincipalByUsername(ctx, username))
}

func (e *Engine) verifyCredential(ctx context.Context, r *flows.PrincipalRecord, secret string) (bool, error) {
	return e.verifier.VerifyCredential(ctx, fromRecord(r), secret)
}

func toRecord(p *Principal, err error) (*flows.PrincipalRecord, error) {
	if errors.Is(err, ErrPrincipalNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, nil
	}
	return &flows.PrincipalRecord{
		Subject:      p.Subject,
		Username:     p.Username,
		RoleRank:     p.RoleRank,
		PasswordHash: p.PasswordHash,
	}, nil
}

func fromRecord(r *flows.PrincipalRecord) *Principal {
	if r == nil {
		return nil
	}
	return &Principal{
		Subject:      r.Subject,
		Username:     r.Username,
		RoleRank:     r.RoleRank,
		PasswordHash: r.PasswordHash,
	}
}
