package goToken

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MrEthical07/goToken/jwt"
)

func mustIssue(t *testing.T, e *testEngine, subject, clientContext string) *TokenPair {
	t.Helper()

	pair, err := e.IssuePair(context.Background(), subject, clientContext)
	if err != nil {
		t.Fatalf("IssuePair(%q, %q) failed: %v", subject, clientContext, err)
	}
	return pair
}

func expectErr(t *testing.T, err, want error) {
	t.Helper()

	if !errors.Is(err, want) {
		t.Fatalf("expected %v, got %v", want, err)
	}
}

func TestIssuePairVerifiesBothKinds(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	pair := mustIssue(t, e, "42", "abc")

	subject, err := e.Verify(ctx, pair.AccessToken, KindAccess, "abc")
	if err != nil || subject != "42" {
		t.Fatalf("access verify: subject=%q err=%v", subject, err)
	}
	subject, err = e.Verify(ctx, pair.RefreshToken, KindRefresh, "abc")
	if err != nil || subject != "42" {
		t.Fatalf("refresh verify: subject=%q err=%v", subject, err)
	}

	if !pair.AccessExpiresAt.Equal(e.clock.Now().Add(30 * time.Minute)) {
		t.Fatalf("unexpected access expiry %v", pair.AccessExpiresAt)
	}
	if !pair.RefreshExpiresAt.Equal(e.clock.Now().Add(7 * 24 * time.Hour)) {
		t.Fatalf("unexpected refresh expiry %v", pair.RefreshExpiresAt)
	}
	if pair.AccessToken == pair.RefreshToken {
		t.Fatal("access and refresh tokens must differ")
	}

	if got := e.mr.TTL("access:42:abc"); got != 30*time.Minute {
		t.Fatalf("access entry ttl = %v", got)
	}
	if got := e.mr.TTL("refresh:42:abc"); got != 7*24*time.Hour {
		t.Fatalf("refresh entry ttl = %v", got)
	}
}

func TestVerifyRejectsOtherClientContext(t *testing.T) {
	e := newTestEngine(t)
	pair := mustIssue(t, e, "42", "abc")

	_, err := e.Verify(context.Background(), pair.AccessToken, KindAccess, "xyz")
	expectErr(t, err, ErrSessionInvalidated)
}

func TestVerifyRejectsKindMismatch(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	pair := mustIssue(t, e, "42", "abc")

	_, err := e.Verify(ctx, pair.AccessToken, KindRefresh, "abc")
	expectErr(t, err, ErrKindMismatch)
	_, err = e.Verify(ctx, pair.RefreshToken, KindAccess, "abc")
	expectErr(t, err, ErrKindMismatch)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	pair := mustIssue(t, e, "42", "abc")

	e.clock.Advance(31 * time.Minute)

	_, err := e.Verify(ctx, pair.AccessToken, KindAccess, "abc")
	expectErr(t, err, ErrTokenExpired)

	if _, err := e.Verify(ctx, pair.RefreshToken, KindRefresh, "abc"); err != nil {
		t.Fatalf("refresh should still verify: %v", err)
	}
}

func TestVerifyRejectsMissingAndMalformed(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	pair := mustIssue(t, e, "42", "abc")

	_, err := e.Verify(ctx, "", KindAccess, "abc")
	expectErr(t, err, ErrTokenMissing)

	_, err = e.Verify(ctx, "not-a-jwt", KindAccess, "abc")
	expectErr(t, err, ErrTokenMalformed)

	parts := strings.Split(pair.AccessToken, ".")
	tampered := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))
	_, err = e.Verify(ctx, tampered, KindAccess, "abc")
	expectErr(t, err, ErrTokenMalformed)

	other, err := jwt.NewCodec(jwt.Config{Secret: []byte("another-secret-another-secret-32")})
	if err != nil {
		t.Fatalf("NewCodec failed: %v", err)
	}
	forged, err := other.Encode(jwt.Claims{
		Subject:   "42",
		Kind:      jwt.KindAccess,
		ExpiresAt: e.clock.Now().Add(time.Minute),
		IssuedAt:  e.clock.Now(),
		ID:        "forged",
	})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	_, err = e.Verify(ctx, forged, KindAccess, "abc")
	expectErr(t, err, ErrTokenMalformed)
}

func TestVerifyRejectsUnusableClientContext(t *testing.T) {
	e := newTestEngine(t)
	pair := mustIssue(t, e, "42", "abc")

	for _, cc := range []string{"", "a:b"} {
		_, err := e.Verify(context.Background(), pair.AccessToken, KindAccess, cc)
		expectErr(t, err, ErrSessionInvalidated)
	}
}

func TestIssuePairRejectsInvalidKey(t *testing.T) {
	e := newTestEngine(t)

	for _, tc := range []struct{ subject, cc string }{
		{"", "abc"},
		{"42", ""},
		{"4:2", "abc"},
	} {
		if _, err := e.IssuePair(context.Background(), tc.subject, tc.cc); err == nil {
			t.Fatalf("IssuePair(%q, %q) should fail", tc.subject, tc.cc)
		}
	}
	if keys := e.mr.Keys(); len(keys) != 0 {
		t.Fatalf("no keys expected, got %v", keys)
	}
}

func TestReissueReplacesLivePair(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	first := mustIssue(t, e, "42", "abc")
	second := mustIssue(t, e, "42", "abc")

	_, err := e.Verify(ctx, first.AccessToken, KindAccess, "abc")
	expectErr(t, err, ErrSessionInvalidated)
	_, err = e.Verify(ctx, first.RefreshToken, KindRefresh, "abc")
	expectErr(t, err, ErrSessionInvalidated)

	if _, err := e.Verify(ctx, second.AccessToken, KindAccess, "abc"); err != nil {
		t.Fatalf("second pair should verify: %v", err)
	}
}

func TestRevokePairInvalidatesBothTokens(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	pair := mustIssue(t, e, "42", "abc")
	other := mustIssue(t, e, "42", "def")

	if err := e.RevokePair(ctx, "42", "abc"); err != nil {
		t.Fatalf("RevokePair failed: %v", err)
	}

	_, err := e.Verify(ctx, pair.AccessToken, KindAccess, "abc")
	expectErr(t, err, ErrSessionInvalidated)
	_, err = e.Verify(ctx, pair.RefreshToken, KindRefresh, "abc")
	expectErr(t, err, ErrSessionInvalidated)

	if _, err := e.Verify(ctx, other.AccessToken, KindAccess, "def"); err != nil {
		t.Fatalf("other context should be untouched: %v", err)
	}

	if err := e.RevokePair(ctx, "42", "abc"); err != nil {
		t.Fatalf("revoking an absent pair should succeed: %v", err)
	}
}

func TestRevokeAllCoversEveryContext(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	pairs := map[string]*TokenPair{
		"a": mustIssue(t, e, "42", "a"),
		"b": mustIssue(t, e, "42", "b"),
		"c": mustIssue(t, e, "42", "c"),
	}
	neighbour := mustIssue(t, e, "420", "a")

	if err := e.RevokeAll(ctx, "42"); err != nil {
		t.Fatalf("RevokeAll failed: %v", err)
	}

	for cc, pair := range pairs {
		_, err := e.Verify(ctx, pair.AccessToken, KindAccess, cc)
		expectErr(t, err, ErrSessionInvalidated)
		_, err = e.Verify(ctx, pair.RefreshToken, KindRefresh, cc)
		expectErr(t, err, ErrSessionInvalidated)
	}

	if _, err := e.Verify(ctx, neighbour.AccessToken, KindAccess, "a"); err != nil {
		t.Fatalf("subject 420 must survive RevokeAll(42): %v", err)
	}
}

func TestRotatePairReplacesPair(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	old := mustIssue(t, e, "42", "abc")

	e.clock.Advance(time.Second)

	next, err := e.RotatePair(ctx, old.RefreshToken, "abc")
	if err != nil {
		t.Fatalf("RotatePair failed: %v", err)
	}
	if next.Subject != "42" || next.ClientContext != "abc" {
		t.Fatalf("unexpected rotated pair metadata: %+v", next)
	}

	if _, err := e.Verify(ctx, next.AccessToken, KindAccess, "abc"); err != nil {
		t.Fatalf("new access should verify: %v", err)
	}
	if _, err := e.Verify(ctx, next.RefreshToken, KindRefresh, "abc"); err != nil {
		t.Fatalf("new refresh should verify: %v", err)
	}

	_, err = e.Verify(ctx, old.AccessToken, KindAccess, "abc")
	expectErr(t, err, ErrSessionInvalidated)
	_, err = e.Verify(ctx, old.RefreshToken, KindRefresh, "abc")
	expectErr(t, err, ErrSessionInvalidated)

	_, err = e.RotatePair(ctx, old.RefreshToken, "abc")
	expectErr(t, err, ErrSessionInvalidated)
}

func TestRotatePairRejectsAccessTokenAndWrongContext(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	pair := mustIssue(t, e, "42", "abc")

	_, err := e.RotatePair(ctx, pair.AccessToken, "abc")
	expectErr(t, err, ErrKindMismatch)

	_, err = e.RotatePair(ctx, pair.RefreshToken, "xyz")
	expectErr(t, err, ErrSessionInvalidated)

	if _, err := e.Verify(ctx, pair.RefreshToken, KindRefresh, "abc"); err != nil {
		t.Fatalf("failed rotations must leave the pair live: %v", err)
	}
}

func TestConcurrentRotationSingleWinner(t *testing.T) {
	e := newTestEngine(t)
	pair := mustIssue(t, e, "42", "abc")

	const workers = 16
	var (
		wg        sync.WaitGroup
		start     = make(chan struct{})
		successes atomic.Int32
		invalid   atomic.Int32
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := e.RotatePair(context.Background(), pair.RefreshToken, "abc")
			switch {
			case err == nil:
				successes.Add(1)
			case errors.Is(err, ErrSessionInvalidated):
				invalid.Add(1)
			default:
				t.Errorf("unexpected rotation error: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	if successes.Load() != 1 {
		t.Fatalf("expected exactly one successful rotation, got %d", successes.Load())
	}
	if invalid.Load() != workers-1 {
		t.Fatalf("expected %d invalidated rotations, got %d", workers-1, invalid.Load())
	}
}

func TestVerifyIsIdempotentAndReadOnly(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	pair := mustIssue(t, e, "42", "abc")

	before := e.mr.Dump()
	for i := 0; i < 3; i++ {
		if _, err := e.Verify(ctx, pair.AccessToken, KindAccess, "abc"); err != nil {
			t.Fatalf("verify %d failed: %v", i, err)
		}
	}
	_, _ = e.Verify(ctx, pair.AccessToken, KindAccess, "xyz")

	if after := e.mr.Dump(); after != before {
		t.Fatalf("verify mutated the store:\nbefore=%s\nafter=%s", before, after)
	}
}

func TestStoreOutageIsReportedAsUnavailable(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	pair := mustIssue(t, e, "42", "abc")

	e.mr.Close()

	_, err := e.Verify(ctx, pair.AccessToken, KindAccess, "abc")
	expectErr(t, err, ErrStoreUnavailable)
	if errors.Is(err, ErrSessionInvalidated) {
		t.Fatal("outage must not look like revocation")
	}

	_, err = e.IssuePair(ctx, "42", "abc")
	expectErr(t, err, ErrStoreUnavailable)

	_, err = e.RotatePair(ctx, pair.RefreshToken, "abc")
	expectErr(t, err, ErrStoreUnavailable)

	expectErr(t, e.RevokePair(ctx, "42", "abc"), ErrStoreUnavailable)
	expectErr(t, e.RevokeAll(ctx, "42"), ErrStoreUnavailable)

	if HTTPStatus(err) != http.StatusServiceUnavailable {
		t.Fatalf("store outage should map to 503, got %d", HTTPStatus(err))
	}
	if ok, _ := e.Health(ctx); ok {
		t.Fatal("health should report failure")
	}
	if e.MetricsSnapshot().Counters[MetricStoreUnavailable] == 0 {
		t.Fatal("store unavailable metric not recorded")
	}
}

func TestRevokeByAccessToken(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	pair := mustIssue(t, e, "42", "abc")

	err := e.RevokeByAccessToken(ctx, pair.AccessToken, "xyz")
	expectErr(t, err, ErrSessionInvalidated)

	if err := e.RevokeByAccessToken(ctx, pair.AccessToken, "abc"); err != nil {
		t.Fatalf("RevokeByAccessToken failed: %v", err)
	}
	_, err = e.Verify(ctx, pair.RefreshToken, KindRefresh, "abc")
	expectErr(t, err, ErrSessionInvalidated)
}

func TestAuthenticateChecksRank(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	e.principals.add(Principal{Subject: "42", Username: "alice", RoleRank: 4})
	pair := mustIssue(t, e, "42", "abc")

	before := e.mr.Dump()

	res, err := e.Authenticate(ctx, pair.AccessToken, "abc", 0)
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if res.Subject != "42" || res.Principal == nil || res.Principal.Username != "alice" {
		t.Fatalf("unexpected result: %+v", res)
	}

	if _, err := e.Authenticate(ctx, pair.AccessToken, "abc", 4); err != nil {
		t.Fatalf("rank 4 should satisfy minRank 4: %v", err)
	}

	_, err = e.Authenticate(ctx, pair.AccessToken, "abc", 5)
	expectErr(t, err, ErrForbidden)
	if HTTPStatus(err) != http.StatusForbidden {
		t.Fatalf("forbidden should map to 403, got %d", HTTPStatus(err))
	}

	_, err = e.Authenticate(ctx, pair.RefreshToken, "abc", 0)
	expectErr(t, err, ErrKindMismatch)

	if after := e.mr.Dump(); after != before {
		t.Fatal("authenticate mutated the store")
	}
}

func TestAuthenticatePrincipalNotFound(t *testing.T) {
	e := newTestEngine(t)
	pair := mustIssue(t, e, "42", "abc")

	_, err := e.Authenticate(context.Background(), pair.AccessToken, "abc", 0)
	expectErr(t, err, ErrPrincipalNotFound)
	if HTTPStatus(err) != http.StatusUnauthorized {
		t.Fatalf("principal not found should map to 401, got %d", HTTPStatus(err))
	}
}

func TestAuthenticateProviderError(t *testing.T) {
	e := newTestEngine(t)
	pair := mustIssue(t, e, "42", "abc")
	e.principals.err = errors.New("db down")

	_, err := e.Authenticate(context.Background(), pair.AccessToken, "abc", 0)
	if err == nil || FailureOf(err) != FailureInternal {
		t.Fatalf("expected internal failure, got %v", err)
	}
}

func TestLogin(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	verifier, err := NewArgon2Verifier(testConfig().Password)
	if err != nil {
		t.Fatalf("NewArgon2Verifier failed: %v", err)
	}
	hash, err := verifier.Hash("correct-password-123")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	e.principals.add(Principal{Subject: "42", Username: "alice", RoleRank: 1, PasswordHash: hash})

	pair, err := e.Login(ctx, "alice", "correct-password-123", "abc")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if pair.Subject != "42" {
		t.Fatalf("unexpected subject %q", pair.Subject)
	}
	if _, err := e.Verify(ctx, pair.AccessToken, KindAccess, "abc"); err != nil {
		t.Fatalf("login pair should verify: %v", err)
	}

	_, err = e.Login(ctx, "alice", "wrong-password-123", "abc")
	expectErr(t, err, ErrInvalidCredentials)
	_, err = e.Login(ctx, "mallory", "correct-password-123", "abc")
	expectErr(t, err, ErrInvalidCredentials)
	_, err = e.Login(ctx, "", "", "abc")
	expectErr(t, err, ErrInvalidCredentials)

	snap := e.MetricsSnapshot()
	if snap.Counters[MetricLoginSuccess] != 1 || snap.Counters[MetricLoginFailure] != 3 {
		t.Fatalf("unexpected login counters: %+v", snap.Counters)
	}
}

func TestLoginWithCustomVerifier(t *testing.T) {
	e := newTestEngine(t, func(b *Builder) {
		b.WithCredentialVerifier(CredentialVerifierFunc(func(_ context.Context, p *Principal, secret string) (bool, error) {
			return secret == "let-me-in-"+p.Username, nil
		}))
	})
	e.principals.add(Principal{Subject: "7", Username: "bob"})

	if _, err := e.Login(context.Background(), "bob", "let-me-in-bob", "dev"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
}

func TestKeyPrefixIsApplied(t *testing.T) {
	e := newTestEngine(t, func(b *Builder) {
		cfg := testConfig()
		cfg.Store.Prefix = "app"
		b.WithConfig(cfg)
	})
	mustIssue(t, e, "42", "abc")

	if !e.mr.Exists("app:access:42:abc") || !e.mr.Exists("app:refresh:42:abc") {
		t.Fatalf("prefixed keys missing: %v", e.mr.Keys())
	}
}

func TestNilEngineIsNotReady(t *testing.T) {
	var e *Engine

	_, err := e.IssuePair(context.Background(), "42", "abc")
	expectErr(t, err, ErrEngineNotReady)
	_, err = e.Verify(context.Background(), "x", KindAccess, "abc")
	expectErr(t, err, ErrEngineNotReady)
	expectErr(t, e.RevokeAll(context.Background(), "42"), ErrEngineNotReady)
}

func TestBuilderValidation(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()
	defer rdb.Close()

	if _, err := New().WithConfig(testConfig()).WithPrincipalProvider(newMockPrincipalProvider()).Build(); err == nil {
		t.Fatal("expected error without redis client")
	}
	if _, err := New().WithConfig(testConfig()).WithRedis(rdb).Build(); err == nil {
		t.Fatal("expected error without principal provider")
	}
	if _, err := New().WithRedis(rdb).WithPrincipalProvider(newMockPrincipalProvider()).Build(); err == nil {
		t.Fatal("expected error without secret")
	}

	b := New().WithConfig(testConfig()).WithRedis(rdb).WithPrincipalProvider(newMockPrincipalProvider())
	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()
	if _, err := b.Build(); err == nil {
		t.Fatal("builder reuse should fail")
	}
}

func TestFailureClassification(t *testing.T) {
	cases := []struct {
		err     error
		failure Failure
		status  int
	}{
		{nil, FailureNone, http.StatusOK},
		{ErrTokenMissing, FailureTokenMissing, http.StatusUnauthorized},
		{withCause(ErrTokenMalformed, errors.New("bad sig")), FailureTokenMalformed, http.StatusUnauthorized},
		{ErrTokenExpired, FailureTokenExpired, http.StatusUnauthorized},
		{ErrKindMismatch, FailureKindMismatch, http.StatusUnauthorized},
		{ErrSessionInvalidated, FailureSessionInvalidated, http.StatusUnauthorized},
		{ErrPrincipalNotFound, FailurePrincipalNotFound, http.StatusUnauthorized},
		{ErrForbidden, FailureForbidden, http.StatusForbidden},
		{withCause(ErrStoreUnavailable, errors.New("dial")), FailureStoreUnavailable, http.StatusServiceUnavailable},
		{ErrInvalidCredentials, FailureInvalidCredentials, http.StatusUnauthorized},
		{errors.New("boom"), FailureInternal, http.StatusInternalServerError},
	}

	for _, tc := range cases {
		if got := FailureOf(tc.err); got != tc.failure {
			t.Fatalf("FailureOf(%v) = %s, want %s", tc.err, got, tc.failure)
		}
		if got := HTTPStatus(tc.err); got != tc.status {
			t.Fatalf("HTTPStatus(%v) = %d, want %d", tc.err, got, tc.status)
		}
	}
}
