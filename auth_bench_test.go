package goToken

import (
	"context"
	"testing"
)

func newBenchmarkEngine(b *testing.B) *testEngine {
	b.Helper()

	e := newTestEngine(b, func(builder *Builder) {
		cfg := testConfig()
		cfg.Metrics.Enabled = false
		builder.WithConfig(cfg)
	})

	verifier, err := NewArgon2Verifier(testConfig().Password)
	if err != nil {
		b.Fatalf("argon2 init failed: %v", err)
	}
	hash, err := verifier.Hash("correct-password-123")
	if err != nil {
		b.Fatalf("hash failed: %v", err)
	}
	e.principals.add(Principal{Subject: "42", Username: "alice", RoleRank: 4, PasswordHash: hash})

	return e
}

func BenchmarkVerify(b *testing.B) {
	e := newBenchmarkEngine(b)
	pair, err := e.IssuePair(context.Background(), "42", "abc")
	if err != nil {
		b.Fatalf("issue failed: %v", err)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := e.Verify(context.Background(), pair.AccessToken, KindAccess, "abc"); err != nil {
			b.Fatalf("verify failed: %v", err)
		}
	}
}

func BenchmarkAuthenticate(b *testing.B) {
	e := newBenchmarkEngine(b)
	pair, err := e.IssuePair(context.Background(), "42", "abc")
	if err != nil {
		b.Fatalf("issue failed: %v", err)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := e.Authenticate(context.Background(), pair.AccessToken, "abc", 3); err != nil {
			b.Fatalf("authenticate failed: %v", err)
		}
	}
}

func BenchmarkRotatePair(b *testing.B) {
	e := newBenchmarkEngine(b)
	pair, err := e.IssuePair(context.Background(), "42", "abc")
	if err != nil {
		b.Fatalf("issue failed: %v", err)
	}
	refresh := pair.RefreshToken

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		next, err := e.RotatePair(context.Background(), refresh, "abc")
		if err != nil {
			b.Fatalf("rotate failed: %v", err)
		}
		refresh = next.RefreshToken
	}
}

func BenchmarkLogin(b *testing.B) {
	e := newBenchmarkEngine(b)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		pair, err := e.Login(context.Background(), "alice", "correct-password-123", "abc")
		if err != nil {
			b.Fatalf("login failed: %v", err)
		}
		_ = e.RevokeByAccessToken(context.Background(), pair.AccessToken, "abc")
	}
}
