package goToken

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

var testSecret = []byte("test-secret-test-secret-32-bytes")

func newTestRedis(t testing.TB) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), ContextTimeoutEnabled: true})
	return mr, client
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Unix(1_700_000_000, 0)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type mockPrincipalProvider struct {
	mu         sync.Mutex
	bySubject  map[string]*Principal
	err        error
	lookups    int
	byUsername map[string]string
}

func newMockPrincipalProvider() *mockPrincipalProvider {
	return &mockPrincipalProvider{
		bySubject:  map[string]*Principal{},
		byUsername: map[string]string{},
	}
}

func (m *mockPrincipalProvider) add(p Principal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := p
	m.bySubject[p.Subject] = &cp
	if p.Username != "" {
		m.byUsername[p.Username] = p.Subject
	}
}

func (m *mockPrincipalProvider) remove(subject string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.bySubject, subject)
}

func (m *mockPrincipalProvider) FindPrincipalBySubject(_ context.Context, subject string) (*Principal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookups++
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.bySubject[subject]
	if !ok {
		return nil, ErrPrincipalNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockPrincipalProvider) FindPrincipalByUsername(_ context.Context, username string) (*Principal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookups++
	if m.err != nil {
		return nil, m.err
	}
	subject, ok := m.byUsername[username]
	if !ok {
		return nil, nil
	}
	cp := *m.bySubject[subject]
	return &cp, nil
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.JWT.Secret = testSecret
	cfg.Password = PasswordConfig{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   16,
	}
	cfg.Metrics.Enabled = true
	return cfg
}

type testEngine struct {
	*Engine
	mr         *miniredis.Miniredis
	rdb        *redis.Client
	clock      *testClock
	principals *mockPrincipalProvider
}

func newTestEngine(t testing.TB, configure ...func(*Builder)) *testEngine {
	t.Helper()

	mr, rdb := newTestRedis(t)
	clock := newTestClock()
	principals := newMockPrincipalProvider()

	b := New().
		WithConfig(testConfig()).
		WithRedis(rdb).
		WithPrincipalProvider(principals).
		WithClock(clock.Now)
	for _, fn := range configure {
		fn(b)
	}

	engine, err := b.Build()
	if err != nil {
		mr.Close()
		t.Fatalf("Build failed: %v", err)
	}

	t.Cleanup(func() {
		engine.Close()
		_ = rdb.Close()
		mr.Close()
	})

	return &testEngine{
		Engine:     engine,
		mr:         mr,
		rdb:        rdb,
		clock:      clock,
		principals: principals,
	}
}
