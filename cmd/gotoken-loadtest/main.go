// Command gotoken-loadtest measures Verify and RotatePair throughput against
// Redis, or an in-process miniredis when no address is given.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sync"
	"sync/atomic"
	"time"

	goToken "github.com/MrEthical07/goToken"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type sessionState struct {
	subject string
	context string
	mu      sync.Mutex
	pair    *goToken.TokenPair
}

func main() {
	var (
		sessions    = flag.Int("sessions", 10000, "number of token pairs to seed")
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		ops         = flag.Int("ops", 200000, "operations per phase (verify + rotate)")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "lt", "session key prefix")
	)
	flag.Parse()

	if *sessions <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "sessions, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		defer mr.Close()
		addr = mr.Addr()
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		fmt.Printf("using redis at %s\n", addr)
	}

	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:                 []string{addr},
		ContextTimeoutEnabled: true,
	})
	defer func() { _ = client.Close() }()

	cfg := goToken.DefaultConfig()
	cfg.Store.Prefix = *prefix
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true

	engine, err := goToken.New().
		WithConfig(cfg).
		WithSecret([]byte(fmt.Sprintf("loadtest-secret-%d", time.Now().UnixNano()))).
		WithRedis(client).
		WithPrincipalProvider(noPrincipals{}).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "engine build failed: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	states := make([]sessionState, *sessions)
	fmt.Printf("seeding %d token pairs...\n", *sessions)
	startSeed := time.Now()
	for i := range states {
		s := &states[i]
		s.subject = fmt.Sprintf("%d", i+1)
		s.context = goToken.DeriveClientContext("gotoken-loadtest", fmt.Sprintf("10.0.%d.%d", i/256%256, i%256))
		pair, err := engine.IssuePair(ctx, s.subject, s.context)
		if err != nil {
			fmt.Fprintf(os.Stderr, "issue failed: %v\n", err)
			os.Exit(1)
		}
		s.pair = pair
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	verifyStats := runPhase(*ops, *concurrency, 7919, func(r *rand.Rand) error {
		s := &states[r.Intn(len(states))]
		s.mu.Lock()
		token := s.pair.AccessToken
		s.mu.Unlock()
		_, err := engine.Verify(ctx, token, goToken.KindAccess, s.context)
		return err
	})

	rotateStats := runPhase(*ops, *concurrency, 6151, func(r *rand.Rand) error {
		s := &states[r.Intn(len(states))]
		s.mu.Lock()
		defer s.mu.Unlock()
		next, err := engine.RotatePair(ctx, s.pair.RefreshToken, s.context)
		if err == nil {
			s.pair = next
		}
		return err
	})

	fmt.Println("---- results ----")
	printStats("verify", verifyStats)
	printStats("rotate", rotateStats)

	snap := engine.MetricsSnapshot()
	fmt.Printf("engine: verify_failure=%d rotate_conflict=%d store_unavailable=%d\n",
		snap.Counters[goToken.MetricVerifyFailure],
		snap.Counters[goToken.MetricRotateConflict],
		snap.Counters[goToken.MetricStoreUnavailable],
	)
}

// runPhase executes op ops times across concurrency workers.
func runPhase(ops, concurrency int, seed int64, op func(*rand.Rand) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*seed))
			for {
				if int(atomic.AddInt64(&cursor, 1)) > ops {
					return
				}
				t0 := time.Now()
				err := op(r)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

// noPrincipals satisfies the builder; the load test never authenticates.
type noPrincipals struct{}

func (noPrincipals) FindPrincipalBySubject(context.Context, string) (*goToken.Principal, error) {
	return nil, goToken.ErrPrincipalNotFound
}

func (noPrincipals) FindPrincipalByUsername(context.Context, string) (*goToken.Principal, error) {
	return nil, nil
}
