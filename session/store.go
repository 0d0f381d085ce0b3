package session

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/goToken/jwt"
	"github.com/redis/go-redis/v9"
)

var (
	// ErrNotFound is returned when no entry exists at a key.
	ErrNotFound = errors.New("session entry not found")
	// ErrStoreUnavailable wraps every transport, script and timeout failure.
	ErrStoreUnavailable = errors.New("session store unavailable")
	// ErrRotationConflict is returned when the stored refresh token no longer
	// matches the one presented for rotation.
	ErrRotationConflict = errors.New("session rotation conflict")
	// ErrInvalidTTL is returned for non-positive entry lifetimes.
	ErrInvalidTTL = errors.New("invalid session ttl")
	// ErrContextTimeoutDisabled is returned by [CheckClient] for a client
	// built without ContextTimeoutEnabled.
	ErrContextTimeoutDisabled = errors.New("redis client must set ContextTimeoutEnabled")
)

const (
	// DefaultOpTimeout bounds a single store call when none is configured.
	DefaultOpTimeout = 250 * time.Millisecond
	defaultScanCount = 500
)

const (
	rotateStatusNotFound int64 = 0
	rotateStatusMismatch int64 = 2
	rotateStatusRotated  int64 = 3
)

// KEYS[1] refresh key, KEYS[2] access key.
// ARGV: presented refresh, next access, access ttl ms, next refresh, refresh ttl ms.
const rotatePairScript = `
local current = redis.call("GET", KEYS[1])
if not current then
  return 0
end
if current ~= ARGV[1] then
  return 2
end
redis.call("SET", KEYS[2], ARGV[2], "PX", ARGV[3])
redis.call("SET", KEYS[1], ARGV[4], "PX", ARGV[5])
return 3
`

var rotatePairLua = redis.NewScript(rotatePairScript)

// Store is a Redis-backed store of record. Every call runs under the
// configured per-operation timeout on top of the caller's deadline. go-redis
// only applies that deadline to socket reads and writes when the client has
// ContextTimeoutEnabled set; see [CheckClient].
//
// Pair writes and rotations touch two keys in one MULTI/EXEC or script call,
// so the Redis deployment must route both keys of a pair to the same node.
type Store struct {
	redis     redis.UniversalClient
	prefix    string
	opTimeout time.Duration
	scanCount int64
}

// NewStore creates a [Store]. An empty prefix keeps keys in the bare
// "{kind}:{subject}:{clientContext}" form. opTimeout <= 0 selects
// [DefaultOpTimeout]. The client should pass [CheckClient].
func NewStore(client redis.UniversalClient, prefix string, opTimeout time.Duration, scanCount int) *Store {
	if opTimeout <= 0 {
		opTimeout = DefaultOpTimeout
	}
	if scanCount <= 0 {
		scanCount = defaultScanCount
	}
	return &Store{
		redis:     client,
		prefix:    prefix,
		opTimeout: opTimeout,
		scanCount: int64(scanCount),
	}
}

// CheckClient returns [ErrContextTimeoutDisabled] when client would ignore
// context deadlines on socket I/O and fall back to its own ReadTimeout.
// Clients of other concrete types are accepted as is.
func CheckClient(client redis.UniversalClient) error {
	var enabled bool
	switch c := client.(type) {
	case *redis.Client:
		enabled = c.Options().ContextTimeoutEnabled
	case *redis.ClusterClient:
		enabled = c.Options().ContextTimeoutEnabled
	default:
		return nil
	}
	if !enabled {
		return ErrContextTimeoutDisabled
	}
	return nil
}

func (s *Store) key(k Key) string {
	if s.prefix == "" {
		return k.String()
	}
	return s.prefix + keySeparator + k.String()
}

func (s *Store) subjectPattern(kind jwt.Kind, subject string) string {
	p := string(kind) + keySeparator + escapeGlob(subject) + keySeparator + "*"
	if s.prefix == "" {
		return p
	}
	return escapeGlob(s.prefix) + keySeparator + p
}

func (s *Store) subjectPrefix(kind jwt.Kind, subject string) string {
	return s.key(Key{Kind: kind, Subject: subject})
}

func (s *Store) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, s.opTimeout)
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}

// Put upserts token at key with the given lifetime, replacing any prior entry.
func (s *Store) Put(ctx context.Context, key Key, token string, ttl time.Duration) error {
	if err := key.Validate(); err != nil {
		return err
	}
	if ttl <= 0 {
		return ErrInvalidTTL
	}

	ctx, cancel := s.bounded(ctx)
	defer cancel()

	if err := s.redis.Set(ctx, s.key(key), token, ttl).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

// Get returns the token stored at key, or [ErrNotFound].
func (s *Store) Get(ctx context.Context, key Key) (string, error) {
	if err := key.Validate(); err != nil {
		return "", err
	}

	ctx, cancel := s.bounded(ctx)
	defer cancel()

	token, err := s.redis.Get(ctx, s.key(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNotFound
		}
		return "", unavailable(err)
	}
	return token, nil
}

// Matches reports whether token is the live entry at key. It is the source of
// truth for revocation; an absent entry is a plain false.
func (s *Store) Matches(ctx context.Context, key Key, token string) (bool, error) {
	stored, err := s.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(token)) == 1, nil
}

// Delete removes the entry at key. Deleting an absent key is not an error.
func (s *Store) Delete(ctx context.Context, key Key) error {
	if err := key.Validate(); err != nil {
		return err
	}

	ctx, cancel := s.bounded(ctx)
	defer cancel()

	if err := s.redis.Del(ctx, s.key(key)).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

// PutPair writes both entries of a pair in a single MULTI/EXEC transaction.
func (s *Store) PutPair(
	ctx context.Context,
	accessKey Key, accessToken string, accessTTL time.Duration,
	refreshKey Key, refreshToken string, refreshTTL time.Duration,
) error {
	if err := accessKey.Validate(); err != nil {
		return err
	}
	if err := refreshKey.Validate(); err != nil {
		return err
	}
	if accessTTL <= 0 || refreshTTL <= 0 {
		return ErrInvalidTTL
	}

	ctx, cancel := s.bounded(ctx)
	defer cancel()

	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(accessKey), accessToken, accessTTL)
		pipe.Set(ctx, s.key(refreshKey), refreshToken, refreshTTL)
		return nil
	})
	if err != nil {
		return unavailable(err)
	}
	return nil
}

// RotatePair atomically replaces a pair, but only while the stored refresh
// entry still equals presentedRefresh. Of several concurrent rotations of
// the same refresh token exactly one succeeds; the rest get
// [ErrRotationConflict]. A missing refresh entry yields [ErrNotFound].
//
//	Performance: 1 EVALSHA.
func (s *Store) RotatePair(
	ctx context.Context,
	refreshKey Key, presentedRefresh string,
	accessKey Key, nextAccess string, accessTTL time.Duration,
	nextRefresh string, refreshTTL time.Duration,
) error {
	if err := refreshKey.Validate(); err != nil {
		return err
	}
	if err := accessKey.Validate(); err != nil {
		return err
	}
	if accessTTL.Milliseconds() <= 0 || refreshTTL.Milliseconds() <= 0 {
		return ErrInvalidTTL
	}

	ctx, cancel := s.bounded(ctx)
	defer cancel()

	code, err := rotatePairLua.Run(
		ctx,
		s.redis,
		[]string{s.key(refreshKey), s.key(accessKey)},
		presentedRefresh,
		nextAccess,
		accessTTL.Milliseconds(),
		nextRefresh,
		refreshTTL.Milliseconds(),
	).Int64()
	if err != nil {
		return unavailable(err)
	}

	switch code {
	case rotateStatusRotated:
		return nil
	case rotateStatusNotFound:
		return ErrNotFound
	case rotateStatusMismatch:
		return ErrRotationConflict
	default:
		return fmt.Errorf("%w: unknown rotate script status %d", ErrStoreUnavailable, code)
	}
}

// DeletePair removes both entries of a pair with one DEL.
func (s *Store) DeletePair(ctx context.Context, accessKey, refreshKey Key) error {
	if err := accessKey.Validate(); err != nil {
		return err
	}
	if err := refreshKey.Validate(); err != nil {
		return err
	}

	ctx, cancel := s.bounded(ctx)
	defer cancel()

	if err := s.redis.Del(ctx, s.key(accessKey), s.key(refreshKey)).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

// DeleteAllForSubject removes every entry of both kinds, across all client
// contexts, belonging to subject. It returns the number of keys deleted.
//
// ATOMICITY NOTE: this is a SCAN followed by DEL batches, not a transaction.
// A Put for the subject that lands while the scan is running may survive.
// That is acceptable for best-effort logout-everywhere; a hard lockout needs
// a stronger mechanism (e.g. denying the subject at principal lookup).
func (s *Store) DeleteAllForSubject(ctx context.Context, subject string) (int, error) {
	if subject == "" {
		return 0, ErrInvalidKey
	}

	deleted := 0
	for _, kind := range []jwt.Kind{jwt.KindAccess, jwt.KindRefresh} {
		n, err := s.deleteMatching(ctx, kind, subject)
		deleted += n
		if err != nil {
			return deleted, err
		}
	}
	return deleted, nil
}

func (s *Store) deleteMatching(ctx context.Context, kind jwt.Kind, subject string) (int, error) {
	pattern := s.subjectPattern(kind, subject)
	prefix := s.subjectPrefix(kind, subject)

	var (
		cursor  uint64
		deleted int
	)
	for {
		scanCtx, cancel := s.bounded(ctx)
		keys, next, err := s.redis.Scan(scanCtx, cursor, pattern, s.scanCount).Result()
		cancel()
		if err != nil {
			return deleted, unavailable(err)
		}

		owned := keys[:0]
		for _, k := range keys {
			// A longer subject sharing this prefix leaves a separator in the remainder.
			if !strings.Contains(strings.TrimPrefix(k, prefix), keySeparator) {
				owned = append(owned, k)
			}
		}

		if len(owned) > 0 {
			delCtx, cancel := s.bounded(ctx)
			n, err := s.redis.Del(delCtx, owned...).Result()
			cancel()
			if err != nil {
				return deleted, unavailable(err)
			}
			deleted += int(n)
		}

		cursor = next
		if cursor == 0 {
			return deleted, nil
		}
	}
}

// Ping returns a point-in-time availability check and latency.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), unavailable(err)
	}
	return time.Since(start), nil
}

func escapeGlob(s string) string {
	if !strings.ContainsAny(s, `*?[]\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 4)
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
