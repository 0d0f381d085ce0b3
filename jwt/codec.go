package jwt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Algorithm names a symmetric signing algorithm.
type Algorithm string

const (
	AlgorithmHS256 Algorithm = "HS256"
	AlgorithmHS384 Algorithm = "HS384"
	AlgorithmHS512 Algorithm = "HS512"
)

// Kind is the role of a token: access tokens authenticate requests, refresh
// tokens are only exchanged for a new pair.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

// Valid reports whether k is one of the known token kinds.
func (k Kind) Valid() bool {
	return k == KindAccess || k == KindRefresh
}

func (k Kind) String() string {
	return string(k)
}

var (
	// ErrSigning is returned by Encode for claims that cannot be signed.
	ErrSigning = errors.New("token signing failed")
	// ErrMalformed is returned by Decode for bad structure, signature, algorithm or claims.
	ErrMalformed = errors.New("token malformed")
	// ErrExpired is returned by Decode when the signature is valid but exp has passed.
	ErrExpired = errors.New("token expired")
)

const minSecretBytes = 16

// Config holds codec settings. Secret and Algorithm are shared by issuance
// and verification.
type Config struct {
	Secret    []byte
	Algorithm Algorithm
	Issuer    string
	Leeway    time.Duration
	Now       func() time.Time
}

// Claims is the decoded payload of a token. Timestamps have second precision.
type Claims struct {
	Subject   string
	Kind      Kind
	ExpiresAt time.Time
	IssuedAt  time.Time
	ID        string
}

// ExpiredAt reports whether the claims are expired at now.
func (c *Claims) ExpiredAt(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// Remaining returns the lifetime left at now, or zero once expired.
func (c *Claims) Remaining(now time.Time) time.Duration {
	d := c.ExpiresAt.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

type wireClaims struct {
	Type string `json:"type"`
	jwt.RegisteredClaims
}

// Codec signs and verifies claim sets.
type Codec struct {
	config Config
	method jwt.SigningMethod
}

// NewCodec validates cfg and returns a ready codec.
func NewCodec(cfg Config) (*Codec, error) {
	if len(cfg.Secret) < minSecretBytes {
		return nil, fmt.Errorf("signing secret must be at least %d bytes", minSecretBytes)
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	method, err := signingMethod(cfg.Algorithm)
	if err != nil {
		return nil, err
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	cfg.Secret = append([]byte(nil), cfg.Secret...)

	return &Codec{config: cfg, method: method}, nil
}

func signingMethod(alg Algorithm) (jwt.SigningMethod, error) {
	switch Algorithm(strings.ToUpper(string(alg))) {
	case AlgorithmHS256, "":
		return jwt.SigningMethodHS256, nil
	case AlgorithmHS384:
		return jwt.SigningMethodHS384, nil
	case AlgorithmHS512:
		return jwt.SigningMethodHS512, nil
	default:
		return nil, fmt.Errorf("unsupported signing algorithm %q", alg)
	}
}

// Encode signs claims. The output is deterministic for equal claims.
func (c *Codec) Encode(claims Claims) (string, error) {
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: empty subject", ErrSigning)
	}
	if !claims.Kind.Valid() {
		return "", fmt.Errorf("%w: unknown kind %q", ErrSigning, claims.Kind)
	}
	if claims.ExpiresAt.IsZero() {
		return "", fmt.Errorf("%w: missing expiry", ErrSigning)
	}

	wire := wireClaims{
		Type: string(claims.Kind),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   claims.Subject,
			ExpiresAt: jwt.NewNumericDate(claims.ExpiresAt),
			ID:        claims.ID,
			Issuer:    c.config.Issuer,
		},
	}
	if !claims.IssuedAt.IsZero() {
		wire.IssuedAt = jwt.NewNumericDate(claims.IssuedAt)
	}

	signed, err := jwt.NewWithClaims(c.method, wire).SignedString(c.config.Secret)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSigning, err)
	}
	return signed, nil
}

// Decode verifies the signature and returns the claims. Expiry is checked
// after the signature, so ErrExpired always means an authentic token.
func (c *Codec) Decode(token string) (*Claims, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: empty token", ErrMalformed)
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{c.method.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	var wire wireClaims
	parsed, err := parser.ParseWithClaims(token, &wire, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != c.method.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return c.config.Secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if !parsed.Valid {
		return nil, ErrMalformed
	}

	kind := Kind(wire.Type)
	switch {
	case wire.Subject == "":
		return nil, fmt.Errorf("%w: missing sub", ErrMalformed)
	case !kind.Valid():
		return nil, fmt.Errorf("%w: unknown type %q", ErrMalformed, wire.Type)
	case wire.ExpiresAt == nil:
		return nil, fmt.Errorf("%w: missing exp", ErrMalformed)
	case c.config.Issuer != "" && wire.Issuer != c.config.Issuer:
		return nil, fmt.Errorf("%w: unexpected issuer", ErrMalformed)
	}

	claims := &Claims{
		Subject:   wire.Subject,
		Kind:      kind,
		ExpiresAt: wire.ExpiresAt.Time,
		ID:        wire.ID,
	}
	if wire.IssuedAt != nil {
		claims.IssuedAt = wire.IssuedAt.Time
	}

	if claims.ExpiredAt(c.config.Now().Add(-c.config.Leeway)) {
		return claims, ErrExpired
	}
	return claims, nil
}
