package goToken

import (
	"errors"
	"strings"
	"time"

	"github.com/MrEthical07/goToken/session"
)

// Config holds every engine setting. Build clones it, so later mutation of
// the caller's copy has no effect on a running Engine.
type Config struct {
	JWT      JWTConfig
	Store    StoreConfig
	Password PasswordConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
	Cookie   CookieConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig controls token signing and lifetimes.
type JWTConfig struct {
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Algorithm  string // "HS256" (default), "HS384", "HS512"
	Secret     []byte
	Issuer     string
	Leeway     time.Duration
}

/*
====================================
STORE CONFIG
====================================
*/

// StoreConfig controls the Redis session store.
type StoreConfig struct {
	// Prefix namespaces keys as "{prefix}:{kind}:{subject}:{clientContext}".
	// Empty keeps the bare form. On Redis Cluster a hash tag such as
	// "{gotoken}" keeps every key in one slot.
	Prefix    string
	OpTimeout time.Duration
	ScanCount int
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig holds Argon2id parameters for the default credential verifier.
type PasswordConfig struct {
	Memory      uint32 // in KB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// CookieConfig names the cookies the middleware reads tokens from.
type CookieConfig struct {
	AccessName  string
	RefreshName string
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns a configuration with every field except the JWT
// secret set to a usable value.
func DefaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:  30 * time.Minute,
			RefreshTTL: 7 * 24 * time.Hour,
			Algorithm:  "HS256",
			Leeway:     0,
		},
		Store: StoreConfig{
			Prefix:    "",
			OpTimeout: session.DefaultOpTimeout,
			ScanCount: 500,
		},
		Password: PasswordConfig{
			Memory:      65536,
			Time:        3,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
		Cookie: CookieConfig{
			AccessName:  "user_access_token",
			RefreshName: "user_refresh_token",
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.Secret = cloneBytes(cfg.JWT.Secret)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first invalid setting in c.
func (c *Config) Validate() error {
	// JWT
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if c.JWT.RefreshTTL <= 0 {
		return errors.New("JWT RefreshTTL must be > 0")
	}
	if c.JWT.RefreshTTL < c.JWT.AccessTTL {
		return errors.New("JWT RefreshTTL must be >= AccessTTL")
	}
	switch strings.ToUpper(c.JWT.Algorithm) {
	case "", "HS256", "HS384", "HS512":
	default:
		return errors.New("unsupported JWT algorithm")
	}
	if len(c.JWT.Secret) == 0 {
		return errors.New("JWT Secret is required")
	}
	if len(c.JWT.Secret) < 16 {
		return errors.New("JWT Secret must be at least 16 bytes")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("JWT Leeway must be between 0 and 2m")
	}

	// Store
	if c.Store.OpTimeout < 0 {
		return errors.New("Store OpTimeout must be >= 0")
	}
	if c.Store.ScanCount < 0 {
		return errors.New("Store ScanCount must be >= 0")
	}
	if strings.ContainsAny(c.Store.Prefix, "*?[]") {
		return errors.New("Store Prefix must not contain glob characters")
	}

	// Password
	if c.Password.Memory < 8*1024 {
		return errors.New("Password Memory must be >= 8192 KB")
	}
	if c.Password.Time < 1 {
		return errors.New("Password Time must be >= 1")
	}
	if c.Password.Parallelism < 1 {
		return errors.New("Password Parallelism must be >= 1")
	}
	if c.Password.SaltLength < 16 {
		return errors.New("Password SaltLength must be >= 16")
	}
	if c.Password.KeyLength < 16 {
		return errors.New("Password KeyLength must be >= 16")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	// Cookie
	if c.Cookie.AccessName == "" || c.Cookie.RefreshName == "" {
		return errors.New("Cookie names must be set")
	}
	if c.Cookie.AccessName == c.Cookie.RefreshName {
		return errors.New("Cookie AccessName and RefreshName must differ")
	}

	return nil
}
