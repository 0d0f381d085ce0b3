package config

import (
	"errors"
	"fmt"
	"strings"

	goToken "github.com/MrEthical07/goToken"
	"github.com/MrEthical07/goToken/session"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "GOTOKEN"

// ErrMissingSecret is returned when neither the file nor the environment
// supplies auth.jwt_secret.
var ErrMissingSecret = errors.New("config: auth.jwt_secret is required")

// Load reads path (YAML) when non-empty, applies defaults and environment
// overrides, and validates the resulting engine configuration.
func Load(path string) (*File, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var f File
	if err := v.Unmarshal(&f); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}

	if f.Auth.JWTSecret == "" {
		return nil, ErrMissingSecret
	}
	cfg := f.EngineConfig()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if f.Redis.Addr == "" {
		return nil, errors.New("config: redis.addr is required")
	}
	return &f, nil
}

func setDefaults(v *viper.Viper) {
	d := goToken.DefaultConfig()

	v.SetDefault("app.name", "gotoken")
	v.SetDefault("app.env", "dev")
	v.SetDefault("app.version", "")

	// jwt_secret has no usable default but must be known for env lookup.
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.algorithm", d.JWT.Algorithm)
	v.SetDefault("auth.issuer", "")
	v.SetDefault("auth.access_ttl", d.JWT.AccessTTL)
	v.SetDefault("auth.refresh_ttl", d.JWT.RefreshTTL)
	v.SetDefault("auth.leeway", d.JWT.Leeway)
	v.SetDefault("auth.key_prefix", d.Store.Prefix)
	v.SetDefault("auth.store_timeout", session.DefaultOpTimeout)
	v.SetDefault("auth.scan_count", d.Store.ScanCount)
	v.SetDefault("auth.access_cookie", d.Cookie.AccessName)
	v.SetDefault("auth.refresh_cookie", d.Cookie.RefreshName)

	v.SetDefault("auth.password.memory", d.Password.Memory)
	v.SetDefault("auth.password.time", d.Password.Time)
	v.SetDefault("auth.password.parallelism", d.Password.Parallelism)
	v.SetDefault("auth.password.salt_length", d.Password.SaltLength)
	v.SetDefault("auth.password.key_length", d.Password.KeyLength)

	v.SetDefault("auth.audit.enabled", d.Audit.Enabled)
	v.SetDefault("auth.audit.buffer_size", d.Audit.BufferSize)
	v.SetDefault("auth.audit.drop_if_full", d.Audit.DropIfFull)

	v.SetDefault("auth.metrics.enabled", true)
	v.SetDefault("auth.metrics.latency_histograms", false)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.username", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.dial_timeout", "2s")
	v.SetDefault("redis.read_timeout", "500ms")
	v.SetDefault("redis.write_timeout", "500ms")
	v.SetDefault("redis.pool_size", 0)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.read_timeout", "5s")
	v.SetDefault("http.write_timeout", "5s")
	v.SetDefault("http.idle_timeout", "60s")
	v.SetDefault("http.graceful_timeout", "15s")
}
