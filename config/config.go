package config

import (
	"time"

	goToken "github.com/MrEthical07/goToken"
	"github.com/MrEthical07/goToken/internal/obs"
	"github.com/redis/go-redis/v9"
)

// File is the on-disk shape of a goToken process configuration.
type File struct {
	App   App   `mapstructure:"app"`
	Auth  Auth  `mapstructure:"auth"`
	Redis Redis `mapstructure:"redis"`
	Log   Log   `mapstructure:"log"`
	HTTP  HTTP  `mapstructure:"http"`
}

type App struct {
	Name    string `mapstructure:"name"`
	Env     string `mapstructure:"env"`
	Version string `mapstructure:"version"`
}

// Auth maps onto goToken.Config.
type Auth struct {
	JWTSecret  string        `mapstructure:"jwt_secret"`
	Algorithm  string        `mapstructure:"algorithm"`
	Issuer     string        `mapstructure:"issuer"`
	AccessTTL  time.Duration `mapstructure:"access_ttl"`
	RefreshTTL time.Duration `mapstructure:"refresh_ttl"`
	Leeway     time.Duration `mapstructure:"leeway"`

	KeyPrefix    string        `mapstructure:"key_prefix"`
	StoreTimeout time.Duration `mapstructure:"store_timeout"`
	ScanCount    int           `mapstructure:"scan_count"`

	AccessCookie  string `mapstructure:"access_cookie"`
	RefreshCookie string `mapstructure:"refresh_cookie"`

	Password Password `mapstructure:"password"`
	Audit    Audit    `mapstructure:"audit"`
	Metrics  Metrics  `mapstructure:"metrics"`
}

type Password struct {
	Memory      uint32 `mapstructure:"memory"`
	Time        uint32 `mapstructure:"time"`
	Parallelism uint8  `mapstructure:"parallelism"`
	SaltLength  uint32 `mapstructure:"salt_length"`
	KeyLength   uint32 `mapstructure:"key_length"`
}

type Audit struct {
	Enabled    bool `mapstructure:"enabled"`
	BufferSize int  `mapstructure:"buffer_size"`
	DropIfFull bool `mapstructure:"drop_if_full"`
}

type Metrics struct {
	Enabled           bool `mapstructure:"enabled"`
	LatencyHistograms bool `mapstructure:"latency_histograms"`
}

type Redis struct {
	Addr         string        `mapstructure:"addr"`
	Username     string        `mapstructure:"username"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	PoolSize     int           `mapstructure:"pool_size"`
}

type Log struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

type HTTP struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	GracefulTimeout time.Duration `mapstructure:"graceful_timeout"`
}

// EngineConfig converts the auth section into an engine configuration.
func (f *File) EngineConfig() goToken.Config {
	a := f.Auth
	cfg := goToken.DefaultConfig()

	cfg.JWT.Secret = []byte(a.JWTSecret)
	cfg.JWT.Algorithm = a.Algorithm
	cfg.JWT.Issuer = a.Issuer
	cfg.JWT.AccessTTL = a.AccessTTL
	cfg.JWT.RefreshTTL = a.RefreshTTL
	cfg.JWT.Leeway = a.Leeway

	cfg.Store.Prefix = a.KeyPrefix
	cfg.Store.OpTimeout = a.StoreTimeout
	cfg.Store.ScanCount = a.ScanCount

	cfg.Cookie.AccessName = a.AccessCookie
	cfg.Cookie.RefreshName = a.RefreshCookie

	cfg.Password = goToken.PasswordConfig{
		Memory:      a.Password.Memory,
		Time:        a.Password.Time,
		Parallelism: a.Password.Parallelism,
		SaltLength:  a.Password.SaltLength,
		KeyLength:   a.Password.KeyLength,
	}
	cfg.Audit = goToken.AuditConfig{
		Enabled:    a.Audit.Enabled,
		BufferSize: a.Audit.BufferSize,
		DropIfFull: a.Audit.DropIfFull,
	}
	cfg.Metrics = goToken.MetricsConfig{
		Enabled:                 a.Metrics.Enabled,
		EnableLatencyHistograms: a.Metrics.LatencyHistograms,
	}
	return cfg
}

// Options returns go-redis client options. Context deadlines are honored so
// the store's per-operation timeout bounds every command.
func (r *Redis) Options() *redis.Options {
	return &redis.Options{
		Addr:                  r.Addr,
		Username:              r.Username,
		Password:              r.Password,
		DB:                    r.DB,
		DialTimeout:           r.DialTimeout,
		ReadTimeout:           r.ReadTimeout,
		WriteTimeout:          r.WriteTimeout,
		PoolSize:              r.PoolSize,
		ContextTimeoutEnabled: true,
	}
}

// LoggerConfig returns the process logger settings.
func (f *File) LoggerConfig() obs.LogConfig {
	return obs.LogConfig{
		Level:   f.Log.Level,
		Pretty:  f.Log.Pretty,
		App:     f.App.Name,
		Env:     f.App.Env,
		Version: f.App.Version,
	}
}
