// Package config loads process configuration from the environment and an
// optional .env file using Viper.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/nuggetsync/nuggetauth"
	"github.com/nuggetsync/nuggetauth/session"
	"github.com/spf13/viper"
)

const (
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// AppConfig is the server configuration.
type AppConfig struct {
	Env      string `mapstructure:"APP_ENV"`
	HTTPAddr string `mapstructure:"HTTP_ADDR"`

	DatabaseURL string `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32  `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32  `mapstructure:"DB_MIN_CONNS"`

	RedisURL string `mapstructure:"REDIS_URL"`

	// SessionBackend is "redis" or "memory". The memory backend does not
	// survive restarts and is not shared between replicas.
	SessionBackend      string        `mapstructure:"SESSION_BACKEND"`
	SessionKeyPrefix    string        `mapstructure:"SESSION_KEY_PREFIX"`
	SessionTTL          time.Duration `mapstructure:"SESSION_TTL"`
	SessionStoreTimeout time.Duration `mapstructure:"SESSION_STORE_TIMEOUT"`
	IPBinding           string        `mapstructure:"IP_BINDING"`

	LoginThrottleEnabled bool          `mapstructure:"LOGIN_THROTTLE_ENABLED"`
	LoginMaxAttempts     int           `mapstructure:"LOGIN_MAX_ATTEMPTS"`
	LoginCooldown        time.Duration `mapstructure:"LOGIN_COOLDOWN"`

	PasswordMinLength int    `mapstructure:"PASSWORD_MIN_LENGTH"`
	Argon2MemoryKiB   uint32 `mapstructure:"ARGON2_MEMORY_KIB"`
	Argon2Time        uint32 `mapstructure:"ARGON2_TIME"`
	Argon2Parallelism uint8  `mapstructure:"ARGON2_PARALLELISM"`

	MetricsEnabled bool `mapstructure:"METRICS_ENABLED"`
	AuditEnabled   bool `mapstructure:"AUDIT_ENABLED"`

	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`

	ShutdownTimeout time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`

	// OTLPEndpoint enables OTLP metric export when set.
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTelService  string `mapstructure:"OTEL_SERVICE_NAME"`
	OTLPInsecure bool   `mapstructure:"OTEL_INSECURE"`
}

// Load reads .env if present, then the environment. Environment variables
// win over .env values.
func Load() (*AppConfig, error) {
	return load(".env")
}

func load(envFile string) (*AppConfig, error) {
	v := viper.New()

	if envFile != "" {
		v.SetConfigFile(envFile)
		v.SetConfigType("env")
		_ = v.ReadInConfig() // a missing .env is fine
	}

	v.AutomaticEnv()
	setDefaults(v)

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := nuggetauth.DefaultConfig()

	v.SetDefault("APP_ENV", "development")
	v.SetDefault("HTTP_ADDR", ":3001")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 0)
	v.SetDefault("REDIS_URL", "redis://127.0.0.1:6379")
	v.SetDefault("SESSION_BACKEND", BackendRedis)
	v.SetDefault("SESSION_KEY_PREFIX", d.Session.KeyPrefix)
	v.SetDefault("SESSION_TTL", d.Session.TTL)
	v.SetDefault("SESSION_STORE_TIMEOUT", d.Session.StoreTimeout)
	v.SetDefault("IP_BINDING", string(d.Session.IPBinding))
	v.SetDefault("LOGIN_THROTTLE_ENABLED", true)
	v.SetDefault("LOGIN_MAX_ATTEMPTS", d.Security.MaxLoginAttempts)
	v.SetDefault("LOGIN_COOLDOWN", d.Security.LoginCooldown)
	v.SetDefault("PASSWORD_MIN_LENGTH", d.Password.MinLength)
	v.SetDefault("ARGON2_MEMORY_KIB", d.Password.Memory)
	v.SetDefault("ARGON2_TIME", d.Password.Time)
	v.SetDefault("ARGON2_PARALLELISM", d.Password.Parallelism)
	v.SetDefault("METRICS_ENABLED", true)
	v.SetDefault("AUDIT_ENABLED", true)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("SHUTDOWN_TIMEOUT", 10*time.Second)
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_SERVICE_NAME", "nuggetauth")
	v.SetDefault("OTEL_INSECURE", false)
}

// Validate checks process-level settings. Engine settings are checked again
// by nuggetauth.Config.Validate when the engine is built.
func (c *AppConfig) Validate() error {
	if c.HTTPAddr == "" {
		return errors.New("config: HTTP_ADDR must be set")
	}
	if c.DatabaseURL == "" {
		return errors.New("config: DATABASE_URL must be set")
	}
	switch c.SessionBackend {
	case BackendRedis:
		if c.RedisURL == "" {
			return errors.New("config: REDIS_URL must be set for the redis session backend")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("config: SESSION_BACKEND must be redis or memory, got %q", c.SessionBackend)
	}
	if !session.IPBinding(c.IPBinding).Valid() {
		return fmt.Errorf("config: IP_BINDING must be strict or advisory, got %q", c.IPBinding)
	}
	if c.SessionTTL <= 0 {
		return errors.New("config: SESSION_TTL must be > 0")
	}
	if c.ShutdownTimeout <= 0 {
		return errors.New("config: SHUTDOWN_TIMEOUT must be > 0")
	}
	return nil
}

// ThrottleEnabled reports whether the login throttle can run. It needs the
// shared Redis counters.
func (c *AppConfig) ThrottleEnabled() bool {
	return c.LoginThrottleEnabled && c.SessionBackend == BackendRedis
}

// EngineConfig projects the process configuration onto the engine's.
func (c *AppConfig) EngineConfig() nuggetauth.Config {
	cfg := nuggetauth.DefaultConfig()

	cfg.Session.TTL = c.SessionTTL
	cfg.Session.KeyPrefix = c.SessionKeyPrefix
	cfg.Session.StoreTimeout = c.SessionStoreTimeout
	cfg.Session.IPBinding = session.IPBinding(c.IPBinding)

	cfg.Password.MinLength = c.PasswordMinLength
	cfg.Password.Memory = c.Argon2MemoryKiB
	cfg.Password.Time = c.Argon2Time
	cfg.Password.Parallelism = c.Argon2Parallelism

	cfg.Security.EnableLoginThrottle = c.ThrottleEnabled()
	cfg.Security.EnableIPThrottle = c.ThrottleEnabled()
	cfg.Security.MaxLoginAttempts = c.LoginMaxAttempts
	cfg.Security.LoginCooldown = c.LoginCooldown

	cfg.Audit.Enabled = c.AuditEnabled
	cfg.Metrics.Enabled = c.MetricsEnabled
	cfg.Metrics.EnableLatencyHistograms = c.MetricsEnabled

	return cfg
}
