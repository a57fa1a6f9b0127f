package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nuggetsync/nuggetauth/session"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/nuggetauth")

	cfg, err := load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPAddr != ":3001" || cfg.SessionBackend != BackendRedis {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.SessionTTL != 24*time.Hour {
		t.Fatalf("expected 24h session ttl, got %v", cfg.SessionTTL)
	}

	eng := cfg.EngineConfig()
	if err := eng.Validate(); err != nil {
		t.Fatalf("engine config invalid: %v", err)
	}
	if eng.Session.IPBinding != session.IPBindingStrict {
		t.Fatalf("expected strict binding, got %q", eng.Session.IPBinding)
	}
	if !eng.Security.EnableLoginThrottle {
		t.Fatal("expected throttle on redis backend")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/nuggetauth")
	t.Setenv("SESSION_BACKEND", "memory")
	t.Setenv("SESSION_TTL", "1h")
	t.Setenv("IP_BINDING", "advisory")
	t.Setenv("ARGON2_TIME", "3")

	cfg, err := load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	eng := cfg.EngineConfig()
	if eng.Session.TTL != time.Hour || eng.Session.IPBinding != session.IPBindingAdvisory {
		t.Fatalf("overrides not applied: %+v", eng.Session)
	}
	if eng.Password.Time != 3 {
		t.Fatalf("expected argon2 time 3, got %d", eng.Password.Time)
	}
	if eng.Security.EnableLoginThrottle {
		t.Fatal("throttle must be off without redis")
	}
}

func TestLoadDotEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "DATABASE_URL=postgres://file/db\nHTTP_ADDR=:9000\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Setenv("HTTP_ADDR", ":9100")

	cfg, err := load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DatabaseURL != "postgres://file/db" {
		t.Fatalf("expected .env value, got %q", cfg.DatabaseURL)
	}
	if cfg.HTTPAddr != ":9100" {
		t.Fatalf("environment must win over .env, got %q", cfg.HTTPAddr)
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing database", map[string]string{}},
		{"bad backend", map[string]string{"DATABASE_URL": "x", "SESSION_BACKEND": "etcd"}},
		{"bad binding", map[string]string{"DATABASE_URL": "x", "IP_BINDING": "loose"}},
		{"zero ttl", map[string]string{"DATABASE_URL": "x", "SESSION_TTL": "0s"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("DATABASE_URL", "")
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			if _, err := load(""); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}
