package config

import (
	"testing"
	"time"
)

func TestGetEnvInt(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue int
		envValue     string
		want         int
	}{
		{"returns default when not set", "CB_INT_UNSET", 10, "", 10},
		{"parses valid int", "CB_INT_VALID", 10, "42", 42},
		{"returns default on invalid int", "CB_INT_INVALID", 10, "ten", 10},
		{"parses zero", "CB_INT_ZERO", 10, "0", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				t.Setenv(tt.key, tt.envValue)
			}
			if got := getEnvInt(tt.key, tt.defaultValue); got != tt.want {
				t.Errorf("getEnvInt(%q, %d) = %d, want %d", tt.key, tt.defaultValue, got, tt.want)
			}
		})
	}
}

func TestGetEnvBoolAndDuration(t *testing.T) {
	t.Setenv("CB_BOOL", "false")
	if getEnvBool("CB_BOOL", true) {
		t.Error("getEnvBool should parse false")
	}
	t.Setenv("CB_BOOL_BAD", "maybe")
	if !getEnvBool("CB_BOOL_BAD", true) {
		t.Error("getEnvBool should fall back on invalid input")
	}

	t.Setenv("CB_DUR", "250ms")
	if got := getEnvDuration("CB_DUR", time.Second); got != 250*time.Millisecond {
		t.Errorf("getEnvDuration = %v", got)
	}
	if got := getEnvDuration("CB_DUR_UNSET", time.Second); got != time.Second {
		t.Errorf("getEnvDuration default = %v", got)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("LOG_MODE", "dev")
	t.Setenv("JWT_SECRET", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if cfg.AIDailyLimit != 10 {
		t.Errorf("AIDailyLimit = %d, want 10", cfg.AIDailyLimit)
	}
	if cfg.RedisAddr != "" {
		t.Errorf("RedisAddr = %q, want empty", cfg.RedisAddr)
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "*" {
		t.Errorf("CORSOrigins = %v", cfg.CORSOrigins)
	}
}

func TestLoadRequiresSecretInProd(t *testing.T) {
	t.Setenv("LOG_MODE", "prod")
	t.Setenv("JWT_SECRET", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when JWT_SECRET is unset in prod")
	}

	t.Setenv("JWT_SECRET", "s3cret")
	if _, err := Load(); err != nil {
		t.Fatalf("Load() with secret: %v", err)
	}
}

func TestLoadRejectsNonPositiveQuota(t *testing.T) {
	t.Setenv("LOG_MODE", "dev")
	t.Setenv("AI_DAILY_LIMIT", "0")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for AI_DAILY_LIMIT=0")
	}
}

func TestDSN(t *testing.T) {
	cfg := &Config{DBHost: "db", DBPort: "5432", DBUser: "u", DBPassword: "p", DBName: "n", DBSSLMode: "disable"}
	want := "host=db port=5432 user=u password=p dbname=n sslmode=disable"
	if got := cfg.DSN(); got != want {
		t.Errorf("DSN() = %q, want %q", got, want)
	}

	cfg.DatabaseURL = "postgres://x"
	if got := cfg.DSN(); got != "postgres://x" {
		t.Errorf("DSN() with DATABASE_URL = %q", got)
	}
}

func TestSplitList(t *testing.T) {
	got := splitList(" http://a.dev , ,http://b.dev")
	if len(got) != 2 || got[0] != "http://a.dev" || got[1] != "http://b.dev" {
		t.Errorf("splitList = %v", got)
	}
}
