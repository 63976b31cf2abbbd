package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("API_ADDR", "")
	t.Setenv("CORS_ORIGIN", "")
	t.Setenv("AI_LOG_RETENTION_DAYS", "")

	cfg := Load()
	if cfg.Addr != ":5051" {
		t.Fatalf("expected default addr, got %q", cfg.Addr)
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "http://localhost:5173" {
		t.Fatalf("unexpected default origins %v", cfg.CORSOrigins)
	}
	if cfg.AILogRetain != 180*24*time.Hour {
		t.Fatalf("unexpected retention %s", cfg.AILogRetain)
	}
}

func TestLoadFallbackKeys(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("OPENAI_API_TOKEN", "sk-fallback")
	t.Setenv("APP_PUBLIC_URL", "")
	t.Setenv("MARKETING_URL", "https://buildwise.example")
	t.Setenv("S3_ACCESS_KEY_ID", "")
	t.Setenv("AWS_ACCESS_KEY_ID", "AKIA")

	cfg := Load()
	if cfg.OpenAIAPIKey != "sk-fallback" {
		t.Fatalf("expected token fallback, got %q", cfg.OpenAIAPIKey)
	}
	if cfg.AppPublicURL != "https://buildwise.example" {
		t.Fatalf("expected marketing url fallback, got %q", cfg.AppPublicURL)
	}
	if cfg.S3AccessKey != "AKIA" {
		t.Fatalf("expected aws key fallback, got %q", cfg.S3AccessKey)
	}
}

func TestLoadPoolSettings(t *testing.T) {
	t.Setenv("DB_MAX_OPEN_CONNS", "8")
	t.Setenv("DB_MAX_IDLE_CONNS", "")
	t.Setenv("DB_CONN_MAX_LIFETIME_MINUTES", "5")

	cfg := Load()
	if cfg.DBMaxOpenConns != 8 || cfg.DBMaxIdleConns != 10 {
		t.Fatalf("unexpected pool sizes open=%d idle=%d", cfg.DBMaxOpenConns, cfg.DBMaxIdleConns)
	}
	if cfg.DBConnMaxLifetime != 5*time.Minute {
		t.Fatalf("unexpected lifetime %s", cfg.DBConnMaxLifetime)
	}
}

func TestSplitListAndParsers(t *testing.T) {
	got := splitList(" http://a.test , ,http://b.test ")
	if len(got) != 2 || got[0] != "http://a.test" || got[1] != "http://b.test" {
		t.Fatalf("unexpected split %v", got)
	}

	t.Setenv("X_INT", "nope")
	if getenvInt("X_INT", 7) != 7 {
		t.Fatal("expected fallback for invalid int")
	}
	t.Setenv("X_BOOL", "true")
	if !getenvBool("X_BOOL", false) {
		t.Fatal("expected parsed bool")
	}
}
