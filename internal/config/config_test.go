package config

import (
	"context"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "APP_ENV", "MAX_QUESTIONS_PER_AGENT", "SESSION_TIMEOUT_MINUTES", "SESSION_SWEEP_INTERVAL",
		"AI_PROVIDER", "AI_TEMPERATURE", "AI_MAX_TOKENS", "AI_STREAM", "LEDGER_DRIVER",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}

	if cfg.Server.Addr != ":8080" || cfg.Server.Development() {
		t.Fatalf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Game.MaxQuestions != 5 || cfg.Game.SessionTimeout != time.Hour || cfg.Game.SweepInterval != 10*time.Minute {
		t.Fatalf("unexpected game config: %+v", cfg.Game)
	}
	if cfg.AI.Provider != ProviderArk || *cfg.AI.Temperature != 0.8 || *cfg.AI.MaxTokens != 250 || !cfg.AI.StreamResponse {
		t.Fatalf("unexpected ai config: %+v", cfg.AI)
	}
	if cfg.Ledger.Driver != LedgerSQLite {
		t.Fatalf("unexpected ledger driver: %s", cfg.Ledger.Driver)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "127.0.0.1:9000")
	t.Setenv("APP_ENV", "Development")
	t.Setenv("MAX_QUESTIONS_PER_AGENT", "3")
	t.Setenv("SESSION_TIMEOUT_MINUTES", "0")
	t.Setenv("SESSION_SWEEP_INTERVAL", "30s")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://localhost:5173, https://station.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if cfg.Server.Addr != "127.0.0.1:9000" || !cfg.Server.Development() {
		t.Fatalf("unexpected server config: %+v", cfg.Server)
	}
	if len(cfg.Server.AllowedOrigins) != 2 {
		t.Fatalf("origins: %v", cfg.Server.AllowedOrigins)
	}
	if cfg.Game.MaxQuestions != 3 || cfg.Game.SessionTimeout != 0 || cfg.Game.SweepInterval != 30*time.Second {
		t.Fatalf("unexpected game config: %+v", cfg.Game)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string][2]string{
		"zero quota":      {"MAX_QUESTIONS_PER_AGENT", "0"},
		"bad port":        {"PORT", "80 80"},
		"bad duration":    {"SESSION_SWEEP_INTERVAL", "soon"},
		"bad provider":    {"AI_PROVIDER", "oracle"},
		"bad ledger":      {"LEDGER_DRIVER", "postgres"},
		"negative expiry": {"SESSION_TIMEOUT_MINUTES", "-1"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv(kv[0], kv[1])
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%s", kv[0], kv[1])
			}
		})
	}
}

func TestNewChatModelRequiresCredentials(t *testing.T) {
	for _, provider := range []string{ProviderArk, ProviderGemini} {
		cfg := AIConfig{Provider: provider}
		if cfg.Enabled() {
			t.Fatalf("%s: expected disabled config", provider)
		}
		if _, err := cfg.NewChatModel(context.Background()); err == nil {
			t.Fatalf("%s: expected missing credential error", provider)
		}
	}
}
