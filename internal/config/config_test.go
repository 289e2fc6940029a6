package config

import (
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Port)
	}
	if cfg.Auth.TokenTTL != 24*time.Hour {
		t.Errorf("expected default token TTL 24h, got %v", cfg.Auth.TokenTTL)
	}
	if cfg.Auth.ResetTokenTTL != 15*time.Minute {
		t.Errorf("expected default reset TTL 15m, got %v", cfg.Auth.ResetTokenTTL)
	}
	if cfg.Auth.SecretKey == "" {
		t.Error("expected a development fallback secret")
	}
	if !cfg.IsDevelopment() {
		t.Error("expected development mode by default")
	}
}

func TestLoad_ProductionRequiresSecret(t *testing.T) {
	t.Setenv("ENV", "production")

	if _, err := Load(); err == nil {
		t.Error("expected error for missing SECRET_KEY in production")
	}

	t.Setenv("SECRET_KEY", "too-short")
	if _, err := Load(); err == nil {
		t.Error("expected error for short SECRET_KEY in production")
	}

	t.Setenv("SECRET_KEY", strings.Repeat("k", 32))
	if _, err := Load(); err != nil {
		t.Errorf("expected 32-char secret to pass, got %v", err)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("TOKEN_TTL", "2h")
	t.Setenv("RESET_TOKEN_TTL", "10m")
	t.Setenv("PORT", "9000")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Auth.TokenTTL != 2*time.Hour {
		t.Errorf("expected 2h token TTL, got %v", cfg.Auth.TokenTTL)
	}
	if cfg.Auth.ResetTokenTTL != 10*time.Minute {
		t.Errorf("expected 10m reset TTL, got %v", cfg.Auth.ResetTokenTTL)
	}
	if cfg.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Port)
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{
		Host:     "db.internal",
		User:     "parley",
		Password: "p@ss/word",
		Name:     "parley",
	}

	dsn := d.DSN()
	if !strings.Contains(dsn, "tcp(db.internal:3306)") {
		t.Errorf("expected default port appended, got %s", dsn)
	}
	if !strings.Contains(dsn, "parseTime=true") {
		t.Errorf("expected parseTime=true, got %s", dsn)
	}

	// DATABASE_URL bypasses the individual fields entirely.
	d.dsnOverride = "user:pw@tcp(other:3307)/other"
	if d.DSN() != "user:pw@tcp(other:3307)/other" {
		t.Errorf("expected override to win, got %s", d.DSN())
	}
}

func TestEnsurePort(t *testing.T) {
	tests := []struct {
		host string
		want string
	}{
		{"localhost", "localhost:3306"},
		{"localhost:3307", "localhost:3307"},
		{"db.internal", "db.internal:3306"},
	}
	for _, tt := range tests {
		if got := ensurePort(tt.host, "3306"); got != tt.want {
			t.Errorf("ensurePort(%q) = %q, want %q", tt.host, got, tt.want)
		}
	}
}

func TestAuthConfig_SameSite(t *testing.T) {
	tests := []struct {
		value string
		want  http.SameSite
	}{
		{"strict", http.SameSiteStrictMode},
		{"lax", http.SameSiteLaxMode},
		{"none", http.SameSiteNoneMode},
		{"Lax", http.SameSiteLaxMode},
		{"bogus", http.SameSiteStrictMode},
		{"", http.SameSiteStrictMode},
	}
	for _, tt := range tests {
		a := AuthConfig{CookieSameSite: tt.value}
		if got := a.SameSite(); got != tt.want {
			t.Errorf("SameSite(%q) = %v, want %v", tt.value, got, tt.want)
		}
	}
}
