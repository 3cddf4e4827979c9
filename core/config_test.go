package core

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, name := range []string{
		"PROJECT_NAME", "ENVIRONMENT", "PORT", "SECRET_KEY", "ALGORITHM",
		"ACCESS_TOKEN_EXPIRE_MINUTES", "BCRYPT_COST", "ALLOWED_ORIGINS",
	} {
		t.Setenv(name, "")
	}

	cfg := Load()
	if cfg.Environment != EnvDevelopment {
		t.Fatalf("environment = %q, want development", cfg.Environment)
	}
	if !cfg.IsDevelopment() {
		t.Fatal("expected development mode")
	}
	if cfg.Algorithm != "HS256" {
		t.Fatalf("algorithm = %q, want HS256", cfg.Algorithm)
	}
	if cfg.TokenTTL() != 30*time.Minute {
		t.Fatalf("token ttl = %v, want 30m", cfg.TokenTTL())
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "*" {
		t.Fatalf("allowed origins = %v, want [*]", cfg.AllowedOrigins)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("ACCESS_TOKEN_EXPIRE_MINUTES", "60")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")
	t.Setenv("BOOTSTRAP_ADMIN", "false")

	cfg := Load()
	if cfg.IsDevelopment() {
		t.Fatal("production must not report development mode")
	}
	if cfg.TokenTTL() != time.Hour {
		t.Fatalf("token ttl = %v, want 1h", cfg.TokenTTL())
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.example.com" {
		t.Fatalf("allowed origins = %v", cfg.AllowedOrigins)
	}
	if cfg.BootstrapAdminEnabled {
		t.Fatal("expected bootstrap admin disabled")
	}
}

func TestLoad_InvalidNumbersFallBack(t *testing.T) {
	t.Setenv("ACCESS_TOKEN_EXPIRE_MINUTES", "soon")
	t.Setenv("BCRYPT_COST", "high")

	cfg := Load()
	if cfg.AccessTokenTTL != 30 {
		t.Fatalf("ttl = %d, want default 30", cfg.AccessTokenTTL)
	}
	if cfg.BcryptCost != 12 {
		t.Fatalf("bcrypt cost = %d, want default 12", cfg.BcryptCost)
	}
}
