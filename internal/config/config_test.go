package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Address != ":4000" {
		t.Errorf("Server.Address = %q", cfg.Server.Address)
	}
	if cfg.Mongo.Database != "BrainShareDB" {
		t.Errorf("Mongo.Database = %q", cfg.Mongo.Database)
	}
	if cfg.Auth.JWTExpiration != 24*time.Hour {
		t.Errorf("Auth.JWTExpiration = %v", cfg.Auth.JWTExpiration)
	}
	if cfg.Auth.CookieName != "token" {
		t.Errorf("Auth.CookieName = %q", cfg.Auth.CookieName)
	}
	if cfg.Membership.BronzePostLimit != 5 {
		t.Errorf("Membership.BronzePostLimit = %d", cfg.Membership.BronzePostLimit)
	}
	if cfg.UseMongo() {
		t.Error("UseMongo() should be false without MONGO_URI")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")
	t.Setenv("JWT_EXPIRATION", "2h")
	t.Setenv("RATE_LIMIT_ENABLED", "true")
	t.Setenv("BRONZE_POST_LIMIT", "3")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if !cfg.UseMongo() {
		t.Error("UseMongo() should be true")
	}
	if cfg.Auth.JWTExpiration != 2*time.Hour {
		t.Errorf("Auth.JWTExpiration = %v", cfg.Auth.JWTExpiration)
	}
	if !cfg.RateLimit.Enabled {
		t.Error("RateLimit.Enabled should be true")
	}
	if cfg.Membership.BronzePostLimit != 3 {
		t.Errorf("Membership.BronzePostLimit = %d", cfg.Membership.BronzePostLimit)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := []byte("server:\n  address: \":9090\"\nstripe:\n  currency: eur\n")
	if err := os.WriteFile(path, body, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Address != ":9090" {
		t.Errorf("Server.Address = %q", cfg.Server.Address)
	}
	if cfg.Stripe.Currency != "eur" {
		t.Errorf("Stripe.Currency = %q", cfg.Stripe.Currency)
	}
}

func TestValidateRejectsDefaultSecretInProduction(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")

	if _, err := Load(""); err == nil {
		t.Fatal("expected error for default JWT secret in production")
	}

	t.Setenv("JWT_SECRET", "a-real-secret")
	if _, err := Load(""); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
}

func TestValidateRejectsWildcardOrigin(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := []byte("cors:\n  allowed_origins:\n    - \"*\"\n")
	if err := os.WriteFile(path, body, 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("expected error for wildcard origin")
	}
}
