package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SPLITLEDGER_CONFIG", "/nonexistent/config.toml")

	c, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Server.Addr != ":8080" {
		t.Errorf("server.addr = %q, want %q", c.Server.Addr, ":8080")
	}
	if c.Database.Path != "./data/splitledger.db" {
		t.Errorf("database.path = %q, want default", c.Database.Path)
	}
	if c.Auth.TokenDuration != 24*time.Hour {
		t.Errorf("auth.token_duration = %v, want 24h", c.Auth.TokenDuration)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("SPLITLEDGER_CONFIG", "/nonexistent/config.toml")
	t.Setenv("SPLITLEDGER_SERVER_ADDR", ":9090")
	t.Setenv("SPLITLEDGER_AUTH_SECRET", "test-secret")

	c, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Server.Addr != ":9090" {
		t.Errorf("server.addr = %q, want %q", c.Server.Addr, ":9090")
	}
	if c.Auth.Secret != "test-secret" {
		t.Errorf("auth.secret = %q, want override", c.Auth.Secret)
	}
}
