package config

import (
	"strings"
	"testing"
	"time"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("from env: %v", err)
	}
	if cfg.Mode != ModeOffline || cfg.HTTPAddr != ":8080" || cfg.DBDriver != "sqlite" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.TokenTTL != 8*time.Hour || cfg.CertPrefix != "ACAD" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if got := cfg.CORSOrigins(); len(got) != 2 || got[0] != "http://localhost:3000" {
		t.Fatalf("offline origins = %v", got)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("MODE", "online")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("ADMIN_EMAILS", "a@example.com,b@example.com")
	t.Setenv("CORS_ORIGINS_ONLINE", "https://x.example")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("from env: %v", err)
	}
	if cfg.DBDriver != "postgres" || len(cfg.AdminEmails) != 2 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if got := cfg.CORSOrigins(); len(got) != 1 || got[0] != "https://x.example" {
		t.Fatalf("online origins = %v", got)
	}
}

func TestFromEnvRejects(t *testing.T) {
	cases := map[string]map[string]string{
		"online without secret": {"MODE": "online"},
		"bad driver":            {"DB_DRIVER": "mysql"},
		"bad duration":          {"TOKEN_TTL": "soon"},
		"bad exporter":          {"OTEL_EXPORTER": "zipkin"},
	}
	for name, vars := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range vars {
				t.Setenv(k, v)
			}
			if _, err := FromEnv(); err == nil {
				t.Fatal("expected error")
			} else if !strings.Contains(err.Error(), "config") && !strings.Contains(err.Error(), "parse env") {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}
