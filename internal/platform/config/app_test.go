package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/campus-events/eventhub-api/internal/domain"
)

const testKey = "0123456789abcdef0123456789abcdef"

func TestLoadAppConfigFromEnv_Defaults(t *testing.T) {
	t.Setenv("IDENTITY_SIGNING_KEY", testKey)

	cfg, err := LoadAppConfigFromEnv()
	if err != nil {
		t.Fatalf("LoadAppConfigFromEnv() err=%v", err)
	}
	if cfg.AuthMode != AuthModeLocal || cfg.StorageBackend != StorageMemory {
		t.Fatalf("modes=%q/%q", cfg.AuthMode, cfg.StorageBackend)
	}
	if cfg.RolePrecedence != domain.ClaimsFirst {
		t.Fatalf("RolePrecedence=%q want=%q", cfg.RolePrecedence, domain.ClaimsFirst)
	}
	if cfg.AllowAdminSignup {
		t.Fatalf("AllowAdminSignup must default to false")
	}
	if cfg.Identity.TokenTTL != time.Hour {
		t.Fatalf("TokenTTL=%v", cfg.Identity.TokenTTL)
	}
}

func TestLoadAppConfigFromEnv_RejectsShortSigningKey(t *testing.T) {
	t.Setenv("IDENTITY_SIGNING_KEY", "short")

	if _, err := LoadAppConfigFromEnv(); err == nil {
		t.Fatalf("expected error for short signing key")
	}
}

func TestLoadAppConfigFromEnv_DevModeGeneratesKey(t *testing.T) {
	t.Setenv("AUTH_MODE", "dev")
	t.Setenv("IDENTITY_SIGNING_KEY", "")

	cfg, err := LoadAppConfigFromEnv()
	if err != nil {
		t.Fatalf("LoadAppConfigFromEnv() err=%v", err)
	}
	if len(cfg.Identity.SigningKey) != 32 {
		t.Fatalf("len(SigningKey)=%d want=32", len(cfg.Identity.SigningKey))
	}
}

func TestLoadAppConfigFromEnv_InvalidValues(t *testing.T) {
	cases := map[string][2]string{
		"auth mode":       {"AUTH_MODE", "oauth"},
		"storage":         {"STORAGE_BACKEND", "sqlite"},
		"precedence":      {"ROLE_PRECEDENCE", "newest"},
		"admin signup":    {"ALLOW_ADMIN_SIGNUP", "sometimes"},
		"ttl":             {"IDENTITY_TOKEN_TTL", "forever"},
		"postgres no dsn": {"STORAGE_BACKEND", "postgres"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv("IDENTITY_SIGNING_KEY", testKey)
			t.Setenv("DATABASE_URL", "")
			t.Setenv(kv[0], kv[1])
			if _, err := LoadAppConfigFromEnv(); err == nil {
				t.Fatalf("expected error for %s=%s", kv[0], kv[1])
			}
		})
	}
}

func TestLoadDotEnv_DoesNotOverrideEnvironment(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, ".env")
	if err := os.WriteFile(p, []byte("EVENTHUB_TEST_A=from-file\nEVENTHUB_TEST_B=from-file\n"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	t.Setenv("EVENTHUB_TEST_A", "from-env")
	t.Setenv("EVENTHUB_TEST_B", "")
	os.Unsetenv("EVENTHUB_TEST_B")

	if err := LoadDotEnv(p, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("LoadDotEnv() err=%v", err)
	}
	if got := os.Getenv("EVENTHUB_TEST_A"); got != "from-env" {
		t.Fatalf("EVENTHUB_TEST_A=%q want=%q", got, "from-env")
	}
	if got := os.Getenv("EVENTHUB_TEST_B"); got != "from-file" {
		t.Fatalf("EVENTHUB_TEST_B=%q want=%q", got, "from-file")
	}
}
