package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestSecretsStayOutOfConfigFiles(t *testing.T) {
	t.Run("hmac secret in file rejected", func(t *testing.T) {
		path := writeConfig(t, `server:
  host: "localhost"
  hmac_secret: "should_be_rejected"
`)
		_, err := LoadConfig(path, nil)
		if err == nil {
			t.Fatal("expected error for secret in config file")
		}
		if err.Error() != "secrets not allowed in config files (use CA_HMAC_SECRET or CA_GEMINI_API_KEY environment variables)" {
			t.Fatalf("wrong error message: %v", err)
		}
	})

	t.Run("gemini key in file rejected", func(t *testing.T) {
		path := writeConfig(t, `agent:
  gemini_api_key: "nope"
`)
		if _, err := LoadConfig(path, nil); err == nil {
			t.Fatal("expected error for engine key in config file")
		}
	})

	t.Run("secrets in environment accepted", func(t *testing.T) {
		t.Setenv(EnvHMACSecret, testSecretID+":"+testSecretB64)
		t.Setenv(EnvGeminiAPIKey, "key")

		if _, err := LoadConfig("", nil); err != nil {
			t.Fatalf("environment secrets must not be rejected: %v", err)
		}
	})
}

func TestEnvironmentOverridesConfigFile(t *testing.T) {
	path := writeConfig(t, `server:
  port: 9090
admission:
  rate_limit: 5
`)

	cfg, err := LoadConfig(path, nil)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Server.Port != 9090 || cfg.Admission.RateLimit != 5 {
		t.Fatalf("config file not applied: %+v", cfg)
	}

	t.Setenv("CA_SERVER_PORT", "8080")
	cfg, err = LoadConfig(path, nil)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Fatalf("expected environment to override file, got port %d", cfg.Server.Port)
	}
	if cfg.Admission.RateLimit != 5 {
		t.Errorf("unrelated file values must survive, got rate_limit %d", cfg.Admission.RateLimit)
	}
}
