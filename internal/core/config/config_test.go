package config

import (
	"os"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

const (
	testSecretID  = "0123456789abcdef0123456789abcdef"
	testSecretB64 = "dGVzdHNlY3JldDEyMzQ1Njc4OTBhYmNkZWZnaGlqa2xtbm9w"
)

func TestHMACSecrets(t *testing.T) {
	os.Unsetenv(EnvHMACSecret)
	os.Unsetenv(EnvHMACSecret + "_1")
	os.Unsetenv(EnvHMACSecret + "_2")

	t.Run("single secret", func(t *testing.T) {
		t.Setenv(EnvHMACSecret, testSecretID+":"+testSecretB64)

		secrets, err := HMACSecrets()
		if err != nil {
			t.Fatalf("HMACSecrets failed: %v", err)
		}
		if len(secrets) != 1 {
			t.Errorf("expected 1 secret, got %d", len(secrets))
		}
		if _, ok := secrets[testSecretID]; !ok {
			t.Errorf("secret_id not found in map")
		}
	})

	t.Run("multiple numbered secrets", func(t *testing.T) {
		t.Setenv(EnvHMACSecret+"_1", testSecretID+":"+testSecretB64)
		t.Setenv(EnvHMACSecret+"_2", "fedcba9876543210fedcba9876543210:YW5vdGhlcnNlY3JldDEyMzQ1Njc4OTBhYmNkZWZnaGlqa2xtbm9w")

		secrets, err := HMACSecrets()
		if err != nil {
			t.Fatalf("HMACSecrets failed: %v", err)
		}
		if len(secrets) != 2 {
			t.Errorf("expected 2 secrets, got %d", len(secrets))
		}
	})

	t.Run("numbering stops at first gap", func(t *testing.T) {
		t.Setenv(EnvHMACSecret+"_1", testSecretID+":"+testSecretB64)
		t.Setenv(EnvHMACSecret+"_3", "fedcba9876543210fedcba9876543210:YW5vdGhlcnNlY3JldDEyMzQ1Njc4OTBhYmNkZWZnaGlqa2xtbm9w")

		secrets, err := HMACSecrets()
		if err != nil {
			t.Fatalf("HMACSecrets failed: %v", err)
		}
		if len(secrets) != 1 {
			t.Errorf("expected 1 secret, got %d", len(secrets))
		}
	})

	t.Run("invalid format", func(t *testing.T) {
		t.Setenv(EnvHMACSecret, "invalid_format")

		if _, err := HMACSecrets(); err == nil {
			t.Error("expected error for invalid format")
		}
	})

	t.Run("duplicate secret_id between single and numbered", func(t *testing.T) {
		t.Setenv(EnvHMACSecret, testSecretID+":"+testSecretB64)
		t.Setenv(EnvHMACSecret+"_1", testSecretID+":YW5vdGhlcnNlY3JldDEyMzQ1Njc4OTBhYmNkZWZnaGlqa2xtbm9w")

		if _, err := HMACSecrets(); err == nil {
			t.Error("expected error for duplicate secret_id")
		}
	})
}

func TestParseHMACSecretWithID(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{"valid", testSecretID + ":" + testSecretB64, false},
		{"missing colon", testSecretID, true},
		{"short secret_id", "tooshort:" + testSecretB64, true},
		{"uppercase hex", "0123456789ABCDEF0123456789ABCDEF:" + testSecretB64, true},
		{"invalid base64", testSecretID + ":not-valid-base64!!!", true},
		{"secret too short", testSecretID + ":c2hvcnQ=", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, secret, err := ParseHMACSecretWithID(tt.value)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error for %q", tt.value)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseHMACSecretWithID failed: %v", err)
			}
			if id != testSecretID || len(secret) < 32 {
				t.Errorf("unexpected result id=%s len=%d", id, len(secret))
			}
		})
	}
}

func TestGeminiAPIKey(t *testing.T) {
	t.Setenv(EnvGeminiAPIKey, "")
	if _, err := GeminiAPIKey(); err == nil {
		t.Error("expected error when key is unset")
	}

	t.Setenv(EnvGeminiAPIKey, "  abc123 ")
	key, err := GeminiAPIKey()
	if err != nil {
		t.Fatalf("GeminiAPIKey failed: %v", err)
	}
	if key != "abc123" {
		t.Errorf("expected trimmed key, got %q", key)
	}
}

func TestLoadConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := LoadConfig("", nil)
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if cfg.Server.Port != 50051 {
			t.Errorf("expected port 50051, got %d", cfg.Server.Port)
		}
		if cfg.Admission.RateLimit != 20 || cfg.Admission.RateWindow != time.Minute {
			t.Errorf("unexpected rate defaults: %+v", cfg.Admission)
		}
		if cfg.Admission.IdempotencyTTL != 5*time.Minute {
			t.Errorf("expected idempotency ttl 5m, got %v", cfg.Admission.IdempotencyTTL)
		}
		if cfg.Agent.MaxIterations != 10 || cfg.Agent.MaxIterationsCeiling != 25 {
			t.Errorf("unexpected iteration defaults: %+v", cfg.Agent)
		}
		if cfg.Agent.BatchSize != 50 {
			t.Errorf("expected batch size 50, got %d", cfg.Agent.BatchSize)
		}
	})

	t.Run("environment override", func(t *testing.T) {
		t.Setenv("CA_SERVER_PORT", "9999")
		t.Setenv("CA_ADMISSION_RATE_WINDOW", "30s")
		t.Setenv("CA_AGENT_MAX_ITERATIONS", "4")

		cfg, err := LoadConfig("", nil)
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if cfg.Server.Port != 9999 {
			t.Errorf("expected port 9999, got %d", cfg.Server.Port)
		}
		if cfg.Admission.RateWindow != 30*time.Second {
			t.Errorf("expected rate window 30s, got %v", cfg.Admission.RateWindow)
		}
		if cfg.Agent.MaxIterations != 4 {
			t.Errorf("expected max iterations 4, got %d", cfg.Agent.MaxIterations)
		}
	})

	t.Run("flag beats environment", func(t *testing.T) {
		t.Setenv("CA_SERVER_PORT", "9999")

		flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
		flags.Int("port", 50051, "")
		if err := flags.Parse([]string{"--port", "7000"}); err != nil {
			t.Fatal(err)
		}

		cfg, err := LoadConfig("", flags)
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if cfg.Server.Port != 7000 {
			t.Errorf("expected port 7000, got %d", cfg.Server.Port)
		}
	})

	t.Run("invalid port range", func(t *testing.T) {
		t.Setenv("CA_SERVER_PORT", "70000")

		if _, err := LoadConfig("", nil); err == nil {
			t.Error("expected error for port > 65535")
		}
	})

	t.Run("ceiling below default", func(t *testing.T) {
		t.Setenv("CA_AGENT_MAX_ITERATIONS_CEILING", "5")

		if _, err := LoadConfig("", nil); err == nil {
			t.Error("expected error for ceiling below max_iterations")
		}
	})

	t.Run("invalid negative values", func(t *testing.T) {
		t.Setenv("CA_ADMISSION_RATE_LIMIT", "-1")

		if _, err := LoadConfig("", nil); err == nil {
			t.Error("expected error for negative rate_limit")
		}
	})
}
