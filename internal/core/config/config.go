// Package config provides configuration management for the canvas agent.
package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strings"
	"time"
)

// EnvPrefix prefixes every environment variable read by the service.
const EnvPrefix = "CA"

// Environment-only secrets.
const (
	EnvGeminiAPIKey = EnvPrefix + "_GEMINI_API_KEY"
	EnvHMACSecret   = EnvPrefix + "_HMAC_SECRET"
)

// Config is the complete service configuration.
type Config struct {
	Server    ServerConfig
	Admission AdmissionConfig
	Agent     AgentConfig
	Database  DatabaseConfig
	Telemetry TelemetryConfig
}

// ServerConfig holds gRPC listener settings.
type ServerConfig struct {
	Host            string
	Port            int
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

// AdmissionConfig holds rate limit and idempotency settings.
type AdmissionConfig struct {
	RateLimit      int
	RateWindow     time.Duration
	IdempotencyTTL time.Duration
	SweepInterval  time.Duration
}

// AgentConfig holds reasoning loop and engine settings.
type AgentConfig struct {
	Model                string
	Temperature          float64
	MaxIterations        int
	MaxIterationsCeiling int
	MaxCallsPerCycle     int
	RateLimitRetries     int
	RetryBaseDelay       time.Duration
	BatchSize            int
}

// DatabaseConfig holds the API key and journal store location.
type DatabaseConfig struct {
	URL string
}

// TelemetryConfig holds tracing export settings. An empty endpoint disables export.
type TelemetryConfig struct {
	ServiceName  string
	OTLPEndpoint string
	Insecure     bool
}

// Default returns configuration with default values.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            50051,
			RequestTimeout:  2 * time.Minute,
			ShutdownTimeout: 30 * time.Second,
		},
		Admission: AdmissionConfig{
			RateLimit:      20,
			RateWindow:     time.Minute,
			IdempotencyTTL: 5 * time.Minute,
			SweepInterval:  time.Minute,
		},
		Agent: AgentConfig{
			Model:                "gemini-2.5-flash",
			Temperature:          0.2,
			MaxIterations:        10,
			MaxIterationsCeiling: 25,
			MaxCallsPerCycle:     64,
			RateLimitRetries:     2,
			RetryBaseDelay:       time.Second,
			BatchSize:            50,
		},
		Database: DatabaseConfig{
			URL: "sqlite://canvasagent.db",
		},
		Telemetry: TelemetryConfig{
			ServiceName: "canvasagent",
		},
	}
}

// GeminiAPIKey reads the reasoning engine credential from the environment.
func GeminiAPIKey() (string, error) {
	key := strings.TrimSpace(os.Getenv(EnvGeminiAPIKey))
	if key == "" {
		return "", fmt.Errorf("%s is not set", EnvGeminiAPIKey)
	}
	return key, nil
}

// HMACSecrets extracts HMAC secrets from environment variables.
// Supports CA_HMAC_SECRET (single) and CA_HMAC_SECRET_N (rotation).
// Returns map of secret_id -> decoded secret bytes.
func HMACSecrets() (map[string][]byte, error) {
	secrets := make(map[string][]byte)

	add := func(name, val string) error {
		secretID, decoded, err := ParseHMACSecretWithID(val)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		if _, exists := secrets[secretID]; exists {
			return fmt.Errorf("duplicate secret_id '%s' found in environment variables (check %s and %s_* for conflicts)", secretID, EnvHMACSecret, EnvHMACSecret)
		}
		secrets[secretID] = decoded
		return nil
	}

	if val := os.Getenv(EnvHMACSecret); val != "" {
		if err := add(EnvHMACSecret, val); err != nil {
			return nil, err
		}
	}

	// Numbered secrets keep old keys valid during rotation.
	for i := 1; ; i++ {
		name := fmt.Sprintf("%s_%d", EnvHMACSecret, i)
		val := os.Getenv(name)
		if val == "" {
			break
		}
		if err := add(name, val); err != nil {
			return nil, err
		}
	}

	return secrets, nil
}

// ParseHMACSecretWithID parses secret_id:base64_secret format.
// Secret ID must be 32 lowercase hex chars (UUIDv7 without hyphens).
func ParseHMACSecretWithID(envValue string) (secretID string, secret []byte, err error) {
	parts := strings.SplitN(strings.TrimSpace(envValue), ":", 2)
	if len(parts) != 2 {
		return "", nil, fmt.Errorf("format must be <secret_id>:<base64_secret>")
	}

	secretID = parts[0]
	if len(secretID) != 32 {
		return "", nil, fmt.Errorf("secret_id must be 32 hex chars (UUIDv7 without hyphens)")
	}
	for _, c := range secretID {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
			return "", nil, fmt.Errorf("secret_id must be lowercase hex chars only")
		}
	}

	secret, err = ParseHMACSecret(parts[1])
	if err != nil {
		return "", nil, err
	}
	return secretID, secret, nil
}

// ParseHMACSecret decodes a base64-encoded secret of at least 32 bytes.
func ParseHMACSecret(value string) ([]byte, error) {
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(value))
	if err != nil {
		return nil, fmt.Errorf("invalid base64 encoding: %w", err)
	}
	if len(decoded) < 32 {
		return nil, fmt.Errorf("secret must be at least 32 bytes, got %d", len(decoded))
	}
	return decoded, nil
}
