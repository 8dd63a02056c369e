package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// FlagKeys maps CLI flag names to configuration keys.
var FlagKeys = map[string]string{
	"host":       "server.host",
	"port":       "server.port",
	"db-url":     "database.url",
	"model":      "agent.model",
	"rate-limit": "admission.rate_limit",
}

// secretKeys may never appear in a config file.
var secretKeys = []string{
	"hmac_secret",
	"gemini_api_key",
	"server.hmac_secret",
	"agent.api_key",
	"agent.gemini_api_key",
}

// LoadConfig loads configuration with precedence
// CLI flags > environment (CA_ prefix) > config file > defaults.
// flags may be nil; only flags named in FlagKeys are bound.
func LoadConfig(configPath string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := validateNoSecretsInConfig(v); err != nil {
		return nil, err
	}

	if flags != nil {
		for name, key := range FlagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:            v.GetString("server.host"),
			Port:            v.GetInt("server.port"),
			RequestTimeout:  v.GetDuration("server.request_timeout"),
			ShutdownTimeout: v.GetDuration("server.shutdown_timeout"),
		},
		Admission: AdmissionConfig{
			RateLimit:      v.GetInt("admission.rate_limit"),
			RateWindow:     v.GetDuration("admission.rate_window"),
			IdempotencyTTL: v.GetDuration("admission.idempotency_ttl"),
			SweepInterval:  v.GetDuration("admission.sweep_interval"),
		},
		Agent: AgentConfig{
			Model:                v.GetString("agent.model"),
			Temperature:          v.GetFloat64("agent.temperature"),
			MaxIterations:        v.GetInt("agent.max_iterations"),
			MaxIterationsCeiling: v.GetInt("agent.max_iterations_ceiling"),
			MaxCallsPerCycle:     v.GetInt("agent.max_calls_per_cycle"),
			RateLimitRetries:     v.GetInt("agent.rate_limit_retries"),
			RetryBaseDelay:       v.GetDuration("agent.retry_base_delay"),
			BatchSize:            v.GetInt("agent.batch_size"),
		},
		Database: DatabaseConfig{
			URL: v.GetString("database.url"),
		},
		Telemetry: TelemetryConfig{
			ServiceName:  v.GetString("telemetry.service_name"),
			OTLPEndpoint: v.GetString("telemetry.otlp_endpoint"),
			Insecure:     v.GetBool("telemetry.insecure"),
		},
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.request_timeout", d.Server.RequestTimeout)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)

	v.SetDefault("admission.rate_limit", d.Admission.RateLimit)
	v.SetDefault("admission.rate_window", d.Admission.RateWindow)
	v.SetDefault("admission.idempotency_ttl", d.Admission.IdempotencyTTL)
	v.SetDefault("admission.sweep_interval", d.Admission.SweepInterval)

	v.SetDefault("agent.model", d.Agent.Model)
	v.SetDefault("agent.temperature", d.Agent.Temperature)
	v.SetDefault("agent.max_iterations", d.Agent.MaxIterations)
	v.SetDefault("agent.max_iterations_ceiling", d.Agent.MaxIterationsCeiling)
	v.SetDefault("agent.max_calls_per_cycle", d.Agent.MaxCallsPerCycle)
	v.SetDefault("agent.rate_limit_retries", d.Agent.RateLimitRetries)
	v.SetDefault("agent.retry_base_delay", d.Agent.RetryBaseDelay)
	v.SetDefault("agent.batch_size", d.Agent.BatchSize)

	v.SetDefault("database.url", d.Database.URL)

	v.SetDefault("telemetry.service_name", d.Telemetry.ServiceName)
	v.SetDefault("telemetry.otlp_endpoint", d.Telemetry.OTLPEndpoint)
	v.SetDefault("telemetry.insecure", d.Telemetry.Insecure)
}

// Validate checks ranges and cross-field constraints.
func Validate(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", cfg.Server.Port)
	}
	if cfg.Server.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %v", cfg.Server.RequestTimeout)
	}
	if cfg.Admission.RateLimit <= 0 {
		return fmt.Errorf("rate_limit must be positive, got %d", cfg.Admission.RateLimit)
	}
	if cfg.Admission.RateWindow <= 0 {
		return fmt.Errorf("rate_window must be positive, got %v", cfg.Admission.RateWindow)
	}
	if cfg.Admission.IdempotencyTTL <= 0 {
		return fmt.Errorf("idempotency_ttl must be positive, got %v", cfg.Admission.IdempotencyTTL)
	}
	if cfg.Admission.SweepInterval <= 0 {
		return fmt.Errorf("sweep_interval must be positive, got %v", cfg.Admission.SweepInterval)
	}
	if cfg.Agent.MaxIterations <= 0 {
		return fmt.Errorf("max_iterations must be positive, got %d", cfg.Agent.MaxIterations)
	}
	if cfg.Agent.MaxIterationsCeiling < cfg.Agent.MaxIterations {
		return fmt.Errorf("max_iterations_ceiling (%d) must be at least max_iterations (%d)",
			cfg.Agent.MaxIterationsCeiling, cfg.Agent.MaxIterations)
	}
	if cfg.Agent.MaxCallsPerCycle <= 0 {
		return fmt.Errorf("max_calls_per_cycle must be positive, got %d", cfg.Agent.MaxCallsPerCycle)
	}
	if cfg.Agent.RateLimitRetries < 0 {
		return fmt.Errorf("rate_limit_retries must not be negative, got %d", cfg.Agent.RateLimitRetries)
	}
	if cfg.Agent.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be positive, got %d", cfg.Agent.BatchSize)
	}
	if cfg.Agent.Temperature < 0 || cfg.Agent.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2, got %v", cfg.Agent.Temperature)
	}
	return nil
}

// validateNoSecretsInConfig enforces environment-only secrets. Only the config
// file is inspected; environment values are expected.
func validateNoSecretsInConfig(v *viper.Viper) error {
	for _, key := range secretKeys {
		if v.InConfig(key) {
			return fmt.Errorf("secrets not allowed in config files (use %s or %s environment variables)", EnvHMACSecret, EnvGeminiAPIKey)
		}
	}
	return nil
}
