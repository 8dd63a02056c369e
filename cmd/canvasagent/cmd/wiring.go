package cmd

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/solatis/canvasagent/internal/agent"
	"github.com/solatis/canvasagent/internal/core/admission"
	"github.com/solatis/canvasagent/internal/core/api"
	"github.com/solatis/canvasagent/internal/core/auth"
	"github.com/solatis/canvasagent/internal/core/config"
	"github.com/solatis/canvasagent/internal/core/db"
	"github.com/solatis/canvasagent/internal/tools"
)

// openDatabase opens cfg's database and refuses to continue on a schema
// that has pending migrations.
func openDatabase(ctx context.Context, cfg *config.Config) (*sqlx.DB, *db.Queries, error) {
	database, err := db.Open(ctx, cfg.Database.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}

	statuses, err := db.MigrateStatus(ctx, database)
	if err != nil {
		database.Close()
		return nil, nil, fmt.Errorf("failed to check migrations: %w", err)
	}
	for _, s := range statuses {
		if !s.Applied {
			database.Close()
			return nil, nil, fmt.Errorf("migration %s not applied - run 'canvasagent migrate up' first", s.ID)
		}
	}

	queries, err := db.LoadQueries(database)
	if err != nil {
		database.Close()
		return nil, nil, fmt.Errorf("failed to load queries: %w", err)
	}
	return database, queries, nil
}

// newAuthenticator builds an authenticator from the environment secrets.
func newAuthenticator(queries *db.Queries, requireSecrets bool) (*auth.Authenticator, error) {
	secrets, err := config.HMACSecrets()
	if err != nil {
		return nil, fmt.Errorf("failed to load HMAC secrets: %w", err)
	}
	if requireSecrets && len(secrets) == 0 {
		return nil, fmt.Errorf("no HMAC secrets configured (set %s environment variable)", config.EnvHMACSecret)
	}
	return auth.NewAuthenticator(secrets, queries, logger), nil
}

// newLoop builds the reasoning loop over Gemini.
func newLoop(ctx context.Context, cfg config.AgentConfig) (*agent.Loop, error) {
	apiKey, err := config.GeminiAPIKey()
	if err != nil {
		return nil, err
	}
	engine, err := agent.NewGeminiEngine(ctx, agent.GeminiConfig{
		APIKey:      apiKey,
		Model:       cfg.Model,
		Temperature: float32(cfg.Temperature),
		Logger:      logger,
	})
	if err != nil {
		return nil, err
	}

	retries := cfg.RateLimitRetries
	if retries == 0 {
		retries = -1
	}
	return agent.NewLoop(engine, tools.NewRegistry(), agent.Config{
		MaxIterations:    cfg.MaxIterations,
		MaxCallsPerCycle: cfg.MaxCallsPerCycle,
		RateLimitRetries: retries,
		RetryBaseDelay:   cfg.RetryBaseDelay,
	}, logger), nil
}

// newCommandService wires the loop, admission and journal into the command service.
func newCommandService(ctx context.Context, cfg *config.Config, queries *db.Queries) (*api.CommandService, *admission.Controller, error) {
	loop, err := newLoop(ctx, cfg.Agent)
	if err != nil {
		return nil, nil, err
	}

	ctl := admission.NewController(admission.Config{
		RateLimit:      cfg.Admission.RateLimit,
		RateWindow:     cfg.Admission.RateWindow,
		IdempotencyTTL: cfg.Admission.IdempotencyTTL,
	}, admission.SystemClock(), logger)

	var journal api.Journal
	if queries != nil {
		journal = db.NewJournalStore(queries)
	}

	service, err := api.NewCommandService(loop, ctl, journal, api.Config{
		BatchSize:            cfg.Agent.BatchSize,
		MaxIterationsCeiling: cfg.Agent.MaxIterationsCeiling,
	}, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create service: %w", err)
	}
	return service, ctl, nil
}
