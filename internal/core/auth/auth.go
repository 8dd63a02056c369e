// Package auth provides HMAC-based API key authentication for the gRPC service.
package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/solatis/canvasagent/internal/types"
)

// contextKey is a typed key for context values to avoid collisions.
type contextKey string

const identityKey = contextKey("identity")

// MetadataKey carries the API key on incoming requests.
const MetadataKey = "x-api-key"

// Queries is the subset of *db.Queries authentication needs.
type Queries interface {
	Get(ctx context.Context, name string, dest interface{}, args ...interface{}) error
	Select(ctx context.Context, name string, dest interface{}, args ...interface{}) error
	Exec(ctx context.Context, name string, args ...interface{}) (sql.Result, error)
}

// Authenticator validates API keys against HMAC hashes stored in the database.
type Authenticator struct {
	secrets map[string][]byte
	queries Queries
	logger  *zap.Logger
	now     func() time.Time
}

// NewAuthenticator creates an authenticator over secrets keyed by secret id.
func NewAuthenticator(secrets map[string][]byte, queries Queries, logger *zap.Logger) *Authenticator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Authenticator{
		secrets: secrets,
		queries: queries,
		logger:  logger,
		now:     time.Now,
	}
}

// Authenticate validates apiKey and returns the identity it was issued to.
func (a *Authenticator) Authenticate(ctx context.Context, apiKey string) (string, error) {
	secretID, _, err := ParseAPIKey(apiKey)
	if err != nil {
		return "", err
	}

	secret, ok := a.secrets[secretID]
	if !ok {
		return "", ErrUnknownKey
	}

	var row struct {
		APIKeyID   string       `db:"api_key_id"`
		Identity   string       `db:"identity"`
		RevokedAt  sql.NullTime `db:"revoked_at"`
		LastUsedAt sql.NullTime `db:"last_used_at"`
	}
	err = a.queries.Get(ctx, "get-api-key-by-hash", &row, ComputeHMAC(secret, apiKey))
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrInvalidKey
	}
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrStore, err)
	}

	if row.RevokedAt.Valid {
		return "", ErrKeyRevoked
	}

	// Throttled to one write per key per minute.
	if a.shouldUpdateLastUsed(row.LastUsedAt) {
		if _, err := a.queries.Exec(ctx, "update-last-used", a.now().UTC(), row.APIKeyID); err != nil {
			a.logger.Warn("auth.update_last_used_failed", zap.String("api_key_id", row.APIKeyID), zap.Error(err))
		}
	}

	return row.Identity, nil
}

func (a *Authenticator) shouldUpdateLastUsed(lastUsed sql.NullTime) bool {
	if !lastUsed.Valid {
		return true
	}
	return a.now().Sub(lastUsed.Time) > time.Minute
}

// UnaryInterceptor authenticates every call except the health service and
// injects the verified identity into the context.
func (a *Authenticator) UnaryInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if isHealthMethod(info.FullMethod) {
			return handler(ctx, req)
		}

		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			return nil, status.Error(codes.Unauthenticated, "missing metadata")
		}

		keys := md.Get(MetadataKey)
		if len(keys) == 0 {
			return nil, status.Error(codes.Unauthenticated, ErrMissingKey.Error())
		}

		identity, err := a.Authenticate(ctx, keys[0])
		switch {
		case err == nil:
		case errors.Is(err, ErrKeyRevoked):
			return nil, status.Error(codes.PermissionDenied, err.Error())
		case errors.Is(err, ErrStore):
			a.logger.Error("auth.store_error", zap.Error(err))
			return nil, status.Error(codes.Unavailable, ErrStore.Error())
		default:
			return nil, status.Error(codes.Unauthenticated, err.Error())
		}

		return handler(WithIdentity(ctx, identity), req)
	}
}

func isHealthMethod(method string) bool {
	return method == "/grpc.health.v1.Health/Check" || method == "/grpc.health.v1.Health/Watch"
}

// WithIdentity returns ctx carrying identity.
func WithIdentity(ctx context.Context, identity string) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// IdentityFromContext extracts the verified identity.
// Returns empty string if not found.
func IdentityFromContext(ctx context.Context) string {
	if identity, ok := ctx.Value(identityKey).(string); ok {
		return identity
	}
	return ""
}

// KeyRecord is an issued API key as listed by administrators. The key itself
// is never stored.
type KeyRecord struct {
	APIKeyID   types.APIKeyID `db:"api_key_id"`
	Identity   string         `db:"identity"`
	Name       string         `db:"name"`
	SecretID   string         `db:"secret_id"`
	CreatedAt  time.Time      `db:"created_at"`
	LastUsedAt sql.NullTime   `db:"last_used_at"`
	RevokedAt  sql.NullTime   `db:"revoked_at"`
}

// Issue creates a new API key for identity under the highest-sorting secret id
// and stores its hash. The returned key is shown once.
func (a *Authenticator) Issue(ctx context.Context, identity, name string) (string, types.APIKeyID, error) {
	if identity == "" {
		return "", "", fmt.Errorf("identity is required")
	}
	secretID, secret, err := a.currentSecret()
	if err != nil {
		return "", "", err
	}

	key, err := GenerateAPIKey(secretID)
	if err != nil {
		return "", "", err
	}

	id := types.NewAPIKeyID()
	_, err = a.queries.Exec(ctx, "insert-api-key", id, identity, name, secretID, ComputeHMAC(secret, key), a.now().UTC())
	if err != nil {
		return "", "", fmt.Errorf("%w: %w", ErrStore, err)
	}
	return key, id, nil
}

// Revoke marks the key as revoked. Revoking an unknown or already revoked key
// returns ErrInvalidKey.
func (a *Authenticator) Revoke(ctx context.Context, id types.APIKeyID) error {
	res, err := a.queries.Exec(ctx, "revoke-api-key", a.now().UTC(), id)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStore, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStore, err)
	}
	if n == 0 {
		return ErrInvalidKey
	}
	return nil
}

// List returns all issued keys.
func (a *Authenticator) List(ctx context.Context) ([]KeyRecord, error) {
	var records []KeyRecord
	if err := a.queries.Select(ctx, "list-api-keys", &records); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStore, err)
	}
	return records, nil
}

func (a *Authenticator) currentSecret() (string, []byte, error) {
	if len(a.secrets) == 0 {
		return "", nil, ErrNoSecrets
	}
	ids := make([]string, 0, len(a.secrets))
	for id := range a.secrets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	id := ids[len(ids)-1]
	return id, a.secrets[id], nil
}
