package admission

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/solatis/canvasagent/internal/types"
)

// Defaults.
const (
	DefaultRateLimit      = 20
	DefaultRateWindow     = time.Minute
	DefaultIdempotencyTTL = 5 * time.Minute
	DefaultSweepInterval  = time.Minute
)

// Config sets the admission limits.
type Config struct {
	RateLimit      int
	RateWindow     time.Duration
	IdempotencyTTL time.Duration
}

// Controller combines the idempotency gate and the rate gate. The idempotency
// gate is always consulted first so replays never consume quota.
type Controller struct {
	limiter *RateLimiter
	cache   *IdempotencyCache
	logger  *zap.Logger
}

// NewController builds a controller. Zero config fields take the defaults.
func NewController(cfg Config, clock Clock, logger *zap.Logger) *Controller {
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = DefaultRateLimit
	}
	if cfg.RateWindow <= 0 {
		cfg.RateWindow = DefaultRateWindow
	}
	if cfg.IdempotencyTTL <= 0 {
		cfg.IdempotencyTTL = DefaultIdempotencyTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		limiter: NewRateLimiter(cfg.RateLimit, cfg.RateWindow, clock),
		cache:   NewIdempotencyCache(cfg.IdempotencyTTL, clock),
		logger:  logger,
	}
}

// Lookup returns the stored result for key flagged as cached.
func (c *Controller) Lookup(key string) (*types.CommandResult, bool) {
	result, ok := c.cache.Get(key)
	if !ok {
		return nil, false
	}
	result.Cached = true
	return result, true
}

// Admit charges one request to identity. A denial is returned as
// *types.AdmissionDeniedError.
func (c *Controller) Admit(identity string) (Decision, error) {
	d := c.limiter.TryAdmit(identity)
	if !d.Allowed {
		c.logger.Info("admission.denied",
			zap.String("identity", identity),
			zap.Int("limit", d.Limit),
			zap.Time("reset_at", d.ResetAt),
		)
		return d, &types.AdmissionDeniedError{Limit: d.Limit, Remaining: d.Remaining, ResetAt: d.ResetAt}
	}
	return d, nil
}

// Store records result under key for replay.
func (c *Controller) Store(key string, result *types.CommandResult) {
	c.cache.Put(key, result)
}

// Sweep evicts expired rate windows and cache entries.
func (c *Controller) Sweep() {
	windows := c.limiter.Sweep()
	entries := c.cache.Sweep()
	if windows > 0 || entries > 0 {
		c.logger.Debug("admission.swept",
			zap.Int("rate_windows", windows),
			zap.Int("cache_entries", entries),
		)
	}
}

// Run sweeps on every tick until ctx is done or ticks is closed.
func (c *Controller) Run(ctx context.Context, ticks <-chan time.Time) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-ticks:
			if !ok {
				return
			}
			c.Sweep()
		}
	}
}
