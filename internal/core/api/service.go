// Package api implements the canvas command service and its gRPC binding.
package api

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/solatis/canvasagent/internal/agent"
	"github.com/solatis/canvasagent/internal/core/admission"
	"github.com/solatis/canvasagent/internal/types"
)

// Defaults for Config fields left at zero.
const (
	DefaultBatchSize            = 50
	DefaultMaxIterationsCeiling = 25
)

// Config bounds what a single request may ask for.
type Config struct {
	BatchSize            int
	MaxIterationsCeiling int
}

// Runner executes one command through the reasoning loop.
type Runner interface {
	Run(ctx context.Context, command string, canvas types.CanvasSummary, maxIterations int) *agent.Outcome
}

// Journal records an audit entry per executed command.
type Journal interface {
	Record(ctx context.Context, entry types.JournalEntry) error
}

// Journal statuses.
const (
	JournalStatusOK    = "ok"
	JournalStatusError = "error"
)

// CommandService admits, executes and assembles canvas commands.
// Thin orchestration layer over admission, agent and journal.
type CommandService struct {
	runner    Runner
	admission *admission.Controller
	journal   Journal
	cfg       Config
	logger    *zap.Logger
	flight    singleflight.Group
	now       func() time.Time
}

// NewCommandService creates a service. journal may be nil.
func NewCommandService(runner Runner, ctl *admission.Controller, journal Journal, cfg Config, logger *zap.Logger) (*CommandService, error) {
	if runner == nil {
		return nil, fmt.Errorf("runner cannot be nil")
	}
	if ctl == nil {
		return nil, fmt.Errorf("admission controller cannot be nil")
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.MaxIterationsCeiling <= 0 {
		cfg.MaxIterationsCeiling = DefaultMaxIterationsCeiling
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CommandService{
		runner:    runner,
		admission: ctl,
		journal:   journal,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}, nil
}

// Execute runs req on behalf of identity.
//
// The idempotency cache is consulted before any rate accounting. Concurrent
// requests with the same key share one execution; only the leader is charged
// quota and the others receive its result flagged as cached. The shared run
// follows the leader's context. When it ends cancelled, callers that are still
// waiting start over instead of inheriting the cancellation.
func (s *CommandService) Execute(ctx context.Context, identity string, req types.CommandRequest) (*types.CommandResult, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}

	key := idempotencyKey(identity, req.RequestID)
	for {
		if cached, ok := s.admission.Lookup(key); ok {
			s.logger.Debug("command.replayed", zap.String("request_id", req.RequestID), zap.String("identity", identity))
			return cached, nil
		}

		leader := false
		ch := s.flight.DoChan(key, func() (interface{}, error) {
			// A previous flight may have stored the result between Lookup and DoChan.
			if cached, ok := s.admission.Lookup(key); ok {
				return flightResult{result: cached, stored: true}, nil
			}
			leader = true
			if _, err := s.admission.Admit(identity); err != nil {
				return nil, err
			}
			return s.run(ctx, identity, key, req)
		})

		var res singleflight.Result
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case res = <-ch:
		}

		if !leader && s.joinedCancelledRun(res) {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			s.logger.Debug("command.rejoin_after_cancel", zap.String("request_id", req.RequestID), zap.String("identity", identity))
			continue
		}
		if res.Err != nil {
			return nil, res.Err
		}

		fr := res.Val.(flightResult)
		result := fr.result.Clone()
		result.Cached = !leader && fr.stored
		return result, nil
	}
}

// flightResult is what one shared execution hands to every caller. stored
// reports whether result is in the idempotency cache.
type flightResult struct {
	result *types.CommandResult
	stored bool
}

// joinedCancelledRun reports whether a shared run ended because its leader went away.
func (s *CommandService) joinedCancelledRun(res singleflight.Result) bool {
	if res.Err != nil {
		return errors.Is(res.Err, context.Canceled) || errors.Is(res.Err, context.DeadlineExceeded)
	}
	fr := res.Val.(flightResult)
	return !fr.stored && fr.result.StopReason == types.StopCancelled
}

func (s *CommandService) run(ctx context.Context, identity, key string, req types.CommandRequest) (flightResult, error) {
	start := s.now()
	s.logger.Info("command.start",
		zap.String("request_id", req.RequestID),
		zap.String("identity", identity),
		zap.Int("shape_count", req.CanvasSummary.ShapeCount),
	)

	outcome := s.runner.Run(ctx, req.Command, req.CanvasSummary, req.MaxIterations)
	elapsed := s.now().Sub(start)

	result, err := Assemble(outcome, s.cfg.BatchSize, elapsed)
	s.record(ctx, identity, req, outcome, result, elapsed)
	if err != nil {
		s.logger.Warn("command.failed",
			zap.String("request_id", req.RequestID),
			zap.String("stop_reason", string(outcome.StopReason)),
			zap.Error(err),
		)
		return flightResult{}, err
	}

	// Cancelled runs are returned to whoever is still listening but not replayed.
	stored := outcome.StopReason != types.StopCancelled
	if stored {
		s.admission.Store(key, result)
	}

	s.logger.Info("command.complete",
		zap.String("request_id", req.RequestID),
		zap.String("stop_reason", string(result.StopReason)),
		zap.Int("operations", result.TotalOperations),
		zap.Bool("has_more", result.HasMore),
		zap.Int64("elapsed_ms", result.ElapsedMs),
	)
	return flightResult{result: result, stored: stored}, nil
}

// record writes the journal entry. Journal failures are logged and never
// fail the command.
func (s *CommandService) record(ctx context.Context, identity string, req types.CommandRequest, outcome *agent.Outcome, result *types.CommandResult, elapsed time.Duration) {
	if s.journal == nil {
		return
	}

	entry := types.JournalEntry{
		JournalID:      types.NewJournalID(),
		RequestID:      req.RequestID,
		Identity:       identity,
		Command:        req.Command,
		Status:         JournalStatusError,
		StopReason:     outcome.StopReason,
		OperationCount: len(outcome.Operations),
		Iterations:     outcome.Iterations,
		ElapsedMs:      elapsed.Milliseconds(),
		CreatedAt:      s.now().UTC(),
	}
	if result != nil {
		entry.Status = JournalStatusOK
		entry.HasMore = result.HasMore
	}

	// The request context may already be cancelled; the audit row is still wanted.
	if err := s.journal.Record(context.WithoutCancel(ctx), entry); err != nil {
		s.logger.Warn("journal.record_failed", zap.String("request_id", req.RequestID), zap.Error(err))
	}
}

func (s *CommandService) validate(req types.CommandRequest) error {
	return ValidateRequest(req, s.cfg.MaxIterationsCeiling)
}

// idempotencyKey scopes request ids to the caller so identities cannot
// replay each other's results.
func idempotencyKey(identity, requestID string) string {
	return identity + "\x00" + requestID
}

// IsClientError reports whether err was caused by the request rather than the server.
func IsClientError(err error) bool {
	return errors.Is(err, types.ErrInvalidRequest) || errors.Is(err, types.ErrAdmissionDenied)
}
