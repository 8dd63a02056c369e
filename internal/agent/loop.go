package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/solatis/canvasagent/internal/tools"
	"github.com/solatis/canvasagent/internal/types"
)

// State is the reasoning loop's lifecycle state.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateCompleted
	StateCapped
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateCapped:
		return "capped"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether s ends a run.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateCapped || s == StateFailed
}

// Defaults for Config fields left at zero.
const (
	DefaultMaxIterations    = 10
	DefaultMaxCallsPerCycle = 64
	DefaultRateLimitRetries = 2
	DefaultRetryBaseDelay   = time.Second
	DefaultRetryMaxDelay    = 8 * time.Second
)

// Config bounds a single run. A negative RateLimitRetries disables retries.
type Config struct {
	MaxIterations    int
	MaxCallsPerCycle int
	RateLimitRetries int
	RetryBaseDelay   time.Duration
	RetryMaxDelay    time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxIterations <= 0 {
		c.MaxIterations = DefaultMaxIterations
	}
	if c.MaxCallsPerCycle <= 0 {
		c.MaxCallsPerCycle = DefaultMaxCallsPerCycle
	}
	switch {
	case c.RateLimitRetries == 0:
		c.RateLimitRetries = DefaultRateLimitRetries
	case c.RateLimitRetries < 0:
		c.RateLimitRetries = 0
	}
	if c.RetryBaseDelay <= 0 {
		c.RetryBaseDelay = DefaultRetryBaseDelay
	}
	if c.RetryMaxDelay <= 0 {
		c.RetryMaxDelay = DefaultRetryMaxDelay
	}
	return c
}

// Outcome is the terminal result of a run. Operations holds everything collected
// before the loop stopped, whatever the state.
type Outcome struct {
	State      State
	StopReason types.StopReason
	Operations []types.Operation
	Message    string
	Iterations int

	// Err is set for StateFailed and for cancelled runs.
	Err error
}

// Loop drives an Engine through the tool registry. A Loop holds no per-request
// state and may be shared across goroutines.
type Loop struct {
	engine   Engine
	registry *tools.Registry
	cfg      Config
	logger   *zap.Logger
	tracer   trace.Tracer

	// sleep waits between rate-limit retries; replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewLoop builds a loop over engine and registry.
func NewLoop(engine Engine, registry *tools.Registry, cfg Config, logger *zap.Logger) *Loop {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loop{
		engine:   engine,
		registry: registry,
		cfg:      cfg.withDefaults(),
		logger:   logger,
		tracer:   otel.Tracer("github.com/solatis/canvasagent/internal/agent"),
		sleep:    sleepContext,
	}
}

// MaxIterations is the configured default iteration cap.
func (l *Loop) MaxIterations() int {
	return l.cfg.MaxIterations
}

// run is the per-request state of one Run call.
type run struct {
	state     State
	collector *tools.Collector
	messages  []Message
	iteration int
}

func (r *run) transition(to State) {
	switch {
	case r.state == StateIdle && to == StateRunning:
	case r.state == StateRunning && to.Terminal():
	default:
		panic(fmt.Sprintf("agent: invalid transition %s -> %s", r.state, to))
	}
	r.state = to
}

// Run executes command against the canvas described by canvas. maxIterations
// overrides the configured cap when positive. Run never returns a nil Outcome.
func (l *Loop) Run(ctx context.Context, command string, canvas types.CanvasSummary, maxIterations int) *Outcome {
	if maxIterations <= 0 {
		maxIterations = l.cfg.MaxIterations
	}

	ctx, span := l.tracer.Start(ctx, "agent.Run", trace.WithAttributes(
		attribute.Int("agent.max_iterations", maxIterations),
		attribute.Int("canvas.shape_count", canvas.ShapeCount),
	))
	defer span.End()

	r := &run{
		collector: l.registry.NewCollector(canvas),
		messages:  []Message{{Role: RoleUser, Content: command}},
	}
	r.transition(StateRunning)

	req := Request{
		System: SystemInstruction(canvas),
		Tools:  l.registry.Tools(),
	}
	start := time.Now()

	out := l.cycle(ctx, r, req, maxIterations)
	out.Operations = r.collector.Operations()
	out.Iterations = r.iteration

	span.SetAttributes(
		attribute.String("agent.stop_reason", string(out.StopReason)),
		attribute.Int("agent.iterations", out.Iterations),
		attribute.Int("agent.operations", len(out.Operations)),
	)
	if out.State == StateFailed {
		span.SetStatus(codes.Error, out.Err.Error())
	}

	l.logger.Info("agent.run_complete",
		zap.Stringer("state", out.State),
		zap.String("stop_reason", string(out.StopReason)),
		zap.Int("iterations", out.Iterations),
		zap.Int("operations", len(out.Operations)),
		zap.Int64("elapsed_ms", time.Since(start).Milliseconds()),
	)
	return out
}

func (l *Loop) cycle(ctx context.Context, r *run, req Request, maxIterations int) *Outcome {
	for r.iteration < maxIterations {
		if err := ctx.Err(); err != nil {
			return l.cancelled(r, err)
		}
		r.iteration++

		req.Messages = r.messages
		proposal, err := l.propose(ctx, req, r.iteration)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return l.cancelled(r, ctxErr)
			}
			l.logger.Warn("agent.engine_error",
				zap.Int("iteration", r.iteration),
				zap.Int("operations", r.collector.Len()),
				zap.Error(err),
			)
			r.transition(StateFailed)
			return &Outcome{
				State:      StateFailed,
				StopReason: types.StopEngineFailure,
				Message:    fmt.Sprintf("The reasoning engine failed after %d operations were collected.", r.collector.Len()),
				Err:        fmt.Errorf("%w: %w", types.ErrReasoningEngine, err),
			}
		}

		if len(proposal.ToolCalls) == 0 {
			r.transition(StateCompleted)
			return &Outcome{
				State:      StateCompleted,
				StopReason: types.StopCompleted,
				Message:    completionMessage(proposal.Text, r.collector.Len()),
			}
		}

		calls := proposal.ToolCalls
		if len(calls) > l.cfg.MaxCallsPerCycle {
			l.logger.Warn("agent.tool_calls_truncated",
				zap.Int("iteration", r.iteration),
				zap.Int("proposed", len(calls)),
				zap.Int("kept", l.cfg.MaxCallsPerCycle),
			)
			calls = calls[:l.cfg.MaxCallsPerCycle]
		}

		r.messages = append(r.messages, Message{Role: RoleAssistant, Content: proposal.Text, ToolCalls: calls})
		for _, call := range calls {
			r.messages = append(r.messages, l.execute(r, call))
		}
	}

	r.transition(StateCapped)
	return &Outcome{
		State:      StateCapped,
		StopReason: types.StopIterationCap,
		Message:    fmt.Sprintf("Stopped after %d iterations with %d operations.", r.iteration, r.collector.Len()),
	}
}

// execute runs one call through the collector and returns the tool message
// fed back to the engine. Tool errors are reported to the engine, not to the caller.
func (l *Loop) execute(r *run, call ToolCall) Message {
	msg := Message{Role: RoleTool, ToolCallID: call.ID, ToolName: string(call.Name)}

	ack, err := r.collector.Invoke(tools.Invocation{ID: call.ID, Name: call.Name, Arguments: call.Arguments})
	if err != nil {
		l.logger.Debug("agent.tool_rejected",
			zap.Int("iteration", r.iteration),
			zap.String("tool", string(call.Name)),
			zap.Error(err),
		)
		msg.Content = "error: " + err.Error()
		msg.IsError = true
		return msg
	}

	l.logger.Debug("agent.tool_applied",
		zap.Int("iteration", r.iteration),
		zap.String("tool", string(call.Name)),
	)
	msg.Content = ack
	return msg
}

func (l *Loop) cancelled(r *run, err error) *Outcome {
	l.logger.Info("agent.cancelled",
		zap.Int("iteration", r.iteration),
		zap.Int("operations", r.collector.Len()),
		zap.Error(err),
	)
	r.transition(StateCapped)
	return &Outcome{
		State:      StateCapped,
		StopReason: types.StopCancelled,
		Message:    fmt.Sprintf("Cancelled after %d operations.", r.collector.Len()),
		Err:        err,
	}
}

// propose calls the engine, retrying rate-limit errors with exponential backoff.
func (l *Loop) propose(ctx context.Context, req Request, iteration int) (Proposal, error) {
	ctx, span := l.tracer.Start(ctx, "agent.Propose", trace.WithAttributes(
		attribute.Int("agent.iteration", iteration),
		attribute.Int("agent.messages", len(req.Messages)),
	))
	defer span.End()

	for attempt := 0; ; attempt++ {
		proposal, err := l.engine.Propose(ctx, req)
		if err == nil {
			span.SetAttributes(attribute.Int("agent.tool_calls", len(proposal.ToolCalls)))
			return proposal, nil
		}
		if !errors.Is(err, types.ErrEngineRateLimited) || attempt >= l.cfg.RateLimitRetries {
			span.SetStatus(codes.Error, err.Error())
			return Proposal{}, err
		}

		wait := l.backoff(attempt + 1)
		l.logger.Warn("agent.engine_rate_limited",
			zap.Int("iteration", iteration),
			zap.Int("retry_attempt", attempt+1),
			zap.Int("retry_max", l.cfg.RateLimitRetries),
			zap.Int64("retry_in_ms", wait.Milliseconds()),
		)
		if err := l.sleep(ctx, wait); err != nil {
			return Proposal{}, err
		}
	}
}

func (l *Loop) backoff(attempt int) time.Duration {
	wait := l.cfg.RetryBaseDelay * time.Duration(1<<uint(attempt-1))
	if wait > l.cfg.RetryMaxDelay {
		return l.cfg.RetryMaxDelay
	}
	return wait
}

func completionMessage(text string, ops int) string {
	if text = strings.TrimSpace(text); text != "" {
		return text
	}
	if ops == 0 {
		return "No changes were needed."
	}
	return fmt.Sprintf("Applied %d operations.", ops)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
