package api

import (
	"time"

	"github.com/solatis/canvasagent/internal/agent"
	"github.com/solatis/canvasagent/internal/types"
)

// Assemble builds the outward result from a terminal loop outcome.
//
// An engine failure or cancellation with nothing collected is an error.
// Otherwise whatever was collected is returned; a partial result after an
// engine failure never sets hasMore.
func Assemble(out *agent.Outcome, batchSize int, elapsed time.Duration) (*types.CommandResult, error) {
	if len(out.Operations) == 0 && out.Err != nil {
		return nil, out.Err
	}

	ops := out.Operations
	if ops == nil {
		ops = []types.Operation{}
	}

	return &types.CommandResult{
		Operations:      ops,
		TotalOperations: len(ops),
		BatchNumber:     1,
		HasMore:         out.State != agent.StateFailed && len(ops) >= batchSize,
		Message:         out.Message,
		ElapsedMs:       elapsed.Milliseconds(),
		Iterations:      out.Iterations,
		StopReason:      out.StopReason,
	}, nil
}
