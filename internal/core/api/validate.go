package api

import (
	"fmt"
	"strings"

	"github.com/solatis/canvasagent/internal/types"
)

// ValidateRequest checks req before any admission accounting or engine call.
func ValidateRequest(req types.CommandRequest, maxIterationsCeiling int) error {
	command := strings.TrimSpace(req.Command)
	if command == "" {
		return fmt.Errorf("%w: command is required", types.ErrInvalidRequest)
	}
	if len(req.Command) > types.MaxCommandLength {
		return fmt.Errorf("%w: command exceeds %d bytes", types.ErrInvalidRequest, types.MaxCommandLength)
	}

	if err := types.ValidateRequestID(req.RequestID); err != nil {
		return err
	}

	c := req.CanvasSummary
	if c.ShapeCount < 0 || c.SelectionCount < 0 {
		return fmt.Errorf("%w: canvas counts must not be negative", types.ErrInvalidRequest)
	}
	if c.SelectionCount > c.ShapeCount {
		return fmt.Errorf("%w: selectionCount exceeds shapeCount", types.ErrInvalidRequest)
	}

	if req.MaxIterations < 0 || req.MaxIterations > maxIterationsCeiling {
		return fmt.Errorf("%w: maxIterations must be between 0 and %d", types.ErrInvalidRequest, maxIterationsCeiling)
	}
	return nil
}
