package api

import (
	"context"
	"errors"
	"strconv"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/solatis/canvasagent/internal/types"
)

// Rate limit trailer keys.
const (
	TrailerRateLimit     = "x-ratelimit-limit"
	TrailerRateRemaining = "x-ratelimit-remaining"
	TrailerRateReset     = "x-ratelimit-reset"
)

// toStatus maps service errors to gRPC status.
// Admission denials carry the quota as trailers. Unexpected errors are logged
// and reported without detail.
func toStatus(ctx context.Context, logger *zap.Logger, err error) error {
	var denied *types.AdmissionDeniedError
	switch {
	case errors.As(err, &denied):
		_ = grpc.SetTrailer(ctx, metadata.Pairs(
			TrailerRateLimit, strconv.Itoa(denied.Limit),
			TrailerRateRemaining, strconv.Itoa(denied.Remaining),
			TrailerRateReset, strconv.FormatInt(denied.ResetAt.Unix(), 10),
		))
		return status.Error(codes.ResourceExhausted, err.Error())
	case errors.Is(err, types.ErrInvalidRequest):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "request cancelled")
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "deadline exceeded")
	case errors.Is(err, types.ErrReasoningEngine):
		logger.Warn("command.engine_unavailable", zap.Error(err))
		return status.Error(codes.Unavailable, types.ErrReasoningEngine.Error())
	default:
		logger.Error("command.internal_error", zap.Error(err))
		return status.Error(codes.Internal, "internal error")
	}
}
