package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/solatis/canvasagent/internal/agent"
	"github.com/solatis/canvasagent/internal/core/admission"
	"github.com/solatis/canvasagent/internal/core/auth"
	"github.com/solatis/canvasagent/internal/types"
)

// withIdentity stands in for the auth interceptor.
func withIdentity(identity string) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if identity == "" {
			return handler(ctx, req)
		}
		return handler(auth.WithIdentity(ctx, identity), req)
	}
}

func dialHandler(t *testing.T, svc *CommandService, identity string) *Client {
	t.Helper()

	handler, err := NewGRPCHandler(svc, nil)
	require.NoError(t, err)

	srv := grpc.NewServer(grpc.UnaryInterceptor(withIdentity(identity)))
	RegisterCanvasAgentServer(srv, handler)

	lis := bufconn.Listen(1 << 20)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return NewClient(conn)
}

func TestGRPCHandler_RoundTrip(t *testing.T) {
	s := newTestService(t, completed(3), admission.Config{})
	client := dialHandler(t, s.CommandService, "alice")

	result, err := client.ExecuteCommand(context.Background(), request("r1"))
	require.NoError(t, err)
	require.Len(t, result.Operations, 3)
	assert.Equal(t, types.OpMoveShape, result.Operations[0].Name)
	assert.JSONEq(t, `{"shapeId":"s1","x":10,"y":0}`, string(result.Operations[1].Arguments))
	assert.Equal(t, 3, result.TotalOperations)
	assert.Equal(t, 1, result.BatchNumber)
	assert.Equal(t, types.StopCompleted, result.StopReason)
	assert.False(t, result.Cached)

	replay, err := client.ExecuteCommand(context.Background(), request("r1"))
	require.NoError(t, err)
	assert.True(t, replay.Cached)
	require.Len(t, replay.Operations, len(result.Operations))
	for i := range result.Operations {
		assert.Equal(t, result.Operations[i].Name, replay.Operations[i].Name)
		assert.JSONEq(t, string(result.Operations[i].Arguments), string(replay.Operations[i].Arguments))
	}
}

func TestGRPCHandler_RateLimitTrailers(t *testing.T) {
	s := newTestService(t, completed(1), admission.Config{RateLimit: 1, RateWindow: time.Minute})
	client := dialHandler(t, s.CommandService, "alice")

	_, err := client.ExecuteCommand(context.Background(), request("r1"))
	require.NoError(t, err)

	var trailer metadata.MD
	_, err = client.ExecuteCommand(context.Background(), request("r2"), grpc.Trailer(&trailer))
	assert.Equal(t, codes.ResourceExhausted, status.Code(err))

	assert.Equal(t, []string{"1"}, trailer.Get(TrailerRateLimit))
	assert.Equal(t, []string{"0"}, trailer.Get(TrailerRateRemaining))
	reset := s.clock.Now().Add(time.Minute).Unix()
	assert.Equal(t, []string{strconv.FormatInt(reset, 10)}, trailer.Get(TrailerRateReset))
}

func TestGRPCHandler_StatusCodes(t *testing.T) {
	tests := []struct {
		name string
		fn   func(context.Context, string, types.CanvasSummary, int) *agent.Outcome
		req  func() types.CommandRequest
		want codes.Code
	}{
		{
			name: "invalid request",
			fn:   completed(1),
			req: func() types.CommandRequest {
				r := request("r1")
				r.Command = ""
				return r
			},
			want: codes.InvalidArgument,
		},
		{
			name: "engine failure",
			fn: func(context.Context, string, types.CanvasSummary, int) *agent.Outcome {
				return &agent.Outcome{
					State:      agent.StateFailed,
					StopReason: types.StopEngineFailure,
					Err:        fmt.Errorf("%w: %w", types.ErrReasoningEngine, errors.New("boom")),
				}
			},
			req:  func() types.CommandRequest { return request("r1") },
			want: codes.Unavailable,
		},
		{
			name: "unexpected error",
			fn: func(context.Context, string, types.CanvasSummary, int) *agent.Outcome {
				return &agent.Outcome{State: agent.StateFailed, Err: errors.New("disk on fire")}
			},
			req:  func() types.CommandRequest { return request("r1") },
			want: codes.Internal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestService(t, tt.fn, admission.Config{})
			client := dialHandler(t, s.CommandService, "alice")

			_, err := client.ExecuteCommand(context.Background(), tt.req())
			assert.Equal(t, tt.want, status.Code(err))
		})
	}
}

func TestGRPCHandler_InternalErrorHidesDetail(t *testing.T) {
	err := toStatus(context.Background(), zap.NewNop(), errors.New("password=hunter2"))
	assert.Equal(t, codes.Internal, status.Code(err))
	assert.NotContains(t, status.Convert(err).Message(), "hunter2")
}

func TestToStatus_Context(t *testing.T) {
	assert.Equal(t, codes.Canceled, status.Code(toStatus(context.Background(), zap.NewNop(), context.Canceled)))
	assert.Equal(t, codes.DeadlineExceeded, status.Code(toStatus(context.Background(), zap.NewNop(), context.DeadlineExceeded)))
}

func TestGRPCHandler_MissingIdentity(t *testing.T) {
	s := newTestService(t, completed(1), admission.Config{})
	client := dialHandler(t, s.CommandService, "")

	_, err := client.ExecuteCommand(context.Background(), request("r1"))
	assert.Equal(t, codes.Internal, status.Code(err))
}

func TestGRPCHandler_MalformedRequest(t *testing.T) {
	s := newTestService(t, completed(1), admission.Config{})
	handler, err := NewGRPCHandler(s.CommandService, nil)
	require.NoError(t, err)

	in, err := structpb.NewStruct(map[string]interface{}{"command": 42})
	require.NoError(t, err)

	_, err = handler.ExecuteCommand(auth.WithIdentity(context.Background(), "alice"), in)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}
