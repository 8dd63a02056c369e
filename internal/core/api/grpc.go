package api

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/solatis/canvasagent/internal/core/auth"
	"github.com/solatis/canvasagent/internal/types"
)

// Service and method names on the wire.
const (
	ServiceName          = "canvasagent.v1.CanvasAgent"
	ExecuteCommandMethod = "/" + ServiceName + "/ExecuteCommand"
)

// CanvasAgentServer is the server API for the CanvasAgent service.
// Messages are google.protobuf.Struct carrying the JSON request and result shapes.
type CanvasAgentServer interface {
	ExecuteCommand(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
}

// CanvasAgentServiceDesc describes the CanvasAgent service for registration.
var CanvasAgentServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CanvasAgentServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "ExecuteCommand",
			Handler:    executeCommandHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "canvasagent/v1/canvas_agent.proto",
}

// RegisterCanvasAgentServer registers srv on s.
func RegisterCanvasAgentServer(s grpc.ServiceRegistrar, srv CanvasAgentServer) {
	s.RegisterService(&CanvasAgentServiceDesc, srv)
}

func executeCommandHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CanvasAgentServer).ExecuteCommand(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: ExecuteCommandMethod,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(CanvasAgentServer).ExecuteCommand(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// GRPCHandler binds CommandService to the CanvasAgent service.
type GRPCHandler struct {
	service *CommandService
	logger  *zap.Logger
}

// NewGRPCHandler creates the gRPC binding for service.
func NewGRPCHandler(service *CommandService, logger *zap.Logger) (*GRPCHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("service cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GRPCHandler{service: service, logger: logger}, nil
}

// ExecuteCommand decodes the request, runs it as the authenticated identity
// and encodes the result.
func (h *GRPCHandler) ExecuteCommand(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	identity := auth.IdentityFromContext(ctx)
	if identity == "" {
		return nil, status.Error(codes.Internal, "missing identity in context")
	}

	var req types.CommandRequest
	if err := decodeStruct(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, fmt.Sprintf("malformed request: %v", err))
	}

	result, err := h.service.Execute(ctx, identity, req)
	if err != nil {
		return nil, toStatus(ctx, h.logger, err)
	}

	out, err := encodeStruct(result)
	if err != nil {
		h.logger.Error("command.encode_failed", zap.String("request_id", req.RequestID), zap.Error(err))
		return nil, status.Error(codes.Internal, "internal error")
	}
	return out, nil
}

func decodeStruct(in *structpb.Struct, dst any) error {
	b, err := protojson.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, dst)
}

func encodeStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := protojson.Unmarshal(b, out); err != nil {
		return nil, err
	}
	return out, nil
}
