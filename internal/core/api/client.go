package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/solatis/canvasagent/internal/types"
)

// Client calls a remote CanvasAgent service.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps cc.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// ExecuteCommand sends req and decodes the result.
func (c *Client) ExecuteCommand(ctx context.Context, req types.CommandRequest, opts ...grpc.CallOption) (*types.CommandResult, error) {
	in, err := encodeStruct(req)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, ExecuteCommandMethod, in, out, opts...); err != nil {
		return nil, err
	}
	var result types.CommandResult
	if err := decodeStruct(out, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
