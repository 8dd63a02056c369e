// Package agent runs the bounded reasoning loop that turns a natural-language
// command into canvas operations by driving a reasoning engine through the
// tool registry.
package agent

import (
	"context"
	"encoding/json"

	"github.com/solatis/canvasagent/internal/tools"
	"github.com/solatis/canvasagent/internal/types"
)

// Role identifies the author of a transcript message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall is one invocation proposed by the engine.
type ToolCall struct {
	ID        string              `json:"id"`
	Name      types.OperationName `json:"name"`
	Arguments json.RawMessage     `json:"arguments"`
}

// Message is one transcript entry. Tool messages carry the result of the call
// named by ToolCallID.
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content,omitempty"`
	ToolCalls  []ToolCall `json:"toolCalls,omitempty"`
	ToolCallID string     `json:"toolCallId,omitempty"`
	ToolName   string     `json:"toolName,omitempty"`
	IsError    bool       `json:"isError,omitempty"`
}

// Request is what the loop sends the engine each cycle.
type Request struct {
	System   string
	Messages []Message
	Tools    []tools.Tool
}

// Proposal is the engine's answer for one cycle. No tool calls means the
// engine considers the command done and Text is its final message.
type Proposal struct {
	Text      string
	ToolCalls []ToolCall
}

// Engine is the reasoning engine collaborator. Implementations wrap errors
// with types.ErrEngineRateLimited when the caller should back off and retry.
type Engine interface {
	Propose(ctx context.Context, req Request) (Proposal, error)
}

// EngineFunc adapts a function to Engine.
type EngineFunc func(ctx context.Context, req Request) (Proposal, error)

// Propose calls f.
func (f EngineFunc) Propose(ctx context.Context, req Request) (Proposal, error) {
	return f(ctx, req)
}
