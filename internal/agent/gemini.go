package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/solatis/canvasagent/internal/tools"
	"github.com/solatis/canvasagent/internal/types"
)

// DefaultGeminiModel is used when GeminiConfig.Model is empty.
const DefaultGeminiModel = "gemini-2.5-flash"

// GeminiConfig configures the Gemini function-calling engine.
type GeminiConfig struct {
	APIKey      string
	Model       string
	Temperature float32
	Logger      *zap.Logger
}

// GeminiEngine implements Engine with Gemini function calling.
type GeminiEngine struct {
	client      *genai.Client
	model       string
	temperature float32
	logger      *zap.Logger
}

// NewGeminiEngine creates a Gemini client for cfg.
func NewGeminiEngine(ctx context.Context, cfg GeminiConfig) (*GeminiEngine, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultGeminiModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GeminiEngine{client: client, model: cfg.Model, temperature: cfg.Temperature, logger: logger}, nil
}

// Propose sends the transcript and tool declarations and returns the model's
// text and function calls.
func (g *GeminiEngine) Propose(ctx context.Context, req Request) (Proposal, error) {
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(req.System, genai.RoleUser),
		Tools:             []*genai.Tool{{FunctionDeclarations: functionDeclarations(req.Tools)}},
		Temperature:       genai.Ptr(g.temperature),
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, toContents(req.Messages, g.logger), config)
	if err != nil {
		return Proposal{}, classifyGeminiError(err)
	}
	return fromResponse(resp)
}

// toContents converts the transcript. Consecutive tool results are grouped
// into one user turn of function responses.
func toContents(messages []Message, logger *zap.Logger) []*genai.Content {
	var contents []*genai.Content
	var pending []*genai.Part

	flush := func() {
		if len(pending) > 0 {
			contents = append(contents, &genai.Content{Role: genai.RoleUser, Parts: pending})
			pending = nil
		}
	}

	for _, m := range messages {
		switch m.Role {
		case RoleTool:
			key := "output"
			if m.IsError {
				key = "error"
			}
			part := genai.NewPartFromFunctionResponse(m.ToolName, map[string]any{key: m.Content})
			part.FunctionResponse.ID = m.ToolCallID
			pending = append(pending, part)

		case RoleAssistant:
			flush()
			var parts []*genai.Part
			if m.Content != "" {
				parts = append(parts, genai.NewPartFromText(m.Content))
			}
			for _, call := range m.ToolCalls {
				parts = append(parts, &genai.Part{FunctionCall: &genai.FunctionCall{
					ID:   call.ID,
					Name: string(call.Name),
					Args: callArgs(call, logger),
				}})
			}
			contents = append(contents, &genai.Content{Role: genai.RoleModel, Parts: parts})

		default:
			flush()
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}
	flush()
	return contents
}

// callArgs decodes the arguments of an earlier call for echoing back to the
// engine. Anything that is not a JSON object is sent as an empty object.
func callArgs(call ToolCall, logger *zap.Logger) map[string]any {
	args := map[string]any{}
	if len(call.Arguments) == 0 {
		return args
	}
	var decoded map[string]any
	if err := json.Unmarshal(call.Arguments, &decoded); err != nil {
		logger.Warn("gemini.call_args_undecodable",
			zap.String("tool", string(call.Name)),
			zap.String("call_id", call.ID),
			zap.Error(err),
		)
		return args
	}
	if decoded == nil {
		return args
	}
	return decoded
}

func fromResponse(resp *genai.GenerateContentResponse) (Proposal, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return Proposal{}, errors.New("gemini returned no candidates")
	}

	var p Proposal
	if c := resp.Candidates[0].Content; c != nil {
		var text strings.Builder
		for _, part := range c.Parts {
			if part != nil && part.Text != "" && !part.Thought {
				text.WriteString(part.Text)
			}
		}
		p.Text = text.String()
	}

	for i, fc := range resp.FunctionCalls() {
		args, err := json.Marshal(fc.Args)
		if err != nil {
			return Proposal{}, fmt.Errorf("encode %s arguments: %w", fc.Name, err)
		}
		id := fc.ID
		if id == "" {
			id = fmt.Sprintf("call-%d", i+1)
		}
		p.ToolCalls = append(p.ToolCalls, ToolCall{ID: id, Name: types.OperationName(fc.Name), Arguments: args})
	}
	return p, nil
}

func functionDeclarations(ts []tools.Tool) []*genai.FunctionDeclaration {
	decls := make([]*genai.FunctionDeclaration, 0, len(ts))
	for _, t := range ts {
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        string(t.Name),
			Description: t.Description,
			Parameters:  toSchema(t.Parameters),
		})
	}
	return decls
}

func toSchema(s *tools.Schema) *genai.Schema {
	if s == nil {
		return nil
	}
	out := &genai.Schema{
		Type:        schemaType(s.Type),
		Description: s.Description,
		Enum:        s.Enum,
		Required:    s.Required,
		Minimum:     s.Minimum,
		Maximum:     s.Maximum,
		Items:       toSchema(s.Items),
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, prop := range s.Properties {
			out.Properties[name] = toSchema(prop)
		}
	}
	return out
}

func schemaType(t string) genai.Type {
	switch t {
	case tools.TypeObject:
		return genai.TypeObject
	case tools.TypeString:
		return genai.TypeString
	case tools.TypeNumber:
		return genai.TypeNumber
	case tools.TypeInteger:
		return genai.TypeInteger
	case tools.TypeBoolean:
		return genai.TypeBoolean
	case tools.TypeArray:
		return genai.TypeArray
	default:
		return genai.TypeUnspecified
	}
}

// classifyGeminiError maps API failures onto the engine sentinels the loop
// understands.
func classifyGeminiError(err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "429"), strings.Contains(msg, "RESOURCE_EXHAUSTED"):
		return fmt.Errorf("%w: %w", types.ErrEngineRateLimited, err)
	case strings.Contains(msg, "401"), strings.Contains(msg, "403"),
		strings.Contains(msg, "PERMISSION_DENIED"), strings.Contains(msg, "API_KEY_INVALID"):
		return fmt.Errorf("%w: %w", types.ErrEngineUnauthorized, err)
	default:
		return err
	}
}
