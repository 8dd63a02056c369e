package agent

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"google.golang.org/genai"

	"github.com/solatis/canvasagent/internal/tools"
	"github.com/solatis/canvasagent/internal/types"
)

func TestToContents(t *testing.T) {
	messages := []Message{
		{Role: RoleUser, Content: "draw"},
		{Role: RoleAssistant, Content: "sure", ToolCalls: []ToolCall{
			{ID: "1", Name: types.OpMoveShape, Arguments: json.RawMessage(`{"shapeId":"a","x":1,"y":2}`)},
			{ID: "2", Name: types.OpAlign, Arguments: json.RawMessage(`{"shapeIds":["a","b"],"alignment":"left"}`)},
		}},
		{Role: RoleTool, ToolCallID: "1", ToolName: "moveShape", Content: "Moved a"},
		{Role: RoleTool, ToolCallID: "2", ToolName: "align", Content: "error: bad", IsError: true},
	}

	contents := toContents(messages, zap.NewNop())
	require.Len(t, contents, 3)

	assert.Equal(t, genai.RoleUser, contents[0].Role)

	model := contents[1]
	assert.Equal(t, genai.RoleModel, model.Role)
	require.Len(t, model.Parts, 3)
	assert.Equal(t, "sure", model.Parts[0].Text)
	require.NotNil(t, model.Parts[1].FunctionCall)
	assert.Equal(t, "moveShape", model.Parts[1].FunctionCall.Name)
	assert.Equal(t, "a", model.Parts[1].FunctionCall.Args["shapeId"])

	results := contents[2]
	assert.Equal(t, genai.RoleUser, results.Role)
	require.Len(t, results.Parts, 2)
	assert.Equal(t, "1", results.Parts[0].FunctionResponse.ID)
	assert.Equal(t, "Moved a", results.Parts[0].FunctionResponse.Response["output"])
	assert.Equal(t, "error: bad", results.Parts[1].FunctionResponse.Response["error"])
}

func TestToContents_UndecodableArguments(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	messages := []Message{
		{Role: RoleAssistant, ToolCalls: []ToolCall{
			{ID: "1", Name: types.OpMoveShape, Arguments: json.RawMessage(`[1,2]`)},
			{ID: "2", Name: types.OpQueryShapes, Arguments: json.RawMessage(`null`)},
			{ID: "3", Name: types.OpQueryShapes},
		}},
	}

	contents := toContents(messages, zap.New(core))
	require.Len(t, contents, 1)
	require.Len(t, contents[0].Parts, 3)
	for i, part := range contents[0].Parts {
		require.NotNil(t, part.FunctionCall, "part %d", i)
		assert.NotNil(t, part.FunctionCall.Args, "part %d", i)
		assert.Empty(t, part.FunctionCall.Args, "part %d", i)
	}

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "gemini.call_args_undecodable", logs.All()[0].Message)
}

func TestFromResponse(t *testing.T) {
	resp := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Role: genai.RoleModel, Parts: []*genai.Part{
			{Text: "making a grid"},
			{FunctionCall: &genai.FunctionCall{Name: "bulkCreatePattern", Args: map[string]any{"count": 100.0}}},
		}},
	}}}

	p, err := fromResponse(resp)
	require.NoError(t, err)
	assert.Equal(t, "making a grid", p.Text)
	require.Len(t, p.ToolCalls, 1)
	assert.Equal(t, types.OpBulkCreatePattern, p.ToolCalls[0].Name)
	assert.Equal(t, "call-1", p.ToolCalls[0].ID)
	assert.JSONEq(t, `{"count":100}`, string(p.ToolCalls[0].Arguments))

	_, err = fromResponse(&genai.GenerateContentResponse{})
	assert.Error(t, err)
}

func TestFunctionDeclarations(t *testing.T) {
	decls := functionDeclarations(tools.NewRegistry().Tools())
	require.Len(t, decls, len(types.OperationNames))

	var bulk *genai.FunctionDeclaration
	for _, d := range decls {
		if d.Name == string(types.OpBulkCreatePattern) {
			bulk = d
		}
	}
	require.NotNil(t, bulk)
	assert.Equal(t, genai.TypeObject, bulk.Parameters.Type)
	assert.ElementsMatch(t, []string{"pattern", "shapeType", "count"}, bulk.Parameters.Required)

	count := bulk.Parameters.Properties["count"]
	require.NotNil(t, count)
	assert.Equal(t, genai.TypeInteger, count.Type)
	require.NotNil(t, count.Maximum)
	assert.Equal(t, float64(types.MaxPatternCount), *count.Maximum)
	assert.Contains(t, bulk.Parameters.Properties["pattern"].Enum, "spiral")
}

func TestClassifyGeminiError(t *testing.T) {
	assert.ErrorIs(t, classifyGeminiError(errors.New("Error 429, Message: quota, Status: RESOURCE_EXHAUSTED")), types.ErrEngineRateLimited)
	assert.ErrorIs(t, classifyGeminiError(errors.New("Error 403, Status: PERMISSION_DENIED")), types.ErrEngineUnauthorized)

	other := errors.New("Error 500")
	assert.Equal(t, other, classifyGeminiError(other))
}

func TestSystemInstruction(t *testing.T) {
	s := SystemInstruction(types.CanvasSummary{ShapeCount: 12, SelectionCount: 2})
	assert.Contains(t, s, "12 shapes, 2 of them selected")
	assert.Contains(t, s, "more than about 10 elements")
	assert.Contains(t, s, "bulkCreatePattern")
	assert.Contains(t, s, "createCompositeLayout")
}
