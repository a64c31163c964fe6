package llmclient

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	genai "google.golang.org/genai"

	"codescout/internal/mcp"
)

func TestNewGeminiClientRequiresKey(t *testing.T) {
	_, err := NewGeminiClient(context.Background(), " ", "gemini-2.5-flash", 0)
	var perm *PermanentError
	require.ErrorAs(t, err, &perm)

	_, err = NewGeminiClient(context.Background(), "key", "", 0)
	require.ErrorAs(t, err, &perm)
}

func TestFunctionDeclarations(t *testing.T) {
	in := json.RawMessage(`{"type":"object"}`)
	decls := functionDeclarations([]mcp.ToolSpec{
		{Name: "code_file_analysis", Description: "d", InputSchema: in},
		{Name: "bare"},
	})
	require.Len(t, decls, 2)
	assert.Equal(t, "code_file_analysis", decls[0].Name)
	assert.Equal(t, "d", decls[0].Description)
	assert.Equal(t, in, decls[0].ParametersJsonSchema)
	assert.Nil(t, decls[1].ParametersJsonSchema)
}

func TestCallTool(t *testing.T) {
	reg := mcp.NewRegistry(
		mcp.Func{
			ToolSpec: mcp.ToolSpec{Name: "echo"},
			Handler: func(_ context.Context, in json.RawMessage) (json.RawMessage, error) {
				return in, nil
			},
		},
		mcp.Func{
			ToolSpec: mcp.ToolSpec{Name: "boom"},
			Handler: func(context.Context, json.RawMessage) (json.RawMessage, error) {
				return nil, errors.New("kaboom")
			},
		},
	)

	resp := callTool(context.Background(), reg, &genai.FunctionCall{ID: "1", Name: "echo", Args: map[string]any{"x": "y"}})
	assert.Equal(t, "1", resp.ID)
	assert.Equal(t, "echo", resp.Name)
	assert.Equal(t, map[string]any{"x": "y"}, resp.Response["output"])

	resp = callTool(context.Background(), reg, &genai.FunctionCall{Name: "boom"})
	assert.Equal(t, "kaboom", resp.Response["error"])

	resp = callTool(context.Background(), reg, &genai.FunctionCall{Name: "missing"})
	assert.Contains(t, resp.Response["error"], "unknown tool")
}

func TestResponseJSON(t *testing.T) {
	_, err := responseJSON(nil)
	assert.ErrorIs(t, err, ErrInvalidJSON)

	resp := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: genai.NewContentFromText("```json\n{\"ok\":true}\n```", genai.RoleModel),
	}}}
	raw, err := responseJSON(resp)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(raw))

	resp = &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: genai.NewContentFromText("sorry", genai.RoleModel),
	}}}
	_, err = responseJSON(resp)
	assert.ErrorIs(t, err, ErrInvalidJSON)
}
