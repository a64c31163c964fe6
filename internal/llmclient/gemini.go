package llmclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	genai "google.golang.org/genai"

	"codescout/internal/llm"
	"codescout/internal/mcp"
	"codescout/internal/util/jsonutil"
)

const finalInstruction = "Produce the final answer now as a single JSON value that matches the response schema."

// GeminiClient is a thin wrapper around the official genai client. It serves
// both contracts: one-shot JSON generation and tool-calling conversations.
// Cross-cutting concerns (rate limiting, logging, hooks) are applied via
// llm.Middleware.
type GeminiClient struct {
	cli      *genai.Client
	model    string
	maxTurns int
}

var (
	_ LLMClient     = (*GeminiClient)(nil)
	_ llm.Converser = (*GeminiClient)(nil)
)

func NewGeminiClient(ctx context.Context, apiKey, model string, maxTurns int) (*GeminiClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, NewPermanentError(errors.New("llmclient: GEMINI_API_KEY is not set"))
	}
	if strings.TrimSpace(model) == "" {
		return nil, NewPermanentError(errors.New("llmclient: model is empty"))
	}
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey, Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, err
	}
	if maxTurns <= 0 {
		maxTurns = 32
	}
	return &GeminiClient{cli: cli, model: model, maxTurns: maxTurns}, nil
}

func (g *GeminiClient) Name() string { return "Gemini:" + g.model }
func (g *GeminiClient) Close() error { return nil }

// GenerateJSON sends prompt and asks for application/json constrained by schema.
func (g *GeminiClient) GenerateJSON(ctx context.Context, prompt string, schema json.RawMessage) (json.RawMessage, error) {
	return g.final(ctx, []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}, schema)
}

// Converse runs a native function-calling conversation. Every function call
// the model makes is dispatched to tools and answered with a FunctionResponse.
// Once the model stops calling tools, the final answer is requested under the
// output schema.
func (g *GeminiClient) Converse(ctx context.Context, prompt string, tools mcp.ToolProvider, schema json.RawMessage) (json.RawMessage, error) {
	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}
	if !mcp.HasTools(tools) {
		return g.final(ctx, contents, schema)
	}
	cfg := &genai.GenerateContentConfig{
		Tools: []*genai.Tool{{FunctionDeclarations: functionDeclarations(tools.Specs())}},
	}
	for turn := 0; turn < g.maxTurns; turn++ {
		resp, err := g.cli.Models.GenerateContent(ctx, g.model, contents, cfg)
		if err != nil {
			return nil, err
		}
		if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
			return nil, ErrInvalidJSON
		}
		contents = append(contents, resp.Candidates[0].Content)
		calls := resp.FunctionCalls()
		if len(calls) == 0 {
			contents = append(contents, genai.NewContentFromText(finalInstruction, genai.RoleUser))
			return g.final(ctx, contents, schema)
		}
		parts := make([]*genai.Part, 0, len(calls))
		for _, call := range calls {
			parts = append(parts, &genai.Part{FunctionResponse: callTool(ctx, tools, call)})
		}
		contents = append(contents, genai.NewContentFromParts(parts, genai.RoleUser))
	}
	return nil, fmt.Errorf("%w (%d)", ErrMaxTurns, g.maxTurns)
}

func (g *GeminiClient) final(ctx context.Context, contents []*genai.Content, schema json.RawMessage) (json.RawMessage, error) {
	cfg := &genai.GenerateContentConfig{ResponseMIMEType: "application/json"}
	if len(schema) > 0 {
		cfg.ResponseJsonSchema = schema
	}
	resp, err := g.cli.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return nil, err
	}
	return responseJSON(resp)
}

func responseJSON(resp *genai.GenerateContentResponse) (json.RawMessage, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, ErrInvalidJSON
	}
	raw := jsonutil.ExtractJSON(resp.Text())
	if raw == nil {
		return nil, ErrInvalidJSON
	}
	return raw, nil
}

func functionDeclarations(specs []mcp.ToolSpec) []*genai.FunctionDeclaration {
	decls := make([]*genai.FunctionDeclaration, 0, len(specs))
	for _, s := range specs {
		d := &genai.FunctionDeclaration{Name: s.Name, Description: s.Description}
		if len(s.InputSchema) > 0 {
			d.ParametersJsonSchema = s.InputSchema
		}
		decls = append(decls, d)
	}
	return decls
}

// callTool runs one model function call. A failing tool is reported back to
// the model rather than aborting the conversation.
func callTool(ctx context.Context, tools mcp.ToolProvider, call *genai.FunctionCall) *genai.FunctionResponse {
	resp := &genai.FunctionResponse{ID: call.ID, Name: call.Name}
	args, err := json.Marshal(call.Args)
	if err != nil {
		resp.Response = map[string]any{"error": err.Error()}
		return resp
	}
	out, err := tools.Call(ctx, call.Name, args)
	if err != nil {
		resp.Response = map[string]any{"error": err.Error()}
		return resp
	}
	var v any
	if err := json.Unmarshal(out, &v); err != nil {
		v = string(out)
	}
	resp.Response = map[string]any{"output": v}
	return resp
}
