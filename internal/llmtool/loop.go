package llmtool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"codescout/internal/llm"
	"codescout/internal/llmclient"
	"codescout/internal/mcp"
)

var (
	ErrMaxIterations  = errors.New("llmtool: max iterations reached")
	ErrUnknownAction  = errors.New("llmtool: unknown action")
	ErrToolNotAllowed = errors.New("llmtool: tool not allowed")
)

// PromptBuilder builds the LLM prompt given tool specs and current tool state.
type PromptBuilder func(ctx context.Context, state *ToolState, tools []mcp.ToolSpec) (string, error)

// ToolLoop runs tool-call iterations until a final response is returned.
type ToolLoop struct {
	LLM      llmclient.LLMClient
	Tools    mcp.ToolProvider
	MaxIters int
	Allowed  []string
}

// ToolState captures tool results across iterations.
type ToolState struct {
	Iterations  int
	ToolResults []ToolResult
}

// ToolResult captures the output of a tool call.
type ToolResult struct {
	Name   string          `json:"name"`
	Input  json.RawMessage `json:"input,omitempty"`
	Output json.RawMessage `json:"output,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// Run executes the tool loop and returns the final JSON result.
func (l *ToolLoop) Run(ctx context.Context, build PromptBuilder) (json.RawMessage, *ToolState, error) {
	if l == nil || l.LLM == nil || l.Tools == nil {
		return nil, nil, fmt.Errorf("llmtool: missing LLM or tools")
	}
	if build == nil {
		return nil, nil, fmt.Errorf("llmtool: prompt builder is nil")
	}
	max := l.MaxIters
	if max <= 0 {
		max = 32
	}
	allowed := make(map[string]struct{}, len(l.Allowed))
	for _, a := range l.Allowed {
		a = strings.TrimSpace(a)
		if a != "" {
			allowed[a] = struct{}{}
		}
	}

	state := &ToolState{}
	tools := l.Tools.Specs()
	for i := 0; i < max; i++ {
		if err := ctx.Err(); err != nil {
			return nil, state, err
		}
		state.Iterations = i + 1
		prompt, err := build(ctx, state, tools)
		if err != nil {
			return nil, state, err
		}
		raw, err := l.LLM.GenerateJSON(ctx, prompt, nil)
		if err != nil {
			return nil, state, err
		}
		action, err := ParseAction(raw)
		if err != nil {
			return nil, state, err
		}
		switch action.Action {
		case "final":
			return action.Final, state, nil
		case "tool":
			if action.ToolName == "" {
				return nil, state, fmt.Errorf("llmtool: tool_name required")
			}
			if len(allowed) > 0 {
				if _, ok := allowed[action.ToolName]; !ok {
					return nil, state, ErrToolNotAllowed
				}
			}
			out, err := l.Tools.Call(ctx, action.ToolName, action.ToolInput)
			tr := ToolResult{
				Name:   action.ToolName,
				Input:  action.ToolInput,
				Output: out,
			}
			if err != nil {
				tr.Error = err.Error()
			}
			state.ToolResults = append(state.ToolResults, tr)
		default:
			return nil, state, ErrUnknownAction
		}
	}
	return nil, state, ErrMaxIterations
}

// Converser speaks the JSON action envelope to a plain JSON model, giving it
// tool use without provider-native function calling.
type Converser struct {
	LLM      llmclient.LLMClient
	MaxIters int
}

var _ llm.Converser = (*Converser)(nil)

func NewConverser(c llmclient.LLMClient, maxIters int) *Converser {
	return &Converser{LLM: c, MaxIters: maxIters}
}

func (c *Converser) Name() string { return c.LLM.Name() }

func (c *Converser) Converse(ctx context.Context, prompt string, tools mcp.ToolProvider, schema json.RawMessage) (json.RawMessage, error) {
	if !mcp.HasTools(tools) {
		return c.LLM.GenerateJSON(ctx, prompt, schema)
	}
	loop := &ToolLoop{LLM: c.LLM, Tools: tools, MaxIters: c.MaxIters}
	out, _, err := loop.Run(ctx, DefaultPromptBuilder(prompt, schema))
	return out, err
}
