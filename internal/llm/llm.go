// Package llm defines the structured reasoning contract the analysis
// pipeline depends on, plus middleware that decorates any implementation.
package llm

import (
	"context"
	"encoding/json"

	"codescout/internal/mcp"
)

// Converser sends one prompt to a reasoning model, lets the model call the
// provided tools any number of times, and returns its final JSON answer.
// The answer is constrained by outputSchema on the provider side; callers
// decode it into their own types. tools may be nil.
type Converser interface {
	Name() string
	Converse(ctx context.Context, prompt string, tools mcp.ToolProvider, outputSchema json.RawMessage) (json.RawMessage, error)
}

// ConverserFunc adapts a function into a Converser.
type ConverserFunc func(ctx context.Context, prompt string, tools mcp.ToolProvider, outputSchema json.RawMessage) (json.RawMessage, error)

func (f ConverserFunc) Name() string { return "func" }

func (f ConverserFunc) Converse(ctx context.Context, prompt string, tools mcp.ToolProvider, outputSchema json.RawMessage) (json.RawMessage, error) {
	return f(ctx, prompt, tools, outputSchema)
}
