package llmtool

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"codescout/internal/mcp"
)

const protocol = `Respond with exactly one JSON object per turn.
To call a tool: {"action":"tool","tool_name":"<name>","tool_input":{...}}
To finish: {"action":"final","final":<answer matching OUTPUT_SCHEMA>}`

// FormatToolSpecs renders a compact JSON block of tool specs for prompt inclusion.
func FormatToolSpecs(tools []mcp.ToolSpec) string {
	if tools == nil {
		tools = []mcp.ToolSpec{}
	}
	return encode(tools)
}

// FormatToolResults renders tool results as a JSON block.
func FormatToolResults(results []ToolResult) string {
	if results == nil {
		results = []ToolResult{}
	}
	return encode(results)
}

func encode(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
	return buf.String()
}

// DefaultPromptBuilder appends the envelope protocol, the output schema, the
// tool specs and previous tool results to base.
func DefaultPromptBuilder(base string, outputSchema json.RawMessage) PromptBuilder {
	return func(_ context.Context, state *ToolState, tools []mcp.ToolSpec) (string, error) {
		if base == "" {
			return "", fmt.Errorf("llmtool: base prompt is empty")
		}
		var buf bytes.Buffer
		buf.WriteString(base)
		buf.WriteString("\n\n[PROTOCOL]\n")
		buf.WriteString(protocol)
		if len(outputSchema) > 0 {
			buf.WriteString("\n\n[OUTPUT_SCHEMA]\n")
			buf.Write(outputSchema)
		}
		buf.WriteString("\n\n[TOOLS]\n")
		buf.WriteString(FormatToolSpecs(tools))
		if state != nil && len(state.ToolResults) > 0 {
			buf.WriteString("\n[TOOL_RESULTS]\n")
			buf.WriteString(FormatToolResults(state.ToolResults))
		}
		return buf.String(), nil
	}
}
