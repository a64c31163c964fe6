package llmtool

import (
	"encoding/json"
	"fmt"

	"codescout/internal/util/jsonutil"
)

// ActionEnvelope describes the tool-loop action response from the LLM.
type ActionEnvelope struct {
	Action    string          `json:"action,omitempty"`
	ToolName  string          `json:"tool_name,omitempty"`
	ToolInput json.RawMessage `json:"tool_input,omitempty"`
	Final     json.RawMessage `json:"final,omitempty"`
}

// ParseAction parses the LLM response into an action envelope.
func ParseAction(raw json.RawMessage) (ActionEnvelope, error) {
	var obj map[string]any
	if err := jsonutil.UnmarshalFlex(raw, &obj); err != nil {
		// A bare array or scalar can only be a final answer.
		if json.Valid(raw) {
			return ActionEnvelope{Action: "final", Final: raw}, nil
		}
		return ActionEnvelope{}, err
	}
	norm, err := json.Marshal(obj)
	if err != nil {
		return ActionEnvelope{}, err
	}
	var env ActionEnvelope
	if err := json.Unmarshal(norm, &env); err != nil {
		return ActionEnvelope{}, err
	}
	// No envelope fields at all: the whole object is the answer.
	if env.Action == "" && env.ToolName == "" && len(env.Final) == 0 {
		env.Action = "final"
		env.Final = norm
	}
	if env.Action == "" {
		switch {
		case len(env.Final) > 0:
			env.Action = "final"
		case env.ToolName != "" || len(env.ToolInput) > 0:
			env.Action = "tool"
		}
	}
	switch env.Action {
	case "final", "tool":
		return env, nil
	default:
		return ActionEnvelope{}, fmt.Errorf("%w: %q", ErrUnknownAction, env.Action)
	}
}
