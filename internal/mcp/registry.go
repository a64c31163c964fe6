// Package mcp defines the in-process tool contract handed to the reasoning
// model: a spec the model can see and a handler the loop can call.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// ToolSpec documents a tool's contract (name + schemas).
type ToolSpec struct {
	Name         string          `json:"name"`
	Description  string          `json:"description,omitempty"`
	InputSchema  json.RawMessage `json:"input_schema,omitempty"`
	OutputSchema json.RawMessage `json:"output_schema,omitempty"`
}

// Tool is a minimal in-process MCP-style tool.
type Tool interface {
	Spec() ToolSpec
	Call(ctx context.Context, input json.RawMessage) (json.RawMessage, error)
}

// ToolProvider is what a reasoning loop needs: the visible specs and a way to
// dispatch a call by name.
type ToolProvider interface {
	Specs() []ToolSpec
	Call(ctx context.Context, name string, input json.RawMessage) (json.RawMessage, error)
}

// Registry holds tool registrations and dispatches calls.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates a registry and registers any provided tools.
func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{tools: map[string]Tool{}}
	for _, t := range tools {
		r.Register(t)
	}
	return r
}

// Register adds or replaces a tool by name.
func (r *Registry) Register(t Tool) {
	if r == nil || t == nil {
		return
	}
	spec := t.Spec()
	if spec.Name == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.tools == nil {
		r.tools = map[string]Tool{}
	}
	r.tools[spec.Name] = t
}

// Call invokes a registered tool.
func (r *Registry) Call(ctx context.Context, name string, input json.RawMessage) (json.RawMessage, error) {
	if r == nil {
		return nil, fmt.Errorf("mcp: registry is nil")
	}
	r.mu.RLock()
	t, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("mcp: unknown tool %q", name)
	}
	return t.Call(ctx, input)
}

// Specs returns the registered specs ordered by name.
func (r *Registry) Specs() []ToolSpec {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ToolSpec, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t.Spec())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Len reports the number of registered tools.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Func adapts a spec and a handler function into a Tool.
type Func struct {
	ToolSpec ToolSpec
	Handler  func(ctx context.Context, input json.RawMessage) (json.RawMessage, error)
}

func (f Func) Spec() ToolSpec { return f.ToolSpec }

func (f Func) Call(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	if f.Handler == nil {
		return nil, fmt.Errorf("mcp: tool %q has no handler", f.ToolSpec.Name)
	}
	return f.Handler(ctx, input)
}

// HasTools reports whether p exposes at least one tool. A nil provider has none.
func HasTools(p ToolProvider) bool {
	if p == nil {
		return false
	}
	if r, ok := p.(*Registry); ok {
		return r.Len() > 0
	}
	return len(p.Specs()) > 0
}
