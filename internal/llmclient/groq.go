package llmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"codescout/internal/util/jsonutil"
)

const groqURL = "https://api.groq.com/openai/v1/chat/completions"

// GroqClient calls the Groq Chat Completions API (OpenAI-compatible) in JSON
// mode. It has no native tool calling here; pair it with llmtool.Converser.
type GroqClient struct {
	http    *http.Client
	apiKey  string
	model   string
	baseURL string
}

var _ LLMClient = (*GroqClient)(nil)

func NewGroqClient(apiKey, model string) (*GroqClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, NewPermanentError(errors.New("llmclient: GROQ_API_KEY is not set"))
	}
	if strings.TrimSpace(model) == "" {
		return nil, NewPermanentError(errors.New("llmclient: model is empty"))
	}
	return &GroqClient{
		http:    &http.Client{Timeout: 120 * time.Second},
		apiKey:  apiKey,
		model:   model,
		baseURL: groqURL,
	}, nil
}

func (g *GroqClient) Name() string { return "Groq:" + g.model }
func (g *GroqClient) Close() error { return nil }

type groqChatReq struct {
	Model          string            `json:"model"`
	Messages       []groqMessage     `json:"messages"`
	Temperature    float32           `json:"temperature"`
	ResponseFormat map[string]string `json:"response_format,omitempty"`
}

type groqMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type groqChatResp struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// GenerateJSON sends prompt as the user message. JSON mode has no schema
// enforcement, so schema is stated in a system message instead.
func (g *GroqClient) GenerateJSON(ctx context.Context, prompt string, schema json.RawMessage) (json.RawMessage, error) {
	system := "Reply with a single JSON value and nothing else."
	if len(schema) > 0 {
		system += "\nThe value must match this JSON schema:\n" + string(schema)
	}
	reqBody := groqChatReq{
		Model: g.model,
		Messages: []groqMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: prompt},
		},
		ResponseFormat: map[string]string{"type": "json_object"},
	}
	b, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		err := fmt.Errorf("groq: unexpected status %s: %s", resp.Status, string(body))
		switch {
		case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusNotFound:
			return nil, NewPermanentError(err)
		case resp.StatusCode == http.StatusBadRequest && strings.Contains(string(body), `"code":"context_length_exceeded"`):
			return nil, NewPermanentError(err)
		}
		return nil, err
	}
	var out groqChatResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	if len(out.Choices) == 0 {
		return nil, ErrInvalidJSON
	}
	raw := jsonutil.ExtractJSON(out.Choices[0].Message.Content)
	if raw == nil {
		return nil, ErrInvalidJSON
	}
	return raw, nil
}
