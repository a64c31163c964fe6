package jsonutil

import (
	"bytes"
	"encoding/json"
	"strings"
)

// MarshalNoEscape encodes v into JSON without escaping <, > and & into \u003c style sequences.
// Payloads carrying source snippets stay readable.
func MarshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// UnmarshalFlex unmarshals raw into v. When raw is a JSON string that itself
// holds a JSON document (a common model quirk), the inner document is decoded.
func UnmarshalFlex(raw []byte, v any) error {
	err := json.Unmarshal(raw, v)
	if err == nil {
		return nil
	}
	var s string
	if json.Unmarshal(raw, &s) != nil {
		return err
	}
	return json.Unmarshal([]byte(s), v)
}

// ExtractJSON pulls a JSON value out of model text. It tolerates markdown code
// fences and prose around a single object or array. Returns nil when no valid
// JSON value is found.
func ExtractJSON(text string) json.RawMessage {
	s := strings.TrimSpace(text)
	if s == "" {
		return nil
	}
	if json.Valid([]byte(s)) {
		return json.RawMessage(s)
	}
	if inner, ok := stripFence(s); ok && json.Valid([]byte(inner)) {
		return json.RawMessage(inner)
	}
	for _, pair := range [][2]byte{{'{', '}'}, {'[', ']'}} {
		start := strings.IndexByte(s, pair[0])
		end := strings.LastIndexByte(s, pair[1])
		if start >= 0 && end > start {
			cand := s[start : end+1]
			if json.Valid([]byte(cand)) {
				return json.RawMessage(cand)
			}
		}
	}
	return nil
}

func stripFence(s string) (string, bool) {
	if !strings.HasPrefix(s, "```") || !strings.HasSuffix(s, "```") || len(s) < 6 {
		return "", false
	}
	body := strings.TrimSuffix(strings.TrimPrefix(s, "```"), "```")
	// Drop the info string (```json).
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		body = body[nl+1:]
	}
	return strings.TrimSpace(body), true
}
