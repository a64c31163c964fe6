// Package llmclient holds concrete model clients.
package llmclient

import (
	"context"
	"encoding/json"
	"errors"
)

var (
	ErrInvalidJSON = errors.New("llmclient: invalid JSON from model")
	ErrMaxTurns    = errors.New("llmclient: tool conversation exceeded max turns")
)

// LLMClient is a single-shot JSON model: one prompt in, one JSON value out.
// schema may be nil for free-form JSON.
type LLMClient interface {
	Name() string
	Close() error
	GenerateJSON(ctx context.Context, prompt string, schema json.RawMessage) (json.RawMessage, error)
}

// PermanentError indicates an error that will not resolve by calling again
// (bad credentials, unknown model).
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

func NewPermanentError(err error) error {
	return &PermanentError{Err: err}
}
