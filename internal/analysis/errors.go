package analysis

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Stage names the pipeline step a fatal request error came from.
type Stage string

const (
	StageIngestion   Stage = "ingestion"
	StagePrompting   Stage = "prompting"
	StageModel       Stage = "model"
	StageAggregation Stage = "aggregation"
)

var ErrNotInManifest = errors.New("analysis: path is not a file in the manifest")

// Error is a fatal request error tagged with the stage that produced it.
type Error struct {
	Stage Stage
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("analysis %s: %v", e.Stage, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// MarshalJSON renders the caller-facing error object.
func (e *Error) MarshalJSON() ([]byte, error) {
	type body struct {
		Stage   Stage  `json:"stage"`
		Message string `json:"message"`
	}
	msg := ""
	if e.Err != nil {
		msg = e.Err.Error()
	}
	return json.Marshal(struct {
		Error body `json:"error"`
	}{Error: body{Stage: e.Stage, Message: msg}})
}

func stageError(stage Stage, err error) error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return err
	}
	return &Error{Stage: stage, Err: err}
}

// StageOf returns the stage of err, if err carries one.
func StageOf(err error) (Stage, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Stage, true
	}
	return "", false
}
