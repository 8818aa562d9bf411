// Package llm invokes a hosted language model that answers in schema-constrained JSON.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
)

// Request is one structured-output call: a prompt plus the JSON Schema the answer must follow.
// Validate, when set, is applied to every answer; a rejected answer counts as a failed attempt.
type Request struct {
	Prompt   string
	Schema   map[string]interface{}
	Validate func(raw json.RawMessage) error
}

// Invoker sends a Request to a model and returns the raw JSON text it produced.
type Invoker interface {
	Name() string
	Invoke(ctx context.Context, req Request) (json.RawMessage, error)
}

// PermanentError marks failures that retrying cannot fix (bad credentials, malformed request).
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

func IsPermanent(err error) bool {
	var p *PermanentError
	return errors.As(err, &p)
}

// CleanJSON strips markdown code fences some models wrap around JSON answers.
func CleanJSON(input string) string {
	clean := strings.TrimSpace(input)

	if strings.HasPrefix(clean, "```json") {
		clean = strings.TrimPrefix(clean, "```json")
	} else if strings.HasPrefix(clean, "```") {
		clean = strings.TrimPrefix(clean, "```")
	}
	clean = strings.TrimLeft(clean, "\r\n")
	clean = strings.TrimSuffix(clean, "```")

	return strings.TrimSpace(clean)
}
