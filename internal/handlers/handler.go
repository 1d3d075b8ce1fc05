package handlers

import (
	"context"
	"fmt"
)

// Result is the structured outcome every domain handler returns. Handlers
// report recoverable failures through Success/Error rather than Go errors
// so that a partial task can still be summarized.
type Result struct {
	Success bool           `json:"success"`
	Error   string         `json:"error,omitempty"`
	Fields  map[string]any `json:"fields,omitempty"`
}

// OK builds a successful result carrying action-specific fields.
func OK(fields map[string]any) Result {
	if fields == nil {
		fields = map[string]any{}
	}
	return Result{Success: true, Fields: fields}
}

// Fail builds a failed result with a formatted error message.
func Fail(format string, args ...any) Result {
	return Result{Success: false, Error: fmt.Sprintf(format, args...)}
}

// Get returns a named field from the result payload, or nil.
func (r Result) Get(key string) any {
	if r.Fields == nil {
		return nil
	}
	return r.Fields[key]
}

// Handler executes actions for one step domain (file, system, code, web).
type Handler interface {
	Domain() string
	Execute(ctx context.Context, action string, params map[string]any) (Result, error)
}

// UnsupportedActionError is returned when an action name is unrecognized
// by its domain handler and could not be rescued by reinterpretation.
type UnsupportedActionError struct {
	Domain string
	Action string
}

func (e *UnsupportedActionError) Error() string {
	return fmt.Sprintf("unsupported %s action: %s", e.Domain, e.Action)
}
