package metatool

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/jonwraymond/codecall/guard"
	"github.com/jonwraymond/codecall/tool"
)

// detailPrinter localizes schema-validation messages.
var detailPrinter = message.NewPrinter(language.English)

// Invoke error types, stable tags for programmatic handling.
const (
	ErrorTypePermissionDenied = "permission_denied"
	ErrorTypeToolNotFound     = "tool_not_found"
	ErrorTypeValidationError  = "validation_error"
	ErrorTypeExecutionError   = "execution_error"
)

// Invoke statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// InvokeInput is the invoke tool's request.
type InvokeInput struct {
	Tool  string         `json:"tool"`
	Input map[string]any `json:"input"`
}

// InvokeError describes a failed invocation.
type InvokeError struct {
	Type    string `json:"type"`
	Message string `json:"message"`

	// Details carries per-field validation messages for validation_error.
	Details []string `json:"details,omitempty"`
}

// InvokeOutput is the invoke tool's response. It is always well-formed:
// failures carry a typed error, never a Go error or a panic.
type InvokeOutput struct {
	Status string       `json:"status"`
	Result any          `json:"result,omitempty"`
	Error  *InvokeError `json:"error,omitempty"`
}

// Invoke calls exactly one tool directly, behind three ordered gates: the
// self-reference guard (permission_denied), registry lookup
// (tool_not_found), and JSON-Schema input validation (validation_error).
// Tool failures are sanitized into execution_error.
func (t *Tools) Invoke(ctx context.Context, input InvokeInput, auth tool.AuthContext) InvokeOutput {
	if guard.IsBlockedSelfReference(input.Tool) {
		return errorOutput(ErrorTypePermissionDenied,
			fmt.Sprintf("tool %q cannot be invoked through this interface", input.Tool), nil)
	}

	desc, ok := t.lookup(input.Tool)
	if !ok {
		return errorOutput(ErrorTypeToolNotFound,
			fmt.Sprintf("tool %q is not registered", input.Tool), nil)
	}

	if details, ok := t.validateInput(desc, input.Input); !ok {
		return errorOutput(ErrorTypeValidationError,
			fmt.Sprintf("input for %q failed schema validation", input.Tool), details)
	}

	inst, err := t.cfg.Invoker.Create(ctx, desc, auth)
	if err != nil {
		return errorOutput(ErrorTypeExecutionError, sanitize(err), nil)
	}
	result, err := inst.Execute(ctx, input.Input)
	if err != nil {
		return errorOutput(ErrorTypeExecutionError, sanitize(err), nil)
	}
	return InvokeOutput{Status: StatusSuccess, Result: result}
}

func errorOutput(errType, message string, details []string) InvokeOutput {
	return InvokeOutput{
		Status: StatusError,
		Error:  &InvokeError{Type: errType, Message: message, Details: details},
	}
}

// validateInput checks the input against the descriptor's input schema.
// A descriptor without a schema, or with a schema that fails to compile,
// does not block the call: a tool author's malformed schema must not make
// the tool uninvokable. Compile failures are logged.
func (t *Tools) validateInput(desc tool.Descriptor, input map[string]any) ([]string, bool) {
	if len(desc.InputSchema) == 0 {
		return nil, true
	}

	sch, err := compileSchema(desc.InputSchema)
	if err != nil {
		t.logf("tool %s: input schema does not compile, skipping validation: %v", desc.Name, err)
		return nil, true
	}

	// A nil map would marshal to JSON null and fail every object-typed
	// schema; absent input validates as an empty object.
	instance := any(input)
	if input == nil {
		instance = map[string]any{}
	}
	err = sch.Validate(normalize(instance))
	if err == nil {
		return nil, true
	}

	var ve *jsonschema.ValidationError
	if errors.As(err, &ve) {
		return validationDetails(ve), false
	}
	return []string{sanitize(err)}, false
}

// compileSchema turns a JSON-Schema-like map into a runtime validator. The
// map is round-tripped through JSON so the compiler sees canonical types.
func compileSchema(schema map[string]any) (*jsonschema.Schema, error) {
	raw, err := json.Marshal(schema)
	if err != nil {
		return nil, err
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("input.json", doc); err != nil {
		return nil, err
	}
	return c.Compile("input.json")
}

// normalize round-trips a value through JSON so validation sees the same
// types a decoded request body would carry.
func normalize(v any) any {
	raw, err := json.Marshal(v)
	if err != nil {
		return v
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return v
	}
	return doc
}

// validationDetails flattens a validation error tree into per-field
// messages.
func validationDetails(ve *jsonschema.ValidationError) []string {
	var details []string
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			field := "/" + strings.Join(e.InstanceLocation, "/")
			details = append(details, fmt.Sprintf("%s: %s", field, e.ErrorKind.LocalizedString(detailPrinter)))
			return
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(ve)
	return details
}

// sanitize reduces an internal error to its first line, keeping stack
// traces and host paths from crossing the tool boundary.
func sanitize(err error) string {
	msg := err.Error()
	if i := strings.IndexByte(msg, '\n'); i >= 0 {
		msg = msg[:i]
	}
	return msg
}
