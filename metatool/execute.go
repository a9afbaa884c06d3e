package metatool

import (
	"context"

	"github.com/jonwraymond/codecall/sandbox"
	"github.com/jonwraymond/codecall/tool"
	"github.com/jonwraymond/codecall/validate"
)

// StatusValidationError tags an execute response whose script failed
// static validation and never reached the runner. The remaining execute
// statuses come from the runner: ok, timeout, runtime_error.
const StatusValidationError = "validation_error"

// ExecuteInput is the execute tool's request.
type ExecuteInput struct {
	Code string `json:"code"`

	// Context is exposed to the script as the read-only `context` global.
	Context map[string]any `json:"context,omitempty"`
}

// ExecuteOutput is the execute tool's response.
type ExecuteOutput struct {
	ExecutionID string `json:"executionId,omitempty"`
	Status      string `json:"status"`

	// Result is the script's return value when Status is ok.
	Result any `json:"result,omitempty"`

	Logs  []string             `json:"logs,omitempty"`
	Error *sandbox.ErrorInfo   `json:"error,omitempty"`
	Calls []sandbox.CallRecord `json:"calls,omitempty"`

	// Issues carries the static-validation failures when Status is
	// validation_error.
	Issues []validate.Issue `json:"issues,omitempty"`

	DurationMs int64 `json:"durationMs"`
}

// Execute validates the script against the active policy and, on success,
// runs it in the sandbox. The script's callTool binding routes through the
// self-reference guard and the regular tool lookup, so scripts can never
// reach the orchestration tools themselves.
func (t *Tools) Execute(ctx context.Context, input ExecuteInput, auth tool.AuthContext) ExecuteOutput {
	validation := validate.Validate(input.Code, t.cfg.Policy)
	if !validation.OK() {
		return ExecuteOutput{
			Status: StatusValidationError,
			Issues: validation.Issues,
			Error: &sandbox.ErrorInfo{
				Name:    "ValidationError",
				Message: "script failed static validation",
			},
		}
	}

	env := sandbox.Environment{
		Context: input.Context,
		CallTool: func(ctx context.Context, name string, callInput map[string]any) (any, error) {
			return t.callTool(ctx, name, callInput, auth)
		},
	}
	res := t.runner.Run(ctx, input.Code, env)
	return ExecuteOutput{
		ExecutionID: res.ExecutionID,
		Status:      string(res.Status),
		Result:      res.Value,
		Logs:        res.Logs,
		Error:       res.Error,
		Calls:       res.Calls,
		DurationMs:  res.DurationMs,
	}
}
