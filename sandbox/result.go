package sandbox

// Status tags the outcome of one sandboxed run. Every run produces exactly
// one of these; host-side failures never surface as Go errors to the script
// caller.
type Status string

const (
	// StatusOK means the script ran to completion and its return value (if
	// any) is in Result.Value.
	StatusOK Status = "ok"

	// StatusTimeout means the run was interrupted at the policy's wall-clock
	// budget or by caller cancellation.
	StatusTimeout Status = "timeout"

	// StatusRuntimeError means the script threw, a tool call failed without
	// being caught, or the run failed internally.
	StatusRuntimeError Status = "runtime_error"
)

// ErrorInfo describes the failure behind a non-ok status in script terms.
type ErrorInfo struct {
	// Name is the JS error class when one is available (TypeError,
	// RangeError, GoError), or a host-side tag otherwise.
	Name string `json:"name,omitempty"`

	// Message is the human-readable failure description.
	Message string `json:"message"`

	// Stack is the JS stack trace when the engine produced one.
	Stack string `json:"stack,omitempty"`
}

// CallRecord traces one callTool invocation made from inside the sandbox.
// Args is a deep copy taken before the call, so later mutation by either
// side cannot rewrite the trace.
type CallRecord struct {
	Tool       string         `json:"tool"`
	Args       map[string]any `json:"args,omitempty"`
	DurationMs int64          `json:"durationMs"`
	Error      string         `json:"error,omitempty"`
}

// Result is the outcome of one sandboxed run.
type Result struct {
	// ExecutionID uniquely identifies the run for correlation with logs and
	// call records.
	ExecutionID string `json:"executionId"`

	Status Status `json:"status"`

	// Value is the script's return value, exported to plain Go data.
	// Only meaningful when Status is StatusOK.
	Value any `json:"value,omitempty"`

	// Error is set for every non-ok status.
	Error *ErrorInfo `json:"error,omitempty"`

	// Logs are the captured console/mcpLog/mcpNotify lines in emission
	// order, each prefixed with its channel tag.
	Logs []string `json:"logs,omitempty"`

	// Calls traces the tool calls made during the run, in call order.
	Calls []CallRecord `json:"calls,omitempty"`

	// DurationMs is the wall-clock duration of the run.
	DurationMs int64 `json:"durationMs"`
}

// copyArgs deep-copies the JSON-shaped subset of a value: maps, slices, and
// scalars. Anything else is kept by reference; tool inputs are JSON-shaped
// by construction.
func copyArgs(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return copyArgs(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = copyValue(e)
		}
		return out
	default:
		return v
	}
}
