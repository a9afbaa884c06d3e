// Package sandbox executes untrusted scripts inside an isolated, hardened
// goja runtime.
//
// Every run gets a fresh runtime: nothing a script does can leak into the
// next run, and a runtime that was interrupted is simply discarded. The
// script body is wrapped in an async IIFE so top-level return and await
// work, hardened per the resolved policy (disabled identifiers read as
// undefined, intrinsic prototypes frozen), and bounded by a wall-clock
// interrupt. Host values crossing into the sandbox (tool results and the
// caller-supplied context object) are wrapped by the secure proxy layer
// at the level matching the policy preset.
//
// Contract:
//   - Concurrency: a Runner is safe for concurrent Run calls; each call
//     owns its runtime and all per-run state.
//   - Context: Run derives a context bounded by the policy timeout and
//     passes it to tool calls, so in-flight tools observe the same budget
//     as the script. A canceled or expired context interrupts the script
//     and the run reports StatusTimeout.
//   - Errors: Run never returns a Go error. Script throws, tool failures,
//     and internal faults all surface as tagged Result values.
package sandbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dop251/goja"
	"github.com/google/uuid"

	"github.com/jonwraymond/codecall/policy"
	"github.com/jonwraymond/codecall/secure"
)

// maxCallStackSize bounds JS recursion depth. Policy step budgets cover
// tool calls; this covers stack exhaustion.
const maxCallStackSize = 2048

// Logger receives host-side diagnostics. Nil means silent.
type Logger interface {
	Logf(format string, args ...any)
}

// ToolCaller executes one named tool with the given input and returns its
// result. Implementations are provided by the orchestration layer.
type ToolCaller func(ctx context.Context, name string, input map[string]any) (any, error)

// Environment is the host surface one run exposes to the script.
type Environment struct {
	// CallTool backs the script-visible callTool function. Nil means any
	// tool call from the script throws.
	CallTool ToolCaller

	// Context is exposed to the script as the read-only `context` global.
	Context map[string]any

	// Notify receives mcpNotify events emitted by the script, after they
	// are appended to the run's logs. Optional.
	Notify func(event string, payload map[string]any)
}

// Runner executes scripts under one resolved policy.
type Runner struct {
	opts   policy.Options
	level  secure.Level
	logger Logger
}

// NewRunner creates a runner for the resolved policy. The proxy level for
// values exposed into the sandbox follows the policy's preset.
func NewRunner(opts policy.Options, logger Logger) *Runner {
	return &Runner{
		opts:   opts,
		level:  secure.LevelForPreset(opts.Preset),
		logger: logger,
	}
}

// Run executes the script and returns its tagged result. See the package
// contract: it never returns a Go error.
func (r *Runner) Run(ctx context.Context, script string, env Environment) Result {
	start := time.Now()
	res := Result{ExecutionID: uuid.NewString()}

	// The wall-clock budget lives on the context so it also reaches
	// in-flight tool calls, where vm.Interrupt alone cannot.
	ctx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
	defer cancel()

	vm := goja.New()
	vm.SetMaxCallStackSize(maxCallStackSize)

	wrapper, err := secure.NewWrapper(vm, secure.Config{Level: r.level})
	if err != nil {
		return r.finish(res, internalError(err), start)
	}

	if err := r.bindHost(ctx, vm, wrapper, env, &res); err != nil {
		return r.finish(res, internalError(err), start)
	}
	if err := secure.Harden(vm, r.opts); err != nil {
		return r.finish(res, internalError(err), start)
	}

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			vm.Interrupt(ctx.Err())
		case <-done:
		}
	}()
	defer func() {
		close(done)
		vm.ClearInterrupt()
	}()

	v, err := vm.RunString("(async () => {\n" + script + "\n})();")
	if err != nil {
		// A failure after the deadline is always reported as a timeout,
		// whether the interrupt or a deadline-carrying tool error unwound
		// the script first.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return r.finish(res, interrupted(ctxErr), start)
		}
		return r.finish(res, classifyError(err), start)
	}
	return r.finish(res, settle(v), start)
}

// outcome is what one run resolved to before timing is stamped.
type outcome struct {
	status Status
	value  any
	errInf *ErrorInfo
}

func (r *Runner) finish(res Result, out outcome, start time.Time) Result {
	res.Status = out.status
	res.Value = out.value
	res.Error = out.errInf
	res.DurationMs = time.Since(start).Milliseconds()
	if r.logger != nil && res.Status != StatusOK {
		r.logger.Logf("sandbox run %s: %s: %s", res.ExecutionID, res.Status, res.Error.Message)
	}
	return res
}

func internalError(err error) outcome {
	return outcome{
		status: StatusRuntimeError,
		errInf: &ErrorInfo{Name: "InternalError", Message: err.Error()},
	}
}

func interrupted(cause any) outcome {
	return outcome{
		status: StatusTimeout,
		errInf: &ErrorInfo{Name: "TimeoutError", Message: fmt.Sprintf("execution interrupted: %v", cause)},
	}
}

// classifyError maps a RunString failure to a tagged outcome. Interrupts
// are timeouts; thrown values are runtime errors described in script terms.
func classifyError(err error) outcome {
	var intr *goja.InterruptedError
	if errors.As(err, &intr) {
		return interrupted(intr.Value())
	}
	var ex *goja.Exception
	if errors.As(err, &ex) {
		return outcome{status: StatusRuntimeError, errInf: errorInfo(ex.Value())}
	}
	return outcome{
		status: StatusRuntimeError,
		errInf: &ErrorInfo{Name: "InternalError", Message: err.Error()},
	}
}

// settle resolves the async IIFE's promise. goja drains the job queue
// before RunString returns, so a still-pending promise can never settle:
// the script awaited something with no resolution path.
func settle(v goja.Value) outcome {
	p, ok := v.Export().(*goja.Promise)
	if !ok {
		return outcome{status: StatusOK, value: export(v)}
	}
	switch p.State() {
	case goja.PromiseStateFulfilled:
		return outcome{status: StatusOK, value: export(p.Result())}
	case goja.PromiseStateRejected:
		return outcome{status: StatusRuntimeError, errInf: errorInfo(p.Result())}
	default:
		return outcome{
			status: StatusRuntimeError,
			errInf: &ErrorInfo{Name: "UnsettledPromise", Message: "script awaited a promise that can never settle"},
		}
	}
}

func export(v goja.Value) any {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil
	}
	return v.Export()
}

// errorInfo describes a thrown JS value. Error-shaped objects contribute
// name, message, and stack; anything else is stringified.
func errorInfo(v goja.Value) *ErrorInfo {
	if v == nil {
		return &ErrorInfo{Message: "unknown error"}
	}
	info := &ErrorInfo{Message: v.String()}
	if obj, ok := v.(*goja.Object); ok {
		if name := obj.Get("name"); name != nil && !goja.IsUndefined(name) {
			info.Name = name.String()
		}
		if msg := obj.Get("message"); msg != nil && !goja.IsUndefined(msg) {
			info.Message = msg.String()
		}
		if stack := obj.Get("stack"); stack != nil && !goja.IsUndefined(stack) {
			info.Stack = stack.String()
		}
	}
	return info
}

// bindHost installs the script-visible host surface: console (when the
// policy allows it), mcpLog, mcpNotify, the read-only context object, and
// callTool with tracing and the policy's tool-call budget.
func (r *Runner) bindHost(ctx context.Context, vm *goja.Runtime, wrapper *secure.Wrapper, env Environment, res *Result) error {
	if r.opts.AllowConsole {
		console := vm.NewObject()
		for _, level := range []string{"log", "info", "warn", "error", "debug"} {
			tag := level
			if err := console.Set(level, func(call goja.FunctionCall) goja.Value {
				res.Logs = append(res.Logs, "["+tag+"] "+renderArgs(call.Arguments))
				return goja.Undefined()
			}); err != nil {
				return err
			}
		}
		if err := vm.Set("console", console); err != nil {
			return err
		}
	}

	if err := vm.Set("mcpLog", func(call goja.FunctionCall) goja.Value {
		level := call.Argument(0).String()
		res.Logs = append(res.Logs, "[mcp:"+level+"] "+renderArgs(call.Arguments[min(1, len(call.Arguments)):]))
		return goja.Undefined()
	}); err != nil {
		return err
	}

	if err := vm.Set("mcpNotify", func(call goja.FunctionCall) goja.Value {
		event := call.Argument(0).String()
		res.Logs = append(res.Logs, "[notify] "+event)
		if env.Notify != nil {
			payload, _ := call.Argument(1).Export().(map[string]any)
			env.Notify(event, payload)
		}
		return goja.Undefined()
	}); err != nil {
		return err
	}

	if env.Context != nil {
		if err := vm.Set("context", wrapper.WrapGo(env.Context)); err != nil {
			return err
		}
	}

	budget := r.opts.MaxSteps
	return vm.Set("callTool", func(call goja.FunctionCall) goja.Value {
		if len(res.Calls) >= budget {
			panic(vm.NewGoError(fmt.Errorf("tool call budget of %d exceeded", budget)))
		}
		name := call.Argument(0).String()
		input, _ := call.Argument(1).Export().(map[string]any)

		rec := CallRecord{Tool: name, Args: copyArgs(input)}
		if env.CallTool == nil {
			rec.Error = "no tool transport configured"
			res.Calls = append(res.Calls, rec)
			panic(vm.NewGoError(errors.New("no tool transport configured")))
		}

		started := time.Now()
		out, err := env.CallTool(ctx, name, input)
		rec.DurationMs = time.Since(started).Milliseconds()
		if err != nil {
			rec.Error = err.Error()
			res.Calls = append(res.Calls, rec)
			panic(vm.NewGoError(err))
		}
		res.Calls = append(res.Calls, rec)
		return wrapper.WrapGo(out)
	})
}

// renderArgs formats console/mcpLog arguments: objects as JSON, everything
// else via its string conversion.
func renderArgs(args []goja.Value) string {
	parts := make([]string, 0, len(args))
	for _, a := range args {
		parts = append(parts, renderArg(a))
	}
	return strings.Join(parts, " ")
}

func renderArg(v goja.Value) string {
	if v == nil || goja.IsUndefined(v) {
		return "undefined"
	}
	if goja.IsNull(v) {
		return "null"
	}
	if obj, ok := v.(*goja.Object); ok {
		if b, err := json.Marshal(obj.Export()); err == nil {
			return string(b)
		}
	}
	return v.String()
}
