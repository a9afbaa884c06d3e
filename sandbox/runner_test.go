package sandbox

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jonwraymond/codecall/policy"
)

func resolved(t *testing.T, preset policy.Preset, ov *policy.Overrides) policy.Options {
	t.Helper()
	opts, err := policy.Resolve(preset, ov)
	if err != nil {
		t.Fatalf("resolve %s: %v", preset, err)
	}
	return opts
}

func run(t *testing.T, opts policy.Options, script string, env Environment) Result {
	t.Helper()
	return NewRunner(opts, nil).Run(context.Background(), script, env)
}

func TestRun_ReturnValue(t *testing.T) {
	res := run(t, resolved(t, policy.PresetSecure, nil), `return 1 + 2;`, Environment{})
	if res.Status != StatusOK {
		t.Fatalf("expected ok, got %s (%+v)", res.Status, res.Error)
	}
	if res.Value != int64(3) {
		t.Errorf("expected 3, got %v (%T)", res.Value, res.Value)
	}
	if res.ExecutionID == "" {
		t.Error("expected a non-empty execution id")
	}
	if res.DurationMs < 0 {
		t.Errorf("expected a non-negative duration, got %d", res.DurationMs)
	}
}

func TestRun_NoReturnIsOK(t *testing.T) {
	res := run(t, resolved(t, policy.PresetSecure, nil), `const a = 1;`, Environment{})
	if res.Status != StatusOK {
		t.Fatalf("expected ok, got %s (%+v)", res.Status, res.Error)
	}
	if res.Value != nil {
		t.Errorf("expected nil value, got %v", res.Value)
	}
}

func TestRun_LogCapture(t *testing.T) {
	script := `
console.log("a", 1);
console.warn("w");
console.error({id: 7});
mcpLog("info", "indexed");
mcpNotify("done");
return 0;
`
	res := run(t, resolved(t, policy.PresetSecure, nil), script, Environment{})
	if res.Status != StatusOK {
		t.Fatalf("expected ok, got %s (%+v)", res.Status, res.Error)
	}
	want := []string{
		"[log] a 1",
		"[warn] w",
		`[error] {"id":7}`,
		"[mcp:info] indexed",
		"[notify] done",
	}
	if len(res.Logs) != len(want) {
		t.Fatalf("expected %d log lines, got %d: %v", len(want), len(res.Logs), res.Logs)
	}
	for i, line := range want {
		if res.Logs[i] != line {
			t.Errorf("log[%d] = %q, want %q", i, res.Logs[i], line)
		}
	}
}

func TestRun_TimeoutContained(t *testing.T) {
	timeout := 100 * time.Millisecond
	opts := resolved(t, policy.PresetBalanced, &policy.Overrides{Timeout: &timeout})

	start := time.Now()
	res := run(t, opts, `while (true) {}`, Environment{})
	elapsed := time.Since(start)

	if res.Status != StatusTimeout {
		t.Fatalf("expected timeout, got %s (%+v)", res.Status, res.Error)
	}
	if res.Error == nil || res.Error.Name != "TimeoutError" {
		t.Errorf("expected a TimeoutError, got %+v", res.Error)
	}
	if elapsed > 2*time.Second {
		t.Errorf("run was not contained: took %v", elapsed)
	}
}

func TestRun_TimeoutCoversInFlightToolCalls(t *testing.T) {
	timeout := 100 * time.Millisecond
	opts := resolved(t, policy.PresetSecure, &policy.Overrides{Timeout: &timeout})
	env := Environment{
		CallTool: func(ctx context.Context, name string, input map[string]any) (any, error) {
			select {
			case <-time.After(5 * time.Second):
				return "late", nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		},
	}

	start := time.Now()
	res := run(t, opts, `await callTool("reports:build", {});`, env)
	elapsed := time.Since(start)

	if res.Status != StatusTimeout {
		t.Fatalf("expected timeout, got %s (%+v)", res.Status, res.Error)
	}
	if res.Error == nil || res.Error.Name != "TimeoutError" {
		t.Errorf("expected a TimeoutError, got %+v", res.Error)
	}
	if elapsed > 2*time.Second {
		t.Errorf("a blocked tool call escaped the budget: took %v", elapsed)
	}
}

func TestRun_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	res := NewRunner(resolved(t, policy.PresetBalanced, nil), nil).
		Run(ctx, `while (true) {}`, Environment{})
	if res.Status != StatusTimeout {
		t.Fatalf("expected timeout on cancellation, got %s (%+v)", res.Status, res.Error)
	}
}

func TestRun_ThrowBecomesRuntimeError(t *testing.T) {
	res := run(t, resolved(t, policy.PresetSecure, nil), `throw new TypeError("boom");`, Environment{})
	if res.Status != StatusRuntimeError {
		t.Fatalf("expected runtime_error, got %s", res.Status)
	}
	if res.Error.Name != "TypeError" || res.Error.Message != "boom" {
		t.Errorf("expected TypeError boom, got %+v", res.Error)
	}
	if res.Error.Stack == "" {
		t.Error("expected a stack trace for thrown Error values")
	}
}

func TestRun_ThrownNonError(t *testing.T) {
	res := run(t, resolved(t, policy.PresetSecure, nil), `throw "plain";`, Environment{})
	if res.Status != StatusRuntimeError {
		t.Fatalf("expected runtime_error, got %s", res.Status)
	}
	if res.Error.Message != "plain" {
		t.Errorf("expected stringified thrown value, got %+v", res.Error)
	}
}

func TestRun_CallToolResultUsable(t *testing.T) {
	env := Environment{
		CallTool: func(ctx context.Context, name string, input map[string]any) (any, error) {
			if name != "users:getById" {
				t.Errorf("unexpected tool %q", name)
			}
			if input["id"] != "42" {
				t.Errorf("unexpected input %v", input)
			}
			return map[string]any{"name": "Ada", "id": "42"}, nil
		},
	}
	script := `
const user = await callTool("users:getById", { id: "42" });
return user.name;
`
	res := run(t, resolved(t, policy.PresetSecure, nil), script, env)
	if res.Status != StatusOK {
		t.Fatalf("expected ok, got %s (%+v)", res.Status, res.Error)
	}
	if res.Value != "Ada" {
		t.Errorf("expected Ada, got %v", res.Value)
	}
	if len(res.Calls) != 1 || res.Calls[0].Tool != "users:getById" {
		t.Fatalf("expected one traced call, got %+v", res.Calls)
	}
	if res.Calls[0].Args["id"] != "42" {
		t.Errorf("expected traced args, got %+v", res.Calls[0].Args)
	}
}

func TestRun_CallToolResultIsProxied(t *testing.T) {
	env := Environment{
		CallTool: func(ctx context.Context, name string, input map[string]any) (any, error) {
			return map[string]any{"name": "Ada"}, nil
		},
	}
	script := `
const user = await callTool("users:getById", {});
return typeof user.constructor;
`
	res := run(t, resolved(t, policy.PresetSecure, nil), script, env)
	if res.Status != StatusOK {
		t.Fatalf("expected ok, got %s (%+v)", res.Status, res.Error)
	}
	if res.Value != "undefined" {
		t.Errorf("expected tool results to be proxied, got %v", res.Value)
	}
}

func TestRun_CallToolErrorUncaught(t *testing.T) {
	env := Environment{
		CallTool: func(ctx context.Context, name string, input map[string]any) (any, error) {
			return nil, errors.New("backend unavailable")
		},
	}
	res := run(t, resolved(t, policy.PresetSecure, nil), `await callTool("users:list", {});`, env)
	if res.Status != StatusRuntimeError {
		t.Fatalf("expected runtime_error, got %s", res.Status)
	}
	if !strings.Contains(res.Error.Message, "backend unavailable") {
		t.Errorf("expected the tool error in the message, got %+v", res.Error)
	}
	if len(res.Calls) != 1 || res.Calls[0].Error == "" {
		t.Errorf("expected the failed call to be traced, got %+v", res.Calls)
	}
}

func TestRun_CallToolErrorCatchable(t *testing.T) {
	env := Environment{
		CallTool: func(ctx context.Context, name string, input map[string]any) (any, error) {
			return nil, errors.New("backend unavailable")
		},
	}
	script := `
try {
	await callTool("users:list", {});
	return "unreachable";
} catch (e) {
	return "recovered";
}
`
	res := run(t, resolved(t, policy.PresetSecure, nil), script, env)
	if res.Status != StatusOK {
		t.Fatalf("expected ok, got %s (%+v)", res.Status, res.Error)
	}
	if res.Value != "recovered" {
		t.Errorf("expected the script to catch the tool error, got %v", res.Value)
	}
}

func TestRun_ToolCallBudget(t *testing.T) {
	budget := 2
	opts := resolved(t, policy.PresetSecure, &policy.Overrides{MaxSteps: &budget})
	calls := 0
	env := Environment{
		CallTool: func(ctx context.Context, name string, input map[string]any) (any, error) {
			calls++
			return calls, nil
		},
	}
	script := `
await callTool("a", {});
await callTool("b", {});
await callTool("c", {});
return "unreachable";
`
	res := run(t, opts, script, env)
	if res.Status != StatusRuntimeError {
		t.Fatalf("expected runtime_error, got %s", res.Status)
	}
	if !strings.Contains(res.Error.Message, "budget") {
		t.Errorf("expected a budget message, got %+v", res.Error)
	}
	if calls != 2 {
		t.Errorf("expected the transport to see exactly 2 calls, got %d", calls)
	}
	if len(res.Calls) != 2 {
		t.Errorf("expected 2 traced calls, got %d", len(res.Calls))
	}
}

func TestRun_ContextReadOnly(t *testing.T) {
	env := Environment{Context: map[string]any{"user": "u1"}}
	script := `
context.user = "evil";
return context.user;
`
	res := run(t, resolved(t, policy.PresetSecure, nil), script, env)
	if res.Status != StatusOK {
		t.Fatalf("expected ok, got %s (%+v)", res.Status, res.Error)
	}
	if res.Value != "u1" {
		t.Errorf("expected the context write to fail silently, got %v", res.Value)
	}
	if env.Context["user"] != "u1" {
		t.Errorf("host context must be untouched, got %v", env.Context["user"])
	}
}

func TestRun_RunsAreIsolated(t *testing.T) {
	runner := NewRunner(resolved(t, policy.PresetSecure, nil), nil)

	first := runner.Run(context.Background(), `globalLeak = 1; return globalLeak;`, Environment{})
	if first.Status != StatusOK {
		t.Fatalf("expected ok, got %s (%+v)", first.Status, first.Error)
	}

	second := runner.Run(context.Background(), `return typeof globalLeak;`, Environment{})
	if second.Status != StatusOK {
		t.Fatalf("expected ok, got %s (%+v)", second.Status, second.Error)
	}
	if second.Value != "undefined" {
		t.Errorf("expected no state to survive between runs, got %v", second.Value)
	}
	if first.ExecutionID == second.ExecutionID {
		t.Error("expected distinct execution ids per run")
	}
}

func TestRun_DisabledGlobalIsUndefined(t *testing.T) {
	res := run(t, resolved(t, policy.PresetSecure, nil), `return typeof fetch;`, Environment{})
	if res.Status != StatusOK {
		t.Fatalf("expected ok, got %s (%+v)", res.Status, res.Error)
	}
	if res.Value != "undefined" {
		t.Errorf("expected fetch to read as undefined, got %v", res.Value)
	}
}

func TestRun_ConsoleAbsentWhenDisallowed(t *testing.T) {
	res := run(t, resolved(t, policy.PresetLockedDown, nil), `console.log("x");`, Environment{})
	if res.Status != StatusRuntimeError {
		t.Fatalf("expected runtime_error, got %s", res.Status)
	}
}

func TestRun_UnsettledAwait(t *testing.T) {
	res := run(t, resolved(t, policy.PresetSecure, nil), `await new Promise(() => {});`, Environment{})
	if res.Status != StatusRuntimeError {
		t.Fatalf("expected runtime_error, got %s", res.Status)
	}
	if res.Error.Name != "UnsettledPromise" {
		t.Errorf("expected UnsettledPromise, got %+v", res.Error)
	}
}

func TestRun_ArgsSnapshotIsACopy(t *testing.T) {
	var received map[string]any
	env := Environment{
		CallTool: func(ctx context.Context, name string, input map[string]any) (any, error) {
			received = input
			return nil, nil
		},
	}
	res := run(t, resolved(t, policy.PresetSecure, nil), `await callTool("t", {nested: {a: 1}});`, env)
	if res.Status != StatusOK {
		t.Fatalf("expected ok, got %s (%+v)", res.Status, res.Error)
	}

	// Mutating what the transport received must not rewrite the trace.
	received["nested"].(map[string]any)["a"] = 99
	got := res.Calls[0].Args["nested"].(map[string]any)["a"]
	if fmt.Sprint(got) != "1" {
		t.Errorf("expected the traced args to be a deep copy, got %v", got)
	}
}
