package codecall

import (
	"context"

	"github.com/jonwraymond/codecall/metatool"
	"github.com/jonwraymond/codecall/policy"
	"github.com/jonwraymond/codecall/tool"
	"github.com/jonwraymond/codecall/validate"
)

// CodeCall is the unified facade over policy resolution, static
// validation, sandboxed execution, tool search, and the four orchestration
// tools. It is safe for concurrent use.
type CodeCall struct {
	opts   Options
	policy policy.Options
	tools  *metatool.Tools
}

// New creates a CodeCall instance with the given options.
func New(opts Options) (*CodeCall, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	opts.applyDefaults()

	resolved, err := policy.Resolve(opts.Preset, opts.Overrides)
	if err != nil {
		return nil, err
	}

	tools, err := metatool.New(metatool.Config{
		Registry: opts.Registry,
		Invoker:  opts.Invoker,
		Policy:   resolved,
		Ranker:   opts.Ranker,
		Logger:   opts.Logger,
	})
	if err != nil {
		return nil, err
	}

	return &CodeCall{opts: opts, policy: resolved, tools: tools}, nil
}

// Policy returns the resolved sandbox policy.
func (c *CodeCall) Policy() policy.Options {
	return c.policy
}

// SearchTools ranks registered tools against natural-language queries.
func (c *CodeCall) SearchTools(input metatool.SearchInput) (metatool.SearchOutput, error) {
	return c.tools.Search(input)
}

// DescribeTools returns schemas and usage examples for the named tools.
func (c *CodeCall) DescribeTools(input metatool.DescribeInput) (metatool.DescribeOutput, error) {
	return c.tools.Describe(input)
}

// InvokeTool calls exactly one tool directly under the caller's auth
// context. The output is always well-formed; failures carry a typed error.
func (c *CodeCall) InvokeTool(ctx context.Context, input metatool.InvokeInput, auth tool.AuthContext) metatool.InvokeOutput {
	return c.tools.Invoke(ctx, input, auth)
}

// ExecuteCode validates and runs a script in the sandbox. Tool access from
// the script is routed through the self-reference guard under the caller's
// auth context.
func (c *CodeCall) ExecuteCode(ctx context.Context, input metatool.ExecuteInput, auth tool.AuthContext) metatool.ExecuteOutput {
	return c.tools.Execute(ctx, input, auth)
}

// ValidateScript statically checks a script against the resolved policy
// without running it.
func (c *CodeCall) ValidateScript(script string) validate.Result {
	return validate.Validate(script, c.policy)
}
