// Package codecall provides a unified facade for the CodeCall sandboxed
// execution subsystem.
//
// CodeCall lets a model-driven caller discover and run tools safely. Four
// orchestration tools make up the public surface: search ranks registered
// tools against natural-language queries, describe returns JSON-Schema
// contracts and usage examples, invoke calls exactly one tool directly
// behind schema validation, and execute runs a short untrusted script in a
// hardened sandbox where tools are reachable only through the injected
// callTool binding.
//
// # Basic Usage
//
//	cc, err := codecall.New(codecall.Options{
//	    Registry: myRegistry, // enumerates the host's tools
//	    Invoker:  myInvoker,  // executes a resolved tool
//	    Preset:   policy.PresetSecure,
//	})
//
//	// Discover tools, then run one directly.
//	found, _ := cc.SearchTools(metatool.SearchInput{Queries: []string{"get user by id"}})
//	out := cc.InvokeTool(ctx, metatool.InvokeInput{
//	    Tool:  found.Results[0].ToolName,
//	    Input: map[string]any{"id": "42"},
//	}, authCtx)
//
// # Script Execution
//
// Scripts are validated statically against the resolved policy, then run
// inside an isolated interpreter with a wall-clock timeout:
//
//	res := cc.ExecuteCode(ctx, metatool.ExecuteInput{Code: `
//	    const user = await callTool("users:getById", { id: "42" });
//	    return user.name;
//	`}, authCtx)
//
// # MCP Integration
//
// [CodeCall.MetaTools] returns the four orchestration tools as
// [github.com/modelcontextprotocol/go-sdk/mcp.Tool] definitions, ready for
// registration on whatever MCP server the host application runs.
//
// # Integration
//
// The facade wires together:
//
//   - [github.com/jonwraymond/codecall/policy] for preset resolution
//   - [github.com/jonwraymond/codecall/validate] for static script checks
//   - [github.com/jonwraymond/codecall/secure] and
//     [github.com/jonwraymond/codecall/sandbox] for hardened execution
//   - [github.com/jonwraymond/codecall/index] for tool search
//   - [github.com/jonwraymond/codecall/metatool] for the four tools
package codecall
