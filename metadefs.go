package codecall

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jonwraymond/codecall/guard"
	"github.com/jonwraymond/codecall/metatool"
)

// Meta-tool names, all under the guarded namespace.
const (
	MetaToolSearch   = guard.Namespace + ":search"
	MetaToolDescribe = guard.Namespace + ":describe"
	MetaToolInvoke   = guard.Namespace + ":invoke"
	MetaToolExecute  = guard.Namespace + ":execute"
)

// MetaTools returns the four orchestration tools as MCP tool definitions,
// ready for registration on the host's MCP server. Handlers bind to
// [CodeCall.SearchTools], [CodeCall.DescribeTools], [CodeCall.InvokeTool],
// and [CodeCall.ExecuteCode] respectively.
func (c *CodeCall) MetaTools() []mcp.Tool {
	return []mcp.Tool{
		{
			Name:        MetaToolSearch,
			Title:       "Search tools",
			Description: "Find registered tools matching natural-language queries, ranked by relevance.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"queries": map[string]any{
						"type":        "array",
						"items":       map[string]any{"type": "string"},
						"minItems":    1,
						"maxItems":    10,
						"description": "Natural-language queries, searched independently and merged.",
					},
					"filter": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"appIds": map[string]any{
								"type":  "array",
								"items": map[string]any{"type": "string"},
							},
						},
					},
					"excludeToolNames": map[string]any{
						"type":     "array",
						"items":    map[string]any{"type": "string"},
						"maxItems": 50,
					},
					"minRelevanceScore": map[string]any{
						"type":    "number",
						"minimum": 0,
						"maximum": 1,
						"default": metatool.DefaultMinRelevanceScore,
					},
					"topK": map[string]any{
						"type":    "integer",
						"minimum": 1,
						"maximum": 50,
					},
				},
				"required": []any{"queries"},
			},
		},
		{
			Name:        MetaToolDescribe,
			Title:       "Describe tools",
			Description: "Return JSON-Schema contracts and usage examples for the named tools.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"toolNames": map[string]any{
						"type":     "array",
						"items":    map[string]any{"type": "string"},
						"minItems": 1,
					},
				},
				"required": []any{"toolNames"},
			},
		},
		{
			Name:        MetaToolInvoke,
			Title:       "Invoke a tool",
			Description: "Call exactly one registered tool directly, with schema-validated input.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"tool":  map[string]any{"type": "string"},
					"input": map[string]any{"type": "object"},
				},
				"required": []any{"tool", "input"},
			},
		},
		{
			Name:        MetaToolExecute,
			Title:       "Execute a script",
			Description: "Run a short orchestration script in a hardened sandbox with callTool access.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"code":    map[string]any{"type": "string"},
					"context": map[string]any{"type": "object"},
				},
				"required": []any{"code"},
			},
		},
	}
}
