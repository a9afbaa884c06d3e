package metatool

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/jonwraymond/codecall/guard"
	"github.com/jonwraymond/codecall/tool"
)

// maxExamples caps the usage examples returned per tool.
const maxExamples = 5

// DescribeInput is the describe tool's request.
type DescribeInput struct {
	ToolNames []string `json:"toolNames"`
}

// ToolDoc is the documentation returned for one resolved tool.
type ToolDoc struct {
	Name         string         `json:"name"`
	AppID        string         `json:"appId"`
	Description  string         `json:"description,omitempty"`
	InputSchema  map[string]any `json:"inputSchema,omitempty"`
	OutputSchema map[string]any `json:"outputSchema,omitempty"`

	// Examples are usage snippets: author-supplied examples first, then a
	// generated one when fewer than five exist.
	Examples []string `json:"examples,omitempty"`
}

// DescribeOutput is the describe tool's response.
type DescribeOutput struct {
	Tools []ToolDoc `json:"tools"`

	// NotFound lists names that did not resolve. Self-referential names are
	// reported here rather than in a distinct bucket, so their existence is
	// not confirmed.
	NotFound []string `json:"notFound,omitempty"`
}

// Describe resolves each name by exact Name or FullName and returns its
// schema and usage examples. Unresolvable and blocked names accumulate in
// NotFound.
func (t *Tools) Describe(input DescribeInput) (DescribeOutput, error) {
	if len(input.ToolNames) == 0 {
		return DescribeOutput{}, fmt.Errorf("%w: toolNames must not be empty", ErrInput)
	}

	var out DescribeOutput
	for _, name := range input.ToolNames {
		if guard.IsBlockedSelfReference(name) {
			out.NotFound = append(out.NotFound, name)
			continue
		}
		desc, ok := t.lookup(name)
		if !ok {
			out.NotFound = append(out.NotFound, name)
			continue
		}
		out.Tools = append(out.Tools, ToolDoc{
			Name:         desc.Name,
			AppID:        desc.AppID(),
			Description:  desc.Description,
			InputSchema:  desc.InputSchema,
			OutputSchema: desc.OutputSchema,
			Examples:     buildExamples(desc),
		})
	}
	return out, nil
}

// buildExamples returns up to maxExamples usage snippets: author-supplied
// examples first, backfilled with one generated example when there is room.
func buildExamples(desc tool.Descriptor) []string {
	var examples []string
	for _, ex := range desc.Metadata.Examples {
		if len(examples) == maxExamples {
			break
		}
		examples = append(examples, renderExample(desc.Name, ex))
	}
	if len(examples) < maxExamples {
		examples = append(examples, generatedExample(desc))
	}
	return examples
}

func renderExample(name string, ex tool.Example) string {
	call := fmt.Sprintf("await callTool(%q, %s)", name, renderArgs(ex.Args))
	if ex.Title != "" {
		return fmt.Sprintf("// %s\n%s", ex.Title, call)
	}
	return call
}

// generatedExample builds a heuristic usage example from the input schema:
// pagination-shaped schemas get a paged call, filter-shaped schemas get a
// query call, and anything else gets a minimal skeleton with placeholder
// values for required fields.
func generatedExample(desc tool.Descriptor) string {
	props := schemaProperties(desc.InputSchema)

	if hasAnyKey(props, "limit", "offset", "cursor") {
		args := map[string]any{}
		if _, ok := props["limit"]; ok {
			args["limit"] = 20
		}
		if _, ok := props["offset"]; ok {
			args["offset"] = 0
		}
		if _, ok := props["cursor"]; ok {
			args["cursor"] = ""
		}
		return fmt.Sprintf("// Page through results\nawait callTool(%q, %s)", desc.Name, renderArgs(args))
	}

	if hasAnyKey(props, "filter", "query") {
		args := map[string]any{}
		if _, ok := props["query"]; ok {
			args["query"] = "search text"
		}
		if _, ok := props["filter"]; ok {
			args["filter"] = map[string]any{}
		}
		return fmt.Sprintf("// Filtered lookup\nawait callTool(%q, %s)", desc.Name, renderArgs(args))
	}

	args := map[string]any{}
	for _, name := range requiredFields(desc.InputSchema) {
		args[name] = placeholder(props[name])
	}
	return fmt.Sprintf("await callTool(%q, %s)", desc.Name, renderArgs(args))
}

func schemaProperties(schema map[string]any) map[string]any {
	props, _ := schema["properties"].(map[string]any)
	return props
}

func requiredFields(schema map[string]any) []string {
	var names []string
	switch req := schema["required"].(type) {
	case []string:
		names = append(names, req...)
	case []any:
		for _, r := range req {
			if s, ok := r.(string); ok {
				names = append(names, s)
			}
		}
	}
	sort.Strings(names)
	return names
}

func hasAnyKey(m map[string]any, keys ...string) bool {
	for _, k := range keys {
		if _, ok := m[k]; ok {
			return true
		}
	}
	return false
}

// placeholder picks a representative value for a schema property.
func placeholder(prop any) any {
	p, _ := prop.(map[string]any)
	typ, _ := p["type"].(string)
	switch typ {
	case "number", "integer":
		return 0
	case "boolean":
		return false
	case "array":
		return []any{}
	case "object":
		return map[string]any{}
	default:
		return "example"
	}
}

// renderArgs renders an argument map as deterministic JSON with sorted
// keys, suitable for inclusion in a script snippet.
func renderArgs(args map[string]any) string {
	if len(args) == 0 {
		return "{}"
	}
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("{ ")
	for i, k := range keys {
		if i > 0 {
			b.WriteString(", ")
		}
		v, err := json.Marshal(args[k])
		if err != nil {
			v = []byte(`null`)
		}
		fmt.Fprintf(&b, "%s: %s", k, v)
	}
	b.WriteString(" }")
	return b.String()
}
