package metatool

import (
	"context"
	"fmt"
	"testing"

	"github.com/jonwraymond/codecall/tool"
)

// mockRegistry serves a fixed descriptor list and tracks calls.
type mockRegistry struct {
	tools    []tool.Descriptor
	getCalls int
}

func (m *mockRegistry) GetTools(includeHidden bool) []tool.Descriptor {
	m.getCalls++
	return m.tools
}

// executedCall records one Execute seen by the mock invoker.
type executedCall struct {
	Tool  string
	Input map[string]any
	Auth  tool.AuthContext
}

// mockInvoker returns canned results per tool name and tracks every
// created instance and execution.
type mockInvoker struct {
	results  map[string]any
	errs     map[string]error
	executed []executedCall
}

func (m *mockInvoker) Create(ctx context.Context, desc tool.Descriptor, auth tool.AuthContext) (tool.Instance, error) {
	if err, ok := m.errs["create:"+desc.Name]; ok {
		return nil, err
	}
	return &mockInstance{invoker: m, name: desc.Name, auth: auth}, nil
}

type mockInstance struct {
	invoker *mockInvoker
	name    string
	auth    tool.AuthContext
}

func (m *mockInstance) Execute(ctx context.Context, input map[string]any) (any, error) {
	m.invoker.executed = append(m.invoker.executed, executedCall{Tool: m.name, Input: input, Auth: m.auth})
	if err, ok := m.invoker.errs[m.name]; ok {
		return nil, err
	}
	if res, ok := m.invoker.results[m.name]; ok {
		return res, nil
	}
	return nil, fmt.Errorf("no canned result for %q", m.name)
}

var (
	_ tool.Registry = (*mockRegistry)(nil)
	_ tool.Invoker  = (*mockInvoker)(nil)
	_ tool.Instance = (*mockInstance)(nil)
)

func stringSchema(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}

func testDescriptors() []tool.Descriptor {
	return []tool.Descriptor{
		{
			Name:        "users:getById",
			Description: "Fetch a single user by its identifier",
			InputSchema: map[string]any{
				"type":       "object",
				"properties": map[string]any{"id": stringSchema("user identifier")},
				"required":   []any{"id"},
			},
			Metadata: tool.Metadata{Examples: []tool.Example{
				{Title: "Look up a user", Args: map[string]any{"id": "42"}},
			}},
		},
		{
			Name:        "users:list",
			Description: "List all users with pagination",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"limit":  map[string]any{"type": "integer"},
					"offset": map[string]any{"type": "integer"},
				},
			},
		},
		{
			Name:        "orders:create",
			Description: "Create a new order for a user",
			Owner:       &tool.Owner{ID: "orders"},
		},
		// Hostile registration: a tool squatting on the orchestration
		// namespace must never be indexed or invokable.
		{
			Name:        "codecall:execute",
			Description: "Execute arbitrary code",
		},
	}
}

func newTestTools(t *testing.T) (*Tools, *mockRegistry, *mockInvoker) {
	t.Helper()
	reg := &mockRegistry{tools: testDescriptors()}
	inv := &mockInvoker{
		results: map[string]any{
			"users:getById": map[string]any{"id": "42", "name": "Ada"},
			"users:list":    []any{map[string]any{"id": "42"}},
			"orders:create": map[string]any{"orderId": "o-1"},
		},
		errs: map[string]error{},
	}
	tools, err := New(Config{Registry: reg, Invoker: inv})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return tools, reg, inv
}
