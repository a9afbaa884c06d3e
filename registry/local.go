// Package registry provides an in-memory implementation of the tool
// registry and invoker contracts, for hosts that register tools as plain
// Go handlers and for tests.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/jonwraymond/codecall/tool"
)

// ErrToolNotFound is returned when an invocation names an unregistered
// tool.
var ErrToolNotFound = errors.New("registry: tool not found")

// HandlerFunc is the function signature for tool handlers. The auth
// context is the one the caller passed into invocation, forwarded
// unchanged.
type HandlerFunc func(ctx context.Context, input map[string]any, auth tool.AuthContext) (any, error)

// ToolDef defines a local tool with its handler.
type ToolDef struct {
	Descriptor tool.Descriptor
	Handler    HandlerFunc

	// Hidden excludes the tool from GetTools(false) enumeration.
	Hidden bool
}

// Local is an in-memory tool registry that also invokes its own tools.
// It implements both [tool.Registry] and [tool.Invoker]. Safe for
// concurrent use.
type Local struct {
	mu    sync.RWMutex
	tools map[string]ToolDef
}

var (
	_ tool.Registry = (*Local)(nil)
	_ tool.Invoker  = (*Local)(nil)
)

// NewLocal creates an empty local registry.
func NewLocal() *Local {
	return &Local{tools: make(map[string]ToolDef)}
}

// Register adds or replaces a tool definition, keyed by descriptor name.
func (l *Local) Register(def ToolDef) error {
	if def.Descriptor.Name == "" {
		return errors.New("registry: descriptor name is required")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tools[def.Descriptor.Name] = def
	return nil
}

// Unregister removes a tool by name.
func (l *Local) Unregister(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.tools, name)
}

// GetTools implements [tool.Registry]. Descriptors are returned in stable
// name order.
func (l *Local) GetTools(includeHidden bool) []tool.Descriptor {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]tool.Descriptor, 0, len(l.tools))
	for _, def := range l.tools {
		if def.Hidden && !includeHidden {
			continue
		}
		out = append(out, def.Descriptor)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Create implements [tool.Invoker].
func (l *Local) Create(ctx context.Context, desc tool.Descriptor, auth tool.AuthContext) (tool.Instance, error) {
	l.mu.RLock()
	def, ok := l.tools[desc.Name]
	l.mu.RUnlock()

	if !ok || def.Handler == nil {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, desc.Name)
	}
	return &instance{handler: def.Handler, auth: auth}, nil
}

type instance struct {
	handler HandlerFunc
	auth    tool.AuthContext
}

func (i *instance) Execute(ctx context.Context, input map[string]any) (any, error) {
	return i.handler(ctx, input, i.auth)
}
