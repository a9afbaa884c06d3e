// Package tool defines the contracts between the CodeCall subsystem and the
// host application's tool infrastructure.
//
// Two collaborators are consumed through narrow interfaces: a [Registry]
// that enumerates registered tools as [Descriptor] snapshots, and an
// [Invoker] that turns a resolved descriptor into an executable instance
// under a caller-supplied authentication context. Everything else in this
// module (search, describe, invoke, execute) is built on these two.
package tool

import "context"

// AuthContext is the opaque authentication context forwarded unchanged into
// tool creation. This subsystem never inspects its contents.
type AuthContext = any

// Registry enumerates the tools registered with the host application.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Ownership: returned descriptors are caller-owned snapshots.
type Registry interface {
	// GetTools returns descriptors for all registered tools. When
	// includeHidden is true, tools marked hidden by the host are included.
	GetTools(includeHidden bool) []Descriptor
}

// Instance is a tool prepared for execution under a specific auth context.
type Instance interface {
	// Execute runs the tool with the given input and returns its result.
	Execute(ctx context.Context, input map[string]any) (any, error)
}

// Invoker creates executable tool instances from resolved descriptors.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: Create and Instance.Execute must honor cancellation/deadlines.
// - Errors: infrastructure failures are returned as errors; they are
//   sanitized before crossing the invoke/execute boundary.
type Invoker interface {
	// Create prepares the described tool for execution. The auth context is
	// forwarded unchanged.
	Create(ctx context.Context, desc Descriptor, auth AuthContext) (Instance, error)
}
