package tool

import (
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// UnknownAppID is the fallback application identifier used when a descriptor
// carries no ownership information at all.
const UnknownAppID = "unknown"

// Example is a usage example attached to a tool by its author.
type Example struct {
	// Title is a short human-readable label for the example.
	Title string `json:"title,omitempty"`

	// Description explains what the example demonstrates.
	Description string `json:"description,omitempty"`

	// Args is the argument map the example would pass to the tool.
	Args map[string]any `json:"args,omitempty"`
}

// Metadata carries the optional descriptive fields of a tool descriptor.
type Metadata struct {
	// AppID is the explicit owning-application identifier, when set by the
	// registering application. Takes precedence over all derived values.
	AppID string `json:"appId,omitempty"`

	// Source identifies where the tool definition originated (for example a
	// plugin or adapter name).
	Source string `json:"source,omitempty"`

	// Examples are author-supplied usage examples.
	Examples []Example `json:"examples,omitempty"`

	// Annotations are MCP tool annotations (read-only hints, destructive
	// hints, etc.) passed through unchanged.
	Annotations *mcp.ToolAnnotations `json:"annotations,omitempty"`

	// Tags are free-form labels used by the search index.
	Tags []string `json:"tags,omitempty"`
}

// Owner identifies the application that registered a tool.
type Owner struct {
	ID string `json:"id"`
}

// Descriptor describes a single registered tool as exposed by the host's
// tool registry. It is a read-only snapshot; this subsystem never mutates
// descriptors.
type Descriptor struct {
	// Name is the short tool name, conventionally "namespace:tool".
	Name string `json:"name"`

	// FullName is the globally unique tool name. May equal Name.
	FullName string `json:"fullName,omitempty"`

	// Description is the human-readable tool description.
	Description string `json:"description,omitempty"`

	// InputSchema is the JSON-Schema-like input contract.
	InputSchema map[string]any `json:"inputSchema,omitempty"`

	// OutputSchema is the JSON-Schema-like output contract, if declared.
	OutputSchema map[string]any `json:"outputSchema,omitempty"`

	// Metadata holds optional descriptive fields.
	Metadata Metadata `json:"metadata,omitempty"`

	// Owner identifies the registering application, if known.
	Owner *Owner `json:"owner,omitempty"`
}

// AppID derives the owning-application identifier for the descriptor.
// Resolution order, first match wins: explicit metadata app ID, metadata
// source, owner ID, the namespace prefix before the first ':' in Name,
// and finally UnknownAppID.
func (d Descriptor) AppID() string {
	if d.Metadata.AppID != "" {
		return d.Metadata.AppID
	}
	if d.Metadata.Source != "" {
		return d.Metadata.Source
	}
	if d.Owner != nil && d.Owner.ID != "" {
		return d.Owner.ID
	}
	if i := strings.Index(d.Name, ":"); i > 0 {
		return d.Name[:i]
	}
	return UnknownAppID
}

// Matches reports whether the descriptor is addressed by name, comparing
// against both Name and FullName exactly.
func (d Descriptor) Matches(name string) bool {
	return name != "" && (d.Name == name || d.FullName == name)
}
