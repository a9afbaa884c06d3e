package codecall

import (
	"errors"

	"github.com/jonwraymond/codecall/index"
	"github.com/jonwraymond/codecall/policy"
	"github.com/jonwraymond/codecall/tool"
)

// Errors returned by Options validation.
var (
	ErrRegistryRequired = errors.New("codecall: Registry is required")
	ErrInvokerRequired  = errors.New("codecall: Invoker is required")
)

// Options configures a CodeCall instance.
type Options struct {
	// Registry enumerates the host application's tools.
	// Required.
	Registry tool.Registry

	// Invoker executes resolved tools under a caller's auth context.
	// Required.
	Invoker tool.Invoker

	// Preset selects the sandbox security policy.
	// Default: policy.PresetSecure.
	Preset policy.Preset

	// Overrides selectively replaces resolved policy fields.
	// Optional.
	Overrides *policy.Overrides

	// Ranker selects the search ranking strategy.
	// Default: lexical TF-IDF.
	Ranker index.Ranker

	// Embedder, when set and Ranker is nil, selects embedding-based
	// ranking backed by this embedder.
	Embedder index.Embedder

	// Logger receives host-side diagnostics.
	// Optional; nil means silent.
	Logger Logger
}

// validate checks that required fields are set.
func (o *Options) validate() error {
	if o.Registry == nil {
		return ErrRegistryRequired
	}
	if o.Invoker == nil {
		return ErrInvokerRequired
	}
	return nil
}

// applyDefaults sets default values for unset optional fields.
func (o *Options) applyDefaults() {
	if o.Preset == "" {
		o.Preset = policy.PresetSecure
	}
	if o.Ranker == nil && o.Embedder != nil {
		o.Ranker = index.NewEmbeddingRanker(o.Embedder)
	}
}
