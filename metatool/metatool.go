// Package metatool implements the four orchestration tools that make up
// the subsystem's public surface: search, describe, invoke, and execute.
//
// search ranks registered tools against natural-language queries. describe
// returns schemas and usage examples for named tools. invoke calls exactly
// one tool directly, behind three ordered gates (self-reference guard,
// registry lookup, schema validation). execute runs a script through the
// static validator and the sandboxed runner, with tool access routed back
// through the same guard.
//
// Contract:
//   - Concurrency: a Tools value is safe for concurrent use once built.
//   - Errors: Invoke and Execute always return well-formed outputs; only
//     malformed inputs (bounds violations) produce Go errors, tagged
//     ErrInput. Failures inside a call surface as typed error values in
//     the output, never as Go errors or panics.
package metatool

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jonwraymond/codecall/guard"
	"github.com/jonwraymond/codecall/index"
	"github.com/jonwraymond/codecall/policy"
	"github.com/jonwraymond/codecall/sandbox"
	"github.com/jonwraymond/codecall/tool"
)

// ErrConfiguration indicates an invalid Config.
var ErrConfiguration = errors.New("metatool configuration error")

// ErrInput indicates a malformed tool input (bounds violations).
var ErrInput = errors.New("metatool input error")

// Logger receives host-side diagnostics. Nil means silent.
type Logger interface {
	Logf(format string, args ...any)
}

// Config wires the orchestration tools to their collaborators.
type Config struct {
	// Registry enumerates the host's tools. Required.
	Registry tool.Registry

	// Invoker executes resolved tools. Required.
	Invoker tool.Invoker

	// Policy is the resolved sandbox policy governing execute. Zero value
	// means the secure preset's defaults.
	Policy policy.Options

	// Ranker selects the search ranking strategy. Nil means lexical TF-IDF.
	Ranker index.Ranker

	// Logger receives diagnostics. Optional.
	Logger Logger
}

func (c *Config) validate() error {
	if c.Registry == nil {
		return fmt.Errorf("%w: Registry is required", ErrConfiguration)
	}
	if c.Invoker == nil {
		return fmt.Errorf("%w: Invoker is required", ErrConfiguration)
	}
	return nil
}

func (c *Config) applyDefaults() error {
	if c.Policy.Preset == "" {
		opts, err := policy.Resolve(policy.PresetSecure, nil)
		if err != nil {
			return err
		}
		c.Policy = opts
	}
	return nil
}

// Tools is the built orchestration surface.
type Tools struct {
	cfg    Config
	idx    *index.Index
	runner *sandbox.Runner

	initOnce sync.Once

	mu     sync.RWMutex
	byName map[string]tool.Descriptor
}

// New builds the orchestration tools. The search index is built lazily on
// first use from the registry.
func New(cfg Config) (*Tools, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	return &Tools{
		cfg:    cfg,
		idx:    index.New(cfg.Ranker),
		runner: sandbox.NewRunner(cfg.Policy, cfg.Logger),
		byName: make(map[string]tool.Descriptor),
	}, nil
}

// ensureIndex builds the search index and the name lookup table from the
// registry on first use. Meta-tools are never indexed, so they can never
// surface from search.
func (t *Tools) ensureIndex() {
	t.initOnce.Do(func() {
		descs := t.cfg.Registry.GetTools(false)
		docs := make([]index.Document, 0, len(descs))
		byName := make(map[string]tool.Descriptor, len(descs))
		for _, d := range descs {
			if guard.IsBlockedSelfReference(d.Name) || guard.IsBlockedSelfReference(d.FullName) {
				continue
			}
			byName[d.Name] = d
			if d.FullName != "" && d.FullName != d.Name {
				byName[d.FullName] = d
			}
			docs = append(docs, index.Document{
				Name:        d.Name,
				AppID:       d.AppID(),
				Description: d.Description,
				Tags:        d.Metadata.Tags,
			})
		}
		t.idx.Initialize(docs)

		t.mu.Lock()
		t.byName = byName
		t.mu.Unlock()
	})
}

// lookup resolves a tool by exact Name or FullName. Self-referential names
// never resolve; the caller decides how to report them.
func (t *Tools) lookup(name string) (tool.Descriptor, bool) {
	t.ensureIndex()
	t.mu.RLock()
	defer t.mu.RUnlock()
	d, ok := t.byName[name]
	return d, ok
}

// callTool resolves and executes one tool on behalf of a script or a
// direct invocation, after the self-reference guard.
func (t *Tools) callTool(ctx context.Context, name string, input map[string]any, auth tool.AuthContext) (any, error) {
	if guard.IsBlockedSelfReference(name) {
		return nil, fmt.Errorf("tool %q cannot be called from here", name)
	}
	desc, ok := t.lookup(name)
	if !ok {
		return nil, fmt.Errorf("tool %q not found", name)
	}
	inst, err := t.cfg.Invoker.Create(ctx, desc, auth)
	if err != nil {
		return nil, err
	}
	return inst.Execute(ctx, input)
}

func (t *Tools) logf(format string, args ...any) {
	if t.cfg.Logger != nil {
		t.cfg.Logger.Logf(format, args...)
	}
}
