// Package policy resolves named sandbox security presets, plus optional
// per-field overrides, into concrete execution options.
//
// Four presets are defined with strictly increasing permissiveness:
// locked_down < secure < balanced < experimental. Each step widens the
// timeout and step budget, enables loops and console output, and shrinks
// the disabled-identifier sets. [PresetSecure] is the default.
package policy

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

// ErrPolicy indicates a misconfigured preset or override. It is fatal at
// configuration time, never a per-request failure.
var ErrPolicy = errors.New("policy error")

// Preset names a bundle of default sandbox policy settings.
type Preset string

// Known presets, least to most permissive.
const (
	PresetLockedDown   Preset = "locked_down"
	PresetSecure       Preset = "secure"
	PresetBalanced     Preset = "balanced"
	PresetExperimental Preset = "experimental"
)

// Options is the fully resolved sandbox configuration. It is built once per
// sandbox configuration and treated as immutable afterwards.
type Options struct {
	// Preset is the preset the options were resolved from.
	Preset Preset `json:"preset"`

	// Timeout is the wall-clock execution budget for one script run.
	Timeout time.Duration `json:"timeoutMs"`

	// AllowLoops permits for/while/do-while constructs in scripts.
	AllowLoops bool `json:"allowLoops"`

	// AllowConsole permits console.log/warn/error inside scripts.
	AllowConsole bool `json:"allowConsole"`

	// MaxSteps is the advisory execution-step ceiling. The runner enforces
	// it as the tool-call budget for a single run.
	MaxSteps int `json:"maxSteps"`

	// DisabledBuiltins are language builtins scripts may not reference
	// (eval, Function and friends).
	DisabledBuiltins []string `json:"disabledBuiltins"`

	// DisabledGlobals are host globals scripts may not reference
	// (process, fetch, timers and friends).
	DisabledGlobals []string `json:"disabledGlobals"`
}

// Disallowed reports whether the identifier appears in either disabled set.
func (o Options) Disallowed(name string) bool {
	return slices.Contains(o.DisabledBuiltins, name) || slices.Contains(o.DisabledGlobals, name)
}

// Overrides selectively replaces resolved option fields. Nil fields fall
// back to the preset's defaults, never to a different preset's values.
// The disabled-identifier slices are replaced wholesale when non-nil, not
// merged.
type Overrides struct {
	Timeout          *time.Duration
	AllowLoops       *bool
	AllowConsole     *bool
	MaxSteps         *int
	DisabledBuiltins []string
	DisabledGlobals  []string
}

// Constructor-escape vectors blocked in every preset. eval and Function are
// never safe to expose to untrusted code.
var baseBuiltins = []string{
	"eval",
	"Function",
	"AsyncFunction",
	"GeneratorFunction",
	"AsyncGeneratorFunction",
}

var reflectionBuiltins = []string{"Proxy", "Reflect"}

var gcBuiltins = []string{"WeakRef", "FinalizationRegistry"}

var hostGlobals = []string{"process", "require", "module", "Buffer"}

var networkGlobals = []string{"fetch", "XMLHttpRequest", "WebSocket"}

var timerGlobals = []string{
	"setTimeout", "setInterval", "setImmediate",
	"clearTimeout", "clearInterval",
}

// presetDefaults returns the default options for a preset, with freshly
// allocated slices so callers can never alias preset state.
func presetDefaults(p Preset) (Options, bool) {
	switch p {
	case PresetLockedDown:
		return Options{
			Preset:           p,
			Timeout:          time.Second,
			AllowLoops:       false,
			AllowConsole:     false,
			MaxSteps:         1_000,
			DisabledBuiltins: join(baseBuiltins, reflectionBuiltins, gcBuiltins),
			DisabledGlobals:  join(hostGlobals, networkGlobals, timerGlobals, []string{"globalThis"}),
		}, true
	case PresetSecure:
		return Options{
			Preset:           p,
			Timeout:          5 * time.Second,
			AllowLoops:       false,
			AllowConsole:     true,
			MaxSteps:         10_000,
			DisabledBuiltins: join(baseBuiltins, reflectionBuiltins),
			DisabledGlobals:  join(hostGlobals, networkGlobals, timerGlobals),
		}, true
	case PresetBalanced:
		return Options{
			Preset:           p,
			Timeout:          15 * time.Second,
			AllowLoops:       true,
			AllowConsole:     true,
			MaxSteps:         100_000,
			DisabledBuiltins: join(baseBuiltins),
			DisabledGlobals:  join(hostGlobals, networkGlobals, timerGlobals),
		}, true
	case PresetExperimental:
		return Options{
			Preset:           p,
			Timeout:          30 * time.Second,
			AllowLoops:       true,
			AllowConsole:     true,
			MaxSteps:         1_000_000,
			DisabledBuiltins: join([]string{"eval", "Function"}),
			DisabledGlobals:  join(hostGlobals),
		}, true
	}
	return Options{}, false
}

func join(groups ...[]string) []string {
	var out []string
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

// Resolve turns a preset name plus optional overrides into concrete options.
// An empty preset resolves to [PresetSecure]. Overrides apply shallow-merge
// semantics over the preset defaults. Returns ErrPolicy for unknown presets
// or overrides that would produce a non-positive timeout or step budget.
func Resolve(preset Preset, overrides *Overrides) (Options, error) {
	if preset == "" {
		preset = PresetSecure
	}

	opts, ok := presetDefaults(preset)
	if !ok {
		return Options{}, fmt.Errorf("%w: unknown preset %q", ErrPolicy, preset)
	}

	if overrides != nil {
		if overrides.Timeout != nil {
			opts.Timeout = *overrides.Timeout
		}
		if overrides.AllowLoops != nil {
			opts.AllowLoops = *overrides.AllowLoops
		}
		if overrides.AllowConsole != nil {
			opts.AllowConsole = *overrides.AllowConsole
		}
		if overrides.MaxSteps != nil {
			opts.MaxSteps = *overrides.MaxSteps
		}
		if overrides.DisabledBuiltins != nil {
			opts.DisabledBuiltins = slices.Clone(overrides.DisabledBuiltins)
		}
		if overrides.DisabledGlobals != nil {
			opts.DisabledGlobals = slices.Clone(overrides.DisabledGlobals)
		}
	}

	if opts.Timeout <= 0 {
		return Options{}, fmt.Errorf("%w: timeout must be positive, got %v", ErrPolicy, opts.Timeout)
	}
	if opts.MaxSteps <= 0 {
		return Options{}, fmt.Errorf("%w: max steps must be positive, got %d", ErrPolicy, opts.MaxSteps)
	}

	return opts, nil
}
