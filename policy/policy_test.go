package policy

import (
	"errors"
	"slices"
	"testing"
	"time"
)

func TestResolve_DefaultsToSecure(t *testing.T) {
	opts, err := Resolve("", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.Preset != PresetSecure {
		t.Errorf("expected preset %q, got %q", PresetSecure, opts.Preset)
	}
}

func TestResolve_UnknownPreset(t *testing.T) {
	_, err := Resolve("paranoid", nil)
	if err == nil {
		t.Fatal("expected error for unknown preset")
	}
	if !errors.Is(err, ErrPolicy) {
		t.Errorf("expected ErrPolicy, got %v", err)
	}
}

func TestResolve_PresetsStrictlyWiden(t *testing.T) {
	order := []Preset{PresetLockedDown, PresetSecure, PresetBalanced, PresetExperimental}

	var prev Options
	for i, p := range order {
		opts, err := Resolve(p, nil)
		if err != nil {
			t.Fatalf("Resolve(%q): %v", p, err)
		}
		if i > 0 {
			if opts.Timeout <= prev.Timeout {
				t.Errorf("%q timeout %v not wider than %q timeout %v", p, opts.Timeout, order[i-1], prev.Timeout)
			}
			if opts.MaxSteps <= prev.MaxSteps {
				t.Errorf("%q max steps %d not wider than %q max steps %d", p, opts.MaxSteps, order[i-1], prev.MaxSteps)
			}
			if len(opts.DisabledGlobals) > len(prev.DisabledGlobals) {
				t.Errorf("%q disables more globals (%d) than %q (%d)", p, len(opts.DisabledGlobals), order[i-1], len(prev.DisabledGlobals))
			}
		}
		prev = opts
	}
}

func TestResolve_LockedDownDisablesTimersAndGlobalThis(t *testing.T) {
	opts, err := Resolve(PresetLockedDown, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, name := range []string{"setTimeout", "setInterval", "globalThis"} {
		if !opts.Disallowed(name) {
			t.Errorf("expected locked_down to disallow %q", name)
		}
	}
	if opts.AllowLoops || opts.AllowConsole {
		t.Error("locked_down must not allow loops or console")
	}
}

func TestResolve_ExperimentalPermitsTimers(t *testing.T) {
	opts, err := Resolve(PresetExperimental, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, name := range []string{"setTimeout", "globalThis", "fetch"} {
		if opts.Disallowed(name) {
			t.Errorf("expected experimental to permit %q", name)
		}
	}
	if !opts.Disallowed("eval") {
		t.Error("eval must stay disabled in every preset")
	}
}

func TestResolve_OverridesShallowMerge(t *testing.T) {
	timeout := 250 * time.Millisecond
	loops := true
	opts, err := Resolve(PresetSecure, &Overrides{
		Timeout:    &timeout,
		AllowLoops: &loops,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.Timeout != timeout {
		t.Errorf("expected timeout %v, got %v", timeout, opts.Timeout)
	}
	if !opts.AllowLoops {
		t.Error("expected AllowLoops override to apply")
	}
	// Unset fields keep preset defaults.
	if !opts.AllowConsole {
		t.Error("expected AllowConsole to keep the secure default")
	}
	if !opts.Disallowed("process") {
		t.Error("expected disabled globals to keep the secure default")
	}
}

func TestResolve_ArraysReplacedWholesale(t *testing.T) {
	opts, err := Resolve(PresetSecure, &Overrides{
		DisabledGlobals: []string{"dangerZone"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(opts.DisabledGlobals, []string{"dangerZone"}) {
		t.Errorf("expected wholesale replacement, got %v", opts.DisabledGlobals)
	}
	// Builtins untouched by a globals-only override.
	if !opts.Disallowed("eval") {
		t.Error("expected disabled builtins to keep the secure default")
	}
}

func TestResolve_InvalidOverride(t *testing.T) {
	zero := time.Duration(0)
	_, err := Resolve(PresetSecure, &Overrides{Timeout: &zero})
	if !errors.Is(err, ErrPolicy) {
		t.Errorf("expected ErrPolicy for zero timeout, got %v", err)
	}

	steps := -1
	_, err = Resolve(PresetSecure, &Overrides{MaxSteps: &steps})
	if !errors.Is(err, ErrPolicy) {
		t.Errorf("expected ErrPolicy for negative max steps, got %v", err)
	}
}

func TestResolve_NoAliasingOfPresetState(t *testing.T) {
	a, _ := Resolve(PresetSecure, nil)
	a.DisabledGlobals[0] = "mutated"

	b, _ := Resolve(PresetSecure, nil)
	if b.DisabledGlobals[0] == "mutated" {
		t.Error("Resolve must return freshly allocated slices")
	}
}
