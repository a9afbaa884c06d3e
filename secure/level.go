package secure

import "github.com/jonwraymond/codecall/policy"

// Level selects how aggressively wrapped values block property access.
// Levels are cumulative: each level blocks everything the previous one does.
type Level int

const (
	// LevelPermissive wraps values but blocks nothing. Used for trusted
	// experimentation sandboxes only.
	LevelPermissive Level = iota

	// LevelStandard blocks prototype-walking properties.
	LevelStandard

	// LevelSecure additionally blocks the iterator-helper escape surface.
	LevelSecure

	// LevelStrict additionally blocks reflection helpers and high-resolution
	// timing properties.
	LevelStrict
)

// Property categories, composable by level.
var (
	prototypeProps = []string{
		"constructor", "__proto__", "prototype",
		"__defineGetter__", "__defineSetter__",
		"__lookupGetter__", "__lookupSetter__",
	}

	iteratorHelperProps = []string{
		"toArray", "forEach", "some", "every", "find",
		"reduce", "flatMap", "drop", "take",
	}

	reflectionProps = []string{
		"getOwnPropertyDescriptor", "getOwnPropertyDescriptors",
		"getOwnPropertyNames", "getOwnPropertySymbols",
		"getPrototypeOf", "setPrototypeOf",
		"defineProperty", "defineProperties",
		"freeze", "seal", "preventExtensions",
		"isFrozen", "isSealed", "isExtensible",
	}

	timingProps = []string{"hrtime", "timeOrigin"}
)

// BlockedNames returns the set of property names blocked at the given level.
// The returned map is freshly allocated.
func BlockedNames(level Level) map[string]struct{} {
	blocked := make(map[string]struct{})
	add := func(names []string) {
		for _, n := range names {
			blocked[n] = struct{}{}
		}
	}
	if level >= LevelStandard {
		add(prototypeProps)
	}
	if level >= LevelSecure {
		add(iteratorHelperProps)
	}
	if level >= LevelStrict {
		add(reflectionProps)
		add(timingProps)
	}
	return blocked
}

// LevelForPreset maps a policy preset to the proxy level used for values
// exposed into sandboxes running under that preset.
func LevelForPreset(p policy.Preset) Level {
	switch p {
	case policy.PresetLockedDown:
		return LevelStrict
	case policy.PresetSecure:
		return LevelSecure
	case policy.PresetBalanced:
		return LevelStandard
	case policy.PresetExperimental:
		return LevelPermissive
	}
	return LevelSecure
}
