package secure

import (
	"fmt"

	"github.com/dop251/goja"

	"github.com/jonwraymond/codecall/policy"
)

// safeGlobals is the standard library surface retained for sandboxes:
// enough to work with data, nothing that reaches code generation or
// reflection.
var safeGlobals = []string{
	"Math", "JSON", "Array", "Object", "String", "Number",
	"Boolean", "Date", "RegExp", "Error", "TypeError", "RangeError",
	"Promise", "parseInt", "parseFloat", "isNaN", "isFinite",
	"encodeURIComponent", "decodeURIComponent",
}

// SafeGlobalNames returns the names of the globals the hardened sandbox
// keeps available.
func SafeGlobalNames() []string {
	out := make([]string, len(safeGlobals))
	copy(out, safeGlobals)
	return out
}

// freezeScript neutralizes the Function-constructor escape and freezes the
// intrinsic prototypes so sandboxed code cannot pollute them. Individual
// failures are swallowed: a prototype that cannot be frozen is less
// dangerous than aborting the lockdown.
const freezeScript = `(function() {
	"use strict";
	try {
		var thrower = function() { throw new TypeError("Function constructor is disabled"); };
		Object.defineProperty(Function.prototype, "constructor", {
			value: thrower, writable: false, configurable: false
		});
	} catch (e) {}
	var roots = [Object, Array, String, Number, Boolean, Date, RegExp,
		Math, JSON, Error, TypeError, RangeError, EvalError, Promise];
	for (var i = 0; i < roots.length; i++) {
		try {
			if (roots[i] && roots[i].prototype) { Object.freeze(roots[i].prototype); }
			Object.freeze(roots[i]);
		} catch (e) {}
	}
})();`

// Harden locks a runtime down for untrusted execution: every identifier in
// the policy's disabled sets reads as undefined, the Function constructor
// is neutralized (including the prototype-walk route), and the safe
// standard library's intrinsic prototypes are frozen against pollution.
// Must run before any untrusted code enters the runtime.
func Harden(rt *goja.Runtime, opts policy.Options) error {
	for _, name := range opts.DisabledBuiltins {
		if err := rt.Set(name, goja.Undefined()); err != nil {
			return fmt.Errorf("%w: disabling builtin %q: %v", ErrWrapper, name, err)
		}
	}
	for _, name := range opts.DisabledGlobals {
		if err := rt.Set(name, goja.Undefined()); err != nil {
			return fmt.Errorf("%w: disabling global %q: %v", ErrWrapper, name, err)
		}
	}
	if _, err := rt.RunString(freezeScript); err != nil {
		return fmt.Errorf("%w: freezing intrinsics: %v", ErrWrapper, err)
	}
	return nil
}
