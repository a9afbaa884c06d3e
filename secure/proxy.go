// Package secure wraps host values before they become reachable from
// sandboxed code.
//
// Wrapping is recursive and lazy: property reads and call results are
// wrapped on access, not eagerly over the whole object graph. Dangerous
// property names (prototype walking, iterator helpers, reflection, timing)
// read as undefined, with one exception required for behavioral fidelity:
// a non-configurable, non-writable own property must report its true value,
// so those pass through unwrapped. Opaque builtins whose methods depend on
// internal slots (Map, Set, typed arrays, generators) are excluded from
// wrapping entirely; methods reached through a wrapper are invoked with the
// original target as receiver so internal-slot checks keep working.
//
// A wrapper memoizes proxies per target object, so the same (target,
// wrapper) pair always yields the same proxy and identity comparisons
// inside sandboxed code remain stable. Recursion stops at a configurable
// depth (default 10); past it the raw value is returned, an accepted and
// documented residual risk that bounds proxy-chain cost.
package secure

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dop251/goja"
)

// DefaultMaxDepth bounds recursive wrapping.
const DefaultMaxDepth = 10

// ErrWrapper indicates the wrapper could not be constructed.
var ErrWrapper = errors.New("secure wrapper error")

// Config controls a Wrapper.
type Config struct {
	// Level selects the blocked-property categories.
	Level Level

	// MaxDepth bounds recursive wrapping. Zero means DefaultMaxDepth.
	MaxDepth int
}

// Wrapper wraps values for one goja runtime under one configuration.
// It is not safe for concurrent use; each sandbox run owns its runtime
// and its wrapper.
type Wrapper struct {
	rt         *goja.Runtime
	cfg        Config
	blocked    map[string]struct{}
	cache      map[*goja.Object]goja.Value
	getDesc    goja.Callable
	arrayProto *goja.Object
}

// NewWrapper creates a wrapper bound to the runtime. It captures
// Object.getOwnPropertyDescriptor before any lockdown can remove or
// replace it, so descriptor checks stay trustworthy.
func NewWrapper(rt *goja.Runtime, cfg Config) (*Wrapper, error) {
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = DefaultMaxDepth
	}

	descVal, err := rt.RunString("Object.getOwnPropertyDescriptor")
	if err != nil {
		return nil, fmt.Errorf("%w: capturing descriptor helper: %v", ErrWrapper, err)
	}
	getDesc, ok := goja.AssertFunction(descVal)
	if !ok {
		return nil, fmt.Errorf("%w: Object.getOwnPropertyDescriptor is not callable", ErrWrapper)
	}

	return &Wrapper{
		rt:      rt,
		cfg:     cfg,
		blocked: BlockedNames(cfg.Level),
		cache:   make(map[*goja.Object]goja.Value),
		getDesc: getDesc,
	}, nil
}

// Blocked reports whether the property name is denied at this wrapper's
// level.
func (w *Wrapper) Blocked(name string) bool {
	_, ok := w.blocked[name]
	return ok
}

// Wrap returns a sandbox-safe view of the value. Primitives pass through
// unchanged; objects and functions are proxied per the package rules.
func (w *Wrapper) Wrap(v goja.Value) goja.Value {
	return w.wrap(v, 0)
}

// WrapGo converts a plain Go value and wraps the result. Convenience for
// host bindings that produce map/slice shaped data.
func (w *Wrapper) WrapGo(v any) goja.Value {
	return w.wrap(w.rt.ToValue(v), 0)
}

func (w *Wrapper) wrap(v goja.Value, depth int) goja.Value {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return v
	}
	obj, ok := v.(*goja.Object)
	if !ok {
		// Primitive: string, number, bool, symbol.
		return v
	}
	if depth >= w.cfg.MaxDepth {
		return v
	}
	if cached, ok := w.cache[obj]; ok {
		return cached
	}

	var wrapped goja.Value
	switch {
	case isOpaqueClass(obj.ClassName()):
		// Internal-slot builtins break when accessed through a proxy.
		wrapped = v
	case isCallable(obj):
		wrapped = w.wrapFunction(obj, goja.Undefined(), depth)
	case obj.ClassName() == "Array":
		arr := w.rt.NewDynamicArray(&proxySlice{w: w, target: obj, depth: depth})
		// Detach Array.prototype: lookups there would serve constructor and
		// every blocked helper. The replacement keeps iteration and the
		// read-only methods the level permits.
		if proto, err := w.safeArrayProto(); err == nil {
			_ = arr.SetPrototype(proto)
		} else {
			_ = arr.SetPrototype(nil)
		}
		wrapped = arr
	default:
		proxy := w.rt.NewDynamicObject(&proxyObject{
			w:       w,
			target:  obj,
			depth:   depth,
			methods: make(map[string]goja.Value),
		})
		// Detach the prototype chain: lookups never leave the handler and
		// Object.getPrototypeOf reports null.
		_ = proxy.SetPrototype(nil)
		wrapped = proxy
	}

	w.cache[obj] = wrapped
	return wrapped
}

// wrapFunction returns a native function that invokes the target with the
// given receiver and transitively wraps the return value, so results of
// host calls are blocked the same way their parents are.
func (w *Wrapper) wrapFunction(fn *goja.Object, this goja.Value, depth int) goja.Value {
	callable, ok := goja.AssertFunction(fn)
	if !ok {
		return fn
	}
	return w.rt.ToValue(func(call goja.FunctionCall) goja.Value {
		res, err := callable(this, call.Arguments...)
		if err != nil {
			w.rethrow(err)
		}
		return w.wrap(res, depth+1)
	})
}

// Read-only Array.prototype methods retained on wrapped arrays, subject to
// the level's deny list. Mutators are excluded; wrapped arrays refuse
// writes anyway.
var safeArrayMethods = []string{
	"at", "concat", "entries", "every", "filter", "find", "findIndex",
	"findLast", "findLastIndex", "flat", "flatMap", "forEach", "includes",
	"indexOf", "join", "keys", "lastIndexOf", "map", "reduce",
	"reduceRight", "slice", "some", "toString", "values",
}

// safeArrayProto builds the prototype shared by this wrapper's arrays: a
// null-prototype object carrying the array iterator and the permitted
// read-only methods, so property lookups can never reach the real
// Array.prototype or its constructor.
func (w *Wrapper) safeArrayProto() (*goja.Object, error) {
	if w.arrayProto != nil {
		return w.arrayProto, nil
	}

	arrCtor := w.rt.Get("Array")
	if arrCtor == nil {
		return nil, fmt.Errorf("%w: Array is not defined", ErrWrapper)
	}
	real, ok := arrCtor.ToObject(w.rt).Get("prototype").(*goja.Object)
	if !ok {
		return nil, fmt.Errorf("%w: Array.prototype is not an object", ErrWrapper)
	}

	proto := w.rt.NewObject()
	if err := proto.SetPrototype(nil); err != nil {
		return nil, err
	}
	if it := real.GetSymbol(goja.SymIterator); it != nil {
		if err := proto.SetSymbol(goja.SymIterator, it); err != nil {
			return nil, err
		}
	}
	for _, name := range safeArrayMethods {
		if w.Blocked(name) {
			continue
		}
		if m := real.Get(name); m != nil {
			if err := proto.Set(name, m); err != nil {
				return nil, err
			}
		}
	}

	w.arrayProto = proto
	return proto, nil
}

// rethrow surfaces an error from an underlying call as a JS exception.
func (w *Wrapper) rethrow(err error) {
	var ex *goja.Exception
	if errors.As(err, &ex) {
		panic(ex.Value())
	}
	panic(w.rt.NewGoError(err))
}

// passThrough reports whether a blocked property must still report its true
// value: a non-configurable, non-writable own data property cannot be
// masked without lying about the object's invariants.
func (w *Wrapper) passThrough(target *goja.Object, key string) (goja.Value, bool) {
	descVal, err := w.getDesc(goja.Undefined(), target, w.rt.ToValue(key))
	if err != nil || descVal == nil || goja.IsUndefined(descVal) {
		return nil, false
	}
	desc, ok := descVal.(*goja.Object)
	if !ok {
		return nil, false
	}
	writable := desc.Get("writable")
	configurable := desc.Get("configurable")
	if writable == nil || configurable == nil {
		return nil, false
	}
	// Accessor properties have no writable attribute and can be masked.
	if goja.IsUndefined(writable) {
		return nil, false
	}
	if !writable.ToBoolean() && !configurable.ToBoolean() {
		return target.Get(key), true
	}
	return nil, false
}

// proxyObject implements goja.DynamicObject over a wrapped target.
type proxyObject struct {
	w       *Wrapper
	target  *goja.Object
	depth   int
	methods map[string]goja.Value
}

func (p *proxyObject) Get(key string) goja.Value {
	if p.w.Blocked(key) {
		if v, ok := p.w.passThrough(p.target, key); ok {
			return v
		}
		return goja.Undefined()
	}

	val := p.target.Get(key)
	if val == nil {
		return goja.Undefined()
	}

	if obj, ok := val.(*goja.Object); ok && isCallable(obj) {
		// Bind to the original target so internal-slot checks (Promise.then
		// and friends) see the real receiver. Memoized for identity
		// stability across repeated reads.
		if m, ok := p.methods[key]; ok {
			return m
		}
		m := p.w.wrapFunction(obj, p.target, p.depth)
		p.methods[key] = m
		return m
	}

	return p.w.wrap(val, p.depth+1)
}

// Set refuses all writes. Wrapped host values are read-only views; in
// non-strict sandbox code the write fails silently.
func (p *proxyObject) Set(key string, val goja.Value) bool {
	return false
}

func (p *proxyObject) Has(key string) bool {
	if p.w.Blocked(key) {
		return false
	}
	return p.target.Get(key) != nil
}

func (p *proxyObject) Delete(key string) bool {
	return false
}

func (p *proxyObject) Keys() []string {
	keys := p.target.Keys()
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if !p.w.Blocked(k) {
			out = append(out, k)
		}
	}
	return out
}

// proxySlice implements goja.DynamicArray over a wrapped array so that
// indexing, length, and iteration keep working while elements are wrapped
// transitively.
type proxySlice struct {
	w      *Wrapper
	target *goja.Object
	depth  int
}

func (p *proxySlice) Len() int {
	return int(p.target.Get("length").ToInteger())
}

func (p *proxySlice) Get(idx int) goja.Value {
	val := p.target.Get(fmt.Sprintf("%d", idx))
	if val == nil {
		return goja.Undefined()
	}
	return p.w.wrap(val, p.depth+1)
}

func (p *proxySlice) Set(idx int, val goja.Value) bool {
	return false
}

func (p *proxySlice) SetLen(n int) bool {
	return false
}

func isCallable(obj *goja.Object) bool {
	_, ok := goja.AssertFunction(obj)
	return ok
}

// Builtins whose behavior depends on internal slots and must not be
// proxied. Typed arrays are matched by class-name suffix.
var opaqueClasses = map[string]struct{}{
	"Map": {}, "Set": {}, "WeakMap": {}, "WeakSet": {},
	"ArrayBuffer": {}, "SharedArrayBuffer": {}, "DataView": {},
	"Generator": {}, "AsyncGenerator": {}, "Symbol": {},
}

func isOpaqueClass(class string) bool {
	if _, ok := opaqueClasses[class]; ok {
		return true
	}
	return class != "Array" && strings.HasSuffix(class, "Array")
}
