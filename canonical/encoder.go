package canonical

import (
	"encoding"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/puzpuzpuz/xsync/v3"
)

// ReservedKeyPrefix marks mapping keys that belong to ORM-style internal
// attributes. Text keys carrying this prefix are dropped during
// canonicalization; non-text keys pass through untouched.
const ReservedKeyPrefix = "_sa"

// Mapper is implemented by values that expose an explicit mapping view of
// themselves. It is consulted before any generic conversion.
type Mapper interface {
	AsMap() map[string]any
}

// Converter is an optional richer conversion tier consulted before the
// built-in registry. Convert reports whether it handled the value; the
// returned value is canonicalized recursively.
type Converter interface {
	Convert(v any) (any, bool, error)
}

// Encoder reduces values to canonical form. The zero value is not usable;
// construct instances with NewEncoder. An Encoder is safe for concurrent
// use.
type Encoder struct {
	converter Converter
	registry  map[reflect.Type]scalarRule

	// ruleCache memoizes registry lookups per concrete type so the
	// conversion strategy is selected once, not probed on every call.
	ruleCache *xsync.MapOf[reflect.Type, scalarRule]
}

// Option configures an Encoder.
type Option func(*Encoder)

// WithConverter installs a richer conversion tier that is consulted before
// the built-in registry. The selection happens here, once, at construction.
func WithConverter(c Converter) Option {
	return func(e *Encoder) {
		e.converter = c
	}
}

// WithTypeRule registers an additional scalar rule for a concrete type,
// overriding the built-in rule for that type if one exists.
func WithTypeRule(t reflect.Type, rule func(v any) (any, error)) Option {
	return func(e *Encoder) {
		e.registry[t] = rule
	}
}

// NewEncoder creates an Encoder with the built-in type registry.
func NewEncoder(opts ...Option) *Encoder {
	e := &Encoder{
		registry:  defaultRules(),
		ruleCache: xsync.NewMapOf[reflect.Type, scalarRule](),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// defaultEncoder backs the package-level Canonicalize and Digest helpers.
var defaultEncoder = NewEncoder()

// Canonicalize reduces v to canonical form using the default encoder.
func Canonicalize(v any) (any, error) {
	return defaultEncoder.Canonicalize(v)
}

// Canonicalize reduces v to a value composed only of nil, bool, int64,
// uint64, float64, string, []any, and map[string]any.
func (e *Encoder) Canonicalize(v any) (any, error) {
	if v == nil {
		return nil, nil
	}

	var failures []error

	// Registered concrete types take priority over every generic path.
	if rule := e.ruleFor(reflect.TypeOf(v)); rule != nil {
		scalar, err := rule(v)
		if err == nil {
			return e.Canonicalize(scalar)
		}
		failures = append(failures, err)
	}

	// Converter tier, when one was selected at construction.
	if e.converter != nil {
		mapped, handled, err := e.converter.Convert(v)
		if err != nil {
			failures = append(failures, err)
		} else if handled {
			return e.Canonicalize(mapped)
		}
	}

	// Values that expose an explicit mapping view.
	if m, ok := v.(Mapper); ok {
		return e.canonicalizeMapAny(anyKeyMap(m.AsMap()))
	}

	// Model-like values that bring their own structural encoding.
	if m, ok := v.(json.Marshaler); ok {
		out, err := e.fromJSONMarshaler(m)
		if err == nil {
			return out, nil
		}
		failures = append(failures, err)
	}
	if m, ok := v.(encoding.TextMarshaler); ok {
		raw, err := m.MarshalText()
		if err == nil {
			return string(raw), nil
		}
		failures = append(failures, err)
	}

	out, err := e.canonicalizeReflect(reflect.ValueOf(v))
	if err == nil {
		return out, nil
	}
	failures = append(failures, err)

	return nil, &SerializationError{
		TypeName: reflect.TypeOf(v).String(),
		Failures: failures,
	}
}

// ruleFor resolves the registry rule for a concrete type, caching the
// result (including the absence of a rule) per type.
func (e *Encoder) ruleFor(t reflect.Type) scalarRule {
	if rule, ok := e.ruleCache.Load(t); ok {
		return rule
	}
	rule := e.registry[t]
	e.ruleCache.Store(t, rule)
	return rule
}

// fromJSONMarshaler round-trips a value through its own JSON encoding and
// canonicalizes the decoded form.
func (e *Encoder) fromJSONMarshaler(m json.Marshaler) (any, error) {
	raw, err := m.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("MarshalJSON: %w", err)
	}
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	dec.UseNumber()
	var decoded any
	if err := dec.Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decoding MarshalJSON output: %w", err)
	}
	return e.Canonicalize(decoded)
}

// canonicalizeReflect dispatches on reflect kind: named scalars reduce to
// their underlying scalar, pointers and interfaces dereference, maps and
// sequences recurse, and structs become field mappings.
func (e *Encoder) canonicalizeReflect(rv reflect.Value) (any, error) {
	switch rv.Kind() {
	case reflect.Bool:
		return rv.Bool(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint(), nil
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	case reflect.String:
		return rv.String(), nil

	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil, nil
		}
		return e.Canonicalize(rv.Elem().Interface())

	case reflect.Map:
		if rv.IsNil() {
			return map[string]any{}, nil
		}
		return e.canonicalizeReflectMap(rv)

	case reflect.Slice:
		if rv.IsNil() {
			return []any{}, nil
		}
		return e.canonicalizeSequence(rv)

	case reflect.Array:
		return e.canonicalizeSequence(rv)

	case reflect.Func:
		if items, ok := drainIterator(rv); ok {
			return e.canonicalizeItems(items)
		}
		return nil, fmt.Errorf("func type %s is not an iterator", rv.Type())

	case reflect.Struct:
		return e.canonicalizeStruct(rv)

	default:
		return nil, fmt.Errorf("unsupported kind %s", rv.Kind())
	}
}

// canonicalizeSequence converts a slice or array to an ordered list,
// preserving iteration order.
func (e *Encoder) canonicalizeSequence(rv reflect.Value) ([]any, error) {
	out := make([]any, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		item, err := e.Canonicalize(rv.Index(i).Interface())
		if err != nil {
			return nil, err
		}
		out[i] = item
	}
	return out, nil
}

// canonicalizeItems converts already-collected sequence items.
func (e *Encoder) canonicalizeItems(items []any) ([]any, error) {
	out := make([]any, len(items))
	for i, item := range items {
		c, err := e.Canonicalize(item)
		if err != nil {
			return nil, err
		}
		out[i] = c
	}
	return out, nil
}

// canonicalizeReflectMap converts an arbitrary map, applying the reserved
// prefix filter to its keys.
func (e *Encoder) canonicalizeReflectMap(rv reflect.Value) (map[string]any, error) {
	entries := make([]mapEntry, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		entries = append(entries, mapEntry{key: iter.Key().Interface(), value: iter.Value().Interface()})
	}
	return e.canonicalizeMapAny(entries)
}

type mapEntry struct {
	key   any
	value any
}

func anyKeyMap(m map[string]any) []mapEntry {
	entries := make([]mapEntry, 0, len(m))
	for k, v := range m {
		entries = append(entries, mapEntry{key: k, value: v})
	}
	return entries
}

// canonicalizeMapAny converts map entries into a canonical text-keyed
// mapping. Text keys carrying the reserved prefix are dropped; all other
// keys are kept.
func (e *Encoder) canonicalizeMapAny(entries []mapEntry) (map[string]any, error) {
	out := make(map[string]any, len(entries))
	for _, entry := range entries {
		if !keepMapKey(entry.key, true) {
			continue
		}
		keyText, err := e.canonicalizeKey(entry.key)
		if err != nil {
			return nil, err
		}
		value, err := e.Canonicalize(entry.value)
		if err != nil {
			return nil, err
		}
		out[keyText] = value
	}
	return out, nil
}

// keepMapKey applies the reserved prefix filter. Non-text keys always
// pass; text keys pass when they lack the reserved prefix and were present
// in the source mapping.
func keepMapKey(key any, present bool) bool {
	text, isText := key.(string)
	return !isText || (!strings.HasPrefix(text, ReservedKeyPrefix) && present)
}

// canonicalizeKey reduces a mapping key to text. Non-text keys are
// canonicalized to a scalar and rendered with the canonical encoding, the
// same coercion a JSON object key would receive.
func (e *Encoder) canonicalizeKey(key any) (string, error) {
	c, err := e.Canonicalize(key)
	if err != nil {
		return "", err
	}
	if text, ok := c.(string); ok {
		return text, nil
	}
	switch c.(type) {
	case nil, bool, int64, uint64, float64:
		raw, err := appendCanonical(nil, c)
		if err != nil {
			return "", err
		}
		return string(raw), nil
	}
	return "", fmt.Errorf("map key of type %T does not reduce to a scalar", key)
}

// canonicalizeStruct converts exported struct fields to a mapping of field
// name to canonical value.
func (e *Encoder) canonicalizeStruct(rv reflect.Value) (map[string]any, error) {
	rt := rv.Type()
	out := make(map[string]any, rt.NumField())
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}
		fv := rv.Field(i)
		if !fv.CanInterface() {
			continue
		}
		value, err := e.Canonicalize(fv.Interface())
		if err != nil {
			return nil, err
		}
		out[field.Name] = value
	}
	return out, nil
}

// drainIterator collects the items yielded by an iter.Seq-shaped function,
// func(yield func(T) bool), so iterators canonicalize like the slice of
// their elements.
func drainIterator(rv reflect.Value) ([]any, bool) {
	t := rv.Type()
	if t.Kind() != reflect.Func || t.NumIn() != 1 || t.NumOut() != 0 {
		return nil, false
	}
	yieldType := t.In(0)
	if yieldType.Kind() != reflect.Func || yieldType.NumIn() != 1 ||
		yieldType.NumOut() != 1 || yieldType.Out(0).Kind() != reflect.Bool {
		return nil, false
	}
	if rv.IsNil() {
		return nil, false
	}

	var items []any
	yield := reflect.MakeFunc(yieldType, func(args []reflect.Value) []reflect.Value {
		items = append(items, args[0].Interface())
		return []reflect.Value{reflect.ValueOf(true)}
	})
	rv.Call([]reflect.Value{yield})
	return items, true
}
