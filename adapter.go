package mustache

import (
	"reflect"
	"strconv"
)

type stringer interface {
	String() string
}

var stringerType = reflect.TypeOf((*stringer)(nil)).Elem()

// fieldKind discriminates the outcome of resolving one path component
// against a single adapter.
type fieldKind int

const (
	fieldFound fieldKind = iota
	fieldLambda
	fieldNotFound
	fieldChainBroken
)

// fieldResult is the uniform outcome of reflectAdapter.getField.
type fieldResult struct {
	kind    fieldKind
	adapter reflectAdapter
	lambda  reflect.Value
}

// iterKind discriminates the outcome of reflectAdapter.iterator.
type iterKind int

const (
	iterField iterKind = iota
	iterLambda
	iterNotFound
)

type iterResult struct {
	kind   iterKind
	items  []reflectAdapter
	lambda reflect.Value
}

// reflectAdapter is the sole concrete Data Adapter: it wraps one
// already-unwrapped reflect.Value and exposes the uniform capability
// surface spec'd for the rendering core (truthiness, field lookup,
// iteration, interpolation, lambda detection) by switching on
// reflect.Kind at each call: one adapter type, dispatched by kind, rather
// than one interface implementation per caller type.
type reflectAdapter struct {
	v reflect.Value
}

// newAdapter wraps an arbitrary Go value, recursively unwrapping pointers
// and interfaces until it reaches a concrete value or an absent (invalid)
// one, so a doubly-wrapped optional or pointer behaves like its
// underlying value when present, and like an absent value otherwise.
func newAdapter(value interface{}) reflectAdapter {
	return reflectAdapter{v: unwrap(reflect.ValueOf(value))}
}

func newAdapterValue(v reflect.Value) reflectAdapter {
	return reflectAdapter{v: unwrap(v)}
}

func unwrap(v reflect.Value) reflect.Value {
	for v.IsValid() {
		switch v.Kind() {
		case reflect.Ptr, reflect.Interface:
			if v.IsNil() {
				return reflect.Value{}
			}
			v = v.Elem()
		default:
			return v
		}
	}
	return v
}

func isLambdaValue(v reflect.Value) bool {
	return v.IsValid() && v.Kind() == reflect.Func && v.Type() == lambdaFnType
}

// truthy implements the §3 truthy/falsey table.
func (a reflectAdapter) truthy() bool {
	if !a.v.IsValid() {
		return false
	}
	switch a.v.Kind() {
	case reflect.Bool:
		return a.v.Bool()
	case reflect.String:
		return a.v.Len() > 0
	case reflect.Slice, reflect.Array, reflect.Map:
		return a.v.Len() > 0
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return a.v.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return a.v.Uint() != 0
	case reflect.Float32, reflect.Float64:
		return a.v.Float() != 0
	case reflect.Func:
		return true // lambdas are always truthy
	default:
		return true // structs, and anything else present, are truthy
	}
}

// stringValue renders the adapter's scalar textual form per the §4.1
// numeric-formatting policy. It is only meaningful when the adapter wraps
// a scalar or string; callers must check the kind first.
func (a reflectAdapter) stringValue() string {
	if !a.v.IsValid() {
		return ""
	}
	if a.v.Type().Implements(stringerType) {
		return a.v.Interface().(stringer).String()
	}
	switch a.v.Kind() {
	case reflect.String:
		return a.v.String()
	case reflect.Bool:
		return strconv.FormatBool(a.v.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(a.v.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(a.v.Uint(), 10)
	case reflect.Float32:
		return formatFloat(a.v.Float(), 32)
	case reflect.Float64:
		return formatFloat(a.v.Float(), 64)
	default:
		return ""
	}
}

// formatFloat picks the shortest round-trip representation using 'g'
// formatting, with no further adjustment. A non-integral value written in
// plain notation keeps at least one digit after the point; small and large
// magnitudes are written in exponent notation, where a one-digit mantissa
// carries no point at all (0.0000001 renders as "1e-07").
func formatFloat(f float64, bits int) string {
	return strconv.FormatFloat(f, 'g', -1, bits)
}

// isScalarKind reports whether a.v's kind is written verbatim by
// interpolate (as opposed to producing ChainBroken).
func isScalarKind(k reflect.Kind) bool {
	switch k {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}

// interpOutcome is the result of reflectAdapter.interpolate.
type interpOutcome int

const (
	interpWritten interpOutcome = iota
	interpLambda
	interpChainBroken
)

// interpolate writes the adapter's textual form to sink, respecting
// escape. Scalars and strings produce interpWritten (absent values write
// nothing but still count as Written, per §4.1). Records and maps produce
// interpChainBroken: interpolating a structured value yields empty output
// and must not fall back to a parent context. Sequences stringify as empty but are
// still "written". Funcs matching the lambda signature produce
// interpLambda so the caller can invoke it.
func (a reflectAdapter) interpolate(sink outputSink, escape EscapeMode) (interpOutcome, error) {
	if !a.v.IsValid() {
		return interpWritten, nil
	}
	if isLambdaValue(a.v) {
		return interpLambda, nil
	}
	switch {
	case isScalarKind(a.v.Kind()):
		s := a.stringValue()
		if s == "" {
			return interpWritten, nil
		}
		var err error
		if escape == Escaped {
			err = writeHTMLEscaped(sink, s)
		} else {
			err = sink.writeAll([]byte(s))
		}
		return interpWritten, err
	case a.v.Kind() == reflect.Slice, a.v.Kind() == reflect.Array:
		return interpWritten, nil
	case a.v.Kind() == reflect.Map, a.v.Kind() == reflect.Struct:
		return interpChainBroken, nil
	default:
		return interpChainBroken, nil
	}
}

// getField resolves a single dotted-path component against the adapter,
// implementing §4.1's FieldResolution taxonomy. Exported niladic methods
// (Func1() string, Func2() (T, error)) are treated as computed fields, so
// callers can expose derived data without restructuring their Go types. A
// method of the second form that returns a non-nil error resolves as a
// broken chain.
func (a reflectAdapter) getField(name string) fieldResult {
	if !a.v.IsValid() {
		return fieldResult{kind: fieldChainBroken}
	}

	if name == "." {
		return fieldResult{kind: fieldFound, adapter: a}
	}

	if m, ok := findNiladicMethod(a.v, name); ok {
		results := m.Call(nil)
		if len(results) == 2 && !results[1].IsNil() {
			return fieldResult{kind: fieldChainBroken}
		}
		result := results[0]
		if isLambdaValue(result) {
			return fieldResult{kind: fieldLambda, lambda: result}
		}
		return fieldResult{kind: fieldFound, adapter: newAdapterValue(result)}
	}

	switch a.v.Kind() {
	case reflect.Struct:
		field := a.v.FieldByName(name)
		if !field.IsValid() || !field.CanInterface() {
			return fieldResult{kind: fieldNotFound}
		}
		if isLambdaValue(field) {
			return fieldResult{kind: fieldLambda, lambda: field}
		}
		return fieldResult{kind: fieldFound, adapter: newAdapterValue(field)}
	case reflect.Map:
		val := a.v.MapIndex(reflect.ValueOf(name))
		if !val.IsValid() {
			return fieldResult{kind: fieldNotFound}
		}
		unwrapped := unwrap(val)
		if isLambdaValue(unwrapped) {
			return fieldResult{kind: fieldLambda, lambda: unwrapped}
		}
		return fieldResult{kind: fieldFound, adapter: newAdapterValue(val)}
	default:
		// Scalars and sequences have no field notion at
		// all: NotFound (not ChainBroken) so that a first-component stack
		// walk may still fall back to an enclosing context.
		return fieldResult{kind: fieldNotFound}
	}
}

// findNiladicMethod looks for an exported method taking no arguments and
// returning either one value or a value and an error, on v or, when v is
// addressable, on a pointer to v; getField checks methods before struct
// fields or map keys.
func findNiladicMethod(v reflect.Value, name string) (reflect.Value, bool) {
	if !v.IsValid() {
		return reflect.Value{}, false
	}
	errorType := reflect.TypeOf((*error)(nil)).Elem()
	candidates := []reflect.Value{v}
	if v.CanAddr() {
		candidates = append(candidates, v.Addr())
	}
	for _, c := range candidates {
		typ := c.Type()
		for i := 0; i < typ.NumMethod(); i++ {
			m := typ.Method(i)
			if m.Name == name && m.Type.NumIn() == 1 &&
				(m.Type.NumOut() == 1 || m.Type.NumOut() == 2 && m.Type.Out(1) == errorType) {
				return c.Method(i), true
			}
		}
	}
	return reflect.Value{}, false
}

// iterator implements §4.1's IteratorResult: Field(iter) for sequences,
// maps, structs, and truthy scalars (a truthy non-list context becomes a
// single-element sequence yielding itself, per Mustache's "non-false
// values push themselves as context" rule); Lambda(ctx) for lambdas;
// NotFoundInContext for absent/invalid values. Empty sequences, false
// bools, zero numbers, and empty strings yield a Field iterator with zero
// items (falsey, so the section body is skipped).
func (a reflectAdapter) iterator() iterResult {
	if !a.v.IsValid() {
		return iterResult{kind: iterNotFound}
	}
	if isLambdaValue(a.v) {
		return iterResult{kind: iterLambda, lambda: a.v}
	}
	if !a.truthy() {
		return iterResult{kind: iterField, items: nil}
	}
	switch a.v.Kind() {
	case reflect.Slice, reflect.Array:
		items := make([]reflectAdapter, a.v.Len())
		for i := range items {
			items[i] = newAdapterValue(a.v.Index(i))
		}
		return iterResult{kind: iterField, items: items}
	default:
		return iterResult{kind: iterField, items: []reflectAdapter{a}}
	}
}
