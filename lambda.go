package mustache

import (
	"fmt"
	"reflect"
)

// LambdaFn is the signature user data must implement to be treated as a
// mustache lambda. Assigning a value of this type to a struct field, map entry,
// or slice element marks that path as a lambda: a section or
// interpolation tag invokes it instead of iterating or stringifying it.
//
// The string a LambdaFn returns is itself parsed as a mustache template
// (using the delimiters active at the call site) and rendered against the
// current context stack before being written — mirroring the official
// Mustache lambda semantics. A lambda that wants to perform that
// expansion itself (for example, to control exactly when re-rendering
// happens) can call ctx.Render/ctx.RenderAlloc and return "": an empty
// return value writes nothing further.
type LambdaFn func(ctx *LambdaContext) (string, error)

var lambdaFnType = reflect.TypeOf(LambdaFn(nil))

// LambdaContext is handed to a LambdaFn at its call site. It exposes the raw template text the lambda was invoked over and the
// delimiters in effect there, plus methods to emit output immediately or
// render mustache markup against the active context stack (which it holds
// but does not expose) and those delimiters.
type LambdaContext struct {
	innerText  string
	delimOpen  string
	delimClose string
	stack      *stackFrame
	render     *renderState
}

// InnerText returns the raw template bytes between the opening and
// closing tags of the enclosing section. It is empty for a lambda invoked
// from a plain interpolation tag.
func (lc *LambdaContext) InnerText() string { return lc.innerText }

// Delimiters returns the open/close tag delimiters in effect at the call
// site, for a lambda that wants to compose its own template text.
func (lc *LambdaContext) Delimiters() (open, close string) {
	return lc.delimOpen, lc.delimClose
}

// Write emits bytes to the output sink verbatim, bypassing escaping.
func (lc *LambdaContext) Write(b []byte) error {
	return lc.render.sink.writeAll(b)
}

// WriteFormat formats its arguments and writes the result verbatim.
func (lc *LambdaContext) WriteFormat(format string, args ...interface{}) error {
	return lc.Write([]byte(fmt.Sprintf(format, args...)))
}

// Render parses templateText with the call site's delimiters, renders it
// against the current context stack, and writes the result to the output
// sink.
func (lc *LambdaContext) Render(templateText string) error {
	out, err := lc.RenderAlloc(templateText)
	if err != nil {
		return err
	}
	return lc.Write([]byte(out))
}

// RenderFormat formats its arguments and renders the result as a
// template, writing it to the output sink.
func (lc *LambdaContext) RenderFormat(format string, args ...interface{}) error {
	return lc.Render(fmt.Sprintf(format, args...))
}

// RenderAlloc parses templateText with the call site's delimiters and
// renders it against the current context stack, returning the rendered
// bytes as a string instead of writing them.
func (lc *LambdaContext) RenderAlloc(templateText string) (string, error) {
	tmpl, err := lc.render.tmpl.compiler.compileWithDelims(templateText, lc.delimOpen, lc.delimClose)
	if err != nil {
		return "", err
	}
	sink := newBufferSink()
	sub := &renderState{tmpl: tmpl, sink: sink}
	if err := sub.renderElements(tmpl.elems, lc.stack); err != nil {
		return "", err
	}
	return sink.String(), nil
}

// compileWithDelims compiles data starting from the given delimiters
// instead of the default "{{"/"}}"  — used to re-enter the parser inside
// a lambda expansion so that custom delimiters active at the call site
// so that custom delimiters active at the call site carry
// through to any mustache markup the lambda returns.
func (c *Compiler) compileWithDelims(data, otag, ctag string) (*Template, error) {
	tmpl := &Template{
		data:          data,
		otag:          otag,
		ctag:          ctag,
		curline:       1,
		partial:       c.partial,
		defaultEscape: c.defaultEscape,
		strict:        c.strict,
		panicHandler:  c.panicHandler,
		compiler:      c,
	}
	if err := tmpl.parse(); err != nil {
		return nil, err
	}
	return tmpl, nil
}

// invokeLambda calls fn with a fresh LambdaContext and, unless the
// returned string is empty, parses that string as a template (with the
// delimiters captured on ctx) and renders it against the same stack,
// writing the result to the sink with the given escape mode.
func (r *renderState) invokeLambda(fn reflect.Value, innerText, delimOpen, delimClose string, stack *stackFrame, escape EscapeMode) error {
	ctx := &LambdaContext{
		innerText:  innerText,
		delimOpen:  delimOpen,
		delimClose: delimClose,
		stack:      stack,
		render:     r,
	}
	results := fn.Call([]reflect.Value{reflect.ValueOf(ctx)})
	if errVal := results[1]; !errVal.IsNil() {
		return errVal.Interface().(error)
	}
	out := results[0].String()
	if out == "" {
		return nil
	}
	rendered, err := ctx.RenderAlloc(out)
	if err != nil {
		return err
	}
	if escape == Escaped {
		return writeHTMLEscaped(r.sink, rendered)
	}
	return r.sink.writeAll([]byte(rendered))
}
