package mustache

// renderState carries the per-call, mutable rendering context: the
// template being walked and the output sink bytes are written to. It is
// created once per top-level render call and threaded through recursive
// section/partial/lambda expansion; none of its fields are shared across
// concurrent render calls: a rendering call is synchronous from start to
// finish and owns its sink exclusively.
type renderState struct {
	tmpl *Template
	sink outputSink
}

// renderElements is the element-tree walker.
func (r *renderState) renderElements(elems []element, stack *stackFrame) error {
	for _, elem := range elems {
		if err := r.renderElement(elem, stack); err != nil {
			return err
		}
	}
	return nil
}

func (r *renderState) renderElement(elem element, stack *stackFrame) error {
	switch e := elem.(type) {
	case *textElement:
		return r.sink.writeAll(e.text)
	case *varElement:
		return r.renderVar(e, stack)
	case *sectionElement:
		if e.inverted {
			return r.renderInvertedSection(e, stack)
		}
		return r.renderSection(e, stack)
	case *partialElement:
		return r.renderPartial(e, stack)
	}
	return nil
}

// escapeFor resolves the effective escape mode for a tag: raw tags
// ({{{x}}}, {{&x}}) are always Unescaped; plain tags use the template's
// configured default.
func (r *renderState) escapeFor(raw bool) EscapeMode {
	if raw {
		return Unescaped
	}
	return r.tmpl.defaultEscape
}

// recoverPanic runs fn, recovering any panic raised by a user Stringer or
// a zero-argument lookup method. A recovered panic is reported through
// the Template's panic handler (if any) and the tag renders as empty,
// so a panicking Stringer or lookup method never crashes a render without forcing a
// particular logging path on the caller (see DESIGN.md).
func (r *renderState) recoverPanic(name string) {
	if rec := recover(); rec != nil && r.tmpl.panicHandler != nil {
		r.tmpl.panicHandler(name, rec)
	}
}

// renderVar implements interpolation tag rendering.
func (r *renderState) renderVar(el *varElement, stack *stackFrame) (err error) {
	defer r.recoverPanic(el.path.raw)

	escape := r.escapeFor(el.raw)
	outcome := resolvePath(stack, el.path)
	switch outcome.kind {
	case pathNotFound:
		if r.tmpl.strict {
			return newMissingVariableError(el.path.raw)
		}
		return nil
	case pathChainBroken:
		return nil
	case pathLambda:
		return r.invokeLambda(outcome.lambda, "", "{{", "}}", stack, escape)
	case pathField:
		out, ierr := outcome.adapter.interpolate(r.sink, escape)
		if ierr != nil {
			return ierr
		}
		if out == interpLambda {
			return r.invokeLambda(outcome.adapter.v, "", "{{", "}}", stack, escape)
		}
		return nil
	}
	return nil
}

// renderSection implements section tag rendering: iterate the
// resolved value, pushing one frame per item, or invoke a lambda over the
// section's raw inner text.
func (r *renderState) renderSection(el *sectionElement, stack *stackFrame) (err error) {
	defer r.recoverPanic(el.path.raw)

	outcome := resolvePath(stack, el.path)
	switch outcome.kind {
	case pathNotFound, pathChainBroken:
		return nil
	case pathLambda:
		return r.invokeLambda(outcome.lambda, el.innerText, el.otag, el.ctag, stack, Unescaped)
	case pathField:
		it := outcome.adapter.iterator()
		switch it.kind {
		case iterNotFound:
			return nil
		case iterLambda:
			return r.invokeLambda(it.lambda, el.innerText, el.otag, el.ctag, stack, Unescaped)
		case iterField:
			for _, item := range it.items {
				child := push(stack, item)
				if err := r.renderElements(el.elems, child); err != nil {
					return err
				}
			}
			return nil
		}
	}
	return nil
}

// renderInvertedSection renders the body iff the resolved value is
// falsey. A lambda is always truthy here, so the body is always suppressed.
func (r *renderState) renderInvertedSection(el *sectionElement, stack *stackFrame) (err error) {
	defer r.recoverPanic(el.path.raw)

	outcome := resolvePath(stack, el.path)
	var truthy bool
	switch outcome.kind {
	case pathNotFound, pathChainBroken:
		truthy = false
	case pathLambda:
		truthy = true
	case pathField:
		it := outcome.adapter.iterator()
		switch it.kind {
		case iterLambda:
			truthy = true
		case iterNotFound:
			truthy = false
		case iterField:
			truthy = len(it.items) > 0
		}
	}
	if truthy {
		return nil
	}
	return r.renderElements(el.elems, stack)
}

// renderPartial looks up the
// name in the Partials Map; render nothing if absent; otherwise compile the
// partial (afresh on every call, with the standalone indent prefixed to
// each non-empty line of its template text) and render it against the
// current stack.
func (r *renderState) renderPartial(el *partialElement, stack *stackFrame) error {
	if r.tmpl.partial == nil {
		if r.tmpl.strict {
			return newMissingPartialError(el.name)
		}
		return nil
	}
	tmpl, err := resolvePartial(r.tmpl.compiler, r.tmpl.partial, el.name, el.indent)
	if err != nil {
		return err
	}
	if tmpl == nil {
		if r.tmpl.strict {
			return newMissingPartialError(el.name)
		}
		return nil
	}
	sub := &renderState{tmpl: tmpl, sink: r.sink}
	return sub.renderElements(tmpl.elems, stack)
}
