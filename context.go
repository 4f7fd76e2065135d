package mustache

// stackFrame is one link of the Context Stack: an immutable chain of
// adapters representing the enclosing sections, innermost first. Frames
// are created on section entry and discarded on section exit; their
// lifetime is strictly stack-nested, which Go's ordinary call-stack
// recursion gives us for free (no frame ever outlives the renderElements
// call that pushed it).
type stackFrame struct {
	adapter reflectAdapter
	parent  *stackFrame
}

// push returns a new frame with adapter on top of stack. stack may be nil
// (first frame of a render).
func push(stack *stackFrame, adapter reflectAdapter) *stackFrame {
	return &stackFrame{adapter: adapter, parent: stack}
}

// lookupFirst walks the stack top to bottom, returning the first frame's
// field resolution that is not fieldNotFound. A fieldChainBroken result
// stops the walk immediately: a field present-but-broken on a frame must
// not fall back to an ancestor. Reaching the root without a match yields
// fieldNotFound, which the path resolver reports to callers as "not found
// in context".
func (s *stackFrame) lookupFirst(name string) fieldResult {
	for frame := s; frame != nil; frame = frame.parent {
		res := frame.adapter.getField(name)
		switch res.kind {
		case fieldFound, fieldLambda:
			return res
		case fieldChainBroken:
			return res
		case fieldNotFound:
			continue
		}
	}
	return fieldResult{kind: fieldNotFound}
}
