package mustache

import (
	"reflect"
	"strings"
)

// compiledPath is a dotted name split into its components exactly once,
// at parse time, so that resolving the same tag on repeated renders never
// re-walks the raw string on every render.
type compiledPath struct {
	raw        string
	components []string
}

// compilePath splits a raw dotted name. "." is the implicit iterator and
// is kept as a single empty-string component, never split further.
func compilePath(name string) compiledPath {
	if name == "." {
		return compiledPath{raw: name, components: []string{""}}
	}
	return compiledPath{raw: name, components: strings.Split(name, ".")}
}

// pathKind is the path resolver's return taxonomy.
type pathKind int

const (
	pathField pathKind = iota
	pathLambda
	pathChainBroken
	pathNotFound
)

type pathOutcome struct {
	kind    pathKind
	adapter reflectAdapter
	lambda  reflect.Value
}

// resolvePath implements the dotted-name resolution algorithm: the first
// component walks the context stack with ancestor fallback; every
// subsequent component resolves only against the adapter the previous
// component produced, with no stack fallback at all. This is the
// left-associativity invariant for dotted names.
func resolvePath(stack *stackFrame, path compiledPath) pathOutcome {
	if len(path.components) == 1 && path.components[0] == "" {
		if stack == nil {
			return pathOutcome{kind: pathNotFound}
		}
		return pathOutcome{kind: pathField, adapter: stack.adapter}
	}

	first := stack.lookupFirst(path.components[0])
	switch first.kind {
	case fieldNotFound:
		return pathOutcome{kind: pathNotFound}
	case fieldChainBroken:
		return pathOutcome{kind: pathChainBroken}
	case fieldLambda:
		return pathOutcome{kind: pathLambda, lambda: first.lambda}
	}

	cur := first.adapter
	for _, comp := range path.components[1:] {
		res := cur.getField(comp)
		switch res.kind {
		case fieldFound:
			cur = res.adapter
		case fieldLambda:
			return pathOutcome{kind: pathLambda, lambda: res.lambda}
		default:
			// NotFound and ChainBroken are indistinguishable once we are
			// past the first component: a broken dotted chain never falls
			// back to an ancestor frame.
			return pathOutcome{kind: pathChainBroken}
		}
	}
	return pathOutcome{kind: pathField, adapter: cur}
}
