// Package v1api is a best-effort compatibility shim implementing an older,
// flatter function-based API in terms of the current Compiler/Template API.
package v1api

import (
	"os"
	"path"

	"github.com/elewis787/mustache"
)

// ParseString compiles a mustache template string. The resulting output can
// be used to efficiently render the template multiple times with different
// data sources.
func ParseString(data string) (*mustache.Template, error) {
	return ParseStringRaw(data, false)
}

// ParseStringRaw compiles a mustache template string, resolving any
// partials relative to the current working directory.
func ParseStringRaw(data string, forceRaw bool) (*mustache.Template, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	partials := &mustache.FileProvider{Paths: []string{cwd}}
	return ParseStringPartialsRaw(data, partials, forceRaw)
}

// ParseStringPartials compiles a mustache template string, retrieving any
// required partials from the given provider.
func ParseStringPartials(data string, partials mustache.PartialProvider) (*mustache.Template, error) {
	return ParseStringPartialsRaw(data, partials, false)
}

// ParseStringPartialsRaw compiles a mustache template string, retrieving
// any required partials from the given provider, with forceRaw selecting
// unescaped output for plain ({{x}}) tags.
func ParseStringPartialsRaw(data string, partials mustache.PartialProvider, forceRaw bool) (*mustache.Template, error) {
	escapeMode := mustache.Escaped
	if forceRaw {
		escapeMode = mustache.Unescaped
	}
	return mustache.New().WithPartials(partials).WithEscapeMode(escapeMode).CompileString(data)
}

// ParseFile loads a mustache template from a file and compiles it,
// resolving any partials relative to the template's own directory.
func ParseFile(filename string) (*mustache.Template, error) {
	dirname, _ := path.Split(filename)
	partials := &mustache.FileProvider{Paths: []string{dirname}}
	return ParseFilePartials(filename, partials)
}

// ParseFilePartials loads a mustache template from a file, retrieving any
// required partials from the given provider, and compiles it.
func ParseFilePartials(filename string, partials mustache.PartialProvider) (*mustache.Template, error) {
	return ParseFilePartialsRaw(filename, false, partials)
}

// ParseFilePartialsRaw loads a mustache template from a file, retrieving
// any required partials from the given provider, and compiles it, with
// forceRaw selecting unescaped output for plain tags.
func ParseFilePartialsRaw(filename string, forceRaw bool, partials mustache.PartialProvider) (*mustache.Template, error) {
	escapeMode := mustache.Escaped
	if forceRaw {
		escapeMode = mustache.Unescaped
	}
	return mustache.New().WithPartials(partials).WithEscapeMode(escapeMode).CompileFile(filename)
}

// Render compiles a mustache template string and renders it against the
// given data sources, returning the output.
func Render(data string, context ...interface{}) (string, error) {
	return RenderRaw(data, false, context...)
}

// RenderRaw compiles a mustache template string and renders it, with
// forceRaw selecting unescaped output for plain tags.
func RenderRaw(data string, forceRaw bool, context ...interface{}) (string, error) {
	return RenderPartialsRaw(data, nil, forceRaw, context...)
}

// RenderPartials compiles a mustache template string and renders it using
// the given partial provider and data sources.
func RenderPartials(data string, partials mustache.PartialProvider, context ...interface{}) (string, error) {
	return RenderPartialsRaw(data, partials, false, context...)
}

// RenderPartialsRaw compiles a mustache template string and renders it
// using the given partial provider and data sources, with forceRaw
// selecting unescaped output for plain tags.
func RenderPartialsRaw(data string, partials mustache.PartialProvider, forceRaw bool, context ...interface{}) (string, error) {
	cmpl := mustache.New()
	if forceRaw {
		cmpl = cmpl.WithEscapeMode(mustache.Unescaped)
	}
	if partials != nil {
		cmpl = cmpl.WithPartials(partials)
	}
	tmpl, err := cmpl.CompileString(data)
	if err != nil {
		return "", err
	}
	return tmpl.Render(context...)
}

// RenderInLayout compiles a mustache template string and a layout
// "wrapper" string and renders the template's output into the layout.
func RenderInLayout(data string, layoutData string, context ...interface{}) (string, error) {
	return RenderInLayoutPartials(data, layoutData, nil, context...)
}

// RenderInLayoutPartials compiles a mustache template string and a layout
// "wrapper" string, using the given partial provider, and renders the
// template's output into the layout.
func RenderInLayoutPartials(data string, layoutData string, partials mustache.PartialProvider, context ...interface{}) (string, error) {
	layoutCmpl := mustache.New()
	if partials != nil {
		layoutCmpl = layoutCmpl.WithPartials(partials)
	}
	layoutTmpl, err := layoutCmpl.CompileString(layoutData)
	if err != nil {
		return "", err
	}
	cmpl := mustache.New()
	if partials != nil {
		cmpl = cmpl.WithPartials(partials)
	}
	tmpl, err := cmpl.CompileString(data)
	if err != nil {
		return "", err
	}
	return tmpl.RenderInLayout(layoutTmpl, context...)
}

// RenderFile loads a mustache template from a file and compiles it, then
// renders it against the given data sources.
func RenderFile(filename string, context ...interface{}) (string, error) {
	tmpl, err := mustache.New().CompileFile(filename)
	if err != nil {
		return "", err
	}
	return tmpl.Render(context...)
}

// RenderFileInLayout loads a mustache template and a layout "wrapper"
// template from files and renders the template's output into the layout.
func RenderFileInLayout(filename string, layoutFile string, context ...interface{}) (string, error) {
	layoutTmpl, err := mustache.New().CompileFile(layoutFile)
	if err != nil {
		return "", err
	}
	tmpl, err := mustache.New().CompileFile(filename)
	if err != nil {
		return "", err
	}
	return tmpl.RenderInLayout(layoutTmpl, context...)
}
