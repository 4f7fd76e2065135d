// Package mustache implements the rendering core of a Mustache 1.1
// template engine: parsing a template into an element tree and walking
// that tree against a stack of data contexts to produce rendered output.
//
// A Template is built with a Compiler, which configures output escaping,
// a partials provider, and strict-variable behavior before CompileString
// or CompileFile produce the parsed tree. The zero-value Compiler (New())
// matches the defaults most callers want: HTML escaping on, no partials,
// missing variables render as empty.
package mustache

import (
	"io"
	"os"
	"strconv"
	"strings"
)

// EscapeMode selects whether a tag's textual form is HTML-escaped or
// written verbatim. Triple-mustache ({{{x}}}) and ampersand ({{&x}}) tags
// are always Unescaped regardless of the Template's default; plain
// ({{x}}) tags use the Template's configured default.
type EscapeMode int

// The two escape modes the rendering core supports; arbitrary
// user-defined escape schemes beyond these are out of scope.
const (
	Escaped EscapeMode = iota
	Unescaped
)

// Compiler configures how templates are compiled and rendered: escape
// mode, partials resolution, strict-variable behavior, and a diagnostics
// callback for internal lookup panics (a user Stringer or method that
// panics does not crash a render call; see WithPanicHandler).
type Compiler struct {
	partial       PartialProvider
	defaultEscape EscapeMode
	strict        bool
	panicHandler  func(name string, recovered interface{})
}

// New returns a Compiler with the library defaults: HTML escaping, no
// partials provider, lenient (non-strict) variable resolution.
func New() *Compiler {
	return &Compiler{defaultEscape: Escaped}
}

// WithPartials adds a partial provider and enables support for partials.
func (c *Compiler) WithPartials(pp PartialProvider) *Compiler {
	c.partial = pp
	return c
}

// WithEscapeMode sets the default escape mode for plain ({{x}}) tags.
// Triple-mustache and ampersand tags are unaffected.
func (c *Compiler) WithEscapeMode(m EscapeMode) *Compiler {
	c.defaultEscape = m
	return c
}

// WithStrictVariables makes a missing top-level variable or a missing
// partial a reported error (MissingVariableError / MissingPartialError)
// instead of silently rendering empty. Broken dotted chains are never
// reported even in strict mode: they are
// falsey by definition, not missing.
func (c *Compiler) WithStrictVariables(b bool) *Compiler {
	c.strict = b
	return c
}

// WithPanicHandler installs a callback invoked whenever a Stringer or a
// zero-argument lookup method panics during rendering. The panic is
// always recovered and the tag renders as empty; the default handler is a
// no-op, so a library caller is never forced onto a particular logging
// stack (see DESIGN.md).
func (c *Compiler) WithPanicHandler(h func(name string, recovered interface{})) *Compiler {
	c.panicHandler = h
	return c
}

// CompileString compiles a Mustache template from a string.
func (c *Compiler) CompileString(data string) (*Template, error) {
	tmpl := &Template{
		data:          data,
		otag:          "{{",
		ctag:          "}}",
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

// CompileFile compiles a Mustache template loaded from a file.
func (c *Compiler) CompileFile(filename string) (*Template, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return c.CompileString(string(data))
}

// TagType identifies the kind of mustache tag a Tag represents.
type TagType uint

// The possible Tag types.
const (
	Invalid TagType = iota
	Variable
	Section
	InvertedSection
	Partial
)

func (t TagType) String() string {
	names := [...]string{"Invalid", "Variable", "Section", "InvertedSection", "Partial"}
	if int(t) < len(names) {
		return names[t]
	}
	return "TagType(" + strconv.Itoa(int(t)) + ")"
}

// Tag represents one parsed mustache tag. Not all methods apply to all
// tag types; Tags() panics on Variable tags, which cannot have children.
type Tag interface {
	Type() TagType
	Name() string
	Tags() []Tag
}

// element is the sum type the parser produces and the renderer consumes
// the parser and renderer both operate on. It is encoded as a closed set of unexported
// struct types rather than an interface with behavior, keeping the
// Renderer (not the elements) responsible for all rendering logic.
type element interface {
	isElement()
}

type textElement struct {
	text []byte
}

type varElement struct {
	path compiledPath
	raw  bool
}

type sectionElement struct {
	path      compiledPath
	inverted  bool
	startline int
	elems     []element
	innerText string
	otag      string
	ctag      string
}

type partialElement struct {
	name   string
	indent string
}

func (*textElement) isElement()    {}
func (*varElement) isElement()     {}
func (*sectionElement) isElement() {}
func (*partialElement) isElement() {}

func (e *varElement) Type() TagType { return Variable }
func (e *varElement) Name() string  { return e.path.raw }
func (e *varElement) Tags() []Tag   { panic("mustache: Tags on Variable type") }

func (e *sectionElement) Type() TagType {
	if e.inverted {
		return InvertedSection
	}
	return Section
}
func (e *sectionElement) Name() string { return e.path.raw }
func (e *sectionElement) Tags() []Tag  { return extractTags(e.elems) }

func (e *partialElement) Type() TagType { return Partial }
func (e *partialElement) Name() string  { return e.name }
func (e *partialElement) Tags() []Tag   { return nil }

func extractTags(elems []element) []Tag {
	tags := make([]Tag, 0, len(elems))
	for _, elem := range elems {
		switch e := elem.(type) {
		case *varElement:
			tags = append(tags, e)
		case *sectionElement:
			tags = append(tags, e)
		case *partialElement:
			tags = append(tags, e)
		}
	}
	return tags
}

// Template is a compiled mustache template, ready to be rendered
// repeatedly against different data.
type Template struct {
	data          string
	otag, ctag    string
	p             int
	curline       int
	elems         []element
	partial       PartialProvider
	defaultEscape EscapeMode
	strict        bool
	panicHandler  func(name string, recovered interface{})
	compiler      *Compiler
}

// Tags returns the template's top-level mustache tags.
func (tmpl *Template) Tags() []Tag { return extractTags(tmpl.elems) }

// --- parsing -------------------------------------------------------------

func (tmpl *Template) readString(s string) (string, error) {
	newlines := 0
	for i := tmpl.p; ; i++ {
		if i+len(s) > len(tmpl.data) {
			return tmpl.data[tmpl.p:], io.EOF
		}
		if tmpl.data[i] == '\n' {
			newlines++
		}
		if tmpl.data[i] != s[0] {
			continue
		}
		match := true
		for j := 1; j < len(s); j++ {
			if s[j] != tmpl.data[i+j] {
				match = false
				break
			}
		}
		if match {
			e := i + len(s)
			text := tmpl.data[tmpl.p:e]
			tmpl.p = e
			tmpl.curline += newlines
			return text, nil
		}
	}
}

// skipWhitespaceTagTypes lists the tag sigils that participate in the
// standalone-line whitespace-elision rule.
const skipWhitespaceTagTypes = "#^/<>=!"

type textReadingResult struct {
	text          string
	padding       string
	mayStandalone bool
}

func (tmpl *Template) readText() (*textReadingResult, error) {
	pPrev := tmpl.p
	text, err := tmpl.readString(tmpl.otag)
	if err == io.EOF {
		return &textReadingResult{text: text}, err
	}

	var i int
	for i = tmpl.p - len(tmpl.otag); i > pPrev; i-- {
		if tmpl.data[i-1] != ' ' && tmpl.data[i-1] != '\t' {
			break
		}
	}
	mayStandalone := i == 0 || tmpl.data[i-1] == '\n'
	if mayStandalone {
		return &textReadingResult{
			text:          tmpl.data[pPrev:i],
			padding:       tmpl.data[i : tmpl.p-len(tmpl.otag)],
			mayStandalone: true,
		}, nil
	}
	return &textReadingResult{text: tmpl.data[pPrev : tmpl.p-len(tmpl.otag)]}, nil
}

type tagReadingResult struct {
	tag        string
	standalone bool
}

func (tmpl *Template) readTag(mayStandalone bool) (*tagReadingResult, error) {
	var text string
	var err error
	if tmpl.p < len(tmpl.data) && tmpl.data[tmpl.p] == '{' {
		text, err = tmpl.readString("}" + tmpl.ctag)
	} else {
		text, err = tmpl.readString(tmpl.ctag)
	}
	if err == io.EOF {
		return nil, newParseError(tmpl.curline, ErrUnmatchedOpenTag)
	}

	text = text[:len(text)-len(tmpl.ctag)]
	tag := strings.TrimSpace(text)
	if len(tag) == 0 {
		return nil, newParseError(tmpl.curline, ErrEmptyTag)
	}

	eow := tmpl.p
	for i := tmpl.p; i < len(tmpl.data); i++ {
		if !(tmpl.data[i] == ' ' || tmpl.data[i] == '\t') {
			eow = i
			break
		}
	}

	standalone := true
	if mayStandalone {
		if !strings.Contains(skipWhitespaceTagTypes, tag[0:1]) {
			standalone = false
		} else if eow == len(tmpl.data) {
			tmpl.p = eow
		} else if tmpl.data[eow] == '\n' {
			tmpl.p = eow + 1
			tmpl.curline++
		} else if eow+1 < len(tmpl.data) && tmpl.data[eow] == '\r' && tmpl.data[eow+1] == '\n' {
			tmpl.p = eow + 2
			tmpl.curline++
		} else {
			standalone = false
		}
	}

	return &tagReadingResult{tag: tag, standalone: standalone}, nil
}

func (tmpl *Template) parseSection(section *sectionElement) error {
	bodyStart := tmpl.p
	for {
		textResult, err := tmpl.readText()
		if err == io.EOF {
			return newParseErrorWithReason(section.startline, ErrSectionNoClosingTag, section.path.raw)
		}
		section.elems = append(section.elems, &textElement{[]byte(textResult.text)})

		// otagStart is where this tag's opening delimiter began; it marks
		// the end of the section body if this tag turns out to be the
		// matching close tag.
		otagStart := tmpl.p - len(tmpl.otag)

		tagResult, err := tmpl.readTag(textResult.mayStandalone)
		if err != nil {
			return err
		}
		if !tagResult.standalone {
			section.elems = append(section.elems, &textElement{[]byte(textResult.padding)})
		}

		tag := tagResult.tag
		switch tag[0] {
		case '!':
			// comment: ignored
		case '#', '^':
			name := strings.TrimSpace(tag[1:])
			se := sectionElement{path: compilePath(name), inverted: tag[0] == '^', startline: tmpl.curline, otag: tmpl.otag, ctag: tmpl.ctag}
			if err := tmpl.parseSection(&se); err != nil {
				return err
			}
			section.elems = append(section.elems, &se)
		case '/':
			name := strings.TrimSpace(tag[1:])
			if name != section.path.raw {
				return newParseErrorWithReason(tmpl.curline, ErrInterleavedClosingTag, name)
			}
			section.innerText = tmpl.data[bodyStart:otagStart]
			return nil
		case '>':
			name := strings.TrimSpace(tag[1:])
			section.elems = append(section.elems, &partialElement{name: name, indent: textResult.padding})
		case '=':
			if len(tag) < 2 || tag[len(tag)-1] != '=' {
				return newParseError(tmpl.curline, ErrInvalidMetaTag)
			}
			inner := strings.TrimSpace(tag[1 : len(tag)-1])
			newtags := strings.SplitN(inner, " ", 2)
			if len(newtags) == 2 {
				tmpl.otag = newtags[0]
				tmpl.ctag = newtags[1]
			}
		case '{':
			if tag[len(tag)-1] == '}' {
				name := strings.TrimSpace(tag[1 : len(tag)-1])
				section.elems = append(section.elems, &varElement{path: compilePath(name), raw: true})
			}
		case '&':
			name := strings.TrimSpace(tag[1:])
			section.elems = append(section.elems, &varElement{path: compilePath(name), raw: true})
		default:
			section.elems = append(section.elems, &varElement{path: compilePath(tag)})
		}
	}
}

func (tmpl *Template) parse() error {
	for {
		textResult, err := tmpl.readText()
		if err == io.EOF {
			tmpl.elems = append(tmpl.elems, &textElement{[]byte(textResult.text)})
			return nil
		}
		tmpl.elems = append(tmpl.elems, &textElement{[]byte(textResult.text)})

		tagResult, err := tmpl.readTag(textResult.mayStandalone)
		if err != nil {
			return err
		}
		if !tagResult.standalone {
			tmpl.elems = append(tmpl.elems, &textElement{[]byte(textResult.padding)})
		}

		tag := tagResult.tag
		switch tag[0] {
		case '!':
			// comment: ignored
		case '#', '^':
			name := strings.TrimSpace(tag[1:])
			se := sectionElement{path: compilePath(name), inverted: tag[0] == '^', startline: tmpl.curline, otag: tmpl.otag, ctag: tmpl.ctag}
			if err := tmpl.parseSection(&se); err != nil {
				return err
			}
			tmpl.elems = append(tmpl.elems, &se)
		case '/':
			return newParseError(tmpl.curline, ErrUnmatchedCloseTag)
		case '>':
			name := strings.TrimSpace(tag[1:])
			tmpl.elems = append(tmpl.elems, &partialElement{name: name, indent: textResult.padding})
		case '=':
			if len(tag) < 2 || tag[len(tag)-1] != '=' {
				return newParseError(tmpl.curline, ErrInvalidMetaTag)
			}
			inner := strings.TrimSpace(tag[1 : len(tag)-1])
			newtags := strings.SplitN(inner, " ", 2)
			if len(newtags) == 2 {
				tmpl.otag = newtags[0]
				tmpl.ctag = newtags[1]
			}
		case '{':
			if tag[len(tag)-1] == '}' {
				name := strings.TrimSpace(tag[1 : len(tag)-1])
				tmpl.elems = append(tmpl.elems, &varElement{path: compilePath(name), raw: true})
			}
		case '&':
			name := strings.TrimSpace(tag[1:])
			tmpl.elems = append(tmpl.elems, &varElement{path: compilePath(name), raw: true})
		default:
			tmpl.elems = append(tmpl.elems, &varElement{path: compilePath(tag)})
		}
	}
}

// --- rendering entry points ----------------------------------------------

// FRender renders the template to w against a stack of data contexts
// (innermost first).
func (tmpl *Template) FRender(w io.Writer, context ...interface{}) error {
	return tmpl.render(newWriterSink(w), context)
}

// Render renders the template and returns the output as a string. This is
// the allocating counterpart to FRender.
func (tmpl *Template) Render(context ...interface{}) (string, error) {
	sink := newBufferSink()
	if err := tmpl.render(sink, context); err != nil {
		return "", err
	}
	return sink.String(), nil
}

func (tmpl *Template) render(sink outputSink, context []interface{}) error {
	var stack *stackFrame
	// Build the stack bottom-up so context[0] ends up innermost (first
	// lookup priority).
	for i := len(context) - 1; i >= 0; i-- {
		stack = push(stack, newAdapter(context[i]))
	}
	r := &renderState{tmpl: tmpl, sink: sink}
	return r.renderElements(tmpl.elems, stack)
}

// RenderInLayout renders tmpl's output into layout's {{content}} field and
// returns the combined result as a string.
func (tmpl *Template) RenderInLayout(layout *Template, context ...interface{}) (string, error) {
	content, err := tmpl.Render(context...)
	if err != nil {
		return "", err
	}
	allContext := append([]interface{}{map[string]string{"content": content}}, context...)
	return layout.Render(allContext...)
}

// FRenderInLayout is RenderInLayout, writing to w instead of returning a string.
func (tmpl *Template) FRenderInLayout(w io.Writer, layout *Template, context ...interface{}) error {
	content, err := tmpl.Render(context...)
	if err != nil {
		return err
	}
	allContext := append([]interface{}{map[string]string{"content": content}}, context...)
	return layout.FRender(w, allContext...)
}

// --- package-level convenience entry points -------------------------------

// Render compiles template text and renders it against data, returning
// the output as a string.
func Render(text string, context ...interface{}) (string, error) {
	tmpl, err := New().CompileString(text)
	if err != nil {
		return "", err
	}
	return tmpl.Render(context...)
}

// FRender compiles template text and renders it to w.
func FRender(w io.Writer, text string, context ...interface{}) error {
	tmpl, err := New().CompileString(text)
	if err != nil {
		return err
	}
	return tmpl.FRender(w, context...)
}

// RenderPartials is Render with an explicit partials provider.
func RenderPartials(text string, partials PartialProvider, context ...interface{}) (string, error) {
	tmpl, err := New().WithPartials(partials).CompileString(text)
	if err != nil {
		return "", err
	}
	return tmpl.Render(context...)
}

// RenderFile loads and compiles a template from filename and renders it
// against data, returning the output as a string.
func RenderFile(filename string, context ...interface{}) (string, error) {
	tmpl, err := New().CompileFile(filename)
	if err != nil {
		return "", err
	}
	return tmpl.Render(context...)
}

// FRenderFile is RenderFile, writing to w instead of returning a string.
func FRenderFile(w io.Writer, filename string, context ...interface{}) error {
	tmpl, err := New().CompileFile(filename)
	if err != nil {
		return err
	}
	return tmpl.FRender(w, context...)
}

// RenderFileInLayout loads and compiles a template and a layout template
// from files and renders the template's output into the layout's
// {{content}} field.
func RenderFileInLayout(filename, layoutFile string, context ...interface{}) (string, error) {
	layoutTmpl, err := New().CompileFile(layoutFile)
	if err != nil {
		return "", err
	}
	tmpl, err := New().CompileFile(filename)
	if err != nil {
		return "", err
	}
	return tmpl.RenderInLayout(layoutTmpl, context...)
}
