package mustache

import (
	"fmt"
	"io/ioutil"
	"os"
	"path"
	"regexp"
	"strings"

	"gopkg.in/yaml.v2"
)

// PartialProvider comprises the behaviors required of a struct to be able
// to provide partials to the mustache rendering engine.
type PartialProvider interface {
	// Get accepts the name of a partial and returns its raw template text
	// if found; an empty string and nil error if not found (renderPartial
	// treats that as "no such partial", honoring WithStrictVariables); or
	// an empty string and a non-nil error if retrieval itself failed.
	Get(name string) (string, error)
}

// FileProvider implements PartialProvider by reading partials from a
// filesystem. When a partial named NAME is requested, FileProvider
// searches each listed path for a file named NAME followed by any of the
// listed extensions. The default for Paths is the current working
// directory. The default for Extensions is, in order, no extension, then
// ".mustache", then ".stache". If Unsafe is set, partial names are
// allowed to begin with '.' or '..' after cleaning, meaning they can
// potentially refer to files outside any of the listed directory paths.
type FileProvider struct {
	Paths      []string
	Extensions []string
	Unsafe     bool
}

// Get accepts the name of a partial and returns its template text.
func (fp *FileProvider) Get(name string) (string, error) {
	var cleanname string
	if fp.Unsafe {
		cleanname = name
	} else {
		cleanname = path.Clean(strings.ReplaceAll(name, `\`, "/"))
		if strings.HasPrefix(cleanname, ".") {
			return "", fmt.Errorf("unsafe partial name passed to FileProvider: %s", name)
		}
	}

	paths := fp.Paths
	if paths == nil {
		paths = []string{""}
	}

	exts := fp.Extensions
	if exts == nil {
		exts = []string{"", ".mustache", ".stache"}
	}

	var f *os.File
	var err error
	for _, p := range paths {
		for _, e := range exts {
			pname := path.Join(p, cleanname+e)
			f, err = os.Open(pname)
			if err == nil {
				break
			}
		}
		if f != nil {
			break
		}
	}

	if f == nil {
		return "", nil
	}
	defer f.Close()

	data, err := ioutil.ReadAll(f)
	if err != nil {
		return "", err
	}

	return string(data), nil
}

var _ PartialProvider = (*FileProvider)(nil)

// StaticProvider implements PartialProvider by serving partials out of a
// map from partial name to template text.
type StaticProvider struct {
	Partials map[string]string
}

// Get accepts the name of a partial and returns its template text.
func (sp *StaticProvider) Get(name string) (string, error) {
	if sp.Partials != nil {
		if data, ok := sp.Partials[name]; ok {
			return data, nil
		}
	}
	return "", nil
}

var _ PartialProvider = (*StaticProvider)(nil)

// PartialEntry pairs a partial name with its template text, preserving
// the caller's chosen ordering — unlike StaticProvider's map, which has
// none.
type PartialEntry struct {
	Name     string
	Template string
}

// SliceProvider implements PartialProvider over an ordered list of
// entries. A later entry with the same name shadows an earlier one,
// matching the natural "last one wins" behavior of appending overrides
// onto a slice.
type SliceProvider struct {
	Entries []PartialEntry
}

// Get accepts the name of a partial and returns its template text.
func (sp *SliceProvider) Get(name string) (string, error) {
	found := ""
	ok := false
	for _, e := range sp.Entries {
		if e.Name == name {
			found = e.Template
			ok = true
		}
	}
	if !ok {
		return "", nil
	}
	return found, nil
}

var _ PartialProvider = (*SliceProvider)(nil)

// NewYAMLPartials decodes a single YAML document mapping partial names to
// template text into a StaticProvider, using the same YAML decoding the
// command-line renderer uses for its data documents.
func NewYAMLPartials(data []byte) (*StaticProvider, error) {
	partials := make(map[string]string)
	if err := yaml.Unmarshal(data, &partials); err != nil {
		return nil, fmt.Errorf("mustache: decoding yaml partials: %w", err)
	}
	return &StaticProvider{Partials: partials}, nil
}

var indentLineRe = regexp.MustCompile(`(?m:^(.+)$)`)

// resolvePartial looks up name in pp, applies indent to every non-empty
// line of its template text, and compiles the result with compiler's settings. A
// partial is always compiled against the default "{{"/"}}" delimiters,
// independent of whatever custom delimiters were active at its call site.
// It returns (nil, nil) when the provider has no such partial.
func resolvePartial(compiler *Compiler, pp PartialProvider, name, indent string) (*Template, error) {
	data, err := pp.Get(name)
	if err != nil {
		return nil, err
	}
	if data == "" {
		return nil, nil
	}

	if indent != "" {
		data = indentLineRe.ReplaceAllString(data, indent+"$1")
	}

	return compiler.CompileString(data)
}
