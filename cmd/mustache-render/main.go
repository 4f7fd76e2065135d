// Command mustache-render renders a mustache template against a YAML or
// JSON data document from the command line.
package main

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"

	"github.com/elewis787/mustache"
)

var rootCmd = &cobra.Command{
	Use: "mustache-render [--layout template] [--partials dir] [data] template",
	Example: `  $ mustache-render data.yml template.mustache
  $ cat data.json | mustache-render template.mustache
  $ mustache-render --layout wrapper.mustache data.yml template.mustache
  $ mustache-render --override over.yml data.yml template.mustache
  $ mustache-render --partials ./partials --strict data.yml template.mustache`,
	Args: cobra.RangeArgs(0, 2),
	Run: func(cmd *cobra.Command, args []string) {
		if err := run(cmd, args); err != nil {
			fmt.Fprintf(os.Stderr, "mustache-render: %s\n", err)
			os.Exit(1)
		}
	},
}

var (
	layoutFile   string
	overrideFile string
	partialsDir  string
	strict       bool
)

func main() {
	rootCmd.Flags().StringVar(&layoutFile, "layout", "", "location of layout template")
	rootCmd.Flags().StringVar(&overrideFile, "override", "", "location of a data document merged on top of the primary one")
	rootCmd.Flags().StringVar(&partialsDir, "partials", "", "directory to search for {{> partial}} templates")
	rootCmd.Flags().BoolVar(&strict, "strict", false, "fail on missing variables and partials instead of rendering them empty")
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return cmd.Usage()
	}

	var data interface{}
	var templatePath string
	if len(args) == 1 {
		b, err := ioutil.ReadAll(os.Stdin)
		if err != nil {
			return err
		}
		data, err = decodeData(b, "")
		if err != nil {
			return err
		}
		templatePath = args[0]
	} else {
		b, err := ioutil.ReadFile(args[0])
		if err != nil {
			return err
		}
		data, err = decodeData(b, args[0])
		if err != nil {
			return err
		}
		templatePath = args[1]
	}

	if overrideFile != "" {
		b, err := ioutil.ReadFile(overrideFile)
		if err != nil {
			return err
		}
		override, err := decodeData(b, overrideFile)
		if err != nil {
			return err
		}
		mergeInto(data, override)
	}

	compiler := mustache.New().WithStrictVariables(strict)
	if partialsDir != "" {
		compiler = compiler.WithPartials(&mustache.FileProvider{Paths: []string{partialsDir}})
	}

	tmpl, err := compiler.CompileFile(templatePath)
	if err != nil {
		return err
	}

	var output string
	if layoutFile != "" {
		layout, err := compiler.CompileFile(layoutFile)
		if err != nil {
			return err
		}
		output, err = tmpl.RenderInLayout(layout, data)
		if err != nil {
			return err
		}
	} else {
		output, err = tmpl.Render(data)
		if err != nil {
			return err
		}
	}
	fmt.Print(output)
	return nil
}

// decodeData parses a data document as JSON when path has a .json
// extension, and as YAML otherwise (including for data read from stdin,
// where path is empty) — YAML is a superset of JSON syntax for the simple
// scalar/map/sequence documents this command handles, so this covers both
// without the caller needing to say which format they're piping in.
func decodeData(b []byte, path string) (interface{}, error) {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		var data interface{}
		if err := json.Unmarshal(b, &data); err != nil {
			return nil, err
		}
		return data, nil
	}
	var data interface{}
	if err := yaml.Unmarshal(b, &data); err != nil {
		return nil, err
	}
	return data, nil
}

// mergeInto shallow-merges override's top-level keys into data, matching
// whichever of the two key-indexable shapes yaml.v2 and encoding/json
// produce for a mapping document.
func mergeInto(data, override interface{}) {
	switch base := data.(type) {
	case map[string]interface{}:
		switch ov := override.(type) {
		case map[string]interface{}:
			for k, v := range ov {
				base[k] = v
			}
		case map[interface{}]interface{}:
			for k, v := range ov {
				if ks, ok := k.(string); ok {
					base[ks] = v
				}
			}
		}
	case map[interface{}]interface{}:
		switch ov := override.(type) {
		case map[interface{}]interface{}:
			for k, v := range ov {
				base[k] = v
			}
		case map[string]interface{}:
			for k, v := range ov {
				base[k] = v
			}
		}
	}
}
