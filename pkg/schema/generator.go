// Package schema generates JSON schemas for configuration types from their Go
// definitions, using doc comments as descriptions.
package schema

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// Generator reflects a JSON schema from a root value.
type Generator struct {
	root  any
	base  string
	paths []string
}

// NewGenerator creates a [Generator] for root. base is the module path and
// paths are the package directories, relative to the working directory,
// whose doc comments become schema descriptions.
func NewGenerator(root any, base string, paths ...string) *Generator {
	return &Generator{
		root:  root,
		base:  base,
		paths: paths,
	}
}

// Generate returns the indented JSON schema.
func (g *Generator) Generate() ([]byte, error) {
	r := &jsonschema.Reflector{
		Anonymous: true,
	}

	for _, p := range g.paths {
		err := r.AddGoComments(g.base, p)
		if err != nil {
			return nil, fmt.Errorf("add go comments from %s: %w", p, err)
		}
	}

	s := r.Reflect(g.root)

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}

	return append(data, '\n'), nil
}
