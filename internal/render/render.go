// Package render writes command results as a table, JSON, JSON lines or YAML.
package render

import (
	"fmt"
	"io"
)

// Tabular is implemented by results with a table form.
type Tabular interface {
	Header() []string
	Rows() [][]string
}

// Renderer writes a result to w
type Renderer interface {
	Render(v interface{}, w io.Writer) error
	Format() string
}

// Formats lists the supported --output values
var Formats = []string{"table", "json", "jsonl", "yaml"}

// NewRenderer creates a renderer for format. The empty format is table.
func NewRenderer(format string) (Renderer, error) {
	switch format {
	case "", "table":
		return &TableRenderer{}, nil
	case "json":
		return &JSONRenderer{}, nil
	case "jsonl":
		return &JSONLRenderer{}, nil
	case "yaml", "yml":
		return &YAMLRenderer{}, nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s (supported: table, json, jsonl, yaml)", format)
	}
}
