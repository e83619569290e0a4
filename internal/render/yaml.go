package render

import (
	"io"

	"gopkg.in/yaml.v3"
)

// YAMLRenderer writes YAML
type YAMLRenderer struct{}

func (r *YAMLRenderer) Render(v interface{}, w io.Writer) error {
	enc := yaml.NewEncoder(w)
	defer func() { _ = enc.Close() }()

	return enc.Encode(v)
}

func (r *YAMLRenderer) Format() string {
	return "yaml"
}
