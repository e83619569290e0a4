package render

import (
	"encoding/json"
	"io"
)

// JSONRenderer writes indented JSON
type JSONRenderer struct{}

func (r *JSONRenderer) Render(v interface{}, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}

func (r *JSONRenderer) Format() string {
	return "json"
}
