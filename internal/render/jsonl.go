package render

import (
	"encoding/json"
	"fmt"
	"io"
	"reflect"
)

// JSONLRenderer writes one JSON object per line. Slices are written one
// element per line; any other value is a single line.
type JSONLRenderer struct{}

func (r *JSONLRenderer) Render(v interface{}, w io.Writer) error {
	enc := json.NewEncoder(w)

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return enc.Encode(v)
	}

	for i := 0; i < rv.Len(); i++ {
		if err := enc.Encode(rv.Index(i).Interface()); err != nil {
			return fmt.Errorf("failed to encode item %d: %w", i, err)
		}
	}

	return nil
}

func (r *JSONLRenderer) Format() string {
	return "jsonl"
}
