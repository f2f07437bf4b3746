package export

import (
	"fmt"
	"os"

	"github.com/valyala/fastjson"
)

// ReadJSONColumn extracts one column from a JSON table written by
// WriteJSON without decoding the other columns into Go values
func ReadJSONColumn(filename, column string) ([]float64, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read JSON file: %w", err)
	}

	var p fastjson.Parser
	v, err := p.ParseBytes(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filename, err)
	}
	if v.Type() != fastjson.TypeObject {
		return nil, fmt.Errorf("%s: expected a JSON object, got %s", filename, v.Type())
	}

	field := v.Get(column)
	if field == nil {
		return nil, fmt.Errorf("%s: no column %q", filename, column)
	}
	items, err := field.Array()
	if err != nil {
		return nil, fmt.Errorf("%s: column %q: %w", filename, column, err)
	}

	values := make([]float64, len(items))
	for i, item := range items {
		values[i], err = item.Float64()
		if err != nil {
			return nil, fmt.Errorf("%s: column %q index %d: %w", filename, column, i, err)
		}
	}
	return values, nil
}
