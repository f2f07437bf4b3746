package export

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadJSONColumnRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.json")
	_, err := NewWriter(nil).WriteJSON(path, sampleTable(t))
	require.NoError(t, err)

	ticks, err := ReadJSONColumn(path, "tick")
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 10, 30}, ticks)

	acc, err := ReadJSONColumn(path, "acc.z")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 0.5, -2.25}, acc)
}

func TestReadJSONColumnErrors(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
		return path
	}

	tests := []struct {
		name   string
		path   string
		column string
	}{
		{"missing file", filepath.Join(dir, "absent.json"), "tick"},
		{"invalid json", write("bad.json", `{"tick": [1, 2`), "tick"},
		{"not an object", write("array.json", `[1, 2, 3]`), "tick"},
		{"missing column", write("other.json", `{"time": [1, 2]}`), "tick"},
		{"not an array", write("scalar.json", `{"tick": 5}`), "tick"},
		{"null value", write("null.json", `{"tick": [1, null]}`), "tick"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadJSONColumn(tt.path, tt.column)
			assert.Error(t, err)
		})
	}
}
