// Package table holds decoded log data as equal-length named numeric columns
package table

import (
	"fmt"
)

// TickColumn is the name of the column holding sample timestamps
const TickColumn = "tick"

// Table is an ordered set of named columns. Index i of every column refers
// to the same logical sample.
type Table struct {
	names   []string
	columns map[string][]float64
}

// New creates an empty table
func New() *Table {
	return &Table{columns: make(map[string][]float64)}
}

// Add appends a column. The first column fixes the table length; later
// columns must match it.
func (t *Table) Add(name string, values []float64) error {
	if name == "" {
		return fmt.Errorf("column name cannot be empty")
	}
	if _, exists := t.columns[name]; exists {
		return fmt.Errorf("duplicate column %q", name)
	}
	if len(t.names) > 0 && len(values) != t.Len() {
		return fmt.Errorf("column %q has %d samples, expected %d", name, len(values), t.Len())
	}

	t.names = append(t.names, name)
	t.columns[name] = values
	return nil
}

// Names returns the column names in insertion order
func (t *Table) Names() []string {
	names := make([]string, len(t.names))
	copy(names, t.names)
	return names
}

// Column returns the values of the named column
func (t *Table) Column(name string) ([]float64, bool) {
	values, ok := t.columns[name]
	return values, ok
}

// Len returns the number of samples per column
func (t *Table) Len() int {
	if len(t.names) == 0 {
		return 0
	}
	return len(t.columns[t.names[0]])
}

// Width returns the number of columns
func (t *Table) Width() int {
	return len(t.names)
}

// Row returns the values of sample i across all columns, in column order
func (t *Table) Row(i int) []float64 {
	row := make([]float64, len(t.names))
	for j, name := range t.names {
		row[j] = t.columns[name][i]
	}
	return row
}

// Ticks returns the named tick column, or TickColumn when column is empty
func (t *Table) Ticks(column string) ([]float64, error) {
	if column == "" {
		column = TickColumn
	}
	ticks, ok := t.columns[column]
	if !ok {
		return nil, fmt.Errorf("table has no %q column", column)
	}
	return ticks, nil
}
