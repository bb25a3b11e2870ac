package tabular

import (
	"errors"
	"fmt"
)

// Sentinel errors for table decoding.
var (
	ErrNoHeader   = errors.New("tabular: result has no header row")
	ErrRaggedRow  = errors.New("tabular: row width does not match header")
	ErrBadPayload = errors.New("tabular: payload is not a serialized table")
)

// Table is an ordered tabular result. Cell values keep the service's text
// representation; Types carries the declared column datatypes when the
// service provides them (may be empty).
type Table struct {
	Columns []string   `json:"columns"`
	Types   []string   `json:"types,omitempty"`
	Rows    [][]string `json:"rows"`
}

// NumRows returns the number of data rows.
func (t *Table) NumRows() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// ColumnIndex returns the position of the named column, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Column returns all values of the named column in row order.
func (t *Table) Column(name string) ([]string, error) {
	idx := t.ColumnIndex(name)
	if idx < 0 {
		return nil, fmt.Errorf("tabular: no column %q", name)
	}
	out := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = row[idx]
	}
	return out, nil
}

// Equal reports whether two tables have identical columns, types, and rows
// in identical order.
func (t *Table) Equal(other *Table) bool {
	if t.NumRows() != other.NumRows() || len(t.Columns) != len(other.Columns) ||
		len(t.Types) != len(other.Types) {
		return false
	}
	for i := range t.Columns {
		if t.Columns[i] != other.Columns[i] {
			return false
		}
	}
	for i := range t.Types {
		if t.Types[i] != other.Types[i] {
			return false
		}
	}
	for i := range t.Rows {
		if len(t.Rows[i]) != len(other.Rows[i]) {
			return false
		}
		for j := range t.Rows[i] {
			if t.Rows[i][j] != other.Rows[i][j] {
				return false
			}
		}
	}
	return true
}

func (t *Table) validate() error {
	for _, row := range t.Rows {
		if len(row) != len(t.Columns) {
			return fmt.Errorf("%w: got %d cells, header has %d columns",
				ErrRaggedRow, len(row), len(t.Columns))
		}
	}
	if len(t.Types) > 0 && len(t.Types) != len(t.Columns) {
		return fmt.Errorf("%w: %d types for %d columns",
			ErrRaggedRow, len(t.Types), len(t.Columns))
	}
	return nil
}
