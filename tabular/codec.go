package tabular

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
)

// ReadCSV decodes a CSV result body (first record is the header) into a
// Table. TAP services emit CSV when asked for FORMAT=csv.
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, ErrNoHeader
	}
	if err != nil {
		return nil, fmt.Errorf("tabular: reading header: %w", err)
	}

	t := &Table{Columns: header}
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("tabular: reading row %d: %w", len(t.Rows)+1, err)
		}
		if len(record) != len(header) {
			return nil, fmt.Errorf("%w: row %d has %d cells, header has %d",
				ErrRaggedRow, len(t.Rows)+1, len(record), len(header))
		}
		t.Rows = append(t.Rows, record)
	}
	return t, nil
}

// Encode serializes the table for cache storage.
func Encode(t *Table) ([]byte, error) {
	if err := t.validate(); err != nil {
		return nil, err
	}
	return json.Marshal(t)
}

// Decode deserializes a cached table. Payloads that do not decode to a
// well-formed table are rejected, so a corrupt cache entry reads as a miss
// rather than a bad result.
func Decode(data []byte) (*Table, error) {
	var t Table
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	if t.Columns == nil {
		return nil, ErrBadPayload
	}
	if err := t.validate(); err != nil {
		return nil, err
	}
	return &t, nil
}
