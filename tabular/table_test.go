package tabular

import (
	"errors"
	"strings"
	"testing"
)

func sampleTable() *Table {
	return &Table{
		Columns: []string{"object", "ra", "dec"},
		Types:   []string{"char", "double", "double"},
		Rows: [][]string{
			{"M83", "204.25", "-29.87"},
			{"NGC 300", "13.72", "-37.68"},
		},
	}
}

func TestReadCSV(t *testing.T) {
	body := "object,ra,dec\nM83,204.25,-29.87\nNGC 300,13.72,-37.68\n"
	tbl, err := ReadCSV(strings.NewReader(body))
	if err != nil {
		t.Fatalf("ReadCSV failed: %v", err)
	}
	if len(tbl.Columns) != 3 {
		t.Errorf("got %d columns, want 3", len(tbl.Columns))
	}
	if tbl.NumRows() != 2 {
		t.Errorf("got %d rows, want 2", tbl.NumRows())
	}
	if tbl.Rows[1][0] != "NGC 300" {
		t.Errorf("row order not preserved: %v", tbl.Rows)
	}
}

func TestReadCSV_Empty(t *testing.T) {
	if _, err := ReadCSV(strings.NewReader("")); !errors.Is(err, ErrNoHeader) {
		t.Errorf("empty body err = %v, want ErrNoHeader", err)
	}
}

func TestReadCSV_HeaderOnly(t *testing.T) {
	tbl, err := ReadCSV(strings.NewReader("object,ra\n"))
	if err != nil {
		t.Fatalf("ReadCSV failed: %v", err)
	}
	if tbl.NumRows() != 0 {
		t.Errorf("got %d rows, want 0", tbl.NumRows())
	}
}

func TestReadCSV_RaggedRow(t *testing.T) {
	if _, err := ReadCSV(strings.NewReader("a,b\n1\n")); !errors.Is(err, ErrRaggedRow) {
		t.Errorf("ragged row err = %v, want ErrRaggedRow", err)
	}
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	orig := sampleTable()
	data, err := Encode(orig)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	got, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !got.Equal(orig) {
		t.Errorf("round trip changed table: %+v vs %+v", got, orig)
	}
}

func TestDecode_BadPayload(t *testing.T) {
	for _, payload := range []string{"", "not json", "42", `{"rows":[["a"]]}`} {
		if _, err := Decode([]byte(payload)); err == nil {
			t.Errorf("Decode(%q) should fail", payload)
		}
	}
}

func TestColumn(t *testing.T) {
	tbl := sampleTable()
	vals, err := tbl.Column("ra")
	if err != nil {
		t.Fatalf("Column failed: %v", err)
	}
	if len(vals) != 2 || vals[0] != "204.25" {
		t.Errorf("Column returned %v", vals)
	}
	if _, err := tbl.Column("nope"); err == nil {
		t.Error("Column with unknown name should fail")
	}
}

func TestReorder(t *testing.T) {
	tbl := &Table{
		Columns: []string{"exposure", "object", "dec", "ra"},
		Rows:    [][]string{{"30", "M83", "-29.87", "204.25"}},
	}
	got := Reorder(tbl, LeadColumnsRaw)
	wantCols := []string{"object", "ra", "dec", "exposure"}
	for i, c := range wantCols {
		if got.Columns[i] != c {
			t.Fatalf("Reorder columns = %v, want %v", got.Columns, wantCols)
		}
	}
	wantRow := []string{"M83", "204.25", "-29.87", "30"}
	for i, c := range wantRow {
		if got.Rows[0][i] != c {
			t.Fatalf("Reorder row = %v, want %v", got.Rows[0], wantRow)
		}
	}
	// Original is untouched.
	if tbl.Columns[0] != "exposure" {
		t.Error("Reorder mutated its input")
	}
}
