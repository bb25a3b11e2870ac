package tabular

// Preferred leading columns for raw-data and phase-3 results.
var (
	LeadColumnsRaw    = []string{"object", "ra", "dec", "dp_id", "date_obs", "prog_id"}
	LeadColumnsPhase3 = []string{"target_name", "s_ra", "s_dec", "dp_id", "date_obs", "proposal_id"}
)

// Reorder returns a copy of t with any of the leading columns moved to the
// front, in the given order. Columns not present are skipped; everything
// else keeps its relative order. Row order is unchanged.
func Reorder(t *Table, leading []string) *Table {
	if t == nil {
		return nil
	}

	order := make([]int, 0, len(t.Columns))
	taken := make(map[int]bool, len(leading))
	for _, name := range leading {
		if idx := t.ColumnIndex(name); idx >= 0 {
			order = append(order, idx)
			taken[idx] = true
		}
	}
	for i := range t.Columns {
		if !taken[i] {
			order = append(order, i)
		}
	}

	out := &Table{
		Columns: make([]string, len(order)),
		Rows:    make([][]string, len(t.Rows)),
	}
	if len(t.Types) == len(t.Columns) {
		out.Types = make([]string, len(order))
	}
	for dst, src := range order {
		out.Columns[dst] = t.Columns[src]
		if out.Types != nil {
			out.Types[dst] = t.Types[src]
		}
	}
	for i, row := range t.Rows {
		newRow := make([]string, len(order))
		for dst, src := range order {
			newRow[dst] = row[src]
		}
		out.Rows[i] = newRow
	}
	return out
}
