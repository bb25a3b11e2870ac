package adql

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Build renders spec into an ADQL query string. It is pure and
// deterministic: the same spec always yields byte-identical output, so the
// query text can serve as a cache fingerprint. Keyword casing is lowercase
// throughout.
//
// WHERE fragments are emitted in a fixed order: the primary membership
// clause, then per-column filters in sorted column order, then the
// cone-search clause, joined with "and". A spec with no constraints yields
// a query with no WHERE clause at all.
func Build(spec QuerySpec) (string, error) {
	if strings.TrimSpace(spec.Table) == "" {
		return "", ErrEmptyTable
	}
	for key := range spec.Filters {
		if hint, ok := deprecatedKeys[strings.ToLower(key)]; ok {
			return "", fmt.Errorf("%w %q: %s", ErrDeprecatedKey, key, hint)
		}
	}

	columns := spec.Columns
	if len(columns) == 0 {
		columns = []string{"*"}
	}
	if spec.CountOnly {
		columns = []string{"count(*)"}
	}

	var where []string
	if len(spec.Primary.Values) > 0 {
		quoted := make([]string, len(spec.Primary.Values))
		for i, v := range spec.Primary.Values {
			quoted[i] = quoteIfNeeded(strings.TrimSpace(v))
		}
		where = append(where, spec.Primary.Column+" in ("+strings.Join(quoted, ", ")+")")
	}

	// Sorted for determinism; the clauses are conjunctive, so ordering
	// never changes the result set.
	filterCols := make([]string, 0, len(spec.Filters))
	for col := range spec.Filters {
		filterCols = append(filterCols, col)
	}
	sort.Strings(filterCols)
	for _, col := range filterCols {
		where = append(where, col+" "+SanitizeOperatorValue(spec.Filters[col]))
	}

	if spec.Cone != nil {
		where = append(where, fmt.Sprintf("intersects(s_region, circle('ICRS', %s, %s, %s))=1",
			formatNumber(spec.Cone.RA), formatNumber(spec.Cone.Dec), formatNumber(spec.Cone.Radius)))
	}

	var b strings.Builder
	b.WriteString("select ")
	if spec.Top != nil {
		b.WriteString("top " + strconv.Itoa(*spec.Top) + " ")
	}
	b.WriteString(strings.Join(columns, ", "))
	b.WriteString(" from ")
	b.WriteString(spec.Table)
	if len(where) > 0 {
		b.WriteString(" where ")
		b.WriteString(strings.Join(where, " and "))
	}
	if spec.OrderBy != nil {
		b.WriteString(" order by " + spec.OrderBy.Column)
		if spec.OrderBy.Descending {
			b.WriteString(" desc")
		} else {
			b.WriteString(" asc")
		}
	}
	return b.String(), nil
}
