package adql

import (
	"fmt"
	"time"
)

// Deprecated filter keys and the guidance reported when they are used.
var deprecatedKeys = map[string]string{
	"box":    "use cone_ra, cone_dec and cone_radius instead",
	"coord1": "use cone_ra, cone_dec and cone_radius instead",
	"coord2": "use cone_ra, cone_dec and cone_radius instead",
	"stime":  "use an operator-qualified exp_time filter instead",
	"etime":  "use an operator-qualified exp_time filter instead",
}

// ConeSearch selects records whose sky position falls within Radius degrees
// of (RA, Dec). A radius of zero is a valid point search.
type ConeSearch struct {
	RA     float64
	Dec    float64
	Radius float64
}

// NewCone builds a cone search from optional coordinates. All three must be
// present, or all three absent (nil cone); anything partial is a
// construction error, never a silent default.
func NewCone(ra, dec, radius *float64) (*ConeSearch, error) {
	if ra == nil && dec == nil && radius == nil {
		return nil, nil
	}
	if ra == nil || dec == nil || radius == nil {
		return nil, fmt.Errorf("%w (ra=%v, dec=%v, radius=%v)",
			ErrPartialCone, ptrStr(ra), ptrStr(dec), ptrStr(radius))
	}
	return &ConeSearch{RA: *ra, Dec: *dec, Radius: *radius}, nil
}

func ptrStr(f *float64) string {
	if f == nil {
		return "unset"
	}
	return formatNumber(*f)
}

// OrderBy is an optional result ordering directive.
type OrderBy struct {
	Column     string
	Descending bool
}

// PrimaryFilter is the leading membership clause of a query, e.g. an
// instrument or collection name list. An empty value list omits the clause.
type PrimaryFilter struct {
	Column string
	Values []string
}

// QuerySpec is the builder's input. It is constructed per call, consumed
// once by Build and discarded.
type QuerySpec struct {
	Table     string
	Columns   []string
	Primary   PrimaryFilter
	Filters   map[string]Value
	Cone      *ConeSearch
	OrderBy   *OrderBy
	Top       *int
	CountOnly bool
}

const timestampLayout = "2006-01-02 15:04:05"

// ValidateTimestamp checks the "YYYY-MM-DD hh:mm:ss" format used by
// observation-date constraints. Empty strings are valid (no constraint).
func ValidateTimestamp(ts string) error {
	if ts == "" {
		return nil
	}
	if _, err := time.Parse(timestampLayout, ts); err != nil {
		return fmt.Errorf("%w: %q", ErrBadTimestamp, ts)
	}
	return nil
}

// ValidateTimeRange checks both bounds and their ordering. Either bound may
// be empty.
func ValidateTimeRange(start, end string) error {
	if err := ValidateTimestamp(start); err != nil {
		return err
	}
	if err := ValidateTimestamp(end); err != nil {
		return err
	}
	if start != "" && end != "" && start >= end {
		return fmt.Errorf("%w (start=%q, end=%q)", ErrTimeOrder, start, end)
	}
	return nil
}
