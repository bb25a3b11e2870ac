package adql

import "errors"

// Sentinel errors for query construction. All of them surface before any
// network call is made.
var (
	ErrEmptyTable      = errors.New("adql: table name is empty")
	ErrDeprecatedKey   = errors.New("adql: deprecated filter key")
	ErrPartialCone     = errors.New("adql: cone search requires all of ra, dec and radius or none of them")
	ErrUnknownOperator = errors.New("adql: unknown operator")
	ErrBadTimestamp    = errors.New("adql: timestamp must be in the format YYYY-MM-DD hh:mm:ss")
	ErrTimeOrder       = errors.New("adql: start time must be earlier than end time")
)
