package adql

import (
	"fmt"
	"strconv"
	"strings"
)

// Operators accepted in operator-qualified filter values.
var operators = map[string]bool{
	"=":       true,
	">":       true,
	"<":       true,
	"<=":      true,
	">=":      true,
	"!=":      true,
	"like":    true,
	"between": true,
	"in":      true,
}

// IsOperator reports whether tok is a supported comparison operator.
// Matching is case-insensitive.
func IsOperator(tok string) bool {
	return operators[strings.ToLower(tok)]
}

type valueKind int

const (
	kindNumber valueKind = iota
	kindString
	kindExpr
)

// Value is a filter value: a number, a raw string, or an operator-qualified
// expression. The zero Value renders as an empty quoted string.
type Value struct {
	kind valueKind
	num  float64
	str  string
	op   string
}

// Number returns a numeric filter value. It renders unquoted.
func Number(v float64) Value {
	return Value{kind: kindNumber, num: v}
}

// String returns a raw string filter value. A leading operator token in the
// string is recognized by the sanitizer; anything else is treated as a
// literal and quoted.
func String(s string) Value {
	return Value{kind: kindString, str: s}
}

// Expr returns an operator-qualified filter value. The right-hand side is
// passed through verbatim, so the caller includes any quoting the operator
// needs (e.g. "in ('a', 'b')" lists or "like '%x%'" patterns).
func Expr(op, rhs string) (Value, error) {
	if !IsOperator(op) {
		return Value{}, fmt.Errorf("%w: %q", ErrUnknownOperator, op)
	}
	return Value{kind: kindExpr, op: op, str: rhs}, nil
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
