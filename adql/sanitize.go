package adql

import "strings"

// quoteIfNeeded wraps s in single quotes unless it is already
// single-quote-delimited. Re-sanitizing an already quoted value never
// double-quotes it.
func quoteIfNeeded(s string) string {
	if len(s) >= 2 && strings.HasPrefix(s, "'") && strings.HasSuffix(s, "'") {
		return s
	}
	return "'" + s + "'"
}

// SanitizeLiteral renders v as an ADQL literal fragment. Numbers render
// unquoted; strings are single-quoted unless already quoted.
func SanitizeLiteral(v Value) string {
	switch v.kind {
	case kindNumber:
		return formatNumber(v.num)
	case kindExpr:
		return v.str
	default:
		return quoteIfNeeded(v.str)
	}
}

// SanitizeOperatorValue renders v as the right-hand side of a WHERE
// fragment, operator included.
//
// String values of the form "<operator> <value>" keep the operator and the
// value verbatim; the value half is not quoted, so the caller is
// responsible for quoting where the operator needs it. Any other string is
// treated as a literal: quoted once and prefixed with "=". An unrecognized
// leading token is part of the value, not an operator. Non-string values
// always render as "= <value>" with no quoting.
//
// No injection hardening happens here beyond quote wrapping; inputs are
// caller-provided filter values, not end-user text.
func SanitizeOperatorValue(v Value) string {
	switch v.kind {
	case kindNumber:
		return "= " + formatNumber(v.num)
	case kindExpr:
		return v.op + " " + v.str
	}

	s := strings.TrimSpace(v.str)
	if op, rest, ok := strings.Cut(s, " "); ok && IsOperator(op) {
		return op + " " + rest
	}
	return "= " + quoteIfNeeded(s)
}
