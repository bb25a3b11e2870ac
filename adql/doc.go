// Package adql builds ADQL query strings for TAP services from structured
// filter specifications.
//
// It is a generator, not a parser: it turns known-shape inputs (column
// filters, cone-search coordinates, membership lists, row limits) into a
// deterministic query string. Determinism matters because downstream result
// caching keys on the exact query text.
package adql
