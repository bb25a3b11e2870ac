package tap

import "github.com/jonwraymond/esotap/tabular"

// Result is the outcome of a successful query execution.
type Result struct {
	// Table is the decoded result, possibly with zero rows.
	Table *tabular.Table

	// Empty marks a syntactically valid query that matched nothing. It
	// is advisory: callers may retry or accept the emptiness. Empty
	// results are never cached.
	Empty bool

	// FromCache reports whether the table was served from the cache.
	FromCache bool
}
