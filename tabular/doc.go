// Package tabular holds the result-table representation shared by the TAP
// transport and the on-disk cache, with codecs that round-trip column
// names, declared types and row order exactly.
package tabular
