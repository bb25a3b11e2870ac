// Package tap executes ADQL queries against a TAP (Table Access Protocol)
// endpoint and orchestrates the on-disk result cache and the auth session
// around each execution.
//
// A query that runs but matches nothing is a distinct, non-fatal outcome
// (Result.Empty), separate from a service-side query fault, which is a
// *QueryError carrying the offending query text.
package tap
