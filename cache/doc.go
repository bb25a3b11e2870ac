// Package cache persists query results on disk, keyed by a deterministic
// fingerprint of the query text and the endpoint it ran against.
//
// A lookup miss is a normal control-flow outcome, never an error: missing
// files, expired entries and undecodable payloads all read as misses and
// trigger a live fetch upstream.
package cache
