// Package retry implements bounded retry with exponential backoff.
//
// It is used for the archive's data-product downloads, where transient
// gateway errors are common for freshly staged files. Retries honor
// context cancellation and add jitter so concurrent downloads do not
// hammer the service in lockstep.
package retry
