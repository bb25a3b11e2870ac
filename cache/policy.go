package cache

import "time"

// Policy configures caching behavior.
type Policy struct {
	// TTL is how long a stored entry stays valid. Zero means entries
	// never expire.
	TTL time.Duration

	// Disabled bypasses the store entirely: lookups always miss and
	// nothing is persisted.
	Disabled bool
}

// DefaultPolicy returns the default caching policy: one-week TTL, enabled.
func DefaultPolicy() Policy {
	return Policy{TTL: 7 * 24 * time.Hour}
}

// NoCachePolicy returns a policy that disables caching entirely.
func NoCachePolicy() Policy {
	return Policy{Disabled: true}
}

// Active reports whether the store should be consulted at all.
func (p Policy) Active() bool {
	return !p.Disabled
}

// Expired reports whether an entry stored at storedAt is stale at now.
func (p Policy) Expired(storedAt, now time.Time) bool {
	if p.TTL <= 0 {
		return false
	}
	return now.Sub(storedAt) > p.TTL
}
