package tap

import (
	"errors"
	"fmt"
)

// Sentinel errors for the TAP client.
var (
	ErrNoEndpoint = errors.New("tap: endpoint is empty")
	ErrNilClient  = errors.New("tap: client is nil")
)

// QueryError is a query fault reported by the remote service. It always
// carries the query text for diagnosability.
type QueryError struct {
	Query  string
	Status int
	Reason string
}

func (e *QueryError) Error() string {
	reason := e.Reason
	if reason == "" {
		reason = fmt.Sprintf("service returned status %d", e.Status)
	}
	return fmt.Sprintf("tap: query failed: %s (query: %s)", reason, e.Query)
}
