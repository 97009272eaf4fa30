// Package clients provides the outbound HTTP client used to fetch the
// quote collection and deliver webhook posts.
package clients

import "errors"

// Transport-level failures. Callers translate them into domain errors.
var (
	// ErrCircuitOpen is returned while the circuit breaker is blocking requests.
	ErrCircuitOpen = errors.New("circuit breaker open")

	// ErrMaxRetriesExceeded wraps the last failure once every attempt is used up.
	ErrMaxRetriesExceeded = errors.New("max retries exceeded")
)
