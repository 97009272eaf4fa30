package acl

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/jsamuelsen/quotedeck/internal/adapters/clients"
	"github.com/jsamuelsen/quotedeck/internal/domain"
)

// maxErrorSnippet bounds how much of an error body ends up in a message.
const maxErrorSnippet = 200

// MapHTTPError maps a failed exchange to a domain error.
// resp may be nil when clientErr is set. A 2xx response maps to nil.
func MapHTTPError(resp *http.Response, clientErr error, serviceName, operation, entityID string) error {
	if clientErr != nil {
		return mapClientError(clientErr, serviceName, operation)
	}

	if resp == nil {
		return domain.NewUnavailableError(serviceName, "no response received")
	}

	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		return nil
	}

	if resp.StatusCode == http.StatusNotFound {
		return domain.NewNotFoundError(serviceName, entityID)
	}

	message := fmt.Sprintf("%s failed with status %d", operation, resp.StatusCode)
	if snippet := readSnippet(resp.Body); snippet != "" {
		message += ": " + snippet
	}

	return domain.NewUnavailableError(serviceName, message)
}

func mapClientError(err error, serviceName, operation string) error {
	switch {
	case errors.Is(err, clients.ErrCircuitOpen):
		return domain.NewUnavailableError(serviceName,
			fmt.Sprintf("circuit breaker open during %s", operation))

	case errors.Is(err, clients.ErrMaxRetriesExceeded):
		return domain.NewUnavailableError(serviceName,
			fmt.Sprintf("max retries exceeded during %s", operation))

	default:
		return domain.NewUnavailableError(serviceName,
			fmt.Sprintf("%s failed: %v", operation, err))
	}
}

func readSnippet(body io.Reader) string {
	if body == nil {
		return ""
	}

	b, err := io.ReadAll(io.LimitReader(body, maxErrorSnippet))
	if err != nil {
		return ""
	}

	return strings.TrimSpace(string(b))
}
