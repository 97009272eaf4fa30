// Package ports defines interfaces for external dependencies.
// Ports are contracts that adapters implement, allowing the application layer
// to depend on abstractions rather than concrete implementations.
//
// Port Design Principles:
//   - Context as first parameter (always) for cancellation and deadlines
//   - Return domain types or plain text, never transport types
//   - Error returns use domain error types (ErrUnavailable, ErrNotFound, etc.)
//   - Keep interfaces small and focused
package ports

import (
	"context"

	"github.com/jsamuelsen/quotedeck/internal/domain"
)

// CollectionSource fetches the canonical collection document.
//
// Example usage in application layer:
//
//	text, err := source.FetchCollection(ctx)
//	if err != nil {
//	    // treat the remote as unavailable this cycle
//	}
type CollectionSource interface {
	// FetchCollection returns the raw document text.
	// Returns domain.ErrUnavailable when the source cannot be reached,
	// answers with a non-success status, or its circuit is open.
	FetchCollection(ctx context.Context) (string, error)
}

// CollectionCodec converts between document text and collections.
type CollectionCodec interface {
	// Decode parses a document. Invalid records go to the quarantine;
	// only an unparseable document is an error (domain.ErrMalformedDocument).
	Decode(text string) (*domain.Collection, *domain.Quarantine, error)

	// Encode renders a collection so that Decode returns it unchanged.
	Encode(c *domain.Collection) (string, error)

	// EncodeQuarantine renders quarantined records for operator review.
	EncodeQuarantine(q *domain.Quarantine) (string, error)
}

// StateStore persists the local copy of the collection and the deck state.
// Every write replaces the whole file; a crash never leaves a partial file.
type StateStore interface {
	// ReadCollection returns the local collection document, "" if absent.
	ReadCollection(ctx context.Context) (string, error)

	// WriteCollection replaces the local collection document.
	WriteCollection(ctx context.Context, text string) error

	// ReadQuarantine returns the quarantine report, "" if absent.
	ReadQuarantine(ctx context.Context) (string, error)

	// WriteQuarantine replaces the quarantine report. An empty text clears it.
	WriteQuarantine(ctx context.Context, text string) error

	// ReadDeck returns the keys still eligible this cycle, in stored order.
	ReadDeck(ctx context.Context) ([]string, error)

	// WriteDeck replaces the deck.
	WriteDeck(ctx context.Context, keys []string) error

	// ReadHistory returns every drawn key, oldest first.
	ReadHistory(ctx context.Context) ([]string, error)

	// WriteHistory replaces the history.
	WriteHistory(ctx context.Context, keys []string) error
}

// Message is a rendered post for the chat channel.
type Message struct {
	// Title is the heading line, such as a swack level.
	Title string

	// Body is the formatted quote text or report.
	Body string

	// Footer carries position and submitter.
	Footer string

	// URL links the title to the quote's source, if it has one.
	URL string
}

// Publisher delivers messages to the chat channel.
type Publisher interface {
	// Publish sends a single message.
	// Returns domain.ErrUnavailable if the channel cannot be reached.
	Publish(ctx context.Context, msg Message) error
}
