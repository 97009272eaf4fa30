package domain

// MaxTextBytes is the platform message-length ceiling for quote text, in UTF-8 bytes.
const MaxTextBytes = 4000

// Record field names as they appear in the collection document.
const (
	FieldSubmitter   = "submitter"
	FieldText        = "quote"
	FieldAttribution = "attribution"
	FieldSource      = "source"
	FieldEmbed       = "embed"
)

// KnownFields lists the recognized record fields in canonical order.
var KnownFields = []string{FieldSubmitter, FieldText, FieldAttribution, FieldSource, FieldEmbed}

// Quote is a validated record from the collection.
// This is a domain entity - it has no knowledge of the on-disk format.
type Quote struct {
	// Submitter is who added the quote to the collection.
	Submitter string

	// Text is the body of the quote.
	Text string

	// Attribution is who said or wrote the quote, if known.
	Attribution *string

	// Source is where the quote came from, typically a URL.
	Source *string

	// Embed requests that Source be posted as a standalone follow-up message.
	Embed bool
}

// Equal reports whether two quotes carry the same content.
func (q *Quote) Equal(other *Quote) bool {
	if q == nil || other == nil {
		return q == other
	}

	return q.Submitter == other.Submitter &&
		q.Text == other.Text &&
		equalOptional(q.Attribution, other.Attribution) &&
		equalOptional(q.Source, other.Source) &&
		q.Embed == other.Embed
}

// AttributionOr returns the attribution or fallback when absent.
func (q *Quote) AttributionOr(fallback string) string {
	if q.Attribution == nil {
		return fallback
	}

	return *q.Attribution
}

// SourceOr returns the source or fallback when absent.
func (q *Quote) SourceOr(fallback string) string {
	if q.Source == nil {
		return fallback
	}

	return *q.Source
}

// Ptr returns a pointer to s. Handy for optional quote fields.
func Ptr(s string) *string {
	return &s
}

func equalOptional(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}

	return *a == *b
}

// QuarantinedRecord is a raw record that failed validation.
// It is kept for operator review and never enters a Collection or Deck.
type QuarantinedRecord struct {
	// Key is the record's identifier in the source document.
	Key string

	// Raw is the record exactly as decoded from the document.
	Raw any

	// Reasons lists every violation found, in field order.
	Reasons []Violation

	// Origin names the document the record came from ("local" or "remote").
	Origin string
}
