// Package codec converts between the TOML collection document and domain types.
//
// A document is a sequence of top-level tables, one per quote:
//
//	[q1]
//	submitter = "Alice"
//	quote = "Hello."
//	attribution = "Bob"
//
// Decoding is lenient: records that fail validation are routed to a
// Quarantine instead of failing the whole document.
package codec

import (
	"bytes"
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/jsamuelsen/quotedeck/internal/domain"
)

// TOML is the ports.CollectionCodec for TOML documents.
type TOML struct{}

// Decode implements ports.CollectionCodec.
func (TOML) Decode(text string) (*domain.Collection, *domain.Quarantine, error) {
	return Decode(text)
}

// Encode implements ports.CollectionCodec.
func (TOML) Encode(c *domain.Collection) (string, error) {
	return Encode(c)
}

// EncodeQuarantine implements ports.CollectionCodec.
func (TOML) EncodeQuarantine(q *domain.Quarantine) (string, error) {
	return EncodeQuarantine(q)
}

// record is the on-disk shape of a valid quote.
type record struct {
	Submitter   string  `toml:"submitter"`
	Text        string  `toml:"quote"`
	Attribution *string `toml:"attribution,omitempty"`
	Source      *string `toml:"source,omitempty"`
	Embed       bool    `toml:"embed,omitempty"`
}

func toRecord(q *domain.Quote) record {
	return record{
		Submitter:   q.Submitter,
		Text:        q.Text,
		Attribution: q.Attribution,
		Source:      q.Source,
		Embed:       q.Embed,
	}
}

// Decode parses a collection document.
// Whitespace-only input yields an empty collection. Records failing
// validation land in the returned quarantine with origin left blank for
// the caller to fill in.
func Decode(text string) (*domain.Collection, *domain.Quarantine, error) {
	collection := domain.NewCollection()
	quarantine := domain.NewQuarantine()

	if strings.TrimSpace(text) == "" {
		return collection, quarantine, nil
	}

	var doc map[string]any

	md, err := toml.Decode(text, &doc)
	if err != nil {
		return nil, nil, domain.NewMalformedDocumentError(err)
	}

	for _, name := range recordNames(md, doc) {
		raw := doc[name]

		result := domain.ValidateRecord(raw)
		if v, ok := domain.ValidateKey(name); !ok {
			result.Quote = nil
			result.Violations = append([]domain.Violation{v}, result.Violations...)
		}

		if result.Valid() {
			collection.Set(name, result.Quote)
			continue
		}

		quarantine.Add(&domain.QuarantinedRecord{
			Key:     name,
			Raw:     raw,
			Reasons: result.Violations,
		})
	}

	return collection, quarantine, nil
}

// recordNames lists the top-level keys of doc in declaration order. Dotted
// keys and sub-tables declare their record through the first segment, so
// a.quote = "..." and [a.b] both name record a.
func recordNames(md toml.MetaData, doc map[string]any) []string {
	names := make([]string, 0, len(doc))
	seen := make(map[string]bool, len(doc))

	for _, key := range md.Keys() {
		if len(key) == 0 || seen[key[0]] {
			continue
		}

		seen[key[0]] = true
		names = append(names, key[0])
	}

	var rest []string

	for name := range doc {
		if !seen[name] {
			rest = append(rest, name)
		}
	}

	slices.Sort(rest)

	return append(names, rest...)
}

// Encode renders a collection in its key order.
// Absent optional fields are omitted, as is embed when false.
func Encode(c *domain.Collection) (string, error) {
	var buf bytes.Buffer

	for i, key := range c.Keys() {
		q, _ := c.Get(key)

		if i > 0 {
			buf.WriteByte('\n')
		}

		if err := encodeTable(&buf, key, toRecord(q)); err != nil {
			return "", fmt.Errorf("encoding quote %q: %w", key, err)
		}
	}

	return buf.String(), nil
}

// EncodeQuarantine renders quarantined records as they were found, each
// preceded by comment lines naming its origin and every violation.
// Non-table records are written first so they stay top-level on reparse.
func EncodeQuarantine(q *domain.Quarantine) (string, error) {
	var buf bytes.Buffer

	records := q.Records()
	slices.SortStableFunc(records, func(a, b *domain.QuarantinedRecord) int {
		return cmp.Compare(tableRank(a.Raw), tableRank(b.Raw))
	})

	for i, r := range records {
		if i > 0 {
			buf.WriteByte('\n')
		}

		if r.Origin != "" {
			fmt.Fprintf(&buf, "# origin: %s\n", r.Origin)
		}

		for _, v := range r.Reasons {
			fmt.Fprintf(&buf, "# %s\n", commentSafe(v.String()))
		}

		if err := encodeTable(&buf, r.Key, r.Raw); err != nil {
			return "", fmt.Errorf("encoding quarantined record %q: %w", r.Key, err)
		}
	}

	return buf.String(), nil
}

func encodeTable(buf *bytes.Buffer, key string, value any) error {
	enc := toml.NewEncoder(buf)
	enc.Indent = ""

	return enc.Encode(map[string]any{key: value})
}

func tableRank(raw any) int {
	if _, ok := raw.(map[string]any); ok {
		return 1
	}

	return 0
}

func commentSafe(s string) string {
	return strings.ReplaceAll(s, "\n", " ")
}
