package dto

import (
	"github.com/jsamuelsen/quotedeck/internal/app"
	"github.com/jsamuelsen/quotedeck/internal/domain"
)

// QuoteResponse is a drawn or looked-up quote.
type QuoteResponse struct {
	Key         string  `json:"key"`
	Submitter   string  `json:"submitter"`
	Text        string  `json:"text"`
	Attribution *string `json:"attribution,omitempty"`
	Source      *string `json:"source,omitempty"`
	Embed       bool    `json:"embed,omitempty"`

	// Formatted is the text as it is posted, attribution included.
	Formatted string `json:"formatted"`

	// Position is the 1-based position in the collection, or "Test".
	Position string `json:"position"`
	Total    int    `json:"total"`
	Footer   string `json:"footer"`
}

// NewQuoteResponse converts a selection to its response form.
func NewQuoteResponse(sel *app.Selection) *QuoteResponse {
	q := sel.Quote

	return &QuoteResponse{
		Key:         sel.Key,
		Submitter:   q.Submitter,
		Text:        q.Text,
		Attribution: q.Attribution,
		Source:      q.Source,
		Embed:       q.Embed,
		Formatted:   domain.FormatQuoteText(q),
		Position:    sel.Position.String(),
		Total:       sel.Total,
		Footer:      domain.FormatFooter(sel.Position, sel.Total, q.Submitter),
	}
}

// SubmittersQuery holds the submitters listing parameters.
type SubmittersQuery struct {
	// Limit is the maximum number of submitters to return (1-100); 0 returns all.
	Limit int `form:"limit" validate:"omitempty,gte=1,lte=100"`
}

// SubmittersResponse lists submitters, most prolific first.
type SubmittersResponse struct {
	Submitters []domain.SubmitterCount `json:"submitters"`

	// Table is the dot-padded rendering used in chat.
	Table string `json:"table"`
}

// NewSubmittersResponse applies the query limit to counts.
func NewSubmittersResponse(counts []domain.SubmitterCount, q SubmittersQuery) *SubmittersResponse {
	if q.Limit > 0 && len(counts) > q.Limit {
		counts = counts[:q.Limit]
	}

	if counts == nil {
		counts = []domain.SubmitterCount{}
	}

	return &SubmittersResponse{
		Submitters: counts,
		Table:      domain.FormatSubmitterTable(counts),
	}
}

// QuarantineResponse carries the quarantine report text.
type QuarantineResponse struct {
	Report string `json:"report"`
	Empty  bool   `json:"empty"`
}

// PostRequest asks for an immediate post. An empty key posts a random
// quote; any other key posts that quote, or the test quote if it is missing.
type PostRequest struct {
	Key string `json:"key" validate:"omitempty,notempty,quotekey,max=200"`
}
