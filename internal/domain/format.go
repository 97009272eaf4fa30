package domain

import (
	"cmp"
	"fmt"
	"math/rand/v2"
	"net/url"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"
)

// TestPosition is the position reported for the canned test quote.
const TestPosition = "Test"

// Position is where a quote sits in its collection: a 1-based number,
// or the "Test" sentinel when a specific lookup missed.
type Position struct {
	Index  int
	IsTest bool
}

// NumberedPosition returns a numeric position.
func NumberedPosition(i int) Position {
	return Position{Index: i}
}

// String renders the position for footers and API responses.
func (p Position) String() string {
	if p.IsTest {
		return TestPosition
	}

	return strconv.Itoa(p.Index)
}

// FallbackQuote is posted when a specific key is not in the collection.
func FallbackQuote() *Quote {
	return &Quote{
		Submitter: "Tester",
		Text:      "*Testing* - [Links work too!](https://www.google.co.uk)",
	}
}

// FormatQuoteText renders a quote body for posting.
// Attribution is appended as " ~name". Sentence gaps are widened to two
// spaces unless the text holds a ''' code fence.
func FormatQuoteText(q *Quote) string {
	text := q.Text
	if q.Attribution != nil {
		text += " ~" + *q.Attribution
	}

	if !strings.Contains(text, "'''") {
		text = strings.ReplaceAll(text, ". ", ".  ")
		text = strings.ReplaceAll(text, ".   ", ".  ")
	}

	return text
}

// FormatFooter renders the position line under a posted quote.
func FormatFooter(pos Position, total int, submitter string) string {
	return fmt.Sprintf("Quote %s/%d, Submitted by %s", pos, total, submitter)
}

var swackLevels = []string{
	"Maximum Swack!",
	"A Modicum of Swack",
	"Level of Swack: undefined",
	"Possibility of Swack",
	"Swack mode uninitialised",
	"All of the Swack",
	"None of the Swack",
	"The Swackening",
	"The Swack to end all Swack",
	"The one true Swack",
	"Just a casual Swack",
	"One Swack, mildly tepid",
	"Is this the real Swack, or is this just fantasy?",
	"Hello, Swack!",
	"Not an ounce of Swack in the building",
	"One Swack; ice and a slice",
	"Am I Swacking correctly?",
	"Unexpected Loss in the Swacking area",
	"Do you even Swack?",
	"We're Swacking off at 1PM, right?",
	"Swack™",
	"Incorrect usage of the Swack!",
	"Ilicit Swacking Equipment",
	"Swæk",
	"The Swack are not what they seem",
	"All your Swack are belong to us",
	"Swacked, not stirred",
}

// SwackLevel picks a title for a posted quote.
func SwackLevel() string {
	return swackLevels[rand.IntN(len(swackLevels))] //nolint:gosec // cosmetic choice
}

// SwackLevels returns every title SwackLevel can pick.
func SwackLevels() []string {
	out := make([]string, len(swackLevels))
	copy(out, swackLevels)

	return out
}

var urlPattern = regexp.MustCompile(`(?i)^https?://[^\s/$.?#].[^\s]*$`)

// IsURL reports whether s looks like a link the chat platform will render.
// Absolute URLs with a host pass; anything else gets the looser http(s) pattern.
func IsURL(s string) bool {
	u, err := url.Parse(s)
	if err == nil && u.Scheme != "" && u.Host != "" {
		return true
	}

	return urlPattern.MatchString(s)
}

// LinkMarker is appended to a title that links to the quote's source.
const LinkMarker = " \U0001F517"

// dayOrdinals keeps the bot's house style, "7nth" and "8h" included.
var dayOrdinals = map[int]string{
	1: "st", 2: "nd", 3: "rd", 7: "nth", 8: "h",
	17: "nth", 18: "h",
	21: "st", 22: "nd", 23: "rd", 27: "nth", 28: "h",
	31: "st",
}

// FormatDate renders t as "Monday 1st January 2024" in UTC.
func FormatDate(t time.Time) string {
	t = t.UTC()

	suffix, ok := dayOrdinals[t.Day()]
	if !ok {
		suffix = "th"
	}

	return fmt.Sprintf("%s %d%s %s %d", t.Weekday(), t.Day(), suffix, t.Month(), t.Year())
}

// SubmitterCount is how many quotes one submitter contributed.
type SubmitterCount struct {
	Submitter string `json:"submitter"`
	Count     int    `json:"count"`
}

// CountSubmitters tallies quotes per submitter, most prolific first,
// ties broken by name.
func CountSubmitters(c *Collection) []SubmitterCount {
	tally := make(map[string]int)

	for _, key := range c.keys {
		tally[c.quotes[key].Submitter]++
	}

	out := make([]SubmitterCount, 0, len(tally))
	for name, n := range tally {
		out = append(out, SubmitterCount{Submitter: name, Count: n})
	}

	slices.SortFunc(out, func(a, b SubmitterCount) int {
		return cmp.Or(cmp.Compare(b.Count, a.Count), cmp.Compare(a.Submitter, b.Submitter))
	})

	return out
}

// FormatSubmitterTable lays counts out as a dot-padded fenced block:
//
//	Alice . 12
//	Bob .... 3
func FormatSubmitterTable(counts []SubmitterCount) string {
	if len(counts) == 0 {
		return "```\n```"
	}

	padName, padNum := 0, 0
	for _, sc := range counts {
		padName = max(padName, len(sc.Submitter)+1)
		padNum = max(padNum, len(strconv.Itoa(sc.Count))+1)
	}

	lines := []string{"```"}
	for _, sc := range counts {
		name := sc.Submitter + " "
		num := " " + strconv.Itoa(sc.Count)

		lines = append(lines, name+strings.Repeat(".", padName-len(name))+"."+
			strings.Repeat(".", padNum-len(num))+num)
	}

	lines = append(lines, "```")

	return strings.Join(lines, "\n")
}
