package domain

// Collection is an ordered mapping of key to Quote.
// Iteration order is declaration order in the source document; it only
// matters for display (the "quote N of M" position).
type Collection struct {
	keys   []string
	quotes map[string]*Quote
}

// NewCollection creates an empty collection.
func NewCollection() *Collection {
	return &Collection{quotes: make(map[string]*Quote)}
}

// Set adds or replaces the quote under key.
// A new key is appended to the end; replacing keeps the original position.
func (c *Collection) Set(key string, q *Quote) {
	if _, ok := c.quotes[key]; !ok {
		c.keys = append(c.keys, key)
	}

	c.quotes[key] = q
}

// Delete removes key from the collection, if present.
func (c *Collection) Delete(key string) {
	if _, ok := c.quotes[key]; !ok {
		return
	}

	delete(c.quotes, key)

	for i, k := range c.keys {
		if k == key {
			c.keys = append(c.keys[:i], c.keys[i+1:]...)
			break
		}
	}
}

// Get returns the quote for key.
func (c *Collection) Get(key string) (*Quote, bool) {
	q, ok := c.quotes[key]
	return q, ok
}

// Has reports whether key is in the collection.
func (c *Collection) Has(key string) bool {
	_, ok := c.quotes[key]
	return ok
}

// Keys returns the keys in declaration order.
func (c *Collection) Keys() []string {
	out := make([]string, len(c.keys))
	copy(out, c.keys)

	return out
}

// Len returns the number of quotes.
func (c *Collection) Len() int {
	return len(c.keys)
}

// Position returns the 1-based position of key, or 0 if absent.
func (c *Collection) Position(key string) int {
	for i, k := range c.keys {
		if k == key {
			return i + 1
		}
	}

	return 0
}

// Equal reports structural equality: same keys with equal quotes.
// Order is not part of equality.
func (c *Collection) Equal(other *Collection) bool {
	if c.Len() != other.Len() {
		return false
	}

	for key, q := range c.quotes {
		oq, ok := other.quotes[key]
		if !ok || !q.Equal(oq) {
			return false
		}
	}

	return true
}

// Change is an old/new pair for a key present on both sides of a diff.
type Change struct {
	Key string
	Old *Quote
	New *Quote
}

// Diff describes how to get from one collection to another.
type Diff struct {
	Additions []string
	Removals  []string
	Changes   []Change
}

// Empty reports whether the diff has nothing in it.
func (d *Diff) Empty() bool {
	return len(d.Additions) == 0 && len(d.Removals) == 0 && len(d.Changes) == 0
}

// DiffCollections computes the additions, removals and changes from old to updated.
// Additions and changes follow updated's order; removals follow old's order.
func DiffCollections(old, updated *Collection) *Diff {
	d := &Diff{}

	for _, key := range updated.keys {
		nq := updated.quotes[key]

		oq, ok := old.quotes[key]
		switch {
		case !ok:
			d.Additions = append(d.Additions, key)
		case !oq.Equal(nq):
			d.Changes = append(d.Changes, Change{Key: key, Old: oq, New: nq})
		}
	}

	for _, key := range old.keys {
		if !updated.Has(key) {
			d.Removals = append(d.Removals, key)
		}
	}

	return d
}

// Quarantine is an ordered set of records that failed validation.
type Quarantine struct {
	keys    []string
	records map[string]*QuarantinedRecord
}

// NewQuarantine creates an empty quarantine.
func NewQuarantine() *Quarantine {
	return &Quarantine{records: make(map[string]*QuarantinedRecord)}
}

// Add stores r, replacing any record with the same key in place.
func (q *Quarantine) Add(r *QuarantinedRecord) {
	if _, ok := q.records[r.Key]; !ok {
		q.keys = append(q.keys, r.Key)
	}

	q.records[r.Key] = r
}

// Get returns the quarantined record for key.
func (q *Quarantine) Get(key string) (*QuarantinedRecord, bool) {
	r, ok := q.records[key]
	return r, ok
}

// Records returns the records in insertion order.
func (q *Quarantine) Records() []*QuarantinedRecord {
	out := make([]*QuarantinedRecord, 0, len(q.keys))
	for _, k := range q.keys {
		out = append(out, q.records[k])
	}

	return out
}

// Len returns the number of quarantined records.
func (q *Quarantine) Len() int {
	return len(q.keys)
}

// Union returns a new quarantine holding q's records then other's.
// On a key clash other's record wins.
func (q *Quarantine) Union(other *Quarantine) *Quarantine {
	out := NewQuarantine()
	for _, r := range q.Records() {
		out.Add(r)
	}

	for _, r := range other.Records() {
		out.Add(r)
	}

	return out
}
