package dedup

import (
	"github.com/hejijunhao/oktify/internal/model"
)

// Deduplicator drops rows whose event id was already seen in this run. Rows
// with distinct ids are always kept, even when their content is identical.
// Memory is bounded by the set of seen ids.
type Deduplicator struct {
	seen    map[string]struct{}
	dropped int
}

// New creates a Deduplicator with an empty seen set. Use one per run.
func New() *Deduplicator {
	return &Deduplicator{seen: make(map[string]struct{})}
}

// Keep reports whether row is the first occurrence of its event id and
// records the id.
func (d *Deduplicator) Keep(row model.NormalizedRow) bool {
	if _, ok := d.seen[row.EventID]; ok {
		d.dropped++
		return false
	}
	d.seen[row.EventID] = struct{}{}
	return true
}

// Dropped is the number of duplicates rejected so far.
func (d *Deduplicator) Dropped() int { return d.dropped }

// Seen is the number of distinct event ids kept so far.
func (d *Deduplicator) Seen() int { return len(d.seen) }
