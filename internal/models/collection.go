package models

import (
	"slices"

	"cloud.google.com/go/civil"
)

// Collection is an ordered sequence of relations. It keeps insertion order and
// does not deduplicate: two observations of one identity stay two entries, so
// membership checks collapse them while counts treat them as separate events.
//
// A Collection is never mutated after construction and is safe for concurrent
// reads.
type Collection struct {
	relations []Relation
}

// NewCollection returns a Collection holding a copy of records in their given
// order.
func NewCollection(records []Relation) Collection {
	return Collection{relations: slices.Clone(records)}
}

// Len returns the number of entries, duplicates included.
func (c Collection) Len() int { return len(c.relations) }

// Relations returns a copy of the entries in insertion order.
func (c Collection) Relations() []Relation { return slices.Clone(c.relations) }

// Identities returns the set of identities present in the collection.
func (c Collection) Identities() map[string]struct{} {
	set := make(map[string]struct{}, len(c.relations))
	for _, r := range c.relations {
		set[ByIdentity.Key(r)] = struct{}{}
	}
	return set
}

// Contains reports whether any entry has r's identity.
func (c Collection) Contains(r Relation) bool {
	return slices.ContainsFunc(c.relations, func(e Relation) bool { return ByIdentity.Equal(e, r) })
}

// SortedByIdentity returns the entries stably sorted by identity; entries with
// the same identity keep their relative order.
func (c Collection) SortedByIdentity() []Relation {
	sorted := slices.Clone(c.relations)
	slices.SortStableFunc(sorted, ByIdentity.Compare)
	return sorted
}

// GroupByObservedDate partitions the entries by observation date and returns
// one DateCount per date in ascending date order. Entries need not be adjacent
// to land in the same group. If any entry cannot be dated the whole grouping
// fails.
func (c Collection) GroupByObservedDate() ([]DateCount, error) {
	counts := make(map[civil.Date]int)
	for _, r := range c.relations {
		d, err := r.ObservedDate()
		if err != nil {
			return nil, err
		}
		counts[d]++
	}

	groups := make([]DateCount, 0, len(counts))
	for d, n := range counts {
		groups = append(groups, DateCount{Date: d, Count: n})
	}
	slices.SortFunc(groups, func(a, b DateCount) int { return compareDates(a.Date, b.Date) })
	return groups, nil
}

// CountObservedOnOrBefore counts the entries observed on or before date.
func (c Collection) CountObservedOnOrBefore(date civil.Date) (int, error) {
	n := 0
	for _, r := range c.relations {
		d, err := r.ObservedDate()
		if err != nil {
			return 0, err
		}
		if !d.After(date) {
			n++
		}
	}
	return n, nil
}

func compareDates(a, b civil.Date) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	default:
		return 0
	}
}
