package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"cloud.google.com/go/civil"

	"github.com/followledger/followledger/internal/utils"
)

// TimestampLayout is how observation instants are rendered in reports.
const TimestampLayout = "2006-01-02 15:04:05"

var (
	minObservedAt = time.Date(1, time.January, 1, 0, 0, 0, 0, time.UTC).Unix()
	maxObservedAt = time.Date(9999, time.December, 31, 23, 59, 59, 0, time.UTC).Unix()
)

// Relation is one account observed against the subject together with the
// instant it was first associated with it (followed-at or became-follower-at).
//
// A Relation is identified by its identity alone; the observation instant is
// payload. Use Equal and Compare (or ByIdentity) rather than == so that two
// observations of the same account compare as the same account.
type Relation struct {
	identity   string
	observedAt int64
}

// NewRelation builds a Relation from an account handle and an epoch-seconds
// observation instant.
func NewRelation(identity string, observedAt int64) (Relation, error) {
	if identity == "" {
		return Relation{}, utils.NewAppError("relation.create", "identity is required", ErrEmptyIdentity)
	}
	if !validInstant(observedAt) {
		return Relation{}, utils.NewAppError("relation.create", fmt.Sprintf("%s observed at %d", identity, observedAt), ErrInvalidTimestamp)
	}
	return Relation{identity: identity, observedAt: observedAt}, nil
}

// MustRelation is NewRelation for literals known to be valid. It panics on error.
func MustRelation(identity string, observedAt int64) Relation {
	r, err := NewRelation(identity, observedAt)
	if err != nil {
		panic(err)
	}
	return r
}

// Identity returns the account handle.
func (r Relation) Identity() string { return r.identity }

// Timestamp returns the observation instant in epoch seconds.
func (r Relation) Timestamp() int64 { return r.observedAt }

// ObservedAt returns the observation instant in UTC.
func (r Relation) ObservedAt() time.Time { return time.Unix(r.observedAt, 0).UTC() }

// ObservedDate returns the UTC calendar date of the observation instant.
func (r Relation) ObservedDate() (civil.Date, error) {
	if !validInstant(r.observedAt) {
		return civil.Date{}, utils.NewAppError("relation.date", fmt.Sprintf("%s observed at %d", r.identity, r.observedAt), ErrInvalidTimestamp)
	}
	return civil.DateOf(r.ObservedAt()), nil
}

// Equal reports whether r and other name the same account.
func (r Relation) Equal(other Relation) bool { return ByIdentity.Equal(r, other) }

// Compare orders r against other by identity.
func (r Relation) Compare(other Relation) int { return ByIdentity.Compare(r, other) }

// String renders "identity, YYYY-MM-DD HH:MM:SS" with control characters in the
// identity escaped.
func (r Relation) String() string {
	return printable(r.identity) + ", " + r.ObservedAt().Format(TimestampLayout)
}

func validInstant(ts int64) bool {
	return ts >= minObservedAt && ts <= maxObservedAt
}

func printable(s string) string {
	if strings.IndexFunc(s, unicode.IsControl) < 0 {
		return s
	}
	var b strings.Builder
	for _, r := range s {
		if unicode.IsControl(r) {
			q := strconv.QuoteRune(r)
			b.WriteString(q[1 : len(q)-1])
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// IdentityOrder is the canonical equality and ordering strategy for relations:
// both consider the identity only.
type IdentityOrder struct{}

// ByIdentity is the strategy every membership test, difference and sort uses.
var ByIdentity IdentityOrder

// Key returns the value relations are keyed by in sets and maps.
func (IdentityOrder) Key(r Relation) string { return r.identity }

// Equal reports whether a and b have the same identity.
func (IdentityOrder) Equal(a, b Relation) bool { return a.identity == b.identity }

// Compare orders a and b lexicographically by identity.
func (IdentityOrder) Compare(a, b Relation) int { return strings.Compare(a.identity, b.identity) }
