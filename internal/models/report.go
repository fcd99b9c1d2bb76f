package models

import (
	"fmt"
	"time"

	"cloud.google.com/go/civil"
)

// DateCount is the number of relations first observed on Date.
type DateCount struct {
	Date  civil.Date
	Count int
}

func (d DateCount) String() string {
	return fmt.Sprintf("%s, %d", d.Date, d.Count)
}

// MonthCount is one step of the monthly follower series: the number of
// followers observed on or before Month and the change since the previous step.
type MonthCount struct {
	Month      civil.Date
	Cumulative int
	Delta      int
}

func (m MonthCount) String() string {
	return fmt.Sprintf("%s, %d, %d", m.Month, m.Cumulative, m.Delta)
}

// Window bounds the monthly series; both ends are month starts and inclusive.
type Window struct {
	Start civil.Date
	End   civil.Date
}

// Report bundles the results of one analysis run.
type Report struct {
	RunID           string
	Subject         string
	GeneratedAt     time.Time
	Window          Window
	NotReciprocated []Relation
	Ledger          []Relation
	DailyFollowers  []DateCount
	Monthly         []MonthCount
	FollowerCount   int
	FollowingCount  int
}
