package models

import "time"

// Snapshot is a point-in-time view of both relationship lists of the subject.
// It is not modified while an analysis runs.
type Snapshot struct {
	Following Collection
	Followers Collection
	TakenAt   time.Time
}
