// Package domain defines the business logic for the fitness tracker.
package domain

import (
	"context"
	"time"
)

// ActivityRecord is a single logged activity entry (walk, cycling, ...).
// DurationMin and Calories default to zero when the stored row lacks them;
// OccurredAt is the zero time when the stored timestamp is missing or
// unparseable. Both cases are tolerated by the dashboard aggregation.
type ActivityRecord struct {
	ID          string
	OwnerID     string
	Name        string
	DurationMin int
	Calories    int
	OccurredAt  time.Time
}

// WorkoutRecord is a logged workout session. The exercise list is carried for
// display only and never participates in aggregation.
type WorkoutRecord struct {
	ID          string
	OwnerID     string
	Name        string
	DurationMin int
	Calories    int
	Exercises   []string
	OccurredAt  time.Time
}

// Cursor models the pagination token for record listings.
type Cursor struct {
	OccurredAt time.Time
	ID         string
}

// RecordStore captures the read-only queries the dashboard depends on.
// Results are unordered and restricted to occurred_at >= minTimestamp.
type RecordStore interface {
	QueryActivities(ctx context.Context, ownerID string, minTimestamp time.Time) ([]ActivityRecord, error)
	QueryWorkouts(ctx context.Context, ownerID string, minTimestamp time.Time) ([]WorkoutRecord, error)
}

// RecordRepository extends RecordStore with the write side used by the
// record-creation endpoints.
type RecordRepository interface {
	RecordStore
	CreateActivity(ctx context.Context, record ActivityRecord) error
	CreateWorkout(ctx context.Context, record WorkoutRecord) error
	ListWorkouts(ctx context.Context, ownerID string, cursor *Cursor, limit int) ([]WorkoutRecord, *Cursor, error)
}
