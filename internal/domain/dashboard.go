package domain

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrUnavailable indicates a dashboard activation could not complete because
// a record store query failed. The activation is abandoned; no retry happens
// until the next activation.
var ErrUnavailable = errors.New("dashboard data unavailable")

// Snapshot is one immutable aggregation result produced per dashboard
// activation. It is rebuilt from scratch on every activation and never
// mutated afterward.
type Snapshot struct {
	OwnerID       string
	GeneratedAt   time.Time
	TodayCalories int
	TodayMinutes  int
	WeekBuckets   []DayBucket
}

// DashboardService runs dashboard activations against the record store.
// Each activation owns its own bucket skeleton and snapshot; the only state
// shared across activations is the last completed snapshot per owner, kept so
// the presentation layer can fall back to it when a refresh fails.
type DashboardService struct {
	store RecordStore

	mu   sync.RWMutex
	last map[string]*Snapshot
}

// NewDashboardService constructs a DashboardService.
func NewDashboardService(store RecordStore) *DashboardService {
	return &DashboardService{
		store: store,
		last:  make(map[string]*Snapshot),
	}
}

// Activate runs one aggregation for the owner at the given instant.
//
// An empty ownerID means no session: the result is an all-zero snapshot with
// a correctly dated bucket skeleton, not an error. The two record queries run
// concurrently and the fold starts only after both complete, so totals are
// reported atomically. Cancelling ctx discards any results that arrive after
// deactivation.
func (s *DashboardService) Activate(ctx context.Context, ownerID string, now time.Time) (*Snapshot, error) {
	buckets := BuildWeekBuckets(now)
	if ownerID == "" {
		return &Snapshot{GeneratedAt: now, WeekBuckets: buckets}, nil
	}

	// The window opens at midnight six days back, matching the oldest bucket.
	minTimestamp := startOfDay(now).AddDate(0, 0, -(weekDays - 1))

	var (
		wg         sync.WaitGroup
		activities []ActivityRecord
		workouts   []WorkoutRecord
		actErr     error
		wkErr      error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		activities, actErr = s.store.QueryActivities(ctx, ownerID, minTimestamp)
	}()
	go func() {
		defer wg.Done()
		workouts, wkErr = s.store.QueryWorkouts(ctx, ownerID, minTimestamp)
	}()
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if actErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, actErr)
	}
	if wkErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, wkErr)
	}

	snap := aggregate(ownerID, now, buckets, activities, workouts)

	s.mu.Lock()
	s.last[ownerID] = snap
	s.mu.Unlock()

	return snap, nil
}

// Last returns the most recently completed snapshot for the owner, if any.
func (s *DashboardService) Last(ownerID string) (*Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.last[ownerID]
	return snap, ok
}

// aggregate folds the fetched records into today totals and weekly buckets.
// The fold is a commutative sum, so record order never affects the result.
func aggregate(ownerID string, now time.Time, buckets []DayBucket, activities []ActivityRecord, workouts []WorkoutRecord) *Snapshot {
	snap := &Snapshot{
		OwnerID:     ownerID,
		GeneratedAt: now,
		WeekBuckets: buckets,
	}
	for i := range activities {
		snap.fold(now, activities[i].OccurredAt, activities[i].DurationMin, activities[i].Calories)
	}
	for i := range workouts {
		snap.fold(now, workouts[i].OccurredAt, workouts[i].DurationMin, workouts[i].Calories)
	}
	return snap
}

func (s *Snapshot) fold(now, occurredAt time.Time, minutes, calories int) {
	// Malformed rows surface here as zero or negative values; they contribute
	// nothing rather than aborting the batch.
	if minutes < 0 {
		minutes = 0
	}
	if calories < 0 {
		calories = 0
	}

	cls := Classify(occurredAt, now, s.WeekBuckets)
	if cls.Today {
		s.TodayCalories += calories
		s.TodayMinutes += minutes
	}
	if cls.BucketIndex >= 0 {
		s.WeekBuckets[cls.BucketIndex].TotalMinutes += minutes
	}
}
