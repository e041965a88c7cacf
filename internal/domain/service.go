package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Service handles record creation and listing. Dashboard aggregation lives in
// DashboardService; this side only ever writes and lists raw records.
type Service struct {
	repo RecordRepository
}

// NewService constructs a Service.
func NewService(repo RecordRepository) *Service {
	return &Service{repo: repo}
}

// LogActivityInput captures the payload from the API layer.
type LogActivityInput struct {
	OwnerID     string
	Name        string
	DurationMin int
	Calories    int
}

// LogWorkoutInput captures the workout payload from the API layer.
type LogWorkoutInput struct {
	OwnerID     string
	Name        string
	DurationMin int
	Calories    int
	Exercises   []string
}

// LogActivity persists a new activity record stamped with the creation
// instant. The timestamp is never user-supplied.
func (s *Service) LogActivity(ctx context.Context, input LogActivityInput) (*ActivityRecord, error) {
	record := ActivityRecord{
		ID:          uuid.NewString(),
		OwnerID:     input.OwnerID,
		Name:        input.Name,
		DurationMin: input.DurationMin,
		Calories:    input.Calories,
		OccurredAt:  time.Now().UTC(),
	}
	if err := s.repo.CreateActivity(ctx, record); err != nil {
		return nil, err
	}
	return &record, nil
}

// LogWorkout persists a new workout record stamped with the creation instant.
func (s *Service) LogWorkout(ctx context.Context, input LogWorkoutInput) (*WorkoutRecord, error) {
	record := WorkoutRecord{
		ID:          uuid.NewString(),
		OwnerID:     input.OwnerID,
		Name:        input.Name,
		DurationMin: input.DurationMin,
		Calories:    input.Calories,
		Exercises:   input.Exercises,
		OccurredAt:  time.Now().UTC(),
	}
	if err := s.repo.CreateWorkout(ctx, record); err != nil {
		return nil, err
	}
	return &record, nil
}

// ListWorkouts fetches workouts newest first with cursor pagination.
func (s *Service) ListWorkouts(ctx context.Context, ownerID string, cursor *Cursor, limit int) ([]WorkoutRecord, *Cursor, error) {
	return s.repo.ListWorkouts(ctx, ownerID, cursor, limit)
}
