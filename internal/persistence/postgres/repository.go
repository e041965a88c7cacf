package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/SyedJabbar123/HZSoftwareSolutions-FitnessTrackerApp/internal/domain"
	"github.com/SyedJabbar123/HZSoftwareSolutions-FitnessTrackerApp/internal/observability"
)

// Repository provides Postgres-backed persistence for fitness records and
// outbox events. It is the single place where stored timestamps are converted
// to plain instants: rows with a NULL occurred_at surface as the zero time
// and NULL numeric columns surface as zero, so the aggregation core never
// sees a driver-specific null type.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// QueryActivities returns the owner's activities with occurred_at on or after
// minTimestamp. Rows missing a timestamp are included; the classifier drops
// them. Results are unordered.
func (r *Repository) QueryActivities(ctx context.Context, ownerID string, minTimestamp time.Time) ([]domain.ActivityRecord, error) {
	const query = `SELECT activity_id, owner_id, name, duration_min, calories, occurred_at
        FROM activities WHERE owner_id=$1 AND (occurred_at >= $2 OR occurred_at IS NULL)`

	rows, err := r.pool.Query(ctx, query, ownerID, minTimestamp)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.ActivityRecord
	for rows.Next() {
		var (
			rec        domain.ActivityRecord
			duration   *int
			calories   *int
			occurredAt *time.Time
		)
		if err := rows.Scan(&rec.ID, &rec.OwnerID, &rec.Name, &duration, &calories, &occurredAt); err != nil {
			return nil, err
		}
		rec.DurationMin = intOrZero(duration)
		rec.Calories = intOrZero(calories)
		rec.OccurredAt = timeOrZero(occurredAt)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// QueryWorkouts mirrors QueryActivities for workout records.
func (r *Repository) QueryWorkouts(ctx context.Context, ownerID string, minTimestamp time.Time) ([]domain.WorkoutRecord, error) {
	const query = `SELECT workout_id, owner_id, name, duration_min, calories, exercises, occurred_at
        FROM workouts WHERE owner_id=$1 AND (occurred_at >= $2 OR occurred_at IS NULL)`

	rows, err := r.pool.Query(ctx, query, ownerID, minTimestamp)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.WorkoutRecord
	for rows.Next() {
		rec, err := scanWorkout(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// CreateActivity persists the record and its outbox event in one transaction.
func (r *Repository) CreateActivity(ctx context.Context, record domain.ActivityRecord) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	const insert = `INSERT INTO activities (activity_id, owner_id, name, duration_min, calories, occurred_at)
        VALUES ($1,$2,$3,$4,$5,$6)`
	if _, err = tx.Exec(ctx, insert,
		record.ID, record.OwnerID, record.Name, record.DurationMin, record.Calories, record.OccurredAt,
	); err != nil {
		return err
	}

	if err = insertOutbox(ctx, tx, recordLoggedEvent{
		RecordID:    record.ID,
		OwnerID:     record.OwnerID,
		Kind:        "activity",
		Name:        record.Name,
		DurationMin: record.DurationMin,
		Calories:    record.Calories,
		OccurredAt:  record.OccurredAt,
	}); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return err
	}
	observability.RecordPersisted(record.OccurredAt)
	return nil
}

// CreateWorkout persists the record and its outbox event in one transaction.
func (r *Repository) CreateWorkout(ctx context.Context, record domain.WorkoutRecord) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	exercises := record.Exercises
	if exercises == nil {
		exercises = []string{}
	}

	const insert = `INSERT INTO workouts (workout_id, owner_id, name, duration_min, calories, exercises, occurred_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)`
	if _, err = tx.Exec(ctx, insert,
		record.ID, record.OwnerID, record.Name, record.DurationMin, record.Calories, exercises, record.OccurredAt,
	); err != nil {
		return err
	}

	if err = insertOutbox(ctx, tx, recordLoggedEvent{
		RecordID:    record.ID,
		OwnerID:     record.OwnerID,
		Kind:        "workout",
		Name:        record.Name,
		DurationMin: record.DurationMin,
		Calories:    record.Calories,
		OccurredAt:  record.OccurredAt,
	}); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return err
	}
	observability.RecordPersisted(record.OccurredAt)
	return nil
}

// ListWorkouts returns workouts newest first with keyset pagination.
func (r *Repository) ListWorkouts(ctx context.Context, ownerID string, cursor *domain.Cursor, limit int) ([]domain.WorkoutRecord, *domain.Cursor, error) {
	args := []interface{}{ownerID, limit}
	query := `SELECT workout_id, owner_id, name, duration_min, calories, exercises, occurred_at
        FROM workouts WHERE owner_id=$1`

	if cursor != nil {
		query += ` AND (occurred_at, workout_id) < ($3, $4)`
		args = append(args, cursor.OccurredAt, cursor.ID)
	}

	query += ` ORDER BY occurred_at DESC, workout_id DESC LIMIT $2`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	results := make([]domain.WorkoutRecord, 0, limit)
	for rows.Next() {
		rec, err := scanWorkout(rows)
		if err != nil {
			return nil, nil, err
		}
		results = append(results, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	var next *domain.Cursor
	if len(results) == limit {
		last := results[len(results)-1]
		next = &domain.Cursor{OccurredAt: last.OccurredAt, ID: last.ID}
	}
	return results, next, nil
}

func scanWorkout(rows pgx.Rows) (domain.WorkoutRecord, error) {
	var (
		rec        domain.WorkoutRecord
		duration   *int
		calories   *int
		occurredAt *time.Time
	)
	if err := rows.Scan(&rec.ID, &rec.OwnerID, &rec.Name, &duration, &calories, &rec.Exercises, &occurredAt); err != nil {
		return domain.WorkoutRecord{}, err
	}
	rec.DurationMin = intOrZero(duration)
	rec.Calories = intOrZero(calories)
	rec.OccurredAt = timeOrZero(occurredAt)
	return rec, nil
}

func intOrZero(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

func timeOrZero(v *time.Time) time.Time {
	if v == nil {
		return time.Time{}
	}
	return *v
}

// recordLoggedEvent is the outbox payload published for every new record.
type recordLoggedEvent struct {
	RecordID    string    `json:"record_id"`
	OwnerID     string    `json:"owner_id"`
	Kind        string    `json:"kind"`
	Name        string    `json:"name"`
	DurationMin int       `json:"duration_min"`
	Calories    int       `json:"calories"`
	OccurredAt  time.Time `json:"occurred_at"`
}

const recordsTopic = "fitness_records"

func insertOutbox(ctx context.Context, tx pgx.Tx, event recordLoggedEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	dedupeKey := fmt.Sprintf("%s:record.logged", event.RecordID)

	const stmt = `INSERT INTO outbox (topic, event_type, partition_key, payload, dedupe_key)
        VALUES ($1,$2,$3,$4,$5)`
	_, err = tx.Exec(ctx, stmt, recordsTopic, "record.logged", event.OwnerID, body, dedupeKey)
	return err
}
