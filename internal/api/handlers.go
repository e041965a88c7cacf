// Package api exposes HTTP handlers for the fitness tracker backend.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/SyedJabbar123/HZSoftwareSolutions-FitnessTrackerApp/internal/auth"
	"github.com/SyedJabbar123/HZSoftwareSolutions-FitnessTrackerApp/internal/domain"
	"github.com/SyedJabbar123/HZSoftwareSolutions-FitnessTrackerApp/internal/observability"
	"github.com/SyedJabbar123/HZSoftwareSolutions-FitnessTrackerApp/internal/persistence"
)

// maxListLimit caps page sizes so a single request cannot drag an
// arbitrarily large result set out of the database.
const maxListLimit = 100

// Handler coordinates HTTP requests with the domain services.
type Handler struct {
	records   *domain.Service
	dashboard *domain.DashboardService
	now       func() time.Time
}

// NewHandler builds a Handler.
func NewHandler(records *domain.Service, dashboard *domain.DashboardService) *Handler {
	return &Handler{records: records, dashboard: dashboard, now: time.Now}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/dashboard", h.getDashboard)
	mux.HandleFunc("/v1/activities", h.activities)
	mux.HandleFunc("/v1/workouts", h.workouts)
	mux.HandleFunc("/healthz", healthz)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) activities(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.logActivity(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

func (h *Handler) workouts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.logWorkout(w, r)
	case http.MethodGet:
		h.listWorkouts(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

// getDashboard runs one aggregation activation. No session yields an empty
// dashboard rather than an error; a failed refresh serves the last completed
// snapshot when one exists, otherwise a generic could-not-refresh response.
func (h *Handler) getDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	ownerID := ""
	if claims, ok := auth.FromContext(r.Context()); ok {
		if !claims.HasScope(auth.ScopeDashboardRead) {
			writeError(w, http.StatusForbidden, "forbidden", "scope dashboard:read required")
			return
		}
		ownerID = claims.Subject
	}

	start := time.Now()
	snapshot, err := h.dashboard.Activate(r.Context(), ownerID, h.now())
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			// Deactivated before the queries resolved; nothing to render.
			return
		}
		log.Error("dashboard refresh failed", "owner", ownerID, "err", err)
		observability.ObserveDashboardRefresh("failure", time.Since(start))
		if last, ok := h.dashboard.Last(ownerID); ok {
			writeJSON(w, http.StatusOK, toDashboardView(last, true))
			return
		}
		writeError(w, http.StatusServiceUnavailable, "unavailable", "could not refresh dashboard")
		return
	}

	observability.ObserveDashboardRefresh("success", time.Since(start))
	writeJSON(w, http.StatusOK, toDashboardView(snapshot, false))
}

func (h *Handler) logActivity(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	if !claims.HasScope(auth.ScopeRecordsWrite) {
		writeError(w, http.StatusForbidden, "forbidden", "scope records:write required")
		return
	}

	var req LogActivityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	record, err := h.records.LogActivity(r.Context(), domain.LogActivityInput{
		OwnerID:     claims.Subject,
		Name:        req.Name,
		DurationMin: req.DurationMin,
		Calories:    req.Calories,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, LogRecordResponse{
		RecordID:   record.ID,
		OccurredAt: record.OccurredAt,
	})
}

func (h *Handler) logWorkout(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	if !claims.HasScope(auth.ScopeRecordsWrite) {
		writeError(w, http.StatusForbidden, "forbidden", "scope records:write required")
		return
	}

	var req LogWorkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	record, err := h.records.LogWorkout(r.Context(), domain.LogWorkoutInput{
		OwnerID:     claims.Subject,
		Name:        req.Name,
		DurationMin: req.DurationMin,
		Calories:    req.Calories,
		Exercises:   normalizeExercises(req.Exercises),
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, LogRecordResponse{
		RecordID:   record.ID,
		OccurredAt: record.OccurredAt,
	})
}

func (h *Handler) listWorkouts(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	if !claims.HasScope(auth.ScopeRecordsRead) && !claims.HasScope(auth.ScopeRecordsWrite) {
		writeError(w, http.StatusForbidden, "forbidden", "scope records:read required")
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	cursor, err := persistence.DecodeCursor(r.URL.Query().Get("cursor"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "invalid cursor")
		return
	}

	records, next, err := h.records.ListWorkouts(r.Context(), claims.Subject, cursor, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	items := make([]WorkoutView, 0, len(records))
	for _, record := range records {
		items = append(items, toWorkoutView(record))
	}

	writeJSON(w, http.StatusOK, ListWorkoutsResponse{
		Items:      items,
		NextCursor: persistence.EncodeCursor(next),
	})
}

// LogActivityRequest is the payload for POST /v1/activities.
type LogActivityRequest struct {
	Name        string `json:"name"`
	DurationMin int    `json:"duration_min"`
	Calories    int    `json:"calories"`
}

// Validate ensures request correctness.
func (r LogActivityRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return errors.New("name is required")
	}
	if r.DurationMin <= 0 {
		return errors.New("duration_min must be > 0")
	}
	if r.Calories < 0 {
		return errors.New("calories must be >= 0")
	}
	return nil
}

// LogWorkoutRequest is the payload for POST /v1/workouts.
type LogWorkoutRequest struct {
	Name        string   `json:"name"`
	DurationMin int      `json:"duration_min"`
	Calories    int      `json:"calories"`
	Exercises   []string `json:"exercises"`
}

// Validate ensures request correctness.
func (r LogWorkoutRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return errors.New("name is required")
	}
	if r.DurationMin <= 0 {
		return errors.New("duration_min must be > 0")
	}
	if r.Calories < 0 {
		return errors.New("calories must be >= 0")
	}
	return nil
}

func normalizeExercises(raw []string) []string {
	out := make([]string, 0, len(raw))
	for _, ex := range raw {
		trimmed := strings.TrimSpace(ex)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// LogRecordResponse describes the response body for record creation.
type LogRecordResponse struct {
	RecordID   string    `json:"record_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// WorkoutView exposes one workout entry.
type WorkoutView struct {
	WorkoutID   string    `json:"workout_id"`
	Name        string    `json:"name"`
	DurationMin int       `json:"duration_min"`
	Calories    int       `json:"calories"`
	Exercises   []string  `json:"exercises"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// ListWorkoutsResponse packages list results.
type ListWorkoutsResponse struct {
	Items      []WorkoutView `json:"items"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

// DayBucketView is one bar of the weekly chart.
type DayBucketView struct {
	Label        string `json:"label"`
	Date         string `json:"date"`
	TotalMinutes int    `json:"total_minutes"`
	IsToday      bool   `json:"is_today"`
}

// DashboardResponse is the aggregated view rendered by the dashboard screen.
type DashboardResponse struct {
	TodayCaloriesBurned int             `json:"today_calories_burned"`
	TodayMinutes        int             `json:"today_minutes"`
	Week                []DayBucketView `json:"week"`
	GeneratedAt         time.Time       `json:"generated_at"`
	Stale               bool            `json:"stale,omitempty"`
}

func toWorkoutView(record domain.WorkoutRecord) WorkoutView {
	exercises := record.Exercises
	if exercises == nil {
		exercises = []string{}
	}
	return WorkoutView{
		WorkoutID:   record.ID,
		Name:        record.Name,
		DurationMin: record.DurationMin,
		Calories:    record.Calories,
		Exercises:   exercises,
		OccurredAt:  record.OccurredAt,
	}
}

func toDashboardView(snapshot *domain.Snapshot, stale bool) DashboardResponse {
	week := make([]DayBucketView, 0, len(snapshot.WeekBuckets))
	for _, bucket := range snapshot.WeekBuckets {
		week = append(week, DayBucketView{
			Label:        bucket.Label,
			Date:         bucket.Date.Format("2006-01-02"),
			TotalMinutes: bucket.TotalMinutes,
			IsToday:      bucket.IsToday,
		})
	}
	return DashboardResponse{
		TodayCaloriesBurned: snapshot.TodayCalories,
		TodayMinutes:        snapshot.TodayMinutes,
		Week:                week,
		GeneratedAt:         snapshot.GeneratedAt,
		Stale:               stale,
	}
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
