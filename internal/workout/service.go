package workout

import (
	"context"
	"fmt"

	"backend-turfwar/internal/db"

	"github.com/google/uuid"
)

type Service struct {
	db db.Querier
}

func NewService(db db.Querier) *Service {
	return &Service{db: db}
}

// Record stores w, filling id, activity and calories when unset.
func (s *Service) Record(ctx context.Context, w Workout) (Workout, error) {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	if w.Activity == "" {
		w.Activity = DefaultActivity
	}
	if w.Calories == 0 {
		w.Calories = Calories(w.Activity, w.DurationSec)
	}
	row := s.db.QueryRow(ctx, `
		INSERT INTO workouts (id, user_id, session_id, activity, distance_km, duration_sec, calories, captured, territory_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,NULLIF($9,''))
		RETURNING created_at
	`, w.ID, w.UserID, w.SessionID, w.Activity, w.DistanceKm, w.DurationSec, w.Calories, w.Captured, w.TerritoryID)
	if err := row.Scan(&w.CreatedAt); err != nil {
		return Workout{}, fmt.Errorf("record workout: %w", err)
	}
	return w, nil
}

func (s *Service) ListByUser(ctx context.Context, userID string, limit int) ([]Workout, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := s.db.Query(ctx, `
		SELECT id, user_id, session_id, activity, distance_km, duration_sec, calories, captured, COALESCE(territory_id,''), created_at
		FROM workouts WHERE user_id=$1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list workouts: %w", err)
	}
	defer rows.Close()

	var out []Workout
	for rows.Next() {
		var w Workout
		if err := rows.Scan(&w.ID, &w.UserID, &w.SessionID, &w.Activity, &w.DistanceKm, &w.DurationSec, &w.Calories, &w.Captured, &w.TerritoryID, &w.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan workout: %w", err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}
