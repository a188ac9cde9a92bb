package db

import (
	"context"
	"fmt"
)

// schema is idempotent. users is owned by the profile service and only read
// here; it is created so a fresh database can serve the leaderboard.
var schema = []string{
	`CREATE EXTENSION IF NOT EXISTS postgis`,
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		display_name TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS territories (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		boundary GEOGRAPHY(POLYGON, 4326) NOT NULL,
		claimed_at TIMESTAMPTZ NOT NULL,
		area_m2 DOUBLE PRECISION,
		distance_km DOUBLE PRECISION
	)`,
	`CREATE INDEX IF NOT EXISTS territories_claimed_at_idx ON territories (claimed_at)`,
	`CREATE INDEX IF NOT EXISTS territories_boundary_idx ON territories USING GIST (boundary)`,
	`CREATE TABLE IF NOT EXISTS workouts (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		session_id TEXT NOT NULL,
		activity TEXT NOT NULL,
		distance_km DOUBLE PRECISION NOT NULL,
		duration_sec BIGINT NOT NULL,
		calories INTEGER NOT NULL,
		captured BOOLEAN NOT NULL,
		territory_id TEXT REFERENCES territories(id),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS workouts_user_idx ON workouts (user_id, created_at DESC)`,
}

func Migrate(ctx context.Context, q Querier) error {
	for i, stmt := range schema {
		if _, err := q.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i, err)
		}
	}
	return nil
}
