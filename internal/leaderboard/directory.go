package leaderboard

import (
	"context"
	"fmt"

	"backend-turfwar/internal/db"
	"backend-turfwar/internal/logger"
)

// PostgresDirectory reads display names from the users table owned by the
// profile service.
type PostgresDirectory struct {
	db db.Querier
}

func NewPostgresDirectory(db db.Querier) *PostgresDirectory {
	return &PostgresDirectory{db: db}
}

func (d *PostgresDirectory) DisplayNames(ctx context.Context, userIDs []string) (map[string]string, error) {
	names := make(map[string]string, len(userIDs))
	if len(userIDs) == 0 {
		return names, nil
	}
	rows, err := d.db.Query(ctx, `
		SELECT id, display_name FROM users WHERE id = ANY($1)
	`, userIDs)
	if err != nil {
		return nil, fmt.Errorf("display names: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("scan display name: %w", err)
		}
		names[id] = name
	}
	return names, rows.Err()
}

// withNames fills DisplayName, falling back to the user id when the directory
// is absent, fails, or has no name.
func withNames(ctx context.Context, dir Directory, entries []Entry) []Entry {
	var names map[string]string
	if dir != nil && len(entries) > 0 {
		ids := make([]string, len(entries))
		for i, e := range entries {
			ids[i] = e.UserID
		}
		var err error
		names, err = dir.DisplayNames(ctx, ids)
		if err != nil {
			logger.L().Warn("leaderboard directory lookup failed", "err", err)
		}
	}
	for i := range entries {
		if name := names[entries[i].UserID]; name != "" {
			entries[i].DisplayName = name
		} else {
			entries[i].DisplayName = entries[i].UserID
		}
	}
	return entries
}
