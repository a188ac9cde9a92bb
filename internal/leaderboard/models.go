package leaderboard

import (
	"context"
	"errors"
	"fmt"
)

const (
	DefaultLimit = 5
	MaxLimit     = 100
)

var ErrInvalidUpdate = errors.New("invalid leaderboard update")

// Update is one captured session's contribution. SessionID makes delivery
// idempotent: a second Add with the same id is a no-op.
type Update struct {
	SessionID  string  `json:"session_id"`
	UserID     string  `json:"user_id"`
	DistanceKm float64 `json:"distance_km"`
}

type Entry struct {
	Rank            int     `json:"rank"`
	UserID          string  `json:"user_id"`
	DisplayName     string  `json:"display_name"`
	TotalDistanceKm float64 `json:"total_distance_km"`
}

// Aggregator accumulates per-user distance. Totals never decrease.
type Aggregator interface {
	Add(ctx context.Context, u Update) error
}

type Board interface {
	Aggregator
	Top(ctx context.Context, n int) ([]Entry, error)
}

// Directory resolves display names from the profile store. Missing users are
// simply absent from the result.
type Directory interface {
	DisplayNames(ctx context.Context, userIDs []string) (map[string]string, error)
}

func (u Update) validate() error {
	if u.SessionID == "" || u.UserID == "" {
		return fmt.Errorf("%w: session_id and user_id required", ErrInvalidUpdate)
	}
	if u.DistanceKm < 0 {
		return fmt.Errorf("%w: negative distance %v", ErrInvalidUpdate, u.DistanceKm)
	}
	return nil
}

func clampLimit(n int) int {
	if n <= 0 {
		return DefaultLimit
	}
	if n > MaxLimit {
		return MaxLimit
	}
	return n
}
