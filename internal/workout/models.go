package workout

import (
	"math"
	"time"
)

const (
	DefaultActivity = "Running"
	avgWeightKg     = 70.0
	defaultMET      = 3.5
)

var metValues = map[string]float64{
	"Running": 9.8,
	"Cycling": 7.5,
	"Gym":     5.0,
	"Yoga":    2.5,
}

// Workout is the log entry written for every finished recording session,
// captured or not.
type Workout struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	SessionID   string    `json:"session_id"`
	Activity    string    `json:"activity"`
	DistanceKm  float64   `json:"distance_km"`
	DurationSec int64     `json:"duration_sec"`
	Calories    int       `json:"calories"`
	Captured    bool      `json:"captured"`
	TerritoryID string    `json:"territory_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Calories estimates energy burned as MET x body weight x hours, rounded.
// Unknown activities use a generic MET.
func Calories(activity string, durationSec int64) int {
	met, ok := metValues[activity]
	if !ok {
		met = defaultMET
	}
	hours := float64(durationSec) / 3600
	return int(math.Round(met * avgWeightKg * hours))
}
