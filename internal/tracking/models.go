package tracking

import (
	"time"

	"backend-turfwar/internal/capture"
	"backend-turfwar/internal/claim"
	"backend-turfwar/internal/shared/geo"
)

const (
	TopicCaptures = "captures"

	EventSessionStarted    = "session_started"
	EventLocation          = "location"
	EventProviderError     = "provider_error"
	EventSessionStopped    = "session_stopped"
	EventTerritoryCaptured = "territory_captured"
)

// SessionTopic is the stream topic carrying one user's live session.
func SessionTopic(userID string) string {
	return "session:" + userID
}

// View is the externally visible state of a user's session.
type View struct {
	SessionID      string          `json:"session_id,omitempty"`
	UserID         string          `json:"user_id"`
	Activity       string          `json:"activity,omitempty"`
	State          capture.State   `json:"state"`
	DistanceKm     float64         `json:"distance_km"`
	ElapsedSeconds int64           `json:"elapsed_seconds"`
	PointCount     int             `json:"point_count"`
	StartedAt      time.Time       `json:"started_at,omitempty"`
	Last           *geo.Coordinate `json:"last,omitempty"`
	ProviderErrors int             `json:"provider_errors"`
	LastError      string          `json:"last_error,omitempty"`
}

// Event is published on the stream hub for every session change.
type Event struct {
	Type      string          `json:"type"`
	UserID    string          `json:"user_id"`
	SessionID string          `json:"session_id"`
	At        time.Time       `json:"at"`
	Session   *View           `json:"session,omitempty"`
	Point     *geo.Coordinate `json:"point,omitempty"`
	Outcome   *claim.Outcome  `json:"outcome,omitempty"`
	Error     string          `json:"error,omitempty"`
}

type startRequest struct {
	Activity string `json:"activity"`
}

type locationRequest struct {
	Lat           *float64  `json:"lat"`
	Lng           *float64  `json:"lng"`
	Timestamp     time.Time `json:"timestamp"`
	ProviderError string    `json:"provider_error"`
}
