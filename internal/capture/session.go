// Package capture holds the recording session state machine. Transitions are
// pure: they take a Session value and return the next one, so callers own the
// single copy and decide how to serialise access to it.
package capture

import (
	"errors"
	"fmt"
	"time"

	"backend-turfwar/internal/shared/geo"
)

type State string

const (
	StateIdle      State = "idle"
	StateRecording State = "recording"
	StateClosed    State = "closed"
)

var ErrInvalidState = errors.New("invalid session state")

// InvalidStateError reports an operation invoked from a state that does not
// allow it. It is a caller defect and is never retried.
type InvalidStateError struct {
	Op    string
	State State
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("%s not allowed while %s", e.Op, e.State)
}

func (e *InvalidStateError) Is(target error) bool {
	return target == ErrInvalidState
}

type Session struct {
	State          State     `json:"state"`
	Path           geo.Path  `json:"-"`
	DistanceKm     float64   `json:"distance_km"`
	ElapsedSeconds int64     `json:"elapsed_seconds"`
	StartedAt      time.Time `json:"started_at,omitempty"`
}

// Finished is what a stopped session hands to claim resolution.
type Finished struct {
	Path           geo.Path
	DistanceKm     float64
	ElapsedSeconds int64
	StartedAt      time.Time
}

// NewSession returns an idle session.
func NewSession() Session {
	return Session{State: StateIdle}
}

func (s Session) Start(at time.Time) (Session, error) {
	if s.State != StateIdle && s.State != "" {
		return s, &InvalidStateError{Op: "start", State: s.State}
	}
	return Session{
		State:     StateRecording,
		Path:      geo.Path{},
		StartedAt: at,
	}, nil
}

// OnLocationUpdate appends the fix and adds the distance from the previous one.
func (s Session) OnLocationUpdate(c geo.Coordinate) (Session, error) {
	if s.State != StateRecording {
		return s, &InvalidStateError{Op: "location update", State: s.stateOrIdle()}
	}
	if n := len(s.Path); n > 0 {
		s.DistanceKm += geo.DistanceKm(s.Path[n-1], c)
	}
	s.Path = geo.AppendPoint(s.Path, c)
	return s, nil
}

func (s Session) Tick() (Session, error) {
	if s.State != StateRecording {
		return s, &InvalidStateError{Op: "tick", State: s.stateOrIdle()}
	}
	s.ElapsedSeconds++
	return s, nil
}

// Stop closes the session and returns the record used for resolution.
func (s Session) Stop() (Session, Finished, error) {
	if s.State != StateRecording {
		return s, Finished{}, &InvalidStateError{Op: "stop", State: s.stateOrIdle()}
	}
	s.State = StateClosed
	return s, Finished{
		Path:           s.Path,
		DistanceKm:     s.DistanceKm,
		ElapsedSeconds: s.ElapsedSeconds,
		StartedAt:      s.StartedAt,
	}, nil
}

// Reset returns a closed session to idle once resolution has completed.
func (s Session) Reset() (Session, error) {
	if s.State != StateClosed {
		return s, &InvalidStateError{Op: "reset", State: s.stateOrIdle()}
	}
	return NewSession(), nil
}

func (s Session) PointCount() int { return len(s.Path) }

func (s Session) stateOrIdle() State {
	if s.State == "" {
		return StateIdle
	}
	return s.State
}
