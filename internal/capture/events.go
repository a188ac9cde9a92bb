package capture

import (
	"time"

	"backend-turfwar/internal/shared/geo"
)

// Event is a discrete input to a session. Location fixes and timer ticks
// arrive from independent sources and are applied one at a time.
type Event interface {
	event()
}

type StartEvent struct{ At time.Time }

type LocationEvent struct{ Coordinate geo.Coordinate }

type TickEvent struct{}

type StopEvent struct{}

func (StartEvent) event()    {}
func (LocationEvent) event() {}
func (TickEvent) event()     {}
func (StopEvent) event()     {}

// Apply runs the transition for ev. The Finished record is only set for
// StopEvent.
func Apply(s Session, ev Event) (Session, *Finished, error) {
	switch e := ev.(type) {
	case StartEvent:
		next, err := s.Start(e.At)
		return next, nil, err
	case LocationEvent:
		next, err := s.OnLocationUpdate(e.Coordinate)
		return next, nil, err
	case TickEvent:
		next, err := s.Tick()
		return next, nil, err
	case StopEvent:
		next, fin, err := s.Stop()
		if err != nil {
			return next, nil, err
		}
		return next, &fin, nil
	}
	return s, nil, &InvalidStateError{Op: "unknown event", State: s.stateOrIdle()}
}
