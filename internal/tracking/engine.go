package tracking

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"backend-turfwar/internal/capture"
	"backend-turfwar/internal/claim"
	"backend-turfwar/internal/logger"
	"backend-turfwar/internal/metrics"
	"backend-turfwar/internal/shared/geo"
	"backend-turfwar/internal/workout"

	"github.com/google/uuid"
)

const DefaultTickInterval = time.Second

type Resolver interface {
	Resolve(ctx context.Context, sessionID, userID string, fin capture.Finished) claim.Outcome
}

type Broadcaster interface {
	Broadcast(topic string, payload []byte)
}

type WorkoutRecorder interface {
	Record(ctx context.Context, w workout.Workout) (workout.Workout, error)
}

// Ticker is the timer collaborator driving elapsed time.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type timeTicker struct{ t *time.Ticker }

func (t timeTicker) C() <-chan time.Time { return t.t.C }
func (t timeTicker) Stop()               { t.t.Stop() }

func newTimeTicker(d time.Duration) Ticker { return timeTicker{t: time.NewTicker(d)} }

// Deps are the collaborators of an Engine. Hub and Workouts are optional.
type Deps struct {
	Resolver     Resolver
	Hub          Broadcaster
	Workouts     WorkoutRecorder
	TickInterval time.Duration
}

// slot owns one user's session. Every transition on it, resolution included,
// runs under its mutex.
type slot struct {
	mu             sync.Mutex
	userID         string
	sessionID      string
	activity       string
	session        capture.Session
	providerErrors int
	lastError      string
}

// Engine runs one recording session per user.
type Engine struct {
	mu    sync.RWMutex
	slots map[string]*slot

	resolver  Resolver
	hub       Broadcaster
	workouts  WorkoutRecorder
	interval  time.Duration
	now       func() time.Time
	newTicker func(time.Duration) Ticker
	log       *slog.Logger
}

func NewEngine(deps Deps) *Engine {
	interval := deps.TickInterval
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	return &Engine{
		slots:     map[string]*slot{},
		resolver:  deps.Resolver,
		hub:       deps.Hub,
		workouts:  deps.Workouts,
		interval:  interval,
		now:       time.Now,
		newTicker: newTimeTicker,
		log:       logger.L().With("component", "tracking"),
	}
}

// Start begins recording for userID.
func (e *Engine) Start(ctx context.Context, userID, activity string) (View, error) {
	if activity == "" {
		activity = workout.DefaultActivity
	}
	sl := e.slotFor(userID, true)
	sl.mu.Lock()
	defer sl.mu.Unlock()

	next, err := sl.session.Start(e.now())
	if err != nil {
		return sl.view(), err
	}
	sl.session = next
	sl.sessionID = uuid.NewString()
	sl.activity = activity
	sl.providerErrors = 0
	sl.lastError = ""

	metrics.SessionsStarted.Inc()
	metrics.ActiveSessions.Inc()
	e.log.Info("session started", "user_id", userID, "session_id", sl.sessionID, "activity", activity)

	v := sl.view()
	e.publish(SessionTopic(userID), Event{Type: EventSessionStarted, UserID: userID, SessionID: sl.sessionID, At: next.StartedAt, Session: &v})
	return v, nil
}

// OnLocation feeds one fix into the user's session. Fixes failing geo.Validate
// never reach the path.
func (e *Engine) OnLocation(ctx context.Context, userID string, c geo.Coordinate) (View, error) {
	if err := geo.Validate(c); err != nil {
		metrics.RejectedLocations.Inc()
		return View{}, err
	}
	if c.Timestamp.IsZero() {
		c.Timestamp = e.now()
	}
	sl := e.slotFor(userID, false)
	if sl == nil {
		return e.idleView(userID), &capture.InvalidStateError{Op: "location update", State: capture.StateIdle}
	}
	sl.mu.Lock()
	defer sl.mu.Unlock()

	next, err := sl.session.OnLocationUpdate(c)
	if err != nil {
		return sl.view(), err
	}
	sl.session = next
	metrics.LocationUpdates.Inc()

	v := sl.view()
	e.publish(SessionTopic(userID), Event{Type: EventLocation, UserID: userID, SessionID: sl.sessionID, At: c.Timestamp, Session: &v, Point: &c})
	return v, nil
}

// ReportProviderError records a positioning failure. The session keeps
// recording and its path is untouched.
func (e *Engine) ReportProviderError(ctx context.Context, userID, msg string) (View, error) {
	sl := e.slotFor(userID, false)
	if sl == nil {
		return e.idleView(userID), &capture.InvalidStateError{Op: "provider error", State: capture.StateIdle}
	}
	sl.mu.Lock()
	defer sl.mu.Unlock()

	if sl.session.State != capture.StateRecording {
		return sl.view(), &capture.InvalidStateError{Op: "provider error", State: sl.view().State}
	}
	sl.providerErrors++
	sl.lastError = msg
	metrics.ProviderErrors.Inc()
	e.log.Warn("location provider error", "user_id", userID, "session_id", sl.sessionID, "err", msg)

	v := sl.view()
	e.publish(SessionTopic(userID), Event{Type: EventProviderError, UserID: userID, SessionID: sl.sessionID, At: e.now(), Session: &v, Error: msg})
	return v, nil
}

// Stop closes the session, resolves it and returns the user to idle. The
// resolver sees each finished session exactly once.
func (e *Engine) Stop(ctx context.Context, userID string) (claim.Outcome, error) {
	sl := e.slotFor(userID, false)
	if sl == nil {
		return claim.Outcome{}, &capture.InvalidStateError{Op: "stop", State: capture.StateIdle}
	}
	sl.mu.Lock()
	defer sl.mu.Unlock()

	closed, fin, err := sl.session.Stop()
	if err != nil {
		return claim.Outcome{}, err
	}
	sl.session = closed
	metrics.ActiveSessions.Dec()

	out := e.resolver.Resolve(ctx, sl.sessionID, userID, fin)
	e.recordWorkout(ctx, sl, out)

	stopped := sl.view()
	e.publish(SessionTopic(userID), Event{Type: EventSessionStopped, UserID: userID, SessionID: sl.sessionID, At: e.now(), Session: &stopped, Outcome: &out})
	if out.Captured {
		e.publish(TopicCaptures, Event{Type: EventTerritoryCaptured, UserID: userID, SessionID: sl.sessionID, At: out.Territory.ClaimedAt, Outcome: &out})
	}

	idle, err := closed.Reset()
	if err != nil {
		return out, fmt.Errorf("reset session %s: %w", sl.sessionID, err)
	}
	sl.session = idle
	e.log.Info("session stopped",
		"user_id", userID,
		"session_id", sl.sessionID,
		"captured", out.Captured,
		"reason", out.Reason,
		"points", out.PointCount,
		"distance_km", out.DistanceKm,
	)
	return out, nil
}

// Session returns the user's current view; users without a slot are idle.
func (e *Engine) Session(userID string) View {
	sl := e.slotFor(userID, false)
	if sl == nil {
		return e.idleView(userID)
	}
	sl.mu.Lock()
	defer sl.mu.Unlock()
	return sl.view()
}

// TickAll advances elapsed time of every recording session by one tick and
// returns how many were ticked.
func (e *Engine) TickAll() int {
	e.mu.RLock()
	slots := make([]*slot, 0, len(e.slots))
	for _, sl := range e.slots {
		slots = append(slots, sl)
	}
	e.mu.RUnlock()

	ticked := 0
	for _, sl := range slots {
		sl.mu.Lock()
		if sl.session.State == capture.StateRecording {
			if next, err := sl.session.Tick(); err == nil {
				sl.session = next
				ticked++
			}
		}
		sl.mu.Unlock()
	}
	return ticked
}

// Run drives TickAll from the timer until ctx is done.
func (e *Engine) Run(ctx context.Context) error {
	t := e.newTicker(e.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C():
			if n := e.TickAll(); n > 0 {
				e.log.Debug("tick", "sessions", n)
			}
		}
	}
}

func (e *Engine) slotFor(userID string, create bool) *slot {
	e.mu.RLock()
	sl, ok := e.slots[userID]
	e.mu.RUnlock()
	if ok || !create {
		return sl
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if sl, ok = e.slots[userID]; ok {
		return sl
	}
	sl = &slot{userID: userID, session: capture.NewSession()}
	e.slots[userID] = sl
	return sl
}

func (e *Engine) recordWorkout(ctx context.Context, sl *slot, out claim.Outcome) {
	if e.workouts == nil {
		return
	}
	w := workout.Workout{
		UserID:      sl.userID,
		SessionID:   sl.sessionID,
		Activity:    sl.activity,
		DistanceKm:  out.DistanceKm,
		DurationSec: out.ElapsedSeconds,
		Captured:    out.Captured,
	}
	if out.Territory != nil {
		w.TerritoryID = out.Territory.ID
	}
	if _, err := e.workouts.Record(ctx, w); err != nil {
		e.log.Error("record workout failed", "user_id", sl.userID, "session_id", sl.sessionID, "err", err)
	}
}

func (e *Engine) publish(topic string, ev Event) {
	if e.hub == nil {
		return
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		e.log.Error("encode event failed", "type", ev.Type, "err", err)
		return
	}
	e.hub.Broadcast(topic, payload)
}

func (e *Engine) idleView(userID string) View {
	return View{UserID: userID, State: capture.StateIdle}
}

func (sl *slot) view() View {
	s := sl.session
	v := View{
		UserID:         sl.userID,
		State:          s.State,
		DistanceKm:     s.DistanceKm,
		ElapsedSeconds: s.ElapsedSeconds,
		PointCount:     s.PointCount(),
		StartedAt:      s.StartedAt,
		ProviderErrors: sl.providerErrors,
		LastError:      sl.lastError,
	}
	if v.State == "" {
		v.State = capture.StateIdle
	}
	if v.State != capture.StateIdle {
		v.SessionID = sl.sessionID
		v.Activity = sl.activity
	}
	if n := len(s.Path); n > 0 {
		last := s.Path[n-1]
		v.Last = &last
	}
	return v
}
