package claim

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"backend-turfwar/internal/capture"
	"backend-turfwar/internal/leaderboard"
	"backend-turfwar/internal/shared/geo"
	"backend-turfwar/internal/territory"
)

var testTime = time.Date(2024, 6, 1, 7, 0, 0, 0, time.UTC)

type recordingBoard struct {
	mu      sync.Mutex
	updates []leaderboard.Update
	err     error
}

func (b *recordingBoard) Add(_ context.Context, u leaderboard.Update) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.updates = append(b.updates, u)
	return b.err
}

type recordingSaver struct {
	saved []territory.Territory
	err   error
}

func (s *recordingSaver) Save(_ context.Context, t territory.Territory) error {
	s.saved = append(s.saved, t)
	return s.err
}

// record drives a session through the state machine the way the engine does.
func record(t *testing.T, points ...geo.Coordinate) capture.Finished {
	t.Helper()
	s, err := capture.NewSession().Start(testTime)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	for _, p := range points {
		if s, err = s.OnLocationUpdate(p); err != nil {
			t.Fatalf("location: %v", err)
		}
	}
	_, fin, err := s.Stop()
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	return fin
}

// nearlyClosedSquare returns to within ~5.6 m of the start.
func nearlyClosedSquare(lat, lng float64) []geo.Coordinate {
	return []geo.Coordinate{
		{Lat: lat, Lng: lng},
		{Lat: lat, Lng: lng + 0.001},
		{Lat: lat + 0.001, Lng: lng + 0.001},
		{Lat: lat + 0.001, Lng: lng},
		{Lat: lat + 0.00005, Lng: lng},
	}
}

func TestResolveOpenPathIsNotCaptured(t *testing.T) {
	store := territory.NewStore()
	board := &recordingBoard{}
	r := NewResolver(store, nil, board, 0)

	fin := record(t,
		geo.Coordinate{Lat: 0, Lng: 0},
		geo.Coordinate{Lat: 0, Lng: 0.001},
		geo.Coordinate{Lat: 0, Lng: 0.002},
		geo.Coordinate{Lat: 0.0005, Lng: 0.0005},
	)
	out := r.Resolve(context.Background(), "s-1", "user-a", fin)

	if out.Captured || out.Reason != ReasonLoopNotClosed {
		t.Fatalf("expected loop_not_closed, got %+v", out)
	}
	if out.PointCount != 4 {
		t.Fatalf("expected 4 points, got %d", out.PointCount)
	}
	if math.Abs(out.CloseDistanceKm-0.0786) > 0.001 {
		t.Fatalf("unexpected close distance %v", out.CloseDistanceKm)
	}
	if store.Len() != 0 || len(board.updates) != 0 {
		t.Fatalf("no territory or leaderboard update expected")
	}
}

func TestResolveClosedLoopCommitsAndNotifiesOnce(t *testing.T) {
	store := territory.NewStore()
	board := &recordingBoard{}
	saver := &recordingSaver{}
	r := NewResolver(store, saver, board, 0)

	path := nearlyClosedSquare(0, 0)
	fin := record(t, path...)
	out := r.Resolve(context.Background(), "s-1", "user-a", fin)

	if !out.Captured || out.Territory == nil {
		t.Fatalf("expected capture, got %+v", out)
	}
	ring := out.Territory.Ring
	if len(ring) != len(path)+1 || ring[0] != ring[len(ring)-1] {
		t.Fatalf("expected ring closed on first point, got %+v", ring)
	}
	if owner, ok := store.QueryOwnerAt(geo.Coordinate{Lat: 0.0005, Lng: 0.0005}); !ok || owner != "user-a" {
		t.Fatalf("expected user-a to own the interior, got %q", owner)
	}

	if len(board.updates) != 1 {
		t.Fatalf("expected exactly one leaderboard update, got %d", len(board.updates))
	}
	u := board.updates[0]
	want := geo.PathLengthKm(geo.Path(path))
	if u.UserID != "user-a" || u.SessionID != "s-1" || math.Abs(u.DistanceKm-want) > 1e-9 {
		t.Fatalf("unexpected update %+v, want distance %v", u, want)
	}
	if len(saver.saved) != 1 || saver.saved[0].ID != out.Territory.ID {
		t.Fatalf("expected territory persisted once")
	}
}

func TestResolveLayersOverExistingClaims(t *testing.T) {
	store := territory.NewStore()
	r := NewResolver(store, nil, nil, 0)

	first := r.Resolve(context.Background(), "s-1", "user-a", record(t, nearlyClosedSquare(0, 0)...))
	second := r.Resolve(context.Background(), "s-2", "user-b", record(t, nearlyClosedSquare(0.0005, 0.0005)...))

	if !first.Captured || !second.Captured {
		t.Fatalf("expected both captures")
	}
	if len(second.Superseded) != 1 || second.Superseded[0].ID != first.Territory.ID {
		t.Fatalf("expected first territory reported as overlapped, got %+v", second.Superseded)
	}
	if owner, _ := store.QueryOwnerAt(geo.Coordinate{Lat: 0.0007, Lng: 0.0007}); owner != "user-b" {
		t.Fatalf("expected newest claim to win the overlap, got %q", owner)
	}
	if store.Len() != 2 {
		t.Fatalf("overlapped territory must remain stored")
	}
}

func TestResolveTooFewPoints(t *testing.T) {
	r := NewResolver(territory.NewStore(), nil, nil, 0)
	for n := 0; n < MinPoints; n++ {
		out := r.Resolve(context.Background(), "s", "user-a", record(t, nearlyClosedSquare(0, 0)[:n]...))
		if out.Captured || out.Reason != ReasonTooFewPoints {
			t.Fatalf("%d points: expected too_few_points, got %+v", n, out)
		}
	}
}

func TestResolveInvalidPolygon(t *testing.T) {
	store := territory.NewStore()
	board := &recordingBoard{}
	r := NewResolver(store, nil, board, 0)

	fin := record(t,
		geo.Coordinate{Lat: 0, Lng: 0},
		geo.Coordinate{Lat: 0, Lng: 0.001},
		geo.Coordinate{Lat: 0, Lng: 0},
	)
	out := r.Resolve(context.Background(), "s-1", "user-a", fin)
	if out.Captured || out.Reason != ReasonInvalidPolygon {
		t.Fatalf("expected invalid_polygon, got %+v", out)
	}
	if store.Len() != 0 || len(board.updates) != 0 {
		t.Fatalf("degenerate ring must not be committed")
	}
}

func TestResolveThresholdIsInclusive(t *testing.T) {
	path := nearlyClosedSquare(0, 0)
	gap := geo.DistanceKm(path[0], path[len(path)-1])

	r := NewResolver(territory.NewStore(), nil, nil, gap)
	if out := r.Resolve(context.Background(), "s-1", "user-a", record(t, path...)); !out.Captured {
		t.Fatalf("gap equal to the threshold should capture, got %+v", out)
	}

	r = NewResolver(territory.NewStore(), nil, nil, gap*0.99)
	if out := r.Resolve(context.Background(), "s-2", "user-a", record(t, path...)); out.Reason != ReasonLoopNotClosed {
		t.Fatalf("gap above the threshold should not capture, got %+v", out)
	}

	if NewResolver(territory.NewStore(), nil, nil, -1).ThresholdKm() != DefaultThresholdKm {
		t.Fatalf("expected default threshold")
	}
}

func TestResolveCollaboratorFailuresDoNotSurface(t *testing.T) {
	store := territory.NewStore()
	board := &recordingBoard{err: errors.New("redis down")}
	saver := &recordingSaver{err: errors.New("postgres down")}
	r := NewResolver(store, saver, board, 0)

	out := r.Resolve(context.Background(), "s-1", "user-a", record(t, nearlyClosedSquare(0, 0)...))
	if !out.Captured || store.Len() != 1 {
		t.Fatalf("capture must stand when collaborators fail, got %+v", out)
	}
	if len(board.updates) != 1 {
		t.Fatalf("expected a single attempt, got %d", len(board.updates))
	}
}
