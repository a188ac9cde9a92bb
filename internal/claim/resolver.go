// Package claim decides whether a finished session closed a loop and, if so,
// commits the enclosed area as a territory.
package claim

import (
	"context"
	"log/slog"
	"time"

	"backend-turfwar/internal/capture"
	"backend-turfwar/internal/leaderboard"
	"backend-turfwar/internal/logger"
	"backend-turfwar/internal/metrics"
	"backend-turfwar/internal/shared/geo"
	"backend-turfwar/internal/territory"
)

const (
	// DefaultThresholdKm is the widest start/end gap still treated as a loop.
	DefaultThresholdKm = 0.05
	MinPoints          = 3
)

type Reason string

const (
	ReasonTooFewPoints   Reason = "too_few_points"
	ReasonLoopNotClosed  Reason = "loop_not_closed"
	ReasonInvalidPolygon Reason = "invalid_polygon"
)

// Outcome is the result of resolving one session. A NoCapture outcome is a
// normal result, not an error.
type Outcome struct {
	Captured        bool                  `json:"captured"`
	Reason          Reason                `json:"reason,omitempty"`
	Territory       *territory.Territory  `json:"territory,omitempty"`
	Superseded      []territory.Territory `json:"superseded,omitempty"`
	CloseDistanceKm float64               `json:"close_distance_km"`
	DistanceKm      float64               `json:"distance_km"`
	ElapsedSeconds  int64                 `json:"elapsed_seconds"`
	PointCount      int                   `json:"point_count"`
}

// Saver persists committed territories. Failures are logged; the in-memory
// store stays authoritative.
type Saver interface {
	Save(ctx context.Context, t territory.Territory) error
}

type Resolver struct {
	store       *territory.Store
	repo        Saver
	board       leaderboard.Aggregator
	thresholdKm float64
	log         *slog.Logger
}

// NewResolver wires the resolver. repo and board may be nil; thresholdKm <= 0
// selects DefaultThresholdKm.
func NewResolver(store *territory.Store, repo Saver, board leaderboard.Aggregator, thresholdKm float64) *Resolver {
	if thresholdKm <= 0 {
		thresholdKm = DefaultThresholdKm
	}
	return &Resolver{
		store:       store,
		repo:        repo,
		board:       board,
		thresholdKm: thresholdKm,
		log:         logger.L().With("component", "claim"),
	}
}

func (r *Resolver) ThresholdKm() float64 { return r.thresholdKm }

// Resolve evaluates a finished session owned by userID. It never fails: every
// problem downstream of the commit is logged and counted.
func (r *Resolver) Resolve(ctx context.Context, sessionID, userID string, fin capture.Finished) Outcome {
	start := time.Now()
	defer func() {
		metrics.ResolveDurationMs.Observe(float64(time.Since(start).Microseconds()) / 1000)
	}()

	out := Outcome{
		DistanceKm:     fin.DistanceKm,
		ElapsedSeconds: fin.ElapsedSeconds,
		PointCount:     len(fin.Path),
	}
	if len(fin.Path) < MinPoints {
		return r.noCapture(out, ReasonTooFewPoints, userID)
	}

	out.CloseDistanceKm = geo.DistanceKm(fin.Path.First(), fin.Path.Last())
	if out.CloseDistanceKm > r.thresholdKm {
		return r.noCapture(out, ReasonLoopNotClosed, userID)
	}

	// the ring closes on the first fix even when the last one is a few meters off
	ring := territory.CloseRing(fin.Path)
	if err := territory.ValidateRing(ring); err != nil {
		r.log.Info("rejected capture ring", "user_id", userID, "session_id", sessionID, "err", err)
		return r.noCapture(out, ReasonInvalidPolygon, userID)
	}

	out.Superseded = r.store.QueryOverlapping(ring)
	id := r.store.Commit(territory.Territory{
		OwnerID:    userID,
		Ring:       ring,
		DistanceKm: fin.DistanceKm,
	})
	committed, _ := r.store.Get(id)
	out.Captured = true
	out.Territory = &committed

	metrics.Captures.Inc()
	metrics.Territories.Set(float64(r.store.Len()))
	r.log.Info("territory captured",
		"user_id", userID,
		"session_id", sessionID,
		"territory_id", id,
		"area_m2", committed.AreaM2,
		"distance_km", fin.DistanceKm,
		"superseded", len(out.Superseded),
	)

	if r.repo != nil {
		if err := r.repo.Save(ctx, committed); err != nil {
			r.log.Error("persist territory failed", "territory_id", id, "err", err)
		}
	}
	if r.board != nil {
		err := r.board.Add(ctx, leaderboard.Update{SessionID: sessionID, UserID: userID, DistanceKm: fin.DistanceKm})
		if err != nil {
			metrics.LeaderboardFailures.Inc()
			r.log.Error("leaderboard update failed", "user_id", userID, "session_id", sessionID, "err", err)
		}
	}
	return out
}

func (r *Resolver) noCapture(out Outcome, reason Reason, userID string) Outcome {
	out.Reason = reason
	metrics.NoCaptures.WithLabelValues(string(reason)).Inc()
	r.log.Debug("no capture", "user_id", userID, "reason", reason, "close_distance_km", out.CloseDistanceKm)
	return out
}
