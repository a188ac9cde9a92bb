package leaderboard

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type stubDirectory struct {
	names map[string]string
	err   error
}

func (s stubDirectory) DisplayNames(_ context.Context, _ []string) (map[string]string, error) {
	return s.names, s.err
}

func newRedisBoard(t *testing.T, dir Directory) (*RedisBoard, *redis.Client) {
	t.Helper()
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisBoard(client, "", dir), client
}

func TestRedisBoardAddIsIdempotentPerSession(t *testing.T) {
	board, client := newRedisBoard(t, nil)
	ctx := context.Background()

	if err := board.Add(ctx, Update{SessionID: "s-1", UserID: "user-a", DistanceKm: 1.25}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := board.Add(ctx, Update{SessionID: "s-1", UserID: "user-a", DistanceKm: 1.25}); err != nil {
		t.Fatalf("redelivery: %v", err)
	}
	if err := board.Add(ctx, Update{SessionID: "s-2", UserID: "user-a", DistanceKm: 0.75}); err != nil {
		t.Fatalf("second session: %v", err)
	}

	score, err := client.ZScore(ctx, DefaultKey, "user-a").Result()
	if err != nil {
		t.Fatalf("zscore: %v", err)
	}
	if math.Abs(score-2.0) > 1e-9 {
		t.Fatalf("expected total 2.0, got %v", score)
	}
	if ttl := client.TTL(ctx, DefaultKey+":session:s-1").Val(); ttl <= 0 {
		t.Fatalf("expected dedupe key with ttl, got %v", ttl)
	}
}

func TestRedisBoardTop(t *testing.T) {
	board, _ := newRedisBoard(t, stubDirectory{names: map[string]string{"user-b": "Bea"}})
	ctx := context.Background()

	_ = board.Add(ctx, Update{SessionID: "s-1", UserID: "user-a", DistanceKm: 1})
	_ = board.Add(ctx, Update{SessionID: "s-2", UserID: "user-b", DistanceKm: 3})
	_ = board.Add(ctx, Update{SessionID: "s-3", UserID: "user-c", DistanceKm: 2})

	top, err := board.Top(ctx, 2)
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	if len(top) != 2 || top[0].UserID != "user-b" || top[1].UserID != "user-c" {
		t.Fatalf("unexpected ranking %+v", top)
	}
	if top[0].Rank != 1 || top[0].DisplayName != "Bea" || top[1].DisplayName != "user-c" {
		t.Fatalf("unexpected names %+v", top)
	}
}

func TestRedisBoardValidation(t *testing.T) {
	board, _ := newRedisBoard(t, nil)
	for _, u := range []Update{
		{UserID: "user-a", DistanceKm: 1},
		{SessionID: "s-1", DistanceKm: 1},
		{SessionID: "s-1", UserID: "user-a", DistanceKm: -1},
	} {
		if err := board.Add(context.Background(), u); !errors.Is(err, ErrInvalidUpdate) {
			t.Fatalf("expected ErrInvalidUpdate for %+v, got %v", u, err)
		}
	}
}

func TestRedisBoardUnavailable(t *testing.T) {
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer client.Close()
	s.Close()

	board := NewRedisBoard(client, "lb", nil)
	if err := board.Add(context.Background(), Update{SessionID: "s-1", UserID: "user-a", DistanceKm: 1}); err == nil {
		t.Fatalf("expected error when redis is down")
	}
	if _, err := board.Top(context.Background(), 5); err == nil {
		t.Fatalf("expected top error when redis is down")
	}
}
