package leaderboard

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	DefaultKey = "leaderboard:distance"
	dedupeTTL  = 7 * 24 * time.Hour
)

// addScript marks the session as applied and bumps the user's score in one
// step, so a retried Add never double counts.
var addScript = redis.NewScript(`
if redis.call('SET', KEYS[2], ARGV[2], 'NX', 'EX', ARGV[3]) then
	redis.call('ZINCRBY', KEYS[1], ARGV[1], ARGV[2])
	return 1
end
return 0
`)

// RedisBoard keeps totals in a sorted set keyed by user id.
type RedisBoard struct {
	rdb *redis.Client
	key string
	dir Directory
}

func NewRedisBoard(rdb *redis.Client, key string, dir Directory) *RedisBoard {
	if key == "" {
		key = DefaultKey
	}
	return &RedisBoard{rdb: rdb, key: key, dir: dir}
}

func (b *RedisBoard) Add(ctx context.Context, u Update) error {
	if err := u.validate(); err != nil {
		return err
	}
	keys := []string{b.key, b.sessionKey(u.SessionID)}
	args := []any{
		strconv.FormatFloat(u.DistanceKm, 'f', -1, 64),
		u.UserID,
		int(dedupeTTL.Seconds()),
	}
	if err := addScript.Run(ctx, b.rdb, keys, args...).Err(); err != nil {
		return fmt.Errorf("leaderboard add %s: %w", u.SessionID, err)
	}
	return nil
}

func (b *RedisBoard) Top(ctx context.Context, n int) ([]Entry, error) {
	n = clampLimit(n)
	zs, err := b.rdb.ZRevRangeWithScores(ctx, b.key, 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("leaderboard top: %w", err)
	}
	entries := make([]Entry, 0, len(zs))
	for i, z := range zs {
		id, _ := z.Member.(string)
		entries = append(entries, Entry{Rank: i + 1, UserID: id, TotalDistanceKm: z.Score})
	}
	return withNames(ctx, b.dir, entries), nil
}

func (b *RedisBoard) sessionKey(sessionID string) string {
	return b.key + ":session:" + sessionID
}
