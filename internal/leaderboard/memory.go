package leaderboard

import (
	"context"
	"sort"
	"sync"
)

// MemoryBoard is the in-process Board used when Redis is not configured.
type MemoryBoard struct {
	mu      sync.Mutex
	totals  map[string]float64
	applied map[string]struct{}
	dir     Directory
}

func NewMemoryBoard(dir Directory) *MemoryBoard {
	return &MemoryBoard{
		totals:  map[string]float64{},
		applied: map[string]struct{}{},
		dir:     dir,
	}
}

func (b *MemoryBoard) Add(_ context.Context, u Update) error {
	if err := u.validate(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.applied[u.SessionID]; ok {
		return nil
	}
	b.applied[u.SessionID] = struct{}{}
	b.totals[u.UserID] += u.DistanceKm
	return nil
}

func (b *MemoryBoard) Top(ctx context.Context, n int) ([]Entry, error) {
	n = clampLimit(n)
	b.mu.Lock()
	entries := make([]Entry, 0, len(b.totals))
	for id, total := range b.totals {
		entries = append(entries, Entry{UserID: id, TotalDistanceKm: total})
	}
	b.mu.Unlock()

	// same ordering as ZREVRANGE: score desc, then member desc
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].TotalDistanceKm != entries[j].TotalDistanceKm {
			return entries[i].TotalDistanceKm > entries[j].TotalDistanceKm
		}
		return entries[i].UserID > entries[j].UserID
	})
	if len(entries) > n {
		entries = entries[:n]
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return withNames(ctx, b.dir, entries), nil
}
