package territory

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"backend-turfwar/internal/shared/geo"

	"github.com/golang/geo/s2"
	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

type entry struct {
	t     Territory
	ring  orb.Ring
	bound orb.Bound
	loop  *s2.Loop
}

// snapshot is immutable once published. entries are in commit order.
type snapshot struct {
	entries []*entry
	byID    map[string]*entry
	seq     uint64
}

// Store is the authoritative set of claimed territories. Commits are
// serialised by a writer mutex and publish a new snapshot; readers load the
// current snapshot and never block.
type Store struct {
	mu   sync.Mutex
	snap atomic.Pointer[snapshot]
	now  func() time.Time
}

func NewStore() *Store {
	s := &Store{now: time.Now}
	s.snap.Store(&snapshot{byID: map[string]*entry{}})
	return s
}

// Commit inserts t as a new record and returns its id. Overlapping territories
// of other owners are left untouched; later commits shadow them at query time.
func (s *Store) Commit(t Territory) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.snap.Load()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.ClaimedAt.IsZero() {
		t.ClaimedAt = s.now()
	}
	if t.AreaM2 == 0 {
		t.AreaM2 = AreaM2(t.Ring)
	}
	t.Seq = cur.seq + 1

	next := &snapshot{
		entries: make([]*entry, len(cur.entries), len(cur.entries)+1),
		byID:    make(map[string]*entry, len(cur.byID)+1),
		seq:     t.Seq,
	}
	copy(next.entries, cur.entries)
	for id, e := range cur.byID {
		next.byID[id] = e
	}
	e := newEntry(t)
	next.entries = append(next.entries, e)
	next.byID[t.ID] = e

	s.snap.Store(next)
	return t.ID
}

// Load restores previously persisted territories in claim order. Rings that
// violate the store invariant are skipped and returned.
func (s *Store) Load(items []Territory) (skipped []Territory) {
	sorted := append([]Territory(nil), items...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ClaimedAt.Before(sorted[j].ClaimedAt)
	})
	for _, t := range sorted {
		if err := ValidateRing(t.Ring); err != nil {
			skipped = append(skipped, t)
			continue
		}
		s.Commit(t)
	}
	return skipped
}

// QueryOwnerAt returns the owner of the most recently committed territory
// containing p, or Unclaimed.
func (s *Store) QueryOwnerAt(p geo.Coordinate) (string, bool) {
	t, ok := s.TerritoryAt(p)
	if !ok {
		return Unclaimed, false
	}
	return t.OwnerID, true
}

func (s *Store) TerritoryAt(p geo.Coordinate) (Territory, bool) {
	snap := s.snap.Load()
	pt := p.OrbPoint()
	for i := len(snap.entries) - 1; i >= 0; i-- {
		e := snap.entries[i]
		if !e.bound.Contains(pt) {
			continue
		}
		if planar.RingContains(e.ring, pt) {
			return e.t, true
		}
	}
	return Territory{}, false
}

// QueryOverlapping returns every stored territory whose area intersects the
// given ring, oldest first.
func (s *Store) QueryOverlapping(ring []geo.Coordinate) []Territory {
	verts := loopVertices(ring)
	if len(verts) < 3 {
		return nil
	}
	loop := newLoop(verts)
	bound := geo.OrbRing(ring).Bound()

	snap := s.snap.Load()
	var out []Territory
	for _, e := range snap.entries {
		if !e.bound.Intersects(bound) {
			continue
		}
		if e.loop.Intersects(loop) {
			out = append(out, e.t)
		}
	}
	return out
}

// Within returns territories whose bounding box intersects b, oldest first.
func (s *Store) Within(b orb.Bound) []Territory {
	snap := s.snap.Load()
	var out []Territory
	for _, e := range snap.entries {
		if e.bound.Intersects(b) {
			out = append(out, e.t)
		}
	}
	return out
}

func (s *Store) Get(id string) (Territory, bool) {
	e, ok := s.snap.Load().byID[id]
	if !ok {
		return Territory{}, false
	}
	return e.t, true
}

func (s *Store) All() []Territory {
	snap := s.snap.Load()
	out := make([]Territory, 0, len(snap.entries))
	for _, e := range snap.entries {
		out = append(out, e.t)
	}
	return out
}

func (s *Store) Len() int {
	return len(s.snap.Load().entries)
}

func newEntry(t Territory) *entry {
	ring := geo.OrbRing(t.Ring)
	e := &entry{t: t, ring: ring, bound: ring.Bound()}
	if verts := loopVertices(t.Ring); len(verts) >= 3 {
		e.loop = newLoop(verts)
	} else {
		e.loop = s2.EmptyLoop()
	}
	return e
}
