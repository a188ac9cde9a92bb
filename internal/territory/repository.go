package territory

import (
	"context"
	"fmt"

	"backend-turfwar/internal/db"
	"backend-turfwar/internal/shared/geo"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
)

// Repository persists committed territories so a restarted process can
// rebuild its store.
type Repository struct {
	db db.Querier
}

func NewRepository(db db.Querier) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Save(ctx context.Context, t Territory) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO territories (id, owner_id, boundary, claimed_at, area_m2, distance_km)
		VALUES ($1,$2, ST_GeogFromText($3), $4, $5, $6)
		ON CONFLICT (id) DO NOTHING
	`, t.ID, t.OwnerID, RingWKT(t.Ring), t.ClaimedAt, t.AreaM2, t.DistanceKm)
	if err != nil {
		return fmt.Errorf("save territory %s: %w", t.ID, err)
	}
	return nil
}

func (r *Repository) LoadAll(ctx context.Context) ([]Territory, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, owner_id, ST_AsText(boundary), claimed_at, COALESCE(area_m2,0), COALESCE(distance_km,0)
		FROM territories
		ORDER BY claimed_at
	`)
	if err != nil {
		return nil, fmt.Errorf("load territories: %w", err)
	}
	defer rows.Close()

	var out []Territory
	for rows.Next() {
		var t Territory
		var boundary string
		if err := rows.Scan(&t.ID, &t.OwnerID, &boundary, &t.ClaimedAt, &t.AreaM2, &t.DistanceKm); err != nil {
			return nil, fmt.Errorf("scan territory: %w", err)
		}
		poly, err := wkt.UnmarshalPolygon(boundary)
		if err != nil || len(poly) == 0 {
			return nil, fmt.Errorf("territory %s boundary %q: %w", t.ID, boundary, ErrInvalidRing)
		}
		t.Ring = geo.FromOrbRing(poly[0])
		out = append(out, t)
	}
	return out, rows.Err()
}

func RingWKT(ring []geo.Coordinate) string {
	return wkt.MarshalString(orb.Polygon{geo.OrbRing(ring)})
}
