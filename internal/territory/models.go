package territory

import (
	"time"

	"backend-turfwar/internal/shared/geo"
)

// Unclaimed is the owner reported for a point no territory covers.
const Unclaimed = ""

type Territory struct {
	ID         string           `json:"id"`
	OwnerID    string           `json:"owner_id"`
	Ring       []geo.Coordinate `json:"ring"`
	ClaimedAt  time.Time        `json:"claimed_at"`
	AreaM2     float64          `json:"area_m2"`
	DistanceKm float64          `json:"distance_km"`
	Seq        uint64           `json:"seq"`
}

type OwnerResult struct {
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
	OwnerID     string  `json:"owner_id"`
	TerritoryID string  `json:"territory_id,omitempty"`
	Claimed     bool    `json:"claimed"`
}
