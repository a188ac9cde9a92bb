package geo

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/golang/geo/s2"
	"github.com/paulmach/orb"
)

// EarthRadiusKm is the mean Earth radius used for every distance in the service.
const EarthRadiusKm = 6371.0

var ErrInvalidCoordinate = errors.New("invalid coordinate")

// Coordinate is a single fix. It is never mutated after being recorded.
type Coordinate struct {
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	Timestamp time.Time `json:"timestamp"`
}

// Path is the ordered, append-only buffer of fixes of one session.
type Path []Coordinate

// AppendPoint records c at the end of the path. Every fix is kept, including
// duplicates and stationary readings.
func AppendPoint(path Path, c Coordinate) Path {
	return append(path, c)
}

func (p Path) First() Coordinate { return p[0] }

func (p Path) Last() Coordinate { return p[len(p)-1] }

// DistanceKm returns the haversine great-circle distance between a and b.
func DistanceKm(a, b Coordinate) float64 {
	return HaversineKm(a.Lat, a.Lng, b.Lat, b.Lng)
}

func HaversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	p1 := s2.LatLngFromDegrees(lat1, lng1)
	p2 := s2.LatLngFromDegrees(lat2, lng2)
	return p1.Distance(p2).Radians() * EarthRadiusKm
}

// PathLengthKm sums the distance of every consecutive pair in order.
func PathLengthKm(path Path) float64 {
	total := 0.0
	for i := 1; i < len(path); i++ {
		total += DistanceKm(path[i-1], path[i])
	}
	return total
}

// Validate rejects fixes that must not reach a path buffer.
func Validate(c Coordinate) error {
	if math.IsNaN(c.Lat) || math.IsInf(c.Lat, 0) || math.IsNaN(c.Lng) || math.IsInf(c.Lng, 0) {
		return fmt.Errorf("%w: non-finite value (%v, %v)", ErrInvalidCoordinate, c.Lat, c.Lng)
	}
	if c.Lat < -90 || c.Lat > 90 {
		return fmt.Errorf("%w: latitude %v out of range", ErrInvalidCoordinate, c.Lat)
	}
	if c.Lng < -180 || c.Lng > 180 {
		return fmt.Errorf("%w: longitude %v out of range", ErrInvalidCoordinate, c.Lng)
	}
	return nil
}

// OrbPoint converts to orb's [lng, lat] order.
func (c Coordinate) OrbPoint() orb.Point {
	return orb.Point{c.Lng, c.Lat}
}

func (c Coordinate) S2Point() s2.Point {
	return s2.PointFromLatLng(s2.LatLngFromDegrees(c.Lat, c.Lng))
}

// OrbRing converts a ring of coordinates. The closing point is kept as is.
func OrbRing(ring []Coordinate) orb.Ring {
	r := make(orb.Ring, 0, len(ring))
	for _, c := range ring {
		r = append(r, c.OrbPoint())
	}
	return r
}

// FromOrbRing is the inverse of OrbRing; timestamps are left zero.
func FromOrbRing(r orb.Ring) []Coordinate {
	out := make([]Coordinate, 0, len(r))
	for _, p := range r {
		out = append(out, Coordinate{Lat: p.Lat(), Lng: p.Lon()})
	}
	return out
}
