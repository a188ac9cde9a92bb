package territory

import (
	"errors"
	"fmt"

	"backend-turfwar/internal/shared/geo"

	"github.com/golang/geo/s2"
	"github.com/paulmach/orb"
)

const (
	earthRadiusM = geo.EarthRadiusKm * 1000
	// MinAreaM2 rejects rings that collapse onto a line.
	MinAreaM2 = 1.0
)

var ErrInvalidRing = errors.New("invalid territory ring")

// CloseRing returns the path followed by its first point.
func CloseRing(path geo.Path) []geo.Coordinate {
	ring := make([]geo.Coordinate, 0, len(path)+1)
	ring = append(ring, path...)
	return append(ring, path.First())
}

// ValidateRing checks a closed ring against the store invariant: at least
// three distinct vertices plus the closing point, no crossing between
// non-adjacent edges and a non-degenerate area.
func ValidateRing(ring []geo.Coordinate) error {
	if len(ring) < 4 {
		return fmt.Errorf("%w: %d points", ErrInvalidRing, len(ring))
	}
	first, last := ring[0], ring[len(ring)-1]
	if first.Lat != last.Lat || first.Lng != last.Lng {
		return fmt.Errorf("%w: ring not closed", ErrInvalidRing)
	}
	verts := loopVertices(ring)
	if len(verts) < 3 {
		return fmt.Errorf("%w: %d distinct vertices", ErrInvalidRing, len(verts))
	}
	if i, j, ok := findSelfIntersection(verts); ok {
		return fmt.Errorf("%w: edges %d and %d intersect", ErrInvalidRing, i, j)
	}
	if area := loopAreaM2(newLoop(verts)); area < MinAreaM2 {
		return fmt.Errorf("%w: area %.3f m2", ErrInvalidRing, area)
	}
	return nil
}

// AreaM2 returns the spherical area enclosed by the ring.
func AreaM2(ring []geo.Coordinate) float64 {
	verts := loopVertices(ring)
	if len(verts) < 3 {
		return 0
	}
	return loopAreaM2(newLoop(verts))
}

// loopVertices drops consecutive duplicates and the closing point, which
// s2 loops keep implicit.
func loopVertices(ring []geo.Coordinate) []s2.Point {
	verts := make([]s2.Point, 0, len(ring))
	for _, c := range ring {
		p := c.S2Point()
		if n := len(verts); n > 0 && verts[n-1] == p {
			continue
		}
		verts = append(verts, p)
	}
	for len(verts) > 1 && verts[len(verts)-1] == verts[0] {
		verts = verts[:len(verts)-1]
	}
	return verts
}

// newLoop builds a loop enclosing the smaller region regardless of winding.
func newLoop(verts []s2.Point) *s2.Loop {
	loop := s2.LoopFromPoints(verts)
	loop.Normalize()
	return loop
}

func loopAreaM2(loop *s2.Loop) float64 {
	return loop.Area() * earthRadiusM * earthRadiusM
}

func findSelfIntersection(verts []s2.Point) (int, int, bool) {
	n := len(verts)
	if n < 4 {
		return 0, 0, false
	}
	bounds := make([]orb.Bound, n)
	for i := 0; i < n; i++ {
		a := s2.LatLngFromPoint(verts[i])
		b := s2.LatLngFromPoint(verts[(i+1)%n])
		bounds[i] = orb.Bound{
			Min: orb.Point{a.Lng.Degrees(), a.Lat.Degrees()},
			Max: orb.Point{a.Lng.Degrees(), a.Lat.Degrees()},
		}.Extend(orb.Point{b.Lng.Degrees(), b.Lat.Degrees()})
	}
	for i := 0; i < n; i++ {
		crosser := s2.NewEdgeCrosser(verts[i], verts[(i+1)%n])
		for j := i + 2; j < n; j++ {
			if i == 0 && j == n-1 {
				continue
			}
			if !bounds[i].Intersects(bounds[j]) {
				continue
			}
			if crosser.CrossingSign(verts[j], verts[(j+1)%n]) != s2.DoNotCross {
				return i, j, true
			}
		}
	}
	return 0, 0, false
}
