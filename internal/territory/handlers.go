package territory

import (
	"strconv"
	"strings"

	"backend-turfwar/internal/shared/geo"

	"github.com/gofiber/fiber/v2"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// RegisterRoutes exposes read-only queries for map renderers.
func RegisterRoutes(r fiber.Router, store *Store) {
	r.Get("/", func(c *fiber.Ctx) error {
		items := store.All()
		if raw := c.Query("bbox"); raw != "" {
			b, err := parseBBox(raw)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
			items = store.Within(b)
		}
		return c.JSON(FeatureCollection(items))
	})

	r.Get("/owner", func(c *fiber.Ctx) error {
		lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
		lng, errLng := strconv.ParseFloat(c.Query("lng"), 64)
		point := geo.Coordinate{Lat: lat, Lng: lng}
		if errLat != nil || errLng != nil || geo.Validate(point) != nil {
			return fiber.NewError(fiber.StatusBadRequest, "valid lat and lng required")
		}
		res := OwnerResult{Lat: lat, Lng: lng, OwnerID: Unclaimed}
		if t, ok := store.TerritoryAt(point); ok {
			res.OwnerID = t.OwnerID
			res.TerritoryID = t.ID
			res.Claimed = true
		}
		return c.JSON(res)
	})

	r.Post("/overlapping", func(c *fiber.Ctx) error {
		var body struct {
			Ring []geo.Coordinate `json:"ring"`
		}
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if len(body.Ring) < 3 {
			return fiber.NewError(fiber.StatusBadRequest, "ring needs at least 3 points")
		}
		for _, p := range body.Ring {
			if err := geo.Validate(p); err != nil {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
		}
		return c.JSON(FeatureCollection(store.QueryOverlapping(body.Ring)))
	})

	r.Get("/:id", func(c *fiber.Ctx) error {
		t, ok := store.Get(c.Params("id"))
		if !ok {
			return fiber.NewError(fiber.StatusNotFound, "territory not found")
		}
		return c.JSON(t)
	})
}

// FeatureCollection renders territories as GeoJSON polygons.
func FeatureCollection(items []Territory) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, t := range items {
		f := geojson.NewFeature(orb.Polygon{geo.OrbRing(t.Ring)})
		f.ID = t.ID
		f.Properties["owner_id"] = t.OwnerID
		f.Properties["claimed_at"] = t.ClaimedAt
		f.Properties["area_m2"] = t.AreaM2
		f.Properties["seq"] = t.Seq
		fc.Append(f)
	}
	return fc
}

// parseBBox reads "minLng,minLat,maxLng,maxLat".
func parseBBox(raw string) (orb.Bound, error) {
	parts := strings.Split(raw, ",")
	if len(parts) != 4 {
		return orb.Bound{}, fiber.NewError(fiber.StatusBadRequest, "bbox must be minLng,minLat,maxLng,maxLat")
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return orb.Bound{}, fiber.NewError(fiber.StatusBadRequest, "bbox values must be numbers")
		}
		v[i] = f
	}
	return orb.Bound{Min: orb.Point{v[0], v[1]}, Max: orb.Point{v[2], v[3]}}, nil
}
