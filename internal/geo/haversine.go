package geo

import (
	"context"
	"math"

	"studio-service/internal/models"
)

const earthRadiusKm = 6371

type Geocoder interface {
	Geocode(ctx context.Context, address string) (models.GeoPoint, error)
}

// Haversine estimates travel time from great-circle distance at a fixed
// average speed. Address lookups are delegated to Geocoder when set.
type Haversine struct {
	SpeedKmh float64
	Geocoder Geocoder
}

func (h *Haversine) Geocode(ctx context.Context, address string) (models.GeoPoint, error) {
	if h.Geocoder == nil {
		return models.GeoPoint{}, ErrNotFound
	}
	return h.Geocoder.Geocode(ctx, address)
}

func (h *Haversine) DistanceMinutes(ctx context.Context, origin, destination Location) (int, error) {
	from, err := h.point(ctx, origin)
	if err != nil {
		return 0, err
	}
	to, err := h.point(ctx, destination)
	if err != nil {
		return 0, err
	}

	speed := h.SpeedKmh
	if speed <= 0 {
		speed = 40
	}

	km := DistanceKm(from, to)
	return int(math.Ceil(km / speed * 60)), nil
}

func (h *Haversine) point(ctx context.Context, l Location) (models.GeoPoint, error) {
	if l.Point != nil {
		return *l.Point, nil
	}
	if l.Address == "" {
		return models.GeoPoint{}, ErrNoRoute
	}

	p, err := h.Geocode(ctx, l.Address)
	if err != nil {
		return models.GeoPoint{}, ErrNoRoute
	}
	return p, nil
}

// DistanceKm is the great-circle distance between two points.
func DistanceKm(a, b models.GeoPoint) float64 {
	dLat := (b.Lat - a.Lat) * (math.Pi / 180)
	dLon := (b.Lng - a.Lng) * (math.Pi / 180)
	lat1 := a.Lat * (math.Pi / 180)
	lat2 := b.Lat * (math.Pi / 180)

	x := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(x), math.Sqrt(1-x))

	return earthRadiusKm * c
}
