// Package geo resolves addresses to coordinates and estimates one-way
// travel time between two locations.
package geo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"studio-service/internal/models"
)

var (
	ErrNotFound = errors.New("geo: address not found")
	ErrNoRoute  = errors.New("geo: no route")
)

// Location is either a resolved point or a free-text address.
type Location struct {
	Point   *models.GeoPoint
	Address string
}

func AtPoint(p models.GeoPoint) Location {
	return Location{Point: &p}
}

func AtAddress(addr string) Location {
	return Location{Address: addr}
}

func (l Location) IsZero() bool {
	return l.Point == nil && strings.TrimSpace(l.Address) == ""
}

// key is a stable representation used for caching and request values.
func (l Location) key() string {
	if l.Point != nil {
		return fmt.Sprintf("%.6f,%.6f", l.Point.Lat, l.Point.Lng)
	}
	return normalizeAddress(l.Address)
}

func normalizeAddress(addr string) string {
	return strings.ToLower(strings.Join(strings.Fields(addr), " "))
}

type Provider interface {
	Geocode(ctx context.Context, address string) (models.GeoPoint, error)
	DistanceMinutes(ctx context.Context, origin, destination Location) (int, error)
}
