package service

import (
	"context"
	"fmt"
	"log/slog"

	"studio-service/internal/geo"
	"studio-service/internal/models"
	"studio-service/internal/storage"
)

// ensureCoords resolves a session endpoint: stored coordinates first, then
// the geocoded address, then the studio base.
func (s *Service) ensureCoords(ctx context.Context, point *models.GeoPoint, address string) geo.Location {
	if point != nil {
		return geo.AtPoint(*point)
	}

	if address != "" {
		p, err := s.geocode(ctx, address)
		if err == nil {
			return geo.AtPoint(p)
		}
		s.logGeoFailure("Geocoding failed, falling back to base address", err, slog.String("address", address))
	}

	return s.baseLocation(ctx)
}

func (s *Service) baseLocation(ctx context.Context) geo.Location {
	if s.baseAddress == "" {
		return geo.Location{}
	}

	p, err := s.geocode(ctx, s.baseAddress)
	if err != nil {
		s.logGeoFailure("Geocoding base address failed", err)
		return geo.AtAddress(s.baseAddress)
	}

	return geo.AtPoint(p)
}

func (s *Service) geocode(ctx context.Context, address string) (models.GeoPoint, error) {
	ctx, cancel := context.WithTimeout(ctx, s.geoTimeout)
	defer cancel()

	return s.geo.Geocode(ctx, address)
}

// travelMinutes never fails: unknown travel time is
// DefaultTravelMinutesOnGeoFailure.
func (s *Service) travelMinutes(ctx context.Context, from, to geo.Location) int {
	if from.IsZero() || to.IsZero() {
		return DefaultTravelMinutesOnGeoFailure
	}
	if from.Point != nil && to.Point != nil && *from.Point == *to.Point {
		return 0
	}

	ctx, cancel := context.WithTimeout(ctx, s.geoTimeout)
	defer cancel()

	n, err := s.geo.DistanceMinutes(ctx, from, to)
	if err != nil {
		s.logGeoFailure("Travel time unavailable, assuming default", err,
			slog.Int("default_minutes", DefaultTravelMinutesOnGeoFailure),
		)
		return DefaultTravelMinutesOnGeoFailure
	}
	if n < 0 {
		return 0
	}

	return n
}

// checkTravel validates the candidate against its persisted neighbors of
// the same calendar owner. Without a previous session the commute from the
// base address is measured from the start of the candidate's day.
func (s *Service) checkTravel(ctx context.Context, tx storage.Tx, clientID string, item *models.BookingItem) error {
	const op = "service.checkTravel"

	target := s.ensureCoords(ctx, item.Point(), item.Address())

	prev, err := tx.PrevSession(ctx, clientID, item.Start)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if prev != nil {
		from := s.ensureCoords(ctx, prev.Point(), prev.Address())
		required := s.travelMinutes(ctx, from, target)
		gap := minutesBetween(prev.EndAt, item.Start)

		if gap < required {
			return &ConflictError{Msg: fmt.Sprintf(
				"insufficient travel time after previous session ending %s: %d minutes required, %d minutes scheduled",
				prev.EndAt.In(s.loc).Format("2006-01-02 15:04"), required, gap,
			)}
		}
	} else {
		required := s.travelMinutes(ctx, s.baseLocation(ctx), target)
		gap := minutesBetween(startOfDay(item.Start, s.loc), item.Start)

		if gap < required {
			return &ConflictError{Msg: fmt.Sprintf(
				"insufficient travel time from studio base: %d minutes required, session starts %d minutes into the day",
				required, gap,
			)}
		}
	}

	next, err := tx.NextSession(ctx, clientID, item.Start)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if next != nil {
		to := s.ensureCoords(ctx, next.Point(), next.Address())
		required := s.travelMinutes(ctx, target, to)
		gap := minutesBetween(item.End, next.StartAt)

		if gap < required {
			return &ConflictError{Msg: fmt.Sprintf(
				"insufficient travel time before next session starting %s: %d minutes required, %d minutes scheduled",
				next.StartAt.In(s.loc).Format("2006-01-02 15:04"), required, gap,
			)}
		}
	}

	return nil
}
