package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"studio-service/internal/availability"
	"studio-service/internal/geo"
)

// EarliestFeasibleStart suggests the first quarter-hour start on date at
// which the studio can reach address and a nominal session fits the
// availability rule. It is a planning hint: overlaps and the travel buffer
// to a following session are checked only when booking.
func (s *Service) EarliestFeasibleStart(ctx context.Context, ownerID, clientID, dateISO, address string) (*time.Time, error) {
	const op = "service.EarliestFeasibleStart"

	if strings.TrimSpace(clientID) == "" {
		return nil, &ValidationError{Msg: "clientId is required"}
	}
	if strings.TrimSpace(address) == "" {
		return nil, &ValidationError{Msg: "address is required"}
	}

	date, err := s.parseDate(dateISO)
	if err != nil {
		return nil, &ValidationError{Msg: "dateISO must be YYYY-MM-DD or RFC3339"}
	}

	point, err := s.geocode(ctx, address)
	if err != nil {
		s.logGeoFailure("Target address could not be resolved", err, slog.String("address", address))
		return nil, nil
	}
	target := geo.AtPoint(point)

	rule, err := s.activeRule(ctx, s.store.LatestAvailabilityRule, ownerID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	dayStart := startOfDay(date, s.loc)
	sessions, err := s.store.SessionsBetween(ctx, clientID, dayStart, dayStart.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var candidate time.Time
	if len(sessions) == 0 {
		travel := s.travelMinutes(ctx, s.baseLocation(ctx), target)
		candidate = dayStart.Add(time.Duration(travel) * time.Minute)
	} else {
		last := sessions[len(sessions)-1]
		from := s.ensureCoords(ctx, last.Point(), last.Address())
		travel := s.travelMinutes(ctx, from, target)
		candidate = last.EndAt.Add(time.Duration(travel) * time.Minute)
	}

	slot := ceilQuarter(candidate, s.loc)
	for i := 0; i < SlotCount; i++ {
		if availability.IsWithin(rule, slot, slot.Add(NominalSessionDuration), s.loc) {
			return &slot, nil
		}
		slot = slot.Add(SlotStep)
	}

	return nil, nil
}

func (s *Service) parseDate(dateISO string) (time.Time, error) {
	dateISO = strings.TrimSpace(dateISO)

	if t, err := time.ParseInLocation("2006-01-02", dateISO, s.loc); err == nil {
		return t, nil
	}

	t, err := time.Parse(time.RFC3339, dateISO)
	if err != nil {
		return time.Time{}, err
	}

	return t.In(s.loc), nil
}
