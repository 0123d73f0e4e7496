package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"studio-service/api"
	"studio-service/internal/availability"
	"studio-service/internal/events"
	"studio-service/internal/models"
	"studio-service/pkg/response"
	"studio-service/pkg/sl"

	"github.com/google/uuid"
)

// BatchBook validates every item against availability, overlap and travel
// constraints and persists all of them in one transaction, or none.
// Travel is checked against already persisted sessions only; items of the
// same batch are not chained against each other.
func (s *Service) BatchBook(ctx context.Context, req *api.BatchBookRequest) ([]string, error) {
	const op = "service.BatchBook"

	items, err := validateBatch(req)
	if err != nil {
		return nil, err
	}

	lockKey := fmt.Sprintf("sessions:client:%s", req.ClientID)

	locked, err := s.locker.Lock(ctx, lockKey, s.lockTTL)
	if err != nil {
		return nil, fmt.Errorf("%s: lock error: %w", op, err)
	}
	if !locked {
		return nil, fmt.Errorf("%s: %w", op, response.ErrLocked)
	}
	defer func() {
		_ = s.locker.Unlock(context.WithoutCancel(ctx), lockKey)
	}()

	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: begin tx: %w", op, err)
	}

	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	rule, err := s.activeRule(ctx, tx.LatestAvailabilityRule, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("%s: availability rule: %w", op, err)
	}

	for i := range items {
		item := &items[i]

		if !availability.IsWithin(rule, item.Start, item.End, s.loc) {
			return nil, fmt.Errorf("%s: %w", op, &ConflictError{Msg: fmt.Sprintf(
				"requested time on %s (%s-%s) is outside studio availability",
				item.Start.In(s.loc).Format("2006-01-02"),
				item.Start.In(s.loc).Format("15:04"),
				item.End.In(s.loc).Format("15:04"),
			)})
		}

		overlap, err := tx.FindOverlap(ctx, req.ClientID, item.Start, item.End)
		if err != nil {
			return nil, fmt.Errorf("%s: overlap check: %w", op, err)
		}
		if overlap != nil {
			return nil, fmt.Errorf("%s: %w", op, &ConflictError{Msg: fmt.Sprintf(
				"requested time %s-%s overlaps existing session %s-%s",
				item.Start.In(s.loc).Format("2006-01-02 15:04"),
				item.End.In(s.loc).Format("15:04"),
				overlap.StartAt.In(s.loc).Format("2006-01-02 15:04"),
				overlap.EndAt.In(s.loc).Format("15:04"),
			)})
		}

		if err := s.checkTravel(ctx, tx, req.ClientID, item); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	ids := make([]string, 0, len(items))
	for i := range items {
		item := &items[i]

		session := &models.Session{
			ID:              uuid.NewString(),
			ClientID:        req.ClientID,
			UserID:          req.UserID,
			SessionTypeID:   req.SessionTypeID,
			StartAt:         item.Start,
			EndAt:           item.End,
			LocationText:    item.LocationText,
			SpecificAddress: item.SpecificAddress,
			Latitude:        item.Latitude,
			Longitude:       item.Longitude,
			Status:          models.SessionBooked,
			Notes:           req.Message,
		}

		if err := tx.InsertSession(ctx, session); err != nil {
			if errors.Is(err, response.ErrOverlap) {
				return nil, fmt.Errorf("%s: %w", op, &ConflictError{Msg: fmt.Sprintf(
					"requested time %s-%s overlaps an existing session",
					item.Start.In(s.loc).Format("2006-01-02 15:04"),
					item.End.In(s.loc).Format("15:04"),
				)})
			}
			if errors.Is(err, response.ErrNotFound) {
				return nil, &ValidationError{Msg: fmt.Sprintf("unknown sessionTypeId %q", req.SessionTypeID)}
			}
			return nil, fmt.Errorf("%s: insert session: %w", op, err)
		}

		ids = append(ids, session.ID)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%s: commit: %w", op, err)
	}
	committed = true

	s.log.Info("Sessions booked",
		slog.String("client_id", req.ClientID),
		slog.Int("count", len(ids)),
	)

	event := events.SessionsBooked{
		ClientID:      req.ClientID,
		UserID:        req.UserID,
		SessionTypeID: req.SessionTypeID,
		SessionIDs:    ids,
		Message:       req.Message,
		BookedAt:      time.Now().UTC().Format(time.RFC3339),
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), EventPublishTimeout)
	defer cancel()

	if err := s.publisher.PublishSessionsBooked(pubCtx, event); err != nil {
		s.log.Error("Failed to publish sessions booked event", sl.Err(err))
	}

	return ids, nil
}

func validateBatch(req *api.BatchBookRequest) ([]models.BookingItem, error) {
	if req == nil {
		return nil, &ValidationError{Msg: "request body is required"}
	}
	if strings.TrimSpace(req.ClientID) == "" {
		return nil, &ValidationError{Msg: "clientId is required"}
	}
	if strings.TrimSpace(req.UserID) == "" {
		return nil, &ValidationError{Msg: "userId is required"}
	}
	if strings.TrimSpace(req.SessionTypeID) == "" {
		return nil, &ValidationError{Msg: "sessionTypeId is required"}
	}
	if len(req.Items) == 0 {
		return nil, &ValidationError{Msg: "items must not be empty"}
	}

	items := make([]models.BookingItem, 0, len(req.Items))
	for i, it := range req.Items {
		start, err := time.Parse(time.RFC3339, it.Start)
		if err != nil {
			return nil, &ValidationError{Msg: fmt.Sprintf("items[%d].start must be RFC3339", i)}
		}
		end, err := time.Parse(time.RFC3339, it.End)
		if err != nil {
			return nil, &ValidationError{Msg: fmt.Sprintf("items[%d].end must be RFC3339", i)}
		}
		if !start.Before(end) {
			return nil, &ValidationError{Msg: fmt.Sprintf("items[%d].start must be before end", i)}
		}
		if (it.Latitude == nil) != (it.Longitude == nil) {
			return nil, &ValidationError{Msg: fmt.Sprintf("items[%d] must set both latitude and longitude", i)}
		}

		items = append(items, models.BookingItem{
			Start:           start,
			End:             end,
			LocationText:    it.LocationText,
			SpecificAddress: it.SpecificAddress,
			Latitude:        it.Latitude,
			Longitude:       it.Longitude,
		})
	}

	return items, nil
}
