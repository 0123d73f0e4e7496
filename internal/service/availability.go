package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"studio-service/api"
	"studio-service/internal/availability"
	"studio-service/internal/models"
	"studio-service/pkg/response"

	"github.com/google/uuid"
)

const dateLayout = "2006-01-02"

// SaveAvailability stores a new version of the owner's weekly schedule.
// Older versions are kept; the most recently created one is active.
func (s *Service) SaveAvailability(ctx context.Context, req *api.AvailabilityRequest) (*api.AvailabilityResponse, error) {
	const op = "service.SaveAvailability"

	if strings.TrimSpace(req.AdminUserID) == "" {
		return nil, &ValidationError{Msg: "adminUserId is required"}
	}
	if req.AvailabilityRule == nil {
		return nil, &ValidationError{Msg: "availability_rule is required"}
	}

	rule := make(availability.Rule, 0, len(req.AvailabilityRule))
	for _, w := range req.AvailabilityRule {
		rule = append(rule, availability.Window{Dow: w.Dow, Start: w.Start, End: w.End})
	}

	if err := availability.Validate(rule); err != nil {
		return nil, &ValidationError{Msg: "invalid availability_rule: " + err.Error()}
	}

	validFrom, err := parseOptionalDate(req.ValidFrom)
	if err != nil {
		return nil, &ValidationError{Msg: "valid_from must be YYYY-MM-DD"}
	}
	validTo, err := parseOptionalDate(req.ValidTo)
	if err != nil {
		return nil, &ValidationError{Msg: "valid_to must be YYYY-MM-DD"}
	}
	if validFrom != nil && validTo != nil && validTo.Before(*validFrom) {
		return nil, &ValidationError{Msg: "valid_to must not be before valid_from"}
	}

	raw, err := json.Marshal(rule)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	stored := &models.AvailabilityRule{
		ID:        uuid.NewString(),
		OwnerID:   req.AdminUserID,
		Rule:      raw,
		ValidFrom: validFrom,
		ValidTo:   validTo,
	}

	if err := s.store.CreateAvailabilityRule(ctx, stored); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return toAvailabilityResponse(stored), nil
}

func (s *Service) GetAvailability(ctx context.Context, adminUserID string) (*api.AvailabilityResponse, error) {
	const op = "service.GetAvailability"

	stored, err := s.store.LatestAvailabilityRule(ctx, adminUserID)
	if err != nil {
		if errors.Is(err, response.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, response.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return toAvailabilityResponse(stored), nil
}

func toAvailabilityResponse(stored *models.AvailabilityRule) *api.AvailabilityResponse {
	windows := []api.AvailabilityWindow{}
	for _, w := range availability.Parse(stored.Rule) {
		windows = append(windows, api.AvailabilityWindow{Dow: w.Dow, Start: w.Start, End: w.End})
	}

	return &api.AvailabilityResponse{
		ID:               stored.ID,
		AdminUserID:      stored.OwnerID,
		AvailabilityRule: windows,
		ValidFrom:        formatOptionalDate(stored.ValidFrom),
		ValidTo:          formatOptionalDate(stored.ValidTo),
		CreatedAt:        stored.CreatedAt,
	}
}

func parseOptionalDate(s *string) (*time.Time, error) {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil, nil
	}

	t, err := time.Parse(dateLayout, strings.TrimSpace(*s))
	if err != nil {
		return nil, err
	}

	return &t, nil
}

func formatOptionalDate(t *time.Time) *string {
	if t == nil {
		return nil
	}

	s := t.Format(dateLayout)
	return &s
}
