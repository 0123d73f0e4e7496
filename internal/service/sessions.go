package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"studio-service/api"
	"studio-service/pkg/response"
)

func (s *Service) ListSessionTypes(ctx context.Context) ([]*api.SessionTypeResponse, error) {
	const op = "service.ListSessionTypes"

	types, err := s.store.ListSessionTypes(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	result := make([]*api.SessionTypeResponse, 0, len(types))
	for _, t := range types {
		result = append(result, &api.SessionTypeResponse{
			ID:              t.ID,
			Name:            t.Name,
			DurationMinutes: t.DurationMinutes,
		})
	}

	return result, nil
}

func (s *Service) ListClientSessions(ctx context.Context, clientID string) ([]*api.SessionResponse, error) {
	const op = "service.ListClientSessions"

	if strings.TrimSpace(clientID) == "" {
		return nil, &ValidationError{Msg: "clientId is required"}
	}

	sessions, err := s.store.ListClientSessions(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	result := make([]*api.SessionResponse, 0, len(sessions))
	for i := range sessions {
		result = append(result, toSessionResponse(&sessions[i]))
	}

	return result, nil
}

func (s *Service) CancelSession(ctx context.Context, id string) (*api.SessionResponse, error) {
	const op = "service.CancelSession"

	session, err := s.store.CancelSession(ctx, id)
	if err != nil {
		if errors.Is(err, response.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, response.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return toSessionResponse(session), nil
}
