package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"studio-service/api"
	"studio-service/internal/availability"
	"studio-service/internal/events"
	"studio-service/internal/geo"
	"studio-service/internal/lock"
	"studio-service/internal/models"
	"studio-service/internal/storage"
	"studio-service/pkg/response"
	"studio-service/pkg/sl"
)

const (
	// DefaultTravelMinutesOnGeoFailure is the travel time assumed when the
	// geo provider cannot answer. Zero means booking proceeds without a
	// travel buffer.
	DefaultTravelMinutesOnGeoFailure = 0

	SlotStep               = 15 * time.Minute
	SlotCount              = 96
	NominalSessionDuration = 60 * time.Minute

	// EventPublishTimeout bounds the post-commit event publication.
	EventPublishTimeout = 2 * time.Second
)

type Service struct {
	store     Store
	locker    lock.Locker
	geo       geo.Provider
	publisher events.Publisher
	log       *slog.Logger

	loc         *time.Location
	baseAddress string
	geoTimeout  time.Duration
	lockTTL     time.Duration
}

type Options struct {
	Location    *time.Location
	BaseAddress string
	GeoTimeout  time.Duration
	LockTTL     time.Duration
}

func NewService(
	log *slog.Logger,
	store Store,
	locker lock.Locker,
	geoProvider geo.Provider,
	publisher events.Publisher,
	opts Options,
) *Service {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.GeoTimeout <= 0 {
		opts.GeoTimeout = 3 * time.Second
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = 10 * time.Second
	}
	if publisher == nil {
		publisher = events.Nop{}
	}

	return &Service{
		store:       store,
		locker:      locker,
		geo:         geoProvider,
		publisher:   publisher,
		log:         log,
		loc:         opts.Location,
		baseAddress: opts.BaseAddress,
		geoTimeout:  opts.GeoTimeout,
		lockTTL:     opts.LockTTL,
	}
}

type Store interface {
	BeginTx(ctx context.Context) (storage.Tx, error)

	// Availability
	LatestAvailabilityRule(ctx context.Context, ownerID string) (*models.AvailabilityRule, error)
	CreateAvailabilityRule(ctx context.Context, rule *models.AvailabilityRule) error

	// Sessions
	SessionsBetween(ctx context.Context, clientID string, from, to time.Time) ([]models.Session, error)
	ListClientSessions(ctx context.Context, clientID string) ([]models.Session, error)
	CancelSession(ctx context.Context, id string) (*models.Session, error)
	ListSessionTypes(ctx context.Context) ([]models.SessionType, error)
}

// ValidationError reports malformed input. Nothing has been read or written
// when it is returned.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }
func (e *ValidationError) Unwrap() error { return response.ErrBadRequest }

// ConflictError is a scheduling conflict: availability miss, overlap or
// insufficient travel buffer. Msg is shown to the user as is.
type ConflictError struct {
	Msg string
}

func (e *ConflictError) Error() string { return e.Msg }
func (e *ConflictError) Unwrap() error { return response.ErrConflict }

type ruleFetcher func(ctx context.Context, ownerID string) (*models.AvailabilityRule, error)

// activeRule loads the latest rule of ownerID. A missing or malformed rule
// is returned as nil, which accepts every interval.
func (s *Service) activeRule(ctx context.Context, fetch ruleFetcher, ownerID string) (availability.Rule, error) {
	stored, err := fetch(ctx, ownerID)
	if errors.Is(err, response.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rule := availability.Parse(stored.Rule)
	if rule == nil && len(stored.Rule) > 0 {
		s.log.Warn("Malformed availability rule ignored",
			slog.String("rule_id", stored.ID),
			slog.String("owner_id", stored.OwnerID),
		)
	}

	return rule, nil
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

// ceilQuarter rounds t up to the next quarter hour of the local clock.
func ceilQuarter(t time.Time, loc *time.Location) time.Time {
	day := startOfDay(t, loc)
	offset := t.Sub(day)

	steps := offset / SlotStep
	if offset%SlotStep != 0 {
		steps++
	}

	return day.Add(steps * SlotStep)
}

func minutesBetween(from, to time.Time) int {
	return int(to.Sub(from) / time.Minute)
}

func toSessionResponse(s *models.Session) *api.SessionResponse {
	return &api.SessionResponse{
		ID:              s.ID,
		ClientID:        s.ClientID,
		UserID:          s.UserID,
		SessionTypeID:   s.SessionTypeID,
		StartAt:         s.StartAt,
		EndAt:           s.EndAt,
		LocationText:    s.LocationText,
		SpecificAddress: s.SpecificAddress,
		Latitude:        s.Latitude,
		Longitude:       s.Longitude,
		Status:          string(s.Status),
		Notes:           s.Notes,
	}
}

func (s *Service) logGeoFailure(msg string, err error, attrs ...any) {
	args := append([]any{sl.Err(err)}, attrs...)
	s.log.Warn(msg, args...)
}
