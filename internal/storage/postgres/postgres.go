package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"studio-service/internal/models"
	"studio-service/internal/storage"
	"studio-service/pkg/response"

	"github.com/lib/pq"
)

const (
	pqForeignKeyViolation = "23503"
	pqExclusionViolation  = "23P01"
)

type Storage struct {
	db *sql.DB
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func New(storagePath string) (*Storage, error) {
	const op = "storage.postgres.New"

	db, err := sql.Open("postgres", storagePath)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{db: db}, nil
}

func (s *Storage) Close() error {
	if s == nil || s.db == nil {
		return nil
	}

	return s.db.Close()
}

const sessionColumns = `id, client_id, user_id, session_type_id, start_at, end_at,
	location_text, specific_address, latitude, longitude, status, notes, created_at`

// #### transactions ####

type sessionTx struct {
	tx *sql.Tx
}

func (s *Storage) BeginTx(ctx context.Context) (storage.Tx, error) {
	const op = "storage.postgres.BeginTx"

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &sessionTx{tx: tx}, nil
}

func (t *sessionTx) Commit() error {
	return t.tx.Commit()
}

func (t *sessionTx) Rollback() error {
	return t.tx.Rollback()
}

func (t *sessionTx) LatestAvailabilityRule(ctx context.Context, ownerID string) (*models.AvailabilityRule, error) {
	return latestAvailabilityRule(ctx, t.tx, ownerID)
}

func (t *sessionTx) FindOverlap(ctx context.Context, clientID string, start, end time.Time) (*models.Session, error) {
	const op = "storage.postgres.FindOverlap"

	row := t.tx.QueryRowContext(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions
		WHERE client_id = $1
			AND status <> $2
			AND start_at < $4
			AND end_at > $3
		ORDER BY start_at ASC
		LIMIT 1`,
		clientID, string(models.SessionCanceled), start, end,
	)

	return scanOptionalSession(row, op)
}

func (t *sessionTx) PrevSession(ctx context.Context, clientID string, before time.Time) (*models.Session, error) {
	const op = "storage.postgres.PrevSession"

	row := t.tx.QueryRowContext(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions
		WHERE client_id = $1
			AND status <> $2
			AND end_at <= $3
		ORDER BY end_at DESC
		LIMIT 1`,
		clientID, string(models.SessionCanceled), before,
	)

	return scanOptionalSession(row, op)
}

func (t *sessionTx) NextSession(ctx context.Context, clientID string, from time.Time) (*models.Session, error) {
	const op = "storage.postgres.NextSession"

	row := t.tx.QueryRowContext(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions
		WHERE client_id = $1
			AND status <> $2
			AND start_at >= $3
		ORDER BY start_at ASC
		LIMIT 1`,
		clientID, string(models.SessionCanceled), from,
	)

	return scanOptionalSession(row, op)
}

func (t *sessionTx) InsertSession(ctx context.Context, session *models.Session) error {
	const op = "storage.postgres.InsertSession"

	err := t.tx.QueryRowContext(ctx, `
		INSERT INTO sessions
			(id, client_id, user_id, session_type_id, start_at, end_at,
			location_text, specific_address, latitude, longitude, status, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at`,
		session.ID,
		session.ClientID,
		session.UserID,
		session.SessionTypeID,
		session.StartAt,
		session.EndAt,
		session.LocationText,
		session.SpecificAddress,
		nullFloat(session.Latitude),
		nullFloat(session.Longitude),
		string(session.Status),
		session.Notes,
	).Scan(&session.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			switch pqErr.Code {
			case pqExclusionViolation:
				return fmt.Errorf("%s: %w", op, response.ErrOverlap)
			case pqForeignKeyViolation:
				return fmt.Errorf("%s: %w", op, response.ErrNotFound)
			}
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// #### availability ####

func (s *Storage) LatestAvailabilityRule(ctx context.Context, ownerID string) (*models.AvailabilityRule, error) {
	return latestAvailabilityRule(ctx, s.db, ownerID)
}

// latestAvailabilityRule returns the most recently created rule of ownerID.
// An empty ownerID selects the latest rule of any owner.
func latestAvailabilityRule(ctx context.Context, q querier, ownerID string) (*models.AvailabilityRule, error) {
	const op = "storage.postgres.LatestAvailabilityRule"

	var rule models.AvailabilityRule
	var validFrom, validTo sql.NullTime
	var raw []byte

	err := q.QueryRowContext(ctx, `
		SELECT id, owner_id, rule, valid_from, valid_to, created_at
		FROM availability_rules
		WHERE ($1::text = '' OR owner_id = $1::text)
		ORDER BY created_at DESC
		LIMIT 1`, ownerID).
		Scan(
			&rule.ID,
			&rule.OwnerID,
			&raw,
			&validFrom,
			&validTo,
			&rule.CreatedAt,
		)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, response.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rule.Rule = raw
	if validFrom.Valid {
		rule.ValidFrom = &validFrom.Time
	}
	if validTo.Valid {
		rule.ValidTo = &validTo.Time
	}

	return &rule, nil
}

func (s *Storage) CreateAvailabilityRule(ctx context.Context, rule *models.AvailabilityRule) error {
	const op = "storage.postgres.CreateAvailabilityRule"

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO availability_rules (id, owner_id, rule, valid_from, valid_to)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`,
		rule.ID,
		rule.OwnerID,
		string(rule.Rule),
		rule.ValidFrom,
		rule.ValidTo,
	).Scan(&rule.CreatedAt)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// #### sessions ####

func (s *Storage) SessionsBetween(ctx context.Context, clientID string, from, to time.Time) ([]models.Session, error) {
	const op = "storage.postgres.SessionsBetween"

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions
		WHERE client_id = $1
			AND status <> $2
			AND start_at >= $3
			AND start_at < $4
		ORDER BY start_at ASC`,
		clientID, string(models.SessionCanceled), from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return scanSessions(rows, op)
}

func (s *Storage) ListClientSessions(ctx context.Context, clientID string) ([]models.Session, error) {
	const op = "storage.postgres.ListClientSessions"

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions
		WHERE client_id = $1
		ORDER BY start_at DESC`, clientID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return scanSessions(rows, op)
}

func (s *Storage) CancelSession(ctx context.Context, id string) (*models.Session, error) {
	const op = "storage.postgres.CancelSession"

	row := s.db.QueryRowContext(ctx, `
		UPDATE sessions SET status = $2
		WHERE id = $1
		RETURNING `+sessionColumns,
		id, string(models.SessionCanceled),
	)

	session, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, response.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return session, nil
}

func (s *Storage) ListSessionTypes(ctx context.Context) ([]models.SessionType, error) {
	const op = "storage.postgres.ListSessionTypes"

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, duration_minutes, active
		FROM session_types
		WHERE active = TRUE
		ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	defer rows.Close()

	var types []models.SessionType
	for rows.Next() {
		var st models.SessionType
		if err := rows.Scan(&st.ID, &st.Name, &st.DurationMinutes, &st.Active); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		types = append(types, st)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return types, nil
}

// #### scanning ####

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*models.Session, error) {
	var s models.Session
	var lat, lng sql.NullFloat64
	var status string

	err := row.Scan(
		&s.ID,
		&s.ClientID,
		&s.UserID,
		&s.SessionTypeID,
		&s.StartAt,
		&s.EndAt,
		&s.LocationText,
		&s.SpecificAddress,
		&lat,
		&lng,
		&status,
		&s.Notes,
		&s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	s.Status = models.SessionStatus(status)
	if lat.Valid {
		s.Latitude = &lat.Float64
	}
	if lng.Valid {
		s.Longitude = &lng.Float64
	}

	return &s, nil
}

func scanOptionalSession(row *sql.Row, op string) (*models.Session, error) {
	session, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return session, nil
}

func scanSessions(rows *sql.Rows, op string) ([]models.Session, error) {
	defer rows.Close()

	var sessions []models.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		sessions = append(sessions, *session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return sessions, nil
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}

	return sql.NullFloat64{Float64: *f, Valid: true}
}
