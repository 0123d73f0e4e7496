package storage

import (
	"context"
	"time"

	"studio-service/internal/models"
)

// Tx is the set of reads and writes the batch booking flow performs inside
// one store transaction. Neighbor and overlap lookups ignore canceled
// sessions.
type Tx interface {
	LatestAvailabilityRule(ctx context.Context, ownerID string) (*models.AvailabilityRule, error)
	FindOverlap(ctx context.Context, clientID string, start, end time.Time) (*models.Session, error)
	PrevSession(ctx context.Context, clientID string, before time.Time) (*models.Session, error)
	NextSession(ctx context.Context, clientID string, from time.Time) (*models.Session, error)
	InsertSession(ctx context.Context, session *models.Session) error

	Commit() error
	Rollback() error
}
