package service

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"studio-service/internal/events"
	"studio-service/internal/geo"
	"studio-service/internal/models"
	"studio-service/internal/storage"
	"studio-service/pkg/response"
)

type fakeStore struct {
	mu sync.Mutex

	sessions []models.Session
	rules    []models.AvailabilityRule
	types    []models.SessionType

	begins    int
	commits   int
	rollbacks int
	insertErr error
	// afterCommit runs once the batch is persisted.
	afterCommit func()
}

func (s *fakeStore) BeginTx(context.Context) (storage.Tx, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.begins++
	return &fakeTx{store: s}, nil
}

func (s *fakeStore) LatestAvailabilityRule(_ context.Context, ownerID string) (*models.AvailabilityRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var latest *models.AvailabilityRule
	for i := range s.rules {
		r := &s.rules[i]
		if ownerID != "" && r.OwnerID != ownerID {
			continue
		}
		if latest == nil || r.CreatedAt.After(latest.CreatedAt) {
			latest = r
		}
	}
	if latest == nil {
		return nil, response.ErrNotFound
	}

	cp := *latest
	return &cp, nil
}

func (s *fakeStore) CreateAvailabilityRule(_ context.Context, rule *models.AvailabilityRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rule.CreatedAt = time.Now()
	s.rules = append(s.rules, *rule)
	return nil
}

func (s *fakeStore) SessionsBetween(_ context.Context, clientID string, from, to time.Time) ([]models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Session
	for _, sess := range s.live(clientID) {
		if !sess.StartAt.Before(from) && sess.StartAt.Before(to) {
			out = append(out, sess)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartAt.Before(out[j].StartAt) })
	return out, nil
}

func (s *fakeStore) ListClientSessions(_ context.Context, clientID string) ([]models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Session
	for _, sess := range s.sessions {
		if sess.ClientID == clientID {
			out = append(out, sess)
		}
	}
	return out, nil
}

func (s *fakeStore) CancelSession(_ context.Context, id string) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.sessions {
		if s.sessions[i].ID == id {
			s.sessions[i].Status = models.SessionCanceled
			cp := s.sessions[i]
			return &cp, nil
		}
	}
	return nil, response.ErrNotFound
}

func (s *fakeStore) ListSessionTypes(context.Context) ([]models.SessionType, error) {
	var out []models.SessionType
	for _, t := range s.types {
		if t.Active {
			out = append(out, t)
		}
	}
	return out, nil
}

// live returns non-canceled sessions of the client. Callers hold mu.
func (s *fakeStore) live(clientID string) []models.Session {
	var out []models.Session
	for _, sess := range s.sessions {
		if sess.ClientID == clientID && sess.Status != models.SessionCanceled {
			out = append(out, sess)
		}
	}
	return out
}

type fakeTx struct {
	store   *fakeStore
	pending []models.Session
	done    bool
}

func (t *fakeTx) LatestAvailabilityRule(ctx context.Context, ownerID string) (*models.AvailabilityRule, error) {
	return t.store.LatestAvailabilityRule(ctx, ownerID)
}

func (t *fakeTx) FindOverlap(_ context.Context, clientID string, start, end time.Time) (*models.Session, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	for _, sess := range t.store.live(clientID) {
		if sess.StartAt.Before(end) && sess.EndAt.After(start) {
			cp := sess
			return &cp, nil
		}
	}
	return nil, nil
}

func (t *fakeTx) PrevSession(_ context.Context, clientID string, before time.Time) (*models.Session, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	var best *models.Session
	for _, sess := range t.store.live(clientID) {
		if sess.EndAt.After(before) {
			continue
		}
		if best == nil || sess.EndAt.After(best.EndAt) {
			cp := sess
			best = &cp
		}
	}
	return best, nil
}

func (t *fakeTx) NextSession(_ context.Context, clientID string, from time.Time) (*models.Session, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	var best *models.Session
	for _, sess := range t.store.live(clientID) {
		if sess.StartAt.Before(from) {
			continue
		}
		if best == nil || sess.StartAt.Before(best.StartAt) {
			cp := sess
			best = &cp
		}
	}
	return best, nil
}

func (t *fakeTx) InsertSession(_ context.Context, session *models.Session) error {
	if t.store.insertErr != nil {
		return t.store.insertErr
	}
	t.pending = append(t.pending, *session)
	return nil
}

func (t *fakeTx) Commit() error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	t.store.sessions = append(t.store.sessions, t.pending...)
	t.store.commits++
	t.done = true
	if t.store.afterCommit != nil {
		t.store.afterCommit()
	}
	return nil
}

func (t *fakeTx) Rollback() error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	if !t.done {
		t.store.rollbacks++
		t.done = true
	}
	return nil
}

// fakeGeo knows named places and directed travel times between them.
type fakeGeo struct {
	places      map[string]models.GeoPoint
	minutes     map[string]int
	failRoutes  bool
	distanceHit int
}

func (g *fakeGeo) Geocode(_ context.Context, address string) (models.GeoPoint, error) {
	p, ok := g.places[address]
	if !ok {
		return models.GeoPoint{}, geo.ErrNotFound
	}
	return p, nil
}

func (g *fakeGeo) DistanceMinutes(_ context.Context, origin, destination geo.Location) (int, error) {
	g.distanceHit++
	if g.failRoutes {
		return 0, geo.ErrNoRoute
	}

	from, to := g.name(origin), g.name(destination)
	n, ok := g.minutes[from+">"+to]
	if !ok {
		return 0, geo.ErrNoRoute
	}
	return n, nil
}

func (g *fakeGeo) name(l geo.Location) string {
	if l.Point == nil {
		return l.Address
	}
	for name, p := range g.places {
		if p == *l.Point {
			return name
		}
	}
	return ""
}

type fakeLocker struct {
	busy     bool
	locked   []string
	unlocked []string
	// unlockErrs holds ctx.Err() seen by each Unlock.
	unlockErrs []error
}

func (l *fakeLocker) Lock(_ context.Context, key string, _ time.Duration) (bool, error) {
	if l.busy {
		return false, nil
	}
	l.locked = append(l.locked, key)
	return true, nil
}

func (l *fakeLocker) Unlock(ctx context.Context, key string) error {
	l.unlocked = append(l.unlocked, key)
	l.unlockErrs = append(l.unlockErrs, ctx.Err())
	return nil
}

type fakePublisher struct {
	events []events.SessionsBooked

	ctxErr      error
	hasDeadline bool
	deadline    time.Time
}

func (p *fakePublisher) PublishSessionsBooked(ctx context.Context, e events.SessionsBooked) error {
	p.events = append(p.events, e)
	p.ctxErr = ctx.Err()
	p.deadline, p.hasDeadline = ctx.Deadline()
	return nil
}

type fixture struct {
	svc       *Service
	store     *fakeStore
	geo       *fakeGeo
	locker    *fakeLocker
	publisher *fakePublisher
}

func newFixture(t *testing.T, baseAddress string) *fixture {
	t.Helper()

	f := &fixture{
		store: &fakeStore{},
		geo: &fakeGeo{
			places: map[string]models.GeoPoint{
				"Studio": {Lat: 0, Lng: 0},
				"A":      {Lat: 1, Lng: 1},
				"B":      {Lat: 2, Lng: 2},
				"T":      {Lat: 3, Lng: 3},
			},
			minutes: map[string]int{},
		},
		locker:    &fakeLocker{},
		publisher: &fakePublisher{},
	}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.svc = NewService(log, f.store, f.locker, f.geo, f.publisher, Options{
		Location:    time.UTC,
		BaseAddress: baseAddress,
		GeoTimeout:  time.Second,
		LockTTL:     time.Second,
	})

	return f
}

func (f *fixture) addSession(id, clientID, start, end, location string) {
	f.store.sessions = append(f.store.sessions, models.Session{
		ID:            id,
		ClientID:      clientID,
		UserID:        "admin-1",
		SessionTypeID: "portrait",
		StartAt:       mustTime(start),
		EndAt:         mustTime(end),
		LocationText:  location,
		Status:        models.SessionBooked,
	})
}

func (f *fixture) addRule(ownerID, raw string, createdAt time.Time) {
	f.store.rules = append(f.store.rules, models.AvailabilityRule{
		ID:        ownerID + "-" + createdAt.Format(time.RFC3339),
		OwnerID:   ownerID,
		Rule:      []byte(raw),
		CreatedAt: createdAt,
	})
}

func mustTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}
