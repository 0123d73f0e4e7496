package geo

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"studio-service/internal/models"
)

const testAPIKey = "AIza-test-key"

func newTestGoogleClient(t *testing.T, baseURL string, timeout time.Duration) *GoogleClient {
	t.Helper()

	c, err := NewGoogleClient(GoogleOptions{BaseURL: baseURL, APIKey: testAPIKey, Timeout: timeout})
	if err != nil {
		t.Fatalf("new google client: %v", err)
	}
	return c
}

func newGoogleTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/maps/api/geocode/json", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") != testAPIKey {
			t.Errorf("missing api key")
		}
		switch r.URL.Query().Get("address") {
		case "1 Main St":
			w.Write([]byte(`{"status":"OK","results":[{"geometry":{"location":{"lat":40.5,"lng":-73.25}}}]}`))
		default:
			w.Write([]byte(`{"status":"ZERO_RESULTS","results":[]}`))
		}
	})
	mux.HandleFunc("/maps/api/distancematrix/json", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("origins") == "nowhere" {
			w.Write([]byte(`{"status":"OK","rows":[{"elements":[{"status":"NOT_FOUND"}]}]}`))
			return
		}
		if r.URL.Query().Get("mode") != "driving" {
			t.Errorf("expected driving mode, got %q", r.URL.Query().Get("mode"))
		}
		w.Write([]byte(`{"status":"OK","rows":[{"elements":[{"status":"OK","duration":{"value":1230,"text":"21 mins"}}]}]}`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestGoogleClient_Geocode(t *testing.T) {
	srv := newGoogleTestServer(t)
	c := newTestGoogleClient(t, srv.URL, time.Second)

	p, err := c.Geocode(context.Background(), "1 Main St")
	if err != nil {
		t.Fatalf("geocode: %v", err)
	}
	if p.Lat != 40.5 || p.Lng != -73.25 {
		t.Fatalf("unexpected point %+v", p)
	}

	if _, err := c.Geocode(context.Background(), "unknown"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGoogleClient_DistanceMinutes(t *testing.T) {
	srv := newGoogleTestServer(t)
	c := newTestGoogleClient(t, srv.URL, time.Second)

	n, err := c.DistanceMinutes(context.Background(),
		AtPoint(models.GeoPoint{Lat: 1, Lng: 2}), AtAddress("2 Side St"))
	if err != nil {
		t.Fatalf("distance: %v", err)
	}
	// 1230 seconds rounds up to 21 minutes.
	if n != 21 {
		t.Fatalf("expected 21 minutes, got %d", n)
	}

	_, err = c.DistanceMinutes(context.Background(), AtAddress("nowhere"), AtAddress("2 Side St"))
	if !errors.Is(err, ErrNoRoute) {
		t.Fatalf("expected ErrNoRoute, got %v", err)
	}
}

func TestGoogleClient_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c := newTestGoogleClient(t, srv.URL, 50*time.Millisecond)

	_, err := c.DistanceMinutes(context.Background(), AtAddress("a"), AtAddress("b"))
	if err == nil {
		t.Fatalf("expected timeout error")
	}
	if errors.Is(err, ErrNoRoute) {
		t.Fatalf("timeout must not be reported as a missing route")
	}
}

func TestNewGoogleClient_RequiresKey(t *testing.T) {
	if _, err := NewGoogleClient(GoogleOptions{BaseURL: "http://127.0.0.1"}); err == nil {
		t.Fatalf("expected error without api key")
	}
}

func TestHaversine_DistanceMinutes(t *testing.T) {
	h := &Haversine{SpeedKmh: 60}

	// One degree of latitude is roughly 111 km.
	n, err := h.DistanceMinutes(context.Background(),
		AtPoint(models.GeoPoint{Lat: 0, Lng: 0}), AtPoint(models.GeoPoint{Lat: 1, Lng: 0}))
	if err != nil {
		t.Fatalf("distance: %v", err)
	}
	if n < 110 || n > 112 {
		t.Fatalf("expected about 111 minutes, got %d", n)
	}

	if _, err := h.DistanceMinutes(context.Background(), AtAddress("somewhere"), AtPoint(models.GeoPoint{})); !errors.Is(err, ErrNoRoute) {
		t.Fatalf("expected ErrNoRoute without geocoder, got %v", err)
	}
}

type memoryCache struct {
	mu   sync.Mutex
	data map[string]string
}

func (m *memoryCache) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memoryCache) Set(_ context.Context, key, value string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

type countingProvider struct {
	mu        sync.Mutex
	geocodes  int
	distances int
}

func (p *countingProvider) Geocode(_ context.Context, address string) (models.GeoPoint, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.geocodes++
	if address == "missing" {
		return models.GeoPoint{}, ErrNotFound
	}
	return models.GeoPoint{Lat: 10.25, Lng: -3.5}, nil
}

func (p *countingProvider) DistanceMinutes(_ context.Context, _, _ Location) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.distances++
	return 17, nil
}

func TestCached_MemoizesLookups(t *testing.T) {
	next := &countingProvider{}
	c := NewCached(next, &memoryCache{data: map[string]string{}}, time.Hour)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		p, err := c.Geocode(ctx, "  1 Main   St ")
		if err != nil {
			t.Fatalf("geocode: %v", err)
		}
		if p.Lat != 10.25 || p.Lng != -3.5 {
			t.Fatalf("unexpected point %+v", p)
		}
	}
	if _, err := c.Geocode(ctx, "1 main st"); err != nil {
		t.Fatalf("geocode: %v", err)
	}
	if next.geocodes != 1 {
		t.Fatalf("expected 1 upstream geocode, got %d", next.geocodes)
	}

	for i := 0; i < 2; i++ {
		n, err := c.DistanceMinutes(ctx, AtAddress("a"), AtAddress("b"))
		if err != nil || n != 17 {
			t.Fatalf("expected 17 minutes, got %d (%v)", n, err)
		}
	}
	if next.distances != 1 {
		t.Fatalf("expected 1 upstream distance call, got %d", next.distances)
	}
}

func TestCached_DoesNotCacheFailures(t *testing.T) {
	next := &countingProvider{}
	c := NewCached(next, &memoryCache{data: map[string]string{}}, time.Hour)

	for i := 0; i < 2; i++ {
		if _, err := c.Geocode(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	}
	if next.geocodes != 2 {
		t.Fatalf("expected failures to reach upstream every time, got %d", next.geocodes)
	}
}
