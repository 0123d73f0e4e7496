package geo

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"studio-service/internal/models"

	"golang.org/x/time/rate"
	"googlemaps.github.io/maps"
)

// GoogleClient resolves addresses and driving times through the Google
// Maps Geocoding and Distance Matrix APIs.
type GoogleClient struct {
	maps    *maps.Client
	timeout time.Duration
	limiter *rate.Limiter
}

type GoogleOptions struct {
	BaseURL           string
	APIKey            string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
}

func NewGoogleClient(opts GoogleOptions) (*GoogleClient, error) {
	const op = "geo.NewGoogleClient"

	if opts.Timeout <= 0 {
		opts.Timeout = 3 * time.Second
	}
	if opts.Burst <= 0 {
		opts.Burst = 1
	}
	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}

	clientOpts := []maps.ClientOption{
		maps.WithAPIKey(opts.APIKey),
		maps.WithHTTPClient(&http.Client{Timeout: opts.Timeout}),
	}
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, maps.WithBaseURL(strings.TrimRight(opts.BaseURL, "/")))
	}
	if opts.RequestsPerSecond > 0 {
		clientOpts = append(clientOpts, maps.WithRateLimit(int(math.Ceil(opts.RequestsPerSecond))))
	}

	client, err := maps.NewClient(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &GoogleClient{
		maps:    client,
		timeout: opts.Timeout,
		limiter: rate.NewLimiter(limit, opts.Burst),
	}, nil
}

func (c *GoogleClient) Geocode(ctx context.Context, address string) (models.GeoPoint, error) {
	const op = "geo.GoogleClient.Geocode"

	if strings.TrimSpace(address) == "" {
		return models.GeoPoint{}, ErrNotFound
	}

	ctx, cancel, err := c.begin(ctx)
	if err != nil {
		return models.GeoPoint{}, fmt.Errorf("%s: %w", op, err)
	}
	defer cancel()

	results, err := c.maps.Geocode(ctx, &maps.GeocodingRequest{Address: address})
	if err != nil {
		if isZeroResults(err) {
			return models.GeoPoint{}, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return models.GeoPoint{}, fmt.Errorf("%s: %w", op, err)
	}
	if len(results) == 0 {
		return models.GeoPoint{}, fmt.Errorf("%s: %w", op, ErrNotFound)
	}

	loc := results[0].Geometry.Location
	return models.GeoPoint{Lat: loc.Lat, Lng: loc.Lng}, nil
}

func (c *GoogleClient) DistanceMinutes(ctx context.Context, origin, destination Location) (int, error) {
	const op = "geo.GoogleClient.DistanceMinutes"

	if origin.IsZero() || destination.IsZero() {
		return 0, ErrNoRoute
	}

	ctx, cancel, err := c.begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	defer cancel()

	resp, err := c.maps.DistanceMatrix(ctx, &maps.DistanceMatrixRequest{
		Origins:      []string{origin.query()},
		Destinations: []string{destination.query()},
		Mode:         maps.TravelModeDriving,
	})
	if err != nil {
		if isZeroResults(err) {
			return 0, fmt.Errorf("%s: %w", op, ErrNoRoute)
		}
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	if len(resp.Rows) == 0 || len(resp.Rows[0].Elements) == 0 {
		return 0, fmt.Errorf("%s: empty matrix: %w", op, ErrNoRoute)
	}

	el := resp.Rows[0].Elements[0]
	if el == nil || el.Status != "OK" {
		status := "missing"
		if el != nil {
			status = el.Status
		}
		return 0, fmt.Errorf("%s: element status %s: %w", op, status, ErrNoRoute)
	}

	return int(math.Ceil(el.Duration.Minutes())), nil
}

// begin applies the per-call deadline and waits for a rate-limit token.
func (c *GoogleClient) begin(ctx context.Context) (context.Context, context.CancelFunc, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)

	if err := c.limiter.Wait(ctx); err != nil {
		cancel()
		return nil, nil, fmt.Errorf("rate limit: %w", err)
	}

	return ctx, cancel, nil
}

// isZeroResults reports the ZERO_RESULTS / NOT_FOUND statuses the maps
// client returns as plain errors.
func isZeroResults(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}

	msg := err.Error()
	return strings.Contains(msg, "ZERO_RESULTS") || strings.Contains(msg, "NOT_FOUND")
}

func (l Location) query() string {
	if l.Point != nil {
		return fmt.Sprintf("%f,%f", l.Point.Lat, l.Point.Lng)
	}
	return l.Address
}
