package earliest

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"studio-service/internal/service"
)

type finderFunc func(ctx context.Context, ownerID, clientID, dateISO, address string) (*time.Time, error)

func (f finderFunc) EarliestFeasibleStart(ctx context.Context, ownerID, clientID, dateISO, address string) (*time.Time, error) {
	return f(ctx, ownerID, clientID, dateISO, address)
}

func TestEarliestHandler(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	found := time.Date(2025, 3, 5, 11, 30, 0, 0, time.UTC)

	tests := []struct {
		name     string
		result   *time.Time
		err      error
		wantCode int
		wantBody string
	}{
		{name: "found", result: &found, wantCode: http.StatusOK, wantBody: `"earliestISO":"2025-03-05T11:30:00Z"`},
		{name: "none", wantCode: http.StatusOK, wantBody: `"earliestISO":null`},
		{name: "validation", err: &service.ValidationError{Msg: "address is required"}, wantCode: http.StatusBadRequest},
		{name: "failure", err: io.ErrUnexpectedEOF, wantCode: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotOwner, gotAddress string
			h := New(log, finderFunc(func(_ context.Context, ownerID, _, _, address string) (*time.Time, error) {
				gotOwner, gotAddress = ownerID, address
				return tt.result, tt.err
			}))

			req := httptest.NewRequest(http.MethodPost, "/sessions/earliest",
				strings.NewReader(`{"clientId":"c1","userId":"admin-1","dateISO":"2025-03-05","address":"Park"}`))
			rw := httptest.NewRecorder()
			h.ServeHTTP(rw, req)

			if rw.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d", tt.wantCode, rw.Code)
			}
			if tt.wantBody != "" && !strings.Contains(rw.Body.String(), tt.wantBody) {
				t.Fatalf("body %q does not contain %q", rw.Body.String(), tt.wantBody)
			}
			if gotOwner != "admin-1" || gotAddress != "Park" {
				t.Fatalf("arguments not forwarded: owner=%q address=%q", gotOwner, gotAddress)
			}
		})
	}
}
