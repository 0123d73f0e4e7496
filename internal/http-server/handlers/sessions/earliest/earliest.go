package earliest

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"studio-service/api"
	"studio-service/internal/service"
	"studio-service/pkg/response"
	"studio-service/pkg/sl"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type EarliestFinder interface {
	EarliestFeasibleStart(ctx context.Context, ownerID, clientID, dateISO, address string) (*time.Time, error)
}

type Request struct {
	api.EarliestRequest
}

// Response carries null in earliestISO when no start was found.
type Response struct {
	response.Response
	EarliestISO *string `json:"earliestISO"`
}

func New(log *slog.Logger, finder EarliestFinder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.sessions.earliest.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req Request

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			log.Error("Failed to decode request body", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(response.BAD_REQUEST, "failed to decode request"))
			return
		}

		start, err := finder.EarliestFeasibleStart(r.Context(), req.UserID, req.ClientID, req.DateISO, req.Address)

		var validationErr *service.ValidationError
		if errors.As(err, &validationErr) {
			log.Warn("Invalid earliest request", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(response.BAD_REQUEST, validationErr.Msg))
			return
		}

		if err != nil {
			log.Error("Failed to find earliest start", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(response.FAILED_REQUEST, "failed to find earliest start"))
			return
		}

		var resp Response
		if start != nil {
			iso := start.Format(time.RFC3339)
			resp.EarliestISO = &iso
		}

		log.Info("Earliest start computed", slog.Any("earliest", resp.EarliestISO))

		render.JSON(w, r, resp)
	}
}
