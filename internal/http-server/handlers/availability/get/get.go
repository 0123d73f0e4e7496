package get

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"studio-service/api"
	"studio-service/pkg/response"
	"studio-service/pkg/sl"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type AvailabilityGetter interface {
	GetAvailability(ctx context.Context, adminUserID string) (*api.AvailabilityResponse, error)
}

type Response struct {
	response.Response
	*api.AvailabilityResponse
}

func New(log *slog.Logger, getter AvailabilityGetter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.availability.get.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		adminUserID := r.URL.Query().Get("adminUserId")

		rule, err := getter.GetAvailability(r.Context(), adminUserID)

		if errors.Is(err, response.ErrNotFound) {
			log.Info("no availability configured", slog.String("admin_user_id", adminUserID))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error(response.NOT_FOUND, "availability not found"))
			return
		}

		if err != nil {
			log.Error("Failed to get availability", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(response.FAILED_REQUEST, "failed to get availability"))
			return
		}

		render.JSON(w, r, Response{AvailabilityResponse: rule})
	}
}
