package set

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"studio-service/api"
	"studio-service/internal/service"
	"studio-service/pkg/response"
	"studio-service/pkg/sl"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type AvailabilitySaver interface {
	SaveAvailability(ctx context.Context, req *api.AvailabilityRequest) (*api.AvailabilityResponse, error)
}

type Request struct {
	api.AvailabilityRequest
}

type Response struct {
	response.Response
	*api.AvailabilityResponse
}

func New(log *slog.Logger, saver AvailabilitySaver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.availability.set.New"

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

		rule, err := saver.SaveAvailability(r.Context(), &req.AvailabilityRequest)

		var validationErr *service.ValidationError
		if errors.As(err, &validationErr) {
			log.Warn("Invalid availability rule", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(response.BAD_REQUEST, validationErr.Msg))
			return
		}

		if err != nil {
			log.Error("Failed to save availability", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(response.FAILED_REQUEST, "failed to save availability"))
			return
		}

		log.Info("Availability saved", slog.String("id", rule.ID), slog.String("admin_user_id", rule.AdminUserID))

		w.WriteHeader(http.StatusCreated)
		render.JSON(w, r, Response{AvailabilityResponse: rule})
	}
}
