package batch

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

type SessionBooker interface {
	BatchBook(ctx context.Context, req *api.BatchBookRequest) ([]string, error)
}

type Request struct {
	api.BatchBookRequest
}

type Response struct {
	response.Response
	OK  bool     `json:"ok"`
	IDs []string `json:"ids"`
}

func New(log *slog.Logger, booker SessionBooker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.sessions.batch.New"

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

		log.Info("Request body decoded",
			slog.String("client_id", req.ClientID),
			slog.Int("items", len(req.Items)),
		)

		ids, err := booker.BatchBook(r.Context(), &req.BatchBookRequest)

		var validationErr *service.ValidationError
		if errors.As(err, &validationErr) {
			log.Warn("Invalid batch request", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(response.BAD_REQUEST, validationErr.Msg))
			return
		}

		var conflictErr *service.ConflictError
		if errors.As(err, &conflictErr) {
			log.Info("Batch rejected", slog.String("reason", conflictErr.Msg))
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error(response.CONFLICT, conflictErr.Msg))
			return
		}

		if errors.Is(err, response.ErrLocked) {
			log.Error("resource is locked")
			w.WriteHeader(http.StatusLocked)
			render.JSON(w, r, response.Error(response.LOCKED, "another booking for this client is in progress"))
			return
		}

		if err != nil {
			log.Error("Failed to book sessions", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(response.FAILED_REQUEST, "failed to book sessions"))
			return
		}

		log.Info("Sessions booked", slog.Any("ids", ids))

		render.JSON(w, r, Response{
			OK:  true,
			IDs: ids,
		})
	}
}
