package client

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

type SessionLister interface {
	ListClientSessions(ctx context.Context, clientID string) ([]*api.SessionResponse, error)
}

type Response struct {
	response.Response
	Sessions []*api.SessionResponse `json:"sessions"`
}

func New(log *slog.Logger, lister SessionLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.sessions.client.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		clientID := r.URL.Query().Get("clientId")

		sessions, err := lister.ListClientSessions(r.Context(), clientID)

		var validationErr *service.ValidationError
		if errors.As(err, &validationErr) {
			log.Warn("Invalid client sessions request", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(response.BAD_REQUEST, validationErr.Msg))
			return
		}

		if err != nil {
			log.Error("Failed to list sessions", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(response.FAILED_REQUEST, "failed to list sessions"))
			return
		}

		log.Info("Sessions retrieved", slog.String("client_id", clientID), slog.Int("count", len(sessions)))

		render.JSON(w, r, Response{Sessions: sessions})
	}
}
