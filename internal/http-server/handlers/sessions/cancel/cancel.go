package cancel

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"studio-service/api"
	"studio-service/pkg/response"
	"studio-service/pkg/sl"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

type SessionCanceler interface {
	CancelSession(ctx context.Context, id string) (*api.SessionResponse, error)
}

type Response struct {
	response.Response
	Session *api.SessionResponse `json:"session,omitempty"`
}

func New(log *slog.Logger, canceler SessionCanceler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.sessions.cancel.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		id := chi.URLParam(r, "id")
		if id == "" {
			log.Error("id is empty")
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(response.BAD_REQUEST, "id is required"))
			return
		}

		session, err := canceler.CancelSession(r.Context(), id)

		if errors.Is(err, response.ErrNotFound) {
			log.Error("session not found", slog.String("id", id))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error(response.NOT_FOUND, "session not found"))
			return
		}

		if err != nil {
			log.Error("Failed to cancel session", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(response.FAILED_REQUEST, "failed to cancel session"))
			return
		}

		log.Info("Session canceled", slog.String("id", id))

		render.JSON(w, r, Response{Session: session})
	}
}
