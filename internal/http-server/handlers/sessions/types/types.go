package types

import (
	"context"
	"log/slog"
	"net/http"

	"studio-service/api"
	"studio-service/pkg/response"
	"studio-service/pkg/sl"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type TypeLister interface {
	ListSessionTypes(ctx context.Context) ([]*api.SessionTypeResponse, error)
}

type Response struct {
	response.Response
	Types []*api.SessionTypeResponse `json:"types"`
}

func New(log *slog.Logger, lister TypeLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.sessions.types.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		types, err := lister.ListSessionTypes(r.Context())
		if err != nil {
			log.Error("Failed to list session types", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(response.FAILED_REQUEST, "failed to list session types"))
			return
		}

		log.Info("Session types retrieved", slog.Int("count", len(types)))

		render.JSON(w, r, Response{Types: types})
	}
}
