package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter mounts the public API. Authentication endpoints and the health
// check are open; everything else requires a Bearer access token.
func NewRouter(h *Handlers, jwtSecret []byte) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/api/ping", h.Ping)

	r.Route("/api/user", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Post("/refresh", h.Refresh)
		r.Get("/salt", h.GetSalt)
	})

	r.Group(func(r chi.Router) {
		r.Use(authenticator(jwtSecret))

		r.Get("/api/records", h.QueryRecords)
		r.Get("/api/records/{id}", h.GetRecord)
		r.Post("/api/records/batch", h.BatchWrite)

		r.Get("/api/sync/feed", h.Feed)

		r.Post("/api/files/presign-put", h.PresignPut)
		r.Get("/api/files/presign-get", h.PresignGet)
	})

	return r
}
