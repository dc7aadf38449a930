package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter assembles the HTTP surface: health, the admin cart-provisioning
// API, the product state-count endpoint and the realtime websocket mount.
func NewRouter(api *API, ws http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", api.Health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/carts", api.CreateCart)
		r.Get("/carts/{code}", api.GetCart)
		r.Get("/users/{userID}/cart", api.GetUserCart)
		r.Get("/products/state-counts", api.StateCounts)
	})

	r.Handle("/ws", ws)

	return r
}
