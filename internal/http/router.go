package http

import (
	"net/http"
	"time"

	"github.com/fjod/storefront-sync/internal/engine"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter mounts the storefront API on a chi router.
func NewRouter(e *engine.Engine, notices NoticeSource, requestTimeout time.Duration) chi.Router {
	cartHandler := NewCartHandler(e)
	favoritesHandler := NewFavoritesHandler(e)
	sessionHandler := NewSessionHandler(e, notices, requestTimeout)

	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(middleware.Timeout(requestTimeout))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartHandler.GetCart)
			r.Delete("/", cartHandler.ClearCart)
			r.Post("/items", cartHandler.AddItem)
			r.Put("/items/{identity}", cartHandler.UpdateQuantity)
			r.Delete("/items/{identity}", cartHandler.RemoveItem)
		})
		r.Route("/favorites", func(r chi.Router) {
			r.Get("/", favoritesHandler.GetFavorites)
			r.Delete("/", favoritesHandler.Clear)
			r.Post("/{product_id}/toggle", favoritesHandler.Toggle)
		})
		r.Route("/session", func(r chi.Router) {
			r.Get("/", sessionHandler.GetSession)
			r.Post("/login", sessionHandler.Login)
			r.Post("/logout", sessionHandler.Logout)
			r.Post("/refresh", sessionHandler.Refresh)
		})
		r.Get("/notices", sessionHandler.Notices)
	})

	return r
}
