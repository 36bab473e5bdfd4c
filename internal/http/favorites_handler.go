package http

import (
	"net/http"

	"github.com/fjod/storefront-sync/internal/domain"
	"github.com/go-chi/chi/v5"
)

type FavoritesEngine interface {
	Favorites() domain.FavoriteSet
	ToggleFavorite(productID string) (bool, error)
	ClearCollection(collection domain.Collection) error
}

type FavoritesHandler struct {
	engine FavoritesEngine
}

func NewFavoritesHandler(engine FavoritesEngine) *FavoritesHandler {
	return &FavoritesHandler{engine: engine}
}

type ToggleResponseDTO struct {
	ProductID string `json:"product_id"`
	Favorite  bool   `json:"favorite"`
}

func (h *FavoritesHandler) GetFavorites(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.engine.Favorites())
}

func (h *FavoritesHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "product_id")
	member, err := h.engine.ToggleFavorite(productID)
	if err != nil {
		handleEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusAccepted, ToggleResponseDTO{ProductID: productID, Favorite: member})
}

func (h *FavoritesHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.ClearCollection(domain.CollectionFavorites); err != nil {
		handleEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusAccepted, h.engine.Favorites())
}
