package http

import (
	"net/http"
	"net/url"

	"github.com/fjod/storefront-sync/internal/domain"
	"github.com/go-chi/chi/v5"
)

type CartEngine interface {
	Cart() domain.Cart
	AddItem(product domain.Product, variant domain.Variant, quantity int) error
	UpdateQuantity(key string, quantity int) error
	RemoveItem(key string) error
	ClearCollection(collection domain.Collection) error
}

type CartHandler struct {
	engine CartEngine
}

func NewCartHandler(engine CartEngine) *CartHandler {
	return &CartHandler{engine: engine}
}

type ProductDTO struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	UnitPrice float64 `json:"unit_price"`
	Image     string  `json:"image,omitempty"`
}

type AddItemRequestDTO struct {
	Product  ProductDTO        `json:"product"`
	Variant  map[string]string `json:"variant,omitempty"`
	Quantity int               `json:"quantity"`
}

type UpdateQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.engine.Cart())
}

// AddItem responds with the optimistic cart; the remote write completes in
// the background.
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}

	product := domain.Product{
		ID:        req.Product.ID,
		Name:      req.Product.Name,
		UnitPrice: req.Product.UnitPrice,
		Image:     req.Product.Image,
	}
	if err := h.engine.AddItem(product, req.Variant, req.Quantity); err != nil {
		handleEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusAccepted, h.engine.Cart())
}

func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	var req UpdateQuantityRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.engine.UpdateQuantity(identityParam(r), req.Quantity); err != nil {
		handleEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusAccepted, h.engine.Cart())
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.RemoveItem(identityParam(r)); err != nil {
		handleEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusAccepted, h.engine.Cart())
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.ClearCollection(domain.CollectionCart); err != nil {
		handleEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusAccepted, h.engine.Cart())
}

// identityParam returns the item identity key from the path. Keys contain
// '|' which clients send escaped.
func identityParam(r *http.Request) string {
	raw := chi.URLParam(r, "identity")
	if key, err := url.PathUnescape(raw); err == nil {
		return key
	}
	return raw
}
