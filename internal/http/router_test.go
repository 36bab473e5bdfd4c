package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fjod/storefront-sync/internal/domain"
	"github.com/fjod/storefront-sync/internal/engine"
	"github.com/fjod/storefront-sync/internal/gateway"
	"github.com/fjod/storefront-sync/internal/localstore"
)

func newTestServer(t *testing.T, cfg engine.Config) (http.Handler, *engine.Engine, *gateway.MemoryStore) {
	t.Helper()
	remote := gateway.NewMemoryStore()
	queue := engine.NewNoticeQueue(0)
	e := engine.New(localstore.NewMemoryStore(), remote, nil, queue, cfg)
	if err := e.Mount(context.Background()); err != nil {
		t.Fatalf("mount: %v", err)
	}
	t.Cleanup(func() { _ = e.Close() })
	return NewRouter(e, queue, 5*time.Second), e, remote
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	recorder := httptest.NewRecorder()
	h.ServeHTTP(recorder, httptest.NewRequest(method, path, reader))
	return recorder
}

func addLamp(t *testing.T, h http.Handler, quantity int) *httptest.ResponseRecorder {
	t.Helper()
	return do(t, h, http.MethodPost, "/api/v1/cart/items", AddItemRequestDTO{
		Product:  ProductDTO{ID: "A", Name: "Lamp", UnitPrice: 10},
		Variant:  map[string]string{"color": "red"},
		Quantity: quantity,
	})
}

func waitEngine(t *testing.T, e *engine.Engine) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.Wait(ctx); err != nil {
		t.Fatalf("wait: %v", err)
	}
}

func TestHealth(t *testing.T) {
	h, _, _ := newTestServer(t, engine.Config{})

	recorder := do(t, h, http.MethodGet, "/health", nil)
	if recorder.Code != http.StatusOK {
		t.Errorf("Expected status code %d, got %d", http.StatusOK, recorder.Code)
	}
	if recorder.Header().Get("X-Request-ID") == "" {
		t.Error("Expected X-Request-ID header")
	}
}

func TestAddItem_Accepted(t *testing.T) {
	h, _, _ := newTestServer(t, engine.Config{})

	recorder := addLamp(t, h, 2)
	if recorder.Code != http.StatusAccepted {
		t.Fatalf("Expected status code %d, got %d: %s", http.StatusAccepted, recorder.Code, recorder.Body.String())
	}

	var cart domain.Cart
	if err := json.NewDecoder(recorder.Body).Decode(&cart); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if cart.ItemCount != 2 || cart.Total != 20 {
		t.Errorf("Expected 2 items totalling 20, got %d items totalling %v", cart.ItemCount, cart.Total)
	}
	if len(cart.Items) != 1 || cart.Items[0].Key() != "A|color=red" {
		t.Errorf("Unexpected items: %+v", cart.Items)
	}
}

func TestAddItem_InvalidQuantity(t *testing.T) {
	h, _, _ := newTestServer(t, engine.Config{})

	recorder := addLamp(t, h, 0)
	if recorder.Code != http.StatusBadRequest {
		t.Errorf("Expected status code %d, got %d", http.StatusBadRequest, recorder.Code)
	}

	var response ErrorResponse
	if err := json.NewDecoder(recorder.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if response.Code != "invalid_argument" {
		t.Errorf("Expected error code 'invalid_argument', got '%s'", response.Code)
	}

	notices := do(t, h, http.MethodGet, "/api/v1/notices", nil)
	var got []engine.Notice
	if err := json.NewDecoder(notices.Body).Decode(&got); err != nil {
		t.Fatalf("Failed to decode notices: %v", err)
	}
	if len(got) != 1 || got[0].Kind != engine.NoticeInvalid {
		t.Errorf("Expected one invalid notice, got %+v", got)
	}
}

func TestAddItem_InvalidJSON(t *testing.T) {
	h, _, _ := newTestServer(t, engine.Config{})

	recorder := httptest.NewRecorder()
	h.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader("{")))
	if recorder.Code != http.StatusBadRequest {
		t.Errorf("Expected status code %d, got %d", http.StatusBadRequest, recorder.Code)
	}
}

func TestUpdateAndRemoveItem(t *testing.T) {
	h, _, _ := newTestServer(t, engine.Config{})
	addLamp(t, h, 1)

	recorder := do(t, h, http.MethodPut, "/api/v1/cart/items/A%7Ccolor=red", UpdateQuantityRequestDTO{Quantity: 4})
	if recorder.Code != http.StatusAccepted {
		t.Fatalf("Expected status code %d, got %d: %s", http.StatusAccepted, recorder.Code, recorder.Body.String())
	}
	var cart domain.Cart
	_ = json.NewDecoder(recorder.Body).Decode(&cart)
	if cart.ItemCount != 4 {
		t.Errorf("Expected 4 items, got %d", cart.ItemCount)
	}

	recorder = do(t, h, http.MethodDelete, "/api/v1/cart/items/A%7Ccolor=red", nil)
	if recorder.Code != http.StatusAccepted {
		t.Fatalf("Expected status code %d, got %d", http.StatusAccepted, recorder.Code)
	}

	recorder = do(t, h, http.MethodDelete, "/api/v1/cart/items/A%7Ccolor=red", nil)
	if recorder.Code != http.StatusBadRequest {
		t.Errorf("Expected status code %d for a missing item, got %d", http.StatusBadRequest, recorder.Code)
	}
}

func TestToggleFavorite_GuestRejectedWhenLoginRequired(t *testing.T) {
	h, _, _ := newTestServer(t, engine.Config{RequireLoginForFavorites: true})

	recorder := do(t, h, http.MethodPost, "/api/v1/favorites/A/toggle", nil)
	if recorder.Code != http.StatusUnauthorized {
		t.Errorf("Expected status code %d, got %d", http.StatusUnauthorized, recorder.Code)
	}
}

func TestLoginMergesAndSyncs(t *testing.T) {
	h, e, remote := newTestServer(t, engine.Config{})
	addLamp(t, h, 2)
	do(t, h, http.MethodPost, "/api/v1/favorites/F1/toggle", nil)

	recorder := do(t, h, http.MethodPost, "/api/v1/session/login", LoginRequestDTO{UserID: "u1"})
	if recorder.Code != http.StatusOK {
		t.Fatalf("Expected status code %d, got %d: %s", http.StatusOK, recorder.Code, recorder.Body.String())
	}
	var session domain.Session
	_ = json.NewDecoder(recorder.Body).Decode(&session)
	if !session.Authenticated() || session.OwnerID != "u1" {
		t.Errorf("Expected authenticated session for u1, got %+v", session)
	}

	do(t, h, http.MethodPost, "/api/v1/favorites/F2/toggle", nil)
	waitEngine(t, e)

	if n := remote.Len("u1", domain.CollectionCart); n != 1 {
		t.Errorf("Expected 1 remote cart row, got %d", n)
	}
	if n := remote.Len("u1", domain.CollectionFavorites); n != 2 {
		t.Errorf("Expected 2 remote favorite rows, got %d", n)
	}

	recorder = do(t, h, http.MethodPost, "/api/v1/session/refresh", nil)
	if recorder.Code != http.StatusNoContent {
		t.Errorf("Expected status code %d, got %d", http.StatusNoContent, recorder.Code)
	}

	recorder = do(t, h, http.MethodPost, "/api/v1/session/logout", nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("Expected status code %d, got %d", http.StatusOK, recorder.Code)
	}
	recorder = do(t, h, http.MethodGet, "/api/v1/cart", nil)
	var cart domain.Cart
	_ = json.NewDecoder(recorder.Body).Decode(&cart)
	if len(cart.Items) != 0 {
		t.Errorf("Expected empty cart after logout, got %+v", cart.Items)
	}
}

func TestLogin_MissingUser(t *testing.T) {
	h, _, _ := newTestServer(t, engine.Config{})

	recorder := do(t, h, http.MethodPost, "/api/v1/session/login", LoginRequestDTO{})
	if recorder.Code != http.StatusBadRequest {
		t.Errorf("Expected status code %d, got %d", http.StatusBadRequest, recorder.Code)
	}
}

func TestRefresh_GuestUnauthorized(t *testing.T) {
	h, _, _ := newTestServer(t, engine.Config{})

	recorder := do(t, h, http.MethodPost, "/api/v1/session/refresh", nil)
	if recorder.Code != http.StatusUnauthorized {
		t.Errorf("Expected status code %d, got %d", http.StatusUnauthorized, recorder.Code)
	}
}
