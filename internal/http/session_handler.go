package http

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/fjod/storefront-sync/internal/domain"
	"github.com/fjod/storefront-sync/internal/engine"
)

type SessionEngine interface {
	Session() domain.Session
	Login(ctx context.Context, userID string) error
	Logout()
	Refresh(ctx context.Context) error
}

// NoticeSource hands out the notices collected since the last call.
type NoticeSource interface {
	Drain() []engine.Notice
}

type SessionHandler struct {
	engine  SessionEngine
	notices NoticeSource
	timeout time.Duration
}

func NewSessionHandler(engine SessionEngine, notices NoticeSource, timeout time.Duration) *SessionHandler {
	return &SessionHandler{engine: engine, notices: notices, timeout: timeout}
}

type LoginRequestDTO struct {
	UserID string `json:"user_id"`
}

func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.engine.Session())
}

func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req LoginRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.engine.Login(ctx, req.UserID); err != nil {
		log.Printf("login failed, request %s: %v", getRequestID(r.Context()), err)
		handleEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, h.engine.Session())
}

func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.engine.Logout()
	respondJSON(w, http.StatusOK, h.engine.Session())
}

func (h *SessionHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.engine.Refresh(ctx); err != nil {
		handleEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) Notices(w http.ResponseWriter, r *http.Request) {
	notices := h.notices.Drain()
	if notices == nil {
		notices = []engine.Notice{}
	}
	respondJSON(w, http.StatusOK, notices)
}
