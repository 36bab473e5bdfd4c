package domain

import "github.com/google/uuid"

// SessionKind is the state of the session state machine.
type SessionKind string

const (
	SessionGuest         SessionKind = "guest"
	SessionAuthenticated SessionKind = "authenticated"
	// SessionSignedOut behaves like a fresh guest scope.
	SessionSignedOut SessionKind = "signed_out"
)

// Session is the owning session of the collections.
type Session struct {
	Kind    SessionKind `json:"kind"`
	OwnerID string      `json:"owner_id"`
}

// NewGuestSession starts a guest scope with a fresh guest id.
func NewGuestSession() Session {
	return Session{Kind: SessionGuest, OwnerID: "guest-" + uuid.NewString()}
}

func NewAuthenticatedSession(userID string) Session {
	return Session{Kind: SessionAuthenticated, OwnerID: userID}
}

func (s Session) Authenticated() bool {
	return s.Kind == SessionAuthenticated && s.OwnerID != ""
}

// Scope is the local persistence scope of the session.
// Every guest scope shares "guest" so a reload finds the guest copy.
func (s Session) Scope() string {
	if s.Authenticated() {
		return "user:" + s.OwnerID
	}
	return "guest"
}
