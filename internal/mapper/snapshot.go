package mapper

import (
	"encoding/json"
	"fmt"

	"github.com/fjod/storefront-sync/internal/domain"
)

// snapshotVersion is bumped when the local snapshot layout changes.
const snapshotVersion = 1

type cartSnapshot struct {
	Version int               `json:"version"`
	OwnerID string            `json:"owner_id"`
	Items   []domain.LineItem `json:"items"`
}

type favoritesSnapshot struct {
	Version int      `json:"version"`
	OwnerID string   `json:"owner_id"`
	Items   []string `json:"items"`
}

// EncodeCart serializes the cart for the local store. Derived totals are not
// stored; DecodeCart recomputes them.
func EncodeCart(cart domain.Cart) ([]byte, error) {
	b, err := json.Marshal(cartSnapshot{Version: snapshotVersion, OwnerID: cart.OwnerID, Items: cart.Items})
	if err != nil {
		return nil, fmt.Errorf("marshal cart failed: %w", err)
	}
	return b, nil
}

func DecodeCart(data []byte) (domain.Cart, error) {
	var snap cartSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return domain.Cart{}, fmt.Errorf("unmarshal cart failed: %w", err)
	}
	if snap.Version != snapshotVersion {
		return domain.Cart{}, fmt.Errorf("unsupported cart snapshot version %d", snap.Version)
	}

	cart := domain.NewCart(snap.OwnerID)
	for _, item := range snap.Items {
		id, err := domain.NewItemIdentity(item.Identity.ProductID, item.Identity.Variant)
		if err != nil || item.Quantity <= 0 {
			continue
		}
		item.Identity = id
		cart.Add(item)
	}
	cart.Recompute()
	return cart, nil
}

func EncodeFavorites(set domain.FavoriteSet) ([]byte, error) {
	b, err := json.Marshal(favoritesSnapshot{Version: snapshotVersion, OwnerID: set.OwnerID, Items: set.Items})
	if err != nil {
		return nil, fmt.Errorf("marshal favorites failed: %w", err)
	}
	return b, nil
}

func DecodeFavorites(data []byte) (domain.FavoriteSet, error) {
	var snap favoritesSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return domain.FavoriteSet{}, fmt.Errorf("unmarshal favorites failed: %w", err)
	}
	if snap.Version != snapshotVersion {
		return domain.FavoriteSet{}, fmt.Errorf("unsupported favorites snapshot version %d", snap.Version)
	}
	return domain.NewFavoriteSet(snap.OwnerID, snap.Items...), nil
}

func EncodeSession(s domain.Session) ([]byte, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal session failed: %w", err)
	}
	return b, nil
}

func DecodeSession(data []byte) (domain.Session, error) {
	var s domain.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return domain.Session{}, fmt.Errorf("unmarshal session failed: %w", err)
	}
	switch s.Kind {
	case domain.SessionGuest, domain.SessionAuthenticated, domain.SessionSignedOut:
	default:
		return domain.Session{}, fmt.Errorf("unknown session kind %q", s.Kind)
	}
	if s.OwnerID == "" {
		return domain.Session{}, fmt.Errorf("session without owner")
	}
	return s, nil
}

// MergeLine records one guest line folded into an account: the guest
// quantity it was computed from and the absolute quantity written.
type MergeLine struct {
	Guest  int `json:"guest"`
	Target int `json:"target"`
}

// MergeJournal lists the cart writes of a login merge so a retried login
// repeats them instead of adding the guest quantities a second time.
type MergeJournal struct {
	Version int                  `json:"version"`
	GuestID string               `json:"guest_id"`
	UserID  string               `json:"user_id"`
	Lines   map[string]MergeLine `json:"lines"`
}

func NewMergeJournal(guestID, userID string) MergeJournal {
	return MergeJournal{Version: snapshotVersion, GuestID: guestID, UserID: userID, Lines: make(map[string]MergeLine)}
}

func EncodeMergeJournal(j MergeJournal) ([]byte, error) {
	j.Version = snapshotVersion
	b, err := json.Marshal(j)
	if err != nil {
		return nil, fmt.Errorf("marshal merge journal failed: %w", err)
	}
	return b, nil
}

func DecodeMergeJournal(data []byte) (MergeJournal, error) {
	var j MergeJournal
	if err := json.Unmarshal(data, &j); err != nil {
		return MergeJournal{}, fmt.Errorf("unmarshal merge journal failed: %w", err)
	}
	if j.Version != snapshotVersion {
		return MergeJournal{}, fmt.Errorf("unsupported merge journal version %d", j.Version)
	}
	if j.Lines == nil {
		j.Lines = make(map[string]MergeLine)
	}
	return j, nil
}
