package state

import "github.com/fjod/storefront-sync/internal/domain"

// Action is a state transition. The set of actions is closed.
type Action interface {
	reduce(*State)
}

// AddItem inserts the item or increments the item with the same identity.
type AddItem struct {
	Item domain.LineItem
}

func (a AddItem) reduce(s *State) {
	s.Cart.Add(a.Item)
}

// SetQuantity sets an absolute quantity; <= 0 removes the item.
type SetQuantity struct {
	Key      string
	Quantity int
}

func (a SetQuantity) reduce(s *State) {
	s.Cart.SetQuantity(a.Key, a.Quantity)
}

type RemoveItem struct {
	Key string
}

func (a RemoveItem) reduce(s *State) {
	s.Cart.Remove(a.Key)
}

// PutItem forces one identity to a known value: Item nil removes it,
// otherwise it is placed at Index (or appended when Index is out of range).
type PutItem struct {
	Key   string
	Item  *domain.LineItem
	Index int
}

func (a PutItem) reduce(s *State) {
	if a.Item == nil {
		s.Cart.Remove(a.Key)
		return
	}
	s.Cart.Restore(*a.Item, a.Index)
}

type ClearCart struct{}

func (ClearCart) reduce(s *State) {
	s.Cart.Clear()
}

// ReplaceCart swaps the whole cart, as reconciliation does.
type ReplaceCart struct {
	Cart domain.Cart
}

func (a ReplaceCart) reduce(s *State) {
	s.Cart = a.Cart.Clone()
}

type AddFavorite struct {
	ProductID string
}

func (a AddFavorite) reduce(s *State) {
	s.Favorites.Add(a.ProductID)
}

type RemoveFavorite struct {
	ProductID string
}

func (a RemoveFavorite) reduce(s *State) {
	s.Favorites.Remove(a.ProductID)
}

// PutFavorite forces membership of one product id; Index positions a re-added id.
type PutFavorite struct {
	ProductID string
	Member    bool
	Index     int
}

func (a PutFavorite) reduce(s *State) {
	if !a.Member {
		s.Favorites.Remove(a.ProductID)
		return
	}
	s.Favorites.Restore(a.ProductID, a.Index)
}

type ClearFavorites struct{}

func (ClearFavorites) reduce(s *State) {
	s.Favorites = domain.NewFavoriteSet(s.Favorites.OwnerID)
}

type ReplaceFavorites struct {
	Favorites domain.FavoriteSet
}

func (a ReplaceFavorites) reduce(s *State) {
	s.Favorites = a.Favorites.Clone()
}

// Reset switches to another session with the given collections.
type Reset struct {
	Session   domain.Session
	Cart      domain.Cart
	Favorites domain.FavoriteSet
}

func (a Reset) reduce(s *State) {
	s.Session = a.Session
	s.Cart = a.Cart.Clone()
	s.Cart.OwnerID = a.Session.OwnerID
	s.Favorites = a.Favorites.Clone()
	s.Favorites.OwnerID = a.Session.OwnerID
}
