package engine

import (
	"fmt"
	"strings"

	"github.com/fjod/storefront-sync/internal/domain"
	"github.com/fjod/storefront-sync/internal/state"
)

// AddItem adds quantity units of the product variant to the cart. An item
// with the same identity is incremented and keeps its original snapshot.
func (e *Engine) AddItem(product domain.Product, variant domain.Variant, quantity int) error {
	if err := product.Validate(); err != nil {
		return e.reject(domain.CollectionCart, "", err)
	}
	if quantity < 1 {
		return e.reject(domain.CollectionCart, product.ID, fmt.Errorf("%w: quantity must be at least 1", domain.ErrValidation))
	}
	identity, err := domain.NewItemIdentity(product.ID, variant)
	if err != nil {
		return e.reject(domain.CollectionCart, product.ID, err)
	}
	key := identity.Key()

	e.mu.Lock()
	defer e.mu.Unlock()

	before := e.current(domain.CollectionCart, key)
	e.store.Dispatch(state.AddItem{Item: domain.LineItem{
		Identity: identity,
		Product:  product,
		Quantity: quantity,
		AddedAt:  e.now().UTC(),
	}})
	e.commit(domain.CollectionCart, key, MutationAdd, before)
	return nil
}

// UpdateQuantity sets the absolute quantity of a line item; zero or less
// removes it.
func (e *Engine) UpdateQuantity(key string, quantity int) error {
	key, err := e.cartKey(key)
	if err != nil {
		return err
	}
	return e.reject(domain.CollectionCart, key, e.updateQuantity(key, quantity))
}

func (e *Engine) updateQuantity(key string, quantity int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	before := e.current(domain.CollectionCart, key)
	if !before.present {
		return fmt.Errorf("%w: item %s is not in the cart", domain.ErrValidation, key)
	}
	if before.item.Quantity == quantity {
		return nil
	}
	e.store.Dispatch(state.SetQuantity{Key: key, Quantity: quantity})
	e.commit(domain.CollectionCart, key, MutationSetQuantity, before)
	return nil
}

func (e *Engine) RemoveItem(key string) error {
	key, err := e.cartKey(key)
	if err != nil {
		return err
	}
	return e.reject(domain.CollectionCart, key, e.removeItem(key))
}

func (e *Engine) removeItem(key string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	before := e.current(domain.CollectionCart, key)
	if !before.present {
		return fmt.Errorf("%w: item %s is not in the cart", domain.ErrValidation, key)
	}
	e.store.Dispatch(state.RemoveItem{Key: key})
	e.commit(domain.CollectionCart, key, MutationRemove, before)
	return nil
}

// ClearCollection empties the cart or the favorites. Each removed identity is
// synchronised on its own.
func (e *Engine) ClearCollection(collection domain.Collection) error {
	if err := collection.Validate(); err != nil {
		return e.reject("", "", err)
	}
	return e.reject(collection, "", e.clearCollection(collection))
}

func (e *Engine) clearCollection(collection domain.Collection) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	st := e.store.State()
	var keys []string
	befores := make(map[string]snapshot)
	switch collection {
	case domain.CollectionCart:
		for _, item := range st.Cart.Items {
			keys = append(keys, item.Key())
			befores[item.Key()] = cartSnapshot(st.Cart, item.Key())
		}
		e.store.Dispatch(state.ClearCart{})
	case domain.CollectionFavorites:
		if !st.Session.Authenticated() && e.cfg.RequireLoginForFavorites {
			return fmt.Errorf("%w: sign in to manage favorites", domain.ErrAuthRequired)
		}
		for _, id := range st.Favorites.Items {
			keys = append(keys, id)
			befores[id] = favoriteSnapshot(st.Favorites, id)
		}
		e.store.Dispatch(state.ClearFavorites{})
	}
	if len(keys) == 0 {
		return nil
	}

	e.persist(collection)
	if st.Session.Authenticated() {
		for _, key := range keys {
			e.track(collection, key, MutationClear, befores[key])
		}
	}
	return nil
}

// commit persists the collection and, for an authenticated session, schedules
// the remote write. Must be called with e.mu held.
func (e *Engine) commit(collection domain.Collection, key string, kind MutationKind, before snapshot) {
	e.persist(collection)
	if e.Session().Authenticated() {
		e.track(collection, key, kind, before)
	}
}

func (e *Engine) cartKey(key string) (string, error) {
	identity, err := domain.ParseItemKey(strings.TrimSpace(key))
	if err != nil {
		return "", e.reject(domain.CollectionCart, key, err)
	}
	return identity.Key(), nil
}

// reject reports a refused operation to the UI and returns err unchanged.
// It must not be called with e.mu held.
func (e *Engine) reject(collection domain.Collection, identity string, err error) error {
	if err == nil {
		return nil
	}
	kind := NoticeInvalid
	if isAuthErr(err) {
		kind = NoticeAuthRequired
	}
	e.notify(Notice{Kind: kind, Collection: collection, Identity: identity, Message: err.Error()})
	return err
}
