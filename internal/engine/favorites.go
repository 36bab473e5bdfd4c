package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fjod/storefront-sync/internal/domain"
	"github.com/fjod/storefront-sync/internal/state"
)

// ToggleFavorite flips the membership of the product and returns the new
// membership.
func (e *Engine) ToggleFavorite(productID string) (bool, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return false, e.reject(domain.CollectionFavorites, "", fmt.Errorf("%w: product id is required", domain.ErrValidation))
	}

	member, err := e.toggleFavorite(productID)
	return member, e.reject(domain.CollectionFavorites, productID, err)
}

func (e *Engine) toggleFavorite(productID string) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.Session().Authenticated() && e.cfg.RequireLoginForFavorites {
		return false, fmt.Errorf("%w: sign in to manage favorites", domain.ErrAuthRequired)
	}

	before := e.current(domain.CollectionFavorites, productID)
	if before.present {
		e.store.Dispatch(state.RemoveFavorite{ProductID: productID})
	} else {
		e.store.Dispatch(state.AddFavorite{ProductID: productID})
	}
	e.commit(domain.CollectionFavorites, productID, MutationToggle, before)
	return !before.present, nil
}

func isAuthErr(err error) bool {
	return errors.Is(err, domain.ErrAuthRequired)
}
