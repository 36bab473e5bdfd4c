package engine

import (
	"log"

	"github.com/fjod/storefront-sync/internal/domain"
	"github.com/fjod/storefront-sync/internal/localstore"
	"github.com/fjod/storefront-sync/internal/mapper"
	"github.com/fjod/storefront-sync/internal/state"
)

// persist writes one collection of the current session to the local store.
// Must be called with e.mu held.
func (e *Engine) persist(collection domain.Collection) {
	st := e.store.State()
	e.persistState(st, collection)
}

func (e *Engine) persistState(st state.State, collection domain.Collection) {
	var (
		data []byte
		err  error
	)
	switch collection {
	case domain.CollectionCart:
		data, err = mapper.EncodeCart(st.Cart)
	default:
		data, err = mapper.EncodeFavorites(st.Favorites)
	}
	if err != nil {
		log.Printf("encode %s snapshot: %v", collection, err)
		return
	}

	ctx, cancel := e.localContext()
	defer cancel()
	e.local.Save(ctx, localstore.Key(collection, st.Session.Scope()), data)
}

func (e *Engine) persistSession(s domain.Session) {
	data, err := mapper.EncodeSession(s)
	if err != nil {
		log.Printf("encode session: %v", err)
		return
	}
	ctx, cancel := e.localContext()
	defer cancel()
	e.local.Save(ctx, localstore.SessionKey, data)
}

// dropScope deletes both collections of a persistence scope.
func (e *Engine) dropScope(scope string) {
	ctx, cancel := e.localContext()
	defer cancel()
	e.local.Delete(ctx, localstore.Key(domain.CollectionCart, scope))
	e.local.Delete(ctx, localstore.Key(domain.CollectionFavorites, scope))
}

func (e *Engine) loadCart(scope, ownerID string) domain.Cart {
	ctx, cancel := e.localContext()
	defer cancel()
	data, ok := e.local.Load(ctx, localstore.Key(domain.CollectionCart, scope))
	if !ok {
		return domain.NewCart(ownerID)
	}
	cart, err := mapper.DecodeCart(data)
	if err != nil {
		log.Printf("decode cached cart %s: %v", scope, err)
		return domain.NewCart(ownerID)
	}
	cart.OwnerID = ownerID
	return cart
}

func (e *Engine) loadFavorites(scope, ownerID string) domain.FavoriteSet {
	ctx, cancel := e.localContext()
	defer cancel()
	data, ok := e.local.Load(ctx, localstore.Key(domain.CollectionFavorites, scope))
	if !ok {
		return domain.NewFavoriteSet(ownerID)
	}
	set, err := mapper.DecodeFavorites(data)
	if err != nil {
		log.Printf("decode cached favorites %s: %v", scope, err)
		return domain.NewFavoriteSet(ownerID)
	}
	set.OwnerID = ownerID
	return set
}

func (e *Engine) loadSession() (domain.Session, bool) {
	ctx, cancel := e.localContext()
	defer cancel()
	data, ok := e.local.Load(ctx, localstore.SessionKey)
	if !ok {
		return domain.Session{}, false
	}
	s, err := mapper.DecodeSession(data)
	if err != nil {
		log.Printf("decode cached session: %v", err)
		return domain.Session{}, false
	}
	return s, true
}

// loadJournal returns the journal of an earlier merge of this guest into
// userID, or an empty one.
func (e *Engine) loadJournal(guestID, userID string) mapper.MergeJournal {
	ctx, cancel := e.localContext()
	defer cancel()
	fresh := mapper.NewMergeJournal(guestID, userID)
	data, ok := e.local.Load(ctx, localstore.MergeKey(userID))
	if !ok {
		return fresh
	}
	j, err := mapper.DecodeMergeJournal(data)
	if err != nil {
		log.Printf("decode merge journal %s: %v", userID, err)
		return fresh
	}
	if j.GuestID != guestID || j.UserID != userID {
		return fresh
	}
	return j
}

func (e *Engine) saveJournal(j mapper.MergeJournal) {
	data, err := mapper.EncodeMergeJournal(j)
	if err != nil {
		log.Printf("encode merge journal: %v", err)
		return
	}
	ctx, cancel := e.localContext()
	defer cancel()
	e.local.Save(ctx, localstore.MergeKey(j.UserID), data)
}

func (e *Engine) dropJournal(userID string) {
	ctx, cancel := e.localContext()
	defer cancel()
	e.local.Delete(ctx, localstore.MergeKey(userID))
}
