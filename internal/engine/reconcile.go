package engine

import (
	"context"
	"fmt"
	"log"

	"github.com/fjod/storefront-sync/internal/domain"
	"github.com/fjod/storefront-sync/internal/gateway"
	"github.com/fjod/storefront-sync/internal/mapper"
	"github.com/fjod/storefront-sync/internal/state"
)

// Reconcile replaces the collection with the remote state. Local changes
// that were not sent yet are kept on top of the fetched state. Concurrent
// calls for the same owner and collection share one fetch.
func (e *Engine) Reconcile(ctx context.Context, collection domain.Collection) error {
	if err := collection.Validate(); err != nil {
		return err
	}

	e.mu.Lock()
	session := e.Session()
	epoch := e.epoch
	e.mu.Unlock()

	if !session.Authenticated() {
		return fmt.Errorf("reconcile %s: %w", collection, domain.ErrAuthRequired)
	}

	key := session.OwnerID + "/" + string(collection)
	_, err, _ := e.sfg.Do(key, func() (any, error) {
		return nil, e.reconcile(ctx, session, epoch, collection)
	})
	return err
}

// Refresh reconciles both collections.
func (e *Engine) Refresh(ctx context.Context) error {
	if err := e.Reconcile(ctx, domain.CollectionCart); err != nil {
		return err
	}
	return e.Reconcile(ctx, domain.CollectionFavorites)
}

func (e *Engine) reconcile(ctx context.Context, session domain.Session, epoch uint64, collection domain.Collection) error {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.RemoteTimeout)
	defer cancel()

	res := e.remote.Fetch(ctx, session.OwnerID, collection)
	if res.Status != gateway.StatusOK {
		return fmt.Errorf("reconcile %s: %w", collection, res.Err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	// the session changed while fetching
	if e.epoch != epoch {
		return nil
	}

	local := e.store.State()
	switch collection {
	case domain.CollectionCart:
		fetched, errs := mapper.CartFromRows(session.OwnerID, res.Rows)
		for _, err := range errs {
			log.Printf("reconcile cart %s: skipping row: %v", session.OwnerID, err)
		}
		for key, p := range e.pending[collection] {
			remote := cartSnapshot(fetched, key)
			e.rebase(p, remote)
			if !p.dirty {
				continue
			}
			if mine := cartSnapshot(local.Cart, key); mine.present {
				fetched.Restore(mine.item, mine.index)
			} else {
				fetched.Remove(key)
			}
		}
		e.store.Dispatch(state.ReplaceCart{Cart: fetched})
	case domain.CollectionFavorites:
		fetched := mapper.FavoritesFromRows(session.OwnerID, res.Rows)
		for id, p := range e.pending[collection] {
			remote := favoriteSnapshot(fetched, id)
			e.rebase(p, remote)
			if !p.dirty {
				continue
			}
			if mine := favoriteSnapshot(local.Favorites, id); mine.present {
				fetched.Restore(id, mine.index)
			} else {
				fetched.Remove(id)
			}
		}
		e.store.Dispatch(state.ReplaceFavorites{Favorites: fetched})
	}
	e.persist(collection)
	return nil
}

// rebase moves a pending entry onto the fetched remote value. A sent change
// is superseded by the fetched state.
func (e *Engine) rebase(p *pending, remote snapshot) {
	p.base = remote
	if p.dirty {
		return
	}
	if p.inflight {
		p.orphaned = true
		return
	}
	delete(e.pending[p.collection], p.key)
}

type flightKey struct {
	epoch      uint64
	collection domain.Collection
}

// changed is the push notification handler of one collection. A notification
// that arrives while a reconciliation runs schedules exactly one more.
func (e *Engine) changed(epoch uint64, collection domain.Collection) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed || e.epoch != epoch {
		return
	}
	key := flightKey{epoch: epoch, collection: collection}
	if _, running := e.reconciling[key]; running {
		e.reconciling[key] = true
		return
	}
	e.reconciling[key] = false
	e.startWorker()

	go func() {
		defer e.finishWorker()
		for {
			if err := e.Reconcile(e.baseCtx, collection); err != nil && e.baseCtx.Err() == nil {
				log.Printf("reconcile %s after change notification: %v", collection, err)
				e.notify(Notice{
					Kind:       NoticeReconcileFailed,
					Collection: collection,
					Message:    fmt.Sprintf("could not refresh %s", collection),
				})
			}

			e.mu.Lock()
			if e.reconciling[key] && !e.closed && e.epoch == epoch {
				e.reconciling[key] = false
				e.mu.Unlock()
				continue
			}
			delete(e.reconciling, key)
			e.mu.Unlock()
			return
		}
	}()
}
