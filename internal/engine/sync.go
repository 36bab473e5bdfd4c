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

// snapshot is the value of one identity inside a collection.
type snapshot struct {
	present bool
	item    domain.LineItem // cart only
	index   int
}

func (s snapshot) same(o snapshot) bool {
	if s.present != o.present {
		return false
	}
	if !s.present {
		return true
	}
	return s.item.Quantity == o.item.Quantity && s.item.Product == o.item.Product
}

// MutationKind names the latest local change of a pending identity.
type MutationKind string

const (
	MutationAdd         MutationKind = "add"
	MutationSetQuantity MutationKind = "set_quantity"
	MutationRemove      MutationKind = "remove"
	MutationToggle      MutationKind = "toggle"
	MutationClear       MutationKind = "clear"
)

// pending tracks the remote synchronisation of one identity. At most one
// remote call per identity is in flight; later local changes mark the entry
// dirty and are sent once that call returned.
type pending struct {
	collection domain.Collection
	key        string
	kind       MutationKind
	base       snapshot // last value the remote is known to hold
	dirty      bool     // local value changed since the last send
	inflight   bool
	uncertain  bool // a superseded call may have landed; base is not trusted
	orphaned   bool // reconciliation replaced the state; ignore the in-flight result
	cancel     context.CancelFunc
}

func newPendingMaps() map[domain.Collection]map[string]*pending {
	return map[domain.Collection]map[string]*pending{
		domain.CollectionCart:      {},
		domain.CollectionFavorites: {},
	}
}

// current reads the local value of one identity.
func (e *Engine) current(collection domain.Collection, key string) snapshot {
	var snap snapshot
	e.store.Read(func(s state.State) {
		snap = snapshotOf(s, collection, key)
	})
	return snap
}

func snapshotOf(s state.State, collection domain.Collection, key string) snapshot {
	switch collection {
	case domain.CollectionCart:
		return cartSnapshot(s.Cart, key)
	default:
		return favoriteSnapshot(s.Favorites, key)
	}
}

func cartSnapshot(cart domain.Cart, key string) snapshot {
	item, idx := cart.Find(key)
	if idx < 0 {
		return snapshot{index: -1}
	}
	return snapshot{present: true, item: item, index: idx}
}

func favoriteSnapshot(set domain.FavoriteSet, productID string) snapshot {
	for i, id := range set.Items {
		if id == productID {
			return snapshot{present: true, index: i}
		}
	}
	return snapshot{index: -1}
}

// track schedules the remote write of a local change. before is the value
// the identity had prior to the change. Must be called with e.mu held.
func (e *Engine) track(collection domain.Collection, key string, kind MutationKind, before snapshot) {
	p, ok := e.pending[collection][key]
	if ok {
		p.kind = kind
		p.dirty = true
		if p.inflight && p.cancel != nil {
			p.cancel()
		}
		return
	}

	p = &pending{collection: collection, key: key, kind: kind, base: before, dirty: true}
	e.pending[collection][key] = p
	e.startWorker()
	go e.drain(p, e.Session().OwnerID)
}

func (e *Engine) owns(p *pending) bool {
	return e.pending[p.collection][p.key] == p
}

// drain sends the latest local value of one identity until the remote
// confirmed it or the change was reverted.
func (e *Engine) drain(p *pending, ownerID string) {
	defer e.finishWorker()

	for {
		e.mu.Lock()
		if !e.owns(p) {
			e.mu.Unlock()
			return
		}
		if !p.dirty {
			delete(e.pending[p.collection], p.key)
			e.mu.Unlock()
			return
		}
		desired := e.current(p.collection, p.key)
		p.dirty = false
		if desired.same(p.base) && !p.uncertain {
			delete(e.pending[p.collection], p.key)
			e.mu.Unlock()
			return
		}
		ctx, cancel := context.WithTimeout(e.baseCtx, e.cfg.RemoteTimeout)
		p.inflight, p.cancel = true, cancel
		e.mu.Unlock()

		res := e.send(ctx, ownerID, p.collection, p.key, desired)
		cancel()

		e.mu.Lock()
		if !e.owns(p) {
			e.mu.Unlock()
			return
		}
		p.inflight, p.cancel = false, nil

		switch {
		case p.orphaned:
			p.orphaned = false
			p.uncertain = true
		case res.Status.Succeeded():
			p.base = desired
			p.uncertain = false
		case p.dirty:
			// superseded by a newer local value
			p.uncertain = true
		case res.Status == gateway.StatusCanceled:
			// engine closing; the next reconciliation repairs the state
			delete(e.pending[p.collection], p.key)
			e.mu.Unlock()
			return
		default:
			delete(e.pending[p.collection], p.key)
			e.revert(p)
			e.mu.Unlock()
			log.Printf("sync %s on %s/%s failed, reverted: %v", p.kind, p.collection, p.key, res.Err)
			e.notify(Notice{
				Kind:       NoticeSyncFailed,
				Collection: p.collection,
				Identity:   p.key,
				Message:    fmt.Sprintf("could not save %s change, it was undone", p.collection),
			})
			return
		}
		e.mu.Unlock()
	}
}

func (e *Engine) send(ctx context.Context, ownerID string, collection domain.Collection, key string, desired snapshot) gateway.Result {
	switch collection {
	case domain.CollectionCart:
		if desired.present {
			return e.remote.Upsert(ctx, ownerID, collection, key, mapper.RowFromLineItem(ownerID, desired.item))
		}
	case domain.CollectionFavorites:
		if desired.present {
			return e.remote.Insert(ctx, ownerID, collection, key, mapper.RowFromFavorite(ownerID, key))
		}
	}
	return e.remote.Delete(ctx, ownerID, collection, key)
}

// revert puts the last confirmed value back. Must be called with e.mu held.
func (e *Engine) revert(p *pending) {
	switch p.collection {
	case domain.CollectionCart:
		var item *domain.LineItem
		if p.base.present {
			base := p.base.item
			item = &base
		}
		e.store.Dispatch(state.PutItem{Key: p.key, Item: item, Index: p.base.index})
	case domain.CollectionFavorites:
		e.store.Dispatch(state.PutFavorite{ProductID: p.key, Member: p.base.present, Index: p.base.index})
	}
	e.persist(p.collection)
}
