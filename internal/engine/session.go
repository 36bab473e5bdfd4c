package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/fjod/storefront-sync/internal/domain"
	"github.com/fjod/storefront-sync/internal/gateway"
	"github.com/fjod/storefront-sync/internal/mapper"
	"github.com/fjod/storefront-sync/internal/notify"
	"github.com/fjod/storefront-sync/internal/state"
	"golang.org/x/sync/errgroup"
)

const mergeConcurrency = 4

var collections = []domain.Collection{domain.CollectionCart, domain.CollectionFavorites}

// Mount restores the last session and its collections from the local store.
// An authenticated session is subscribed to change notifications and
// reconciled against the remote store.
func (e *Engine) Mount(ctx context.Context) error {
	session, ok := e.loadSession()
	if !ok || !session.Authenticated() {
		session = domain.NewGuestSession()
	}
	cart := e.loadCart(session.Scope(), session.OwnerID)
	favorites := e.loadFavorites(session.Scope(), session.OwnerID)

	old := e.switchSession(session, cart, favorites)
	releaseAll(old)

	if !session.Authenticated() {
		return nil
	}
	return e.attach(ctx, session)
}

// Login migrates the guest collections into the remote collections of userID
// and switches the engine to the authenticated session. When the migration
// fails the engine stays in the guest session and the guest copy is kept; a
// later Login repeats the same writes.
func (e *Engine) Login(ctx context.Context, userID string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return e.reject("", "", fmt.Errorf("%w: user id is required", domain.ErrValidation))
	}

	e.loginMu.Lock()
	defer e.loginMu.Unlock()

	e.mu.Lock()
	current := e.Session()
	epoch := e.epoch
	e.mu.Unlock()

	if current.Authenticated() {
		if current.OwnerID == userID {
			return nil
		}
		return e.reject("", "", fmt.Errorf("%w: already signed in as %s", domain.ErrValidation, current.OwnerID))
	}

	guestScope := current.Scope()
	guestCart := e.loadCart(guestScope, userID)
	guestFavorites := e.loadFavorites(guestScope, userID)

	mergedCart, mergedFavorites, err := e.merge(ctx, current.OwnerID, userID, guestCart, guestFavorites)
	if err != nil {
		log.Printf("login %s: merge failed, staying guest: %v", userID, err)
		e.notify(Notice{Kind: NoticeLoginMergeFailed, Message: "could not move your cart to your account"})
		return fmt.Errorf("login %s: %w", userID, err)
	}

	session := domain.NewAuthenticatedSession(userID)

	e.mu.Lock()
	if e.epoch != epoch {
		e.mu.Unlock()
		return fmt.Errorf("login %s: session changed during login", userID)
	}
	cart, favorites, late := foldLateChanges(e.store.State(), guestCart, guestFavorites, mergedCart, mergedFavorites)
	e.dropScope(guestScope)
	e.dropJournal(userID)
	old := e.install(session, cart, favorites)
	for _, c := range late {
		e.track(c.collection, c.key, c.kind, c.base)
	}
	e.mu.Unlock()
	releaseAll(old)

	if err := e.attach(ctx, session); err != nil {
		log.Printf("login %s: %v", userID, err)
	}
	return nil
}

type cartWrite struct {
	key string
	row *gateway.Row // nil deletes
}

// merge folds the guest collections into the remote collections of userID
// and returns what the remote holds afterwards. Cart quantities are absolute
// and recorded in the merge journal before any write, so a retry after a
// partial failure writes the same targets again.
func (e *Engine) merge(ctx context.Context, guestID, userID string, guestCart domain.Cart, guestFavorites domain.FavoriteSet) (domain.Cart, domain.FavoriteSet, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.RemoteTimeout)
	defer cancel()

	cartRes := e.remote.Fetch(ctx, userID, domain.CollectionCart)
	if cartRes.Status != gateway.StatusOK {
		return domain.Cart{}, domain.FavoriteSet{}, fmt.Errorf("fetch remote cart: %w", cartRes.Err)
	}
	favRes := e.remote.Fetch(ctx, userID, domain.CollectionFavorites)
	if favRes.Status != gateway.StatusOK {
		return domain.Cart{}, domain.FavoriteSet{}, fmt.Errorf("fetch remote favorites: %w", favRes.Err)
	}

	merged, errs := mapper.CartFromRows(userID, cartRes.Rows)
	for _, err := range errs {
		log.Printf("login %s: skipping remote cart row: %v", userID, err)
	}
	favorites := mapper.FavoritesFromRows(userID, favRes.Rows)

	journal := e.loadJournal(guestID, userID)
	var writes []cartWrite

	// guest lines removed since an earlier attempt take their share back out
	for key, line := range journal.Lines {
		if guestCart.Quantity(key) > 0 {
			continue
		}
		delete(journal.Lines, key)
		existing, idx := merged.Find(key)
		if idx < 0 || existing.Quantity != line.Target {
			continue
		}
		if rest := line.Target - line.Guest; rest > 0 {
			existing.Quantity = rest
			merged.Restore(existing, idx)
			row := mapper.RowFromLineItem(userID, existing)
			writes = append(writes, cartWrite{key: key, row: &row})
		} else {
			merged.Remove(key)
			writes = append(writes, cartWrite{key: key})
		}
	}

	for _, item := range guestCart.Items {
		key := item.Key()
		guestQty := item.Quantity
		target := guestQty
		if existing, idx := merged.Find(key); idx >= 0 {
			item = existing
			target += existing.Quantity
		}
		if line, ok := journal.Lines[key]; ok {
			target = line.Target + guestQty - line.Guest
		}
		item.Quantity = target
		journal.Lines[key] = mapper.MergeLine{Guest: guestQty, Target: target}
		merged.Restore(item, indexOf(merged, key))

		row := mapper.RowFromLineItem(userID, item)
		writes = append(writes, cartWrite{key: key, row: &row})
	}
	if len(journal.Lines) > 0 {
		e.saveJournal(journal)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(mergeConcurrency)

	for _, w := range writes {
		w := w
		g.Go(func() error {
			var res gateway.Result
			if w.row == nil {
				res = e.remote.Delete(gctx, userID, domain.CollectionCart, w.key)
			} else {
				res = e.remote.Upsert(gctx, userID, domain.CollectionCart, w.key, *w.row)
			}
			if !res.Status.Succeeded() {
				return fmt.Errorf("merge cart item %s: %w", w.key, res.Err)
			}
			return nil
		})
	}

	for _, id := range guestFavorites.Items {
		if !favorites.Add(id) {
			continue
		}
		id := id
		row := mapper.RowFromFavorite(userID, id)
		g.Go(func() error {
			res := e.remote.Insert(gctx, userID, domain.CollectionFavorites, id, row)
			if !res.Status.Succeeded() {
				return fmt.Errorf("merge favorite %s: %w", id, res.Err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return domain.Cart{}, domain.FavoriteSet{}, err
	}
	return merged, favorites, nil
}

// lateChange is a guest edit made while a login merge was running.
type lateChange struct {
	collection domain.Collection
	key        string
	kind       MutationKind
	base       snapshot
}

// foldLateChanges applies the guest edits made since the merge read the guest
// collections on top of the merged collections. The returned changes still
// have to be written to the account.
func foldLateChanges(now state.State, guestCart domain.Cart, guestFavorites domain.FavoriteSet, cart domain.Cart, favorites domain.FavoriteSet) (domain.Cart, domain.FavoriteSet, []lateChange) {
	cart = cart.Clone()
	favorites = favorites.Clone()
	var changes []lateChange

	seen := make(map[string]bool)
	for _, item := range append(now.Cart.Clone().Items, guestCart.Items...) {
		key := item.Key()
		if seen[key] {
			continue
		}
		seen[key] = true
		delta := now.Cart.Quantity(key) - guestCart.Quantity(key)
		if delta == 0 {
			continue
		}
		base := cartSnapshot(cart, key)
		switch {
		case base.present:
			cart.SetQuantity(key, base.item.Quantity+delta)
		case delta > 0:
			item.Quantity = delta
			cart.Add(item)
		default:
			continue
		}
		changes = append(changes, lateChange{collection: domain.CollectionCart, key: key, kind: MutationSetQuantity, base: base})
	}

	for _, id := range now.Favorites.Items {
		if guestFavorites.Has(id) || favorites.Has(id) {
			continue
		}
		base := favoriteSnapshot(favorites, id)
		favorites.Add(id)
		changes = append(changes, lateChange{collection: domain.CollectionFavorites, key: id, kind: MutationToggle, base: base})
	}
	for _, id := range guestFavorites.Items {
		if now.Favorites.Has(id) {
			continue
		}
		base := favoriteSnapshot(favorites, id)
		if _, ok := favorites.Remove(id); ok {
			changes = append(changes, lateChange{collection: domain.CollectionFavorites, key: id, kind: MutationToggle, base: base})
		}
	}
	return cart, favorites, changes
}

func indexOf(cart domain.Cart, key string) int {
	_, idx := cart.Find(key)
	return idx
}

// Logout detaches from the authenticated owner and starts a fresh guest
// session. The authenticated collections are not carried over.
func (e *Engine) Logout() {
	e.mu.Lock()
	current := e.Session()
	e.mu.Unlock()

	if !current.Authenticated() {
		return
	}

	e.dropScope(current.Scope())
	guest := domain.NewGuestSession()
	old := e.switchSession(guest, domain.NewCart(guest.OwnerID), domain.NewFavoriteSet(guest.OwnerID))
	releaseAll(old)
}

// switchSession installs a new session with its collections, forgets every
// pending mutation of the previous session and returns its subscriptions.
func (e *Engine) switchSession(session domain.Session, cart domain.Cart, favorites domain.FavoriteSet) []notify.Subscription {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.install(session, cart, favorites)
}

// install is switchSession with e.mu held.
func (e *Engine) install(session domain.Session, cart domain.Cart, favorites domain.FavoriteSet) []notify.Subscription {
	e.epoch++
	for _, byKey := range e.pending {
		for _, p := range byKey {
			if p.cancel != nil {
				p.cancel()
			}
		}
	}
	e.pending = newPendingMaps()
	old := e.subs
	e.subs = nil

	st := e.store.Dispatch(state.Reset{Session: session, Cart: cart, Favorites: favorites})
	e.persistState(st, domain.CollectionCart)
	e.persistState(st, domain.CollectionFavorites)
	e.persistSession(session)
	return old
}

// attach subscribes the authenticated session to change notifications of
// both collections and reconciles them once.
func (e *Engine) attach(ctx context.Context, session domain.Session) error {
	e.mu.Lock()
	epoch := e.epoch
	e.mu.Unlock()

	var errs []error
	var subs []notify.Subscription
	if e.subscriber != nil {
		for _, collection := range collections {
			sub, err := e.subscriber.Subscribe(ctx, session.OwnerID, collection, func() {
				e.changed(epoch, collection)
			})
			if err != nil {
				errs = append(errs, fmt.Errorf("subscribe %s: %w", collection, err))
				e.notify(Notice{Kind: NoticeSubscribeFailed, Collection: collection, Message: fmt.Sprintf("live updates for %s are unavailable", collection)})
				continue
			}
			subs = append(subs, sub)
		}
	}

	e.mu.Lock()
	if e.epoch != epoch || e.closed {
		e.mu.Unlock()
		releaseAll(subs)
		return nil
	}
	e.subs = append(e.subs, subs...)
	e.mu.Unlock()

	for _, collection := range collections {
		if err := e.Reconcile(ctx, collection); err != nil {
			errs = append(errs, err)
			e.notify(Notice{Kind: NoticeReconcileFailed, Collection: collection, Message: fmt.Sprintf("could not refresh %s", collection)})
		}
	}
	return errors.Join(errs...)
}

func releaseAll(subs []notify.Subscription) {
	for _, sub := range subs {
		sub.Unsubscribe()
	}
}
