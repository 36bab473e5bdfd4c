// Package engine keeps the cart and the favorites of the current session
// consistent across the in-memory state, the local store and the remote
// gateway. Mutations are applied optimistically and confirmed in the
// background; push notifications trigger reconciliation.
package engine

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/fjod/storefront-sync/internal/domain"
	"github.com/fjod/storefront-sync/internal/gateway"
	"github.com/fjod/storefront-sync/internal/localstore"
	"github.com/fjod/storefront-sync/internal/notify"
	"github.com/fjod/storefront-sync/internal/state"
	"golang.org/x/sync/singleflight"
)

const (
	defaultRemoteTimeout = 10 * time.Second
	localTimeout         = 2 * time.Second
)

type Config struct {
	// RemoteTimeout bounds every remote call; a timeout is a transient failure.
	RemoteTimeout time.Duration
	// RequireLoginForFavorites rejects guest favorite toggles with ErrAuthRequired.
	RequireLoginForFavorites bool
}

type Engine struct {
	cfg        Config
	store      *state.Store
	local      *localstore.Safe
	remote     *gateway.Client
	subscriber notify.Subscriber
	notifier   Notifier
	now        func() time.Time

	baseCtx context.Context
	stop    context.CancelFunc
	sfg     singleflight.Group // collapses concurrent reconciliations
	loginMu sync.Mutex         // one login merge at a time

	mu          sync.Mutex
	epoch       uint64 // bumped on every session transition
	pending     map[domain.Collection]map[string]*pending
	subs        []notify.Subscription
	reconciling map[flightKey]bool // running reconciliations; true requests a rerun
	active      int
	idle        chan struct{}
	closed      bool
}

// New builds an engine for a fresh guest session. Call Mount to restore the
// last session from the local store.
func New(local localstore.Store, remote gateway.RemoteStore, subscriber notify.Subscriber, notifier Notifier, cfg Config) *Engine {
	if cfg.RemoteTimeout <= 0 {
		cfg.RemoteTimeout = defaultRemoteTimeout
	}
	if notifier == nil {
		notifier = NotifierFunc(func(n Notice) { log.Printf("notice: %s: %s", n.Kind, n.Message) })
	}

	guest := domain.NewGuestSession()
	ctx, cancel := context.WithCancel(context.Background())
	idle := make(chan struct{})
	close(idle)

	return &Engine{
		cfg:         cfg,
		store:       state.NewStore(state.State{Session: guest, Cart: domain.NewCart(guest.OwnerID), Favorites: domain.NewFavoriteSet(guest.OwnerID)}),
		local:       localstore.NewSafe(local),
		remote:      gateway.NewClient(remote),
		subscriber:  subscriber,
		notifier:    notifier,
		now:         time.Now,
		baseCtx:     ctx,
		stop:        cancel,
		pending:     newPendingMaps(),
		reconciling: make(map[flightKey]bool),
		idle:        idle,
	}
}

// State returns a copy of the in-memory state.
func (e *Engine) State() state.State {
	return e.store.State()
}

func (e *Engine) Session() domain.Session {
	return e.store.State().Session
}

func (e *Engine) Cart() domain.Cart {
	return e.store.State().Cart
}

func (e *Engine) Favorites() domain.FavoriteSet {
	return e.store.State().Favorites
}

// Subscribe registers a re-render listener. The listener must not call
// mutating engine methods synchronously.
func (e *Engine) Subscribe(l state.Listener) (unsubscribe func()) {
	return e.store.Subscribe(l)
}

func (e *Engine) IsFavorite(productID string) bool {
	var ok bool
	e.store.Read(func(s state.State) { ok = s.Favorites.Has(productID) })
	return ok
}

// GetItemQuantity returns the quantity of the line item with the identity key.
func (e *Engine) GetItemQuantity(key string) int {
	var n int
	e.store.Read(func(s state.State) { n = s.Cart.Quantity(key) })
	return n
}

// GetProductQuantity sums the quantities of every variant of the product.
func (e *Engine) GetProductQuantity(productID string) int {
	var n int
	e.store.Read(func(s state.State) {
		for _, item := range s.Cart.Items {
			if item.Identity.ProductID == productID {
				n += item.Quantity
			}
		}
	})
	return n
}

func (e *Engine) GetTotalItems() int {
	var n int
	e.store.Read(func(s state.State) { n = s.Cart.ItemCount })
	return n
}

func (e *Engine) GetTotalPrice() float64 {
	var total float64
	e.store.Read(func(s state.State) { total = s.Cart.Total })
	return total
}

// Wait blocks until every background remote call and reconciliation settled.
func (e *Engine) Wait(ctx context.Context) error {
	for {
		e.mu.Lock()
		if e.active == 0 {
			e.mu.Unlock()
			return nil
		}
		idle := e.idle
		e.mu.Unlock()

		select {
		case <-idle:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close releases the notification subscriptions, abandons in-flight calls and
// waits for the workers to return.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	subs := e.subs
	e.subs = nil
	e.mu.Unlock()

	for _, sub := range subs {
		sub.Unsubscribe()
	}
	e.stop()

	ctx, cancel := context.WithTimeout(context.Background(), e.cfg.RemoteTimeout)
	defer cancel()
	return e.Wait(ctx)
}

// startWorker must be called with e.mu held.
func (e *Engine) startWorker() {
	if e.active == 0 {
		e.idle = make(chan struct{})
	}
	e.active++
}

func (e *Engine) finishWorker() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.active--
	if e.active == 0 {
		close(e.idle)
	}
}

func (e *Engine) notify(notices ...Notice) {
	for _, n := range notices {
		if n.At.IsZero() {
			n.At = e.now()
		}
		e.notifier.Notify(n)
	}
}

func (e *Engine) localContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), localTimeout)
}
