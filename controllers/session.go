package controllers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"go-storefront/cart"
	"go-storefront/checkout"
	"go-storefront/compare"
	"go-storefront/middleware"
	"go-storefront/models"
)

// Shopper is the per-session state: one cart, one comparison and at most
// one checkout in progress. Handlers hold mu for the whole request.
type Shopper struct {
	mu       sync.Mutex
	Cart     *cart.Store
	Compare  *compare.Store
	Checkout *checkout.Session

	lastSeen time.Time // guarded by the registry's mu
}

// StoreLister lists the physical stores offered for pickup.
type StoreLister interface {
	GetStores(ctx context.Context) ([]models.Store, error)
}

// SessionRegistry hands out shoppers by session id and serializes the
// requests of each one. Idle shoppers are dropped by Sweep; their carts
// survive in the persister and are reloaded on the next request.
type SessionRegistry struct {
	mu        sync.Mutex
	shoppers  map[string]*Shopper
	persister cart.Persister
	stores    StoreLister
	pricing   checkout.Pricing
	logger    *slog.Logger
	now       func() time.Time
}

// NewSessionRegistry creates a registry whose carts persist through persister.
func NewSessionRegistry(persister cart.Persister, stores StoreLister, pricing checkout.Pricing, logger *slog.Logger) *SessionRegistry {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionRegistry{
		shoppers:  make(map[string]*Shopper),
		persister: persister,
		stores:    stores,
		pricing:   pricing,
		logger:    logger,
		now:       time.Now,
	}
}

// Acquire returns the locked shopper of r's session, rehydrating its cart on
// first use. The caller must call the returned release func.
func (sr *SessionRegistry) Acquire(r *http.Request) (*Shopper, func()) {
	id := middleware.SessionID(r)
	if id == "" {
		id = cart.DefaultKey
	}

	sr.mu.Lock()
	sh, ok := sr.shoppers[id]
	if !ok {
		sh = &Shopper{
			Cart:    cart.NewStore(sr.persister, id, sr.logger.With(slog.String("session", id))),
			Compare: compare.New(),
		}
		sr.shoppers[id] = sh
	}
	sh.lastSeen = sr.now()
	sr.mu.Unlock()

	sh.mu.Lock()
	return sh, sh.mu.Unlock
}

// checkoutFor returns the shopper's checkout session, starting one when there
// is none. A completed session is replaced when fresh is set, so a new
// purchase starts from step 1.
func (sr *SessionRegistry) checkoutFor(ctx context.Context, sh *Shopper, fresh bool) (*checkout.Session, error) {
	if sh.Checkout != nil && !(fresh && sh.Checkout.Completed()) {
		return sh.Checkout, nil
	}
	stores, err := sr.stores.GetStores(ctx)
	if err != nil {
		return nil, fmt.Errorf("load stores: %w", err)
	}
	sh.Checkout = checkout.NewSession(sh.Cart, stores, sr.pricing)
	return sh.Checkout, nil
}

// Len returns the number of shoppers held in memory.
func (sr *SessionRegistry) Len() int {
	sr.mu.Lock()
	defer sr.mu.Unlock()
	return len(sr.shoppers)
}

// Sweep drops shoppers not seen for idle and returns how many went. A
// shopper whose request is still in flight is kept.
func (sr *SessionRegistry) Sweep(idle time.Duration) int {
	cutoff := sr.now().Add(-idle)
	sr.mu.Lock()
	defer sr.mu.Unlock()
	evicted := 0
	for id, sh := range sr.shoppers {
		if !sh.lastSeen.Before(cutoff) || !sh.mu.TryLock() {
			continue
		}
		delete(sr.shoppers, id)
		sh.mu.Unlock()
		evicted++
	}
	return evicted
}

// Run sweeps shoppers idle for longer than idle every interval until ctx is
// done.
func (sr *SessionRegistry) Run(ctx context.Context, idle, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := sr.Sweep(idle); n > 0 {
				sr.logger.Debug("Evicted idle sessions", slog.Int("count", n))
			}
		}
	}
}
