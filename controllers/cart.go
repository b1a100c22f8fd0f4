package controllers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"go-storefront/cart"
	"go-storefront/metrics"
	"go-storefront/models"
	"go-storefront/storage"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
)

// CartController handles cart-related requests
type CartController struct {
	Sessions *SessionRegistry
	Catalog  CatalogStore
	logger   *slog.Logger
}

// NewCartController creates a new CartController
func NewCartController(sessions *SessionRegistry, catalog CatalogStore, logger *slog.Logger) *CartController {
	if logger == nil {
		logger = slog.Default()
	}
	return &CartController{Sessions: sessions, Catalog: catalog, logger: logger}
}

// CartView is the cart as returned to the shopper. Stale lists lines whose
// price or availability changed since they were added.
type CartView struct {
	Lines   []models.CartLine `json:"lines"`
	Count   int               `json:"count"`
	Total   decimal.Decimal   `json:"total"`
	Savings decimal.Decimal   `json:"savings"`
	Stale   []cart.StaleLine  `json:"stale,omitempty"`
}

type addItemRequest struct {
	Kind     models.ItemKind `json:"kind"`
	ID       int             `json:"id"`
	Quantity int             `json:"quantity"`
}

type quantityRequest struct {
	Quantity int `json:"quantity"`
}

func (cc *CartController) view(r *http.Request, c *cart.Store) CartView {
	v := CartView{Lines: c.Lines(), Count: c.Count(), Total: c.Total(), Savings: c.Savings()}
	if c.IsEmpty() {
		return v
	}
	catalog, err := loadCatalog(r.Context(), cc.Catalog)
	if err != nil {
		cc.logger.Warn("Skipping stale price check", slog.String("error", err.Error()))
		return v
	}
	v.Stale = c.StaleLines(catalog)
	return v
}

// GetCart retrieves the session's cart
func (cc *CartController) GetCart(w http.ResponseWriter, r *http.Request) {
	sh, release := cc.Sessions.Acquire(r)
	defer release()
	writeJSON(w, http.StatusOK, cc.view(r, sh.Cart))
}

// AddToCart adds a product or a pack to the session's cart
func (cc *CartController) AddToCart(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid input", http.StatusBadRequest)
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	if req.Quantity < 0 {
		http.Error(w, cart.ErrInvalidQuantity.Error(), http.StatusBadRequest)
		return
	}

	var item models.CartItem
	switch req.Kind {
	case models.ItemKindProduct:
		product, err := cc.Catalog.GetProduct(r.Context(), req.ID)
		if errors.Is(err, storage.ErrNotFound) {
			http.Error(w, "Product not found", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, "Error fetching product", http.StatusInternalServerError)
			return
		}
		if !product.Purchasable() {
			http.Error(w, "Product is out of stock", http.StatusConflict)
			return
		}
		item = models.ProductItem(product)
	case models.ItemKindPack:
		catalog, err := loadCatalog(r.Context(), cc.Catalog)
		if err != nil {
			http.Error(w, "Error fetching pack", http.StatusInternalServerError)
			return
		}
		pack, ok := catalog.Pack(req.ID)
		if !ok {
			http.Error(w, "Pack not found", http.StatusNotFound)
			return
		}
		if !catalog.IsAvailable(pack) {
			http.Error(w, "Pack is not available", http.StatusConflict)
			return
		}
		item = models.PackItem(pack)
	default:
		http.Error(w, "Unknown item kind", http.StatusBadRequest)
		return
	}

	sh, release := cc.Sessions.Acquire(r)
	defer release()
	if _, err := sh.Cart.Add(item, req.Quantity); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	metrics.CartMutations.WithLabelValues("add").Inc()
	writeJSON(w, http.StatusOK, cc.view(r, sh.Cart))
}

// UpdateQuantity sets a line's quantity; zero removes the line.
func (cc *CartController) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	var req quantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Quantity < 0 {
		http.Error(w, "Invalid input", http.StatusBadRequest)
		return
	}

	sh, release := cc.Sessions.Acquire(r)
	defer release()
	if !sh.Cart.SetQuantity(mux.Vars(r)["key"], req.Quantity) {
		http.Error(w, "Item not in cart", http.StatusNotFound)
		return
	}
	metrics.CartMutations.WithLabelValues("set_quantity").Inc()
	writeJSON(w, http.StatusOK, cc.view(r, sh.Cart))
}

// RemoveFromCart removes a line from the session's cart
func (cc *CartController) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	sh, release := cc.Sessions.Acquire(r)
	defer release()
	if !sh.Cart.Remove(mux.Vars(r)["key"]) {
		http.Error(w, "Item not in cart", http.StatusNotFound)
		return
	}
	metrics.CartMutations.WithLabelValues("remove").Inc()
	writeJSON(w, http.StatusOK, cc.view(r, sh.Cart))
}

// RefreshCart moves stale lines to the catalog's current prices. Orders are
// only accepted at current prices.
func (cc *CartController) RefreshCart(w http.ResponseWriter, r *http.Request) {
	catalog, err := loadCatalog(r.Context(), cc.Catalog)
	if err != nil {
		http.Error(w, "Error fetching catalog", http.StatusInternalServerError)
		return
	}
	sh, release := cc.Sessions.Acquire(r)
	defer release()
	if n := sh.Cart.Refresh(catalog); n > 0 {
		metrics.CartMutations.WithLabelValues("refresh").Inc()
	}
	writeJSON(w, http.StatusOK, cc.view(r, sh.Cart))
}

func (cc *CartController) ClearCart(w http.ResponseWriter, r *http.Request) {
	sh, release := cc.Sessions.Acquire(r)
	defer release()
	sh.Cart.Clear()
	metrics.CartMutations.WithLabelValues("clear").Inc()
	w.WriteHeader(http.StatusNoContent)
}
