// Package orders creates orders on behalf of checkout: it validates and
// reserves stock, persists the order and notifies the customer.
package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"go-storefront/bundle"
	"go-storefront/metrics"
	"go-storefront/models"
	"go-storefront/storage"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Catalog is the slice of the catalog store the order service needs.
type Catalog interface {
	GetProducts(ctx context.Context) ([]models.Product, error)
	GetPacks(ctx context.Context) ([]models.Pack, error)
	ReserveStock(ctx context.Context, units map[int]int) error
	ReleaseStock(ctx context.Context, units map[int]int) error
}

// Repository persists orders.
type Repository interface {
	Insert(ctx context.Context, order models.Order) error
	Get(ctx context.Context, id string) (models.Order, error)
	ListByEmail(ctx context.Context, email string) ([]models.Order, error)
	UpdateStatus(ctx context.Context, id, status string) error
	// TransitionStatus moves order id from status from to status to. It
	// reports false when the order is no longer in status from.
	TransitionStatus(ctx context.Context, id, from, to string) (bool, error)
}

// Notifier sends the order confirmation to the customer.
type Notifier interface {
	SendOrderConfirmation(order models.Order) error
}

// Service handles order creation and status changes.
type Service struct {
	catalog  Catalog
	repo     Repository
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
}

// NewService creates a Service. notifier may be nil.
func NewService(catalog Catalog, repo Repository, notifier Notifier, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		catalog:  catalog,
		repo:     repo,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

func apiError(status int, format string, args ...any) *models.APIError {
	return &models.APIError{Status: status, Message: fmt.Sprintf(format, args...)}
}

// CreateOrder checks that every product, including those inside packs, has
// enough stock, reserves it, and stores the order as pending. Failures the
// customer can act on are returned as *models.APIError.
func (s *Service) CreateOrder(ctx context.Context, order models.Order) (models.Order, error) {
	if len(order.Items) == 0 {
		metrics.OrdersRejected.WithLabelValues("empty").Inc()
		return models.Order{}, apiError(http.StatusBadRequest, "Order has no items")
	}
	if order.Customer.Email == "" {
		metrics.OrdersRejected.WithLabelValues("invalid").Inc()
		return models.Order{}, apiError(http.StatusBadRequest, "Customer email is required")
	}

	products, err := s.catalog.GetProducts(ctx)
	if err != nil {
		return models.Order{}, fmt.Errorf("load products: %w", err)
	}
	packs, err := s.catalog.GetPacks(ctx)
	if err != nil {
		return models.Order{}, fmt.Errorf("load packs: %w", err)
	}
	catalog := bundle.NewCatalog(products, packs)

	units, err := requiredUnits(catalog, order.Items)
	if err != nil {
		metrics.OrdersRejected.WithLabelValues("unknown_item").Inc()
		return models.Order{}, err
	}
	for _, id := range sortedIDs(units) {
		p, _ := catalog.Product(id)
		if p.Quantity < units[id] {
			metrics.OrdersRejected.WithLabelValues("stock").Inc()
			return models.Order{}, apiError(http.StatusConflict, "Insufficient stock for product: %s", p.Name)
		}
	}
	if err := checkPrices(catalog, order); err != nil {
		metrics.OrdersRejected.WithLabelValues("price").Inc()
		return models.Order{}, err
	}

	if err := s.catalog.ReserveStock(ctx, units); err != nil {
		if errors.Is(err, storage.ErrInsufficientStock) {
			metrics.OrdersRejected.WithLabelValues("stock").Inc()
			return models.Order{}, apiError(http.StatusConflict, "Insufficient stock, please review your cart")
		}
		return models.Order{}, fmt.Errorf("reserve stock: %w", err)
	}

	if order.ID == "" {
		order.ID = uuid.NewString()
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = s.now().UTC()
	}
	order.Status = models.OrderStatusPending
	order.Reserved = stockUnits(units)

	if err := s.repo.Insert(ctx, order); err != nil {
		if rerr := s.catalog.ReleaseStock(ctx, units); rerr != nil {
			s.logger.Error("Failed to release stock after insert failure",
				slog.String("order_id", order.ID), slog.String("error", rerr.Error()))
		}
		return models.Order{}, fmt.Errorf("store order: %w", err)
	}

	metrics.OrdersCreated.WithLabelValues(order.PaymentMethod).Inc()
	metrics.OrderTotal.Observe(order.TotalAmount.InexactFloat64())
	s.logger.Info("Order created", slog.String("order_id", order.ID), slog.String("total", order.TotalAmount.StringFixed(3)))

	if s.notifier != nil {
		go func(order models.Order) {
			if err := s.notifier.SendOrderConfirmation(order); err != nil {
				s.logger.Warn("Failed to send order confirmation",
					slog.String("order_id", order.ID), slog.String("error", err.Error()))
			}
		}(order)
	}
	return order, nil
}

// requiredUnits expands order items into units per product id. Each pack
// unit needs one unit of every product it resolves to.
func requiredUnits(catalog *bundle.Catalog, items []models.OrderItem) (map[int]int, error) {
	units := make(map[int]int)
	for _, item := range items {
		if item.Quantity < 1 {
			return nil, apiError(http.StatusBadRequest, "Invalid quantity for %s", item.Name)
		}
		switch item.Kind {
		case models.ItemKindPack:
			pack, ok := catalog.Pack(item.ProductID)
			if !ok {
				return nil, apiError(http.StatusNotFound, "Pack %s is no longer available", item.Name)
			}
			for _, id := range catalog.ResolveMembers(pack) {
				if _, ok := catalog.Product(id); !ok {
					return nil, apiError(http.StatusNotFound, "Pack %s is no longer available", pack.Name)
				}
				units[id] += item.Quantity
			}
		default:
			if _, ok := catalog.Product(item.ProductID); !ok {
				return nil, apiError(http.StatusNotFound, "Product %s is no longer available", item.Name)
			}
			units[item.ProductID] += item.Quantity
		}
	}
	return units, nil
}

// checkPrices verifies that every item is priced at the catalog's current
// selling price and that the order's amounts add up.
func checkPrices(catalog *bundle.Catalog, order models.Order) error {
	subtotal := decimal.Zero
	for _, item := range order.Items {
		var price decimal.Decimal
		if item.Kind == models.ItemKindPack {
			pack, _ := catalog.Pack(item.ProductID)
			price = pack.Price
		} else {
			product, _ := catalog.Product(item.ProductID)
			price = product.Price
		}
		if !item.UnitPrice.Equal(price) {
			return apiError(http.StatusConflict, "The price of %s has changed, please review your cart", item.Name)
		}
		subtotal = subtotal.Add(price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	if !order.Subtotal.Equal(subtotal) {
		return apiError(http.StatusBadRequest, "Order subtotal does not match its items")
	}
	if order.ShippingCost.IsNegative() || order.FiscalStamp.IsNegative() {
		return apiError(http.StatusBadRequest, "Order charges cannot be negative")
	}
	if !order.TotalAmount.Equal(subtotal.Add(order.ShippingCost).Add(order.FiscalStamp)) {
		return apiError(http.StatusBadRequest, "Order total does not match its breakdown")
	}
	return nil
}

func stockUnits(units map[int]int) []models.StockUnit {
	reserved := make([]models.StockUnit, 0, len(units))
	for _, id := range sortedIDs(units) {
		reserved = append(reserved, models.StockUnit{ProductID: id, Quantity: units[id]})
	}
	return reserved
}

// Get returns an order by id.
func (s *Service) Get(ctx context.Context, id string) (models.Order, error) {
	return s.repo.Get(ctx, id)
}

// ListByEmail returns a customer's orders.
func (s *Service) ListByEmail(ctx context.Context, email string) ([]models.Order, error) {
	return s.repo.ListByEmail(ctx, email)
}

// UpdateStatus sets an order's status. Cancelling a pending order gives its
// reserved stock back.
func (s *Service) UpdateStatus(ctx context.Context, id, status string) error {
	if !models.ValidOrderStatus(status) {
		return apiError(http.StatusBadRequest, "Invalid order status %q", status)
	}
	if status == models.OrderStatusCancelled {
		moved, err := s.repo.TransitionStatus(ctx, id, models.OrderStatusPending, status)
		if err != nil {
			return err
		}
		if moved {
			order, err := s.repo.Get(ctx, id)
			if err != nil {
				return fmt.Errorf("load cancelled order: %w", err)
			}
			s.releaseStock(ctx, order)
			return nil
		}
	}
	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apiError(http.StatusNotFound, "Order not found")
		}
		return err
	}
	return nil
}

// ApplyPaymentReturn records the provider's verdict on a pending order paid
// online. Orders that already moved past pending are left alone; when two
// returns race only the first one changes the order.
func (s *Service) ApplyPaymentReturn(ctx context.Context, orderID, outcome string) (models.Order, error) {
	var status string
	switch outcome {
	case models.PaymentOutcomeSuccess:
		status = models.OrderStatusPaid
	case models.PaymentOutcomeCancelled:
		status = models.OrderStatusCancelled
	default:
		return models.Order{}, apiError(http.StatusBadRequest, "Unknown payment outcome %q", outcome)
	}

	order, err := s.get(ctx, orderID)
	if err != nil {
		return models.Order{}, err
	}
	if order.PaymentMethod != models.PaymentOnline.Label() {
		return models.Order{}, apiError(http.StatusConflict, "Order %s is not paid online", orderID)
	}
	if order.Status != models.OrderStatusPending {
		return order, nil
	}

	moved, err := s.repo.TransitionStatus(ctx, orderID, models.OrderStatusPending, status)
	if err != nil {
		return models.Order{}, err
	}
	if !moved {
		return s.get(ctx, orderID)
	}
	order.Status = status
	if status == models.OrderStatusCancelled {
		s.releaseStock(ctx, order)
	}
	return order, nil
}

func (s *Service) get(ctx context.Context, id string) (models.Order, error) {
	order, err := s.repo.Get(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return models.Order{}, apiError(http.StatusNotFound, "Order not found")
	}
	return order, err
}

// releaseStock gives back the units recorded when order was created.
// Failures are logged; the order is already cancelled.
func (s *Service) releaseStock(ctx context.Context, order models.Order) {
	if len(order.Reserved) == 0 {
		return
	}
	units := make(map[int]int, len(order.Reserved))
	for _, u := range order.Reserved {
		units[u.ProductID] += u.Quantity
	}
	if err := s.catalog.ReleaseStock(ctx, units); err != nil {
		s.logger.Error("Failed to release stock of cancelled order",
			slog.String("order_id", order.ID), slog.String("error", err.Error()))
	}
}

func sortedIDs(units map[int]int) []int {
	ids := make([]int, 0, len(units))
	for id := range units {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
