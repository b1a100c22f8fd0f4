package orders

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go-storefront/models"
	"go-storefront/storage"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCatalog struct {
	mu         sync.Mutex
	products   map[int]models.Product
	packs      []models.Pack
	reserveErr error
}

func newFakeCatalog(products []models.Product, packs []models.Pack) *fakeCatalog {
	c := &fakeCatalog{products: make(map[int]models.Product), packs: packs}
	for _, p := range products {
		c.products[p.ID] = p
	}
	return c
}

func (c *fakeCatalog) GetProducts(context.Context) ([]models.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.Product, 0, len(c.products))
	for _, p := range c.products {
		out = append(out, p)
	}
	return out, nil
}

func (c *fakeCatalog) GetPacks(context.Context) ([]models.Pack, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.packs, nil
}

func (c *fakeCatalog) setPacks(packs []models.Pack) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.packs = packs
}

func (c *fakeCatalog) ReserveStock(_ context.Context, units map[int]int) error {
	if c.reserveErr != nil {
		return c.reserveErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, n := range units {
		p := c.products[id]
		p.Quantity -= n
		c.products[id] = p
	}
	return nil
}

func (c *fakeCatalog) ReleaseStock(_ context.Context, units map[int]int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, n := range units {
		p := c.products[id]
		p.Quantity += n
		c.products[id] = p
	}
	return nil
}

func (c *fakeCatalog) stock(id int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.products[id].Quantity
}

type fakeRepo struct {
	mu        sync.Mutex
	orders    map[string]models.Order
	insertErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{orders: make(map[string]models.Order)}
}

func (r *fakeRepo) Insert(_ context.Context, order models.Order) error {
	if r.insertErr != nil {
		return r.insertErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders[order.ID] = order
	return nil
}

func (r *fakeRepo) Get(_ context.Context, id string) (models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return models.Order{}, storage.ErrNotFound
	}
	return o, nil
}

func (r *fakeRepo) ListByEmail(_ context.Context, email string) ([]models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Order
	for _, o := range r.orders {
		if o.Customer.Email == email {
			out = append(out, o)
		}
	}
	return out, nil
}

func (r *fakeRepo) UpdateStatus(_ context.Context, id, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return storage.ErrNotFound
	}
	o.Status = status
	r.orders[id] = o
	return nil
}

func (r *fakeRepo) TransitionStatus(_ context.Context, id, from, to string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok || o.Status != from {
		return false, nil
	}
	o.Status = to
	r.orders[id] = o
	return true, nil
}

// gatedRepo holds the first two Get calls until both have arrived, so two
// payment returns read the same pending order before either writes.
type gatedRepo struct {
	*fakeRepo
	calls   atomic.Int32
	arrived chan struct{}
	proceed chan struct{}
}

func (r *gatedRepo) Get(ctx context.Context, id string) (models.Order, error) {
	if r.calls.Add(1) <= 2 {
		r.arrived <- struct{}{}
		<-r.proceed
	}
	return r.fakeRepo.Get(ctx, id)
}

type fakeNotifier struct {
	sent chan models.Order
}

func (n *fakeNotifier) SendOrderConfirmation(order models.Order) error {
	n.sent <- order
	return nil
}

func testCatalog() *fakeCatalog {
	return newFakeCatalog(
		[]models.Product{
			{ID: 1, Name: "Keyboard", Price: decimal.NewFromInt(90), Quantity: 5},
			{ID: 2, Name: "Mouse", Price: decimal.NewFromInt(40), Quantity: 1},
			{ID: 3, Name: "Headset", Price: decimal.NewFromInt(60), Quantity: 4},
		},
		[]models.Pack{
			{ID: 10, Name: "Desk set", IncludedProductIDs: []int{1, 2}, Price: decimal.NewFromInt(117)},
			{ID: 11, Name: "Broken set", IncludedProductIDs: []int{1, 99}, Price: decimal.NewFromInt(81)},
		},
	)
}

func keyboard(qty int) models.OrderItem {
	return models.OrderItem{Kind: models.ItemKindProduct, ProductID: 1, Name: "Keyboard", Quantity: qty, UnitPrice: decimal.NewFromInt(90)}
}

func mouse(qty int) models.OrderItem {
	return models.OrderItem{Kind: models.ItemKindProduct, ProductID: 2, Name: "Mouse", Quantity: qty, UnitPrice: decimal.NewFromInt(40)}
}

func deskSet(qty int) models.OrderItem {
	return models.OrderItem{Kind: models.ItemKindPack, ProductID: 10, Name: "Desk set", Quantity: qty, UnitPrice: decimal.NewFromInt(117)}
}

// testOrder builds a cash-on-delivery order whose amounts add up.
func testOrder(items ...models.OrderItem) models.Order {
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	shipping, stamp := decimal.NewFromInt(7), decimal.NewFromInt(1)
	return models.Order{
		ID:            "order-1",
		Customer:      models.Customer{Email: "amira@example.tn", FirstName: "Amira"},
		Items:         items,
		Subtotal:      subtotal,
		ShippingCost:  shipping,
		FiscalStamp:   stamp,
		TotalAmount:   subtotal.Add(shipping).Add(stamp),
		PaymentMethod: models.PaymentCashOnDelivery.Label(),
	}
}

func onlineOrder(items ...models.OrderItem) models.Order {
	o := testOrder(items...)
	o.PaymentMethod = models.PaymentOnline.Label()
	return o
}

func asAPIError(t *testing.T, err error) *models.APIError {
	t.Helper()
	var apiErr *models.APIError
	require.True(t, errors.As(err, &apiErr), "expected *models.APIError, got %v", err)
	return apiErr
}

func TestCreateOrderReservesStock(t *testing.T) {
	catalog := testCatalog()
	repo := newFakeRepo()
	notifier := &fakeNotifier{sent: make(chan models.Order, 1)}
	svc := NewService(catalog, repo, notifier, nil)

	created, err := svc.CreateOrder(context.Background(), testOrder(keyboard(2), deskSet(1)))
	require.NoError(t, err)

	assert.Equal(t, models.OrderStatusPending, created.Status)
	assert.False(t, created.CreatedAt.IsZero())
	assert.Equal(t, 2, catalog.stock(1))
	assert.Equal(t, 0, catalog.stock(2))

	stored, err := repo.Get(context.Background(), "order-1")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, stored.Status)
	assert.Equal(t, []models.StockUnit{{ProductID: 1, Quantity: 3}, {ProductID: 2, Quantity: 1}}, stored.Reserved)

	select {
	case sent := <-notifier.sent:
		assert.Equal(t, "order-1", sent.ID)
	case <-time.After(time.Second):
		t.Fatal("confirmation was not sent")
	}
}

func TestCreateOrderInsufficientStock(t *testing.T) {
	catalog := testCatalog()
	repo := newFakeRepo()
	svc := NewService(catalog, repo, nil, nil)

	_, err := svc.CreateOrder(context.Background(), testOrder(mouse(1), deskSet(1)))
	apiErr := asAPIError(t, err)
	assert.Equal(t, 409, apiErr.Status)
	assert.Equal(t, "Insufficient stock for product: Mouse", apiErr.Message)
	assert.Equal(t, 5, catalog.stock(1), "nothing reserved")
	assert.Empty(t, repo.orders)
}

func TestCreateOrderRejects(t *testing.T) {
	svc := NewService(testCatalog(), newFakeRepo(), nil, nil)

	cases := map[string]struct {
		order  models.Order
		status int
	}{
		"no items":      {testOrder(), 400},
		"no email":      {models.Order{Items: []models.OrderItem{keyboard(1)}}, 400},
		"zero quantity": {testOrder(keyboard(0)), 400},
		"unknown product": {testOrder(
			models.OrderItem{Kind: models.ItemKindProduct, ProductID: 404, Name: "Ghost", Quantity: 1}), 404},
		"pack with dangling member": {testOrder(
			models.OrderItem{Kind: models.ItemKindPack, ProductID: 11, Name: "Broken set", Quantity: 1, UnitPrice: decimal.NewFromInt(81)}), 404},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.CreateOrder(context.Background(), tc.order)
			assert.Equal(t, tc.status, asAPIError(t, err).Status)
		})
	}
}

func TestCreateOrderRejectsMispricedOrders(t *testing.T) {
	cheap := keyboard(5)
	cheap.UnitPrice = decimal.RequireFromString("0.001")
	cheapOrder := testOrder(cheap)
	cheapOrder.Subtotal = decimal.Zero
	cheapOrder.TotalAmount = decimal.Zero

	cheapPack := deskSet(1)
	cheapPack.UnitPrice = decimal.NewFromInt(100)

	inflatedSubtotal := testOrder(keyboard(1))
	inflatedSubtotal.Subtotal = decimal.NewFromInt(1)

	wrongTotal := testOrder(keyboard(1))
	wrongTotal.TotalAmount = decimal.NewFromInt(1)

	negativeShipping := testOrder(keyboard(1))
	negativeShipping.ShippingCost = decimal.NewFromInt(-97)
	negativeShipping.TotalAmount = decimal.NewFromInt(-6)

	cases := map[string]struct {
		order   models.Order
		status  int
		message string
	}{
		"product below catalog price": {cheapOrder, 409, "The price of Keyboard has changed, please review your cart"},
		"pack below catalog price":    {testOrder(cheapPack), 409, "The price of Desk set has changed, please review your cart"},
		"subtotal off":                {inflatedSubtotal, 400, "Order subtotal does not match its items"},
		"total off":                   {wrongTotal, 400, "Order total does not match its breakdown"},
		"negative shipping":           {negativeShipping, 400, "Order charges cannot be negative"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			catalog := testCatalog()
			repo := newFakeRepo()
			svc := NewService(catalog, repo, nil, nil)

			_, err := svc.CreateOrder(context.Background(), tc.order)
			apiErr := asAPIError(t, err)
			assert.Equal(t, tc.status, apiErr.Status)
			assert.Equal(t, tc.message, apiErr.Message)
			assert.Equal(t, 5, catalog.stock(1), "nothing reserved")
			assert.Empty(t, repo.orders)
		})
	}
}

func TestCreateOrderReservationRace(t *testing.T) {
	catalog := testCatalog()
	catalog.reserveErr = storage.ErrInsufficientStock
	svc := NewService(catalog, newFakeRepo(), nil, nil)

	_, err := svc.CreateOrder(context.Background(), testOrder(keyboard(1)))
	assert.Equal(t, 409, asAPIError(t, err).Status)
}

func TestCreateOrderInsertFailureReleasesStock(t *testing.T) {
	catalog := testCatalog()
	repo := newFakeRepo()
	repo.insertErr = errors.New("write concern")
	svc := NewService(catalog, repo, nil, nil)

	_, err := svc.CreateOrder(context.Background(), testOrder(keyboard(3)))
	require.Error(t, err)
	var apiErr *models.APIError
	assert.False(t, errors.As(err, &apiErr))
	assert.Equal(t, 5, catalog.stock(1))
}

func TestApplyPaymentReturn(t *testing.T) {
	ctx := context.Background()

	t.Run("success marks paid", func(t *testing.T) {
		catalog := testCatalog()
		svc := NewService(catalog, newFakeRepo(), nil, nil)
		_, err := svc.CreateOrder(ctx, onlineOrder(keyboard(1)))
		require.NoError(t, err)

		order, err := svc.ApplyPaymentReturn(ctx, "order-1", models.PaymentOutcomeSuccess)
		require.NoError(t, err)
		assert.Equal(t, models.OrderStatusPaid, order.Status)
		assert.Equal(t, 4, catalog.stock(1))

		order, err = svc.ApplyPaymentReturn(ctx, "order-1", models.PaymentOutcomeCancelled)
		require.NoError(t, err)
		assert.Equal(t, models.OrderStatusPaid, order.Status, "settled orders are not reopened")
		assert.Equal(t, 4, catalog.stock(1))
	})

	t.Run("cancel releases stock", func(t *testing.T) {
		catalog := testCatalog()
		svc := NewService(catalog, newFakeRepo(), nil, nil)
		_, err := svc.CreateOrder(ctx, onlineOrder(deskSet(1)))
		require.NoError(t, err)
		require.Equal(t, 0, catalog.stock(2))

		order, err := svc.ApplyPaymentReturn(ctx, "order-1", models.PaymentOutcomeCancelled)
		require.NoError(t, err)
		assert.Equal(t, models.OrderStatusCancelled, order.Status)
		assert.Equal(t, 5, catalog.stock(1))
		assert.Equal(t, 1, catalog.stock(2))
	})

	t.Run("cash on delivery orders are refused", func(t *testing.T) {
		catalog := testCatalog()
		repo := newFakeRepo()
		svc := NewService(catalog, repo, nil, nil)
		_, err := svc.CreateOrder(ctx, testOrder(keyboard(2)))
		require.NoError(t, err)

		for _, outcome := range []string{models.PaymentOutcomeSuccess, models.PaymentOutcomeCancelled} {
			_, err = svc.ApplyPaymentReturn(ctx, "order-1", outcome)
			assert.Equal(t, 409, asAPIError(t, err).Status)
		}
		stored, _ := repo.Get(ctx, "order-1")
		assert.Equal(t, models.OrderStatusPending, stored.Status)
		assert.Equal(t, 3, catalog.stock(1))
	})

	t.Run("unknown order", func(t *testing.T) {
		svc := NewService(testCatalog(), newFakeRepo(), nil, nil)
		_, err := svc.ApplyPaymentReturn(ctx, "nope", models.PaymentOutcomeSuccess)
		assert.Equal(t, 404, asAPIError(t, err).Status)
	})

	t.Run("unknown outcome", func(t *testing.T) {
		svc := NewService(testCatalog(), newFakeRepo(), nil, nil)
		_, err := svc.CreateOrder(ctx, onlineOrder(keyboard(1)))
		require.NoError(t, err)
		_, err = svc.ApplyPaymentReturn(ctx, "order-1", "maybe")
		assert.Equal(t, 400, asAPIError(t, err).Status)
	})
}

func TestApplyPaymentReturnConcurrentCancelReleasesOnce(t *testing.T) {
	ctx := context.Background()
	catalog := testCatalog()
	repo := &gatedRepo{fakeRepo: newFakeRepo(), arrived: make(chan struct{}, 2), proceed: make(chan struct{})}
	svc := NewService(catalog, repo.fakeRepo, nil, nil)
	_, err := svc.CreateOrder(ctx, onlineOrder(keyboard(2)))
	require.NoError(t, err)
	require.Equal(t, 3, catalog.stock(1))

	svc = NewService(catalog, repo, nil, nil)
	var wg sync.WaitGroup
	results := make([]models.Order, 2)
	errs := make([]error, 2)
	for i := range 2 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.ApplyPaymentReturn(ctx, "order-1", models.PaymentOutcomeCancelled)
		}(i)
	}
	<-repo.arrived
	<-repo.arrived
	close(repo.proceed)
	wg.Wait()

	for i := range 2 {
		require.NoError(t, errs[i])
		assert.Equal(t, models.OrderStatusCancelled, results[i].Status)
	}
	assert.Equal(t, 5, catalog.stock(1), "stock returned exactly once")
}

func TestCancelReleasesUnitsReservedAtCreation(t *testing.T) {
	ctx := context.Background()

	t.Run("pack membership changed", func(t *testing.T) {
		catalog := testCatalog()
		svc := NewService(catalog, newFakeRepo(), nil, nil)
		_, err := svc.CreateOrder(ctx, onlineOrder(deskSet(1)))
		require.NoError(t, err)

		catalog.setPacks([]models.Pack{{ID: 10, Name: "Desk set", IncludedProductIDs: []int{3}, Price: decimal.NewFromInt(54)}})

		_, err = svc.ApplyPaymentReturn(ctx, "order-1", models.PaymentOutcomeCancelled)
		require.NoError(t, err)
		assert.Equal(t, 5, catalog.stock(1))
		assert.Equal(t, 1, catalog.stock(2))
		assert.Equal(t, 4, catalog.stock(3), "new member untouched")
	})

	t.Run("pack deleted", func(t *testing.T) {
		catalog := testCatalog()
		svc := NewService(catalog, newFakeRepo(), nil, nil)
		_, err := svc.CreateOrder(ctx, onlineOrder(deskSet(1), keyboard(1)))
		require.NoError(t, err)
		require.Equal(t, 3, catalog.stock(1))

		catalog.setPacks(nil)

		_, err = svc.ApplyPaymentReturn(ctx, "order-1", models.PaymentOutcomeCancelled)
		require.NoError(t, err)
		assert.Equal(t, 5, catalog.stock(1))
		assert.Equal(t, 1, catalog.stock(2))
	})
}

func TestUpdateStatus(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	svc := NewService(testCatalog(), repo, nil, nil)
	_, err := svc.CreateOrder(ctx, testOrder(keyboard(1)))
	require.NoError(t, err)

	require.NoError(t, svc.UpdateStatus(ctx, "order-1", models.OrderStatusShipped))
	o, _ := svc.Get(ctx, "order-1")
	assert.Equal(t, models.OrderStatusShipped, o.Status)

	assert.Equal(t, 400, asAPIError(t, svc.UpdateStatus(ctx, "order-1", "Lost")).Status)
	assert.Equal(t, 404, asAPIError(t, svc.UpdateStatus(ctx, "missing", models.OrderStatusPaid)).Status)

	list, err := svc.ListByEmail(ctx, "amira@example.tn")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestUpdateStatusCancelReleasesPendingStock(t *testing.T) {
	ctx := context.Background()
	catalog := testCatalog()
	repo := newFakeRepo()
	svc := NewService(catalog, repo, nil, nil)
	_, err := svc.CreateOrder(ctx, testOrder(deskSet(1)))
	require.NoError(t, err)
	require.Equal(t, 4, catalog.stock(1))

	require.NoError(t, svc.UpdateStatus(ctx, "order-1", models.OrderStatusCancelled))
	assert.Equal(t, 5, catalog.stock(1))
	assert.Equal(t, 1, catalog.stock(2))

	require.NoError(t, svc.UpdateStatus(ctx, "order-1", models.OrderStatusCancelled))
	assert.Equal(t, 5, catalog.stock(1), "already cancelled")

	_, err = svc.CreateOrder(ctx, models.Order{ID: "order-2", Customer: testOrder().Customer,
		Items: []models.OrderItem{keyboard(1)}, Subtotal: decimal.NewFromInt(90), TotalAmount: decimal.NewFromInt(90)})
	require.NoError(t, err)
	require.NoError(t, svc.UpdateStatus(ctx, "order-2", models.OrderStatusShipped))
	require.NoError(t, svc.UpdateStatus(ctx, "order-2", models.OrderStatusCancelled))
	assert.Equal(t, 4, catalog.stock(1), "shipped goods are not restocked")

	assert.Equal(t, 404, asAPIError(t, svc.UpdateStatus(ctx, "missing", models.OrderStatusCancelled)).Status)
}
