package checkout

import (
	"testing"

	"go-storefront/cart"
	"go-storefront/models"

	"github.com/stretchr/testify/require"
)

func testStores() []models.Store {
	return []models.Store{
		{ID: 1, Name: "Lac 2", PickupPoint: true},
		{ID: 2, Name: "Sousse", PickupPoint: false},
	}
}

func productA() models.Product {
	return models.Product{ID: 7, Name: "Product A", Price: dec("120.000"), Quantity: 10, Images: []string{"a.png"}}
}

func newTestSession(t *testing.T) (*Session, *cart.Store) {
	t.Helper()
	c := cart.NewStore(nil, "", nil)
	_, err := c.Add(models.ProductItem(productA()), 2)
	require.NoError(t, err)
	return NewSession(c, testStores(), DefaultPricing()), c
}

func fillValidForm(s *Session) {
	s.SetIdentity(Identity{Email: "amira@example.tn", FirstName: "Amira", LastName: "Ben Ali"})
	s.SetAddress(Address{Street: "12 rue de Marseille", City: "Tunis", PostalCode: "1000", Phone: "22 345 678"})
}

// walkToPayment completes steps 1-3 with carrier delivery.
func walkToPayment(t *testing.T, s *Session) {
	t.Helper()
	fillValidForm(s)
	require.NoError(t, s.Advance(StepIdentity))
	require.NoError(t, s.Advance(StepAddress))
	require.NoError(t, s.SelectFulfillment(Fulfillment{Method: FulfillmentCarrier}))
	require.NoError(t, s.Advance(StepFulfillment))
	require.Equal(t, StepPayment, s.ActiveStep())
}
