package cart

import (
	"encoding/json"
	"errors"
	"testing"

	"go-storefront/bundle"
	"go-storefront/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memPersister struct {
	data    map[string][]byte
	loadErr error
	saveErr error
	saves   int
	deletes int
}

func newMemPersister() *memPersister {
	return &memPersister{data: make(map[string][]byte)}
}

func (m *memPersister) Load(key string) ([]byte, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return m.data[key], nil
}

func (m *memPersister) Save(key string, data []byte) error {
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.data[key] = append([]byte(nil), data...)
	return nil
}

func (m *memPersister) Delete(key string) error {
	m.deletes++
	delete(m.data, key)
	return nil
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func keyboard() models.Product {
	old := dec("100")
	return models.Product{ID: 1, Name: "Keyboard", Price: dec("90"), OldPrice: &old, Quantity: 3, Images: []string{"kb.png"}}
}

func mouse() models.Product {
	return models.Product{ID: 2, Name: "Mouse", Price: dec("40"), Quantity: 5}
}

func starterPack() models.Pack {
	return models.Pack{ID: 1, Name: "Starter", Image: "starter.png", Price: dec("117"), OriginalPrice: dec("130"), IncludedProductIDs: []int{1, 2}}
}

func TestAddMergesSameKey(t *testing.T) {
	s := NewStore(newMemPersister(), "", nil)

	_, err := s.Add(models.ProductItem(keyboard()), 2)
	require.NoError(t, err)
	line, err := s.Add(models.ProductItem(keyboard()), 3)
	require.NoError(t, err)

	assert.Equal(t, 1, s.Len())
	assert.Equal(t, 5, line.Quantity)
	assert.Equal(t, "product-1", line.Key)
}

func TestProductAndPackWithSameIDAreDistinctLines(t *testing.T) {
	s := NewStore(newMemPersister(), "", nil)

	_, err := s.Add(models.ProductItem(keyboard()), 1)
	require.NoError(t, err)
	_, err = s.Add(models.PackItem(starterPack()), 1)
	require.NoError(t, err)

	lines := s.Lines()
	require.Len(t, lines, 2)
	assert.Equal(t, "product-1", lines[0].Key)
	assert.Equal(t, "pack-1", lines[1].Key)
	assert.Equal(t, "starter.png", lines[1].Image)
}

func TestAddRejectsInvalidInput(t *testing.T) {
	s := NewStore(nil, "", nil)

	_, err := s.Add(models.ProductItem(mouse()), 0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = s.Add(models.CartItem{Kind: models.ItemKindPack}, 1)
	assert.Error(t, err)
	assert.True(t, s.IsEmpty())
}

func TestTotals(t *testing.T) {
	s := NewStore(nil, "", nil)
	_, _ = s.Add(models.ProductItem(keyboard()), 2)
	_, _ = s.Add(models.ProductItem(mouse()), 3)
	_, _ = s.Add(models.PackItem(starterPack()), 1)

	assert.Equal(t, 6, s.Count())
	assert.True(t, dec("417").Equal(s.Total()), s.Total().String())
	// keyboard (100-90)*2 + pack (130-117)*1
	assert.True(t, dec("33").Equal(s.Savings()), s.Savings().String())
}

func TestSetQuantityAndRemove(t *testing.T) {
	p := newMemPersister()
	s := NewStore(p, "", nil)
	_, _ = s.Add(models.ProductItem(keyboard()), 1)
	_, _ = s.Add(models.ProductItem(mouse()), 1)

	assert.True(t, s.SetQuantity("product-2", 4))
	line, ok := s.Line("product-2")
	require.True(t, ok)
	assert.Equal(t, 4, line.Quantity)

	assert.True(t, s.SetQuantity("product-2", 0))
	_, ok = s.Line("product-2")
	assert.False(t, ok)

	assert.False(t, s.SetQuantity("product-9", 2))
	assert.True(t, s.Remove("product-1"))
	assert.False(t, s.Remove("product-1"))
	assert.True(t, s.IsEmpty())
}

func TestPersistenceRoundTrip(t *testing.T) {
	p := newMemPersister()
	s := NewStore(p, "session-a", nil)
	_, _ = s.Add(models.ProductItem(keyboard()), 2)
	_, _ = s.Add(models.PackItem(starterPack()), 1)

	var env envelope
	require.NoError(t, json.Unmarshal(p.data["session-a"], &env))
	assert.Equal(t, SchemaVersion, env.Version)
	assert.Len(t, env.Lines, 2)

	restored := NewStore(p, "session-a", nil)
	assert.Equal(t, s.Count(), restored.Count())
	assert.True(t, s.Total().Equal(restored.Total()))
	line, ok := restored.Line("pack-1")
	require.True(t, ok)
	assert.Equal(t, models.ItemKindPack, line.Item.Kind)
	require.NotNil(t, line.Item.Pack)
	assert.Equal(t, []int{1, 2}, line.Item.Pack.IncludedProductIDs)
}

func TestRehydrateFailsSoft(t *testing.T) {
	cases := map[string][]byte{
		"garbage":        []byte("{not json"),
		"future version": []byte(`{"version":99,"lines":[{"key":"product-1","quantity":1}]}`),
		"wrong shape":    []byte(`"hello"`),
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			p := newMemPersister()
			p.data[DefaultKey] = data
			s := NewStore(p, DefaultKey, nil)
			assert.True(t, s.IsEmpty())
		})
	}

	t.Run("read error", func(t *testing.T) {
		p := newMemPersister()
		p.loadErr = errors.New("disk gone")
		s := NewStore(p, DefaultKey, nil)
		assert.True(t, s.IsEmpty())
	})
}

func TestRehydrateLegacyArray(t *testing.T) {
	p := newMemPersister()
	p.data[DefaultKey] = []byte(`[
		{"key":"product-2","name":"Mouse","unitPrice":"40","originalUnitPrice":"40","quantity":2,"item":{"kind":"product","product":{"id":2,"name":"Mouse","price":"40","quantity":5}}},
		{"key":"product-2","quantity":1},
		{"key":"product-3","quantity":0}
	]`)

	s := NewStore(p, DefaultKey, nil)
	require.Equal(t, 1, s.Len())
	assert.Equal(t, 3, s.Count())
}

func TestSaveFailureKeepsInMemoryState(t *testing.T) {
	p := newMemPersister()
	p.saveErr = errors.New("quota exceeded")
	s := NewStore(p, DefaultKey, nil)

	_, err := s.Add(models.ProductItem(mouse()), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Count())
	assert.Equal(t, 1, p.saves)
}

func TestClearDropsPersistedState(t *testing.T) {
	p := newMemPersister()
	s := NewStore(p, DefaultKey, nil)
	_, _ = s.Add(models.ProductItem(mouse()), 1)
	require.Contains(t, p.data, DefaultKey)

	s.Clear()
	assert.True(t, s.IsEmpty())
	assert.NotContains(t, p.data, DefaultKey)
	assert.Equal(t, 1, p.deletes)
	assert.True(t, NewStore(p, DefaultKey, nil).IsEmpty())
}

func TestStaleLinesAndRefresh(t *testing.T) {
	s := NewStore(newMemPersister(), "", nil)
	_, _ = s.Add(models.ProductItem(keyboard()), 1)
	_, _ = s.Add(models.ProductItem(mouse()), 1)
	_, _ = s.Add(models.PackItem(starterPack()), 1)

	cheaper := mouse()
	cheaper.Price = dec("35")
	catalog := bundle.NewCatalog([]models.Product{keyboard(), cheaper}, nil)

	stale := s.StaleLines(catalog)
	require.Len(t, stale, 2)
	assert.Equal(t, "product-2", stale[0].Key)
	assert.True(t, dec("35").Equal(stale[0].CurrentPrice))
	assert.Equal(t, "pack-1", stale[1].Key)
	assert.True(t, stale[1].Unavailable)

	assert.Equal(t, 1, s.Refresh(catalog))
	line, _ := s.Line("product-2")
	assert.True(t, dec("35").Equal(line.UnitPrice))
	assert.Len(t, s.StaleLines(catalog), 1)
}
