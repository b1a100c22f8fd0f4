package cart

import (
	"go-storefront/bundle"
	"go-storefront/models"

	"github.com/shopspring/decimal"
)

// StaleLine reports a cart line whose price snapshot no longer matches the
// catalog, or whose product or pack is gone.
type StaleLine struct {
	Key           string          `json:"key"`
	SnapshotPrice decimal.Decimal `json:"snapshotPrice"`
	CurrentPrice  decimal.Decimal `json:"currentPrice"`
	Unavailable   bool            `json:"unavailable"`
}

// StaleLines compares every line against the catalog.
func (s *Store) StaleLines(catalog *bundle.Catalog) []StaleLine {
	var stale []StaleLine
	for _, line := range s.lines {
		current, ok := currentItem(catalog, line.Item)
		if !ok {
			stale = append(stale, StaleLine{Key: line.Key, SnapshotPrice: line.UnitPrice, Unavailable: true})
			continue
		}
		if !current.UnitPrice().Equal(line.UnitPrice) {
			stale = append(stale, StaleLine{Key: line.Key, SnapshotPrice: line.UnitPrice, CurrentPrice: current.UnitPrice()})
		}
	}
	return stale
}

// Refresh rewrites the price snapshots of lines whose item still exists in
// the catalog. Lines whose item vanished are left as they are. It returns
// the number of lines updated.
func (s *Store) Refresh(catalog *bundle.Catalog) int {
	updated := 0
	for i, line := range s.lines {
		current, ok := currentItem(catalog, line.Item)
		if !ok || current.UnitPrice().Equal(line.UnitPrice) {
			continue
		}
		s.lines[i].Name = current.Name()
		s.lines[i].UnitPrice = current.UnitPrice()
		s.lines[i].OriginalUnitPrice = current.OriginalUnitPrice()
		s.lines[i].Image = current.Image()
		s.lines[i].Item = current
		updated++
	}
	if updated > 0 {
		s.persist()
	}
	return updated
}

func currentItem(catalog *bundle.Catalog, item models.CartItem) (models.CartItem, bool) {
	switch item.Kind {
	case models.ItemKindProduct:
		if p, ok := catalog.Product(item.ID()); ok {
			return models.ProductItem(p), true
		}
	case models.ItemKindPack:
		if p, ok := catalog.Pack(item.ID()); ok {
			return models.PackItem(p), true
		}
	}
	return models.CartItem{}, false
}
