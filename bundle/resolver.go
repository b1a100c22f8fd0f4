// Package bundle flattens packs into their constituent products and derives
// pack availability and pricing from the catalog.
//
// Every traversal threads a visited set keyed by pack id, so a malformed
// catalog with missing or cyclic references still terminates.
package bundle

import (
	"sort"

	"go-storefront/models"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Catalog is an immutable snapshot of products and packs indexed by id.
type Catalog struct {
	products map[int]models.Product
	packs    map[int]models.Pack
	order    []int
}

// NewCatalog indexes the given products and packs. Later duplicates win.
func NewCatalog(products []models.Product, packs []models.Pack) *Catalog {
	c := &Catalog{
		products: make(map[int]models.Product, len(products)),
		packs:    make(map[int]models.Pack, len(packs)),
		order:    make([]int, 0, len(packs)),
	}
	for _, p := range products {
		c.products[p.ID] = p
	}
	for _, p := range packs {
		if _, seen := c.packs[p.ID]; !seen {
			c.order = append(c.order, p.ID)
		}
		c.packs[p.ID] = p
	}
	return c
}

// Product looks up a product by id.
func (c *Catalog) Product(id int) (models.Product, bool) {
	p, ok := c.products[id]
	return p, ok
}

// Pack looks up a pack by id.
func (c *Catalog) Pack(id int) (models.Pack, bool) {
	p, ok := c.packs[id]
	return p, ok
}

// Packs returns the packs in the order they were indexed.
func (c *Catalog) Packs() []models.Pack {
	out := make([]models.Pack, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.packs[id])
	}
	return out
}

// ResolveMembers returns the sorted, duplicate-free ids of every product the
// pack includes directly or through sub-packs. Sub-packs missing from the
// catalog are skipped.
func (c *Catalog) ResolveMembers(pack models.Pack) []int {
	members := make(map[int]struct{})
	visited := map[int]bool{pack.ID: true}
	c.collect(pack, visited, members)

	ids := make([]int, 0, len(members))
	for id := range members {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func (c *Catalog) collect(pack models.Pack, visited map[int]bool, members map[int]struct{}) {
	for _, id := range pack.IncludedProductIDs {
		members[id] = struct{}{}
	}
	for _, subID := range pack.IncludedPackIDs {
		if visited[subID] {
			continue
		}
		visited[subID] = true
		sub, ok := c.packs[subID]
		if !ok {
			continue
		}
		c.collect(sub, visited, members)
	}
}

// IsAvailable reports whether every product the pack resolves to is in
// stock. A product id missing from the catalog counts as out of stock. A
// pack with no members is available.
func (c *Catalog) IsAvailable(pack models.Pack) bool {
	for _, id := range c.ResolveMembers(pack) {
		p, ok := c.products[id]
		if !ok || !p.Purchasable() {
			return false
		}
	}
	return true
}

// DerivePrice computes the pack's pre-discount base price and its final
// price. The base is the sum of the reference price of each directly
// included product plus the base price of each included sub-pack; the final
// price applies the pack's discount and is rounded to the millime.
func (c *Catalog) DerivePrice(pack models.Pack) (original, final decimal.Decimal) {
	original = c.basePrice(pack, map[int]bool{pack.ID: true})
	final = applyDiscount(original, pack.Discount)
	return original, final
}

// basePrice walks inclusions rather than the member set: a product reached
// through two different sub-packs is priced twice. path holds the packs on
// the current recursion branch, so a cyclic reference contributes nothing.
func (c *Catalog) basePrice(pack models.Pack, path map[int]bool) decimal.Decimal {
	total := decimal.Zero
	for _, id := range pack.IncludedProductIDs {
		if p, ok := c.products[id]; ok {
			total = total.Add(p.ReferencePrice())
		}
	}
	for _, subID := range pack.IncludedPackIDs {
		if path[subID] {
			continue
		}
		sub, ok := c.packs[subID]
		if !ok {
			continue
		}
		path[subID] = true
		total = total.Add(c.basePrice(sub, path))
		delete(path, subID)
	}
	return total
}

func applyDiscount(base, discount decimal.Decimal) decimal.Decimal {
	if discount.IsZero() {
		return base.Round(3)
	}
	factor := decimal.NewFromInt(1).Sub(discount.Div(hundred))
	return base.Mul(factor).Round(3)
}

// Reprice returns a copy of every pack with Price and OriginalPrice derived
// from the current catalog, plus the ids of packs whose prices changed.
func (c *Catalog) Reprice() ([]models.Pack, []int) {
	packs := c.Packs()
	var changed []int
	for i, p := range packs {
		original, final := c.DerivePrice(p)
		if !original.Equal(p.OriginalPrice) || !final.Equal(p.Price) {
			changed = append(changed, p.ID)
		}
		packs[i].OriginalPrice = original
		packs[i].Price = final
	}
	return packs, changed
}

// ResolveMembers flattens pack against the given pack catalog.
func ResolveMembers(pack models.Pack, packs []models.Pack) []int {
	return NewCatalog(nil, packs).ResolveMembers(pack)
}

// IsAvailable reports pack availability against the given catalog.
func IsAvailable(pack models.Pack, products []models.Product, packs []models.Pack) bool {
	return NewCatalog(products, packs).IsAvailable(pack)
}
