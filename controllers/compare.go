package controllers

import (
	"errors"
	"net/http"

	"go-storefront/compare"
	"go-storefront/models"
	"go-storefront/storage"
)

// CompareController handles the side-by-side product comparison
type CompareController struct {
	Sessions *SessionRegistry
	Catalog  CatalogStore
}

func NewCompareController(sessions *SessionRegistry, catalog CatalogStore) *CompareController {
	return &CompareController{Sessions: sessions, Catalog: catalog}
}

type compareView struct {
	Category string           `json:"category,omitempty"`
	Products []models.Product `json:"products"`
}

func viewOf(s *compare.Store) compareView {
	return compareView{Category: s.Category(), Products: s.Products()}
}

func (cc *CompareController) GetComparison(w http.ResponseWriter, r *http.Request) {
	sh, release := cc.Sessions.Acquire(r)
	defer release()
	writeJSON(w, http.StatusOK, viewOf(sh.Compare))
}

// AddToComparison admits a product if it is new, there is room, and it
// shares the category of the products already compared.
func (cc *CompareController) AddToComparison(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "productId")
	if !ok {
		http.Error(w, "Invalid product ID", http.StatusBadRequest)
		return
	}
	product, err := cc.Catalog.GetProduct(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		http.Error(w, "Product not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Error fetching product", http.StatusInternalServerError)
		return
	}

	sh, release := cc.Sessions.Acquire(r)
	defer release()
	if err := sh.Compare.Add(product); err != nil {
		writeJSON(w, http.StatusConflict, errorBody{Message: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, viewOf(sh.Compare))
}

func (cc *CompareController) RemoveFromComparison(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "productId")
	if !ok {
		http.Error(w, "Invalid product ID", http.StatusBadRequest)
		return
	}
	sh, release := cc.Sessions.Acquire(r)
	defer release()
	if !sh.Compare.Remove(id) {
		http.Error(w, "Product not in comparison", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(sh.Compare))
}

func (cc *CompareController) ClearComparison(w http.ResponseWriter, r *http.Request) {
	sh, release := cc.Sessions.Acquire(r)
	defer release()
	sh.Compare.Clear()
	w.WriteHeader(http.StatusNoContent)
}
