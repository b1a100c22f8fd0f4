package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"go-storefront/bundle"
	"go-storefront/models"
	"go-storefront/storage"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// CatalogStore is the catalog persistence used by the HTTP layer.
type CatalogStore interface {
	GetProducts(ctx context.Context) ([]models.Product, error)
	GetProduct(ctx context.Context, id int) (models.Product, error)
	GetPacks(ctx context.Context) ([]models.Pack, error)
	GetPack(ctx context.Context, id int) (models.Pack, error)
	GetCategories(ctx context.Context) ([]models.Category, error)
	GetStores(ctx context.Context) ([]models.Store, error)
	CreateProduct(ctx context.Context, p models.Product) (models.Product, error)
	UpdateProduct(ctx context.Context, p models.Product) error
	DeleteProduct(ctx context.Context, id int) error
	SavePack(ctx context.Context, p models.Pack) (models.Pack, error)
	DeletePack(ctx context.Context, id int) error
}

// loadCatalog snapshots products and packs for the bundle resolver.
func loadCatalog(ctx context.Context, store CatalogStore) (*bundle.Catalog, error) {
	products, err := store.GetProducts(ctx)
	if err != nil {
		return nil, err
	}
	packs, err := store.GetPacks(ctx)
	if err != nil {
		return nil, err
	}
	return bundle.NewCatalog(products, packs), nil
}

// ProductController handles catalog reads and the admin catalog endpoints
type ProductController struct {
	Store  CatalogStore
	logger *slog.Logger
}

// NewProductController creates a new ProductController
func NewProductController(store CatalogStore, logger *slog.Logger) *ProductController {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProductController{Store: store, logger: logger}
}

// PackView is a pack with its resolved members and availability.
type PackView struct {
	models.Pack
	Available bool  `json:"available"`
	Members   []int `json:"members"`
}

func packView(catalog *bundle.Catalog, p models.Pack) PackView {
	return PackView{Pack: p, Available: catalog.IsAvailable(p), Members: catalog.ResolveMembers(p)}
}

// GetProducts retrieves all products
func (pc *ProductController) GetProducts(w http.ResponseWriter, r *http.Request) {
	products, err := pc.Store.GetProducts(r.Context())
	if err != nil {
		pc.logger.Error("Failed to load products", slog.String("error", err.Error()))
		http.Error(w, "Error fetching products", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

// GetProductByID retrieves a single product
func (pc *ProductController) GetProductByID(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		http.Error(w, "Invalid product ID", http.StatusBadRequest)
		return
	}
	product, err := pc.Store.GetProduct(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		http.Error(w, "Product not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Error fetching product", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

// GetPacks lists every pack with its availability.
func (pc *ProductController) GetPacks(w http.ResponseWriter, r *http.Request) {
	catalog, err := loadCatalog(r.Context(), pc.Store)
	if err != nil {
		pc.logger.Error("Failed to load catalog", slog.String("error", err.Error()))
		http.Error(w, "Error fetching packs", http.StatusInternalServerError)
		return
	}
	views := make([]PackView, 0, len(catalog.Packs()))
	for _, p := range catalog.Packs() {
		views = append(views, packView(catalog, p))
	}
	writeJSON(w, http.StatusOK, views)
}

func (pc *ProductController) GetPackByID(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		http.Error(w, "Invalid pack ID", http.StatusBadRequest)
		return
	}
	catalog, err := loadCatalog(r.Context(), pc.Store)
	if err != nil {
		http.Error(w, "Error fetching pack", http.StatusInternalServerError)
		return
	}
	pack, ok := catalog.Pack(id)
	if !ok {
		http.Error(w, "Pack not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, packView(catalog, pack))
}

func (pc *ProductController) GetCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := pc.Store.GetCategories(r.Context())
	if err != nil {
		http.Error(w, "Error fetching categories", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

func (pc *ProductController) GetStores(w http.ResponseWriter, r *http.Request) {
	stores, err := pc.Store.GetStores(r.Context())
	if err != nil {
		http.Error(w, "Error fetching stores", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, stores)
}

// CreateProduct handles adding a new product (Admin only)
func (pc *ProductController) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var product models.Product
	if err := json.NewDecoder(r.Body).Decode(&product); err != nil {
		http.Error(w, "Invalid input", http.StatusBadRequest)
		return
	}
	if err := product.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	created, err := pc.Store.CreateProduct(r.Context(), product)
	if err != nil {
		pc.logger.Error("Failed to create product", slog.String("error", err.Error()))
		http.Error(w, "Error creating product", http.StatusInternalServerError)
		return
	}
	pc.reprice(r.Context())
	writeJSON(w, http.StatusCreated, created)
}

// UpdateProduct handles updating a product (Admin only)
func (pc *ProductController) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		http.Error(w, "Invalid product ID", http.StatusBadRequest)
		return
	}
	var product models.Product
	if err := json.NewDecoder(r.Body).Decode(&product); err != nil {
		http.Error(w, "Invalid input", http.StatusBadRequest)
		return
	}
	product.ID = id
	if err := product.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := pc.Store.UpdateProduct(r.Context(), product); err != nil {
		writeError(w, err, "Error updating product")
		return
	}
	pc.reprice(r.Context())
	writeJSON(w, http.StatusOK, product)
}

// DeleteProduct handles deleting a product (Admin only)
func (pc *ProductController) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		http.Error(w, "Invalid product ID", http.StatusBadRequest)
		return
	}
	if err := pc.Store.DeleteProduct(r.Context(), id); err != nil {
		writeError(w, err, "Error deleting product")
		return
	}
	pc.reprice(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// CreatePack stores a new pack with its derived prices.
func (pc *ProductController) CreatePack(w http.ResponseWriter, r *http.Request) {
	var pack models.Pack
	if err := json.NewDecoder(r.Body).Decode(&pack); err != nil {
		http.Error(w, "Invalid input", http.StatusBadRequest)
		return
	}
	pack.ID = 0
	pc.savePack(w, r, pack, http.StatusCreated)
}

func (pc *ProductController) UpdatePack(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		http.Error(w, "Invalid pack ID", http.StatusBadRequest)
		return
	}
	var pack models.Pack
	if err := json.NewDecoder(r.Body).Decode(&pack); err != nil {
		http.Error(w, "Invalid input", http.StatusBadRequest)
		return
	}
	if _, err := pc.Store.GetPack(r.Context(), id); err != nil {
		writeError(w, err, "Error updating pack")
		return
	}
	pack.ID = id
	pc.savePack(w, r, pack, http.StatusOK)
}

func (pc *ProductController) savePack(w http.ResponseWriter, r *http.Request, pack models.Pack, status int) {
	if pack.Name == "" {
		http.Error(w, "Pack name is required", http.StatusBadRequest)
		return
	}
	if pack.Discount.IsNegative() || pack.Discount.GreaterThan(hundred) {
		http.Error(w, "Pack discount must be between 0 and 100", http.StatusBadRequest)
		return
	}
	saved, err := pc.Store.SavePack(r.Context(), pack)
	if err != nil {
		pc.logger.Error("Failed to save pack", slog.String("error", err.Error()))
		http.Error(w, "Error saving pack", http.StatusInternalServerError)
		return
	}
	// Derived prices depend on the rest of the graph, so the whole catalog
	// is repriced and the stored pack re-read.
	pc.reprice(r.Context())
	if fresh, err := pc.Store.GetPack(r.Context(), saved.ID); err == nil {
		saved = fresh
	}
	writeJSON(w, status, saved)
}

func (pc *ProductController) DeletePack(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		http.Error(w, "Invalid pack ID", http.StatusBadRequest)
		return
	}
	if err := pc.Store.DeletePack(r.Context(), id); err != nil {
		writeError(w, err, "Error deleting pack")
		return
	}
	pc.reprice(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// GetPackIntegrity reports packs with dangling references or cycles.
func (pc *ProductController) GetPackIntegrity(w http.ResponseWriter, r *http.Request) {
	catalog, err := loadCatalog(r.Context(), pc.Store)
	if err != nil {
		http.Error(w, "Error fetching catalog", http.StatusInternalServerError)
		return
	}
	issues := catalog.Integrity()
	if issues == nil {
		issues = []bundle.Issue{}
	}
	writeJSON(w, http.StatusOK, issues)
}

// reprice recomputes every pack's derived prices and stores those that
// changed. The triggering write has already succeeded, so failures are
// logged rather than returned.
func (pc *ProductController) reprice(ctx context.Context) {
	if err := pc.repriceAll(ctx); err != nil {
		pc.logger.Error("Failed to reprice packs", slog.String("error", err.Error()))
	}
}

func (pc *ProductController) repriceAll(ctx context.Context) error {
	catalog, err := loadCatalog(ctx, pc.Store)
	if err != nil {
		return err
	}
	packs, changed := catalog.Reprice()
	byID := make(map[int]models.Pack, len(packs))
	for _, p := range packs {
		byID[p.ID] = p
	}
	for _, id := range changed {
		if _, err := pc.Store.SavePack(ctx, byID[id]); err != nil {
			return fmt.Errorf("save pack %d: %w", id, err)
		}
	}
	if len(changed) > 0 {
		pc.logger.Info("Repriced packs", slog.Int("count", len(changed)))
	}
	return nil
}
