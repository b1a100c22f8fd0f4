package controllers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"go-storefront/models"

	"github.com/gorilla/mux"
)

// OrderService creates orders and tracks their status.
type OrderService interface {
	CreateOrder(ctx context.Context, order models.Order) (models.Order, error)
	ListByEmail(ctx context.Context, email string) ([]models.Order, error)
	UpdateStatus(ctx context.Context, id, status string) error
}

// OrderController handles order-related requests
type OrderController struct {
	Orders OrderService
	logger *slog.Logger
}

// NewOrderController creates a new OrderController
func NewOrderController(orders OrderService, logger *slog.Logger) *OrderController {
	if logger == nil {
		logger = slog.Default()
	}
	return &OrderController{Orders: orders, logger: logger}
}

// CreateOrder validates prices and stock, reserves it and stores the order as pending (Admin only)
func (oc *OrderController) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var order models.Order
	if err := json.NewDecoder(r.Body).Decode(&order); err != nil {
		http.Error(w, "Invalid input", http.StatusBadRequest)
		return
	}
	created, err := oc.Orders.CreateOrder(r.Context(), order)
	if err != nil {
		oc.logger.Error("Order creation failed", slog.String("error", err.Error()))
		writeError(w, err, "Error creating order")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// GetOrders lists a customer's orders, newest first
func (oc *OrderController) GetOrders(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.URL.Query().Get("email"))
	if email == "" {
		http.Error(w, "email is required", http.StatusBadRequest)
		return
	}
	orders, err := oc.Orders.ListByEmail(r.Context(), email)
	if err != nil {
		http.Error(w, "Error fetching orders", http.StatusInternalServerError)
		return
	}
	if orders == nil {
		orders = []models.Order{}
	}
	writeJSON(w, http.StatusOK, orders)
}

type statusRequest struct {
	Status string `json:"status"`
}

// UpdateOrderStatus sets an order's status (Admin only)
func (oc *OrderController) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid input", http.StatusBadRequest)
		return
	}
	id := mux.Vars(r)["id"]
	if err := oc.Orders.UpdateStatus(r.Context(), id, req.Status); err != nil {
		writeError(w, err, "Error updating order")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id, "status": req.Status})
}
