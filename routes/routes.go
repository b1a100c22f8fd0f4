package routes

import (
	"net/http"

	"go-storefront/controllers"
	"go-storefront/middleware"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Controllers groups the handlers mounted by RegisterRoutes.
type Controllers struct {
	Products *controllers.ProductController
	Cart     *controllers.CartController
	Compare  *controllers.CompareController
	Checkout *controllers.CheckoutController
	Orders   *controllers.OrderController
}

// RegisterRoutes sets up all the routes for the application
func RegisterRoutes(router *mux.Router, c Controllers) {
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	// Catalog routes
	router.HandleFunc("/products", c.Products.GetProducts).Methods(http.MethodGet)
	router.HandleFunc("/products/{id}", c.Products.GetProductByID).Methods(http.MethodGet)
	router.HandleFunc("/packs", c.Products.GetPacks).Methods(http.MethodGet)
	router.HandleFunc("/packs/{id}", c.Products.GetPackByID).Methods(http.MethodGet)
	router.HandleFunc("/categories", c.Products.GetCategories).Methods(http.MethodGet)
	router.HandleFunc("/stores", c.Products.GetStores).Methods(http.MethodGet)

	// Session routes
	shop := router.NewRoute().Subrouter()
	shop.Use(middleware.SessionMiddleware)

	shop.HandleFunc("/cart", c.Cart.GetCart).Methods(http.MethodGet)
	shop.HandleFunc("/cart", c.Cart.ClearCart).Methods(http.MethodDelete)
	shop.HandleFunc("/cart/refresh", c.Cart.RefreshCart).Methods(http.MethodPost)
	shop.HandleFunc("/cart/items", c.Cart.AddToCart).Methods(http.MethodPost)
	shop.HandleFunc("/cart/items/{key}", c.Cart.UpdateQuantity).Methods(http.MethodPut)
	shop.HandleFunc("/cart/items/{key}", c.Cart.RemoveFromCart).Methods(http.MethodDelete)

	shop.HandleFunc("/compare", c.Compare.GetComparison).Methods(http.MethodGet)
	shop.HandleFunc("/compare", c.Compare.ClearComparison).Methods(http.MethodDelete)
	shop.HandleFunc("/compare/{productId}", c.Compare.AddToComparison).Methods(http.MethodPost)
	shop.HandleFunc("/compare/{productId}", c.Compare.RemoveFromComparison).Methods(http.MethodDelete)

	shop.HandleFunc("/checkout", c.Checkout.GetCheckout).Methods(http.MethodGet)
	shop.HandleFunc("/checkout/identity", c.Checkout.SetIdentity).Methods(http.MethodPut)
	shop.HandleFunc("/checkout/address", c.Checkout.SetAddress).Methods(http.MethodPut)
	shop.HandleFunc("/checkout/fulfillment", c.Checkout.SetFulfillment).Methods(http.MethodPut)
	shop.HandleFunc("/checkout/payment", c.Checkout.SetPayment).Methods(http.MethodPut)
	shop.HandleFunc("/checkout/advance", c.Checkout.Advance).Methods(http.MethodPost)
	shop.HandleFunc("/checkout/goto/{step}", c.Checkout.GoTo).Methods(http.MethodPost)
	shop.HandleFunc("/checkout/submit", c.Checkout.Submit).Methods(http.MethodPost)
	shop.HandleFunc("/checkout/payment-return", c.Checkout.PaymentReturn).Methods(http.MethodGet)

	// Admin routes
	admin := router.PathPrefix("/admin").Subrouter()
	admin.Use(middleware.AuthMiddleware)
	admin.Use(middleware.AdminMiddleware)
	admin.HandleFunc("/products", c.Products.CreateProduct).Methods(http.MethodPost)
	admin.HandleFunc("/products/{id}", c.Products.UpdateProduct).Methods(http.MethodPut)
	admin.HandleFunc("/products/{id}", c.Products.DeleteProduct).Methods(http.MethodDelete)
	admin.HandleFunc("/packs", c.Products.CreatePack).Methods(http.MethodPost)
	admin.HandleFunc("/packs/integrity", c.Products.GetPackIntegrity).Methods(http.MethodGet)
	admin.HandleFunc("/packs/{id}", c.Products.UpdatePack).Methods(http.MethodPut)
	admin.HandleFunc("/packs/{id}", c.Products.DeletePack).Methods(http.MethodDelete)
	admin.HandleFunc("/orders", c.Orders.CreateOrder).Methods(http.MethodPost)
	admin.HandleFunc("/orders", c.Orders.GetOrders).Methods(http.MethodGet)
	admin.HandleFunc("/orders/{id}/status", c.Orders.UpdateOrderStatus).Methods(http.MethodPut)
}
