package handlers

import (
	"github.com/gin-gonic/gin"

	"farmersupply/internal/cart"
	"farmersupply/internal/identity"
	"farmersupply/internal/middleware"
	"farmersupply/internal/order"
	"farmersupply/internal/payment"
	"farmersupply/internal/store"
)

type Dependencies struct {
	Store     store.Store
	Carts     *cart.Service
	Orders    *order.Service
	Payments  *payment.Service
	JWTSecret string
}

func RegisterRoutes(r *gin.Engine, deps Dependencies) {
	auth := middleware.AuthGuard(deps.JWTSecret)
	supplierOnly := middleware.AuthGuard(deps.JWTSecret, identity.RoleSupplier)
	fulfillers := middleware.AuthGuard(deps.JWTSecret, identity.RoleAdmin, identity.RoleSupplier)

	r.GET("/", Home(deps.Store))

	api := r.Group("/api")

	products := api.Group("/products")
	{
		products.GET("", GetProducts(deps.Store, deps.Store))
		products.GET("/supplier/my-products", supplierOnly, GetSupplierProducts(deps.Store))
		products.GET("/:id", GetProduct(deps.Store))
	}

	carts := api.Group("/cart")
	carts.Use(auth)
	{
		carts.GET("", GetCart(deps.Carts))
		carts.POST("/add", AddToCart(deps.Carts))
		carts.PUT("/update", UpdateCartItem(deps.Carts))
		carts.DELETE("/remove", RemoveFromCart(deps.Carts))
		carts.DELETE("/clear", ClearCart(deps.Carts))
	}

	orders := api.Group("/orders")
	orders.Use(auth)
	{
		orders.GET("/my-orders", GetMyOrders(deps.Orders))
		orders.POST("/create", CreateOrder(deps.Orders))
		orders.GET("/supplier/my-orders", GetSupplierOrders(deps.Orders))
		orders.PATCH("/update-delivery/:orderId", fulfillers, UpdateOrderDelivery(deps.Orders))
		orders.GET("/:orderId", GetOrder(deps.Orders))
		orders.PUT("/:orderId/status", UpdateOrderStatus(deps.Orders))
	}

	admin := api.Group("/admin")
	admin.Use(middleware.AdminAuth(deps.JWTSecret))
	{
		admin.GET("/orders", GetAllOrders(deps.Orders))
		admin.PUT("/orders/:id/status", AdminUpdateOrderStatus(deps.Orders))
	}

	payments := api.Group("/payments/chapa")
	{
		payments.POST("/init", auth, InitPayment(deps.Payments))
		payments.GET("/verify/:tx_ref", auth, VerifyPayment(deps.Payments))
		payments.POST("/webhook", ChapaWebhook(deps.Payments))
	}
}
