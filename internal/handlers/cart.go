package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"farmersupply/internal/cart"
)

type addToCartRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  *int   `json:"quantity"`
	Version   *int64 `json:"version"`
}

type updateCartRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  *int   `json:"quantity" binding:"required"`
	Version   *int64 `json:"version"`
}

type removeFromCartRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Version   *int64 `json:"version"`
}

type clearCartRequest struct {
	Version *int64 `json:"version"`
}

func GetCart(carts *cart.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/cart"
		defer handlePanic(c, route)

		caller, ok := requireCaller(c, route)
		if !ok {
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		view, err := carts.Get(ctx, caller)
		if err != nil {
			respondAppError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, view)
	}
}

func AddToCart(carts *cart.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/cart/add"
		defer handlePanic(c, route)

		caller, ok := requireCaller(c, route)
		if !ok {
			return
		}

		var req addToCartRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, route, err)
			return
		}
		productID, ok := parseObjectID(c, route, req.ProductID, "productId")
		if !ok {
			return
		}
		version, ok := expectedVersion(c, route, req.Version)
		if !ok {
			return
		}

		quantity := 0
		if req.Quantity != nil {
			quantity = *req.Quantity
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		view, err := carts.AddItem(ctx, caller, productID, quantity, version)
		if err != nil {
			respondAppError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, view)
	}
}

func UpdateCartItem(carts *cart.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /api/cart/update"
		defer handlePanic(c, route)

		caller, ok := requireCaller(c, route)
		if !ok {
			return
		}

		var req updateCartRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, route, err)
			return
		}
		productID, ok := parseObjectID(c, route, req.ProductID, "productId")
		if !ok {
			return
		}
		version, ok := expectedVersion(c, route, req.Version)
		if !ok {
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		view, err := carts.SetQuantity(ctx, caller, productID, *req.Quantity, version)
		if err != nil {
			respondAppError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, view)
	}
}

func RemoveFromCart(carts *cart.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /api/cart/remove"
		defer handlePanic(c, route)

		caller, ok := requireCaller(c, route)
		if !ok {
			return
		}

		var req removeFromCartRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, route, err)
			return
		}
		productID, ok := parseObjectID(c, route, req.ProductID, "productId")
		if !ok {
			return
		}
		version, ok := expectedVersion(c, route, req.Version)
		if !ok {
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		view, err := carts.RemoveItem(ctx, caller, productID, version)
		if err != nil {
			respondAppError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, view)
	}
}

func ClearCart(carts *cart.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /api/cart/clear"
		defer handlePanic(c, route)

		caller, ok := requireCaller(c, route)
		if !ok {
			return
		}

		var req clearCartRequest
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindWith(&req, binding.JSON); err != nil {
				respondValidationError(c, route, err)
				return
			}
		}
		version, ok := expectedVersion(c, route, req.Version)
		if !ok {
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		view, err := carts.Clear(ctx, caller, version)
		if err != nil {
			respondAppError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, view)
	}
}
