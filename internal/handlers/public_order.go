package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"farmersupply/internal/order"
)

/* =========================
   REQUEST DTOs
========================= */

type createOrderRequest struct {
	ShippingAddress string `json:"shippingAddress"`
}

type updateDeliveryRequest struct {
	IsDelivered *bool  `json:"isDelivered" binding:"required"`
	Version     *int64 `json:"version"`
}

type updateStatusRequest struct {
	Status  string `json:"status" binding:"required"`
	Version *int64 `json:"version"`
}

/* =========================
   CREATE ORDER
========================= */

func CreateOrder(orders *order.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/orders/create"
		defer handlePanic(c, route)

		caller, ok := requireCaller(c, route)
		if !ok {
			return
		}

		var req createOrderRequest
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				respondValidationError(c, route, err)
				return
			}
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		view, err := orders.CreateFromCart(ctx, caller, req.ShippingAddress)
		if err != nil {
			respondAppError(c, route, err)
			return
		}

		c.JSON(http.StatusCreated, view)
	}
}

/* =========================
   READ ORDERS
========================= */

func GetMyOrders(orders *order.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/orders/my-orders"
		defer handlePanic(c, route)

		caller, ok := requireCaller(c, route)
		if !ok {
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		views, err := orders.ListMine(ctx, caller)
		if err != nil {
			respondAppError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, views)
	}
}

func GetOrder(orders *order.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/orders/:orderId"
		defer handlePanic(c, route)

		caller, ok := requireCaller(c, route)
		if !ok {
			return
		}
		orderID, ok := parseObjectID(c, route, c.Param("orderId"), "order id")
		if !ok {
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		view, err := orders.Get(ctx, caller, orderID)
		if err != nil {
			respondAppError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, view)
	}
}

func GetSupplierOrders(orders *order.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/orders/supplier/my-orders"
		defer handlePanic(c, route)

		caller, ok := requireCaller(c, route)
		if !ok {
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		views, err := orders.ListForSupplier(ctx, caller)
		if err != nil {
			respondAppError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, views)
	}
}

/* =========================
   FULFILLMENT
========================= */

func UpdateOrderDelivery(orders *order.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PATCH /api/orders/update-delivery/:orderId"
		defer handlePanic(c, route)

		caller, ok := requireCaller(c, route)
		if !ok {
			return
		}
		orderID, ok := parseObjectID(c, route, c.Param("orderId"), "order id")
		if !ok {
			return
		}

		var req updateDeliveryRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, route, err)
			return
		}
		version, ok := expectedVersion(c, route, req.Version)
		if !ok {
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		view, err := orders.SetDelivered(ctx, caller, orderID, *req.IsDelivered, version)
		if err != nil {
			respondAppError(c, route, err)
			return
		}

		log.WithFields(log.Fields{"order": orderID.Hex(), "delivered": *req.IsDelivered}).Info("[ORDER] delivery updated")
		c.JSON(http.StatusOK, view)
	}
}

func UpdateOrderStatus(orders *order.Service) gin.HandlerFunc {
	return updateStatusHandler(orders, "PUT /api/orders/:orderId/status", "orderId")
}

func updateStatusHandler(orders *order.Service, route, param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer handlePanic(c, route)

		caller, ok := requireCaller(c, route)
		if !ok {
			return
		}
		orderID, ok := parseObjectID(c, route, c.Param(param), "order id")
		if !ok {
			return
		}

		var req updateStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, route, err)
			return
		}
		version, ok := expectedVersion(c, route, req.Version)
		if !ok {
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		view, err := orders.SetStatus(ctx, caller, orderID, req.Status, version)
		if err != nil {
			respondAppError(c, route, err)
			return
		}

		log.WithFields(log.Fields{"order": orderID.Hex(), "status": view.Status, "by": caller.ID.Hex()}).Info("[ORDER] status updated")
		c.JSON(http.StatusOK, view)
	}
}
