package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"farmersupply/internal/order"
)

func GetAllOrders(orders *order.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/admin/orders"
		defer handlePanic(c, route)

		caller, ok := requireCaller(c, route)
		if !ok {
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		views, err := orders.ListAll(ctx, caller)
		if err != nil {
			respondAppError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, views)
	}
}

func AdminUpdateOrderStatus(orders *order.Service) gin.HandlerFunc {
	return updateStatusHandler(orders, "PUT /api/admin/orders/:id/status", "id")
}
