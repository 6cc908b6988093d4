package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	log "github.com/sirupsen/logrus"

	"farmersupply/internal/payment"
)

// paymentTimeout covers the store writes plus one gateway round trip.
const paymentTimeout = 30 * time.Second

type initPaymentRequest struct {
	OrderID         string `json:"orderId" binding:"required"`
	ShippingAddress string `json:"shippingAddress"`
	Email           string `json:"email"`
}

type webhookPayload struct {
	TxRef  string `json:"tx_ref"`
	TrxRef string `json:"trx_ref"`
	Status string `json:"status"`
}

func InitPayment(payments *payment.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/payments/chapa/init"
		defer handlePanic(c, route)

		caller, ok := requireCaller(c, route)
		if !ok {
			return
		}

		var req initPaymentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, route, err)
			return
		}
		orderID, ok := parseObjectID(c, route, req.OrderID, "orderId")
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), paymentTimeout)
		defer cancel()

		result, err := payments.Init(ctx, caller, payment.InitInput{
			OrderID:         orderID,
			ShippingAddress: req.ShippingAddress,
			Email:           req.Email,
		})
		if err != nil {
			respondAppError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success":      true,
			"checkout_url": result.CheckoutURL,
			"reference":    result.Reference,
			"orderId":      result.OrderID,
		})
	}
}

// VerifyPayment always answers 200 once the order is found; the outcome is
// in the success and paymentStatus fields.
func VerifyPayment(payments *payment.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/payments/chapa/verify/:tx_ref"
		defer handlePanic(c, route)
		noCache(c)

		caller, ok := requireCaller(c, route)
		if !ok {
			return
		}

		txRef := strings.TrimSpace(c.Param("tx_ref"))
		if txRef == "" {
			respondWithError(c, http.StatusBadRequest, route, "tx_ref is required")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), paymentTimeout)
		defer cancel()

		result, err := payments.Verify(ctx, caller, txRef)
		if err != nil {
			respondAppError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

// ChapaWebhook acknowledges every delivery so the gateway stops retrying.
// Failures are only logged.
func ChapaWebhook(payments *payment.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/payments/chapa/webhook"
		defer handleWebhookPanic(c, route)

		var payload webhookPayload
		if err := c.ShouldBindWith(&payload, binding.JSON); err != nil {
			log.WithError(err).Warnf("[%s] unreadable payload", route)
			c.JSON(http.StatusOK, gin.H{"received": true})
			return
		}

		txRef := strings.TrimSpace(payload.TxRef)
		if txRef == "" {
			txRef = strings.TrimSpace(payload.TrxRef)
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		if err := payments.HandleWebhook(ctx, txRef, payload.Status); err != nil {
			log.WithError(err).WithField("tx_ref", txRef).Warnf("[%s] webhook not applied", route)
		}
		c.JSON(http.StatusOK, gin.H{"received": true})
	}
}
