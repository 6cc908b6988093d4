package payment

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"farmersupply/internal/apperr"
	"farmersupply/internal/identity"
	"farmersupply/internal/models"
	"farmersupply/internal/store"
)

const updateRetries = 3

type Service struct {
	orders      store.OrderStore
	users       store.UserStore
	gateway     Gateway
	frontendURL string
	now         func() time.Time
}

func NewService(orders store.OrderStore, users store.UserStore, gateway Gateway, frontendURL string) *Service {
	return &Service{
		orders:      orders,
		users:       users,
		gateway:     gateway,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		now:         time.Now,
	}
}

type InitInput struct {
	OrderID         primitive.ObjectID
	ShippingAddress string
	Email           string
}

type InitResult struct {
	CheckoutURL string             `json:"checkout_url"`
	Reference   string             `json:"reference"`
	OrderID     primitive.ObjectID `json:"orderId"`
}

// Init starts a hosted checkout for one of the caller's orders. Every call
// mints a new transaction reference and stores it on the order before the
// gateway is contacted. A previous unsettled reference is cancelled first.
func (s *Service) Init(ctx context.Context, caller identity.Caller, in InitInput) (InitResult, error) {
	if !s.gateway.Configured() {
		log.Error("[PAYMENT] CHAPA_SECRET_KEY is not configured")
		return InitResult{}, apperr.New(apperr.Internal, "Payment service is not configured. Please contact support.")
	}

	order, err := s.loadOrder(ctx, in.OrderID)
	if err != nil {
		return InitResult{}, err
	}
	if !caller.Owns(order.UserID) {
		return InitResult{}, apperr.New(apperr.Forbidden, "Unauthorized access to this order")
	}
	if len(order.Items) == 0 {
		return InitResult{}, apperr.New(apperr.InvalidState, "Order has no items")
	}
	if order.IsPaid {
		return InitResult{}, apperr.New(apperr.InvalidState, "Order is already paid")
	}

	logger := log.WithFields(log.Fields{"order": order.ID.Hex(), "user": caller.ID.Hex()})

	if address := strings.TrimSpace(in.ShippingAddress); address != "" && address != order.ShippingAddress {
		order.ShippingAddress = address
		if err := s.save(ctx, &order); err != nil {
			return InitResult{}, err
		}
	}

	owner, err := s.users.GetUser(ctx, order.UserID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return InitResult{}, apperr.Wrap(apperr.Internal, err, "could not load customer")
	}

	email := firstNonEmpty(owner.Email, in.Email, caller.Email)
	if email == "" {
		return InitResult{}, apperr.New(apperr.InvalidInput, "Email address is required for payment. Please update your profile with a valid email address.")
	}
	email = NormalizeEmail(email)
	if err := ValidateEmail(email); err != nil {
		logger.WithField("email", email).Warn("[PAYMENT] email rejected before gateway call")
		return InitResult{}, err
	}

	firstName, lastName := SplitName(firstNonEmpty(owner.Name, caller.Name))

	if math.IsNaN(order.TotalAmount) || math.IsInf(order.TotalAmount, 0) || order.TotalAmount <= 0 {
		return InitResult{}, apperr.New(apperr.InvalidState, "Invalid order amount")
	}

	s.cancelPrevious(ctx, order, logger)

	order.PaymentReference = s.mintReference(order)
	if order.PaymentStatus == models.PaymentFailed {
		order.PaymentStatus = models.PaymentPending
	}
	if err := s.save(ctx, &order); err != nil {
		return InitResult{}, err
	}
	logger = logger.WithField("tx_ref", order.PaymentReference)

	returnURL := fmt.Sprintf("%s/payment-success?tx_ref=%s", s.frontendURL, url.QueryEscape(order.PaymentReference))
	req := InitRequest{
		Amount:      order.TotalAmount,
		Currency:    Currency,
		Email:       email,
		FirstName:   firstName,
		LastName:    lastName,
		TxRef:       order.PaymentReference,
		CallbackURL: returnURL,
		ReturnURL:   returnURL,
		Customization: Customization{
			Title:       PaymentTitle,
			Description: BuildDescription(itemNames(order.Items)),
		},
	}

	checkout, err := s.gateway.Initialize(ctx, req)
	if err != nil {
		logger.WithError(err).Error("[PAYMENT] initialization failed")
		return InitResult{}, translateInitError(err)
	}

	logger.WithField("amount", order.TotalAmount).Info("[PAYMENT] checkout initialized")
	return InitResult{
		CheckoutURL: checkout.URL,
		Reference:   order.PaymentReference,
		OrderID:     order.ID,
	}, nil
}

type VerifyResult struct {
	Success       bool         `json:"success"`
	Message       string       `json:"message"`
	PaymentStatus string       `json:"paymentStatus"`
	GatewayStatus string       `json:"gatewayStatus,omitempty"`
	Order         models.Order `json:"order"`
	Error         string       `json:"error,omitempty"`
}

// Verify asks the gateway for the outcome of txRef and records it on the
// order. Gateway failures are reported in the result, not as errors, so the
// client can keep polling.
func (s *Service) Verify(ctx context.Context, caller identity.Caller, txRef string) (VerifyResult, error) {
	order, err := s.orders.FindOrderByReference(ctx, txRef)
	if errors.Is(err, store.ErrNotFound) {
		return VerifyResult{}, apperr.New(apperr.NotFound, "Order not found for this payment reference")
	}
	if err != nil {
		return VerifyResult{}, apperr.Wrap(apperr.Internal, err, "could not load order")
	}
	if !caller.Owns(order.UserID) {
		return VerifyResult{}, apperr.New(apperr.Forbidden, "Unauthorized access to this order")
	}

	logger := log.WithFields(log.Fields{"order": order.ID.Hex(), "tx_ref": txRef})

	tx, err := s.gateway.Verify(ctx, txRef)
	if err != nil {
		logger.WithError(err).Warn("[PAYMENT] verification call failed")
		switch {
		case order.IsPaid:
			return VerifyResult{
				Success:       true,
				Message:       "Payment already verified",
				PaymentStatus: models.PaymentPaid,
				Order:         order,
			}, nil
		case errors.Is(err, ErrTransactionNotFound):
			return VerifyResult{
				Success:       false,
				Message:       "Payment is still being processed. Please wait a moment and try again.",
				PaymentStatus: models.PaymentPending,
				Order:         order,
			}, nil
		default:
			return VerifyResult{
				Success:       false,
				Message:       "Unable to verify payment with the payment gateway. Please check your order status.",
				PaymentStatus: paymentStatusOrPending(order),
				Order:         order,
				Error:         err.Error(),
			}, nil
		}
	}

	order, err = s.applyToken(ctx, order, tx.Status)
	if err != nil {
		return VerifyResult{}, err
	}

	result := VerifyResult{
		Success:       order.IsPaid,
		PaymentStatus: order.PaymentStatus,
		GatewayStatus: tx.Status,
		Order:         order,
	}
	switch {
	case order.IsPaid:
		result.Message = "Payment verified successfully"
	case order.PaymentStatus == models.PaymentFailed:
		result.Message = "Payment failed"
	default:
		result.Message = "Payment is pending"
	}
	logger.WithFields(log.Fields{"gatewayStatus": tx.Status, "paymentStatus": order.PaymentStatus}).Info("[PAYMENT] verification applied")
	return result, nil
}

// HandleWebhook applies a gateway callback. Only terminal tokens change the
// order; anything else is ignored.
func (s *Service) HandleWebhook(ctx context.Context, txRef, status string) error {
	status = strings.ToLower(strings.TrimSpace(status))
	logger := log.WithFields(log.Fields{"tx_ref": txRef, "status": status})

	if txRef == "" {
		logger.Warn("[PAYMENT] webhook without tx_ref")
		return apperr.New(apperr.InvalidInput, "tx_ref is required")
	}
	if status != "success" && status != "successful" && status != "failed" {
		logger.Info("[PAYMENT] webhook status ignored")
		return nil
	}

	order, err := s.orders.FindOrderByReference(ctx, txRef)
	if errors.Is(err, store.ErrNotFound) {
		logger.Warn("[PAYMENT] webhook for unknown reference")
		return apperr.New(apperr.NotFound, "Order not found for this payment reference")
	}
	if err != nil {
		return apperr.Wrap(apperr.Internal, err, "could not load order")
	}

	order, err = s.applyToken(ctx, order, status)
	if err != nil {
		logger.WithError(err).Error("[PAYMENT] webhook update failed")
		return err
	}
	logger.WithField("paymentStatus", order.PaymentStatus).Info("[PAYMENT] webhook applied")
	return nil
}

// applyToken folds a status token into the order, reloading and reapplying
// when a concurrent writer got there first.
func (s *Service) applyToken(ctx context.Context, order models.Order, token string) (models.Order, error) {
	for attempt := 1; ; attempt++ {
		now := s.now()
		if !order.ApplyPaymentToken(token, now) {
			return order, nil
		}
		order.UpdatedAt = now

		err := s.orders.UpdateOrder(ctx, &order)
		if err == nil {
			return order, nil
		}
		if !errors.Is(err, store.ErrConflict) {
			return models.Order{}, apperr.Wrap(apperr.Internal, err, "could not update order")
		}
		if attempt == updateRetries {
			return models.Order{}, apperr.Wrap(apperr.Conflict, err, "order was modified concurrently, retry verification")
		}

		order, err = s.orders.GetOrder(ctx, order.ID)
		if err != nil {
			return models.Order{}, apperr.Wrap(apperr.Internal, err, "could not reload order")
		}
	}
}

func (s *Service) cancelPrevious(ctx context.Context, order models.Order, logger *log.Entry) {
	if order.PaymentReference == "" || order.PaymentStatus == models.PaymentFailed {
		return
	}
	err := s.gateway.Cancel(ctx, order.PaymentReference)
	switch {
	case err == nil:
		logger.WithField("previous", order.PaymentReference).Info("[PAYMENT] previous checkout cancelled")
	case errors.Is(err, ErrTransactionNotFound):
	default:
		logger.WithError(err).WithField("previous", order.PaymentReference).Warn("[PAYMENT] could not cancel previous checkout")
	}
}

// mintReference returns TX-{unixMillis}-{orderId}, never equal to the
// reference the order already holds.
func (s *Service) mintReference(order models.Order) string {
	millis := s.now().UnixMilli()
	for {
		ref := fmt.Sprintf("TX-%d-%s", millis, order.ID.Hex())
		if ref != order.PaymentReference {
			return ref
		}
		millis++
	}
}

func (s *Service) loadOrder(ctx context.Context, id primitive.ObjectID) (models.Order, error) {
	order, err := s.orders.GetOrder(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return models.Order{}, apperr.New(apperr.NotFound, "Order not found")
	}
	if err != nil {
		return models.Order{}, apperr.Wrap(apperr.Internal, err, "could not load order")
	}
	return order, nil
}

func (s *Service) save(ctx context.Context, order *models.Order) error {
	order.UpdatedAt = s.now()
	err := s.orders.UpdateOrder(ctx, order)
	if errors.Is(err, store.ErrConflict) {
		return apperr.Wrap(apperr.Conflict, err, "order was modified concurrently, reload and retry")
	}
	if err != nil {
		return apperr.Wrap(apperr.Internal, err, "could not update order")
	}
	return nil
}

func translateInitError(err error) error {
	var statusErr *StatusError
	switch {
	case errors.As(err, &statusErr):
		if statusErr.StatusCode == http.StatusUnauthorized {
			return apperr.Wrap(apperr.Internal, err, "Invalid payment gateway credentials. Please check CHAPA_SECRET_KEY.")
		}
		if msgs := statusErr.FieldMessages(); len(msgs) > 0 {
			details := make(map[string]string, len(statusErr.Fields))
			for key, values := range statusErr.Fields {
				details[key] = strings.Join(values, ", ")
			}
			return apperr.Wrap(apperr.InvalidInput, err, strings.Join(msgs, "; ")).WithDetails(details)
		}
		if statusErr.StatusCode < http.StatusInternalServerError && statusErr.Message != "" {
			return apperr.Wrap(apperr.InvalidInput, err, statusErr.Message)
		}
		return apperr.Wrap(apperr.ExternalUnavailable, err, fmt.Sprintf("payment initialization failed (status %d)", statusErr.StatusCode))
	case errors.Is(err, ErrMissingCheckoutURL):
		return apperr.Wrap(apperr.Internal, err, "missing checkout URL")
	case errors.Is(err, ErrMalformedResponse):
		return apperr.Wrap(apperr.Internal, err, "Invalid response from payment gateway")
	case errors.Is(err, ErrNotConfigured):
		return apperr.Wrap(apperr.Internal, err, "Payment service is not configured. Please contact support.")
	default:
		return apperr.Wrap(apperr.ExternalUnavailable, err, "Cannot connect to payment gateway. Please try again.")
	}
}

func itemNames(items []models.OrderItem) []string {
	names := make([]string, 0, len(items))
	for _, item := range items {
		name := item.Name
		if strings.TrimSpace(name) == "" {
			name = "Product"
		}
		names = append(names, name)
	}
	return names
}

func paymentStatusOrPending(order models.Order) string {
	if order.PaymentStatus == "" {
		return models.PaymentPending
	}
	return order.PaymentStatus
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
