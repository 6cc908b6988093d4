package payment

//go:generate mockgen -source=gateway.go -destination=mock_gateway_test.go -package=payment

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

const (
	Currency     = "ETB"
	PaymentTitle = "Order Payment"
)

var (
	ErrNotConfigured       = errors.New("payment gateway is not configured")
	ErrUnavailable         = errors.New("payment gateway unavailable")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrMalformedResponse   = errors.New("malformed gateway response")
	ErrMissingCheckoutURL  = errors.New("missing checkout URL")
)

// Gateway is a hosted-checkout payment processor.
type Gateway interface {
	Configured() bool
	Initialize(ctx context.Context, req InitRequest) (Checkout, error)
	Verify(ctx context.Context, txRef string) (Transaction, error)
	Cancel(ctx context.Context, txRef string) error
}

type Customization struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type InitRequest struct {
	Amount        float64       `json:"amount"`
	Currency      string        `json:"currency"`
	Email         string        `json:"email"`
	FirstName     string        `json:"first_name"`
	LastName      string        `json:"last_name"`
	TxRef         string        `json:"tx_ref"`
	CallbackURL   string        `json:"callback_url"`
	ReturnURL     string        `json:"return_url"`
	Customization Customization `json:"customization"`
}

// Checkout is the normalized result of a successful initialization.
type Checkout struct {
	URL string
}

// Transaction is the normalized result of a verification.
type Transaction struct {
	Status    string
	Reference string
}

// StatusError is a non-2xx answer from the gateway. Fields holds the
// per-field validation messages when the gateway sent them.
type StatusError struct {
	StatusCode int
	Message    string
	Fields     map[string][]string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("gateway returned status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("gateway returned status %d", e.StatusCode)
}

var fieldLabels = map[string]string{
	"email":                     "Email",
	"amount":                    "Amount",
	"customization.description": "Description",
	"first_name":                "First Name",
	"last_name":                 "Last Name",
}

var fieldOrder = []string{"email", "amount", "customization.description", "first_name", "last_name"}

// FieldMessages renders the field errors as "Label: msg, msg", known fields first.
func (e *StatusError) FieldMessages() []string {
	if len(e.Fields) == 0 {
		return nil
	}

	keys := make([]string, 0, len(e.Fields))
	for _, key := range fieldOrder {
		if _, ok := e.Fields[key]; ok {
			keys = append(keys, key)
		}
	}
	var rest []string
	for key := range e.Fields {
		if _, known := fieldLabels[key]; !known {
			rest = append(rest, key)
		}
	}
	sort.Strings(rest)
	keys = append(keys, rest...)

	out := make([]string, 0, len(keys))
	for _, key := range keys {
		msgs := e.Fields[key]
		if key == "email" && contains(msgs, "validation.email") {
			out = append(out, "Email: Invalid email format. Please use a valid email address.")
			continue
		}
		label, ok := fieldLabels[key]
		if !ok {
			label = key
		}
		out = append(out, fmt.Sprintf("%s: %s", label, strings.Join(msgs, ", ")))
	}
	return out
}

func contains(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}
