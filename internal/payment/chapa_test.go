package payment

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestChapa(t *testing.T, handler http.HandlerFunc) *ChapaClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewChapaClient(ChapaConfig{BaseURL: srv.URL + "/", SecretKey: "CHASECK_TEST-123"})
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func TestChapaInitializeSendsRequest(t *testing.T) {
	var got InitRequest
	client := newTestChapa(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/transaction/initialize", r.URL.Path)
		assert.Equal(t, "Bearer CHASECK_TEST-123", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(w, http.StatusOK, `{"status":"success","message":"Hosted Link","data":{"checkout_url":"https://checkout.chapa.co/abc"}}`)
	})

	checkout, err := client.Initialize(context.Background(), InitRequest{
		Amount:        42.5,
		Currency:      Currency,
		Email:         "buyer@example.com",
		FirstName:     "Abebe",
		TxRef:         "TX-1-abc",
		Customization: Customization{Title: PaymentTitle, Description: "Order Honey"},
	})
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.chapa.co/abc", checkout.URL)
	assert.Equal(t, 42.5, got.Amount)
	assert.Equal(t, "ETB", got.Currency)
	assert.Equal(t, "TX-1-abc", got.TxRef)
	assert.Equal(t, "Order Honey", got.Customization.Description)
}

func TestChapaInitializeMissingCheckoutURL(t *testing.T) {
	client := newTestChapa(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"status":"success","message":"Hosted Link","data":{}}`)
	})

	_, err := client.Initialize(context.Background(), InitRequest{})
	assert.ErrorIs(t, err, ErrMissingCheckoutURL)
}

func TestChapaInitializeMalformedBody(t *testing.T) {
	client := newTestChapa(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `<html>gateway</html>`)
	})

	_, err := client.Initialize(context.Background(), InitRequest{})
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestChapaInitializeFieldErrors(t *testing.T) {
	client := newTestChapa(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, `{"status":"failed","message":{"email":["validation.email"],"amount":"The amount must be at least 1."},"data":null}`)
	})

	_, err := client.Initialize(context.Background(), InitRequest{})
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusBadRequest, statusErr.StatusCode)
	assert.Equal(t, []string{
		"Email: Invalid email format. Please use a valid email address.",
		"Amount: The amount must be at least 1.",
	}, statusErr.FieldMessages())
}

func TestChapaInitializeStringMessage(t *testing.T) {
	client := newTestChapa(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, `{"status":"failed","message":"Invalid API Key","data":null}`)
	})

	_, err := client.Initialize(context.Background(), InitRequest{})
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)
	assert.Equal(t, "Invalid API Key", statusErr.Message)
	assert.Empty(t, statusErr.FieldMessages())
}

func TestChapaVerify(t *testing.T) {
	client := newTestChapa(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		switch r.URL.Path {
		case "/transaction/verify/TX-1-abc":
			writeJSON(w, http.StatusOK, `{"status":"success","message":"Payment details","data":{"status":"Success","tx_ref":"TX-1-abc","amount":"42.50"}}`)
		case "/transaction/verify/TX-missing":
			writeJSON(w, http.StatusNotFound, `{"status":"failed","message":"Invalid transaction or Transaction not found","data":null}`)
		default:
			writeJSON(w, http.StatusOK, `{"status":"success","data":null}`)
		}
	})

	tx, err := client.Verify(context.Background(), "TX-1-abc")
	require.NoError(t, err)
	assert.Equal(t, "success", tx.Status)
	assert.Equal(t, "TX-1-abc", tx.Reference)

	_, err = client.Verify(context.Background(), "TX-missing")
	assert.ErrorIs(t, err, ErrTransactionNotFound)

	_, err = client.Verify(context.Background(), "TX-empty")
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestChapaCancel(t *testing.T) {
	var calls int32
	client := newTestChapa(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/transaction/cancel/TX-1-abc", r.URL.Path)
		writeJSON(w, http.StatusOK, `{"status":"success","message":"Transaction cancelled","data":null}`)
	})

	require.NoError(t, client.Cancel(context.Background(), "TX-1-abc"))
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestChapaNotConfigured(t *testing.T) {
	client := NewChapaClient(ChapaConfig{BaseURL: "http://127.0.0.1:1", SecretKey: "  "})
	assert.False(t, client.Configured())

	_, err := client.Initialize(context.Background(), InitRequest{})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestChapaBreakerOpensAfterServerErrors(t *testing.T) {
	var calls int32
	client := newTestChapa(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		writeJSON(w, http.StatusBadGateway, `{"status":"failed","message":"upstream"}`)
	})

	for i := 0; i < 5; i++ {
		_, err := client.Verify(context.Background(), "TX-1-abc")
		var statusErr *StatusError
		require.True(t, errors.As(err, &statusErr))
		assert.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
	}

	_, err := client.Verify(context.Background(), "TX-1-abc")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.EqualValues(t, 5, atomic.LoadInt32(&calls))
}

func TestChapaClientErrorsDoNotTripBreaker(t *testing.T) {
	client := newTestChapa(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, `{"status":"failed","message":"bad"}`)
	})

	for i := 0; i < 8; i++ {
		_, err := client.Initialize(context.Background(), InitRequest{})
		var statusErr *StatusError
		require.True(t, errors.As(err, &statusErr))
	}
}
