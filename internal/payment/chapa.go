package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/sony/gobreaker/v2"
)

const maxResponseBytes = 1 << 20

var errServerStatus = errors.New("gateway server error")

type ChapaConfig struct {
	BaseURL    string
	SecretKey  string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// ChapaClient talks to the Chapa REST API. Transport failures and 5xx
// answers count against a circuit breaker; 4xx answers do not.
type ChapaClient struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[*apiResponse]
}

var _ Gateway = (*ChapaClient)(nil)

type apiResponse struct {
	status int
	body   []byte
}

func NewChapaClient(cfg ChapaConfig) *ChapaClient {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	breaker := gobreaker.NewCircuitBreaker[*apiResponse](gobreaker.Settings{
		Name:        "chapa",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.WithFields(log.Fields{"breaker": name, "from": from.String(), "to": to.String()}).
				Warn("[PAYMENT] circuit breaker state changed")
		},
	})

	return &ChapaClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		secretKey:  strings.TrimSpace(cfg.SecretKey),
		httpClient: httpClient,
		breaker:    breaker,
	}
}

func (c *ChapaClient) Configured() bool {
	return c.secretKey != ""
}

// envelope is Chapa's documented response shape.
type envelope struct {
	Status  string          `json:"status"`
	Message json.RawMessage `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type initializeData struct {
	CheckoutURL string `json:"checkout_url"`
}

type verifyData struct {
	Status    string `json:"status"`
	TxRef     string `json:"tx_ref"`
	Reference string `json:"reference"`
}

func (c *ChapaClient) Initialize(ctx context.Context, req InitRequest) (Checkout, error) {
	resp, err := c.do(ctx, http.MethodPost, "/transaction/initialize", req)
	if err != nil {
		return Checkout{}, err
	}
	if !isSuccess(resp.status) {
		return Checkout{}, parseStatusError(resp)
	}
	return normalizeCheckout(resp.body)
}

func (c *ChapaClient) Verify(ctx context.Context, txRef string) (Transaction, error) {
	resp, err := c.do(ctx, http.MethodGet, "/transaction/verify/"+url.PathEscape(txRef), nil)
	if err != nil {
		return Transaction{}, err
	}
	if resp.status == http.StatusNotFound {
		return Transaction{}, ErrTransactionNotFound
	}
	if !isSuccess(resp.status) {
		return Transaction{}, parseStatusError(resp)
	}
	return normalizeTransaction(resp.body)
}

func (c *ChapaClient) Cancel(ctx context.Context, txRef string) error {
	resp, err := c.do(ctx, http.MethodPut, "/transaction/cancel/"+url.PathEscape(txRef), nil)
	if err != nil {
		return err
	}
	if resp.status == http.StatusNotFound {
		return ErrTransactionNotFound
	}
	if !isSuccess(resp.status) {
		return parseStatusError(resp)
	}
	return nil
}

func (c *ChapaClient) do(ctx context.Context, method, path string, payload interface{}) (*apiResponse, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	var body []byte
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body = encoded
	}

	resp, err := c.breaker.Execute(func() (*apiResponse, error) {
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+c.secretKey)
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		res, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer res.Body.Close()

		data, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
		if err != nil {
			return nil, err
		}

		out := &apiResponse{status: res.StatusCode, body: data}
		if res.StatusCode >= http.StatusInternalServerError {
			return out, errServerStatus
		}
		return out, nil
	})

	switch {
	case err == nil:
		return resp, nil
	case errors.Is(err, errServerStatus) && resp != nil:
		return resp, nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return nil, fmt.Errorf("%w: circuit open", ErrUnavailable)
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
}

func normalizeCheckout(body []byte) (Checkout, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Checkout{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	var data initializeData
	if len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return Checkout{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
	}
	if strings.TrimSpace(data.CheckoutURL) == "" {
		return Checkout{}, ErrMissingCheckoutURL
	}
	return Checkout{URL: data.CheckoutURL}, nil
}

func normalizeTransaction(body []byte) (Transaction, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Transaction{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	var data verifyData
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return Transaction{}, fmt.Errorf("%w: no data", ErrMalformedResponse)
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return Transaction{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if data.Status == "" {
		return Transaction{}, fmt.Errorf("%w: no status", ErrMalformedResponse)
	}

	tx := Transaction{Status: strings.ToLower(data.Status), Reference: data.TxRef}
	if tx.Reference == "" {
		tx.Reference = data.Reference
	}
	return tx, nil
}

// parseStatusError reads the message field, which Chapa sends either as a
// string or as an object of field name to messages.
func parseStatusError(resp *apiResponse) error {
	statusErr := &StatusError{StatusCode: resp.status}

	var env envelope
	if err := json.Unmarshal(resp.body, &env); err != nil || len(env.Message) == 0 {
		return statusErr
	}

	var text string
	if err := json.Unmarshal(env.Message, &text); err == nil {
		statusErr.Message = text
		return statusErr
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(env.Message, &fields); err != nil {
		return statusErr
	}
	statusErr.Fields = make(map[string][]string, len(fields))
	for key, raw := range fields {
		var many []string
		if err := json.Unmarshal(raw, &many); err == nil {
			statusErr.Fields[key] = many
			continue
		}
		var one string
		if err := json.Unmarshal(raw, &one); err == nil {
			statusErr.Fields[key] = []string{one}
		}
	}
	return statusErr
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}
