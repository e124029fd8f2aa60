package checkout

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/yashrajoria/storefront/models"
)

// APIError is a non-2xx response from the storefront API.
type APIError struct {
	StatusCode int
	Message    string
	Errors     []string
}

func (e *APIError) Error() string {
	if len(e.Errors) > 0 {
		return fmt.Sprintf("storefront api: status=%d %s: %s", e.StatusCode, e.Message, strings.Join(e.Errors, "; "))
	}
	return fmt.Sprintf("storefront api: status=%d %s", e.StatusCode, e.Message)
}

// Retryable reports whether the same request may succeed later.
func (e *APIError) Retryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusConflict
}

// APIClient calls the storefront REST API.
type APIClient struct {
	baseURL string
	client  *http.Client
}

func NewAPIClient(baseURL string, timeout time.Duration) *APIClient {
	return &APIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (a *APIClient) StripeKey(ctx context.Context) (string, error) {
	var out models.StripeKeyResponse
	if err := a.do(ctx, http.MethodGet, "/api/config/stripe-key", nil, &out); err != nil {
		return "", err
	}
	if out.PublishableKey == "" {
		return "", fmt.Errorf("storefront api: empty publishable key")
	}
	return out.PublishableKey, nil
}

// CreatePaymentIntent reserves amountMinor and returns the client secret.
func (a *APIClient) CreatePaymentIntent(ctx context.Context, amountMinor int64) (string, error) {
	amount := float64(amountMinor)
	var out models.CreatePaymentIntentResponse
	if err := a.do(ctx, http.MethodPost, "/api/create-payment-intent", models.CreatePaymentIntentRequest{Amount: &amount}, &out); err != nil {
		return "", err
	}
	return out.ClientSecret, nil
}

// CreateOrder commits an order. Both 201 (created) and 200 (already existed)
// are success.
func (a *APIClient) CreateOrder(ctx context.Context, req *models.CreateOrderRequest) (*models.Order, error) {
	var out models.Order
	if err := a.do(ctx, http.MethodPost, "/api/orders", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *APIClient) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func decodeAPIError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var envelope struct {
		Error   string   `json:"error"`
		Message string   `json:"message"`
		Errors  []string `json:"errors"`
	}
	apiErr := &APIError{StatusCode: resp.StatusCode}
	if err := json.Unmarshal(raw, &envelope); err == nil {
		apiErr.Message = envelope.Error
		if apiErr.Message == "" {
			apiErr.Message = envelope.Message
		}
		apiErr.Errors = envelope.Errors
	}
	if apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(raw))
	}
	return apiErr
}
