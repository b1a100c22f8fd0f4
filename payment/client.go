// Package payment talks to the hosted payment provider.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go-storefront/metrics"
	"go-storefront/models"
)

// ErrMissingPaymentURL is returned when the provider answers 2xx without a
// payment_url.
var ErrMissingPaymentURL = errors.New("payment provider response has no payment_url")

// Client requests hosted payment pages.
type Client struct {
	baseURL    string
	apiKey     string
	returnURL  string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a Client. returnURL is the page the provider sends the
// customer back to; payment and orderId query parameters are added to it.
func NewClient(baseURL, apiKey, returnURL string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		returnURL:  returnURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger,
	}
}

type initRequest struct {
	models.PaymentRequest
	SuccessURL string `json:"successUrl"`
	FailURL    string `json:"failUrl"`
}

// InitiatePayment asks the provider for a payment page for req. Non-2xx
// answers become *models.APIError carrying the provider's message.
func (c *Client) InitiatePayment(ctx context.Context, req models.PaymentRequest) (models.PaymentResponse, error) {
	body, err := json.Marshal(initRequest{
		PaymentRequest: req,
		SuccessURL:     c.returnLink(models.PaymentOutcomeSuccess, req.OrderID),
		FailURL:        c.returnLink(models.PaymentOutcomeCancelled, req.OrderID),
	})
	if err != nil {
		return models.PaymentResponse{}, fmt.Errorf("encode payment request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/payments/init", bytes.NewReader(body))
	if err != nil {
		return models.PaymentResponse{}, fmt.Errorf("build payment request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		metrics.PaymentRequests.WithLabelValues("transport_error").Inc()
		return models.PaymentResponse{}, fmt.Errorf("call payment provider: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return models.PaymentResponse{}, fmt.Errorf("read payment response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.PaymentRequests.WithLabelValues("rejected").Inc()
		apiErr := &models.APIError{Status: resp.StatusCode, Message: providerMessage(raw)}
		c.logger.Warn("Payment provider rejected request",
			slog.String("order_id", req.OrderID), slog.Int("status", resp.StatusCode),
			slog.String("message", apiErr.Message))
		return models.PaymentResponse{}, apiErr
	}

	var out models.PaymentResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		metrics.PaymentRequests.WithLabelValues("bad_response").Inc()
		return models.PaymentResponse{}, fmt.Errorf("decode payment response: %w", err)
	}
	if strings.TrimSpace(out.PaymentURL) == "" {
		metrics.PaymentRequests.WithLabelValues("bad_response").Inc()
		return models.PaymentResponse{}, ErrMissingPaymentURL
	}
	metrics.PaymentRequests.WithLabelValues("ok").Inc()
	return out, nil
}

const maxProviderMessage = 200

// providerMessage extracts the message of an error answer. Bodies that are
// not the provider's JSON shape are passed through, trimmed and truncated.
func providerMessage(raw []byte) string {
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && strings.TrimSpace(body.Message) != "" {
		return strings.TrimSpace(body.Message)
	}
	msg := []rune(strings.TrimSpace(string(raw)))
	if len(msg) > maxProviderMessage {
		msg = msg[:maxProviderMessage]
	}
	return string(msg)
}

func (c *Client) returnLink(outcome, orderID string) string {
	q := url.Values{"payment": {outcome}, "orderId": {orderID}}
	sep := "?"
	if strings.Contains(c.returnURL, "?") {
		sep = "&"
	}
	return c.returnURL + sep + q.Encode()
}
