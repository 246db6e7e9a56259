package paystack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"wallet-ledger/config"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"

	"github.com/rs/zerolog"
)

// HTTPClient interface for testability.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client implements ports.PaymentProcessor against the Paystack REST API.
type Client struct {
	cfg        config.PaystackConfig
	httpClient HTTPClient
	log        zerolog.Logger
}

// NewClient creates a Paystack API client.
func NewClient(cfg config.PaystackConfig, httpClient HTTPClient, log zerolog.Logger) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: httpClient,
		log:        log,
	}
}

// initializeRequest is the POST /transaction/initialize body. Amount is
// in minor units (kobo) per the Paystack API.
type initializeRequest struct {
	Email       string `json:"email"`
	Amount      int64  `json:"amount"`
	Reference   string `json:"reference"`
	CallbackURL string `json:"callback_url,omitempty"`
}

type initializeResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		AuthorizationURL string `json:"authorization_url"`
		AccessCode       string `json:"access_code"`
		Reference        string `json:"reference"`
	} `json:"data"`
}

// Initialize requests a checkout session for a deposit. Amount is in
// whole currency units and is converted to minor units on the wire.
func (c *Client) Initialize(ctx context.Context, email string, amount int64, reference string) (*ports.CheckoutSession, error) {
	body, err := json.Marshal(initializeRequest{
		Email:       email,
		Amount:      amount * 100,
		Reference:   reference,
		CallbackURL: c.cfg.CallbackURL,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal initialize request: %w", err)
	}

	url := c.cfg.BaseURL + "/transaction/initialize"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build initialize request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.SecretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Error().Err(err).Str("reference", reference).Msg("paystack initialize request failed")
		return nil, apperror.ErrProcessor(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, apperror.ErrProcessor(fmt.Errorf("read initialize response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		c.log.Error().
			Int("status_code", resp.StatusCode).
			Str("reference", reference).
			Msg("paystack initialize returned non-200")
		return nil, apperror.ErrProcessor(fmt.Errorf("paystack returned status %d", resp.StatusCode))
	}

	var parsed initializeResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, apperror.ErrProcessor(fmt.Errorf("decode initialize response: %w", err))
	}
	if !parsed.Status {
		return nil, apperror.ErrProcessor(fmt.Errorf("paystack rejected initialize: %s", parsed.Message))
	}

	return &ports.CheckoutSession{
		AuthorizationURL: parsed.Data.AuthorizationURL,
		AccessCode:       parsed.Data.AccessCode,
		Reference:        parsed.Data.Reference,
	}, nil
}
