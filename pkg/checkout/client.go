package checkout

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/snapmarket/snapmarket-backend/pkg/config"
	"github.com/snapmarket/snapmarket-backend/pkg/logger"
)

var (
	errBaseURLRequired = errors.New("checkout base URL is required")
	errAPIKeyRequired  = errors.New("checkout api key is required")
	errSecretRequired  = errors.New("checkout signing secret is required")
)

// Client calls the hosted checkout provider's REST API.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	apiKey        string
	currency      string
	signingSecret string
}

// SessionParams describes a checkout session to open for one purchase.
type SessionParams struct {
	Amount      decimal.Decimal
	Reference   string
	Description string
	CallbackURL string
}

// Session is the provider's handle for a started payment.
type Session struct {
	SessionID   string `json:"session_id"`
	RedirectURL string `json:"redirect_url"`
}

// SessionCreator is the surface the payments service consumes.
type SessionCreator interface {
	CreateSession(ctx context.Context, params SessionParams) (*Session, error)
}

// NewClient validates the configured secrets and builds the provider client.
func NewClient(ctx context.Context, cfg config.CheckoutConfig, logg *logger.Logger) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errBaseURLRequired
	}
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}
	signingSecret := strings.TrimSpace(cfg.SigningSecret)
	if signingSecret == "" {
		return nil, errSecretRequired
	}

	if logg != nil {
		logg.Info(ctx, "checkout client initialized")
	}

	return &Client{
		httpClient:    &http.Client{Timeout: cfg.Timeout},
		baseURL:       baseURL,
		apiKey:        apiKey,
		currency:      cfg.Currency,
		signingSecret: signingSecret,
	}, nil
}

// SigningSecret returns the webhook signing secret.
func (c *Client) SigningSecret() string {
	if c == nil {
		return ""
	}
	return c.signingSecret
}

// CreateSession opens a hosted checkout session and returns the redirect URL.
func (c *Client) CreateSession(ctx context.Context, params SessionParams) (*Session, error) {
	if params.Reference == "" {
		return nil, errors.New("session reference is required")
	}
	if !params.Amount.IsPositive() {
		return nil, fmt.Errorf("session amount must be positive, got %s", params.Amount)
	}

	body := map[string]any{
		"amount":       params.Amount,
		"currency":     c.currency,
		"reference":    params.Reference,
		"description":  params.Description,
		"callback_url": params.CallbackURL,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encoding session request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/sessions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("building session request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling checkout provider: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("reading session response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("checkout provider returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var session Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("decoding session response: %w", err)
	}
	if session.SessionID == "" || session.RedirectURL == "" {
		return nil, errors.New("checkout provider returned an incomplete session")
	}
	return &session, nil
}
