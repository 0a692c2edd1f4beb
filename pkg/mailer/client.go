package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/snapmarket/snapmarket-backend/pkg/config"
	"github.com/snapmarket/snapmarket-backend/pkg/logger"
)

var (
	errBaseURLRequired = errors.New("mail base URL is required")
	errAPIKeyRequired  = errors.New("mail api key is required")
	errSenderRequired  = errors.New("mail sender is required")
)

// Client sends transactional email through the mail provider's REST API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	sender     string
}

// Message is one transactional email.
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Sender is the surface notification callers consume.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// NewClient validates the mail configuration and builds the provider client.
func NewClient(ctx context.Context, cfg config.MailConfig, logg *logger.Logger) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errBaseURLRequired
	}
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}
	sender := strings.TrimSpace(cfg.Sender)
	if sender == "" {
		return nil, errSenderRequired
	}

	if logg != nil {
		logg.Info(ctx, "mail client initialized")
	}

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    baseURL,
		apiKey:     apiKey,
		sender:     sender,
	}, nil
}

// Send delivers one message. Callers treat failures as non-fatal and log them.
func (c *Client) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return errors.New("recipient is required")
	}
	if msg.Subject == "" {
		return errors.New("subject is required")
	}

	payload, err := json.Marshal(map[string]string{
		"from":    c.sender,
		"to":      msg.To,
		"subject": msg.Subject,
		"body":    msg.Body,
	})
	if err != nil {
		return fmt.Errorf("encoding mail request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building mail request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("calling mail provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("mail provider returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return nil
}
