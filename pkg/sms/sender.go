package sms

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrSMSDisabled signals that SMS delivery is disabled via configuration.
var ErrSMSDisabled = errors.New("sms: delivery disabled")

// Message represents an outbound text message to a single E.164 number.
type Message struct {
	To   string
	Body string
}

// Sender defines behaviour for dispatching SMS messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// GatewaySettings capture the runtime configuration for the HTTP SMS gateway.
type GatewaySettings struct {
	Enabled  bool
	Endpoint string
	APIKey   string
	SenderID string
	Timeout  time.Duration
}

type gatewaySender struct {
	cfg    GatewaySettings
	client *http.Client
}

// NewGatewaySender builds a Sender that delivers through a simple GET-style
// OTP gateway (authkey/msg91 class of providers).
func NewGatewaySender(cfg GatewaySettings) (Sender, error) {
	if cfg.Enabled {
		if strings.TrimSpace(cfg.Endpoint) == "" {
			return nil, errors.New("sms: endpoint is required when enabled")
		}
		if strings.TrimSpace(cfg.APIKey) == "" {
			return nil, errors.New("sms: api key is required when enabled")
		}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	return &gatewaySender{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

func (s *gatewaySender) Send(ctx context.Context, msg Message) error {
	if !s.cfg.Enabled {
		return ErrSMSDisabled
	}

	to := strings.TrimSpace(msg.To)
	if to == "" {
		return errors.New("sms: recipient number is required")
	}

	params := url.Values{}
	params.Set("authkey", s.cfg.APIKey)
	params.Set("mobile", strings.TrimPrefix(to, "+"))
	params.Set("sender", s.cfg.SenderID)
	params.Set("message", msg.Body)

	reqURL := fmt.Sprintf("%s?%s", strings.TrimRight(s.cfg.Endpoint, "?"), params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("sms: build request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("sms: dispatch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain a bounded amount for the log line, never returned to clients.
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("sms: gateway returned status %d: %s", resp.StatusCode, string(body))
	}

	return nil
}
