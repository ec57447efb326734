package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cuongbtq/interpreter-booking/internal/notify"
)

// SMSConfig configures the SMS gateway client
type SMSConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// SMSClient sends text messages through an HTTP gateway
type SMSClient struct {
	client *http.Client
	cfg    SMSConfig
	logger *slog.Logger
}

func NewSMSClient(cfg SMSConfig, logger *slog.Logger) *SMSClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &SMSClient{
		client: &http.Client{Timeout: cfg.Timeout},
		cfg:    cfg,
		logger: logger,
	}
}

// SendSMS implements notify.SMSSender
func (c *SMSClient) SendSMS(ctx context.Context, sms notify.SMS) error {
	body, err := json.Marshal(sms)
	if err != nil {
		return fmt.Errorf("failed to marshal sms: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call sms gateway: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		answer, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{Vendor: "sms", Code: resp.StatusCode, Body: string(answer)}
	}

	c.logger.DebugContext(ctx, "SMS sent", slog.String("to", sms.To))
	return nil
}
