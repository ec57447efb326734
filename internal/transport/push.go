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

// SendAfterLayout is the delayed-delivery timestamp format the push vendor accepts
const SendAfterLayout = "2006-01-02 15:04:05 GMT-0700"

// PushConfig configures the push vendor client
type PushConfig struct {
	BaseURL string
	AppID   string
	APIKey  string
	Timeout time.Duration
}

// PushClient posts notifications to a OneSignal compatible REST API
type PushClient struct {
	client *http.Client
	cfg    PushConfig
	logger *slog.Logger
}

func NewPushClient(cfg PushConfig, logger *slog.Logger) *PushClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &PushClient{
		client: &http.Client{Timeout: cfg.Timeout},
		cfg:    cfg,
		logger: logger,
	}
}

type pushData struct {
	NotificationType string `json:"notification_type"`
	JobID            int64  `json:"job_id"`
}

type pushRequest struct {
	AppID         string             `json:"app_id"`
	Tags          []notify.TagFilter `json:"tags"`
	Data          pushData           `json:"data"`
	Headings      map[string]string  `json:"headings"`
	Contents      map[string]string  `json:"contents"`
	IOSBadgeType  string             `json:"ios_badgeType"`
	IOSBadgeCount int                `json:"ios_badgeCount"`
	AndroidSound  string             `json:"android_sound"`
	IOSSound      string             `json:"ios_sound"`
	SendAfter     string             `json:"send_after,omitempty"`
}

func (c *PushClient) buildRequest(push notify.Push) pushRequest {
	req := pushRequest{
		AppID: c.cfg.AppID,
		Tags:  push.Tags,
		Data: pushData{
			NotificationType: push.Payload.NotificationType,
			JobID:            push.Payload.JobID,
		},
		Headings:      map[string]string{"en": push.Payload.Title},
		Contents:      push.Payload.Contents,
		IOSBadgeType:  "Increase",
		IOSBadgeCount: 1,
		AndroidSound:  "default",
		IOSSound:      "default",
	}
	if push.Sound != "" {
		req.AndroidSound = push.Sound
		req.IOSSound = push.Sound + ".mp3"
	}
	if push.SendAfter != nil {
		req.SendAfter = push.SendAfter.Format(SendAfterLayout)
	}
	return req
}

// SendPush implements notify.PushSender
func (c *PushClient) SendPush(ctx context.Context, push notify.Push) error {
	body, err := json.Marshal(c.buildRequest(push))
	if err != nil {
		return fmt.Errorf("failed to marshal push request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/notifications", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Basic "+c.cfg.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call push api: %w", err)
	}
	defer resp.Body.Close()

	answer, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Vendor: "push", Code: resp.StatusCode, Body: string(answer)}
	}

	c.logger.InfoContext(ctx, "Push sent",
		slog.Int64("job_id", push.Payload.JobID),
		slog.String("notification_type", push.Payload.NotificationType),
		slog.Bool("delayed", push.SendAfter != nil),
		slog.String("answer", string(answer)),
	)
	return nil
}
