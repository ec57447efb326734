package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/cuongbtq/interpreter-booking/internal/notify"
	"github.com/google/uuid"
)

// Broker is the part of the RabbitMQ client the publisher needs
type Broker interface {
	PublishWithRetry(ctx context.Context, body []byte, contentType string) error
}

// Publisher queues deliveries for the worker. It satisfies notify.Mailer,
// notify.SMSSender and notify.PushSender.
type Publisher struct {
	broker Broker
	logger *slog.Logger
	now    func() time.Time
}

// NewPublisher creates a publisher on top of a broker connection
func NewPublisher(broker Broker, logger *slog.Logger) *Publisher {
	return &Publisher{
		broker: broker,
		logger: logger,
		now:    time.Now,
	}
}

func (p *Publisher) SendEmail(ctx context.Context, email notify.Email) error {
	return p.publish(ctx, &Envelope{Channel: notify.ChannelEmail, Email: &email})
}

func (p *Publisher) SendSMS(ctx context.Context, sms notify.SMS) error {
	return p.publish(ctx, &Envelope{Channel: notify.ChannelSMS, SMS: &sms})
}

func (p *Publisher) SendPush(ctx context.Context, push notify.Push) error {
	return p.publish(ctx, &Envelope{Channel: notify.ChannelPush, Push: &push})
}

func (p *Publisher) publish(ctx context.Context, env *Envelope) error {
	env.ID = uuid.NewString()
	env.CreatedAt = p.now().UTC()

	if err := env.Validate(); err != nil {
		return err
	}

	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}

	if err := p.broker.PublishWithRetry(ctx, body, ContentType); err != nil {
		return fmt.Errorf("failed to queue %s delivery: %w", env.Channel, err)
	}

	p.logger.Debug("Delivery queued",
		slog.String("delivery_id", env.ID),
		slog.String("channel", env.Channel),
	)
	return nil
}
