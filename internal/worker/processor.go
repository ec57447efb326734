package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/interpreter-booking/internal/notify"
	"github.com/cuongbtq/interpreter-booking/internal/outbox"
	"github.com/cuongbtq/interpreter-booking/internal/transport"
)

// Transports are the vendor clients, one per channel. A nil client disables its channel.
type Transports struct {
	Mailer notify.Mailer
	SMS    notify.SMSSender
	Push   notify.PushSender
}

func (t Transports) deliver(ctx context.Context, env *outbox.Envelope) error {
	switch env.Channel {
	case notify.ChannelEmail:
		if t.Mailer == nil {
			return fmt.Errorf("%w: %s", ErrTransportDisabled, env.Channel)
		}
		return t.Mailer.SendEmail(ctx, *env.Email)
	case notify.ChannelSMS:
		if t.SMS == nil {
			return fmt.Errorf("%w: %s", ErrTransportDisabled, env.Channel)
		}
		return t.SMS.SendSMS(ctx, *env.SMS)
	case notify.ChannelPush:
		if t.Push == nil {
			return fmt.Errorf("%w: %s", ErrTransportDisabled, env.Channel)
		}
		return t.Push.SendPush(ctx, *env.Push)
	default:
		return fmt.Errorf("%w: %q", outbox.ErrUnknownChannel, env.Channel)
	}
}

// processDelivery sends one envelope within the delivery timeout.
// Transient vendor failures are retried once through a requeue.
func (w *Worker) processDelivery(ctx context.Context, msg *Message) error {
	deliveryCtx, cancel := context.WithTimeout(ctx, w.deliveryTimeout)
	defer cancel()

	err := w.transports.deliver(deliveryCtx, msg.Envelope)
	if err == nil {
		return nil
	}

	if !transport.IsTemporary(err) {
		return err
	}

	if msg.Redelivered {
		w.logger.Warn("Delivery failed after redelivery",
			slog.String("delivery_id", msg.Envelope.ID),
		)
		return fmt.Errorf("%w: %v", ErrRedeliveryExhausted, err)
	}
	return NewRetryableError(err)
}
