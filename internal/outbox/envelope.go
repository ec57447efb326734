package outbox

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cuongbtq/interpreter-booking/internal/notify"
	"github.com/google/uuid"
)

// ContentType of every published envelope
const ContentType = "application/json"

var (
	// ErrInvalidEnvelope is returned when a delivery body cannot be decoded
	ErrInvalidEnvelope = errors.New("invalid delivery envelope")

	// ErrUnknownChannel is returned for a channel the worker has no transport for
	ErrUnknownChannel = errors.New("unknown delivery channel")
)

// Envelope is one queued notification delivery. Exactly one payload is set, matching Channel.
type Envelope struct {
	ID        string        `json:"id"`
	Channel   string        `json:"channel"`
	CreatedAt time.Time     `json:"created_at"`
	Email     *notify.Email `json:"email,omitempty"`
	SMS       *notify.SMS   `json:"sms,omitempty"`
	Push      *notify.Push  `json:"push,omitempty"`
}

// Decode parses and validates a delivery body.
func Decode(body []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}
	if err := env.Validate(); err != nil {
		return nil, err
	}
	return &env, nil
}

// Validate checks the id and that the payload matches the channel.
func (e *Envelope) Validate() error {
	if _, err := uuid.Parse(e.ID); err != nil {
		return fmt.Errorf("%w: id %q is not a uuid", ErrInvalidEnvelope, e.ID)
	}

	var ok bool
	switch e.Channel {
	case notify.ChannelEmail:
		ok = e.Email != nil && e.Email.To != ""
	case notify.ChannelSMS:
		ok = e.SMS != nil && e.SMS.To != ""
	case notify.ChannelPush:
		ok = e.Push != nil && len(e.Push.Tags) > 0
	default:
		return fmt.Errorf("%w: %q", ErrUnknownChannel, e.Channel)
	}
	if !ok {
		return fmt.Errorf("%w: missing %s payload", ErrInvalidEnvelope, e.Channel)
	}
	return nil
}
