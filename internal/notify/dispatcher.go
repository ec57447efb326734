package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/interpreter-booking/internal/domain"
)

// Config holds the fixed parts of outgoing messages
type Config struct {
	Title   string
	SMSFrom string
}

// Event is one push decision: what kind, what text and which sound
type Event struct {
	Type    string
	Message string
	Sound   string
}

// Audience selects recipients. Either Users is set, or Eligible asks the
// matcher for every eligible translator except ExcludeID.
type Audience struct {
	Users     []domain.User
	Eligible  bool
	ExcludeID int64
}

// Recipients is an explicit audience
func Recipients(users ...domain.User) Audience {
	return Audience{Users: users}
}

// EligibleTranslators is the broadcast audience
func EligibleTranslators(excludeID int64) Audience {
	return Audience{Eligible: true, ExcludeID: excludeID}
}

// Dispatcher decides who receives what and hands the result to the transports
type Dispatcher struct {
	cfg    Config
	mailer Mailer
	sms    SMSSender
	push   PushSender
	clock  Clock
	finder TranslatorFinder
	logger *slog.Logger
}

// Dependencies holds the dispatcher collaborators
type Dependencies struct {
	Mailer Mailer
	SMS    SMSSender
	Push   PushSender
	Clock  Clock
	Finder TranslatorFinder
	Logger *slog.Logger
}

func NewDispatcher(cfg Config, deps Dependencies) *Dispatcher {
	return &Dispatcher{
		cfg:    cfg,
		mailer: deps.Mailer,
		sms:    deps.SMS,
		push:   deps.Push,
		clock:  deps.Clock,
		finder: deps.Finder,
		logger: deps.Logger,
	}
}

// Dispatch sends a push for the event to the audience. It returns the number
// of recipients handed to the push transport. Transport failures are returned
// as *domain.TransportError and never stop the remaining calls.
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event, job *domain.Job, audience Audience) (int, error) {
	users, err := d.resolve(ctx, job, audience)
	if err != nil {
		return 0, err
	}

	var immediate, delayed []domain.User
	night := d.clock.IsNightTime()
	for _, u := range users {
		prefs := u.NotificationPrefs()
		if !wantsPush(prefs, job) {
			continue
		}
		if night && bool(prefs.NotGetNighttime) {
			delayed = append(delayed, u)
		} else {
			immediate = append(immediate, u)
		}
	}

	var errs []error
	sent := 0
	if len(immediate) > 0 {
		if err := d.sendPush(ctx, ev, job, immediate, false); err != nil {
			errs = append(errs, err)
		} else {
			sent += len(immediate)
		}
	}
	if len(delayed) > 0 {
		if err := d.sendPush(ctx, ev, job, delayed, true); err != nil {
			errs = append(errs, err)
		} else {
			sent += len(delayed)
		}
	}

	d.logger.DebugContext(ctx, "Push dispatched",
		"job_id", job.ID,
		"type", ev.Type,
		"immediate", len(immediate),
		"delayed", len(delayed),
	)
	return sent, errors.Join(errs...)
}

func wantsPush(prefs domain.Preferences, job *domain.Job) bool {
	if prefs.NotGetNotification {
		return false
	}
	if bool(job.Immediate) && bool(prefs.NotGetEmergency) {
		return false
	}
	return true
}

func (d *Dispatcher) resolve(ctx context.Context, job *domain.Job, audience Audience) ([]domain.User, error) {
	if !audience.Eligible {
		return audience.Users, nil
	}
	translators, err := d.finder.EligibleTranslators(ctx, job, audience.ExcludeID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve audience: %w", err)
	}
	users := make([]domain.User, 0, len(translators))
	for _, t := range translators {
		users = append(users, t)
	}
	return users, nil
}

func (d *Dispatcher) sendPush(ctx context.Context, ev Event, job *domain.Job, users []domain.User, delay bool) error {
	push := Push{
		Tags: BuildTagQuery(users),
		Payload: Payload{
			NotificationType: ev.Type,
			JobID:            job.ID,
			Title:            d.cfg.Title,
			Contents:         map[string]string{"en": ev.Message},
		},
		Sound: ev.Sound,
	}
	if delay {
		at := d.clock.NextBusinessTime()
		push.SendAfter = &at
	}
	if err := d.push.SendPush(ctx, push); err != nil {
		return domain.NewTransportError(ChannelPush, err)
	}
	return nil
}

// BroadcastSMS texts every eligible translator, ignoring push preferences.
func (d *Dispatcher) BroadcastSMS(ctx context.Context, job *domain.Job, customer *domain.Customer) (int, error) {
	translators, err := d.finder.EligibleTranslators(ctx, job, 0)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve sms audience: %w", err)
	}

	message := SMSText(job, customer)
	var errs []error
	sent := 0
	for _, t := range translators {
		if t.Mobile == "" {
			continue
		}
		if err := d.sms.SendSMS(ctx, SMS{From: d.cfg.SMSFrom, To: t.Mobile, Message: message}); err != nil {
			errs = append(errs, domain.NewTransportError(ChannelSMS, fmt.Errorf("translator %d: %w", t.ID, err)))
			continue
		}
		sent++
	}

	d.logger.InfoContext(ctx, "SMS fan-out finished",
		"job_id", job.ID,
		"eligible", len(translators),
		"sent", sent,
	)
	return sent, errors.Join(errs...)
}

// Email sends one templated email to a user.
func (d *Dispatcher) Email(ctx context.Context, to domain.User, subject, template string, data map[string]string) error {
	c := to.ContactInfo()
	return d.EmailAddress(ctx, c.Email, c.Name, subject, template, data)
}

// EmailAddress is Email for an address that may not belong to a user.
func (d *Dispatcher) EmailAddress(ctx context.Context, address, name, subject, template string, data map[string]string) error {
	if address == "" {
		return domain.NewTransportError(ChannelEmail, fmt.Errorf("no address for %q", template))
	}
	err := d.mailer.SendEmail(ctx, Email{
		To:       address,
		ToName:   name,
		Subject:  subject,
		Template: template,
		Data:     data,
	})
	if err != nil {
		return domain.NewTransportError(ChannelEmail, err)
	}
	return nil
}
