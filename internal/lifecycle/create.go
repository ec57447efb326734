package lifecycle

import (
	"context"
	"fmt"

	"github.com/cuongbtq/interpreter-booking/internal/domain"
	"github.com/cuongbtq/interpreter-booking/internal/intake"
	"github.com/cuongbtq/interpreter-booking/internal/notify"
)

// CreateBooking validates and stores a new booking, confirms it to the
// customer and offers it to every eligible translator.
func (s *Service) CreateBooking(ctx context.Context, requester domain.User, in intake.Input) (*Outcome, error) {
	job, err := s.validator.Validate(requester, in)
	if err != nil {
		return nil, err
	}
	customer := requester.(*domain.Customer)

	if err := s.repo.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	s.logger.InfoContext(ctx, "Booking created",
		"job_id", job.ID,
		"customer_id", customer.ID,
		"immediate", job.Immediate.String(),
		"job_type", job.JobType,
		"due", job.Due,
	)

	var n notes
	subject := fmt.Sprintf("We have received your interpreter booking. Booking #%d", job.ID)
	n.add(s.emailCustomer(ctx, job, customer, subject, notify.TemplateJobCreated, nil))

	language := s.languageName(ctx, job.FromLanguageID)
	n.push(s.notifier.Dispatch(ctx, notify.BookingEvent(job, language), job, notify.EligibleTranslators(0)))

	if job.Immediate {
		n.push(s.notifier.BroadcastSMS(ctx, job, customer))
	}

	message := fmt.Sprintf("Booking #%d created", job.ID)
	return s.finish(ctx, "create", job, message, &n), nil
}

// ResendNotifications repeats the booking push to every eligible translator.
func (s *Service) ResendNotifications(ctx context.Context, jobID int64) (*Outcome, error) {
	job, err := s.findJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	var n notes
	language := s.languageName(ctx, job.FromLanguageID)
	n.push(s.notifier.Dispatch(ctx, notify.BookingEvent(job, language), job, notify.EligibleTranslators(0)))
	return s.finish(ctx, "resend_push", job, "Push sent", &n), nil
}

// ResendSMS repeats the SMS fan-out to every eligible translator.
func (s *Service) ResendSMS(ctx context.Context, jobID int64) (*Outcome, error) {
	job, err := s.findJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	customer, err := s.repo.FindCustomer(ctx, job.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load customer %d: %w", job.UserID, err)
	}

	var n notes
	n.push(s.notifier.BroadcastSMS(ctx, job, customer))
	return s.finish(ctx, "resend_sms", job, "SMS sent", &n), nil
}

// NotifyExpired tells the customer that nobody accepted the booking.
func (s *Service) NotifyExpired(ctx context.Context, jobID int64) (*Outcome, error) {
	job, err := s.findJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	customer, err := s.repo.FindCustomer(ctx, job.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load customer %d: %w", job.UserID, err)
	}

	var n notes
	language := s.languageName(ctx, job.FromLanguageID)
	n.push(s.notifier.Dispatch(ctx, notify.ExpiredEvent(job, language), job, notify.Recipients(customer)))
	return s.finish(ctx, "expired", job, "Customer notified", &n), nil
}
