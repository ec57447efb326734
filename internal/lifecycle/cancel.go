package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/cuongbtq/interpreter-booking/internal/domain"
	"github.com/cuongbtq/interpreter-booking/internal/notify"
)

// CancellationWindow separates early from late cancellations
const CancellationWindow = 24 * time.Hour

// LateCancellationMessage is shown to translators who try to cancel inside the window
const LateCancellationMessage = "You cannot cancel a booking that starts within 24 hours online. " +
	"Please call the booking office and cancel by phone. Thank you!"

// CancelJob cancels on behalf of the job's customer or its assigned translator.
func (s *Service) CancelJob(ctx context.Context, jobID int64, actor domain.User) (*Outcome, error) {
	job, err := s.findJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status.IsTerminal() {
		return nil, domain.NewConflict(domain.ErrTransitionNotAllowed, "booking is already closed with status "+string(job.Status))
	}

	assignment, translator, err := s.activeTranslator(ctx, jobID)
	if err != nil {
		return nil, err
	}

	switch a := actor.(type) {
	case *domain.Customer:
		if a.ID != job.UserID {
			return nil, domain.NewPolicyError(domain.ErrNotParticipant, "only the customer who made the booking can cancel it")
		}
		return s.customerCancel(ctx, job, a, assignment, translator)
	case *domain.Translator:
		if assignment == nil || assignment.TranslatorID != a.ID {
			return nil, domain.NewConflict(domain.ErrNotAssigned, "you are not assigned to this booking")
		}
		return s.translatorCancel(ctx, job, assignment, a)
	default:
		return nil, domain.NewPolicyError(domain.ErrWrongRole, "unsupported user")
	}
}

// customerCancel always succeeds. Exactly 24 hours before due still counts as
// early. The active assignment is cancelled with the job so the translator is
// free again at that time.
func (s *Service) customerCancel(ctx context.Context, job *domain.Job, customer *domain.Customer, assignment *domain.Assignment, translator *domain.Translator) (*Outcome, error) {
	now := s.clock.Now()
	update := domain.JobUpdate{Job: job, From: job.Status, At: now}
	if assignment != nil {
		update.CancelAssignmentID = assignment.ID
	}
	job.WithdrawAt = &now
	job.UpdatedAt = now
	if job.Due.Sub(now) >= CancellationWindow {
		job.Status = domain.JobStatusWithdrawBefore24
	} else {
		job.Status = domain.JobStatusWithdrawAfter24
	}

	if err := s.repo.ApplyUpdate(ctx, update); err != nil {
		return nil, fmt.Errorf("failed to cancel job %d: %w", job.ID, err)
	}

	s.logger.InfoContext(ctx, "Job cancelled by customer",
		"job_id", job.ID,
		"customer_id", customer.ID,
		"status", job.Status,
	)

	var n notes
	if translator != nil {
		language := s.languageName(ctx, job.FromLanguageID)
		n.push(s.notifier.Dispatch(ctx, notify.CancelledEvent(job, language), job, notify.Recipients(translator)))
	}
	return s.finish(ctx, "cancel", job, "Booking cancelled", &n), nil
}

// translatorCancel gives the job back to the pool when more than 24 hours remain.
func (s *Service) translatorCancel(ctx context.Context, job *domain.Job, assignment *domain.Assignment, translator *domain.Translator) (*Outcome, error) {
	now := s.clock.Now()
	if job.Due.Sub(now) <= CancellationWindow {
		return nil, domain.NewPolicyError(domain.ErrLateCancellation, LateCancellationMessage)
	}

	from := job.Status
	job.Status = domain.JobStatusPending
	job.CreatedAt = now
	job.UpdatedAt = now
	job.WillExpireAt = s.clock.WillExpireAt(job.Due, now)

	if err := s.repo.ReleaseJob(ctx, job, from, assignment.ID); err != nil {
		return nil, fmt.Errorf("failed to release job %d: %w", job.ID, err)
	}

	s.logger.InfoContext(ctx, "Job released by translator",
		"job_id", job.ID,
		"translator_id", translator.ID,
	)

	var n notes
	language := s.languageName(ctx, job.FromLanguageID)
	customer, err := s.repo.FindCustomer(ctx, job.UserID)
	if err != nil {
		n.add(fmt.Errorf("failed to load customer %d: %w", job.UserID, err))
	} else {
		n.push(s.notifier.Dispatch(ctx, notify.TranslatorWithdrewEvent(job, language), job, notify.Recipients(customer)))
	}
	n.push(s.notifier.Dispatch(ctx, notify.BookingEvent(job, language), job, notify.EligibleTranslators(translator.ID)))

	return s.finish(ctx, "cancel", job, "Booking returned to the pool", &n), nil
}
