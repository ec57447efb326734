package lifecycle

import (
	"context"
	"errors"
	"fmt"

	"github.com/cuongbtq/interpreter-booking/internal/domain"
	"github.com/cuongbtq/interpreter-booking/internal/notify"
)

// AcceptJob assigns a pending job to the translator. Of any number of
// concurrent accepts for the same job exactly one succeeds; the others get a
// *domain.ConflictError.
func (s *Service) AcceptJob(ctx context.Context, jobID, translatorID int64) (*Outcome, error) {
	job, err := s.findJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	translator, err := s.repo.FindTranslator(ctx, translatorID)
	if err != nil {
		return nil, fmt.Errorf("failed to load translator %d: %w", translatorID, err)
	}

	if job.Status != domain.JobStatusPending {
		return nil, domain.NewConflict(domain.ErrJobTaken, "this booking has already been accepted by another interpreter")
	}
	if !job.ReservedTo(translatorID) {
		return nil, domain.NewConflict(domain.ErrGuardFailed, "this booking is reserved for another interpreter")
	}

	now := s.clock.Now()
	if _, err := s.repo.AcceptJob(ctx, jobID, translatorID, now); err != nil {
		switch {
		case errors.Is(err, domain.ErrTranslatorBusy):
			return nil, domain.NewConflict(err, "you already have a booking at that time")
		case errors.Is(err, domain.ErrJobTaken):
			return nil, domain.NewConflict(err, "this booking has already been accepted by another interpreter")
		default:
			return nil, fmt.Errorf("failed to accept job %d: %w", jobID, err)
		}
	}
	job.Status = domain.JobStatusAssigned
	job.UpdatedAt = now

	s.logger.InfoContext(ctx, "Job accepted",
		"job_id", job.ID,
		"translator_id", translatorID,
	)

	var n notes
	customer, err := s.repo.FindCustomer(ctx, job.UserID)
	if err != nil {
		n.add(fmt.Errorf("failed to load customer %d: %w", job.UserID, err))
	} else {
		language := s.languageName(ctx, job.FromLanguageID)
		subject := fmt.Sprintf("Confirmation - an interpreter has accepted your booking (booking #%d)", job.ID)
		n.add(s.emailCustomer(ctx, job, customer, subject, notify.TemplateJobAccepted, map[string]string{
			"translator_name": translator.Name,
		}))
		n.push(s.notifier.Dispatch(ctx, notify.AcceptedEvent(job, language), job, notify.Recipients(customer)))
	}

	message := fmt.Sprintf("You have accepted booking #%d for %s, %d min, %s",
		job.ID, s.languageName(ctx, job.FromLanguageID), job.Duration, job.Due.Format("2006-01-02 15:04"))
	return s.finish(ctx, "accept", job, message, &n), nil
}
