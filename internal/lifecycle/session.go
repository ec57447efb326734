package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/cuongbtq/interpreter-booking/internal/domain"
	"github.com/cuongbtq/interpreter-booking/internal/notify"
)

// FormatSessionTime renders an elapsed duration as h:mm:ss.
func FormatSessionTime(d time.Duration) string {
	if d < 0 {
		d = -d
	}
	d = d.Truncate(time.Second)
	h := int(d / time.Hour)
	m := int(d % time.Hour / time.Minute)
	sec := int(d % time.Minute / time.Second)
	return fmt.Sprintf("%d:%02d:%02d", h, m, sec)
}

// EndSession completes a started job. For any other status it succeeds without changing anything.
func (s *Service) EndSession(ctx context.Context, jobID int64, actor domain.User) (*Outcome, error) {
	job, err := s.findJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != domain.JobStatusStarted {
		return &Outcome{Job: job, Message: "Session already closed"}, nil
	}

	assignment, translator, err := s.activeTranslator(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !participates(actor, job, assignment) {
		return nil, domain.NewPolicyError(domain.ErrNotParticipant, "only the customer or the assigned interpreter can end the session")
	}

	now := s.clock.Now()
	end := now
	from := job.Status
	job.EndAt = &end
	job.Status = domain.JobStatusCompleted
	// Measured from the scheduled start; no actual start time is recorded.
	job.SessionTime = FormatSessionTime(now.Sub(job.Due))
	job.UpdatedAt = now

	update := domain.JobUpdate{Job: job, From: from, At: now, CompletedBy: actor.UserID()}
	if assignment != nil {
		update.CompleteAssignmentID = assignment.ID
	}
	if err := s.repo.ApplyUpdate(ctx, update); err != nil {
		return nil, fmt.Errorf("failed to end session for job %d: %w", jobID, err)
	}

	s.logger.InfoContext(ctx, "Session ended",
		"job_id", job.ID,
		"ended_by", actor.UserID(),
		"session_time", job.SessionTime,
	)

	var n notes
	customer, err := s.repo.FindCustomer(ctx, job.UserID)
	if err != nil {
		n.add(fmt.Errorf("failed to load customer %d: %w", job.UserID, err))
		customer = nil
	}
	s.notifySessionEnded(ctx, &n, job, customer, translator)

	var counterparty domain.User
	if actor.Role() == domain.RoleCustomer {
		if translator != nil {
			counterparty = translator
		}
	} else if customer != nil {
		counterparty = customer
	}
	if counterparty != nil {
		n.push(s.notifier.Dispatch(ctx, notify.SessionEndedEvent(job), job, notify.Recipients(counterparty)))
	}

	return s.finish(ctx, "end_session", job, "Session ended", &n), nil
}

// CustomerNoShow records that the customer did not turn up or answer.
func (s *Service) CustomerNoShow(ctx context.Context, jobID int64) (*Outcome, error) {
	job, err := s.findJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != domain.JobStatusAssigned && job.Status != domain.JobStatusStarted {
		return nil, domain.NewConflict(domain.ErrTransitionNotAllowed,
			"cannot mark a "+string(job.Status)+" booking as not carried out")
	}

	assignment, err := s.repo.ActiveAssignment(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to load assignment for job %d: %w", jobID, err)
	}
	if assignment == nil {
		return nil, domain.NewConflict(domain.ErrNotAssigned, "booking has no assigned interpreter")
	}

	now := s.clock.Now()
	end := now
	from := job.Status
	job.EndAt = &end
	job.Status = domain.JobStatusNotCarriedOutCustomer
	job.UpdatedAt = now

	update := domain.JobUpdate{
		Job:                  job,
		From:                 from,
		At:                   now,
		CompleteAssignmentID: assignment.ID,
		CompletedBy:          assignment.TranslatorID,
	}
	if err := s.repo.ApplyUpdate(ctx, update); err != nil {
		return nil, fmt.Errorf("failed to record no-show for job %d: %w", jobID, err)
	}

	s.logger.InfoContext(ctx, "Customer did not show",
		"job_id", job.ID,
		"translator_id", assignment.TranslatorID,
	)
	return &Outcome{Job: job, Message: "Recorded as not carried out by customer"}, nil
}

func participates(actor domain.User, job *domain.Job, assignment *domain.Assignment) bool {
	switch actor.Role() {
	case domain.RoleCustomer:
		return actor.UserID() == job.UserID
	case domain.RoleTranslator:
		return assignment != nil && assignment.TranslatorID == actor.UserID()
	default:
		return false
	}
}
