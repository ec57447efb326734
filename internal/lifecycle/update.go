package lifecycle

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/cuongbtq/interpreter-booking/internal/domain"
	"github.com/cuongbtq/interpreter-booking/internal/notify"
)

// UpdateRequest is an admin edit of a job. Zero values leave a field unchanged.
type UpdateRequest struct {
	ActorID         int64
	TranslatorID    int64
	TranslatorEmail string
	Due             time.Time
	FromLanguageID  int64
	Status          domain.JobStatus
	AdminComments   *string
	SessionTime     string
	Reference       *string
}

// updateState carries what UpdateJob learned while building the change set
type updateState struct {
	before        *domain.Job
	after         *domain.Job
	assignment    *domain.Assignment
	current       *domain.Translator
	newTranslator *domain.Translator
	statusChanged bool
	dueChanged    bool
	langChanged   bool
}

// UpdateJob applies an admin edit. Translator, due date, language and status
// are evaluated in that order; the result is persisted once. A failed guard
// returns a *domain.ConflictError and persists nothing.
func (s *Service) UpdateJob(ctx context.Context, jobID int64, req UpdateRequest) (*Outcome, error) {
	job, err := s.findJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	assignment, current, err := s.activeTranslator(ctx, jobID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	updated := *job
	st := &updateState{before: job, after: &updated, assignment: assignment, current: current}
	update := domain.JobUpdate{Job: &updated, From: job.Status, At: now}
	var changes []domain.ChangeLogEntry

	st.newTranslator, err = s.resolveTranslatorChange(ctx, assignment, req)
	if err != nil {
		return nil, err
	}
	if st.newTranslator != nil {
		old := ""
		if current != nil {
			old = current.Email
			update.CancelAssignmentID = assignment.ID
		}
		update.NewTranslatorID = st.newTranslator.ID
		changes = append(changes, domain.ChangeLogEntry{Field: domain.ChangeTranslator, Old: old, New: st.newTranslator.Email})
	}

	if !req.Due.IsZero() && !req.Due.Equal(job.Due) {
		st.dueChanged = true
		updated.Due = req.Due
		changes = append(changes, domain.ChangeLogEntry{Field: domain.ChangeDue, Old: job.Due.Format(time.RFC3339), New: req.Due.Format(time.RFC3339)})
	}

	if req.FromLanguageID != 0 && req.FromLanguageID != job.FromLanguageID {
		st.langChanged = true
		updated.FromLanguageID = req.FromLanguageID
		changes = append(changes, domain.ChangeLogEntry{
			Field: domain.ChangeLanguage,
			Old:   strconv.FormatInt(job.FromLanguageID, 10),
			New:   strconv.FormatInt(req.FromLanguageID, 10),
		})
	}

	comments := job.AdminComments
	if req.AdminComments != nil {
		comments = *req.AdminComments
	}

	target := req.Status
	if target == "" && st.newTranslator != nil && job.Status == domain.JobStatusPending {
		target = domain.JobStatusAssigned
	}
	if target != "" && target != job.Status {
		if !target.Valid() {
			return nil, &domain.ValidationError{Field: "status", Message: "unknown status " + string(target), Err: domain.ErrInvalidField}
		}
		if err := checkTransition(job.Status, target, comments, req.SessionTime, st.newTranslator != nil); err != nil {
			return nil, err
		}
		st.statusChanged = true
		s.applyStatus(st, &update, target, req, now)
		changes = append(changes, domain.ChangeLogEntry{Field: domain.ChangeStatus, Old: string(job.Status), New: string(target)})
	}

	updated.AdminComments = comments
	if req.Reference != nil {
		updated.Reference = *req.Reference
	}
	updated.UpdatedAt = now

	if err := s.repo.ApplyUpdate(ctx, update); err != nil {
		return nil, fmt.Errorf("failed to update job %d: %w", jobID, err)
	}
	s.audit.LogUpdate(ctx, req.ActorID, jobID, changes)

	var n notes
	customer, err := s.repo.FindCustomer(ctx, job.UserID)
	if err != nil {
		n.add(fmt.Errorf("failed to load customer %d: %w", job.UserID, err))
		customer = nil
	}

	if st.statusChanged {
		s.notifyStatus(ctx, &n, st, customer)
	}
	// A job that already started or expired only gets status notifications.
	if updated.Due.After(now) {
		if st.dueChanged {
			s.notifyDueChanged(ctx, &n, st, customer)
		}
		if st.newTranslator != nil {
			s.notifyTranslatorChanged(ctx, &n, st, customer)
		}
		if st.langChanged {
			s.notifyLanguageChanged(ctx, &n, st, customer)
		}
	}

	return s.finish(ctx, "update", &updated, "Updated", &n), nil
}

// resolveTranslatorChange returns the new translator, or nil when the
// request does not really change who holds the job.
func (s *Service) resolveTranslatorChange(ctx context.Context, active *domain.Assignment, req UpdateRequest) (*domain.Translator, error) {
	targetID := req.TranslatorID
	if req.TranslatorEmail != "" {
		t, err := s.repo.FindTranslatorByEmail(ctx, req.TranslatorEmail)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve translator %q: %w", req.TranslatorEmail, err)
		}
		targetID = t.ID
	}
	if targetID == 0 {
		return nil, nil
	}
	if active != nil && active.TranslatorID == targetID {
		return nil, nil
	}

	t, err := s.repo.FindTranslator(ctx, targetID)
	if err != nil {
		return nil, fmt.Errorf("failed to load translator %d: %w", targetID, err)
	}
	return t, nil
}

func (s *Service) applyStatus(st *updateState, update *domain.JobUpdate, target domain.JobStatus, req UpdateRequest, now time.Time) {
	job := st.after
	from := st.before.Status
	job.Status = target

	switch {
	case from == domain.JobStatusTimedOut && target == domain.JobStatusPending:
		job.CreatedAt = now
		job.EmailSent = false
		job.PartnerEmailSent = false
		job.WillExpireAt = s.clock.WillExpireAt(job.Due, now)

	case from == domain.JobStatusStarted && target == domain.JobStatusCompleted:
		end := now
		job.EndAt = &end
		job.SessionTime = req.SessionTime
		update.CompletedBy = req.ActorID
		if st.newTranslator != nil {
			update.CompleteNew = true
		} else if st.assignment != nil {
			update.CompleteAssignmentID = st.assignment.ID
		}
	}
}

// holder is the translator holding the job after the update
func (st *updateState) holder() *domain.Translator {
	if st.newTranslator != nil {
		return st.newTranslator
	}
	return st.current
}

func (s *Service) notifyStatus(ctx context.Context, n *notes, st *updateState, customer *domain.Customer) {
	job := st.after
	from, to := st.before.Status, job.Status
	language := s.languageName(ctx, job.FromLanguageID)

	switch from {
	case domain.JobStatusTimedOut:
		if to == domain.JobStatusPending {
			if customer != nil {
				subject := fmt.Sprintf("We have reopened your booking of a %s interpreter, booking #%d", language, job.ID)
				n.add(s.emailCustomer(ctx, job, customer, subject, notify.TemplateStatusChangedToCustomer, nil))
			}
			n.push(s.notifier.Dispatch(ctx, notify.BookingEvent(job, language), job, notify.EligibleTranslators(0)))
			return
		}
		if customer != nil {
			subject := fmt.Sprintf("Confirmation - an interpreter has accepted your booking (booking #%d)", job.ID)
			n.add(s.emailCustomer(ctx, job, customer, subject, notify.TemplateJobAccepted, nil))
		}

	case domain.JobStatusPending:
		if to == domain.JobStatusAssigned && st.newTranslator != nil {
			recipients := []domain.User{st.newTranslator}
			if customer != nil {
				subject := fmt.Sprintf("Confirmation - an interpreter has accepted your booking (booking #%d)", job.ID)
				n.add(s.emailCustomer(ctx, job, customer, subject, notify.TemplateJobAccepted, nil))
				recipients = append(recipients, customer)
			}
			n.push(s.notifier.Dispatch(ctx, notify.SessionStartRemindEvent(job, language), job, notify.Recipients(recipients...)))
			return
		}
		if customer != nil {
			subject := fmt.Sprintf("Your booking #%d has changed status to %s", job.ID, to)
			n.add(s.emailCustomer(ctx, job, customer, subject, notify.TemplateStatusChangedCustomer, nil))
		}

	case domain.JobStatusAssigned:
		subject := fmt.Sprintf("Your booking #%d has been cancelled", job.ID)
		if customer != nil {
			n.add(s.emailCustomer(ctx, job, customer, subject, notify.TemplateStatusChangedCustomer, nil))
		}
		if t := st.holder(); t != nil {
			n.add(s.emailTranslator(ctx, job, t, subject, notify.TemplateCancelTranslator, nil))
		}

	case domain.JobStatusStarted:
		s.notifySessionEnded(ctx, n, job, customer, st.holder())
	}
}

// notifySessionEnded sends the invoice text to the customer and the payroll text to the translator.
func (s *Service) notifySessionEnded(ctx context.Context, n *notes, job *domain.Job, customer *domain.Customer, translator *domain.Translator) {
	subject := fmt.Sprintf("Information about finished interpretation for booking #%d", job.ID)
	if customer != nil {
		n.add(s.emailCustomer(ctx, job, customer, subject, notify.TemplateSessionEnded, map[string]string{
			"session_time": job.SessionTime,
			"for_text":     "invoice",
		}))
	}
	if translator != nil {
		n.add(s.emailTranslator(ctx, job, translator, subject, notify.TemplateSessionEnded, map[string]string{
			"session_time": job.SessionTime,
			"for_text":     "payroll",
		}))
	}
}

func (s *Service) notifyDueChanged(ctx context.Context, n *notes, st *updateState, customer *domain.Customer) {
	job := st.after
	subject := fmt.Sprintf("The time of your interpreter booking #%d has changed", job.ID)
	extra := map[string]string{"old_due": st.before.Due.Format("2006-01-02 15:04")}
	if customer != nil {
		n.add(s.emailCustomer(ctx, job, customer, subject, notify.TemplateDateChanged, extra))
	}
	if t := st.holder(); t != nil {
		n.add(s.emailTranslator(ctx, job, t, subject, notify.TemplateDateChanged, extra))
	}
}

func (s *Service) notifyTranslatorChanged(ctx context.Context, n *notes, st *updateState, customer *domain.Customer) {
	job := st.after
	subject := fmt.Sprintf("Interpreter changed for booking #%d", job.ID)
	extra := map[string]string{"translator_name": st.newTranslator.Name}
	if customer != nil {
		n.add(s.emailCustomer(ctx, job, customer, subject, notify.TemplateTranslatorChangedCustomer, extra))
	}
	if st.current != nil {
		n.add(s.emailTranslator(ctx, job, st.current, subject, notify.TemplateTranslatorChangedOld, nil))
	}
	n.add(s.emailTranslator(ctx, job, st.newTranslator, subject, notify.TemplateTranslatorChangedNew, nil))
}

func (s *Service) notifyLanguageChanged(ctx context.Context, n *notes, st *updateState, customer *domain.Customer) {
	job := st.after
	subject := fmt.Sprintf("The language of your booking #%d has changed", job.ID)
	extra := map[string]string{"old_language": s.languageName(ctx, st.before.FromLanguageID)}
	if customer != nil {
		n.add(s.emailCustomer(ctx, job, customer, subject, notify.TemplateLanguageChanged, extra))
	}
	if t := st.holder(); t != nil {
		n.add(s.emailTranslator(ctx, job, t, subject, notify.TemplateLanguageChanged, extra))
	}
}
