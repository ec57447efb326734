package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cuongbtq/interpreter-booking/internal/domain"
	"github.com/cuongbtq/interpreter-booking/internal/intake"
	"github.com/cuongbtq/interpreter-booking/internal/notify"
)

// Repository is the persistence the state machine needs
type Repository interface {
	FindJob(ctx context.Context, id int64) (*domain.Job, error)
	CreateJob(ctx context.Context, job *domain.Job) error
	ActiveAssignment(ctx context.Context, jobID int64) (*domain.Assignment, error)
	// AcceptJob checks the translator is free at the job's due time, moves the
	// job from pending to assigned and creates the assignment, atomically.
	AcceptJob(ctx context.Context, jobID, translatorID int64, at time.Time) (*domain.Assignment, error)
	// ApplyUpdate and ReleaseJob write only while the stored status equals
	// the one the caller read, else they fail with domain.ErrJobChanged.
	ApplyUpdate(ctx context.Context, update domain.JobUpdate) error
	// ReleaseJob saves the job and hard-deletes the assignment.
	ReleaseJob(ctx context.Context, job *domain.Job, from domain.JobStatus, assignmentID int64) error
	FindCustomer(ctx context.Context, id int64) (*domain.Customer, error)
	FindTranslator(ctx context.Context, id int64) (*domain.Translator, error)
	FindTranslatorByEmail(ctx context.Context, email string) (*domain.Translator, error)
	LanguageName(ctx context.Context, id int64) (string, error)
}

// Notifier is the notification dispatcher
type Notifier interface {
	Dispatch(ctx context.Context, ev notify.Event, job *domain.Job, audience notify.Audience) (int, error)
	BroadcastSMS(ctx context.Context, job *domain.Job, customer *domain.Customer) (int, error)
	Email(ctx context.Context, to domain.User, subject, template string, data map[string]string) error
	EmailAddress(ctx context.Context, address, name, subject, template string, data map[string]string) error
}

type Clock interface {
	Now() time.Time
	WillExpireAt(due, createdAt time.Time) time.Time
}

// Outcome is the result of a committed operation. NotifyErr holds transport
// failures that happened after the state change was persisted.
type Outcome struct {
	Job       *domain.Job
	Message   string
	Notified  int
	NotifyErr error
}

// Dependencies holds the service collaborators
type Dependencies struct {
	Repo      Repository
	Validator *intake.Validator
	Notifier  Notifier
	Clock     Clock
	Audit     AuditLogger
	Logger    *slog.Logger
}

// Service runs the booking lifecycle
type Service struct {
	repo      Repository
	validator *intake.Validator
	notifier  Notifier
	clock     Clock
	audit     AuditLogger
	logger    *slog.Logger
}

func NewService(deps Dependencies) *Service {
	audit := deps.Audit
	if audit == nil {
		audit = NewSlogAudit(deps.Logger)
	}
	return &Service{
		repo:      deps.Repo,
		validator: deps.Validator,
		notifier:  deps.Notifier,
		clock:     deps.Clock,
		audit:     audit,
		logger:    deps.Logger,
	}
}

func (s *Service) findJob(ctx context.Context, id int64) (*domain.Job, error) {
	job, err := s.repo.FindJob(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load job %d: %w", id, err)
	}
	return job, nil
}

func (s *Service) languageName(ctx context.Context, id int64) string {
	name, err := s.repo.LanguageName(ctx, id)
	if err != nil || name == "" {
		return fmt.Sprintf("#%d", id)
	}
	return name
}

// customerAddress honours the per-job email override.
func customerAddress(job *domain.Job, customer *domain.Customer) (string, string) {
	if job.UserEmail != "" {
		return job.UserEmail, customer.Name
	}
	return customer.Email, customer.Name
}

// notes collects best-effort notification results for one operation
type notes struct {
	count int
	errs  []error
}

func (n *notes) push(count int, err error) {
	n.count += count
	if err != nil {
		n.errs = append(n.errs, err)
	}
}

func (n *notes) add(err error) {
	if err != nil {
		n.errs = append(n.errs, err)
	}
}

func (n *notes) err() error {
	return errors.Join(n.errs...)
}

func (s *Service) finish(ctx context.Context, op string, job *domain.Job, message string, n *notes) *Outcome {
	out := &Outcome{Job: job, Message: message, Notified: n.count, NotifyErr: n.err()}
	if out.NotifyErr != nil {
		s.logger.WarnContext(ctx, "Notifications failed after state change",
			"operation", op,
			"job_id", job.ID,
			"notified", n.count,
			"error", out.NotifyErr,
		)
	}
	return out
}

func (s *Service) emailCustomer(ctx context.Context, job *domain.Job, customer *domain.Customer, subject, template string, extra map[string]string) error {
	address, name := customerAddress(job, customer)
	data := notify.JobData(job, name)
	for k, v := range extra {
		data[k] = v
	}
	return s.notifier.EmailAddress(ctx, address, name, subject, template, data)
}

func (s *Service) emailTranslator(ctx context.Context, job *domain.Job, translator *domain.Translator, subject, template string, extra map[string]string) error {
	data := notify.JobData(job, translator.Name)
	for k, v := range extra {
		data[k] = v
	}
	return s.notifier.Email(ctx, translator, subject, template, data)
}

// activeTranslator loads the translator of the active assignment. Both are nil when unassigned.
func (s *Service) activeTranslator(ctx context.Context, jobID int64) (*domain.Assignment, *domain.Translator, error) {
	assignment, err := s.repo.ActiveAssignment(ctx, jobID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load assignment for job %d: %w", jobID, err)
	}
	if assignment == nil {
		return nil, nil, nil
	}
	translator, err := s.repo.FindTranslator(ctx, assignment.TranslatorID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load translator %d: %w", assignment.TranslatorID, err)
	}
	return assignment, translator, nil
}
