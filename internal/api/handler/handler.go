package handler

import (
	"context"
	"log/slog"

	"github.com/cuongbtq/interpreter-booking/internal/domain"
	"github.com/cuongbtq/interpreter-booking/internal/intake"
	"github.com/cuongbtq/interpreter-booking/internal/lifecycle"
	"github.com/cuongbtq/interpreter-booking/internal/storage"
)

// Bookings is the lifecycle service surface exposed over HTTP
type Bookings interface {
	CreateBooking(ctx context.Context, requester domain.User, in intake.Input) (*lifecycle.Outcome, error)
	AcceptJob(ctx context.Context, jobID, translatorID int64) (*lifecycle.Outcome, error)
	UpdateJob(ctx context.Context, jobID int64, req lifecycle.UpdateRequest) (*lifecycle.Outcome, error)
	CancelJob(ctx context.Context, jobID int64, actor domain.User) (*lifecycle.Outcome, error)
	EndSession(ctx context.Context, jobID int64, actor domain.User) (*lifecycle.Outcome, error)
	CustomerNoShow(ctx context.Context, jobID int64) (*lifecycle.Outcome, error)
	ResendNotifications(ctx context.Context, jobID int64) (*lifecycle.Outcome, error)
	ResendSMS(ctx context.Context, jobID int64) (*lifecycle.Outcome, error)
	NotifyExpired(ctx context.Context, jobID int64) (*lifecycle.Outcome, error)
}

// Eligibility answers both directions of the matching query
type Eligibility interface {
	EligibleTranslators(ctx context.Context, job *domain.Job, excludeID int64) ([]*domain.Translator, error)
	EligibleJobs(ctx context.Context, translatorID int64) ([]*domain.Job, error)
}

// Store is the read side used directly by handlers
type Store interface {
	FindUser(ctx context.Context, id int64) (domain.User, error)
	FindJob(ctx context.Context, id int64) (*domain.Job, error)
	ListJobs(ctx context.Context, filter storage.JobFilter) ([]*domain.Job, error)
	Assignments(ctx context.Context, jobID int64) ([]domain.Assignment, error)
}

// HealthChecker reports whether a backing service is reachable
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger      *slog.Logger
	Bookings    Bookings
	Eligibility Eligibility
	Store       Store
	Health      HealthChecker
}

// JobHandler handles booking HTTP requests
type JobHandler struct {
	logger      *slog.Logger
	bookings    Bookings
	eligibility Eligibility
	store       Store
}

// NewJobHandler creates a new JobHandler instance
func NewJobHandler(deps *Dependencies) *JobHandler {
	return &JobHandler{
		logger:      deps.Logger,
		bookings:    deps.Bookings,
		eligibility: deps.Eligibility,
		store:       deps.Store,
	}
}
