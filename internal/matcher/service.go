package matcher

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/interpreter-booking/internal/domain"
)

// Repository loads the data both eligibility queries need
type Repository interface {
	FindCustomer(ctx context.Context, id int64) (*domain.Customer, error)
	FindTranslator(ctx context.Context, id int64) (*domain.Translator, error)
	ListTranslators(ctx context.Context, translatorType domain.TranslatorType, languageID int64) ([]*domain.Translator, error)
	ListOpenJobs(ctx context.Context, jobType domain.JobType, languageIDs []int64) ([]*domain.Job, error)
	FindCustomers(ctx context.Context, ids []int64) (map[int64]*domain.Customer, error)
}

// Service answers eligibility queries against the repository
type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// EligibleTranslators returns translators that may be offered the job, minus excludeID.
func (s *Service) EligibleTranslators(ctx context.Context, job *domain.Job, excludeID int64) ([]*domain.Translator, error) {
	translatorType, ok := domain.TranslatorTypeFor(job.JobType)
	if !ok {
		return nil, fmt.Errorf("job %d has no translator type for job type %q", job.ID, job.JobType)
	}

	customer, err := s.repo.FindCustomer(ctx, job.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load customer for job %d: %w", job.ID, err)
	}

	pool, err := s.repo.ListTranslators(ctx, translatorType, job.FromLanguageID)
	if err != nil {
		return nil, fmt.Errorf("failed to list translators: %w", err)
	}

	if excludeID != 0 {
		filtered := make([]*domain.Translator, 0, len(pool))
		for _, t := range pool {
			if t.ID != excludeID {
				filtered = append(filtered, t)
			}
		}
		pool = filtered
	}

	eligible := FindEligibleTranslators(job, customer, pool)
	s.logger.DebugContext(ctx, "Resolved eligible translators",
		"job_id", job.ID,
		"pool", len(pool),
		"eligible", len(eligible),
	)
	return eligible, nil
}

// EligibleJobs returns the open jobs the translator may accept.
func (s *Service) EligibleJobs(ctx context.Context, translatorID int64) ([]*domain.Job, error) {
	translator, err := s.repo.FindTranslator(ctx, translatorID)
	if err != nil {
		return nil, err
	}

	jobType, ok := domain.JobTypeForTranslator(translator.Type)
	if !ok {
		return nil, fmt.Errorf("translator %d has unknown type %q", translatorID, translator.Type)
	}

	jobs, err := s.repo.ListOpenJobs(ctx, jobType, translator.Languages)
	if err != nil {
		return nil, fmt.Errorf("failed to list open jobs: %w", err)
	}
	if len(jobs) == 0 {
		return []*domain.Job{}, nil
	}

	ownerIDs := make([]int64, 0, len(jobs))
	for _, j := range jobs {
		ownerIDs = append(ownerIDs, j.UserID)
	}
	owners, err := s.repo.FindCustomers(ctx, ownerIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load job owners: %w", err)
	}

	candidates := make([]Candidate, 0, len(jobs))
	for _, j := range jobs {
		candidates = append(candidates, Candidate{Job: j, Customer: owners[j.UserID]})
	}
	return FindEligibleJobs(translator, candidates), nil
}
