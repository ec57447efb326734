package lifecycle

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cuongbtq/interpreter-booking/internal/clock"
	"github.com/cuongbtq/interpreter-booking/internal/domain"
	"github.com/cuongbtq/interpreter-booking/internal/intake"
	"github.com/cuongbtq/interpreter-booking/internal/matcher"
	"github.com/cuongbtq/interpreter-booking/internal/notify"
)

// memRepo is an in-memory repository. Its mutex plays the storage transaction.
type memRepo struct {
	mu          sync.Mutex
	jobs        map[int64]domain.Job
	assignments []domain.Assignment
	customers   map[int64]*domain.Customer
	translators map[int64]*domain.Translator
	languages   map[int64]string
	nextJobID   int64
	nextRelID   int64
	saves       int
	// beforeWrite runs ahead of ApplyUpdate, outside the lock, to interleave another writer.
	beforeWrite func()
}

func newMemRepo() *memRepo {
	return &memRepo{
		jobs:        make(map[int64]domain.Job),
		customers:   make(map[int64]*domain.Customer),
		translators: make(map[int64]*domain.Translator),
		languages:   map[int64]string{5: "Swedish", 6: "Arabic"},
		nextJobID:   1,
		nextRelID:   1,
	}
}

func (r *memRepo) FindJob(_ context.Context, id int64) (*domain.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return nil, domain.NewNotFound("job", id)
	}
	return &j, nil
}

func (r *memRepo) CreateJob(_ context.Context, job *domain.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job.ID = r.nextJobID
	r.nextJobID++
	r.jobs[job.ID] = *job
	return nil
}

// checkStatusLocked mirrors the conditional UPDATE of the Postgres store
func (r *memRepo) checkStatusLocked(jobID int64, from domain.JobStatus) error {
	stored, ok := r.jobs[jobID]
	if !ok {
		return domain.NewNotFound("job", jobID)
	}
	if stored.Status != from {
		return domain.NewConflict(domain.ErrJobChanged, "the booking was changed by someone else")
	}
	return nil
}

func (r *memRepo) activeLocked(jobID int64) *domain.Assignment {
	for i := range r.assignments {
		if r.assignments[i].JobID == jobID && r.assignments[i].CancelAt == nil {
			return &r.assignments[i]
		}
	}
	return nil
}

func (r *memRepo) ActiveAssignment(_ context.Context, jobID int64) (*domain.Assignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a := r.activeLocked(jobID); a != nil {
		cp := *a
		return &cp, nil
	}
	return nil, nil
}

func (r *memRepo) insertLocked(jobID, translatorID int64, at time.Time) domain.Assignment {
	a := domain.Assignment{ID: r.nextRelID, JobID: jobID, TranslatorID: translatorID, CreatedAt: at}
	r.nextRelID++
	r.assignments = append(r.assignments, a)
	return a
}

func (r *memRepo) AcceptJob(_ context.Context, jobID, translatorID int64, at time.Time) (*domain.Assignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[jobID]
	if !ok {
		return nil, domain.NewNotFound("job", jobID)
	}
	for _, a := range r.assignments {
		if a.TranslatorID != translatorID || a.CancelAt != nil || a.JobID == jobID {
			continue
		}
		if other := r.jobs[a.JobID]; other.Due.Equal(job.Due) {
			return nil, domain.ErrTranslatorBusy
		}
	}
	if job.Status != domain.JobStatusPending || r.activeLocked(jobID) != nil {
		return nil, domain.ErrJobTaken
	}

	job.Status = domain.JobStatusAssigned
	job.UpdatedAt = at
	r.jobs[jobID] = job
	a := r.insertLocked(jobID, translatorID, at)
	return &a, nil
}

func (r *memRepo) ApplyUpdate(_ context.Context, u domain.JobUpdate) error {
	if r.beforeWrite != nil {
		r.beforeWrite()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkStatusLocked(u.Job.ID, u.From); err != nil {
		return err
	}
	r.jobs[u.Job.ID] = *u.Job
	r.saves++
	for i := range r.assignments {
		if u.CancelAssignmentID != 0 && r.assignments[i].ID == u.CancelAssignmentID {
			at := u.At
			r.assignments[i].CancelAt = &at
		}
	}
	var created int64
	if u.NewTranslatorID != 0 {
		created = r.insertLocked(u.Job.ID, u.NewTranslatorID, u.At).ID
	}
	complete := u.CompleteAssignmentID
	if u.CompleteNew {
		complete = created
	}
	for i := range r.assignments {
		if complete != 0 && r.assignments[i].ID == complete {
			at, by := u.At, u.CompletedBy
			r.assignments[i].CompletedAt = &at
			r.assignments[i].CompletedBy = &by
		}
	}
	return nil
}

func (r *memRepo) ReleaseJob(_ context.Context, job *domain.Job, from domain.JobStatus, assignmentID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkStatusLocked(job.ID, from); err != nil {
		return err
	}
	r.jobs[job.ID] = *job
	r.saves++
	kept := r.assignments[:0]
	for _, a := range r.assignments {
		if a.ID != assignmentID {
			kept = append(kept, a)
		}
	}
	r.assignments = kept
	return nil
}

func (r *memRepo) FindCustomer(_ context.Context, id int64) (*domain.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.customers[id]
	if !ok {
		return nil, domain.NewNotFound("customer", id)
	}
	return c, nil
}

func (r *memRepo) FindCustomers(ctx context.Context, ids []int64) (map[int64]*domain.Customer, error) {
	out := make(map[int64]*domain.Customer)
	for _, id := range ids {
		if c, err := r.FindCustomer(ctx, id); err == nil {
			out[id] = c
		}
	}
	return out, nil
}

func (r *memRepo) FindTranslator(_ context.Context, id int64) (*domain.Translator, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.translators[id]
	if !ok {
		return nil, domain.NewNotFound("translator", id)
	}
	return t, nil
}

func (r *memRepo) FindTranslatorByEmail(_ context.Context, email string) (*domain.Translator, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.translators {
		if strings.EqualFold(t.Email, email) {
			return t, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memRepo) ListTranslators(_ context.Context, tt domain.TranslatorType, languageID int64) ([]*domain.Translator, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Translator
	for id := int64(1); id <= 1000; id++ {
		t, ok := r.translators[id]
		if ok && t.Type == tt && t.SpeaksLanguage(languageID) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *memRepo) ListOpenJobs(_ context.Context, jt domain.JobType, _ []int64) ([]*domain.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Job
	for _, j := range r.jobs {
		if j.JobType == jt && j.Status == domain.JobStatusPending {
			cp := j
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memRepo) LanguageName(_ context.Context, id int64) (string, error) {
	name, ok := r.languages[id]
	if !ok {
		return "", domain.ErrNotFound
	}
	return name, nil
}

func (r *memRepo) assignmentsFor(jobID int64) []domain.Assignment {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Assignment
	for _, a := range r.assignments {
		if a.JobID == jobID {
			out = append(out, a)
		}
	}
	return out
}

func (r *memRepo) job(id int64) domain.Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.jobs[id]
}

// recorder captures every outbound message
type recorder struct {
	mu      sync.Mutex
	emails  []notify.Email
	sms     []notify.SMS
	pushes  []notify.Push
	pushErr error
}

func (r *recorder) SendEmail(_ context.Context, e notify.Email) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.emails = append(r.emails, e)
	return nil
}

func (r *recorder) SendSMS(_ context.Context, s notify.SMS) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sms = append(r.sms, s)
	return nil
}

func (r *recorder) SendPush(_ context.Context, p notify.Push) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pushErr != nil {
		return r.pushErr
	}
	r.pushes = append(r.pushes, p)
	return nil
}

func (r *recorder) templates() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.emails))
	for _, e := range r.emails {
		out = append(out, e.Template+" "+e.To)
	}
	return out
}

func (r *recorder) pushTypes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.pushes))
	for _, p := range r.pushes {
		out = append(out, p.Payload.NotificationType)
	}
	return out
}

// pushedTo returns every email addressed by pushes of the given type
func (r *recorder) pushedTo(notificationType string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, p := range r.pushes {
		if p.Payload.NotificationType != notificationType {
			continue
		}
		for _, tag := range p.Tags {
			if tag.Key == "email" {
				out = append(out, tag.Value)
			}
		}
	}
	return out
}

type fixture struct {
	svc  *Service
	repo *memRepo
	rec  *recorder
	now  time.Time
}

var errPushDown = errors.New("push vendor unavailable")

func newFixture(t *testing.T) *fixture {
	t.Helper()

	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	clk := clock.New(clock.DefaultConfig()).WithNow(func() time.Time { return now })
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := newMemRepo()
	rec := &recorder{}

	finder := matcher.NewService(repo, logger)
	dispatcher := notify.NewDispatcher(notify.Config{Title: "Interpreter Booking", SMSFrom: "+46000"}, notify.Dependencies{
		Mailer: rec,
		SMS:    rec,
		Push:   rec,
		Clock:  clk,
		Finder: finder,
		Logger: logger,
	})

	svc := NewService(Dependencies{
		Repo:      repo,
		Validator: intake.NewValidator(clk, 0),
		Notifier:  dispatcher,
		Clock:     clk,
		Logger:    logger,
	})

	repo.customers[100] = &domain.Customer{
		ID:           100,
		ConsumerType: domain.ConsumerTypePaid,
		City:         "Uppsala",
		Contact:      domain.Contact{Name: "Customer", Email: "customer@example.com", Mobile: "+46100"},
	}
	return &fixture{svc: svc, repo: repo, rec: rec, now: now}
}

func (f *fixture) addTranslator(id int64, tt domain.TranslatorType, prefs domain.Preferences) *domain.Translator {
	t := &domain.Translator{
		ID:          id,
		Type:        tt,
		Level:       domain.LevelCertified,
		Gender:      domain.GenderFemale,
		Languages:   []int64{5},
		Towns:       []string{"Uppsala"},
		Contact:     domain.Contact{Name: "T", Email: "t" + string(rune('a'+id-1)) + "@example.com", Mobile: "+4670" + string(rune('0'+id%10))},
		Preferences: prefs,
	}
	f.repo.translators[id] = t
	return t
}

// addJob stores a job owned by customer 100 and returns its id
func (f *fixture) addJob(status domain.JobStatus, due time.Time) int64 {
	job := &domain.Job{
		UserID:            100,
		FromLanguageID:    5,
		JobType:           domain.JobTypePaid,
		Due:               due,
		Duration:          60,
		CustomerPhoneType: domain.Yes,
		Status:            status,
		CreatedAt:         f.now.Add(-time.Hour),
	}
	_ = f.repo.CreateJob(context.Background(), job)
	return job.ID
}

// assign gives the job to the translator directly in the repository
func (f *fixture) assign(jobID, translatorID int64) {
	f.repo.mu.Lock()
	defer f.repo.mu.Unlock()
	f.repo.insertLocked(jobID, translatorID, f.now.Add(-time.Minute))
}
