package lifecycle

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/interpreter-booking/internal/domain"
	"github.com/cuongbtq/interpreter-booking/internal/notify"
)

type recordingAudit struct {
	mu      sync.Mutex
	entries [][]domain.ChangeLogEntry
}

func (a *recordingAudit) LogUpdate(_ context.Context, _, _ int64, changes []domain.ChangeLogEntry) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, changes)
}

func (a *recordingAudit) last() []domain.ChangeLogEntry {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.entries) == 0 {
		return nil
	}
	return a.entries[len(a.entries)-1]
}

func fields(entries []domain.ChangeLogEntry) []domain.ChangeField {
	out := make([]domain.ChangeField, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Field)
	}
	return out
}

func withAudit(f *fixture) *recordingAudit {
	a := &recordingAudit{}
	f.svc.audit = a
	return a
}

func TestUpdateJob_ReassignmentKeepsHistory(t *testing.T) {
	f := newFixture(t)
	for id := int64(1); id <= 4; id++ {
		f.addTranslator(id, domain.TranslatorTypeProfessional, domain.Preferences{})
	}
	jobID := f.addJob(domain.JobStatusAssigned, f.now.Add(72*time.Hour))
	f.assign(jobID, 1)

	for _, next := range []int64{2, 3, 4} {
		_, err := f.svc.UpdateJob(context.Background(), jobID, UpdateRequest{ActorID: 50, TranslatorID: next})
		require.NoError(t, err)
	}

	rels := f.repo.assignmentsFor(jobID)
	require.Len(t, rels, 4)

	active := 0
	seen := map[int64]bool{}
	for _, r := range rels {
		seen[r.TranslatorID] = true
		if r.CancelAt == nil {
			active++
			assert.Equal(t, int64(4), r.TranslatorID)
		}
	}
	assert.Equal(t, 1, active)
	assert.Len(t, seen, 4)
	assert.Equal(t, domain.JobStatusAssigned, f.repo.job(jobID).Status)
}

func TestUpdateJob_SameTranslatorIsNotAChange(t *testing.T) {
	f := newFixture(t)
	audit := withAudit(f)
	f.addTranslator(1, domain.TranslatorTypeProfessional, domain.Preferences{})
	jobID := f.addJob(domain.JobStatusAssigned, f.now.Add(72*time.Hour))
	f.assign(jobID, 1)

	_, err := f.svc.UpdateJob(context.Background(), jobID, UpdateRequest{TranslatorID: 1})
	require.NoError(t, err)

	assert.Len(t, f.repo.assignmentsFor(jobID), 1)
	assert.Empty(t, audit.last())
	assert.Empty(t, f.rec.templates())
}

func TestUpdateJob_TranslatorByEmail(t *testing.T) {
	f := newFixture(t)
	audit := withAudit(f)
	f.addTranslator(1, domain.TranslatorTypeProfessional, domain.Preferences{})
	f.addTranslator(2, domain.TranslatorTypeProfessional, domain.Preferences{})
	jobID := f.addJob(domain.JobStatusAssigned, f.now.Add(72*time.Hour))
	f.assign(jobID, 1)

	_, err := f.svc.UpdateJob(context.Background(), jobID, UpdateRequest{TranslatorEmail: "TB@example.com"})
	require.NoError(t, err)

	assert.Equal(t, []domain.ChangeLogEntry{{Field: domain.ChangeTranslator, Old: "ta@example.com", New: "tb@example.com"}}, audit.last())
	assert.ElementsMatch(t, []string{
		notify.TemplateTranslatorChangedCustomer + " customer@example.com",
		notify.TemplateTranslatorChangedOld + " ta@example.com",
		notify.TemplateTranslatorChangedNew + " tb@example.com",
	}, f.rec.templates())
}

func TestUpdateJob_StatusGuards(t *testing.T) {
	tests := []struct {
		name     string
		from     domain.JobStatus
		req      UpdateRequest
		sentinel error
	}{
		{"started to completed needs session time", domain.JobStatusStarted,
			UpdateRequest{Status: domain.JobStatusCompleted, SessionTime: ""}, domain.ErrGuardFailed},
		{"completed to timedout needs comments", domain.JobStatusCompleted,
			UpdateRequest{Status: domain.JobStatusTimedOut}, domain.ErrGuardFailed},
		{"withdrawafter24 to timedout needs comments", domain.JobStatusWithdrawAfter24,
			UpdateRequest{Status: domain.JobStatusTimedOut, AdminComments: ptr("")}, domain.ErrGuardFailed},
		{"assigned to timedout needs comments", domain.JobStatusAssigned,
			UpdateRequest{Status: domain.JobStatusTimedOut}, domain.ErrGuardFailed},
		{"pending to timedout needs comments", domain.JobStatusPending,
			UpdateRequest{Status: domain.JobStatusTimedOut}, domain.ErrGuardFailed},
		{"timedout to assigned needs a translator", domain.JobStatusTimedOut,
			UpdateRequest{Status: domain.JobStatusAssigned}, domain.ErrGuardFailed},
		{"withdrawbefore24 is final", domain.JobStatusWithdrawBefore24,
			UpdateRequest{Status: domain.JobStatusPending}, domain.ErrTransitionNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.addTranslator(1, domain.TranslatorTypeProfessional, domain.Preferences{})
			jobID := f.addJob(tt.from, f.now.Add(72*time.Hour))
			f.assign(jobID, 1)

			_, err := f.svc.UpdateJob(context.Background(), jobID, tt.req)
			assert.ErrorIs(t, err, tt.sentinel)
			assert.ErrorAs(t, err, new(*domain.ConflictError))
			assert.Equal(t, tt.from, f.repo.job(jobID).Status)
			assert.Zero(t, f.repo.saves)
			assert.Empty(t, f.rec.templates())
		})
	}
}

func TestUpdateJob_UnknownStatus(t *testing.T) {
	f := newFixture(t)
	jobID := f.addJob(domain.JobStatusPending, f.now.Add(72*time.Hour))

	_, err := f.svc.UpdateJob(context.Background(), jobID, UpdateRequest{Status: "archived"})
	assert.ErrorIs(t, err, domain.ErrInvalidField)
}

func TestUpdateJob_StartedToCompleted(t *testing.T) {
	f := newFixture(t)
	f.addTranslator(1, domain.TranslatorTypeProfessional, domain.Preferences{})
	jobID := f.addJob(domain.JobStatusStarted, f.now.Add(-time.Hour))
	f.assign(jobID, 1)

	out, err := f.svc.UpdateJob(context.Background(), jobID, UpdateRequest{
		ActorID:     77,
		Status:      domain.JobStatusCompleted,
		SessionTime: "1:10:00",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCompleted, out.Job.Status)

	stored := f.repo.job(jobID)
	assert.Equal(t, "1:10:00", stored.SessionTime)
	require.NotNil(t, stored.EndAt)

	rels := f.repo.assignmentsFor(jobID)
	require.Len(t, rels, 1)
	require.NotNil(t, rels[0].CompletedBy)
	assert.Equal(t, int64(77), *rels[0].CompletedBy)

	// status notifications still fire for a job whose due has passed
	assert.ElementsMatch(t, []string{
		notify.TemplateSessionEnded + " customer@example.com",
		notify.TemplateSessionEnded + " ta@example.com",
	}, f.rec.templates())
}

func TestUpdateJob_CompletedToTimedOutWithComments(t *testing.T) {
	f := newFixture(t)
	audit := withAudit(f)
	jobID := f.addJob(domain.JobStatusCompleted, f.now.Add(-time.Hour))

	_, err := f.svc.UpdateJob(context.Background(), jobID, UpdateRequest{
		Status:        domain.JobStatusTimedOut,
		AdminComments: ptr("customer never called"),
	})
	require.NoError(t, err)

	stored := f.repo.job(jobID)
	assert.Equal(t, domain.JobStatusTimedOut, stored.Status)
	assert.Equal(t, "customer never called", stored.AdminComments)
	assert.Equal(t, []domain.ChangeField{domain.ChangeStatus}, fields(audit.last()))
}

func TestUpdateJob_ReopenTimedOut(t *testing.T) {
	f := newFixture(t)
	f.addTranslator(1, domain.TranslatorTypeProfessional, domain.Preferences{})
	jobID := f.addJob(domain.JobStatusTimedOut, f.now.Add(48*time.Hour))
	job := f.repo.jobs[jobID]
	job.EmailSent = true
	job.PartnerEmailSent = true
	f.repo.jobs[jobID] = job

	_, err := f.svc.UpdateJob(context.Background(), jobID, UpdateRequest{Status: domain.JobStatusPending})
	require.NoError(t, err)

	stored := f.repo.job(jobID)
	assert.Equal(t, domain.JobStatusPending, stored.Status)
	assert.Equal(t, f.now, stored.CreatedAt)
	assert.False(t, stored.EmailSent)
	assert.False(t, stored.PartnerEmailSent)
	assert.Equal(t, f.now.Add(16*time.Hour), stored.WillExpireAt)

	assert.Equal(t, []string{notify.TemplateStatusChangedToCustomer + " customer@example.com"}, f.rec.templates())
	assert.Equal(t, []string{"ta@example.com"}, f.rec.pushedTo(notify.TypeSuitableJob))
}

func TestUpdateJob_PendingToAssigned(t *testing.T) {
	f := newFixture(t)
	audit := withAudit(f)
	f.addTranslator(1, domain.TranslatorTypeProfessional, domain.Preferences{})
	jobID := f.addJob(domain.JobStatusPending, f.now.Add(48*time.Hour))

	_, err := f.svc.UpdateJob(context.Background(), jobID, UpdateRequest{
		Status:       domain.JobStatusAssigned,
		TranslatorID: 1,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.JobStatusAssigned, f.repo.job(jobID).Status)
	rels := f.repo.assignmentsFor(jobID)
	require.Len(t, rels, 1)
	assert.Equal(t, int64(1), rels[0].TranslatorID)

	assert.Equal(t, []domain.ChangeField{domain.ChangeTranslator, domain.ChangeStatus}, fields(audit.last()))
	assert.ElementsMatch(t, []string{"ta@example.com", "customer@example.com"}, f.rec.pushedTo(notify.TypeSessionStartRemind))
	assert.Contains(t, f.rec.templates(), notify.TemplateJobAccepted+" customer@example.com")
	assert.Contains(t, f.rec.templates(), notify.TemplateTranslatorChangedNew+" ta@example.com")
}

func TestUpdateJob_TranslatorOnPendingJobPromotesToAssigned(t *testing.T) {
	f := newFixture(t)
	f.addTranslator(1, domain.TranslatorTypeProfessional, domain.Preferences{})
	jobID := f.addJob(domain.JobStatusPending, f.now.Add(48*time.Hour))

	out, err := f.svc.UpdateJob(context.Background(), jobID, UpdateRequest{TranslatorID: 1})
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusAssigned, out.Job.Status)
}

func TestUpdateJob_AssignedToWithdraw(t *testing.T) {
	f := newFixture(t)
	f.addTranslator(1, domain.TranslatorTypeProfessional, domain.Preferences{})
	jobID := f.addJob(domain.JobStatusAssigned, f.now.Add(48*time.Hour))
	f.assign(jobID, 1)

	_, err := f.svc.UpdateJob(context.Background(), jobID, UpdateRequest{Status: domain.JobStatusWithdrawBefore24})
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{
		notify.TemplateStatusChangedCustomer + " customer@example.com",
		notify.TemplateCancelTranslator + " ta@example.com",
	}, f.rec.templates())
}

func TestUpdateJob_ChangeOrderAndNotifications(t *testing.T) {
	f := newFixture(t)
	audit := withAudit(f)
	f.addTranslator(1, domain.TranslatorTypeProfessional, domain.Preferences{})
	f.addTranslator(2, domain.TranslatorTypeProfessional, domain.Preferences{})
	jobID := f.addJob(domain.JobStatusAssigned, f.now.Add(48*time.Hour))
	f.assign(jobID, 1)

	_, err := f.svc.UpdateJob(context.Background(), jobID, UpdateRequest{
		TranslatorID:   2,
		Due:            f.now.Add(50 * time.Hour),
		FromLanguageID: 6,
		Status:         domain.JobStatusWithdrawAfter24,
		Reference:      ptr("PO-7"),
	})
	require.NoError(t, err)

	assert.Equal(t, []domain.ChangeField{
		domain.ChangeTranslator,
		domain.ChangeDue,
		domain.ChangeLanguage,
		domain.ChangeStatus,
	}, fields(audit.last()))

	stored := f.repo.job(jobID)
	assert.Equal(t, f.now.Add(50*time.Hour), stored.Due)
	assert.Equal(t, int64(6), stored.FromLanguageID)
	assert.Equal(t, "PO-7", stored.Reference)

	templates := f.rec.templates()
	assert.Contains(t, templates, notify.TemplateDateChanged+" customer@example.com")
	assert.Contains(t, templates, notify.TemplateDateChanged+" tb@example.com")
	assert.Contains(t, templates, notify.TemplateLanguageChanged+" customer@example.com")
	assert.Contains(t, templates, notify.TemplateTranslatorChangedOld+" ta@example.com")
}

func TestUpdateJob_PastDueSavesWithoutChangeNotifications(t *testing.T) {
	f := newFixture(t)
	f.addTranslator(1, domain.TranslatorTypeProfessional, domain.Preferences{})
	jobID := f.addJob(domain.JobStatusAssigned, f.now.Add(time.Hour))
	f.assign(jobID, 1)

	_, err := f.svc.UpdateJob(context.Background(), jobID, UpdateRequest{
		Due:            f.now.Add(-time.Minute),
		FromLanguageID: 6,
	})
	require.NoError(t, err)

	stored := f.repo.job(jobID)
	assert.Equal(t, f.now.Add(-time.Minute), stored.Due)
	assert.Equal(t, int64(6), stored.FromLanguageID)
	assert.Equal(t, 1, f.repo.saves)
	assert.Empty(t, f.rec.templates())
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(domain.JobStatusPending, domain.JobStatusAssigned))
	assert.True(t, CanTransition(domain.JobStatusPending, domain.JobStatusCompleted))
	assert.False(t, CanTransition(domain.JobStatusPending, domain.JobStatusPending))
	assert.True(t, CanTransition(domain.JobStatusTimedOut, domain.JobStatusPending))
	assert.False(t, CanTransition(domain.JobStatusCompleted, domain.JobStatusPending))
	assert.False(t, CanTransition(domain.JobStatusNotCarriedOutCustomer, domain.JobStatusAssigned))
}

func TestUpdateJob_PendingAdminOverride(t *testing.T) {
	tests := []struct {
		name string
		req  UpdateRequest
	}{
		{"started", UpdateRequest{Status: domain.JobStatusStarted}},
		{"completed", UpdateRequest{Status: domain.JobStatusCompleted}},
		{"not carried out by customer", UpdateRequest{Status: domain.JobStatusNotCarriedOutCustomer}},
		{"assigned without a translator", UpdateRequest{Status: domain.JobStatusAssigned}},
		{"withdrawbefore24", UpdateRequest{Status: domain.JobStatusWithdrawBefore24}},
		{"timedout with comments", UpdateRequest{Status: domain.JobStatusTimedOut, AdminComments: ptr("no interpreter found")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			jobID := f.addJob(domain.JobStatusPending, f.now.Add(72*time.Hour))

			out, err := f.svc.UpdateJob(context.Background(), jobID, tt.req)
			require.NoError(t, err)
			assert.Equal(t, tt.req.Status, out.Job.Status)
			assert.Equal(t, tt.req.Status, f.repo.job(jobID).Status)
			assert.Empty(t, f.repo.assignmentsFor(jobID))
			assert.Equal(t, []string{notify.TemplateStatusChangedCustomer + " customer@example.com"}, f.rec.templates())
			assert.Empty(t, f.rec.pushTypes())
		})
	}
}

func TestUpdateJob_ConcurrentAcceptWins(t *testing.T) {
	f := newFixture(t)
	f.addTranslator(1, domain.TranslatorTypeProfessional, domain.Preferences{})
	jobID := f.addJob(domain.JobStatusPending, f.now.Add(72*time.Hour))

	f.repo.beforeWrite = func() {
		_, err := f.repo.AcceptJob(context.Background(), jobID, 1, f.now)
		require.NoError(t, err)
	}

	_, err := f.svc.UpdateJob(context.Background(), jobID, UpdateRequest{Due: f.now.Add(80 * time.Hour)})
	assert.ErrorIs(t, err, domain.ErrJobChanged)
	assert.ErrorAs(t, err, new(*domain.ConflictError))

	stored := f.repo.job(jobID)
	assert.Equal(t, domain.JobStatusAssigned, stored.Status)
	assert.Equal(t, f.now.Add(72*time.Hour), stored.Due)
	assert.Empty(t, f.rec.templates())
}
