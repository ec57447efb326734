package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cuongbtq/interpreter-booking/internal/api/handler"
	"github.com/cuongbtq/interpreter-booking/internal/domain"
	"github.com/cuongbtq/interpreter-booking/internal/intake"
	"github.com/cuongbtq/interpreter-booking/internal/lifecycle"
	"github.com/cuongbtq/interpreter-booking/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

type fakeStore struct {
	users   map[int64]domain.User
	jobs    map[int64]*domain.Job
	list    []*domain.Job
	history map[int64][]domain.Assignment
	filter  storage.JobFilter
}

func (s *fakeStore) FindUser(_ context.Context, id int64) (domain.User, error) {
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return nil, domain.NewNotFound("user", id)
}

func (s *fakeStore) FindJob(_ context.Context, id int64) (*domain.Job, error) {
	if j, ok := s.jobs[id]; ok {
		return j, nil
	}
	return nil, domain.NewNotFound("job", id)
}

func (s *fakeStore) ListJobs(_ context.Context, filter storage.JobFilter) ([]*domain.Job, error) {
	s.filter = filter
	return s.list, nil
}

func (s *fakeStore) Assignments(_ context.Context, jobID int64) ([]domain.Assignment, error) {
	return s.history[jobID], nil
}

type fakeBookings struct {
	err        error
	lastActor  domain.User
	lastJobID  int64
	lastInput  intake.Input
	lastUpdate lifecycle.UpdateRequest
	acceptedBy int64
}

func (b *fakeBookings) outcome(jobID int64) (*lifecycle.Outcome, error) {
	b.lastJobID = jobID
	if b.err != nil {
		return nil, b.err
	}
	return &lifecycle.Outcome{Job: &domain.Job{ID: jobID, Status: domain.JobStatusAssigned, Due: testNow}, Message: "ok", Notified: 1}, nil
}

func (b *fakeBookings) CreateBooking(_ context.Context, requester domain.User, in intake.Input) (*lifecycle.Outcome, error) {
	b.lastActor, b.lastInput = requester, in
	return b.outcome(99)
}

func (b *fakeBookings) AcceptJob(_ context.Context, jobID, translatorID int64) (*lifecycle.Outcome, error) {
	b.acceptedBy = translatorID
	return b.outcome(jobID)
}

func (b *fakeBookings) UpdateJob(_ context.Context, jobID int64, req lifecycle.UpdateRequest) (*lifecycle.Outcome, error) {
	b.lastUpdate = req
	return b.outcome(jobID)
}

func (b *fakeBookings) CancelJob(_ context.Context, jobID int64, actor domain.User) (*lifecycle.Outcome, error) {
	b.lastActor = actor
	return b.outcome(jobID)
}

func (b *fakeBookings) EndSession(_ context.Context, jobID int64, actor domain.User) (*lifecycle.Outcome, error) {
	b.lastActor = actor
	return b.outcome(jobID)
}

func (b *fakeBookings) CustomerNoShow(_ context.Context, jobID int64) (*lifecycle.Outcome, error) {
	return b.outcome(jobID)
}

func (b *fakeBookings) ResendNotifications(_ context.Context, jobID int64) (*lifecycle.Outcome, error) {
	return b.outcome(jobID)
}

func (b *fakeBookings) ResendSMS(_ context.Context, jobID int64) (*lifecycle.Outcome, error) {
	return b.outcome(jobID)
}

func (b *fakeBookings) NotifyExpired(_ context.Context, jobID int64) (*lifecycle.Outcome, error) {
	return b.outcome(jobID)
}

type fakeEligibility struct {
	jobs        []*domain.Job
	translators []*domain.Translator
}

func (e *fakeEligibility) EligibleTranslators(_ context.Context, _ *domain.Job, _ int64) ([]*domain.Translator, error) {
	return e.translators, nil
}

func (e *fakeEligibility) EligibleJobs(_ context.Context, _ int64) ([]*domain.Job, error) {
	return e.jobs, nil
}

type testAPI struct {
	engine   *gin.Engine
	store    *fakeStore
	bookings *fakeBookings
}

func newTestAPI() *testAPI {
	gin.SetMode(gin.TestMode)

	store := &fakeStore{
		users: map[int64]domain.User{
			100: &domain.Customer{ID: 100, ConsumerType: domain.ConsumerTypePaid, Contact: domain.Contact{Name: "Anna"}},
			200: &domain.Translator{ID: 200, Type: domain.TranslatorTypeProfessional, Contact: domain.Contact{Name: "Ta"}},
		},
		jobs: map[int64]*domain.Job{
			7: {ID: 7, UserID: 100, Status: domain.JobStatusPending, Due: testNow.Add(48 * time.Hour)},
		},
	}
	bookings := &fakeBookings{}
	eligibility := &fakeEligibility{
		jobs:        []*domain.Job{{ID: 7, Status: domain.JobStatusPending}},
		translators: []*domain.Translator{{ID: 200, Contact: domain.Contact{Name: "Ta"}}},
	}

	engine := SetupRouter(&handler.Dependencies{
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		Bookings:    bookings,
		Eligibility: eligibility,
		Store:       store,
	})
	return &testAPI{engine: engine, store: store, bookings: bookings}
}

func (a *testAPI) do(method, path, userID string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set(UserIDHeader, userID)
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestHealth(t *testing.T) {
	api := newTestAPI()
	w := api.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
}

type downDB struct{}

func (downDB) HealthCheck(context.Context) error { return errors.New("connection refused") }

func TestHealthUnavailable(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := SetupRouter(&handler.Dependencies{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Store:  &fakeStore{},
		Health: downDB{},
	})

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "unhealthy")
}

func TestActorMiddleware(t *testing.T) {
	tests := []struct {
		name   string
		userID string
		want   int
	}{
		{name: "missing header", userID: "", want: http.StatusUnauthorized},
		{name: "garbage header", userID: "abc", want: http.StatusUnauthorized},
		{name: "unknown user", userID: "555", want: http.StatusUnauthorized},
		{name: "known user", userID: "100", want: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newTestAPI()
			w := api.do(http.MethodGet, "/api/v1/jobs/7", tt.userID, nil)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestCreateBooking(t *testing.T) {
	api := newTestAPI()
	lang, duration := int64(3), 60

	w := api.do(http.MethodPost, "/api/v1/jobs", "100", map[string]any{
		"from_language_id":    lang,
		"immediate":           "no",
		"due_date":            "04/03/2026",
		"due_time":            "10:00",
		"duration":            duration,
		"customer_phone_type": "yes",
		"job_for":             []string{"female", "certified"},
	})

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, int64(100), api.bookings.lastActor.UserID())
	assert.Equal(t, []string{"female", "certified"}, api.bookings.lastInput.JobFor)
	require.NotNil(t, api.bookings.lastInput.Duration)
	assert.Equal(t, 60, *api.bookings.lastInput.Duration)

	body := decode(t, w)
	assert.Equal(t, "ok", body["message"])
	assert.EqualValues(t, 99, body["job"].(map[string]any)["id"])
}

func TestCreateBooking_BindingErrors(t *testing.T) {
	tests := []struct {
		name string
		body map[string]any
	}{
		{name: "unknown job_for", body: map[string]any{"job_for": []string{"robot"}}},
		{name: "bad email override", body: map[string]any{"user_email": "not-an-email"}},
		{name: "negative duration", body: map[string]any{"duration": -5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newTestAPI()
			w := api.do(http.MethodPost, "/api/v1/jobs", "100", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Nil(t, api.bookings.lastActor)
		})
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		want      int
		wantField string
	}{
		{name: "validation", err: domain.NewMissingField("due_date"), want: http.StatusBadRequest, wantField: "due_date"},
		{name: "wrong role", err: &domain.ValidationError{Field: "user", Message: "only customers", Err: domain.ErrWrongRole}, want: http.StatusForbidden, wantField: "user"},
		{name: "conflict", err: domain.NewConflict(domain.ErrJobTaken, "already taken"), want: http.StatusConflict},
		{name: "policy", err: domain.NewPolicyError(domain.ErrLateCancellation, "too late"), want: http.StatusUnprocessableEntity},
		{name: "not found", err: domain.NewNotFound("job", 7), want: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newTestAPI()
			api.bookings.err = tt.err

			w := api.do(http.MethodPost, "/api/v1/jobs/7/cancel", "100", nil)
			assert.Equal(t, tt.want, w.Code)
			if tt.wantField != "" {
				assert.Equal(t, tt.wantField, decode(t, w)["field_name"])
			}
		})
	}
}

func TestAcceptJob(t *testing.T) {
	t.Run("translator accepts", func(t *testing.T) {
		api := newTestAPI()
		w := api.do(http.MethodPost, "/api/v1/jobs/7/accept", "200", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, int64(200), api.bookings.acceptedBy)
		assert.Equal(t, int64(7), api.bookings.lastJobID)
	})

	t.Run("customer cannot accept", func(t *testing.T) {
		api := newTestAPI()
		w := api.do(http.MethodPost, "/api/v1/jobs/7/accept", "100", nil)
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Zero(t, api.bookings.lastJobID)
	})

	t.Run("bad job id", func(t *testing.T) {
		api := newTestAPI()
		w := api.do(http.MethodPost, "/api/v1/jobs/abc/accept", "200", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestUpdateJob(t *testing.T) {
	api := newTestAPI()
	due := testNow.Add(72 * time.Hour)

	w := api.do(http.MethodPatch, "/api/v1/jobs/7", "100", map[string]any{
		"translator_id":  200,
		"due":            due.Format(time.RFC3339),
		"status":         "assigned",
		"admin_comments": "phoned the customer",
	})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	req := api.bookings.lastUpdate
	assert.Equal(t, int64(100), req.ActorID)
	assert.Equal(t, int64(200), req.TranslatorID)
	assert.True(t, due.Equal(req.Due))
	assert.Equal(t, domain.JobStatusAssigned, req.Status)
	require.NotNil(t, req.AdminComments)
	assert.Equal(t, "phoned the customer", *req.AdminComments)
}

func TestUpdateJobRejectsNonOwners(t *testing.T) {
	tests := []struct {
		name   string
		userID string
		want   int
	}{
		{name: "translator", userID: "200", want: http.StatusForbidden},
		{name: "another customer", userID: "101", want: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newTestAPI()
			api.store.users[101] = &domain.Customer{ID: 101, ConsumerType: domain.ConsumerTypePaid}

			w := api.do(http.MethodPatch, "/api/v1/jobs/7", tt.userID, map[string]any{"translator_id": 200})
			assert.Equal(t, tt.want, w.Code, w.Body.String())
			assert.Zero(t, api.bookings.lastUpdate.TranslatorID)
			assert.Zero(t, api.bookings.lastJobID)
		})
	}
}

func TestAssignmentHistory(t *testing.T) {
	cancelled := testNow.Add(-time.Hour)
	history := []domain.Assignment{
		{ID: 1, JobID: 7, TranslatorID: 201, CreatedAt: testNow.Add(-2 * time.Hour), CancelAt: &cancelled},
		{ID: 2, JobID: 7, TranslatorID: 200, CreatedAt: testNow},
	}

	tests := []struct {
		name   string
		userID string
		want   int
	}{
		{name: "booking customer", userID: "100", want: http.StatusOK},
		{name: "current translator", userID: "200", want: http.StatusOK},
		{name: "translator who withdrew", userID: "201", want: http.StatusOK},
		{name: "unrelated translator", userID: "202", want: http.StatusForbidden},
		{name: "another customer", userID: "101", want: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newTestAPI()
			api.store.users[101] = &domain.Customer{ID: 101, ConsumerType: domain.ConsumerTypePaid}
			api.store.users[201] = &domain.Translator{ID: 201, Type: domain.TranslatorTypeProfessional}
			api.store.users[202] = &domain.Translator{ID: 202, Type: domain.TranslatorTypeProfessional}
			api.store.history = map[int64][]domain.Assignment{7: history}

			w := api.do(http.MethodGet, "/api/v1/jobs/7/assignments", tt.userID, nil)
			require.Equal(t, tt.want, w.Code, w.Body.String())
			if tt.want != http.StatusOK {
				return
			}

			var body struct {
				Assignments []struct {
					TranslatorID int64  `json:"translator_id"`
					CancelAt     string `json:"cancel_at"`
				} `json:"assignments"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			require.Len(t, body.Assignments, 2)
			assert.Equal(t, int64(201), body.Assignments[0].TranslatorID)
			assert.Equal(t, cancelled.Format(time.RFC3339), body.Assignments[0].CancelAt)
			assert.Empty(t, body.Assignments[1].CancelAt)
		})
	}
}

func TestAssignmentHistoryUnknownJob(t *testing.T) {
	api := newTestAPI()
	w := api.do(http.MethodGet, "/api/v1/jobs/99/assignments", "100", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestParticipantEndpoints(t *testing.T) {
	paths := []string{
		"/api/v1/jobs/7/cancel",
		"/api/v1/jobs/7/end",
		"/api/v1/jobs/7/no-show",
		"/api/v1/jobs/7/notifications/push",
		"/api/v1/jobs/7/notifications/sms",
		"/api/v1/jobs/7/notifications/expired",
	}

	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			api := newTestAPI()
			w := api.do(http.MethodPost, path, "200", nil)
			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, int64(7), api.bookings.lastJobID)
			assert.EqualValues(t, 1, decode(t, w)["notified"])
		})
	}
}

func TestListJobs(t *testing.T) {
	api := newTestAPI()
	api.store.list = []*domain.Job{
		{ID: 3, CreatedAt: testNow},
		{ID: 2, CreatedAt: testNow.Add(-time.Hour)},
		{ID: 1, CreatedAt: testNow.Add(-2 * time.Hour)},
	}

	w := api.do(http.MethodGet, "/api/v1/jobs?page_size=2&status=pending", "100", nil)
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, int64(100), api.store.filter.CustomerID)
	assert.Equal(t, "pending", api.store.filter.Status)
	assert.Equal(t, 2, api.store.filter.PageSize)

	body := decode(t, w)
	assert.Len(t, body["jobs"], 2)
	cursor, err := handler.DecodeJobCursor(body["next_cursor"].(string))
	require.NoError(t, err)
	assert.Equal(t, int64(2), cursor.ID)

	t.Run("translators are refused", func(t *testing.T) {
		w := api.do(http.MethodGet, "/api/v1/jobs", "200", nil)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestEligibility(t *testing.T) {
	api := newTestAPI()

	w := api.do(http.MethodGet, "/api/v1/jobs/eligible", "200", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["jobs"], 1)

	w = api.do(http.MethodGet, "/api/v1/jobs/7/translators", "100", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["translators"], 1)

	w = api.do(http.MethodGet, "/api/v1/jobs/8/translators", "100", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
