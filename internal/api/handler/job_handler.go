package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/cuongbtq/interpreter-booking/internal/api/dto"
	"github.com/cuongbtq/interpreter-booking/internal/domain"
	"github.com/cuongbtq/interpreter-booking/internal/lifecycle"
	"github.com/cuongbtq/interpreter-booking/internal/storage"
	"github.com/cuongbtq/interpreter-booking/shared/logger"
	"github.com/gin-gonic/gin"
)

// ActorKey is the gin context key the actor middleware stores the calling user under
const ActorKey = "actor"

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func actorFrom(c *gin.Context) domain.User {
	if v, ok := c.Get(ActorKey); ok {
		if u, ok := v.(domain.User); ok {
			return u
		}
	}
	return nil
}

func jobIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("job_id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "job_id must be a positive integer",
		})
		return 0, false
	}
	return id, true
}

func requireRole(c *gin.Context, role domain.Role) (domain.User, bool) {
	actor := actorFrom(c)
	if actor == nil || actor.Role() != role {
		c.JSON(http.StatusForbidden, gin.H{
			"error": fmt.Sprintf("only %ss can do this", role),
		})
		return nil, false
	}
	return actor, true
}

// CreateBooking handles POST /api/v1/jobs
func (h *JobHandler) CreateBooking(c *gin.Context) {
	var req dto.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body: " + err.Error(),
		})
		return
	}

	out, err := h.bookings.CreateBooking(c.Request.Context(), actorFrom(c), req.ToInput())
	if err != nil {
		h.respondError(c, "create booking", err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewOutcomeResponse(out))
}

// GetJob handles GET /api/v1/jobs/:job_id
func (h *JobHandler) GetJob(c *gin.Context) {
	jobID, ok := jobIDParam(c)
	if !ok {
		return
	}

	job, err := h.store.FindJob(c.Request.Context(), jobID)
	if err != nil {
		h.respondError(c, "get job", err)
		return
	}

	c.JSON(http.StatusOK, dto.NewJobDTO(job))
}

// Assignments handles GET /api/v1/jobs/:job_id/assignments.
// The booking customer and any translator who ever held the job may read it.
func (h *JobHandler) Assignments(c *gin.Context) {
	jobID, ok := jobIDParam(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	job, err := h.store.FindJob(ctx, jobID)
	if err != nil {
		h.respondError(c, "list assignments", err)
		return
	}
	history, err := h.store.Assignments(ctx, jobID)
	if err != nil {
		h.respondError(c, "list assignments", err)
		return
	}

	if !canSeeHistory(actorFrom(c), job, history) {
		h.respondError(c, "list assignments", domain.NewPolicyError(domain.ErrNotParticipant, "only parties to the booking can see its assignments"))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"job_id":      jobID,
		"assignments": dto.NewAssignmentDTOs(history),
	})
}

func canSeeHistory(actor domain.User, job *domain.Job, history []domain.Assignment) bool {
	if actor == nil {
		return false
	}
	switch actor.Role() {
	case domain.RoleCustomer:
		return job.UserID == actor.UserID()
	case domain.RoleTranslator:
		for _, a := range history {
			if a.TranslatorID == actor.UserID() {
				return true
			}
		}
	}
	return false
}

// ListJobs handles GET /api/v1/jobs. Customers only see their own bookings.
func (h *JobHandler) ListJobs(c *gin.Context) {
	actor, ok := requireRole(c, domain.RoleCustomer)
	if !ok {
		return
	}

	var req dto.ListJobsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid query parameters: " + err.Error(),
		})
		return
	}

	if req.PageSize <= 0 {
		req.PageSize = defaultPageSize
	}
	if req.PageSize > maxPageSize {
		req.PageSize = maxPageSize
	}

	cursor, err := DecodeJobCursor(req.Cursor)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid cursor",
		})
		return
	}

	jobs, err := h.store.ListJobs(c.Request.Context(), storage.JobFilter{
		CustomerID: actor.UserID(),
		Status:     req.Status,
		JobType:    req.JobType,
		PageSize:   req.PageSize,
		Cursor:     cursor,
	})
	if err != nil {
		h.respondError(c, "list jobs", err)
		return
	}

	hasMore := len(jobs) > req.PageSize
	if hasMore {
		jobs = jobs[:req.PageSize]
	}

	var nextCursor string
	if hasMore {
		last := jobs[len(jobs)-1]
		nextCursor = EncodeJobCursor(&storage.JobCursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}

	c.JSON(http.StatusOK, dto.ListJobsResponse{
		Jobs:       dto.NewJobDTOs(jobs),
		NextCursor: nextCursor,
	})
}

// EligibleJobs handles GET /api/v1/jobs/eligible for the calling translator
func (h *JobHandler) EligibleJobs(c *gin.Context) {
	actor, ok := requireRole(c, domain.RoleTranslator)
	if !ok {
		return
	}

	jobs, err := h.eligibility.EligibleJobs(c.Request.Context(), actor.UserID())
	if err != nil {
		h.respondError(c, "list eligible jobs", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"jobs": dto.NewJobDTOs(jobs)})
}

// EligibleTranslators handles GET /api/v1/jobs/:job_id/translators
func (h *JobHandler) EligibleTranslators(c *gin.Context) {
	jobID, ok := jobIDParam(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	job, err := h.store.FindJob(ctx, jobID)
	if err != nil {
		h.respondError(c, "list eligible translators", err)
		return
	}

	translators, err := h.eligibility.EligibleTranslators(ctx, job, 0)
	if err != nil {
		h.respondError(c, "list eligible translators", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"translators": dto.NewTranslatorDTOs(translators)})
}

// AcceptJob handles POST /api/v1/jobs/:job_id/accept
func (h *JobHandler) AcceptJob(c *gin.Context) {
	actor, ok := requireRole(c, domain.RoleTranslator)
	if !ok {
		return
	}
	h.outcome(c, "accept job", func(ctx context.Context, jobID int64) (*lifecycle.Outcome, error) {
		return h.bookings.AcceptJob(ctx, jobID, actor.UserID())
	})
}

// UpdateJob handles PATCH /api/v1/jobs/:job_id
func (h *JobHandler) UpdateJob(c *gin.Context) {
	actor, ok := requireRole(c, domain.RoleCustomer)
	if !ok {
		return
	}

	var req dto.UpdateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body: " + err.Error(),
		})
		return
	}

	h.outcome(c, "update job", func(ctx context.Context, jobID int64) (*lifecycle.Outcome, error) {
		job, err := h.store.FindJob(ctx, jobID)
		if err != nil {
			return nil, err
		}
		if job.UserID != actor.UserID() {
			return nil, domain.NewPolicyError(domain.ErrNotParticipant, "only the customer who made the booking can change it")
		}
		return h.bookings.UpdateJob(ctx, jobID, req.ToUpdate(actor.UserID()))
	})
}

// CancelJob handles POST /api/v1/jobs/:job_id/cancel
func (h *JobHandler) CancelJob(c *gin.Context) {
	actor := actorFrom(c)
	h.outcome(c, "cancel job", func(ctx context.Context, jobID int64) (*lifecycle.Outcome, error) {
		return h.bookings.CancelJob(ctx, jobID, actor)
	})
}

// EndSession handles POST /api/v1/jobs/:job_id/end
func (h *JobHandler) EndSession(c *gin.Context) {
	actor := actorFrom(c)
	h.outcome(c, "end session", func(ctx context.Context, jobID int64) (*lifecycle.Outcome, error) {
		return h.bookings.EndSession(ctx, jobID, actor)
	})
}

// CustomerNoShow handles POST /api/v1/jobs/:job_id/no-show
func (h *JobHandler) CustomerNoShow(c *gin.Context) {
	h.outcome(c, "record customer no-show", h.bookings.CustomerNoShow)
}

// ResendNotifications handles POST /api/v1/jobs/:job_id/notifications/push
func (h *JobHandler) ResendNotifications(c *gin.Context) {
	h.outcome(c, "resend push notifications", h.bookings.ResendNotifications)
}

// ResendSMS handles POST /api/v1/jobs/:job_id/notifications/sms
func (h *JobHandler) ResendSMS(c *gin.Context) {
	h.outcome(c, "resend sms notifications", h.bookings.ResendSMS)
}

// NotifyExpired handles POST /api/v1/jobs/:job_id/notifications/expired
func (h *JobHandler) NotifyExpired(c *gin.Context) {
	h.outcome(c, "send expiry notice", h.bookings.NotifyExpired)
}

func (h *JobHandler) outcome(c *gin.Context, op string, fn func(ctx context.Context, jobID int64) (*lifecycle.Outcome, error)) {
	jobID, ok := jobIDParam(c)
	if !ok {
		return
	}

	out, err := fn(c.Request.Context(), jobID)
	if err != nil {
		h.respondError(c, op, err)
		return
	}

	if out.NotifyErr != nil {
		logger.FromContext(c.Request.Context(), h.logger).Warn("Notifications partially failed",
			slog.String("operation", op),
			slog.Int64("job_id", jobID),
			slog.String("error", out.NotifyErr.Error()),
		)
	}

	c.JSON(http.StatusOK, dto.NewOutcomeResponse(out))
}
