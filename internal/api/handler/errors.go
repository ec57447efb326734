package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/cuongbtq/interpreter-booking/internal/domain"
	"github.com/cuongbtq/interpreter-booking/shared/logger"
	"github.com/gin-gonic/gin"
)

// statusFor maps the domain error taxonomy onto HTTP status codes
func statusFor(err error) int {
	var (
		validationErr *domain.ValidationError
		conflictErr   *domain.ConflictError
		policyErr     *domain.PolicyError
	)
	switch {
	case errors.Is(err, domain.ErrWrongRole), errors.Is(err, domain.ErrNotParticipant):
		return http.StatusForbidden
	case errors.As(err, &validationErr):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &conflictErr):
		return http.StatusConflict
	case errors.As(err, &policyErr):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes the error body for err. Internal errors are logged and not echoed.
func (h *JobHandler) respondError(c *gin.Context, op string, err error) {
	status := statusFor(err)
	log := logger.FromContext(c.Request.Context(), h.logger)

	if status == http.StatusInternalServerError {
		log.Error("Request failed",
			slog.String("operation", op),
			slog.String("job_id", c.Param("job_id")),
			slog.String("error", err.Error()),
		)
		c.JSON(status, gin.H{
			"error":  "Failed to " + op,
			"job_id": c.Param("job_id"),
		})
		return
	}

	log.Info("Request rejected",
		slog.String("operation", op),
		slog.Int("status", status),
		slog.String("error", err.Error()),
	)

	body := gin.H{"error": err.Error()}
	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		body["error"] = validationErr.Message
		body["field_name"] = validationErr.Field
	}
	c.JSON(status, body)
}
