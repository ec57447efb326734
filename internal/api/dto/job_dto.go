package dto

import (
	"time"

	"github.com/cuongbtq/interpreter-booking/internal/domain"
	"github.com/cuongbtq/interpreter-booking/internal/intake"
	"github.com/cuongbtq/interpreter-booking/internal/lifecycle"
)

// CreateBookingRequest is the booking form. Presence of required fields is checked by intake
// so the error can name the field.
type CreateBookingRequest struct {
	FromLanguageID       *int64   `json:"from_language_id" binding:"omitempty,gt=0"`
	Immediate            string   `json:"immediate"`
	DueDate              string   `json:"due_date"`
	DueTime              string   `json:"due_time"`
	Duration             *int     `json:"duration" binding:"omitempty,gt=0"`
	CustomerPhoneType    string   `json:"customer_phone_type"`
	CustomerPhysicalType string   `json:"customer_physical_type"`
	JobFor               []string `json:"job_for" binding:"dive,oneof=male female normal certified certified_in_law certified_in_helth"`
	Reference            string   `json:"reference" binding:"max=255"`
	Address              string   `json:"address"`
	Instructions         string   `json:"instructions"`
	Town                 string   `json:"town"`
	UserEmail            string   `json:"user_email" binding:"omitempty,email"`
	ByAdmin              bool     `json:"by_admin"`
	ReservedFor          []int64  `json:"reserved_for" binding:"dive,gt=0"`
}

func (r CreateBookingRequest) ToInput() intake.Input {
	return intake.Input{
		FromLanguageID:       r.FromLanguageID,
		Immediate:            r.Immediate,
		DueDate:              r.DueDate,
		DueTime:              r.DueTime,
		Duration:             r.Duration,
		CustomerPhoneType:    r.CustomerPhoneType,
		CustomerPhysicalType: r.CustomerPhysicalType,
		JobFor:               r.JobFor,
		Reference:            r.Reference,
		Address:              r.Address,
		Instructions:         r.Instructions,
		Town:                 r.Town,
		UserEmail:            r.UserEmail,
		ByAdmin:              r.ByAdmin,
		ReservedFor:          r.ReservedFor,
	}
}

// UpdateJobRequest is the admin edit form. Zero values leave a field unchanged.
type UpdateJobRequest struct {
	TranslatorID    int64      `json:"translator_id" binding:"omitempty,gt=0"`
	TranslatorEmail string     `json:"translator_email" binding:"omitempty,email"`
	Due             *time.Time `json:"due"`
	FromLanguageID  int64      `json:"from_language_id" binding:"omitempty,gt=0"`
	Status          string     `json:"status"`
	AdminComments   *string    `json:"admin_comments"`
	SessionTime     string     `json:"session_time"`
	Reference       *string    `json:"reference" binding:"omitempty,max=255"`
}

func (r UpdateJobRequest) ToUpdate(actorID int64) lifecycle.UpdateRequest {
	req := lifecycle.UpdateRequest{
		ActorID:         actorID,
		TranslatorID:    r.TranslatorID,
		TranslatorEmail: r.TranslatorEmail,
		FromLanguageID:  r.FromLanguageID,
		Status:          domain.JobStatus(r.Status),
		AdminComments:   r.AdminComments,
		SessionTime:     r.SessionTime,
		Reference:       r.Reference,
	}
	if r.Due != nil {
		req.Due = *r.Due
	}
	return req
}

type ListJobsRequest struct {
	JobType  string `form:"job_type" binding:"omitempty,oneof=paid rws unpaid"`
	Status   string `form:"status"`
	PageSize int    `form:"page_size"`
	Cursor   string `form:"cursor"`
}

type ListJobsResponse struct {
	Jobs       []JobDTO `json:"jobs"`
	NextCursor string   `json:"next_cursor,omitempty"`
}

type JobDTO struct {
	ID                   int64            `json:"id"`
	UserID               int64            `json:"user_id"`
	FromLanguageID       int64            `json:"from_language_id"`
	Immediate            domain.Flag      `json:"immediate"`
	Due                  string           `json:"due"`
	Duration             int              `json:"duration"`
	Gender               domain.Gender    `json:"gender,omitempty"`
	Certified            domain.Certified `json:"certified,omitempty"`
	JobType              domain.JobType   `json:"job_type"`
	CustomerPhoneType    domain.Flag      `json:"customer_phone_type"`
	CustomerPhysicalType domain.Flag      `json:"customer_physical_type"`
	Status               domain.JobStatus `json:"status"`
	Reference            string           `json:"reference,omitempty"`
	Address              string           `json:"address,omitempty"`
	Town                 string           `json:"town,omitempty"`
	SessionTime          string           `json:"session_time,omitempty"`
	WillExpireAt         string           `json:"will_expire_at"`
	ReservedFor          []int64          `json:"reserved_for,omitempty"`
	CreatedAt            string           `json:"created_at"`
}

func NewJobDTO(job *domain.Job) JobDTO {
	return JobDTO{
		ID:                   job.ID,
		UserID:               job.UserID,
		FromLanguageID:       job.FromLanguageID,
		Immediate:            job.Immediate,
		Due:                  job.Due.Format(time.RFC3339),
		Duration:             job.Duration,
		Gender:               job.Gender,
		Certified:            job.Certified,
		JobType:              job.JobType,
		CustomerPhoneType:    job.CustomerPhoneType,
		CustomerPhysicalType: job.CustomerPhysicalType,
		Status:               job.Status,
		Reference:            job.Reference,
		Address:              job.Address,
		Town:                 job.Town,
		SessionTime:          job.SessionTime,
		WillExpireAt:         job.WillExpireAt.Format(time.RFC3339),
		ReservedFor:          job.ReservedFor,
		CreatedAt:            job.CreatedAt.Format(time.RFC3339),
	}
}

func NewJobDTOs(jobs []*domain.Job) []JobDTO {
	out := make([]JobDTO, len(jobs))
	for i, job := range jobs {
		out[i] = NewJobDTO(job)
	}
	return out
}

// AssignmentDTO is one row of a job's translator history
type AssignmentDTO struct {
	ID           int64  `json:"id"`
	TranslatorID int64  `json:"translator_id"`
	CreatedAt    string `json:"created_at"`
	CancelAt     string `json:"cancel_at,omitempty"`
	CompletedAt  string `json:"completed_at,omitempty"`
	CompletedBy  *int64 `json:"completed_by,omitempty"`
}

func NewAssignmentDTOs(assignments []domain.Assignment) []AssignmentDTO {
	out := make([]AssignmentDTO, len(assignments))
	for i, a := range assignments {
		out[i] = AssignmentDTO{
			ID:           a.ID,
			TranslatorID: a.TranslatorID,
			CreatedAt:    a.CreatedAt.Format(time.RFC3339),
			CompletedBy:  a.CompletedBy,
		}
		if a.CancelAt != nil {
			out[i].CancelAt = a.CancelAt.Format(time.RFC3339)
		}
		if a.CompletedAt != nil {
			out[i].CompletedAt = a.CompletedAt.Format(time.RFC3339)
		}
	}
	return out
}

// OutcomeResponse is returned by every state-changing endpoint
type OutcomeResponse struct {
	Job         JobDTO `json:"job"`
	Message     string `json:"message,omitempty"`
	Notified    int    `json:"notified"`
	NotifyError string `json:"notify_error,omitempty"`
}

func NewOutcomeResponse(out *lifecycle.Outcome) OutcomeResponse {
	resp := OutcomeResponse{
		Job:      NewJobDTO(out.Job),
		Message:  out.Message,
		Notified: out.Notified,
	}
	if out.NotifyErr != nil {
		resp.NotifyError = out.NotifyErr.Error()
	}
	return resp
}

type TranslatorDTO struct {
	ID     int64                  `json:"id"`
	Name   string                 `json:"name"`
	Type   domain.TranslatorType  `json:"translator_type"`
	Level  domain.TranslatorLevel `json:"translator_level"`
	Gender domain.Gender          `json:"gender,omitempty"`
	City   string                 `json:"city,omitempty"`
}

func NewTranslatorDTOs(translators []*domain.Translator) []TranslatorDTO {
	out := make([]TranslatorDTO, len(translators))
	for i, t := range translators {
		out[i] = TranslatorDTO{ID: t.ID, Name: t.Name, Type: t.Type, Level: t.Level, Gender: t.Gender, City: t.City}
	}
	return out
}
