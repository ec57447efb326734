package notify

import (
	"context"
	"time"

	"github.com/cuongbtq/interpreter-booking/internal/domain"
)

// Push notification types carried in every payload
const (
	TypeSuitableJob        = "suitable_job"
	TypeJobAccepted        = "job_accepted"
	TypeJobCancelled       = "job_cancelled"
	TypeSessionStartRemind = "session_start_remind"
	TypeSessionEnded       = "session_ended"
	TypeJobExpired         = "job_expired"
)

// Push sounds for booking broadcasts
const (
	SoundNormalBooking    = "normal_booking"
	SoundEmergencyBooking = "emergency_booking"
)

// Email template keys
const (
	TemplateJobCreated                = "emails.job-created"
	TemplateJobAccepted               = "emails.job-accepted"
	TemplateTranslatorChangedCustomer = "emails.job-changed-translator-customer"
	TemplateTranslatorChangedOld      = "emails.job-changed-translator-old-translator"
	TemplateTranslatorChangedNew      = "emails.job-changed-translator-new-translator"
	TemplateDateChanged               = "emails.job-changed-date"
	TemplateLanguageChanged           = "emails.job-changed-lang"
	TemplateStatusChangedCustomer     = "emails.status-changed-from-pending-or-assigned-customer"
	TemplateCancelTranslator          = "emails.job-cancel-translator"
	TemplateStatusChangedToCustomer   = "emails.job-change-status-to-customer"
	TemplateSessionEnded              = "emails.session-ended"
)

// Channel names used in transport errors and the delivery envelope
const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"
	ChannelPush  = "push"
)

// Email is one outbound message rendered by the mailer from a template key
type Email struct {
	To       string            `json:"to"`
	ToName   string            `json:"to_name"`
	Subject  string            `json:"subject"`
	Template string            `json:"template"`
	Data     map[string]string `json:"data"`
}

// SMS is one outbound text message
type SMS struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Message string `json:"message"`
}

// TagFilter is one clause of a push audience query. Operator-only clauses join the others.
type TagFilter struct {
	Key      string `json:"key,omitempty"`
	Relation string `json:"relation,omitempty"`
	Value    string `json:"value,omitempty"`
	Operator string `json:"operator,omitempty"`
}

// Payload is what the device receives
type Payload struct {
	NotificationType string            `json:"notification_type"`
	JobID            int64             `json:"job_id"`
	Title            string            `json:"title"`
	Contents         map[string]string `json:"contents"`
}

// Push is one push call addressed to a tag query
type Push struct {
	Tags      []TagFilter `json:"tags"`
	Payload   Payload     `json:"payload"`
	Sound     string      `json:"sound,omitempty"`
	SendAfter *time.Time  `json:"send_after,omitempty"`
}

type Mailer interface {
	SendEmail(ctx context.Context, email Email) error
}

type SMSSender interface {
	SendSMS(ctx context.Context, sms SMS) error
}

type PushSender interface {
	SendPush(ctx context.Context, push Push) error
}

// Clock decides when delayed pushes are released
type Clock interface {
	IsNightTime() bool
	NextBusinessTime() time.Time
}

// TranslatorFinder resolves the "all eligible translators" audience
type TranslatorFinder interface {
	EligibleTranslators(ctx context.Context, job *domain.Job, excludeID int64) ([]*domain.Translator, error)
}
