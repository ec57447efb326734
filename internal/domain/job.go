package domain

import "time"

// Job is a single translation booking
type Job struct {
	ID                   int64      `db:"id" json:"id"`
	UserID               int64      `db:"user_id" json:"user_id"`
	FromLanguageID       int64      `db:"from_language_id" json:"from_language_id"`
	Immediate            Flag       `db:"immediate" json:"immediate"`
	Due                  time.Time  `db:"due" json:"due"`
	Duration             int        `db:"duration" json:"duration"`
	Gender               Gender     `db:"gender" json:"gender,omitempty"`
	Certified            Certified  `db:"certified" json:"certified,omitempty"`
	JobType              JobType    `db:"job_type" json:"job_type"`
	CustomerPhoneType    Flag       `db:"customer_phone_type" json:"customer_phone_type"`
	CustomerPhysicalType Flag       `db:"customer_physical_type" json:"customer_physical_type"`
	Status               JobStatus  `db:"status" json:"status"`
	AdminComments        string     `db:"admin_comments" json:"admin_comments"`
	Reference            string     `db:"reference" json:"reference"`
	UserEmail            string     `db:"user_email" json:"user_email,omitempty"`
	Address              string     `db:"address" json:"address,omitempty"`
	Instructions         string     `db:"instructions" json:"instructions,omitempty"`
	Town                 string     `db:"town" json:"town,omitempty"`
	ByAdmin              Flag       `db:"by_admin" json:"by_admin"`
	SessionTime          string     `db:"session_time" json:"session_time,omitempty"`
	EndAt                *time.Time `db:"end_at" json:"end_at,omitempty"`
	WithdrawAt           *time.Time `db:"withdraw_at" json:"withdraw_at,omitempty"`
	WillExpireAt         time.Time  `db:"will_expire_at" json:"will_expire_at"`
	EmailSent            bool       `db:"email_sent" json:"-"`
	PartnerEmailSent     bool       `db:"partner_email_sent" json:"-"`
	CreatedAt            time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time  `db:"updated_at" json:"updated_at"`

	// ReservedFor lists translators the job was privately offered to.
	ReservedFor []int64 `db:"-" json:"reserved_for,omitempty"`
}

// RequiresTown reports whether only translators sharing the customer's town may take the job.
func (j *Job) RequiresTown() bool {
	return bool(j.CustomerPhysicalType) && !bool(j.CustomerPhoneType)
}

// ReservedTo reports whether a private offer excludes the translator.
func (j *Job) ReservedTo(translatorID int64) bool {
	if len(j.ReservedFor) == 0 {
		return true
	}
	for _, id := range j.ReservedFor {
		if id == translatorID {
			return true
		}
	}
	return false
}

// Assignment binds one translator to one job. CancelAt == nil means active.
type Assignment struct {
	ID           int64      `db:"id" json:"id"`
	JobID        int64      `db:"job_id" json:"job_id"`
	TranslatorID int64      `db:"user_id" json:"user_id"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	CancelAt     *time.Time `db:"cancel_at" json:"cancel_at,omitempty"`
	CompletedAt  *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	CompletedBy  *int64     `db:"completed_by" json:"completed_by,omitempty"`
}

func (a *Assignment) Active() bool {
	return a != nil && a.CancelAt == nil
}

// ChangeField names the part of a job an admin update touched
type ChangeField string

const (
	ChangeTranslator ChangeField = "translator"
	ChangeDue        ChangeField = "due"
	ChangeLanguage   ChangeField = "language"
	ChangeStatus     ChangeField = "status"
)

// ChangeLogEntry records one field change of an update, in old/new form
type ChangeLogEntry struct {
	Field ChangeField `json:"field"`
	Old   string      `json:"old"`
	New   string      `json:"new"`
}

// JobUpdate is everything one update writes. Repositories persist it in a
// single transaction, and only while the stored status still equals From.
type JobUpdate struct {
	Job                  *Job
	From                 JobStatus
	CancelAssignmentID   int64
	NewTranslatorID      int64
	CompleteAssignmentID int64
	CompletedBy          int64
	// CompleteNew completes the assignment created for NewTranslatorID instead.
	CompleteNew bool
	At          time.Time
}
