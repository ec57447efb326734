package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JobStatus is the lifecycle state of a booking
type JobStatus string

// Job status constants
const (
	JobStatusPending               JobStatus = "pending"
	JobStatusAssigned              JobStatus = "assigned"
	JobStatusStarted               JobStatus = "started"
	JobStatusCompleted             JobStatus = "completed"
	JobStatusTimedOut              JobStatus = "timedout"
	JobStatusWithdrawBefore24      JobStatus = "withdrawbefore24"
	JobStatusWithdrawAfter24       JobStatus = "withdrawafter24"
	JobStatusNotCarriedOutCustomer JobStatus = "not_carried_out_customer"
)

// IsTerminal reports whether no further transition leaves this status.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusWithdrawBefore24, JobStatusWithdrawAfter24, JobStatusNotCarriedOutCustomer:
		return true
	default:
		return false
	}
}

// Valid reports whether s is a known status.
func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusPending, JobStatusAssigned, JobStatusStarted, JobStatusCompleted,
		JobStatusTimedOut, JobStatusWithdrawBefore24, JobStatusWithdrawAfter24, JobStatusNotCarriedOutCustomer:
		return true
	default:
		return false
	}
}

// Gender requested for the translator
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// Certified is the certification requirement derived from the booking form
type Certified string

const (
	CertifiedNormal  Certified = "normal"
	CertifiedYes     Certified = "yes"
	CertifiedBoth    Certified = "both"
	CertifiedLaw     Certified = "law"
	CertifiedHealth  Certified = "health"
	CertifiedNLaw    Certified = "n_law"
	CertifiedNHealth Certified = "n_health"
)

// JobType is derived from the customer's consumer type at creation
type JobType string

const (
	JobTypePaid   JobType = "paid"
	JobTypeRWS    JobType = "rws"
	JobTypeUnpaid JobType = "unpaid"
)

// ConsumerType classifies a customer account
type ConsumerType string

const (
	ConsumerTypeRWS  ConsumerType = "rwsconsumer"
	ConsumerTypeNGO  ConsumerType = "ngo"
	ConsumerTypePaid ConsumerType = "paid"
)

// TranslatorType classifies a translator account
type TranslatorType string

const (
	TranslatorTypeProfessional TranslatorType = "professional"
	TranslatorTypeRWS          TranslatorType = "rwstranslator"
	TranslatorTypeVolunteer    TranslatorType = "volunteer"
)

// TranslatorLevel is a translator's qualification tier
type TranslatorLevel string

const (
	LevelCertified       TranslatorLevel = "Certified"
	LevelCertifiedLaw    TranslatorLevel = "Certified with specialisation in law"
	LevelCertifiedHealth TranslatorLevel = "Certified with specialisation in health care"
	LevelLayman          TranslatorLevel = "Layman"
	LevelReadCourses     TranslatorLevel = "Read Translation courses"
)

// Role tags the two user variants
type Role string

const (
	RoleCustomer   Role = "customer"
	RoleTranslator Role = "translator"
)

// Flag is a boolean persisted and serialized as "yes"/"no".
type Flag bool

const (
	Yes Flag = true
	No  Flag = false
)

func (f Flag) String() string {
	if f {
		return "yes"
	}
	return "no"
}

// ParseFlag accepts the yes/no vocabulary used by booking forms. Empty is no.
func ParseFlag(s string) Flag {
	switch s {
	case "yes", "true", "1", "on":
		return Yes
	default:
		return No
	}
}

// Value implements driver.Valuer
func (f Flag) Value() (driver.Value, error) {
	return f.String(), nil
}

// Scan implements sql.Scanner
func (f *Flag) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*f = No
	case string:
		*f = ParseFlag(v)
	case []byte:
		*f = ParseFlag(string(v))
	case bool:
		*f = Flag(v)
	default:
		return fmt.Errorf("cannot scan %T into Flag", src)
	}
	return nil
}

func (f Flag) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.String())
}

func (f *Flag) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		var v bool
		if err := json.Unmarshal(b, &v); err != nil {
			return fmt.Errorf("invalid flag %s", string(b))
		}
		*f = Flag(v)
		return nil
	}
	*f = ParseFlag(s)
	return nil
}
