package intake

import (
	"fmt"
	"strings"
	"time"

	"github.com/cuongbtq/interpreter-booking/internal/domain"
)

// DueLayout is the month/day/year hour:minute form used by the booking form
const DueLayout = "01/02/2006 15:04"

// DefaultImmediateLead is how far in the future an immediate booking is due
const DefaultImmediateLead = 5 * time.Minute

// Clock is the subset of the booking calendar the validator needs
type Clock interface {
	Now() time.Time
	Location() *time.Location
	WillExpireAt(due, createdAt time.Time) time.Time
}

// Input is a raw booking request as submitted by a customer
type Input struct {
	FromLanguageID       *int64
	Immediate            string
	DueDate              string
	DueTime              string
	Duration             *int
	CustomerPhoneType    string
	CustomerPhysicalType string
	JobFor               []string
	Reference            string
	Address              string
	Instructions         string
	Town                 string
	UserEmail            string
	ByAdmin              bool
	ReservedFor          []int64
}

// Validator turns booking requests into job drafts
type Validator struct {
	clock         Clock
	immediateLead time.Duration
}

func NewValidator(clock Clock, immediateLead time.Duration) *Validator {
	if immediateLead <= 0 {
		immediateLead = DefaultImmediateLead
	}
	return &Validator{clock: clock, immediateLead: immediateLead}
}

// Validate checks the request and returns a pending job draft. It does not persist anything.
func (v *Validator) Validate(requester domain.User, in Input) (*domain.Job, error) {
	customer, ok := requester.(*domain.Customer)
	if !ok {
		return nil, &domain.ValidationError{
			Field:   "user",
			Message: "only customers can create bookings",
			Err:     domain.ErrWrongRole,
		}
	}

	if in.FromLanguageID == nil || *in.FromLanguageID == 0 {
		return nil, domain.NewMissingField("from_language_id")
	}

	immediate := domain.ParseFlag(strings.TrimSpace(in.Immediate))
	if !immediate {
		if strings.TrimSpace(in.DueDate) == "" {
			return nil, domain.NewMissingField("due_date")
		}
		if strings.TrimSpace(in.DueTime) == "" {
			return nil, domain.NewMissingField("due_time")
		}
		if !isSet(in.CustomerPhoneType) && !isSet(in.CustomerPhysicalType) {
			return nil, domain.NewMissingField("customer_phone_type")
		}
	}
	if in.Duration == nil || *in.Duration <= 0 {
		return nil, domain.NewMissingField("duration")
	}

	jobType, ok := domain.JobTypeFor(customer.ConsumerType)
	if !ok {
		return nil, &domain.ValidationError{
			Field:   "consumer_type",
			Message: fmt.Sprintf("no job type for consumer type %q", customer.ConsumerType),
			Err:     domain.ErrUnknownConsumerType,
		}
	}

	now := v.clock.Now()
	job := &domain.Job{
		UserID:               customer.ID,
		FromLanguageID:       *in.FromLanguageID,
		Immediate:            immediate,
		Duration:             *in.Duration,
		Gender:               domain.DeriveGender(in.JobFor),
		Certified:            domain.DeriveCertified(in.JobFor),
		JobType:              jobType,
		CustomerPhoneType:    domain.Flag(isSet(in.CustomerPhoneType)),
		CustomerPhysicalType: domain.Flag(isSet(in.CustomerPhysicalType)),
		Status:               domain.JobStatusPending,
		Reference:            in.Reference,
		Address:              in.Address,
		Instructions:         in.Instructions,
		Town:                 in.Town,
		UserEmail:            strings.TrimSpace(in.UserEmail),
		ByAdmin:              domain.Flag(in.ByAdmin),
		ReservedFor:          in.ReservedFor,
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	if immediate {
		job.Due = now.Add(v.immediateLead)
		job.CustomerPhoneType = domain.Yes
	} else {
		due, err := time.ParseInLocation(DueLayout, strings.TrimSpace(in.DueDate)+" "+strings.TrimSpace(in.DueTime), v.clock.Location())
		if err != nil {
			return nil, &domain.ValidationError{
				Field:   "due_date",
				Message: fmt.Sprintf("expected format mm/dd/yyyy hh:mm: %v", err),
				Err:     domain.ErrInvalidField,
			}
		}
		if !due.After(now) {
			return nil, &domain.ValidationError{
				Field:   "due_date",
				Message: "cannot create a booking in the past",
				Err:     domain.ErrPastDueDate,
			}
		}
		job.Due = due
	}

	job.WillExpireAt = v.clock.WillExpireAt(job.Due, now)
	return job, nil
}

// isSet treats any non-empty value other than an explicit no as checked.
func isSet(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "no", "false", "0", "off":
		return false
	default:
		return true
	}
}
