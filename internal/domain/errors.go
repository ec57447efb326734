package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrWrongRole is returned when a non-customer tries to create a booking
	ErrWrongRole = errors.New("only customers can create bookings")

	// ErrMissingField is returned when a required booking field is absent or empty
	ErrMissingField = errors.New("required field missing")

	ErrInvalidField = errors.New("invalid field value")

	// ErrPastDueDate is returned when a scheduled booking is not strictly in the future
	ErrPastDueDate = errors.New("due date is in the past")

	// ErrUnknownConsumerType is returned when no job type can be derived for the customer
	ErrUnknownConsumerType = errors.New("unknown consumer type")

	ErrNotFound = errors.New("not found")

	// ErrTranslatorBusy is returned when the translator already holds a booking at the same due time
	ErrTranslatorBusy = errors.New("translator already booked at this time")

	// ErrJobTaken is returned when another translator won the race for the job
	ErrJobTaken = errors.New("job already accepted by another translator")

	// ErrJobChanged is returned when the job's status moved after it was read
	ErrJobChanged = errors.New("job changed concurrently")

	// ErrGuardFailed is returned when a transition is missing its required input
	ErrGuardFailed = errors.New("transition guard failed")

	// ErrTransitionNotAllowed is returned when the transition table has no such edge
	ErrTransitionNotAllowed = errors.New("status transition not allowed")

	ErrNotAssigned = errors.New("job has no active translator")

	// ErrNotParticipant is returned when the acting user is neither the owner nor the assigned translator
	ErrNotParticipant = errors.New("user is not a party to this job")

	// ErrLateCancellation is returned when a translator cancels within 24 hours of due
	ErrLateCancellation = errors.New("too late to cancel")
)

// ValidationError reports a malformed or missing booking field
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewMissingField creates a validation error for an absent field
func NewMissingField(field string) error {
	return &ValidationError{Field: field, Message: "field is required", Err: ErrMissingField}
}

// ConflictError is returned when a guard or a concurrent writer prevents the change
type ConflictError struct {
	Message string
	Err     error
}

func (e *ConflictError) Error() string {
	return "conflict: " + e.Message
}

func (e *ConflictError) Unwrap() error {
	return e.Err
}

func NewConflict(err error, message string) error {
	return &ConflictError{Message: message, Err: err}
}

// NotFoundError is returned when an id does not resolve
type NotFoundError struct {
	Resource string
	ID       int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Resource, e.ID)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

func NewNotFound(resource string, id int64) error {
	return &NotFoundError{Resource: resource, ID: id}
}

// TransportError wraps a mailer/SMS/push delivery failure
type TransportError struct {
	Channel string
	Err     error
}

func (e *TransportError) Error() string {
	return e.Channel + " transport: " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func NewTransportError(channel string, err error) error {
	return &TransportError{Channel: channel, Err: err}
}

// PolicyError is returned when a business rule rejects an otherwise valid request
type PolicyError struct {
	Message string
	Err     error
}

func (e *PolicyError) Error() string {
	return "rejected: " + e.Message
}

func (e *PolicyError) Unwrap() error {
	return e.Err
}

func NewPolicyError(err error, message string) error {
	return &PolicyError{Message: message, Err: err}
}
