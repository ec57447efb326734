package notify

import (
	"fmt"

	"github.com/cuongbtq/interpreter-booking/internal/domain"
)

const dueFormat = "2006-01-02 15:04"

// BookingEvent is the suitable_job broadcast for a new or reopened job.
func BookingEvent(job *domain.Job, language string) Event {
	if job.Immediate {
		return Event{
			Type:    TypeSuitableJob,
			Message: fmt.Sprintf("New emergency booking for %s interpreter %dmin", language, job.Duration),
			Sound:   SoundEmergencyBooking,
		}
	}
	return Event{
		Type:    TypeSuitableJob,
		Message: fmt.Sprintf("New booking for %s interpreter %dmin %s", language, job.Duration, job.Due.Format(dueFormat)),
		Sound:   SoundNormalBooking,
	}
}

func AcceptedEvent(job *domain.Job, language string) Event {
	return Event{
		Type: TypeJobAccepted,
		Message: fmt.Sprintf("Your booking for a %s interpreter, %d min, on %s has been accepted by an interpreter. Booking #%d",
			language, job.Duration, job.Due.Format(dueFormat), job.ID),
	}
}

func CancelledEvent(job *domain.Job, language string) Event {
	return Event{
		Type:    TypeJobCancelled,
		Message: fmt.Sprintf("The customer cancelled booking #%d for %s on %s", job.ID, language, job.Due.Format(dueFormat)),
	}
}

// TranslatorWithdrewEvent informs the customer that their translator gave the job back.
func TranslatorWithdrewEvent(job *domain.Job, language string) Event {
	return Event{
		Type:    TypeJobCancelled,
		Message: fmt.Sprintf("The interpreter cancelled booking #%d for %s on %s. We are looking for a new interpreter.", job.ID, language, job.Due.Format(dueFormat)),
	}
}

func SessionStartRemindEvent(job *domain.Job, language string) Event {
	where := "by phone"
	if job.RequiresTown() {
		where = "at " + job.Town
		if job.Town == "" {
			where = "at the customer's address"
		}
	}
	return Event{
		Type:    TypeSessionStartRemind,
		Message: fmt.Sprintf("Reminder: %s interpretation %s starts %s (%d min)", language, where, job.Due.Format(dueFormat), job.Duration),
	}
}

func SessionEndedEvent(job *domain.Job) Event {
	return Event{
		Type:    TypeSessionEnded,
		Message: fmt.Sprintf("Session for booking #%d ended after %s", job.ID, job.SessionTime),
	}
}

func ExpiredEvent(job *domain.Job, language string) Event {
	return Event{
		Type:    TypeJobExpired,
		Message: fmt.Sprintf("Unfortunately no %s interpreter accepted booking #%d (%d min, %s). Please contact us by phone.", language, job.ID, job.Duration, job.Due.Format(dueFormat)),
	}
}

// SMSText picks the physical or phone template. Jobs allowing both get the phone text.
func SMSText(job *domain.Job, customer *domain.Customer) string {
	date := job.Due.Format("2006-01-02")
	clock := job.Due.Format("15:04")
	if job.RequiresTown() {
		town := job.Town
		if town == "" && customer != nil {
			town = customer.City
		}
		return fmt.Sprintf("New on-site booking in %s on %s at %s, %d min. Log in to accept booking #%d.", town, date, clock, job.Duration, job.ID)
	}
	return fmt.Sprintf("New phone booking on %s at %s, %d min. Log in to accept booking #%d.", date, clock, job.Duration, job.ID)
}

// JobData is the template data shared by every booking email.
func JobData(job *domain.Job, recipient string) map[string]string {
	return map[string]string{
		"name":        recipient,
		"job_id":      fmt.Sprintf("%d", job.ID),
		"due":         job.Due.Format(dueFormat),
		"duration":    fmt.Sprintf("%d", job.Duration),
		"language_id": fmt.Sprintf("%d", job.FromLanguageID),
		"status":      string(job.Status),
	}
}
