package matcher

import (
	"github.com/cuongbtq/interpreter-booking/internal/domain"
)

// Reason explains why a translator was filtered out. Empty means eligible.
type Reason string

const (
	Eligible        Reason = ""
	ReasonType      Reason = "translator_type"
	ReasonLanguage  Reason = "language"
	ReasonGender    Reason = "gender"
	ReasonLevel     Reason = "certification_level"
	ReasonBlacklist Reason = "blacklisted"
	ReasonTown      Reason = "town"
	ReasonReserved  Reason = "reserved_for_other"
	ReasonStatus    Reason = "not_pending"
)

// Check runs every eligibility rule for one translator against one job.
// customer may be nil when the owner is unknown, in which case blacklist and
// town rules cannot be satisfied for jobs that need them.
func Check(job *domain.Job, customer *domain.Customer, t *domain.Translator) Reason {
	want, ok := domain.TranslatorTypeFor(job.JobType)
	if !ok || t.Type != want {
		return ReasonType
	}
	if !t.SpeaksLanguage(job.FromLanguageID) {
		return ReasonLanguage
	}
	if job.Gender != "" && t.Gender != job.Gender {
		return ReasonGender
	}
	if !levelAllowed(job.Certified, t.Level) {
		return ReasonLevel
	}
	if customer != nil && customer.Blacklisted(t.ID) {
		return ReasonBlacklist
	}
	if job.RequiresTown() && (customer == nil || !t.SharesTown(customer)) {
		return ReasonTown
	}
	if !job.ReservedTo(t.ID) {
		return ReasonReserved
	}
	return Eligible
}

func levelAllowed(c domain.Certified, level domain.TranslatorLevel) bool {
	for _, allowed := range domain.AllowedLevels(c) {
		if allowed == level {
			return true
		}
	}
	return false
}

// FindEligibleTranslators returns the members of pool that may be offered the job.
func FindEligibleTranslators(job *domain.Job, customer *domain.Customer, pool []*domain.Translator) []*domain.Translator {
	eligible := make([]*domain.Translator, 0, len(pool))
	for _, t := range pool {
		if Check(job, customer, t) == Eligible {
			eligible = append(eligible, t)
		}
	}
	return eligible
}

// Candidate is an open job together with its owner
type Candidate struct {
	Job      *domain.Job
	Customer *domain.Customer
}

// FindEligibleJobs returns the pending candidates the translator may accept.
// The input slice is never modified.
func FindEligibleJobs(t *domain.Translator, candidates []Candidate) []*domain.Job {
	jobs := make([]*domain.Job, 0, len(candidates))
	for _, c := range candidates {
		if c.Job.Status != domain.JobStatusPending {
			continue
		}
		if Check(c.Job, c.Customer, t) == Eligible {
			jobs = append(jobs, c.Job)
		}
	}
	return jobs
}

// IDs returns the translator ids in order
func IDs(translators []*domain.Translator) []int64 {
	ids := make([]int64, 0, len(translators))
	for _, t := range translators {
		ids = append(ids, t.ID)
	}
	return ids
}
