package domain

// Booking form values of the job_for list
const (
	JobForMale            = "male"
	JobForFemale          = "female"
	JobForNormal          = "normal"
	JobForCertified       = "certified"
	JobForCertifiedLaw    = "certified_in_law"
	JobForCertifiedHealth = "certified_in_helth"
)

var genderPriority = []Gender{GenderMale, GenderFemale}

// certifiedCombos is checked in order before the single-flag mapping.
var certifiedCombos = []struct {
	all    []string
	result Certified
}{
	{[]string{JobForNormal, JobForCertified}, CertifiedBoth},
	{[]string{JobForNormal, JobForCertifiedLaw}, CertifiedNLaw},
	{[]string{JobForNormal, JobForCertifiedHealth}, CertifiedNHealth},
}

var certifiedSingles = []struct {
	flag   string
	result Certified
}{
	{JobForNormal, CertifiedNormal},
	{JobForCertified, CertifiedYes},
	{JobForCertifiedLaw, CertifiedLaw},
	{JobForCertifiedHealth, CertifiedHealth},
}

var jobTypeByConsumer = map[ConsumerType]JobType{
	ConsumerTypeRWS:  JobTypeRWS,
	ConsumerTypeNGO:  JobTypeUnpaid,
	ConsumerTypePaid: JobTypePaid,
}

var translatorTypeByJobType = map[JobType]TranslatorType{
	JobTypePaid:   TranslatorTypeProfessional,
	JobTypeRWS:    TranslatorTypeRWS,
	JobTypeUnpaid: TranslatorTypeVolunteer,
}

var (
	certifiedLevels = []TranslatorLevel{LevelCertified, LevelCertifiedLaw, LevelCertifiedHealth}
	laymanLevels    = []TranslatorLevel{LevelLayman, LevelReadCourses}
	allLevels       = []TranslatorLevel{LevelCertified, LevelCertifiedLaw, LevelCertifiedHealth, LevelLayman, LevelReadCourses}
)

// levelsByCertified: "both" accepts either certified or layman translators.
var levelsByCertified = map[Certified][]TranslatorLevel{
	CertifiedYes:     certifiedLevels,
	CertifiedBoth:    allLevels,
	CertifiedLaw:     {LevelCertifiedLaw},
	CertifiedNLaw:    {LevelCertifiedLaw},
	CertifiedHealth:  {LevelCertifiedHealth},
	CertifiedNHealth: {LevelCertifiedHealth},
	CertifiedNormal:  laymanLevels,
}

// DeriveGender picks the first requested gender, male before female.
func DeriveGender(jobFor []string) Gender {
	for _, g := range genderPriority {
		if contains(jobFor, string(g)) {
			return g
		}
	}
	return ""
}

// DeriveCertified maps the job_for list to a certification requirement. Empty means unset.
func DeriveCertified(jobFor []string) Certified {
	for _, combo := range certifiedCombos {
		matched := true
		for _, flag := range combo.all {
			if !contains(jobFor, flag) {
				matched = false
				break
			}
		}
		if matched {
			return combo.result
		}
	}
	for _, single := range certifiedSingles {
		if contains(jobFor, single.flag) {
			return single.result
		}
	}
	return ""
}

// JobTypeFor derives the job type from the customer's consumer type.
func JobTypeFor(ct ConsumerType) (JobType, bool) {
	jt, ok := jobTypeByConsumer[ct]
	return jt, ok
}

// TranslatorTypeFor returns the translator type allowed to take jobs of type jt.
func TranslatorTypeFor(jt JobType) (TranslatorType, bool) {
	tt, ok := translatorTypeByJobType[jt]
	return tt, ok
}

// JobTypeForTranslator is the inverse of TranslatorTypeFor.
func JobTypeForTranslator(tt TranslatorType) (JobType, bool) {
	for jt, candidate := range translatorTypeByJobType {
		if candidate == tt {
			return jt, true
		}
	}
	return "", false
}

// AllowedLevels returns the translator levels that satisfy the requirement.
// An unset or unknown requirement accepts every level.
func AllowedLevels(c Certified) []TranslatorLevel {
	if levels, ok := levelsByCertified[c]; ok {
		return levels
	}
	return allLevels
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
