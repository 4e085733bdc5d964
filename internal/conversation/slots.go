package conversation

import (
	"regexp"
	"strings"
)

// Clinic branches and dentists are small fixed sets resolved by ordered
// first-match keyword tables.
const (
	BranchDHA     = "NeoImplant - DHA"
	BranchClifton = "NeoImplant - Clifton"

	DentistFatima = "Dr. Fatima Khan"
	DentistAhmed  = "Dr. Ahmed Raza"
)

// BookingRecord is the accumulating, partially-filled booking. It has no
// identity of its own: it is rebuilt from the conversation window on every
// turn, and is only persisted once complete and validated.
type BookingRecord struct {
	Date      string
	Time      string
	Branch    string
	Dentist   string
	Treatment string
}

// FilledCount returns how many of the five fields are populated.
func (r BookingRecord) FilledCount() int {
	n := 0
	for _, f := range []string{r.Date, r.Time, r.Branch, r.Dentist, r.Treatment} {
		if f != "" {
			n++
		}
	}
	return n
}

// Complete reports whether all five fields are present.
func (r BookingRecord) Complete() bool {
	return r.FilledCount() == 5
}

// MissingFields lists the unpopulated field names in a fixed order.
func (r BookingRecord) MissingFields() []string {
	var missing []string
	if r.Date == "" {
		missing = append(missing, "date")
	}
	if r.Time == "" {
		missing = append(missing, "time")
	}
	if r.Branch == "" {
		missing = append(missing, "branch")
	}
	if r.Dentist == "" {
		missing = append(missing, "dentist")
	}
	if r.Treatment == "" {
		missing = append(missing, "treatment")
	}
	return missing
}

type keywordLabel struct {
	keyword string
	label   string
}

// branchKeywords and dentistKeywords are ordered: the first keyword found in
// the window wins.
var branchKeywords = []keywordLabel{
	{"dha", BranchDHA},
	{"clifton", BranchClifton},
}

var dentistKeywords = []keywordLabel{
	{"fatima", DentistFatima},
	{"ahmed", DentistAhmed},
	{"raza", DentistAhmed},
}

var treatmentKeywords = []keywordLabel{
	{"crown", "Dental Crown"},
	{"crowning", "Dental Crown"},
	{"scaling", "Scaling and Polishing"},
	{"cleaning", "Scaling and Polishing"},
	{"filling", "Dental Filling"},
	{"implant", "Dental Implant"},
	{"root canal", "Root Canal Treatment"},
	{"extraction", "Tooth Extraction"},
	{"consultation", "Consultation"},
	{"checkup", "General Checkup"},
	{"check-up", "General Checkup"},
	{"discussion", "Discussion and Diagnosis"},
	{"diagnosis", "Discussion and Diagnosis"},
	{"exam", "Dental Examination"},
	{"bleeding gums", "Gum Treatment"},
	{"gum", "Gum Treatment"},
}

// treatmentSkipWords disqualify a past user turn from being treated as a
// free-text treatment description.
var treatmentSkipWords = []string{
	"yes", "no", "ok", "okay", "sure", "dha", "clifton",
	"fatima", "ahmed", "raza", "confirm", "correct", "book",
	"tomorrow", "today", "am", "pm",
}

var (
	clockDigitsRE    = regexp.MustCompile(`\d{1,2}:\d{2}`)
	hourMeridiemAnyRE = regexp.MustCompile(`\d{1,2}\s*(am|pm)`)
	monthTokenRE     = regexp.MustCompile(`\b(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)`)
)

const (
	slotWindowTurns     = 15
	dateTimeWindowTurns = 10
	treatmentScanTurns  = 10
	minTreatmentTextLen = 8
)

// Accumulate rebuilds the partial booking from the current message plus the
// most recent conversation turns (oldest-first). Branch, dentist, and
// treatment keywords scan a 15-turn window; date and time extraction re-scan
// their own shorter 10-turn window.
func Accumulate(message string, history []Turn) BookingRecord {
	var rec BookingRecord

	window := windowText(message, history, slotWindowTurns)
	dateTimeWindow := windowText(message, history, dateTimeWindowTurns)

	if date, ok := ExtractDate(dateTimeWindow); ok {
		rec.Date = date
	}
	if t, ok := ExtractTime(dateTimeWindow); ok {
		rec.Time = t
	}

	for _, kl := range branchKeywords {
		if strings.Contains(window, kl.keyword) {
			rec.Branch = kl.label
			break
		}
	}

	for _, kl := range dentistKeywords {
		if strings.Contains(window, kl.keyword) {
			rec.Dentist = kl.label
			break
		}
	}

	for _, kl := range treatmentKeywords {
		if strings.Contains(window, kl.keyword) {
			rec.Treatment = kl.label
			break
		}
	}

	if rec.Treatment == "" {
		rec.Treatment = freeTextTreatment(history)
	}

	return rec
}

// freeTextTreatment scans the last turns most-recent-first for a substantive
// user message that can stand in as a treatment description, letting a symptom
// like "my left molar aches when I chew" fill the treatment field verbatim.
func freeTextTreatment(history []Turn) string {
	turns := history
	if len(turns) > treatmentScanTurns {
		turns = turns[len(turns)-treatmentScanTurns:]
	}

	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Role != RoleUser {
			continue
		}
		text := strings.TrimSpace(turns[i].Text)
		if len(text) <= minTreatmentTextLen {
			continue
		}
		lower := strings.ToLower(text)
		if containsAny(lower, treatmentSkipWords) {
			continue
		}
		if clockDigitsRE.MatchString(text) || hourMeridiemAnyRE.MatchString(lower) || monthTokenRE.MatchString(lower) {
			continue
		}
		return text
	}
	return ""
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
