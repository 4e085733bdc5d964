package conversation

import "strings"

// Intent is the per-turn routing decision.
type Intent string

const (
	IntentQuery          Intent = "query"
	IntentBookingAttempt Intent = "booking_attempt"
	IntentChat           Intent = "chat"
)

// bookingVerbs force non-query classification even when the message also
// contains appointment-lookup phrasing.
var bookingVerbs = []string{"book", "schedule", "reserve", "make appointment", "want appointment"}

// queryPhrases indicate the user is asking about existing appointments.
var queryPhrases = []string{
	"my appointment", "my appointments", "show my appointment",
	"when is my appointment", "check my appointment",
	"view my appointment", "do i have appointment",
	"any upcoming appointment", "what appointment do i have",
}

// bookingSignals are booking or confirmation keywords that mark a turn as part
// of a booking exchange.
var bookingSignals = []string{
	"book", "confirm", "schedule", "appointment", "yes", "correct", "all correct",
	"proceed", "go ahead", "thats right", "that's right", "perfect",
}

// Classify decides how a turn is routed. The slots argument is the record
// produced by speculatively running the accumulator over the current window:
// two or more populated fields promote an otherwise neutral message (a bare
// date reply, say) to a booking attempt.
func Classify(message string, slots BookingRecord) Intent {
	lower := strings.ToLower(strings.TrimSpace(message))

	if isAppointmentQuery(lower) {
		return IntentQuery
	}

	for _, kw := range bookingSignals {
		if strings.Contains(lower, kw) {
			return IntentBookingAttempt
		}
	}
	if slots.FilledCount() >= 2 {
		return IntentBookingAttempt
	}

	return IntentChat
}

func isAppointmentQuery(lower string) bool {
	for _, verb := range bookingVerbs {
		if strings.Contains(lower, verb) {
			return false
		}
	}
	for _, phrase := range queryPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}
