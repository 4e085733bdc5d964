package conversation

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		message string
		slots   BookingRecord
		want    Intent
	}{
		{
			name:    "query phrase",
			message: "Do I have any upcoming appointments?",
			want:    IntentQuery,
		},
		{
			name:    "query phrase with booking verb wins for booking",
			message: "Do I have any appointments booked?",
			want:    IntentBookingAttempt,
		},
		{
			name:    "query phrase my appointments",
			message: "show my appointments please",
			want:    IntentQuery,
		},
		{
			name:    "query phrase overridden by booking verb",
			message: "I want to book my appointment",
			want:    IntentBookingAttempt,
		},
		{
			name:    "booking keyword",
			message: "please book me in",
			want:    IntentBookingAttempt,
		},
		{
			name:    "bare confirmation",
			message: "yes",
			want:    IntentBookingAttempt,
		},
		{
			name:    "two slots filled without keywords",
			message: "sounds good",
			slots:   BookingRecord{Date: "2025-10-23", Time: "11:00"},
			want:    IntentBookingAttempt,
		},
		{
			name:    "one slot filled without keywords",
			message: "hmm let me think",
			slots:   BookingRecord{Date: "2025-10-23"},
			want:    IntentChat,
		},
		{
			name:    "small talk",
			message: "how are you doing",
			want:    IntentChat,
		},
		{
			name:    "treatment question",
			message: "what does a root canal cost?",
			want:    IntentChat,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.message, tt.slots); got != tt.want {
				t.Errorf("Classify(%q) = %v, want %v", tt.message, got, tt.want)
			}
		})
	}
}
