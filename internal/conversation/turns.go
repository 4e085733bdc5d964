package conversation

import (
	"strings"
	"time"
)

const (
	RoleUser = "user"
	RoleBot  = "bot"
)

// Turn is a single message in a conversation. Turns are ordered by timestamp
// and immutable once appended; the turn log is the source of truth from which
// booking state is re-derived on every exchange.
type Turn struct {
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// windowText joins the raw text of the last n turns plus the current message
// into one lowercase string for keyword scanning. History is oldest-first.
func windowText(message string, history []Turn, n int) string {
	turns := history
	if len(turns) > n {
		turns = turns[len(turns)-n:]
	}
	parts := make([]string, 0, len(turns)+1)
	for _, t := range turns {
		parts = append(parts, t.Text)
	}
	parts = append(parts, message)
	return strings.ToLower(strings.Join(parts, " "))
}
