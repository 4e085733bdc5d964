// Package clinic holds the branch schedule and the appointment business rules.
package clinic

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"
)

// Branch describes one clinic location. Hours maps lowercase weekday names
// ("monday".."sunday") to either "HH:MM-HH:MM" or "Closed".
type Branch struct {
	Name    string            `json:"name"`
	Address string            `json:"address"`
	Phone   string            `json:"phone"`
	Hours   map[string]string `json:"hours"`
}

// Closed is the sentinel value used in Branch.Hours for non-working days.
const Closed = "Closed"

// Schedule is the configured set of branches plus the clinic timezone.
// Branch order is significant: hour validation consults the first branch.
type Schedule struct {
	branches []Branch
	loc      *time.Location
}

// NewSchedule builds a schedule over the given branches. tz must be a valid
// IANA timezone name such as "Asia/Karachi".
func NewSchedule(branches []Branch, tz string) (*Schedule, error) {
	if len(branches) == 0 {
		return nil, fmt.Errorf("clinic: no branches configured")
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("clinic: load timezone %q: %w", tz, err)
	}
	return &Schedule{branches: branches, loc: loc}, nil
}

// LoadSchedule reads the branch list from the clinic_info section of the
// knowledge file.
func LoadSchedule(path, tz string) (*Schedule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("clinic: read knowledge file: %w", err)
	}
	var doc struct {
		ClinicInfo struct {
			Branches []Branch `json:"branches"`
		} `json:"clinic_info"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("clinic: parse knowledge file: %w", err)
	}
	return NewSchedule(doc.ClinicInfo.Branches, tz)
}

// Branches returns all configured branches in order.
func (s *Schedule) Branches() []Branch {
	return s.branches
}

// Location returns the clinic timezone.
func (s *Schedule) Location() *time.Location {
	return s.loc
}

// HoursFor returns the first branch's operating hours string for the given
// weekday, or Closed when none is configured.
func (s *Schedule) HoursFor(day time.Weekday) string {
	hours, ok := s.branches[0].Hours[strings.ToLower(day.String())]
	if !ok || hours == "" {
		return Closed
	}
	return hours
}
