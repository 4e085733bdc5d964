package clinic

import (
	"fmt"
	"strings"
	"time"
)

// RejectKind names the business rule a candidate slot violated. Callers
// branch on the kind; Message carries the user-facing text verbatim.
type RejectKind string

const (
	RejectBadFormat    RejectKind = "bad_format"
	RejectPastDate     RejectKind = "past_date"
	RejectClosedDay    RejectKind = "closed_day"
	RejectOutsideHours RejectKind = "outside_hours"
	RejectOffHour      RejectKind = "off_hour"
	RejectElapsedToday RejectKind = "elapsed_today"
)

// ValidationError is a business-rule rejection. Message is shown to the
// user as-is.
type ValidationError struct {
	Kind    RejectKind
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func reject(kind RejectKind, message string) *ValidationError {
	return &ValidationError{Kind: kind, Message: message}
}

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

// Validator checks candidate appointment slots against the clinic schedule.
type Validator struct {
	schedule *Schedule
	now      func() time.Time
}

// NewValidator panics on a nil schedule: validation without one is a
// programming error, not a runtime condition.
func NewValidator(schedule *Schedule) *Validator {
	if schedule == nil {
		panic("clinic: NewValidator called with nil schedule")
	}
	return &Validator{schedule: schedule, now: time.Now}
}

// ValidateDate accepts today or any later non-Sunday date.
func (v *Validator) ValidateDate(dateStr string) error {
	day, err := time.ParseInLocation(dateLayout, dateStr, v.schedule.Location())
	if err != nil {
		return reject(RejectBadFormat, "Invalid date format. Use YYYY-MM-DD")
	}
	today := v.today()
	if day.Before(today) {
		return reject(RejectPastDate, "Please choose a future date (not past dates).")
	}
	if day.Weekday() == time.Sunday {
		return reject(RejectClosedDay, "We're closed on Sundays. Please choose another day.")
	}
	return nil
}

// ValidateTime checks the requested time against the first branch's hours
// for the appointment date's weekday. Appointments start on the hour. When
// the date is today, times that have already passed are rejected.
func (v *Validator) ValidateTime(timeStr, dateStr string) error {
	day, err := time.ParseInLocation(dateLayout, dateStr, v.schedule.Location())
	if err != nil {
		return reject(RejectBadFormat, "Invalid date format. Use YYYY-MM-DD")
	}
	at, err := time.Parse(timeLayout, timeStr)
	if err != nil {
		return reject(RejectBadFormat, "Invalid time format. Use HH:MM (e.g., 14:00)")
	}

	hours := v.schedule.HoursFor(day.Weekday())
	if hours == Closed {
		return reject(RejectClosedDay, fmt.Sprintf("Clinic is closed on %s", day.Weekday()))
	}
	openMin, closeMin, err := parseHoursRange(hours)
	if err != nil {
		return reject(RejectBadFormat, "Invalid time format. Use HH:MM (e.g., 14:00)")
	}

	minutes := at.Hour()*60 + at.Minute()
	if minutes < openMin || minutes >= closeMin {
		return reject(RejectOutsideHours, fmt.Sprintf("Please choose time between %s and %s", formatMinutes(openMin), formatMinutes(closeMin)))
	}
	if at.Minute() != 0 {
		return reject(RejectOffHour, "Appointments are on the hour (e.g., 10:00, 11:00, 14:00)")
	}

	if day.Equal(v.today()) {
		now := v.now().In(v.schedule.Location())
		if minutes <= now.Hour()*60+now.Minute() {
			return reject(RejectElapsedToday, "That time has already passed today. Please choose a later time.")
		}
	}
	return nil
}

func (v *Validator) today() time.Time {
	now := v.now().In(v.schedule.Location())
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, v.schedule.Location())
}

// parseHoursRange splits "09:00-18:00" into minute-of-day bounds.
func parseHoursRange(hours string) (openMin, closeMin int, err error) {
	parts := strings.SplitN(hours, "-", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("clinic: malformed hours range %q", hours)
	}
	for i, p := range parts {
		at, perr := time.Parse(timeLayout, strings.TrimSpace(p))
		if perr != nil {
			return 0, 0, fmt.Errorf("clinic: malformed hours range %q: %w", hours, perr)
		}
		if i == 0 {
			openMin = at.Hour()*60 + at.Minute()
		} else {
			closeMin = at.Hour()*60 + at.Minute()
		}
	}
	return openMin, closeMin, nil
}

func formatMinutes(m int) string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}
