package conversation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// monthPattern pairs a month name with its compiled day-first and month-first
// patterns. Patterns are tried in table order; the first hit wins, so
// abbreviations sit next to their full names ("27 jan" and "27 january" both
// resolve to January before February is ever considered).
type monthPattern struct {
	month      time.Month
	dayFirst   *regexp.Regexp
	monthFirst *regexp.Regexp
}

var monthPatterns = buildMonthPatterns()

func buildMonthPatterns() []monthPattern {
	names := []struct {
		name  string
		month time.Month
	}{
		{"jan", time.January}, {"january", time.January},
		{"feb", time.February}, {"february", time.February},
		{"mar", time.March}, {"march", time.March},
		{"apr", time.April}, {"april", time.April},
		{"may", time.May},
		{"jun", time.June}, {"june", time.June},
		{"jul", time.July}, {"july", time.July},
		{"aug", time.August}, {"august", time.August},
		{"sep", time.September}, {"sept", time.September}, {"september", time.September},
		{"oct", time.October}, {"october", time.October},
		{"nov", time.November}, {"november", time.November},
		{"dec", time.December}, {"december", time.December},
	}

	patterns := make([]monthPattern, 0, len(names))
	for _, n := range names {
		patterns = append(patterns, monthPattern{
			month:      n.month,
			dayFirst:   regexp.MustCompile(`\b(\d{1,2})(?:st|nd|rd|th)?\s+` + n.name + `\b`),
			monthFirst: regexp.MustCompile(`\b` + n.name + `\s+(\d{1,2})(?:st|nd|rd|th)?\b`),
		})
	}
	return patterns
}

// weekdayNames is ordered full names first so "next tuesday" never matches the
// "tue" abbreviation mid-word.
var weekdayNames = []struct {
	name string
	day  time.Weekday
}{
	{"monday", time.Monday}, {"tuesday", time.Tuesday}, {"wednesday", time.Wednesday},
	{"thursday", time.Thursday}, {"friday", time.Friday}, {"saturday", time.Saturday},
	{"sunday", time.Sunday},
	{"mon", time.Monday}, {"tue", time.Tuesday}, {"wed", time.Wednesday},
	{"thu", time.Thursday}, {"fri", time.Friday}, {"sat", time.Saturday},
	{"sun", time.Sunday},
}

var (
	isoDateRE   = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
	slashDateRE = regexp.MustCompile(`\b(\d{1,2})[/-](\d{1,2})[/-](\d{4})\b`)

	// The leading guard keeps the hour pattern from grabbing the minutes of a
	// clock time: in "2:30 pm" the "30" is preceded by a colon and skipped.
	hourMeridiemRE  = regexp.MustCompile(`(?:^|[^0-9:])(\d{1,2})\s*(am|pm)\b`)
	clockMeridiemRE = regexp.MustCompile(`\b(\d{1,2}):(\d{2})\s*(am|pm)\b`)
	clock24RE       = regexp.MustCompile(`\b(\d{1,2}):(\d{2})\b`)
)

// ExtractDate parses a natural-language date expression out of free text and
// returns it as YYYY-MM-DD. The second return is false when no pattern matched.
func ExtractDate(text string) (string, bool) {
	return extractDateAt(text, time.Now())
}

func extractDateAt(text string, now time.Time) (string, bool) {
	lower := strings.ToLower(strings.TrimSpace(text))
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	// Relative dates. "day after tomorrow" must be checked before plain
	// "tomorrow"; "today" keeps precedence over "tomorrow" when both occur.
	switch {
	case strings.Contains(lower, "day after tomorrow"):
		return today.AddDate(0, 0, 2).Format(dateLayout), true
	case strings.Contains(lower, "today"):
		return today.Format(dateLayout), true
	case strings.Contains(lower, "tomorrow"):
		return today.AddDate(0, 0, 1).Format(dateLayout), true
	}

	// "27 october" / "october 27th" with optional ordinal suffix. Year defaults
	// to the current one and rolls forward when the naive date already passed.
	for _, mp := range monthPatterns {
		for _, re := range []*regexp.Regexp{mp.dayFirst, mp.monthFirst} {
			m := re.FindStringSubmatch(lower)
			if m == nil {
				continue
			}
			day, _ := strconv.Atoi(m[1])
			d, ok := calendarDate(now.Year(), mp.month, day, now.Location())
			if !ok {
				continue
			}
			if d.Before(today) {
				if next, ok := calendarDate(now.Year()+1, mp.month, day, now.Location()); ok {
					return next.Format(dateLayout), true
				}
				continue
			}
			return d.Format(dateLayout), true
		}
	}

	// "next friday" / "this friday": always strictly in the future, never today.
	for _, wd := range weekdayNames {
		if !strings.Contains(lower, "next "+wd.name) && !strings.Contains(lower, "this "+wd.name) {
			continue
		}
		offset := (int(wd.day) - int(today.Weekday()) + 7) % 7
		if offset == 0 {
			offset = 7
		}
		return today.AddDate(0, 0, offset).Format(dateLayout), true
	}

	if m := isoDateRE.FindString(text); m != "" {
		return m, true
	}

	if m := slashDateRE.FindStringSubmatch(text); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		if d, ok := calendarDate(year, time.Month(month), day, now.Location()); ok {
			return d.Format(dateLayout), true
		}
	}

	return "", false
}

// ExtractTime parses a natural-language time expression and returns it as
// HH:MM in 24-hour form.
func ExtractTime(text string) (string, bool) {
	lower := strings.ToLower(strings.TrimSpace(text))

	if m := hourMeridiemRE.FindStringSubmatch(lower); m != nil {
		hour, _ := strconv.Atoi(m[1])
		if hour >= 1 && hour <= 12 {
			return fmt.Sprintf("%02d:00", to24Hour(hour, m[2])), true
		}
	}

	if m := clockMeridiemRE.FindStringSubmatch(lower); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute, _ := strconv.Atoi(m[2])
		if hour >= 1 && hour <= 12 && minute <= 59 {
			return fmt.Sprintf("%02d:%02d", to24Hour(hour, m[3]), minute), true
		}
	}

	if m := clock24RE.FindStringSubmatch(text); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute, _ := strconv.Atoi(m[2])
		if hour <= 23 && minute <= 59 {
			return fmt.Sprintf("%02d:%02d", hour, minute), true
		}
	}

	return "", false
}

func to24Hour(hour int, meridiem string) int {
	if meridiem == "pm" && hour != 12 {
		return hour + 12
	}
	if meridiem == "am" && hour == 12 {
		return 0
	}
	return hour
}

// calendarDate builds a date and rejects values that time.Date would have
// silently normalized, such as February 30th.
func calendarDate(year int, month time.Month, day int, loc *time.Location) (time.Time, bool) {
	if day < 1 || day > 31 || month < time.January || month > time.December {
		return time.Time{}, false
	}
	d := time.Date(year, month, day, 0, 0, 0, 0, loc)
	if d.Year() != year || d.Month() != month || d.Day() != day {
		return time.Time{}, false
	}
	return d, true
}
