package conversation

import (
	"testing"
	"time"
)

// Wednesday, 15 October 2025.
var wednesday = time.Date(2025, time.October, 15, 10, 0, 0, 0, time.UTC)

func TestExtractDateRelative(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"today", "can I come in today?", "2025-10-15"},
		{"tomorrow", "book me for tomorrow please", "2025-10-16"},
		{"day after tomorrow", "the day after tomorrow works", "2025-10-17"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := extractDateAt(tt.input, wednesday)
			if !ok {
				t.Fatalf("extractDateAt(%q) found no date", tt.input)
			}
			if got != tt.want {
				t.Errorf("extractDateAt(%q) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestExtractDateMonthDay(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"day month", "23 oct at 11", "2025-10-23"},
		{"day month ordinal", "the 27th october", "2025-10-27"},
		{"month day", "october 27", "2025-10-27"},
		{"month day ordinal", "December 3rd", "2025-12-03"},
		{"past date rolls to next year", "5 jan please", "2026-01-05"},
		{"full month name", "14 february", "2026-02-14"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := extractDateAt(tt.input, wednesday)
			if !ok {
				t.Fatalf("extractDateAt(%q) found no date", tt.input)
			}
			if got != tt.want {
				t.Errorf("extractDateAt(%q) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestExtractDateWeekday(t *testing.T) {
	// Said on a Wednesday: every resolved weekday must be strictly in the
	// future and land on the named day.
	tests := []struct {
		input string
		want  string
	}{
		{"next monday", "2025-10-20"},
		{"this friday", "2025-10-17"},
		{"next wednesday", "2025-10-22"}, // same weekday: a full week out, never today
		{"next sat", "2025-10-18"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := extractDateAt(tt.input, wednesday)
			if !ok {
				t.Fatalf("extractDateAt(%q) found no date", tt.input)
			}
			if got != tt.want {
				t.Errorf("extractDateAt(%q) = %s, want %s", tt.input, got, tt.want)
			}
			d, err := time.Parse(dateLayout, got)
			if err != nil {
				t.Fatalf("result %q is not a date: %v", got, err)
			}
			if !d.After(wednesday.Truncate(24 * time.Hour)) {
				t.Errorf("resolved date %s is not strictly in the future", got)
			}
		})
	}
}

func TestExtractDateLiteralForms(t *testing.T) {
	if got, ok := extractDateAt("see you 2025-11-30", wednesday); !ok || got != "2025-11-30" {
		t.Errorf("ISO literal = %q, %v", got, ok)
	}
	if got, ok := extractDateAt("10/11/2025 works", wednesday); !ok || got != "2025-11-10" {
		t.Errorf("D/M/YYYY = %q, %v", got, ok)
	}
	if got, ok := extractDateAt("1-12-2025", wednesday); !ok || got != "2025-12-01" {
		t.Errorf("D-M-YYYY = %q, %v", got, ok)
	}
}

func TestExtractDateNoMatch(t *testing.T) {
	inputs := []string{
		"",
		"hello there",
		"my tooth hurts a lot",
		"10/13/2025", // month 13 in day-month-year order
	}
	for _, input := range inputs {
		if got, ok := extractDateAt(input, wednesday); ok {
			t.Errorf("extractDateAt(%q) = %s, want no match", input, got)
		}
	}
}

func TestExtractTime(t *testing.T) {
	tests := []struct {
		input string
		want  string
		ok    bool
	}{
		{"2 pm", "14:00", true},
		{"11 AM", "11:00", true},
		{"12 am", "00:00", true},
		{"12 pm", "12:00", true},
		{"2:30 am", "02:30", true},
		{"4:15pm", "16:15", true},
		{"14:45", "14:45", true},
		{"9:05", "09:05", true},
		{"25:00", "", false},
		{"10:75", "", false},
		{"sometime soon", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ExtractTime(tt.input)
			if ok != tt.ok {
				t.Fatalf("ExtractTime(%q) ok = %v, want %v", tt.input, ok, tt.ok)
			}
			if got != tt.want {
				t.Errorf("ExtractTime(%q) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}
