// Package dates normalizes and validates the date and time strings that come
// out of receipt scans. Everything here is a pure function: the caller supplies
// the locale format and the clock, so results are reproducible in tests.
package dates

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Format is the locale convention used to break ties when a digit date could be
// read either way (both components <= 12).
type Format string

const (
	// DayMonthYear reads "03/04/2024" as the 3rd of April.
	DayMonthYear Format = "DD/MM/YYYY"
	// MonthDayYear reads "03/04/2024" as the 4th of March.
	MonthDayYear Format = "MM/DD/YYYY"
	// ISO is YYYY-MM-DD and is never ambiguous.
	ISO Format = "YYYY-MM-DD"
)

var (
	isoDateRegex = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	timeRegex    = regexp.MustCompile(`^\d{2}:\d{2}$`)
)

// monthNameLayouts covers the written-date forms that show up on receipts,
// e.g. "12 May 2023" or "May 12, 2023".
var monthNameLayouts = []string{
	"2 January 2006",
	"2 Jan 2006",
	"2 January 06",
	"2 Jan 06",
	"January 2, 2006",
	"Jan 2, 2006",
	"January 2 2006",
	"Jan 2 2006",
}

// NormalizeDate parses heterogeneous date text into YYYY-MM-DD. It accepts
// digit-separated dates (/, -, .), ISO dates, and month-name forms. Returns ""
// when the input cannot be read as a plausible date.
//
// Disambiguation for digit dates: a component greater than 12 must be the day,
// regardless of format. If both components exceed 12 the input is invalid.
// Otherwise the order follows format, defaulting to day-month.
func NormalizeDate(raw string, format Format) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	// Month-name forms go through time.Parse layouts.
	if strings.IndexFunc(raw, func(r rune) bool {
		return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
	}) >= 0 {
		cleaned := strings.Join(strings.Fields(raw), " ")
		for _, layout := range monthNameLayouts {
			if d, err := time.Parse(layout, cleaned); err == nil {
				return d.Format("2006-01-02")
			}
		}
		return ""
	}

	// Digit forms: normalize separators and split.
	cleaned := strings.NewReplacer("-", "/", ".", "/").Replace(raw)
	parts := strings.Split(cleaned, "/")
	if len(parts) != 3 {
		return ""
	}

	p1, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
	p2, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
	p3, err3 := strconv.Atoi(strings.TrimSpace(parts[2]))
	if err1 != nil || err2 != nil || err3 != nil {
		return ""
	}

	var year, month, day int
	switch {
	case p1 > 31:
		// YYYY/MM/DD
		year, month, day = p1, p2, p3
	case p1 > 12 && p2 > 12:
		// Neither component can be a month.
		return ""
	case p1 > 12:
		day, month, year = p1, p2, p3
	case p2 > 12:
		month, day, year = p1, p2, p3
	case format == MonthDayYear:
		month, day, year = p1, p2, p3
	default:
		day, month, year = p1, p2, p3
	}

	if year < 100 {
		year += 2000
	}
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return ""
	}

	return fmt.Sprintf("%04d-%02d-%02d", year, month, day)
}

// ValidateDate returns s when it is a real YYYY-MM-DD calendar date, not after
// now's local date, and not more than 5 years before it. Anything else returns
// "". The 5-year window guards against OCR noise producing nonsense years.
func ValidateDate(s string, now time.Time) string {
	if !isoDateRegex.MatchString(s) {
		return ""
	}
	if _, err := time.Parse("2006-01-02", s); err != nil {
		return ""
	}

	// YYYY-MM-DD strings compare correctly as strings.
	if s > Today(now) {
		return ""
	}
	if s < now.AddDate(-5, 0, 0).Format("2006-01-02") {
		return ""
	}
	return s
}

// ValidateTime returns s when it matches HH:MM with a valid hour and minute,
// else "".
func ValidateTime(s string) string {
	if !timeRegex.MatchString(s) {
		return ""
	}
	hour, _ := strconv.Atoi(s[:2])
	minute, _ := strconv.Atoi(s[3:])
	if hour > 23 || minute > 59 {
		return ""
	}
	return s
}

// Today formats now's local calendar date as YYYY-MM-DD.
func Today(now time.Time) string {
	return now.Format("2006-01-02")
}

// CurrentTime formats now's local clock time as HH:MM.
func CurrentTime(now time.Time) string {
	return now.Format("15:04")
}
