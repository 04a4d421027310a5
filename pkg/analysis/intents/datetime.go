package intents

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Resolved is the outcome of interpreting loose date and time phrases.
// Date and Time hold ISO values when resolution succeeded; RawDate and
// RawTime always carry the original phrases so downstream dispatch can
// fall back to them.
type Resolved struct {
	Date    string `json:"date,omitempty"`
	Time    string `json:"time,omitempty"`
	RawDate string `json:"raw_date,omitempty"`
	RawTime string `json:"raw_time,omitempty"`
}

var weekdayNames = []struct {
	name string
	day  time.Weekday
}{
	{"monday", time.Monday},
	{"tuesday", time.Tuesday},
	{"wednesday", time.Wednesday},
	{"thursday", time.Thursday},
	{"friday", time.Friday},
	{"saturday", time.Saturday},
	{"sunday", time.Sunday},
}

var timePattern = regexp.MustCompile(`(\d{1,2}):?(\d{2})?\s*(am|pm)?`)

// ResolveDateTime interprets the date and time phrases carried by a
// scheduling intent, relative to now. It returns nil when both inputs are
// empty. Phrases it cannot interpret are left unresolved but preserved in
// the raw fields rather than dropped.
func ResolveDateTime(rawDate, rawTime string, now time.Time) *Resolved {
	if strings.TrimSpace(rawDate) == "" && strings.TrimSpace(rawTime) == "" {
		return nil
	}

	r := &Resolved{RawDate: rawDate, RawTime: rawTime}
	if d, ok := resolveDate(rawDate, now); ok {
		r.Date = d.Format("2006-01-02")
	}
	if t, ok := resolveTime(rawTime); ok {
		r.Time = t
	}
	return r
}

func resolveDate(raw string, now time.Time) (time.Time, bool) {
	phrase := strings.ToLower(strings.TrimSpace(raw))
	if phrase == "" {
		return time.Time{}, false
	}

	// Keywords match anywhere in the phrase so qualifiers like
	// "tomorrow morning" still resolve.
	switch {
	case strings.Contains(phrase, "tomorrow"):
		return now.AddDate(0, 0, 1), true
	case strings.Contains(phrase, "today"):
		return now, true
	case strings.Contains(phrase, "next week"):
		// The upcoming Monday.
		mondayBased := (int(now.Weekday()) + 6) % 7
		return now.AddDate(0, 0, 7-mondayBased), true
	}

	// Weekday names resolve to the next occurrence, never today.
	for _, w := range weekdayNames {
		if strings.Contains(phrase, w.name) {
			ahead := (int(w.day) - int(now.Weekday()) + 7) % 7
			if ahead == 0 {
				ahead = 7
			}
			return now.AddDate(0, 0, ahead), true
		}
	}

	// Already ISO formatted.
	if d, err := time.Parse("2006-01-02", phrase); err == nil {
		return d, true
	}

	return time.Time{}, false
}

func resolveTime(raw string) (string, bool) {
	phrase := strings.ToLower(strings.TrimSpace(raw))
	if phrase == "" {
		return "", false
	}

	m := timePattern.FindStringSubmatch(phrase)
	if m == nil {
		return "", false
	}

	hour, err := strconv.Atoi(m[1])
	if err != nil {
		return "", false
	}
	minute := 0
	if m[2] != "" {
		minute, err = strconv.Atoi(m[2])
		if err != nil {
			return "", false
		}
	}

	switch m[3] {
	case "pm":
		if hour < 12 {
			hour += 12
		}
	case "am":
		if hour == 12 {
			hour = 0
		}
	}

	if hour > 23 || minute > 59 {
		return "", false
	}

	return fmt.Sprintf("%02d:%02d", hour, minute), true
}
