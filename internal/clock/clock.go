package clock

import (
	"fmt"
	"time"
)

// Snapshot is a single-instant view of the current time, localized to one
// timezone. All fields describe the same instant.
type Snapshot struct {
	// ISOTimestamp is the instant in RFC 3339 format, localized
	ISOTimestamp string `json:"isoTimestamp"`

	// Date is the calendar date (YYYY-MM-DD)
	Date string `json:"date"`

	// Time24 is the wall-clock time in 24-hour notation (HH:MM)
	Time24 string `json:"time24h"`

	// Time12 is the wall-clock time in 12-hour notation (e.g. "3:04 PM")
	Time12 string `json:"time12h"`

	// Timezone is the IANA zone identifier the clock fields are expressed in,
	// or "UTC" when no valid zone was requested
	Timezone string `json:"timezone"`

	// DayOfWeek is the English weekday name
	DayOfWeek string `json:"dayOfWeek"`

	// HumanReadable is a prose sentence suitable for direct inclusion in the
	// assistant's conversational context
	HumanReadable string `json:"humanReadable"`
}

// Now returns a snapshot of the current instant localized to the given IANA
// timezone identifier. An empty or unknown identifier degrades to UTC; Now
// never fails.
func Now(timezone string) Snapshot {
	return At(time.Now(), timezone)
}

// At returns a snapshot of the given instant localized to the given timezone.
// Split out from Now so tests can pin the instant.
func At(t time.Time, timezone string) Snapshot {
	loc := time.UTC
	label := "UTC"
	if timezone != "" {
		if l, err := time.LoadLocation(timezone); err == nil {
			loc = l
			label = timezone
		}
	}

	local := t.In(loc)
	time12 := local.Format("3:04 PM")

	return Snapshot{
		ISOTimestamp: local.Format(time.RFC3339),
		Date:         local.Format("2006-01-02"),
		Time24:       local.Format("15:04"),
		Time12:       time12,
		Timezone:     label,
		DayOfWeek:    local.Weekday().String(),
		HumanReadable: fmt.Sprintf("It is %s, %s %d, %d at %s (%s).",
			local.Weekday(), local.Month(), local.Day(), local.Year(), time12, label),
	}
}

// Instant parses the snapshot's ISO timestamp back into a time.Time.
// Useful for asserting that two snapshots describe the same instant.
func (s Snapshot) Instant() (time.Time, error) {
	return time.Parse(time.RFC3339, s.ISOTimestamp)
}
