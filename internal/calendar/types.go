package calendar

import "time"

// EventRequest describes a calendar event to create. Start and end are kept
// as the raw ISO strings the caller supplied; the Calendar API performs the
// authoritative parse so that malformed input surfaces as an API error rather
// than being silently rewritten.
type EventRequest struct {
	Title       string
	Description string
	StartISO    string
	EndISO      string
	Timezone    string
}

// EventConfirmation is the outcome of a successful event insert.
type EventConfirmation struct {
	EventID  string
	HTMLLink string
	Status   string
}

// Conflict is one busy interval overlapping a requested slot.
type Conflict struct {
	Start time.Time
	End   time.Time
}

// Availability is the outcome of a free/busy query over one interval.
type Availability struct {
	Available bool
	Conflicts []Conflict
}
