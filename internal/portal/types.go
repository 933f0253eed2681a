package portal

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// ReservationRequest describes one slot to book. Values come straight from the
// reservations file and are never mutated by the core.
type ReservationRequest struct {
	// Category is matched verbatim against the portal's category labels.
	Category string
	// Timeslot is the slot start time as rendered by the portal, "HH:MM".
	Timeslot string

	// Exactly one of Weekday / DaysAhead selects the target date. Weekday picks
	// the next occurrence of that day (1..7 days out, never today); DaysAhead
	// is a fixed offset from today.
	Weekday   *time.Weekday
	DaysAhead int
}

var timeslotRe = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

func (r ReservationRequest) Validate() error {
	if strings.TrimSpace(r.Category) == "" {
		return fmt.Errorf("category required")
	}
	if !timeslotRe.MatchString(r.Timeslot) {
		return fmt.Errorf("timeslot %q: want HH:MM", r.Timeslot)
	}
	if r.Weekday == nil && r.DaysAhead <= 0 {
		return fmt.Errorf("either weekday or days_ahead required")
	}
	if r.Weekday != nil && r.DaysAhead != 0 {
		return fmt.Errorf("weekday and days_ahead are mutually exclusive")
	}
	return nil
}

func (r ReservationRequest) String() string {
	return fmt.Sprintf("%s@%s", r.Category, r.Timeslot)
}

// ResolveDate computes the reservation date for a request as "YYYY-MM-DD".
// The result depends only on the calendar day of now, so it is stable for the
// lifetime of a run.
func (r ReservationRequest) ResolveDate(now time.Time) string {
	if r.Weekday != nil {
		// Next occurrence, 1..7 days out. If today is the wanted weekday the
		// target is a week from now, not today.
		days := (int(*r.Weekday) + 7 - int(now.Weekday())) % 7
		if days == 0 {
			days = 7
		}
		return now.AddDate(0, 0, days).Format("2006-01-02")
	}
	return now.AddDate(0, 0, r.DaysAhead).Format("2006-01-02")
}

// BookingOutcome is the per-attempt result consumed for logging only.
type BookingOutcome struct {
	Request ReservationRequest
	Date    string
	Success bool
	Err     error
}
