package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/example/gym-scheduler/internal/portal"
)

// reservationEntry is one record of the reservations file.
type reservationEntry struct {
	Category string `yaml:"category"`
	Timeslot string `yaml:"timeslot"`
	Weekday  string `yaml:"weekday"`
	DaysOut  int    `yaml:"days_ahead"`
}

type reservationsFile struct {
	Reservations []reservationEntry `yaml:"reservations"`
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// LoadReservations parses the reservations file into the ordered request
// list. Entries carrying neither weekday nor days_ahead get defaultLeadDays.
func LoadReservations(path string, defaultLeadDays int) ([]portal.ReservationRequest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reservations: %w", err)
	}
	return ParseReservations(raw, defaultLeadDays)
}

func ParseReservations(raw []byte, defaultLeadDays int) ([]portal.ReservationRequest, error) {
	var f reservationsFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("reservations: %w", err)
	}
	if len(f.Reservations) == 0 {
		return nil, fmt.Errorf("reservations: no entries")
	}

	out := make([]portal.ReservationRequest, 0, len(f.Reservations))
	for i, e := range f.Reservations {
		req := portal.ReservationRequest{
			Category:  strings.TrimSpace(e.Category),
			Timeslot:  strings.TrimSpace(e.Timeslot),
			DaysAhead: e.DaysOut,
		}
		if wd := strings.ToLower(strings.TrimSpace(e.Weekday)); wd != "" {
			day, ok := weekdays[wd]
			if !ok {
				return nil, fmt.Errorf("reservations[%d]: unknown weekday %q", i, e.Weekday)
			}
			req.Weekday = &day
		}
		if req.Weekday == nil && req.DaysAhead == 0 {
			req.DaysAhead = defaultLeadDays
		}
		if err := req.Validate(); err != nil {
			return nil, fmt.Errorf("reservations[%d]: %w", i, err)
		}
		out = append(out, req)
	}
	return out, nil
}
