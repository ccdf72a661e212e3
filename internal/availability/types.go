// Package availability combines the calendar rules, the slot catalog and the
// occupied-slots cache into per-day and per-window availability.
package availability

import (
	"github.com/wolfman30/clinic-booking/internal/calendar"
	"github.com/wolfman30/clinic-booking/internal/slots"
)

// SlotStatus annotates one catalog slot on an open day.
type SlotStatus string

const (
	SlotAvailable SlotStatus = "available"
	SlotOccupied  SlotStatus = "occupied"
	SlotPast      SlotStatus = "past"
)

// DayStatus is the overall outcome for a date.
type DayStatus string

const (
	DayOpen        DayStatus = "open"
	DayBlocked     DayStatus = "blocked"
	DayFullyBooked DayStatus = "fully_booked"
)

// ReasonFullyBooked is reported for window dates with no free slot left.
const ReasonFullyBooked = "fully_booked"

type SlotAvailability struct {
	Time   slots.TimeSlot `json:"time"`
	Status SlotStatus     `json:"status"`
}

// DayAvailability is the resolved state of one date. Slots is empty for
// blocked days and always lists the full catalog otherwise.
type DayAvailability struct {
	Date        calendar.Date        `json:"date"`
	Status      DayStatus            `json:"status"`
	Reason      calendar.BlockReason `json:"reason,omitempty"`
	HolidayName string               `json:"holiday_name,omitempty"`
	Message     string               `json:"message,omitempty"`
	Slots       []SlotAvailability   `json:"slots"`
	// Degraded is set when the occupied lookup failed and every slot not in
	// the past was assumed free.
	Degraded bool `json:"degraded,omitempty"`
}

// Slot returns the annotation for t, if t is in the catalog.
func (d DayAvailability) Slot(t slots.TimeSlot) (SlotAvailability, bool) {
	for _, s := range d.Slots {
		if s.Time == t {
			return s, true
		}
	}
	return SlotAvailability{}, false
}

// Available lists the slots a patient can still pick.
func (d DayAvailability) Available() []slots.TimeSlot {
	var out []slots.TimeSlot
	for _, s := range d.Slots {
		if s.Status == SlotAvailable {
			out = append(out, s.Time)
		}
	}
	return out
}

// UnavailableDate is one date the date picker should disable.
type UnavailableDate struct {
	Date        calendar.Date `json:"date"`
	Reason      string        `json:"reason"`
	HolidayName string        `json:"holiday_name,omitempty"`
}

// WindowAvailability covers [Start, Start+Days).
type WindowAvailability struct {
	Start       calendar.Date     `json:"start"`
	Days        int               `json:"days"`
	Unavailable []UnavailableDate `json:"unavailable"`
	// Degraded lists dates whose occupied lookup failed; they are treated as
	// not fully booked.
	Degraded []calendar.Date `json:"degraded,omitempty"`
}

// UnavailableSet returns the unavailable dates as ISO strings.
func (w WindowAvailability) UnavailableSet() map[string]string {
	out := make(map[string]string, len(w.Unavailable))
	for _, u := range w.Unavailable {
		out[u.Date.String()] = u.Reason
	}
	return out
}
