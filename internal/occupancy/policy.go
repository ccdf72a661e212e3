package occupancy

import "github.com/wolfman30/clinic-booking/internal/slots"

// FailOpen collapses a lookup to its slots. A failed lookup counts as
// nothing booked.
func FailOpen(l Lookup) []slots.TimeSlot {
	if l.Err != nil || l.Slots == nil {
		return []slots.TimeSlot{}
	}
	return l.Slots
}
