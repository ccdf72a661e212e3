// Package slots defines appointment time slots and the clinic's ordered slot catalog.
package slots

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidSlot is returned for values that are not HH:MM clock times.
var ErrInvalidSlot = errors.New("slots: invalid time slot")

// ErrInvalidCatalog is returned when a catalog is empty, unordered or has duplicates.
var ErrInvalidCatalog = errors.New("slots: invalid catalog")

// DefaultCatalog is the clinic's standard day: a morning and an afternoon block.
var DefaultCatalog = []string{
	"08:00", "09:00", "10:00", "11:00",
	"14:00", "15:00", "16:00", "17:00",
}

// TimeSlot is a slot start time in canonical HH:MM form.
type TimeSlot string

// Parse validates a strict HH:MM value.
func Parse(raw string) (TimeSlot, error) {
	raw = strings.TrimSpace(raw)
	if len(raw) != 5 {
		return "", fmt.Errorf("%w: %q", ErrInvalidSlot, raw)
	}
	if _, err := time.Parse("15:04", raw); err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidSlot, raw)
	}
	return TimeSlot(raw), nil
}

// Normalize coerces upstream values such as "14:00:00" or "09:30 " into HH:MM by
// keeping the first five characters. It fails when what remains is not a clock time.
func Normalize(raw string) (TimeSlot, error) {
	raw = strings.TrimSpace(raw)
	if len(raw) > 5 {
		raw = raw[:5]
	}
	return Parse(raw)
}

// MinuteOfDay is the slot's offset from midnight in minutes.
func (s TimeSlot) MinuteOfDay() int {
	t, err := time.Parse("15:04", string(s))
	if err != nil {
		return -1
	}
	return t.Hour()*60 + t.Minute()
}

func (s TimeSlot) String() string { return string(s) }

// Set is an unordered collection of slots used for membership checks.
type Set map[TimeSlot]struct{}

// NewSet builds a Set from slots; duplicates collapse.
func NewSet(items ...TimeSlot) Set {
	set := make(Set, len(items))
	for _, s := range items {
		set[s] = struct{}{}
	}
	return set
}

func (s Set) Has(slot TimeSlot) bool {
	_, ok := s[slot]
	return ok
}

func (s Set) Add(slot TimeSlot) {
	s[slot] = struct{}{}
}

// Catalog is the fixed, strictly ascending list of bookable slot starts.
type Catalog struct {
	slots []TimeSlot
	index map[TimeSlot]int
}

// NewCatalog validates raw values and builds a catalog. Values must be strict
// HH:MM, unique and in ascending order.
func NewCatalog(raw []string) (*Catalog, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty", ErrInvalidCatalog)
	}
	c := &Catalog{
		slots: make([]TimeSlot, 0, len(raw)),
		index: make(map[TimeSlot]int, len(raw)),
	}
	prev := -1
	for _, r := range raw {
		slot, err := Parse(r)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
		}
		minute := slot.MinuteOfDay()
		if minute <= prev {
			return nil, fmt.Errorf("%w: %s is not after the previous slot", ErrInvalidCatalog, slot)
		}
		prev = minute
		c.index[slot] = len(c.slots)
		c.slots = append(c.slots, slot)
	}
	return c, nil
}

// MustCatalog is NewCatalog for literals; it panics on bad input.
func MustCatalog(raw []string) *Catalog {
	c, err := NewCatalog(raw)
	if err != nil {
		panic(err)
	}
	return c
}

// Slots returns a copy of the ordered catalog.
func (c *Catalog) Slots() []TimeSlot {
	out := make([]TimeSlot, len(c.slots))
	copy(out, c.slots)
	return out
}

func (c *Catalog) Len() int { return len(c.slots) }

func (c *Catalog) Contains(slot TimeSlot) bool {
	_, ok := c.index[slot]
	return ok
}

// Strings returns the catalog as plain strings, for config and JSON output.
func (c *Catalog) Strings() []string {
	out := make([]string, len(c.slots))
	for i, s := range c.slots {
		out[i] = string(s)
	}
	return out
}

// AllIn reports whether every catalog slot is a member of set. This is exact
// containment: extra or duplicated members of set never count.
func (c *Catalog) AllIn(set Set) bool {
	for _, s := range c.slots {
		if !set.Has(s) {
			return false
		}
	}
	return true
}
